package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/ctagard/launchfile/internal/config"
	"github.com/ctagard/launchfile/internal/dap"
	applog "github.com/ctagard/launchfile/internal/log"
	"github.com/ctagard/launchfile/pkg/types"
)

// LLDBAdapter implements the StdioAdapter interface for LLDB via lldb-dap
// (formerly lldb-vscode). It debugs C, C++ and Rust binaries.
type LLDBAdapter struct {
	lldbDapPath string
}

// NewLLDBAdapter creates a new LLDB adapter
func NewLLDBAdapter(cfg config.LLDBConfig) *LLDBAdapter {
	path := cfg.Path
	if path == "" {
		path = "lldb-dap"
	}
	return &LLDBAdapter{lldbDapPath: path}
}

// Debugger implements Adapter.
func (l *LLDBAdapter) Debugger() types.Debugger {
	return types.DebuggerLLDB
}

// AdapterID implements Adapter.
func (l *LLDBAdapter) AdapterID() string {
	return "lldb-dap"
}

// Spawn is not supported; lldb-dap speaks DAP over stdio.
func (l *LLDBAdapter) Spawn(context.Context, map[string]interface{}) (string, *exec.Cmd, error) {
	return "", nil, fmt.Errorf("lldb adapter uses stdio transport, use SpawnStdio instead")
}

// SpawnStdio starts lldb-dap and returns a DAP client connected via stdin/stdout
func (l *LLDBAdapter) SpawnStdio(ctx context.Context, args map[string]interface{}, logger *slog.Logger) (*dap.Client, *exec.Cmd, error) {
	// auto REPL mode accepts both expressions and lldb commands
	//nolint:gosec // G204: spawning the configured debugger is the point
	cmd := exec.CommandContext(ctx, l.lldbDapPath, "--repl-mode=auto")
	return startStdio(cmd, args, "lldb-dap", logger)
}

// startStdio starts a stdio adapter process and connects a client to it.
func startStdio(cmd *exec.Cmd, args map[string]interface{}, name string, logger *slog.Logger) (*dap.Client, *exec.Cmd, error) {
	logger = applog.OrDiscard(logger)
	cmd.Env = os.Environ()
	cmd.Stderr = os.Stderr
	setProcAttr(cmd)

	if cwd := stringValue(args, "cwd"); cwd != "" {
		cmd.Dir = cwd
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		_ = stdout.Close()
		return nil, nil, fmt.Errorf("failed to start %s: %w", name, err)
	}
	logger.Debug("debug adapter started", "pid", cmd.Process.Pid)

	client := dap.NewClient(dap.NewStdioTransport(stdin, stdout), logger)
	return client, cmd, nil
}

// BuildLaunchArgs passes the configuration through and translates the
// cppdbg spellings lldb-dap does not understand.
func (l *LLDBAdapter) BuildLaunchArgs(args map[string]interface{}) map[string]interface{} {
	launchArgs := passthrough(args, "type", "request", "environment", "stopAtEntry", "MIMode", "miDebuggerPath")

	if programArgs, ok := stringSlice(args["args"]); ok {
		launchArgs["args"] = programArgs
	}
	// lldb-dap expects env as a KEY=VALUE list
	if env := envMap(args); len(env) > 0 {
		launchArgs["env"] = envList(env)
	}
	if _, ok := args["stopOnEntry"]; !ok {
		if stop, ok := args["stopAtEntry"].(bool); ok {
			launchArgs["stopOnEntry"] = stop
		}
	}
	for _, key := range []string{"initCommands", "preRunCommands", "stopCommands", "exitCommands"} {
		if cmds, ok := stringSlice(args[key]); ok {
			launchArgs[key] = cmds
		}
	}
	return launchArgs
}

// BuildAttachArgs builds the attach arguments for lldb-dap
func (l *LLDBAdapter) BuildAttachArgs(args map[string]interface{}) map[string]interface{} {
	attachArgs := passthrough(args, "type", "request", "processId", "MIMode", "miDebuggerPath")

	pid, ok := intValue(args["pid"])
	if !ok {
		pid, ok = intValue(args["processId"])
	}
	if ok {
		attachArgs["pid"] = pid
	}
	if cmds, ok := stringSlice(args["attachCommands"]); ok {
		attachArgs["attachCommands"] = cmds
	}
	return attachArgs
}
