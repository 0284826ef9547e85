package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/ctagard/launchfile/internal/config"
	"github.com/ctagard/launchfile/internal/dap"
	"github.com/ctagard/launchfile/pkg/types"
)

// GDBAdapter implements the StdioAdapter interface for GDB's native DAP
// interpreter. Requires GDB 14.1 or later.
type GDBAdapter struct {
	gdbPath string
}

// NewGDBAdapter creates a new GDB adapter
func NewGDBAdapter(cfg config.GDBConfig) *GDBAdapter {
	path := cfg.Path
	if path == "" {
		path = "gdb"
	}
	return &GDBAdapter{gdbPath: path}
}

// Debugger implements Adapter.
func (g *GDBAdapter) Debugger() types.Debugger {
	return types.DebuggerGDB
}

// AdapterID implements Adapter.
func (g *GDBAdapter) AdapterID() string {
	return "gdb"
}

// Spawn is not supported; GDB speaks DAP over stdio.
func (g *GDBAdapter) Spawn(context.Context, map[string]interface{}) (string, *exec.Cmd, error) {
	return "", nil, fmt.Errorf("gdb adapter uses stdio transport, use SpawnStdio instead")
}

// SpawnStdio starts GDB in DAP mode and returns a DAP client connected via stdin/stdout
func (g *GDBAdapter) SpawnStdio(ctx context.Context, args map[string]interface{}, logger *slog.Logger) (*dap.Client, *exec.Cmd, error) {
	path := g.gdbPath
	// cppdbg configurations may name their own gdb
	if p := stringValue(args, "miDebuggerPath"); p != "" {
		path = p
	}

	//nolint:gosec // G204: spawning the configured debugger is the point
	cmd := exec.CommandContext(ctx, path,
		"--interpreter=dap",
		"--eval-command", "set print pretty on",
		"--quiet",
	)
	return startStdio(cmd, args, "gdb", logger)
}

// BuildLaunchArgs passes the configuration through and translates the
// cppdbg spellings GDB does not understand.
func (g *GDBAdapter) BuildLaunchArgs(args map[string]interface{}) map[string]interface{} {
	launchArgs := passthrough(args, "type", "request", "environment", "stopAtEntry", "MIMode", "miDebuggerPath", "setupCommands")

	if programArgs, ok := stringSlice(args["args"]); ok {
		launchArgs["args"] = programArgs
	}
	// GDB expects env as an object
	if env := envMap(args); len(env) > 0 {
		launchArgs["env"] = env
	}
	if _, ok := args["stopAtBeginningOfMainSubprogram"]; !ok {
		if stop, ok := args["stopAtEntry"].(bool); ok {
			launchArgs["stopAtBeginningOfMainSubprogram"] = stop
		}
	}
	return launchArgs
}

// BuildAttachArgs builds the attach arguments for GDB DAP
func (g *GDBAdapter) BuildAttachArgs(args map[string]interface{}) map[string]interface{} {
	attachArgs := passthrough(args, "type", "request", "processId", "MIMode", "miDebuggerPath", "setupCommands")

	pid, ok := intValue(args["pid"])
	if !ok {
		pid, ok = intValue(args["processId"])
	}
	if ok {
		attachArgs["pid"] = pid
	}
	// cppdbg's miDebuggerServerAddress names a gdbserver target
	if addr := stringValue(args, "miDebuggerServerAddress"); addr != "" {
		attachArgs["target"] = addr
		delete(attachArgs, "miDebuggerServerAddress")
	}
	return attachArgs
}
