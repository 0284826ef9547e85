package adapters

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/ctagard/launchfile/internal/config"
	"github.com/ctagard/launchfile/pkg/types"
)

// DelveAdapter implements the Adapter interface for Go/Delve
type DelveAdapter struct {
	dlvPath    string
	buildFlags string
}

// NewDelveAdapter creates a new Delve adapter
func NewDelveAdapter(cfg config.DelveConfig) *DelveAdapter {
	dlvPath := cfg.Path
	if dlvPath == "" {
		dlvPath = "dlv"
	}

	return &DelveAdapter{
		dlvPath:    dlvPath,
		buildFlags: cfg.BuildFlags,
	}
}

// Debugger implements Adapter.
func (d *DelveAdapter) Debugger() types.Debugger {
	return types.DebuggerDelve
}

// AdapterID implements Adapter.
func (d *DelveAdapter) AdapterID() string {
	return "go"
}

// Spawn starts `dlv dap` listening on a free local port
func (d *DelveAdapter) Spawn(ctx context.Context, args map[string]interface{}) (string, *exec.Cmd, error) {
	port, err := findAvailablePort()
	if err != nil {
		return "", nil, fmt.Errorf("failed to find available port: %w", err)
	}
	address := fmt.Sprintf("127.0.0.1:%d", port)

	dlvArgs := []string{"dap", "--listen", address}
	if d.buildFlags != "" {
		dlvArgs = append(dlvArgs, "--build-flags", d.buildFlags)
	}

	//nolint:gosec // G204: spawning the configured debugger is the point
	cmd := exec.CommandContext(ctx, d.dlvPath, dlvArgs...)
	cmd.Env = os.Environ()
	cmd.Stdin = nil
	cmd.Stderr = os.Stderr
	setProcAttr(cmd)

	if cwd := stringValue(args, "cwd"); cwd != "" {
		cmd.Dir = cwd
	}

	if err := cmd.Start(); err != nil {
		return "", nil, fmt.Errorf("failed to start dlv: %w", err)
	}

	// Wait for the server to start
	time.Sleep(500 * time.Millisecond)

	return address, cmd, nil
}

// BuildLaunchArgs passes the configuration through, defaulting mode to
// "debug" as VS Code's Go extension does.
func (d *DelveAdapter) BuildLaunchArgs(args map[string]interface{}) map[string]interface{} {
	launchArgs := passthrough(args, "type", "request")

	if mode := stringValue(args, "mode"); mode == "" || mode == "auto" {
		launchArgs["mode"] = "debug"
	}
	if programArgs, ok := stringSlice(args["args"]); ok {
		launchArgs["args"] = programArgs
	}
	if env := envMap(args); len(env) > 0 {
		launchArgs["env"] = env
	}
	delete(launchArgs, "environment")

	if _, ok := launchArgs["buildFlags"]; !ok && d.buildFlags != "" {
		launchArgs["buildFlags"] = d.buildFlags
	}
	return launchArgs
}

// BuildAttachArgs builds the attach arguments for Delve
func (d *DelveAdapter) BuildAttachArgs(args map[string]interface{}) map[string]interface{} {
	attachArgs := passthrough(args, "type", "request", "pid")

	if stringValue(args, "mode") == "" {
		attachArgs["mode"] = "local"
	}
	if pid, ok := intValue(args["pid"]); ok {
		attachArgs["processId"] = pid
	}
	return attachArgs
}
