package adapters

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ctagard/launchfile/internal/config"
	"github.com/ctagard/launchfile/pkg/types"
)

// DebugpyAdapter implements the Adapter interface for Python/debugpy
type DebugpyAdapter struct {
	pythonPath string
}

// NewDebugpyAdapter creates a new debugpy adapter
func NewDebugpyAdapter(cfg config.DebugpyConfig) *DebugpyAdapter {
	pythonPath := cfg.PythonPath
	if pythonPath == "" {
		pythonPath = "python3"
	}
	return &DebugpyAdapter{pythonPath: pythonPath}
}

// Debugger implements Adapter.
func (d *DebugpyAdapter) Debugger() types.Debugger {
	return types.DebuggerDebugpy
}

// AdapterID implements Adapter.
func (d *DebugpyAdapter) AdapterID() string {
	return "debugpy"
}

// interpreter returns the Python interpreter for a configuration. VS Code's
// "python" attribute wins over debugpy's older "pythonPath".
func (d *DebugpyAdapter) interpreter(args map[string]interface{}) string {
	if p := stringValue(args, "python"); p != "" {
		return p
	}
	if p := stringValue(args, "pythonPath"); p != "" {
		return p
	}
	return d.pythonPath
}

// venvRoot returns the virtualenv holding pythonPath, or "".
func venvRoot(pythonPath string) string {
	// /path/to/venv/bin/python -> /path/to/venv
	root := filepath.Dir(filepath.Dir(pythonPath))
	if _, err := os.Stat(filepath.Join(root, "pyvenv.cfg")); err == nil {
		return root
	}
	return ""
}

// Spawn starts the debugpy adapter listening on a free local port
func (d *DebugpyAdapter) Spawn(ctx context.Context, args map[string]interface{}) (string, *exec.Cmd, error) {
	port, err := findAvailablePort()
	if err != nil {
		return "", nil, fmt.Errorf("failed to find available port: %w", err)
	}
	address := fmt.Sprintf("127.0.0.1:%d", port)

	pythonPath := d.interpreter(args)

	//nolint:gosec // G204: spawning the configured interpreter is the point
	cmd := exec.CommandContext(ctx, pythonPath,
		"-m", "debugpy.adapter",
		"--host", "127.0.0.1",
		"--port", fmt.Sprintf("%d", port),
	)
	cmd.Env = adapterEnv(pythonPath, envMap(args))
	cmd.Stdin = nil
	cmd.Stderr = os.Stderr
	setProcAttr(cmd)

	if cwd := stringValue(args, "cwd"); cwd != "" {
		cmd.Dir = cwd
	}

	if err := cmd.Start(); err != nil {
		return "", nil, fmt.Errorf("failed to start debugpy: %w", err)
	}

	// debugpy can take a moment to initialize
	time.Sleep(1 * time.Second)

	return address, cmd, nil
}

// adapterEnv activates the interpreter's virtualenv, if any, and adds the
// configuration's env on top.
func adapterEnv(pythonPath string, extra map[string]string) []string {
	env := os.Environ()
	if root := venvRoot(pythonPath); root != "" {
		env = append(env, "VIRTUAL_ENV="+root)
		binDir := filepath.Dir(pythonPath)
		for i, kv := range env {
			if strings.HasPrefix(kv, "PATH=") {
				env[i] = "PATH=" + binDir + string(os.PathListSeparator) + kv[len("PATH="):]
				break
			}
		}
	}
	return append(env, envList(extra)...)
}

// BuildLaunchArgs passes the configuration through. Output is kept in the
// adapter since there is no integrated terminal to run the debuggee in.
func (d *DebugpyAdapter) BuildLaunchArgs(args map[string]interface{}) map[string]interface{} {
	launchArgs := passthrough(args)
	launchArgs["type"] = "python"
	launchArgs["request"] = "launch"
	launchArgs["console"] = "internalConsole"

	if programArgs, ok := stringSlice(args["args"]); ok {
		launchArgs["args"] = programArgs
	}
	if env := envMap(args); len(env) > 0 {
		launchArgs["env"] = env
	}
	delete(launchArgs, "environment")

	if stringValue(args, "module") != "" {
		delete(launchArgs, "program")
	}
	if _, ok := launchArgs["python"]; !ok {
		launchArgs["python"] = d.interpreter(args)
	}
	return launchArgs
}

// BuildAttachArgs builds the attach arguments for debugpy
func (d *DebugpyAdapter) BuildAttachArgs(args map[string]interface{}) map[string]interface{} {
	attachArgs := passthrough(args, "pid")
	attachArgs["type"] = "python"
	attachArgs["request"] = "attach"

	// "connect": {"host", "port"} is the current form of host/port
	if connect, ok := args["connect"].(map[string]interface{}); ok {
		if host, ok := connect["host"].(string); ok {
			attachArgs["host"] = host
		}
		if port, ok := intValue(connect["port"]); ok {
			attachArgs["port"] = port
		}
	}
	if _, ok := attachArgs["host"]; !ok {
		attachArgs["host"] = "127.0.0.1"
	}
	if pid, ok := intValue(args["pid"]); ok {
		attachArgs["processId"] = pid
	}
	return attachArgs
}
