// Package adapters spawns the debug adapters that serve launch.json
// configurations and translates a configuration object into the launch or
// attach arguments each adapter expects.
//
// Supported adapters:
//   - Go (via Delve, TCP)
//   - Python (via debugpy, TCP)
//   - C, C++ and Rust (via lldb-dap or GDB's DAP interpreter, stdio)
//
// The Registry picks the adapter for a configuration from its "type" field.
package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os/exec"
	"sort"
	"time"

	"github.com/ctagard/launchfile/internal/config"
	"github.com/ctagard/launchfile/internal/dap"
	apperrors "github.com/ctagard/launchfile/internal/errors"
	"github.com/ctagard/launchfile/internal/launchconfig"
	applog "github.com/ctagard/launchfile/internal/log"
	"github.com/ctagard/launchfile/pkg/types"
)

// Adapter defines the interface for a debug adapter
type Adapter interface {
	// Debugger identifies the adapter implementation
	Debugger() types.Debugger

	// AdapterID is sent in the initialize request
	AdapterID() string

	// Spawn starts the adapter process and returns the TCP address to connect to.
	// Stdio adapters (StdioAdapter) return an error.
	Spawn(ctx context.Context, args map[string]interface{}) (address string, cmd *exec.Cmd, err error)

	// BuildLaunchArgs builds the launch request arguments from a configuration
	BuildLaunchArgs(args map[string]interface{}) map[string]interface{}

	// BuildAttachArgs builds the attach request arguments from a configuration
	BuildAttachArgs(args map[string]interface{}) map[string]interface{}
}

// StdioAdapter extends Adapter for adapters that communicate via stdin/stdout
// instead of TCP sockets (lldb-dap, gdb --interpreter=dap)
type StdioAdapter interface {
	Adapter

	// SpawnStdio starts the adapter process and returns a DAP client
	// connected via the process's stdin/stdout pipes
	SpawnStdio(ctx context.Context, args map[string]interface{}, logger *slog.Logger) (client *dap.Client, cmd *exec.Cmd, err error)
}

// Registry holds all registered adapters
type Registry struct {
	adapters map[types.Debugger]Adapter
}

// NewRegistry creates a new adapter registry with all supported adapters
func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{
		adapters: make(map[types.Debugger]Adapter),
	}
	r.Register(NewDelveAdapter(cfg.Adapters.Go))
	r.Register(NewDebugpyAdapter(cfg.Adapters.Python))
	r.Register(NewLLDBAdapter(cfg.Adapters.LLDB))
	r.Register(NewGDBAdapter(cfg.Adapters.GDB))
	return r
}

// Register registers an adapter, replacing any adapter for the same debugger
func (r *Registry) Register(adapter Adapter) {
	r.adapters[adapter.Debugger()] = adapter
}

// Get returns the adapter for a debugger
func (r *Registry) Get(debugger types.Debugger) (Adapter, bool) {
	adapter, ok := r.adapters[debugger]
	return adapter, ok
}

// ForConfiguration returns the adapter that serves a debug configuration
func (r *Registry) ForConfiguration(cfg *launchconfig.DebugConfiguration) (Adapter, error) {
	if adapter, ok := r.adapters[cfg.Debugger()]; ok {
		return adapter, nil
	}
	return nil, apperrors.AdapterNotSupported(cfg.Type(), SupportedTypes())
}

// SupportedTypes lists the launch.json "type" values that have an adapter.
func SupportedTypes() []string {
	out := make([]string, 0, len(launchconfig.TypeToLanguage))
	for t := range launchconfig.TypeToLanguage {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Connect creates a DAP client connected to the given address via TCP
func Connect(address string, maxRetries int, logger *slog.Logger) (*dap.Client, error) {
	var transport *dap.Transport
	var err error

	for i := 0; i < maxRetries; i++ {
		transport, err = dap.NewTCPTransport(address)
		if err == nil {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to debug adapter at %s: %w", address, err)
	}

	return dap.NewClient(transport, logger), nil
}

// SpawnAndConnect spawns an adapter and returns a connected client.
// A configuration carrying "debugServer" connects to an adapter already
// listening on that local port and spawns nothing.
func SpawnAndConnect(ctx context.Context, adapter Adapter, args map[string]interface{}, logger *slog.Logger) (*dap.Client, *exec.Cmd, error) {
	logger = applog.WithComponent(logger, "adapters").With("debugger", adapter.Debugger())

	if port, ok := intValue(args["debugServer"]); ok && port > 0 {
		address := fmt.Sprintf("127.0.0.1:%d", port)
		logger.Debug("connecting to running debug server", "address", address)
		client, err := Connect(address, 1, logger)
		return client, nil, err
	}

	if stdioAdapter, ok := adapter.(StdioAdapter); ok {
		return stdioAdapter.SpawnStdio(ctx, args, logger)
	}

	address, cmd, err := adapter.Spawn(ctx, args)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("debug adapter started", "address", address, "pid", cmd.Process.Pid)

	// 20 retries * 200ms = 4 seconds max wait
	client, err := Connect(address, 20, logger)
	if err != nil {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return nil, nil, err
	}
	return client, cmd, nil
}

// findAvailablePort finds an available TCP port
func findAvailablePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()

	addr := listener.Addr().(*net.TCPAddr)
	return addr.Port, nil
}

// passthrough copies a configuration without the fields only the editor
// interprets.
func passthrough(args map[string]interface{}, drop ...string) map[string]interface{} {
	out := make(map[string]interface{}, len(args))
	for k, v := range args {
		out[k] = v
	}
	for _, k := range []string{"preLaunchTask", "postDebugTask", "presentation", "internalConsoleOptions", "debugServer"} {
		delete(out, k)
	}
	for _, k := range drop {
		delete(out, k)
	}
	return out
}

// envMap reads "env" as an object and cppdbg's "environment" as a
// [{name, value}] list. Entries in "env" win.
func envMap(args map[string]interface{}) map[string]string {
	out := make(map[string]string)
	if list, ok := args["environment"].([]interface{}); ok {
		for _, item := range list {
			entry, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			name, _ := entry["name"].(string)
			if name == "" {
				continue
			}
			out[name] = fmt.Sprint(entry["value"])
		}
	}
	if env, ok := args["env"].(map[string]interface{}); ok {
		for k, v := range env {
			if v == nil {
				continue
			}
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}

// envList renders an environment as sorted KEY=VALUE strings.
func envList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

func stringSlice(v interface{}) ([]string, bool) {
	list, ok := v.([]interface{})
	if !ok {
		if s, ok := v.([]string); ok {
			return s, true
		}
		return nil, false
	}
	out := make([]string, len(list))
	for i, item := range list {
		out[i] = fmt.Sprint(item)
	}
	return out, true
}

func intValue(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

func stringValue(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}
