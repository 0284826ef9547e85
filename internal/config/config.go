// Package config provides settings management for launchfile.
//
// Settings control:
//   - Resolution: the naming-convention strategy and the debug suffix
//   - Orchestration: whether a failed build aborts the debug launch
//   - Task execution: the shell used for shell tasks
//   - Language-specific adapter settings: paths and flags for each debugger
//   - Logging and safety limits
//
// Settings come from defaults, an optional JSON or YAML file, the workspace's
// .vscode/settings.json ("launchfile.*" keys) and environment variables, in
// increasing order of precedence. A Source re-reads all of them on every Load
// so a change is observed by the next invocation.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ctagard/launchfile/internal/jsonc"
)

// Strategy selects how a file-type tag is resolved to a plan.
type Strategy string

const (
	// StrategyLink follows the debug configuration's preLaunchTask link.
	StrategyLink Strategy = "link"
	// StrategyConvention matches both the build task and the debug
	// configuration by name.
	StrategyConvention Strategy = "convention"
)

const (
	// DefaultDebugSuffix is the suffix debug configuration names end with.
	DefaultDebugSuffix = "_Debug"
	// BuildSuffix is the suffix build task labels end with under the
	// convention strategy. It is not configurable.
	BuildSuffix = "_Build"
	// ConventionDebugSuffix is the debug suffix used by the convention
	// strategy regardless of DebugSuffix.
	ConventionDebugSuffix = "_Debug"

	// EnvDebugSuffix overrides DebugSuffix.
	EnvDebugSuffix = "LAUNCHFILE_DEBUG_SUFFIX"
	// EnvStrategy overrides Strategy.
	EnvStrategy = "LAUNCHFILE_STRATEGY"
	// EnvAbortOnBuildFailure overrides AbortOnBuildFailure.
	EnvAbortOnBuildFailure = "LAUNCHFILE_ABORT_ON_BUILD_FAILURE"

	// WorkspaceSettingsPrefix is the key prefix read from .vscode/settings.json.
	WorkspaceSettingsPrefix = "launchfile."
)

// Config holds the launchfile settings
type Config struct {
	// Resolution
	Strategy    Strategy `json:"strategy" yaml:"strategy"`
	DebugSuffix string   `json:"debugSuffix" yaml:"debugSuffix"`

	// Orchestration
	AbortOnBuildFailure bool `json:"abortOnBuildFailure" yaml:"abortOnBuildFailure"`

	// Shell tasks
	Shell     string   `json:"shell" yaml:"shell"`
	ShellArgs []string `json:"shellArgs" yaml:"shellArgs"`

	// Language-specific adapter configs
	Adapters AdapterConfigs `json:"adapters" yaml:"adapters"`

	Log LogConfig `json:"log" yaml:"log"`

	// Limits for safety
	MaxSessions int `json:"maxSessions" yaml:"maxSessions"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level     string `json:"level" yaml:"level"`
	Format    string `json:"format" yaml:"format"`
	AddSource bool   `json:"addSource" yaml:"addSource"`
}

// AdapterConfigs holds configuration for each debug adapter
type AdapterConfigs struct {
	Go     DelveConfig   `json:"go" yaml:"go"`
	Python DebugpyConfig `json:"python" yaml:"python"`
	LLDB   LLDBConfig    `json:"lldb" yaml:"lldb"`
	GDB    GDBConfig     `json:"gdb" yaml:"gdb"`
}

// DelveConfig holds Delve-specific configuration
type DelveConfig struct {
	Path       string `json:"path" yaml:"path"`
	BuildFlags string `json:"buildFlags" yaml:"buildFlags"`
}

// DebugpyConfig holds debugpy-specific configuration
type DebugpyConfig struct {
	PythonPath string `json:"pythonPath" yaml:"pythonPath"`
}

// LLDBConfig holds LLDB-specific configuration
type LLDBConfig struct {
	Path string `json:"path" yaml:"path"` // Path to lldb-dap binary (formerly lldb-vscode)
}

// GDBConfig holds GDB-specific configuration
type GDBConfig struct {
	Path string `json:"path" yaml:"path"` // Path to gdb binary (requires GDB 14.1+ for DAP support)
}

// findLLDBDap searches for lldb-dap in common locations across platforms
func findLLDBDap() string {
	if path, err := exec.LookPath("lldb-dap"); err == nil {
		return path
	}

	locations := []string{
		// macOS
		"/Library/Developer/CommandLineTools/usr/bin/lldb-dap",
		"/Applications/Xcode.app/Contents/Developer/usr/bin/lldb-dap",
		"/opt/homebrew/bin/lldb-dap",
		"/usr/local/bin/lldb-dap",

		// Linux
		"/usr/bin/lldb-dap",
		"/usr/bin/lldb-dap-19",
		"/usr/bin/lldb-dap-18",
		"/usr/lib/llvm-19/bin/lldb-dap",
		"/usr/lib/llvm-18/bin/lldb-dap",
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	// Pre-LLVM 16 name
	if path, err := exec.LookPath("lldb-vscode"); err == nil {
		return path
	}
	return "lldb-dap"
}

// defaultShell returns the shell used for shell tasks when none is configured.
func defaultShell() (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd.exe", []string{"/d", "/c"}
	}
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return shell, []string{"-c"}
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	shell, shellArgs := defaultShell()
	return &Config{
		Strategy:    StrategyLink,
		DebugSuffix: DefaultDebugSuffix,
		Shell:       shell,
		ShellArgs:   shellArgs,
		MaxSessions: 10,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Adapters: AdapterConfigs{
			Go:     DelveConfig{Path: "dlv"},
			Python: DebugpyConfig{PythonPath: "python3"},
			LLDB:   LLDBConfig{Path: findLLDBDap()},
			GDB:    GDBConfig{Path: "gdb"},
		},
	}
}

// LoadConfig loads settings from a JSON or YAML file on top of the defaults,
// applies environment overrides and validates the result. An empty path
// yields the defaults with environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyDefaults()
	cfg.loadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile decodes path by extension: .json files may carry comments
// and trailing commas, everything else is read as YAML.
func (c *Config) loadFromFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read settings file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		doc, err := jsonc.Standardize(data)
		if err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
		if err := json.Unmarshal(doc, c); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
		return nil
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// applyDefaults fills zero values left by a minimal settings file.
// DebugSuffix is left alone: settings start from the defaults, so an empty
// suffix was set explicitly and Validate rejects it.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Strategy == "" {
		c.Strategy = defaults.Strategy
	}
	if c.Shell == "" {
		c.Shell = defaults.Shell
		if len(c.ShellArgs) == 0 {
			c.ShellArgs = defaults.ShellArgs
		}
	}
	if c.MaxSessions == 0 {
		c.MaxSessions = defaults.MaxSessions
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
	if c.Adapters.Go.Path == "" {
		c.Adapters.Go.Path = defaults.Adapters.Go.Path
	}
	if c.Adapters.Python.PythonPath == "" {
		c.Adapters.Python.PythonPath = defaults.Adapters.Python.PythonPath
	}
	if c.Adapters.LLDB.Path == "" {
		c.Adapters.LLDB.Path = defaults.Adapters.LLDB.Path
	}
	if c.Adapters.GDB.Path == "" {
		c.Adapters.GDB.Path = defaults.Adapters.GDB.Path
	}
}

// loadFromEnv applies environment variable overrides.
func (c *Config) loadFromEnv() {
	if val := os.Getenv(EnvDebugSuffix); val != "" {
		c.DebugSuffix = val
	}
	if val := os.Getenv(EnvStrategy); val != "" {
		c.Strategy = Strategy(strings.ToLower(val))
	}
	if val := os.Getenv(EnvAbortOnBuildFailure); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			c.AbortOnBuildFailure = b
		}
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	switch c.Strategy {
	case StrategyLink, StrategyConvention:
	default:
		errs = append(errs, fmt.Sprintf("strategy must be one of [link, convention], got %q", c.Strategy))
	}
	if c.DebugSuffix == "" {
		errs = append(errs, "debugSuffix must not be empty")
	}
	if c.MaxSessions < 1 {
		errs = append(errs, fmt.Sprintf("maxSessions must be positive, got %d", c.MaxSessions))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of [debug, info, warn, warning, error], got %q", c.Log.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Log.Format)] {
		errs = append(errs, fmt.Sprintf("log.format must be one of [json, text], got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid settings:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// EffectiveDebugSuffix returns the debug suffix the configured strategy matches.
func (c *Config) EffectiveDebugSuffix() string {
	if c.Strategy == StrategyConvention {
		return ConventionDebugSuffix
	}
	return c.DebugSuffix
}
