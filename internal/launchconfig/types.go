// Package launchconfig reads VS Code launch.json debug configurations.
//
// Only the fields used for matching are typed. Everything else in a
// configuration object is kept as raw JSON and handed to the debug engine
// untouched.
package launchconfig

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/ctagard/launchfile/pkg/types"
)

// LaunchJSON represents a VS Code launch.json file structure.
type LaunchJSON struct {
	Version        string               `json:"version"`
	Configurations []DebugConfiguration `json:"configurations"`
}

// DebugConfiguration represents a single debug configuration in launch.json.
type DebugConfiguration struct {
	// Name is the human-readable name matched against the naming convention.
	Name string `json:"name"`

	// PreLaunchTask is the label of the task that builds the target, if any.
	PreLaunchTask string `json:"preLaunchTask,omitempty"`

	// Raw is the complete configuration object as it appears in launch.json.
	Raw json.RawMessage `json:"-"`
}

// MarshalJSON emits the original object so no field is lost in passthrough.
func (c DebugConfiguration) MarshalJSON() ([]byte, error) {
	if len(c.Raw) > 0 {
		return c.Raw, nil
	}
	type alias DebugConfiguration
	return json.Marshal(alias(c))
}

// Get returns the value at a gjson path inside the raw configuration.
func (c *DebugConfiguration) Get(path string) gjson.Result {
	return gjson.GetBytes(c.Raw, path)
}

// Type returns the debugger type, e.g. "go", "debugpy", "cppdbg".
func (c *DebugConfiguration) Type() string {
	return c.Get("type").String()
}

// Request returns "launch" or "attach".
func (c *DebugConfiguration) Request() string {
	return c.Get("request").String()
}

// IsAttachRequest returns true if this is an attach configuration.
func (c *DebugConfiguration) IsAttachRequest() bool {
	return c.Request() == "attach"
}

// Map decodes the raw configuration into a generic map.
func (c *DebugConfiguration) Map() (map[string]interface{}, error) {
	m := make(map[string]interface{})
	if len(c.Raw) == 0 {
		m["name"] = c.Name
		if c.PreLaunchTask != "" {
			m["preLaunchTask"] = c.PreLaunchTask
		}
		return m, nil
	}
	if err := json.Unmarshal(c.Raw, &m); err != nil {
		return nil, fmt.Errorf("failed to decode configuration %q: %w", c.Name, err)
	}
	return m, nil
}

// TypeToLanguage maps VS Code debug types to source languages.
var TypeToLanguage = map[string]types.Language{
	"python":   types.LanguagePython,
	"debugpy":  types.LanguagePython,
	"go":       types.LanguageGo,
	"lldb":     types.LanguageC,
	"lldb-dap": types.LanguageC,
	"codelldb": types.LanguageC,
	"gdb":      types.LanguageC,
	"cppdbg":   types.LanguageCpp,
	"c":        types.LanguageC,
	"cpp":      types.LanguageCpp,
	"rust":     types.LanguageRust,
}

// Language returns the source language for this configuration's type.
func (c *DebugConfiguration) Language() types.Language {
	if lang, ok := TypeToLanguage[c.Type()]; ok {
		return lang
	}
	return types.Language(c.Type())
}

// Debugger returns the debug adapter that serves this configuration,
// or "" when the type has no adapter.
func (c *DebugConfiguration) Debugger() types.Debugger {
	switch c.Type() {
	case "go":
		return types.DebuggerDelve
	case "python", "debugpy":
		return types.DebuggerDebugpy
	case "lldb", "lldb-dap", "codelldb", "c", "cpp", "rust":
		return types.DebuggerLLDB
	case "gdb":
		return types.DebuggerGDB
	case "cppdbg":
		// cppdbg picks its backend from MIMode, GDB by default
		if c.Get("MIMode").String() == "lldb" {
			return types.DebuggerLLDB
		}
		return types.DebuggerGDB
	}
	return ""
}
