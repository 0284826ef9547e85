// Package taskconfig reads VS Code tasks.json build task definitions.
package taskconfig

import (
	"encoding/json"
	"runtime"

	"github.com/tidwall/gjson"

	"github.com/ctagard/launchfile/internal/jsonc"
)

// TaskType identifies how a task command is run.
type TaskType string

const (
	// TaskTypeShell runs the command line through a shell.
	TaskTypeShell TaskType = "shell"
	// TaskTypeProcess runs the command directly.
	TaskTypeProcess TaskType = "process"
)

// TasksJSON represents a VS Code tasks.json file structure.
type TasksJSON struct {
	Version string           `json:"version"`
	Tasks   []TaskDefinition `json:"tasks"`
}

// TaskDefinition represents a task definition in tasks.json.
type TaskDefinition struct {
	// Label identifies the task; debug configurations link to it by exact label.
	Label string `json:"label"`

	Type    TaskType    `json:"type,omitempty"`
	Command string      `json:"command,omitempty"`
	Args    []string    `json:"args,omitempty"`
	Options TaskOptions `json:"options,omitempty"`

	// Raw is the complete task object as it appears in tasks.json.
	Raw json.RawMessage `json:"-"`
}

// TaskOptions contains task execution options.
type TaskOptions struct {
	Cwd   string            `json:"cwd,omitempty"`
	Env   map[string]string `json:"env,omitempty"`
	Shell *ShellOptions     `json:"shell,omitempty"`
}

// ShellOptions overrides the shell used for a shell task.
type ShellOptions struct {
	Executable string   `json:"executable,omitempty"`
	Args       []string `json:"args,omitempty"`
}

// platformKey is the tasks.json key holding per-OS overrides.
func platformKey() string {
	switch runtime.GOOS {
	case "darwin":
		return "osx"
	case "windows":
		return "windows"
	default:
		return "linux"
	}
}

// parseTask builds a TaskDefinition from a task object. Per-OS sections
// ("linux", "osx", "windows") override the top-level fields they set.
func parseTask(obj gjson.Result) TaskDefinition {
	td := TaskDefinition{
		Label: jsonc.String(obj, "label"),
		Raw:   []byte(obj.Raw),
	}
	applyExecFields(&td, obj)
	if override := obj.Get(platformKey()); override.IsObject() {
		applyExecFields(&td, override)
	}
	if td.Type == "" {
		td.Type = TaskTypeProcess
	}
	return td
}

func applyExecFields(td *TaskDefinition, obj gjson.Result) {
	if t := jsonc.String(obj, "type"); t != "" {
		td.Type = TaskType(t)
	}
	if cmd := stringValue(obj.Get("command")); cmd != "" {
		td.Command = cmd
	}
	if args := obj.Get("args"); args.IsArray() {
		td.Args = td.Args[:0:0]
		args.ForEach(func(_, a gjson.Result) bool {
			td.Args = append(td.Args, stringValue(a))
			return true
		})
	}
	opts := obj.Get("options")
	if !opts.IsObject() {
		return
	}
	if cwd := jsonc.String(opts, "cwd"); cwd != "" {
		td.Options.Cwd = cwd
	}
	if env := opts.Get("env"); env.IsObject() {
		if td.Options.Env == nil {
			td.Options.Env = make(map[string]string)
		}
		env.ForEach(func(k, v gjson.Result) bool {
			td.Options.Env[k.String()] = v.String()
			return true
		})
	}
	if sh := opts.Get("shell"); sh.IsObject() {
		so := &ShellOptions{Executable: jsonc.String(sh, "executable")}
		sh.Get("args").ForEach(func(_, a gjson.Result) bool {
			so.Args = append(so.Args, a.String())
			return true
		})
		td.Options.Shell = so
	}
}

// stringValue accepts both plain strings and the quoted form
// {"value": "...", "quoting": "..."} allowed for commands and args.
func stringValue(v gjson.Result) string {
	if v.IsObject() {
		return v.Get("value").String()
	}
	return v.String()
}
