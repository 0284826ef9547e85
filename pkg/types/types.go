// Package types defines shared data types used across launchfile.
//
// This package provides type definitions for:
//   - Language: source languages recognised from debug configuration types
//   - Debugger: debug adapters launchfile can spawn
//   - SessionStatus and SessionInfo: debug sessions started by the workflow
//   - PlanInfo and BuildInfo: what a workflow run resolved and executed
//
// These types are shared by the CLI and the MCP server so both report the
// same shapes.
package types

import "time"

// Language represents a source language
type Language string

const (
	LanguageGo     Language = "go"
	LanguagePython Language = "python"
	LanguageRust   Language = "rust"
	LanguageC      Language = "c"
	LanguageCpp    Language = "cpp"
)

// Debugger identifies a debug adapter implementation
type Debugger string

const (
	DebuggerDelve   Debugger = "delve"
	DebuggerDebugpy Debugger = "debugpy"
	DebuggerLLDB    Debugger = "lldb"
	DebuggerGDB     Debugger = "gdb"
)

// SessionStatus represents the status of a debug session
type SessionStatus string

const (
	SessionStatusInitializing SessionStatus = "initializing"
	SessionStatusRunning      SessionStatus = "running"
	SessionStatusTerminated   SessionStatus = "terminated"
)

// SessionInfo represents information about a debug session
type SessionInfo struct {
	SessionID  string        `json:"sessionId"`
	ConfigName string        `json:"configName"`
	Language   Language      `json:"language,omitempty"`
	Debugger   Debugger      `json:"debugger,omitempty"`
	Status     SessionStatus `json:"status"`
	PID        int           `json:"pid,omitempty"`
	Program    string        `json:"program,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// PlanInfo describes a resolved build-then-debug plan
type PlanInfo struct {
	FileType      string `json:"fileType"`
	Strategy      string `json:"strategy"`
	DebugConfigID string `json:"debugConfig"`
	BuildStepID   string `json:"buildTask,omitempty"`
}

// BuildInfo describes the build task execution of a workflow run
type BuildInfo struct {
	Label       string        `json:"label"`
	ExecutionID string        `json:"executionId,omitempty"`
	ExitCode    int           `json:"exitCode"`
	Skipped     bool          `json:"skipped,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
}

// RunResult is the outcome of one build-then-debug invocation
type RunResult struct {
	Plan    PlanInfo     `json:"plan"`
	Build   *BuildInfo   `json:"build,omitempty"`
	Session *SessionInfo `json:"session,omitempty"`
}
