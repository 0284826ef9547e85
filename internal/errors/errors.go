// Package errors provides structured error types for launchfile.
// Every failure of the build-then-debug workflow is represented by an *Error
// carrying a machine-readable code, a kind that decides whether the workflow
// can continue, and a hint shown to the user next to the message.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a category of error for programmatic handling
type ErrorCode string

const (
	// Environment errors
	CodeNoWorkspace      ErrorCode = "NO_WORKSPACE"
	CodeNoActiveDocument ErrorCode = "NO_ACTIVE_DOCUMENT"
	CodeUnknownFileType  ErrorCode = "UNKNOWN_FILE_TYPE"

	// Missing-resource errors
	CodeLaunchConfigNotFound ErrorCode = "LAUNCH_CONFIG_NOT_FOUND"
	CodeTasksConfigNotFound  ErrorCode = "TASKS_CONFIG_NOT_FOUND"
	CodeConfigInvalid        ErrorCode = "CONFIG_INVALID"
	CodeSettingsInvalid      ErrorCode = "SETTINGS_INVALID"

	// Resolution-miss errors
	CodeNoDebugConfig    ErrorCode = "NO_DEBUG_CONFIG"
	CodeNoBuildStep      ErrorCode = "NO_BUILD_STEP"
	CodeConfigNotFound   ErrorCode = "CONFIG_NOT_FOUND"
	CodeTaskNotAvailable ErrorCode = "TASK_NOT_AVAILABLE"

	// Link-miss errors
	CodeBuildStepLinkMissing ErrorCode = "BUILD_STEP_LINK_MISSING"

	// Engine errors
	CodeTaskStartFailed     ErrorCode = "TASK_START_FAILED"
	CodeBuildFailed         ErrorCode = "BUILD_FAILED"
	CodeAdapterNotSupported ErrorCode = "ADAPTER_NOT_SUPPORTED"
	CodeAdapterSpawnFailed  ErrorCode = "ADAPTER_SPAWN_FAILED"
	CodeDAPInitFailed       ErrorCode = "DAP_INIT_FAILED"
	CodeDAPLaunchFailed     ErrorCode = "DAP_LAUNCH_FAILED"
	CodeSessionNotFound     ErrorCode = "SESSION_NOT_FOUND"
	CodeSessionLimitReached ErrorCode = "SESSION_LIMIT_REACHED"
)

// Kind groups error codes by how the workflow treats them.
type Kind string

const (
	KindEnvironment     Kind = "environment"
	KindMissingResource Kind = "missing_resource"
	KindResolutionMiss  Kind = "resolution_miss"
	KindLinkMiss        Kind = "link_miss"
	KindEngine          Kind = "engine"
	KindUnknown         Kind = "unknown"
)

// Error is a structured error type that includes a hint on how to fix it.
type Error struct {
	// Code is a machine-readable error category
	Code ErrorCode `json:"code"`

	// Kind decides whether the workflow aborts
	Kind Kind `json:"kind"`

	// Message is the user-visible description of what went wrong
	Message string `json:"message"`

	// Hint provides actionable guidance on how to fix the error
	Hint string `json:"hint,omitempty"`

	// Details contains additional context (file-type tag, path, names)
	Details map[string]interface{} `json:"details,omitempty"`

	// Cause is the underlying error, if any
	Cause error `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Hint != "" {
		sb.WriteString(" | Hint: ")
		sb.WriteString(e.Hint)
	}

	return sb.String()
}

// Unwrap returns the underlying error for error chaining
func (e *Error) Unwrap() error {
	return e.Cause
}

// Fatal reports whether the error aborts the remainder of the workflow.
// Only link misses are degraded into a debug run without a build step.
func (e *Error) Fatal() bool {
	return e.Kind != KindLinkMiss
}

// WithDetails adds details to the error
func (e *Error) WithDetails(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying cause
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// --- Environment Errors ---

// NoWorkspace creates an error for when no workspace folder is available
func NoWorkspace() *Error {
	return &Error{
		Code:    CodeNoWorkspace,
		Kind:    KindEnvironment,
		Message: "no workspace folder is open",
		Hint:    "Run from inside a folder that contains a .vscode directory, or pass --workspace.",
	}
}

// NoActiveDocument creates an error for when there is no file to derive a file-type tag from
func NoActiveDocument() *Error {
	return &Error{
		Code:    CodeNoActiveDocument,
		Kind:    KindEnvironment,
		Message: "no file open",
		Hint:    "Pass the file you are editing, or a language identifier with --language.",
	}
}

// UnknownFileType creates an error for a file whose type cannot be derived
func UnknownFileType(path string) *Error {
	err := &Error{
		Code:    CodeUnknownFileType,
		Kind:    KindEnvironment,
		Message: "cannot determine the file type",
		Hint:    "Pass a language identifier with --language, or use a file with a known extension.",
	}
	if path != "" {
		err.Message = fmt.Sprintf("cannot determine the file type of %s", path)
		err.WithDetails("file", path)
	}
	return err
}

// --- Missing-Resource Errors ---

// LaunchConfigNotFound creates an error for a missing launch.json
func LaunchConfigNotFound(path string) *Error {
	return &Error{
		Code:    CodeLaunchConfigNotFound,
		Kind:    KindMissingResource,
		Message: fmt.Sprintf("no launch.json file found at %s", path),
		Hint:    "Create .vscode/launch.json with a configuration named <language>..._Debug.",
		Details: map[string]interface{}{
			"path": path,
		},
	}
}

// TasksConfigNotFound creates an error for a missing tasks.json
func TasksConfigNotFound(path string) *Error {
	return &Error{
		Code:    CodeTasksConfigNotFound,
		Kind:    KindMissingResource,
		Message: fmt.Sprintf("no tasks.json file found at %s", path),
		Hint:    "Create .vscode/tasks.json with the task referenced by preLaunchTask.",
		Details: map[string]interface{}{
			"path": path,
		},
	}
}

// ConfigInvalid creates an error for a store that exists but cannot be read
func ConfigInvalid(path string, err error) *Error {
	return &Error{
		Code:    CodeConfigInvalid,
		Kind:    KindMissingResource,
		Message: fmt.Sprintf("cannot read %s: %v", path, err),
		Hint:    "Comments and trailing commas are accepted; check for unbalanced brackets or quotes.",
		Cause:   err,
		Details: map[string]interface{}{
			"path": path,
		},
	}
}

// SettingsInvalid creates an error for an unreadable settings file
func SettingsInvalid(path string, err error) *Error {
	return &Error{
		Code:    CodeSettingsInvalid,
		Kind:    KindMissingResource,
		Message: fmt.Sprintf("cannot load settings from %s: %v", path, err),
		Hint:    "Settings are JSON or YAML with keys such as strategy, debugSuffix, abortOnBuildFailure, shell and adapters.",
		Cause:   err,
		Details: map[string]interface{}{
			"path": path,
		},
	}
}

// --- Resolution-Miss Errors ---

// NoDebugConfig creates an error when no debug configuration matches the file-type tag
func NoDebugConfig(fileType, suffix string) *Error {
	return &Error{
		Code:    CodeNoDebugConfig,
		Kind:    KindResolutionMiss,
		Message: fmt.Sprintf("no suitable debug configuration found for %s", fileType),
		Hint:    fmt.Sprintf("Name a launch.json configuration so it starts with %q and ends with %q.", fileType, suffix),
		Details: map[string]interface{}{
			"fileType": fileType,
			"suffix":   suffix,
		},
	}
}

// NoBuildStep creates an error when no build task matches the file-type tag
func NoBuildStep(fileType, suffix string) *Error {
	return &Error{
		Code:    CodeNoBuildStep,
		Kind:    KindResolutionMiss,
		Message: fmt.Sprintf("no suitable build task found for %s", fileType),
		Hint:    fmt.Sprintf("Label a tasks.json task so it starts with %q and ends with %q.", fileType, suffix),
		Details: map[string]interface{}{
			"fileType": fileType,
			"suffix":   suffix,
		},
	}
}

// ConfigNotFound creates an error when the resolved configuration is gone at launch time
func ConfigNotFound(fileType, configName string) *Error {
	return &Error{
		Code:    CodeConfigNotFound,
		Kind:    KindResolutionMiss,
		Message: fmt.Sprintf("no suitable configuration found for %s", fileType),
		Hint:    fmt.Sprintf("Configuration %q was resolved but is no longer in launch.json.", configName),
		Details: map[string]interface{}{
			"fileType":   fileType,
			"configName": configName,
		},
	}
}

// TaskNotAvailable creates an error when the task engine does not know a resolved task
func TaskNotAvailable(label string) *Error {
	return &Error{
		Code:    CodeTaskNotAvailable,
		Kind:    KindResolutionMiss,
		Message: fmt.Sprintf("build task %q is not available", label),
		Hint:    "The task was resolved from tasks.json but the task engine could not load it.",
		Details: map[string]interface{}{
			"label": label,
		},
	}
}

// --- Link-Miss Errors ---

// BuildStepLinkMissing creates an error when preLaunchTask names a task that does not exist
func BuildStepLinkMissing(configName, taskLabel string) *Error {
	return &Error{
		Code:    CodeBuildStepLinkMissing,
		Kind:    KindLinkMiss,
		Message: fmt.Sprintf("configuration %q references unknown task %q", configName, taskLabel),
		Hint:    "Debugging continues without a build step.",
		Details: map[string]interface{}{
			"configName": configName,
			"task":       taskLabel,
		},
	}
}

// --- Engine Errors ---

// TaskStartFailed creates an error when a build task process cannot be started
func TaskStartFailed(label string, err error) *Error {
	return &Error{
		Code:    CodeTaskStartFailed,
		Kind:    KindEngine,
		Message: fmt.Sprintf("failed to start task %q: %v", label, err),
		Hint:    "Check the task's command and options.cwd in tasks.json.",
		Cause:   err,
		Details: map[string]interface{}{
			"label": label,
		},
	}
}

// BuildFailed creates an error for a build task that ended with a non-zero exit code
func BuildFailed(label string, exitCode int) *Error {
	return &Error{
		Code:    CodeBuildFailed,
		Kind:    KindEngine,
		Message: fmt.Sprintf("task %q exited with code %d", label, exitCode),
		Hint:    "Fix the build errors, or set abortOnBuildFailure to false to debug anyway.",
		Details: map[string]interface{}{
			"label":    label,
			"exitCode": exitCode,
		},
	}
}

// AdapterNotSupported creates an error for configuration types without a debug adapter
func AdapterNotSupported(configType string, supported []string) *Error {
	return &Error{
		Code:    CodeAdapterNotSupported,
		Kind:    KindEngine,
		Message: fmt.Sprintf("no debug adapter available for configuration type: %s", configType),
		Hint:    fmt.Sprintf("Supported languages are: %s.", strings.Join(supported, ", ")),
		Details: map[string]interface{}{
			"type":               configType,
			"supportedLanguages": supported,
		},
	}
}

// AdapterSpawnFailed creates an error when adapter spawn fails
func AdapterSpawnFailed(language string, err error) *Error {
	return &Error{
		Code:    CodeAdapterSpawnFailed,
		Kind:    KindEngine,
		Message: fmt.Sprintf("failed to spawn debug adapter for %s: %v", language, err),
		Hint:    "Ensure the debug adapter is installed: dlv for Go, debugpy for Python, lldb-dap or gdb 14+ for native code.",
		Cause:   err,
		Details: map[string]interface{}{
			"language": language,
		},
	}
}

// DAPInitFailed creates an error for DAP initialization failures
func DAPInitFailed(err error) *Error {
	return &Error{
		Code:    CodeDAPInitFailed,
		Kind:    KindEngine,
		Message: fmt.Sprintf("debug adapter initialization failed: %v", err),
		Hint:    "The debug adapter may be incompatible or crashed during startup.",
		Cause:   err,
	}
}

// DAPLaunchFailed creates an error for launch or attach failures
func DAPLaunchFailed(configName string, err error) *Error {
	return &Error{
		Code:    CodeDAPLaunchFailed,
		Kind:    KindEngine,
		Message: fmt.Sprintf("failed to start debugging %q: %v", configName, err),
		Hint:    "Check that the configuration's program path exists and the build produced it.",
		Cause:   err,
		Details: map[string]interface{}{
			"configName": configName,
		},
	}
}

// SessionNotFound creates an error for when a session ID doesn't exist
func SessionNotFound(sessionID string) *Error {
	return &Error{
		Code:    CodeSessionNotFound,
		Kind:    KindEngine,
		Message: fmt.Sprintf("session '%s' not found", sessionID),
		Hint:    "Use debug_list_sessions to see active sessions.",
		Details: map[string]interface{}{
			"sessionId": sessionID,
		},
	}
}

// SessionLimitReached creates an error when max sessions is reached
func SessionLimitReached(maxSessions int) *Error {
	return &Error{
		Code:    CodeSessionLimitReached,
		Kind:    KindEngine,
		Message: fmt.Sprintf("maximum number of sessions (%d) reached", maxSessions),
		Hint:    "Use debug_disconnect to terminate an existing session before starting a new one.",
		Details: map[string]interface{}{
			"maxSessions": maxSessions,
		},
	}
}

// --- Helpers ---

// Wrap wraps a generic error with context
func Wrap(code ErrorCode, kind Kind, message string, err error) *Error {
	return &Error{
		Code:    code,
		Kind:    kind,
		Message: message,
		Cause:   err,
	}
}

// FromError creates an *Error from a generic error, preserving any existing structure
func FromError(err error) *Error {
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return &Error{
		Code:    "UNKNOWN_ERROR",
		Kind:    KindUnknown,
		Message: err.Error(),
		Cause:   err,
	}
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// KindOf returns the kind of err, or KindUnknown for unstructured errors.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
