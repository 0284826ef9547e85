package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	err := NoDebugConfig("rs", "_Debug")
	assert.Equal(t, "no suitable debug configuration found for rs | Hint: "+err.Hint, err.Error())

	bare := &Error{Message: "only message"}
	assert.Equal(t, "only message", bare.Error())
}

func TestKinds(t *testing.T) {
	tests := []struct {
		err  *Error
		kind Kind
	}{
		{NoWorkspace(), KindEnvironment},
		{NoActiveDocument(), KindEnvironment},
		{UnknownFileType("/ws/Makefile"), KindEnvironment},
		{LaunchConfigNotFound("/ws/.vscode/launch.json"), KindMissingResource},
		{TasksConfigNotFound("/ws/.vscode/tasks.json"), KindMissingResource},
		{ConfigInvalid("/x", stderrors.New("bad")), KindMissingResource},
		{NoDebugConfig("cpp", "_Debug"), KindResolutionMiss},
		{NoBuildStep("cpp", "_Build"), KindResolutionMiss},
		{ConfigNotFound("cpp", "cpp_Debug"), KindResolutionMiss},
		{BuildStepLinkMissing("cpp_Debug", "build"), KindLinkMiss},
		{BuildFailed("cpp_Build", 2), KindEngine},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.err.Kind)
			assert.Equal(t, tt.kind != KindLinkMiss, tt.err.Fatal())
		})
	}
}

func TestMessagesInterpolate(t *testing.T) {
	assert.Equal(t, "no launch.json file found at /ws/.vscode/launch.json",
		LaunchConfigNotFound("/ws/.vscode/launch.json").Message)
	assert.Equal(t, "no suitable configuration found for py", ConfigNotFound("py", "py_Debug").Message)
	assert.Equal(t, "no file open", NoActiveDocument().Message)
	assert.Equal(t, "cannot determine the file type of /ws/Makefile", UnknownFileType("/ws/Makefile").Message)
	assert.Equal(t, "cannot determine the file type", UnknownFileType("").Message)
}

func TestUnwrapAndHelpers(t *testing.T) {
	cause := stderrors.New("permission denied")
	err := ConfigInvalid("/ws/.vscode/tasks.json", cause)
	wrapped := fmt.Errorf("resolve: %w", err)

	assert.True(t, stderrors.Is(wrapped, cause))
	assert.True(t, Is(wrapped, CodeConfigInvalid))
	assert.False(t, Is(wrapped, CodeNoWorkspace))
	assert.Equal(t, KindMissingResource, KindOf(wrapped))
	assert.Equal(t, KindUnknown, KindOf(cause))
	assert.False(t, Is(nil, CodeConfigInvalid))
}

func TestFromError(t *testing.T) {
	orig := NoWorkspace()
	assert.Same(t, orig, FromError(fmt.Errorf("ctx: %w", orig)))

	plain := FromError(stderrors.New("boom"))
	assert.Equal(t, KindUnknown, plain.Kind)
	assert.Equal(t, "boom", plain.Message)
	assert.True(t, plain.Fatal())
}

func TestWithDetails(t *testing.T) {
	err := NoWorkspace().WithDetails("cwd", "/tmp")
	require.NotNil(t, err.Details)
	assert.Equal(t, "/tmp", err.Details["cwd"])

	err = Wrap(CodeTaskStartFailed, KindEngine, "start failed", stderrors.New("x"))
	assert.Equal(t, "start failed", err.Message)
	assert.NotNil(t, err.Unwrap())
}
