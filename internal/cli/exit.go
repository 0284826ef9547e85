package cli

import (
	"errors"
	"fmt"
	"io"
)

// Exit codes
const (
	ExitOK      = 0
	ExitFailure = 1
)

// reportedError wraps an error a notifier has already shown to the user.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

// HandleExitError prints err unless it was already reported and returns
// the exit code for it.
func HandleExitError(err error, stderr io.Writer) int {
	if err == nil {
		return ExitOK
	}
	var shown *reportedError
	if !errors.As(err, &shown) {
		fmt.Fprintln(stderr, "error:", err.Error())
	}
	return ExitFailure
}
