//go:build windows

package dap

import (
	"errors"
	"os"
	"os/exec"
)

// killProcessGroup kills the adapter process. Windows has no Unix-style
// process groups.
func killProcessGroup(_ int, cmd *exec.Cmd) error {
	if cmd != nil && cmd.Process != nil {
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return err
		}
	}
	return nil
}
