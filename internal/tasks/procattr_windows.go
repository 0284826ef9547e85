//go:build windows

package tasks

import (
	"errors"
	"os"
	osexec "os/exec"
	"syscall"
)

// setProcAttr starts the task in a new process group.
func setProcAttr(cmd *osexec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

// killProcessGroup kills the task process.
func killProcessGroup(cmd *osexec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
