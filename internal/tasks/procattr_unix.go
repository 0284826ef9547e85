//go:build !windows

package tasks

import (
	"errors"
	"os"
	osexec "os/exec"
	"syscall"
)

// setProcAttr puts the task in its own process group so cancellation
// reaches the compiler processes a build script spawns.
func setProcAttr(cmd *osexec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup kills the task and its entire process group.
func killProcessGroup(cmd *osexec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
		return err
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
