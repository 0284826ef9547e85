//go:build windows

package adapters

import (
	"os/exec"
	"syscall"
)

// setProcAttr starts the adapter in its own process group.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
