//go:build !windows

package adapters

import (
	"os/exec"
	"syscall"
)

// setProcAttr starts the adapter in a new session so the session manager
// can kill its whole process tree.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
