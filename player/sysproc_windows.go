//go:build windows

package player

import (
	"os/exec"
	"syscall"
)

// sysProcAttr leaves the process in the caller's group; Windows has no setpgid.
func sysProcAttr() *syscall.SysProcAttr {
	return nil
}

func killProcess(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
