//go:build !windows

package shell

import (
	"os/exec"
	"syscall"
)

// isolateProcessGroup starts the command in its own process group and makes
// cancellation kill the whole group, so a shell's children cannot outlive
// the timeout while holding the output pipes open.
func isolateProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
