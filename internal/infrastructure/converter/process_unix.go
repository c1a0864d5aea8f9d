//go:build !windows

package converter

import (
	"os/exec"
	"syscall"
)

// isolateProcessGroup starts cmd in its own process group and makes
// cancellation kill the whole group, so children of a shell wrapper
// cannot keep the output pipes open.
func isolateProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
}
