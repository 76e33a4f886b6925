//go:build unix

package worker

import (
	"os/exec"
	"syscall"
)

// configureProcess puts the worker in its own process group so cancellation
// also reaches anything the interpreter spawned.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
