//go:build unix

package convert

import (
	"os/exec"
	"syscall"
)

// killGroup runs the office process in its own process group and kills the
// whole group on cancel. The launcher forks soffice.bin, which would
// otherwise outlive it and hold the output pipe open.
func killGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
