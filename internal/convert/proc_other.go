//go:build !unix

package convert

import "os/exec"

func killGroup(cmd *exec.Cmd) {}
