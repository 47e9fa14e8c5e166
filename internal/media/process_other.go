//go:build !unix

package media

import "os/exec"

func configureProcess(cmd *exec.Cmd) {
	cmd.WaitDelay = processWaitDelay
}
