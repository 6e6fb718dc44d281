//go:build !windows

package termadapter

import (
	"os"
	"syscall"
)

// probeProcessAlive sends the null signal, the POSIX idiom for "does this
// PID exist and is it mine to probe".
func probeProcessAlive(pid int) (alive bool, ok bool) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false, false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true, true
	}
	if err == os.ErrProcessDone {
		return false, true
	}
	return false, false
}
