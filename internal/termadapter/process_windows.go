//go:build windows

package termadapter

import "golang.org/x/sys/windows"

// probeProcessAlive opens the process handle directly, the way the
// teacher's internal/instance/windows.go IsProcessRunning does before
// falling back to tasklist. ok is false when the open itself fails for a
// reason other than "no such process" (e.g. access denied), signaling the
// caller to fall back.
func probeProcessAlive(pid int) (alive bool, ok bool) {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		if err == windows.ERROR_INVALID_PARAMETER {
			return false, true
		}
		return false, false
	}
	defer windows.CloseHandle(h)

	var exitCode uint32
	if err := windows.GetExitCodeProcess(h, &exitCode); err != nil {
		return false, false
	}
	const stillActive = 259
	return exitCode == stillActive, true
}
