//go:build windows

package termadapter

// platformDefault picks Windows Terminal on Windows hosts, matching the
// teacher's own target platform.
func platformDefault(iterm, kitty, winterm Adapter) Adapter {
	return winterm
}
