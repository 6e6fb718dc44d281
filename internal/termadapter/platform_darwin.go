//go:build darwin

package termadapter

// platformDefault picks iTerm on macOS hosts.
func platformDefault(iterm, kitty, winterm Adapter) Adapter {
	return iterm
}
