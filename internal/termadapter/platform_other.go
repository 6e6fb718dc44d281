//go:build !windows && !darwin

package termadapter

// platformDefault picks the Kitty-class adapter on everything else (Linux
// and BSD desktops, where kitty's remote-control protocol is the common
// terminal automation surface).
func platformDefault(iterm, kitty, winterm Adapter) Adapter {
	return kitty
}
