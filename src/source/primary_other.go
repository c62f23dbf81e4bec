//go:build !(freebsd || linux || netbsd || openbsd || solaris || dragonfly)

package source

import (
	"context"
	"errors"
)

var errNoPrimary = errors.New("primary selection is not available on this platform")

// NewPrimarySelection returns a poller whose every probe fails: only X11/Wayland
// desktops expose a PRIMARY selection. Use the clipboard source instead.
func NewPrimarySelection() *Poller {
	return newPrimaryPoller(func(ctx context.Context) (string, error) {
		return "", errNoPrimary
	})
}
