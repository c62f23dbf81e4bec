//go:build freebsd || linux || netbsd || openbsd || solaris || dragonfly

package source

import (
	"context"
	"sync"

	atclip "github.com/atotto/clipboard"
)

var primaryOnce sync.Once

// NewPrimarySelection polls the PRIMARY selection (whatever text is highlighted right
// now) through xsel/xclip/wl-paste.
func NewPrimarySelection() *Poller {
	primaryOnce.Do(func() { atclip.Primary = true })
	return newPrimaryPoller(func(ctx context.Context) (string, error) {
		return atclip.ReadAll()
	})
}
