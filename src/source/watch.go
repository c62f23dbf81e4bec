package source

import (
	"context"
	"log"

	"golang.design/x/clipboard"
)

// WatchClipboard forwards clipboard text changes into p until ctx is done. The
// clipboard package must already be initialized.
func WatchClipboard(ctx context.Context, p *Push) {
	changes := clipboard.Watch(ctx, clipboard.FmtText)
	go func() {
		for data := range changes {
			p.Publish(string(data))
		}
		log.Printf("source: clipboard watch stopped")
	}()
}

// NewClipboardWatch builds a held push source fed by clipboard change notifications.
func NewClipboardWatch(ctx context.Context) *Push {
	p := NewPush(TagClipboardWatch, true)
	WatchClipboard(ctx, p)
	return p
}
