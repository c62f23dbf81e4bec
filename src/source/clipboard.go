package source

import (
	"context"

	"instant-copy/src/selection"
)

const (
	TagClipboard      = "clipboard"
	TagClipboardWatch = "clipboard-watch"
	TagPrimary        = "primary"
)

// ClipboardReader is the read half of the clipboard sink.
type ClipboardReader interface {
	Read() (string, bool)
}

// NewClipboardSource polls the system clipboard. Content that does not look like a
// hand-made selection, or that the engine itself just committed, reads as nothing.
func NewClipboardSource(r ClipboardReader) *Poller {
	own := &ownWrites{}
	p := NewPoller(TagClipboard, func(ctx context.Context) (string, error) {
		text, ok := r.Read()
		if !ok {
			return "", nil
		}
		text = own.filter(text)
		if !selection.LikelyUserSelection(text) {
			return "", nil
		}
		return text, nil
	})
	p.onCommit = own.mark
	return p
}
