package source

import (
	"sync"

	"instant-copy/src/selection"
)

// ownWrites remembers the last text the engine committed so a source reading the
// clipboard does not hand it straight back. The mark clears as soon as different
// content shows up.
type ownWrites struct {
	mu   sync.Mutex
	last string
}

func (o *ownWrites) mark(text string) {
	norm, _ := selection.Normalize(text)
	o.mu.Lock()
	o.last = norm
	o.mu.Unlock()
}

// filter returns "" for the engine's own write and text otherwise.
func (o *ownWrites) filter(text string) string {
	norm, ok := selection.Normalize(text)
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == "" {
		return text
	}
	if ok && norm == o.last {
		return ""
	}
	o.last = ""
	return text
}
