package source

import "context"

// newPrimaryPoller wraps a PRIMARY probe. A highlight stays readable after the engine
// copied it, so the committed text reads as nothing until the highlight changes.
func newPrimaryPoller(probe ProbeFunc) *Poller {
	own := &ownWrites{}
	p := NewPoller(TagPrimary, func(ctx context.Context) (string, error) {
		text, err := probe(ctx)
		if err != nil {
			return "", err
		}
		return own.filter(text), nil
	})
	p.onCommit = own.mark
	return p
}
