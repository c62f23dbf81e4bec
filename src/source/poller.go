package source

import (
	"context"
	"fmt"
	"time"

	"instant-copy/src/selection"
)

// Poller turns a probe function into an EventSource. Each Next call waits one
// interval (or until nudged) and then probes once.
type Poller struct {
	tag      string
	probe    ProbeFunc
	now      func() time.Time
	nudge    chan struct{}
	onCommit func(text string)
}

// NewPoller wraps probe; observations are tagged with tag.
func NewPoller(tag string, probe ProbeFunc) *Poller {
	return &Poller{
		tag:   tag,
		probe: probe,
		now:   time.Now,
		nudge: make(chan struct{}, 1),
	}
}

// WithClock replaces the clock used to stamp observations.
func (p *Poller) WithClock(now func() time.Time) *Poller {
	if now != nil {
		p.now = now
	}
	return p
}

// Tag returns the source tag stamped on observations.
func (p *Poller) Tag() string { return p.tag }

// Next blocks for interval, a nudge, or ctx cancellation, then probes.
func (p *Poller) Next(ctx context.Context, interval time.Duration) (*selection.Observation, error) {
	timer := time.NewTimer(interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.nudge:
	case <-timer.C:
	}

	text, err := p.probe(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrObservationUnavailable, p.tag, err)
	}
	if text == "" {
		return nil, nil
	}
	return selection.New(text, p.tag, p.now()), nil
}

// Nudge makes a pending or the next Next call probe immediately. Extra nudges
// collapse into one.
func (p *Poller) Nudge() {
	select {
	case p.nudge <- struct{}{}:
	default:
	}
}

// Committed forwards the engine's commit to the probe's suppression hook, if any.
func (p *Poller) Committed(text string) {
	if p.onCommit != nil {
		p.onCommit(text)
	}
}
