package source

import (
	"context"
	"log"
	"sync"
	"time"

	"instant-copy/src/selection"
)

const pushQueueSize = 64

// Push is an EventSource for platforms that deliver selection changes as callbacks.
// Published texts are handed out in arrival order. With hold enabled, a Next call
// that times out repeats the last delivered text, so a selection that simply stays
// put keeps being confirmed once per interval.
type Push struct {
	tag   string
	hold  bool
	now   func() time.Time
	queue chan string
	own   ownWrites

	mu   sync.Mutex
	held string
}

// NewPush builds a push source; hold repeats the last text on timeouts.
func NewPush(tag string, hold bool) *Push {
	return &Push{
		tag:   tag,
		hold:  hold,
		now:   time.Now,
		queue: make(chan string, pushQueueSize),
	}
}

// WithClock replaces the clock used to stamp observations.
func (p *Push) WithClock(now func() time.Time) *Push {
	if now != nil {
		p.now = now
	}
	return p
}

// Publish records a selection change. It never blocks; when the queue is full the
// change is dropped and logged.
func (p *Push) Publish(text string) {
	select {
	case p.queue <- text:
	default:
		log.Printf("source: %s queue full, dropping selection change", p.tag)
	}
}

// Clear records that nothing is selected any more.
func (p *Push) Clear() { p.Publish("") }

// Committed marks text as written by the engine; it reads as nothing until the
// platform reports different content.
func (p *Push) Committed(text string) { p.own.mark(text) }

func (p *Push) Next(ctx context.Context, timeout time.Duration) (*selection.Observation, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case text := <-p.queue:
		if p.hold {
			p.mu.Lock()
			p.held = text
			p.mu.Unlock()
		}
		return p.observe(text), nil
	case <-timer.C:
		if !p.hold {
			return nil, nil
		}
		p.mu.Lock()
		text := p.held
		p.mu.Unlock()
		return p.observe(text), nil
	}
}

func (p *Push) observe(text string) *selection.Observation {
	text = p.own.filter(text)
	if text == "" {
		return nil
	}
	return selection.New(text, p.tag, p.now())
}
