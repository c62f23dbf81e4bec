// Package source adapts platform selection signals into the tick stream consumed by
// the engine. Poll-based and push-based platforms are both modeled as an EventSource.
package source

import (
	"context"
	"errors"
	"time"

	"instant-copy/src/selection"
)

// ErrObservationUnavailable means the platform could not say what is selected right
// now. The engine treats it as a nil tick.
var ErrObservationUnavailable = errors.New("observation unavailable")

// EventSource produces one tick per call. A nil observation with a nil error means
// nothing is selected. Implementations must deliver observations in arrival order.
type EventSource interface {
	Next(ctx context.Context, timeout time.Duration) (*selection.Observation, error)
}

// Nudger is implemented by sources that can be asked to probe immediately.
type Nudger interface {
	Nudge()
}

// CommitAware is implemented by sources that need to know what the engine just
// wrote, so they can avoid reporting it back as a fresh selection.
type CommitAware interface {
	Committed(text string)
}

// ProbeFunc reads the current selection. It returns "" when nothing is selected.
type ProbeFunc func(ctx context.Context) (string, error)
