// Package debounce turns a noisy stream of selection observations into single
// commit decisions. A candidate must be observed RequiredConfirmations times in a
// row, and be at least MinLength runes long, before it is committed.
//
// A Debouncer is not safe for concurrent use; it is owned by one engine goroutine.
package debounce

import (
	"time"

	"instant-copy/src/selection"
)

// State is the externally visible phase of the state machine. The Committed phase is
// transient and never observed: a commit returns the machine to Idle in the same step.
type State int

const (
	StateIdle State = iota
	StatePending
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	default:
		return "unknown"
	}
}

// CommitEvent is produced exactly once per confirmed selection.
type CommitEvent struct {
	Text        string
	SourceTag   string
	CommittedAt time.Time
}

// Snapshot is a read-only copy of the detector state.
type Snapshot struct {
	State    State
	LastText string
	Count    int
	Active   bool
}

// Debouncer is the confirmation state machine.
type Debouncer struct {
	cfg   Config
	text  string
	count int
	now   func() time.Time
}

// New creates an idle debouncer. cfg is assumed valid; see Config.Validate.
func New(cfg Config) *Debouncer {
	return &Debouncer{cfg: cfg, now: time.Now}
}

// WithClock replaces the clock used to stamp commits.
func (d *Debouncer) WithClock(now func() time.Time) *Debouncer {
	if now != nil {
		d.now = now
	}
	return d
}

// Config returns the thresholds currently in force.
func (d *Debouncer) Config() Config { return d.cfg }

// SetConfig swaps thresholds without touching the pending candidate. The new values
// are used from the next Observe call.
func (d *Debouncer) SetConfig(cfg Config) { d.cfg = cfg }

// Observe feeds one tick. A nil observation or one whose text normalizes to nothing
// drops any candidate. It returns the commit, if this tick produced one.
func (d *Debouncer) Observe(obs *selection.Observation) (CommitEvent, bool) {
	var (
		text string
		ok   bool
	)
	if obs != nil {
		text, ok = selection.Normalize(obs.Text)
	}
	if !ok {
		d.Reset()
		return CommitEvent{}, false
	}

	if d.count > 0 && text == d.text {
		d.count++
	} else {
		d.text = text
		d.count = 1
	}

	if d.count < d.cfg.RequiredConfirmations || selection.Length(d.text) < d.cfg.MinLength {
		return CommitEvent{}, false
	}

	ev := CommitEvent{Text: d.text, SourceTag: obs.SourceTag, CommittedAt: d.now()}
	d.Reset()
	return ev, true
}

// Reset returns the machine to Idle.
func (d *Debouncer) Reset() {
	d.text = ""
	d.count = 0
}

func (d *Debouncer) Snapshot() Snapshot {
	s := Snapshot{LastText: d.text, Count: d.count, Active: d.count > 0}
	if s.Active {
		s.State = StatePending
	}
	return s
}
