// Package engine runs one detection session: it pulls ticks from an event source,
// feeds them through the debouncer, and hands commits to the clipboard sink and the
// notifier. Ticks are processed one at a time on a single goroutine, in the order
// the source delivers them.
package engine

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"instant-copy/src/debounce"
	"instant-copy/src/logutil"
	"instant-copy/src/selection"
	"instant-copy/src/source"
)

var (
	ErrAlreadyRunning = errors.New("engine already running")
	ErrNotRunning     = errors.New("engine not running")
)

// Sink receives committed text.
type Sink interface {
	Write(text string) error
}

// Notifier is told about successful commits. Its errors are logged only.
type Notifier interface {
	Notify(text string) error
}

// CommitFunc observes commits after they reached the sink.
type CommitFunc func(ev debounce.CommitEvent)

type Options struct {
	// Name prefixes log lines, e.g. "foreground" or "background".
	Name     string
	Source   source.EventSource
	Sink     Sink
	Notifier Notifier
	// Now stamps commits; defaults to time.Now.
	Now      func() time.Time
	OnCommit []CommitFunc
}

// Engine owns exactly one DetectorState. Independent engines share nothing.
type Engine struct {
	name     string
	source   source.EventSource
	sink     Sink
	notifier Notifier
	now      func() time.Time
	onCommit []CommitFunc

	// lifecycle serializes Start and Stop, including Stop's wait for the goroutine.
	lifecycle sync.Mutex

	mu        sync.Mutex
	debouncer *debounce.Debouncer
	cfg       debounce.Config
	staged    *debounce.Config
	cancel    context.CancelFunc
	done      chan struct{}

	commits atomic.Uint64
}

// New builds a stopped engine with the default detector configuration.
func New(opts Options) *Engine {
	name := opts.Name
	if name == "" {
		name = "engine"
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	cfg := debounce.DefaultConfig()
	return &Engine{
		name:      name,
		source:    opts.Source,
		sink:      opts.Sink,
		notifier:  opts.Notifier,
		now:       now,
		onCommit:  opts.OnCommit,
		cfg:       cfg,
		debouncer: debounce.New(cfg).WithClock(now),
	}
}

// Name returns the log prefix.
func (e *Engine) Name() string { return e.name }

// Start validates cfg and begins a session bounded by ctx. It returns a
// *debounce.ConfigError for invalid settings and ErrAlreadyRunning if a session
// is active.
func (e *Engine) Start(ctx context.Context, cfg debounce.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.runningLocked() {
		return ErrAlreadyRunning
	}

	e.cfg = cfg
	e.staged = nil
	e.debouncer = debounce.New(cfg).WithClock(e.now)

	sessionCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done
	go e.run(sessionCtx, done)

	log.Printf("%s: detection started (min length %d, confirmations %d, interval %s)",
		e.name, cfg.MinLength, cfg.RequiredConfirmations, cfg.PollInterval)
	return nil
}

// Stop ends the session and resets the detector to Idle. It waits for an in-flight
// tick to finish and is safe to call repeatedly. A concurrent Start blocks until
// Stop returns. It must not be called from an OnCommit callback.
func (e *Engine) Stop() {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
		log.Printf("%s: detection stopped", e.name)
	}

	e.mu.Lock()
	e.debouncer.Reset()
	e.staged = nil
	e.mu.Unlock()
}

// IsRunning reports whether a session is active. A session whose parent context was
// cancelled counts as stopped.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runningLocked()
}

func (e *Engine) runningLocked() bool {
	if e.done == nil {
		return false
	}
	select {
	case <-e.done:
		return false
	default:
		return true
	}
}

// UpdateConfig validates cfg and applies it at the next tick boundary. The pending
// candidate and its count are kept. On a stopped engine the value is only stored.
func (e *Engine) UpdateConfig(cfg debounce.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.runningLocked() {
		e.staged = &cfg
		return nil
	}
	e.cfg = cfg
	return nil
}

// Config returns the configuration in force (staged updates not yet applied are
// not included).
func (e *Engine) Config() debounce.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Refresh asks the source to probe now instead of waiting out the interval.
func (e *Engine) Refresh() error {
	if !e.IsRunning() {
		return ErrNotRunning
	}
	if n, ok := e.source.(source.Nudger); ok {
		n.Nudge()
	}
	return nil
}

// Snapshot returns the detector state.
func (e *Engine) Snapshot() debounce.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.debouncer.Snapshot()
}

// Commits counts selections successfully written to the sink.
func (e *Engine) Commits() uint64 { return e.commits.Load() }

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	unavailable := false
	for {
		interval := e.applyStaged()

		obs, err := e.source.Next(ctx, interval)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if !unavailable {
				log.Printf("%s: %v; treating as no selection", e.name, err)
			}
			unavailable = true
			obs = nil
		} else {
			unavailable = false
		}

		e.tick(ctx, obs)
	}
}

// applyStaged installs a pending UpdateConfig and returns the poll interval to use.
func (e *Engine) applyStaged() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.staged != nil {
		e.cfg = *e.staged
		e.staged = nil
		e.debouncer.SetConfig(e.cfg)
		log.Printf("%s: config updated (min length %d, confirmations %d, interval %s)",
			e.name, e.cfg.MinLength, e.cfg.RequiredConfirmations, e.cfg.PollInterval)
	}
	return e.cfg.PollInterval
}

func (e *Engine) tick(ctx context.Context, obs *selection.Observation) {
	e.mu.Lock()
	if ctx.Err() != nil {
		// Stop won the race; drop this tick.
		e.mu.Unlock()
		return
	}
	ev, ok := e.debouncer.Observe(obs)
	e.mu.Unlock()

	if ok {
		e.commit(ev)
	}
}

func (e *Engine) commit(ev debounce.CommitEvent) {
	log.Printf("%s: committing %d chars from %s: \"%s\"",
		e.name, selection.Length(ev.Text), ev.SourceTag, logutil.Preview(ev.Text))

	if err := e.sink.Write(ev.Text); err != nil {
		log.Printf("%s: %v", e.name, err)
		return
	}
	e.commits.Add(1)

	if ca, ok := e.source.(source.CommitAware); ok {
		ca.Committed(ev.Text)
	}
	if e.notifier != nil {
		if err := e.notifier.Notify(ev.Text); err != nil {
			log.Printf("%s: notify failed: %v", e.name, err)
		}
	}
	for _, fn := range e.onCommit {
		fn(ev)
	}
}
