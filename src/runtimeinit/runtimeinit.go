package runtimeinit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"instant-copy/src/clipboard"
	"instant-copy/src/config"
	"instant-copy/src/control"
	"instant-copy/src/debounce"
	"instant-copy/src/engine"
	"instant-copy/src/notification"
	"instant-copy/src/source"
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)
	// InitClipboard defaults to clipboard.Init.
	InitClipboard func() error
}

func Bootstrap(opts Options) (*config.Config, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}

	initClipboard := opts.InitClipboard
	if initClipboard == nil {
		initClipboard = clipboard.Init
	}
	if err := initClipboard(); err != nil {
		return nil, fmt.Errorf("failed to initialize clipboard: %w", err)
	}

	return cfg, nil
}

// SourceFactory builds the event source named by a SOURCE setting.
type SourceFactory func(ctx context.Context, kind string) (source.EventSource, error)

// Deps lets callers replace the platform pieces. Zero values select the real ones.
type Deps struct {
	NewSource SourceFactory
	Sink      engine.Sink
	Notifier  notification.Notifier
}

// Runtime owns the foreground engine and the optional background engine. The two
// share the clipboard sink and the notifier but nothing else.
type Runtime struct {
	ctx        context.Context
	mu         sync.Mutex
	cfg        *config.Config
	foreground *engine.Engine
	background *engine.Engine
	sources    map[*engine.Engine]string
	dispatcher *notification.Dispatcher
}

// Build wires sources, sink and notifier into engines. Nothing starts until Start.
// ctx bounds every session and any watch-based source.
func Build(ctx context.Context, cfg *config.Config, deps Deps) (*Runtime, error) {
	sink := deps.Sink
	var reader source.ClipboardReader
	if sink == nil {
		s := clipboard.NewSink(clipboard.ParseWritePolicy(cfg.WritePolicy))
		sink, reader = s, s
	} else if r, ok := sink.(source.ClipboardReader); ok {
		reader = r
	}

	newSource := deps.NewSource
	if newSource == nil {
		newSource = defaultSources(reader)
	}

	notifier := deps.Notifier
	if notifier == nil {
		notifier = notification.New(cfg.Notify)
	}

	r := &Runtime{
		ctx:        ctx,
		cfg:        cfg,
		sources:    map[*engine.Engine]string{},
		dispatcher: notification.NewDispatcher(notifier),
	}

	fg, err := r.newEngine(ctx, "foreground", cfg.Source, newSource, sink)
	if err != nil {
		r.dispatcher.Close()
		return nil, err
	}
	r.foreground = fg

	if cfg.BackgroundSource != "" {
		bg, err := r.newEngine(ctx, "background", cfg.BackgroundSource, newSource, sink)
		if err != nil {
			r.dispatcher.Close()
			return nil, err
		}
		r.background = bg
	}
	return r, nil
}

func (r *Runtime) newEngine(ctx context.Context, name, kind string, newSource SourceFactory, sink engine.Sink) (*engine.Engine, error) {
	src, err := newSource(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("%s source %q: %w", name, kind, err)
	}
	e := engine.New(engine.Options{
		Name:     name,
		Source:   src,
		Sink:     sink,
		Notifier: r.dispatcher,
		OnCommit: []engine.CommitFunc{func(ev debounce.CommitEvent) {
			log.Printf("%s: selection copied to clipboard from %s", name, ev.SourceTag)
		}},
	})
	r.sources[e] = kind
	return e, nil
}

func defaultSources(reader source.ClipboardReader) SourceFactory {
	return func(ctx context.Context, kind string) (source.EventSource, error) {
		switch kind {
		case config.SourcePrimary:
			return source.NewPrimarySelection(), nil
		case config.SourceClipboard:
			if reader == nil {
				return nil, errors.New("clipboard source needs a readable sink")
			}
			return source.NewClipboardSource(reader), nil
		case config.SourceWatch:
			return source.NewClipboardWatch(ctx), nil
		default:
			return nil, fmt.Errorf("unknown source %q", kind)
		}
	}
}

// Engines returns the configured engines, foreground first.
func (r *Runtime) Engines() []*engine.Engine {
	if r.background == nil {
		return []*engine.Engine{r.foreground}
	}
	return []*engine.Engine{r.foreground, r.background}
}

func (r *Runtime) Foreground() *engine.Engine { return r.foreground }

// Background returns nil when no background source is configured.
func (r *Runtime) Background() *engine.Engine { return r.background }

// Start begins detection on every engine that is not already running.
func (r *Runtime) Start() error {
	var errs []error
	for _, e := range r.Engines() {
		if err := e.Start(r.ctx, r.sessionFor(e)); err != nil && !errors.Is(err, engine.ErrAlreadyRunning) {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (r *Runtime) Stop() {
	for _, e := range r.Engines() {
		e.Stop()
	}
}

func (r *Runtime) Running() bool {
	for _, e := range r.Engines() {
		if e.IsRunning() {
			return true
		}
	}
	return false
}

// Toggle stops detection if any engine runs, otherwise starts all of them.
func (r *Runtime) Toggle() error {
	if r.Running() {
		r.Stop()
		log.Printf("runtime: detection toggled off")
		return nil
	}
	log.Printf("runtime: detection toggled on")
	return r.Start()
}

// Nudge asks running engines to probe now.
func (r *Runtime) Nudge() {
	for _, e := range r.Engines() {
		_ = e.Refresh()
	}
}

// Apply pushes reloaded sensitivity settings into the engines. Source, notifier and
// hotkey changes need a restart and are only logged.
func (r *Runtime) Apply(cfg *config.Config) {
	r.mu.Lock()
	if cfg.Source != r.cfg.Source || cfg.BackgroundSource != r.cfg.BackgroundSource ||
		cfg.Notify != r.cfg.Notify || cfg.ToggleHotkey != r.cfg.ToggleHotkey || cfg.WritePolicy != r.cfg.WritePolicy {
		log.Printf("runtime: source, notifier, write policy and hotkey changes apply after restart")
	}
	r.cfg.MinLength = cfg.MinLength
	r.cfg.RequiredConfirmations = cfg.RequiredConfirmations
	r.cfg.PollInterval = cfg.PollInterval
	r.cfg.BackgroundPollInterval = cfg.BackgroundPollInterval
	r.mu.Unlock()

	for _, e := range r.Engines() {
		if err := e.UpdateConfig(r.sessionFor(e)); err != nil {
			log.Printf("runtime: %s: %v", e.Name(), err)
		}
	}
}

func (r *Runtime) sessionFor(e *engine.Engine) debounce.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e == r.background {
		return r.cfg.BackgroundSession()
	}
	return r.cfg.Session()
}

// Status renders one line per engine.
func (r *Runtime) Status() string {
	var b strings.Builder
	for _, e := range r.Engines() {
		state := "stopped"
		if e.IsRunning() {
			state = "running"
		}
		snap := e.Snapshot()
		cfg := e.Config()
		fmt.Fprintf(&b, "%s: %s source=%s state=%s count=%d commits=%d min_length=%d confirmations=%d interval=%s\n",
			e.Name(), state, r.sources[e], snap.State, snap.Count, e.Commits(),
			cfg.MinLength, cfg.RequiredConfirmations, cfg.PollInterval)
	}
	return b.String()
}

// Handle serves control requests.
func (r *Runtime) Handle(cmd control.Command) (string, error) {
	switch cmd {
	case control.Status:
		return r.Status(), nil
	case control.Start:
		if err := r.Start(); err != nil {
			return "", err
		}
		return r.Status(), nil
	case control.Stop:
		r.Stop()
		return r.Status(), nil
	case control.Refresh:
		if !r.Running() {
			return "", engine.ErrNotRunning
		}
		r.Nudge()
		return "refresh requested", nil
	default:
		return "", fmt.Errorf("%w: %s", control.ErrUnknownCommand, cmd)
	}
}

// Close stops the engines and the notification worker.
func (r *Runtime) Close() {
	r.Stop()
	r.dispatcher.Close()
}
