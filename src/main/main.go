package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"instant-copy/src/config"
	"instant-copy/src/control"
	"instant-copy/src/hook"
	"instant-copy/src/logutil"
	"instant-copy/src/runtimeinit"
)

var errResidentRunning = errors.New("instant-copy is already running")

type controlClient interface {
	Send(ctx context.Context, cmd control.Command) (string, error)
}

type mainOptions struct {
	configPath  string
	noAutoStart bool
	quiet       bool

	newClient func() controlClient
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := normalizeLegacyArgs(os.Args)
	opts := &mainOptions{}
	cmd := newRootCmd(opts, os.Stdout)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "instant-copy",
		Short:         "Copy selected text to the clipboard once the selection settles",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(*opts)
		},
	}
	cmd.Flags().BoolVar(&opts.noAutoStart, "no-auto-start", false, "Start with detection off (toggle with the hotkey or 'start')")
	cmd.Flags().BoolVar(&opts.quiet, "quiet", false, "Discard log output")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to TOML config file (overrides INSTANT_COPY_CONFIG)")

	for _, sub := range []struct {
		command control.Command
		short   string
	}{
		{control.Status, "Show the state of the running instance"},
		{control.Start, "Start detection in the running instance"},
		{control.Stop, "Stop detection in the running instance"},
		{control.Refresh, "Make the running instance look at the selection now"},
	} {
		command := sub.command
		cmd.AddCommand(&cobra.Command{
			Use:   strings.ToLower(string(command)),
			Short: sub.short,
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, args []string) error {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return delegate(ctx, opts.client(), command, out)
			},
		})
	}

	return cmd
}

func (o *mainOptions) client() controlClient {
	if o.newClient != nil {
		return o.newClient()
	}
	// Load .env early so CONTROL_PORT_* are applied before the scan.
	_, _ = config.LoadWithOptions(config.LoadOptions{ConfigPathOverride: o.configPath})
	return control.NewClient(config.ControlPorts())
}

// delegate forwards cmd to the resident and prints its reply.
func delegate(ctx context.Context, client controlClient, cmd control.Command, out io.Writer) error {
	body, err := client.Send(ctx, cmd)
	if errors.Is(err, control.ErrNoResident) {
		return fmt.Errorf("instant-copy is not running: %w", err)
	}
	if err != nil {
		return err
	}
	if body != "" {
		fmt.Fprintln(out, strings.TrimRight(body, "\n"))
	}
	return nil
}

func runDaemon(opts mainOptions) error {
	loadOptions := config.LoadOptions{ConfigPathOverride: opts.configPath, NoAutoStart: opts.noAutoStart}

	// Load .env early so CONTROL_PORT_* are available for pre-flight.
	_, _ = config.LoadWithOptions(loadOptions)
	probe, cancelProbe := context.WithTimeout(context.Background(), 2*time.Second)
	port, found := control.NewClient(config.ControlPorts()).Detect(probe)
	cancelProbe()
	if found {
		return fmt.Errorf("%w on port %d", errResidentRunning, port)
	}

	cfg, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: loadOptions,
		SetupLogging: func(enableFileLogging bool) {
			logutil.Setup(enableFileLogging)
			if opts.quiet {
				logutil.Discard()
			}
		},
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	rt, err := runtimeinit.Build(gctx, cfg, runtimeinit.Deps{})
	if err != nil {
		return err
	}
	defer rt.Close()

	server := control.NewServer(cfg.ControlPortStart, cfg.ControlPortEnd, rt)
	if err := server.Listen(); err != nil {
		return err
	}
	g.Go(func() error { return server.Serve(gctx) })

	if cfg.ConfigPath != "" {
		g.Go(func() error { return config.Watch(gctx, loadOptions, cfg.ConfigPath, rt.Apply) })
	}

	if cfg.Enabled {
		startHook(g, gctx, cfg.ToggleHotkey, rt)
	}

	log.Printf("instant-copy initialized: source=%s background=%q control port %d", cfg.Source, cfg.BackgroundSource, server.Port())
	if cfg.Enabled && cfg.AutoStart {
		if err := rt.Start(); err != nil {
			stop()
			_ = g.Wait()
			return err
		}
	} else {
		log.Printf("detection is off; press %s or run 'instant-copy start'", cfg.ToggleHotkey)
	}

	err = g.Wait()
	log.Printf("instant-copy shutting down")
	return err
}

// startHook installs the global input hook. A missing or broken hook only costs the
// hotkey and the gesture nudges, so failures are logged rather than fatal.
func startHook(g *errgroup.Group, ctx context.Context, hotkey string, rt *runtimeinit.Runtime) {
	l, err := hook.New(hotkey, func() {
		if err := rt.Toggle(); err != nil {
			log.Printf("toggle failed: %v", err)
		}
	}, rt.Nudge)
	if err != nil {
		log.Printf("input hook disabled: %v", err)
		return
	}
	g.Go(func() error {
		if err := l.Run(ctx); err != nil {
			log.Printf("input hook stopped: %v", err)
		}
		return nil
	})
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"config", "no-auto-start", "quiet"} {
			single := "-" + name
			switch {
			case arg == single:
				normalized[i] = "-" + single
			case strings.HasPrefix(arg, single+"="):
				normalized[i] = "-" + arg
			}
		}
	}

	return normalized
}
