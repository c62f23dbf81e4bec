// Command stress-control fires many concurrent control requests at a running
// instance and reports how they fared.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"instant-copy/src/config"
	"instant-copy/src/control"
)

type stressOptions struct {
	n        int
	command  string
	deadline time.Duration
}

type sender interface {
	Send(ctx context.Context, cmd control.Command) (string, error)
}

type tally struct {
	ok, rejected, noResident, failed int32
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts, os.Stdout)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-control",
		Short:         "Stress test the control endpoint of a running instance",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			command, err := control.ParseCommand(opts.command)
			if err != nil {
				return err
			}
			_, _ = config.Load()
			client := control.NewClient(config.ControlPorts())
			start := time.Now()
			t := stress(client, opts.n, command, opts.deadline)
			fmt.Fprintf(out, "launched=%d ok=%d rejected=%d no-resident=%d err=%d elapsed=%s\n",
				opts.n, t.ok, t.rejected, t.noResident, t.failed, time.Since(start))
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of concurrent clients")
	cmd.Flags().StringVar(&opts.command, "command", "status", "status|refresh|start|stop")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")

	return cmd
}

func stress(client sender, n int, command control.Command, deadline time.Duration) tally {
	var (
		wg sync.WaitGroup
		t  tally
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), deadline)
			defer cancel()
			_, err := client.Send(ctx, command)
			var remote *control.RemoteError
			switch {
			case err == nil:
				atomic.AddInt32(&t.ok, 1)
			case errors.As(err, &remote):
				atomic.AddInt32(&t.rejected, 1)
			case errors.Is(err, control.ErrNoResident):
				atomic.AddInt32(&t.noResident, 1)
			default:
				atomic.AddInt32(&t.failed, 1)
			}
		}()
	}
	wg.Wait()
	return t
}
