// Command replay feeds a recorded tick sequence through the selection debouncer and
// prints what would have been copied. Each input line is one tick; a blank line or
// the literal <null> is a tick with no selection. Backslash escapes \n, \t and \\
// allow multi-line selections.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"instant-copy/src/config"
	"instant-copy/src/debounce"
	"instant-copy/src/logutil"
	"instant-copy/src/selection"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024

	nullTick  = "<null>"
	replayTag = "replay"
)

type cliOptions struct {
	filePath      string
	minLength     int
	confirmations int
	jsonOutput    bool
	verbose       bool
	configPath    string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args), os.Stdin, os.Stdout)
}

func runWithArgs(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		args = []string{"replay"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts, stdin, stdout)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions, stdin io.Reader, stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "replay",
		Short:         "Replay a tick file through the selection debouncer",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(cmd, *opts, stdin, stdout)
		},
	}

	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to tick file (use '-' for stdin)")
	cmd.Flags().IntVar(&opts.minLength, "min-length", debounce.DefaultMinLength, "Minimum selection length in characters")
	cmd.Flags().IntVar(&opts.confirmations, "confirmations", debounce.DefaultRequiredConfirmations, "Consecutive identical ticks needed to commit")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "TOML config supplying defaults for unset flags")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runWithOptions(cmd *cobra.Command, opts cliOptions, stdin io.Reader, stdout io.Writer) error {
	// Configure logging BEFORE any other operations.
	if !opts.verbose {
		logutil.Discard()
	} else {
		log.SetOutput(os.Stderr)
	}

	session, err := sessionConfig(cmd, opts)
	if err != nil {
		return err
	}
	if opts.verbose {
		fmt.Fprintf(os.Stderr, "[verbose] min length %d, confirmations %d\n", session.MinLength, session.RequiredConfirmations)
	}

	data, err := readInput(opts.filePath, stdin)
	if err != nil {
		return err
	}

	result, err := replay(data, session)
	if err != nil {
		return err
	}
	if opts.verbose {
		fmt.Fprintf(os.Stderr, "[verbose] %d ticks, %d commits\n", result.Ticks, len(result.Commits))
	}
	return outputResult(stdout, result, opts.filePath, opts.jsonOutput)
}

// sessionConfig starts from the loaded configuration and applies explicit flags.
func sessionConfig(cmd *cobra.Command, opts cliOptions) (debounce.Config, error) {
	session := debounce.DefaultConfig()
	if cfg, err := config.LoadWithOptions(config.LoadOptions{ConfigPathOverride: opts.configPath}); err == nil {
		session = cfg.Session()
	} else if opts.configPath != "" {
		return debounce.Config{}, fmt.Errorf("failed to load configuration: %w", err)
	} else {
		log.Printf("replay: ignoring configuration: %v", err)
	}

	if cmd.Flags().Changed("min-length") {
		session.MinLength = opts.minLength
	}
	if cmd.Flags().Changed("confirmations") {
		session.RequiredConfirmations = opts.confirmations
	}
	if err := session.Validate(); err != nil {
		return debounce.Config{}, err
	}
	return session, nil
}

func readInput(filePath string, stdin io.Reader) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if filePath == "-" {
		data, err = io.ReadAll(io.LimitReader(stdin, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
		}
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("input exceeds maximum size of %d MB", maxFileSizeMB)
	}
	return data, nil
}

type Commit struct {
	Tick        int    `json:"tick"`
	Text        string `json:"text"`
	Length      int    `json:"character_count"`
	CommittedAt string `json:"committed_at"`
}

type ReplayResult struct {
	Source        string   `json:"source"`
	Ticks         int      `json:"ticks"`
	MinLength     int      `json:"min_length"`
	Confirmations int      `json:"required_confirmations"`
	Commits       []Commit `json:"commits"`
}

// replay drives a fresh debouncer tick by tick. Tick i is stamped i poll intervals
// after the Unix epoch so output is reproducible.
func replay(data []byte, session debounce.Config) (ReplayResult, error) {
	tick := 0
	clock := func() time.Time { return time.Unix(0, 0).UTC().Add(time.Duration(tick) * session.PollInterval) }
	d := debounce.New(session).WithClock(clock)

	result := ReplayResult{
		MinLength:     session.MinLength,
		Confirmations: session.RequiredConfirmations,
		Commits:       []Commit{},
	}

	sc := bufio.NewScanner(strings.NewReader(string(data)))
	sc.Buffer(make([]byte, 64*1024), maxFileSize)
	for sc.Scan() {
		tick++
		var obs *selection.Observation
		if text, ok := parseTick(sc.Text()); ok {
			obs = selection.New(text, replayTag, clock())
		}
		if ev, ok := d.Observe(obs); ok {
			result.Commits = append(result.Commits, Commit{
				Tick:        tick,
				Text:        ev.Text,
				Length:      selection.Length(ev.Text),
				CommittedAt: ev.CommittedAt.Format(time.RFC3339),
			})
		}
	}
	if err := sc.Err(); err != nil {
		return ReplayResult{}, fmt.Errorf("failed to read ticks: %w", err)
	}
	result.Ticks = tick
	return result, nil
}

// parseTick decodes one input line. ok is false for a no-selection tick.
func parseTick(line string) (string, bool) {
	line = strings.TrimSuffix(line, "\r")
	if line == "" || line == nullTick {
		return "", false
	}
	return unescape(line), true
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// escape is the inverse of unescape, keeping one commit per output line.
func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\t", `\t`).Replace(s)
}

func outputResult(w io.Writer, result ReplayResult, sourcePath string, jsonOutput bool) error {
	if jsonOutput {
		result.Source = sourcePath
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
		return nil
	}

	for _, c := range result.Commits {
		if _, err := fmt.Fprintf(w, "%d\t%s\n", c.Tick, escape(c.Text)); err != nil {
			return err
		}
	}
	return nil
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"file", "json", "verbose", "min-length", "confirmations", "config"} {
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
