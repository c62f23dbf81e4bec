package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"instant-copy/src/debounce"
)

func runReplay(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("INSTANT_COPY_CONFIG", "")
	t.Setenv("MIN_LENGTH", "")
	t.Setenv("REQUIRED_CONFIRMATIONS", "")
	t.Setenv("POLL_INTERVAL_MS", "")
	var out bytes.Buffer
	err := runWithArgs(normalizeLegacyArgs(append([]string{"replay"}, args...)), strings.NewReader(input), &out)
	return out.String(), err
}

func TestReplayScenarios(t *testing.T) {
	tests := []struct {
		name  string
		input string
		args  []string
		want  string
	}{
		{"two confirmations commit", "Hello\nHello\n", nil, "2\tHello\n"},
		{"single tick is not enough", "Hello\n", nil, ""},
		{"null tick resets", "abc\n<null>\nabc\n", nil, ""},
		{"blank tick resets", "abc\n\nabc\nabc\n", nil, "4\tabc\n"},
		{"too short never commits", "ab\nab\nab\n", nil, ""},
		{"change restarts count", "abc\nabd\nabd\n", nil, "3\tabd\n"},
		{"fresh confirmations after commit", "abc\nabc\nabc\nabc\n", nil, "2\tabc\n4\tabc\n"},
		{"whitespace is trimmed", "  abc\nabc  \n", nil, "2\tabc\n"},
		{"flags override defaults", "xy\nxy\nxy\n", []string{"--min-length", "2", "--confirmations", "3"}, "3\txy\n"},
		{"rune length", "日本語\n日本語\n", nil, "2\t日本語\n"},
		{"escaped newline", `line\none` + "\n" + `line\none` + "\n", nil, "2\tline\\none\n"},
		{"crlf input", "abc\r\nabc\r\n", nil, "2\tabc\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--file", "-"}, tt.args...)
			got, err := runReplay(t, tt.input, args...)
			if err != nil {
				t.Fatalf("replay failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReplayJSONFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ticks.txt")
	if err := os.WriteFile(path, []byte("Hello\nHello\n<null>\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runReplay(t, "", "-file", path, "-json")
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	var result ReplayResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if result.Source != path || result.Ticks != 3 {
		t.Errorf("unexpected header: %+v", result)
	}
	if result.MinLength != debounce.DefaultMinLength || result.Confirmations != debounce.DefaultRequiredConfirmations {
		t.Errorf("unexpected thresholds: %+v", result)
	}
	if len(result.Commits) != 1 {
		t.Fatalf("expected 1 commit, got %+v", result.Commits)
	}
	c := result.Commits[0]
	if c.Tick != 2 || c.Text != "Hello" || c.Length != 5 {
		t.Errorf("unexpected commit %+v", c)
	}
	if c.CommittedAt != "1970-01-01T00:00:02Z" {
		t.Errorf("CommittedAt = %q, want tick 2 at the default interval", c.CommittedAt)
	}
}

func TestReplayJSONWithoutCommits(t *testing.T) {
	out, err := runReplay(t, "a\n", "--file", "-", "--json")
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !strings.Contains(out, `"commits": []`) {
		t.Errorf("expected empty commits array, got %s", out)
	}
}

func TestReplayErrors(t *testing.T) {
	if _, err := runReplay(t, ""); err == nil {
		t.Error("expected error without --file")
	}
	if _, err := runReplay(t, "", "--file", filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}

	_, err := runReplay(t, "abc\n", "--file", "-", "--confirmations", "0")
	var cfgErr *debounce.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Field != "RequiredConfirmations" {
		t.Errorf("ConfigError.Field = %q", cfgErr.Field)
	}
}

func TestParseTick(t *testing.T) {
	tests := []struct {
		line   string
		want   string
		wantOK bool
	}{
		{"", "", false},
		{"<null>", "", false},
		{"\r", "", false},
		{"plain", "plain", true},
		{`a\tb`, "a\tb", true},
		{`back\\slash`, `back\slash`, true},
		{`unknown\q`, `unknown\q`, true},
		{`trailing\`, `trailing\`, true},
	}
	for _, tt := range tests {
		got, ok := parseTick(tt.line)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("parseTick(%q) = %q, %v; want %q, %v", tt.line, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	for _, s := range []string{"plain", "two\nlines", "tab\there", `back\slash`, "mixed\\n\n"} {
		if got := unescape(escape(s)); got != s {
			t.Errorf("unescape(escape(%q)) = %q", s, got)
		}
	}
}

func TestNormalizeLegacyArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		out  []string
	}{
		{
			name: "Normalizes long single dash flags",
			in:   []string{"replay", "-file", "ticks.txt", "-json"},
			out:  []string{"replay", "--file", "ticks.txt", "--json"},
		},
		{
			name: "Normalizes equals form",
			in:   []string{"replay", "-file=ticks.txt", "-min-length=4"},
			out:  []string{"replay", "--file=ticks.txt", "--min-length=4"},
		},
		{
			name: "Leaves other flags unchanged",
			in:   []string{"replay", "--file", "-", "-v"},
			out:  []string{"replay", "--file", "-", "-v"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeLegacyArgs(tt.in)
			if len(got) != len(tt.out) {
				t.Fatalf("Expected len=%d, got %d", len(tt.out), len(got))
			}
			for i := range got {
				if got[i] != tt.out[i] {
					t.Fatalf("Expected arg[%d]=%q, got %q", i, tt.out[i], got[i])
				}
			}
		})
	}
}
