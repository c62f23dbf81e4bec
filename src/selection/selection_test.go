package selection

import (
	"strings"
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"Hello world", "Hello world", true},
		{"  padded\t\n", "padded", true},
		{"", "", false},
		{"   \n\t ", "", false},
		{"MiXeD Case, punct!", "MiXeD Case, punct!", true},
		{"　全角　", "全角", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := Normalize(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("Normalize(%q) ok=%v, expected %v", tt.raw, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, expected %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{" a ", "b", "\n\nc d\n", "", "日本語 "}
	for _, in := range inputs {
		once, ok1 := Normalize(in)
		twice, ok2 := Normalize(once)
		if ok1 != ok2 || once != twice {
			t.Errorf("Normalize not idempotent for %q: %q/%v then %q/%v", in, once, ok1, twice, ok2)
		}
	}
}

func TestLength(t *testing.T) {
	if got := Length("héllo"); got != 5 {
		t.Errorf("Length(héllo) = %d, expected 5", got)
	}
	if got := Length("日本語"); got != 3 {
		t.Errorf("Length(日本語) = %d, expected 3", got)
	}
	if got := Length(""); got != 0 {
		t.Errorf("Length(\"\") = %d, expected 0", got)
	}
}

func TestLikelyUserSelection(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"plain words", "some selected words", true},
		{"empty", "", false},
		{"too long", strings.Repeat("a", 501), false},
		{"exactly max", strings.Repeat("a", 500), true},
		{"only symbols", "@@##$$", false},
		{"cjk only", "日本語", false},
		{"em dash", "—", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LikelyUserSelection(tt.text); got != tt.want {
				t.Errorf("LikelyUserSelection(%q) = %v, expected %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 30); got != "short" {
		t.Errorf("expected untouched text, got %q", got)
	}
	if got := Truncate("日本語テキスト", 3); got != "日本語..." {
		t.Errorf("expected rune-based cut, got %q", got)
	}
}

func TestNewStampsObservation(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	obs := New("text", "primary", now)
	if obs.Text != "text" || obs.SourceTag != "primary" || !obs.ObservedAt.Equal(now) {
		t.Errorf("unexpected observation: %+v", obs)
	}
}
