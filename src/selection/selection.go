package selection

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// maxLikelySelection is the longest clipboard value still treated as something a
// user highlighted by hand.
const maxLikelySelection = 500

// Observation is one raw signal from an event source: the candidate selected text,
// which adapter produced it, and when.
type Observation struct {
	Text       string
	SourceTag  string
	ObservedAt time.Time
}

// New builds an observation stamped with now.
func New(text, sourceTag string, now time.Time) *Observation {
	return &Observation{Text: text, SourceTag: sourceTag, ObservedAt: now}
}

// Normalize trims surrounding whitespace. The second result is false when nothing is
// left; content is otherwise returned verbatim (no case folding, punctuation kept).
func Normalize(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	return trimmed, true
}

// Length counts Unicode scalar values, not bytes.
func Length(text string) int {
	return utf8.RuneCountInString(text)
}

// LikelyUserSelection reports whether clipboard content looks like a hand-made text
// selection rather than something copied programmatically: non-empty, not too long,
// and containing at least one ordinary text character.
func LikelyUserSelection(text string) bool {
	n := Length(text)
	if n == 0 || n > maxLikelySelection {
		return false
	}
	for _, r := range text {
		if r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(" .,!?;:'\"()-", r)) {
			return true
		}
		if r == '–' || r == '—' {
			return true
		}
	}
	return false
}

// Truncate shortens text to at most n runes, appending "..." when something was cut.
func Truncate(text string, n int) string {
	if n <= 0 || Length(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + "..."
}
