// Package notification tells the user a selection was copied. Every backend is best
// effort: failures are logged and never reach the engine.
package notification

import (
	"fmt"
	"log"
	"strings"

	"instant-copy/src/selection"
)

const (
	Title          = "Text Selected"
	previewRunes   = 30
	KindLog        = "log"
	KindDesktop    = "desktop"
	KindMessageBox = "messagebox"
	KindNone       = "none"
)

// Notifier informs the user that text was committed to the clipboard.
type Notifier interface {
	Notify(text string) error
}

// Body renders the user-facing message for a commit.
func Body(text string) string {
	return fmt.Sprintf("Copied %q to clipboard", selection.Truncate(text, previewRunes))
}

// New returns the notifier for kind. Unknown kinds and backends that cannot start
// fall back to logging.
func New(kind string) Notifier {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindNone:
		return None{}
	case KindDesktop:
		d, err := NewDesktop()
		if err != nil {
			log.Printf("notification: desktop notifications unavailable, logging instead: %v", err)
			return Log{}
		}
		return d
	case KindMessageBox:
		return newMessageBox()
	default:
		return Log{}
	}
}

// Log writes the notification to the standard logger.
type Log struct{}

func (Log) Notify(text string) error {
	log.Printf("%s: %s", Title, Body(text))
	return nil
}

// None discards notifications.
type None struct{}

func (None) Notify(string) error { return nil }
