// Package clipboard is the write side of the engine: it puts committed selections on
// the system clipboard through golang.design/x/clipboard.
package clipboard

import (
	"errors"
	"fmt"
	"sync"

	"golang.design/x/clipboard"
)

// ErrNotInitialized is returned by writes attempted before Init succeeded.
var ErrNotInitialized = errors.New("clipboard not initialized")

var (
	// writeMu serializes every clipboard access in the process, so two engines
	// committing at once cannot interleave; the later write wins.
	writeMu     sync.Mutex
	initialized bool
)

func Init() error {
	writeMu.Lock()
	defer writeMu.Unlock()
	if initialized {
		return nil
	}
	if err := clipboard.Init(); err != nil {
		return err
	}
	initialized = true
	return nil
}

// WriteError wraps a failed clipboard write. The engine logs it and moves on; the
// user has to select again.
type WriteError struct {
	Text string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("clipboard write failed (%d bytes): %v", len(e.Text), e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// WritePolicy decides what happens when the clipboard already holds the text.
type WritePolicy int

const (
	// WriteThrough always writes.
	WriteThrough WritePolicy = iota
	// SkipUnchanged leaves the clipboard alone when it already holds identical text.
	SkipUnchanged
)

func (p WritePolicy) String() string {
	switch p {
	case WriteThrough:
		return "always"
	case SkipUnchanged:
		return "skip-unchanged"
	default:
		return "unknown"
	}
}

// ParseWritePolicy maps a config value to a policy; unknown values mean WriteThrough.
func ParseWritePolicy(s string) WritePolicy {
	if s == "skip-unchanged" {
		return SkipUnchanged
	}
	return WriteThrough
}

// Sink is the clipboard capability handed to the engine.
type Sink struct {
	Policy WritePolicy
}

func NewSink(policy WritePolicy) *Sink { return &Sink{Policy: policy} }

// Write performs a mutex-guarded clipboard write.
func (s *Sink) Write(text string) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	if !initialized {
		return &WriteError{Text: text, Err: ErrNotInitialized}
	}
	if s.Policy == SkipUnchanged && string(clipboard.Read(clipboard.FmtText)) == text {
		return nil
	}
	// The returned channel only reports when our content is overwritten later.
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

// Read returns the current clipboard text; false when empty or unavailable.
func (s *Sink) Read() (string, bool) {
	writeMu.Lock()
	defer writeMu.Unlock()
	if !initialized {
		return "", false
	}
	data := clipboard.Read(clipboard.FmtText)
	if len(data) == 0 {
		return "", false
	}
	return string(data), true
}
