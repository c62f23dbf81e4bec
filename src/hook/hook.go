// Package hook listens to global input events. A configured key combination toggles
// detection; mouse releases and Shift releases (the end of a drag or a keyboard
// selection) nudge the event sources to look at the selection right away.
package hook

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
)

var ErrHookClosed = errors.New("input hook event channel closed")

// modifiers lists the keycode names covering the left and right variants.
var modifiers = map[string][]string{
	"ctrl":  {"ctrl", "rctrl"},
	"alt":   {"alt", "ralt"},
	"shift": {"shift", "rshift"},
	"cmd":   {"cmd", "rcmd"},
}

// Listener dispatches global input events to the toggle and gesture callbacks.
type Listener struct {
	hotkey    string
	combo     *combo
	shift     map[uint16]bool
	onToggle  func()
	onGesture func()
}

// New parses hotkey (e.g. "Ctrl+Alt+C"). Either callback may be nil.
func New(hotkey string, onToggle, onGesture func()) (*Listener, error) {
	c, err := parseCombo(hotkey)
	if err != nil {
		return nil, err
	}
	shift := map[uint16]bool{}
	for _, code := range keycodes("shift") {
		shift[code] = true
	}
	return &Listener{
		hotkey:    hotkey,
		combo:     c,
		shift:     shift,
		onToggle:  onToggle,
		onGesture: onGesture,
	}, nil
}

// Run processes input events until ctx is done. Only one Listener may run at a time
// because the underlying hook is process-global.
func (l *Listener) Run(ctx context.Context) error {
	log.Printf("hook: listening, toggle is %s", l.hotkey)
	evChan := gohook.Start()
	if evChan == nil {
		return errors.New("hook: gohook.Start returned nil channel")
	}
	defer gohook.End()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-evChan:
			if !ok {
				return ErrHookClosed
			}
			l.handle(ev)
		}
	}
}

func (l *Listener) handle(ev gohook.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("hook: PANIC in input callback: %v", r)
		}
	}()

	switch ev.Kind {
	case gohook.KeyDown:
		if l.combo.press(ev.Keycode) {
			log.Printf("hook: toggle %s pressed", l.hotkey)
			if l.onToggle != nil {
				l.onToggle()
			}
		}
	case gohook.KeyUp:
		l.combo.release(ev.Keycode)
		if l.shift[ev.Keycode] && l.onGesture != nil {
			l.onGesture()
		}
	case gohook.MouseUp:
		if l.onGesture != nil {
			l.onGesture()
		}
	}
}

// combo tracks which keys of a combination are held.
type combo struct {
	mu   sync.Mutex
	keys []comboKey
}

type comboKey struct {
	name    string
	codes   []uint16
	pressed bool
}

// press records a key down and reports whether the whole combination is now held.
// A completed combination resets so holding the keys fires once.
func (c *combo) press(code uint16) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.keys {
		if c.keys[i].matches(code) {
			c.keys[i].pressed = true
		}
	}
	for i := range c.keys {
		if !c.keys[i].pressed {
			return false
		}
	}
	for i := range c.keys {
		c.keys[i].pressed = false
	}
	return true
}

func (c *combo) release(code uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.keys {
		if c.keys[i].matches(code) {
			c.keys[i].pressed = false
		}
	}
}

func (k comboKey) matches(code uint16) bool {
	for _, c := range k.codes {
		if c == code {
			return true
		}
	}
	return false
}

func parseCombo(hotkey string) (*combo, error) {
	names := parseHotkey(hotkey)
	if len(names) == 0 {
		return nil, fmt.Errorf("hook: empty hotkey %q", hotkey)
	}
	c := &combo{}
	for _, name := range names {
		codes := keycodes(name)
		if len(codes) == 0 {
			return nil, fmt.Errorf("hook: unknown key %q in hotkey %q", name, hotkey)
		}
		c.keys = append(c.keys, comboKey{name: name, codes: codes})
	}
	return c, nil
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+c" to normalized key names.
func parseHotkey(hotkey string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(hotkey), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "control":
			part = "ctrl"
		case "option":
			part = "alt"
		case "win", "super", "meta":
			part = "cmd"
		}
		keys = append(keys, part)
	}
	return keys
}

// keycodes maps a normalized key name to its hook keycodes; modifiers yield both sides.
func keycodes(name string) []uint16 {
	if sides, ok := modifiers[name]; ok {
		var codes []uint16
		for _, side := range sides {
			if code, ok := gohook.Keycode[side]; ok {
				codes = append(codes, code)
			}
		}
		return codes
	}
	if code, ok := gohook.Keycode[name]; ok {
		return []uint16{code}
	}
	return nil
}
