package notification

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	notifyDest   = "org.freedesktop.Notifications"
	notifyPath   = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyMethod = notifyDest + ".Notify"
	appName      = "instant-copy"
	expireMs     = int32(3000)
)

// Desktop posts freedesktop notifications on the session bus. Consecutive commits
// replace the previous bubble instead of stacking.
type Desktop struct {
	conn *dbus.Conn

	mu     sync.Mutex
	lastID uint32
}

func NewDesktop() (*Desktop, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &Desktop{conn: conn}, nil
}

func (d *Desktop) Notify(text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	obj := d.conn.Object(notifyDest, notifyPath)
	call := obj.Call(notifyMethod, 0,
		appName,
		d.lastID,
		"edit-copy",
		Title,
		Body(text),
		[]string{},
		map[string]dbus.Variant{"transient": dbus.MakeVariant(true)},
		expireMs,
	)
	if call.Err != nil {
		return fmt.Errorf("desktop notify: %w", call.Err)
	}
	var id uint32
	if err := call.Store(&id); err == nil {
		d.lastID = id
	}
	return nil
}
