// Package control exposes a running daemon on a loopback TCP port so that later
// invocations can query and drive it instead of starting a second instance.
//
// The protocol is one request line per connection. PING is answered with PONG.
// Every other command is answered with "SUCCESS\n" or "ERROR\n" followed by a
// free-form body, after which the server closes the connection.
package control

import (
	"errors"
	"fmt"
	"strings"
)

const (
	residentHost = "127.0.0.1"
	pingRequest  = "PING\n"
	pongResponse = "PONG\n"
	successLine  = "SUCCESS\n"
	errorLine    = "ERROR\n"
)

var (
	ErrNoResident     = errors.New("control: no running instance found")
	ErrUnknownCommand = errors.New("control: unknown command")
)

type Command string

const (
	Status  Command = "STATUS"
	Start   Command = "START"
	Stop    Command = "STOP"
	Refresh Command = "REFRESH"
)

// ParseCommand accepts a request line case-insensitively.
func ParseCommand(line string) (Command, error) {
	switch c := Command(strings.ToUpper(strings.TrimSpace(line))); c {
	case Status, Start, Stop, Refresh:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCommand, strings.TrimSpace(line))
	}
}

// Handler executes one command and returns the reply body.
type Handler interface {
	Handle(cmd Command) (string, error)
}

type HandlerFunc func(cmd Command) (string, error)

func (f HandlerFunc) Handle(cmd Command) (string, error) { return f(cmd) }

// RemoteError carries an ERROR reply from the resident.
type RemoteError struct {
	Command Command
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("control: %s failed: %s", e.Command, e.Message)
}
