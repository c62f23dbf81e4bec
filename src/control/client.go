package control

import (
	"bufio"
	"context"
	"io"
	"net"
	"strconv"
	"time"
)

type Client struct {
	start, end int
}

func NewClient(start, end int) *Client { return &Client{start: start, end: end} }

// Detect scans the port range and returns (port, true) if a resident responds to PING.
func (c *Client) Detect(ctx context.Context) (int, bool) {
	deadline := timeoutFrom(ctx, 300*time.Millisecond)
	for port := c.start; port <= c.end; port++ {
		if ctx.Err() != nil {
			return 0, false
		}
		if ping(addrFor(port), deadline) {
			return port, true
		}
	}
	return 0, false
}

// Send delivers cmd to the resident and returns its reply body. It returns
// ErrNoResident when nothing answers and a *RemoteError for ERROR replies.
func (c *Client) Send(ctx context.Context, cmd Command) (string, error) {
	port, ok := c.Detect(ctx)
	if !ok {
		return "", ErrNoResident
	}

	deadline := timeoutFrom(ctx, 2*time.Second)
	conn, err := net.DialTimeout("tcp", addrFor(port), deadline)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(deadline))

	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(string(cmd) + "\n"); err != nil {
		return "", err
	}
	if err := w.Flush(); err != nil {
		return "", err
	}

	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	body, _ := io.ReadAll(br)
	switch status {
	case successLine:
		return string(body), nil
	case errorLine:
		return "", &RemoteError{Command: cmd, Message: string(body)}
	default:
		return "", &RemoteError{Command: cmd, Message: "malformed reply " + strconv.Quote(status)}
	}
}

func ping(addr string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))
	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(pingRequest); err != nil {
		return false
	}
	if err := w.Flush(); err != nil {
		return false
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	return err == nil && resp == pongResponse
}

func addrFor(port int) string { return net.JoinHostPort(residentHost, strconv.Itoa(port)) }

func timeoutFrom(ctx context.Context, fallback time.Duration) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < fallback {
			return d
		}
	}
	return fallback
}
