package control

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"time"
)

const (
	requestTimeout = 3 * time.Second
	// maxRequestLine caps how much of a request is read; commands are a few bytes.
	maxRequestLine = 256
)

type Server struct {
	start, end int
	handler    Handler

	mu   sync.Mutex
	lis  net.Listener
	port int
}

// NewServer serves handler on the first free loopback port in [start, end].
func NewServer(start, end int, handler Handler) *Server {
	return &Server{start: start, end: end, handler: handler}
}

// Listen binds the port. Serve calls it when needed.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis != nil {
		return nil
	}
	var lastErr error
	for port := s.start; port <= s.end; port++ {
		addr := fmt.Sprintf("%s:%d", residentHost, port)
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		s.lis = lis
		s.port = lis.Addr().(*net.TCPAddr).Port
		log.Printf("control: listening on %s", lis.Addr())
		return nil
	}
	if lastErr == nil {
		lastErr = errors.New("empty port range")
	}
	return fmt.Errorf("control: no free port in %d-%d: %w", s.start, s.end, lastErr)
}

// Port returns the bound port (0 if not listening).
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Serve accepts requests until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	lis := s.lis
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = lis.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		c, err := lis.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("control: accept: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.serveConn(c)
		}()
	}
}

func (s *Server) serveConn(c net.Conn) {
	defer c.Close()
	remote := c.RemoteAddr().String()
	_ = c.SetDeadline(time.Now().Add(requestTimeout))

	line, err := bufio.NewReader(io.LimitReader(c, maxRequestLine)).ReadString('\n')
	if err != nil {
		return
	}
	bw := bufio.NewWriter(c)
	defer bw.Flush()

	if line == pingRequest {
		_, _ = bw.WriteString(pongResponse)
		return
	}

	cmd, err := ParseCommand(line)
	if err != nil {
		log.Printf("control: %v from %s", err, remote)
		_, _ = bw.WriteString(errorLine + err.Error())
		return
	}
	log.Printf("control: %s from %s", cmd, remote)

	body, err := s.handler.Handle(cmd)
	if err != nil {
		_, _ = bw.WriteString(errorLine + err.Error())
		return
	}
	_, _ = bw.WriteString(successLine + strings.TrimRight(body, "\n"))
}
