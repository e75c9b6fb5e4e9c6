// Package control implements the administrative control channel: a local
// TCP socket accepting one command per line.
//
// Commands map one-to-one onto machine events:
//
//	addkey   (enroll)     start enrollment of a new token
//	openmode (open-mode)  hold the door open
//	authmode (auth-mode)  leave open-mode and relock
//	resetpin (reset-pin)  reset the PIN of the next scanned token
//	shutdown              stop the daemon
//	restart               stop the daemon and request a restart
//
// Every line gets a reply: "ok" once the event is queued, or
// "error <message>".
package control

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/roach88/doorbot/internal/access"
)

// DefaultAddr is the loopback address the daemon listens on.
const DefaultAddr = "[::1]:4242"

// maxLine bounds a command line. Commands are short words.
const maxLine = 256

var commands = map[string]access.EventKind{
	"addkey":    access.EventEnroll,
	"enroll":    access.EventEnroll,
	"openmode":  access.EventOpenMode,
	"open-mode": access.EventOpenMode,
	"authmode":  access.EventAuthMode,
	"auth-mode": access.EventAuthMode,
	"resetpin":  access.EventResetPIN,
	"reset-pin": access.EventResetPIN,
	"shutdown":  access.EventShutdown,
	"restart":   access.EventRestart,
}

// ErrUnknownCommand is returned by ParseCommand for unrecognized input.
var ErrUnknownCommand = errors.New("unknown command")

// ParseCommand maps a command word to its event. Matching ignores case
// and surrounding whitespace.
func ParseCommand(s string) (access.Event, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	kind, ok := commands[name]
	if !ok {
		return access.Event{}, fmt.Errorf("%w %q", ErrUnknownCommand, name)
	}
	return access.Event{Kind: kind}, nil
}

// Enqueuer accepts events for the engine. hardware.Queue implements it.
type Enqueuer interface {
	Enqueue(ev access.Event) bool
}

// Server serves the control channel.
type Server struct {
	events Enqueuer
	logger *slog.Logger

	wg sync.WaitGroup
}

// NewServer creates a server that feeds events into q.
func NewServer(q Enqueuer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{events: q, logger: logger.With("component", "control")}
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("control listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then closes ln
// and waits for open connections to finish. Returns nil on cancellation.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("control channel listening", "addr", ln.Addr().String())

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			return fmt.Errorf("control accept: %w", err)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, conn)
		}()
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	peer := conn.RemoteAddr().String()
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, maxLine), maxLine)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		reply := s.dispatch(line)
		s.logger.Info("control command", "peer", peer, "command", line, "reply", reply)
		if _, err := fmt.Fprintln(conn, reply); err != nil {
			return
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		s.logger.Warn("control connection error", "peer", peer, "error", err)
	}
}

func (s *Server) dispatch(line string) string {
	ev, err := ParseCommand(line)
	if err != nil {
		return "error " + err.Error()
	}
	if !s.events.Enqueue(ev) {
		return "error daemon is shutting down"
	}
	return "ok"
}

// Send connects to addr, issues command and returns nil if the daemon
// replied "ok".
func Send(ctx context.Context, addr, command string) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("control dial %s: %w", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if _, err := fmt.Fprintln(conn, command); err != nil {
		return fmt.Errorf("control send: %w", err)
	}

	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return fmt.Errorf("control reply: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "ok" {
		return nil
	}
	if msg, ok := strings.CutPrefix(reply, "error "); ok {
		return fmt.Errorf("daemon: %s", msg)
	}
	return fmt.Errorf("control: unexpected reply %q", reply)
}
