package hardware

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Link is one serial connection to a controller board.
type Link struct {
	name   string
	rw     io.ReadWriter
	logger *slog.Logger

	mu sync.Mutex // serializes writes
}

// NewLink wraps rw as the link called name ("auth" or "lock").
func NewLink(name string, rw io.ReadWriter, logger *slog.Logger) *Link {
	if logger == nil {
		logger = slog.Default()
	}
	return &Link{
		name:   name,
		rw:     rw,
		logger: logger.With("link", name),
	}
}

// Name returns the link name.
func (l *Link) Name() string {
	return l.name
}

// Send writes one command line.
func (l *Link) Send(line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := io.WriteString(l.rw, line+"\n"); err != nil {
		return fmt.Errorf("%s link: write %q: %w", l.name, line, err)
	}
	return nil
}

// Pump reads lines until EOF, a read error or ctx cancellation, and
// enqueues every decodable line on q. Malformed lines are logged and
// dropped.
//
// Pump returns nil on EOF or cancellation.
func (l *Link) Pump(ctx context.Context, q *Queue) error {
	sc := bufio.NewScanner(l.rw)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		ev, err := ParseLine(sc.Text())
		if err != nil {
			l.logger.Debug("dropping line", "error", err)
			continue
		}
		if !q.Enqueue(ev) {
			return nil
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("%s link: read: %w", l.name, err)
	}
	return nil
}
