package eventlog

import (
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// Logger receives captured entries. Implementations must be thread-safe.
type Logger interface {
	Log(e Entry)
}

// NoopLogger discards all entries.
type NoopLogger struct{}

// Log discards the entry.
func (NoopLogger) Log(Entry) {}

var _ Logger = NoopLogger{}

// FileLogger appends entries to a file in CBOR format.
// It is safe for concurrent use from multiple goroutines.
type FileLogger struct {
	mu      sync.Mutex
	file    *os.File
	encoder *cbor.Encoder
	closed  bool
	errs    int
}

// NewFileLogger opens path for appending, creating it with mode 0644 if
// needed.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{
		file:    f,
		encoder: newEncoder(f),
	}, nil
}

// Log writes e. Write errors are counted, not returned: capture must never
// disturb the door.
func (l *FileLogger) Log(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if err := l.encoder.Encode(e); err != nil {
		l.errs++
	}
}

// Errors returns how many entries failed to encode or write.
func (l *FileLogger) Errors() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errs
}

// Close closes the file. It is safe to call Close multiple times; later
// Log calls are ignored.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

var _ Logger = (*FileLogger)(nil)

// MemoryLogger keeps entries in memory. It backs scenario traces and
// tests.
type MemoryLogger struct {
	mu      sync.Mutex
	entries []Entry
}

// Log appends e.
func (m *MemoryLogger) Log(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
}

// Entries returns a copy of the logged entries.
func (m *MemoryLogger) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

var _ Logger = (*MemoryLogger)(nil)
