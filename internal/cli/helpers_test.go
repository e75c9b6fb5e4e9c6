package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/doorbot/internal/store"
)

// executeCommand runs the root command with args and returns stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	cmd.SetContext(context.Background())
	err := cmd.Execute()
	return buf.String(), err
}

// seedUser enrolls a user directly in the database at path.
func seedUser(t *testing.T, path, token, pin string, admin bool) {
	t.Helper()
	st, err := store.Open(path, store.WithBcryptCost(4))
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.AddUser(context.Background(), token, pin, admin))
}

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// pipePort is a fake serial device: tests feed lines into it and read back
// what the daemon wrote.
type pipePort struct {
	r   *io.PipeReader
	w   *io.PipeWriter
	out syncBuffer
}

func newPipePort() *pipePort {
	r, w := io.Pipe()
	return &pipePort{r: r, w: w}
}

func (p *pipePort) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipePort) Write(b []byte) (int, error) { return p.out.Write(b) }
func (p *pipePort) Close() error                { return p.r.Close() }

// Feed writes lines to the daemon. It returns once the reader has
// consumed them.
func (p *pipePort) Feed(lines ...string) {
	p.w.Write([]byte(strings.Join(lines, "\n") + "\n"))
}

// Hangup simulates the device going away.
func (p *pipePort) Hangup() {
	p.w.Close()
}

func (p *pipePort) Output() string {
	return p.out.String()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
