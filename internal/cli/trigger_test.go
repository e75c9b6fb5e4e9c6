package cli

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/doorbot/internal/access"
	"github.com/roach88/doorbot/internal/control"
	"github.com/roach88/doorbot/internal/hardware"
)

func startControl(t *testing.T) (string, *hardware.Queue) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	q := hardware.NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = control.NewServer(q, quietLogger()).Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ln.Addr().String(), q
}

func TestTrigger_SendsCommand(t *testing.T) {
	addr, q := startControl(t)

	out, err := executeCommand(t, "trigger", "openmode", "--addr", addr)
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	ev, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, access.EventOpenMode, ev.Kind)
}

func TestTrigger_UnknownCommand(t *testing.T) {
	_, err := executeCommand(t, "trigger", "explode", "--addr", "127.0.0.1:1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, control.ErrUnknownCommand)
}

func TestTrigger_NoDaemon(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	out, err := executeCommand(t, "trigger", "addkey", "--addr", addr, "--timeout", (2 * time.Second).String())
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")
}
