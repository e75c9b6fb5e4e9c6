package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/doorbot/internal/access"
	"github.com/roach88/doorbot/internal/engine"
	"github.com/roach88/doorbot/internal/eventlog"
	"github.com/roach88/doorbot/internal/store"
)

type daemonFixture struct {
	dir     string
	config  string
	db      string
	capture string
	auth    *pipePort
	lock    *pipePort
	opened  map[string]int
}

func newDaemonFixture(t *testing.T) *daemonFixture {
	t.Helper()
	dir := t.TempDir()
	f := &daemonFixture{
		dir:     dir,
		config:  filepath.Join(dir, "doorbot.yaml"),
		db:      filepath.Join(dir, "db", "user.db"),
		capture: filepath.Join(dir, "events.cbor"),
		auth:    newPipePort(),
		lock:    newPipePort(),
		opened:  map[string]int{},
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(f.db), 0o755))

	cfg := fmt.Sprintf(`database: %q
capture: %q
log:
  file: %q
  level: debug
control:
  listen: ""
auth:
  device: /dev/fake-auth
  baud: 19200
lock:
  device: /dev/fake-lock
  baud: 9600
bcrypt_cost: 4
`, f.db, f.capture, filepath.Join(dir, "doorbot.log"))
	require.NoError(t, os.WriteFile(f.config, []byte(cfg), 0o644))
	return f
}

func (f *daemonFixture) open(path string, baud int) (io.ReadWriteCloser, error) {
	f.opened[path] = baud
	switch path {
	case "/dev/fake-auth":
		return f.auth, nil
	case "/dev/fake-lock":
		return f.lock, nil
	}
	return nil, fmt.Errorf("no such device %s", path)
}

// start runs the daemon in the background and returns its result channel.
func (f *daemonFixture) start(ctx context.Context) <-chan error {
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		ConfigPath:  f.config,
		OpenPort:    f.open,
	}
	cmd := &cobra.Command{}
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetContext(ctx)

	done := make(chan error, 1)
	go func() { done <- runDaemon(opts, cmd) }()
	return done
}

func waitDaemon(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not stop")
		return nil
	}
}

func TestRun_DoorForcedIsAuditedAndCaptured(t *testing.T) {
	f := newDaemonFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := f.start(ctx)

	require.Eventually(t, func() bool {
		return strings.HasPrefix(f.auth.Output(), "L0\n")
	}, 5*time.Second, 10*time.Millisecond)

	f.lock.Feed("D1")
	require.Eventually(t, func() bool {
		return f.lock.Output() == "K\n"
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, waitDaemon(t, done))

	assert.Equal(t, 19200, f.opened["/dev/fake-auth"])
	assert.Equal(t, 9600, f.opened["/dev/fake-lock"])

	st, err := store.Open(f.db)
	require.NoError(t, err)
	defer st.Close()
	events, err := st.ListDecisions(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, access.OutcomeForced, events[0].Kind)

	r, err := eventlog.NewFilteredReader(f.capture, eventlog.Filter{Kinds: []string{"decision"}})
	require.NoError(t, err)
	defer r.Close()
	e, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "door-forced", e.Outcome)
}

func TestRun_GrantUnlocksOverLockLink(t *testing.T) {
	f := newDaemonFixture(t)
	seedUser(t, f.db, "T1", "1234", false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := f.start(ctx)

	f.auth.Feed("RT1", "K1", "K2", "K3", "K4", "KB")

	require.Eventually(t, func() bool {
		return strings.HasPrefix(f.lock.Output(), "U\n")
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, f.auth.Output(), "G\n")

	cancel()
	require.NoError(t, waitDaemon(t, done))
}

func TestRun_LostLinkRequestsRestart(t *testing.T) {
	f := newDaemonFixture(t)
	done := f.start(context.Background())

	require.Eventually(t, func() bool {
		return strings.HasPrefix(f.auth.Output(), "L0\n")
	}, 5*time.Second, 10*time.Millisecond)
	f.auth.Hangup()

	err := waitDaemon(t, done)
	require.Error(t, err)
	assert.Equal(t, ExitRestart, GetExitCode(err))
}

func TestRun_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  baud: 1234\n"), 0o644))

	_, err := executeCommand(t, "run", "--config", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestRun_MissingDevice(t *testing.T) {
	f := newDaemonFixture(t)
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		ConfigPath:  f.config,
		OpenPort: func(path string, baud int) (io.ReadWriteCloser, error) {
			return nil, fmt.Errorf("open %s: no such file", path)
		},
	}
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	err := runDaemon(opts, cmd)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open auth link")
}

func TestDaemonExit(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name    string
		outcome engine.Outcome
		err     error
		code    int
		message string
	}{
		{"graceful", engine.OutcomeShutdown, nil, ExitSuccess, ""},
		{"cancelled", engine.OutcomeShutdown, context.Canceled, ExitSuccess, ""},
		{"restart requested", engine.OutcomeRestart, nil, ExitRestart, "restart requested"},
		{"source failure", engine.OutcomeShutdown, &engine.RuntimeError{Code: engine.ErrCodeSourceFailure, Err: boom}, ExitRestart, "event source failed"},
		{"machine failure", engine.OutcomeShutdown, &engine.RuntimeError{Code: engine.ErrCodeMachineFailure, State: "open", Err: boom}, ExitFailure, "state machine failed"},
		{"other error", engine.OutcomeShutdown, boom, ExitFailure, "engine error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := daemonExit(quietLogger(), tt.outcome, tt.err, 3)
			if tt.code == ExitSuccess {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.code, GetExitCode(err))
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, tt.message, exitErr.Message)
			if tt.err != nil {
				assert.ErrorIs(t, err, boom)
			}
		})
	}
}
