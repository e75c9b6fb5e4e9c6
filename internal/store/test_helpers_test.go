package store

import (
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/roach88/doorbot/internal/testutil"
)

// createTestStore creates a new store in a temp directory with cheap
// hashing, fixed IDs and a manual clock.
func createTestStore(t *testing.T) (*Store, *testutil.ManualClock) {
	t.Helper()
	clock := testutil.NewManualClock()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path,
		WithBcryptCost(bcrypt.MinCost),
		WithIDGenerator(testutil.NewFixedIDGenerator("ev")),
		WithNow(clock.Now),
	)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, clock
}
