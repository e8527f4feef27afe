package infra

import (
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// mockProcessManager implements domain.ProcessManager for testing.
type mockProcessManager struct {
	running map[int]bool
}

func newMockProcessManager() *mockProcessManager {
	return &mockProcessManager{running: make(map[int]bool)}
}

func (m *mockProcessManager) IsRunning(pid int) bool {
	return m.running[pid]
}

func (m *mockProcessManager) GetCurrentPID() int {
	return os.Getpid()
}

// testClock is a fixed clock for store tests.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

// newTestDB opens an encrypted database in a temp directory.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dataDir := t.TempDir()
	key, err := GenerateKey()
	require.NoError(t, err)

	db, err := OpenEncryptedDB(dataDir, key)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return db
}
