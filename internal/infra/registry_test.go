package infra

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Prashants23/Boundly/internal/domain"
)

func newTestRegistry(t *testing.T, pm *mockProcessManager) domain.DaemonRegistry {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".registry")
	return NewFileRegistryWithPath(path, pm)
}

func TestFileRegistry_RegisterAndGet(t *testing.T) {
	reg := newTestRegistry(t, newMockProcessManager())

	err := reg.Register(domain.DaemonInfo{
		PID:         1234,
		ProcessName: "boundly-daemon",
		AppVersion:  "0.1.0",
	})
	require.NoError(t, err)

	entry, err := reg.Get()
	require.NoError(t, err)
	assert.Equal(t, 1234, entry.DaemonPID)
	assert.Equal(t, "boundly-daemon", entry.DaemonName)
	assert.Equal(t, "0.1.0", entry.AppVersion)
	assert.NotZero(t, entry.LastHeartbeat)
}

func TestFileRegistry_GetWithoutRegister(t *testing.T) {
	reg := newTestRegistry(t, newMockProcessManager())

	_, err := reg.Get()
	assert.Error(t, err)
}

func TestFileRegistry_IsDaemonAlive(t *testing.T) {
	pm := newMockProcessManager()
	reg := newTestRegistry(t, pm)

	// Not registered = not alive, no error.
	alive, err := reg.IsDaemonAlive()
	require.NoError(t, err)
	assert.False(t, alive)

	require.NoError(t, reg.Register(domain.DaemonInfo{PID: 1234, ProcessName: "boundly-daemon"}))

	alive, err = reg.IsDaemonAlive()
	require.NoError(t, err)
	assert.False(t, alive, "registered but dead PID")

	pm.running[1234] = true
	alive, err = reg.IsDaemonAlive()
	require.NoError(t, err)
	assert.True(t, alive)
}

func TestFileRegistry_UpdateHeartbeat(t *testing.T) {
	reg := newTestRegistry(t, newMockProcessManager())

	require.NoError(t, reg.Register(domain.DaemonInfo{PID: 1, ProcessName: "boundly-daemon"}))

	entry, err := reg.Get()
	require.NoError(t, err)
	first := entry.LastHeartbeat

	require.NoError(t, reg.UpdateHeartbeat())

	entry, err = reg.Get()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, entry.LastHeartbeat, first)
}

func TestFileRegistry_Clear(t *testing.T) {
	reg := newTestRegistry(t, newMockProcessManager())

	require.NoError(t, reg.Register(domain.DaemonInfo{PID: 1, ProcessName: "boundly-daemon"}))
	require.NoError(t, reg.Clear())

	_, err := os.Stat(reg.GetRegistryPath())
	assert.True(t, os.IsNotExist(err))
}
