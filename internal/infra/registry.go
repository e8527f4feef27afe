package infra

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Prashants23/Boundly/internal/domain"
)

const registryDir = "/var/tmp"

// FileRegistry implements domain.DaemonRegistry using a hidden JSON file.
// The CLI discovers the daemon through it; the daemon refreshes a heartbeat
// so stale entries can be distinguished from live ones.
type FileRegistry struct {
	path           string
	processManager domain.ProcessManager
}

// NewFileRegistry creates a file-based daemon registry. The filename is
// derived from the hostname so parallel users don't collide.
func NewFileRegistry(pm domain.ProcessManager) domain.DaemonRegistry {
	hostname, _ := os.Hostname()
	hash := md5.Sum([]byte("boundly-registry-" + hostname))
	filename := ".boundly_" + hex.EncodeToString(hash[:])[:8]

	return &FileRegistry{
		path:           filepath.Join(registryDir, filename),
		processManager: pm,
	}
}

// NewFileRegistryWithPath creates a registry at a specific path (for testing).
func NewFileRegistryWithPath(path string, pm domain.ProcessManager) domain.DaemonRegistry {
	return &FileRegistry{
		path:           path,
		processManager: pm,
	}
}

// GetRegistryPath returns the hidden registry file path.
func (r *FileRegistry) GetRegistryPath() string {
	return r.path
}

// Register saves the daemon's PID and process name.
func (r *FileRegistry) Register(info domain.DaemonInfo) error {
	// File lock prevents a race between a starting daemon and the CLI.
	lockPath := r.path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	defer lockFile.Close()

	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer func() { _ = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN) }()

	entry := &domain.RegistryEntry{
		Version:       1,
		DaemonPID:     info.PID,
		DaemonName:    info.ProcessName,
		LastHeartbeat: time.Now().Unix(),
		AppVersion:    info.AppVersion,
	}

	return r.atomicWrite(entry)
}

// UpdateHeartbeat updates the liveness timestamp.
func (r *FileRegistry) UpdateHeartbeat() error {
	entry, err := r.Get()
	if err != nil {
		return err
	}

	entry.LastHeartbeat = time.Now().Unix()
	return r.atomicWrite(entry)
}

// Get returns the registry state.
func (r *FileRegistry) Get() (*domain.RegistryEntry, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no daemon registered")
		}
		return nil, err
	}

	var entry domain.RegistryEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}

	return &entry, nil
}

// IsDaemonAlive checks if the registered daemon is running via PID.
func (r *FileRegistry) IsDaemonAlive() (bool, error) {
	entry, err := r.Get()
	if err != nil {
		return false, nil // Not registered = not alive
	}
	if entry.DaemonPID == 0 {
		return false, nil
	}

	return r.processManager.IsRunning(entry.DaemonPID), nil
}

// Clear removes the registry file.
func (r *FileRegistry) Clear() error {
	return os.Remove(r.path)
}

// atomicWrite writes registry to file atomically (write + rename).
func (r *FileRegistry) atomicWrite(entry *domain.RegistryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	// Write to temp file first (unique per process to avoid race)
	tmpPath := fmt.Sprintf("%s.%d.tmp", r.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	// Atomic rename
	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath) // Clean up on failure
		return err
	}
	return nil
}

// Ensure FileRegistry implements domain.DaemonRegistry.
var _ domain.DaemonRegistry = (*FileRegistry)(nil)
