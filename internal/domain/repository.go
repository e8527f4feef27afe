package domain

import (
	"context"
	"time"
)

// LimitStore provides access to configured daily limits.
// One entry per package name; setting a limit upserts, clearing deletes.
type LimitStore interface {
	// SetLimit creates or updates the limit for a package. limitMs must be >= 0.
	SetLimit(packageName string, limitMs int64) error

	// GetLimit returns the limit for a package, or (0, false) if none is set.
	GetLimit(packageName string) (int64, bool, error)

	// ClearLimit removes the limit entry for a package. Clearing a package
	// with no entry is not an error.
	ClearLimit(packageName string) error

	// ListLimits returns all entries with limitMs > 0, sorted by package name.
	ListLimits() ([]LimitEntry, error)

	// Close releases the underlying database connection.
	Close() error
}

// UsageStore persists accumulated per-package foreground time, keyed by
// local day. Implementations own the midnight rollover: queries for "today"
// are anchored at local midnight.
type UsageStore interface {
	// AddUsage adds deltaMs of foreground time to a package for the given day.
	AddUsage(day time.Time, packageName string, deltaMs int64) error

	// TodayUsage returns today's accumulated usage for a package, clamped to
	// MaxDailyUsage. A package with no recorded usage returns 0.
	TodayUsage(packageName string) (int64, error)

	// TodayAll returns today's samples for every tracked package, each
	// clamped to MaxDailyUsage, sorted by descending usage.
	TodayAll() ([]UsageSample, error)

	// PruneBefore removes usage rows older than the given day.
	PruneBefore(day time.Time) error

	// Close releases the underlying database connection.
	Close() error
}

// ForegroundDetector reports which package currently owns the screen.
// Implementations exclude the host app's own package before reporting.
type ForegroundDetector interface {
	// Current returns the foreground app, or nil if it cannot be determined
	// right now. nil with a nil error means "unknown", not a failure.
	Current() (*ForegroundApp, error)

	// IsAvailable checks if this detector can run on the current system.
	IsAvailable() bool

	// Name returns a short identifier for logs and status output.
	Name() string

	// Close cleans up any resources used by the detector.
	Close() error
}

// FocusEvent is delivered by an EventSource whenever the foreground
// package changes.
type FocusEvent struct {
	App        ForegroundApp
	OccurredAt time.Time
}

// EventSource delivers window-focus change notifications. This is the
// event-mode counterpart to polling: each event carries the newly active
// package directly.
type EventSource interface {
	// Subscribe returns a channel of focus events. The channel is closed
	// when ctx is canceled.
	Subscribe(ctx context.Context) (<-chan FocusEvent, error)

	// IsAvailable checks if event delivery works on the current system.
	IsAvailable() bool
}

// Redirector brings the user away from an over-limit app by surfacing the
// host UI. Best effort: errors are logged by callers, never escalated.
type Redirector interface {
	// Redirect is invoked once per transition into the blocked phase.
	Redirect(ctx context.Context, state BlockState) error
}

// ProcessManager handles OS process operations.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// GetCurrentPID returns the current process PID.
	GetCurrentPID() int
}

// DaemonRegistry provides daemon discovery for the CLI.
// Implementation: hidden JSON file with flock-protected writes.
type DaemonRegistry interface {
	// Register saves the daemon's PID and process name.
	Register(info DaemonInfo) error

	// UpdateHeartbeat updates the liveness timestamp.
	UpdateHeartbeat() error

	// Get returns the full registry state, or an error if none exists.
	Get() (*RegistryEntry, error)

	// IsDaemonAlive checks if the registered daemon is running via PID.
	IsDaemonAlive() (bool, error)

	// Clear removes the registry file.
	Clear() error

	// GetRegistryPath returns the hidden registry file path (for tests).
	GetRegistryPath() string
}

// KeyProvider abstracts the source of the store encryption key.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}

// Clock provides time information to the policy engine and stores.
// This interface allows time to be mocked in tests.
type Clock interface {
	Now() time.Time
}
