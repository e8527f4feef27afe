// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// MaxDailyUsage caps per-package usage readings. The usage source occasionally
// reports more foreground time than a day contains; comparisons use the
// clamped value.
const MaxDailyUsage = 24 * time.Hour

// LimitEntry assigns a daily usage limit to a package.
// A LimitMs of 0 means the package is not limited and is excluded from
// monitoring entirely.
type LimitEntry struct {
	PackageName string
	LimitMs     int64
}

// Limited reports whether this entry participates in monitoring.
func (e LimitEntry) Limited() bool {
	return e.LimitMs > 0
}

// UsageSample is a transient reading of today's foreground time for one
// package, anchored at local midnight. Samples are re-queried every tick and
// never mutated by the app.
type UsageSample struct {
	PackageName string
	UsageMs     int64
}

// ForegroundApp identifies the package currently owning the screen.
type ForegroundApp struct {
	PackageName string
	AppName     string
}

// BlockState describes which app is currently being redirected away from,
// and why. It is derived state: created when a limited, foregrounded
// package's usage meets its limit, cleared on dismissal or when the
// foreground package changes. Never persisted.
type BlockState struct {
	PackageName string
	AppName     string
	UsageMs     int64
	LimitMs     int64
}

// OverBy returns how far past its limit the blocked package is.
func (b BlockState) OverBy() int64 {
	return b.UsageMs - b.LimitMs
}

// MonitorPhase identifies the monitor's lifecycle state.
type MonitorPhase string

const (
	// PhaseIdle means no limited packages exist and no polling occurs.
	PhaseIdle MonitorPhase = "idle"
	// PhaseArmed means polling is active and no block is in effect.
	PhaseArmed MonitorPhase = "armed"
	// PhaseBlocked means a BlockState is set and a redirect was issued.
	PhaseBlocked MonitorPhase = "blocked"
)

// DaemonInfo represents the running boundly daemon process.
type DaemonInfo struct {
	PID         int
	ProcessName string
	StartedAt   time.Time
	AppVersion  string
}

// RegistryEntry stores daemon state for discovery by the CLI.
// Persisted to a hidden file.
type RegistryEntry struct {
	Version       int    `json:"version"`
	DaemonPID     int    `json:"daemon_pid"`
	DaemonName    string `json:"daemon_name"`
	LastHeartbeat int64  `json:"last_heartbeat"`
	AppVersion    string `json:"app_version,omitempty"`
}
