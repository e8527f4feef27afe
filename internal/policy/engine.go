// Package policy implements the blocking decision engine: the rules that
// decide, given the configured limits, the current foreground package and
// today's usage, whether the user should be redirected away from an app.
package policy

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Prashants23/Boundly/internal/domain"
)

// UsageFunc returns today's accumulated usage in milliseconds for a package.
type UsageFunc func(packageName string) (int64, error)

// Decision is the outcome of one evaluation tick.
type Decision struct {
	// Block is the single BlockState to act on, or nil.
	Block *domain.BlockState

	// Idle is set when no limited packages exist; the monitor should stop
	// polling until a limit is configured again.
	Idle bool
}

// Engine evaluates limits against usage and foreground identity.
// Evaluation is pure apart from the injected usage lookup; all state lives
// with the caller.
type Engine struct {
	hostPackage string
	logger      *zap.Logger
}

// NewEngine creates a decision engine. hostPackage is the app's own
// identifier; it is never blocked even if a limit row exists for it.
func NewEngine(hostPackage string, logger *zap.Logger) *Engine {
	return &Engine{
		hostPackage: hostPackage,
		logger:      logger,
	}
}

// Evaluate runs one decision tick.
//
// Rules:
//   - entries with limitMs == 0 are not limited and never block
//   - usage readings are clamped to domain.MaxDailyUsage before comparison
//   - a package blocks when clamped usage >= limit and it matches the
//     current foreground identity, or the foreground is unknown
//   - when the foreground is unknown and a previous BlockState exists, only
//     the previously flagged package is re-checked
//   - when several packages qualify at once, the most-over-limit one wins;
//     equal overage breaks ties by package name for determinism
//
// A usage lookup error skips that package for this tick and is logged; the
// next tick retries unconditionally.
func (e *Engine) Evaluate(limits []domain.LimitEntry, foreground *domain.ForegroundApp, usage UsageFunc, prev *domain.BlockState) Decision {
	limited := e.Limited(limits)
	if len(limited) == 0 {
		return Decision{Idle: true}
	}

	candidates := limited
	if foreground == nil && prev != nil {
		candidates = nil
		for _, entry := range limited {
			if entry.PackageName == prev.PackageName {
				candidates = append(candidates, entry)
				break
			}
		}
	}

	var over []domain.BlockState
	for _, entry := range candidates {
		if foreground != nil && entry.PackageName != foreground.PackageName {
			continue
		}

		usageMs, err := usage(entry.PackageName)
		if err != nil {
			e.logger.Warn("usage lookup failed, skipping package this tick",
				zap.String("package", entry.PackageName),
				zap.Error(err))
			continue
		}

		usageMs = ClampUsage(usageMs)
		if usageMs < entry.LimitMs {
			continue
		}

		over = append(over, domain.BlockState{
			PackageName: entry.PackageName,
			AppName:     e.appNameFor(entry.PackageName, foreground, prev),
			UsageMs:     usageMs,
			LimitMs:     entry.LimitMs,
		})
	}

	if len(over) == 0 {
		return Decision{}
	}

	// Most-over-limit first, package name as a stable tie-break.
	sort.Slice(over, func(i, j int) bool {
		if over[i].OverBy() != over[j].OverBy() {
			return over[i].OverBy() > over[j].OverBy()
		}
		return over[i].PackageName < over[j].PackageName
	})

	block := over[0]
	return Decision{Block: &block}
}

// Limited filters down to the entries that participate in monitoring:
// limitMs > 0 and not the host app itself.
func (e *Engine) Limited(limits []domain.LimitEntry) []domain.LimitEntry {
	limited := make([]domain.LimitEntry, 0, len(limits))
	for _, entry := range limits {
		if entry.Limited() && entry.PackageName != e.hostPackage {
			limited = append(limited, entry)
		}
	}
	return limited
}

// appNameFor picks the friendliest display name available for a package.
func (e *Engine) appNameFor(packageName string, foreground *domain.ForegroundApp, prev *domain.BlockState) string {
	if foreground != nil && foreground.PackageName == packageName && foreground.AppName != "" {
		return foreground.AppName
	}
	if prev != nil && prev.PackageName == packageName && prev.AppName != "" {
		return prev.AppName
	}
	if idx := strings.LastIndex(packageName, "."); idx >= 0 && idx < len(packageName)-1 {
		return packageName[idx+1:]
	}
	return packageName
}

// ClampUsage caps a usage reading at MaxDailyUsage milliseconds. Negative
// readings collapse to zero.
func ClampUsage(usageMs int64) int64 {
	maxMs := domain.MaxDailyUsage.Milliseconds()
	if usageMs > maxMs {
		return maxMs
	}
	if usageMs < 0 {
		return 0
	}
	return usageMs
}
