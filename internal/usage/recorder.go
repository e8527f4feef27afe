// Package usage accumulates per-app foreground time into the usage store.
// The recorder is the local stand-in for a platform usage-stats service:
// it observes the foreground app once per monitor tick and credits the
// elapsed interval to whichever package held the screen.
package usage

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Prashants23/Boundly/internal/domain"
)

// DefaultMaxGap is the longest interval credited between two observations.
// Anything longer means the machine was asleep or the daemon was stopped;
// crediting it would inflate usage.
const DefaultMaxGap = 30 * time.Second

// Recorder turns a stream of foreground observations into per-day usage rows.
// Single writer: only the monitor goroutine calls Observe; Flush may be
// called from shutdown, hence the mutex.
type Recorder struct {
	store  domain.UsageStore
	clock  domain.Clock
	maxGap time.Duration
	logger *zap.Logger

	mu       sync.Mutex
	lastSeen time.Time
	lastPkg  string
}

// NewRecorder creates a recorder. maxGap <= 0 selects DefaultMaxGap.
func NewRecorder(store domain.UsageStore, clock domain.Clock, maxGap time.Duration, logger *zap.Logger) *Recorder {
	if maxGap <= 0 {
		maxGap = DefaultMaxGap
	}
	return &Recorder{
		store:  store,
		clock:  clock,
		maxGap: maxGap,
		logger: logger,
	}
}

// Observe records that fg (possibly nil for "no foreground app") owns the
// screen now. The interval since the previous observation is credited to the
// previously observed package, split across local midnight when the interval
// straddles a day boundary.
func (r *Recorder) Observe(fg *domain.ForegroundApp) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	err := r.creditLocked(now)

	if fg != nil {
		r.lastPkg = fg.PackageName
	} else {
		r.lastPkg = ""
	}
	r.lastSeen = now
	return err
}

// Flush closes the open interval, crediting time up to now to the last
// observed package. Called on shutdown so the tail of a session is not lost.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.creditLocked(r.clock.Now())
	r.lastPkg = ""
	r.lastSeen = time.Time{}
	return err
}

// creditLocked adds the elapsed interval to the last observed package.
// Caller holds r.mu.
func (r *Recorder) creditLocked(now time.Time) error {
	if r.lastPkg == "" || r.lastSeen.IsZero() {
		return nil
	}

	delta := now.Sub(r.lastSeen)
	if delta <= 0 {
		return nil
	}
	if delta > r.maxGap {
		r.logger.Debug("dropping oversized usage interval",
			zap.String("package", r.lastPkg),
			zap.Duration("gap", delta))
		return nil
	}

	midnight := LocalMidnight(now)
	if r.lastSeen.Before(midnight) {
		// Interval straddles midnight: split the credit across both days.
		before := midnight.Sub(r.lastSeen)
		after := now.Sub(midnight)
		if err := r.store.AddUsage(r.lastSeen, r.lastPkg, before.Milliseconds()); err != nil {
			return err
		}
		return r.store.AddUsage(now, r.lastPkg, after.Milliseconds())
	}

	return r.store.AddUsage(now, r.lastPkg, delta.Milliseconds())
}

// LocalMidnight returns the start of t's day in t's location.
func LocalMidnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
