// Package usecase contains application business logic.
package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Prashants23/Boundly/internal/domain"
	"github.com/Prashants23/Boundly/internal/metrics"
	"github.com/Prashants23/Boundly/internal/policy"
	"github.com/Prashants23/Boundly/internal/usage"
)

// MonitorConfig holds monitor loop configuration.
type MonitorConfig struct {
	PollInterval        time.Duration // How often to evaluate limits (default 2s)
	IdleRecheckInterval time.Duration // How often to re-read limits while idle
}

// DefaultMonitorConfig returns default monitor configuration.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		PollInterval:        2 * time.Second,
		IdleRecheckInterval: 30 * time.Second,
	}
}

// Monitor drives the blocking decision engine. One goroutine owns all
// transient state (phase, current BlockState); readers get copies through
// the mutex. The loop is driven by a single poll ticker plus, when an event
// source is configured, focus-change events.
//
// Lifecycle: idle (no limited packages, only slow limit re-checks) <-> armed
// (polling) <-> blocked (BlockState set, redirect issued). Limit changes
// take effect on whichever tick comes next; there is no synchronization
// barrier with the store.
type Monitor struct {
	config     MonitorConfig
	engine     *policy.Engine
	limits     domain.LimitStore
	recorder   *usage.Recorder
	usageStore domain.UsageStore
	detector   domain.ForegroundDetector
	events     domain.EventSource // optional
	redirector domain.Redirector
	logger     *zap.Logger

	mu     sync.Mutex
	phase  domain.MonitorPhase
	block  *domain.BlockState
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a monitor. events may be nil, in which case the monitor
// runs purely on the poll ticker.
func NewMonitor(
	config MonitorConfig,
	engine *policy.Engine,
	limits domain.LimitStore,
	recorder *usage.Recorder,
	usageStore domain.UsageStore,
	detector domain.ForegroundDetector,
	events domain.EventSource,
	redirector domain.Redirector,
	logger *zap.Logger,
) *Monitor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultMonitorConfig().PollInterval
	}
	if config.IdleRecheckInterval <= 0 {
		config.IdleRecheckInterval = DefaultMonitorConfig().IdleRecheckInterval
	}
	return &Monitor{
		config:     config,
		engine:     engine,
		limits:     limits,
		recorder:   recorder,
		usageStore: usageStore,
		detector:   detector,
		events:     events,
		redirector: redirector,
		logger:     logger,
		phase:      domain.PhaseIdle,
	}
}

// Start launches the monitor loop. Idempotent: starting a running monitor is
// a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.run(runCtx, m.done)
}

// Stop cancels the loop and waits for it to exit. Idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// IsActive reports whether the monitor loop is running.
func (m *Monitor) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

// Phase returns the current lifecycle phase.
func (m *Monitor) Phase() domain.MonitorPhase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Current returns a copy of the active BlockState, or nil.
func (m *Monitor) Current() *domain.BlockState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.block == nil {
		return nil
	}
	copied := *m.block
	return &copied
}

// Dismiss clears the active BlockState. It does not suppress re-emission: if
// the package is still foreground and still over limit, the next tick blocks
// it again and issues a fresh redirect.
func (m *Monitor) Dismiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.block != nil {
		m.logger.Info("block dismissed", zap.String("package", m.block.PackageName))
		m.block = nil
		m.phase = domain.PhaseArmed
	}
}

// run is the monitor loop. Single goroutine; ticks and events are serialized
// by the select, so evaluation is never reentrant.
func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	pollTicker := time.NewTicker(m.config.PollInterval)
	idleTicker := time.NewTicker(m.config.IdleRecheckInterval)
	defer pollTicker.Stop()
	defer idleTicker.Stop()

	var eventCh <-chan domain.FocusEvent
	if m.events != nil && m.events.IsAvailable() {
		ch, err := m.events.Subscribe(ctx)
		if err != nil {
			m.logger.Warn("focus event subscription failed, falling back to polling only", zap.Error(err))
		} else {
			eventCh = ch
			m.logger.Info("focus event subscription active")
		}
	}

	metrics.MonitoringActive.Set(1)
	defer metrics.MonitoringActive.Set(0)

	m.logger.Info("monitor started",
		zap.Duration("poll_interval", m.config.PollInterval))

	// Evaluate immediately instead of waiting a full interval.
	m.tick(ctx, nil)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopping")
			m.flushRecorder()
			return

		case <-pollTicker.C:
			if m.Phase() != domain.PhaseIdle {
				m.tick(ctx, nil)
			}

		case <-idleTicker.C:
			// While idle the only work is noticing that a limit appeared.
			if m.Phase() == domain.PhaseIdle {
				m.tick(ctx, nil)
			}

		case ev, ok := <-eventCh:
			if !ok {
				eventCh = nil
				m.logger.Warn("focus event channel closed, polling only from here on")
				continue
			}
			app := ev.App
			m.tick(ctx, &app)
		}
	}
}

// tick runs one evaluation. fromEvent carries the foreground identity when
// the tick was triggered by a focus-change event; otherwise the detector is
// queried. Any collaborator error degrades to "no block this tick".
func (m *Monitor) tick(ctx context.Context, fromEvent *domain.ForegroundApp) {
	metrics.TicksTotal.Inc()

	limits, err := m.limits.ListLimits()
	if err != nil {
		m.logger.Warn("limit lookup failed, skipping tick", zap.Error(err))
		return
	}

	// With nothing limited there is nothing to detect or record; go idle
	// without touching the detector or the usage store.
	if len(m.engine.Limited(limits)) == 0 {
		m.apply(ctx, policy.Decision{Idle: true}, nil)
		return
	}

	foreground := fromEvent
	if foreground == nil {
		foreground, err = m.detector.Current()
		if err != nil {
			metrics.DetectorErrors.Inc()
			m.logger.Warn("foreground detection failed", zap.Error(err))
			foreground = nil
		}
	}

	if m.recorder != nil {
		if err := m.recorder.Observe(foreground); err != nil {
			m.logger.Warn("usage recording failed", zap.Error(err))
		}
	}

	usageFn := func(pkg string) (int64, error) {
		return m.usageStore.TodayUsage(pkg)
	}

	m.mu.Lock()
	prev := m.block
	m.mu.Unlock()

	decision := m.engine.Evaluate(limits, foreground, usageFn, prev)
	m.apply(ctx, decision, foreground)
}

// apply commits a decision, handling phase transitions and redirect issuance.
func (m *Monitor) apply(ctx context.Context, decision policy.Decision, foreground *domain.ForegroundApp) {
	m.mu.Lock()

	if decision.Idle {
		if m.phase != domain.PhaseIdle {
			m.logger.Info("no limited packages, monitor idling")
		}
		m.phase = domain.PhaseIdle
		m.block = nil
		m.mu.Unlock()
		return
	}

	if decision.Block == nil {
		if m.phase == domain.PhaseBlocked {
			m.logger.Info("block conditions no longer hold",
				zap.String("package", m.block.PackageName))
		}
		m.phase = domain.PhaseArmed
		m.block = nil
		m.mu.Unlock()
		return
	}

	newBlock := m.block == nil || m.block.PackageName != decision.Block.PackageName
	m.block = decision.Block
	m.phase = domain.PhaseBlocked
	state := *decision.Block
	m.mu.Unlock()

	if !newBlock {
		return
	}

	metrics.BlocksTotal.Inc()
	m.logger.Info("limit exceeded, redirecting",
		zap.String("package", state.PackageName),
		zap.String("app", state.AppName),
		zap.Int64("usage_ms", state.UsageMs),
		zap.Int64("limit_ms", state.LimitMs))

	if err := m.redirector.Redirect(ctx, state); err != nil {
		m.logger.Warn("redirect failed", zap.Error(err))
	}
}

func (m *Monitor) flushRecorder() {
	if m.recorder == nil {
		return
	}
	if err := m.recorder.Flush(); err != nil {
		m.logger.Warn("usage flush on shutdown failed", zap.Error(err))
	}
}
