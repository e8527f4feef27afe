// Package daemon implements the background process that owns the monitor.
package daemon

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Prashants23/Boundly/internal/domain"
	"github.com/Prashants23/Boundly/internal/usecase"
)

// RetainUsageDays is how much usage history survives the daily prune.
const RetainUsageDays = 30

// RunnerConfig holds daemon loop configuration.
type RunnerConfig struct {
	HeartbeatInterval time.Duration // How often to refresh the registry heartbeat
	PruneInterval     time.Duration // How often to drop old usage rows
}

// DefaultRunnerConfig returns default runner configuration.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		HeartbeatInterval: 30 * time.Second,
		PruneInterval:     6 * time.Hour,
	}
}

// Runner wires the monitor into a long-lived daemon process: registry
// registration, heartbeats and usage-history pruning around the monitor's
// own loop.
type Runner struct {
	config     RunnerConfig
	monitor    *usecase.Monitor
	registry   domain.DaemonRegistry
	usageStore domain.UsageStore
	info       domain.DaemonInfo
	logger     *zap.Logger
}

// NewRunner creates a daemon runner.
func NewRunner(
	config RunnerConfig,
	monitor *usecase.Monitor,
	registry domain.DaemonRegistry,
	usageStore domain.UsageStore,
	info domain.DaemonInfo,
	logger *zap.Logger,
) *Runner {
	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = DefaultRunnerConfig().HeartbeatInterval
	}
	if config.PruneInterval <= 0 {
		config.PruneInterval = DefaultRunnerConfig().PruneInterval
	}
	return &Runner{
		config:     config,
		monitor:    monitor,
		registry:   registry,
		usageStore: usageStore,
		info:       info,
		logger:     logger,
	}
}

// Run starts the daemon loop. Blocks until ctx is canceled.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.registry.Register(r.info); err != nil {
		r.logger.Error("failed to register daemon", zap.Error(err))
		return err
	}

	r.logger.Info("daemon started",
		zap.Int("pid", r.info.PID),
		zap.String("version", r.info.AppVersion))

	r.monitor.Start(ctx)
	defer r.monitor.Stop()

	r.pruneUsage()

	heartbeatTicker := time.NewTicker(r.config.HeartbeatInterval)
	pruneTicker := time.NewTicker(r.config.PruneInterval)
	defer func() {
		heartbeatTicker.Stop()
		pruneTicker.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("daemon stopping")
			return ctx.Err()

		case <-heartbeatTicker.C:
			if err := r.registry.UpdateHeartbeat(); err != nil {
				r.logger.Warn("failed to update heartbeat", zap.Error(err))
			}

		case <-pruneTicker.C:
			r.pruneUsage()
		}
	}
}

// pruneUsage drops usage rows older than the retention window.
func (r *Runner) pruneUsage() {
	cutoff := time.Now().AddDate(0, 0, -RetainUsageDays)
	if err := r.usageStore.PruneBefore(cutoff); err != nil {
		r.logger.Warn("usage prune failed", zap.Error(err))
	}
}
