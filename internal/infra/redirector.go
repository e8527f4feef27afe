package infra

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Prashants23/Boundly/internal/domain"
)

// redirectTimeout bounds how long a blocker command may run before the
// monitor gives up on it. A hung command must not stall the tick loop.
const redirectTimeout = 5 * time.Second

// CommandRedirector implements domain.Redirector by launching a configured
// command, typically the Boundly UI or a notifier. Details of the block are
// passed through the environment so any script can present them.
type CommandRedirector struct {
	command string
	args    []string
	logger  *zap.Logger
}

// NewCommandRedirector creates a redirector that runs command with args on
// every transition into the blocked phase.
func NewCommandRedirector(command string, args []string, logger *zap.Logger) *CommandRedirector {
	return &CommandRedirector{
		command: command,
		args:    args,
		logger:  logger,
	}
}

// Redirect launches the blocker command. Best effort: a failed or missing
// command is an error for the caller to log, never to escalate.
func (r *CommandRedirector) Redirect(ctx context.Context, state domain.BlockState) error {
	if r.command == "" {
		return fmt.Errorf("no blocker command configured")
	}

	runCtx, cancel := context.WithTimeout(ctx, redirectTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.command, r.args...)
	cmd.Env = append(cmd.Environ(),
		"BOUNDLY_PACKAGE="+state.PackageName,
		"BOUNDLY_APP="+state.AppName,
		"BOUNDLY_USAGE_MS="+strconv.FormatInt(state.UsageMs, 10),
		"BOUNDLY_LIMIT_MS="+strconv.FormatInt(state.LimitMs, 10),
	)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("blocker command failed: %w", err)
	}

	r.logger.Debug("blocker command completed",
		zap.String("package", state.PackageName))
	return nil
}

// Ensure CommandRedirector implements domain.Redirector.
var _ domain.Redirector = (*CommandRedirector)(nil)

// LogRedirector implements domain.Redirector by only logging the block.
// Used when no blocker command is configured.
type LogRedirector struct {
	logger *zap.Logger
}

// NewLogRedirector creates a log-only redirector.
func NewLogRedirector(logger *zap.Logger) *LogRedirector {
	return &LogRedirector{logger: logger}
}

// Redirect logs the block state and succeeds.
func (r *LogRedirector) Redirect(_ context.Context, state domain.BlockState) error {
	r.logger.Info("usage limit reached",
		zap.String("package", state.PackageName),
		zap.String("app", state.AppName),
		zap.Int64("over_by_ms", state.OverBy()))
	return nil
}

// Ensure LogRedirector implements domain.Redirector.
var _ domain.Redirector = (*LogRedirector)(nil)
