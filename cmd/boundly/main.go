// Package main is the CLI entry point for boundly.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Prashants23/Boundly/internal/config"
	"github.com/Prashants23/Boundly/internal/daemon"
	"github.com/Prashants23/Boundly/internal/detect"
	"github.com/Prashants23/Boundly/internal/domain"
	"github.com/Prashants23/Boundly/internal/infra"
	"github.com/Prashants23/Boundly/internal/metrics"
	"github.com/Prashants23/Boundly/internal/policy"
	"github.com/Prashants23/Boundly/internal/usage"
	"github.com/Prashants23/Boundly/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "boundly",
	Short: "Daily screen-time limits for applications",
	Long: `boundly monitors which application is in the foreground, records how
long each one is used per day, and redirects you back to the host app
once a daily limit is reached. Limits reset at local midnight.`,
	Version: Version,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the monitoring daemon in the background",
	Long: `Launches the boundly daemon as a detached background process.
The daemon polls the foreground application, accumulates per-day usage,
and blocks applications that exceed their configured daily limit.`,
	RunE: runStart,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the monitoring daemon",
	RunE:  runStop,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status and configured limits",
	RunE:  runStatus,
}

var limitCmd = &cobra.Command{
	Use:   "limit",
	Short: "Manage daily usage limits",
}

var limitSetCmd = &cobra.Command{
	Use:   "set <package> <limit>",
	Short: "Set a daily limit for a package",
	Long: `Sets the daily usage limit for a package. The limit is a Go duration
("45m", "1h30m") or a raw millisecond count. A limit of 0 removes the
restriction (unlimited).`,
	Args: cobra.ExactArgs(2),
	RunE: runLimitSet,
}

var limitClearCmd = &cobra.Command{
	Use:   "clear <package>",
	Short: "Remove the limit for a package",
	Args:  cobra.ExactArgs(1),
	RunE:  runLimitClear,
}

var limitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured limits",
	RunE:  runLimitList,
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show today's per-package usage",
	RunE:  runUsage,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one evaluation pass and print the decision",
	Long: `Reads the configured limits, detects the current foreground
application, and prints what the daemon would decide right now. Does not
record usage or redirect.`,
	RunE: runCheck,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

// Hidden daemon command - used for self-exec when spawning the daemon
var daemonCmd = &cobra.Command{
	Use:    "daemon",
	Hidden: true,
	RunE:   runDaemon,
}

var (
	configPath string
	jsonOutput bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	limitCmd.AddCommand(limitSetCmd)
	limitCmd.AddCommand(limitClearCmd)
	limitCmd.AddCommand(limitListCmd)

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(limitCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(daemonCmd)
}

// openDB ensures the encryption key exists and opens the encrypted store.
// Callers own the returned close func.
func openDB(cfg *config.Config) (*infra.SQLLimitStore, *infra.SQLUsageStore, func(), error) {
	provider := infra.NewFileKeyProvider(cfg.DataDir)
	key, err := infra.EnsureKey(provider)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to prepare encryption key: %w", err)
	}

	db, err := infra.OpenEncryptedDB(cfg.DataDir, key)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open store: %w", err)
	}

	limits := infra.NewSQLLimitStore(db)
	usageStore := infra.NewSQLUsageStore(db, policy.RealClock{})
	return limits, usageStore, func() { _ = db.Close() }, nil
}

// parseLimit accepts a Go duration ("45m") or a raw millisecond count.
func parseLimit(arg string) (int64, error) {
	if d, err := time.ParseDuration(arg); err == nil {
		if d < 0 {
			return 0, fmt.Errorf("limit must not be negative: %s", arg)
		}
		return d.Milliseconds(), nil
	}
	ms, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid limit %q: use a duration like 45m or milliseconds", arg)
	}
	if ms < 0 {
		return 0, fmt.Errorf("limit must not be negative: %s", arg)
	}
	return ms, nil
}

func formatLimit(limitMs int64) string {
	if limitMs <= 0 {
		return "unlimited"
	}
	return (time.Duration(limitMs) * time.Millisecond).Round(time.Second).String()
}

func runStart(cmd *cobra.Command, args []string) error {
	pm := infra.NewProcessManager()
	registry := infra.NewFileRegistry(pm)

	if alive, _ := registry.IsDaemonAlive(); alive {
		fmt.Println("boundly is already running")
		return nil
	}

	if err := daemon.StartDetached(configPath); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	// Wait a moment for the daemon to register
	time.Sleep(500 * time.Millisecond)

	fmt.Println("\n=== boundly Started ===")
	if entry, err := registry.Get(); err == nil {
		fmt.Printf("Daemon PID: %d\n", entry.DaemonPID)
	}
	fmt.Println("Status: MONITORING")
	fmt.Println("\nUse 'boundly limit set <package> <limit>' to add limits.")
	fmt.Println("=======================")
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	pm := infra.NewProcessManager()
	registry := infra.NewFileRegistry(pm)

	entry, err := registry.Get()
	if err != nil {
		fmt.Println("boundly is not running")
		return nil
	}

	if !pm.IsRunning(entry.DaemonPID) {
		fmt.Println("boundly is not running (stale registry entry cleared)")
		return registry.Clear()
	}

	if err := syscall.Kill(entry.DaemonPID, syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal daemon (pid %d): %w", entry.DaemonPID, err)
	}

	// Give the daemon time to flush and exit
	for i := 0; i < 30; i++ {
		if !pm.IsRunning(entry.DaemonPID) {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	if pm.IsRunning(entry.DaemonPID) {
		return fmt.Errorf("daemon (pid %d) did not exit", entry.DaemonPID)
	}

	fmt.Println("boundly stopped")
	return registry.Clear()
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	pm := infra.NewProcessManager()
	registry := infra.NewFileRegistry(pm)

	fmt.Println("\n=== boundly Status ===")

	entry, err := registry.Get()
	if err != nil {
		fmt.Println("Status: NOT RUNNING")
		fmt.Println("\nRun 'boundly start' to begin monitoring.")
		fmt.Println("======================")
		return nil
	}

	if pm.IsRunning(entry.DaemonPID) {
		fmt.Println("Status: RUNNING")
		fmt.Printf("Daemon PID: %d\n", entry.DaemonPID)
	} else {
		fmt.Println("Status: NOT RUNNING (stale registry entry)")
	}

	if entry.LastHeartbeat > 0 {
		lastBeat := time.Unix(entry.LastHeartbeat, 0)
		fmt.Printf("Last heartbeat: %s ago\n", time.Since(lastBeat).Round(time.Second))
	}

	limits, _, closeDB, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	entries, err := limits.ListLimits()
	if err != nil {
		return fmt.Errorf("failed to list limits: %w", err)
	}

	fmt.Println("\nConfigured limits:")
	if len(entries) == 0 {
		fmt.Println("  (none)")
	}
	for _, e := range entries {
		fmt.Printf("  - %-40s %s/day\n", e.PackageName, formatLimit(e.LimitMs))
	}

	fmt.Println("======================")
	return nil
}

func runLimitSet(cmd *cobra.Command, args []string) error {
	packageName := args[0]
	if packageName == config.HostPackage {
		return fmt.Errorf("cannot limit the host application")
	}

	limitMs, err := parseLimit(args[1])
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	limits, _, closeDB, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := limits.SetLimit(packageName, limitMs); err != nil {
		return fmt.Errorf("failed to set limit: %w", err)
	}

	if limitMs == 0 {
		fmt.Printf("Limit removed for %s (unlimited)\n", packageName)
	} else {
		fmt.Printf("Daily limit for %s set to %s\n", packageName, formatLimit(limitMs))
	}
	fmt.Println("The running daemon picks this up on its next check.")
	return nil
}

func runLimitClear(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	limits, _, closeDB, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := limits.ClearLimit(args[0]); err != nil {
		return fmt.Errorf("failed to clear limit: %w", err)
	}

	fmt.Printf("Limit cleared for %s\n", args[0])
	return nil
}

func runLimitList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	limits, _, closeDB, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	entries, err := limits.ListLimits()
	if err != nil {
		return fmt.Errorf("failed to list limits: %w", err)
	}

	fmt.Println("\n=== Daily Limits ===")
	if len(entries) == 0 {
		fmt.Println("(none configured)")
	}
	for _, e := range entries {
		fmt.Printf("%-40s %s\n", e.PackageName, formatLimit(e.LimitMs))
	}
	fmt.Println("====================")
	return nil
}

func runUsage(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	limits, usageStore, closeDB, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	samples, err := usageStore.TodayAll()
	if err != nil {
		return fmt.Errorf("failed to read usage: %w", err)
	}

	fmt.Printf("\n=== Usage for %s ===\n", time.Now().Format("2006-01-02"))
	if len(samples) == 0 {
		fmt.Println("(no usage recorded today)")
	}
	for _, s := range samples {
		used := (time.Duration(s.UsageMs) * time.Millisecond).Round(time.Second)
		limitMs, limited, err := limits.GetLimit(s.PackageName)
		if err == nil && limited && limitMs > 0 {
			fmt.Printf("%-40s %-10s of %s\n", s.PackageName, used, formatLimit(limitMs))
		} else {
			fmt.Printf("%-40s %s\n", s.PackageName, used)
		}
	}
	fmt.Println("=========================")
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	limits, usageStore, closeDB, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	entries, err := limits.ListLimits()
	if err != nil {
		return fmt.Errorf("failed to list limits: %w", err)
	}

	engine := policy.NewEngine(config.HostPackage, logger)
	if len(engine.Limited(entries)) == 0 {
		fmt.Println("\nNo limits configured; nothing to check.")
		return nil
	}

	detector, err := detect.New(detect.ModePoll, config.HostPackage, nil, logger)
	if err != nil {
		return err
	}
	defer func() { _ = detector.Close() }()

	foreground, err := detector.Current()
	if err != nil {
		fmt.Printf("Foreground detection failed: %v\n", err)
		foreground = nil
	}

	decision := engine.Evaluate(entries, foreground, usageStore.TodayUsage, nil)

	fmt.Println("\n=== Check ===")
	if foreground != nil {
		fmt.Printf("Foreground: %s (%s)\n", foreground.PackageName, foreground.AppName)
	} else {
		fmt.Println("Foreground: unknown")
	}
	switch {
	case decision.Idle:
		fmt.Println("Decision: idle (no limited packages)")
	case decision.Block != nil:
		b := decision.Block
		fmt.Printf("Decision: BLOCK %s\n", b.PackageName)
		fmt.Printf("  Used %s of %s (over by %s)\n",
			(time.Duration(b.UsageMs) * time.Millisecond).Round(time.Second),
			formatLimit(b.LimitMs),
			(time.Duration(b.OverBy()) * time.Millisecond).Round(time.Second))
	default:
		fmt.Println("Decision: allow")
	}
	fmt.Println("=============")
	return nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := createLogger(cfg)
	defer func() { _ = logger.Sync() }()

	logger.Info("daemon starting",
		zap.String("version", Version),
		zap.Int("pid", os.Getpid()))

	limits, usageStore, closeDB, err := openDB(cfg)
	if err != nil {
		logger.Error("failed to open store", zap.Error(err))
		return err
	}
	defer closeDB()

	source := detect.PlatformSource()
	detector, err := detect.New(detect.Mode(cfg.DetectorMode), config.HostPackage, source, logger)
	if err != nil {
		logger.Error("failed to create detector", zap.Error(err))
		return err
	}
	defer func() { _ = detector.Close() }()

	var redirector domain.Redirector
	if cfg.BlockerCommand != "" {
		redirector = infra.NewCommandRedirector(cfg.BlockerCommand, cfg.BlockerArgs, logger)
	} else {
		redirector = infra.NewLogRedirector(logger)
	}

	metrics.Register()
	metricsListener, err := metrics.Serve(cfg.MetricsAddr, logger)
	if err != nil {
		logger.Warn("metrics listener failed", zap.Error(err))
	}
	if metricsListener != nil {
		defer func() { _ = metricsListener.Close() }()
	}

	engine := policy.NewEngine(config.HostPackage, logger)
	recorder := usage.NewRecorder(usageStore, policy.RealClock{}, cfg.UsageMaxGap, logger)
	monitor := usecase.NewMonitor(
		usecase.MonitorConfig{
			PollInterval:        cfg.PollInterval,
			IdleRecheckInterval: cfg.IdleRecheckInterval,
		},
		engine,
		limits,
		recorder,
		usageStore,
		detector,
		source,
		redirector,
		logger,
	)

	pm := infra.NewProcessManager()
	registry := infra.NewFileRegistry(pm)
	info := domain.DaemonInfo{
		PID:         os.Getpid(),
		ProcessName: "boundly",
		StartedAt:   time.Now(),
		AppVersion:  Version,
	}

	runnerConfig := daemon.DefaultRunnerConfig()
	runnerConfig.HeartbeatInterval = cfg.HeartbeatInterval
	runner := daemon.NewRunner(runnerConfig, monitor, registry, usageStore, info, logger)

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	if ed, ok := detector.(*detect.EventDetector); ok {
		if err := ed.Start(ctx); err != nil {
			logger.Error("failed to start event detection", zap.Error(err))
			return err
		}
	}

	return runner.Run(ctx)
}

func createLogger(cfg *config.Config) *zap.Logger {
	logFile := cfg.LogFile
	if logFile == "" {
		logFile = filepath.Join(cfg.DataDir, "boundly.log")
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.OutputPaths = []string{logFile}
	zapConfig.ErrorOutputPaths = []string{logFile}
	zapConfig.EncoderConfig.TimeKey = "time"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapConfig.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("boundly %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
