// Package metrics exposes Prometheus instrumentation for the daemon.
package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	// TicksTotal counts evaluation ticks, whether timer- or event-driven.
	TicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "boundly_ticks_total",
			Help: "Total number of policy evaluation ticks",
		},
	)

	// BlocksTotal counts transitions into the blocked phase.
	BlocksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "boundly_blocks_total",
			Help: "Total number of block states emitted",
		},
	)

	// DetectorErrors counts failed foreground lookups.
	DetectorErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "boundly_detector_errors_total",
			Help: "Foreground detection failures",
		},
	)

	// MonitoringActive is 1 while the monitor loop is running.
	MonitoringActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "boundly_monitoring_active",
			Help: "Whether the monitor loop is running",
		},
	)
)

// Register registers all metrics with the default registry.
// Call once at startup.
func Register() {
	prometheus.MustRegister(
		TicksTotal,
		BlocksTotal,
		DetectorErrors,
		MonitoringActive,
	)
}

// Serve starts the metrics HTTP listener on addr. Returns the bound listener
// so callers can close it; pass an empty addr to disable.
func Serve(addr string, logger *zap.Logger) (net.Listener, error) {
	if addr == "" {
		return nil, nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.Serve(ln, mux); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	logger.Info("metrics listening", zap.String("addr", addr))
	return ln, nil
}
