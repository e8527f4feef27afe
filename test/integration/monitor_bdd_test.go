//go:build integration

package integration

import (
	"context"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/Prashants23/Boundly/internal/detect"
	"github.com/Prashants23/Boundly/internal/domain"
	"github.com/Prashants23/Boundly/internal/infra"
	"github.com/Prashants23/Boundly/internal/policy"
	"github.com/Prashants23/Boundly/internal/usage"
	"github.com/Prashants23/Boundly/internal/usecase"
	"github.com/Prashants23/Boundly/test/fixtures"
)

const hostPackage = "com.boundly.app"

var _ = Describe("Monitor end to end", func() {
	var (
		tmpDir     string
		limits     *infra.SQLLimitStore
		usageStore *infra.SQLUsageStore
		detector   *fixtures.ScriptedDetector
		redirector *fixtures.CaptureRedirector
		monitor    *usecase.Monitor
		cancel     context.CancelFunc
		closeDB    func()
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "boundly-integration-*")
		Expect(err).NotTo(HaveOccurred())

		key, err := infra.EnsureKey(infra.NewFileKeyProvider(tmpDir))
		Expect(err).NotTo(HaveOccurred())

		db, err := infra.OpenEncryptedDB(tmpDir, key)
		Expect(err).NotTo(HaveOccurred())
		closeDB = func() { _ = db.Close() }

		limits = infra.NewSQLLimitStore(db)
		usageStore = infra.NewSQLUsageStore(db, policy.RealClock{})
		detector = fixtures.NewScriptedDetector()
		redirector = fixtures.NewCaptureRedirector()

		logger := zap.NewNop()
		engine := policy.NewEngine(hostPackage, logger)
		recorder := usage.NewRecorder(usageStore, policy.RealClock{}, usage.DefaultMaxGap, logger)

		monitor = usecase.NewMonitor(
			usecase.MonitorConfig{
				PollInterval:        10 * time.Millisecond,
				IdleRecheckInterval: 10 * time.Millisecond,
			},
			engine,
			limits,
			recorder,
			usageStore,
			detector,
			nil,
			redirector,
			logger,
		)

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		monitor.Start(ctx)
	})

	AfterEach(func() {
		cancel()
		monitor.Stop()
		closeDB()
		os.RemoveAll(tmpDir)
	})

	Context("when a package is over its daily limit", func() {
		BeforeEach(func() {
			Expect(limits.SetLimit("com.example.sink", 60000)).To(Succeed())
			Expect(usageStore.AddUsage(time.Now(), "com.example.sink", 60000)).To(Succeed())
			detector.SetApp(&domain.ForegroundApp{PackageName: "com.example.sink", AppName: "Sink"})
		})

		It("blocks and redirects", func() {
			Eventually(redirector.Count).Should(BeNumerically(">=", 1))

			Expect(monitor.Phase()).To(Equal(domain.PhaseBlocked))
			block := redirector.Last()
			Expect(block.PackageName).To(Equal("com.example.sink"))
			Expect(block.UsageMs).To(BeNumerically(">=", block.LimitMs))
		})

		It("re-blocks after a dismissal while still in the foreground", func() {
			Eventually(redirector.Count).Should(BeNumerically(">=", 1))
			first := redirector.Count()

			monitor.Dismiss()

			Eventually(redirector.Count).Should(BeNumerically(">", first))
			Expect(monitor.Phase()).To(Equal(domain.PhaseBlocked))
		})

		It("goes idle once the limit is cleared", func() {
			Eventually(redirector.Count).Should(BeNumerically(">=", 1))

			Expect(limits.ClearLimit("com.example.sink")).To(Succeed())

			Eventually(monitor.Phase).Should(Equal(domain.PhaseIdle))
			Expect(monitor.Current()).To(BeNil())
		})
	})

	Context("when no limits are configured", func() {
		It("stays idle and never queries the detector", func() {
			Consistently(monitor.Phase, 100*time.Millisecond).Should(Equal(domain.PhaseIdle))
			Expect(detector.Queries()).To(BeZero())
			Expect(redirector.Count()).To(BeZero())
		})
	})

	Context("when usage is under the limit", func() {
		BeforeEach(func() {
			Expect(limits.SetLimit("com.example.sink", 60*60*1000)).To(Succeed())
			detector.SetApp(&domain.ForegroundApp{PackageName: "com.example.sink", AppName: "Sink"})
		})

		It("arms without blocking and records usage", func() {
			Eventually(monitor.Phase).Should(Equal(domain.PhaseArmed))
			Consistently(redirector.Count, 100*time.Millisecond).Should(BeZero())

			// The recorder credits wall-clock time between ticks.
			Eventually(func() int64 {
				usageMs, err := usageStore.TodayUsage("com.example.sink")
				Expect(err).NotTo(HaveOccurred())
				return usageMs
			}).Should(BeNumerically(">", 0))
		})
	})
})

var _ = Describe("Event-driven monitoring", func() {
	It("evaluates immediately on a focus event without waiting for a poll", func() {
		tmpDir, err := os.MkdirTemp("", "boundly-integration-*")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(tmpDir)

		key, err := infra.EnsureKey(infra.NewFileKeyProvider(tmpDir))
		Expect(err).NotTo(HaveOccurred())

		db, err := infra.OpenEncryptedDB(tmpDir, key)
		Expect(err).NotTo(HaveOccurred())
		defer db.Close()

		limits := infra.NewSQLLimitStore(db)
		usageStore := infra.NewSQLUsageStore(db, policy.RealClock{})
		detector := fixtures.NewScriptedDetector()
		redirector := fixtures.NewCaptureRedirector()
		source := detect.NewChannelSource(true)

		logger := zap.NewNop()
		engine := policy.NewEngine(hostPackage, logger)

		Expect(limits.SetLimit("com.example.sink", 60000)).To(Succeed())
		Expect(usageStore.AddUsage(time.Now(), "com.example.sink", 90000)).To(Succeed())
		detector.SetApp(&domain.ForegroundApp{PackageName: "com.example.reader", AppName: "Reader"})

		// Poll interval is far longer than the test; only the startup tick
		// and events can trigger evaluation.
		monitor := usecase.NewMonitor(
			usecase.MonitorConfig{
				PollInterval:        time.Hour,
				IdleRecheckInterval: time.Hour,
			},
			engine,
			limits,
			usage.NewRecorder(usageStore, policy.RealClock{}, usage.DefaultMaxGap, logger),
			usageStore,
			detector,
			source,
			redirector,
			logger,
		)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		monitor.Start(ctx)
		defer monitor.Stop()

		// Startup tick sees an unlimited app and stays armed.
		Eventually(monitor.Phase).Should(Equal(domain.PhaseArmed))
		Expect(redirector.Count()).To(BeZero())

		source.Publish(domain.FocusEvent{
			App:        domain.ForegroundApp{PackageName: "com.example.sink", AppName: "Sink"},
			OccurredAt: time.Now(),
		})

		Eventually(redirector.Count).Should(BeNumerically(">=", 1))
		Expect(redirector.Last().PackageName).To(Equal("com.example.sink"))
	})
})
