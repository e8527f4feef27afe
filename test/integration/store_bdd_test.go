//go:build integration

package integration

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Prashants23/Boundly/internal/infra"
	"github.com/Prashants23/Boundly/internal/policy"
)

var _ = Describe("Encrypted Store", func() {
	var (
		tmpDir string
		key    []byte
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "boundly-integration-*")
		Expect(err).NotTo(HaveOccurred())

		key, err = infra.EnsureKey(infra.NewFileKeyProvider(tmpDir))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("Limit store", func() {
		It("persists limits across reopen", func() {
			db, err := infra.OpenEncryptedDB(tmpDir, key)
			Expect(err).NotTo(HaveOccurred())

			limits := infra.NewSQLLimitStore(db)
			Expect(limits.SetLimit("com.example.sink", 45*60*1000)).To(Succeed())
			Expect(db.Close()).To(Succeed())

			db, err = infra.OpenEncryptedDB(tmpDir, key)
			Expect(err).NotTo(HaveOccurred())
			defer db.Close()

			limits = infra.NewSQLLimitStore(db)
			limitMs, limited, err := limits.GetLimit("com.example.sink")
			Expect(err).NotTo(HaveOccurred())
			Expect(limited).To(BeTrue())
			Expect(limitMs).To(Equal(int64(45 * 60 * 1000)))
		})

		It("excludes unlimited entries from the list", func() {
			db, err := infra.OpenEncryptedDB(tmpDir, key)
			Expect(err).NotTo(HaveOccurred())
			defer db.Close()

			limits := infra.NewSQLLimitStore(db)
			Expect(limits.SetLimit("com.example.sink", 60000)).To(Succeed())
			Expect(limits.SetLimit("com.example.free", 0)).To(Succeed())

			entries, err := limits.ListLimits()
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].PackageName).To(Equal("com.example.sink"))
		})
	})

	Describe("Encryption key", func() {
		It("rejects opening with the wrong key", func() {
			db, err := infra.OpenEncryptedDB(tmpDir, key)
			Expect(err).NotTo(HaveOccurred())
			limits := infra.NewSQLLimitStore(db)
			Expect(limits.SetLimit("com.example.sink", 60000)).To(Succeed())
			Expect(db.Close()).To(Succeed())

			wrongKey, err := infra.GenerateKey()
			Expect(err).NotTo(HaveOccurred())

			_, err = infra.OpenEncryptedDB(tmpDir, wrongKey)
			Expect(err).To(HaveOccurred())
		})

		It("reuses the stored key on subsequent runs", func() {
			again, err := infra.EnsureKey(infra.NewFileKeyProvider(tmpDir))
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(Equal(key))
		})
	})

	Describe("Usage store", func() {
		It("accumulates usage per day and package", func() {
			db, err := infra.OpenEncryptedDB(tmpDir, key)
			Expect(err).NotTo(HaveOccurred())
			defer db.Close()

			store := infra.NewSQLUsageStore(db, policy.RealClock{})
			today := time.Now()

			Expect(store.AddUsage(today, "com.example.sink", 2000)).To(Succeed())
			Expect(store.AddUsage(today, "com.example.sink", 3000)).To(Succeed())
			Expect(store.AddUsage(today, "com.example.reader", 1000)).To(Succeed())

			usageMs, err := store.TodayUsage("com.example.sink")
			Expect(err).NotTo(HaveOccurred())
			Expect(usageMs).To(Equal(int64(5000)))

			samples, err := store.TodayAll()
			Expect(err).NotTo(HaveOccurred())
			Expect(samples).To(HaveLen(2))
			Expect(samples[0].PackageName).To(Equal("com.example.sink"))
		})

		It("prunes old days but keeps today", func() {
			db, err := infra.OpenEncryptedDB(tmpDir, key)
			Expect(err).NotTo(HaveOccurred())
			defer db.Close()

			store := infra.NewSQLUsageStore(db, policy.RealClock{})
			today := time.Now()
			lastMonth := today.AddDate(0, -1, 0)

			Expect(store.AddUsage(today, "com.example.sink", 1000)).To(Succeed())
			Expect(store.AddUsage(lastMonth, "com.example.sink", 9000)).To(Succeed())

			Expect(store.PruneBefore(today.AddDate(0, 0, -7))).To(Succeed())

			usageMs, err := store.TodayUsage("com.example.sink")
			Expect(err).NotTo(HaveOccurred())
			Expect(usageMs).To(Equal(int64(1000)))
		})
	})
})
