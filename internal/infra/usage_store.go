package infra

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Prashants23/Boundly/internal/domain"
)

// SQLUsageStore implements domain.UsageStore over the encrypted database.
// Rows are keyed by (local day, package); "today" queries are anchored at
// local midnight through the injected clock.
type SQLUsageStore struct {
	db    *sql.DB
	clock domain.Clock
}

// NewSQLUsageStore creates a usage store over an open database.
func NewSQLUsageStore(db *sql.DB, clock domain.Clock) *SQLUsageStore {
	return &SQLUsageStore{db: db, clock: clock}
}

// dayKey formats a timestamp as its local calendar day.
func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// AddUsage adds deltaMs of foreground time to a package for the given day.
func (s *SQLUsageStore) AddUsage(day time.Time, packageName string, deltaMs int64) error {
	if deltaMs < 0 {
		return fmt.Errorf("usage delta must be >= 0, got %d", deltaMs)
	}
	if deltaMs == 0 {
		return nil
	}

	_, err := s.db.Exec(
		`INSERT INTO usage (day, package_name, usage_ms) VALUES (?, ?, ?)
		 ON CONFLICT(day, package_name) DO UPDATE SET usage_ms = usage_ms + excluded.usage_ms`,
		dayKey(day), packageName, deltaMs)
	if err != nil {
		return fmt.Errorf("failed to add usage: %w", err)
	}
	return nil
}

// TodayUsage returns today's accumulated usage for a package, clamped to
// MaxDailyUsage. A package with no recorded usage returns 0.
func (s *SQLUsageStore) TodayUsage(packageName string) (int64, error) {
	var usageMs int64
	err := s.db.QueryRow(
		`SELECT usage_ms FROM usage WHERE day = ? AND package_name = ?`,
		dayKey(s.clock.Now()), packageName).Scan(&usageMs)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read usage: %w", err)
	}
	return clampMs(usageMs), nil
}

// TodayAll returns today's samples for every tracked package, clamped and
// sorted by descending usage.
func (s *SQLUsageStore) TodayAll() ([]domain.UsageSample, error) {
	rows, err := s.db.Query(
		`SELECT package_name, usage_ms FROM usage WHERE day = ? ORDER BY usage_ms DESC, package_name`,
		dayKey(s.clock.Now()))
	if err != nil {
		return nil, fmt.Errorf("failed to list usage: %w", err)
	}
	defer rows.Close()

	var samples []domain.UsageSample
	for rows.Next() {
		var sample domain.UsageSample
		if err := rows.Scan(&sample.PackageName, &sample.UsageMs); err != nil {
			return nil, fmt.Errorf("failed to scan usage row: %w", err)
		}
		sample.UsageMs = clampMs(sample.UsageMs)
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

// PruneBefore removes usage rows older than the given day.
func (s *SQLUsageStore) PruneBefore(day time.Time) error {
	if _, err := s.db.Exec(`DELETE FROM usage WHERE day < ?`, dayKey(day)); err != nil {
		return fmt.Errorf("failed to prune usage: %w", err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *SQLUsageStore) Close() error {
	return s.db.Close()
}

func clampMs(usageMs int64) int64 {
	maxMs := domain.MaxDailyUsage.Milliseconds()
	if usageMs > maxMs {
		return maxMs
	}
	if usageMs < 0 {
		return 0
	}
	return usageMs
}

// Ensure SQLUsageStore implements domain.UsageStore.
var _ domain.UsageStore = (*SQLUsageStore)(nil)
