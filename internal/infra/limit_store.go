package infra

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Prashants23/Boundly/internal/domain"
)

// SQLLimitStore implements domain.LimitStore over the encrypted database.
// One row per package; setting a limit upserts.
type SQLLimitStore struct {
	db *sql.DB
}

// NewSQLLimitStore creates a limit store over an open database.
func NewSQLLimitStore(db *sql.DB) *SQLLimitStore {
	return &SQLLimitStore{db: db}
}

// SetLimit creates or updates the limit for a package.
func (s *SQLLimitStore) SetLimit(packageName string, limitMs int64) error {
	if packageName == "" {
		return fmt.Errorf("package name must not be empty")
	}
	if limitMs < 0 {
		return fmt.Errorf("limit must be >= 0, got %d", limitMs)
	}

	_, err := s.db.Exec(
		`INSERT INTO limits (package_name, limit_ms, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(package_name) DO UPDATE SET limit_ms = excluded.limit_ms, updated_at = excluded.updated_at`,
		packageName, limitMs, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to set limit: %w", err)
	}
	return nil
}

// GetLimit returns the limit for a package, or (0, false) if none is set.
func (s *SQLLimitStore) GetLimit(packageName string) (int64, bool, error) {
	var limitMs int64
	err := s.db.QueryRow(
		`SELECT limit_ms FROM limits WHERE package_name = ?`, packageName).Scan(&limitMs)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get limit: %w", err)
	}
	return limitMs, true, nil
}

// ClearLimit removes the limit entry for a package.
func (s *SQLLimitStore) ClearLimit(packageName string) error {
	if _, err := s.db.Exec(`DELETE FROM limits WHERE package_name = ?`, packageName); err != nil {
		return fmt.Errorf("failed to clear limit: %w", err)
	}
	return nil
}

// ListLimits returns all entries with limit_ms > 0, sorted by package name.
func (s *SQLLimitStore) ListLimits() ([]domain.LimitEntry, error) {
	rows, err := s.db.Query(
		`SELECT package_name, limit_ms FROM limits WHERE limit_ms > 0 ORDER BY package_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list limits: %w", err)
	}
	defer rows.Close()

	var entries []domain.LimitEntry
	for rows.Next() {
		var e domain.LimitEntry
		if err := rows.Scan(&e.PackageName, &e.LimitMs); err != nil {
			return nil, fmt.Errorf("failed to scan limit row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the underlying database connection.
func (s *SQLLimitStore) Close() error {
	return s.db.Close()
}

// Ensure SQLLimitStore implements domain.LimitStore.
var _ domain.LimitStore = (*SQLLimitStore)(nil)
