package infra

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	// Ensure sqlcipher driver is registered.
	_ "github.com/mutecomm/go-sqlcipher/v4"
)

const (
	storeDBName   = "boundly.db"
	schemaVersion = "1"
)

// OpenEncryptedDB opens (or creates) the SQLCipher database holding limits
// and usage. The key is used as the SQLCipher passphrase via PRAGMA key.
func OpenEncryptedDB(dataDir string, key []byte) (*sql.DB, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, storeDBName)
	keyHex := hex.EncodeToString(key)

	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}

	// Verify encryption works by running a query
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// createTables creates the schema if it doesn't exist.
func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS limits (
		package_name TEXT PRIMARY KEY,
		limit_ms INTEGER NOT NULL CHECK (limit_ms >= 0),
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS usage (
		day TEXT NOT NULL,
		package_name TEXT NOT NULL,
		usage_ms INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (day, package_name)
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return err
	}

	_, err := db.Exec(
		`INSERT INTO meta (key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO NOTHING`, schemaVersion)
	return err
}
