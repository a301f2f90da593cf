package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/kiln/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 2

// migrations are applied in order; entry i moves the schema from version i to i+1.
var migrations = []string{
	// 0 -> 1: components, append-only version log, advisory edit transcripts
	`
	CREATE TABLE IF NOT EXISTS components (
	  id              TEXT PRIMARY KEY,
	  name            TEXT NOT NULL UNIQUE,
	  slug            TEXT NOT NULL,
	  description     TEXT NOT NULL DEFAULT '',
	  category        TEXT NOT NULL DEFAULT '',
	  tags_json       TEXT,
	  alias_path      TEXT NOT NULL,
	  current_version INTEGER NOT NULL,
	  status          TEXT NOT NULL DEFAULT 'active',
	  created_at      INTEGER NOT NULL,
	  updated_at      INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_components_status_updated
	ON components(status, updated_at DESC);

	CREATE INDEX IF NOT EXISTS idx_components_category
	ON components(category);

	CREATE TABLE IF NOT EXISTS versions (
	  component_id       TEXT NOT NULL REFERENCES components(id),
	  version_number     INTEGER NOT NULL,
	  blob_path          TEXT NOT NULL,
	  change_description TEXT NOT NULL DEFAULT '',
	  changed_by         TEXT NOT NULL DEFAULT '',
	  generator_model    TEXT,
	  generator_prompt   TEXT,
	  content_hash       TEXT NOT NULL,
	  created_at         INTEGER NOT NULL,
	  PRIMARY KEY (component_id, version_number)
	);

	CREATE TABLE IF NOT EXISTS edit_transcripts (
	  id              TEXT PRIMARY KEY,
	  component_id    TEXT NOT NULL REFERENCES components(id),
	  target_version  INTEGER NOT NULL,
	  user_request    TEXT NOT NULL,
	  changes_summary TEXT NOT NULL DEFAULT '',
	  generator_model TEXT NOT NULL DEFAULT '',
	  created_at      INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_edit_transcripts_component
	ON edit_transcripts(component_id, created_at DESC);
	`,
	// 1 -> 2: local discovery registry (owned elsewhere in multi-service deployments)
	`
	CREATE TABLE IF NOT EXISTS registry (
	  id              TEXT PRIMARY KEY,
	  slug            TEXT NOT NULL,
	  capability_type TEXT NOT NULL,
	  name            TEXT NOT NULL,
	  description     TEXT NOT NULL DEFAULT '',
	  category        TEXT NOT NULL DEFAULT '',
	  tags_json       TEXT,
	  content_url     TEXT NOT NULL,
	  docs_url        TEXT NOT NULL,
	  example_usage   TEXT NOT NULL DEFAULT '',
	  version         INTEGER NOT NULL,
	  created_at      INTEGER NOT NULL,
	  updated_at      INTEGER NOT NULL,
	  UNIQUE (slug, capability_type)
	);
	`,
}

// Init initializes the SQLite database at baseDir/kiln.db and runs pending
// migrations. Call once at process startup.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.kiln.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	// Open database with pragmas in connection string (applies to all connections)
	dbPath := filepath.Join(baseDir, "kiln.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
// Call after Init if you need to tune pool behavior for contention.
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// Migrate applies schema migrations based on user_version. Idempotent.
func Migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	for i := version; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if err := SetUserVersion(db, i+1); err != nil {
			return err
		}
	}

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
