// Package ddl generates SQL migration files for the engine's own
// infrastructure tables: the tag ledger, the JSON row store, and the
// rollback snapshot tables.
package ddl

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

var identifierRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// validateIdentifier ensures an identifier contains only safe characters for SQL.
// Returns an error if the identifier contains characters that could be used for SQL injection.
func validateIdentifier(name, fieldName string) error {
	if name == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("%s must start with a letter and contain only letters, numbers, and underscores (got: %s)", fieldName, name)
	}
	return nil
}

// validateConfig validates all configuration values to prevent SQL injection.
func validateConfig(config *Config) error {
	if err := validateIdentifier(config.TagsTable, "TagsTable"); err != nil {
		return err
	}
	if err := validateIdentifier(config.RowsTable, "RowsTable"); err != nil {
		return err
	}
	if err := validateIdentifier(config.SnapshotsTable, "SnapshotsTable"); err != nil {
		return err
	}
	return validateIdentifier(config.SnapshotRowsTable, "SnapshotRowsTable")
}

// Config configures migration generation for the engine's
// infrastructure tables.
type Config struct {
	// OutputFolder is the directory where the migration file will be written
	OutputFolder string

	// OutputFilename is the name of the migration file
	OutputFilename string

	// TagsTable is the name of the committed-tags ledger table
	TagsTable string

	// RowsTable is the name of the JSON row store backing table
	RowsTable string

	// SnapshotsTable is the name of the rollback snapshot header table
	SnapshotsTable string

	// SnapshotRowsTable is the name of the rollback before-image table
	SnapshotRowsTable string
}

// DefaultConfig returns the default configuration for engine migrations.
func DefaultConfig() Config {
	timestamp := time.Now().Format("20060102150405")
	return Config{
		OutputFolder:      "migrations",
		OutputFilename:    fmt.Sprintf("%s_init_migration_engine.sql", timestamp),
		TagsTable:         "migration_tags",
		RowsTable:         "migration_rows",
		SnapshotsTable:    "migration_snapshots",
		SnapshotRowsTable: "migration_snapshot_rows",
	}
}

// GeneratePostgres generates a PostgreSQL migration file.
func GeneratePostgres(config *Config) error {
	// Validate configuration to prevent SQL injection
	if err := validateConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Ensure output folder exists
	if err := os.MkdirAll(config.OutputFolder, 0o755); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}

	sql := generatePostgresSQL(config)

	outputPath := filepath.Join(config.OutputFolder, config.OutputFilename)
	if err := os.WriteFile(outputPath, []byte(sql), 0o600); err != nil {
		return fmt.Errorf("failed to write migration file: %w", err)
	}

	return nil
}

func generatePostgresSQL(config *Config) string {
	return fmt.Sprintf(`-- Migration Engine Infrastructure Migration
-- Generated: %s
-- Database: PostgreSQL

-- Committed-tags ledger
-- Append-only idempotency registry; one committed tag per (tag_id, scope)
-- The primary key is what serializes racing CommitTag calls
CREATE TABLE IF NOT EXISTS %s (
    tag_id TEXT NOT NULL,
    scope TEXT NOT NULL,
    tenant_id TEXT NOT NULL DEFAULT '',
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (tag_id, scope)
);

-- Index for auditing tags by scope
CREATE INDEX IF NOT EXISTS idx_%s_scope
    ON %s (scope, tag_id);

-- JSON row store
-- Rows are (table, key, JSON fields) triples; upserts are keyed on the
-- primary key so re-run transfers overwrite rather than duplicate
CREATE TABLE IF NOT EXISTS %s (
    tbl TEXT NOT NULL,
    row_key TEXT NOT NULL,
    fields JSONB NOT NULL,
    PRIMARY KEY (tbl, row_key)
);

-- Rollback snapshot headers
CREATE TABLE IF NOT EXISTS %s (
    id TEXT PRIMARY KEY,
    phase_id TEXT NOT NULL,
    run_id TEXT NOT NULL,
    tbl TEXT NOT NULL,
    restored BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- Index for finding snapshots by run
CREATE INDEX IF NOT EXISTS idx_%s_run
    ON %s (run_id, phase_id);

-- Rollback before-images, replayed in reverse position order on restore
CREATE TABLE IF NOT EXISTS %s (
    snapshot_id TEXT NOT NULL,
    position INT NOT NULL,
    row_key TEXT NOT NULL,
    missing BOOLEAN NOT NULL DEFAULT FALSE,
    before_image JSONB,
    PRIMARY KEY (snapshot_id, position)
);
`,
		time.Now().Format(time.RFC3339),
		config.TagsTable,
		config.TagsTable, config.TagsTable,
		config.RowsTable,
		config.SnapshotsTable,
		config.SnapshotsTable, config.SnapshotsTable,
		config.SnapshotRowsTable,
	)
}

// GenerateMySQL generates a MySQL/MariaDB migration file.
func GenerateMySQL(config *Config) error {
	// Validate configuration to prevent SQL injection
	if err := validateConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Ensure output folder exists
	if err := os.MkdirAll(config.OutputFolder, 0o755); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}

	sql := generateMySQLSQL(config)

	outputPath := filepath.Join(config.OutputFolder, config.OutputFilename)
	if err := os.WriteFile(outputPath, []byte(sql), 0o600); err != nil {
		return fmt.Errorf("failed to write migration file: %w", err)
	}

	return nil
}

func generateMySQLSQL(config *Config) string {
	return fmt.Sprintf(`-- Migration Engine Infrastructure Migration
-- Generated: %s
-- Database: MySQL/MariaDB

-- Committed-tags ledger
-- Append-only idempotency registry; one committed tag per (tag_id, scope)
-- The primary key is what serializes racing CommitTag calls
CREATE TABLE IF NOT EXISTS %s (
    tag_id VARCHAR(255) NOT NULL,
    scope VARCHAR(255) NOT NULL,
    tenant_id VARCHAR(255) NOT NULL DEFAULT '',
    applied_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
    PRIMARY KEY (tag_id, scope)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;

-- Index for auditing tags by scope
CREATE INDEX idx_%s_scope
    ON %s (scope, tag_id);

-- JSON row store
-- Rows are (table, key, JSON fields) triples; upserts are keyed on the
-- primary key so re-run transfers overwrite rather than duplicate
CREATE TABLE IF NOT EXISTS %s (
    tbl VARCHAR(255) NOT NULL,
    row_key VARCHAR(255) NOT NULL,
    fields JSON NOT NULL,
    PRIMARY KEY (tbl, row_key)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;

-- Rollback snapshot headers
CREATE TABLE IF NOT EXISTS %s (
    id VARCHAR(255) PRIMARY KEY,
    phase_id VARCHAR(255) NOT NULL,
    run_id VARCHAR(255) NOT NULL,
    tbl VARCHAR(255) NOT NULL,
    restored BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;

-- Index for finding snapshots by run
CREATE INDEX idx_%s_run
    ON %s (run_id, phase_id);

-- Rollback before-images, replayed in reverse position order on restore
CREATE TABLE IF NOT EXISTS %s (
    snapshot_id VARCHAR(255) NOT NULL,
    position INT NOT NULL,
    row_key VARCHAR(255) NOT NULL,
    missing BOOLEAN NOT NULL DEFAULT FALSE,
    before_image JSON,
    PRIMARY KEY (snapshot_id, position)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
`,
		time.Now().Format(time.RFC3339),
		config.TagsTable,
		config.TagsTable, config.TagsTable,
		config.RowsTable,
		config.SnapshotsTable,
		config.SnapshotsTable, config.SnapshotsTable,
		config.SnapshotRowsTable,
	)
}

// GenerateSQLite generates a SQLite migration file.
func GenerateSQLite(config *Config) error {
	// Validate configuration to prevent SQL injection
	if err := validateConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Ensure output folder exists
	if err := os.MkdirAll(config.OutputFolder, 0o755); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}

	sql := generateSQLiteSQL(config)

	outputPath := filepath.Join(config.OutputFolder, config.OutputFilename)
	if err := os.WriteFile(outputPath, []byte(sql), 0o600); err != nil {
		return fmt.Errorf("failed to write migration file: %w", err)
	}

	return nil
}

func generateSQLiteSQL(config *Config) string {
	return fmt.Sprintf(`-- Migration Engine Infrastructure Migration
-- Generated: %s
-- Database: SQLite

-- Committed-tags ledger
-- Append-only idempotency registry; one committed tag per (tag_id, scope)
-- The primary key is what serializes racing CommitTag calls
CREATE TABLE IF NOT EXISTS %s (
    tag_id TEXT NOT NULL,
    scope TEXT NOT NULL,
    tenant_id TEXT NOT NULL DEFAULT '',
    applied_at TEXT NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY (tag_id, scope)
);

-- Index for auditing tags by scope
CREATE INDEX IF NOT EXISTS idx_%s_scope
    ON %s (scope, tag_id);

-- JSON row store
-- Rows are (table, key, JSON fields) triples; upserts are keyed on the
-- primary key so re-run transfers overwrite rather than duplicate
CREATE TABLE IF NOT EXISTS %s (
    tbl TEXT NOT NULL,
    row_key TEXT NOT NULL,
    fields TEXT NOT NULL,
    PRIMARY KEY (tbl, row_key)
);

-- Rollback snapshot headers
CREATE TABLE IF NOT EXISTS %s (
    id TEXT PRIMARY KEY,
    phase_id TEXT NOT NULL,
    run_id TEXT NOT NULL,
    tbl TEXT NOT NULL,
    restored INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Index for finding snapshots by run
CREATE INDEX IF NOT EXISTS idx_%s_run
    ON %s (run_id, phase_id);

-- Rollback before-images, replayed in reverse position order on restore
CREATE TABLE IF NOT EXISTS %s (
    snapshot_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    row_key TEXT NOT NULL,
    missing INTEGER NOT NULL DEFAULT 0,
    before_image TEXT,
    PRIMARY KEY (snapshot_id, position)
);
`,
		time.Now().Format(time.RFC3339),
		config.TagsTable,
		config.TagsTable, config.TagsTable,
		config.RowsTable,
		config.SnapshotsTable,
		config.SnapshotsTable, config.SnapshotsTable,
		config.SnapshotRowsTable,
	)
}
