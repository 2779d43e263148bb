// Package sqldb provides a database/sql implementation of the migration
// ledger for PostgreSQL, MySQL, and SQLite.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/schemashift/migrate"
	"github.com/schemashift/migrate/internal/sqldialect"
	"github.com/schemashift/migrate/ledger"
)

// DefaultTagsTable is the table name used by New.
const DefaultTagsTable = "migration_tags"

// Config holds configuration for the SQL ledger.
type Config struct {
	// TagsTable is the name of the committed-tags table
	// (default: migration_tags).
	TagsTable string
}

// Ledger is a SQL implementation of ledger.Ledger. Atomicity of
// CommitTag comes from the primary key on (tag_id, scope): the losing
// INSERT of a commit race fails with a unique violation, which is
// mapped to migrate.ErrAlreadyCommitted.
type Ledger struct {
	db        *sql.DB
	dialect   sqldialect.Dialect
	tagsTable string
}

// Compile-time check that Ledger implements ledger.Ledger.
var _ ledger.Ledger = (*Ledger)(nil)

// New creates a SQL ledger with the default table name.
func New(db *sql.DB, dialect sqldialect.Dialect) *Ledger {
	return NewWithConfig(db, dialect, Config{})
}

// NewWithConfig creates a SQL ledger with custom configuration.
// Applies the default table name if not set.
func NewWithConfig(db *sql.DB, dialect sqldialect.Dialect, cfg Config) *Ledger {
	if cfg.TagsTable == "" {
		cfg.TagsTable = DefaultTagsTable
	}

	return &Ledger{
		db:        db,
		dialect:   dialect,
		tagsTable: cfg.TagsTable,
	}
}

// HasTag reports whether a tag has been committed for the id and scope.
func (l *Ledger) HasTag(ctx context.Context, id string, scope migrate.Scope) (bool, error) {
	query := fmt.Sprintf(`
		SELECT 1
		FROM %s
		WHERE tag_id = %s AND scope = %s
	`, l.tagsTable, l.dialect.Placeholder(1), l.dialect.Placeholder(2))

	var one int
	err := l.db.QueryRowContext(ctx, query, id, scope.String()).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check tag: %w", err)
	}

	return true, nil
}

// CommitTag records a tag with check-and-set semantics.
// Returns migrate.ErrAlreadyCommitted if the tag is already present.
func (l *Ledger) CommitTag(ctx context.Context, id string, scope migrate.Scope) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (tag_id, scope, tenant_id, applied_at)
		VALUES (%s)
	`, l.tagsTable, l.dialect.Placeholders(1, 4))

	_, err := l.db.ExecContext(ctx, query, id, scope.String(), scope.TenantID, time.Now().UTC())
	if err != nil {
		if sqldialect.IsUniqueViolation(err) {
			return migrate.ErrAlreadyCommitted
		}
		return fmt.Errorf("failed to commit tag: %w", err)
	}

	return nil
}

// AppliedTags returns all committed tags for a scope, ordered by id.
// Results are named so the deferred close can surface its error.
func (l *Ledger) AppliedTags(ctx context.Context, scope migrate.Scope) (tags []migrate.Tag, err error) {
	query := fmt.Sprintf(`
		SELECT tag_id, tenant_id, applied_at
		FROM %s
		WHERE scope = %s
		ORDER BY tag_id
	`, l.tagsTable, l.dialect.Placeholder(1))

	rows, err := l.db.QueryContext(ctx, query, scope.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		var tag migrate.Tag
		var tenantID string
		if err := rows.Scan(&tag.ID, &tenantID, &tag.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tag.Scope = scope
		tag.Scope.TenantID = tenantID
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}

	return tags, nil
}
