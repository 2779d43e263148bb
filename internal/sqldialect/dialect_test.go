package sqldialect

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AcceptsDriverNames(t *testing.T) {
	cases := map[string]Dialect{
		"postgres":   Postgres,
		"postgresql": Postgres,
		"pq":         Postgres,
		"mysql":      MySQL,
		"mariadb":    MySQL,
		"sqlite":     SQLite,
		"sqlite3":    SQLite,
		"Postgres":   Postgres,
	}

	for name, want := range cases {
		got, err := Parse(name)
		require.NoError(t, err, "parsing %q", name)
		assert.Equal(t, want, got, "parsing %q", name)
	}
}

func TestParse_RejectsUnknownName(t *testing.T) {
	_, err := Parse("oracle")

	assert.ErrorIs(t, err, ErrUnknownDialect)
}

func TestPlaceholder(t *testing.T) {
	assert.Equal(t, "$3", Postgres.Placeholder(3))
	assert.Equal(t, "?", MySQL.Placeholder(3))
	assert.Equal(t, "?", SQLite.Placeholder(3))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$2, $3, $4", Postgres.Placeholders(2, 3))
	assert.Equal(t, "?, ?, ?", MySQL.Placeholders(2, 3))
}

func TestUpsertSuffix_Postgres(t *testing.T) {
	suffix := Postgres.UpsertSuffix([]string{"tbl", "row_key"}, []string{"fields"})

	assert.Equal(t, "ON CONFLICT (tbl, row_key) DO UPDATE SET fields = excluded.fields", suffix)
}

func TestUpsertSuffix_MySQL(t *testing.T) {
	suffix := MySQL.UpsertSuffix([]string{"tbl", "row_key"}, []string{"fields"})

	assert.Equal(t, "ON DUPLICATE KEY UPDATE fields = VALUES(fields)", suffix)
}

func TestIsUniqueViolation_Postgres(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
}

func TestIsUniqueViolation_MySQL(t *testing.T) {
	assert.True(t, IsUniqueViolation(&mysql.MySQLError{Number: 1062}))
	assert.False(t, IsUniqueViolation(&mysql.MySQLError{Number: 1064}))
}

func TestIsUniqueViolation_SQLite(t *testing.T) {
	assert.True(t, IsUniqueViolation(sqlite3.Error{
		Code:         sqlite3.ErrConstraint,
		ExtendedCode: sqlite3.ErrConstraintUnique,
	}))
	assert.True(t, IsUniqueViolation(sqlite3.Error{
		Code:         sqlite3.ErrConstraint,
		ExtendedCode: sqlite3.ErrConstraintPrimaryKey,
	}))
	assert.False(t, IsUniqueViolation(sqlite3.Error{
		Code:         sqlite3.ErrConstraint,
		ExtendedCode: sqlite3.ErrConstraintNotNull,
	}))
}

func TestIsUniqueViolation_WrappedError(t *testing.T) {
	wrapped := fmt.Errorf("failed to commit tag: %w", &pq.Error{Code: "23505"})

	assert.True(t, IsUniqueViolation(wrapped))
}

func TestIsUniqueViolation_OtherErrors(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("plain error")))
}
