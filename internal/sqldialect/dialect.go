// Package sqldialect holds the small set of syntax and error-mapping
// differences between the supported database/sql backends. It exists so
// the SQL-backed ledger, row store, and snapshot store share one
// definition of placeholders, upsert syntax, and duplicate-key detection.
package sqldialect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Dialect identifies a supported SQL backend.
type Dialect string

const (
	// Postgres targets PostgreSQL via github.com/lib/pq.
	Postgres Dialect = "postgres"

	// MySQL targets MySQL/MariaDB via github.com/go-sql-driver/mysql.
	MySQL Dialect = "mysql"

	// SQLite targets SQLite via github.com/mattn/go-sqlite3.
	SQLite Dialect = "sqlite"
)

// ErrUnknownDialect indicates an unsupported dialect name.
var ErrUnknownDialect = errors.New("unknown sql dialect")

// Parse returns the Dialect for a driver or dialect name.
// Accepts the database/sql driver names used by the supported drivers.
func Parse(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pq":
		return Postgres, nil
	case "mysql", "mariadb":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownDialect, name)
	}
}

// Placeholder returns the bind placeholder for the n-th parameter
// (1-indexed): $n for PostgreSQL, ? otherwise.
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Placeholders returns count comma-joined placeholders starting at
// parameter position start (1-indexed).
func (d Dialect) Placeholders(start, count int) string {
	parts := make([]string, count)
	for i := 0; i < count; i++ {
		parts[i] = d.Placeholder(start + i)
	}
	return strings.Join(parts, ", ")
}

// UpsertSuffix returns the clause appended to an INSERT to obtain
// upsert semantics keyed on the given conflict columns, updating the
// given columns from the inserted values.
func (d Dialect) UpsertSuffix(conflictCols, updateCols []string) string {
	switch d {
	case MySQL:
		sets := make([]string, len(updateCols))
		for i, col := range updateCols {
			sets[i] = fmt.Sprintf("%s = VALUES(%s)", col, col)
		}
		return fmt.Sprintf("ON DUPLICATE KEY UPDATE %s", strings.Join(sets, ", "))
	default:
		sets := make([]string, len(updateCols))
		for i, col := range updateCols {
			sets[i] = fmt.Sprintf("%s = excluded.%s", col, col)
		}
		return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s",
			strings.Join(conflictCols, ", "), strings.Join(sets, ", "))
	}
}

// IsUniqueViolation reports whether err is a duplicate-key error from
// any of the supported drivers. The ledger's atomic commit is built on
// this: the losing INSERT of a commit race surfaces here.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	return false
}
