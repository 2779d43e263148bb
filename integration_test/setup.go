//go:build integration

package integration_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/schemashift/migrate"
	"github.com/schemashift/migrate/internal/sqldialect"
	"github.com/schemashift/migrate/mapping"
	"github.com/schemashift/migrate/pkg/ddl"
	"github.com/schemashift/migrate/run"
	"github.com/schemashift/migrate/store"
	"github.com/schemashift/migrate/transfer"
	"github.com/schemashift/migrate/validate"
)

// planDate is the release date stamped into every test plan's tags.
func planDate() time.Time {
	return time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)
}

// defaultTag is the tag committed by the customer-grade phase,
// following the {componentId}-{featureName}-{isoDate} convention.
var defaultTag = migrate.TagID("50100", "CustomerGrade", planDate())

// customerShapes declares the source and target shapes used by most
// integration scenarios: customers carry a name, an active flag, and a
// numeric grade; the migrated table adds a status marker.
func customerShapes() (mapping.TableShape, mapping.TableShape) {
	source := mapping.TableShape{
		Table: "customers",
		Fields: map[migrate.FieldID]mapping.FieldType{
			"name":   mapping.TypeString,
			"active": mapping.TypeBool,
			"grade":  mapping.TypeInt,
		},
	}
	target := mapping.TableShape{
		Table: "customers_v2",
		Fields: map[migrate.FieldID]mapping.FieldType{
			"name":   mapping.TypeString,
			"status": mapping.TypeString,
			"grade":  mapping.TypeInt,
		},
	}
	return source, target
}

// compileCustomerMappings compiles the standard rule set: uppercase the
// name, stamp a constant status, and carry the grade over unchanged.
func compileCustomerMappings(t *testing.T) []mapping.FieldMapping {
	t.Helper()

	source, target := customerShapes()
	mappings, err := mapping.Compile(source, target, []mapping.Spec{
		{Source: "name", Target: "name", Kind: mapping.KindTransform, Transform: "upper"},
		{Target: "status", Kind: mapping.KindConstant, Value: "MIGRATED"},
		{Source: "grade", Target: "grade", Kind: mapping.KindDirect},
	}, mapping.DefaultRegistry())
	require.NoError(t, err)
	return mappings
}

// activeOnly selects customers whose active flag is true.
func activeOnly(row migrate.Row) bool {
	value, ok := row.Get("active")
	return ok && value == true
}

// customerPlan builds a single-phase plan transferring active customers
// into customers_v2.
func customerPlan(t *testing.T, tag string, batchSize int, rules ...validate.Rule) run.Plan {
	t.Helper()

	return run.Plan{
		Component: "50100",
		Phases: []run.Phase{
			{
				ID:    "customer-grade",
				Name:  "Copy active customers into the graded table",
				Order: 1,
				Tag:   tag,
				Job: transfer.Job{
					Source:    "customers",
					Target:    "customers_v2",
					Filter:    activeOnly,
					Mappings:  compileCustomerMappings(t),
					BatchSize: batchSize,
				},
				Rules: rules,
			},
		},
	}
}

// seedRows writes rows into a table, failing the test on error.
func seedRows(t *testing.T, s store.Store, table migrate.TableName, rows []migrate.Row) {
	t.Helper()

	require.NoError(t, s.Upsert(context.Background(), table, rows))
}

// customer builds a source row with the standard customer fields.
func customer(key migrate.RowKey, name string, active bool, grade int) migrate.Row {
	return migrate.NewMapRowWithFields(key, map[migrate.FieldID]any{
		"name":   name,
		"active": active,
		"grade":  grade,
	})
}

// getRow fetches a row, failing the test when it does not exist.
func getRow(t *testing.T, s store.Store, table migrate.TableName, key migrate.RowKey) migrate.Row {
	t.Helper()

	row, err := s.Get(context.Background(), table, key)
	require.NoError(t, err)
	return row
}

// fieldValue returns a field of a row, failing the test when absent.
func fieldValue(t *testing.T, row migrate.Row, field migrate.FieldID) any {
	t.Helper()

	value, ok := row.Get(field)
	require.True(t, ok, "field %s missing on row %s", field, row.Key())
	return value
}

// tableContents materializes a table into a key-to-row map for
// whole-table comparisons.
func tableContents(t *testing.T, s store.Store, table migrate.TableName) map[migrate.RowKey]migrate.Row {
	t.Helper()

	cursor, err := s.Find(context.Background(), table, nil)
	require.NoError(t, err)
	defer func() {
		_ = cursor.Close()
	}()

	contents := make(map[migrate.RowKey]migrate.Row)
	for cursor.Next() {
		row := cursor.Row()
		contents[row.Key()] = row
	}
	require.NoError(t, cursor.Err())
	return contents
}

// openSQLiteDB opens an in-memory SQLite database initialized with the
// engine's own infrastructure tables, generated by the ddl package the
// same way an operator would generate them for production.
func openSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()

	config := ddl.DefaultConfig()
	config.OutputFolder = t.TempDir()
	config.OutputFilename = "init.sql"
	require.NoError(t, ddl.GenerateSQLite(&config))

	script, err := os.ReadFile(filepath.Join(config.OutputFolder, config.OutputFilename))
	require.NoError(t, err)

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	// Every pooled connection would get its own in-memory database, so
	// the pool must be pinned to a single connection.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(string(script))
	require.NoError(t, err)
	return db
}

// sqliteDialect is a shorthand for the dialect every SQLite-backed test uses.
var sqliteDialect = sqldialect.SQLite
