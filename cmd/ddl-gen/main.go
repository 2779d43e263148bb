// Command ddl-gen generates SQL migration files for the migration engine's
// infrastructure tables.
//
// Usage:
//
//	go run github.com/schemashift/migrate/cmd/ddl-gen -output migrations -filename init.sql
//
// Or with go generate:
//
//	//go:generate go run github.com/schemashift/migrate/cmd/ddl-gen -output migrations
//
// Generate migrations for different database adapters:
//
//	go run github.com/schemashift/migrate/cmd/ddl-gen -adapter postgres -output migrations
//	go run github.com/schemashift/migrate/cmd/ddl-gen -adapter mysql -output migrations
//	go run github.com/schemashift/migrate/cmd/ddl-gen -adapter sqlite -output migrations
//
// Customize table names:
//
//	go run github.com/schemashift/migrate/cmd/ddl-gen -tags-table migration_tags -output migrations
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/schemashift/migrate/pkg/ddl"
)

func main() {
	var (
		adapter           = flag.String("adapter", "postgres", "Database adapter: postgres, mysql, or sqlite")
		outputFolder      = flag.String("output", "migrations", "Output folder for migration file")
		outputFilename    = flag.String("filename", "", "Output filename (default: timestamp-based)")
		tagsTable         = flag.String("tags-table", "migration_tags", "Name of committed-tags ledger table")
		rowsTable         = flag.String("rows-table", "migration_rows", "Name of JSON row store table")
		snapshotsTable    = flag.String("snapshots-table", "migration_snapshots", "Name of rollback snapshot header table")
		snapshotRowsTable = flag.String("snapshot-rows-table", "migration_snapshot_rows", "Name of rollback before-image table")
	)

	flag.Parse()

	config := ddl.DefaultConfig()
	config.OutputFolder = *outputFolder
	config.TagsTable = *tagsTable
	config.RowsTable = *rowsTable
	config.SnapshotsTable = *snapshotsTable
	config.SnapshotRowsTable = *snapshotRowsTable

	if *outputFilename != "" {
		config.OutputFilename = *outputFilename
	}

	var err error
	switch *adapter {
	case "postgres":
		err = ddl.GeneratePostgres(&config)
	case "mysql":
		err = ddl.GenerateMySQL(&config)
	case "sqlite":
		err = ddl.GenerateSQLite(&config)
	default:
		fmt.Fprintf(os.Stderr, "Error: unsupported adapter '%s'. Supported adapters are: postgres, mysql, sqlite\n", *adapter)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating migration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s migration: %s/%s\n", *adapter, config.OutputFolder, config.OutputFilename)
}
