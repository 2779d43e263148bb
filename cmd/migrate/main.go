// Command migrate loads a declarative migration definition and runs it
// against a SQL-backed record store, ledger, and snapshot store.
//
// Usage:
//
//	go run github.com/schemashift/migrate/cmd/migrate \
//	    -definition migration.yaml -driver sqlite3 -dsn file:app.db
//
// Run for a single tenant instead of globally:
//
//	go run github.com/schemashift/migrate/cmd/migrate \
//	    -definition migration.yaml -driver postgres -dsn "$DSN" -tenant acme,globex
//
// Expose Prometheus metrics while running:
//
//	go run github.com/schemashift/migrate/cmd/migrate \
//	    -definition migration.yaml -driver mysql -dsn "$DSN" -metrics-addr :9090
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/schemashift/migrate"
	"github.com/schemashift/migrate/definition"
	"github.com/schemashift/migrate/internal/sqldialect"
	ledgersqldb "github.com/schemashift/migrate/ledger/sqldb"
	"github.com/schemashift/migrate/logging"
	"github.com/schemashift/migrate/mapping"
	"github.com/schemashift/migrate/metrics"
	"github.com/schemashift/migrate/pkg/version"
	rollbacksqldb "github.com/schemashift/migrate/rollback/sqldb"
	"github.com/schemashift/migrate/run"
	storesqldb "github.com/schemashift/migrate/store/sqldb"
)

func main() {
	var (
		definitionPath = flag.String("definition", "migration.yaml", "Path to the YAML migration definition")
		driver         = flag.String("driver", "postgres", "Database driver: postgres, mysql, or sqlite3")
		dsn            = flag.String("dsn", "", "Database connection string")
		tenants        = flag.String("tenant", "", "Comma-separated tenant ids to migrate; empty runs globally")
		batchSize      = flag.Int("batch-size", 100, "Default batch size for phases that do not set one")
		workers        = flag.Int("workers", 1, "Concurrent batch flushers")
		metricsAddr    = flag.String("metrics-addr", "", "Address for the Prometheus metrics endpoint; empty disables it")
		logLevel       = flag.String("log-level", "info", "Log level: debug, info, warn, or error")
		showVersion    = flag.Bool("version", false, "Print version information and exit")
	)

	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get())
		return
	}

	log := logrus.New()
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		log.WithError(err).Fatal("invalid log level")
	}
	log.SetLevel(level)
	logger := logging.New(log)

	dialect, err := sqldialect.Parse(*driver)
	if err != nil {
		log.WithError(err).Fatal("unsupported driver")
	}

	def, err := definition.Load(*definitionPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load definition")
	}

	plan, err := definition.Build(def, mapping.DefaultRegistry())
	if err != nil {
		log.WithError(err).Fatal("failed to build plan")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open(driverName(dialect), *dsn)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer func() {
		_ = db.Close()
	}()

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.WithError(err).Fatal("failed to reach database")
	}

	if *metricsAddr != "" {
		server := metrics.NewServerWithConfig(metrics.ServerConfig{
			Addr:   *metricsAddr,
			Logger: logger,
		})
		server.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	orchestrator, err := run.New(run.Config{
		Ledger:    ledgersqldb.New(db, dialect),
		Store:     storesqldb.New(db, dialect),
		Snapshots: rollbacksqldb.New(db, dialect),
		BatchSize: *batchSize,
		Workers:   *workers,
		Logger:    logger,
	}, plan)
	if err != nil {
		log.WithError(err).Fatal("failed to create orchestrator")
	}

	scopes := []migrate.Scope{migrate.GlobalScope()}
	if *tenants != "" {
		scopes = scopes[:0]
		for _, tenant := range strings.Split(*tenants, ",") {
			tenant = strings.TrimSpace(tenant)
			if tenant != "" {
				scopes = append(scopes, migrate.TenantScope(tenant))
			}
		}
	}

	exitCode := 0
	for _, scope := range scopes {
		report, runErr := runScope(ctx, orchestrator, scope)
		entry := log.WithFields(logrus.Fields{
			"run":        report.RunID,
			"scope":      scope.String(),
			"phases":     len(report.PhasesRun),
			"durationMs": report.DurationMs,
		})
		if runErr != nil {
			entry.WithError(runErr).Error("migration run aborted")
			exitCode = 1
			break
		}
		if !report.OverallSuccess {
			entry.Error("migration run failed")
			exitCode = 1
			continue
		}
		entry.Info("migration run succeeded")
	}

	os.Exit(exitCode)
}

func runScope(ctx context.Context, orchestrator *run.Orchestrator, scope migrate.Scope) (migrate.RunReport, error) {
	if scope.Kind == migrate.ScopeGlobal {
		return orchestrator.RunPerGlobal(ctx)
	}
	return orchestrator.RunPerScope(ctx, scope)
}

// driverName maps a dialect to its database/sql driver name. The
// drivers register themselves through the sqldialect package's imports.
func driverName(d sqldialect.Dialect) string {
	switch d {
	case sqldialect.MySQL:
		return "mysql"
	case sqldialect.SQLite:
		return "sqlite3"
	default:
		return "postgres"
	}
}
