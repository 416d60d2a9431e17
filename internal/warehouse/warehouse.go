// Package warehouse runs the read-only analytical queries and the stored
// procedures behind the analytics sections.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/snowflakedb/gosnowflake"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/soyeahso/agentdash/internal/config"
	"github.com/soyeahso/agentdash/internal/logging"
)

// Supported drivers.
const (
	DriverSnowflake = "snowflake"
	DriverSQLite    = "sqlite"
)

// Querier runs read queries. *DB and *sql.DB satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Execer runs statements. *DB and *sql.DB satisfy it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// DB is an explicit warehouse handle passed to every data-access function.
type DB struct {
	sql    *sql.DB
	driver string
	log    *logging.Logger
}

// Open connects to the configured warehouse. The sqlite driver creates the
// analytical relations locally and, with SeedFixtures, loads sample rows.
func Open(ctx context.Context, cfg config.WarehouseConfig, log *logging.Logger) (*DB, error) {
	log = log.Sub("warehouse")

	switch cfg.Driver {
	case DriverSnowflake, "":
		return openSnowflake(ctx, cfg.DSN, log)
	case DriverSQLite:
		return openSQLite(ctx, cfg.DSN, cfg.SeedFixtures, log)
	default:
		return nil, fmt.Errorf("unknown warehouse driver %q", cfg.Driver)
	}
}

func openSnowflake(ctx context.Context, dsn string, log *logging.Logger) (*DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("warehouse.dsn is required for the snowflake driver")
	}
	sfCfg, err := gosnowflake.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing snowflake dsn: %w", err)
	}

	sqlDB, err := sql.Open(DriverSnowflake, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening snowflake: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("connecting to snowflake: %w", err)
	}

	log.Info().
		Str("account", sfCfg.Account).
		Str("database", sfCfg.Database).
		Str("schema", sfCfg.Schema).
		Str("warehouse", sfCfg.Warehouse).
		Msg("warehouse connected")
	return &DB{sql: sqlDB, driver: DriverSnowflake, log: log}, nil
}

func openSQLite(ctx context.Context, path string, seed bool, log *logging.Logger) (*DB, error) {
	if path == "" {
		path = ":memory:"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating warehouse directory: %w", err)
		}
	}

	sqlDB, err := sql.Open(DriverSQLite, path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// One connection keeps a :memory: database shared by every query.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{sql: sqlDB, driver: DriverSQLite, log: log}
	if err := db.migrate(ctx, seed); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	log.Info().Str("path", path).Bool("seeded", seed).Msg("local warehouse opened")
	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	db.log.Debug().Msg("closing warehouse")
	return db.sql.Close()
}

// Driver returns the driver name.
func (db *DB) Driver() string {
	return db.driver
}

// Ping checks the warehouse is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.sql.PingContext(ctx)
}

// QueryContext runs a read query.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.sql.QueryContext(ctx, query, args...)
}

// ExecContext runs a statement. On sqlite, CALL statements for the known
// procedures run their local equivalent in one transaction instead.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if db.driver == DriverSQLite {
		if body, ok := localProcedure(query); ok {
			return db.execLocal(ctx, body)
		}
	}
	return db.sql.ExecContext(ctx, query, args...)
}

// execLocal applies a multi-statement procedure body atomically.
func (db *DB) execLocal(ctx context.Context, body string) (sql.Result, error) {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin procedure: %w", err)
	}
	res, err := tx.ExecContext(ctx, body)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit procedure: %w", err)
	}
	return res, nil
}

// localProcedure maps "CALL NAME()" to its sqlite body.
func localProcedure(stmt string) (string, bool) {
	stmt = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(stmt), ";"))
	name, ok := strings.CutPrefix(stmt, "CALL ")
	if !ok {
		return "", false
	}
	name = strings.TrimSuffix(strings.TrimSpace(name), "()")
	body, ok := localProcedures[name]
	return body, ok
}
