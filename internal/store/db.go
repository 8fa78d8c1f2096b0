// Package store is the SQL persistence layer. The same schema and queries run on
// PostgreSQL (pgx) and SQLite (modernc); timestamps are stored as Unix milliseconds.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/MrEthical07/matchauth/internal/config"
	"github.com/MrEthical07/matchauth/internal/logger"
	"github.com/MrEthical07/matchauth/internal/store/migrations"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DB wraps *sql.DB with the driver-specific statement builder.
type DB struct {
	*sql.DB
	driver string
	sb     sq.StatementBuilderType
	logger *logger.Logger
}

// NewConnect opens and pings the database described by cfg.
func NewConnect(ctx context.Context, cfg config.DB, log *logger.Logger) (*DB, error) {
	var (
		conn *sql.DB
		err  error
	)
	switch cfg.Driver {
	case DriverPostgres:
		conn, err = sql.Open("pgx", cfg.DSN)
		if err == nil {
			conn.SetMaxOpenConns(20)
			conn.SetMaxIdleConns(5)
			conn.SetConnMaxIdleTime(5 * time.Minute)
		}
	case DriverSQLite:
		conn, err = sql.Open("sqlite", cfg.DSN)
		if err == nil {
			// One writer at a time; transactions queue on the pool instead of failing with SQLITE_BUSY.
			conn.SetMaxOpenConns(1)
		}
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}
	if err != nil {
		log.Err(err).Str("func", "NewConnect").Msg("error occurred during database connection")
		return nil, fmt.Errorf("error occurred during database connection: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		log.Err(err).Str("func", "NewConnect").Msg("error connecting database (ping)")
		_ = conn.Close()
		return nil, err
	}
	log.Info().Str("func", "NewConnect").Str("driver", cfg.Driver).Msg("connected to database successfully")

	return Wrap(conn, cfg.Driver, log), nil
}

// Wrap adapts an open connection. Tests use it with sqlmock.
func Wrap(conn *sql.DB, driver string, log *logger.Logger) *DB {
	var placeholder sq.PlaceholderFormat = sq.Question
	if driver == DriverPostgres {
		placeholder = sq.Dollar
	}
	return &DB{
		DB:     conn,
		driver: driver,
		sb:     sq.StatementBuilder.PlaceholderFormat(placeholder),
		logger: log,
	}
}

// Driver returns DriverPostgres or DriverSQLite.
func (db *DB) Driver() string {
	return db.driver
}

// Migrate applies the embedded schema migrations.
func (db *DB) Migrate(ctx context.Context) error {
	dialect := "sqlite3"
	if db.driver == DriverPostgres {
		dialect = "pgx"
	}
	return migrations.Migrate(ctx, db.DB, dialect, db.logger)
}

// inTx runs fn inside a transaction, rolling back on any error.
func (db *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBeginningTransaction, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrCommittingTransaction, err)
	}
	return nil
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullableMillis(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromMillis(n.Int64)
	return &t
}
