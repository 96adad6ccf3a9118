// Package sqlite implements the repositories on an embedded SQLite file (modernc.org/sqlite, no cgo).
// I use it for single-node deployments and local development where Postgres is overkill.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/maxviazov/care-events-dashboard/internal/repository"
	"github.com/maxviazov/care-events-dashboard/migrations"
)

// DB wraps the database handle shared by the sqlite repositories.
type DB struct {
	db *sql.DB
}

// Open creates the file (and its directory) if needed and applies migrations.
func Open(ctx context.Context, path string, logger zerolog.Logger) (*DB, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}
	if err := repository.RunMigrations(ctx, goose.DialectSQLite3, db, migrations.SQLite(), logger); err != nil {
		db.Close()
		return nil, err
	}
	// single writer; set after migrations so goose can hold its own connection
	db.SetMaxOpenConns(1)

	logger.Info().Str("path", path).Msg("SQLite store ready")
	return &DB{db: db}, nil
}

// Close closes the underlying handle.
func (d *DB) Close() error { return d.db.Close() }

// Ping implements repository.Pinger.
func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }

// execer is the query surface shared by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

func (d *DB) exec(ctx context.Context) execer {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok && tx != nil {
		return tx
	}
	return d.db
}

type txManager struct{ d *DB }

// NewTxManager returns a TxManager backed by database/sql transactions.
func NewTxManager(d *DB) repository.TxManager { return &txManager{d: d} }

func (m *txManager) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok && tx != nil {
		return fn(ctx)
	}
	tx, err := m.d.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return mapError(err)
	}
	return mapError(tx.Commit())
}

// mapError translates SQLite result codes to repository errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var se *msqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return repository.ErrAlreadyExists
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY, sqlite3.SQLITE_CONSTRAINT_CHECK, sqlite3.SQLITE_CONSTRAINT_NOTNULL:
			return repository.ErrConflict
		}
		// primary result code, extended codes keep it in the low byte
		if primary := se.Code() & 0xff; primary == sqlite3.SQLITE_BUSY || primary == sqlite3.SQLITE_LOCKED {
			return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
		}
	}
	return err
}

var (
	_ repository.TxManager = (*txManager)(nil)
	_ repository.Pinger    = (*DB)(nil)
)
