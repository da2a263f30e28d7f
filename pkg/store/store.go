// Package store persists the catalog: artists, albums, tracks, audio,
// images, playlists, users, properties, genres, favorites, pins,
// scrobbles, subscriptions and downloads.
//
// Every operation takes a DBTX handle so callers can compose
// multi-step writes inside a single transaction. List operations
// return rows ordered by ascending id unless noted otherwise.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sonarhq/sonar/pkg/sonar"
)

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB owns the SQLite connection pool. SQLite serializes writers; the
// pool allows parallel readers.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the catalog database at path. ":memory:"
// opens a private in-memory database.
func Open(path string) (*DB, error) {
	dsn := path
	if path == ":memory:" {
		// A plain :memory: DSN would give every pooled connection its
		// own empty database.
		dsn = "file::memory:?mode=memory&cache=shared"
	}
	dsn = appendDSNParams(dsn, "_foreign_keys=on", "_busy_timeout=5000")

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	if path == ":memory:" {
		// Shared-cache in-memory databases are dropped when the last
		// connection closes; keep exactly one alive.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", path, err)
	}
	return &DB{db: db}, nil
}

func appendDSNParams(dsn string, params ...string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// Close shuts down the connection pool.
func (d *DB) Close() error { return d.db.Close() }

// Handle returns the plain connection handle for single-statement
// operations.
func (d *DB) Handle() DBTX { return d.db }

// WithTx runs fn inside a transaction, committing on nil and rolling
// back otherwise.
func (d *DB) WithTx(ctx context.Context, fn func(tx DBTX) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return sonar.WrapInternal("begin transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return sonar.WrapInternal("commit transaction", err)
	}
	return nil
}

// listLimits resolves ListParams into LIMIT/OFFSET values. A zero
// limit means "no limit", capped to protect memory.
const listLimitCap = 100_000

func listLimits(params sonar.ListParams) (limit, offset int) {
	limit = params.Limit
	if limit <= 0 || limit > listLimitCap {
		limit = listLimitCap
	}
	offset = params.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// dbErr wraps a driver error as an internal error with context.
func dbErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return sonar.WrapInternal(op, err)
}

// getErr maps sql.ErrNoRows onto the NotFound kind; lookups the
// caller explicitly performed are the only producers of NotFound.
func getErr(entity string, id fmt.Stringer, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return sonar.Errorf(sonar.ErrNotFound, "%s %s not found", entity, id)
	}
	return sonar.WrapInternal("get "+entity, err)
}
