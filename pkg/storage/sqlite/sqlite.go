// Package sqlite provides the SQLite implementation of storage.Store and
// storage.Querier. The writer holds a single connection and batches inserts
// inside an open transaction; Flush commits it. Readers open a separate
// read-only shared-cache connection and never block the writer.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/homewx/homewx/pkg/reading"
)

// Schema is the on-disk schema. ts is unix UTC seconds assigned by the
// server. zone and source are NULL when they equal the configured defaults.
// idx_readings_ts serves ascending range scans; idx_readings_sensor_ts_desc
// serves the descending limit-1 lookups on the read side.
const Schema = `
CREATE TABLE IF NOT EXISTS readings (
	ts     INTEGER NOT NULL,
	sensor TEXT    NOT NULL,
	zone   TEXT,
	temp   REAL,
	hum    REAL,
	press  REAL,
	source TEXT
);
CREATE INDEX IF NOT EXISTS idx_readings_ts ON readings(ts);
CREATE INDEX IF NOT EXISTS idx_readings_sensor_ts_desc ON readings(sensor, ts DESC);
`

const (
	insertSQL = `INSERT INTO readings (ts, sensor, zone, temp, hum, press, source)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	deleteSQL = `DELETE FROM readings WHERE ts < ?`
)

// Config holds configuration for the SQLite store.
type Config struct {
	// Path to the database file. The parent directory is created if missing.
	Path string
}

// Store is the write side. All writes funnel through one connection; the
// mutex protects the open transaction state.
type Store struct {
	db   *sql.DB
	path string

	mu     sync.Mutex
	tx     *sql.Tx
	insert *sql.Stmt
}

// Open opens (and if necessary creates) the database for writing.
func Open(cfg Config) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// auto_vacuum must be set before the first table is created for
	// incremental_vacuum to work on a fresh database.
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_auto_vacuum=incremental&_busy_timeout=10000", cfg.Path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single writer: one connection, kept forever.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, path: cfg.Path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Insert appends one row inside the current batch transaction, starting a
// new one if none is open. The row is durable only after Flush.
//
// The batch belongs to the store, not to the caller: it may span many
// requests before a flush, so it must not be tied to a request context that
// database/sql would roll it back on. The row's own Exec still honors ctx.
func (s *Store) Insert(ctx context.Context, r reading.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		tx, err := s.db.BeginTx(context.Background(), nil)
		if err != nil {
			return fmt.Errorf("begin batch: %w", err)
		}
		stmt, err := tx.Prepare(insertSQL)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("prepare insert: %w", err)
		}
		s.tx = tx
		s.insert = stmt
	}

	_, err := s.insert.ExecContext(ctx,
		r.Timestamp, string(r.Sensor),
		nullString(r.Zone), nullFloat(r.Temp), nullFloat(r.Hum), nullFloat(r.Press),
		nullString(r.Source),
	)
	if err != nil {
		// The transaction state is unknown after a failed exec; discard
		// the batch so the next submission starts fresh instead of
		// failing forever on a dead statement.
		s.rollbackLocked()
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

// Flush commits the open batch transaction, forcing pending inserts to
// stable storage. No-op when nothing is pending.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked()
}

func (s *Store) commitLocked() error {
	if s.tx == nil {
		return nil
	}
	s.insert.Close()
	s.insert = nil

	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (s *Store) rollbackLocked() {
	if s.tx == nil {
		return
	}
	s.insert.Close()
	s.insert = nil
	s.tx.Rollback()
	s.tx = nil
}

// DeleteOlderThan removes rows with ts < cutoff and commits, folding any
// pending batch into the same commit. Returns the number of rows removed.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res sql.Result
	var err error
	if s.tx != nil {
		res, err = s.tx.ExecContext(ctx, deleteSQL, cutoff)
	} else {
		res, err = s.db.ExecContext(ctx, deleteSQL, cutoff)
	}
	if err != nil {
		s.rollbackLocked()
		return 0, fmt.Errorf("delete readings: %w", err)
	}
	if err := s.commitLocked(); err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Reclaim returns pages freed by deletions to the filesystem.
func (s *Store) Reclaim(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.commitLocked(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA incremental_vacuum;"); err != nil {
		return fmt.Errorf("incremental vacuum: %w", err)
	}
	return nil
}

// Close flushes any pending batch and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	err := s.commitLocked()
	s.mu.Unlock()

	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}
