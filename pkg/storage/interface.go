package storage

import (
	"context"

	"github.com/homewx/homewx/pkg/reading"
)

// Store is the single-writer interface for persisting readings.
// Implementations: sqlite (production), memory (testing).
//
// Insert does not by itself guarantee the row survives a crash; durability is
// forced by Flush, which the ingest writer calls per its batching policy.
// Callers are expected to serialize Insert/Flush/DeleteOlderThan/Reclaim.
type Store interface {
	// Insert appends one row.
	Insert(ctx context.Context, r reading.Reading) error

	// Flush forces pending inserts to stable storage.
	Flush(ctx context.Context) error

	// DeleteOlderThan removes rows with timestamp strictly less than cutoff
	// (unix seconds) and returns the number removed.
	DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error)

	// Reclaim compacts free space left by deletions. Worth calling only
	// after a nonzero delete.
	Reclaim(ctx context.Context) error

	// Close flushes and shuts down the store.
	Close() error
}

// Querier is the read-side interface. Readers may run concurrently with the
// writer and see a snapshot lagging the latest write by up to one flush.
type Querier interface {
	// Latest returns the newest row for the sensor, or for any sensor when
	// sensor is empty. Returns nil when the store is empty.
	Latest(ctx context.Context, sensor string) (*reading.Reading, error)

	// AtOrBefore returns the newest row with timestamp <= ts, optionally
	// filtered by sensor. Returns nil when no row qualifies.
	AtOrBefore(ctx context.Context, sensor string, ts int64) (*reading.Reading, error)

	// RangeAsc returns rows with from <= timestamp <= to in ascending
	// timestamp order, up to limit rows (0 = no limit).
	RangeAsc(ctx context.Context, from, to int64, limit int) ([]reading.Reading, error)

	// Overview returns per-sensor row counts and newest timestamps.
	Overview(ctx context.Context) ([]SensorOverview, error)
}

// SensorOverview summarizes one sensor's presence in the store.
type SensorOverview struct {
	Sensor string `json:"sensor"`
	Count  int64  `json:"count"`
	LastTS int64  `json:"last_ts"`
}
