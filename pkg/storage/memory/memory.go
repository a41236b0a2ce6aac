// Package memory provides an in-memory store. Data is lost on restart.
// Useful for testing and development.
package memory

import (
	"context"
	"sync"

	"github.com/homewx/homewx/pkg/reading"
	"github.com/homewx/homewx/pkg/storage"
)

// Store keeps readings in insertion order, which matches timestamp order for
// the server-assigned clock. It implements both storage.Store and
// storage.Querier and counts Flush/Reclaim calls so tests can assert on the
// batching and sweeping policy.
type Store struct {
	mu       sync.RWMutex
	rows     []reading.Reading
	flushes  int
	reclaims int
}

var (
	_ storage.Store   = (*Store)(nil)
	_ storage.Querier = (*Store)(nil)
)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{rows: make([]reading.Reading, 0, 1024)}
}

// Insert appends one row.
func (s *Store) Insert(ctx context.Context, r reading.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, r)
	return nil
}

// Flush records that a durability flush was requested.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

// DeleteOlderThan removes rows with timestamp strictly less than cutoff.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.rows[:0]
	var removed int64
	for _, r := range s.rows {
		if r.Timestamp < cutoff {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.rows = kept
	return removed, nil
}

// Reclaim records that space reclamation was requested.
func (s *Store) Reclaim(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reclaims++
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// Latest returns the newest row, optionally filtered by sensor.
// On duplicate timestamps the most recently inserted row wins.
func (s *Store) Latest(ctx context.Context, sensor string) (*reading.Reading, error) {
	return s.AtOrBefore(ctx, sensor, int64(1)<<62)
}

// AtOrBefore returns the newest row with timestamp <= ts.
func (s *Store) AtOrBefore(ctx context.Context, sensor string, ts int64) (*reading.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *reading.Reading
	for i := range s.rows {
		r := s.rows[i]
		if r.Timestamp > ts {
			continue
		}
		if sensor != "" && string(r.Sensor) != sensor {
			continue
		}
		if best == nil || r.Timestamp >= best.Timestamp {
			rc := r
			best = &rc
		}
	}
	return best, nil
}

// RangeAsc returns rows in [from, to] in ascending timestamp order.
func (s *Store) RangeAsc(ctx context.Context, from, to int64, limit int) ([]reading.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []reading.Reading
	for _, r := range s.rows {
		if r.Timestamp < from || r.Timestamp > to {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Overview returns per-sensor row counts and newest timestamps.
func (s *Store) Overview(ctx context.Context) ([]storage.SensorOverview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bys := make(map[string]*storage.SensorOverview)
	var order []string
	for _, r := range s.rows {
		o, ok := bys[string(r.Sensor)]
		if !ok {
			o = &storage.SensorOverview{Sensor: string(r.Sensor)}
			bys[string(r.Sensor)] = o
			order = append(order, string(r.Sensor))
		}
		o.Count++
		if r.Timestamp > o.LastTS {
			o.LastTS = r.Timestamp
		}
	}

	out := make([]storage.SensorOverview, 0, len(order))
	for _, s := range order {
		out = append(out, *bys[s])
	}
	return out, nil
}

// Len returns the number of stored rows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Rows returns a copy of all stored rows in insertion order.
func (s *Store) Rows() []reading.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]reading.Reading, len(s.rows))
	copy(out, s.rows)
	return out
}

// Flushes returns how many times Flush was called.
func (s *Store) Flushes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flushes
}

// Reclaims returns how many times Reclaim was called.
func (s *Store) Reclaims() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reclaims
}
