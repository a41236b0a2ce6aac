// Package retention bounds store growth by age. A sweep deletes rows older
// than the retention horizon and reclaims the freed pages.
//
// Sweeps are evaluated synchronously at insert time, never from a background
// timer: if ingestion stops, an overdue sweep waits for traffic to resume.
// That keeps the store single-writer at the cost of retention timing
// precision.
package retention

import (
	"context"
	"log"
	"time"

	"github.com/homewx/homewx/pkg/storage"
)

// Sweeper decides when to run the delete-plus-reclaim pair. It is gated by
// both an insert-count threshold and a minimum wall-clock interval: the count
// gate alone would thrash under bursty traffic, the time gate alone under
// steady high volume.
//
// Sweeper is not internally locked; the ingest writer serializes all calls.
type Sweeper struct {
	store       storage.Store
	retention   time.Duration
	every       int
	minInterval time.Duration

	sinceSweep int
	lastSweep  time.Time

	now func() time.Time
}

// Result reports what a MaybeSweep call did.
type Result struct {
	Swept   bool
	Deleted int64
}

// New creates a sweeper. A zero lastSweep watermark means the time gate is
// open immediately; on process restart the counters reinitialize, which
// delays but never skips a sweep.
func New(store storage.Store, retentionDays, every int, minInterval time.Duration) *Sweeper {
	return &Sweeper{
		store:       store,
		retention:   time.Duration(retentionDays) * 24 * time.Hour,
		every:       every,
		minInterval: minInterval,
		now:         time.Now,
	}
}

// RecordWrite notes one submission that wrote at least one row.
func (s *Sweeper) RecordWrite() {
	s.sinceSweep++
}

// MaybeSweep runs a sweep if both gates are satisfied. On a successful sweep
// the insert counter resets and the watermark advances even when zero rows
// were deleted; a zero-row sweep still counts as having run. Reclamation is
// skipped after a zero-row delete.
func (s *Sweeper) MaybeSweep(ctx context.Context) (Result, error) {
	now := s.now()
	if s.sinceSweep < s.every || now.Sub(s.lastSweep) < s.minInterval {
		return Result{}, nil
	}

	cutoff := now.Add(-s.retention).Unix()
	deleted, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return Result{}, err
	}
	if deleted > 0 {
		if err := s.store.Reclaim(ctx); err != nil {
			return Result{}, err
		}
		log.Printf("Retention sweep removed %d rows older than %s", deleted, time.Unix(cutoff, 0).UTC().Format(time.RFC3339))
	}

	s.sinceSweep = 0
	s.lastSweep = now
	return Result{Swept: true, Deleted: deleted}, nil
}

// Pending returns the number of writes recorded since the last sweep.
func (s *Sweeper) Pending() int {
	return s.sinceSweep
}

// SetClock overrides the time source. Tests only.
func (s *Sweeper) SetClock(now func() time.Time) {
	s.now = now
}
