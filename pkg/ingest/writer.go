package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/homewx/homewx/pkg/reading"
	"github.com/homewx/homewx/pkg/retention"
	"github.com/homewx/homewx/pkg/storage"
)

// Writer owns the single logical write path: inserts, the flush-batch
// counter, and the retention sweeper. One mutex serializes everything even
// when the HTTP server handles requests concurrently.
//
// The flush counter trades crash-window size for throughput: with threshold
// T, up to T-1 of the most recent submissions can be lost on an unclean
// crash. Counters are not persisted; a restart delays, never skips, a flush
// or sweep by at most one threshold's worth of writes.
type Writer struct {
	mu          sync.Mutex
	store       storage.Store
	commitEvery int
	sinceFlush  int
	sweeper     *retention.Sweeper
}

// NewWriter creates the writer. commitEvery of 1 flushes on every write.
func NewWriter(store storage.Store, commitEvery int, sweeper *retention.Sweeper) *Writer {
	if commitEvery < 1 {
		commitEvery = 1
	}
	return &Writer{store: store, commitEvery: commitEvery, sweeper: sweeper}
}

// WriteAll persists one submission's rows, then applies the batching and
// sweeping policy. Both counters advance once per submission that wrote at
// least one row, not once per row. A zero-row submission is a no-op.
//
// No atomicity across rows is promised: if the second insert fails the first
// stays in the pending batch, and the error is surfaced without retry.
func (w *Writer) WriteAll(ctx context.Context, rows []reading.Reading) error {
	if len(rows) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, r := range rows {
		if err := w.store.Insert(ctx, r); err != nil {
			return fmt.Errorf("insert %s reading: %w", r.Sensor, err)
		}
	}

	w.sinceFlush++
	if w.sinceFlush >= w.commitEvery {
		if err := w.store.Flush(ctx); err != nil {
			return fmt.Errorf("flush batch: %w", err)
		}
		w.sinceFlush = 0
	}

	w.sweeper.RecordWrite()
	if _, err := w.sweeper.MaybeSweep(ctx); err != nil {
		return fmt.Errorf("retention sweep: %w", err)
	}
	return nil
}

// Flush forces any pending batch to disk, used at shutdown.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.store.Flush(ctx); err != nil {
		return err
	}
	w.sinceFlush = 0
	return nil
}
