package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/homewx/homewx/pkg/reading"
	"github.com/homewx/homewx/pkg/retention"
	"github.com/homewx/homewx/pkg/storage/memory"
)

// quietSweeper returns a sweeper whose gates never open.
func quietSweeper(store *memory.Store) *retention.Sweeper {
	return retention.New(store, 90, 1<<30, 24*time.Hour)
}

func row(ts int64) reading.Reading {
	temp := 21.0
	return reading.Reading{Timestamp: ts, Sensor: reading.SensorBME280, Temp: &temp}
}

func TestWriter_FlushEveryThirdSubmission(t *testing.T) {
	store := memory.New()
	w := NewWriter(store, 3, quietSweeper(store))
	ctx := context.Background()

	for i := 1; i <= 7; i++ {
		require.NoError(t, w.WriteAll(ctx, []reading.Reading{row(int64(i))}))

		want := i / 3
		require.Equal(t, want, store.Flushes(), "after submission %d", i)
	}
	require.Equal(t, 7, store.Len())
}

func TestWriter_FlushEverySubmission(t *testing.T) {
	store := memory.New()
	w := NewWriter(store, 1, quietSweeper(store))
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, w.WriteAll(ctx, []reading.Reading{row(int64(i))}))
		require.Equal(t, i, store.Flushes())
	}
}

func TestWriter_CountersAdvancePerSubmissionNotPerRow(t *testing.T) {
	store := memory.New()
	w := NewWriter(store, 2, quietSweeper(store))
	ctx := context.Background()

	// A two-row submission advances the flush counter once.
	require.NoError(t, w.WriteAll(ctx, []reading.Reading{row(1), row(1)}))
	require.Equal(t, 0, store.Flushes())

	require.NoError(t, w.WriteAll(ctx, []reading.Reading{row(2)}))
	require.Equal(t, 1, store.Flushes())
}

func TestWriter_EmptySubmissionIsNoOp(t *testing.T) {
	store := memory.New()
	w := NewWriter(store, 1, quietSweeper(store))

	require.NoError(t, w.WriteAll(context.Background(), nil))
	require.Equal(t, 0, store.Len())
	require.Equal(t, 0, store.Flushes())
}

func TestWriter_SweepRunsInline(t *testing.T) {
	store := memory.New()
	sweeper := retention.New(store, 90, 2, 0)
	w := NewWriter(store, 1, sweeper)
	ctx := context.Background()

	old := row(1) // far older than the retention horizon
	require.NoError(t, w.WriteAll(ctx, []reading.Reading{old}))
	require.Equal(t, 1, store.Len(), "first write must not trigger a sweep")

	require.NoError(t, w.WriteAll(ctx, []reading.Reading{row(time.Now().Unix())}))

	// The second qualifying write opened the count gate; the inline sweep
	// removed the expired row.
	require.Equal(t, 1, store.Len())
	require.Equal(t, 1, store.Reclaims())
}
