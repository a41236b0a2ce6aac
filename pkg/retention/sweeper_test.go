package retention

import (
	"context"
	"testing"
	"time"

	"github.com/homewx/homewx/pkg/reading"
	"github.com/homewx/homewx/pkg/storage/memory"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSweeper_CountGate(t *testing.T) {
	store := memory.New()
	s := New(store, 90, 3, time.Minute)
	s.SetClock(fixedClock(time.Unix(1700000000, 0)))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		s.RecordWrite()
		res, err := s.MaybeSweep(ctx)
		if err != nil {
			t.Fatalf("MaybeSweep failed: %v", err)
		}
		if res.Swept {
			t.Fatalf("sweep ran after %d writes, threshold is 3", i+1)
		}
	}

	// Third write satisfies the count gate; the zero watermark leaves the
	// time gate open.
	s.RecordWrite()
	res, err := s.MaybeSweep(ctx)
	if err != nil {
		t.Fatalf("MaybeSweep failed: %v", err)
	}
	if !res.Swept {
		t.Fatal("expected sweep after reaching the count threshold")
	}
	if s.Pending() != 0 {
		t.Fatalf("counter not reset after sweep: %d", s.Pending())
	}
}

func TestSweeper_TimeGate(t *testing.T) {
	store := memory.New()
	now := time.Unix(1700000000, 0)
	s := New(store, 90, 1, time.Minute)
	s.SetClock(fixedClock(now))
	ctx := context.Background()

	s.RecordWrite()
	if res, _ := s.MaybeSweep(ctx); !res.Swept {
		t.Fatal("first sweep should run immediately")
	}

	// Count gate satisfied again, but only 30s elapsed.
	s.SetClock(fixedClock(now.Add(30 * time.Second)))
	s.RecordWrite()
	if res, _ := s.MaybeSweep(ctx); res.Swept {
		t.Fatal("sweep ran before the minimum interval elapsed")
	}

	s.SetClock(fixedClock(now.Add(61 * time.Second)))
	if res, _ := s.MaybeSweep(ctx); !res.Swept {
		t.Fatal("sweep should run once both gates are satisfied")
	}
}

func TestSweeper_RetentionCutoff(t *testing.T) {
	store := memory.New()
	now := time.Unix(1700000000, 0)
	cutoff := now.Add(-90 * 24 * time.Hour).Unix()

	temp := 20.5
	old1 := reading.Reading{Timestamp: cutoff - 86400, Sensor: reading.SensorBME280, Temp: &temp}
	old2 := reading.Reading{Timestamp: cutoff - 1, Sensor: reading.SensorDHT22, Temp: &temp}
	edge := reading.Reading{Timestamp: cutoff, Sensor: reading.SensorBME280, Temp: &temp}
	fresh := reading.Reading{Timestamp: now.Unix(), Sensor: reading.SensorDHT22, Temp: &temp}

	ctx := context.Background()
	for _, r := range []reading.Reading{old1, old2, edge, fresh} {
		store.Insert(ctx, r)
	}

	s := New(store, 90, 1, 0)
	s.SetClock(fixedClock(now))
	s.RecordWrite()

	res, err := s.MaybeSweep(ctx)
	if err != nil {
		t.Fatalf("MaybeSweep failed: %v", err)
	}
	if !res.Swept || res.Deleted != 2 {
		t.Fatalf("expected sweep deleting 2 rows, got swept=%v deleted=%d", res.Swept, res.Deleted)
	}
	if store.Reclaims() != 1 {
		t.Fatalf("expected one reclaim after a nonzero delete, got %d", store.Reclaims())
	}

	// Rows at or after the cutoff survive untouched.
	rows := store.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 surviving rows, got %d", len(rows))
	}
	if rows[0].Timestamp != cutoff || rows[1].Timestamp != now.Unix() {
		t.Fatalf("surviving rows changed: %+v", rows)
	}
}

func TestSweeper_ZeroRowSweepStillCounts(t *testing.T) {
	store := memory.New()
	now := time.Unix(1700000000, 0)
	s := New(store, 90, 1, time.Minute)
	s.SetClock(fixedClock(now))
	ctx := context.Background()

	s.RecordWrite()
	res, err := s.MaybeSweep(ctx)
	if err != nil {
		t.Fatalf("MaybeSweep failed: %v", err)
	}
	if !res.Swept || res.Deleted != 0 {
		t.Fatalf("expected an empty sweep, got %+v", res)
	}
	if store.Reclaims() != 0 {
		t.Fatal("reclaim should be skipped after a zero-row delete")
	}

	// The watermark advanced: the next sweep is time-gated even though
	// nothing was deleted.
	s.RecordWrite()
	if res, _ := s.MaybeSweep(ctx); res.Swept {
		t.Fatal("sweep ran again before the interval elapsed")
	}
}
