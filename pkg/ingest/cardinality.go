package ingest

import (
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/homewx/homewx/pkg/reading"
)

// Series limits. The sensor and zone domains are small and closed, but
// source is free text from device firmware; the tracker caps how many
// distinct (sensor, zone, source) combinations the store will accept.
const (
	// MaxUniqueSeries is the maximum number of distinct series.
	MaxUniqueSeries = 4096

	// Series not seen for this long are forgotten.
	seriesRetentionPeriod = 24 * time.Hour

	// How often the tracker cleans up forgotten series.
	cleanupInterval = 1 * time.Hour
)

// ErrCardinalityLimit is returned when a submission would create a new
// series beyond MaxUniqueSeries.
var ErrCardinalityLimit = fmt.Errorf("series limit exceeded (max %d unique sensor/zone/source combinations)", MaxUniqueSeries)

// CardinalityTracker tracks unique series by xxhash of their identity.
// Old series are dropped periodically so memory stays bounded in
// long-running servers.
type CardinalityTracker struct {
	mu          sync.Mutex
	seen        map[uint64]time.Time
	lastCleanup time.Time
}

// NewCardinalityTracker creates an empty tracker.
func NewCardinalityTracker() *CardinalityTracker {
	return &CardinalityTracker{
		seen:        make(map[uint64]time.Time),
		lastCleanup: time.Now(),
	}
}

// Check returns an error if recording this series would exceed the limit.
// Known series always pass.
func (c *CardinalityTracker) Check(sensor reading.Sensor, zone, source string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()

	if _, ok := c.seen[seriesKey(sensor, zone, source)]; ok {
		return nil
	}
	if len(c.seen) >= MaxUniqueSeries {
		return ErrCardinalityLimit
	}
	return nil
}

// Record marks a series as seen. Call after the row was written.
func (c *CardinalityTracker) Record(sensor reading.Sensor, zone, source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen[seriesKey(sensor, zone, source)] = time.Now()
}

func (c *CardinalityTracker) cleanupLocked() {
	now := time.Now()
	if now.Sub(c.lastCleanup) < cleanupInterval {
		return
	}
	c.lastCleanup = now

	cutoff := now.Add(-seriesRetentionPeriod)
	for key, lastSeen := range c.seen {
		if lastSeen.Before(cutoff) {
			delete(c.seen, key)
		}
	}
}

// CardinalityStats provides series usage information.
type CardinalityStats struct {
	TotalSeries    int     `json:"total_series"`
	SeriesLimit    int     `json:"series_limit"`
	UtilizationPct float64 `json:"utilization_percent"`
}

// Stats returns current series statistics.
func (c *CardinalityTracker) Stats() CardinalityStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CardinalityStats{
		TotalSeries:    len(c.seen),
		SeriesLimit:    MaxUniqueSeries,
		UtilizationPct: float64(len(c.seen)) / float64(MaxUniqueSeries) * 100,
	}
}

func seriesKey(sensor reading.Sensor, zone, source string) uint64 {
	var h xxhash.Digest
	h.WriteString(string(sensor))
	h.WriteString("\x00")
	h.WriteString(zone)
	h.WriteString("\x00")
	h.WriteString(source)
	return h.Sum64()
}
