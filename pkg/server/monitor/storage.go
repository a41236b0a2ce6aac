// Package monitor reports on-disk database size for the storage endpoint.
package monitor

import (
	"os"
	"sync"
	"time"
)

// DBSizeMonitor tracks the on-disk size of the SQLite database, including
// the WAL and shared-memory sidecar files, with caching to avoid a stat per
// request.
type DBSizeMonitor struct {
	dbFile        string
	cachedBytes   int64
	lastCheck     time.Time
	cacheDuration time.Duration
	mu            sync.Mutex
}

// NewDBSizeMonitor creates a monitor for the given database file.
func NewDBSizeMonitor(dbFile string) *DBSizeMonitor {
	return &DBSizeMonitor{
		dbFile:        dbFile,
		cacheDuration: 10 * time.Second,
	}
}

// Usage returns the combined size in bytes of the database file and its
// -wal and -shm sidecars. The value is cached for a few seconds; after a
// sweep it may briefly overstate the reclaimed size.
func (m *DBSizeMonitor) Usage() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastCheck) < m.cacheDuration {
		return m.cachedBytes, nil
	}

	info, err := os.Stat(m.dbFile)
	if err != nil {
		return 0, err
	}
	size := info.Size()

	// Sidecars come and go with checkpoints; missing is fine.
	for _, suffix := range []string{"-wal", "-shm"} {
		if info, err := os.Stat(m.dbFile + suffix); err == nil {
			size += info.Size()
		}
	}

	m.cachedBytes = size
	m.lastCheck = time.Now()
	return size, nil
}
