// Package server wires the HTTP API: routing, CORS, and the small
// operational endpoints that don't belong to ingest or query.
package server

import (
	"net/http"
	"time"

	"github.com/homewx/homewx/pkg/httpx"
	"github.com/homewx/homewx/pkg/server/monitor"
)

var startTime = time.Now()

// StorageUsage represents current on-disk database size.
type StorageUsage struct {
	UsedBytes int64 `json:"used_bytes"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// handleHealth returns service health status.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httpx.RespondJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: "1.0.0",
		Uptime:  time.Since(startTime).Round(time.Second).String(),
	})
}

// handleStorageUsage returns the database size on disk.
func handleStorageUsage(m *monitor.DBSizeMonitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		used, err := m.Usage()
		if err != nil {
			httpx.RespondError(w, http.StatusInternalServerError, err)
			return
		}
		httpx.RespondJSON(w, http.StatusOK, StorageUsage{UsedBytes: used})
	}
}
