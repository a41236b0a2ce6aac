package export

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/homewx/homewx/pkg/httpx"
	"github.com/homewx/homewx/pkg/storage"
)

const (
	// DefaultExportWindow is the default time range for exports.
	DefaultExportWindow = 24 * time.Hour

	// MaxExportWindow is the maximum allowed export time range.
	MaxExportWindow = 30 * 24 * time.Hour
)

// Handler handles the export HTTP endpoint.
type Handler struct {
	exporter *Exporter

	now func() time.Time
}

// NewHandler creates a new export handler.
func NewHandler(store storage.Querier) *Handler {
	return &Handler{
		exporter: NewExporter(store),
		now:      time.Now,
	}
}

// HandleExport handles GET /v1/export?hours=N: the last N hours of readings
// as CSV, newest-window first bounded by MaxExportWindow.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	window := DefaultExportWindow
	if raw := r.URL.Query().Get("hours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours < 1 {
			httpx.RespondError(w, http.StatusBadRequest,
				fmt.Errorf("invalid hours=%q: want a positive integer", raw))
			return
		}
		window = time.Duration(hours) * time.Hour
		if window > MaxExportWindow {
			httpx.RespondError(w, http.StatusBadRequest,
				fmt.Errorf("window exceeds maximum of %v", MaxExportWindow))
			return
		}
	}

	now := h.now()
	opts := Options{
		From: now.Add(-window).Unix(),
		To:   now.Unix(),
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=readings-%s.csv", now.Format("20060102-150405")))

	result, err := h.exporter.ToCSV(r.Context(), w, opts)
	if err != nil {
		// Headers are already out; all we can do is log.
		log.Printf("Export failed: %v", err)
		return
	}
	log.Printf("Exported %d readings (window %v)", result.RowsExported, window)
}
