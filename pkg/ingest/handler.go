// Package ingest implements the write path: the HTTP ingestion endpoint,
// zone resolution, the batching writer, and protections on the free-text
// provenance label.
package ingest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/homewx/homewx/pkg/httpx"
	"github.com/homewx/homewx/pkg/reading"
)

// Handler handles reading submissions from embedded sensors.
type Handler struct {
	writer   *Writer
	resolver Resolver

	// Zone/source equal to these defaults are stored as NULL.
	defaultZone   string
	defaultSource string

	tracker *CardinalityTracker
	hub     *ReadingsHub // optional live feed

	now func() time.Time
}

// NewHandler creates the ingestion handler.
func NewHandler(writer *Writer, resolver Resolver, defaultZone, defaultSource string) *Handler {
	return &Handler{
		writer:        writer,
		resolver:      resolver,
		defaultZone:   defaultZone,
		defaultSource: defaultSource,
		tracker:       NewCardinalityTracker(),
		now:           time.Now,
	}
}

// SetHub attaches a WebSocket hub that receives every accepted reading.
func (h *Handler) SetHub(hub *ReadingsHub) {
	h.hub = hub
}

// Tracker returns the source cardinality tracker, for the stats endpoint.
func (h *Handler) Tracker() *CardinalityTracker {
	return h.tracker
}

// IngestResponse is the response payload for a submission.
type IngestResponse struct {
	Status string `json:"status"`
	Rows   int    `json:"rows"`
}

// HandleIngest handles POST /v1/readings. A combined submission may carry
// both sensor groups and yields up to two rows, one per group with at least
// one finite measurement. A submission yielding zero rows is still a
// success; absence of data is not an error.
func (h *Handler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err)
		return
	}

	// One server-assigned timestamp per submission; device clocks are not
	// trusted.
	ts := h.now().Unix()

	groups, zoneHint, sourceHint := reading.Normalize(payload)

	rows := make([]reading.Reading, 0, len(groups))
	for _, g := range groups {
		zone := h.resolver.Resolve(g.Sensor, zoneHint)
		if zone == h.defaultZone {
			zone = ""
		}
		source := sourceHint
		if source == h.defaultSource {
			source = ""
		}

		if err := h.tracker.Check(g.Sensor, zone, source); err != nil {
			httpx.RespondError(w, http.StatusTooManyRequests, err)
			return
		}

		rows = append(rows, reading.Reading{
			Timestamp: ts,
			Sensor:    g.Sensor,
			Zone:      zone,
			Temp:      g.Temp,
			Hum:       g.Hum,
			Press:     g.Press,
			Source:    source,
		})
	}

	if err := h.writer.WriteAll(r.Context(), rows); err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}

	for _, rec := range rows {
		h.tracker.Record(rec.Sensor, rec.Zone, rec.Source)
	}

	if h.hub != nil && len(rows) > 0 && h.hub.HasClients() {
		h.hub.Broadcast(map[string]any{
			"type":     "readings",
			"ts":       ts,
			"readings": rows,
		})
	}

	httpx.RespondJSON(w, http.StatusOK, IngestResponse{Status: "ok", Rows: len(rows)})
}

// HandleCardinalityStats handles GET /v1/cardinality.
func (h *Handler) HandleCardinalityStats(w http.ResponseWriter, r *http.Request) {
	httpx.RespondJSON(w, http.StatusOK, h.tracker.Stats())
}
