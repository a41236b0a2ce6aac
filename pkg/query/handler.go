// Package query implements the read-side HTTP API: latest reading, nearest
// reading at-or-before a point in time, trend deltas, and the per-sensor
// overview. It reads through storage.Querier and never touches the write
// path.
package query

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/homewx/homewx/pkg/httpx"
	"github.com/homewx/homewx/pkg/reading"
	"github.com/homewx/homewx/pkg/storage"
)

// DefaultCacheTTL bounds how stale a cached query response may be.
const DefaultCacheTTL = 2 * time.Second

// DefaultTrendMinutes is the trend window when the request does not name one.
const DefaultTrendMinutes = 30

// Handler serves the read-side endpoints.
type Handler struct {
	store storage.Querier
	cache *Cache

	// retentionDays bounds how far back /v1/at may look; anything older
	// has been swept.
	retentionDays int

	now func() time.Time
}

// NewHandler creates a query handler.
func NewHandler(store storage.Querier, retentionDays int) *Handler {
	return &Handler{
		store:         store,
		cache:         NewCache(DefaultCacheTTL),
		retentionDays: retentionDays,
		now:           time.Now,
	}
}

// HandleLatest handles GET /v1/latest?sensor=. The sensor parameter is
// optional; without it the newest row across all sensors is returned.
func (h *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	sensor := r.URL.Query().Get("sensor")
	if !validSensor(sensor) {
		httpx.RespondError(w, http.StatusBadRequest, fmt.Errorf("unknown sensor %q", sensor))
		return
	}

	key := "latest|" + sensor
	if v, ok := h.cache.Get(key); ok {
		httpx.RespondJSON(w, http.StatusOK, v)
		return
	}

	rec, err := h.store.Latest(r.Context(), sensor)
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}
	if rec == nil {
		httpx.RespondError(w, http.StatusNotFound, fmt.Errorf("no readings"))
		return
	}

	h.cache.Put(key, rec)
	httpx.RespondJSON(w, http.StatusOK, rec)
}

// HandleAt handles GET /v1/at?sensor=&ago=MINUTES: the nearest reading
// at-or-before now minus ago. Timestamps are server-assigned and only
// loosely ordered, so this searches rather than expecting an exact match.
func (h *Handler) HandleAt(w http.ResponseWriter, r *http.Request) {
	sensor := r.URL.Query().Get("sensor")
	if !validSensor(sensor) {
		httpx.RespondError(w, http.StatusBadRequest, fmt.Errorf("unknown sensor %q", sensor))
		return
	}

	ago, err := positiveIntParam(r, "ago")
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err)
		return
	}
	if max := h.retentionDays * 24 * 60; ago > max {
		httpx.RespondError(w, http.StatusBadRequest,
			fmt.Errorf("ago exceeds retention window (%d days)", h.retentionDays))
		return
	}

	key := fmt.Sprintf("at|%s|%d", sensor, ago)
	if v, ok := h.cache.Get(key); ok {
		httpx.RespondJSON(w, http.StatusOK, v)
		return
	}

	ts := h.now().Unix() - int64(ago)*60
	rec, err := h.store.AtOrBefore(r.Context(), sensor, ts)
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}
	if rec == nil {
		httpx.RespondError(w, http.StatusNotFound, fmt.Errorf("no reading at or before %d", ts))
		return
	}

	h.cache.Put(key, rec)
	httpx.RespondJSON(w, http.StatusOK, rec)
}

// TrendResponse pairs the latest reading with the nearest reading from the
// requested window back, plus per-field deltas. A delta is null when either
// side lacks the field.
type TrendResponse struct {
	Sensor   string           `json:"sensor,omitempty"`
	Minutes  int              `json:"minutes"`
	Latest   *reading.Reading `json:"latest"`
	Previous *reading.Reading `json:"previous,omitempty"`
	Delta    TrendDelta       `json:"delta"`
}

// TrendDelta holds latest-minus-previous differences.
type TrendDelta struct {
	Temp  *float64 `json:"temp,omitempty"`
	Hum   *float64 `json:"hum,omitempty"`
	Press *float64 `json:"press,omitempty"`
}

// HandleTrend handles GET /v1/trend?sensor=&minutes=.
func (h *Handler) HandleTrend(w http.ResponseWriter, r *http.Request) {
	sensor := r.URL.Query().Get("sensor")
	if !validSensor(sensor) {
		httpx.RespondError(w, http.StatusBadRequest, fmt.Errorf("unknown sensor %q", sensor))
		return
	}

	minutes := DefaultTrendMinutes
	if r.URL.Query().Get("minutes") != "" {
		var err error
		if minutes, err = positiveIntParam(r, "minutes"); err != nil {
			httpx.RespondError(w, http.StatusBadRequest, err)
			return
		}
	}

	key := fmt.Sprintf("trend|%s|%d", sensor, minutes)
	if v, ok := h.cache.Get(key); ok {
		httpx.RespondJSON(w, http.StatusOK, v)
		return
	}

	latest, err := h.store.Latest(r.Context(), sensor)
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}
	if latest == nil {
		httpx.RespondError(w, http.StatusNotFound, fmt.Errorf("no readings"))
		return
	}

	prev, err := h.store.AtOrBefore(r.Context(), sensor, latest.Timestamp-int64(minutes)*60)
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}

	resp := TrendResponse{
		Sensor:  sensor,
		Minutes: minutes,
		Latest:  latest,
	}
	if prev != nil {
		resp.Previous = prev
		resp.Delta = TrendDelta{
			Temp:  delta(latest.Temp, prev.Temp),
			Hum:   delta(latest.Hum, prev.Hum),
			Press: delta(latest.Press, prev.Press),
		}
	}

	h.cache.Put(key, resp)
	httpx.RespondJSON(w, http.StatusOK, resp)
}

// HandleSensors handles GET /v1/sensors: per-sensor row count and newest
// timestamp.
func (h *Handler) HandleSensors(w http.ResponseWriter, r *http.Request) {
	overview, err := h.store.Overview(r.Context())
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}
	if overview == nil {
		overview = []storage.SensorOverview{}
	}
	httpx.RespondJSON(w, http.StatusOK, overview)
}

func validSensor(s string) bool {
	switch s {
	case "", string(reading.SensorBME280), string(reading.SensorDHT22):
		return true
	}
	return false
}

func positiveIntParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s=%q: want a positive integer", name, raw)
	}
	return n, nil
}

func delta(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	d := *a - *b
	return &d
}
