package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/homewx/homewx/pkg/reading"
	"github.com/homewx/homewx/pkg/storage/memory"
)

func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	ctx := context.Background()

	temp := 21.5
	hum := 44.0
	press := 751.0
	require.NoError(t, store.Insert(ctx, reading.Reading{
		Timestamp: 1000,
		Sensor:    reading.SensorBME280,
		Temp:      &temp,
		Hum:       &hum,
		Press:     &press,
	}))

	dhtTemp := 22.0
	require.NoError(t, store.Insert(ctx, reading.Reading{
		Timestamp: 2000,
		Sensor:    reading.SensorDHT22,
		Zone:      "outdoor",
		Temp:      &dhtTemp,
		Source:    "esp32-balcony",
	}))
	return store
}

func TestToCSV(t *testing.T) {
	store := seedStore(t)
	exporter := NewExporter(store)

	var buf bytes.Buffer
	result, err := exporter.ToCSV(context.Background(), &buf, Options{From: 0, To: 3000})
	require.NoError(t, err)
	require.Equal(t, 2, result.RowsExported)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	require.Equal(t, []string{"ts", "sensor", "zone", "temp", "hum", "press", "source"}, records[0])
	require.Equal(t, []string{"1000", "bme280", "", "21.5", "44", "751", ""}, records[1])
	require.Equal(t, []string{"2000", "dht22", "outdoor", "22", "", "", "esp32-balcony"}, records[2])
}

func TestToCSV_RangeAndLimit(t *testing.T) {
	store := seedStore(t)
	exporter := NewExporter(store)

	var buf bytes.Buffer
	result, err := exporter.ToCSV(context.Background(), &buf, Options{From: 1500, To: 3000})
	require.NoError(t, err)
	require.Equal(t, 1, result.RowsExported)
	require.True(t, strings.Contains(buf.String(), "dht22"))
	require.False(t, strings.Contains(buf.String(), "bme280"))

	buf.Reset()
	result, err = exporter.ToCSV(context.Background(), &buf, Options{From: 0, To: 3000, Limit: 1})
	require.NoError(t, err)
	require.Equal(t, 1, result.RowsExported)
}

func TestToCSV_EmptyStoreWritesHeaderOnly(t *testing.T) {
	exporter := NewExporter(memory.New())

	var buf bytes.Buffer
	result, err := exporter.ToCSV(context.Background(), &buf, Options{From: 0, To: 1000})
	require.NoError(t, err)
	require.Equal(t, 0, result.RowsExported)
	require.Equal(t, "ts,sensor,zone,temp,hum,press,source\n", buf.String())
}

func TestHandleExport(t *testing.T) {
	store := memory.New()
	temp := 21.0
	require.NoError(t, store.Insert(context.Background(), reading.Reading{
		Timestamp: 1700000000 - 3600,
		Sensor:    reading.SensorBME280,
		Temp:      &temp,
	}))

	h := NewHandler(store)
	h.now = func() time.Time { return time.Unix(1700000000, 0) }

	req := httptest.NewRequest(http.MethodGet, "/v1/export?hours=2", nil)
	rr := httptest.NewRecorder()
	h.HandleExport(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	require.Contains(t, rr.Header().Get("Content-Disposition"), "attachment")

	records, err := csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestHandleExport_WindowValidation(t *testing.T) {
	h := NewHandler(memory.New())

	for _, target := range []string{
		"/v1/export?hours=0",
		"/v1/export?hours=-4",
		"/v1/export?hours=week",
		"/v1/export?hours=2000", // beyond the 30-day maximum
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rr := httptest.NewRecorder()
		h.HandleExport(rr, req)
		require.Equal(t, http.StatusBadRequest, rr.Code, "target %s", target)
	}
}
