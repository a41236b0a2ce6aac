// Package export streams stored readings as CSV for offline analysis and
// backup.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/homewx/homewx/pkg/reading"
	"github.com/homewx/homewx/pkg/storage"
)

// Exporter writes readings from the store to a CSV stream.
type Exporter struct {
	store storage.Querier
}

// NewExporter creates a new exporter.
func NewExporter(store storage.Querier) *Exporter {
	return &Exporter{store: store}
}

// Options configures one export.
type Options struct {
	// Time range in unix seconds, inclusive.
	From, To int64

	// Limit caps the number of rows (0 = no limit).
	Limit int
}

// Result contains stats about the export.
type Result struct {
	RowsExported int `json:"rows_exported"`
}

var header = []string{"ts", "sensor", "zone", "temp", "hum", "press", "source"}

// ToCSV writes the selected readings in ascending timestamp order.
// Optional fields are empty cells, matching their NULL storage form.
func (e *Exporter) ToCSV(ctx context.Context, w io.Writer, opts Options) (*Result, error) {
	rows, err := e.store.RangeAsc(ctx, opts.From, opts.To, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}

	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(header); err != nil {
		return nil, fmt.Errorf("write CSV header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(record(r)); err != nil {
			return nil, fmt.Errorf("write CSV row: %w", err)
		}
	}
	return &Result{RowsExported: len(rows)}, nil
}

func record(r reading.Reading) []string {
	return []string{
		strconv.FormatInt(r.Timestamp, 10),
		string(r.Sensor),
		r.Zone,
		cell(r.Temp),
		cell(r.Hum),
		cell(r.Press),
		r.Source,
	}
}

func cell(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
