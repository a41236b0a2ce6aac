package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/homewx/homewx/pkg/reading"
	"github.com/homewx/homewx/pkg/storage"
)

// Reader is the read side: its own read-only shared-cache connection pool
// against the same file. Readers tolerate a snapshot lagging the writer by
// up to one flush interval.
type Reader struct {
	db *sql.DB
}

var _ storage.Querier = (*Reader)(nil)

// OpenReader opens the database read-only.
func OpenReader(path string) (*Reader, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&cache=shared&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite read-only: %w", err)
	}
	return &Reader{db: db}, nil
}

// Close closes the read connection pool.
func (r *Reader) Close() error {
	return r.db.Close()
}

const selectCols = "ts, sensor, zone, temp, hum, press, source"

// Latest returns the newest row, optionally filtered by sensor.
// Descending limit-1 scan bounded by idx_readings_sensor_ts_desc.
func (r *Reader) Latest(ctx context.Context, sensor string) (*reading.Reading, error) {
	if sensor == "" {
		return r.one(ctx, `SELECT `+selectCols+` FROM readings ORDER BY ts DESC LIMIT 1`)
	}
	return r.one(ctx, `SELECT `+selectCols+` FROM readings WHERE sensor = ? ORDER BY ts DESC LIMIT 1`, sensor)
}

// AtOrBefore returns the newest row with ts <= the given timestamp.
func (r *Reader) AtOrBefore(ctx context.Context, sensor string, ts int64) (*reading.Reading, error) {
	if sensor == "" {
		return r.one(ctx, `SELECT `+selectCols+` FROM readings WHERE ts <= ? ORDER BY ts DESC LIMIT 1`, ts)
	}
	return r.one(ctx, `SELECT `+selectCols+` FROM readings WHERE sensor = ? AND ts <= ? ORDER BY ts DESC LIMIT 1`, sensor, ts)
}

// RangeAsc returns rows in [from, to] in ascending timestamp order.
func (r *Reader) RangeAsc(ctx context.Context, from, to int64, limit int) ([]reading.Reading, error) {
	q := `SELECT ` + selectCols + ` FROM readings WHERE ts >= ? AND ts <= ? ORDER BY ts ASC`
	args := []any{from, to}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("range query: %w", err)
	}
	defer rows.Close()

	var out []reading.Reading
	for rows.Next() {
		rec, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Overview returns per-sensor row counts and newest timestamps.
func (r *Reader) Overview(ctx context.Context) ([]storage.SensorOverview, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT sensor, COUNT(*), MAX(ts) FROM readings GROUP BY sensor ORDER BY MAX(ts) DESC`)
	if err != nil {
		return nil, fmt.Errorf("overview query: %w", err)
	}
	defer rows.Close()

	var out []storage.SensorOverview
	for rows.Next() {
		var o storage.SensorOverview
		if err := rows.Scan(&o.Sensor, &o.Count, &o.LastTS); err != nil {
			return nil, fmt.Errorf("scan overview: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Reader) one(ctx context.Context, query string, args ...any) (*reading.Reading, error) {
	row := r.db.QueryRowContext(ctx, query, args...)
	rec, err := scanReading(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReading(s scanner) (reading.Reading, error) {
	var (
		rec              reading.Reading
		sensor           string
		zone, source     sql.NullString
		temp, hum, press sql.NullFloat64
	)
	if err := s.Scan(&rec.Timestamp, &sensor, &zone, &temp, &hum, &press, &source); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan reading: %w", err)
	}
	rec.Sensor = reading.Sensor(sensor)
	rec.Zone = zone.String
	rec.Source = source.String
	rec.Temp = floatPtr(temp)
	rec.Hum = floatPtr(hum)
	rec.Press = floatPtr(press)
	return rec, nil
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
