// Package config loads server configuration from environment variables.
// Every knob has a default; unparsable values are reported as errors so the
// caller can fail at startup rather than run with a half-applied config.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Defaults for the ingestion and maintenance pipeline.
const (
	DefaultDataDir         = "./data"
	DefaultRetentionDays   = 90
	DefaultCommitEvery     = 1
	DefaultCleanupEvery    = 400
	DefaultCleanupInterval = 60 * time.Second
	DefaultZone            = "indoor"
	DefaultSource          = "esp32"
	DefaultPort            = "8080"
)

// Config holds the full configuration surface of the server.
type Config struct {
	// DataDir is created at startup if missing. DBFile defaults to
	// <DataDir>/weather.db.
	DataDir string
	DBFile  string
	Port    string

	// RetentionDays is the maximum age a row may reach before a sweep
	// deletes it.
	RetentionDays int

	// CommitEvery is the flush-batch threshold: number of inserts between
	// forced durability flushes. 1 flushes on every insert.
	CommitEvery int

	// CleanupEvery and CleanupInterval gate the retention sweep: both the
	// insert-count threshold and the minimum wall-clock interval must be
	// satisfied before a sweep runs.
	CleanupEvery    int
	CleanupInterval time.Duration

	// DefaultZone and DefaultSource are elided from storage: a reading
	// whose zone or source equals the default is stored with NULL.
	DefaultZone   string
	DefaultSource string

	// Hard sensor-to-zone bindings, applied only when ForceZoneBySensor is
	// set. Values are canonical sensor names ("bme280", "dht22"); empty
	// leaves that zone unbound.
	IndoorSensor      string
	OutdoorSensor     string
	ForceZoneBySensor bool
}

// Load reads configuration from the environment. It returns an error for any
// value that fails to parse; callers are expected to treat that as fatal.
func Load() (Config, error) {
	cfg := Config{
		DataDir:       getEnv("DATA_DIR", DefaultDataDir),
		Port:          getEnv("PORT", DefaultPort),
		DefaultZone:   getEnv("DEFAULT_ZONE", DefaultZone),
		DefaultSource: getEnv("DEFAULT_SOURCE", DefaultSource),
		IndoorSensor:  strings.ToLower(strings.TrimSpace(os.Getenv("INDOOR_SENSOR"))),
		OutdoorSensor: strings.ToLower(strings.TrimSpace(os.Getenv("OUTDOOR_SENSOR"))),
	}
	cfg.DBFile = getEnv("DB_FILE", filepath.Join(cfg.DataDir, "weather.db"))

	var err error
	if cfg.RetentionDays, err = getEnvInt("RETENTION_DAYS", DefaultRetentionDays); err != nil {
		return Config{}, err
	}
	if cfg.CommitEvery, err = getEnvInt("COMMIT_EVERY", DefaultCommitEvery); err != nil {
		return Config{}, err
	}
	if cfg.CleanupEvery, err = getEnvInt("CLEANUP_EVERY", DefaultCleanupEvery); err != nil {
		return Config{}, err
	}
	intervalSec, err := getEnvInt("CLEANUP_INTERVAL_SEC", int(DefaultCleanupInterval/time.Second))
	if err != nil {
		return Config{}, err
	}
	cfg.CleanupInterval = time.Duration(intervalSec) * time.Second

	if cfg.ForceZoneBySensor, err = getEnvBool("FORCE_ZONE_BY_SENSOR", false); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	return n, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	return b, nil
}
