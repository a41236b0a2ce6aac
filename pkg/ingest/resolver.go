package ingest

import (
	"strings"

	"github.com/homewx/homewx/pkg/reading"
)

// Resolver maps a sensor kind and a payload zone hint to the zone label to
// store. Devices are fixed in physical location but firmware does not always
// tag zone correctly, so server-side policy can override or backfill.
//
// Resolution order, first match wins:
//  1. hard sensor-to-zone binding, when ForceBySensor is set
//  2. a recognized payload hint (case-insensitive, trimmed)
//  3. the configured default
//
// Resolve is a pure function: same inputs, same zone.
type Resolver struct {
	ForceBySensor bool
	IndoorSensor  string
	OutdoorSensor string
	DefaultZone   string
}

// Resolve returns the zone label for one reading.
func (r Resolver) Resolve(sensor reading.Sensor, hint string) string {
	s := strings.ToLower(strings.TrimSpace(string(sensor)))
	if r.ForceBySensor {
		if r.IndoorSensor != "" && s == r.IndoorSensor {
			return reading.ZoneIndoor
		}
		if r.OutdoorSensor != "" && s == r.OutdoorSensor {
			return reading.ZoneOutdoor
		}
	}
	z := strings.ToLower(strings.TrimSpace(hint))
	if z == reading.ZoneIndoor || z == reading.ZoneOutdoor {
		return z
	}
	return r.DefaultZone
}
