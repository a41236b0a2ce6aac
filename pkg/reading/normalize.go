package reading

import (
	"math"
	"strconv"
	"strings"
)

// Group holds the measurement slots recognized for one sensor kind within a
// single submission. A slot is nil when no synonym carried a finite value.
type Group struct {
	Sensor Sensor
	Temp   *float64
	Hum    *float64
	Press  *float64
}

// HasValue reports whether at least one slot is set.
func (g Group) HasValue() bool {
	return g.Temp != nil || g.Hum != nil || g.Press != nil
}

// groupDef maps one sensor kind to its accepted field-name synonyms.
// Synonym order is precedence order: the first key that coerces to a finite
// number wins. Keys are case-sensitive, matching the device firmware.
type groupDef struct {
	sensor Sensor
	temp   []string
	hum    []string
	press  []string
}

var groupDefs = []groupDef{
	{
		sensor: SensorDHT22,
		temp:   []string{"t_dht", "temperature_dht"},
		hum:    []string{"h_dht", "humidity_dht"},
	},
	{
		sensor: SensorBME280,
		temp:   []string{"t_bme", "temperature", "temp", "lt_bme"},
		hum:    []string{"h_bme", "humidity", "hum"},
		press:  []string{"pressure", "press", "p_bme"},
	},
}

// Normalize parses a decoded submission body into zero, one, or two field
// groups, one per sensor kind that carried at least one finite measurement.
// Groups are evaluated independently; an all-absent group yields nothing.
// The zone and source hints are extracted once per submission as trimmed
// strings (empty when missing or not a string).
func Normalize(payload map[string]any) (groups []Group, zone, source string) {
	for _, def := range groupDefs {
		g := Group{
			Sensor: def.sensor,
			Temp:   pick(payload, def.temp),
			Hum:    pick(payload, def.hum),
			Press:  pick(payload, def.press),
		}
		if g.HasValue() {
			groups = append(groups, g)
		}
	}
	return groups, stringHint(payload, "zone"), stringHint(payload, "source")
}

// pick returns the first synonym value that coerces to a finite number.
func pick(payload map[string]any, keys []string) *float64 {
	for _, k := range keys {
		if v, ok := payload[k]; ok {
			if f := coerce(v); f != nil {
				return f
			}
		}
	}
	return nil
}

// coerce converts a raw JSON value to a finite float64, or nil.
// Empty strings, "nan", infinities, and unparsable values are all absent;
// coercion never produces an error.
func coerce(v any) *float64 {
	switch x := v.(type) {
	case float64:
		if !isFinite(x) {
			return nil
		}
		return &x
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || !isFinite(f) {
			return nil
		}
		return &f
	default:
		return nil
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func stringHint(payload map[string]any, key string) string {
	if s, ok := payload[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
