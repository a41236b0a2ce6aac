// Package reading defines the canonical reading model and the payload
// normalizer that turns loose device submissions into per-sensor records.
package reading

// Sensor identifies the originating sensor hardware class.
type Sensor string

const (
	// SensorBME280 is the pressure-capable class (temperature/humidity/pressure).
	SensorBME280 Sensor = "bme280"

	// SensorDHT22 is the temperature/humidity-only class.
	SensorDHT22 Sensor = "dht22"
)

// Recognized zone labels. Anything else in a payload hint is ignored.
const (
	ZoneIndoor  = "indoor"
	ZoneOutdoor = "outdoor"
)

// Reading is one stored row of measurements for a single sensor kind at a
// single server-assigned timestamp. Optional fields are nil when absent.
// Zone and Source are empty when they equal the configured defaults; the
// store persists them as NULL in that case.
type Reading struct {
	Timestamp int64    `json:"ts"`
	Sensor    Sensor   `json:"sensor"`
	Zone      string   `json:"zone,omitempty"`
	Temp      *float64 `json:"temp,omitempty"`
	Hum       *float64 `json:"hum,omitempty"`
	Press     *float64 `json:"press,omitempty"`
	Source    string   `json:"source,omitempty"`
}

// HasValue reports whether at least one measurement slot is set.
// A reading with no values is never written.
func (r Reading) HasValue() bool {
	return r.Temp != nil || r.Hum != nil || r.Press != nil
}
