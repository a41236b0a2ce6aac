package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/homewx/homewx/pkg/reading"
)

func TestResolver_HardBindingOverridesHint(t *testing.T) {
	r := Resolver{
		ForceBySensor: true,
		IndoorSensor:  "bme280",
		OutdoorSensor: "dht22",
		DefaultZone:   "indoor",
	}

	require.Equal(t, "indoor", r.Resolve(reading.SensorBME280, "outdoor"))
	require.Equal(t, "outdoor", r.Resolve(reading.SensorDHT22, "indoor"))
}

func TestResolver_HintUsedWhenBindingDisabled(t *testing.T) {
	r := Resolver{
		ForceBySensor: false,
		IndoorSensor:  "bme280",
		DefaultZone:   "indoor",
	}

	require.Equal(t, "outdoor", r.Resolve(reading.SensorBME280, "outdoor"))
	require.Equal(t, "outdoor", r.Resolve(reading.SensorBME280, " OUTDOOR "))
}

func TestResolver_FallsBackToDefault(t *testing.T) {
	r := Resolver{DefaultZone: "indoor"}

	require.Equal(t, "indoor", r.Resolve(reading.SensorDHT22, ""))
	require.Equal(t, "indoor", r.Resolve(reading.SensorDHT22, "garage"))
}

func TestResolver_UnboundSensorUsesHint(t *testing.T) {
	r := Resolver{
		ForceBySensor: true,
		IndoorSensor:  "bme280",
		DefaultZone:   "indoor",
	}

	// dht22 has no binding, so the hint still applies.
	require.Equal(t, "outdoor", r.Resolve(reading.SensorDHT22, "outdoor"))
}
