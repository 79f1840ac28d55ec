// Package sensor caches the last good reading of every sensor channel and
// classifies it as fresh, cached or unavailable.
package sensor

import (
	"context"
	"errors"
	"fmt"

	"fan_controller/internal/models"
)

// Valid physical ranges. Anything outside is treated as a failed read.
const (
	MinTempC       = -50.0
	MaxTempC       = 100.0
	MinHumidityPct = 0.0
	MaxHumidityPct = 100.0
)

// Transport reads one physical sensor. A transport may report several
// channels (SHTC3 reports temperature and humidity).
type Transport interface {
	Name() string
	Channels() []models.SensorID
	Read(ctx context.Context) ([]models.Reading, error)
}

var ErrBreakerOpen = errors.New("circuit breaker open")

// TransportError wraps a failed, timed-out or short-circuited read.
type TransportError struct {
	Sensor string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("sensor %s: %v", e.Sensor, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// CToF converts Celsius to Fahrenheit.
func CToF(c float64) float64 {
	return c*1.8 + 32
}

// TemperatureReading builds a °F reading from a Celsius value, marking it
// invalid outside the sensor's physical range.
func TemperatureReading(sensor string, celsius float64) models.Reading {
	return models.Reading{
		Value:    CToF(celsius),
		Source:   models.ChannelID(sensor, models.QuantityTemperature),
		Quantity: models.QuantityTemperature,
		Valid:    celsius >= MinTempC && celsius <= MaxTempC,
	}
}

// HumidityReading builds a %RH reading, marking it invalid outside 0..100.
func HumidityReading(sensor string, pct float64) models.Reading {
	return models.Reading{
		Value:    pct,
		Source:   models.ChannelID(sensor, models.QuantityHumidity),
		Quantity: models.QuantityHumidity,
		Valid:    pct >= MinHumidityPct && pct <= MaxHumidityPct,
	}
}

func channelsOf(name string, humidity bool) []models.SensorID {
	ids := []models.SensorID{models.ChannelID(name, models.QuantityTemperature)}
	if humidity {
		ids = append(ids, models.ChannelID(name, models.QuantityHumidity))
	}
	return ids
}

// readWithTimeout bounds a transport read; a read that ignores ctx is abandoned.
func readWithTimeout(ctx context.Context, t Transport) ([]models.Reading, error) {
	type result struct {
		readings []models.Reading
		err      error
	}
	ch := make(chan result, 1)
	go func() {
		r, err := t.Read(ctx)
		ch <- result{readings: r, err: err}
	}()
	select {
	case r := <-ch:
		return r.readings, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
