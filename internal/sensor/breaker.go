package sensor

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"fan_controller/internal/logger"
	"fan_controller/internal/models"
)

const (
	breakerTripAfter = 5 // consecutive failures
	breakerCooldown  = 30 * time.Second
)

// Guarded wraps a transport in a circuit breaker so a dead bus fails fast
// instead of costing a full timeout every tick.
type Guarded struct {
	Transport
	circuit *gobreaker.CircuitBreaker
}

func NewGuarded(t Transport, log *logger.Logger) *Guarded {
	if log == nil {
		log = logger.Nop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        t.Name(),
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Infow("sensor_breaker_state", "sensor", name, "from", from.String(), "to", to.String())
		},
	})
	return &Guarded{Transport: t, circuit: cb}
}

// Read runs the transport under ctx's deadline inside the breaker, so a
// read that overruns counts as a failure like any bus error.
func (g *Guarded) Read(ctx context.Context) ([]models.Reading, error) {
	res, err := g.circuit.Execute(func() (interface{}, error) {
		return readWithTimeout(ctx, g.Transport)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrBreakerOpen
		}
		return nil, err
	}
	readings, _ := res.([]models.Reading)
	return readings, nil
}

// State exposes the breaker state for diagnostics.
func (g *Guarded) State() gobreaker.State {
	return g.circuit.State()
}
