package sensor

import (
	"context"
	"errors"
	"sync"

	"fan_controller/internal/models"
)

// FakeTransport returns scripted readings. Tests change them between refreshes.
type FakeTransport struct {
	mu       sync.Mutex
	name     string
	channels []models.SensorID
	readings []models.Reading
	err      error
	block    bool
	stall    chan struct{}
	Calls    int
}

func NewFakeTransport(name string, humidity bool) *FakeTransport {
	return &FakeTransport{name: name, channels: channelsOf(name, humidity)}
}

func (f *FakeTransport) Name() string                { return f.name }
func (f *FakeTransport) Channels() []models.SensorID { return f.channels }

// SetCelsius scripts a good temperature (and optional humidity) read.
func (f *FakeTransport) SetCelsius(c float64, humidity ...float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readings = []models.Reading{TemperatureReading(f.name, c)}
	if len(humidity) > 0 {
		f.readings = append(f.readings, HumidityReading(f.name, humidity[0]))
	}
	f.err = nil
	f.block = false
}

// Fail makes subsequent reads return err.
func (f *FakeTransport) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Hang makes subsequent reads block until their context ends.
func (f *FakeTransport) Hang() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.block = true
}

// Stall makes subsequent reads ignore their context and block until Release,
// like a driver wedged on the bus.
func (f *FakeTransport) Stall() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stall == nil {
		f.stall = make(chan struct{})
	}
}

// Release unblocks stalled reads.
func (f *FakeTransport) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stall != nil {
		close(f.stall)
		f.stall = nil
	}
}

// CallCount is Calls read under the lock.
func (f *FakeTransport) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls
}

func (f *FakeTransport) Read(ctx context.Context) ([]models.Reading, error) {
	f.mu.Lock()
	f.Calls++
	readings, err, block, stall := f.readings, f.err, f.block, f.stall
	f.mu.Unlock()
	if stall != nil {
		<-stall
		return nil, errors.New("released")
	}
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return append([]models.Reading(nil), readings...), nil
}
