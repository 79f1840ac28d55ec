package sensor

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"fan_controller/internal/models"
)

// ----------- Simulation constants -----------
const (
	SimAmbientC        = 24.0  // ambient temperature °C
	SimAmbientHumidity = 40.0  // ambient relative humidity %
	SimDriftPerSec     = 0.02  // fraction of the gap to ambient closed per second
	SimNoiseC          = 0.05  // max random step °C per read
	SimNoiseHumidity   = 0.2   // max random step %RH per read
	SimFanCoolingC     = 2.0   // °C below ambient at 100% fan
	SimStartOffsetC    = 3.0   // starting offset above ambient °C
	SimMaxElapsedSec   = 300.0 // cap on a single integration step
)

// ErrSimulatedFault is returned on injected failures.
var ErrSimulatedFault = errors.New("simulated bus fault")

// Simulator drifts a room temperature and humidity toward ambient. The fan
// pulls the temperature target down in proportion to its speed.
type Simulator struct {
	mu       sync.Mutex
	name     string
	humidity bool
	tempC    float64
	humPct   float64
	fanPct   int
	last     time.Time
	failRate float64
	rng      *rand.Rand
	now      func() time.Time
}

// NewSimulator returns a simulated sensor. failRate in [0,1] injects faults.
func NewSimulator(name string, humidity bool, seed int64, failRate float64) *Simulator {
	return &Simulator{
		name:     name,
		humidity: humidity,
		tempC:    SimAmbientC + SimStartOffsetC,
		humPct:   SimAmbientHumidity,
		failRate: failRate,
		rng:      rand.New(rand.NewSource(seed)),
		now:      time.Now,
	}
}

func (s *Simulator) Name() string { return s.name }

func (s *Simulator) Channels() []models.SensorID {
	return channelsOf(s.name, s.humidity)
}

// SetFanSpeed feeds the commanded fan speed back into the model.
func (s *Simulator) SetFanSpeed(pct int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fanPct = pct
}

func (s *Simulator) Read(ctx context.Context) ([]models.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !s.last.IsZero() {
		elapsed := now.Sub(s.last).Seconds()
		if elapsed > SimMaxElapsedSec {
			elapsed = SimMaxElapsedSec
		}
		s.step(elapsed)
	}
	s.last = now

	if s.failRate > 0 && s.rng.Float64() < s.failRate {
		return nil, ErrSimulatedFault
	}

	out := []models.Reading{TemperatureReading(s.name, s.tempC)}
	if s.humidity {
		out = append(out, HumidityReading(s.name, s.humPct))
	}
	return out, nil
}

// step advances the model by elapsed seconds.
func (s *Simulator) step(elapsed float64) {
	target := SimAmbientC - SimFanCoolingC*float64(s.fanPct)/100
	s.tempC = approach(s.tempC, target, SimDriftPerSec*elapsed)
	s.tempC += (s.rng.Float64()*2 - 1) * SimNoiseC

	s.humPct = approach(s.humPct, SimAmbientHumidity, SimDriftPerSec*elapsed)
	s.humPct = clamp(s.humPct+(s.rng.Float64()*2-1)*SimNoiseHumidity, 0, 100)
}

// approach closes fraction k (capped at 1) of the gap between v and target.
func approach(v, target, k float64) float64 {
	if k > 1 {
		k = 1
	}
	return v + (target-v)*k
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
