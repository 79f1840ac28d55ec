package models

import (
	"sort"
	"time"
)

// SensorID names one measurement channel, e.g. "shtc3.humidity".
type SensorID string

// Quantity is the physical quantity a channel reports.
type Quantity string

const (
	QuantityTemperature Quantity = "temperature" // °F
	QuantityHumidity    Quantity = "humidity"    // %RH
)

// ChannelID builds the SensorID for a sensor's quantity.
func ChannelID(sensor string, q Quantity) SensorID {
	return SensorID(sensor + "." + string(q))
}

// Reading is a single value produced by a sensor transport.
type Reading struct {
	Value      float64   `json:"value"`
	MeasuredAt time.Time `json:"measured_at"`
	Source     SensorID  `json:"source"`
	Quantity   Quantity  `json:"quantity"`
	Valid      bool      `json:"valid"`
}

// CachedReading is the per-channel cache slot.
type CachedReading struct {
	LastGood *Reading `json:"last_good,omitempty"`
	CachedAt time.Time `json:"cached_at"`
}

// ReadingState classifies what a channel can currently offer.
type ReadingState string

const (
	ReadingFresh       ReadingState = "FRESH"
	ReadingCached      ReadingState = "CACHED"
	ReadingUnavailable ReadingState = "UNAVAILABLE"
)

// ReadingStatus is the result of polling one channel.
// Reading and Age are zero when State is ReadingUnavailable.
type ReadingStatus struct {
	State   ReadingState  `json:"state"`
	Reading Reading       `json:"reading"`
	Age     time.Duration `json:"age"`
}

func (s ReadingStatus) Available() bool {
	return s.State == ReadingFresh || s.State == ReadingCached
}

// SensorSnapshot is an immutable copy of every channel status taken after a refresh.
type SensorSnapshot struct {
	TakenAt  time.Time                  `json:"taken_at"`
	Channels map[SensorID]ReadingStatus `json:"channels"`
}

// Status returns the status of a channel, Unavailable if it is unknown.
func (s SensorSnapshot) Status(id SensorID) ReadingStatus {
	if st, ok := s.Channels[id]; ok {
		return st
	}
	return ReadingStatus{State: ReadingUnavailable}
}

// Average returns the mean of every available channel reporting q.
func (s SensorSnapshot) Average(q Quantity) (float64, bool) {
	var (
		sum float64
		n   int
	)
	for _, id := range s.IDs() {
		st := s.Channels[id]
		if !st.Available() || st.Reading.Quantity != q {
			continue
		}
		sum += st.Reading.Value
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// IDs returns the channel ids in a stable order.
func (s SensorSnapshot) IDs() []SensorID {
	ids := make([]SensorID, 0, len(s.Channels))
	for id := range s.Channels {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
