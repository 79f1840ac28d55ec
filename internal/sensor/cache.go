package sensor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fan_controller/internal/activity"
	"fan_controller/internal/logger"
	"fan_controller/internal/metrics"
	"fan_controller/internal/models"
)

type slot struct {
	cached models.CachedReading
	state  models.ReadingState
	lost   bool // SENSOR_LOST already logged for this episode
}

// Cache is the SensorCache. Refresh is called by the slow loop only; Poll and
// Snapshot may be called from anywhere.
type Cache struct {
	mu         sync.Mutex
	transports []Transport
	slots      map[models.SensorID]*slot
	snapshot   models.SensorSnapshot

	staleAfter time.Duration
	timeout    time.Duration
	journal    activity.Journal
	log        *logger.Logger
}

// NewCache creates a cache with one slot per channel of every transport.
func NewCache(transports []Transport, staleAfter, timeout time.Duration, journal activity.Journal, log *logger.Logger) *Cache {
	if log == nil {
		log = logger.Nop()
	}
	c := &Cache{
		transports: transports,
		slots:      make(map[models.SensorID]*slot),
		staleAfter: staleAfter,
		timeout:    timeout,
		journal:    journal,
		log:        log,
	}
	channels := make(map[models.SensorID]models.ReadingStatus)
	for _, t := range transports {
		for _, id := range t.Channels() {
			c.slots[id] = &slot{state: models.ReadingUnavailable}
			channels[id] = models.ReadingStatus{State: models.ReadingUnavailable}
		}
	}
	c.snapshot = models.SensorSnapshot{Channels: channels}
	return c
}

// Refresh reads every transport once, bounded by the transport timeout,
// and updates every slot. Transport errors never escape.
func (c *Cache) Refresh(ctx context.Context, now time.Time) models.SensorSnapshot {
	type outcome struct {
		readings []models.Reading
		err      error
	}
	results := make([]outcome, len(c.transports))

	var wg sync.WaitGroup
	for i, t := range c.transports {
		wg.Add(1)
		go func(i int, t Transport) {
			defer wg.Done()
			rctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			start := time.Now()
			r, err := readWithTimeout(rctx, t)
			metrics.ObserveSensorRead(t.Name(), err, time.Since(start))
			if err != nil {
				err = &TransportError{Sensor: t.Name(), Err: err}
			}
			results[i] = outcome{readings: r, err: err}
		}(i, t)
	}
	wg.Wait()

	var notes []models.LogEntry
	c.mu.Lock()
	for i, t := range c.transports {
		res := results[i]
		if res.err != nil {
			c.log.Warnw("sensor_read_failed", "sensor", t.Name(), "err", res.err)
		}
		for _, id := range t.Channels() {
			r, ok := pick(res.readings, id)
			if ok && !r.Valid {
				c.log.Warnw("sensor_reading_invalid", "channel", string(id), "value", r.Value)
				ok = false
			}
			if note, logged := c.update(id, r, ok, now); logged {
				notes = append(notes, note)
			}
		}
	}
	snap := c.buildSnapshot(now)
	c.snapshot = snap
	c.mu.Unlock()

	for _, id := range snap.IDs() {
		st := snap.Channels[id]
		metrics.ObserveChannel(string(id), string(st.State), st.Reading.Value, st.Available())
	}
	// The journal may read the clock, so append outside the lock.
	if c.journal != nil {
		for _, n := range notes {
			c.journal.Append(n.Category, n.Message)
		}
	}
	return snap
}

func pick(readings []models.Reading, id models.SensorID) (models.Reading, bool) {
	for _, r := range readings {
		if r.Source == id {
			return r, true
		}
	}
	return models.Reading{}, false
}

// update applies one read outcome to a slot and returns a journal note on
// a loss or recovery transition.
func (c *Cache) update(id models.SensorID, r models.Reading, ok bool, now time.Time) (models.LogEntry, bool) {
	s := c.slots[id]

	if ok {
		recovered := s.state == models.ReadingUnavailable && s.lost
		r.MeasuredAt = now
		s.cached = models.CachedReading{LastGood: &r, CachedAt: now}
		s.state = models.ReadingFresh
		s.lost = false
		if recovered {
			return models.LogEntry{Category: models.CategorySensorRecovered, Message: fmt.Sprintf("%s reading again: %s", id, formatValue(r))}, true
		}
		return models.LogEntry{}, false
	}

	if s.cached.LastGood != nil && now.Sub(s.cached.CachedAt) < c.staleAfter {
		s.state = models.ReadingCached
		return models.LogEntry{}, false
	}
	s.state = models.ReadingUnavailable
	if !s.lost {
		s.lost = true
		msg := fmt.Sprintf("%s unavailable, no reading cached.", id)
		if s.cached.LastGood != nil {
			msg = fmt.Sprintf("%s unavailable, last good reading %s at %s.", id, formatValue(*s.cached.LastGood), s.cached.CachedAt.Format(models.LogTimeLayout))
		}
		return models.LogEntry{Category: models.CategorySensorLost, Message: msg}, true
	}
	return models.LogEntry{}, false
}

func formatValue(r models.Reading) string {
	if r.Quantity == models.QuantityHumidity {
		return fmt.Sprintf("%.1f%%", r.Value)
	}
	return fmt.Sprintf("%.1fF", r.Value)
}

func (c *Cache) status(s *slot, now time.Time) models.ReadingStatus {
	switch s.state {
	case models.ReadingFresh:
		return models.ReadingStatus{State: models.ReadingFresh, Reading: *s.cached.LastGood}
	case models.ReadingCached:
		return models.ReadingStatus{State: models.ReadingCached, Reading: *s.cached.LastGood, Age: now.Sub(s.cached.CachedAt)}
	default:
		return models.ReadingStatus{State: models.ReadingUnavailable}
	}
}

func (c *Cache) buildSnapshot(now time.Time) models.SensorSnapshot {
	channels := make(map[models.SensorID]models.ReadingStatus, len(c.slots))
	for id, s := range c.slots {
		channels[id] = c.status(s, now)
	}
	return models.SensorSnapshot{TakenAt: now, Channels: channels}
}

// Poll returns a channel's status as of the last Refresh.
func (c *Cache) Poll(id models.SensorID) models.ReadingStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot.Status(id)
}

// Snapshot returns the status of every channel as of the last Refresh.
func (c *Cache) Snapshot() models.SensorSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	channels := make(map[models.SensorID]models.ReadingStatus, len(c.snapshot.Channels))
	for id, st := range c.snapshot.Channels {
		channels[id] = st
	}
	return models.SensorSnapshot{TakenAt: c.snapshot.TakenAt, Channels: channels}
}

// Transports lists the configured sensor names in order.
func (c *Cache) Transports() []string {
	names := make([]string, len(c.transports))
	for i, t := range c.transports {
		names[i] = t.Name()
	}
	return names
}
