// Package clock owns the node's notion of "now": a monotonic internal clock
// corrected from an optional, strictly read-only external RTC.
package clock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fan_controller/internal/activity"
	"fan_controller/internal/logger"
	"fan_controller/internal/models"
)

// External is a battery-backed clock other consumers may depend on.
// It is deliberately read-only: there is no way to set it through this package.
type External interface {
	ReadTime(ctx context.Context) (time.Time, error)
}

// Monotonic returns the time elapsed since a fixed, arbitrary origin.
type Monotonic func() time.Duration

// ProcessMonotonic measures elapsed time with the runtime's monotonic clock.
func ProcessMonotonic() Monotonic {
	origin := time.Now()
	return func() time.Duration { return time.Since(origin) }
}

// ErrNoExternalClock is returned by Resync when no external clock is configured.
var ErrNoExternalClock = errors.New("no external clock configured")

// TransportError wraps a failed or implausible external clock read.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "external clock: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

type Options struct {
	SyncInterval  time.Duration // between successful syncs
	RetryInterval time.Duration // between attempts while unsynced
	Timeout       time.Duration // bound on one external read
	MinYear       int
	MaxYear       int
}

func (o Options) withDefaults() Options {
	if o.SyncInterval <= 0 {
		o.SyncInterval = time.Hour
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 30 * time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Second
	}
	if o.MinYear == 0 {
		o.MinYear = 2020
	}
	if o.MaxYear == 0 {
		o.MaxYear = 2099
	}
	return o
}

// TimeSource is safe for concurrent use. Now never blocks on I/O.
type TimeSource struct {
	mu        sync.Mutex
	base      time.Time     // internal time at baseMono
	baseMono  time.Duration // monotonic reading at the last correction
	status    models.ExtStatus
	lastSync  *time.Time
	lastDrift time.Duration

	attempted     bool
	lastAttempt   time.Duration
	failureLogged bool

	ext     External
	mono    Monotonic
	journal activity.Journal
	opts    Options
	log     *logger.Logger
}

// New seeds the internal clock with seed. Until the first successful sync the
// time is tagged NeverAvailable. ext may be nil.
func New(seed time.Time, ext External, mono Monotonic, journal activity.Journal, opts Options, log *logger.Logger) *TimeSource {
	if mono == nil {
		mono = ProcessMonotonic()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &TimeSource{
		base:     seed,
		baseMono: mono(),
		status:   models.ExtNeverAvailable,
		ext:      ext,
		mono:     mono,
		journal:  journal,
		opts:     opts.withDefaults(),
		log:      log,
	}
}

// Now returns the best available time. It never fails and only moves
// backwards when a sync corrects the internal clock.
func (s *TimeSource) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nowLocked(s.mono())
}

func (s *TimeSource) nowLocked(mono time.Duration) time.Time {
	return s.base.Add(mono - s.baseMono)
}

// State returns a copy of the clock state.
func (s *TimeSource) State() models.ClockState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := models.ClockState{
		InternalNow:    s.nowLocked(s.mono()),
		ExternalSynced: s.status == models.ExtSynced,
		DriftSource:    s.status,
		LastDrift:      s.lastDrift,
	}
	if s.lastSync != nil {
		ls := *s.lastSync
		st.LastSync = &ls
	}
	return st
}

// HasExternal reports whether an external clock is configured.
func (s *TimeSource) HasExternal() bool { return s.ext != nil }

// Due reports whether a resync should run now: immediately on first use,
// every SyncInterval while synced, every RetryInterval otherwise.
func (s *TimeSource) Due() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.attempted {
		return true
	}
	interval := s.opts.RetryInterval
	if s.status == models.ExtSynced {
		interval = s.opts.SyncInterval
	}
	return s.mono()-s.lastAttempt >= interval
}

// ResyncIfDue runs Resync when Due. It reports whether an attempt was made.
func (s *TimeSource) ResyncIfDue(ctx context.Context) (bool, error) {
	if s.ext == nil || !s.Due() {
		return false, nil
	}
	return true, s.Resync(ctx)
}

// Resync reads the external clock and corrects the internal one.
// Failures keep the internal clock running unadjusted.
func (s *TimeSource) Resync(ctx context.Context) error {
	if s.ext == nil {
		return ErrNoExternalClock
	}
	rctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	ext, err := readWithTimeout(rctx, s.ext)
	if err == nil {
		err = s.validate(ext)
	}

	if err != nil {
		terr := &TransportError{Err: err}
		s.recordFailure(terr)
		return terr
	}
	s.recordSync(ext)
	return nil
}

func (s *TimeSource) validate(t time.Time) error {
	if t.Year() < s.opts.MinYear || t.Year() > s.opts.MaxYear {
		return fmt.Errorf("implausible time %s", t.Format(models.LogTimeLayout))
	}
	return nil
}

func (s *TimeSource) recordSync(ext time.Time) {
	s.mu.Lock()
	// The RTC reports UTC; keep the zone the clock was seeded with.
	ext = ext.In(s.base.Location())
	mono := s.mono()
	prior := s.nowLocked(mono)
	drift := prior.Sub(ext)
	s.base = ext
	s.baseMono = mono
	s.status = models.ExtSynced
	synced := ext
	s.lastSync = &synced
	s.lastDrift = drift
	s.attempted = true
	s.lastAttempt = mono
	s.failureLogged = false
	s.mu.Unlock()

	s.log.Infow("rtc_synced", "drift", drift.String())
	// Journal timestamps come from Now, so append outside the lock.
	if s.journal != nil {
		s.journal.Append(models.CategoryRTCSync, fmt.Sprintf("Internal clock synced to external RTC %s. Drift: %s", ext.Format(models.LogTimeLayout), formatDrift(drift)))
	}
}

func (s *TimeSource) recordFailure(err error) {
	s.mu.Lock()
	s.attempted = true
	s.lastAttempt = s.mono()
	if s.status == models.ExtSynced {
		s.status = models.ExtFallbackUnsynced
	}
	first := !s.failureLogged
	s.failureLogged = true
	status := s.status
	s.mu.Unlock()

	s.log.Warnw("rtc_sync_failed", "err", err, "status", string(status))
	if first && s.journal != nil {
		s.journal.Append(models.CategoryRTCSyncFailed, fmt.Sprintf("External RTC unavailable (%v). Using internal clock.", err))
	}
}

func formatDrift(d time.Duration) string {
	switch {
	case d > 0:
		return fmt.Sprintf("+%s (internal ahead)", d.Round(time.Millisecond))
	case d < 0:
		return fmt.Sprintf("%s (internal behind)", d.Round(time.Millisecond))
	default:
		return "0s"
	}
}

func readWithTimeout(ctx context.Context, ext External) (time.Time, error) {
	type result struct {
		t   time.Time
		err error
	}
	ch := make(chan result, 1)
	go func() {
		t, err := ext.ReadTime(ctx)
		ch <- result{t: t, err: err}
	}()
	select {
	case r := <-ch:
		return r.t, r.err
	case <-ctx.Done():
		return time.Time{}, ctx.Err()
	}
}
