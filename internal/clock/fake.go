package clock

import (
	"context"
	"sync"
	"time"
)

// FakeExternal is a scripted external clock for tests.
type FakeExternal struct {
	mu    sync.Mutex
	Time  time.Time
	Err   error
	Block bool // wait for ctx cancellation
	Reads int
}

func (f *FakeExternal) ReadTime(ctx context.Context) (time.Time, error) {
	f.mu.Lock()
	f.Reads++
	t, err, block := f.Time, f.Err, f.Block
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return time.Time{}, ctx.Err()
	}
	return t, err
}

func (f *FakeExternal) Set(t time.Time, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Time, f.Err = t, err
}

// ManualMonotonic is a monotonic source advanced by hand.
type ManualMonotonic struct {
	mu  sync.Mutex
	now time.Duration
}

func (m *ManualMonotonic) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now += d
}

func (m *ManualMonotonic) Func() Monotonic {
	return func() time.Duration {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.now
	}
}
