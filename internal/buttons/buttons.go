// Package buttons turns the two front-panel buttons into press events.
// Pressing both together releases manual mode.
package buttons

import (
	"sync"
	"time"

	"fan_controller/internal/logger"
)

type Event int

const (
	Increase Event = iota + 1
	Decrease
	Release
)

func (e Event) String() string {
	switch e {
	case Increase:
		return "increase"
	case Decrease:
		return "decrease"
	case Release:
		return "release"
	default:
		return "unknown"
	}
}

// Source delivers debounced button events.
type Source interface {
	Events() <-chan Event
	Close() error
}

const (
	eventBuffer  = 16
	DefaultChord = 150 * time.Millisecond
)

// Chorder holds each press for a short window. If the other button is
// pressed inside the window both presses become a single Release.
type Chorder struct {
	mu     sync.Mutex
	window time.Duration
	held   *heldPress
	out    chan Event
	log    *logger.Logger
}

type heldPress struct {
	ev    Event
	at    time.Duration
	timer *time.Timer
}

func NewChorder(window time.Duration, log *logger.Logger) *Chorder {
	if window <= 0 {
		window = DefaultChord
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Chorder{window: window, out: make(chan Event, eventBuffer), log: log}
}

func (c *Chorder) Events() <-chan Event { return c.out }

// Press records a press of ev at a monotonic timestamp.
func (c *Chorder) Press(ev Event, at time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if h := c.held; h != nil {
		h.timer.Stop()
		c.held = nil
		if h.ev != ev && at-h.at <= c.window {
			c.emit(Release)
			return
		}
		c.emit(h.ev)
	}
	h := &heldPress{ev: ev, at: at}
	h.timer = time.AfterFunc(c.window, func() { c.flush(h) })
	c.held = h
}

func (c *Chorder) flush(h *heldPress) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held == h {
		c.held = nil
		c.emit(h.ev)
	}
}

// emit never blocks; the control loop drains every fast tick.
func (c *Chorder) emit(ev Event) {
	select {
	case c.out <- ev:
	default:
		c.log.Warnw("button_event_dropped", "event", ev.String())
	}
}

// Stop cancels a held press.
func (c *Chorder) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held != nil {
		c.held.timer.Stop()
		c.held = nil
	}
}

// None is the source for nodes without buttons.
type None struct {
	ch chan Event
}

func NewNone() *None { return &None{ch: make(chan Event)} }

func (n *None) Events() <-chan Event { return n.ch }
func (n *None) Close() error         { return nil }
