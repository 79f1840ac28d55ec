// Package status holds the last published NodeState for readers outside the
// control loops (HTTP handlers, websocket, MQTT).
package status

import (
	"sync"

	"fan_controller"
)

// Tracker holds the published snapshot behind an RWMutex.
type Tracker struct {
	mu            sync.RWMutex
	snap          fan_controller.NodeState
	version       uint64
	mqttConnected bool
}

func NewTracker(initial fan_controller.NodeState) *Tracker {
	return &Tracker{snap: initial}
}

// Publish replaces the snapshot. It reports whether the state changed in a
// way operators would notice.
func (t *Tracker) Publish(s fan_controller.NodeState) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	changed := t.version == 0 || s.Changed(t.snap)
	t.snap = s
	t.version++
	return changed
}

// Snapshot returns a copy of the last published state.
func (t *Tracker) Snapshot() fan_controller.NodeState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.snap
	s.Channels = append([]fan_controller.ChannelView(nil), t.snap.Channels...)
	return s
}

// Version increments on every Publish.
func (t *Tracker) Version() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.version
}

func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.mqttConnected = connected
	t.mu.Unlock()
}

func (t *Tracker) MQTTConnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mqttConnected
}
