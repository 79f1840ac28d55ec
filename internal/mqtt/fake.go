package mqtt

import (
	"sync"

	"fan_controller"
	"fan_controller/internal/models"
)

// FakePublisher records published messages for test assertions.
type FakePublisher struct {
	mu sync.Mutex

	States   []fan_controller.NodeState
	Activity []models.LogEntry

	// PublishError, if set, is returned by every publish.
	PublishError error

	Connected bool
	Closed    bool
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Connected: true}
}

func (f *FakePublisher) PublishState(st fan_controller.NodeState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.States = append(f.States, st)
	return nil
}

func (f *FakePublisher) PublishActivity(e models.LogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Activity = append(f.Activity, e)
	return nil
}

func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// StateCount returns the number of published states.
func (f *FakePublisher) StateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.States)
}

// ActivityCount returns the number of published activity entries.
func (f *FakePublisher) ActivityCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Activity)
}
