package fan

import "sync"

// FakeMotor records commands. It doubles as the "sim" driver; OnSpeed lets
// the sensor simulator feel the fan.
type FakeMotor struct {
	mu      sync.Mutex
	Speeds  []int
	Stops   int
	Err     error
	OnSpeed func(percent int)
	current int
}

func (m *FakeMotor) SetSpeed(percent int) error {
	m.mu.Lock()
	m.Speeds = append(m.Speeds, percent)
	err := m.Err
	if err == nil {
		m.current = percent
	}
	hook := m.OnSpeed
	m.mu.Unlock()
	if err == nil && hook != nil {
		hook(percent)
	}
	return err
}

func (m *FakeMotor) Stop() error {
	m.mu.Lock()
	m.Stops++
	err := m.Err
	if err == nil {
		m.current = 0
	}
	hook := m.OnSpeed
	m.mu.Unlock()
	if err == nil && hook != nil {
		hook(0)
	}
	return err
}

// Current returns the speed the motor is actually running at.
func (m *FakeMotor) Current() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *FakeMotor) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

func (m *FakeMotor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Speeds) + m.Stops
}
