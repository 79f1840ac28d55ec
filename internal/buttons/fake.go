package buttons

import "time"

// Fake feeds presses through a real Chorder, for tests and the simulator.
type Fake struct {
	*Chorder
	start time.Time
}

func NewFake(window time.Duration) *Fake {
	return &Fake{Chorder: NewChorder(window, nil), start: time.Now()}
}

// Push presses a button now.
func (f *Fake) Push(ev Event) {
	f.Press(ev, time.Since(f.start))
}

func (f *Fake) Close() error {
	f.Stop()
	return nil
}
