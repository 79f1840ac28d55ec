//go:build !linux

package fan

import (
	"errors"
	"time"
)

// GPIOMotor is not available on non-Linux platforms.
type GPIOMotor struct{}

func NewGPIOMotor(string, int, int, int, time.Duration) (*GPIOMotor, error) {
	return nil, errors.New("gpio motor: not supported on this platform (requires Linux)")
}

func (m *GPIOMotor) SetSpeed(int) error { return errors.New("gpio motor: not supported") }
func (m *GPIOMotor) Stop() error        { return errors.New("gpio motor: not supported") }
func (m *GPIOMotor) Close() error       { return nil }
