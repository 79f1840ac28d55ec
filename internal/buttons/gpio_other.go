//go:build !linux

package buttons

import (
	"errors"
	"time"

	"fan_controller/internal/logger"
)

// GPIOSource is not available on non-Linux platforms.
type GPIOSource struct {
	*Chorder
}

func NewGPIOSource(string, int, int, time.Duration, *logger.Logger) (*GPIOSource, error) {
	return nil, errors.New("buttons: gpio not supported on this platform (requires Linux)")
}

func (s *GPIOSource) Close() error { return nil }
