//go:build !linux

package clock

import (
	"context"
	"errors"
	"time"
)

// RTCDevice is not available on non-Linux platforms.
type RTCDevice struct{}

func NewRTCDevice(string) *RTCDevice { return &RTCDevice{} }

func (d *RTCDevice) ReadTime(context.Context) (time.Time, error) {
	return time.Time{}, errors.New("rtc: not supported on this platform (requires Linux)")
}
