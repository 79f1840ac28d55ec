//go:build linux

package clock

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// RTCDevice reads a kernel RTC character device such as /dev/rtc0 (DS3231 via
// the rtc-ds1307 driver). The device is opened read-only and only the
// RTC_RD_TIME ioctl is ever issued.
type RTCDevice struct {
	path string
}

func NewRTCDevice(path string) *RTCDevice {
	return &RTCDevice{path: path}
}

// ReadTime returns the RTC time, which the kernel keeps in UTC.
func (d *RTCDevice) ReadTime(ctx context.Context) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	fd, err := unix.Open(d.path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return time.Time{}, fmt.Errorf("open %s: %w", d.path, err)
	}
	defer unix.Close(fd)

	rt, err := unix.IoctlGetRTCTime(fd)
	if err != nil {
		return time.Time{}, fmt.Errorf("read %s: %w", d.path, err)
	}
	if rt.Mon < 0 || rt.Mon > 11 || rt.Mday < 1 || rt.Mday > 31 {
		return time.Time{}, fmt.Errorf("read %s: invalid date fields mon=%d mday=%d", d.path, rt.Mon, rt.Mday)
	}
	return time.Date(int(rt.Year)+1900, time.Month(rt.Mon+1), int(rt.Mday),
		int(rt.Hour), int(rt.Min), int(rt.Sec), 0, time.UTC), nil
}
