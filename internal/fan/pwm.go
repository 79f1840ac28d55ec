package fan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// SysfsRoot is where the kernel exposes PWM chips.
const SysfsRoot = "/sys/class/pwm"

// PWM is one channel of a kernel PWM chip driven through sysfs.
type PWM struct {
	chipDir string
	dir     string
	channel int
	period  time.Duration
}

// OpenPWM exports the channel if needed, sets its period and enables it at 0% duty.
func OpenPWM(root string, chip, channel int, period time.Duration) (*PWM, error) {
	chipDir := filepath.Join(root, fmt.Sprintf("pwmchip%d", chip))
	p := &PWM{
		chipDir: chipDir,
		dir:     filepath.Join(chipDir, fmt.Sprintf("pwm%d", channel)),
		channel: channel,
		period:  period,
	}
	if _, err := os.Stat(p.dir); errors.Is(err, os.ErrNotExist) {
		if err := p.write(filepath.Join(chipDir, "export"), strconv.Itoa(channel)); err != nil {
			return nil, err
		}
	}
	if err := p.write(filepath.Join(p.dir, "duty_cycle"), "0"); err != nil {
		return nil, err
	}
	if err := p.write(filepath.Join(p.dir, "period"), strconv.FormatInt(period.Nanoseconds(), 10)); err != nil {
		return nil, err
	}
	if err := p.write(filepath.Join(p.dir, "enable"), "1"); err != nil {
		return nil, err
	}
	return p, nil
}

// SetDuty sets the duty cycle in percent.
func (p *PWM) SetDuty(percent int) error {
	duty := p.period.Nanoseconds() * int64(percent) / 100
	return p.write(filepath.Join(p.dir, "duty_cycle"), strconv.FormatInt(duty, 10))
}

// Close disables the channel and unexports it.
func (p *PWM) Close() error {
	err := p.write(filepath.Join(p.dir, "enable"), "0")
	if uerr := p.write(filepath.Join(p.chipDir, "unexport"), strconv.Itoa(p.channel)); err == nil {
		err = uerr
	}
	return err
}

func (p *PWM) write(path, value string) error {
	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		return fmt.Errorf("pwm write %s: %w", path, err)
	}
	return nil
}
