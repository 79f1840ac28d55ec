//go:build linux

package fan

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOMotor drives the motor controller's enable input from a GPIO line and
// its speed input from a hardware PWM channel.
type GPIOMotor struct {
	enable *gpiocdev.Line
	pwm    *PWM
}

// NewGPIOMotor requests the enable line (initially low) and opens the PWM channel.
func NewGPIOMotor(chip string, enableLine, pwmChip, pwmChannel int, period time.Duration) (*GPIOMotor, error) {
	line, err := gpiocdev.RequestLine(chip, enableLine, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request enable line %d: %w", enableLine, err)
	}
	pwm, err := OpenPWM(SysfsRoot, pwmChip, pwmChannel, period)
	if err != nil {
		line.Close()
		return nil, fmt.Errorf("open pwm: %w", err)
	}
	return &GPIOMotor{enable: line, pwm: pwm}, nil
}

func (m *GPIOMotor) SetSpeed(percent int) error {
	if err := m.pwm.SetDuty(percent); err != nil {
		return err
	}
	if err := m.enable.SetValue(1); err != nil {
		return fmt.Errorf("set enable line: %w", err)
	}
	return nil
}

func (m *GPIOMotor) Stop() error {
	if err := m.enable.SetValue(0); err != nil {
		return fmt.Errorf("clear enable line: %w", err)
	}
	return m.pwm.SetDuty(0)
}

// Close stops the motor and releases the line as an input, matching boot defaults.
func (m *GPIOMotor) Close() error {
	var errs []error
	if err := m.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := m.pwm.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := m.enable.Reconfigure(gpiocdev.AsInput); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure enable line: %w", err))
	}
	if err := m.enable.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close enable line: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
