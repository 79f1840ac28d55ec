// Package fan drives the motor and remembers what it was last told to do.
package fan

import (
	"fmt"
	"sync"
	"time"

	"fan_controller/internal/activity"
	"fan_controller/internal/logger"
	"fan_controller/internal/metrics"
	"fan_controller/internal/models"
)

const (
	MinSpeed = 20
	MaxSpeed = 100
)

// Motor is the driver behind the controller.
type Motor interface {
	SetSpeed(percent int) error
	Stop() error
}

// Controller is the FanSpeedController. Apply is called from the control loops only.
type Controller struct {
	mu      sync.Mutex
	motor   Motor
	state   models.FanState
	pending bool // last motor command failed or never issued

	now     func() time.Time
	journal activity.Journal
	log     *logger.Logger
}

func NewController(motor Motor, now func() time.Time, journal activity.Journal, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.Nop()
	}
	if now == nil {
		now = time.Now
	}
	return &Controller{motor: motor, pending: true, now: now, journal: journal, log: log}
}

// Effective resolves a target and an optional override floor to the speed
// that is actually commanded. An override floor never lets the fan stop.
func Effective(target int, floor *int) int {
	speed := target
	switch {
	case speed <= 0:
		speed = 0
	case speed < MinSpeed:
		speed = MinSpeed
	case speed > MaxSpeed:
		speed = MaxSpeed
	}
	if floor != nil && speed < *floor {
		speed = *floor
	}
	return speed
}

// Apply commands the motor and returns the resulting state. Driver errors are
// logged and retried on the next Apply; the state still reflects the command.
func (c *Controller) Apply(target int, floor *int) models.FanState {
	speed := Effective(target, floor)

	c.mu.Lock()
	prev := c.state
	changed := speed != prev.CurrentSpeed
	if changed || c.pending {
		var err error
		if speed == 0 {
			err = c.motor.Stop()
		} else {
			err = c.motor.SetSpeed(speed)
		}
		c.pending = err != nil
		if err != nil {
			c.log.Errorw("motor_command_failed", "speed", speed, "err", err)
		}
	}
	if changed || prev.LastChange.IsZero() {
		c.state = models.FanState{CurrentSpeed: speed, Running: speed > 0, LastChange: c.now()}
	}
	st := c.state
	c.mu.Unlock()

	metrics.ObserveFan(st.CurrentSpeed, st.Running)
	if changed {
		c.log.Infow("fan_speed_changed", "from", prev.CurrentSpeed, "to", speed)
		if c.journal != nil {
			cat, msg := describe(prev.CurrentSpeed, speed)
			c.journal.Append(cat, msg)
		}
	}
	return st
}

func describe(from, to int) (models.Category, string) {
	switch {
	case from == 0:
		return models.CategoryRun, fmt.Sprintf("Motor started at %d%%.", to)
	case to == 0:
		return models.CategoryStop, fmt.Sprintf("Motor stopped (was %d%%).", from)
	default:
		return models.CategorySpeed, fmt.Sprintf("Speed changed from %d%% to %d%%.", from, to)
	}
}

// State returns the last commanded state.
func (c *Controller) State() models.FanState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
