package models

import "time"

// FanState is the last speed actually commanded to the motor.
type FanState struct {
	CurrentSpeed int       `json:"current_speed"` // 0 or 20..100
	Running      bool      `json:"running"`
	LastChange   time.Time `json:"last_change"`
}
