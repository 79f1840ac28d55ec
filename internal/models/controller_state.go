package models

import "time"

// ControllerState is what survives a restart: the auto set speed, any
// manual speed in effect, and the last applied fan output.
type ControllerState struct {
	Mode        RunMode   `json:"mode"`
	AutoSpeed   int       `json:"auto_speed"`
	ManualSpeed *int      `json:"manual_speed,omitempty"`
	FanSpeed    int       `json:"fan_speed"`
	Running     bool      `json:"running"`
	UpdatedAt   time.Time `json:"updated_at"`
}
