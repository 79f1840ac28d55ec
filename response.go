package fan_controller

import (
	"time"

	"fan_controller/internal/models"
)

// NodeState is the published snapshot of the node, served by the API, the
// websocket stream and MQTT.
type NodeState struct {
	Mode         models.RunMode `json:"mode"` // MANUAL | TEMP_OVERRIDE | HUMIDITY_OVERRIDE | AFTER_HOURS | WEEKEND | AUTO
	Running      bool           `json:"running"`
	SpeedPercent int            `json:"speed_percent"` // 0 when stopped
	Floor        *int           `json:"floor,omitempty"`
	Reason       string         `json:"reason"`

	TemperatureF *float64      `json:"temperature_f"` // nil when no sensor is available
	HumidityPct  *float64      `json:"humidity_pct"`
	Channels     []ChannelView `json:"channels"`

	AutoSpeed   int        `json:"auto_speed"`
	ManualSpeed *int       `json:"manual_speed,omitempty"`
	NextStart   *time.Time `json:"next_start,omitempty"`

	Fan       models.FanState   `json:"fan"`
	Clock     models.ClockState `json:"clock"`
	NightMode bool              `json:"night_mode"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChannelView is one sensor channel as shown to operators.
type ChannelView struct {
	ID         models.SensorID     `json:"id"`
	State      models.ReadingState `json:"state"`
	Value      *float64            `json:"value"`
	AgeSeconds float64             `json:"age_seconds,omitempty"`
}

// Changed reports whether anything operators care about differs, ignoring timestamps.
func (s NodeState) Changed(o NodeState) bool {
	if s.Mode != o.Mode || s.Running != o.Running || s.SpeedPercent != o.SpeedPercent || s.NightMode != o.NightMode {
		return true
	}
	if s.Clock.DriftSource != o.Clock.DriftSource || len(s.Channels) != len(o.Channels) {
		return true
	}
	for i := range s.Channels {
		if s.Channels[i].ID != o.Channels[i].ID || s.Channels[i].State != o.Channels[i].State {
			return true
		}
	}
	return false
}

// Operator is an API user allowed to control the fan remotely.
type Operator struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // don’t expose hash
}
