package models

// RunMode is the policy branch that produced a decision.
type RunMode string

const (
	ModeManual           RunMode = "MANUAL"
	ModeTempOverride     RunMode = "TEMP_OVERRIDE"
	ModeHumidityOverride RunMode = "HUMIDITY_OVERRIDE"
	ModeAfterHours       RunMode = "AFTER_HOURS"
	ModeWeekend          RunMode = "WEEKEND"
	ModeAuto             RunMode = "AUTO"
)

func (m RunMode) IsOverride() bool {
	return m == ModeTempOverride || m == ModeHumidityOverride
}

// RunDecision is the output of one policy evaluation.
type RunDecision struct {
	Mode         RunMode `json:"mode"`
	SpeedPercent int     `json:"speed_percent"`
	Running      bool    `json:"running"`
	Floor        *int    `json:"floor,omitempty"` // active override minimum
	Reason       string  `json:"reason"`
}

// Equal compares decisions by value, including the floor.
func (d RunDecision) Equal(o RunDecision) bool {
	if d.Mode != o.Mode || d.SpeedPercent != o.SpeedPercent || d.Running != o.Running || d.Reason != o.Reason {
		return false
	}
	if (d.Floor == nil) != (o.Floor == nil) {
		return false
	}
	return d.Floor == nil || *d.Floor == *o.Floor
}
