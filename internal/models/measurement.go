package models

import "time"

// SensorValue is one temperature column of a measurement row. Value is nil for "N/A".
type SensorValue struct {
	Sensor string   `json:"sensor"`
	Value  *float64 `json:"value"`
}

// Measurement is one periodic row of the measurement log.
type Measurement struct {
	ID           string        `json:"id"`
	TakenAt      time.Time     `json:"taken_at"`
	Temperatures []SensorValue `json:"temperatures"`
	HumidityPct  *float64      `json:"humidity_pct"`
	FanSpeed     int           `json:"fan_speed"`
	Mode         RunMode       `json:"mode"`
	Status       string        `json:"status"`
}
