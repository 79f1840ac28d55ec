package service

import "time"

// LogFilter supports activity history filtering by time range and category.
type LogFilter struct {
	From     time.Time // inclusive; zero means no lower bound
	To       time.Time // inclusive; zero means no upper bound
	Category string    // "", "OVERRIDE", "RUN", "SENSOR_LOST", ...
}

// MeasurementFilter bounds a measurement history query.
type MeasurementFilter struct {
	From time.Time
	To   time.Time
}
