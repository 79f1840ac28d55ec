package service

import (
	"context"
	"time"

	"fan_controller"
)

// StateSource is where the published node state comes from.
type StateSource interface {
	Snapshot() fan_controller.NodeState
}

type MonitoringService struct {
	source StateSource
}

func NewMonitoringService(source StateSource) *MonitoringService {
	return &MonitoringService{source: source}
}

// GetState returns the latest published node state, with times in UTC.
func (s *MonitoringService) GetState(ctx context.Context) (fan_controller.NodeState, error) {
	if err := ctx.Err(); err != nil {
		return fan_controller.NodeState{}, err
	}
	st := s.source.Snapshot()
	st.UpdatedAt = toUTC(st.UpdatedAt)
	st.StartedAt = toUTC(st.StartedAt)
	return st, nil
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
