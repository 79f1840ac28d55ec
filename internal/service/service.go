package service

import (
	"context"

	"fan_controller"
	"fan_controller/internal/config"
	"fan_controller/internal/models"
	"fan_controller/internal/repository"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Control exposes remote manual control. Every call goes through the same
// engine path as the front-panel buttons.
type Control interface {
	Increase(ctx context.Context) (fan_controller.NodeState, error)
	Decrease(ctx context.Context) (fan_controller.NodeState, error)
	SetSpeed(ctx context.Context, speed int) (fan_controller.NodeState, error)
	Auto(ctx context.Context) (fan_controller.NodeState, error)
}

// Monitoring exposes the read-only node state.
type Monitoring interface {
	GetState(ctx context.Context) (fan_controller.NodeState, error)
}

// EventLog exposes the activity journal with filtering.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.LogEntry, error)
}

// Measurements exposes the stored measurement history.
type Measurements interface {
	List(ctx context.Context, f MeasurementFilter) ([]models.Measurement, error)
}

// Service aggregates the API-facing services.
type Service struct {
	Control
	Monitoring
	EventLog
	Measurements
	Authorization
}

// NodeAPI is what the API needs from the running control loops.
type NodeAPI interface {
	StateSource
	Commander
}

func NewService(repos *repository.Repository, node NodeAPI, journal ActivityReader, auth config.AuthConfig) *Service {
	return &Service{
		Control:       NewControlService(node),
		Monitoring:    NewMonitoringService(node),
		EventLog:      NewEventLogService(journal),
		Measurements:  NewMeasurementService(repos.MeasurementRepo),
		Authorization: NewAuthService(repos.Auth, auth.SigningKey, auth.TokenTTL),
	}
}
