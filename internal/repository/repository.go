package repository

import (
	"context"
	"database/sql"
	"time"

	"fan_controller"
	"fan_controller/internal/models"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*fan_controller.Operator, error)
}

type StateRepo interface {
	Save(ctx context.Context, s models.ControllerState) error
	Load(ctx context.Context) (models.ControllerState, bool, error)
}

type MeasurementRepo interface {
	Append(ctx context.Context, m models.Measurement) error
	List(ctx context.Context, from, to time.Time) ([]models.Measurement, error)
	Purge(ctx context.Context, before time.Time) (int64, error)
}

type Repository struct {
	StateRepo       StateRepo
	MeasurementRepo MeasurementRepo
	Auth            Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		StateRepo:       NewStateSQLite(db),
		MeasurementRepo: NewMeasurementSQLite(db),
		Auth:            NewOperatorRepository(db),
	}
}
