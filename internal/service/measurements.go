package service

import (
	"context"

	"fan_controller/internal/models"
	"fan_controller/internal/repository"
)

type MeasurementService struct {
	repo repository.MeasurementRepo
}

func NewMeasurementService(repo repository.MeasurementRepo) *MeasurementService {
	return &MeasurementService{repo: repo}
}

// List returns stored measurement rows in the range, oldest first.
func (s *MeasurementService) List(ctx context.Context, f MeasurementFilter) ([]models.Measurement, error) {
	from, to, err := normalizeAndValidateRange(f.From, f.To)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, from, to)
}
