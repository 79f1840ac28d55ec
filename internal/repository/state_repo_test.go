package repository_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"fan_controller/internal/models"
	"fan_controller/internal/repository"
)

func newStateRepo(t *testing.T) (*repository.StateSQLite, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		_ = db.Close()
	})
	return repository.NewStateSQLite(db), mock
}

func TestStateSQLite_Save_ManualSpeedAndUTC(t *testing.T) {
	repo, mock := newStateRepo(t)

	locTokyo, _ := time.LoadLocation("Asia/Tokyo")
	updated := time.Date(2024, 1, 2, 23, 35, 0, 0, locTokyo) // 14:35 UTC
	manual := 73
	state := models.ControllerState{
		Mode:        models.ModeManual,
		AutoSpeed:   65,
		ManualSpeed: &manual,
		FanSpeed:    73,
		Running:     true,
		UpdatedAt:   updated,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO fan_state")).
		WithArgs(1, "MANUAL", 65, 73, 73, true, "2024-01-02 14:35:00").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Save(context.Background(), state); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
}

func TestStateSQLite_Save_NoManualSpeedWritesNull(t *testing.T) {
	repo, mock := newStateRepo(t)

	isRecent := sqlmockArgumentFunc(func(v driver.Value) bool {
		s, ok := v.(string)
		if !ok {
			return false
		}
		tm, err := time.Parse("2006-01-02 15:04:05", s)
		return err == nil && time.Since(tm) < time.Minute && time.Since(tm) > -time.Minute
	})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO fan_state")).
		WithArgs(1, "AFTER_HOURS", 65, nil, 0, false, isRecent).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Save(context.Background(), models.ControllerState{Mode: models.ModeAfterHours, AutoSpeed: 65})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
}

func TestStateSQLite_Save_ExecErrorIsPropagated(t *testing.T) {
	repo, mock := newStateRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO fan_state")).
		WillReturnError(errors.New("db down"))

	if err := repo.Save(context.Background(), models.ControllerState{Mode: models.ModeAuto}); err == nil {
		t.Fatalf("Save() expected error, got nil")
	}
}

func TestStateSQLite_Load_NoRows(t *testing.T) {
	repo, mock := newStateRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT mode, auto_speed, manual_speed, fan_speed, running, updated_at")).
		WithArgs(1).
		WillReturnError(sql.ErrNoRows)

	got, ok, err := repo.Load(context.Background())
	if err != nil || ok {
		t.Fatalf("Load() = %+v, %v, %v; want nothing saved", got, ok, err)
	}
}

func TestStateSQLite_Load_HappyPath(t *testing.T) {
	repo, mock := newStateRepo(t)

	locNY, _ := time.LoadLocation("America/New_York")
	nonUTC := time.Date(2024, 2, 1, 8, 30, 0, 0, locNY)
	rows := sqlmock.NewRows([]string{"mode", "auto_speed", "manual_speed", "fan_speed", "running", "updated_at"}).
		AddRow("MANUAL", 65, 73, 90, true, nonUTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT mode, auto_speed, manual_speed, fan_speed, running, updated_at")).
		WithArgs(1).
		WillReturnRows(rows)

	got, ok, err := repo.Load(context.Background())
	if err != nil || !ok {
		t.Fatalf("Load() unexpected result: ok=%v err=%v", ok, err)
	}
	if got.Mode != models.ModeManual || got.AutoSpeed != 65 || got.FanSpeed != 90 || !got.Running {
		t.Fatalf("Load() unexpected fields: %+v", got)
	}
	if got.ManualSpeed == nil || *got.ManualSpeed != 73 {
		t.Fatalf("Load() manual speed: %v", got.ManualSpeed)
	}
	if got.UpdatedAt.Location() != time.UTC || !got.UpdatedAt.Equal(nonUTC) {
		t.Fatalf("Load() UpdatedAt: %v", got.UpdatedAt)
	}
}

func TestStateSQLite_Load_NullManualSpeed(t *testing.T) {
	repo, mock := newStateRepo(t)

	rows := sqlmock.NewRows([]string{"mode", "auto_speed", "manual_speed", "fan_speed", "running", "updated_at"}).
		AddRow("AUTO", 65, nil, 65, true, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM fan_state")).WithArgs(1).WillReturnRows(rows)

	got, ok, err := repo.Load(context.Background())
	if err != nil || !ok || got.ManualSpeed != nil {
		t.Fatalf("Load() = %+v, %v, %v", got, ok, err)
	}
}

// Helpers

type sqlmockArgumentFunc func(v driver.Value) bool

func (f sqlmockArgumentFunc) Match(v driver.Value) bool {
	return f(v)
}
