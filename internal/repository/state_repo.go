package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fan_controller/internal/models"
)

type StateSQLite struct {
	db *sql.DB
}

func NewStateSQLite(db *sql.DB) *StateSQLite {
	return &StateSQLite{db: db}
}

const (
	fanStateRowID = 1

	upsertFanStateSQL = `
		INSERT INTO fan_state (id, mode, auto_speed, manual_speed, fan_speed, running, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode=excluded.mode,
			auto_speed=excluded.auto_speed,
			manual_speed=excluded.manual_speed,
			fan_speed=excluded.fan_speed,
			running=excluded.running,
			updated_at=excluded.updated_at
	`

	selectFanStateSQL = `
		SELECT mode, auto_speed, manual_speed, fan_speed, running, updated_at
		FROM fan_state WHERE id=?
	`
)

// Save updates or inserts the fan_state row (id always 1).
func (r *StateSQLite) Save(ctx context.Context, state models.ControllerState) error {
	ts := state.UpdatedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	var manual sql.NullInt64
	if state.ManualSpeed != nil {
		manual = sql.NullInt64{Int64: int64(*state.ManualSpeed), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, upsertFanStateSQL,
		fanStateRowID,
		string(state.Mode),
		state.AutoSpeed,
		manual,
		state.FanSpeed,
		state.Running,
		ts.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("save fan state: %w", err)
	}
	return nil
}

// Load fetches the persisted fan state. ok is false when nothing was saved yet.
func (r *StateSQLite) Load(ctx context.Context) (models.ControllerState, bool, error) {
	row := r.db.QueryRowContext(ctx, selectFanStateSQL, fanStateRowID)

	var (
		s      models.ControllerState
		mode   string
		manual sql.NullInt64
	)
	if err := row.Scan(&mode, &s.AutoSpeed, &manual, &s.FanSpeed, &s.Running, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ControllerState{}, false, nil
		}
		return models.ControllerState{}, false, fmt.Errorf("load fan state: %w", err)
	}
	s.Mode = models.RunMode(mode)
	if manual.Valid {
		v := int(manual.Int64)
		s.ManualSpeed = &v
	}
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, true, nil
}
