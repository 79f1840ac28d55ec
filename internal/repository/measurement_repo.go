package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"fan_controller/internal/models"
)

// sqliteTimeLayout is the TIMESTAMP text format used for every stored time,
// so range filters compare lexically.
const sqliteTimeLayout = "2006-01-02 15:04:05"

type MeasurementSQLite struct {
	db *sql.DB
}

func NewMeasurementSQLite(db *sql.DB) *MeasurementSQLite { return &MeasurementSQLite{db: db} }

const (
	insertMeasurementSQL = `
		INSERT INTO measurements (id, taken_at, temperatures, humidity_pct, fan_speed, mode, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	selectMeasurementsSQL = `SELECT id, taken_at, temperatures, humidity_pct, fan_speed, mode, status FROM measurements`
	purgeMeasurementsSQL  = `DELETE FROM measurements WHERE taken_at < ?`
)

// Append stores one measurement row. A missing ID or timestamp is filled in.
func (r *MeasurementSQLite) Append(ctx context.Context, m models.Measurement) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.TakenAt.IsZero() {
		m.TakenAt = time.Now()
	}
	temps, err := json.Marshal(m.Temperatures)
	if err != nil {
		return fmt.Errorf("marshal temperatures: %w", err)
	}

	var hum sql.NullFloat64
	if m.HumidityPct != nil {
		hum = sql.NullFloat64{Float64: *m.HumidityPct, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, insertMeasurementSQL,
		m.ID,
		m.TakenAt.UTC().Format(sqliteTimeLayout),
		string(temps),
		hum,
		m.FanSpeed,
		string(m.Mode),
		m.Status,
	)
	if err != nil {
		return fmt.Errorf("insert measurement: %w", err)
	}
	return nil
}

// List returns measurements taken in [from, to] (either bound optional), oldest first.
func (r *MeasurementSQLite) List(ctx context.Context, from, to time.Time) ([]models.Measurement, error) {
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "taken_at >= ?")
		args = append(args, from.UTC().Format(sqliteTimeLayout))
	}
	if !to.IsZero() {
		conds = append(conds, "taken_at <= ?")
		args = append(args, to.UTC().Format(sqliteTimeLayout))
	}

	q := selectMeasurementsSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY taken_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list measurements: %w", err)
	}
	defer rows.Close()

	out := make([]models.Measurement, 0, 64)
	for rows.Next() {
		var (
			m     models.Measurement
			temps string
			hum   sql.NullFloat64
			mode  string
		)
		if err := rows.Scan(&m.ID, &m.TakenAt, &temps, &hum, &m.FanSpeed, &mode, &m.Status); err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		if err := json.Unmarshal([]byte(temps), &m.Temperatures); err != nil {
			return nil, fmt.Errorf("decode temperatures of %s: %w", m.ID, err)
		}
		if hum.Valid {
			v := hum.Float64
			m.HumidityPct = &v
		}
		m.Mode = models.RunMode(mode)
		m.TakenAt = m.TakenAt.UTC()
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Purge deletes measurements older than before and reports how many went.
func (r *MeasurementSQLite) Purge(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, purgeMeasurementsSQL, before.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return 0, fmt.Errorf("purge measurements: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge measurements: %w", err)
	}
	return n, nil
}
