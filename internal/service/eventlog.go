package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"fan_controller/internal/activity"
	"fan_controller/internal/models"
)

// ActivityReader is the read side of the activity journal.
type ActivityReader interface {
	List(f activity.Filter) []models.LogEntry
}

type EventLogService struct {
	journal ActivityReader
}

func NewEventLogService(journal ActivityReader) *EventLogService {
	return &EventLogService{journal: journal}
}

var (
	errInvalidTimeRange = errors.New("invalid time range: From must be <= To")
)

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeCategory trims spaces and uppercases the category filter.
func normalizeCategory(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeAndValidateRange validates [from, to] after converting to UTC.
func normalizeAndValidateRange(from, to time.Time) (time.Time, time.Time, error) {
	from = normalizeToUTC(from)
	to = normalizeToUTC(to)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, errInvalidTimeRange
	}
	return from, to, nil
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.LogEntry, error) {
	from, to, err := normalizeAndValidateRange(f.From, f.To)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.journal.List(activity.Filter{
		From:     from,
		To:       to,
		Category: models.Category(normalizeCategory(f.Category)),
	}), nil
}
