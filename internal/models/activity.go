package models

import (
	"fmt"
	"time"
)

// Category tags an activity log line.
type Category string

const (
	CategoryBusinessHours   Category = "BUSINESS HOURS"
	CategoryOverride        Category = "OVERRIDE"
	CategoryRun             Category = "RUN"
	CategoryStop            Category = "STOP"
	CategorySpeed           Category = "SPEED"
	CategoryAuto            Category = "AUTO"
	CategoryAfterHours      Category = "AFTER HOURS"
	CategoryWeekend         Category = "WEEKEND"
	CategoryManual          Category = "MANUAL"
	CategorySensorLost      Category = "SENSOR_LOST"
	CategorySensorRecovered Category = "SENSOR_RECOVERED"
	CategoryRTCSync         Category = "RTC_SYNC"
	CategoryRTCSyncFailed   Category = "RTC_SYNC_FAILED"
	CategoryPrune           Category = "PRUNE"
	CategoryNightMode       Category = "NIGHT MODE"
	CategoryDayMode         Category = "DAY MODE"
	CategorySystem          Category = "SYSTEM"
)

// LogTimeLayout is the timestamp layout of activity lines and CSV rows.
const LogTimeLayout = "2006-01-02 15:04:05"

// LogEntry is one activity journal line. Entries are never mutated.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Category  Category  `json:"category"`
	Message   string    `json:"message"`
}

// String renders the entry as "[YYYY-MM-DD HH:MM:SS] [CATEGORY] message".
func (e LogEntry) String() string {
	return fmt.Sprintf("[%s] [%s] %s", e.Timestamp.Format(LogTimeLayout), e.Category, e.Message)
}

// Size is the number of bytes the entry takes in the text store, newline included.
func (e LogEntry) Size() int {
	return len(e.String()) + 1
}
