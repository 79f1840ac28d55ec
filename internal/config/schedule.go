package config

import (
	"fmt"
	"strings"
	"time"
)

// ClockTime is a minute of the day, 0..1439.
type ClockTime int

// ParseClockTime parses "HH:MM" (24h).
func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	return ClockTime(t.Hour()*60 + t.Minute()), nil
}

// Of returns the minute of day of t in its own location.
func Of(t time.Time) ClockTime {
	return ClockTime(t.Hour()*60 + t.Minute())
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// On returns the instant of c on the calendar day of t, in t's location.
func (c ClockTime) On(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, int(c)/60, int(c)%60, 0, 0, t.Location())
}

// Window is a [Start, End) span of the day. A window whose end is not after
// its start wraps midnight (used for night mode).
type Window struct {
	Start ClockTime
	End   ClockTime
}

func (w Window) Wraps() bool { return w.End <= w.Start }

// Contains reports whether the minute of day of t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	m := Of(t)
	if w.Wraps() {
		return m >= w.Start || m < w.End
	}
	return m >= w.Start && m < w.End
}

func (w Window) String() string {
	return w.Start.String() + "-" + w.End.String()
}

// Schedule is the parsed, immutable business-hours and night-mode configuration.
type Schedule struct {
	Location *time.Location
	Days     map[time.Weekday]Window
	Night    Window
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Parse validates the raw schedule. A malformed window is a ConfigurationError.
func (c ScheduleConfig) Parse() (Schedule, error) {
	s := Schedule{Days: make(map[time.Weekday]Window, len(c.BusinessHours))}

	tz := c.Timezone
	if tz == "" {
		tz = "Local"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Schedule{}, &ConfigurationError{Field: "schedule.timezone", Reason: err.Error()}
	}
	s.Location = loc

	for name, wc := range c.BusinessHours {
		day, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return Schedule{}, &ConfigurationError{Field: "schedule.business_hours", Reason: fmt.Sprintf("unknown weekday %q", name)}
		}
		field := "schedule.business_hours." + strings.ToLower(name)
		w, err := parseWindow(field, wc)
		if err != nil {
			return Schedule{}, err
		}
		if w.Wraps() {
			return Schedule{}, &ConfigurationError{Field: field, Reason: fmt.Sprintf("start %s must be before end %s", w.Start, w.End)}
		}
		s.Days[day] = w
	}

	night, err := parseWindow("schedule.night_mode", c.NightMode)
	if err != nil {
		return Schedule{}, err
	}
	if night.Start == night.End {
		return Schedule{}, &ConfigurationError{Field: "schedule.night_mode", Reason: "start and end must differ"}
	}
	s.Night = night
	return s, nil
}

func parseWindow(field string, wc WindowConfig) (Window, error) {
	start, err := ParseClockTime(wc.Start)
	if err != nil {
		return Window{}, &ConfigurationError{Field: field + ".start", Reason: err.Error()}
	}
	end, err := ParseClockTime(wc.End)
	if err != nil {
		return Window{}, &ConfigurationError{Field: field + ".end", Reason: err.Error()}
	}
	return Window{Start: start, End: end}, nil
}

// Local converts t into the schedule's location.
func (s Schedule) Local(t time.Time) time.Time {
	if s.Location == nil {
		return t
	}
	return t.In(s.Location)
}

// Window returns the business window of a weekday, if it is a business day.
func (s Schedule) Window(day time.Weekday) (Window, bool) {
	w, ok := s.Days[day]
	return w, ok
}

// IsBusinessDay reports whether t's weekday has a window.
func (s Schedule) IsBusinessDay(t time.Time) bool {
	_, ok := s.Days[s.Local(t).Weekday()]
	return ok
}

// InBusinessHours reports whether t falls inside its day's window.
func (s Schedule) InBusinessHours(t time.Time) bool {
	lt := s.Local(t)
	w, ok := s.Days[lt.Weekday()]
	return ok && w.Contains(lt)
}

// NextStart returns the first business window start strictly after t.
func (s Schedule) NextStart(t time.Time) (time.Time, bool) {
	lt := s.Local(t)
	for i := 0; i <= 7; i++ {
		day := lt.AddDate(0, 0, i)
		w, ok := s.Days[day.Weekday()]
		if !ok {
			continue
		}
		if start := w.Start.On(day); start.After(lt) {
			return start, true
		}
	}
	return time.Time{}, false
}

// InNightMode reports whether the display should be blanked at t.
func (s Schedule) InNightMode(t time.Time) bool {
	return s.Night.Contains(s.Local(t))
}

// NightModeEnds returns when the current night/day period flips.
func (s Schedule) NightModeEnds(t time.Time) time.Time {
	lt := s.Local(t)
	edge := s.Night.Start
	if s.Night.Contains(lt) {
		edge = s.Night.End
	}
	next := edge.On(lt)
	if !next.After(lt) {
		next = edge.On(lt.AddDate(0, 0, 1))
	}
	return next
}
