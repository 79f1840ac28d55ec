// Package display renders the front panel from the published node state.
// It only reads state; nothing it does feeds back into control.
package display

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"fan_controller"
	"fan_controller/internal/activity"
	"fan_controller/internal/config"
	"fan_controller/internal/engine"
	"fan_controller/internal/logger"
	"fan_controller/internal/metrics"
	"fan_controller/internal/models"
)

// Panel is a text display.
type Panel interface {
	Show(lines []string) error
	Blank() error
}

// Frame returns the panel lines for st at now (already in schedule time).
func Frame(now time.Time, sensors []string, st fan_controller.NodeState) []string {
	lines := []string{
		fmt.Sprintf("%s %s %s", now.Format("01/02"), engine.DayAbbrev(now.Weekday()), now.Format("3:04PM")),
	}
	for _, s := range sensors {
		lines = append(lines, fmt.Sprintf("%s: %s", label(s), temperature(st, s)))
	}
	hum := "--%"
	if st.HumidityPct != nil {
		hum = fmt.Sprintf("%.1f%%", *st.HumidityPct)
	}
	lines = append(lines, "HUM: "+hum)

	fan := "OFF"
	if st.Fan.Running {
		fan = fmt.Sprintf("%d%%", st.Fan.CurrentSpeed)
	}
	lines = append(lines, "FAN: "+fan, StatusLine(st.Mode))

	rtc := "INT (UNSYNC)"
	if st.Clock.ExternalSynced {
		rtc = "EXT (SYNC)"
	}
	return append(lines, "RTC: "+rtc)
}

// StatusLine is the run/stop line of the panel.
func StatusLine(mode models.RunMode) string {
	switch mode {
	case models.ModeManual:
		return "RUN: Manual"
	case models.ModeTempOverride:
		return "RUN: T Override"
	case models.ModeHumidityOverride:
		return "RUN: H Override"
	case models.ModeAfterHours:
		return "STOP: A/H"
	case models.ModeWeekend:
		return "STOP: Weekend"
	default:
		return "RUN: Auto"
	}
}

func label(sensor string) string {
	l := strings.ToUpper(sensor)
	if len(l) > 3 {
		l = l[:3]
	}
	return l
}

func temperature(st fan_controller.NodeState, sensor string) string {
	id := models.ChannelID(sensor, models.QuantityTemperature)
	for _, c := range st.Channels {
		if c.ID == id && c.Value != nil {
			return fmt.Sprintf("%.1fF", *c.Value)
		}
	}
	return "--F"
}

// Renderer draws frames on a panel and blanks it during night mode.
// Render errors are counted and logged, never returned.
type Renderer struct {
	mu       sync.Mutex
	panel    Panel
	schedule config.Schedule
	sensors  []string

	started bool
	night   bool
	last    []string
	failing bool

	journal activity.Journal
	log     *logger.Logger
}

func NewRenderer(panel Panel, schedule config.Schedule, sensors []string, journal activity.Journal, log *logger.Logger) *Renderer {
	if log == nil {
		log = logger.Nop()
	}
	return &Renderer{panel: panel, schedule: schedule, sensors: sensors, journal: journal, log: log}
}

// Render updates the panel for now. Unchanged frames are not redrawn.
func (r *Renderer) Render(now time.Time, st fan_controller.NodeState) {
	local := r.schedule.Local(now)
	night := r.schedule.InNightMode(local)

	r.mu.Lock()
	var note *models.LogEntry
	if r.started && night != r.night {
		until := r.schedule.NightModeEnds(local)
		if night {
			note = &models.LogEntry{Category: models.CategoryNightMode, Message: fmt.Sprintf("Display off until %s.", config.Of(until))}
		} else {
			note = &models.LogEntry{Category: models.CategoryDayMode, Message: fmt.Sprintf("Display on until %s.", config.Of(until))}
		}
	}
	flip := !r.started || night != r.night
	r.started = true
	r.night = night

	var err error
	if night {
		if flip || r.failing {
			err = r.panel.Blank()
			r.last = nil
		}
	} else {
		frame := Frame(local, r.sensors, st)
		if flip || r.failing || !equal(frame, r.last) {
			err = r.panel.Show(frame)
			r.last = frame
		}
	}
	r.trackError(err)
	r.mu.Unlock()

	if note != nil && r.journal != nil {
		r.journal.Append(note.Category, note.Message)
	}
}

func (r *Renderer) trackError(err error) {
	if err == nil {
		if r.failing {
			r.log.Infow("display_restored")
		}
		r.failing = false
		return
	}
	metrics.IncRenderError()
	if !r.failing {
		r.log.Errorw("display_render_failed", "err", err)
	}
	r.failing = true
	r.last = nil
}

// NightMode reports whether the panel is currently blanked.
func (r *Renderer) NightMode() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.night
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
