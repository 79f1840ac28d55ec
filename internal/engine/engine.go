// Package engine decides, from sensors, the clock and manual input, whether
// the fan runs and at what speed.
package engine

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"fan_controller/internal/activity"
	"fan_controller/internal/config"
	"fan_controller/internal/logger"
	"fan_controller/internal/models"
)

// CommandKind is a manual control action from the buttons or the API.
type CommandKind int

const (
	CmdIncrease CommandKind = iota + 1
	CmdDecrease
	CmdSet     // remote absolute speed
	CmdRelease // leave manual mode
)

func (k CommandKind) String() string {
	switch k {
	case CmdIncrease:
		return "increase"
	case CmdDecrease:
		return "decrease"
	case CmdSet:
		return "set"
	case CmdRelease:
		return "release"
	default:
		return "unknown"
	}
}

type Command struct {
	Kind  CommandKind
	Speed int // CmdSet only
}

// Inputs is everything one evaluation depends on besides the engine's own state.
type Inputs struct {
	Now      time.Time
	Sensors  models.SensorSnapshot
	Commands []Command // in arrival order
}

type Settings struct {
	Schedule     config.Schedule
	Overrides    config.Overrides
	InitialSpeed int
}

// Engine is the DecisionEngine. Settings are immutable after New.
type Engine struct {
	mu        sync.Mutex
	settings  Settings
	autoSpeed int
	manual    *int
	last      models.RunDecision
	evaluated bool

	journal activity.Journal
	log     *logger.Logger
}

func New(settings Settings, journal activity.Journal, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		settings:  settings,
		autoSpeed: ClampSpeed(settings.InitialSpeed),
		journal:   journal,
		log:       log,
	}
}

type note struct {
	cat models.Category
	msg string
}

// Evaluate applies pending manual commands and returns the decision for
// in.Now. It is total: every input maps to exactly one mode.
func (e *Engine) Evaluate(in Inputs) models.RunDecision {
	e.mu.Lock()
	env := e.observe(in.Sensors)
	var notes []note
	for _, cmd := range in.Commands {
		notes = append(notes, e.apply(cmd, env.floor)...)
	}
	d := e.decide(in.Now, env)
	if !e.evaluated || d.Mode != e.last.Mode {
		if n, ok := e.transition(e.last, d, in.Now, env, !e.evaluated); ok {
			notes = append(notes, n)
		}
		e.log.Infow("mode_changed", "from", string(e.last.Mode), "to", string(d.Mode), "reason", d.Reason)
	}
	e.last = d
	e.evaluated = true
	e.mu.Unlock()

	// The journal may read the clock, so append outside the lock.
	if e.journal != nil {
		for _, n := range notes {
			e.journal.Append(n.cat, n.msg)
		}
	}
	return d
}

// environment is the sensor-derived part of one evaluation.
type environment struct {
	temp     float64
	tempOK   bool
	hum      float64
	humOK    bool
	tempOver bool
	humOver  bool
	floor    *int
}

func (e *Engine) observe(snap models.SensorSnapshot) environment {
	var env environment
	o := e.settings.Overrides
	env.temp, env.tempOK = snap.Average(models.QuantityTemperature)
	env.hum, env.humOK = snap.Average(models.QuantityHumidity)
	env.tempOver = env.tempOK && env.temp > o.TempThresholdF
	env.humOver = env.humOK && env.hum > o.HumidityThresholdPct

	floor := 0
	if env.tempOver {
		floor = o.TempOverrideMinSpeed
	}
	if env.humOver && o.HumidityOverrideMinSpeed > floor {
		floor = o.HumidityOverrideMinSpeed
	}
	if floor > 0 {
		env.floor = &floor
	}
	return env
}

// current is the speed a press starts from: what the fan is doing, or the
// set speed if it is stopped.
func (e *Engine) current(floor *int) int {
	if e.manual != nil {
		return withFloor(*e.manual, floor)
	}
	if e.evaluated && e.last.Running {
		return e.last.SpeedPercent
	}
	return withFloor(e.autoSpeed, floor)
}

func (e *Engine) apply(cmd Command, floor *int) []note {
	switch cmd.Kind {
	case CmdIncrease, CmdDecrease, CmdSet:
		entering := e.manual == nil
		base := e.current(floor)
		var next int
		switch cmd.Kind {
		case CmdIncrease:
			next = Increase(base)
		case CmdDecrease:
			next = Decrease(base)
		default:
			next = ClampSpeed(cmd.Speed)
		}
		// A blocked decrease keeps the floor as the manual speed so the
		// request does not resurface once the override lifts.
		blocked := floor != nil && next < *floor
		if blocked {
			next = *floor
		}
		e.manual = &next
		e.log.Infow("manual_command", "command", cmd.Kind.String(), "from", base, "to", next)

		var notes []note
		if entering {
			notes = append(notes, note{models.CategoryManual, fmt.Sprintf("Manual Active. Speed: %d%%", next)})
		} else {
			notes = append(notes, note{models.CategoryManual, fmt.Sprintf("Speed: %d%%", next)})
		}
		if blocked {
			notes = append(notes, note{models.CategoryOverride, fmt.Sprintf("Decrease blocked. Min speed enforced (%d%%).", *floor)})
		}
		return notes

	case CmdRelease:
		if e.manual == nil {
			return nil
		}
		e.autoSpeed = *e.manual
		e.manual = nil
		e.log.Infow("manual_released", "auto_speed", e.autoSpeed)
		return []note{{models.CategoryManual, fmt.Sprintf("Manual mode disabled. Returning to Auto at %d%%.", e.autoSpeed)}}
	}
	return nil
}

func (e *Engine) decide(now time.Time, env environment) models.RunDecision {
	sched := e.settings.Schedule
	run := func(mode models.RunMode, speed int, reason string) models.RunDecision {
		return models.RunDecision{Mode: mode, SpeedPercent: withFloor(speed, env.floor), Running: true, Floor: copyInt(env.floor), Reason: reason}
	}

	switch {
	case e.manual != nil:
		return run(models.ModeManual, *e.manual, "manual speed set")
	case env.tempOver:
		return run(models.ModeTempOverride, e.autoSpeed,
			fmt.Sprintf("temperature %.1fF above %.1fF", env.temp, e.settings.Overrides.TempThresholdF))
	case env.humOver:
		return run(models.ModeHumidityOverride, e.autoSpeed,
			fmt.Sprintf("humidity %.1f%% above %.1f%%", env.hum, e.settings.Overrides.HumidityThresholdPct))
	}

	local := sched.Local(now)
	if w, ok := sched.Window(local.Weekday()); ok {
		if w.Contains(local) {
			return models.RunDecision{Mode: models.ModeAuto, SpeedPercent: e.autoSpeed, Running: true,
				Reason: fmt.Sprintf("inside business hours %s", w)}
		}
		return models.RunDecision{Mode: models.ModeAfterHours, Reason: "outside business hours " + w.String() + nextStartSuffix(sched, now)}
	}
	return models.RunDecision{Mode: models.ModeWeekend, Reason: "no business hours on " + local.Weekday().String() + nextStartSuffix(sched, now)}
}

// transition returns the journal note for a mode change.
func (e *Engine) transition(prev, d models.RunDecision, now time.Time, env environment, boot bool) (note, bool) {
	sched := e.settings.Schedule
	local := sched.Local(now)
	at := config.Of(local).String()

	switch d.Mode {
	case models.ModeManual:
		// logged with the command that entered it
		return note{}, false
	case models.ModeTempOverride:
		return note{models.CategoryOverride, fmt.Sprintf("Temperature (%.1fF) detected. Forcing min speed %d%%.", env.temp, *d.Floor)}, true
	case models.ModeHumidityOverride:
		return note{models.CategoryOverride, fmt.Sprintf("Humidity (%.1f%%) detected. Forcing min speed %d%%.", env.hum, *d.Floor)}, true
	}

	if !boot && prev.Mode.IsOverride() {
		return note{models.CategoryAuto, fmt.Sprintf("Override ended. Resuming normal operation (%s)", d.Mode)}, true
	}
	if !boot && prev.Mode == models.ModeManual {
		return note{models.CategoryAuto, fmt.Sprintf("Manual control ended. Resuming normal operation (%s)", d.Mode)}, true
	}

	switch d.Mode {
	case models.ModeAuto:
		w, _ := sched.Window(local.Weekday())
		return note{models.CategoryBusinessHours, fmt.Sprintf("Started at %s (%s). Operating until %s", at, DayAbbrev(local.Weekday()), w.End)}, true
	case models.ModeAfterHours:
		verb := "Business day ended at"
		if w, _ := sched.Window(local.Weekday()); config.Of(local) < w.Start {
			verb = "Before business hours at"
		}
		return note{models.CategoryAfterHours, fmt.Sprintf("%s %s.%s", verb, at, resumeSuffix(sched, now))}, true
	case models.ModeWeekend:
		return note{models.CategoryWeekend, fmt.Sprintf("No business hours on %s (%s).%s", local.Weekday(), at, resumeSuffix(sched, now))}, true
	}
	return note{}, false
}

func resumeSuffix(sched config.Schedule, now time.Time) string {
	next, ok := sched.NextStart(now)
	if !ok {
		return " No business hours configured."
	}
	return fmt.Sprintf(" Resuming at %s on %s", config.Of(next), DayAbbrev(next.Weekday()))
}

func nextStartSuffix(sched config.Schedule, now time.Time) string {
	next, ok := sched.NextStart(now)
	if !ok {
		return ""
	}
	return "; next start " + next.Format("2006-01-02 15:04") + " " + DayAbbrev(next.Weekday())
}

// DayAbbrev returns the two-letter weekday used on the panel and in the log.
func DayAbbrev(d time.Weekday) string {
	return strings.ToUpper(d.String()[:2])
}

// NextStart is when the fan is next scheduled to start after now.
func (e *Engine) NextStart(now time.Time) (time.Time, bool) {
	return e.settings.Schedule.NextStart(now)
}

// Last returns the most recent decision.
func (e *Engine) Last() (models.RunDecision, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last, e.evaluated
}

// State is a read-only view of the engine's own memory.
type State struct {
	AutoSpeed   int  `json:"auto_speed"`
	ManualSpeed *int `json:"manual_speed,omitempty"`
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{AutoSpeed: e.autoSpeed, ManualSpeed: copyInt(e.manual)}
}

// Restore seeds the auto set speed, e.g. from the last persisted fan state.
func (e *Engine) Restore(autoSpeed int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.autoSpeed = ClampSpeed(autoSpeed)
}

func withFloor(speed int, floor *int) int {
	if floor != nil && speed < *floor {
		return *floor
	}
	return speed
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
