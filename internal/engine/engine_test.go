package engine

import (
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"fan_controller/internal/config"
	"fan_controller/internal/models"
)

type recJournal struct {
	mu      sync.Mutex
	entries []models.LogEntry
}

func (j *recJournal) Append(c models.Category, msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, models.LogEntry{Category: c, Message: msg})
}

func (j *recJournal) last() models.LogEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.entries) == 0 {
		return models.LogEntry{}
	}
	return j.entries[len(j.entries)-1]
}

// at returns a time in January 2024; the 1st is a Monday.
func at(day, hh, mm int) time.Time {
	return time.Date(2024, 1, day, hh, mm, 0, 0, time.UTC)
}

var (
	tuesday  = 2
	saturday = 6
	none     = math.NaN()
)

func newTestEngine(t *testing.T) (*Engine, *recJournal) {
	t.Helper()
	week := map[string]config.WindowConfig{}
	for _, d := range []string{"monday", "tuesday", "wednesday", "thursday", "friday"} {
		week[d] = config.WindowConfig{Start: "08:00", End: "17:00"}
	}
	sched, err := config.ScheduleConfig{
		Timezone:      "UTC",
		BusinessHours: week,
		NightMode:     config.WindowConfig{Start: "23:00", End: "07:00"},
	}.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	j := &recJournal{}
	e := New(Settings{
		Schedule: sched,
		Overrides: config.Overrides{
			TempThresholdF:           80,
			TempOverrideMinSpeed:     90,
			HumidityThresholdPct:     43,
			HumidityOverrideMinSpeed: 80,
		},
		InitialSpeed: 65,
	}, j, nil)
	return e, j
}

// snapshot builds fresh readings; NaN leaves the quantity unavailable.
func snapshot(tempF, humPct float64) models.SensorSnapshot {
	ch := map[models.SensorID]models.ReadingStatus{}
	if !math.IsNaN(tempF) {
		id := models.ChannelID("tmp117", models.QuantityTemperature)
		ch[id] = models.ReadingStatus{State: models.ReadingFresh, Reading: models.Reading{Value: tempF, Source: id, Quantity: models.QuantityTemperature, Valid: true}}
	}
	if !math.IsNaN(humPct) {
		id := models.ChannelID("shtc3", models.QuantityHumidity)
		ch[id] = models.ReadingStatus{State: models.ReadingFresh, Reading: models.Reading{Value: humPct, Source: id, Quantity: models.QuantityHumidity, Valid: true}}
	}
	return models.SensorSnapshot{Channels: ch}
}

func TestStep_GrowsWithSpeedAndSaturates(t *testing.T) {
	cases := []struct {
		speed    int
		up, down int
	}{
		{20, 22, 20},
		{21, 23, 20},
		{38, 40, 36},
		{40, 45, 35},
		{59, 64, 54},
		{65, 73, 57},
		{80, 90, 70},
		{95, 100, 85},
		{100, 100, 90},
	}
	for _, tc := range cases {
		if got := Increase(tc.speed); got != tc.up {
			t.Errorf("Increase(%d) = %d, want %d", tc.speed, got, tc.up)
		}
		if got := Decrease(tc.speed); got != tc.down {
			t.Errorf("Decrease(%d) = %d, want %d", tc.speed, got, tc.down)
		}
	}
	prev := 0
	for s := MinSpeed; s <= MaxSpeed; s++ {
		if Step(s) < prev {
			t.Fatalf("step shrinks at %d", s)
		}
		prev = Step(s)
	}
}

func TestEvaluate_PriorityTable(t *testing.T) {
	cases := []struct {
		name    string
		now     time.Time
		temp    float64
		hum     float64
		mode    models.RunMode
		speed   int
		running bool
	}{
		{"temp override on saturday", at(saturday, 12, 0), 82.3, 30, models.ModeTempOverride, 90, true},
		{"temp override in hours", at(tuesday, 14, 35), 82.3, 30, models.ModeTempOverride, 90, true},
		{"humidity override", at(tuesday, 10, 0), 75, 50, models.ModeHumidityOverride, 80, true},
		{"both overrides take the higher minimum", at(tuesday, 10, 0), 85, 50, models.ModeTempOverride, 90, true},
		{"auto inside hours", at(tuesday, 10, 0), 75, 30, models.ModeAuto, 65, true},
		{"after hours", at(tuesday, 17, 22), 75, 30, models.ModeAfterHours, 0, false},
		{"before opening", at(tuesday, 7, 59), 75, 30, models.ModeAfterHours, 0, false},
		{"weekend", at(saturday, 12, 0), 75, 30, models.ModeWeekend, 0, false},
		{"threshold is exclusive", at(saturday, 12, 0), 80, 43, models.ModeWeekend, 0, false},
		{"no sensors in hours", at(tuesday, 10, 0), none, none, models.ModeAuto, 65, true},
		{"no sensors on weekend", at(saturday, 12, 0), none, none, models.ModeWeekend, 0, false},
		{"humidity without temperature", at(saturday, 12, 0), none, 50, models.ModeHumidityOverride, 80, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, _ := newTestEngine(t)
			d := e.Evaluate(Inputs{Now: tc.now, Sensors: snapshot(tc.temp, tc.hum)})
			if d.Mode != tc.mode || d.SpeedPercent != tc.speed || d.Running != tc.running {
				t.Fatalf("got %s %d%% running=%v, want %s %d%% running=%v (%s)",
					d.Mode, d.SpeedPercent, d.Running, tc.mode, tc.speed, tc.running, d.Reason)
			}
			if d.Mode.IsOverride() && (d.Floor == nil || d.SpeedPercent < *d.Floor) {
				t.Fatalf("override without floor: %+v", d)
			}
		})
	}
}

func TestEvaluate_ManualRespectsOverrideFloor(t *testing.T) {
	cases := []struct {
		request int
		want    int
	}{
		{70, 90},
		{95, 95},
	}
	for _, tc := range cases {
		e, j := newTestEngine(t)
		d := e.Evaluate(Inputs{
			Now:      at(tuesday, 14, 35),
			Sensors:  snapshot(82.3, 30),
			Commands: []Command{{Kind: CmdSet, Speed: tc.request}},
		})
		if d.Mode != models.ModeManual || d.SpeedPercent != tc.want {
			t.Fatalf("request %d: got %s %d%%", tc.request, d.Mode, d.SpeedPercent)
		}
		if tc.request < 90 && j.last().Category != models.CategoryOverride {
			t.Fatalf("expected blocked decrease to be logged, got %+v", j.entries)
		}
	}
}

func TestEvaluate_ManualFollowsFloorWhenOverrideEnds(t *testing.T) {
	e, _ := newTestEngine(t)
	now := at(tuesday, 14, 35)
	e.Evaluate(Inputs{Now: now, Sensors: snapshot(82.3, 30), Commands: []Command{{Kind: CmdSet, Speed: 70}}})

	if st := e.State(); st.ManualSpeed == nil || *st.ManualSpeed != 90 {
		t.Fatalf("blocked request should store the floor, got %+v", st.ManualSpeed)
	}

	d := e.Evaluate(Inputs{Now: now.Add(time.Minute), Sensors: snapshot(75, 30)})
	if d.Mode != models.ModeManual || d.SpeedPercent != 90 || d.Floor != nil {
		t.Fatalf("expected manual to hold 90%% once the floor lifts, got %+v", d)
	}

	// A blocked decrease press from the floor lands on the floor too.
	e.Evaluate(Inputs{Now: now.Add(2 * time.Minute), Sensors: snapshot(82.3, 30), Commands: []Command{{Kind: CmdDecrease}}})
	d = e.Evaluate(Inputs{Now: now.Add(3 * time.Minute), Sensors: snapshot(75, 30)})
	if d.SpeedPercent != 90 {
		t.Fatalf("expected 90%% after blocked decrease, got %+v", d)
	}
}

func TestEvaluate_ButtonsEnterAndReleaseManual(t *testing.T) {
	e, j := newTestEngine(t)
	now := at(tuesday, 10, 0)
	in := Inputs{Now: now, Sensors: snapshot(75, 30)}
	if d := e.Evaluate(in); d.Mode != models.ModeAuto || d.SpeedPercent != 65 {
		t.Fatalf("expected auto 65, got %+v", d)
	}

	in.Commands = []Command{{Kind: CmdIncrease}}
	d := e.Evaluate(in)
	if d.Mode != models.ModeManual || d.SpeedPercent != 73 {
		t.Fatalf("expected manual 73, got %+v", d)
	}
	if got := j.last(); got.Category != models.CategoryManual || !strings.Contains(got.Message, "Manual Active. Speed: 73%") {
		t.Fatalf("unexpected entry: %+v", got)
	}

	in.Commands = []Command{{Kind: CmdIncrease}}
	if d := e.Evaluate(in); d.SpeedPercent != 81 {
		t.Fatalf("expected 81, got %d", d.SpeedPercent)
	}

	in.Commands = []Command{{Kind: CmdRelease}}
	d = e.Evaluate(in)
	if d.Mode != models.ModeAuto || d.SpeedPercent != 81 {
		t.Fatalf("manual speed should become the auto speed, got %+v", d)
	}
	if st := e.State(); st.ManualSpeed != nil || st.AutoSpeed != 81 {
		t.Fatalf("state: %+v", st)
	}
	if got := j.last(); got.Category != models.CategoryAuto {
		t.Fatalf("expected AUTO entry on leaving manual, got %+v", got)
	}

	n := len(j.entries)
	in.Commands = []Command{{Kind: CmdRelease}}
	e.Evaluate(in)
	if len(j.entries) != n {
		t.Fatalf("release outside manual must be a no-op")
	}
}

func TestEvaluate_PressWhileStoppedStartsFromSetSpeed(t *testing.T) {
	e, _ := newTestEngine(t)
	now := at(tuesday, 19, 0)
	e.Evaluate(Inputs{Now: now, Sensors: snapshot(75, 30)})
	d := e.Evaluate(Inputs{Now: now, Sensors: snapshot(75, 30), Commands: []Command{{Kind: CmdDecrease}}})
	if d.Mode != models.ModeManual || !d.Running || d.SpeedPercent != 57 {
		t.Fatalf("expected manual 57%% after hours, got %+v", d)
	}
}

func TestEvaluate_IdempotentForIdenticalInputs(t *testing.T) {
	e, j := newTestEngine(t)
	in := Inputs{Now: at(tuesday, 14, 35), Sensors: snapshot(82.3, 50)}
	first := e.Evaluate(in)
	n := len(j.entries)
	second := e.Evaluate(in)
	if !first.Equal(second) {
		t.Fatalf("decisions differ: %+v vs %+v", first, second)
	}
	if len(j.entries) != n {
		t.Fatalf("duplicate log entries: %+v", j.entries)
	}
}

func TestEvaluate_EndToEndTuesday(t *testing.T) {
	e, j := newTestEngine(t)

	d := e.Evaluate(Inputs{Now: at(tuesday, 14, 35), Sensors: snapshot(82.3, 30)})
	if d.Mode != models.ModeTempOverride || d.SpeedPercent < 90 {
		t.Fatalf("expected override >= 90, got %+v", d)
	}
	got := j.last()
	if got.Category != models.CategoryOverride || got.Message != "Temperature (82.3F) detected. Forcing min speed 90%." {
		t.Fatalf("unexpected override entry: %+v", got)
	}

	d = e.Evaluate(Inputs{Now: at(tuesday, 17, 22), Sensors: snapshot(75, 30)})
	if d.Mode != models.ModeAfterHours || d.Running {
		t.Fatalf("expected after hours stop, got %+v", d)
	}
	if !strings.Contains(d.Reason, "next start 2024-01-03 08:00 WE") {
		t.Fatalf("reason should carry the next start: %q", d.Reason)
	}
	if got := j.last(); got.Category != models.CategoryAuto || got.Message != "Override ended. Resuming normal operation (AFTER_HOURS)" {
		t.Fatalf("unexpected exit entry: %+v", got)
	}
}

func TestEvaluate_AfterHoursEntryNamesNextStart(t *testing.T) {
	e, j := newTestEngine(t)
	e.Evaluate(Inputs{Now: at(tuesday, 16, 59), Sensors: snapshot(75, 30)})
	if got := j.last(); got.Category != models.CategoryBusinessHours || got.Message != "Started at 16:59 (TU). Operating until 17:00" {
		t.Fatalf("unexpected entry: %+v", got)
	}
	e.Evaluate(Inputs{Now: at(tuesday, 17, 22), Sensors: snapshot(75, 30)})
	if got := j.last(); got.Category != models.CategoryAfterHours || got.Message != "Business day ended at 17:22. Resuming at 08:00 on WE" {
		t.Fatalf("unexpected entry: %+v", got)
	}

	e2, j2 := newTestEngine(t)
	e2.Evaluate(Inputs{Now: at(5, 18, 0), Sensors: snapshot(75, 30)})
	e2.Evaluate(Inputs{Now: at(saturday, 0, 0), Sensors: snapshot(75, 30)})
	if got := j2.last(); got.Category != models.CategoryWeekend || !strings.HasSuffix(got.Message, "Resuming at 08:00 on MO") {
		t.Fatalf("unexpected weekend entry: %+v", got)
	}
}
