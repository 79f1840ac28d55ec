package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"fan_controller"
	"fan_controller/internal/activity"
	"fan_controller/internal/buttons"
	"fan_controller/internal/clock"
	"fan_controller/internal/config"
	"fan_controller/internal/display"
	"fan_controller/internal/engine"
	"fan_controller/internal/fan"
	"fan_controller/internal/measurement"
	"fan_controller/internal/models"
	"fan_controller/internal/mqtt"
	"fan_controller/internal/sensor"
	"fan_controller/internal/status"
)

// stateRepoStub is an in-memory repository.StateRepo.
type stateRepoStub struct {
	mu    sync.Mutex
	saved []models.ControllerState
	load  *models.ControllerState
}

func (s *stateRepoStub) Save(ctx context.Context, st models.ControllerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, st)
	return nil
}

func (s *stateRepoStub) Load(ctx context.Context) (models.ControllerState, bool, error) {
	if s.load == nil {
		return models.ControllerState{}, false, nil
	}
	return *s.load, true, nil
}

func (s *stateRepoStub) last() (models.ControllerState, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.saved) == 0 {
		return models.ControllerState{}, 0
	}
	return s.saved[len(s.saved)-1], len(s.saved)
}

type testNode struct {
	node    *Node
	clock   *clock.TimeSource
	sensor  *sensor.FakeTransport
	motor   *fan.FakeMotor
	journal *activity.Log
	tracker *status.Tracker
	pub     *mqtt.FakePublisher
	history *historyStub
	state   *stateRepoStub
	csvPath string
	buttons *buttons.Fake
	panel   *display.FakePanel
}

func officeSchedule(t *testing.T) config.Schedule {
	t.Helper()
	week := map[string]config.WindowConfig{}
	for _, d := range []string{"monday", "tuesday", "wednesday", "thursday", "friday"} {
		week[d] = config.WindowConfig{Start: "08:00", End: "17:00"}
	}
	s, err := config.ScheduleConfig{
		Timezone:      "UTC",
		BusinessHours: week,
		NightMode:     config.WindowConfig{Start: "23:00", End: "07:00"},
	}.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return s
}

func newTestNode(t *testing.T, at time.Time, celsius float64) *testNode {
	t.Helper()
	tn := &testNode{
		sensor:  sensor.NewFakeTransport("tmp117", false),
		motor:   &fan.FakeMotor{},
		pub:     mqtt.NewFakePublisher(),
		history: &historyStub{},
		state:   &stateRepoStub{},
		csvPath: filepath.Join(t.TempDir(), "sensor_log.csv"),
		buttons: buttons.NewFake(10 * time.Millisecond),
		panel:   &display.FakePanel{},
	}
	t.Cleanup(func() { _ = tn.buttons.Close() })
	tn.sensor.SetCelsius(celsius)

	mono := &clock.ManualMonotonic{}
	ext := &clock.FakeExternal{Time: at}
	var journal activity.Journal
	tn.clock = clock.New(at, ext, mono.Func(), journalFunc(func(c models.Category, m string) { journal.Append(c, m) }), clock.Options{}, nil)
	tn.journal = activity.New(activity.Options{MaxBytes: 100 * 1024, MaxEntries: 1000}, nil, tn.clock.Now, nil)
	journal = tn.journal

	sched := officeSchedule(t)
	tn.tracker = status.NewTracker(fan_controller.NodeState{})
	cache := sensor.NewCache([]sensor.Transport{tn.sensor}, 30*time.Second, 200*time.Millisecond, tn.journal, nil)
	eng := engine.New(engine.Settings{
		Schedule: sched,
		Overrides: config.Overrides{
			TempThresholdF:           80,
			TempOverrideMinSpeed:     90,
			HumidityThresholdPct:     43,
			HumidityOverrideMinSpeed: 80,
		},
		InitialSpeed: 65,
	}, tn.journal, nil)

	tn.node = NewNode(NodeDeps{
		Clock:       tn.clock,
		Sensors:     cache,
		Engine:      eng,
		Fan:         fan.NewController(tn.motor, tn.clock.Now, tn.journal, nil),
		Buttons:     tn.buttons,
		Display:     display.NewRenderer(tn.panel, sched, []string{"tmp117"}, tn.journal, nil),
		Tracker:     tn.tracker,
		MQTT:        tn.pub,
		Journal:     tn.journal,
		CSV:         measurement.NewWriter(tn.csvPath, measurement.Header([]string{"tmp117"})),
		History:     tn.history,
		State:       tn.state,
		SensorNames: []string{"tmp117"},
	}, NodeIntervals{FastLoop: 5 * time.Millisecond, SensorPoll: 20 * time.Millisecond, LogInterval: time.Minute}, nil)
	return tn
}

// journalFunc lets the clock journal into a log built after it.
type journalFunc func(models.Category, string)

func (f journalFunc) Append(c models.Category, m string) { f(c, m) }

func (tn *testNode) hasEntry(cat models.Category, substr string) bool {
	for _, e := range tn.journal.Entries() {
		if e.Category == cat && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func TestNode_TemperatureOverrideDuringBusinessHours(t *testing.T) {
	tue := time.Date(2024, 1, 2, 14, 35, 0, 0, time.UTC)
	tn := newTestNode(t, tue, 28) // 82.4F
	ctx := context.Background()

	tn.node.Boot(ctx)
	tn.node.tickSlow(ctx)

	st := tn.node.Snapshot()
	if st.Mode != models.ModeTempOverride || !st.Running || st.SpeedPercent < 90 {
		t.Fatalf("expected temperature override at >= 90%%, got %+v", st)
	}
	if tn.motor.Current() != 90 {
		t.Fatalf("motor at %d%%, want 90%%", tn.motor.Current())
	}
	if st.TemperatureF == nil || *st.TemperatureF < 82.3 || *st.TemperatureF > 82.5 {
		t.Fatalf("temperature: %v", st.TemperatureF)
	}
	if !st.Clock.ExternalSynced {
		t.Fatalf("clock should be synced at boot: %+v", st.Clock)
	}

	for _, want := range []struct {
		cat    models.Category
		substr string
	}{
		{models.CategorySystem, "starting"},
		{models.CategorySystem, "Sensors: tmp117 OK"},
		{models.CategorySystem, "Clock: external RTC synced"},
		{models.CategoryRTCSync, "synced"},
		{models.CategoryOverride, "Temperature (82.4F) detected. Forcing min speed 90%."},
		{models.CategoryRun, "Motor started at 90%."},
	} {
		if !tn.hasEntry(want.cat, want.substr) {
			t.Fatalf("missing %s entry %q in %+v", want.cat, want.substr, tn.journal.Entries())
		}
	}

	if tn.pub.StateCount() != 1 {
		t.Fatalf("state should be published once on change, got %d", tn.pub.StateCount())
	}
	if len(tn.history.rows) != 1 || tn.history.rows[0].Mode != models.ModeTempOverride {
		t.Fatalf("measurement history: %+v", tn.history.rows)
	}
	data, err := os.ReadFile(tn.csvPath)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(string(data)), "\n"); len(lines) != 2 ||
		lines[0] != "timestamp,tmp117_f,humidity,fan_speed,mode,status" ||
		!strings.HasSuffix(lines[1], ",82.40,N/A,90,TEMP_OVERRIDE,TMP117_OK") {
		t.Fatalf("csv content:\n%s", data)
	}
	if saved, n := tn.state.last(); n != 1 || saved.FanSpeed != 90 {
		t.Fatalf("persisted state: %+v (saves=%d)", saved, n)
	}
}

func TestNode_AfterHoursStopsTheFan(t *testing.T) {
	tue := time.Date(2024, 1, 2, 17, 22, 0, 0, time.UTC)
	tn := newTestNode(t, tue, 23.9) // 75.0F
	ctx := context.Background()

	tn.node.Boot(ctx)
	tn.node.tickSlow(ctx)

	st := tn.node.Snapshot()
	if st.Mode != models.ModeAfterHours || st.Running || st.SpeedPercent != 0 {
		t.Fatalf("expected after hours and stopped, got %+v", st)
	}
	if tn.motor.Stops != 1 || tn.motor.Current() != 0 {
		t.Fatalf("motor should be stopped once, stops=%d current=%d", tn.motor.Stops, tn.motor.Current())
	}
	want := time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC)
	if st.NextStart == nil || !st.NextStart.Equal(want) {
		t.Fatalf("next start: %v, want %v", st.NextStart, want)
	}
	if !tn.hasEntry(models.CategoryAfterHours, "Business day ended at 17:22. Resuming at 08:00 on WE") {
		t.Fatalf("missing AFTER HOURS entry: %+v", tn.journal.Entries())
	}
}

func TestNode_IdenticalTicksDoNotDuplicate(t *testing.T) {
	tue := time.Date(2024, 1, 2, 14, 35, 0, 0, time.UTC)
	tn := newTestNode(t, tue, 28)
	ctx := context.Background()

	tn.node.Boot(ctx)
	tn.node.tickSlow(ctx)
	_, entries := tn.journal.Usage()
	states := tn.pub.StateCount()
	_, saves := tn.state.last()

	tn.node.tickSlow(ctx)
	tn.node.tickSlow(ctx)

	if _, n := tn.journal.Usage(); n != entries {
		t.Fatalf("journal grew from %d to %d on identical ticks", entries, n)
	}
	if tn.pub.StateCount() != states {
		t.Fatalf("state republished without change")
	}
	if _, n := tn.state.last(); n != saves {
		t.Fatalf("state re-saved without change")
	}
	if len(tn.history.rows) != 1 {
		t.Fatalf("measurement logged before log interval elapsed: %d rows", len(tn.history.rows))
	}
}

func TestNode_RestoresPersistedAutoSpeed(t *testing.T) {
	tue := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	tn := newTestNode(t, tue, 22)
	tn.state.load = &models.ControllerState{Mode: models.ModeAuto, AutoSpeed: 73, FanSpeed: 73, Running: true, UpdatedAt: tue.Add(-time.Hour)}

	tn.node.Boot(context.Background())

	st := tn.node.Snapshot()
	if st.Mode != models.ModeAuto || st.SpeedPercent != 73 {
		t.Fatalf("expected auto at the restored 73%%, got %+v", st)
	}
	if !tn.hasEntry(models.CategorySystem, "Last state: AUTO at 73%") {
		t.Fatalf("missing last-state banner: %+v", tn.journal.Entries())
	}
}

func TestNode_RemoteCommandsAndButtons(t *testing.T) {
	tue := time.Date(2024, 1, 2, 14, 35, 0, 0, time.UTC)
	tn := newTestNode(t, tue, 22) // 71.6F, no override

	if _, err := tn.node.Submit(context.Background(), engine.Command{Kind: engine.CmdIncrease}); !errors.Is(err, ErrNodeStopped) {
		t.Fatalf("Submit before Run: %v", err)
	}

	tn.node.Boot(context.Background())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tn.node.Run(ctx)
		close(done)
	}()

	reqCtx, reqCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer reqCancel()

	st, err := tn.node.Submit(reqCtx, engine.Command{Kind: engine.CmdSet, Speed: 40})
	if err != nil || st.Mode != models.ModeManual || st.SpeedPercent != 40 {
		t.Fatalf("set speed: %+v, %v", st, err)
	}

	// A single press steps up from 40 (step 5 in the 40-59 band).
	tn.buttons.Push(buttons.Increase)
	deadline := time.Now().Add(2 * time.Second)
	for tn.node.Snapshot().SpeedPercent != 45 {
		if time.Now().After(deadline) {
			t.Fatalf("button press not applied: %+v", tn.node.Snapshot())
		}
		time.Sleep(5 * time.Millisecond)
	}

	st, err = tn.node.Submit(reqCtx, engine.Command{Kind: engine.CmdRelease})
	if err != nil || st.Mode != models.ModeAuto || st.AutoSpeed != 45 || st.ManualSpeed != nil {
		t.Fatalf("release: %+v, %v", st, err)
	}
	if !tn.hasEntry(models.CategoryManual, "Manual mode disabled. Returning to Auto at 45%.") {
		t.Fatalf("missing MANUAL release entry: %+v", tn.journal.Entries())
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if _, err := tn.node.Submit(context.Background(), engine.Command{Kind: engine.CmdIncrease}); !errors.Is(err, ErrNodeStopped) {
		t.Fatalf("Submit after stop: %v", err)
	}
	if saved, n := tn.state.last(); n == 0 || saved.AutoSpeed != 45 || saved.ManualSpeed != nil {
		t.Fatalf("final state not persisted: %+v", saved)
	}
	if len(tn.panel.Frames) == 0 {
		t.Fatalf("display never rendered")
	}
}

func TestNode_ScheduledJobs(t *testing.T) {
	tue := time.Date(2024, 1, 2, 14, 35, 0, 0, time.UTC)
	tn := newTestNode(t, tue, 22)
	ctx := context.Background()
	tn.node.Boot(ctx)

	if err := tn.node.PurgeHistory(30 * 24 * time.Hour)(ctx); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if want := tue.Add(-30 * 24 * time.Hour); !tn.history.purged.Equal(want) {
		t.Fatalf("purge cutoff %v, want %v", tn.history.purged, want)
	}

	// Synced at boot, so the next resync is not due for an hour.
	if err := tn.node.ResyncClock(ctx); err != nil {
		t.Fatalf("resync: %v", err)
	}
}
