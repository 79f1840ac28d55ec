package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"fan_controller"
	"fan_controller/internal/activity"
	"fan_controller/internal/buttons"
	"fan_controller/internal/clock"
	"fan_controller/internal/display"
	"fan_controller/internal/engine"
	"fan_controller/internal/fan"
	"fan_controller/internal/logger"
	"fan_controller/internal/measurement"
	"fan_controller/internal/metrics"
	"fan_controller/internal/models"
	"fan_controller/internal/mqtt"
	"fan_controller/internal/repository"
	"fan_controller/internal/sensor"
	"fan_controller/internal/status"
)

// commandQueue bounds remote commands waiting for the fast loop.
const commandQueue = 16

var (
	ErrNodeBusy    = errors.New("command queue full")
	ErrNodeStopped = errors.New("node is not running")
)

var allModes = []string{
	string(models.ModeManual),
	string(models.ModeTempOverride),
	string(models.ModeHumidityOverride),
	string(models.ModeAfterHours),
	string(models.ModeWeekend),
	string(models.ModeAuto),
}

// FanFeedback receives the applied fan speed. The sensor simulator uses it
// to model the cooling effect of the fan.
type FanFeedback interface {
	SetFanSpeed(pct int)
}

// NodeDeps are the components the node loops drive.
type NodeDeps struct {
	Clock    *clock.TimeSource
	Sensors  *sensor.Cache
	Engine   *engine.Engine
	Fan      *fan.Controller
	Buttons  buttons.Source
	Display  *display.Renderer
	Tracker  *status.Tracker
	MQTT     mqtt.Publisher
	Journal  activity.Journal
	CSV      *measurement.Writer
	History  repository.MeasurementRepo
	State    repository.StateRepo
	Feedback []FanFeedback

	// SensorNames are the temperature sensors in column order.
	SensorNames []string
}

type NodeIntervals struct {
	FastLoop    time.Duration
	SensorPoll  time.Duration
	LogInterval time.Duration
}

type request struct {
	cmd   engine.Command
	reply chan fan_controller.NodeState
}

// Node runs the fast (buttons, display) and slow (sensors, decision,
// publishing) control loops.
type Node struct {
	deps NodeDeps
	iv   NodeIntervals
	log  *logger.Logger

	// step serializes evaluate+apply between the two loops.
	step     sync.Mutex
	requests chan request
	running  chan struct{}
	done     chan struct{}

	startedAt time.Time
	lastLog   time.Time
	lastSaved models.ControllerState
}

func NewNode(deps NodeDeps, iv NodeIntervals, log *logger.Logger) *Node {
	if log == nil {
		log = logger.Nop()
	}
	if deps.MQTT == nil {
		deps.MQTT = mqtt.Nop{}
	}
	if deps.Buttons == nil {
		deps.Buttons = buttons.NewNone()
	}
	return &Node{
		deps:     deps,
		iv:       iv,
		log:      log,
		requests: make(chan request, commandQueue),
		running:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Boot restores persisted state, takes the first readings and writes the
// startup banner. It does not start the loops.
func (n *Node) Boot(ctx context.Context) {
	d := n.deps
	if d.Clock.HasExternal() {
		if err := d.Clock.Resync(ctx); err != nil {
			n.log.Warnw("boot_clock_sync_failed", "err", err)
		}
		n.observeClock(nil)
	}
	now := d.Clock.Now()
	n.startedAt = now

	n.journal(models.CategorySystem, "Fan controller starting.")

	if d.State != nil {
		saved, ok, err := d.State.Load(ctx)
		switch {
		case err != nil:
			n.log.Errorw("load_fan_state_failed", "err", err)
		case ok:
			d.Engine.Restore(saved.AutoSpeed)
			n.lastSaved = saved
			n.journal(models.CategorySystem, fmt.Sprintf("Last state: %s at %d%% (%s). Auto speed %d%%.",
				saved.Mode, saved.FanSpeed, saved.UpdatedAt.Format(models.LogTimeLayout), saved.AutoSpeed))
		}
	}

	snap := d.Sensors.Refresh(ctx, now)
	n.journal(models.CategorySystem, "Sensors: "+sensorSummary(d.Sensors.Transports(), snap))
	n.journal(models.CategorySystem, "Clock: "+clockSummary(d.Clock.State(), d.Clock.HasExternal()))

	n.step.Lock()
	n.evaluate(now, snap, nil)
	n.step.Unlock()
}

// Run drives both loops until ctx is cancelled, then persists the final state.
func (n *Node) Run(ctx context.Context) {
	close(n.running)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		n.runFast(ctx)
	}()
	go func() {
		defer wg.Done()
		n.runSlow(ctx)
	}()
	wg.Wait()
	close(n.done)

	// ctx is done; give the final write its own deadline.
	saveCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	n.persist(saveCtx, n.deps.Tracker.Snapshot(), true)
	n.log.Infow("node_stopped")
}

func (n *Node) runFast(ctx context.Context) {
	t := time.NewTicker(n.iv.FastLoop)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n.tickFast()
		}
	}
}

func (n *Node) runSlow(ctx context.Context) {
	t := time.NewTicker(n.iv.SensorPoll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n.tickSlow(ctx)
		}
	}
}

// tickFast handles pending presses and remote commands against the last
// sensor snapshot and refreshes the display. It never touches a transport.
func (n *Node) tickFast() {
	d := n.deps
	cmds, replies := n.drain()
	if len(cmds) > 0 {
		now := d.Clock.Now()
		n.step.Lock()
		st := n.evaluate(now, d.Sensors.Snapshot(), cmds)
		n.step.Unlock()
		for _, r := range replies {
			r <- st
		}
	}
	if d.Display != nil {
		d.Display.Render(d.Clock.Now(), d.Tracker.Snapshot())
	}
}

// tickSlow polls the sensors, re-evaluates, publishes and logs a
// measurement row when one is due.
func (n *Node) tickSlow(ctx context.Context) {
	d := n.deps
	snap := d.Sensors.Refresh(ctx, d.Clock.Now())

	now := d.Clock.Now()
	n.step.Lock()
	st := n.evaluate(now, snap, nil)
	n.step.Unlock()

	n.persist(ctx, st, false)
	if n.lastLog.IsZero() || now.Sub(n.lastLog) >= n.iv.LogInterval {
		n.lastLog = now
		n.logMeasurement(ctx, now, snap, st)
	}
}

func (n *Node) drain() ([]engine.Command, []chan fan_controller.NodeState) {
	var (
		cmds    []engine.Command
		replies []chan fan_controller.NodeState
	)
	for {
		select {
		case ev := <-n.deps.Buttons.Events():
			if cmd, ok := commandFor(ev); ok {
				cmds = append(cmds, cmd)
			}
		case r := <-n.requests:
			cmds = append(cmds, r.cmd)
			if r.reply != nil {
				replies = append(replies, r.reply)
			}
		default:
			return cmds, replies
		}
	}
}

func commandFor(ev buttons.Event) (engine.Command, bool) {
	switch ev {
	case buttons.Increase:
		return engine.Command{Kind: engine.CmdIncrease}, true
	case buttons.Decrease:
		return engine.Command{Kind: engine.CmdDecrease}, true
	case buttons.Release:
		return engine.Command{Kind: engine.CmdRelease}, true
	}
	return engine.Command{}, false
}

// evaluate runs one decision, applies it to the fan and publishes the
// resulting node state. Callers hold n.step.
func (n *Node) evaluate(now time.Time, snap models.SensorSnapshot, cmds []engine.Command) fan_controller.NodeState {
	d := n.deps
	dec := d.Engine.Evaluate(engine.Inputs{Now: now, Sensors: snap, Commands: cmds})
	fs := d.Fan.Apply(dec.SpeedPercent, dec.Floor)
	for _, fb := range d.Feedback {
		fb.SetFanSpeed(fs.CurrentSpeed)
	}
	metrics.SetMode(string(dec.Mode), allModes)

	st := n.buildState(now, snap, dec, fs)
	if d.Tracker.Publish(st) {
		if err := d.MQTT.PublishState(st); err != nil {
			n.log.Warnw("mqtt_publish_state_failed", "err", err)
		}
	}
	return st
}

func (n *Node) buildState(now time.Time, snap models.SensorSnapshot, dec models.RunDecision, fs models.FanState) fan_controller.NodeState {
	d := n.deps
	es := d.Engine.State()
	st := fan_controller.NodeState{
		Mode:         dec.Mode,
		Running:      dec.Running,
		SpeedPercent: fs.CurrentSpeed,
		Floor:        dec.Floor,
		Reason:       dec.Reason,
		AutoSpeed:    es.AutoSpeed,
		ManualSpeed:  es.ManualSpeed,
		Fan:          fs,
		Clock:        d.Clock.State(),
		StartedAt:    n.startedAt,
		UpdatedAt:    now,
	}
	if v, ok := snap.Average(models.QuantityTemperature); ok {
		st.TemperatureF = &v
	}
	if v, ok := snap.Average(models.QuantityHumidity); ok {
		st.HumidityPct = &v
	}
	for _, id := range snap.IDs() {
		rs := snap.Channels[id]
		cv := fan_controller.ChannelView{ID: id, State: rs.State}
		if rs.Available() {
			v := rs.Reading.Value
			cv.Value = &v
			cv.AgeSeconds = rs.Age.Seconds()
		}
		st.Channels = append(st.Channels, cv)
	}
	if !dec.Running {
		if next, ok := d.Engine.NextStart(now); ok {
			st.NextStart = &next
		}
	}
	if d.Display != nil {
		st.NightMode = d.Display.NightMode()
	}
	return st
}

// persist saves the controller state when it changed since the last save.
func (n *Node) persist(ctx context.Context, st fan_controller.NodeState, force bool) {
	if n.deps.State == nil {
		return
	}
	cs := models.ControllerState{
		Mode:        st.Mode,
		AutoSpeed:   st.AutoSpeed,
		ManualSpeed: st.ManualSpeed,
		FanSpeed:    st.SpeedPercent,
		Running:     st.Running,
		UpdatedAt:   st.UpdatedAt,
	}
	if !force && sameControllerState(cs, n.lastSaved) {
		return
	}
	if err := n.deps.State.Save(ctx, cs); err != nil {
		n.log.Errorw("save_fan_state_failed", "err", err)
		return
	}
	n.lastSaved = cs
}

func sameControllerState(a, b models.ControllerState) bool {
	if a.Mode != b.Mode || a.AutoSpeed != b.AutoSpeed || a.FanSpeed != b.FanSpeed || a.Running != b.Running {
		return false
	}
	if (a.ManualSpeed == nil) != (b.ManualSpeed == nil) {
		return false
	}
	return a.ManualSpeed == nil || *a.ManualSpeed == *b.ManualSpeed
}

// logMeasurement writes one row to the CSV file and the history table.
// Failures are logged; the loop goes on.
func (n *Node) logMeasurement(ctx context.Context, now time.Time, snap models.SensorSnapshot, st fan_controller.NodeState) {
	d := n.deps
	dec := models.RunDecision{Mode: st.Mode, SpeedPercent: st.SpeedPercent, Running: st.Running}
	m := measurement.Build(now, d.SensorNames, snap, dec, st.Fan)
	if d.CSV != nil {
		if err := d.CSV.AppendRow(now, measurement.Fields(m)); err != nil {
			n.log.Errorw("measurement_csv_failed", "err", err)
		}
	}
	if d.History != nil {
		if err := d.History.Append(ctx, m); err != nil {
			n.log.Errorw("measurement_store_failed", "err", err)
		}
	}
}

// Submit queues a remote command for the fast loop and waits for the state
// it produced.
func (n *Node) Submit(ctx context.Context, cmd engine.Command) (fan_controller.NodeState, error) {
	select {
	case <-n.running:
	default:
		return fan_controller.NodeState{}, ErrNodeStopped
	}
	reply := make(chan fan_controller.NodeState, 1)
	select {
	case n.requests <- request{cmd: cmd, reply: reply}:
	default:
		return fan_controller.NodeState{}, ErrNodeBusy
	}
	select {
	case st := <-reply:
		return st, nil
	case <-n.done:
		return fan_controller.NodeState{}, ErrNodeStopped
	case <-ctx.Done():
		return fan_controller.NodeState{}, ctx.Err()
	}
}

// Snapshot returns the last published node state.
func (n *Node) Snapshot() fan_controller.NodeState {
	return n.deps.Tracker.Snapshot()
}

// ResyncClock is the scheduled RTC job: it resyncs only when due.
func (n *Node) ResyncClock(ctx context.Context) error {
	synced, err := n.deps.Clock.ResyncIfDue(ctx)
	if synced || err != nil {
		n.observeClock(err)
	}
	return err
}

func (n *Node) observeClock(err error) {
	metrics.ObserveClockSync(err, n.deps.Clock.State().LastDrift)
}

// PurgeHistory is the scheduled retention job.
func (n *Node) PurgeHistory(retention time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if n.deps.History == nil || retention <= 0 {
			return nil
		}
		removed, err := n.deps.History.Purge(ctx, n.deps.Clock.Now().Add(-retention))
		if err != nil {
			return err
		}
		if removed > 0 {
			n.log.Infow("measurements_purged", "rows", removed, "retention", retention)
		}
		return nil
	}
}

func (n *Node) journal(cat models.Category, msg string) {
	if n.deps.Journal != nil {
		n.deps.Journal.Append(cat, msg)
	}
}

func sensorSummary(names []string, snap models.SensorSnapshot) string {
	parts := make([]string, 0, len(names))
	for _, name := range names {
		state := "OK"
		seen := false
		for _, id := range snap.IDs() {
			if !strings.HasPrefix(string(id), name+".") {
				continue
			}
			seen = true
			if !snap.Channels[id].Available() {
				state = "LOST"
			}
		}
		if !seen {
			state = "LOST"
		}
		parts = append(parts, name+" "+state)
	}
	return strings.Join(parts, ", ")
}

func clockSummary(cs models.ClockState, hasExternal bool) string {
	switch {
	case !hasExternal:
		return "internal (no external RTC)"
	case cs.DriftSource == models.ExtSynced:
		return "external RTC synced"
	default:
		return "internal (external RTC unavailable)"
	}
}
