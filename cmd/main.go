// @title           Fan Controller API
// @version         1.0
// @description     Environmental fan node: state, activity log, measurements and remote manual control.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fan_controller"
	_ "fan_controller/docs"
	"fan_controller/internal/activity"
	"fan_controller/internal/buttons"
	"fan_controller/internal/clock"
	"fan_controller/internal/config"
	"fan_controller/internal/display"
	"fan_controller/internal/engine"
	"fan_controller/internal/fan"
	"fan_controller/internal/handlers"
	"fan_controller/internal/logger"
	"fan_controller/internal/measurement"
	"fan_controller/internal/metrics"
	"fan_controller/internal/models"
	"fan_controller/internal/mqtt"
	"fan_controller/internal/repository"
	"fan_controller/internal/repository/db"
	"fan_controller/internal/scheduler"
	"fan_controller/internal/sensor"
	"fan_controller/internal/server"
	"fan_controller/internal/service"
	"fan_controller/internal/status"
)

const (
	shutdownTimeout   = 10 * time.Second
	retentionInterval = time.Hour
)

// closer collects resources released on shutdown, last opened first.
type closer struct {
	fns []func() error
}

func (c *closer) add(fn func() error) { c.fns = append(c.fns, fn) }

func (c *closer) closeAll(log *logger.Logger) {
	for i := len(c.fns) - 1; i >= 0; i-- {
		if err := c.fns[i](); err != nil {
			log.Warnw("close_failed", "err", err)
		}
	}
}

func main() {
	configPath := flag.String("config", "", "path to config.yml (default configs/config.yml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Get(logger.ErrorLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Configure(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	defer func() { _ = log.Sync() }()

	metrics.Init()

	sched, err := cfg.Schedule.Parse()
	if err != nil {
		log.Fatalw("invalid schedule", "err", err)
	}

	var res closer
	defer res.closeAll(log)

	// The journal stamps entries from the time source, which in turn
	// journals its syncs.
	var ts *clock.TimeSource
	journal := activity.New(activity.Options{
		MaxBytes:   cfg.Activity.MaxBytes,
		MaxEntries: cfg.Activity.MaxEntries,
	}, activity.NewFileStore(cfg.Activity.Path, sched.Location), func() time.Time { return sched.Local(ts.Now()) }, log)
	if err := journal.Restore(); err != nil {
		log.Warnw("activity_restore_failed", "err", err)
	}

	ts = clock.New(time.Now(), openExternalClock(cfg.Clock), clock.ProcessMonotonic(), journal, clock.Options{
		SyncInterval:  cfg.Intervals.RTCSync,
		RetryInterval: cfg.Intervals.RTCRetry,
		Timeout:       cfg.Intervals.TransportTimeout,
	}, log)

	publisher := openPublisher(cfg.MQTT, log)
	res.add(publisher.Close)
	journal.Subscribe(func(e models.LogEntry) {
		metrics.IncActivityEntry(string(e.Category))
		if err := publisher.PublishActivity(e); err != nil {
			log.Debugw("mqtt_activity_dropped", "err", err)
		}
	})

	transports, feedback := openSensors(cfg.Sensors, log)
	cache := sensor.NewCache(transports, cfg.Intervals.StaleTimeout, cfg.Intervals.TransportTimeout, journal, log)

	motor := openMotor(cfg.Fan, log, &res)
	btns := openButtons(cfg.Buttons, log)
	res.add(btns.Close)

	sqlDB, err := openDB(cfg.DB.Path, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	res.add(sqlDB.Close)
	repos := repository.NewRepository(sqlDB)

	tempSensors := cfg.TemperatureSensors()
	eng := engine.New(engine.Settings{
		Schedule:     sched,
		Overrides:    cfg.Overrides,
		InitialSpeed: cfg.Fan.InitialSpeed,
	}, journal, log)

	node := service.NewNode(service.NodeDeps{
		Clock:       ts,
		Sensors:     cache,
		Engine:      eng,
		Fan:         fan.NewController(motor, ts.Now, journal, log),
		Buttons:     btns,
		Display:     display.NewRenderer(display.NewLogPanel(log), sched, tempSensors, journal, log),
		Tracker:     status.NewTracker(fan_controller.NodeState{}),
		MQTT:        publisher,
		Journal:     journal,
		CSV:         measurement.NewWriter(cfg.Measurements.Path, measurement.Header(tempSensors)),
		History:     repos.MeasurementRepo,
		State:       repos.StateRepo,
		Feedback:    feedback,
		SensorNames: tempSensors,
	}, service.NodeIntervals{
		FastLoop:    cfg.Intervals.FastLoop,
		SensorPoll:  cfg.Intervals.SensorPoll,
		LogInterval: cfg.Intervals.LogInterval,
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	node.Boot(ctx)
	nodeDone := make(chan struct{})
	go func() {
		defer close(nodeDone)
		node.Run(ctx)
	}()

	jobs := scheduler.New(log)
	if ts.HasExternal() {
		if err := jobs.Add("rtc_resync", cfg.Intervals.RTCRetry, node.ResyncClock); err != nil {
			log.Fatalw("schedule rtc resync", "err", err)
		}
	}
	if cfg.DB.Retention > 0 {
		if err := jobs.Add("measurement_retention", retentionInterval, node.PurgeHistory(cfg.DB.Retention)); err != nil {
			log.Fatalw("schedule retention", "err", err)
		}
	}
	jobs.Start()

	services := service.NewService(repos, node, journal, cfg.Auth)
	apiHandler := handlers.NewHandler(services, log)

	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, apiHandler, log)
	log.Infow("fan_controller_started", "port", cfg.Port, "sensors", cache.Transports(), "fan", cfg.Fan.Driver)

	waitForShutdown(cancel, srv, jobs, nodeDone, log)
}

func openExternalClock(cfg config.ClockConfig) clock.External {
	if cfg.Driver != "rtc" {
		return nil
	}
	return clock.NewRTCDevice(cfg.Device)
}

func openPublisher(cfg config.MQTTConfig, log *logger.Logger) mqtt.Publisher {
	if cfg.Broker == "" {
		return mqtt.Nop{}
	}
	p, err := mqtt.NewRealPublisher(cfg.Broker, cfg.ClientID, cfg.Topic, log)
	if err != nil {
		// The node runs without a broker; publishing is best effort.
		log.Warnw("mqtt_unavailable", "broker", cfg.Broker, "err", err)
		return mqtt.Nop{}
	}
	return p
}

func openSensors(cfgs []config.SensorConfig, log *logger.Logger) ([]sensor.Transport, []service.FanFeedback) {
	var (
		transports []sensor.Transport
		feedback   []service.FanFeedback
	)
	for i, sc := range cfgs {
		var t sensor.Transport
		switch sc.Driver {
		case "hwmon":
			t = sensor.NewHwmonTransport(sc.Name, sc.TemperaturePath, sc.HumidityPath, sc.Scale)
		default:
			sim := sensor.NewSimulator(sc.Name, sc.Humidity, time.Now().UnixNano()+int64(i), 0)
			feedback = append(feedback, sim)
			t = sim
		}
		transports = append(transports, sensor.NewGuarded(t, log))
	}
	return transports, feedback
}

func openMotor(cfg config.FanConfig, log *logger.Logger, res *closer) fan.Motor {
	if cfg.Driver != "gpio" {
		return &fan.FakeMotor{}
	}
	m, err := fan.NewGPIOMotor(cfg.GPIOChip, cfg.EnableLine, cfg.PWMChip, cfg.PWMChannel, cfg.PWMPeriod)
	if err != nil {
		log.Fatalw("failed to open fan outputs", "err", err)
	}
	res.add(m.Close)
	return m
}

func openButtons(cfg config.ButtonsConfig, log *logger.Logger) buttons.Source {
	if cfg.Driver != "gpio" {
		return buttons.NewNone()
	}
	src, err := buttons.NewGPIOSource(cfg.GPIOChip, cfg.IncreaseLine, cfg.DecreaseLine, cfg.Debounce, log)
	if err != nil {
		// Remote control still works without the panel buttons.
		log.Errorw("buttons_unavailable", "err", err)
		return buttons.NewNone()
	}
	return src
}

func openDB(path string, log *logger.Logger) (*sql.DB, error) {
	if path == "" {
		log.Infow("db.path not set in config; using default file", "default", "fan_controller.db")
		path = "fan_controller.db"
	}
	return db.InitDB(path)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown blocks until SIGINT/SIGTERM, then stops the API, the jobs
// and the control loops, in that order.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, jobs *scheduler.Scheduler, nodeDone <-chan struct{}, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down...")

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
	jobs.Stop()

	cancel()
	select {
	case <-nodeDone:
	case <-ctx.Done():
		log.Warnw("control loops did not stop in time")
	}
}
