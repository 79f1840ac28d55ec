package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "fanctl_"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	channelValue     *prometheus.GaugeVec
	channelAvailable *prometheus.GaugeVec
	sensorFailures   *prometheus.CounterVec
	sensorLatency    *prometheus.HistogramVec

	fanSpeed   prometheus.Gauge
	fanRunning prometheus.Gauge
	runMode    *prometheus.GaugeVec

	clockSyncs   *prometheus.CounterVec
	clockDrift   prometheus.Gauge
	activityLog  *prometheus.CounterVec
	renderErrors prometheus.Counter
	mqttPublish  *prometheus.CounterVec
)

// Init registers the node metrics with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		channelValue = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "channel_value",
				Help: "Last served value per sensor channel (°F or %RH)",
			},
			[]string{"channel"},
		)
		channelAvailable = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "channel_state",
				Help: "Sensor channel state (1 for the current state label)",
			},
			[]string{"channel", "state"},
		)
		sensorFailures = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sensor_read_failures_total",
				Help: "Failed sensor transport reads by sensor",
			},
			[]string{"sensor"},
		)
		sensorLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "sensor_read_latency_seconds",
				Help:    "Sensor transport read latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"sensor", "result"},
		)

		fanSpeed = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "fan_speed_percent",
			Help: "Commanded fan speed in percent (0 when stopped)",
		})
		fanRunning = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "fan_running",
			Help: "1 when the fan is running",
		})
		runMode = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "run_mode",
				Help: "Active run mode (1 for the current mode label)",
			},
			[]string{"mode"},
		)

		clockSyncs = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "clock_sync_total",
				Help: "External clock sync attempts by result",
			},
			[]string{"result"},
		)
		clockDrift = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "clock_drift_seconds",
			Help: "Internal minus external clock at the last successful sync",
		})
		activityLog = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "activity_entries_total",
				Help: "Activity journal entries by category",
			},
			[]string{"category"},
		)
		renderErrors = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "display_render_errors_total",
			Help: "Display render failures",
		})
		mqttPublish = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "mqtt_publish_total",
				Help: "MQTT publishes by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			channelValue,
			channelAvailable,
			sensorFailures,
			sensorLatency,
			fanSpeed,
			fanRunning,
			runMode,
			clockSyncs,
			clockDrift,
			activityLog,
			renderErrors,
			mqttPublish,
		)
	})
}

var channelStates = []string{"FRESH", "CACHED", "UNAVAILABLE"}

// ObserveChannel records a channel's state and, when available, its value.
func ObserveChannel(channel, state string, value float64, available bool) {
	if channelAvailable != nil {
		for _, s := range channelStates {
			v := 0.0
			if s == state {
				v = 1
			}
			channelAvailable.WithLabelValues(channel, s).Set(v)
		}
	}
	if available && channelValue != nil {
		channelValue.WithLabelValues(channel).Set(value)
	}
}

// ObserveSensorRead records one transport read.
func ObserveSensorRead(sensor string, err error, duration time.Duration) {
	result := ResultSuccess
	if err != nil {
		result = ResultError
		if sensorFailures != nil {
			sensorFailures.WithLabelValues(sensor).Inc()
		}
	}
	if sensorLatency != nil {
		sensorLatency.WithLabelValues(sensor, result).Observe(duration.Seconds())
	}
}

// ObserveFan records the commanded fan state.
func ObserveFan(speed int, running bool) {
	if fanSpeed != nil {
		fanSpeed.Set(float64(speed))
	}
	if fanRunning != nil {
		v := 0.0
		if running {
			v = 1
		}
		fanRunning.Set(v)
	}
}

// SetMode marks mode as the active one among modes.
func SetMode(mode string, modes []string) {
	if runMode == nil {
		return
	}
	for _, m := range modes {
		v := 0.0
		if m == mode {
			v = 1
		}
		runMode.WithLabelValues(m).Set(v)
	}
}

// ObserveClockSync records a sync attempt and, on success, the measured drift.
func ObserveClockSync(err error, drift time.Duration) {
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	if clockSyncs != nil {
		clockSyncs.WithLabelValues(result).Inc()
	}
	if err == nil && clockDrift != nil {
		clockDrift.Set(drift.Seconds())
	}
}

func IncActivityEntry(category string) {
	if category == "" {
		category = "unknown"
	}
	if activityLog != nil {
		activityLog.WithLabelValues(category).Inc()
	}
}

func IncRenderError() {
	if renderErrors != nil {
		renderErrors.Inc()
	}
}

func IncMQTTPublish(result string) {
	if mqttPublish != nil {
		mqttPublish.WithLabelValues(result).Inc()
	}
}
