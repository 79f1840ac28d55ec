package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const envPrefix = "FANCTL"

// Config is the full node configuration. It is loaded once at startup and
// never changed afterwards.
type Config struct {
	Port         string             `mapstructure:"port"`
	Log          LogConfig          `mapstructure:"log"`
	DB           DBConfig           `mapstructure:"db"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Schedule     ScheduleConfig     `mapstructure:"schedule"`
	Overrides    Overrides          `mapstructure:"overrides"`
	Fan          FanConfig          `mapstructure:"fan"`
	Buttons      ButtonsConfig      `mapstructure:"buttons"`
	Sensors      []SensorConfig     `mapstructure:"sensors" validate:"min=1,dive"`
	Clock        ClockConfig        `mapstructure:"clock"`
	Intervals    Intervals          `mapstructure:"intervals"`
	Activity     ActivityConfig     `mapstructure:"activity"`
	Measurements MeasurementsConfig `mapstructure:"measurements"`
	MQTT         MQTTConfig         `mapstructure:"mqtt"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
}

type DBConfig struct {
	Path      string        `mapstructure:"path" validate:"required"`
	Retention time.Duration `mapstructure:"retention" validate:"gte=0"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key" validate:"required,min=8"`
	TokenTTL   time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
}

// ScheduleConfig is the raw schedule as written in the config file.
// Weekdays missing from BusinessHours are not business days.
type ScheduleConfig struct {
	Timezone      string                  `mapstructure:"timezone"`
	BusinessHours map[string]WindowConfig `mapstructure:"business_hours" validate:"dive"`
	NightMode     WindowConfig            `mapstructure:"night_mode"`
}

type WindowConfig struct {
	Start string `mapstructure:"start" validate:"required"`
	End   string `mapstructure:"end" validate:"required"`
}

type Overrides struct {
	TempThresholdF           float64 `mapstructure:"temp_threshold_f" validate:"gt=-58,lt=212"`
	TempOverrideMinSpeed     int     `mapstructure:"temp_override_min_speed" validate:"min=20,max=100"`
	HumidityThresholdPct     float64 `mapstructure:"humidity_threshold_pct" validate:"gt=0,lte=100"`
	HumidityOverrideMinSpeed int     `mapstructure:"humidity_override_min_speed" validate:"min=20,max=100"`
}

type FanConfig struct {
	InitialSpeed int           `mapstructure:"initial_speed" validate:"min=20,max=100"`
	Driver       string        `mapstructure:"driver" validate:"oneof=gpio sim"`
	GPIOChip     string        `mapstructure:"gpio_chip"`
	EnableLine   int           `mapstructure:"enable_line" validate:"gte=0"`
	PWMChip      int           `mapstructure:"pwm_chip" validate:"gte=0"`
	PWMChannel   int           `mapstructure:"pwm_channel" validate:"gte=0"`
	PWMPeriod    time.Duration `mapstructure:"pwm_period" validate:"gt=0"`
}

type ButtonsConfig struct {
	Driver       string        `mapstructure:"driver" validate:"oneof=gpio none"`
	GPIOChip     string        `mapstructure:"gpio_chip"`
	IncreaseLine int           `mapstructure:"increase_line" validate:"gte=0"`
	DecreaseLine int           `mapstructure:"decrease_line" validate:"gte=0"`
	Debounce     time.Duration `mapstructure:"debounce" validate:"gte=0"`
}

type SensorConfig struct {
	Name            string  `mapstructure:"name" validate:"required,alphanum"`
	Driver          string  `mapstructure:"driver" validate:"oneof=hwmon sim"`
	TemperaturePath string  `mapstructure:"temperature_path"`
	HumidityPath    string  `mapstructure:"humidity_path"`
	Scale           float64 `mapstructure:"scale" validate:"gte=0"`
	Humidity        bool    `mapstructure:"humidity"` // sim driver only
}

// Channels reports which quantities the sensor provides.
func (s SensorConfig) Channels() (temperature, humidity bool) {
	if s.Driver == "sim" {
		return true, s.Humidity
	}
	return s.TemperaturePath != "", s.HumidityPath != ""
}

type ClockConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=rtc none"`
	Device string `mapstructure:"device"`
}

type Intervals struct {
	FastLoop         time.Duration `mapstructure:"fast_loop" validate:"gt=0"`
	SensorPoll       time.Duration `mapstructure:"sensor_poll" validate:"gt=0"`
	LogInterval      time.Duration `mapstructure:"log_interval" validate:"gt=0"`
	RTCSync          time.Duration `mapstructure:"rtc_sync" validate:"gt=0"`
	RTCRetry         time.Duration `mapstructure:"rtc_retry" validate:"gt=0"`
	StaleTimeout     time.Duration `mapstructure:"stale_timeout" validate:"gt=0"`
	TransportTimeout time.Duration `mapstructure:"transport_timeout" validate:"gt=0"`
}

type ActivityConfig struct {
	Path       string `mapstructure:"path" validate:"required"`
	MaxBytes   int    `mapstructure:"max_bytes" validate:"min=1024"`
	MaxEntries int    `mapstructure:"max_entries" validate:"min=10"`
}

type MeasurementsConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
	Topic    string `mapstructure:"topic"`
}

// ConfigurationError reports an invalid or unreadable configuration.
// It is the only error class that stops the node.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Load reads the config file at path (or configs/config.yml when path is
// empty), applies FANCTL_* environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &ConfigurationError{Field: "file", Reason: err.Error()}
		}
	}
	// Defaults for the week only apply when the file has no schedule at all,
	// otherwise a day could not be removed by leaving it out.
	if !v.IsSet("schedule.business_hours") {
		v.SetDefault("schedule.business_hours", defaultBusinessHours())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigurationError{Field: "decode", Reason: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints and the schedule semantics.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ConfigurationError{
				Field:  fe.Namespace(),
				Reason: fmt.Sprintf("failed %q (%s) with value %v", fe.Tag(), fe.Param(), fe.Value()),
			}
		}
		return &ConfigurationError{Field: "config", Reason: err.Error()}
	}
	if _, err := c.Schedule.Parse(); err != nil {
		return err
	}
	if c.Intervals.FastLoop >= c.Intervals.SensorPoll {
		return &ConfigurationError{Field: "intervals.fast_loop", Reason: "must be shorter than intervals.sensor_poll"}
	}
	if c.Intervals.RTCRetry > c.Intervals.RTCSync {
		return &ConfigurationError{Field: "intervals.rtc_retry", Reason: "must not exceed intervals.rtc_sync"}
	}
	if c.Buttons.Driver == "gpio" && c.Buttons.IncreaseLine == c.Buttons.DecreaseLine {
		return &ConfigurationError{Field: "buttons", Reason: "increase and decrease lines must differ"}
	}
	seen := make(map[string]bool, len(c.Sensors))
	for i, s := range c.Sensors {
		field := fmt.Sprintf("sensors[%d]", i)
		if seen[s.Name] {
			return &ConfigurationError{Field: field + ".name", Reason: "duplicate sensor " + s.Name}
		}
		seen[s.Name] = true
		if s.Driver == "hwmon" && s.TemperaturePath == "" && s.HumidityPath == "" {
			return &ConfigurationError{Field: field, Reason: "hwmon sensor needs temperature_path or humidity_path"}
		}
	}
	return nil
}

// TemperatureSensors returns the names of sensors with a temperature channel, in config order.
func (c *Config) TemperatureSensors() []string {
	var out []string
	for _, s := range c.Sensors {
		if temp, _ := s.Channels(); temp {
			out = append(out, s.Name)
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 5)
	v.SetDefault("log.max_backups", 3)

	v.SetDefault("db.path", "fan_controller.db")
	v.SetDefault("db.retention", 30*24*time.Hour)

	v.SetDefault("auth.signing_key", "change-me-please")
	v.SetDefault("auth.token_ttl", time.Hour)

	v.SetDefault("schedule.timezone", "Local")
	v.SetDefault("schedule.night_mode.start", "23:00")
	v.SetDefault("schedule.night_mode.end", "07:00")

	v.SetDefault("overrides.temp_threshold_f", 78.0)
	v.SetDefault("overrides.temp_override_min_speed", 90)
	v.SetDefault("overrides.humidity_threshold_pct", 43.0)
	v.SetDefault("overrides.humidity_override_min_speed", 80)

	v.SetDefault("fan.initial_speed", 65)
	v.SetDefault("fan.driver", "sim")
	v.SetDefault("fan.gpio_chip", "gpiochip0")
	v.SetDefault("fan.enable_line", 17)
	v.SetDefault("fan.pwm_period", time.Millisecond) // 1 kHz

	v.SetDefault("buttons.driver", "none")
	v.SetDefault("buttons.gpio_chip", "gpiochip0")
	v.SetDefault("buttons.increase_line", 20)
	v.SetDefault("buttons.decrease_line", 21)
	v.SetDefault("buttons.debounce", 200*time.Millisecond)

	v.SetDefault("sensors", []map[string]any{
		{"name": "tmp117", "driver": "sim"},
		{"name": "shtc3", "driver": "sim", "humidity": true},
	})

	v.SetDefault("clock.driver", "none")
	v.SetDefault("clock.device", "/dev/rtc0")

	v.SetDefault("intervals.fast_loop", 100*time.Millisecond)
	v.SetDefault("intervals.sensor_poll", time.Second)
	v.SetDefault("intervals.log_interval", time.Minute)
	v.SetDefault("intervals.rtc_sync", time.Hour)
	v.SetDefault("intervals.rtc_retry", 30*time.Second)
	v.SetDefault("intervals.stale_timeout", 30*time.Second)
	v.SetDefault("intervals.transport_timeout", 500*time.Millisecond)

	v.SetDefault("activity.path", "activity.log")
	v.SetDefault("activity.max_bytes", 100*1024)
	v.SetDefault("activity.max_entries", 1000)

	v.SetDefault("measurements.path", "sensor_log.csv")

	v.SetDefault("mqtt.client_id", "fan-controller")
	v.SetDefault("mqtt.topic", "fan_controller")
}

func defaultBusinessHours() map[string]any {
	week := make(map[string]any, 5)
	for _, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday"} {
		week[day] = map[string]any{"start": "08:00", "end": "17:22"}
	}
	return week
}
