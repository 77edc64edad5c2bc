// Package config provides configuration for the go-miniapp host.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/teslashibe/go-miniapp/pkg/gesture"
)

// Defaults.
const (
	DefaultPort           = "8080"
	DefaultStaticDir      = "./web"
	DefaultLogLevel       = "info"
	DefaultInitDataMaxAge = 24 * time.Hour
	DefaultTopicPrefix    = "miniapp"
	DefaultLogBufferSize  = 500
)

// Config is the full host configuration.
type Config struct {
	Server   ServerConfig   `toml:"server" json:"server" yaml:"server"`
	Log      LogConfig      `toml:"log" json:"log" yaml:"log"`
	Telegram TelegramConfig `toml:"telegram" json:"telegram" yaml:"telegram"`
	Shake    ShakeConfig    `toml:"shake" json:"shake" yaml:"shake"`
	MQTT     MQTTConfig     `toml:"mqtt" json:"mqtt" yaml:"mqtt"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port          string `toml:"port" json:"port" yaml:"port"`
	StaticDir     string `toml:"static_dir" json:"static_dir" yaml:"static_dir"`
	RequestLogger bool   `toml:"request_logger" json:"request_logger" yaml:"request_logger"`
}

// LogConfig controls logging and the in-page log viewer.
type LogConfig struct {
	Level      string `toml:"level" json:"level" yaml:"level"`
	BufferSize int    `toml:"buffer_size" json:"buffer_size" yaml:"buffer_size"`
}

// TelegramConfig controls initData validation.
type TelegramConfig struct {
	BotToken        string `toml:"bot_token" json:"bot_token" yaml:"bot_token"`
	AllowUnverified bool   `toml:"allow_unverified" json:"allow_unverified" yaml:"allow_unverified"`
	InitDataMaxAge  string `toml:"init_data_max_age" json:"init_data_max_age" yaml:"init_data_max_age"`
}

// ShakeConfig selects the default detector settings for new sessions.
type ShakeConfig struct {
	Preset   string          `toml:"preset" json:"preset" yaml:"preset"`
	Detector *gesture.Config `toml:"detector,omitempty" json:"detector,omitempty" yaml:"detector,omitempty"`
}

// MQTTConfig enables the optional MQTT bridge. An empty Broker disables it.
type MQTTConfig struct {
	Broker      string `toml:"broker" json:"broker" yaml:"broker"`
	ClientID    string `toml:"client_id" json:"client_id" yaml:"client_id"`
	Username    string `toml:"username" json:"username" yaml:"username"`
	Password    string `toml:"password" json:"password" yaml:"password"`
	TopicPrefix string `toml:"topic_prefix" json:"topic_prefix" yaml:"topic_prefix"`
	MotionTopic string `toml:"motion_topic" json:"motion_topic" yaml:"motion_topic"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      DefaultPort,
			StaticDir: DefaultStaticDir,
		},
		Log: LogConfig{
			Level:      DefaultLogLevel,
			BufferSize: DefaultLogBufferSize,
		},
		Telegram: TelegramConfig{
			InitDataMaxAge: DefaultInitDataMaxAge.String(),
		},
		Shake: ShakeConfig{
			Preset: gesture.PresetMedium,
		},
		MQTT: MQTTConfig{
			ClientID:    "go-miniapp",
			TopicPrefix: DefaultTopicPrefix,
		},
	}
}

// ApplyEnvOverrides applies PORT, LOG_LEVEL, BOT_TOKEN, MQTT_BROKER and
// SHAKE_PRESET from the environment.
func (c *Config) ApplyEnvOverrides() {
	c.Server.Port = envOr("PORT", c.Server.Port)
	c.Log.Level = envOr("LOG_LEVEL", c.Log.Level)
	c.Telegram.BotToken = envOr("BOT_TOKEN", c.Telegram.BotToken)
	c.MQTT.Broker = envOr("MQTT_BROKER", c.MQTT.Broker)
	c.Shake.Preset = envOr("SHAKE_PRESET", c.Shake.Preset)
	if v := os.Getenv("ALLOW_UNVERIFIED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Telegram.AllowUnverified = b
		}
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	} else if p, err := strconv.Atoi(c.Server.Port); err != nil || p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("server.port %q is not a valid port", c.Server.Port))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q must be debug, info, warn or error", c.Log.Level))
	}
	if c.Log.BufferSize < 0 {
		errs = append(errs, errors.New("log.buffer_size must not be negative"))
	}
	if c.Telegram.InitDataMaxAge != "" {
		if d, err := time.ParseDuration(c.Telegram.InitDataMaxAge); err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("telegram.init_data_max_age %q is not a duration", c.Telegram.InitDataMaxAge))
		}
	}
	if _, ok := gesture.Preset(c.Shake.Preset); !ok && c.Shake.Preset != "" {
		errs = append(errs, fmt.Errorf("shake.preset %q is unknown", c.Shake.Preset))
	}
	if c.Shake.Detector != nil {
		if err := c.Shake.Detector.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("shake.detector: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Detector returns the detector settings for a session that asked for
// preset. An explicit shake.detector block wins over any preset; an empty
// preset falls back to shake.preset.
func (c *Config) Detector(preset string) (string, gesture.Config) {
	if c.Shake.Detector != nil {
		return "custom", *c.Shake.Detector
	}
	if preset == "" {
		preset = c.Shake.Preset
	}
	cfg, ok := gesture.Preset(preset)
	if !ok {
		preset = gesture.PresetMedium
	}
	return preset, cfg
}

// InitDataMaxAge returns the parsed initData lifetime; zero disables the check.
func (c *Config) InitDataMaxAge() time.Duration {
	d, err := time.ParseDuration(c.Telegram.InitDataMaxAge)
	if err != nil {
		return DefaultInitDataMaxAge
	}
	return d
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return ":" + c.Server.Port
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	if c.Shake.Detector != nil {
		det := *c.Shake.Detector
		out.Shake.Detector = &det
	}
	return &out
}

// envOr returns the environment variable key, or def if unset.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
