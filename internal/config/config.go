// Package config loads service settings from flags, NOTECARD_* environment
// variables and an optional YAML file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"notecard-service/internal/hardware"
	"notecard-service/internal/signals"
)

const envPrefix = "NOTECARD"

type RelayOptions struct {
	Port    string        `mapstructure:"port"`
	Baud    int           `mapstructure:"baud"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SignalOptions struct {
	Mode         string        `mapstructure:"mode"`
	Port         string        `mapstructure:"port"`
	Baud         int           `mapstructure:"baud"`
	PollInterval time.Duration `mapstructure:"poll-interval"`
	RedisList    string        `mapstructure:"redis-list"`
}

type HornOptions struct {
	Chip  int           `mapstructure:"chip"`
	Line  int           `mapstructure:"line"`
	Pulse time.Duration `mapstructure:"pulse"`
}

type BatteryOptions struct {
	Device  string `mapstructure:"device"`
	Channel int    `mapstructure:"channel"`
}

type RedisOptions struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

type Config struct {
	ProductUID     string         `mapstructure:"product-uid"`
	SerialNumber   string         `mapstructure:"serial-number"`
	Relay          RelayOptions   `mapstructure:"relay"`
	Signals        SignalOptions  `mapstructure:"signals"`
	Horn           HornOptions    `mapstructure:"horn"`
	Battery        BatteryOptions `mapstructure:"battery"`
	SampleInterval time.Duration  `mapstructure:"sample-interval"`
	Redis          RedisOptions   `mapstructure:"redis"`
	LogLevel       string         `mapstructure:"log-level"`
}

// Loader owns the viper instance so the file can be watched after Load.
type Loader struct {
	v  *viper.Viper
	fs *pflag.FlagSet
}

func NewLoader(name string) *Loader {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	addFlags(fs)
	return &Loader{v: v, fs: fs}
}

func setDefaults(v *viper.Viper) {
	horn := hardware.DoMappings["horn"]
	battery := hardware.AiMappings["battery"]

	v.SetDefault("product-uid", "")
	v.SetDefault("serial-number", "")
	v.SetDefault("relay.port", "/dev/ttymxc1")
	v.SetDefault("relay.baud", 9600)
	v.SetDefault("relay.timeout", 2*time.Second)
	v.SetDefault("signals.mode", string(signals.ModeStream))
	v.SetDefault("signals.port", "/dev/ttymxc2")
	v.SetDefault("signals.baud", 115200)
	v.SetDefault("signals.poll-interval", 10*time.Millisecond)
	v.SetDefault("signals.redis-list", "scooter:signal")
	v.SetDefault("horn.chip", horn.Chip)
	v.SetDefault("horn.line", horn.Line)
	v.SetDefault("horn.pulse", 250*time.Millisecond)
	v.SetDefault("battery.device", battery.Device)
	v.SetDefault("battery.channel", battery.Channel)
	v.SetDefault("sample-interval", 15*time.Second)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("log-level", "info")
}

func addFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a YAML config file.")
	fs.String("product-uid", "", "Notehub product UID.")
	fs.String("serial-number", "", "Device serial number reported to Notehub.")
	fs.String("relay.port", "", "Serial device of the relay's request port.")
	fs.Int("relay.baud", 0, "Baud rate of the relay's request port.")
	fs.String("signals.mode", "", "Signal delivery: stream, request or redis.")
	fs.String("signals.port", "", "Serial device of the relay's AUX port (stream mode).")
	fs.Int("signals.baud", 0, "Baud rate of the relay's AUX port.")
	fs.Bool("redis.enabled", true, "Mirror state to Redis.")
	fs.String("redis.host", "", "Redis host.")
	fs.Int("redis.port", 0, "Redis port.")
	fs.String("log-level", "", "Log level: none, error, warn, info or debug.")
}

// Load parses args and returns the merged configuration.
func (l *Loader) Load(args []string) (*Config, error) {
	if err := l.fs.Parse(args); err != nil {
		return nil, err
	}
	// Only flags the user actually set override file and env values.
	l.fs.Visit(func(f *pflag.Flag) {
		if f.Name != "config" {
			_ = l.v.BindPFlag(f.Name, f)
		}
	})

	if path, _ := l.fs.GetString("config"); path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Watch calls fn with the reloaded configuration whenever the config file
// changes. Invalid reloads are reported through onErr and otherwise ignored.
func (l *Loader) Watch(fn func(*Config), onErr func(error)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.decode()
		if err != nil {
			if onErr != nil {
				onErr(err)
			}
			return
		}
		fn(cfg)
	})
	l.v.WatchConfig()
}

func (c *Config) Validate() error {
	var errs []error
	if _, err := signals.ParseMode(c.Signals.Mode); err != nil {
		errs = append(errs, err)
	}
	if c.Relay.Port == "" {
		errs = append(errs, errors.New("relay.port must be set"))
	}
	if c.Relay.Baud <= 0 {
		errs = append(errs, fmt.Errorf("relay.baud must be positive, got %d", c.Relay.Baud))
	}
	if c.SampleInterval <= 0 {
		errs = append(errs, fmt.Errorf("sample-interval must be positive, got %v", c.SampleInterval))
	}
	if c.Horn.Pulse <= 0 {
		errs = append(errs, fmt.Errorf("horn.pulse must be positive, got %v", c.Horn.Pulse))
	}
	if c.Signals.Mode == string(signals.ModeStream) {
		if c.Signals.Port == "" {
			errs = append(errs, errors.New("signals.port must be set in stream mode"))
		}
		if c.Signals.PollInterval <= 0 {
			errs = append(errs, fmt.Errorf("signals.poll-interval must be positive, got %v", c.Signals.PollInterval))
		}
	}
	if c.Signals.Mode == string(signals.ModeRedis) && !c.Redis.Enabled {
		errs = append(errs, errors.New("signals.mode redis requires redis.enabled"))
	}
	return errors.Join(errs...)
}
