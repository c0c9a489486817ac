// Package config loads padcontrol settings from flags, PADCONTROL_*
// environment variables and an optional config file, in that order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/soar/padcontrol/internal/car"
	"github.com/soar/padcontrol/internal/dispatch"
	"github.com/soar/padcontrol/internal/gamepad"
	"github.com/soar/padcontrol/internal/input"
	"github.com/soar/padcontrol/internal/poller"
)

const (
	appName   = "padcontrol"
	envPrefix = "PADCONTROL"
)

// Input sources.
const (
	SourceSDL  = "sdl"
	SourceGPIO = "gpio"
)

type Config struct {
	Addr           string        `mapstructure:"addr"`
	Interval       time.Duration `mapstructure:"interval"`
	Profile        string        `mapstructure:"profile"`
	Joystick       int           `mapstructure:"joystick"`
	Source         string        `mapstructure:"source"`
	GPIO           GPIOConfig    `mapstructure:"gpio"`
	NoiseThreshold float64       `mapstructure:"noise_threshold"`
	InputDelta     float64       `mapstructure:"input_delta"`
	Inputs         []InputConfig `mapstructure:"inputs"`
	Car            CarConfig     `mapstructure:"car"`
	Log            LogConfig     `mapstructure:"log"`
	Tray           bool          `mapstructure:"tray"`
	Autostart      bool          `mapstructure:"autostart"`
}

type GPIOConfig struct {
	Pins []string `mapstructure:"pins"`
}

// InputConfig declares one custom input. Index is used by buttons and single
// axes, X and Y by dual axes; a missing component reads as zero.
type InputConfig struct {
	Name           string   `mapstructure:"name"`
	Type           string   `mapstructure:"type"`
	Index          *int     `mapstructure:"index"`
	X              *int     `mapstructure:"x"`
	Y              *int     `mapstructure:"y"`
	NoiseThreshold *float64 `mapstructure:"noise_threshold"`
	InputDelta     *float64 `mapstructure:"input_delta"`
}

type CarConfig struct {
	Mode      string        `mapstructure:"mode"`
	Transport string        `mapstructure:"transport"`
	URL       string        `mapstructure:"url"`
	Codec     string        `mapstructure:"codec"`
	Timeout   time.Duration `mapstructure:"timeout"`
	QueueSize int           `mapstructure:"queue_size"`
	MQTT      MQTTConfig    `mapstructure:"mqtt"`
	Serial    SerialConfig  `mapstructure:"serial"`
}

type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"client_id"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	QoS      byte   `mapstructure:"qos"`
}

type SerialConfig struct {
	Port string `mapstructure:"port"`
	Baud int    `mapstructure:"baud"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	File   string `mapstructure:"file"`
	Format string `mapstructure:"format"`
}

// flag name → config key, for flags whose name differs from the key.
var flagKeys = map[string]string{
	"noise-threshold": "noise_threshold",
	"input-delta":     "input_delta",
	"gpio-pins":       "gpio.pins",
	"car-mode":        "car.mode",
	"car-transport":   "car.transport",
	"car-url":         "car.url",
	"car-codec":       "car.codec",
	"car-timeout":     "car.timeout",
	"car-queue-size":  "car.queue_size",
	"serial-port":     "car.serial.port",
	"serial-baud":     "car.serial.baud",
	"mqtt-broker":     "car.mqtt.broker",
	"mqtt-topic":      "car.mqtt.topic",
	"log-level":       "log.level",
	"log-file":        "log.file",
	"log-format":      "log.format",
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	fs.String("config", "", "config file (default: padcontrol.{yaml,toml,json} in . or the user config dir)")
	fs.String("addr", ":8080", "HTTP listen address")
	fs.Duration("interval", poller.DefaultInterval, "polling interval")
	fs.String("profile", "xbox", fmt.Sprintf("input profile %v", gamepad.Profiles))
	fs.Int("joystick", -1, "joystick slot in connection order (-1: first connected)")
	fs.String("source", SourceSDL, "input source: sdl or gpio")
	fs.StringSlice("gpio-pins", nil, "GPIO pins read as buttons 0..n-1")
	fs.Float64("noise-threshold", input.DefaultNoiseThreshold, "noise threshold for every input without an override")
	fs.Float64("input-delta", input.DefaultInputDelta, "input delta for every input without an override")
	fs.String("car-mode", string(car.Basic), "car control mode: basic, advanced or power")
	fs.String("car-transport", "http", "car transport: http, websocket, mqtt, serial or log")
	fs.String("car-url", "http://192.168.4.1", "car base URL, websocket address or MQTT broker")
	fs.String("car-codec", "json", "command encoding: json, cbor or text")
	fs.Duration("car-timeout", 2*time.Second, "per command timeout")
	fs.Int("car-queue-size", 16, "pending commands before new ones are dropped")
	fs.String("serial-port", "", "serial device for the serial transport")
	fs.Int("serial-baud", 115200, "serial baud rate")
	fs.String("mqtt-broker", "", "MQTT broker (default: --car-url)")
	fs.String("mqtt-topic", "padcontrol/car", "MQTT topic")
	fs.String("log-level", "info", "log level: trace, debug, info, warn or error")
	fs.String("log-file", "", "also log to this file")
	fs.String("log-format", "", "console log format: text or json (default: text on a terminal)")
	fs.Bool("tray", false, "show a system tray icon (always on for Windows GUI launches)")
	fs.Bool("autostart", false, "start polling immediately")
	return fs
}

// Load parses args and merges every configuration source. It returns the
// viper instance so callers can Watch the file.
func Load(args []string) (*Config, *viper.Viper, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	v := viper.New()
	v.SetDefault("car.mqtt.client_id", appName)
	v.SetDefault("car.mqtt.qos", 1)
	v.SetDefault("car.mqtt.username", "")
	v.SetDefault("car.mqtt.password", "")

	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		key, ok := flagKeys[f.Name]
		if !ok {
			key = f.Name
		}
		bindErr = errors.Join(bindErr, v.BindPFlag(key, f))
	})
	if bindErr != nil {
		return nil, nil, bindErr
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	path, _ := fs.GetString("config")
	if err := readConfigFile(v, path); err != nil {
		return nil, nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(appName)
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, appName))
		}
	}

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !(path == "" && errors.As(err, &notFound)) {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Validate checks settings that cannot be checked while building components.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", c.Interval)
	}
	switch c.Source {
	case SourceSDL:
	case SourceGPIO:
		if len(c.GPIO.Pins) == 0 {
			return errors.New("gpio source needs at least one pin")
		}
	default:
		return fmt.Errorf("unknown source %q", c.Source)
	}
	if c.Car.QueueSize < 0 {
		return fmt.Errorf("car.queue_size must not be negative, got %d", c.Car.QueueSize)
	}
	if _, err := car.ParseMode(c.Car.Mode); err != nil {
		return err
	}
	return nil
}

// Controller returns the car controller settings.
func (c *Config) Controller() car.Config {
	mode, _ := car.ParseMode(c.Car.Mode)
	return car.Config{
		Mode:      mode,
		QueueSize: c.Car.QueueSize,
		Timeout:   c.Car.Timeout,
	}
}

// Dispatch returns the transport settings.
func (c *Config) Dispatch() dispatch.Config {
	return dispatch.Config{
		Transport: c.Car.Transport,
		URL:       c.Car.URL,
		Codec:     c.Car.Codec,
		Timeout:   c.Car.Timeout,
		MQTT: dispatch.MQTTConfig{
			Broker:   c.Car.MQTT.Broker,
			Topic:    c.Car.MQTT.Topic,
			ClientID: c.Car.MQTT.ClientID,
			Username: c.Car.MQTT.Username,
			Password: c.Car.MQTT.Password,
			QoS:      c.Car.MQTT.QoS,
		},
		Serial: dispatch.SerialConfig{
			Port: c.Car.Serial.Port,
			Baud: c.Car.Serial.Baud,
		},
	}
}

// ThresholdChange is a threshold edited in the config file. An empty Name
// is the registry-wide default; a nil field did not change.
type ThresholdChange struct {
	Name           string
	NoiseThreshold *float64
	InputDelta     *float64
}

type thresholds struct {
	noise, delta *float64
}

// fileThresholds collects the thresholds set explicitly by the config
// sources. Flag defaults do not count.
func fileThresholds(v *viper.Viper) map[string]thresholds {
	out := make(map[string]thresholds)
	var global thresholds
	if v.IsSet("noise_threshold") {
		n := v.GetFloat64("noise_threshold")
		global.noise = &n
	}
	if v.IsSet("input_delta") {
		d := v.GetFloat64("input_delta")
		global.delta = &d
	}
	out[""] = global

	var inputs []InputConfig
	if err := v.UnmarshalKey("inputs", &inputs); err == nil {
		for _, ic := range inputs {
			out[ic.Name] = thresholds{noise: ic.NoiseThreshold, delta: ic.InputDelta}
		}
	}
	return out
}

// diffThresholds returns the values in cur that are new or differ from old,
// registry-wide first, then by input name.
func diffThresholds(old, cur map[string]thresholds) []ThresholdChange {
	names := make([]string, 0, len(cur))
	for name := range cur {
		names = append(names, name)
	}
	sort.Strings(names)

	var changes []ThresholdChange
	for _, name := range names {
		prev, next := old[name], cur[name]
		ch := ThresholdChange{Name: name}
		if changed(prev.noise, next.noise) {
			ch.NoiseThreshold = next.noise
		}
		if changed(prev.delta, next.delta) {
			ch.InputDelta = next.delta
		}
		if ch.NoiseThreshold != nil || ch.InputDelta != nil {
			changes = append(changes, ch)
		}
	}
	return changes
}

func changed(prev, next *float64) bool {
	return next != nil && (prev == nil || *prev != *next)
}

// Watch calls fn with the thresholds edited in the config file each time it
// changes. Values the file does not set, or did not change, are left alone
// so thresholds set at runtime survive unrelated edits. It does nothing when
// no file was loaded.
func Watch(v *viper.Viper, fn func([]ThresholdChange)) bool {
	if v.ConfigFileUsed() == "" {
		return false
	}
	var mu sync.Mutex
	last := fileThresholds(v)
	v.OnConfigChange(func(fsnotify.Event) {
		mu.Lock()
		defer mu.Unlock()
		cur := fileThresholds(v)
		changes := diffThresholds(last, cur)
		last = cur
		if len(changes) > 0 {
			fn(changes)
		}
	})
	v.WatchConfig()
	return true
}
