// Package config loads the receiver configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/womat/debug"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/dcf77-receiver/internal/gpio"
	"github.com/sweeney/dcf77-receiver/internal/serial"
	"github.com/sweeney/dcf77-receiver/internal/telegram"
)

// DefaultFile is the configuration file used when none is given.
const DefaultFile = "/etc/dcf77-receiver/config.yaml"

// Config is the complete daemon configuration.
type Config struct {
	GPIO     GPIO     `yaml:"gpio"`
	Consumer Consumer `yaml:"consumer"`
	Serial   Serial   `yaml:"serial"`
	MQTT     MQTT     `yaml:"mqtt"`
	HTTP     HTTP     `yaml:"http"`
	Log      Log      `yaml:"log"`
}

// GPIO selects the receiver input line.
type GPIO struct {
	Chip      string `yaml:"chip"`
	Line      int    `yaml:"line"`
	Edge      string `yaml:"edge"` // falling|rising
	Bias      string `yaml:"bias"` // as-is|disabled|pull-up|pull-down
	ActiveLow bool   `yaml:"active_low"`
}

// Consumer configures the polling loop that renders telegrams.
type Consumer struct {
	Poll time.Duration `yaml:"poll"`
}

// Serial configures the telegram output line.
type Serial struct {
	Enabled bool   `yaml:"enabled"`
	Device  string `yaml:"device"`
	Baud    int    `yaml:"baud"`
	Format  string `yaml:"format"` // pzf5xx|hopf6021
}

// MQTT configures the broker connection.
type MQTT struct {
	Enabled        bool          `yaml:"enabled"`
	Broker         string        `yaml:"broker"`
	ClientIDPrefix string        `yaml:"client_id_prefix"`
	Heartbeat      time.Duration `yaml:"heartbeat"`
	OutboxSize     int           `yaml:"outbox_size"`
	WSBroker       string        `yaml:"ws_broker"` // websocket URL for the status page; empty = derive from broker
}

// HTTP configures the status server.
type HTTP struct {
	Addr string `yaml:"addr"` // empty disables the server
}

// Log configures leveled logging.
type Log struct {
	Level string `yaml:"level"` // standard|error|debug|trace
	File  string `yaml:"file"`  // stderr|stdout|path
}

// Default returns the configuration used for keys missing from the file.
func Default() Config {
	return Config{
		GPIO: GPIO{
			Chip: gpio.DefaultChip,
			Line: gpio.DefaultOffset,
			Edge: string(gpio.EdgeFalling),
			Bias: string(gpio.BiasPullUp),
		},
		Consumer: Consumer{Poll: 10 * time.Millisecond},
		Serial: Serial{
			Device: "/dev/ttyAMA0",
			Baud:   9600,
			Format: string(telegram.PZF5xx),
		},
		MQTT: MQTT{
			Enabled:        true,
			Broker:         "tcp://localhost:1883",
			ClientIDPrefix: "dcf77-receiver",
			Heartbeat:      15 * time.Minute,
			OutboxSize:     1000,
		},
		HTTP: HTTP{Addr: ":80"},
		Log:  Log{Level: "standard", File: "stderr"},
	}
}

// Load reads path over the defaults. A missing file is not an error when
// allowMissing is set; the defaults are returned instead.
func Load(path string, allowMissing bool) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		if allowMissing && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := Decode(f, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads YAML from r into cfg, rejecting unknown keys.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// Validate checks the configuration and returns all problems at once.
func (c Config) Validate() error {
	var errs []error

	if err := c.LineConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("gpio: %w", err))
	}
	if c.Consumer.Poll <= 0 || c.Consumer.Poll > time.Second/2 {
		errs = append(errs, fmt.Errorf("consumer: poll %v out of range (0, 500ms]", c.Consumer.Poll))
	}
	if c.Serial.Enabled {
		f, err := telegram.ParseFormat(c.Serial.Format)
		if err != nil {
			errs = append(errs, fmt.Errorf("serial: %w", err))
		} else if err := serial.ConfigFor(c.Serial.Device, c.Serial.Baud, f).Validate(); err != nil {
			errs = append(errs, fmt.Errorf("serial: %w", err))
		}
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			errs = append(errs, errors.New("mqtt: broker is empty"))
		}
		if c.MQTT.Heartbeat < time.Second {
			errs = append(errs, fmt.Errorf("mqtt: heartbeat %v below 1s", c.MQTT.Heartbeat))
		}
		if c.MQTT.OutboxSize < 1 {
			errs = append(errs, fmt.Errorf("mqtt: outbox_size %d below 1", c.MQTT.OutboxSize))
		}
	}
	if _, err := LogFlag(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}

	return errors.Join(errs...)
}

// LineConfig returns the gpio request for the receiver line.
func (c Config) LineConfig() gpio.LineConfig {
	return gpio.LineConfig{
		Chip:      c.GPIO.Chip,
		Offset:    c.GPIO.Line,
		Edge:      gpio.EdgeKind(strings.ToLower(c.GPIO.Edge)),
		Bias:      gpio.Bias(strings.ToLower(c.GPIO.Bias)),
		ActiveLow: c.GPIO.ActiveLow,
	}
}

// LogFlag maps a level name to the womat/debug flag mask.
func LogFlag(level string) (int, error) {
	switch strings.ToLower(level) {
	case "", "standard":
		return debug.Standard, nil
	case "error":
		return debug.Error | debug.Fatal, nil
	case "debug":
		return debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug, nil
	case "trace", "full":
		return debug.Full, nil
	}
	return 0, fmt.Errorf("unknown level %q (want standard|error|debug|trace)", level)
}

// OpenLog returns the log destination. stdout and stderr are never closed.
func (l Log) OpenLog() (io.WriteCloser, error) {
	switch l.File {
	case "", "stderr":
		return nopCloser{os.Stderr}, nil
	case "stdout":
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.OpenFile(l.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %q: %w", l.File, err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
