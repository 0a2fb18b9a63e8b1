// Package config loads heartbeat CLI settings from defaults, an optional YAML
// file, a .env file and the environment, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ja7ad/heartbeat/pkg/energy"
	"github.com/ja7ad/heartbeat/pkg/heartbeat"
	"github.com/ja7ad/heartbeat/pkg/publish"
)

const (
	EnvPublisher = "HEARTBEAT_PUBLISHER"
	EnvNATSURL   = "HEARTBEAT_NATS_URL"
	EnvRedisAddr = "HEARTBEAT_REDIS_ADDR"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
)

// ErrInvalidBounds rejects a configured range whose min exceeds its max.
// The engine itself accepts any bounds.
var ErrInvalidBounds = errors.New("config: bound min is greater than max")

type Config struct {
	Engine  heartbeat.Config `yaml:"engine"`
	Energy  Energy           `yaml:"energy"`
	Publish Publish          `yaml:"publish"`
	Log     Log              `yaml:"log"`

	MetricsAddr string `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
}

type Energy struct {
	Source       string             `yaml:"source"`
	PowercapRoot string             `yaml:"powercap_root"`
	HwmonRoot    string             `yaml:"hwmon_root"`
	HwmonChips   []string           `yaml:"hwmon_chips"`
	PollInterval time.Duration      `yaml:"poll_interval" validate:"gte=0"`
	Model        energy.ModelConfig `yaml:"model"`
}

// Options converts the section into backend options.
func (e Energy) Options(logger *slog.Logger) energy.Options {
	return energy.Options{
		PowercapRoot: e.PowercapRoot,
		HwmonRoot:    e.HwmonRoot,
		HwmonChips:   e.HwmonChips,
		PollInterval: e.PollInterval,
		Model:        e.Model,
		Logger:       logger,
	}
}

type Publish struct {
	Kind   string `yaml:"kind" validate:"oneof=file nats redis"`
	Dir    string `yaml:"dir" validate:"required_if=Kind file"`
	Prefix string `yaml:"prefix"`

	NATSURL string `yaml:"nats_url" validate:"required_if=Kind nats"`
	Bucket  string `yaml:"bucket"`

	RedisAddr string        `yaml:"redis_addr" validate:"required_if=Kind redis"`
	RedisTTL  time.Duration `yaml:"redis_ttl" validate:"gte=0"`
}

type Log struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Engine: heartbeat.Config{
			WindowSize:  20,
			BufferDepth: 64,
		},
		Energy: Energy{
			PollInterval: energy.DefaultPollInterval,
			Model:        energy.DefaultModelConfig(),
		},
		Publish: Publish{
			Kind:   "file",
			Prefix: "heartbeat",
			Bucket: publish.DefaultBucket,
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

var validate = validator.New()

// Load builds the configuration. path may be empty; a missing .env file is
// ignored. overrides run after the environment is applied and before
// validation, which is where command-line flags go.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := decodeYAML(data, cfg); err != nil {
			return nil, err
		}
	}

	_ = godotenv.Load()
	cfg.applyEnv()
	for _, o := range overrides {
		o(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parse yaml: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Energy.Source = getEnv(heartbeat.EnvEnergySource, c.Energy.Source)
	c.Publish.Kind = getEnv(EnvPublisher, c.Publish.Kind)
	c.Publish.Dir = getEnv(publish.EnvDir, c.Publish.Dir)
	c.Publish.NATSURL = getEnv(EnvNATSURL, c.Publish.NATSURL)
	c.Publish.RedisAddr = getEnv(EnvRedisAddr, c.Publish.RedisAddr)
	c.Log.Level = strings.ToLower(getEnv(EnvLogLevel, c.Log.Level))
	c.Log.Format = strings.ToLower(getEnv(EnvLogFormat, c.Log.Format))
}

// Validate checks field constraints and the engine configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	for _, b := range []struct {
		name string
		heartbeat.Bounds
	}{{"perf", c.Engine.Perf}, {"accuracy", c.Engine.Accuracy}, {"power", c.Engine.Power}} {
		if b.Min > b.Max {
			return fmt.Errorf("%w: %s [%g, %g]", ErrInvalidBounds, b.name, b.Min, b.Max)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
