// Package config loads and validates the daemon configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dokzlo13/autolight/internal/schedule"
)

// MinCheckInterval is the floor for the brightness check interval.
const MinCheckInterval = 60 * time.Second

// DefaultCheckInterval is used when no interval is configured.
const DefaultCheckInterval = 600 * time.Second

// Config represents the application configuration
type Config struct {
	Light    LightConfig    `yaml:"light"`
	Output   OutputConfig   `yaml:"output"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
}

// LightConfig holds the schedule and control settings.
type LightConfig struct {
	Pin           string   `yaml:"pin"`
	CheckInterval Duration `yaml:"check_interval"`
	Enabled       bool     `yaml:"enabled"`

	Schedule1 string `yaml:"schedule_1"`
	Schedule2 string `yaml:"schedule_2"`
	Schedule3 string `yaml:"schedule_3"`
	Schedule4 string `yaml:"schedule_4"`
	Schedule5 string `yaml:"schedule_5"`
}

// OutputConfig selects and configures the output backend.
type OutputConfig struct {
	Type         string  `yaml:"type"` // "log" or "hue"
	Bridge       string  `yaml:"bridge"`
	Token        string  `yaml:"token"`
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
}

// DatabaseConfig contains history ledger settings. An empty path disables
// the ledger.
type DatabaseConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	UseJSON bool   `yaml:"json"`
	Colors  bool   `yaml:"colors"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling.
// Accepts duration strings ("10m") and bare numbers (seconds).
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		if secs, serr := strconv.Atoi(s); serr == nil {
			*d = Duration(time.Duration(secs) * time.Second)
			return nil
		}
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return perr
		}
		*d = Duration(parsed)
		return nil
	}

	var secs float64
	if err := value.Decode(&secs); err != nil {
		return err
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads, parses and validates the configuration file. Validation is
// eager: all failures are collected and reported together, each naming
// the offending field.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	// Defaults that plain zero values cannot express
	cfg := Config{
		Light: LightConfig{Enabled: true},
	}
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Light.Pin == "" {
		cfg.Light.Pin = "case_light"
	}
	if cfg.Light.CheckInterval == 0 {
		cfg.Light.CheckInterval = Duration(DefaultCheckInterval)
	}
	if cfg.Output.Type == "" {
		cfg.Output.Type = "log"
	}
	if cfg.Output.RateLimitRPS == 0 {
		cfg.Output.RateLimitRPS = 2.0
	}
	if cfg.Database.RetentionDays == 0 {
		cfg.Database.RetentionDays = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the whole configuration, collecting every failure
// before rejecting.
func (c *Config) Validate() error {
	var errs []error

	if c.Light.CheckInterval.Duration() < MinCheckInterval {
		errs = append(errs, fmt.Errorf("light.check_interval: %s below minimum %s",
			c.Light.CheckInterval.Duration(), MinCheckInterval))
	}
	if _, err := c.Light.ScheduleEntries(); err != nil {
		errs = append(errs, err)
	}

	switch c.Output.Type {
	case "log":
	case "hue":
		if c.Output.Bridge == "" {
			errs = append(errs, errors.New("output.bridge: required for hue output"))
		}
		if c.Output.Token == "" {
			errs = append(errs, errors.New("output.token: required for hue output"))
		}
	default:
		errs = append(errs, fmt.Errorf("output.type: unknown type %q", c.Output.Type))
	}

	return errors.Join(errs...)
}

// ScheduleEntries parses schedule_1..schedule_5 into entries. Ids come
// from the key suffix, so they stay stable when intermediate keys are
// omitted.
func (c *LightConfig) ScheduleEntries() ([]schedule.Entry, error) {
	raw := []string{c.Schedule1, c.Schedule2, c.Schedule3, c.Schedule4, c.Schedule5}

	var entries []schedule.Entry
	var errs []error
	for i, s := range raw {
		if s == "" {
			continue
		}
		e, err := schedule.ParseEntry(i+1, s)
		if err != nil {
			errs = append(errs, fmt.Errorf("light.schedule_%d: %w", i+1, err))
			continue
		}
		entries = append(entries, e)
	}

	if len(entries) == 0 && len(errs) == 0 {
		errs = append(errs, errors.New("light: at least one schedule_N must be set"))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return entries, nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
