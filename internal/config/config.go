// Package config loads tabflow pipeline definitions.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	tferrors "github.com/vnykmshr/tabflow/pkg/common/errors"
	"github.com/vnykmshr/tabflow/pkg/tableio"
)

// EnvPrefix is prepended to environment overrides, e.g. TABFLOW_LOG_LEVEL.
const EnvPrefix = "TABFLOW"

// Config is a complete pipeline definition with the settings needed to run
// it.
type Config struct {
	Name    string          `mapstructure:"name"`
	Log     LogConfig       `mapstructure:"log"`
	Metrics MetricsConfig   `mapstructure:"metrics"`
	Redis   RedisConfig     `mapstructure:"redis"`
	Source  tableio.Options `mapstructure:"source"`
	Stages  []StageConfig   `mapstructure:"stages"`
	Quality QualityConfig   `mapstructure:"quality"`
	Sink    tableio.Options `mapstructure:"sink"`
	Trigger TriggerConfig   `mapstructure:"trigger"`
}

// LogConfig configures internal/logger.
type LogConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	Output    string `mapstructure:"output"`
	FilePath  string `mapstructure:"file_path"`
	AddSource bool   `mapstructure:"add_source"`
}

// MetricsConfig controls the Prometheus endpoint of long-running commands.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// RedisConfig locates the run history store. An empty Addr keeps history in
// memory.
type RedisConfig struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	KeyPrefix  string        `mapstructure:"key_prefix"`
	TTL        time.Duration `mapstructure:"ttl"`
	MaxHistory int           `mapstructure:"max_history"`
}

// StageConfig declares one pipeline stage. A stage without a transform
// passes its input through and only validates it.
type StageConfig struct {
	Name      string          `mapstructure:"name"`
	Transform TransformConfig `mapstructure:"transform"`
	Validate  []RuleConfig    `mapstructure:"validate"`

	// Fatal defaults to true. Advisory stages set it to false.
	Fatal *bool `mapstructure:"fatal"`
}

// IsFatal reports whether a validation failure stops the run.
func (s StageConfig) IsFatal() bool {
	return s.Fatal == nil || *s.Fatal
}

// TransformConfig names a registered transform and its parameters.
type TransformConfig struct {
	Kind   string         `mapstructure:"kind"`
	Params map[string]any `mapstructure:"params"`
}

// RuleConfig names a registered validation rule and its parameters.
type RuleConfig struct {
	Rule   string         `mapstructure:"rule"`
	Params map[string]any `mapstructure:"params"`
}

// QualityConfig adds a final quality gate stage when Enabled.
type QualityConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	MinCompleteness float64 `mapstructure:"min_completeness"`
	MaxDuplicates   int     `mapstructure:"max_duplicates"`
	Fatal           bool    `mapstructure:"fatal"`
}

// TriggerConfig lists what starts the pipeline under "tabflow watch".
type TriggerConfig struct {
	Cron     string        `mapstructure:"cron"`
	Watch    string        `mapstructure:"watch"`
	Debounce time.Duration `mapstructure:"debounce"`
	Timezone string        `mapstructure:"timezone"`

	// MaxRuns caps runs per trigger within Per. Zero means no cap.
	MaxRuns int           `mapstructure:"max_runs"`
	Per     time.Duration `mapstructure:"per"`
}

// setDefaults also registers every key that may come only from the
// environment, since AutomaticEnv is consulted for known keys alone.
func setDefaults(v *viper.Viper) {
	v.SetDefault("name", "pipeline")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("log.file_path", "")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "0s")
	v.SetDefault("redis.key_prefix", "tabflow:runs")
	v.SetDefault("redis.max_history", 100)
	v.SetDefault("quality.max_duplicates", -1)
	v.SetDefault("quality.fatal", true)
	v.SetDefault("trigger.debounce", "500ms")
	v.SetDefault("trigger.max_runs", 0)
	v.SetDefault("trigger.per", "1h")
}

// Load reads a pipeline definition from path. The format follows the file
// extension (yaml, json or toml). Environment variables prefixed with
// TABFLOW_ override scalar settings.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tabflow")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

var (
	validLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	validFormats = map[string]bool{"text": true, "json": true}
	validOutputs = map[string]bool{"stdout": true, "stderr": true, "file": true}
)

// Validate checks the settings that do not need the registries and returns
// every problem found, joined. Building the stages catches the rest.
func (c *Config) Validate() error {
	var errs []error
	add := func(field string, value interface{}, reason string) {
		errs = append(errs, tferrors.NewConfigurationError("config", field, value, reason))
	}

	if c.Name == "" {
		add("name", c.Name, "cannot be empty")
	}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		add("log.level", c.Log.Level, "must be debug, info, warn or error")
	}
	if !validFormats[c.Log.Format] {
		add("log.format", c.Log.Format, "must be text or json")
	}
	if !validOutputs[c.Log.Output] {
		add("log.output", c.Log.Output, "must be stdout, stderr or file")
	}
	if c.Log.Output == "file" && c.Log.FilePath == "" {
		add("log.file_path", "", "is required when output is file")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		add("metrics.addr", "", "is required when metrics are enabled")
	}
	if c.Redis.Addr != "" && c.Redis.MaxHistory <= 0 {
		add("redis.max_history", c.Redis.MaxHistory, "must be positive")
	}
	if c.Redis.TTL < 0 {
		add("redis.ttl", c.Redis.TTL, "cannot be negative")
	}

	if c.Source.Format == "" && c.Source.Path == "" {
		add("source", "", "needs a format or a path")
	}

	if len(c.Stages) == 0 && !c.Quality.Enabled {
		add("stages", 0, "must not be empty")
	}
	seen := make(map[string]bool, len(c.Stages))
	for i, s := range c.Stages {
		field := fmt.Sprintf("stages[%d]", i)
		switch {
		case s.Name == "":
			add(field+".name", "", "cannot be empty")
		case seen[s.Name]:
			add(field+".name", s.Name, "duplicate stage name")
		}
		seen[s.Name] = true
		if s.Transform.Kind == "" && len(s.Validate) == 0 {
			add(field, s.Name, "needs a transform or at least one validation rule")
		}
		for j, r := range s.Validate {
			if r.Rule == "" {
				add(fmt.Sprintf("%s.validate[%d].rule", field, j), "", "cannot be empty")
			}
		}
	}

	if c.Quality.Enabled {
		if c.Quality.MinCompleteness < 0 || c.Quality.MinCompleteness > 100 {
			add("quality.min_completeness", c.Quality.MinCompleteness, "must be between 0 and 100")
		}
	}

	if c.Trigger.Debounce < 0 {
		add("trigger.debounce", c.Trigger.Debounce, "cannot be negative")
	}
	if c.Trigger.MaxRuns < 0 {
		add("trigger.max_runs", c.Trigger.MaxRuns, "cannot be negative")
	}
	if c.Trigger.MaxRuns > 0 && c.Trigger.Per <= 0 {
		add("trigger.per", c.Trigger.Per, "must be positive when trigger.max_runs is set")
	}
	if c.Trigger.Timezone != "" {
		if _, err := time.LoadLocation(c.Trigger.Timezone); err != nil {
			add("trigger.timezone", c.Trigger.Timezone, err.Error())
		}
	}

	return errors.Join(errs...)
}

// HasSink reports whether the definition writes its result anywhere.
func (c *Config) HasSink() bool {
	return c.Sink.Format != "" || c.Sink.Path != ""
}

// Location returns the trigger time zone, defaulting to time.Local.
func (c *Config) Location() *time.Location {
	if c.Trigger.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Trigger.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
