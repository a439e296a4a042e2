// Package config loads powergoat settings from a YAML file, POWERGOAT_
// environment variables and built-in defaults using Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/headline-goat/powergoat/internal/decision"
	"github.com/headline-goat/powergoat/internal/power"
	"github.com/headline-goat/powergoat/internal/request"
)

// EnvPrefix prefixes every environment override, e.g. POWERGOAT_SERVER_PORT.
const EnvPrefix = "POWERGOAT"

// FileName is the config file name searched for without an explicit path.
const FileName = "powergoat"

type Config struct {
	Stats  StatsConfig  `mapstructure:"stats" yaml:"stats"`
	Health HealthConfig `mapstructure:"health" yaml:"health"`
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

type StatsConfig struct {
	Engine                    string  `mapstructure:"engine" yaml:"engine"`
	Alpha                     float64 `mapstructure:"alpha" yaml:"alpha"`
	TargetPower               float64 `mapstructure:"target_power" yaml:"target_power"`
	SequentialTesting         bool    `mapstructure:"sequential_testing" yaml:"sequential_testing"`
	SequentialTuningParameter float64 `mapstructure:"sequential_tuning_parameter" yaml:"sequential_tuning_parameter"`
	PriorStandardDeviation    float64 `mapstructure:"prior_standard_deviation" yaml:"prior_standard_deviation"`
}

type HealthConfig struct {
	DecisionFrameworkEnabled   bool    `mapstructure:"decision_framework_enabled" yaml:"decision_framework_enabled"`
	SRMThreshold               float64 `mapstructure:"srm_threshold" yaml:"srm_threshold"`
	MultipleExposureMinPercent float64 `mapstructure:"multiple_exposure_min_percent" yaml:"multiple_exposure_min_percent"`
	ExperimentMinLengthDays    float64 `mapstructure:"experiment_min_length_days" yaml:"experiment_min_length_days"`
}

type ServerConfig struct {
	Host      string  `mapstructure:"host" yaml:"host"`
	Port      int     `mapstructure:"port" yaml:"port"`
	CacheSize int     `mapstructure:"cache_size" yaml:"cache_size"`
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst" yaml:"rate_burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Stats: StatsConfig{
			Engine:                    string(power.EngineBayesian),
			Alpha:                     0.05,
			TargetPower:               power.DefaultTargetPower,
			SequentialTesting:         false,
			SequentialTuningParameter: 5000,
			PriorStandardDeviation:    0.3,
		},
		Health: HealthConfig{
			DecisionFrameworkEnabled:   true,
			SRMThreshold:               0.001,
			MultipleExposureMinPercent: 0.01,
			ExperimentMinLengthDays:    7,
		},
		Server: ServerConfig{
			Host:      "",
			Port:      8080,
			CacheSize: 1024,
			RateLimit: 50,
			RateBurst: 100,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers every default on v so that environment overrides
// apply to all keys.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("stats.engine", d.Stats.Engine)
	v.SetDefault("stats.alpha", d.Stats.Alpha)
	v.SetDefault("stats.target_power", d.Stats.TargetPower)
	v.SetDefault("stats.sequential_testing", d.Stats.SequentialTesting)
	v.SetDefault("stats.sequential_tuning_parameter", d.Stats.SequentialTuningParameter)
	v.SetDefault("stats.prior_standard_deviation", d.Stats.PriorStandardDeviation)

	v.SetDefault("health.decision_framework_enabled", d.Health.DecisionFrameworkEnabled)
	v.SetDefault("health.srm_threshold", d.Health.SRMThreshold)
	v.SetDefault("health.multiple_exposure_min_percent", d.Health.MultipleExposureMinPercent)
	v.SetDefault("health.experiment_min_length_days", d.Health.ExperimentMinLengthDays)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.cache_size", d.Server.CacheSize)
	v.SetDefault("server.rate_limit", d.Server.RateLimit)
	v.SetDefault("server.rate_burst", d.Server.RateBurst)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// New returns a Viper instance with defaults and environment overrides.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file at path into v, or searches the working
// directory and the user config directory for powergoat.yaml when path is
// empty. A missing file is not an error unless path was given.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, FileName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Write saves cfg as YAML to path.
func Write(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// HealthSettings converts the health section for the decision package.
func (c *Config) HealthSettings() decision.HealthSettings {
	return decision.HealthSettings{
		DecisionFrameworkEnabled:   c.Health.DecisionFrameworkEnabled,
		SRMThreshold:               c.Health.SRMThreshold,
		MultipleExposureMinPercent: c.Health.MultipleExposureMinPercent,
		ExperimentMinLengthDays:    c.Health.ExperimentMinLengthDays,
	}
}

// Defaults returns the request defaults derived from the stats and health
// sections.
func (c *Config) Defaults() request.Defaults {
	return request.Defaults{
		Engine:                    power.EngineType(c.Stats.Engine),
		Alpha:                     c.Stats.Alpha,
		TargetPower:               c.Stats.TargetPower,
		SequentialTesting:         c.Stats.SequentialTesting,
		SequentialTuningParameter: c.Stats.SequentialTuningParameter,
		PriorStandardDeviation:    c.Stats.PriorStandardDeviation,
		Health:                    c.HealthSettings(),
	}
}
