package config

import (
	"fmt"
	"strings"

	"github.com/headline-goat/powergoat/internal/power"
)

// FieldError is a single invalid setting.
type FieldError struct {
	Field   string
	Value   interface{}
	Message string
}

func (fe FieldError) Error() string {
	return fmt.Sprintf("%s: %s (got %v)", fe.Field, fe.Message, fe.Value)
}

// ValidationError collects every invalid setting.
type ValidationError struct {
	Errors []FieldError
}

func (ve *ValidationError) Error() string {
	msgs := make([]string, len(ve.Errors))
	for i, fe := range ve.Errors {
		msgs[i] = fe.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var errs []FieldError
	check := func(ok bool, field string, value interface{}, msg string) {
		if !ok {
			errs = append(errs, FieldError{Field: field, Value: value, Message: msg})
		}
	}

	switch power.EngineType(c.Stats.Engine) {
	case power.EngineBayesian, power.EngineFrequentist:
	default:
		check(false, "stats.engine", c.Stats.Engine, "must be bayesian or frequentist")
	}
	check(c.Stats.Alpha > 0 && c.Stats.Alpha < 1, "stats.alpha", c.Stats.Alpha, "must be in (0, 1)")
	check(c.Stats.TargetPower > 0 && c.Stats.TargetPower < 1, "stats.target_power", c.Stats.TargetPower, "must be in (0, 1)")
	check(c.Stats.TargetPower > c.Stats.Alpha, "stats.target_power", c.Stats.TargetPower, "must be greater than alpha")
	check(c.Stats.SequentialTuningParameter > 0, "stats.sequential_tuning_parameter", c.Stats.SequentialTuningParameter, "must be positive")
	check(c.Stats.PriorStandardDeviation > 0, "stats.prior_standard_deviation", c.Stats.PriorStandardDeviation, "must be positive")

	check(c.Health.SRMThreshold > 0 && c.Health.SRMThreshold < 1, "health.srm_threshold", c.Health.SRMThreshold, "must be in (0, 1)")
	check(c.Health.MultipleExposureMinPercent >= 0 && c.Health.MultipleExposureMinPercent <= 1,
		"health.multiple_exposure_min_percent", c.Health.MultipleExposureMinPercent, "must be in [0, 1]")
	check(c.Health.ExperimentMinLengthDays >= 0, "health.experiment_min_length_days", c.Health.ExperimentMinLengthDays, "must not be negative")

	check(c.Server.Port > 0 && c.Server.Port <= 65535, "server.port", c.Server.Port, "must be between 1 and 65535")
	check(c.Server.CacheSize > 0, "server.cache_size", c.Server.CacheSize, "must be positive")
	check(c.Server.RateLimit > 0, "server.rate_limit", c.Server.RateLimit, "must be positive")
	check(c.Server.RateBurst > 0, "server.rate_burst", c.Server.RateBurst, "must be positive")

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		check(false, "log.level", c.Log.Level, "must be debug, info, warn or error")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		check(false, "log.format", c.Log.Format, "must be text or json")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
