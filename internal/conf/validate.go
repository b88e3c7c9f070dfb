package conf

import (
	"github.com/nicovlr/coastwatch/internal/errors"
)

// ValidateSettings checks the loaded settings for values the pipeline
// cannot work with. It returns the first problem found.
func ValidateSettings(s *Settings) error {
	if s.Capture.Interval < 10 {
		return validationError("capture.interval must be at least 10 seconds, got %d", s.Capture.Interval)
	}
	if s.Capture.MaxConcurrent < 1 {
		return validationError("capture.maxconcurrent must be at least 1, got %d", s.Capture.MaxConcurrent)
	}
	if s.Capture.RequestTimeout <= 0 {
		return validationError("capture.requesttimeout must be positive, got %g", s.Capture.RequestTimeout)
	}
	if s.Camera.DarkLuminance < 0 || s.Camera.DarkLuminance > 255 {
		return validationError("camera.darkluminance must be within [0,255], got %g", s.Camera.DarkLuminance)
	}
	if s.Camera.UniformStdDev < 0 {
		return validationError("camera.uniformstddev must be non-negative, got %g", s.Camera.UniformStdDev)
	}
	if s.Vision.HazardConfidence < 0 || s.Vision.HazardConfidence > 1 {
		return validationError("vision.hazardconfidence must be within [0,1], got %g", s.Vision.HazardConfidence)
	}
	if err := validateQuota("webcam", &s.RateLimit.Webcam); err != nil {
		return err
	}
	if err := validateQuota("weather", &s.RateLimit.Weather); err != nil {
		return err
	}
	if err := validateQuota("vision", &s.RateLimit.Vision); err != nil {
		return err
	}
	if !s.Output.SQLite.Enabled && !s.Output.MySQL.Enabled {
		return validationError("no observation store enabled, enable output.sqlite or output.mysql")
	}
	if s.Output.SQLite.Enabled && s.Output.MySQL.Enabled {
		return validationError("only one observation store may be enabled at a time")
	}
	if s.Rank.MaxAge < 1 {
		return validationError("rank.maxage must be at least 1 minute, got %d", s.Rank.MaxAge)
	}
	return nil
}

func validateQuota(name string, q *ProviderQuota) error {
	if q.RequestsPerMinute < 1 {
		return validationError("ratelimit.%s.requestsperminute must be at least 1, got %d", name, q.RequestsPerMinute)
	}
	if q.MinSpacing < 0 {
		return validationError("ratelimit.%s.minspacing must be non-negative, got %g", name, q.MinSpacing)
	}
	if q.DailyBudget < 0 {
		return validationError("ratelimit.%s.dailybudget must be non-negative, got %d", name, q.DailyBudget)
	}
	return nil
}

func validationError(format string, args ...any) error {
	return errors.Newf(format, args...).
		Component("conf").
		Category(errors.CategoryValidation).
		Build()
}
