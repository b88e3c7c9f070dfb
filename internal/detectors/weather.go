package detectors

import (
	"context"

	"github.com/nicovlr/coastwatch/internal/errors"
	"github.com/nicovlr/coastwatch/internal/frame"
	"github.com/nicovlr/coastwatch/internal/weather"
)

// WeatherDetector enriches an observation with current weather for the
// beach coordinates. It needs no frame and therefore also runs when the
// camera is down.
type WeatherDetector struct {
	service *weather.Service
}

// NewWeatherDetector wraps the weather service as a capability.
func NewWeatherDetector(service *weather.Service) *WeatherDetector {
	return &WeatherDetector{service: service}
}

func (d *WeatherDetector) Name() string     { return CapabilityWeather }
func (d *WeatherDetector) NeedsFrame() bool { return false }
func (d *WeatherDetector) Provider() string { return providerWeather }

func (d *WeatherDetector) Analyze(ctx context.Context, _ *frame.Frame, bctx *BeachContext) (Result, error) {
	if bctx == nil || bctx.Beach == nil {
		return nil, errors.NewStd("weather detector requires beach context")
	}
	data, err := d.service.Get(ctx, bctx.Beach.Coordinates.Latitude, bctx.Beach.Coordinates.Longitude)
	if err != nil {
		return nil, err
	}
	return WeatherResult{Data: data}, nil
}
