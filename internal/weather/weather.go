// Package weather fetches current weather for beach coordinates from a
// pluggable provider and caches results so that neighbouring capture ticks
// do not burn provider quota.
package weather

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/nicovlr/coastwatch/internal/conf"
	"github.com/nicovlr/coastwatch/internal/errors"
	"github.com/nicovlr/coastwatch/internal/logging"
)

// Request timeout and retry policy for provider calls.
const (
	RequestTimeout = 10 * time.Second
	MaxRetries     = 3
	RetryDelay     = 2 * time.Second
	UserAgent      = "coastwatch (github.com/nicovlr/coastwatch)"
)

// Provider represents a weather data provider interface
type Provider interface {
	FetchWeather(ctx context.Context, latitude, longitude float64) (*WeatherData, error)
}

// WeatherData represents the common structure for weather data across providers
type WeatherData struct {
	Time          time.Time
	Temperature   Temperature
	Wind          Wind
	Humidity      int
	Precipitation float64 // mm/h
	Visibility    float64 // km
	Condition     string  // clear, partly_cloudy, overcast, rain, storm, snow, fog
	Description   string
}

type Temperature struct {
	Current   float64 // degrees C
	FeelsLike float64
}

type Wind struct {
	SpeedKmh  float64
	Direction string // 16-point compass
	GustKmh   float64
}

// Service wraps a provider with a TTL cache keyed by rounded coordinates.
type Service struct {
	provider Provider
	cache    *gocache.Cache
	log      *slog.Logger
}

// NewService creates a weather service with the configured provider.
func NewService(settings *conf.WeatherSettings) (*Service, error) {
	var provider Provider

	switch settings.Provider {
	case "openweather":
		provider = NewOpenWeatherProvider(&settings.OpenWeather)
	default:
		return nil, errors.New(fmt.Errorf("invalid weather provider: %s", settings.Provider)).
			Component("weather").
			Category(errors.CategoryConfiguration).
			Context("provider", settings.Provider).
			Build()
	}

	ttl := time.Duration(settings.CacheTTL) * time.Second
	return &Service{
		provider: provider,
		cache:    gocache.New(ttl, 2*ttl),
		log:      logging.ForService("weather"),
	}, nil
}

// NewServiceWithProvider creates a service around an explicit provider,
// used by tests to inject fakes.
func NewServiceWithProvider(provider Provider, ttl time.Duration) *Service {
	return &Service{
		provider: provider,
		cache:    gocache.New(ttl, 2*ttl),
		log:      logging.ForService("weather"),
	}
}

// Get returns current weather for the coordinates, served from cache when
// a recent fetch for the same (rounded) coordinates exists.
func (s *Service) Get(ctx context.Context, latitude, longitude float64) (*WeatherData, error) {
	key := fmt.Sprintf("%.4f,%.4f", latitude, longitude)

	if cached, found := s.cache.Get(key); found {
		s.log.Debug("weather cache hit", "key", key)
		return cached.(*WeatherData), nil
	}

	data, err := s.provider.FetchWeather(ctx, latitude, longitude)
	if err != nil {
		return nil, err
	}

	s.cache.SetDefault(key, data)
	s.log.Debug("weather fetched",
		"key", key, "condition", data.Condition,
		"temp_c", data.Temperature.Current, "wind_kmh", data.Wind.SpeedKmh)
	return data, nil
}

// DegreesToCompass converts a wind bearing to a 16-point compass direction.
func DegreesToCompass(deg float64) string {
	dirs := []string{"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
		"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW"}
	idx := int(deg/22.5+0.5) % 16
	if idx < 0 {
		idx += 16
	}
	return dirs[idx]
}
