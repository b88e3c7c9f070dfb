package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nicovlr/coastwatch/internal/conf"
	"github.com/nicovlr/coastwatch/internal/errors"
)

// OpenWeatherProvider fetches current weather from the OpenWeather API.
type OpenWeatherProvider struct {
	settings *conf.OpenWeatherSettings
	client   *http.Client
}

// NewOpenWeatherProvider creates a new OpenWeather provider
func NewOpenWeatherProvider(settings *conf.OpenWeatherSettings) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		settings: settings,
		client:   &http.Client{Timeout: RequestTimeout},
	}
}

// OpenWeatherResponse represents the structure of weather data returned by the OpenWeather API
type OpenWeatherResponse struct {
	Weather []struct {
		ID          int    `json:"id"`
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Visibility int `json:"visibility"`
	Wind       struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
		Gust  float64 `json:"gust"`
	} `json:"wind"`
	Rain struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
	Snow struct {
		OneHour float64 `json:"1h"`
	} `json:"snow"`
	Dt int64 `json:"dt"`
}

// FetchWeather implements the Provider interface for OpenWeatherProvider
func (p *OpenWeatherProvider) FetchWeather(ctx context.Context, latitude, longitude float64) (*WeatherData, error) {
	if p.settings.APIKey == "" {
		return nil, errors.NewStd("OpenWeather API key not configured")
	}

	url := fmt.Sprintf("%s?lat=%.3f&lon=%.3f&appid=%s&units=%s&lang=en",
		p.settings.Endpoint, latitude, longitude, p.settings.APIKey, p.settings.Units)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	var weatherData OpenWeatherResponse
	for i := 0; i < MaxRetries; i++ {
		resp, err := p.client.Do(req)
		if err != nil {
			if i == MaxRetries-1 {
				return nil, fmt.Errorf("error fetching weather data: %w", err)
			}
			time.Sleep(RetryDelay)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			if i == MaxRetries-1 {
				return nil, fmt.Errorf("received non-200 response: %d", resp.StatusCode)
			}
			time.Sleep(RetryDelay)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("error reading response body: %w", err)
		}

		if err := json.Unmarshal(body, &weatherData); err != nil {
			return nil, fmt.Errorf("error unmarshaling weather data: %w", err)
		}

		break
	}

	if len(weatherData.Weather) == 0 {
		return nil, errors.NewStd("no weather conditions returned from API")
	}

	return &WeatherData{
		Time: time.Unix(weatherData.Dt, 0).UTC(),
		Temperature: Temperature{
			Current:   weatherData.Main.Temp,
			FeelsLike: weatherData.Main.FeelsLike,
		},
		Wind: Wind{
			// OpenWeather reports m/s with metric units
			SpeedKmh:  round1(weatherData.Wind.Speed * 3.6),
			Direction: DegreesToCompass(weatherData.Wind.Deg),
			GustKmh:   round1(weatherData.Wind.Gust * 3.6),
		},
		Humidity:      weatherData.Main.Humidity,
		Precipitation: weatherData.Rain.OneHour + weatherData.Snow.OneHour,
		Visibility:    float64(weatherData.Visibility) / 1000.0,
		Condition:     conditionFromID(weatherData.Weather[0].ID),
		Description:   weatherData.Weather[0].Description,
	}, nil
}

// conditionFromID maps OpenWeather condition codes to coastwatch
// condition strings.
func conditionFromID(id int) string {
	switch {
	case id == 800:
		return "clear"
	case id >= 801 && id <= 802:
		return "partly_cloudy"
	case id >= 803 && id <= 804:
		return "overcast"
	case id >= 200 && id < 300:
		return "storm"
	case id >= 300 && id < 600:
		return "rain"
	case id >= 600 && id < 700:
		return "snow"
	case id >= 700 && id < 800:
		return "fog"
	default:
		return "unknown"
	}
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
