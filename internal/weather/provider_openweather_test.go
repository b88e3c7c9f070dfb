package weather

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicovlr/coastwatch/internal/conf"
)

const openWeatherBody = `{
	"weather": [{"id": 800, "main": "Clear", "description": "clear sky"}],
	"main": {"temp": 19.3, "feels_like": 18.9, "humidity": 62},
	"visibility": 10000,
	"wind": {"speed": 3.9, "deg": 270, "gust": 6.1},
	"dt": 1751371200
}`

func testOpenWeatherProvider() *OpenWeatherProvider {
	p := NewOpenWeatherProvider(&conf.OpenWeatherSettings{
		APIKey:   "test-key",
		Endpoint: "https://api.openweathermap.org/data/2.5/weather",
		Units:    "metric",
	})
	httpmock.ActivateNonDefault(p.client)
	return p
}

func TestFetchWeatherSuccess(t *testing.T) {
	p := testOpenWeatherProvider()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, `=~^https://api\.openweathermap\.org/data/2\.5/weather`,
		httpmock.NewStringResponder(http.StatusOK, openWeatherBody))

	data, err := p.FetchWeather(context.Background(), 43.664, -1.441)
	require.NoError(t, err)

	assert.InDelta(t, 19.3, data.Temperature.Current, 0.01)
	assert.Equal(t, 62, data.Humidity)
	assert.InDelta(t, 14.0, data.Wind.SpeedKmh, 0.1) // 3.9 m/s -> ~14 km/h
	assert.Equal(t, "W", data.Wind.Direction)
	assert.Equal(t, "clear", data.Condition)
	assert.InDelta(t, 10.0, data.Visibility, 0.01)
}

func TestFetchWeatherMissingAPIKey(t *testing.T) {
	p := NewOpenWeatherProvider(&conf.OpenWeatherSettings{})
	_, err := p.FetchWeather(context.Background(), 43.664, -1.441)
	assert.Error(t, err)
}

func TestFetchWeatherEmptyConditions(t *testing.T) {
	p := testOpenWeatherProvider()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, `=~^https://api\.openweathermap\.org/data/2\.5/weather`,
		httpmock.NewStringResponder(http.StatusOK, `{"weather": [], "main": {}}`))

	_, err := p.FetchWeather(context.Background(), 43.664, -1.441)
	assert.Error(t, err)
}
