// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "coastwatch")
	viper.SetDefault("main.log.enabled", false)
	viper.SetDefault("main.log.path", "coastwatch.log")

	viper.SetDefault("capture.interval", 300)
	viper.SetDefault("capture.maxconcurrent", 4)
	viper.SetDefault("capture.requesttimeout", 15.0)
	viper.SetDefault("capture.maxretries", 3)
	viper.SetDefault("capture.retrybackoff", 5.0)
	viper.SetDefault("capture.detectortimeout", 30.0)
	viper.SetDefault("capture.ratelimitdeadline", 10.0)

	viper.SetDefault("camera.darkluminance", 30.0)
	viper.SetDefault("camera.uniformstddev", 12.0)
	viper.SetDefault("camera.mindimensionpx", 100)

	viper.SetDefault("weather.enabled", true)
	viper.SetDefault("weather.provider", "openweather")
	viper.SetDefault("weather.openweather.endpoint", "https://api.openweathermap.org/data/2.5/weather")
	viper.SetDefault("weather.openweather.units", "metric")
	viper.SetDefault("weather.cachettl", 900)

	viper.SetDefault("vision.enabled", true)
	viper.SetDefault("vision.endpoint", "https://api.anthropic.com/v1/messages")
	viper.SetDefault("vision.model", "claude-sonnet-4-20250514")
	viper.SetDefault("vision.maxtokens", 1024)
	viper.SetDefault("vision.hazardconfidence", 0.7)

	viper.SetDefault("persondetect.enabled", true)
	viper.SetDefault("persondetect.endpoint", "http://127.0.0.1:8573/detect")
	viper.SetDefault("persondetect.confidence", 0.35)

	viper.SetDefault("ratelimit.webcam.requestsperminute", 60)
	viper.SetDefault("ratelimit.webcam.minspacing", 0.0)
	viper.SetDefault("ratelimit.webcam.dailybudget", 0)
	viper.SetDefault("ratelimit.weather.requestsperminute", 50)
	viper.SetDefault("ratelimit.weather.minspacing", 0.0)
	viper.SetDefault("ratelimit.weather.dailybudget", 0)
	viper.SetDefault("ratelimit.vision.requestsperminute", 30)
	viper.SetDefault("ratelimit.vision.minspacing", 1.0)
	viper.SetDefault("ratelimit.vision.dailybudget", 500)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "coastwatch.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "coastwatch")
	viper.SetDefault("output.mysql.database", "coastwatch")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	viper.SetDefault("rank.maxage", 30)
	viper.SetDefault("rank.defaultactivity", "surfing")

	viper.SetDefault("beachesfile", "beaches.yaml")
}
