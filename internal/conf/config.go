// Package conf loads and validates the coastwatch configuration: the
// application settings tree (config.yaml) and the static beach registry
// (beaches.yaml). Settings are read once at startup and treated as
// read-only by the rest of the system.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// LogConfig defines the configuration for the log file
type LogConfig struct {
	Enabled bool   // true to enable file logging
	Path    string // path to log file
}

// MainSettings contains process-wide settings
type MainSettings struct {
	Name string    // node name, used in log attributes
	Log  LogConfig // log file settings
}

// CaptureSettings bounds the capture scheduler and the snapshot fetches
type CaptureSettings struct {
	Interval          int     // seconds between daemon ticks
	MaxConcurrent     int     // max beaches processed in parallel per tick
	RequestTimeout    float64 // per-HTTP-call timeout in seconds
	MaxRetries        int     // snapshot fetch retries per URL
	RetryBackoff      float64 // initial retry backoff in seconds
	DetectorTimeout   float64 // per-detector call timeout in seconds
	RateLimitDeadline float64 // max seconds to wait for a provider permit
}

// CameraSettings holds the camera state classifier thresholds.
// The precedence of the checks is fixed in code; only the numeric
// cutoffs are policy.
type CameraSettings struct {
	DarkLuminance    float64 // mean luminance below this during daytime => offline
	UniformStdDev    float64 // grayscale stddev below this => obstructed
	MinDimensionPx   int     // frames smaller than this are unusable
}

// WeatherSettings configures the weather enrichment detector
type WeatherSettings struct {
	Enabled     bool
	Provider    string // only "openweather" is implemented
	OpenWeather OpenWeatherSettings
	CacheTTL    int // seconds to cache per-coordinate results
}

// OpenWeatherSettings for the OpenWeather API integration
type OpenWeatherSettings struct {
	APIKey   string
	Endpoint string
	Units    string
}

// VisionSettings configures the AI vision hazard analyzer
type VisionSettings struct {
	Enabled          bool
	APIKey           string
	Endpoint         string
	Model            string
	MaxTokens        int
	HazardConfidence float64 // cutoff above which a dangerous-current flag vetoes ranking
}

// PersonDetectSettings configures the external person-detection model endpoint
type PersonDetectSettings struct {
	Enabled    bool
	Endpoint   string  // HTTP endpoint of the detection sidecar
	Confidence float64 // minimum box confidence counted
}

// ProviderQuota expresses one provider's call budget
type ProviderQuota struct {
	RequestsPerMinute int     // rolling per-minute quota
	MinSpacing        float64 // minimum seconds between calls, 0 to disable
	DailyBudget       int     // hard daily cap, 0 to disable
}

// RateLimitSettings holds per-provider quotas
type RateLimitSettings struct {
	Webcam  ProviderQuota
	Weather ProviderQuota
	Vision  ProviderQuota
}

// SQLiteSettings contains settings for the SQLite observation store
type SQLiteSettings struct {
	Enabled bool
	Path    string
}

// MySQLSettings contains settings for the MySQL observation store
type MySQLSettings struct {
	Enabled  bool
	Username string
	Password string
	Database string
	Host     string
	Port     string
}

// OutputSettings selects and configures the observation store backend
type OutputSettings struct {
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// RankSettings bounds ranking queries
type RankSettings struct {
	MaxAge          int    // minutes; observations older than this are not ranked
	DefaultActivity string // activity used when the caller does not specify one
}

// Settings is the root of the configuration tree
type Settings struct {
	Debug bool

	Main         MainSettings
	Capture      CaptureSettings
	Camera       CameraSettings
	Weather      WeatherSettings
	Vision       VisionSettings
	PersonDetect PersonDetectSettings
	RateLimit    RateLimitSettings
	Output       OutputSettings
	Rank         RankSettings

	BeachesFile string // path to beaches.yaml, resolved at load time
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// Setting returns the current settings instance, or nil before Load.
func Setting() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("COASTWATCH")
	viper.AutomaticEnv()

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// No config file is fine, defaults plus env cover a fresh install
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPaths returns the search paths for config.yaml and
// beaches.yaml: current directory first, then the user config directory.
func GetDefaultConfigPaths() ([]string, error) {
	paths := []string{"."}

	home, err := os.UserHomeDir()
	if err != nil {
		return paths, nil //nolint:nilerr // fall back to cwd-only search
	}
	paths = append(paths, filepath.Join(home, ".config", "coastwatch"))
	return paths, nil
}
