// Package detectors defines the pluggable analyzer capabilities the
// pipeline runs over a captured frame. Each detector produces one optional
// slice of an observation and fails independently of the others: the
// orchestrator records a failed detector as an absent field, never as an
// aborted pass.
package detectors

import (
	"context"

	"github.com/nicovlr/coastwatch/internal/conf"
	"github.com/nicovlr/coastwatch/internal/frame"
	"github.com/nicovlr/coastwatch/internal/ratelimit"
	"github.com/nicovlr/coastwatch/internal/vision"
	"github.com/nicovlr/coastwatch/internal/weather"
)

// Capability names, used as registry keys and in logs.
const (
	CapabilityCrowd   = "crowd"
	CapabilityWaves   = "waves"
	CapabilityWeather = "weather"
	CapabilityVision  = "vision"
)

// Result is the tagged union of detector outputs.
type Result interface {
	Kind() string
}

// CrowdResult is the person counter output.
type CrowdResult struct {
	Count      int
	Level      string // empty|quiet|moderate|busy|crowded
	Confidence float64
}

func (CrowdResult) Kind() string { return CapabilityCrowd }

// WaveResult is the wave analyzer output.
type WaveResult struct {
	Score         float64 // 0-100
	Level         string  // flat|small|medium|large|heavy
	WhitecapRatio float64
	EdgeDensity   float64
}

func (WaveResult) Kind() string { return CapabilityWaves }

// WeatherResult wraps the weather enrichment output.
type WeatherResult struct {
	Data *weather.WeatherData
}

func (WeatherResult) Kind() string { return CapabilityWeather }

// VisionResult wraps the AI vision analysis output.
type VisionResult struct {
	Analysis *vision.Result
}

func (VisionResult) Kind() string { return CapabilityVision }

// BeachContext carries the beach identity and any results from earlier
// stages a detector may want as prompt context. Fields other than Beach
// are best-effort and may be nil.
type BeachContext struct {
	Beach   *conf.Beach
	Weather *weather.WeatherData
	Crowd   *CrowdResult
	Waves   *WaveResult
}

// Detector is one pluggable analyzer capability.
type Detector interface {
	// Name returns the capability name.
	Name() string
	// NeedsFrame reports whether the detector requires a visually valid
	// frame. Frame-dependent detectors are skipped unless the camera
	// state is working.
	NeedsFrame() bool
	// Provider returns the rate-limit provider key guarding the
	// detector's external calls, or "" for local analyzers.
	Provider() string
	// Analyze runs the detector. The passed frame may be nil for
	// detectors that do not need one.
	Analyze(ctx context.Context, f *frame.Frame, bctx *BeachContext) (Result, error)
}

// Registry maps capability names to enabled detector implementations.
type Registry map[string]Detector

// Build assembles the detector registry from configuration. Disabled
// capabilities are simply absent, which the orchestrator treats the same
// as a capability that never existed.
func Build(settings *conf.Settings, weatherService *weather.Service, visionClient *vision.Client) Registry {
	registry := Registry{
		CapabilityWaves: NewWaveDetector(),
	}
	if settings.PersonDetect.Enabled {
		registry[CapabilityCrowd] = NewCrowdDetector(&settings.PersonDetect)
	}
	if settings.Weather.Enabled && weatherService != nil {
		registry[CapabilityWeather] = NewWeatherDetector(weatherService)
	}
	if settings.Vision.Enabled && visionClient != nil {
		registry[CapabilityVision] = NewVisionDetector(visionClient)
	}
	return registry
}

// verify interface conformance at compile time
var (
	_ Detector = (*CrowdDetector)(nil)
	_ Detector = (*WaveDetector)(nil)
	_ Detector = (*WeatherDetector)(nil)
	_ Detector = (*VisionDetector)(nil)
)

// ratelimitProvider aliases keep the provider keys in one place.
const (
	providerWeather = ratelimit.ProviderWeather
	providerVision  = ratelimit.ProviderVision
)
