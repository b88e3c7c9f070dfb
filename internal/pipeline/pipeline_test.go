package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicovlr/coastwatch/internal/conf"
	"github.com/nicovlr/coastwatch/internal/datastore"
	"github.com/nicovlr/coastwatch/internal/detectors"
	"github.com/nicovlr/coastwatch/internal/errors"
	"github.com/nicovlr/coastwatch/internal/frame"
	"github.com/nicovlr/coastwatch/internal/logging"
	"github.com/nicovlr/coastwatch/internal/ratelimit"
	"github.com/nicovlr/coastwatch/internal/suncalc"
	"github.com/nicovlr/coastwatch/internal/vision"
	"github.com/nicovlr/coastwatch/internal/weather"
)

func TestMain(m *testing.M) {
	logging.Init(8)
	m.Run()
}

var (
	daytimeCapture = time.Date(2025, 7, 14, 12, 0, 0, 0, time.UTC)
	nightCapture   = time.Date(2025, 7, 15, 1, 0, 0, 0, time.UTC)
)

func testBeach() *conf.Beach {
	return &conf.Beach{
		ID:          "hossegor-plage",
		Name:        "Hossegor Plage Centrale",
		Region:      "Landes",
		Coordinates: conf.Coordinates{Latitude: 43.664, Longitude: -1.441},
		Webcam:      conf.WebcamConfig{SnapshotURL: "http://cam.example/snap.jpg"},
		Metadata:    conf.BeachMetadata{Orientation: "west", SurfSpot: true},
	}
}

func testSettings() *conf.Settings {
	settings := &conf.Settings{}
	settings.Capture.DetectorTimeout = 5
	settings.Capture.RateLimitDeadline = 0.2
	settings.Camera.DarkLuminance = 30
	settings.Camera.UniformStdDev = 12
	settings.Camera.MinDimensionPx = 16
	settings.Vision.HazardConfidence = 0.7
	settings.RateLimit.Webcam.RequestsPerMinute = 60
	settings.RateLimit.Weather.RequestsPerMinute = 60
	settings.RateLimit.Vision.RequestsPerMinute = 60
	return settings
}

// daylightFrame encodes a block checkerboard that classifies as working:
// bright enough and far from uniform.
func daylightFrame(t *testing.T, capturedAt time.Time) *frame.Frame {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if (x/4+y/4)%2 == 0 {
				img.Set(x, y, color.RGBA{220, 220, 220, 255})
			} else {
				img.Set(x, y, color.RGBA{60, 60, 60, 255})
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return frame.New("hossegor-plage", buf.Bytes(), capturedAt, "http://cam.example/snap.jpg")
}

type fakeGrabber struct {
	frame *frame.Frame
	err   error
}

func (g *fakeGrabber) FetchSnapshot(_ context.Context, _ *conf.Beach) (*frame.Frame, error) {
	return g.frame, g.err
}

type fakeStore struct {
	datastore.Interface
	saved   []*datastore.Observation
	saveErr error
}

func (s *fakeStore) Save(obs *datastore.Observation) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, obs)
	return nil
}

type stubDetector struct {
	name       string
	needsFrame bool
	provider   string
	result     detectors.Result
	err        error
	panics     bool

	calls    atomic.Int32
	lastBctx atomic.Pointer[detectors.BeachContext]
}

func (d *stubDetector) Name() string     { return d.name }
func (d *stubDetector) NeedsFrame() bool { return d.needsFrame }
func (d *stubDetector) Provider() string { return d.provider }

func (d *stubDetector) Analyze(_ context.Context, _ *frame.Frame, bctx *detectors.BeachContext) (detectors.Result, error) {
	d.calls.Add(1)
	d.lastBctx.Store(bctx)
	if d.panics {
		panic("detector blew up")
	}
	return d.result, d.err
}

func newPipeline(settings *conf.Settings, grabber *fakeGrabber,
	registry detectors.Registry, store *fakeStore) *Pipeline {
	classifier := frame.NewClassifier(suncalc.New(), settings.Camera)
	limiter := ratelimit.New(&settings.RateLimit)
	return New(settings, grabber, classifier, registry, limiter, store)
}

func TestRunOnceHappyPath(t *testing.T) {
	settings := testSettings()
	store := &fakeStore{}
	registry := detectors.Registry{
		detectors.CapabilityCrowd: &stubDetector{
			name: detectors.CapabilityCrowd, needsFrame: true,
			result: detectors.CrowdResult{Count: 4, Level: "quiet", Confidence: 0.82},
		},
		detectors.CapabilityWaves: &stubDetector{
			name: detectors.CapabilityWaves, needsFrame: true,
			result: detectors.WaveResult{Score: 70, Level: "large", WhitecapRatio: 0.08, EdgeDensity: 0.12},
		},
		detectors.CapabilityWeather: &stubDetector{
			name: detectors.CapabilityWeather, provider: ratelimit.ProviderWeather,
			result: detectors.WeatherResult{Data: &weather.WeatherData{
				Temperature: weather.Temperature{Current: 23},
				Wind:        weather.Wind{SpeedKmh: 12, Direction: "W"},
				Condition:   "clear",
			}},
		},
	}
	p := newPipeline(settings, &fakeGrabber{frame: daylightFrame(t, daytimeCapture)}, registry, store)

	obs, err := p.RunOnce(context.Background(), testBeach())
	require.NoError(t, err)
	require.Len(t, store.saved, 1)
	assert.Same(t, obs, store.saved[0])

	assert.Equal(t, "working", obs.CameraState)
	assert.Nil(t, obs.ErrorMessage)
	require.NotNil(t, obs.PersonCount)
	assert.Equal(t, 4, *obs.PersonCount)
	require.NotNil(t, obs.PersonLevel)
	assert.Equal(t, "quiet", *obs.PersonLevel)
	require.NotNil(t, obs.WaveScore)
	assert.InDelta(t, 70, *obs.WaveScore, 0.001)
	require.NotNil(t, obs.WeatherCondition)
	assert.Equal(t, "clear", *obs.WeatherCondition)
	require.NotNil(t, obs.SurfScore, "composite scores are computed for rankable observations")
	require.NotNil(t, obs.SwimScore)
	// wave 70*0.6 + crowd 68*0.25, normalized by 0.85
	assert.InDelta(t, 69.41, *obs.SurfScore, 0.01)
	assert.False(t, obs.HazardVeto)
}

func TestRunOnceDetectorFailureCostsOnlyItsFields(t *testing.T) {
	settings := testSettings()
	store := &fakeStore{}
	registry := detectors.Registry{
		detectors.CapabilityCrowd: &stubDetector{
			name: detectors.CapabilityCrowd, needsFrame: true,
			err: errors.NewStd("model unavailable"),
		},
		detectors.CapabilityWaves: &stubDetector{
			name: detectors.CapabilityWaves, needsFrame: true,
			result: detectors.WaveResult{Score: 55, Level: "medium"},
		},
	}
	p := newPipeline(settings, &fakeGrabber{frame: daylightFrame(t, daytimeCapture)}, registry, store)

	obs, err := p.RunOnce(context.Background(), testBeach())
	require.NoError(t, err, "a detector failure must not fail the pass")

	assert.Nil(t, obs.PersonCount, "failed detector reports as absent, not zero")
	require.NotNil(t, obs.WaveScore)
	assert.InDelta(t, 55, *obs.WaveScore, 0.001)
	require.NotNil(t, obs.ErrorMessage)
	assert.Contains(t, *obs.ErrorMessage, "crowd")
	assert.True(t, obs.IsRankable(), "the surviving sub-score keeps the observation rankable")
}

func TestRunOnceDetectorPanicIsContained(t *testing.T) {
	settings := testSettings()
	store := &fakeStore{}
	registry := detectors.Registry{
		detectors.CapabilityCrowd: &stubDetector{
			name: detectors.CapabilityCrowd, needsFrame: true, panics: true,
		},
		detectors.CapabilityWaves: &stubDetector{
			name: detectors.CapabilityWaves, needsFrame: true,
			result: detectors.WaveResult{Score: 40, Level: "medium"},
		},
	}
	p := newPipeline(settings, &fakeGrabber{frame: daylightFrame(t, daytimeCapture)}, registry, store)

	obs, err := p.RunOnce(context.Background(), testBeach())
	require.NoError(t, err)
	require.NotNil(t, obs.ErrorMessage)
	assert.Contains(t, *obs.ErrorMessage, "crowd")
	require.NotNil(t, obs.WaveScore)
}

func TestRunOnceFetchFailureStillRecordsObservation(t *testing.T) {
	settings := testSettings()
	store := &fakeStore{}
	weatherStub := &stubDetector{
		name: detectors.CapabilityWeather, provider: ratelimit.ProviderWeather,
		result: detectors.WeatherResult{Data: &weather.WeatherData{Condition: "overcast"}},
	}
	crowdStub := &stubDetector{name: detectors.CapabilityCrowd, needsFrame: true}
	registry := detectors.Registry{
		detectors.CapabilityWeather: weatherStub,
		detectors.CapabilityCrowd:   crowdStub,
	}
	grabber := &fakeGrabber{err: errors.NewStd("all URLs failed")}
	p := newPipeline(settings, grabber, registry, store)

	obs, err := p.RunOnce(context.Background(), testBeach())
	require.NoError(t, err, "capture failure degrades, it does not abort")

	assert.Equal(t, "offline", obs.CameraState)
	assert.Equal(t, "snapshot unavailable", obs.CameraStateReason)
	require.NotNil(t, obs.ErrorMessage)
	assert.Contains(t, *obs.ErrorMessage, "capture")

	assert.Equal(t, int32(0), crowdStub.calls.Load(), "frame detectors are skipped without a frame")
	assert.Equal(t, int32(1), weatherStub.calls.Load(), "weather needs no frame and still runs")
	require.NotNil(t, obs.WeatherCondition)
	assert.False(t, obs.IsRankable())
}

func TestRunOnceNightSkipsFrameDetectors(t *testing.T) {
	settings := testSettings()
	store := &fakeStore{}
	crowdStub := &stubDetector{name: detectors.CapabilityCrowd, needsFrame: true}
	visionStub := &stubDetector{name: detectors.CapabilityVision, needsFrame: true}
	registry := detectors.Registry{
		detectors.CapabilityCrowd:  crowdStub,
		detectors.CapabilityVision: visionStub,
	}
	p := newPipeline(settings, &fakeGrabber{frame: daylightFrame(t, nightCapture)}, registry, store)

	obs, err := p.RunOnce(context.Background(), testBeach())
	require.NoError(t, err)

	assert.Equal(t, "night", obs.CameraState, "solar position wins over pixel content")
	assert.Equal(t, int32(0), crowdStub.calls.Load())
	assert.Equal(t, int32(0), visionStub.calls.Load())
	assert.Nil(t, obs.ErrorMessage)
}

func TestRunOnceVisionRunsLastWithStageContext(t *testing.T) {
	settings := testSettings()
	store := &fakeStore{}

	surfScore := 8.0
	visionStub := &stubDetector{
		name: detectors.CapabilityVision, needsFrame: true, provider: ratelimit.ProviderVision,
		result: detectors.VisionResult{Analysis: &vision.Result{
			Currents: vision.CurrentAnalysis{
				DangerLevel: "high",
				RipDetected: true,
				Indicators:  []string{"gap in breaking waves", "seaward foam channel"},
				Confidence:  0.9,
				Notes:       "strong baïne channel visible at low tide",
			},
			Overall: vision.OverallAnalysis{
				BeachScore: 6.5,
				SurfScore:  &surfScore,
				Summary:    "clean swell but a pronounced rip channel",
				BestFor:    []string{"experienced surfers"},
			},
		}},
	}
	registry := detectors.Registry{
		detectors.CapabilityWaves: &stubDetector{
			name: detectors.CapabilityWaves, needsFrame: true,
			result: detectors.WaveResult{Score: 75, Level: "large"},
		},
		detectors.CapabilityVision: visionStub,
	}
	p := newPipeline(settings, &fakeGrabber{frame: daylightFrame(t, daytimeCapture)}, registry, store)

	obs, err := p.RunOnce(context.Background(), testBeach())
	require.NoError(t, err)

	bctx := visionStub.lastBctx.Load()
	require.NotNil(t, bctx)
	require.NotNil(t, bctx.Waves, "vision must see the earlier wave result")
	assert.Equal(t, "large", bctx.Waves.Level)

	assert.True(t, obs.HazardVeto, "high danger at 0.9 confidence crosses the 0.7 cutoff")
	require.NotNil(t, obs.VisionIndicators)
	assert.Contains(t, *obs.VisionIndicators, "seaward foam channel")
	require.NotNil(t, obs.VisionSurfScore)
	assert.InDelta(t, 8.0, *obs.VisionSurfScore, 0.001)
}

func TestRunOnceLowConfidenceHazardDoesNotVeto(t *testing.T) {
	settings := testSettings()
	store := &fakeStore{}
	registry := detectors.Registry{
		detectors.CapabilityVision: &stubDetector{
			name: detectors.CapabilityVision, needsFrame: true,
			result: detectors.VisionResult{Analysis: &vision.Result{
				Currents: vision.CurrentAnalysis{DangerLevel: "high", RipDetected: true, Confidence: 0.5},
				Overall:  vision.OverallAnalysis{BeachScore: 5},
			}},
		},
	}
	p := newPipeline(settings, &fakeGrabber{frame: daylightFrame(t, daytimeCapture)}, registry, store)

	obs, err := p.RunOnce(context.Background(), testBeach())
	require.NoError(t, err)
	assert.False(t, obs.HazardVeto)
}

func TestRunOnceWebcamRateLimited(t *testing.T) {
	settings := testSettings()
	settings.RateLimit.Webcam.RequestsPerMinute = 1
	store := &fakeStore{}

	classifier := frame.NewClassifier(suncalc.New(), settings.Camera)
	limiter := ratelimit.New(&settings.RateLimit)
	require.True(t, limiter.TryAcquire(ratelimit.ProviderWebcam), "drain the single permit")

	grabber := &fakeGrabber{frame: daylightFrame(t, daytimeCapture)}
	p := New(settings, grabber, classifier, detectors.Registry{}, limiter, store)

	obs, err := p.RunOnce(context.Background(), testBeach())
	require.NoError(t, err)
	assert.Equal(t, "offline", obs.CameraState)
	require.NotNil(t, obs.ErrorMessage)
	assert.Contains(t, *obs.ErrorMessage, "capture")
}

func TestRunOnceStoreFailureIsTheOnlyFatalError(t *testing.T) {
	settings := testSettings()
	store := &fakeStore{saveErr: errors.NewStd("disk full")}
	p := newPipeline(settings, &fakeGrabber{frame: daylightFrame(t, daytimeCapture)}, detectors.Registry{}, store)

	_, err := p.RunOnce(context.Background(), testBeach())
	assert.Error(t, err)
}
