// Package pipeline orchestrates one full analysis pass for a beach:
// rate-limited snapshot capture, camera health classification, parallel
// detector fan-out and the merge into a single stored observation.
//
// Partial failure is the normal operating mode. A failed detector costs
// its own fields, never the pass; only a store write failure fails RunOnce.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nicovlr/coastwatch/internal/conf"
	"github.com/nicovlr/coastwatch/internal/datastore"
	"github.com/nicovlr/coastwatch/internal/detectors"
	"github.com/nicovlr/coastwatch/internal/errors"
	"github.com/nicovlr/coastwatch/internal/frame"
	"github.com/nicovlr/coastwatch/internal/logging"
	"github.com/nicovlr/coastwatch/internal/ranking"
	"github.com/nicovlr/coastwatch/internal/ratelimit"
	"github.com/nicovlr/coastwatch/internal/webcam"
)

// Pipeline runs analysis passes. One instance serves all beaches and is
// safe for concurrent RunOnce calls.
type Pipeline struct {
	settings   *conf.Settings
	grabber    webcam.Grabber
	classifier *frame.Classifier
	registry   detectors.Registry
	limiter    *ratelimit.Limiter
	store      datastore.Interface
	log        *slog.Logger
}

// New assembles a pipeline from its collaborators.
func New(settings *conf.Settings, grabber webcam.Grabber, classifier *frame.Classifier,
	registry detectors.Registry, limiter *ratelimit.Limiter, store datastore.Interface) *Pipeline {
	return &Pipeline{
		settings:   settings,
		grabber:    grabber,
		classifier: classifier,
		registry:   registry,
		limiter:    limiter,
		store:      store,
		log:        logging.ForService("pipeline"),
	}
}

// RunOnce executes one full pass for a beach and appends the resulting
// observation. The returned observation is the stored record; the error is
// non-nil only when the observation could not be persisted.
func (p *Pipeline) RunOnce(ctx context.Context, beach *conf.Beach) (*datastore.Observation, error) {
	start := time.Now()
	passID := uuid.New().String()[:8]
	log := p.log.With("pass_id", passID, "beach_id", beach.ID)

	obs := &datastore.Observation{
		BeachID:    beach.ID,
		CapturedAt: start.UTC(),
	}
	var failures []string

	f := p.capture(ctx, beach, obs, log, &failures)

	verdict := p.classify(f, beach, obs)
	log.Info("camera state classified",
		"state", obs.CameraState, "reason", obs.CameraStateReason)

	bctx := &detectors.BeachContext{Beach: beach}
	p.runDetectorBatch(ctx, f, bctx, verdict, obs, log, &failures)
	p.runVision(ctx, f, bctx, verdict, obs, log, &failures)

	p.finalize(obs, start, failures)

	if err := p.store.Save(obs); err != nil {
		log.Error("observation write failed", "error", err)
		return nil, err
	}
	log.Info("pass complete",
		"state", obs.CameraState,
		"detector_failures", len(failures),
		"duration_ms", obs.ProcessingTimeMs)
	return obs, nil
}

// capture acquires a webcam permit and fetches the snapshot. A nil return
// means no frame; the failure is already recorded on the observation.
func (p *Pipeline) capture(ctx context.Context, beach *conf.Beach, obs *datastore.Observation,
	log *slog.Logger, failures *[]string) *frame.Frame {
	if err := p.acquire(ctx, ratelimit.ProviderWebcam); err != nil {
		log.Warn("webcam permit not granted", "error", err)
		*failures = append(*failures, "capture: "+err.Error())
		return nil
	}

	f, err := p.grabber.FetchSnapshot(ctx, beach)
	if err != nil {
		log.Warn("snapshot capture failed", "error", err)
		*failures = append(*failures, "capture: "+err.Error())
		return nil
	}
	obs.CapturedAt = f.CapturedAt
	obs.SourceURL = f.SourceURL
	return f
}

// classify derives the camera state. With no frame at all the state is
// still night when the sun is down, otherwise offline: a webcam that
// cannot be reached in the dark is most likely just unlit, not broken.
func (p *Pipeline) classify(f *frame.Frame, beach *conf.Beach, obs *datastore.Observation) frame.Verdict {
	var verdict frame.Verdict
	if f != nil {
		verdict = p.classifier.Classify(f, beach.Coordinates.Latitude, beach.Coordinates.Longitude)
	} else {
		verdict = p.classifier.Classify(
			frame.New(beach.ID, nil, obs.CapturedAt, ""),
			beach.Coordinates.Latitude, beach.Coordinates.Longitude)
		if verdict.State != frame.StateNight {
			verdict = frame.Verdict{State: frame.StateOffline, Reason: "snapshot unavailable"}
		}
	}
	obs.CameraState = string(verdict.State)
	obs.CameraStateReason = verdict.Reason
	return verdict
}

// runDetectorBatch fans out every registered detector except vision.
// Frame-dependent detectors are skipped unless the camera is working;
// frame-independent ones (weather) always run.
func (p *Pipeline) runDetectorBatch(ctx context.Context, f *frame.Frame, bctx *detectors.BeachContext,
	verdict frame.Verdict, obs *datastore.Observation, log *slog.Logger, failures *[]string) {

	type outcome struct {
		name   string
		result detectors.Result
		err    error
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var outcomes []outcome

	for name, d := range p.registry {
		if name == detectors.CapabilityVision {
			continue
		}
		if d.NeedsFrame() && verdict.State != frame.StateWorking {
			continue
		}

		wg.Add(1)
		go func(name string, d detectors.Detector) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					outcomes = append(outcomes, outcome{name: name,
						err: errors.Newf("detector panicked: %v", r).Component("pipeline").Build()})
					mu.Unlock()
				}
			}()

			result, err := p.runDetector(ctx, d, f, bctx)
			mu.Lock()
			outcomes = append(outcomes, outcome{name: name, result: result, err: err})
			mu.Unlock()
		}(name, d)
	}
	wg.Wait()

	for _, o := range outcomes {
		if o.err != nil {
			log.Warn("detector failed", "detector", o.name, "error", o.err)
			*failures = append(*failures, o.name+": "+o.err.Error())
			continue
		}
		mergeResult(obs, bctx, o.result)
	}
}

// runVision runs the vision detector last so the cheap detector outputs
// can feed its prompt.
func (p *Pipeline) runVision(ctx context.Context, f *frame.Frame, bctx *detectors.BeachContext,
	verdict frame.Verdict, obs *datastore.Observation, log *slog.Logger, failures *[]string) {
	d, ok := p.registry[detectors.CapabilityVision]
	if !ok || verdict.State != frame.StateWorking {
		return
	}

	result, err := p.runDetector(ctx, d, f, bctx)
	if err != nil {
		log.Warn("detector failed", "detector", d.Name(), "error", err)
		*failures = append(*failures, d.Name()+": "+err.Error())
		return
	}
	mergeResult(obs, bctx, result)
}

// runDetector wraps one detector call with its provider permit and the
// per-detector timeout.
func (p *Pipeline) runDetector(ctx context.Context, d detectors.Detector,
	f *frame.Frame, bctx *detectors.BeachContext) (detectors.Result, error) {
	if provider := d.Provider(); provider != "" {
		if err := p.acquire(ctx, provider); err != nil {
			return nil, err
		}
	}

	timeout := time.Duration(p.settings.Capture.DetectorTimeout * float64(time.Second))
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.Analyze(callCtx, f, bctx)
}

// acquire waits for a provider permit, bounded by the configured deadline.
func (p *Pipeline) acquire(ctx context.Context, provider string) error {
	deadline := time.Duration(p.settings.Capture.RateLimitDeadline * float64(time.Second))
	waitCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()
	return p.limiter.Acquire(waitCtx, provider)
}

// mergeResult writes one detector result into the observation and into the
// beach context for later stages.
func mergeResult(obs *datastore.Observation, bctx *detectors.BeachContext, result detectors.Result) {
	switch r := result.(type) {
	case detectors.CrowdResult:
		crowd := r
		bctx.Crowd = &crowd
		obs.PersonCount = &crowd.Count
		obs.PersonConfidence = &crowd.Confidence
		if crowd.Level != "" {
			obs.PersonLevel = &crowd.Level
		}

	case detectors.WaveResult:
		waves := r
		bctx.Waves = &waves
		obs.WaveScore = &waves.Score
		obs.WaveLevel = &waves.Level
		obs.WhitecapRatio = &waves.WhitecapRatio
		obs.EdgeDensity = &waves.EdgeDensity

	case detectors.WeatherResult:
		w := r.Data
		bctx.Weather = w
		obs.WeatherTempC = &w.Temperature.Current
		obs.WeatherFeelsLikeC = &w.Temperature.FeelsLike
		obs.WeatherHumidityPct = &w.Humidity
		obs.WeatherWindSpeedKmh = &w.Wind.SpeedKmh
		obs.WeatherWindDirection = &w.Wind.Direction
		obs.WeatherWindGustKmh = &w.Wind.GustKmh
		obs.WeatherCondition = &w.Condition
		obs.WeatherDescription = &w.Description
		obs.WeatherPrecipitationMm = &w.Precipitation
		obs.WeatherVisibilityKm = &w.Visibility

	case detectors.VisionResult:
		v := r.Analysis
		obs.VisionDangerLevel = &v.Currents.DangerLevel
		obs.VisionRipDetected = &v.Currents.RipDetected
		obs.VisionIndicators = jsonList(v.Currents.Indicators)
		obs.VisionConfidence = &v.Currents.Confidence
		obs.VisionNotes = &v.Currents.Notes
		obs.VisionSummary = &v.Overall.Summary
		obs.VisionRecommendation = &v.Overall.Recommendation
		obs.VisionBestFor = jsonList(v.Overall.BestFor)
		obs.VisionBeachScore = &v.Overall.BeachScore
		obs.VisionSurfScore = v.Overall.SurfScore
	}
}

// finalize computes the composite scores, the hazard veto and the pass
// metadata once every detector has reported.
func (p *Pipeline) finalize(obs *datastore.Observation, start time.Time, failures []string) {
	if obs.VisionRipDetected != nil && *obs.VisionRipDetected &&
		obs.VisionDangerLevel != nil && obs.VisionConfidence != nil {
		switch *obs.VisionDangerLevel {
		case "high", "extreme":
			obs.HazardVeto = *obs.VisionConfidence >= p.settings.Vision.HazardConfidence
		}
	}

	if obs.IsRankable() {
		if score, ok := ranking.Score(obs, ranking.ActivitySurfing); ok {
			obs.SurfScore = &score
		}
		if score, ok := ranking.Score(obs, ranking.ActivitySwimming); ok {
			obs.SwimScore = &score
		}
	}

	obs.ProcessingTimeMs = time.Since(start).Milliseconds()
	if len(failures) > 0 {
		msg := strings.Join(failures, "; ")
		obs.ErrorMessage = &msg
	}
}

// jsonList encodes a string list for a text column, nil when empty.
func jsonList(items []string) *string {
	if len(items) == 0 {
		return nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		s := fmt.Sprintf("%q", strings.Join(items, ","))
		return &s
	}
	s := string(b)
	return &s
}
