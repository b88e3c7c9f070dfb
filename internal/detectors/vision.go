package detectors

import (
	"context"
	"fmt"

	"github.com/nicovlr/coastwatch/internal/errors"
	"github.com/nicovlr/coastwatch/internal/frame"
	"github.com/nicovlr/coastwatch/internal/vision"
)

// VisionDetector runs the AI scene analysis. It is deliberately scheduled
// after the cheap detectors so their results can feed the prompt.
type VisionDetector struct {
	client *vision.Client
}

// NewVisionDetector wraps the vision client as a capability.
func NewVisionDetector(client *vision.Client) *VisionDetector {
	return &VisionDetector{client: client}
}

func (d *VisionDetector) Name() string     { return CapabilityVision }
func (d *VisionDetector) NeedsFrame() bool { return true }
func (d *VisionDetector) Provider() string { return providerVision }

func (d *VisionDetector) Analyze(ctx context.Context, f *frame.Frame, bctx *BeachContext) (Result, error) {
	if f == nil {
		return nil, errors.NewStd("vision detector requires a frame")
	}
	if bctx == nil || bctx.Beach == nil {
		return nil, errors.NewStd("vision detector requires beach context")
	}

	result, err := d.client.AnalyzeFrame(ctx, f.Data, promptContext(f, bctx))
	if err != nil {
		return nil, err
	}
	return VisionResult{Analysis: result}, nil
}

// promptContext maps the beach context onto the vision prompt fields.
func promptContext(f *frame.Frame, bctx *BeachContext) *vision.PromptContext {
	pctx := &vision.PromptContext{
		BeachName:   bctx.Beach.Name,
		Region:      bctx.Beach.Region,
		Orientation: bctx.Beach.Metadata.Orientation,
		SurfSpot:    bctx.Beach.Metadata.SurfSpot,
		CapturedAt:  f.CapturedAt,
	}
	if bctx.Crowd != nil {
		count := bctx.Crowd.Count
		pctx.PersonCount = &count
	}
	if bctx.Waves != nil {
		pctx.WaveLevel = bctx.Waves.Level
		ratio := bctx.Waves.WhitecapRatio
		pctx.WhitecapRatio = &ratio
	}
	if bctx.Weather != nil {
		w := bctx.Weather
		pctx.WeatherLine = fmt.Sprintf("%s, %.1f°C, wind %.0f km/h %s",
			w.Condition, w.Temperature.Current, w.Wind.SpeedKmh, w.Wind.Direction)
	}
	return pctx
}
