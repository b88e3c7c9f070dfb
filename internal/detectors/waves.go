package detectors

import (
	"context"
	"image"
	"math"

	"github.com/nicovlr/coastwatch/internal/errors"
	"github.com/nicovlr/coastwatch/internal/frame"
)

// Wave level buckets, ordered by increasing agitation.
const (
	WaveLevelFlat   = "flat"
	WaveLevelSmall  = "small"
	WaveLevelMedium = "medium"
	WaveLevelLarge  = "large"
	WaveLevelHeavy  = "heavy"
)

// Tunables for the pixel analysis. The water band is the lower part of the
// frame: coastal webcams are mounted looking out to sea, so the sky
// occupies the top and would drown the whitecap signal.
const (
	waterBandFraction = 0.6

	whitecapMinLuma   = 200.0 // bright
	whitecapMaxChroma = 50.0  // near-white, low saturation
	edgeLumaDelta     = 28.0  // luminance jump marking a breaking-wave edge

	waveStride = 3
)

// WaveDetector estimates surf agitation from frame pixels alone. It is the
// only capability with no external dependency and is always registered.
type WaveDetector struct{}

// NewWaveDetector creates the wave analysis capability.
func NewWaveDetector() *WaveDetector {
	return &WaveDetector{}
}

func (d *WaveDetector) Name() string     { return CapabilityWaves }
func (d *WaveDetector) NeedsFrame() bool { return true }
func (d *WaveDetector) Provider() string { return "" }

func (d *WaveDetector) Analyze(_ context.Context, f *frame.Frame, _ *BeachContext) (Result, error) {
	if f == nil {
		return nil, errors.NewStd("wave detector requires a frame")
	}
	img, err := f.Image()
	if err != nil {
		return nil, err
	}

	whitecap, edges := waterBandMetrics(img)
	metric := 0.6*whitecap + 0.4*edges

	score := math.Min(100, metric*1000)
	return WaveResult{
		Score:         math.Round(score*10) / 10,
		Level:         waveLevel(score),
		WhitecapRatio: whitecap,
		EdgeDensity:   edges,
	}, nil
}

// waterBandMetrics scans the lower water band of the frame and returns the
// whitecap pixel ratio and the horizontal edge density.
func waterBandMetrics(img image.Image) (whitecap, edges float64) {
	bounds := img.Bounds()
	bandTop := bounds.Min.Y + int(float64(bounds.Dy())*(1-waterBandFraction))
	band := image.Rect(bounds.Min.X, bandTop, bounds.Max.X, bounds.Max.Y)
	band = band.Intersect(bounds)
	if band.Empty() {
		return 0, 0
	}

	var total, white, edge int
	for y := band.Min.Y; y < band.Max.Y; y += waveStride {
		prev := frame.Luminance(img, band.Min.X, y)
		for x := band.Min.X; x < band.Max.X; x += waveStride {
			total++

			r, g, b, _ := img.At(x, y).RGBA()
			rf, gf, bf := float64(r)/257.0, float64(g)/257.0, float64(b)/257.0
			luma := 0.299*rf + 0.587*gf + 0.114*bf
			chroma := math.Max(rf, math.Max(gf, bf)) - math.Min(rf, math.Min(gf, bf))
			if luma >= whitecapMinLuma && chroma <= whitecapMaxChroma {
				white++
			}

			if x > band.Min.X && math.Abs(luma-prev) >= edgeLumaDelta {
				edge++
			}
			prev = luma
		}
	}
	if total == 0 {
		return 0, 0
	}
	return float64(white) / float64(total), float64(edge) / float64(total)
}

// waveLevel buckets a 0-100 agitation score into a human-readable level.
func waveLevel(score float64) string {
	switch {
	case score < 10:
		return WaveLevelFlat
	case score < 30:
		return WaveLevelSmall
	case score < 55:
		return WaveLevelMedium
	case score < 80:
		return WaveLevelLarge
	default:
		return WaveLevelHeavy
	}
}
