package detectors

import (
	"context"

	"github.com/nicovlr/coastwatch/internal/conf"
	"github.com/nicovlr/coastwatch/internal/errors"
	"github.com/nicovlr/coastwatch/internal/frame"
	"github.com/nicovlr/coastwatch/internal/persondetect"
)

// Crowd level buckets, ordered by increasing occupancy.
const (
	CrowdLevelEmpty    = "empty"
	CrowdLevelQuiet    = "quiet"
	CrowdLevelModerate = "moderate"
	CrowdLevelBusy     = "busy"
	CrowdLevelCrowded  = "crowded"
)

// CrowdLevel buckets a person count into a human-readable level.
func CrowdLevel(count int) string {
	switch {
	case count == 0:
		return CrowdLevelEmpty
	case count <= 5:
		return CrowdLevelQuiet
	case count <= 15:
		return CrowdLevelModerate
	case count <= 30:
		return CrowdLevelBusy
	default:
		return CrowdLevelCrowded
	}
}

// CrowdDetector counts people on the beach through the external
// person-detection model.
type CrowdDetector struct {
	detector *persondetect.Detector
}

// NewCrowdDetector creates the crowd capability from settings.
func NewCrowdDetector(settings *conf.PersonDetectSettings) *CrowdDetector {
	return &CrowdDetector{detector: persondetect.New(settings)}
}

func (d *CrowdDetector) Name() string     { return CapabilityCrowd }
func (d *CrowdDetector) NeedsFrame() bool { return true }
func (d *CrowdDetector) Provider() string { return "" }

func (d *CrowdDetector) Analyze(ctx context.Context, f *frame.Frame, _ *BeachContext) (Result, error) {
	if f == nil {
		return nil, errors.NewStd("crowd detector requires a frame")
	}
	detection, err := d.detector.Detect(ctx, f.Data)
	if err != nil {
		return nil, err
	}
	return CrowdResult{
		Count:      detection.PersonCount,
		Level:      CrowdLevel(detection.PersonCount),
		Confidence: detection.AvgConfidence,
	}, nil
}
