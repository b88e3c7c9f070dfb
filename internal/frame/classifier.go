package frame

import (
	"fmt"

	"github.com/nicovlr/coastwatch/internal/conf"
	"github.com/nicovlr/coastwatch/internal/suncalc"
)

// CameraState is the health verdict for a webcam's current frame.
type CameraState string

const (
	StateWorking    CameraState = "working"
	StateNight      CameraState = "night"
	StateOffline    CameraState = "offline"
	StateObstructed CameraState = "obstructed"
)

// Verdict is a camera state with a human-readable reason, persisted with
// the observation for operator triage.
type Verdict struct {
	State  CameraState
	Reason string
}

// Classifier derives a camera health verdict from a frame and the solar
// context of the beach. The check order is a fixed policy:
//
//  1. local night => night, regardless of pixel content
//  2. daytime but dark frame => offline
//  3. daytime, lit but near-uniform frame => obstructed
//  4. otherwise working
//
// Darkness is evaluated before uniformity: a frame that is both dark and
// flat reports offline, since darkness is the stronger signal of total
// camera failure.
type Classifier struct {
	sun      *suncalc.SunCalc
	settings conf.CameraSettings
}

// NewClassifier creates a classifier with the given thresholds.
func NewClassifier(sun *suncalc.SunCalc, settings conf.CameraSettings) *Classifier {
	return &Classifier{sun: sun, settings: settings}
}

// Classify returns the camera state for a frame captured at the given
// beach coordinates. It is a pure function of the frame, the coordinates
// and the capture instant.
func (c *Classifier) Classify(f *Frame, latitude, longitude float64) Verdict {
	if !c.sun.IsDaytime(latitude, longitude, f.CapturedAt) {
		return Verdict{State: StateNight, Reason: "sun below horizon at capture time"}
	}

	img, err := f.Image()
	if err != nil {
		return Verdict{State: StateOffline, Reason: "image decode failed"}
	}

	bounds := img.Bounds()
	if bounds.Dx() < c.settings.MinDimensionPx || bounds.Dy() < c.settings.MinDimensionPx {
		return Verdict{
			State:  StateOffline,
			Reason: fmt.Sprintf("frame too small (%dx%d)", bounds.Dx(), bounds.Dy()),
		}
	}

	stats := Stats(img, bounds)

	if stats.Mean < c.settings.DarkLuminance {
		return Verdict{
			State:  StateOffline,
			Reason: fmt.Sprintf("dark frame during daytime (luminance %.1f)", stats.Mean),
		}
	}

	if stats.StdDev < c.settings.UniformStdDev {
		return Verdict{
			State:  StateObstructed,
			Reason: fmt.Sprintf("near-uniform frame (stddev %.1f)", stats.StdDev),
		}
	}

	return Verdict{State: StateWorking}
}
