// Package frame holds the in-memory representation of a captured webcam
// frame and the camera health classifier that decides whether a frame is
// analyzable at all. Frames are ephemeral: they live for one pipeline pass
// and only derived results are persisted.
package frame

import (
	"bytes"
	"image"
	"math"
	"time"

	// Register the decoders webcams actually serve.
	_ "image/jpeg"
	_ "image/png"

	"github.com/nicovlr/coastwatch/internal/errors"
)

// Frame is a single webcam snapshot together with its capture context.
type Frame struct {
	BeachID    string
	Data       []byte
	CapturedAt time.Time // UTC
	SourceURL  string

	decoded image.Image
}

// New wraps raw image bytes into a Frame.
func New(beachID string, data []byte, capturedAt time.Time, sourceURL string) *Frame {
	return &Frame{
		BeachID:    beachID,
		Data:       data,
		CapturedAt: capturedAt.UTC(),
		SourceURL:  sourceURL,
	}
}

// Image decodes the frame bytes, caching the result for subsequent
// detector calls within the same pipeline pass.
func (f *Frame) Image() (image.Image, error) {
	if f.decoded != nil {
		return f.decoded, nil
	}
	img, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return nil, errors.New(err).
			Component("frame").
			Category(errors.CategoryImageDecode).
			Context("beach_id", f.BeachID).
			Build()
	}
	f.decoded = img
	return img, nil
}

// GrayStats holds grayscale statistics over a frame region.
type GrayStats struct {
	Mean   float64 // mean luminance, 0-255
	StdDev float64 // luminance standard deviation
}

// statsStride subsamples pixels when computing statistics; webcam frames
// are large and per-pixel precision is not needed for health checks.
const statsStride = 4

// Stats computes grayscale statistics over the given region of img using
// the ITU-R BT.601 luma weights.
func Stats(img image.Image, region image.Rectangle) GrayStats {
	region = region.Intersect(img.Bounds())
	if region.Empty() {
		return GrayStats{}
	}

	var sum, sumSq float64
	var n int
	for y := region.Min.Y; y < region.Max.Y; y += statsStride {
		for x := region.Min.X; x < region.Max.X; x += statsStride {
			l := Luminance(img, x, y)
			sum += l
			sumSq += l * l
			n++
		}
	}
	if n == 0 {
		return GrayStats{}
	}

	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return GrayStats{Mean: mean, StdDev: math.Sqrt(variance)}
}

// Luminance returns the BT.601 luma of the pixel at (x, y) scaled to 0-255.
func Luminance(img image.Image, x, y int) float64 {
	r, g, b, _ := img.At(x, y).RGBA()
	// RGBA returns 16-bit channels
	return (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 257.0
}
