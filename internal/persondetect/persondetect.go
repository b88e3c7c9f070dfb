// Package persondetect counts people in webcam frames by calling an
// external detection model over a narrow HTTP contract: POST the image
// bytes, get a count back. The model internals (YOLO or otherwise) are
// not this system's concern.
package persondetect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nicovlr/coastwatch/internal/conf"
	"github.com/nicovlr/coastwatch/internal/errors"
)

// Detection is the model's reply for one frame.
type Detection struct {
	PersonCount   int     `json:"person_count"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// Detector calls the person-detection model endpoint.
type Detector struct {
	settings *conf.PersonDetectSettings
	client   *http.Client
}

// New creates a Detector from settings.
func New(settings *conf.PersonDetectSettings) *Detector {
	return &Detector{
		settings: settings,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Detect submits the frame and returns the person count. Any transport or
// model failure is a ModelError-category failure the caller degrades to an
// absent field.
func (d *Detector) Detect(ctx context.Context, imageBytes []byte) (*Detection, error) {
	url := fmt.Sprintf("%s?min_confidence=%.2f", d.settings.Endpoint, d.settings.Confidence)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(imageBytes))
	if err != nil {
		return nil, modelError(fmt.Errorf("building detection request: %w", err))
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, modelError(fmt.Errorf("calling detection model: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, modelError(fmt.Errorf("detection model returned %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, modelError(fmt.Errorf("reading detection response: %w", err))
	}

	var detection Detection
	if err := json.Unmarshal(body, &detection); err != nil {
		return nil, modelError(fmt.Errorf("decoding detection response: %w", err))
	}
	if detection.PersonCount < 0 {
		return nil, modelError(fmt.Errorf("detection model returned negative count %d", detection.PersonCount))
	}

	return &detection, nil
}

func modelError(err error) error {
	return errors.New(err).
		Component("persondetect").
		Category(errors.CategoryDetector).
		Build()
}
