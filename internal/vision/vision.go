// Package vision sends webcam frames to a vision-language model for
// structured beach condition analysis, with emphasis on dangerous current
// (baïne) detection. The model is an external collaborator: this package
// owns prompt construction, transport and strict response parsing only.
package vision

import (
	"encoding/json"
	"strings"
	"time"
)

// Result is the parsed, validated analysis for one frame.
type Result struct {
	Currents CurrentAnalysis `json:"currents"`
	Overall  OverallAnalysis `json:"overall"`
}

// CurrentAnalysis carries the hazard flags for rip currents.
type CurrentAnalysis struct {
	DangerLevel string   `json:"danger_level"` // safe|low|moderate|high|extreme
	RipDetected bool     `json:"rip_current_detected"`
	Indicators  []string `json:"indicators"` // observed visual evidence categories
	Confidence  float64  `json:"confidence"` // 0.0-1.0
	Notes       string   `json:"notes"`
}

// OverallAnalysis summarizes conditions and suitability.
type OverallAnalysis struct {
	BeachScore     float64  `json:"beach_score"`          // 1.0-10.0
	SurfScore      *float64 `json:"surf_score"`           // nil when not a surf spot
	Summary        string   `json:"summary"`              // 2-3 sentences
	Recommendation string   `json:"recommendation"`       // free-text advice
	BestFor        []string `json:"best_for"`             // activities
}

// IsDangerousCurrent reports whether the result flags a dangerous current
// with at least the given confidence. Used by ranking as a hard veto.
func (r *Result) IsDangerousCurrent(confidenceCutoff float64) bool {
	if !r.Currents.RipDetected {
		return false
	}
	switch r.Currents.DangerLevel {
	case "high", "extreme":
		return r.Currents.Confidence >= confidenceCutoff
	default:
		return false
	}
}

// PromptContext is the per-frame context handed to the model alongside
// the image. Absent fields are simply omitted from the prompt.
type PromptContext struct {
	BeachName   string
	Region      string
	Orientation string
	SurfSpot    bool
	CapturedAt  time.Time

	PersonCount   *int
	WaveLevel     string
	WhitecapRatio *float64
	WeatherLine   string
}

// ParseResult parses the model's JSON reply. Models occasionally wrap the
// JSON in markdown fences despite instructions; those are stripped before
// decoding. Schema violations are errors, not best-effort results.
func ParseResult(raw string) (*Result, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var result Result
	decoder := json.NewDecoder(strings.NewReader(text))
	if err := decoder.Decode(&result); err != nil {
		return nil, err
	}

	if err := validateResult(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func validateResult(r *Result) error {
	switch r.Currents.DangerLevel {
	case "safe", "low", "moderate", "high", "extreme":
	default:
		return &SchemaError{Field: "currents.danger_level", Value: r.Currents.DangerLevel}
	}
	if r.Currents.Confidence < 0 || r.Currents.Confidence > 1 {
		return &SchemaError{Field: "currents.confidence", Value: r.Currents.Confidence}
	}
	if r.Overall.BeachScore < 0 || r.Overall.BeachScore > 10 {
		return &SchemaError{Field: "overall.beach_score", Value: r.Overall.BeachScore}
	}
	if r.Overall.SurfScore != nil && (*r.Overall.SurfScore < 0 || *r.Overall.SurfScore > 10) {
		return &SchemaError{Field: "overall.surf_score", Value: *r.Overall.SurfScore}
	}
	return nil
}

// SchemaError reports a model reply that parsed as JSON but violated the
// expected schema.
type SchemaError struct {
	Field string
	Value any
}

func (e *SchemaError) Error() string {
	b, _ := json.Marshal(e.Value)
	return "vision reply schema violation at " + e.Field + ": " + string(b)
}
