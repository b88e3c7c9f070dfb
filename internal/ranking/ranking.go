// Package ranking turns stored observations into activity-ordered beach
// recommendations. Scores are weighted means over whichever sub-scores an
// observation actually has; a missing detector result drops out of the
// weighting instead of counting as zero, so a beach is never punished for
// a detector outage.
package ranking

import (
	"fmt"
	"sort"

	"github.com/nicovlr/coastwatch/internal/datastore"
	"github.com/nicovlr/coastwatch/internal/errors"
)

// Activity selects the scoring profile.
type Activity string

const (
	ActivitySurfing  Activity = "surfing"
	ActivitySwimming Activity = "swimming"
)

// ParseActivity validates a user-supplied activity name.
func ParseActivity(s string) (Activity, error) {
	switch Activity(s) {
	case ActivitySurfing, ActivitySwimming:
		return Activity(s), nil
	default:
		return "", errors.New(fmt.Errorf("unknown activity %q (want surfing or swimming)", s)).
			Component("ranking").
			Category(errors.CategoryValidation).
			Build()
	}
}

// RankedBeach is one entry of a ranking result.
type RankedBeach struct {
	BeachID     string
	Score       float64
	Vetoed      bool
	Observation *datastore.Observation
}

// Scoring weights per activity profile.
const (
	surfWaveWeight   = 0.6
	surfCrowdWeight  = 0.25
	surfVisionWeight = 0.15

	swimCrowdWeight   = 0.3
	swimCalmWeight    = 0.3
	swimWeatherWeight = 0.4
)

// crowdPenaltyPerPerson converts a head count into an inverse 0-100 score.
const crowdPenaltyPerPerson = 8.0

// Rank orders observations for the given activity, best first. Only
// rankable observations (working camera, at least one sub-score) are
// considered. Hazard-vetoed beaches always sort below every non-vetoed
// beach regardless of raw score; ties break toward the fresher
// observation.
func Rank(observations []datastore.Observation, activity Activity) []RankedBeach {
	ranked := make([]RankedBeach, 0, len(observations))
	for i := range observations {
		obs := &observations[i]
		if !obs.IsRankable() {
			continue
		}
		score, ok := Score(obs, activity)
		if !ok {
			continue
		}
		ranked = append(ranked, RankedBeach{
			BeachID:     obs.BeachID,
			Score:       score,
			Vetoed:      obs.HazardVeto,
			Observation: obs,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Vetoed != b.Vetoed {
			return !a.Vetoed
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Observation.CapturedAt.After(b.Observation.CapturedAt)
	})
	return ranked
}

// Score computes the activity score for one observation. The second return
// is false when no sub-score relevant to the activity is present.
func Score(obs *datastore.Observation, activity Activity) (float64, bool) {
	switch activity {
	case ActivitySwimming:
		return swimmingScore(obs)
	default:
		return surfingScore(obs)
	}
}

func surfingScore(obs *datastore.Observation) (float64, bool) {
	var acc weightedMean
	if obs.WaveScore != nil {
		acc.add(clamp(*obs.WaveScore), surfWaveWeight)
	}
	if obs.PersonCount != nil {
		acc.add(CrowdScore(*obs.PersonCount), surfCrowdWeight)
	}
	if obs.VisionSurfScore != nil {
		// model scores 1-10, composite scale is 0-100
		acc.add(clamp(*obs.VisionSurfScore*10), surfVisionWeight)
	}
	return acc.value()
}

func swimmingScore(obs *datastore.Observation) (float64, bool) {
	var acc weightedMean
	if obs.PersonCount != nil {
		acc.add(CrowdScore(*obs.PersonCount), swimCrowdWeight)
	}
	if obs.WaveScore != nil {
		// swimmers want calm water, so the wave score inverts
		acc.add(clamp(100-*obs.WaveScore), swimCalmWeight)
	}
	if ws, ok := WeatherScore(obs); ok {
		acc.add(ws, swimWeatherWeight)
	}
	return acc.value()
}

// CrowdScore maps a person count to an inverse 0-100 score: an empty beach
// scores 100 and every person costs a fixed penalty down to 0.
func CrowdScore(count int) float64 {
	return clamp(100 - crowdPenaltyPerPerson*float64(count))
}

// conditionScores rates sky conditions for beach comfort.
var conditionScores = map[string]float64{
	"clear":         100,
	"partly_cloudy": 85,
	"overcast":      60,
	"fog":           40,
	"rain":          25,
	"snow":          20,
	"storm":         0,
}

// WeatherScore derives a 0-100 comfort score from the weather fields of an
// observation. The second return is false when no weather data is present.
func WeatherScore(obs *datastore.Observation) (float64, bool) {
	if obs.WeatherCondition == nil {
		return 0, false
	}
	score, known := conditionScores[*obs.WeatherCondition]
	if !known {
		score = 50
	}

	if obs.WeatherTempC != nil {
		t := *obs.WeatherTempC
		switch {
		case t < 20:
			score -= 2 * (20 - t)
		case t > 28:
			score -= 2 * (t - 28)
		}
	}
	if obs.WeatherWindSpeedKmh != nil && *obs.WeatherWindSpeedKmh > 30 {
		score -= *obs.WeatherWindSpeedKmh - 30
	}
	return clamp(score), true
}

// weightedMean accumulates (value, weight) pairs and normalizes by the sum
// of weights actually contributed.
type weightedMean struct {
	sum     float64
	weights float64
}

func (m *weightedMean) add(value, weight float64) {
	m.sum += value * weight
	m.weights += weight
}

func (m *weightedMean) value() (float64, bool) {
	if m.weights == 0 {
		return 0, false
	}
	return m.sum / m.weights, true
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
