package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicovlr/coastwatch/internal/datastore"
)

func ptr[T any](v T) *T { return &v }

func workingObs(beachID string, capturedAt time.Time) datastore.Observation {
	return datastore.Observation{
		BeachID:     beachID,
		CapturedAt:  capturedAt,
		CameraState: "working",
	}
}

func TestParseActivity(t *testing.T) {
	a, err := ParseActivity("surfing")
	require.NoError(t, err)
	assert.Equal(t, ActivitySurfing, a)

	_, err = ParseActivity("kitesurf")
	assert.Error(t, err)
}

func TestCrowdScoreInverse(t *testing.T) {
	assert.InDelta(t, 100, CrowdScore(0), 0.001)
	assert.InDelta(t, 60, CrowdScore(5), 0.001)
	assert.InDelta(t, 0, CrowdScore(13), 0.001, "heavy crowds bottom out at zero")
	assert.InDelta(t, 0, CrowdScore(50), 0.001)
}

func TestSurfingScoreFullData(t *testing.T) {
	obs := workingObs("hossegor-plage", time.Now())
	obs.WaveScore = ptr(80.0)
	obs.PersonCount = ptr(5) // crowd score 60
	obs.VisionSurfScore = ptr(7.0)

	score, ok := Score(&obs, ActivitySurfing)
	require.True(t, ok)
	// 0.6*80 + 0.25*60 + 0.15*70 = 48 + 15 + 10.5
	assert.InDelta(t, 73.5, score, 0.001)
}

func TestSurfingScoreAbsentFieldDropsFromWeighting(t *testing.T) {
	obs := workingObs("hossegor-plage", time.Now())
	obs.WaveScore = ptr(80.0)
	// no crowd, no vision: wave alone carries the whole score

	score, ok := Score(&obs, ActivitySurfing)
	require.True(t, ok)
	assert.InDelta(t, 80.0, score, 0.001,
		"missing sub-scores must not drag the mean toward zero")
}

func TestSwimmingScorePrefersCalmWater(t *testing.T) {
	calm := workingObs("arcachon-pereire", time.Now())
	calm.WaveScore = ptr(10.0)
	calm.PersonCount = ptr(0)

	rough := workingObs("hossegor-plage", time.Now())
	rough.WaveScore = ptr(90.0)
	rough.PersonCount = ptr(0)

	calmScore, ok := Score(&calm, ActivitySwimming)
	require.True(t, ok)
	roughScore, ok := Score(&rough, ActivitySwimming)
	require.True(t, ok)
	assert.Greater(t, calmScore, roughScore)
}

func TestWeatherScore(t *testing.T) {
	obs := workingObs("hossegor-plage", time.Now())

	_, ok := WeatherScore(&obs)
	assert.False(t, ok, "no weather data means no weather score")

	obs.WeatherCondition = ptr("clear")
	obs.WeatherTempC = ptr(24.0)
	obs.WeatherWindSpeedKmh = ptr(15.0)
	score, ok := WeatherScore(&obs)
	require.True(t, ok)
	assert.InDelta(t, 100, score, 0.001)

	obs.WeatherCondition = ptr("rain")
	obs.WeatherTempC = ptr(14.0) // 12 point chill penalty
	obs.WeatherWindSpeedKmh = ptr(45.0)
	score, ok = WeatherScore(&obs)
	require.True(t, ok)
	assert.InDelta(t, 0, score, 0.001, "25 - 12 - 15 clamps at zero")
}

func TestRankOrdersByScoreDescending(t *testing.T) {
	now := time.Now().UTC()

	good := workingObs("hossegor-plage", now)
	good.WaveScore = ptr(85.0)
	mid := workingObs("lacanau-ocean", now)
	mid.WaveScore = ptr(55.0)
	bad := workingObs("biarritz-grande-plage", now)
	bad.WaveScore = ptr(15.0)

	ranked := Rank([]datastore.Observation{mid, bad, good}, ActivitySurfing)
	require.Len(t, ranked, 3)
	assert.Equal(t, "hossegor-plage", ranked[0].BeachID)
	assert.Equal(t, "lacanau-ocean", ranked[1].BeachID)
	assert.Equal(t, "biarritz-grande-plage", ranked[2].BeachID)
}

func TestRankHazardVetoSortsLast(t *testing.T) {
	now := time.Now().UTC()

	dangerous := workingObs("hossegor-plage", now)
	dangerous.WaveScore = ptr(95.0)
	dangerous.HazardVeto = true

	safe := workingObs("lacanau-ocean", now)
	safe.WaveScore = ptr(40.0)

	ranked := Rank([]datastore.Observation{dangerous, safe}, ActivitySurfing)
	require.Len(t, ranked, 2)
	assert.Equal(t, "lacanau-ocean", ranked[0].BeachID,
		"a vetoed beach must sort below any non-vetoed beach")
	assert.True(t, ranked[1].Vetoed)
	assert.Greater(t, ranked[1].Score, ranked[0].Score,
		"the veto overrides raw score, it does not rewrite it")
}

func TestRankSkipsUnrankableObservations(t *testing.T) {
	now := time.Now().UTC()

	night := datastore.Observation{BeachID: "hossegor-plage", CapturedAt: now, CameraState: "night"}
	noData := workingObs("lacanau-ocean", now)
	ok := workingObs("biarritz-grande-plage", now)
	ok.WaveScore = ptr(50.0)

	ranked := Rank([]datastore.Observation{night, noData, ok}, ActivitySurfing)
	require.Len(t, ranked, 1)
	assert.Equal(t, "biarritz-grande-plage", ranked[0].BeachID)
}

func TestRankTieBreaksOnRecency(t *testing.T) {
	now := time.Now().UTC()

	older := workingObs("hossegor-plage", now.Add(-10*time.Minute))
	older.WaveScore = ptr(50.0)
	newer := workingObs("lacanau-ocean", now)
	newer.WaveScore = ptr(50.0)

	ranked := Rank([]datastore.Observation{older, newer}, ActivitySurfing)
	require.Len(t, ranked, 2)
	assert.Equal(t, "lacanau-ocean", ranked[0].BeachID)
}
