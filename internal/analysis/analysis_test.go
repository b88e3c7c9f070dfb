package analysis

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicovlr/coastwatch/internal/conf"
	"github.com/nicovlr/coastwatch/internal/datastore"
	"github.com/nicovlr/coastwatch/internal/errors"
	"github.com/nicovlr/coastwatch/internal/logging"
	"github.com/nicovlr/coastwatch/internal/ranking"
)

func TestMain(m *testing.M) {
	logging.Init(8)
	m.Run()
}

func ptr[T any](v T) *T { return &v }

type fakeStore struct {
	datastore.Interface
	latest map[string]*datastore.Observation
}

func (s *fakeStore) Latest(beachID string) (*datastore.Observation, error) {
	obs, ok := s.latest[beachID]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return obs, nil
}

func testBeaches() []conf.Beach {
	return []conf.Beach{
		{ID: "hossegor-plage", Name: "Hossegor Plage Centrale", Region: "Landes",
			Coordinates: conf.Coordinates{Latitude: 43.664, Longitude: -1.441},
			Metadata:    conf.BeachMetadata{SurfSpot: true}},
		{ID: "lacanau-ocean", Name: "Lacanau Océan", Region: "Gironde",
			Coordinates: conf.Coordinates{Latitude: 45.001, Longitude: -1.203}},
	}
}

func TestRenderStatus(t *testing.T) {
	now := time.Date(2025, 7, 14, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{latest: map[string]*datastore.Observation{
		"hossegor-plage": {
			BeachID:     "hossegor-plage",
			CapturedAt:  now.Add(-5 * time.Minute),
			CameraState: "working",
			PersonCount: ptr(12),
			PersonLevel: ptr("moderate"),
			WaveLevel:   ptr("medium"),
			WaveScore:   ptr(48.0),
			SurfScore:   ptr(61.2),
			SwimScore:   ptr(55.0),
			HazardVeto:  true,
		},
	}}

	var buf bytes.Buffer
	require.NoError(t, renderStatus(&buf, testBeaches(), store, now))
	out := buf.String()

	assert.Contains(t, out, "hossegor-plage")
	assert.Contains(t, out, "working")
	assert.Contains(t, out, "5m")
	assert.Contains(t, out, "12 (moderate)")
	assert.Contains(t, out, "medium (48)")
	assert.Contains(t, out, "VETO")
	// no observations yet renders as dashes, not an error
	assert.Contains(t, out, "lacanau-ocean")
}

func TestWriteHistoryCSV(t *testing.T) {
	observations := []datastore.Observation{
		{
			BeachID:     "hossegor-plage",
			CapturedAt:  time.Date(2025, 7, 14, 10, 0, 0, 0, time.UTC),
			CameraState: "working",
			PersonCount: ptr(3),
			WaveScore:   ptr(62.5),
			WaveLevel:   ptr("large"),
			SurfScore:   ptr(70.1),
		},
		{
			BeachID:           "hossegor-plage",
			CapturedAt:        time.Date(2025, 7, 14, 22, 0, 0, 0, time.UTC),
			CameraState:       "night",
			CameraStateReason: "sun below horizon at capture time",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, writeHistoryCSV(&buf, observations))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header plus one row per observation")

	assert.Equal(t, historyHeader, records[0])
	assert.Equal(t, "2025-07-14T10:00:00Z", records[1][0])
	assert.Equal(t, "3", records[1][3])
	assert.Equal(t, "62.5", records[1][4])
	assert.Equal(t, "large", records[1][5])

	assert.Equal(t, "night", records[2][1])
	assert.Empty(t, records[2][3], "absent fields export as empty cells")
	assert.Equal(t, "false", records[2][13])
}

func TestRenderRanking(t *testing.T) {
	obsGood := &datastore.Observation{
		BeachID: "hossegor-plage", CameraState: "working",
		WaveScore: ptr(80.0), WaveLevel: ptr("large"), PersonCount: ptr(2),
	}
	obsVetoed := &datastore.Observation{
		BeachID: "lacanau-ocean", CameraState: "working",
		WaveScore: ptr(90.0), HazardVeto: true,
	}
	ranked := []ranking.RankedBeach{
		{BeachID: "hossegor-plage", Score: 78.8, Observation: obsGood},
		{BeachID: "lacanau-ocean", Score: 90.0, Vetoed: true, Observation: obsVetoed},
	}

	var buf bytes.Buffer
	require.NoError(t, renderRanking(&buf, ranking.ActivitySurfing, 30*time.Minute, ranked, testBeaches()))
	out := buf.String()

	assert.Contains(t, out, "best beaches for surfing")
	assert.Contains(t, out, "Hossegor Plage Centrale")
	assert.Contains(t, out, "DANGEROUS CURRENT")

	hossegorLine := strings.Index(out, "Hossegor")
	lacanauLine := strings.Index(out, "Lacanau")
	assert.Less(t, hossegorLine, lacanauLine, "vetoed beach renders below")
}

func TestRenderRankingEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderRanking(&buf, ranking.ActivitySwimming, 30*time.Minute, nil, nil))
	assert.Contains(t, buf.String(), "no rankable observations")
}

func TestSelectBeaches(t *testing.T) {
	beaches := testBeaches()

	all, err := selectBeaches(beaches, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := selectBeaches(beaches, "lacanau-ocean")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "lacanau-ocean", one[0].ID)

	_, err = selectBeaches(beaches, "atlantis")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestRenderBeaches(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderBeaches(&buf, testBeaches()))
	out := buf.String()

	assert.Contains(t, out, "hossegor-plage")
	assert.Contains(t, out, "43.6640,-1.4410")
	assert.Contains(t, out, "Gironde")
}
