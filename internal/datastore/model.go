package datastore

import (
	"time"
)

// Observation is one timestamped, partially-populated record of a beach's
// analyzed conditions. Rows are append-only: never updated, never deleted.
// Every analysis field is a pointer; nil means the producing detector did
// not run or failed, which is distinct from a zero measurement.
type Observation struct {
	ID         uint      `gorm:"column:id;primaryKey;autoIncrement"`
	BeachID    string    `gorm:"index:idx_obs_beach_time,priority:1;not null"`
	CapturedAt time.Time `gorm:"index:idx_obs_beach_time,priority:2;not null"` // UTC
	SourceURL  string

	// Camera health
	CameraState       string `gorm:"not null"`
	CameraStateReason string

	// Crowd/person detection
	PersonCount      *int
	PersonLevel      *string // empty|quiet|moderate|busy|crowded
	PersonConfidence *float64

	// Wave analysis
	WaveScore     *float64 // 0-100 composite wave quality
	WaveLevel     *string  // flat|small|medium|large|heavy
	WhitecapRatio *float64
	EdgeDensity   *float64

	// Weather enrichment
	WeatherTempC           *float64
	WeatherFeelsLikeC      *float64
	WeatherHumidityPct     *int
	WeatherWindSpeedKmh    *float64
	WeatherWindDirection   *string
	WeatherWindGustKmh     *float64
	WeatherCondition       *string
	WeatherDescription     *string
	WeatherPrecipitationMm *float64
	WeatherVisibilityKm    *float64

	// AI vision analysis
	VisionDangerLevel    *string
	VisionRipDetected    *bool
	VisionIndicators     *string // JSON-encoded list of evidence categories
	VisionConfidence     *float64
	VisionNotes          *string
	VisionSummary        *string
	VisionRecommendation *string
	VisionBestFor        *string // JSON-encoded list of activities
	VisionBeachScore     *float64
	VisionSurfScore      *float64

	// Composite activity scores, 0-100
	SurfScore *float64
	SwimScore *float64

	// Hard safety veto derived from vision confidence at observation time
	HazardVeto bool

	// Meta
	ProcessingTimeMs int64
	ErrorMessage     *string
	CreatedAt        time.Time
}

// HasActivityData reports whether at least one activity sub-score is
// present. Observations without any are kept for history/uptime but are
// never ranked.
func (o *Observation) HasActivityData() bool {
	return o.WaveScore != nil || o.PersonCount != nil || o.VisionSurfScore != nil || o.VisionBeachScore != nil
}

// IsRankable reports whether the observation may participate in ranking:
// the camera must have been working and at least one sub-score present.
func (o *Observation) IsRankable() bool {
	return o.CameraState == "working" && o.HasActivityData()
}

// BeachRecord mirrors the static beach registry into the database so that
// queries can join display metadata without re-reading config.
type BeachRecord struct {
	ID          string `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	Region      string `gorm:"not null"`
	Latitude    float64
	Longitude   float64
	Orientation string
	SurfSpot    bool
	UpdatedAt   time.Time
}
