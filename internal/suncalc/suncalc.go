// Package suncalc computes sun event times for beach coordinates. Results
// are cached per coordinate and date since the capture loop asks for the
// same beaches every tick.
package suncalc

import (
	"fmt"
	"sync"
	"time"

	"github.com/sj14/astral/pkg/astral"
)

// SunEventTimes holds the calculated sun event times in UTC
type SunEventTimes struct {
	CivilDawn time.Time
	Sunrise   time.Time
	Sunset    time.Time
	CivilDusk time.Time
}

// cacheEntry holds the cached sun event times for a given date
type cacheEntry struct {
	times SunEventTimes
	date  string // cache key date, YYYY-MM-DD in UTC
}

// SunCalc handles caching and calculation of sun event times for any
// number of observers. Safe for concurrent use.
type SunCalc struct {
	cache map[string]cacheEntry
	lock  sync.RWMutex
}

// New creates a new SunCalc instance
func New() *SunCalc {
	return &SunCalc{
		cache: make(map[string]cacheEntry),
	}
}

// GetSunEventTimes returns the sun event times at the given coordinates for
// the date of at (UTC), using the cache when possible.
func (sc *SunCalc) GetSunEventTimes(latitude, longitude float64, at time.Time) (SunEventTimes, error) {
	date := at.UTC()
	dateKey := fmt.Sprintf("%.4f,%.4f,%s", latitude, longitude, date.Format("2006-01-02"))

	sc.lock.RLock()
	entry, exists := sc.cache[dateKey]
	sc.lock.RUnlock()

	if exists {
		return entry.times, nil
	}

	times, err := calculateSunEventTimes(latitude, longitude, date)
	if err != nil {
		return SunEventTimes{}, err
	}

	sc.lock.Lock()
	sc.cache[dateKey] = cacheEntry{times: times, date: date.Format("2006-01-02")}
	sc.lock.Unlock()

	return times, nil
}

// IsDaytime reports whether the sun is up at the given coordinates and
// instant. Polar edge cases where astral cannot compute an event are
// treated as daytime so a permanently dark camera is not misreported as
// healthy night.
func (sc *SunCalc) IsDaytime(latitude, longitude float64, at time.Time) bool {
	times, err := sc.GetSunEventTimes(latitude, longitude, at)
	if err != nil {
		return true
	}
	utc := at.UTC()
	return !utc.Before(times.Sunrise) && !utc.After(times.Sunset)
}

func calculateSunEventTimes(latitude, longitude float64, date time.Time) (SunEventTimes, error) {
	observer := astral.Observer{Latitude: latitude, Longitude: longitude}

	civilDawn, err := astral.Dawn(observer, date, astral.DepressionCivil)
	if err != nil {
		return SunEventTimes{}, fmt.Errorf("failed to calculate civil dawn: %w", err)
	}

	sunrise, err := astral.Sunrise(observer, date)
	if err != nil {
		return SunEventTimes{}, fmt.Errorf("failed to calculate sunrise: %w", err)
	}

	sunset, err := astral.Sunset(observer, date)
	if err != nil {
		return SunEventTimes{}, fmt.Errorf("failed to calculate sunset: %w", err)
	}

	civilDusk, err := astral.Dusk(observer, date, astral.DepressionCivil)
	if err != nil {
		return SunEventTimes{}, fmt.Errorf("failed to calculate civil dusk: %w", err)
	}

	return SunEventTimes{
		CivilDawn: civilDawn.UTC(),
		Sunrise:   sunrise.UTC(),
		Sunset:    sunset.UTC(),
		CivilDusk: civilDusk.UTC(),
	}, nil
}
