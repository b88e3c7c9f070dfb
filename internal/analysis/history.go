package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/nicovlr/coastwatch/internal/conf"
	"github.com/nicovlr/coastwatch/internal/datastore"
	"github.com/nicovlr/coastwatch/internal/errors"
)

// History prints or exports the stored observations of one beach over the
// trailing window. A non-empty exportPath switches to CSV file output.
func History(settings *conf.Settings, beachID string, hours int, exportPath string) error {
	app, err := NewContext(settings)
	if err != nil {
		return err
	}
	defer app.Close()

	if conf.FindBeach(app.Beaches, beachID) == nil {
		return errors.New(fmt.Errorf("unknown beach %q: %w", beachID, errors.ErrNotFound)).
			Component("analysis").
			Category(errors.CategoryNotFound).
			Build()
	}

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	observations, err := app.Store.History(beachID, since, 0)
	if err != nil {
		return err
	}

	if exportPath != "" {
		f, err := os.Create(exportPath)
		if err != nil {
			return errors.New(fmt.Errorf("creating export file: %w", err)).
				Component("analysis").
				Category(errors.CategoryFileIO).
				Context("path", exportPath).
				Build()
		}
		defer f.Close()
		if err := writeHistoryCSV(f, observations); err != nil {
			return err
		}
		fmt.Printf("exported %d observation(s) to %s\n", len(observations), exportPath)
		return nil
	}

	return renderHistory(os.Stdout, observations)
}

// historyHeader is the CSV column set, stable for downstream tooling.
var historyHeader = []string{
	"captured_at", "camera_state", "camera_state_reason",
	"person_count", "wave_score", "wave_level",
	"weather_condition", "weather_temp_c", "weather_wind_kmh",
	"vision_danger_level", "vision_confidence",
	"surf_score", "swim_score", "hazard_veto", "error_message",
}

func writeHistoryCSV(w io.Writer, observations []datastore.Observation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(historyHeader); err != nil {
		return err
	}

	for i := range observations {
		obs := &observations[i]
		record := []string{
			obs.CapturedAt.UTC().Format(time.RFC3339),
			obs.CameraState,
			obs.CameraStateReason,
			csvInt(obs.PersonCount),
			csvFloat(obs.WaveScore),
			csvString(obs.WaveLevel),
			csvString(obs.WeatherCondition),
			csvFloat(obs.WeatherTempC),
			csvFloat(obs.WeatherWindSpeedKmh),
			csvString(obs.VisionDangerLevel),
			csvFloat(obs.VisionConfidence),
			csvFloat(obs.SurfScore),
			csvFloat(obs.SwimScore),
			strconv.FormatBool(obs.HazardVeto),
			csvString(obs.ErrorMessage),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func renderHistory(w io.Writer, observations []datastore.Observation) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "CAPTURED\tSTATE\tPEOPLE\tWAVES\tSURF\tSWIM")
	for i := range observations {
		obs := &observations[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			obs.CapturedAt.UTC().Format("2006-01-02 15:04"),
			obs.CameraState,
			formatInt(obs.PersonCount),
			formatLevel(obs.WaveLevel, obs.WaveScore),
			formatScore(obs.SurfScore),
			formatScore(obs.SwimScore))
	}
	return tw.Flush()
}

func csvInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func csvFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func csvString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
