package analysis

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/nicovlr/coastwatch/internal/conf"
	"github.com/nicovlr/coastwatch/internal/ranking"
)

// Best ranks the beaches for an activity using each beach's freshest
// recent observation. An empty activity falls back to the configured
// default.
func Best(settings *conf.Settings, activity string) error {
	if activity == "" {
		activity = settings.Rank.DefaultActivity
	}
	act, err := ranking.ParseActivity(activity)
	if err != nil {
		return err
	}

	app, err := NewContext(settings)
	if err != nil {
		return err
	}
	defer app.Close()

	maxAge := time.Duration(settings.Rank.MaxAge) * time.Minute
	observations, err := app.Store.LatestPerBeach(maxAge, time.Now().UTC())
	if err != nil {
		return err
	}

	ranked := ranking.Rank(observations, act)
	return renderRanking(os.Stdout, act, maxAge, ranked, app.Beaches)
}

func renderRanking(w io.Writer, activity ranking.Activity, maxAge time.Duration,
	ranked []ranking.RankedBeach, beaches []conf.Beach) error {
	if len(ranked) == 0 {
		fmt.Fprintf(w, "no rankable observations in the last %s; run a capture first\n", maxAge)
		return nil
	}

	fmt.Fprintf(w, "best beaches for %s\n\n", activity)
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tBEACH\tSCORE\tPEOPLE\tWAVES\tNOTE")

	for i := range ranked {
		entry := &ranked[i]
		name := entry.BeachID
		if beach := conf.FindBeach(beaches, entry.BeachID); beach != nil {
			name = beach.Name
		}

		note := "-"
		if entry.Vetoed {
			note = "DANGEROUS CURRENT, avoid the water"
		}
		fmt.Fprintf(tw, "%d\t%s\t%.1f\t%s\t%s\t%s\n",
			i+1,
			name,
			entry.Score,
			formatInt(entry.Observation.PersonCount),
			formatLevel(entry.Observation.WaveLevel, entry.Observation.WaveScore),
			note)
	}
	return tw.Flush()
}
