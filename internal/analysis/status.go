package analysis

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/nicovlr/coastwatch/internal/conf"
	"github.com/nicovlr/coastwatch/internal/datastore"
	"github.com/nicovlr/coastwatch/internal/errors"
)

// Status prints the most recent observation for every configured beach,
// or a single one when beachID is non-empty.
func Status(settings *conf.Settings, beachID string) error {
	app, err := NewContext(settings)
	if err != nil {
		return err
	}
	defer app.Close()

	beaches, err := selectBeaches(app.Beaches, beachID)
	if err != nil {
		return err
	}
	return renderStatus(os.Stdout, beaches, app.Store, time.Now().UTC())
}

func renderStatus(w io.Writer, beaches []conf.Beach, store datastore.Interface, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "BEACH\tSTATE\tAGE\tPEOPLE\tWAVES\tSURF\tSWIM\tHAZARD")

	for i := range beaches {
		beach := &beaches[i]
		obs, err := store.Latest(beach.ID)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t-\t-\t-\n", beach.ID)
				continue
			}
			return err
		}

		hazard := "-"
		if obs.HazardVeto {
			hazard = "VETO"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			beach.ID,
			obs.CameraState,
			formatAge(now.Sub(obs.CapturedAt.UTC())),
			formatCrowd(obs.PersonCount, obs.PersonLevel),
			formatLevel(obs.WaveLevel, obs.WaveScore),
			formatScore(obs.SurfScore),
			formatScore(obs.SwimScore),
			hazard)
	}
	return tw.Flush()
}

func formatAge(age time.Duration) string {
	if age < 0 {
		age = 0
	}
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm", int(age.Minutes()))
	default:
		return fmt.Sprintf("%.1fh", age.Hours())
	}
}

func formatInt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func formatScore(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}

func formatCrowd(count *int, level *string) string {
	switch {
	case count == nil:
		return "-"
	case level == nil:
		return fmt.Sprintf("%d", *count)
	default:
		return fmt.Sprintf("%d (%s)", *count, *level)
	}
}

func formatLevel(level *string, score *float64) string {
	switch {
	case level == nil:
		return "-"
	case score == nil:
		return *level
	default:
		return fmt.Sprintf("%s (%.0f)", *level, *score)
	}
}
