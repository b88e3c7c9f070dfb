package analysis

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/nicovlr/coastwatch/internal/conf"
)

// Beaches lists the configured beach registry.
func Beaches(settings *conf.Settings) error {
	beaches, err := conf.LoadBeaches(settings.BeachesFile)
	if err != nil {
		return err
	}
	return renderBeaches(os.Stdout, beaches)
}

func renderBeaches(w io.Writer, beaches []conf.Beach) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tREGION\tCOORDINATES\tSURF\tWEBCAM")
	for i := range beaches {
		beach := &beaches[i]
		surf := "-"
		if beach.Metadata.SurfSpot {
			surf = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f,%.4f\t%s\t%s\n",
			beach.ID, beach.Name, beach.Region,
			beach.Coordinates.Latitude, beach.Coordinates.Longitude,
			surf, beach.Webcam.SnapshotURL)
	}
	return tw.Flush()
}
