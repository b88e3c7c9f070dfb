package status

import (
	"github.com/spf13/cobra"

	"github.com/nicovlr/coastwatch/internal/analysis"
	"github.com/nicovlr/coastwatch/internal/conf"
)

// Command creates the status command, showing the latest observation for
// every configured beach.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "status [beach-id]",
		Short: "Show the latest observation per beach",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			beachID := ""
			if len(args) > 0 {
				beachID = args[0]
			}
			return analysis.Status(settings, beachID)
		},
	}
}
