package beaches

import (
	"github.com/spf13/cobra"

	"github.com/nicovlr/coastwatch/internal/analysis"
	"github.com/nicovlr/coastwatch/internal/conf"
)

// Command creates the beaches command, listing the configured registry.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "beaches",
		Short: "List the configured beaches",
		RunE: func(cmd *cobra.Command, args []string) error {
			return analysis.Beaches(settings)
		},
	}
}
