package history

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nicovlr/coastwatch/internal/analysis"
	"github.com/nicovlr/coastwatch/internal/conf"
)

// Command creates the history command for one beach's stored observations.
func Command(settings *conf.Settings) *cobra.Command {
	var hours int
	var export string

	cmd := &cobra.Command{
		Use:   "history [beach-id]",
		Short: "Show stored observations for a beach",
		Long:  "List the observations recorded for a beach over the trailing window, oldest first. Use --export to write them as CSV instead.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return analysis.History(settings, args[0], hours, export)
		},
	}

	if err := setupFlags(cmd, &hours, &export); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, hours *int, export *string) error {
	cmd.Flags().IntVar(hours, "hours", 24, "Trailing window in hours")
	cmd.Flags().StringVarP(export, "export", "o", "", "Write the history as CSV to this file")
	return nil
}
