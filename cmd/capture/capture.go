package capture

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nicovlr/coastwatch/internal/analysis"
	"github.com/nicovlr/coastwatch/internal/conf"
)

// Command creates the capture command: one analysis pass over every beach,
// or a periodic daemon with --daemon.
func Command(settings *conf.Settings) *cobra.Command {
	var daemon bool
	var noAI bool

	cmd := &cobra.Command{
		Use:   "capture [beach-id]",
		Short: "Capture and analyze webcam snapshots",
		Long:  "Fetch a snapshot from every configured beach webcam (or just one), run the detectors and append the observations to the store.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if noAI {
				settings.Vision.Enabled = false
			}
			beachID := ""
			if len(args) > 0 {
				beachID = args[0]
			}
			return analysis.Capture(settings, daemon, beachID)
		},
	}

	if err := setupFlags(cmd, settings, &daemon, &noAI); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the capture command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings, daemon, noAI *bool) error {
	cmd.Flags().BoolVar(daemon, "daemon", false, "Keep capturing at the configured interval until interrupted")
	cmd.Flags().IntVar(&settings.Capture.Interval, "interval", viper.GetInt("capture.interval"), "Seconds between daemon ticks")
	cmd.Flags().IntVar(&settings.Capture.MaxConcurrent, "maxconcurrent", viper.GetInt("capture.maxconcurrent"), "Maximum beaches processed in parallel")
	cmd.Flags().BoolVar(noAI, "no-ai", false, "Skip the AI vision analysis stage")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
