package best

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nicovlr/coastwatch/internal/analysis"
	"github.com/nicovlr/coastwatch/internal/conf"
)

// Command creates the best command, ranking beaches by activity from the
// freshest recent observations.
func Command(settings *conf.Settings) *cobra.Command {
	var activity string

	cmd := &cobra.Command{
		Use:   "best",
		Short: "Rank beaches for an activity",
		Long:  "Rank the configured beaches for surfing or swimming using each beach's most recent observation. Beaches with a dangerous current flag always rank last.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return analysis.Best(settings, activity)
		},
	}

	if err := setupFlags(cmd, settings, &activity); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings, activity *string) error {
	cmd.Flags().StringVarP(activity, "activity", "a", viper.GetString("rank.defaultactivity"), "Activity to rank for: surfing or swimming")
	cmd.Flags().IntVar(&settings.Rank.MaxAge, "maxage", viper.GetInt("rank.maxage"), "Maximum observation age in minutes")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
