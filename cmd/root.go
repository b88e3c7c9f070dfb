package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nicovlr/coastwatch/cmd/beaches"
	"github.com/nicovlr/coastwatch/cmd/best"
	"github.com/nicovlr/coastwatch/cmd/capture"
	"github.com/nicovlr/coastwatch/cmd/history"
	"github.com/nicovlr/coastwatch/cmd/status"
	"github.com/nicovlr/coastwatch/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "coastwatch",
		Short: "Coastwatch CLI",
		Long:  "Captures beach webcam snapshots, analyzes conditions and ranks beaches by activity.",
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		cobra.CheckErr(err)
	}

	subcommands := []*cobra.Command{
		capture.Command(settings),
		status.Command(settings),
		history.Command(settings),
		best.Command(settings),
		beaches.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.BeachesFile, "beaches", viper.GetString("beachesfile"), "Path to the beach registry file")
	rootCmd.PersistentFlags().StringVar(&settings.Output.SQLite.Path, "db", viper.GetString("output.sqlite.path"), "Path to the SQLite observation store")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
