package commands

// Root command for the cobra CLI
// Loads configuration and starts logging before any subcommand runs
// Registers generate, bar, quote and publish

import (
	"fmt"

	"readme-image/internal/infra/config"
	"readme-image/internal/infra/log"

	"github.com/spf13/cobra"
)

// cfg is loaded once in PersistentPreRunE.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "readme-image",
	Short: "Profile README image generator",
	Long: `readme-image renders the profile README cards: most used languages from WakaTime,
a random quote and the latest tweets, then joins them into assets/images/readmeImage.png.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(barCmd)
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(publishCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadConfig(cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg = loaded

	if err := log.Init(log.Options{
		Dir:     cfg.App.LogDir,
		Debug:   cfg.App.Debug,
		Console: true,
	}); err != nil {
		return err
	}
	return nil
}
