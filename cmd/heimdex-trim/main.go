package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-trim/internal/config"
)

var Version = "0.1.0"

var (
	cfg      *config.EnvConfig
	logLevel string
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "heimdex-trim",
	Short:        "Trim local videos and keep the cuts in a saved library",
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.New()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pickCmd)
	rootCmd.AddCommand(trimCmd)
	rootCmd.AddCommand(thumbsCmd)
	rootCmd.AddCommand(libraryCmd)
}

func level() string {
	if logLevel != "" {
		return logLevel
	}
	return cfg.LogLevel()
}
