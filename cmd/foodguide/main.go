package main

import (
	"fmt"
	"os"

	"foodguide/internal/config"
	"foodguide/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgPath string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "foodguide",
	Short: "Generated restaurant guides: API server and terminal client",
	Long: `foodguide builds curated restaurant guides for a city with a generative
model, stores them for reuse, and serves them with likes, comments and a
personal library.

Configuration comes from .env, an optional YAML file (--config) and the
environment, in that order of precedence from lowest to highest.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd, migrateCmd, searchCmd, tokenCmd)
}

// setup loads the configuration and builds the logger every command shares.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return cfg, nil, err
	}
	log, err := logging.New(cfg.Env, verbose)
	if err != nil {
		return cfg, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
