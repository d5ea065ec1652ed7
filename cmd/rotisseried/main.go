package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"rotisserie-backend/config"
	"rotisserie-backend/internal/logging"
)

var (
	configPath string
	logger     zerolog.Logger
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "rotisseried",
	Short: "Rotisserie shop backend",
	Long:  "Tracks customers and orders, runs the roasting machine board and alerts the counter when chickens are ready.",
}

func init() {
	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "./config/config.yaml"
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultPath, "path to the YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config from %s: %w", configPath, err)
	}

	logger = logging.Setup(cfg.Server.Environment)
	logger.Info().Str("path", configPath).Msg("configuration loaded")
	return nil
}
