package main

import (
	"fmt"
	"os"

	"spread-trader/internal/cli"
	"spread-trader/internal/config"
	"spread-trader/internal/logging"
)

func main() {
	configDir := os.Getenv("SPREAD_TRADER_CONFIG")
	if configDir == "" {
		configDir = config.DefaultConfigDir()
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger()

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
