package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"goprodl/pkg/config"
	"goprodl/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
	Long: `Inspect the effective configuration or write a starter config file.

Configuration sources in order of precedence:
  command line flags > environment variables > .env file > config file > defaults`,
}

// configShowCmd prints the effective configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Run:   runConfigShow,
}

// configInitCmd writes a starter config file
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file with defaults",
	Run:   runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		ui.PrintError("Failed to render configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintHighlight("Effective Configuration")
	fmt.Println()
	fmt.Print(string(data))
}

func runConfigInit(cmd *cobra.Command, args []string) {
	path := configFile
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "goprodl", "config.yaml")
	}

	if _, err := os.Stat(path); err == nil {
		ui.PrintError("Config file already exists", path)
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(path); err != nil {
		ui.PrintError("Failed to write config file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Config file created: " + path)
	fmt.Println("\nEdit it to change defaults, then verify with:")
	fmt.Println("  goprodl config show")
}
