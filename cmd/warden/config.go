package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ceponatia/warden/internal/config"
)

var configShow bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View warden configuration.

Configuration priority (highest to lowest):
  1. Command-line flags
  2. Environment variables (WARDEN_*)
  3. Project config (.warden/config.yaml)
  4. Home config (~/.warden/config.yaml)
  5. Defaults

Environment variables:
  WARDEN_CONFIG            - Explicit config file path
  WARDEN_OUTPUT            - Default output format (table, json, yaml)
  WARDEN_DATA_DIR          - State directory path
  WARDEN_CONFIG_DIR        - Cross-repository policy directory
  WARDEN_VERBOSE           - Enable verbose output (true/1)
  WARDEN_STORE_BACKEND     - Persistence backend (file|sqlite)
  WARDEN_SQLITE_PATH       - SQLite database path
  WARDEN_SEVERITY_CAP_MODE - Severity cap direction (at-most|legacy-at-least)

Examples:
  warden config --show           # Show resolved configuration
  warden config --show -o json   # Output as JSON`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().BoolVar(&configShow, "show", false, "Show resolved configuration with sources")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if !configShow {
		return cmd.Help()
	}

	resolved := config.Resolve(output, dataDir, GetVerbose())

	if output == "json" {
		data, err := json.MarshalIndent(resolved, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Println("Warden Configuration")
	fmt.Println("====================")
	fmt.Println()

	fmt.Println("Config files:")
	homeConfig := filepath.Join(os.Getenv("HOME"), ".warden", "config.yaml")
	if _, err := os.Stat(homeConfig); err == nil {
		fmt.Printf("  home:    %s\n", homeConfig)
	} else {
		fmt.Printf("  home:    %s (not found)\n", homeConfig)
	}
	projectConfig := filepath.Join(".warden", "config.yaml")
	if _, err := os.Stat(projectConfig); err == nil {
		fmt.Printf("  project: %s\n", projectConfig)
	} else {
		fmt.Printf("  project: %s (not found)\n", projectConfig)
	}
	fmt.Println()

	fmt.Println("Resolved values:")
	printResolved := func(name string, value any, source config.Source) {
		fmt.Printf("  %-18s %-16v (%s)\n", name, value, source)
	}
	printResolved("output", resolved.Output.Value, resolved.Output.Source)
	printResolved("data_dir", resolved.DataDir.Value, resolved.DataDir.Source)
	printResolved("config_dir", resolved.ConfigDir.Value, resolved.ConfigDir.Source)
	printResolved("verbose", resolved.Verbose.Value, resolved.Verbose.Source)
	printResolved("store_backend", resolved.StoreBackend.Value, resolved.StoreBackend.Source)
	printResolved("sqlite_path", resolved.SQLitePath.Value, resolved.SQLitePath.Source)
	printResolved("severity_cap_mode", resolved.SeverityCapMode.Value, resolved.SeverityCapMode.Source)

	return nil
}
