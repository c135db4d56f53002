package main

import (
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ceponatia/warden/internal/config"
)

var (
	// Global flags
	dryRun  bool
	verbose bool
	output  string
	cfgFile string
	dataDir string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Trust-gated autonomous remediation engine",
	Long: `warden tracks code findings as Work Documents, scores agent
trustworthiness per repository, and gates unattended auto-merges behind
earned autonomy grants.

Core Commands:
  run          Execute one analysis cycle across configured repositories
  work         Inspect Work Documents and append notes
  trust        Inspect and record agent trust metrics
  grant        Grant auto-merge autonomy to an agent
  revoke       Revoke an agent's autonomy grant
  list         List autonomy rules for a repository
  impact       Inspect merge impact records
  serve        Serve the read-only JSON API
  version      Show version information

Autonomy is earned per repository and revoked automatically on regression.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		syncConfigFlagToEnv()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Show what would happen without executing")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "", "Output format (json, table, yaml)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: .warden/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "State directory (default: data)")
}

// GetDryRun returns the dry-run flag value for use by subcommands.
func GetDryRun() bool {
	return dryRun
}

// GetVerbose returns the verbose flag value for use by subcommands.
func GetVerbose() bool {
	return verbose
}

// GetConfigFile returns the config file path for use by subcommands.
func GetConfigFile() string {
	return cfgFile
}

// VerbosePrintf prints only when verbose mode is enabled.
func VerbosePrintf(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format, args...)
	}
}

func syncConfigFlagToEnv() {
	path := strings.TrimSpace(GetConfigFile())
	if path == "" {
		return
	}
	_ = os.Setenv("WARDEN_CONFIG", path)
}

// loadConfig resolves the layered configuration with CLI flag overrides.
func loadConfig() (*config.Config, error) {
	overrides := &config.Config{
		Output:  output,
		Verbose: verbose,
		DataDir: dataDir,
	}
	return config.Load(overrides)
}

// GetCurrentUser returns the current system username, used as the author on
// manually recorded notes and grants.
func GetCurrentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "unknown"
}
