// Package config provides configuration management for warden.
// Configuration is loaded from (highest to lowest priority):
// 1. Command-line flags
// 2. Environment variables (WARDEN_*)
// 3. Project config (.warden/config.yaml in cwd)
// 4. Home config (~/.warden/config.yaml)
// 5. Defaults
package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all warden configuration.
type Config struct {
	// Output controls the default output format (table, json, yaml).
	Output string `yaml:"output" json:"output"`

	// Verbose enables verbose output.
	Verbose bool `yaml:"verbose" json:"verbose"`

	// DataDir is the per-repository state directory (default: data).
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// ConfigDir is where cross-repository policy files live (default: config).
	ConfigDir string `yaml:"config_dir" json:"config_dir"`

	// Store settings
	Store StoreConfig `yaml:"store" json:"store"`

	// Cycle settings
	Cycle CycleConfig `yaml:"cycle" json:"cycle"`

	// Repositories lists the repositories warden monitors.
	Repositories []RepoConfig `yaml:"repositories" json:"repositories"`
}

// StoreConfig selects and tunes the persistence backend.
type StoreConfig struct {
	// Backend selects the record store.
	// Values: "file" (default, JSON files under DataDir), "sqlite".
	Backend string `yaml:"backend" json:"backend"`

	// SQLitePath is the database file used when Backend is "sqlite".
	// Default: data/warden.db.
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"`
}

// CycleConfig tunes the analysis cycle.
type CycleConfig struct {
	// Concurrency is how many repositories are processed in parallel.
	// 0 means one worker per CPU.
	Concurrency int `yaml:"concurrency" json:"concurrency"`

	// SeverityCapMode controls how a rule's maxSeverity bounds findings.
	// Values: "at-most" (default), "legacy-at-least".
	SeverityCapMode string `yaml:"severity_cap_mode" json:"severity_cap_mode"`
}

// RepoConfig describes one monitored repository.
type RepoConfig struct {
	// Slug is the repository identifier used in state paths and records.
	Slug string `yaml:"slug" json:"slug"`

	// Path is the repository working tree on disk.
	Path string `yaml:"path" json:"path"`

	// DefaultBranch is the branch auto-merges target. Default: main.
	DefaultBranch string `yaml:"default_branch" json:"default_branch"`

	// FindingsFile is where the repository's analyzer writes its findings,
	// relative to Path unless absolute. Default: .warden/findings.json.
	FindingsFile string `yaml:"findings_file" json:"findings_file"`
}

// Branch returns the repository's merge target branch.
func (r RepoConfig) Branch() string {
	if r.DefaultBranch == "" {
		return defaultBranch
	}
	return r.DefaultBranch
}

// FindingsPath returns the absolute findings file path.
func (r RepoConfig) FindingsPath() string {
	f := r.FindingsFile
	if f == "" {
		f = defaultFindingsFile
	}
	if filepath.IsAbs(f) {
		return f
	}
	return filepath.Join(r.Path, f)
}

// Default config values (used in resolution and validation).
const (
	defaultOutput       = "table"
	defaultDataDir      = "data"
	defaultConfigDir    = "config"
	defaultBackend      = "file"
	defaultSQLitePath   = "data/warden.db"
	defaultCapMode      = "at-most"
	defaultBranch       = "main"
	defaultFindingsFile = ".warden/findings.json"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Output:    defaultOutput,
		Verbose:   false,
		DataDir:   defaultDataDir,
		ConfigDir: defaultConfigDir,
		Store: StoreConfig{
			Backend:    defaultBackend,
			SQLitePath: defaultSQLitePath,
		},
		Cycle: CycleConfig{
			Concurrency:     0,
			SeverityCapMode: defaultCapMode,
		},
	}
}

// Load loads configuration with proper precedence.
// Priority: flags > env > project > home > defaults
func Load(flagOverrides *Config) (*Config, error) {
	cfg := Default()

	// Load home config
	homeConfig, _ := loadFromPath(homeConfigPath())
	if homeConfig != nil {
		cfg = merge(cfg, homeConfig)
	}

	// Load project config
	projectConfig, _ := loadFromPath(projectConfigPath())
	if projectConfig != nil {
		cfg = merge(cfg, projectConfig)
	}

	// Apply environment variables
	cfg = applyEnv(cfg)

	// Apply flag overrides
	if flagOverrides != nil {
		cfg = merge(cfg, flagOverrides)
	}

	return cfg, nil
}

// RepoSlugs returns the configured repository slugs.
func (c *Config) RepoSlugs() []string {
	slugs := make([]string, 0, len(c.Repositories))
	for _, r := range c.Repositories {
		slugs = append(slugs, r.Slug)
	}
	return slugs
}

// Repo looks up a repository config by slug.
func (c *Config) Repo(slug string) (RepoConfig, bool) {
	for _, r := range c.Repositories {
		if r.Slug == slug {
			return r, true
		}
	}
	return RepoConfig{}, false
}

// homeConfigPath returns the home config path.
func homeConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".warden", "config.yaml")
}

// projectConfigPath returns the project config path.
func projectConfigPath() string {
	if override := strings.TrimSpace(os.Getenv("WARDEN_CONFIG")); override != "" {
		return override
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(cwd, ".warden", "config.yaml")
}

// loadFromPath loads config from a YAML file.
func loadFromPath(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnv applies environment variable overrides.
func applyEnv(cfg *Config) *Config {
	if v := os.Getenv("WARDEN_OUTPUT"); v != "" {
		cfg.Output = v
	}
	if v := os.Getenv("WARDEN_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("WARDEN_CONFIG_DIR"); v != "" {
		cfg.ConfigDir = v
	}
	if os.Getenv("WARDEN_VERBOSE") == "true" || os.Getenv("WARDEN_VERBOSE") == "1" {
		cfg.Verbose = true
	}
	if v := os.Getenv("WARDEN_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("WARDEN_SQLITE_PATH"); v != "" {
		cfg.Store.SQLitePath = v
	}
	if v := os.Getenv("WARDEN_SEVERITY_CAP_MODE"); v != "" {
		cfg.Cycle.SeverityCapMode = v
	}
	return cfg
}

// mergeStr overwrites dst with src when src is non-empty.
func mergeStr(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// mergeInt overwrites dst with src when src is non-zero.
func mergeInt(dst *int, src int) {
	if src != 0 {
		*dst = src
	}
}

// merge merges src into dst, with src values taking precedence.
func merge(dst, src *Config) *Config {
	mergeStr(&dst.Output, src.Output)
	mergeStr(&dst.DataDir, src.DataDir)
	mergeStr(&dst.ConfigDir, src.ConfigDir)
	if src.Verbose {
		dst.Verbose = true
	}

	mergeStr(&dst.Store.Backend, src.Store.Backend)
	mergeStr(&dst.Store.SQLitePath, src.Store.SQLitePath)
	mergeInt(&dst.Cycle.Concurrency, src.Cycle.Concurrency)
	mergeStr(&dst.Cycle.SeverityCapMode, src.Cycle.SeverityCapMode)

	// Repository lists replace wholesale: partial merges of list entries are
	// ambiguous.
	if len(src.Repositories) > 0 {
		dst.Repositories = src.Repositories
	}

	return dst
}

// Source represents where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceHome    Source = "~/.warden/config.yaml"
	SourceProject Source = ".warden/config.yaml"
	SourceEnv     Source = "environment"
	SourceFlag    Source = "flag"
)

// getEnvString returns the value and whether the env var was set.
func getEnvString(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

// getEnvBool returns the boolean value and whether it was truthy.
func getEnvBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "true" || v == "1" {
		return true, true
	}
	return false, false
}

// resolveStringField resolves a string through the precedence chain.
// Returns the resolved value and its source.
func resolveStringField(home, project, env, flag, def string) resolved {
	result := resolved{Value: def, Source: SourceDefault}

	if home != "" {
		result = resolved{Value: home, Source: SourceHome}
	}
	if project != "" {
		result = resolved{Value: project, Source: SourceProject}
	}
	if env != "" {
		result = resolved{Value: env, Source: SourceEnv}
	}
	if flag != "" {
		result = resolved{Value: flag, Source: SourceFlag}
	}

	return result
}

// ResolvedConfig shows config values with their sources.
type ResolvedConfig struct {
	Output          resolved `json:"output"`
	DataDir         resolved `json:"data_dir"`
	ConfigDir       resolved `json:"config_dir"`
	Verbose         resolved `json:"verbose"`
	StoreBackend    resolved `json:"store_backend"`
	SQLitePath      resolved `json:"sqlite_path"`
	SeverityCapMode resolved `json:"severity_cap_mode"`
}

type resolved struct {
	Value  interface{} `json:"value"`
	Source Source      `json:"source"`
}

// Resolve returns configuration with source tracking.
// Uses precedence chain: flags > env > project > home > defaults.
func Resolve(flagOutput, flagDataDir string, flagVerbose bool) *ResolvedConfig {
	homeConfig, _ := loadFromPath(homeConfigPath())
	projectConfig, _ := loadFromPath(projectConfigPath())

	var homeOutput, homeDataDir, homeConfigDir string
	var homeBackend, homeSQLitePath, homeCapMode string
	var homeVerbose bool
	if homeConfig != nil {
		homeOutput = homeConfig.Output
		homeDataDir = homeConfig.DataDir
		homeConfigDir = homeConfig.ConfigDir
		homeVerbose = homeConfig.Verbose
		homeBackend = homeConfig.Store.Backend
		homeSQLitePath = homeConfig.Store.SQLitePath
		homeCapMode = homeConfig.Cycle.SeverityCapMode
	}

	var projectOutput, projectDataDir, projectConfigDir string
	var projectBackend, projectSQLitePath, projectCapMode string
	var projectVerbose bool
	if projectConfig != nil {
		projectOutput = projectConfig.Output
		projectDataDir = projectConfig.DataDir
		projectConfigDir = projectConfig.ConfigDir
		projectVerbose = projectConfig.Verbose
		projectBackend = projectConfig.Store.Backend
		projectSQLitePath = projectConfig.Store.SQLitePath
		projectCapMode = projectConfig.Cycle.SeverityCapMode
	}

	envOutput, _ := getEnvString("WARDEN_OUTPUT")
	envDataDir, _ := getEnvString("WARDEN_DATA_DIR")
	envConfigDir, _ := getEnvString("WARDEN_CONFIG_DIR")
	envVerbose, envVerboseSet := getEnvBool("WARDEN_VERBOSE")
	envBackend, _ := getEnvString("WARDEN_STORE_BACKEND")
	envSQLitePath, _ := getEnvString("WARDEN_SQLITE_PATH")
	envCapMode, _ := getEnvString("WARDEN_SEVERITY_CAP_MODE")

	rc := &ResolvedConfig{
		Output:          resolveStringField(homeOutput, projectOutput, envOutput, flagOutput, defaultOutput),
		DataDir:         resolveStringField(homeDataDir, projectDataDir, envDataDir, flagDataDir, defaultDataDir),
		ConfigDir:       resolveStringField(homeConfigDir, projectConfigDir, envConfigDir, "", defaultConfigDir),
		Verbose:         resolved{Value: false, Source: SourceDefault},
		StoreBackend:    resolveStringField(homeBackend, projectBackend, envBackend, "", defaultBackend),
		SQLitePath:      resolveStringField(homeSQLitePath, projectSQLitePath, envSQLitePath, "", defaultSQLitePath),
		SeverityCapMode: resolveStringField(homeCapMode, projectCapMode, envCapMode, "", defaultCapMode),
	}

	if homeVerbose {
		rc.Verbose = resolved{Value: true, Source: SourceHome}
	}
	if projectVerbose {
		rc.Verbose = resolved{Value: true, Source: SourceProject}
	}
	if envVerboseSet && envVerbose {
		rc.Verbose = resolved{Value: true, Source: SourceEnv}
	}
	if flagVerbose {
		rc.Verbose = resolved{Value: true, Source: SourceFlag}
	}

	return rc
}
