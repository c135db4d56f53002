package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Output != "table" {
		t.Errorf("Default Output = %q, want %q", cfg.Output, "table")
	}
	if cfg.DataDir != "data" {
		t.Errorf("Default DataDir = %q, want %q", cfg.DataDir, "data")
	}
	if cfg.ConfigDir != "config" {
		t.Errorf("Default ConfigDir = %q, want %q", cfg.ConfigDir, "config")
	}
	if cfg.Verbose {
		t.Error("Default Verbose = true, want false")
	}
	if cfg.Store.Backend != "file" {
		t.Errorf("Default Store.Backend = %q, want %q", cfg.Store.Backend, "file")
	}
	if cfg.Cycle.SeverityCapMode != "at-most" {
		t.Errorf("Default Cycle.SeverityCapMode = %q, want %q", cfg.Cycle.SeverityCapMode, "at-most")
	}
	if len(cfg.Repositories) != 0 {
		t.Errorf("Default Repositories = %v, want empty", cfg.Repositories)
	}
}

func TestMerge(t *testing.T) {
	dst := Default()
	src := &Config{
		Output:  "json",
		DataDir: "/custom/path",
	}

	result := merge(dst, src)

	if result.Output != "json" {
		t.Errorf("merge Output = %q, want %q", result.Output, "json")
	}
	if result.DataDir != "/custom/path" {
		t.Errorf("merge DataDir = %q, want %q", result.DataDir, "/custom/path")
	}
	// Defaults should be preserved when not overridden
	if result.Store.Backend != "file" {
		t.Errorf("merge preserved Store.Backend = %q, want %q", result.Store.Backend, "file")
	}
	if result.Cycle.SeverityCapMode != "at-most" {
		t.Errorf("merge preserved SeverityCapMode = %q, want %q", result.Cycle.SeverityCapMode, "at-most")
	}
}

func TestMerge_RepositoriesReplaceWholesale(t *testing.T) {
	dst := Default()
	dst.Repositories = []RepoConfig{{Slug: "old", Path: "/old"}}

	src := &Config{
		Repositories: []RepoConfig{
			{Slug: "repo-a", Path: "/srv/repo-a"},
			{Slug: "repo-b", Path: "/srv/repo-b"},
		},
	}

	result := merge(dst, src)

	if len(result.Repositories) != 2 || result.Repositories[0].Slug != "repo-a" {
		t.Errorf("merge Repositories = %v, want replacement list", result.Repositories)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("WARDEN_OUTPUT", "yaml")
	t.Setenv("WARDEN_VERBOSE", "true")
	t.Setenv("WARDEN_STORE_BACKEND", "sqlite")
	t.Setenv("WARDEN_SEVERITY_CAP_MODE", "legacy-at-least")

	cfg := Default()
	cfg = applyEnv(cfg)

	if cfg.Output != "yaml" {
		t.Errorf("applyEnv Output = %q, want %q", cfg.Output, "yaml")
	}
	if !cfg.Verbose {
		t.Error("applyEnv Verbose = false, want true")
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("applyEnv Store.Backend = %q, want %q", cfg.Store.Backend, "sqlite")
	}
	if cfg.Cycle.SeverityCapMode != "legacy-at-least" {
		t.Errorf("applyEnv SeverityCapMode = %q, want %q", cfg.Cycle.SeverityCapMode, "legacy-at-least")
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
output: json
data_dir: /srv/warden/data
store:
  backend: sqlite
  sqlite_path: /srv/warden/warden.db
cycle:
  concurrency: 4
  severity_cap_mode: at-most
repositories:
  - slug: repo-a
    path: /srv/repo-a
    default_branch: trunk
    findings_file: reports/findings.json
  - slug: repo-b
    path: /srv/repo-b
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadFromPath(path)
	if err != nil {
		t.Fatalf("loadFromPath: %v", err)
	}

	if cfg.Output != "json" {
		t.Errorf("Output = %q, want %q", cfg.Output, "json")
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("Store.Backend = %q, want %q", cfg.Store.Backend, "sqlite")
	}
	if cfg.Cycle.Concurrency != 4 {
		t.Errorf("Cycle.Concurrency = %d, want 4", cfg.Cycle.Concurrency)
	}
	if len(cfg.Repositories) != 2 {
		t.Fatalf("Repositories = %d, want 2", len(cfg.Repositories))
	}

	a := cfg.Repositories[0]
	if a.Branch() != "trunk" {
		t.Errorf("Branch = %q, want %q", a.Branch(), "trunk")
	}
	if got, want := a.FindingsPath(), filepath.Join("/srv/repo-a", "reports/findings.json"); got != want {
		t.Errorf("FindingsPath = %q, want %q", got, want)
	}

	b := cfg.Repositories[1]
	if b.Branch() != "main" {
		t.Errorf("default Branch = %q, want %q", b.Branch(), "main")
	}
	if got, want := b.FindingsPath(), filepath.Join("/srv/repo-b", ".warden/findings.json"); got != want {
		t.Errorf("default FindingsPath = %q, want %q", got, want)
	}
}

func TestLoadFromPathMissing(t *testing.T) {
	cfg, err := loadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("loadFromPath missing file: want error")
	}
	if cfg != nil {
		t.Error("loadFromPath missing file: want nil config")
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(project, []byte("output: yaml\ndata_dir: /project/data\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("WARDEN_CONFIG", project)
	t.Setenv("WARDEN_OUTPUT", "json")

	cfg, err := Load(&Config{DataDir: "/flag/data"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// env beats project
	if cfg.Output != "json" {
		t.Errorf("Output = %q, want env override %q", cfg.Output, "json")
	}
	// flag beats project
	if cfg.DataDir != "/flag/data" {
		t.Errorf("DataDir = %q, want flag override %q", cfg.DataDir, "/flag/data")
	}
	// untouched fields fall through to defaults
	if cfg.Store.Backend != "file" {
		t.Errorf("Store.Backend = %q, want default %q", cfg.Store.Backend, "file")
	}
}

func TestResolveSources(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(project, []byte("output: yaml\nstore:\n  backend: sqlite\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("WARDEN_CONFIG", project)
	t.Setenv("WARDEN_OUTPUT", "json")

	rc := Resolve("", "/flag/data", true)

	if rc.Output.Source != SourceEnv {
		t.Errorf("Output source = %q, want %q", rc.Output.Source, SourceEnv)
	}
	if rc.StoreBackend.Source != SourceProject {
		t.Errorf("StoreBackend source = %q, want %q", rc.StoreBackend.Source, SourceProject)
	}
	if rc.DataDir.Source != SourceFlag {
		t.Errorf("DataDir source = %q, want %q", rc.DataDir.Source, SourceFlag)
	}
	if rc.Verbose.Source != SourceFlag {
		t.Errorf("Verbose source = %q, want %q", rc.Verbose.Source, SourceFlag)
	}
	if rc.SeverityCapMode.Source != SourceDefault {
		t.Errorf("SeverityCapMode source = %q, want %q", rc.SeverityCapMode.Source, SourceDefault)
	}
}

func TestRepoLookup(t *testing.T) {
	cfg := Default()
	cfg.Repositories = []RepoConfig{
		{Slug: "repo-a", Path: "/srv/repo-a"},
		{Slug: "repo-b", Path: "/srv/repo-b"},
	}

	if got := cfg.RepoSlugs(); len(got) != 2 || got[0] != "repo-a" || got[1] != "repo-b" {
		t.Errorf("RepoSlugs = %v", got)
	}

	r, ok := cfg.Repo("repo-b")
	if !ok || r.Path != "/srv/repo-b" {
		t.Errorf("Repo(repo-b) = %+v, %v", r, ok)
	}
	if _, ok := cfg.Repo("missing"); ok {
		t.Error("Repo(missing) = true, want false")
	}
}
