package main

import (
	"fmt"

	"github.com/ceponatia/warden/internal/automerge"
	"github.com/ceponatia/warden/internal/autonomy"
	"github.com/ceponatia/warden/internal/config"
	"github.com/ceponatia/warden/internal/cycle"
	"github.com/ceponatia/warden/internal/gitcmd"
	"github.com/ceponatia/warden/internal/impact"
	"github.com/ceponatia/warden/internal/store"
	"github.com/ceponatia/warden/internal/trust"
	"github.com/ceponatia/warden/internal/workdoc"
)

// app wires the engine components for one CLI invocation.
type app struct {
	cfg       *config.Config
	store     store.Store
	lifecycle *workdoc.Lifecycle
	ledger    *trust.Ledger
	policies  *autonomy.Store
	assessor  *impact.Assessor
	engine    *autonomy.Engine
	revoker   *autonomy.Revoker
	cycle     *cycle.Engine
	merger    *automerge.Orchestrator
}

// newApp loads config and constructs the component graph. Close must be
// called when done.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	s, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	git := gitcmd.NewExecRunner()
	policy := workdoc.NewDefaultPolicy()
	lifecycle := workdoc.NewLifecycle(s, policy)
	ledger := trust.NewLedger(s)
	policies := autonomy.NewStore(
		autonomy.WithDataDir(cfg.DataDir),
		autonomy.WithConfigDir(cfg.ConfigDir),
	)
	assessor := impact.NewAssessor(s, git, policy)

	capMode := autonomy.SeverityCapMode(cfg.Cycle.SeverityCapMode)
	if !capMode.Valid() {
		_ = s.Close() //nolint:errcheck // cleanup in error path
		return nil, fmt.Errorf("%w: %q", autonomy.ErrInvalidCapMode, cfg.Cycle.SeverityCapMode)
	}
	engine := autonomy.NewEngine(policies, ledger, cfg.RepoSlugs, autonomy.WithCapMode(capMode))
	revoker := autonomy.NewRevoker(policies, ledger)

	return &app{
		cfg:       cfg,
		store:     s,
		lifecycle: lifecycle,
		ledger:    ledger,
		policies:  policies,
		assessor:  assessor,
		engine:    engine,
		revoker:   revoker,
		cycle:     cycle.NewEngine(lifecycle, assessor, revoker),
		merger:    automerge.NewOrchestrator(git, ledger, assessor, lifecycle),
	}, nil
}

// openStore selects the persistence backend from config.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "", "file":
		fs := store.NewFileStore(store.WithBaseDir(cfg.DataDir))
		if err := fs.Init(); err != nil {
			return nil, err
		}
		return fs, nil
	case "sqlite":
		return store.OpenSQLite(cfg.Store.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// Close releases the store.
func (a *app) Close() error {
	return a.store.Close()
}

// repoOrDefault resolves a --repo flag against the configured repositories.
// An empty flag with exactly one configured repository selects it.
func (a *app) repoOrDefault(slug string) (config.RepoConfig, error) {
	if slug == "" {
		if len(a.cfg.Repositories) == 1 {
			return a.cfg.Repositories[0], nil
		}
		return config.RepoConfig{}, fmt.Errorf("--repo is required with %d configured repositories", len(a.cfg.Repositories))
	}
	r, ok := a.cfg.Repo(slug)
	if !ok {
		// Allow operating on repositories not in the config file; state
		// paths only need the slug.
		return config.RepoConfig{Slug: slug}, nil
	}
	return r, nil
}
