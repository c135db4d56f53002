// Package cycle runs one analysis cycle for a repository: ingest the
// repository's finding stream, reconcile Work Documents, assess the impact of
// past auto-merges, and revoke autonomy grants that regressed. Independent
// repositories run in parallel.
package cycle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ceponatia/warden/internal/autonomy"
	"github.com/ceponatia/warden/internal/config"
	"github.com/ceponatia/warden/internal/finding"
	"github.com/ceponatia/warden/internal/impact"
	"github.com/ceponatia/warden/internal/worker"
	"github.com/ceponatia/warden/internal/workdoc"
)

// Report summarizes one repository's cycle.
type Report struct {
	// Repo is the repository slug.
	Repo string `json:"repo"`

	// Findings is how many deduplicated findings the stream produced.
	Findings int `json:"findings"`

	// Created, Updated, Resolved count Work Document transitions.
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Resolved int `json:"resolved"`

	// Assessed is how many impact records were re-assessed.
	Assessed int `json:"assessed"`

	// Revocations lists autonomy grants revoked this cycle.
	Revocations []autonomy.Revocation `json:"revocations,omitempty"`
}

// Engine wires the per-repository cycle stages together.
type Engine struct {
	lifecycle *workdoc.Lifecycle
	assessor  *impact.Assessor
	revoker   *autonomy.Revoker
}

// NewEngine creates a cycle engine.
func NewEngine(lifecycle *workdoc.Lifecycle, assessor *impact.Assessor, revoker *autonomy.Revoker) *Engine {
	return &Engine{
		lifecycle: lifecycle,
		assessor:  assessor,
		revoker:   revoker,
	}
}

// ReadFindings loads a repository's finding stream file. The file is a JSON
// array of finding instances written by an external collector. A missing file
// means the collector has not run: the cycle proceeds with zero findings,
// which resolves every open document.
func ReadFindings(path string) ([]finding.Instance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read findings file: %w", err)
	}

	var findings []finding.Instance
	if err := json.Unmarshal(data, &findings); err != nil {
		return nil, fmt.Errorf("parse findings file %s: %w", path, err)
	}
	return findings, nil
}

// Run executes one cycle for a single repository.
func (e *Engine) Run(ctx context.Context, repo config.RepoConfig) (*Report, error) {
	findings, err := ReadFindings(repo.FindingsPath())
	if err != nil {
		return nil, err
	}

	sum, err := e.lifecycle.Reconcile(repo.Slug, findings)
	if err != nil {
		return nil, fmt.Errorf("reconcile %s: %w", repo.Slug, err)
	}

	if err := e.assessor.AssessAll(ctx, repo.Slug, repo.Path, findings); err != nil {
		return nil, fmt.Errorf("assess %s: %w", repo.Slug, err)
	}

	records, err := e.assessor.List(repo.Slug)
	if err != nil {
		return nil, fmt.Errorf("list impact records %s: %w", repo.Slug, err)
	}

	revocations, err := e.revoker.Run(repo.Slug, records)
	if err != nil {
		return nil, fmt.Errorf("revocation pass %s: %w", repo.Slug, err)
	}

	return &Report{
		Repo:        repo.Slug,
		Findings:    len(sum.Created) + len(sum.Updated),
		Created:     len(sum.Created),
		Updated:     len(sum.Updated),
		Resolved:    len(sum.Resolved),
		Assessed:    len(records),
		Revocations: revocations,
	}, nil
}

// RunAll runs cycles for every configured repository, fanning out across the
// worker pool. Per-repository failures are reported per result; one broken
// repository does not stop the others.
func (e *Engine) RunAll(ctx context.Context, repos []config.RepoConfig, concurrency int) []RepoResult {
	pool := worker.NewPool[config.RepoConfig, *Report](concurrency)
	results := pool.Process(ctx, repos, e.Run)

	out := make([]RepoResult, len(results))
	for i, r := range results {
		out[i] = RepoResult{Repo: repos[i].Slug, Report: r.Value, Err: r.Err}
	}
	return out
}

// RepoResult pairs one repository's cycle report with its error, if any.
type RepoResult struct {
	Repo   string
	Report *Report
	Err    error
}
