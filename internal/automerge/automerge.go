// Package automerge executes unattended merges for eligible decisions,
// records the outcome in the trust ledger, and opens a pending impact record
// for the assessor.
package automerge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ceponatia/warden/internal/autonomy"
	"github.com/ceponatia/warden/internal/gitcmd"
	"github.com/ceponatia/warden/internal/impact"
	"github.com/ceponatia/warden/internal/trust"
	"github.com/ceponatia/warden/internal/workdoc"
)

// auditAuthor is the author stamped on orchestrator-generated notes.
const auditAuthor = "warden-automerge"

// Request describes one merge the orchestrator has been asked to perform.
type Request struct {
	// Repo is the repository slug.
	Repo string

	// RepoPath is the repository working tree on disk.
	RepoPath string

	// Agent is the agent whose fix is being merged.
	Agent string

	// FindingID is the Work Document identity the merge remediates.
	FindingID string

	// FindingCode is the finding code the merge remediates.
	FindingCode string

	// SourceBranch is the agent's fix branch.
	SourceBranch string

	// TargetBranch is the branch merged into.
	TargetBranch string

	// Files lists the files the fix touches, for impact tracking.
	Files []string
}

// Orchestrator performs eligible merges. Each repository working tree is
// guarded by a path-keyed mutex: git cannot tolerate two concurrent
// checkouts on one tree, so the lock that was implicit in the original
// single-worktree flow is explicit here.
type Orchestrator struct {
	git       gitcmd.Runner
	ledger    *trust.Ledger
	assessor  *impact.Assessor
	lifecycle *workdoc.Lifecycle
	now       func() time.Time

	mu        sync.Mutex
	treeLocks map[string]*sync.Mutex
}

// OrchestratorOption configures an Orchestrator instance.
type OrchestratorOption func(*Orchestrator)

// WithClock overrides the time source (used by tests).
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// NewOrchestrator creates a merge orchestrator.
func NewOrchestrator(git gitcmd.Runner, ledger *trust.Ledger, assessor *impact.Assessor, lifecycle *workdoc.Lifecycle, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		git:       git,
		ledger:    ledger,
		assessor:  assessor,
		lifecycle: lifecycle,
		now:       time.Now,
		treeLocks: make(map[string]*sync.Mutex),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// treeLock returns the mutex guarding one repository working tree.
func (o *Orchestrator) treeLock(repoPath string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	l, ok := o.treeLocks[repoPath]
	if !ok {
		l = &sync.Mutex{}
		o.treeLocks[repoPath] = l
	}
	return l
}

// Execute carries out a merge request under its eligibility decision.
//
// Ineligible decisions never merge: the reason is recorded as an audit note
// and Execute returns (nil, nil). Merge failures are fatal to the attempt
// only: trust is left unchanged, the error is noted on the Work Document,
// and the wrapped error is returned. On success the trust ledger records an
// accepted merge and a pending impact record is opened.
func (o *Orchestrator) Execute(ctx context.Context, req Request, decision *autonomy.Decision) (*impact.Record, error) {
	if !decision.Eligible {
		o.note(req, fmt.Sprintf("auto-merge skipped: %s", decision.Reason))
		return nil, nil
	}

	l := o.treeLock(req.RepoPath)
	l.Lock()
	defer l.Unlock()

	if err := o.git.Checkout(ctx, req.RepoPath, req.TargetBranch); err != nil {
		o.note(req, fmt.Sprintf("auto-merge failed: checkout %s: %v", req.TargetBranch, err))
		return nil, fmt.Errorf("checkout %s: %w", req.TargetBranch, err)
	}

	message := fmt.Sprintf("Auto-merge %s by %s (%s)", req.SourceBranch, req.Agent, req.FindingCode)
	if err := o.git.MergeNoFF(ctx, req.RepoPath, req.SourceBranch, message); err != nil {
		o.note(req, fmt.Sprintf("auto-merge failed: merge %s into %s: %v", req.SourceBranch, req.TargetBranch, err))
		return nil, fmt.Errorf("merge %s: %w", req.SourceBranch, err)
	}

	mergedAt := o.now()
	if _, err := o.ledger.RecordMergeResult(req.Repo, req.Agent, trust.MergeAccepted); err != nil {
		return nil, fmt.Errorf("record merge result: %w", err)
	}

	rec := impact.Record{
		MergeID:     impact.NewMergeID(mergedAt, req.Agent, req.FindingCode),
		AgentName:   req.Agent,
		FindingCode: req.FindingCode,
		Branch:      req.SourceBranch,
		Files:       req.Files,
		MergedAt:    mergedAt,
		AutoMerged:  true,
	}
	if err := o.assessor.Open(req.Repo, rec); err != nil {
		return nil, err
	}

	o.note(req, fmt.Sprintf("auto-merged %s into %s at %s",
		req.SourceBranch, req.TargetBranch, mergedAt.UTC().Format(time.RFC3339)))
	return &rec, nil
}

// note appends an audit note to the request's Work Document. Note failures
// are swallowed: the note is advisory and must not mask the merge outcome.
func (o *Orchestrator) note(req Request, text string) {
	if req.FindingID == "" {
		return
	}
	_ = o.lifecycle.AddNote(req.Repo, req.FindingID, auditAuthor, text)
}
