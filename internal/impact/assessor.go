package impact

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ceponatia/warden/internal/finding"
	"github.com/ceponatia/warden/internal/gitcmd"
	"github.com/ceponatia/warden/internal/store"
	"github.com/ceponatia/warden/internal/workdoc"
)

// Assessor retroactively re-scores outstanding impact records against the
// latest finding stream and repository history. Assessment is idempotent: it
// is always recomputed from current state and replaces the prior assessment
// wholesale, so re-running it every cycle is safe.
type Assessor struct {
	store  store.Store
	git    gitcmd.Runner
	policy workdoc.SeverityPolicy
	now    func() time.Time
}

// AssessorOption configures an Assessor instance.
type AssessorOption func(*Assessor)

// WithClock overrides the time source (used by tests).
func WithClock(now func() time.Time) AssessorOption {
	return func(a *Assessor) {
		a.now = now
	}
}

// NewAssessor creates an impact assessor.
func NewAssessor(s store.Store, git gitcmd.Runner, policy workdoc.SeverityPolicy, opts ...AssessorOption) *Assessor {
	a := &Assessor{
		store:  s,
		git:    git,
		policy: policy,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Open creates a pending record with an empty assessment and persists it.
func (a *Assessor) Open(repo string, rec Record) error {
	if err := a.store.Put(repo, store.KindImpact, rec.MergeID, rec); err != nil {
		return fmt.Errorf("open impact record: %w", err)
	}
	return nil
}

// Get loads one record by merge ID.
func (a *Assessor) Get(repo, mergeID string) (*Record, error) {
	var rec Record
	if err := a.store.Get(repo, store.KindImpact, mergeID, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// List loads all records for a repository, sorted by merge ID. Unreadable
// records are skipped.
func (a *Assessor) List(repo string) ([]Record, error) {
	ids, err := a.store.List(repo, store.KindImpact)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(ids))
	for _, id := range ids {
		var rec Record
		if err := a.store.Get(repo, store.KindImpact, id, &rec); err != nil {
			continue // Skip unreadable impact files
		}
		records = append(records, rec)
	}
	return records, nil
}

// AssessAll re-assesses every stored record for a repository against the
// current finding stream. Git failures degrade individual signals rather
// than aborting the pass; persistence failures propagate.
func (a *Assessor) AssessAll(ctx context.Context, repo, repoPath string, findings []finding.Instance) error {
	ids, err := a.store.List(repo, store.KindImpact)
	if err != nil {
		return fmt.Errorf("list impact records: %w", err)
	}

	for _, id := range ids {
		var rec Record
		err := a.store.Update(repo, store.KindImpact, id, &rec, func(exists bool) error {
			if !exists {
				return store.ErrNotFound
			}
			rec.Impact = a.assess(ctx, repo, repoPath, &rec, findings)
			at := a.now()
			rec.AssessedAt = &at
			return nil
		})
		if errors.Is(err, store.ErrNotFound) {
			continue // Listed but unreadable: skip
		}
		if err != nil {
			return fmt.Errorf("assess %s: %w", id, err)
		}
	}
	return nil
}

// assess recomputes one record's assessment from current repository state.
func (a *Assessor) assess(ctx context.Context, repo, repoPath string, rec *Record, findings []finding.Instance) Assessment {
	touched := make(map[string]bool, len(rec.Files))
	for _, f := range rec.Files {
		touched[f] = true
	}

	out := Assessment{
		NewFindingsIntroduced: []string{},
		FindingsResolved:      []string{},
	}

	ownCodeStillPresent := false
	introduced := make(map[string]bool)

	for _, f := range findings {
		if !touched[f.Path] {
			continue
		}
		if f.Code == rec.FindingCode {
			ownCodeStillPresent = true
			continue
		}
		introduced[fmt.Sprintf("%s:%s", f.Code, a.severityFor(repo, f))] = true
	}

	for pair := range introduced {
		out.NewFindingsIntroduced = append(out.NewFindingsIntroduced, pair)
	}
	sort.Strings(out.NewFindingsIntroduced)

	if !ownCodeStillPresent {
		out.FindingsResolved = append(out.FindingsResolved, rec.FindingCode)
	}

	out.RevertDetected = a.detectRevert(ctx, repoPath, rec)
	out.SubsequentChurn = a.countChurn(ctx, repoPath, rec)
	return out
}

// severityFor resolves the severity reported for an introduced finding: the
// current Work Document severity when one exists, otherwise freshly assigned.
func (a *Assessor) severityFor(repo string, f finding.Instance) workdoc.Severity {
	var doc workdoc.Document
	if err := a.store.Get(repo, store.KindWork, f.ID(), &doc); err == nil && doc.Severity.Valid() {
		return doc.Severity
	}
	return a.policy.AssignInitialSeverity(f)
}

// detectRevert looks for a revert-style commit referencing the merge branch
// since the merge. Git failures degrade to "no revert detected".
func (a *Assessor) detectRevert(ctx context.Context, repoPath string, rec *Record) bool {
	if rec.Branch == "" {
		return false
	}

	subjects, err := a.git.LogSubjects(ctx, repoPath, rec.MergedAt, rec.Branch)
	if err != nil {
		return false
	}

	for _, subject := range subjects {
		if strings.Contains(strings.ToLower(subject), "revert") {
			return true
		}
	}
	return false
}

// countChurn sums commits touching each affected file since the merge. Git
// failures degrade to zero churn for that file.
func (a *Assessor) countChurn(ctx context.Context, repoPath string, rec *Record) int {
	total := 0
	for _, file := range rec.Files {
		n, err := a.git.CountCommitsTouching(ctx, repoPath, file, rec.MergedAt)
		if err != nil {
			continue
		}
		total += n
	}
	return total
}
