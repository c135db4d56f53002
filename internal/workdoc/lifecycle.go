package workdoc

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ceponatia/warden/internal/finding"
	"github.com/ceponatia/warden/internal/store"
)

// auditAuthor is the author stamped on lifecycle-generated notes.
const auditAuthor = "warden-lifecycle"

// ReconcileSummary reports what one reconciliation pass did.
type ReconcileSummary struct {
	// Created lists finding IDs for which documents were created.
	Created []string `json:"created"`

	// Updated lists finding IDs whose documents were updated on recurrence.
	Updated []string `json:"updated"`

	// Resolved lists finding IDs auto-resolved on disappearance.
	Resolved []string `json:"resolved"`
}

// Lifecycle reconciles the current finding stream against stored Work
// Documents. Reconciliation is a total function of (stored documents,
// current findings): it never depends on scan order, and running it twice
// against unchanged inputs is idempotent.
type Lifecycle struct {
	store  store.Store
	policy SeverityPolicy
	now    func() time.Time
}

// LifecycleOption configures a Lifecycle instance.
type LifecycleOption func(*Lifecycle)

// WithClock overrides the time source (used by tests).
func WithClock(now func() time.Time) LifecycleOption {
	return func(l *Lifecycle) {
		l.now = now
	}
}

// NewLifecycle creates a lifecycle engine over the given store and policy.
func NewLifecycle(s store.Store, policy SeverityPolicy, opts ...LifecycleOption) *Lifecycle {
	l := &Lifecycle{
		store:  s,
		policy: policy,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Reconcile applies one analysis cycle's findings to a repository's Work
// Documents: create on first observation, update on recurrence, resolve on
// disappearance.
func (l *Lifecycle) Reconcile(repo string, findings []finding.Instance) (*ReconcileSummary, error) {
	now := l.now()
	current := dedupeByIdentity(findings)

	storedIDs, err := l.store.List(repo, store.KindWork)
	if err != nil {
		return nil, fmt.Errorf("list work documents: %w", err)
	}

	stored := make(map[string]bool, len(storedIDs))
	for _, id := range storedIDs {
		stored[id] = true
	}

	summary := &ReconcileSummary{}

	// Active identities: create or update. Iteration is over a sorted key
	// list so behavior is reproducible regardless of scan order.
	for _, id := range sortedKeys(current) {
		f := current[id]

		var doc Document
		err := l.store.Update(repo, store.KindWork, id, &doc, func(exists bool) error {
			if !exists {
				l.createDocument(&doc, id, f, now)
				summary.Created = append(summary.Created, id)
				return nil
			}
			l.updateDocument(&doc, f, now)
			summary.Updated = append(summary.Updated, id)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("reconcile %s: %w", id, err)
		}
	}

	// Identities that stopped appearing: resolve.
	for _, id := range storedIDs {
		if _, active := current[id]; active {
			continue
		}
		resolved, err := l.resolveDocument(repo, id, now)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", id, err)
		}
		if resolved {
			summary.Resolved = append(summary.Resolved, id)
		}
	}

	return summary, nil
}

// createDocument initializes a fresh Work Document for a new identity.
func (l *Lifecycle) createDocument(doc *Document, id string, f finding.Instance, now time.Time) {
	*doc = Document{
		FindingID:          id,
		Code:               f.Code,
		Metric:             f.Metric,
		Severity:           l.policy.AssignInitialSeverity(f),
		Path:               f.Path,
		Symbol:             f.Symbol,
		FirstSeen:          now,
		LastSeen:           now,
		ConsecutiveReports: 1,
		Trend:              TrendNew,
		Status:             StatusUnassigned,
	}
	doc.AppendNote(now, auditAuthor, fmt.Sprintf("created from finding %s (%s)", f.Code, f.Summary))
}

// updateDocument applies the recurrence transition to an existing document.
func (l *Lifecycle) updateDocument(doc *Document, f finding.Instance, now time.Time) {
	doc.LastSeen = now
	doc.ConsecutiveReports++
	doc.Metric = f.Metric

	prevTrend := doc.Trend
	doc.Trend = l.policy.ComputeTrend(doc, f)

	prevSeverity := doc.Severity
	if sev, ok := l.policy.EvaluatePromotion(doc); ok {
		doc.Severity = sev
	} else if sev, ok := l.policy.EvaluateDemotion(doc); ok {
		doc.Severity = sev
	}

	note := fmt.Sprintf("recurred (report %d, trend %s)", doc.ConsecutiveReports, doc.Trend)
	if doc.Trend != prevTrend {
		note += fmt.Sprintf(", trend was %s", prevTrend)
	}
	if doc.Severity != prevSeverity {
		note += fmt.Sprintf(", severity %s -> %s", prevSeverity, doc.Severity)
	}
	doc.AppendNote(now, auditAuthor, note)
}

// resolveDocument applies the disappearance transition. Returns true when the
// document actually transitioned to resolved.
func (l *Lifecycle) resolveDocument(repo, id string, now time.Time) (bool, error) {
	resolved := false

	var doc Document
	err := l.store.Update(repo, store.KindWork, id, &doc, func(exists bool) error {
		if !exists {
			return store.ErrNotFound
		}
		if doc.Status == StatusResolved || doc.Status == StatusWontFix {
			return nil
		}
		doc.Status = StatusResolved
		at := now
		doc.ResolvedAt = &at
		doc.AppendNote(now, auditAuthor, "finding no longer reported, auto-resolved")
		resolved = true
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		// Listed but unreadable: treated as absent.
		return false, nil
	}
	return resolved, err
}

// Get loads one Work Document by finding identity.
func (l *Lifecycle) Get(repo, findingID string) (*Document, error) {
	var doc Document
	if err := l.store.Get(repo, store.KindWork, findingID, &doc); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// List loads all Work Documents for a repository, sorted by finding identity.
func (l *Lifecycle) List(repo string) ([]Document, error) {
	ids, err := l.store.List(repo, store.KindWork)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(ids))
	for _, id := range ids {
		var doc Document
		if err := l.store.Get(repo, store.KindWork, id, &doc); err != nil {
			continue // Skip unreadable documents
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// AddNote appends a manual note to a document.
func (l *Lifecycle) AddNote(repo, findingID, author, text string) error {
	var doc Document
	err := l.store.Update(repo, store.KindWork, findingID, &doc, func(exists bool) error {
		if !exists {
			return ErrNotFound
		}
		doc.AppendNote(l.now(), author, text)
		return nil
	})
	return err
}

// dedupeByIdentity collapses the finding stream to one instance per identity.
// When duplicates disagree on ancillary fields the lexicographically smallest
// (metric, summary) pair wins, so the result is order-independent.
func dedupeByIdentity(findings []finding.Instance) map[string]finding.Instance {
	current := make(map[string]finding.Instance, len(findings))
	for _, f := range findings {
		id := f.ID()
		prev, ok := current[id]
		if !ok || less(f, prev) {
			current[id] = f
		}
	}
	return current
}

// less orders instances by (metric, summary) for deterministic dedupe.
func less(a, b finding.Instance) bool {
	if a.Metric != b.Metric {
		return a.Metric < b.Metric
	}
	return a.Summary < b.Summary
}

// sortedKeys returns the map's keys in sorted order.
func sortedKeys(m map[string]finding.Instance) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
