package workdoc

import (
	"errors"
	"testing"
	"time"

	"github.com/ceponatia/warden/internal/finding"
	"github.com/ceponatia/warden/internal/store"
)

const testRepo = "repo-a"

func newTestLifecycle(t *testing.T) (*Lifecycle, *store.FileStore) {
	t.Helper()
	fs := store.NewFileStore(store.WithBaseDir(t.TempDir()))
	if err := fs.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lc := NewLifecycle(fs, NewDefaultPolicy(), WithClock(func() time.Time { return clock }))
	return lc, fs
}

func TestReconcileCreatesNewDocuments(t *testing.T) {
	lc, _ := newTestLifecycle(t)

	findings := []finding.Instance{
		{Code: "WD-M6-003", Metric: "complexity", Summary: "too complex", Path: "src/a.go"},
	}

	sum, err := lc.Reconcile(testRepo, findings)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(sum.Created) != 1 || len(sum.Updated) != 0 || len(sum.Resolved) != 0 {
		t.Fatalf("summary = %+v, want 1 created", sum)
	}

	doc, err := lc.Get(testRepo, sum.Created[0])
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.Status != StatusUnassigned {
		t.Errorf("Status = %q, want unassigned", doc.Status)
	}
	if doc.Trend != TrendNew {
		t.Errorf("Trend = %q, want new", doc.Trend)
	}
	if doc.Severity != SeverityS4 {
		t.Errorf("Severity = %q, want default S4", doc.Severity)
	}
	if doc.ConsecutiveReports != 1 {
		t.Errorf("ConsecutiveReports = %d, want 1", doc.ConsecutiveReports)
	}
	if len(doc.Notes) != 1 {
		t.Errorf("Notes = %d entries, want 1", len(doc.Notes))
	}
}

func TestReconcileMethodSymbolFinding(t *testing.T) {
	lc, _ := newTestLifecycle(t)

	findings := []finding.Instance{
		{Code: "WD-M1-001", Metric: "complexity", Summary: "method too complex", Path: "pkg/a.go", Symbol: "(*Foo).Bar"},
		{Code: "WD-M6-003", Metric: "length", Summary: "file too long", Path: "pkg/b.go"},
	}

	sum, err := lc.Reconcile(testRepo, findings)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(sum.Created) != 2 {
		t.Fatalf("summary = %+v, want 2 created", sum)
	}

	doc, err := lc.Get(testRepo, finding.Identity("WD-M1-001", "pkg/a.go", "(*Foo).Bar"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.Symbol != "(*Foo).Bar" {
		t.Errorf("Symbol = %q, want (*Foo).Bar", doc.Symbol)
	}
}

func TestReconcileUpdatesOnRecurrence(t *testing.T) {
	lc, _ := newTestLifecycle(t)

	findings := []finding.Instance{{Code: "WD-M1-001", Metric: "dupes", Summary: "dup"}}

	if _, err := lc.Reconcile(testRepo, findings); err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}
	sum, err := lc.Reconcile(testRepo, findings)
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if len(sum.Updated) != 1 {
		t.Fatalf("summary = %+v, want 1 updated", sum)
	}

	doc, err := lc.Get(testRepo, sum.Updated[0])
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.ConsecutiveReports != 2 {
		t.Errorf("ConsecutiveReports = %d, want 2", doc.ConsecutiveReports)
	}
	if doc.Trend != TrendStable {
		t.Errorf("Trend = %q, want stable", doc.Trend)
	}
	if len(doc.Notes) != 2 {
		t.Errorf("Notes = %d entries, want 2", len(doc.Notes))
	}
}

func TestReconcileResolvesOnDisappearance(t *testing.T) {
	lc, _ := newTestLifecycle(t)

	findings := []finding.Instance{{Code: "WD-M1-001", Metric: "dupes", Summary: "dup"}}
	if _, err := lc.Reconcile(testRepo, findings); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	sum, err := lc.Reconcile(testRepo, nil)
	if err != nil {
		t.Fatalf("empty Reconcile: %v", err)
	}
	if len(sum.Resolved) != 1 {
		t.Fatalf("summary = %+v, want 1 resolved", sum)
	}

	doc, err := lc.Get(testRepo, sum.Resolved[0])
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.Status != StatusResolved {
		t.Errorf("Status = %q, want resolved", doc.Status)
	}
	if doc.ResolvedAt == nil {
		t.Error("ResolvedAt not set on resolved document")
	}

	// A second empty cycle must not resolve again.
	sum2, err := lc.Reconcile(testRepo, nil)
	if err != nil {
		t.Fatalf("third Reconcile: %v", err)
	}
	if len(sum2.Resolved) != 0 {
		t.Errorf("resolved twice: %+v", sum2)
	}
}

func TestReconcileLeavesWontFixAlone(t *testing.T) {
	lc, fs := newTestLifecycle(t)

	findings := []finding.Instance{{Code: "WD-M1-001", Metric: "dupes", Summary: "dup"}}
	sum, err := lc.Reconcile(testRepo, findings)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	id := sum.Created[0]

	var doc Document
	err = fs.Update(testRepo, store.KindWork, id, &doc, func(exists bool) error {
		doc.Status = StatusWontFix
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, err := lc.Reconcile(testRepo, nil); err != nil {
		t.Fatalf("empty Reconcile: %v", err)
	}

	got, err := lc.Get(testRepo, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusWontFix {
		t.Errorf("Status = %q, want wont-fix preserved", got.Status)
	}
}

func TestReconcileOrderIndependent(t *testing.T) {
	lcA, _ := newTestLifecycle(t)
	lcB, _ := newTestLifecycle(t)

	forward := []finding.Instance{
		{Code: "WD-M1-001", Metric: "dupes", Summary: "a", Path: "x.go"},
		{Code: "WD-M2-002", Metric: "cycles", Summary: "b", Path: "y.go"},
		{Code: "WD-M3-003", Metric: "size", Summary: "c"},
	}
	backward := []finding.Instance{forward[2], forward[1], forward[0]}

	sumA, err := lcA.Reconcile(testRepo, forward)
	if err != nil {
		t.Fatalf("Reconcile forward: %v", err)
	}
	sumB, err := lcB.Reconcile(testRepo, backward)
	if err != nil {
		t.Fatalf("Reconcile backward: %v", err)
	}

	if len(sumA.Created) != len(sumB.Created) {
		t.Fatalf("created counts differ: %d vs %d", len(sumA.Created), len(sumB.Created))
	}
	for i := range sumA.Created {
		if sumA.Created[i] != sumB.Created[i] {
			t.Errorf("created[%d]: %q vs %q", i, sumA.Created[i], sumB.Created[i])
		}
	}
}

func TestReconcileDeduplicatesIdentities(t *testing.T) {
	lc, _ := newTestLifecycle(t)

	findings := []finding.Instance{
		{Code: "WD-M1-001", Metric: "dupes", Summary: "first", Path: "x.go"},
		{Code: "WD-M1-001", Metric: "dupes", Summary: "second", Path: "x.go"},
	}

	sum, err := lc.Reconcile(testRepo, findings)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(sum.Created) != 1 {
		t.Fatalf("created = %d, want 1 (duplicates collapsed)", len(sum.Created))
	}

	doc, err := lc.Get(testRepo, sum.Created[0])
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.ConsecutiveReports != 1 {
		t.Errorf("ConsecutiveReports = %d, want 1", doc.ConsecutiveReports)
	}
}

func TestAddNote(t *testing.T) {
	lc, _ := newTestLifecycle(t)

	sum, err := lc.Reconcile(testRepo, []finding.Instance{{Code: "WD-M1-001", Metric: "m", Summary: "s"}})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	id := sum.Created[0]

	if err := lc.AddNote(testRepo, id, "operator", "looked at this"); err != nil {
		t.Fatalf("AddNote: %v", err)
	}

	doc, err := lc.Get(testRepo, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	last := doc.Notes[len(doc.Notes)-1]
	if last.Author != "operator" || last.Text != "looked at this" {
		t.Errorf("last note = %+v", last)
	}

	if err := lc.AddNote(testRepo, "nope", "operator", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddNote missing = %v, want ErrNotFound", err)
	}
}
