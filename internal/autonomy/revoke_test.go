package autonomy

import (
	"strings"
	"testing"
	"time"

	"github.com/ceponatia/warden/internal/impact"
	"github.com/ceponatia/warden/internal/store"
	"github.com/ceponatia/warden/internal/trust"
)

func newTestRevoker(t *testing.T) (*Revoker, *Store, *trust.Ledger) {
	t.Helper()
	base := t.TempDir()

	fs := store.NewFileStore(store.WithBaseDir(base + "/data"))
	if err := fs.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	policies := NewStore(WithDataDir(base+"/data"), WithConfigDir(base+"/config"))
	ledger := trust.NewLedger(fs)
	return NewRevoker(policies, ledger), policies, ledger
}

// healthyLedger drives metrics past the default thresholds so only impact
// records can trigger revocation.
func healthyLedger(t *testing.T, ledger *trust.Ledger, repo, agent string) {
	t.Helper()
	for i := 0; i < 20; i++ {
		if _, err := ledger.RecordValidationResult(repo, agent, true); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
}

func autoMergeRecord(agent string, assessment impact.Assessment) impact.Record {
	return impact.Record{
		MergeID:     impact.NewMergeID(time.Unix(1750000000, 0), agent, "WD-M6-003"),
		AgentName:   agent,
		FindingCode: "WD-M6-003",
		Branch:      "fix/WD-M6-003",
		Files:       []string{"src/a.go"},
		MergedAt:    time.Unix(1750000000, 0),
		AutoMerged:  true,
		Impact:      assessment,
	}
}

func TestRevokeSevereRegression(t *testing.T) {
	r, policies, ledger := newTestRevoker(t)
	healthyLedger(t, ledger, testRepo, "agent")
	if _, err := policies.Grant(testRepo, "agent", nil, "", Conditions{}); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	records := []impact.Record{
		autoMergeRecord("agent", impact.Assessment{NewFindingsIntroduced: []string{"WD-M2-007:S1"}}),
	}

	revocations, err := r.Run(testRepo, records)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(revocations) != 1 {
		t.Fatalf("revocations = %d, want 1", len(revocations))
	}
	if !strings.HasPrefix(revocations[0].Reason, "severe regression") {
		t.Errorf("Reason = %q, want severe regression", revocations[0].Reason)
	}

	p, err := policies.LoadRepoPolicy(testRepo)
	if err != nil {
		t.Fatalf("LoadRepoPolicy: %v", err)
	}
	rule := p.FindRule("agent")
	if rule == nil || rule.Enabled {
		t.Errorf("rule not disabled: %+v", rule)
	}
	if rule.RevokedAt == nil {
		t.Error("RevokedAt not stamped")
	}
}

// TestRevokePriority verifies that with both a severe regression and a revert
// present, the recorded reason is the regression.
func TestRevokePriority(t *testing.T) {
	r, policies, ledger := newTestRevoker(t)
	healthyLedger(t, ledger, testRepo, "agent")
	if _, err := policies.Grant(testRepo, "agent", nil, "", Conditions{}); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	records := []impact.Record{
		autoMergeRecord("agent", impact.Assessment{RevertDetected: true}),
		autoMergeRecord("agent", impact.Assessment{NewFindingsIntroduced: []string{"WD-M2-007:S1"}}),
	}

	revocations, err := r.Run(testRepo, records)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(revocations) != 1 {
		t.Fatalf("revocations = %d, want 1", len(revocations))
	}
	if !strings.HasPrefix(revocations[0].Reason, "severe regression") {
		t.Errorf("Reason = %q, want severe regression to outrank revert", revocations[0].Reason)
	}
}

func TestRevokeRevertDetected(t *testing.T) {
	r, policies, ledger := newTestRevoker(t)
	healthyLedger(t, ledger, testRepo, "agent")
	if _, err := policies.Grant(testRepo, "agent", nil, "", Conditions{}); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	records := []impact.Record{
		// S3 introduction is not severe; the revert triggers instead.
		autoMergeRecord("agent", impact.Assessment{
			NewFindingsIntroduced: []string{"WD-M2-007:S3"},
			RevertDetected:        true,
		}),
	}

	revocations, err := r.Run(testRepo, records)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(revocations) != 1 || !strings.HasPrefix(revocations[0].Reason, "reverted") {
		t.Errorf("revocations = %+v, want reverted", revocations)
	}
}

func TestRevokeMetricRegressions(t *testing.T) {
	r, policies, ledger := newTestRevoker(t)
	if _, err := policies.Grant(testRepo, "agent", nil, "", Conditions{}); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	// Pass rate 0.5 is below the default 0.95 threshold.
	if _, err := ledger.RecordValidationResult(testRepo, "agent", true); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := ledger.RecordValidationResult(testRepo, "agent", false); err != nil {
		t.Fatalf("record: %v", err)
	}

	revocations, err := r.Run(testRepo, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(revocations) != 1 || !strings.HasPrefix(revocations[0].Reason, "pass rate dropped") {
		t.Errorf("revocations = %+v, want pass rate dropped", revocations)
	}
}

func TestRevokeStreakDropped(t *testing.T) {
	r, policies, ledger := newTestRevoker(t)
	if _, err := policies.Grant(testRepo, "agent", nil, "", Conditions{}); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	// Perfect pass rate but streak 5 < 10.
	for i := 0; i < 5; i++ {
		if _, err := ledger.RecordValidationResult(testRepo, "agent", true); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	revocations, err := r.Run(testRepo, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(revocations) != 1 || !strings.HasPrefix(revocations[0].Reason, "clean-merge streak dropped") {
		t.Errorf("revocations = %+v, want streak dropped", revocations)
	}
}

func TestRevokeIgnoresOtherAgentsAndManualMerges(t *testing.T) {
	r, policies, ledger := newTestRevoker(t)
	healthyLedger(t, ledger, testRepo, "agent")
	for i := 0; i < 10; i++ {
		if _, err := ledger.RecordMergeResult(testRepo, "agent", trust.MergeAccepted); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if _, err := policies.Grant(testRepo, "agent", nil, "", Conditions{}); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	other := autoMergeRecord("other-agent", impact.Assessment{NewFindingsIntroduced: []string{"X:S0"}})
	manual := autoMergeRecord("agent", impact.Assessment{NewFindingsIntroduced: []string{"X:S0"}})
	manual.AutoMerged = false

	revocations, err := r.Run(testRepo, []impact.Record{other, manual})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(revocations) != 0 {
		t.Errorf("revocations = %+v, want none", revocations)
	}
}

func TestRevokeSkipsDisabledRules(t *testing.T) {
	r, policies, ledger := newTestRevoker(t)
	healthyLedger(t, ledger, testRepo, "agent")
	if _, err := policies.Grant(testRepo, "agent", nil, "", Conditions{}); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if _, err := policies.Revoke(testRepo, "agent", "manual"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	records := []impact.Record{
		autoMergeRecord("agent", impact.Assessment{RevertDetected: true}),
	}
	revocations, err := r.Run(testRepo, records)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(revocations) != 0 {
		t.Errorf("revocations = %+v, want none for already-disabled rule", revocations)
	}
}
