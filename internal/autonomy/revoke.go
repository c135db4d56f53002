package autonomy

import (
	"fmt"
	"strings"

	"github.com/ceponatia/warden/internal/impact"
	"github.com/ceponatia/warden/internal/trust"
	"github.com/ceponatia/warden/internal/workdoc"
)

// severeRegressionRank is the worst severity rank (inclusive) that counts as
// a severe regression: S0, S1, and S2.
const severeRegressionRank = 2

// Revocation reports one disabled rule from a revocation pass.
type Revocation struct {
	// Repo is the repository whose rule was disabled.
	Repo string `json:"repo"`

	// AgentName is the agent whose rule was disabled.
	AgentName string `json:"agentName"`

	// Reason is the first matching revocation reason.
	Reason string `json:"reason"`
}

// Revoker closes the feedback loop: it consumes impact records and the trust
// ledger and disables rules whose agents caused harm or regressed. Rules are
// disabled, never deleted; history is kept.
type Revoker struct {
	policies *Store
	ledger   *trust.Ledger
}

// NewRevoker creates a revocation engine.
func NewRevoker(policies *Store, ledger *trust.Ledger) *Revoker {
	return &Revoker{policies: policies, ledger: ledger}
}

// Run evaluates every enabled rule in a repository against the agent's
// auto-merged impact records and current trust metrics. Checks run in
// priority order and the first matching reason wins. A revocation that
// cannot be durably written propagates as an error.
func (r *Revoker) Run(repo string, records []impact.Record) ([]Revocation, error) {
	policy, err := r.policies.LoadRepoPolicy(repo)
	if err != nil {
		return nil, fmt.Errorf("load autonomy policy: %w", err)
	}

	var revocations []Revocation
	for i := range policy.Rules {
		rule := &policy.Rules[i]
		if !rule.Enabled {
			continue
		}

		reason, err := r.evaluate(repo, rule, policy.GlobalDefaults, records)
		if err != nil {
			return nil, err
		}
		if reason == "" {
			continue
		}

		if _, err := r.policies.Revoke(repo, rule.AgentName, reason); err != nil {
			return nil, fmt.Errorf("revoke %s: %w", rule.AgentName, err)
		}
		revocations = append(revocations, Revocation{
			Repo:      repo,
			AgentName: rule.AgentName,
			Reason:    reason,
		})
	}
	return revocations, nil
}

// evaluate returns the first matching revocation reason for a rule, or ""
// when the rule stays in good standing.
func (r *Revoker) evaluate(repo string, rule *Rule, defaults Defaults, records []impact.Record) (string, error) {
	agentRecords := filterAgentAutoMerges(records, rule.AgentName)

	// (a) Any introduced finding at S0/S1/S2.
	for _, rec := range agentRecords {
		for _, pair := range rec.Impact.NewFindingsIntroduced {
			if sev, ok := severityOfPair(pair); ok && sev.Rank() <= severeRegressionRank {
				return fmt.Sprintf("severe regression: merge %s introduced %s", rec.MergeID, pair), nil
			}
		}
	}

	// (b) Any revert detected.
	for _, rec := range agentRecords {
		if rec.Impact.RevertDetected {
			return fmt.Sprintf("reverted: merge %s was reverted", rec.MergeID), nil
		}
	}

	thresholds := rule.EffectiveThresholds(defaults)
	metrics, err := r.ledger.Get(repo, rule.AgentName)
	if err != nil {
		return "", fmt.Errorf("load trust metrics: %w", err)
	}

	// (c) Validation pass rate below the effective threshold.
	if metrics.ValidationPassRate < thresholds.MinValidationPassRate {
		return fmt.Sprintf("pass rate dropped: %.2f below required %.2f",
			metrics.ValidationPassRate, thresholds.MinValidationPassRate), nil
	}

	// (d) Clean-merge streak below the effective threshold.
	if metrics.ConsecutiveCleanMerges < thresholds.MinConsecutiveCleanMerges {
		return fmt.Sprintf("clean-merge streak dropped: %d below required %d",
			metrics.ConsecutiveCleanMerges, thresholds.MinConsecutiveCleanMerges), nil
	}

	return "", nil
}

// filterAgentAutoMerges selects the auto-merged records for one agent.
func filterAgentAutoMerges(records []impact.Record, agent string) []impact.Record {
	var out []impact.Record
	for _, rec := range records {
		if rec.AutoMerged && rec.AgentName == agent {
			out = append(out, rec)
		}
	}
	return out
}

// severityOfPair extracts the severity from a "CODE:SEVERITY" pair.
func severityOfPair(pair string) (workdoc.Severity, bool) {
	idx := strings.LastIndex(pair, ":")
	if idx < 0 {
		return "", false
	}
	sev := workdoc.Severity(pair[idx+1:])
	return sev, sev.Valid()
}
