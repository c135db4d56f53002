package autonomy

import (
	"fmt"

	"github.com/ceponatia/warden/internal/trust"
	"github.com/ceponatia/warden/internal/workdoc"
)

// ReasonEligible is the reason string carried by a positive decision.
const ReasonEligible = "Eligible for auto-merge."

// Decision is an eligibility verdict. It always carries a human-readable
// reason and the matched rule/policies for the audit trail, not just a
// boolean.
type Decision struct {
	// Eligible is the verdict.
	Eligible bool `json:"eligible"`

	// Reason explains the verdict in operator-readable terms.
	Reason string `json:"reason"`

	// Rule is the matched autonomy rule, when one exists.
	Rule *Rule `json:"rule,omitempty"`

	// Policies lists the global policies that matched the request scope.
	Policies []GlobalPolicy `json:"policies,omitempty"`

	// Aggregate is the cross-repository trust computed when global policies
	// matched.
	Aggregate *trust.Aggregate `json:"aggregate,omitempty"`
}

// Engine is the eligibility decision procedure. It combines the autonomy
// policy store, the trust ledger, and aggregate trust into a verdict; it
// performs no writes.
type Engine struct {
	policies *Store
	ledger   *trust.Ledger

	// monitoredRepos supplies the full repository set used for aggregate
	// trust when a global policy matches.
	monitoredRepos func() []string

	capMode SeverityCapMode
}

// EngineOption configures an Engine instance.
type EngineOption func(*Engine)

// WithCapMode sets the severity cap comparison direction.
func WithCapMode(mode SeverityCapMode) EngineOption {
	return func(e *Engine) {
		e.capMode = mode
	}
}

// NewEngine creates an eligibility engine. monitoredRepos supplies the
// repository slugs aggregate trust is computed over.
func NewEngine(policies *Store, ledger *trust.Ledger, monitoredRepos func() []string, opts ...EngineOption) *Engine {
	e := &Engine{
		policies:       policies,
		ledger:         ledger,
		monitoredRepos: monitoredRepos,
		capMode:        CapModeAtMost,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// CheckAutoMergeEligibility decides whether an agent may auto-merge a fix for
// a finding. Ineligibility is an expected outcome, not an error; errors are
// reserved for infrastructure failures.
func (e *Engine) CheckAutoMergeEligibility(repo, agent, findingCode string, severity workdoc.Severity) (*Decision, error) {
	policy, err := e.policies.LoadRepoPolicy(repo)
	if err != nil {
		return nil, fmt.Errorf("load autonomy policy: %w", err)
	}

	// Step 1: an enabled rule must exist.
	rule := policy.FindRule(agent)
	if rule == nil {
		return &Decision{
			Reason: fmt.Sprintf("no autonomy rule for agent %s in %s", agent, repo),
		}, nil
	}
	if !rule.Enabled {
		reason := fmt.Sprintf("autonomy rule for %s is disabled", agent)
		if rule.RevocationReason != "" {
			reason += fmt.Sprintf(" (revoked: %s)", rule.RevocationReason)
		}
		return &Decision{Reason: reason, Rule: rule}, nil
	}

	thresholds := rule.EffectiveThresholds(policy.GlobalDefaults)

	// Step 2: rule scope.
	if !rule.AllowsCode(findingCode) {
		return &Decision{
			Rule:   rule,
			Reason: fmt.Sprintf("finding code %s is not in the rule's allowed codes", findingCode),
		}, nil
	}
	if !e.capMode.WithinCap(severity, thresholds.MaxSeverity) {
		return &Decision{
			Rule: rule,
			Reason: fmt.Sprintf("severity %s is outside the rule's cap %s (mode %s)",
				severity, thresholds.MaxSeverity, e.capMode),
		}, nil
	}

	// Step 3: trust thresholds.
	metrics, err := e.ledger.Get(repo, agent)
	if err != nil {
		return nil, fmt.Errorf("load trust metrics: %w", err)
	}
	if metrics.ConsecutiveCleanMerges < thresholds.MinConsecutiveCleanMerges {
		return &Decision{
			Rule: rule,
			Reason: fmt.Sprintf("consecutive clean merges %d below required %d",
				metrics.ConsecutiveCleanMerges, thresholds.MinConsecutiveCleanMerges),
		}, nil
	}
	if metrics.ValidationPassRate < thresholds.MinValidationPassRate {
		return &Decision{
			Rule: rule,
			Reason: fmt.Sprintf("validation pass rate %.2f below required %.2f",
				metrics.ValidationPassRate, thresholds.MinValidationPassRate),
		}, nil
	}
	if metrics.TotalRuns < thresholds.MinTotalRuns {
		return &Decision{
			Rule: rule,
			Reason: fmt.Sprintf("total runs %d below required %d",
				metrics.TotalRuns, thresholds.MinTotalRuns),
		}, nil
	}

	// Step 4: global policy overlay.
	global, err := e.policies.LoadGlobal()
	if err != nil {
		return nil, fmt.Errorf("load global policies: %w", err)
	}

	var matched []GlobalPolicy
	for _, p := range global.Policies {
		if p.Matches(agent, repo, findingCode, severity) {
			matched = append(matched, p)
		}
	}

	if len(matched) > 0 {
		agg, err := e.ledger.ComputeAggregate(agent, e.monitoredRepos())
		if err != nil {
			return nil, fmt.Errorf("compute aggregate trust: %w", err)
		}

		if !agg.GlobalEligible {
			return &Decision{
				Rule:      rule,
				Policies:  matched,
				Aggregate: agg,
				Reason: fmt.Sprintf("global policy matched but agent is not globally eligible (aggregate %.4f)",
					agg.AggregateScore),
			}, nil
		}

		satisfied := false
		for _, p := range matched {
			if agg.AggregateScore >= p.MinAggregateScore {
				satisfied = true
				break
			}
		}
		if !satisfied {
			return &Decision{
				Rule:      rule,
				Policies:  matched,
				Aggregate: agg,
				Reason: fmt.Sprintf("aggregate score %.4f does not satisfy any matching global policy",
					agg.AggregateScore),
			}, nil
		}

		// Step 5, with global overlay satisfied.
		return &Decision{
			Eligible:  true,
			Reason:    ReasonEligible,
			Rule:      rule,
			Policies:  matched,
			Aggregate: agg,
		}, nil
	}

	// Step 5: all gates passed.
	return &Decision{
		Eligible: true,
		Reason:   ReasonEligible,
		Rule:     rule,
	}, nil
}
