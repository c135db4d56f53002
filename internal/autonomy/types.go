// Package autonomy holds the per-repository autonomy rules, the global
// cross-repository policy overlay, the eligibility decision engine that gates
// unattended merges, and the revocation engine that retracts trust after a
// bad outcome.
package autonomy

import (
	"time"

	"github.com/ceponatia/warden/internal/workdoc"
)

// Default repository-wide thresholds applied when a rule's conditions leave
// them unset.
const (
	DefaultMinConsecutiveCleanMerges = 10
	DefaultMinValidationPassRate     = 0.95
	DefaultMinTotalRuns              = 5
)

// DefaultMaxSeverity is the default auto-merge severity ceiling.
const DefaultMaxSeverity = workdoc.SeverityS3

// SeverityCapMode selects the comparison direction of the rule-scope severity
// check. Two historical revisions of this check disagreed; the mode is a
// documented configuration choice rather than a silent pick.
type SeverityCapMode string

const (
	// CapModeAtMost admits findings no more severe than the cap: with S0 as
	// the worst band, the finding's rank must be >= the cap's rank. This is
	// the semantically sound reading and the default.
	CapModeAtMost SeverityCapMode = "at-most"

	// CapModeLegacyAtLeast admits findings at the cap's severity or worse
	// (finding rank <= cap rank), matching the other historical revision.
	CapModeLegacyAtLeast SeverityCapMode = "legacy-at-least"
)

// Valid reports whether m is a known cap mode.
func (m SeverityCapMode) Valid() bool {
	return m == CapModeAtMost || m == CapModeLegacyAtLeast
}

// WithinCap reports whether a finding severity is admitted by the cap under
// this mode.
func (m SeverityCapMode) WithinCap(severity, cap workdoc.Severity) bool {
	if m == CapModeLegacyAtLeast {
		return severity.Rank() <= cap.Rank()
	}
	return severity.Rank() >= cap.Rank()
}

// Conditions are the per-rule trust thresholds, each overriding the
// repository-wide default when set.
type Conditions struct {
	// MinConsecutiveCleanMerges overrides the clean-merge streak threshold.
	MinConsecutiveCleanMerges *int `json:"minConsecutiveCleanMerges,omitempty"`

	// MinValidationPassRate overrides the validation pass rate threshold.
	MinValidationPassRate *float64 `json:"minValidationPassRate,omitempty"`

	// MinTotalRuns overrides the total runs threshold.
	MinTotalRuns *int `json:"minTotalRuns,omitempty"`
}

// Defaults are the repository-wide fallback thresholds stored with the rules.
type Defaults struct {
	// MinConsecutiveCleanMerges is the default clean-merge streak required.
	MinConsecutiveCleanMerges int `json:"minConsecutiveCleanMerges"`

	// MinValidationPassRate is the default validation pass rate required.
	MinValidationPassRate float64 `json:"minValidationPassRate"`

	// MinTotalRuns is the default total validation runs required.
	MinTotalRuns int `json:"minTotalRuns"`

	// MaxSeverity is the default auto-merge severity ceiling.
	MaxSeverity workdoc.Severity `json:"maxSeverity"`
}

// Thresholds are the effective numeric gates after overlaying a rule's
// conditions onto the repository defaults.
type Thresholds struct {
	MinConsecutiveCleanMerges int
	MinValidationPassRate     float64
	MinTotalRuns              int
	MaxSeverity               workdoc.Severity
}

// Rule is a per-(repository, agent) autonomy grant. Rules are created or
// replaced by an explicit manual grant and disabled, never deleted, by
// revocation.
type Rule struct {
	// AgentName is the agent this rule applies to.
	AgentName string `json:"agentName"`

	// Enabled is false once the rule has been revoked.
	Enabled bool `json:"enabled"`

	// GrantedAt is when the grant was made.
	GrantedAt time.Time `json:"grantedAt"`

	// AllowedCodes whitelists finding codes. Empty means all codes.
	AllowedCodes []string `json:"allowedCodes,omitempty"`

	// MaxSeverity caps the severity this agent may auto-merge. Empty falls
	// back to the repository default.
	MaxSeverity workdoc.Severity `json:"maxSeverity,omitempty"`

	// Conditions override the repository-wide thresholds.
	Conditions Conditions `json:"conditions"`

	// RevokedAt is stamped when the rule is revoked.
	RevokedAt *time.Time `json:"revokedAt,omitempty"`

	// RevocationReason records why the rule was revoked.
	RevocationReason string `json:"revocationReason,omitempty"`
}

// AllowsCode reports whether the rule's code whitelist admits a finding code.
func (r *Rule) AllowsCode(code string) bool {
	if len(r.AllowedCodes) == 0 {
		return true
	}
	for _, c := range r.AllowedCodes {
		if c == code {
			return true
		}
	}
	return false
}

// EffectiveThresholds overlays the rule's conditions onto repository defaults.
func (r *Rule) EffectiveThresholds(d Defaults) Thresholds {
	t := Thresholds{
		MinConsecutiveCleanMerges: d.MinConsecutiveCleanMerges,
		MinValidationPassRate:     d.MinValidationPassRate,
		MinTotalRuns:              d.MinTotalRuns,
		MaxSeverity:               d.MaxSeverity,
	}
	if r.Conditions.MinConsecutiveCleanMerges != nil {
		t.MinConsecutiveCleanMerges = *r.Conditions.MinConsecutiveCleanMerges
	}
	if r.Conditions.MinValidationPassRate != nil {
		t.MinValidationPassRate = *r.Conditions.MinValidationPassRate
	}
	if r.Conditions.MinTotalRuns != nil {
		t.MinTotalRuns = *r.Conditions.MinTotalRuns
	}
	if r.MaxSeverity.Valid() {
		t.MaxSeverity = r.MaxSeverity
	}
	return t
}

// RepoPolicy is the contents of data/<repo>/autonomy.json: the rules plus the
// repository-wide defaults they fall back to.
type RepoPolicy struct {
	// Rules holds one rule per agent.
	Rules []Rule `json:"rules"`

	// GlobalDefaults are the repository-wide fallback thresholds.
	GlobalDefaults Defaults `json:"globalDefaults"`
}

// FindRule returns the rule for an agent, if any.
func (p *RepoPolicy) FindRule(agent string) *Rule {
	for i := range p.Rules {
		if p.Rules[i].AgentName == agent {
			return &p.Rules[i]
		}
	}
	return nil
}

// GlobalPolicy is a cross-repository overlay requiring a minimum aggregate
// trust score, keyed by (agentName, allowedCodes, appliesTo).
type GlobalPolicy struct {
	// AgentName is the agent this policy applies to.
	AgentName string `json:"agentName"`

	// MinAggregateScore is the required evidence-weighted aggregate score.
	MinAggregateScore float64 `json:"minAggregateScore"`

	// AllowedSeverities scopes the policy to severity bands. Empty means all.
	AllowedSeverities []workdoc.Severity `json:"allowedSeverities,omitempty"`

	// AllowedCodes scopes the policy to finding codes. Empty means all.
	AllowedCodes []string `json:"allowedCodes,omitempty"`

	// AppliesTo scopes the policy to repository slugs. Empty means all.
	AppliesTo []string `json:"appliesTo,omitempty"`

	// CreatedAt is when the policy was created.
	CreatedAt time.Time `json:"createdAt"`
}

// Matches reports whether this policy scopes over (agent, repo, code, severity).
func (p *GlobalPolicy) Matches(agent, repo, code string, severity workdoc.Severity) bool {
	if p.AgentName != agent {
		return false
	}
	if len(p.AppliesTo) > 0 && !contains(p.AppliesTo, repo) {
		return false
	}
	if len(p.AllowedCodes) > 0 && !contains(p.AllowedCodes, code) {
		return false
	}
	if len(p.AllowedSeverities) > 0 {
		found := false
		for _, s := range p.AllowedSeverities {
			if s == severity {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// sameScope reports whether two policies have the same upsert key:
// (agentName, allowedCodes, appliesTo).
func (p *GlobalPolicy) sameScope(o *GlobalPolicy) bool {
	return p.AgentName == o.AgentName &&
		equalStrings(p.AllowedCodes, o.AllowedCodes) &&
		equalStrings(p.AppliesTo, o.AppliesTo)
}

// GlobalConfig is the contents of config/autonomy-global.json.
type GlobalConfig struct {
	// Policies is the global autonomy policy list.
	Policies []GlobalPolicy `json:"policies"`
}

// DefaultRepoDefaults returns the documented repository-wide thresholds.
func DefaultRepoDefaults() Defaults {
	return Defaults{
		MinConsecutiveCleanMerges: DefaultMinConsecutiveCleanMerges,
		MinValidationPassRate:     DefaultMinValidationPassRate,
		MinTotalRuns:              DefaultMinTotalRuns,
		MaxSeverity:               DefaultMaxSeverity,
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
