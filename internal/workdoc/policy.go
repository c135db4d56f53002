package workdoc

import "github.com/ceponatia/warden/internal/finding"

// SeverityPolicy is the injectable classification strategy for severity and
// trend. The production policy lives in the findings-evaluation engine; the
// default here exists so warden is usable standalone, with thresholds that
// are documented rather than assumed.
type SeverityPolicy interface {
	// AssignInitialSeverity picks a severity for a first-time finding.
	AssignInitialSeverity(f finding.Instance) Severity

	// ComputeTrend classifies how a recurring finding is evolving.
	ComputeTrend(doc *Document, f finding.Instance) Trend

	// EvaluatePromotion returns (newSeverity, true) when a document should be
	// promoted to a more severe band.
	EvaluatePromotion(doc *Document) (Severity, bool)

	// EvaluateDemotion returns (newSeverity, true) when a document should be
	// demoted to a less severe band.
	EvaluateDemotion(doc *Document) (Severity, bool)
}

// DefaultPolicy is the built-in SeverityPolicy. Defaults:
//
//   - Initial severity is InitialSeverity (S4), overridable per metric via
//     MetricSeverities.
//   - A document is "worsening" once it has recurred WorsenAfter (5) or more
//     consecutive scans without resolution, "improving" when its latest
//     validation attempt passed, "stable" otherwise.
//   - A worsening document is promoted one band after PromoteAfter (8)
//     consecutive reports, never past S0.
//   - An improving document is demoted one band, never past S5.
type DefaultPolicy struct {
	// InitialSeverity is the severity for findings with no metric override.
	InitialSeverity Severity

	// MetricSeverities overrides initial severity per metric name.
	MetricSeverities map[string]Severity

	// WorsenAfter is the consecutive-report count at which a lingering
	// finding is classified worsening.
	WorsenAfter int

	// PromoteAfter is the consecutive-report count at which a worsening
	// finding is promoted one severity band.
	PromoteAfter int
}

// NewDefaultPolicy returns a DefaultPolicy with documented defaults.
func NewDefaultPolicy() *DefaultPolicy {
	return &DefaultPolicy{
		InitialSeverity: SeverityS4,
		WorsenAfter:     5,
		PromoteAfter:    8,
	}
}

// AssignInitialSeverity picks the initial band for a new finding.
func (p *DefaultPolicy) AssignInitialSeverity(f finding.Instance) Severity {
	if sev, ok := p.MetricSeverities[f.Metric]; ok && sev.Valid() {
		return sev
	}
	if p.InitialSeverity.Valid() {
		return p.InitialSeverity
	}
	return SeverityS4
}

// ComputeTrend classifies a recurring document.
func (p *DefaultPolicy) ComputeTrend(doc *Document, f finding.Instance) Trend {
	if doc.ValidationResult != nil && doc.ValidationResult.Passed {
		return TrendImproving
	}
	if doc.ConsecutiveReports >= p.WorsenAfter {
		return TrendWorsening
	}
	return TrendStable
}

// EvaluatePromotion promotes lingering worsening findings one band.
func (p *DefaultPolicy) EvaluatePromotion(doc *Document) (Severity, bool) {
	if doc.Trend != TrendWorsening || doc.ConsecutiveReports < p.PromoteAfter {
		return doc.Severity, false
	}
	next := doc.Severity.Promote()
	if next == doc.Severity {
		return doc.Severity, false
	}
	return next, true
}

// EvaluateDemotion demotes improving findings one band.
func (p *DefaultPolicy) EvaluateDemotion(doc *Document) (Severity, bool) {
	if doc.Trend != TrendImproving {
		return doc.Severity, false
	}
	next := doc.Severity.Demote()
	if next == doc.Severity {
		return doc.Severity, false
	}
	return next, true
}
