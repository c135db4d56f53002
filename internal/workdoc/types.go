// Package workdoc defines Work Documents, the tracked persistent records of
// recurring finding identities, and the lifecycle engine that reconciles them
// against each analysis cycle's finding stream.
package workdoc

import "time"

// Status is the remediation state of a Work Document. There is no enforced
// transition table: any component with write access may set any status. The
// lifecycle engine itself only ever creates documents as unassigned and
// resolves documents whose finding identity stopped appearing.
type Status string

const (
	// StatusUnassigned means no agent has picked up the finding.
	StatusUnassigned Status = "unassigned"

	// StatusAutoAssigned means the dispatcher assigned an agent.
	StatusAutoAssigned Status = "auto-assigned"

	// StatusAgentInProgress means an agent is actively working the finding.
	StatusAgentInProgress Status = "agent-in-progress"

	// StatusAgentComplete means the agent finished and awaits validation.
	StatusAgentComplete Status = "agent-complete"

	// StatusPMReview means the work awaits human project-manager review.
	StatusPMReview Status = "pm-review"

	// StatusBlocked means an agent-driven step failed and needs attention.
	StatusBlocked Status = "blocked"

	// StatusResolved means the finding no longer appears in scans.
	StatusResolved Status = "resolved"

	// StatusWontFix means the finding was deliberately closed without a fix.
	StatusWontFix Status = "wont-fix"
)

// Trend classifies how a finding is evolving across cycles.
type Trend string

const (
	// TrendNew marks a finding seen for the first time.
	TrendNew Trend = "new"

	// TrendWorsening marks a finding that is getting worse or lingering.
	TrendWorsening Trend = "worsening"

	// TrendStable marks a finding holding steady.
	TrendStable Trend = "stable"

	// TrendImproving marks a finding on its way out.
	TrendImproving Trend = "improving"
)

// Note is one append-only audit log entry on a Work Document.
type Note struct {
	// Timestamp is when the note was recorded.
	Timestamp time.Time `json:"timestamp"`

	// Author is who recorded it (agent name, human, or a warden subsystem).
	Author string `json:"author"`

	// Text is the note body.
	Text string `json:"text"`
}

// ValidationResult captures the latest validation attempt against an agent's fix.
type ValidationResult struct {
	// Passed reports whether validation succeeded.
	Passed bool `json:"passed"`

	// Attempts counts validation attempts so far.
	Attempts int `json:"attempts"`

	// LastError holds the most recent validation failure, if any.
	LastError string `json:"lastError,omitempty"`
}

// Document is the tracked record of one recurring finding identity in one
// repository. Field names are part of the on-disk format; do not rename.
type Document struct {
	// FindingID is the stable identity, deterministic from (code, path,
	// symbol). It is never recomputed once assigned.
	FindingID string `json:"findingId"`

	// Code is the finding code (e.g., "WD-M6-003").
	Code string `json:"code"`

	// Metric is the measurement that triggered the finding.
	Metric string `json:"metric"`

	// Severity is the current severity band, S0 (worst) through S5.
	Severity Severity `json:"severity"`

	// Path is the affected file, if any.
	Path string `json:"path,omitempty"`

	// Symbol is the affected symbol, if any.
	Symbol string `json:"symbol,omitempty"`

	// FirstSeen is when the identity was first observed.
	FirstSeen time.Time `json:"firstSeen"`

	// LastSeen is when the identity most recently appeared in a scan.
	LastSeen time.Time `json:"lastSeen"`

	// ConsecutiveReports counts scans in which this identity reappeared.
	ConsecutiveReports int `json:"consecutiveReports"`

	// Trend is the current trend classification.
	Trend Trend `json:"trend"`

	// Status is the remediation state.
	Status Status `json:"status"`

	// AssignedTo names the agent working this document, if any.
	AssignedTo string `json:"assignedTo,omitempty"`

	// RelatedBranch is the remediation branch, if any.
	RelatedBranch string `json:"relatedBranch,omitempty"`

	// PlanDocument points at the agent's remediation plan, if any.
	PlanDocument string `json:"planDocument,omitempty"`

	// ValidationResult is the latest validation outcome, if any.
	ValidationResult *ValidationResult `json:"validationResult,omitempty"`

	// Notes is the append-only ordered audit log. Never mutated in place.
	Notes []Note `json:"notes"`

	// ResolvedAt is set when and only when Status is resolved.
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

// AppendNote adds an audit entry to the document's log.
func (d *Document) AppendNote(at time.Time, author, text string) {
	d.Notes = append(d.Notes, Note{Timestamp: at, Author: author, Text: text})
}
