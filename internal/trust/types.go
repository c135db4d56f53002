// Package trust maintains the per-(repository, agent) rolling performance
// record used to gate autonomy, and the evidence-weighted aggregate that
// combines it across repositories.
package trust

import "time"

// MergeOutcome classifies how an agent's merge was received.
type MergeOutcome string

const (
	// MergeAccepted means the merge landed as-is.
	MergeAccepted MergeOutcome = "accepted"

	// MergeModified means a human had to amend the merge.
	MergeModified MergeOutcome = "modified"

	// MergeRejected means the merge was rejected outright.
	MergeRejected MergeOutcome = "rejected"
)

// Valid reports whether o is a known outcome.
func (o MergeOutcome) Valid() bool {
	switch o {
	case MergeAccepted, MergeModified, MergeRejected:
		return true
	}
	return false
}

// Metrics is the Trust Ledger record for one (repository, agent) pair.
// Records are created lazily with defaults on first access, mutated only by
// the ledger's recording operations, and never deleted. Field names are part
// of the on-disk format; do not rename.
type Metrics struct {
	// MergesAccepted counts merges that landed as-is.
	MergesAccepted int `json:"mergesAccepted"`

	// MergesModified counts merges a human had to amend.
	MergesModified int `json:"mergesModified"`

	// MergesRejected counts merges rejected outright.
	MergesRejected int `json:"mergesRejected"`

	// PRReviewScore is a bounded [0,1] review quality score, default 1.
	PRReviewScore float64 `json:"prReviewScore"`

	// ValidationPassRate is the rolling validation pass rate, bounded [0,1].
	ValidationPassRate float64 `json:"validationPassRate"`

	// SelfRepairRate is reserved. No recording path populates it.
	SelfRepairRate float64 `json:"selfRepairRate"`

	// ConsecutiveCleanMerges is the current streak of clean outcomes.
	ConsecutiveCleanMerges int `json:"consecutiveCleanMerges"`

	// TotalRuns counts validation runs recorded.
	TotalRuns int `json:"totalRuns"`

	// LastRunAt is when any recording operation last touched this record.
	LastRunAt time.Time `json:"lastRunAt"`
}

// NewMetrics returns a fresh record with default values.
func NewMetrics() Metrics {
	return Metrics{PRReviewScore: 1}
}

// TotalMerges returns the total recorded merge count.
func (m Metrics) TotalMerges() int {
	return m.MergesAccepted + m.MergesModified + m.MergesRejected
}

// AcceptanceRate returns accepted/(all merges), defaulting to 0.5 with no
// merge history: an unknown agent is neither trusted nor distrusted.
func (m Metrics) AcceptanceRate() float64 {
	total := m.TotalMerges()
	if total == 0 {
		return 0.5
	}
	return float64(m.MergesAccepted) / float64(total)
}

// ReviewEntry is one PR review log entry. The log is capped to the most
// recent reviewLogCap entries and persisted beside the metrics record.
type ReviewEntry struct {
	// ID is a unique entry identifier.
	ID string `json:"id"`

	// Timestamp is when the review was recorded.
	Timestamp time.Time `json:"timestamp"`

	// Passed reports whether the review passed.
	Passed bool `json:"passed"`

	// Comments holds reviewer comments, if any.
	Comments []string `json:"comments,omitempty"`
}
