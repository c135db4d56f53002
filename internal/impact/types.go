// Package impact tracks the retrospective consequences of auto-merges. Each
// merge opens a pending record that is re-scored against the latest finding
// stream and repository history every cycle.
package impact

import (
	"fmt"
	"time"
)

// Assessment is the recomputed consequence summary of one merge. It is always
// replaced wholesale on re-assessment, never incrementally patched.
type Assessment struct {
	// NewFindingsIntroduced lists "CODE:SEVERITY" pairs for findings that
	// appeared in the merge's touched files with a different code.
	NewFindingsIntroduced []string `json:"newFindingsIntroduced"`

	// FindingsResolved lists codes no longer reported in the touched files.
	FindingsResolved []string `json:"findingsResolved"`

	// RevertDetected is true when a revert-style commit referencing the
	// merge branch appeared after the merge.
	RevertDetected bool `json:"revertDetected"`

	// SubsequentChurn is the total number of commits touching the merge's
	// files since the merge.
	SubsequentChurn int `json:"subsequentChurn"`
}

// Record is one Merge Impact Record, created at merge time with an empty
// assessment. Field names are part of the on-disk format; do not rename.
type Record struct {
	// MergeID is derived from timestamp, agent, and finding code.
	MergeID string `json:"mergeId"`

	// AgentName is the agent whose merge this is.
	AgentName string `json:"agentName"`

	// FindingCode is the code the merge claimed to fix.
	FindingCode string `json:"findingCode"`

	// Branch is the merged source branch.
	Branch string `json:"branch"`

	// Files lists the files touched by the merge.
	Files []string `json:"files"`

	// MergedAt is when the merge happened.
	MergedAt time.Time `json:"mergedAt"`

	// AutoMerged is true when the merge was unattended.
	AutoMerged bool `json:"autoMerged"`

	// Impact is the latest assessment, empty until first assessed.
	Impact Assessment `json:"impact"`

	// AssessedAt is when the record was last re-assessed.
	AssessedAt *time.Time `json:"assessedAt,omitempty"`
}

// NewMergeID derives a merge identifier from timestamp, agent, and code.
func NewMergeID(at time.Time, agent, code string) string {
	return fmt.Sprintf("%d-%s-%s", at.Unix(), agent, code)
}
