package workdoc

import "fmt"

// Severity is an ordinal severity band, S0 through S5. S0 is the most severe.
type Severity string

const (
	// SeverityS0 is the most severe band (critical, act immediately).
	SeverityS0 Severity = "S0"

	// SeverityS1 is severe (major defect or regression).
	SeverityS1 Severity = "S1"

	// SeverityS2 is high (should be scheduled promptly).
	SeverityS2 Severity = "S2"

	// SeverityS3 is moderate (default auto-merge ceiling).
	SeverityS3 Severity = "S3"

	// SeverityS4 is low (routine maintenance).
	SeverityS4 Severity = "S4"

	// SeverityS5 is informational (cosmetic, style).
	SeverityS5 Severity = "S5"
)

// severityRanks maps each band to its ordinal rank. Lower rank = more severe.
var severityRanks = map[Severity]int{
	SeverityS0: 0,
	SeverityS1: 1,
	SeverityS2: 2,
	SeverityS3: 3,
	SeverityS4: 4,
	SeverityS5: 5,
}

// Rank returns the ordinal rank of a severity. Unknown severities rank as the
// least severe so that a bad value never widens an auto-merge grant.
func (s Severity) Rank() int {
	if r, ok := severityRanks[s]; ok {
		return r
	}
	return len(severityRanks)
}

// Valid reports whether s is one of the six defined bands.
func (s Severity) Valid() bool {
	_, ok := severityRanks[s]
	return ok
}

// ParseSeverity validates a severity string.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if !sev.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, s)
	}
	return sev, nil
}

// Promote returns the next more-severe band, stopping at S0.
func (s Severity) Promote() Severity {
	r := s.Rank()
	if r <= 0 {
		return SeverityS0
	}
	return severityFromRank(r - 1)
}

// Demote returns the next less-severe band, stopping at S5.
func (s Severity) Demote() Severity {
	r := s.Rank()
	if r >= len(severityRanks)-1 {
		return SeverityS5
	}
	return severityFromRank(r + 1)
}

// severityFromRank inverts Rank for valid ranks.
func severityFromRank(rank int) Severity {
	for sev, r := range severityRanks {
		if r == rank {
			return sev
		}
	}
	return SeverityS5
}
