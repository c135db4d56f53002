package trust

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ceponatia/warden/internal/store"
)

// reviewLogCap bounds the persisted PR review log per (repo, agent).
const reviewLogCap = 100

// PR review score adjustments per spec'd behavior: slow to earn, quick to lose.
const (
	reviewPassDelta = 0.05
	reviewFailDelta = 0.15
)

// Ledger records trust events for (repository, agent) pairs. All recording
// operations are read-modify-write sequences serialized by the store's
// per-key writer lock. Reads of missing records return fresh defaults;
// absence is not an error.
type Ledger struct {
	store store.Store
	now   func() time.Time
}

// LedgerOption configures a Ledger instance.
type LedgerOption func(*Ledger)

// WithClock overrides the time source (used by tests).
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		l.now = now
	}
}

// NewLedger creates a Trust Ledger over the given store.
func NewLedger(s store.Store, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		store: s,
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Get loads the metrics for one (repo, agent), returning a fresh default
// record when none exists.
func (l *Ledger) Get(repo, agent string) (Metrics, error) {
	if agent == "" {
		return Metrics{}, ErrEmptyAgent
	}

	var m Metrics
	err := l.store.Get(repo, store.KindTrust, agent, &m)
	if errors.Is(err, store.ErrNotFound) {
		return NewMetrics(), nil
	}
	if err != nil {
		return Metrics{}, fmt.Errorf("load trust metrics: %w", err)
	}
	return m, nil
}

// ListAgents returns the agents with a trust record in a repository.
func (l *Ledger) ListAgents(repo string) ([]string, error) {
	ids, err := l.store.List(repo, store.KindTrust)
	if err != nil {
		return nil, err
	}

	var agents []string
	for _, id := range ids {
		// Review logs live beside metrics under "<agent>.reviews".
		if strings.HasSuffix(id, ".reviews") {
			continue
		}
		agents = append(agents, id)
	}
	return agents, nil
}

// RecordValidationResult records one validation attempt. The pass rate is a
// rounding-stabilized rolling mean: the prior pass count is recovered by
// rounding oldRate x (n-1), so the rate cannot drift over many updates the
// way a true incremental float average does.
func (l *Ledger) RecordValidationResult(repo, agent string, passed bool) (Metrics, error) {
	return l.update(repo, agent, func(m *Metrics) {
		m.TotalRuns++

		pass := 0.0
		if passed {
			pass = 1.0
		}
		prior := math.Round(m.ValidationPassRate * float64(m.TotalRuns-1))
		m.ValidationPassRate = (prior + pass) / float64(m.TotalRuns)

		if passed {
			m.ConsecutiveCleanMerges++
		} else {
			m.ConsecutiveCleanMerges = 0
		}
	})
}

// RecordMergeResult records how a merge was received.
func (l *Ledger) RecordMergeResult(repo, agent string, outcome MergeOutcome) (Metrics, error) {
	if !outcome.Valid() {
		return Metrics{}, fmt.Errorf("%w: %q", ErrInvalidOutcome, outcome)
	}

	return l.update(repo, agent, func(m *Metrics) {
		switch outcome {
		case MergeAccepted:
			m.MergesAccepted++
			m.ConsecutiveCleanMerges++
		case MergeModified:
			m.MergesModified++
			m.ConsecutiveCleanMerges = 0
		case MergeRejected:
			m.MergesRejected++
			m.ConsecutiveCleanMerges = 0
		}
	})
}

// RecordPRReviewResult records a PR review outcome and appends to the capped
// review log.
func (l *Ledger) RecordPRReviewResult(repo, agent string, passed bool, comments []string) (Metrics, error) {
	m, err := l.update(repo, agent, func(m *Metrics) {
		if passed {
			m.PRReviewScore = math.Min(1, m.PRReviewScore+reviewPassDelta)
		} else {
			m.PRReviewScore = math.Max(0, m.PRReviewScore-reviewFailDelta)
		}
	})
	if err != nil {
		return Metrics{}, err
	}

	if err := l.appendReview(repo, agent, passed, comments); err != nil {
		return Metrics{}, err
	}
	return m, nil
}

// Reviews returns the persisted review log for one (repo, agent).
func (l *Ledger) Reviews(repo, agent string) ([]ReviewEntry, error) {
	var entries []ReviewEntry
	err := l.store.Get(repo, store.KindTrust, agent+".reviews", &entries)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// update applies fn to the (repo, agent) record under the writer lock,
// stamping lastRunAt. Missing records start from defaults.
func (l *Ledger) update(repo, agent string, fn func(*Metrics)) (Metrics, error) {
	if agent == "" {
		return Metrics{}, ErrEmptyAgent
	}

	var m Metrics
	err := l.store.Update(repo, store.KindTrust, agent, &m, func(exists bool) error {
		if !exists {
			m = NewMetrics()
		}
		fn(&m)
		m.LastRunAt = l.now()
		return nil
	})
	if err != nil {
		return Metrics{}, fmt.Errorf("record trust event: %w", err)
	}
	return m, nil
}

// appendReview appends one entry to the capped review log.
func (l *Ledger) appendReview(repo, agent string, passed bool, comments []string) error {
	var entries []ReviewEntry
	err := l.store.Update(repo, store.KindTrust, agent+".reviews", &entries, func(exists bool) error {
		if !exists {
			// A malformed log reads as absent but may have partially
			// decoded; start over rather than append to garbage.
			entries = nil
		}
		entries = append(entries, ReviewEntry{
			ID:        uuid.NewString(),
			Timestamp: l.now(),
			Passed:    passed,
			Comments:  comments,
		})
		if len(entries) > reviewLogCap {
			entries = entries[len(entries)-reviewLogCap:]
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append review log: %w", err)
	}
	return nil
}
