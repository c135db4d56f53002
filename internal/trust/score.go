package trust

import (
	"math"
	"sort"
)

// Score weights. Acceptance and validation dominate; the clean-merge streak
// contributes a small bonus that saturates at streakSaturation merges.
const (
	weightAcceptance = 0.35
	weightValidation = 0.35
	weightReview     = 0.20
	weightStreak     = 0.10

	streakSaturation = 10
)

// Global eligibility thresholds. A single repository scoring below
// minRepoScore vetoes global eligibility regardless of the aggregate.
const (
	minRepoScore      = 0.5
	minAggregateScore = 0.7
)

// Score derives the per-repository trust score from one metrics record.
// Output is always in [0,1] for any valid record.
func Score(m Metrics) float64 {
	streak := math.Min(1, float64(m.ConsecutiveCleanMerges)/streakSaturation)
	return weightAcceptance*m.AcceptanceRate() +
		weightValidation*m.ValidationPassRate +
		weightReview*m.PRReviewScore +
		weightStreak*streak
}

// Weight returns the evidence weight of one metrics record: more observed
// merges and runs mean more influence on the aggregate, with a floor of 1 so
// empty records still count.
func Weight(m Metrics) int {
	w := m.TotalMerges() + m.TotalRuns
	if w < 1 {
		return 1
	}
	return w
}

// RepoScore is one repository's contribution to an aggregate.
type RepoScore struct {
	// Repo is the repository slug.
	Repo string `json:"repo"`

	// Score is the per-repository trust score.
	Score float64 `json:"score"`

	// Weight is the evidence weight applied to Score.
	Weight int `json:"weight"`
}

// Aggregate is an agent's evidence-weighted trust combined across
// repositories.
type Aggregate struct {
	// AgentName is the agent being scored.
	AgentName string `json:"agentName"`

	// AggregateScore is the weight-averaged score, rounded to 4 decimals.
	AggregateScore float64 `json:"aggregateScore"`

	// PerRepo lists each repository's score and weight, sorted by slug.
	PerRepo []RepoScore `json:"perRepo"`

	// GlobalEligible is true when every per-repo score clears the floor and
	// the aggregate clears the global threshold.
	GlobalEligible bool `json:"globalEligible"`
}

// ComputeAggregate combines the agent's trust across the given repositories.
// Duplicate slugs are collapsed; missing records contribute default metrics.
func (l *Ledger) ComputeAggregate(agent string, repoSlugs []string) (*Aggregate, error) {
	if agent == "" {
		return nil, ErrEmptyAgent
	}
	if len(repoSlugs) == 0 {
		return nil, ErrNoRepos
	}

	seen := make(map[string]bool, len(repoSlugs))
	var repos []string
	for _, slug := range repoSlugs {
		if !seen[slug] {
			seen[slug] = true
			repos = append(repos, slug)
		}
	}
	sort.Strings(repos)

	agg := &Aggregate{AgentName: agent}
	weightedSum := 0.0
	totalWeight := 0
	minScore := 1.0

	for _, repo := range repos {
		m, err := l.Get(repo, agent)
		if err != nil {
			return nil, err
		}

		score := Score(m)
		weight := Weight(m)
		agg.PerRepo = append(agg.PerRepo, RepoScore{Repo: repo, Score: score, Weight: weight})

		weightedSum += score * float64(weight)
		totalWeight += weight
		if score < minScore {
			minScore = score
		}
	}

	agg.AggregateScore = round4(weightedSum / float64(totalWeight))
	agg.GlobalEligible = minScore >= minRepoScore && agg.AggregateScore >= minAggregateScore
	return agg, nil
}

// round4 rounds to 4 decimal places.
func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
