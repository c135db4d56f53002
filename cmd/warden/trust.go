package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ceponatia/warden/internal/formatter"
	"github.com/ceponatia/warden/internal/trust"
)

var (
	trustRepo     string
	trustComments []string
)

var trustCmd = &cobra.Command{
	Use:   "trust",
	Short: "Inspect and record agent trust metrics",
	Long: `Inspect per-repository trust metrics and the cross-repository
aggregate, and record the validation, merge, and review outcomes that the
agent runner reports.

Examples:
  warden trust show --repo repo-a
  warden trust show --repo repo-a lint-fix-agent
  warden trust record validation lint-fix-agent pass --repo repo-a
  warden trust record merge lint-fix-agent accepted --repo repo-a
  warden trust record review lint-fix-agent fail --repo repo-a --comment "missed edge case"`,
}

var trustShowCmd = &cobra.Command{
	Use:   "show [agent]",
	Short: "Show trust metrics for all agents, or one agent in detail",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTrustShow,
}

var trustRecordCmd = &cobra.Command{
	Use:   "record <validation|merge|review> <agent> <result>",
	Short: "Record an agent outcome in the trust ledger",
	Long: `Record one outcome in the trust ledger.

  validation <agent> <pass|fail>
  merge      <agent> <accepted|modified|rejected>
  review     <agent> <pass|fail> [--comment ...]`,
	Args: cobra.ExactArgs(3),
	RunE: runTrustRecord,
}

func init() {
	rootCmd.AddCommand(trustCmd)
	trustCmd.AddCommand(trustShowCmd)
	trustCmd.AddCommand(trustRecordCmd)

	trustCmd.PersistentFlags().StringVar(&trustRepo, "repo", "", "Repository slug")
	trustRecordCmd.Flags().StringArrayVar(&trustComments, "comment", nil, "Reviewer comment (repeatable)")
}

func runTrustShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // read path already finished

	repo, err := a.repoOrDefault(trustRepo)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		return showAgent(a, repo.Slug, args[0])
	}

	agents, err := a.ledger.ListAgents(repo.Slug)
	if err != nil {
		return err
	}

	type row struct {
		Agent   string        `json:"agentName"`
		Metrics trust.Metrics `json:"metrics"`
		Score   float64       `json:"score"`
	}
	rows := make([]row, 0, len(agents))
	for _, agent := range agents {
		m, err := a.ledger.Get(repo.Slug, agent)
		if err != nil {
			return err
		}
		rows = append(rows, row{Agent: agent, Metrics: m, Score: trust.Score(m)})
	}

	switch a.cfg.Output {
	case "json":
		return formatter.EncodeJSON(os.Stdout, rows)
	case "yaml":
		return formatter.EncodeYAML(os.Stdout, rows)
	}

	table := formatter.NewTable(os.Stdout, "AGENT", "SCORE", "MERGES", "ACCEPT", "PASS RATE", "REVIEW", "STREAK", "RUNS")
	for _, r := range rows {
		table.AddRow(
			r.Agent,
			fmt.Sprintf("%.4f", r.Score),
			strconv.Itoa(r.Metrics.TotalMerges()),
			fmt.Sprintf("%.2f", r.Metrics.AcceptanceRate()),
			fmt.Sprintf("%.2f", r.Metrics.ValidationPassRate),
			fmt.Sprintf("%.2f", r.Metrics.PRReviewScore),
			strconv.Itoa(r.Metrics.ConsecutiveCleanMerges),
			strconv.Itoa(r.Metrics.TotalRuns),
		)
	}
	return table.Render()
}

func showAgent(a *app, repo, agent string) error {
	m, err := a.ledger.Get(repo, agent)
	if err != nil {
		return err
	}
	agg, err := a.ledger.ComputeAggregate(agent, a.cfg.RepoSlugs())
	if err != nil && len(a.cfg.Repositories) > 0 {
		return err
	}

	detail := struct {
		Agent     string           `json:"agentName"`
		Repo      string           `json:"repo"`
		Metrics   trust.Metrics    `json:"metrics"`
		Score     float64          `json:"score"`
		Aggregate *trust.Aggregate `json:"aggregate,omitempty"`
	}{Agent: agent, Repo: repo, Metrics: m, Score: trust.Score(m), Aggregate: agg}

	switch a.cfg.Output {
	case "yaml":
		return formatter.EncodeYAML(os.Stdout, detail)
	case "table":
		fmt.Printf("%s in %s: score %.4f\n", agent, repo, detail.Score)
		fmt.Printf("  merges:    %d accepted, %d modified, %d rejected (acceptance %.2f)\n",
			m.MergesAccepted, m.MergesModified, m.MergesRejected, m.AcceptanceRate())
		fmt.Printf("  runs:      %d (pass rate %.2f)\n", m.TotalRuns, m.ValidationPassRate)
		fmt.Printf("  review:    %.2f\n", m.PRReviewScore)
		fmt.Printf("  streak:    %d clean merges\n", m.ConsecutiveCleanMerges)
		if agg != nil {
			fmt.Printf("  aggregate: %.4f across %d repos, %s\n",
				agg.AggregateScore, len(agg.PerRepo), formatter.ColorEligible(agg.GlobalEligible))
		}
		return nil
	default:
		return formatter.EncodeJSON(os.Stdout, detail)
	}
}

func runTrustRecord(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // single write already flushed

	repo, err := a.repoOrDefault(trustRepo)
	if err != nil {
		return err
	}

	kind, agent, result := args[0], args[1], args[2]

	if GetDryRun() {
		fmt.Printf("would record %s %s for %s in %s\n", kind, result, agent, repo.Slug)
		return nil
	}

	var m trust.Metrics
	switch kind {
	case "validation":
		passed, perr := parsePassFail(result)
		if perr != nil {
			return perr
		}
		m, err = a.ledger.RecordValidationResult(repo.Slug, agent, passed)
	case "merge":
		outcome := trust.MergeOutcome(result)
		if !outcome.Valid() {
			return fmt.Errorf("invalid merge outcome %q (want accepted, modified, or rejected)", result)
		}
		m, err = a.ledger.RecordMergeResult(repo.Slug, agent, outcome)
	case "review":
		passed, perr := parsePassFail(result)
		if perr != nil {
			return perr
		}
		m, err = a.ledger.RecordPRReviewResult(repo.Slug, agent, passed, trustComments)
	default:
		return fmt.Errorf("unknown record kind %q (want validation, merge, or review)", kind)
	}
	if err != nil {
		return err
	}

	VerbosePrintf("recorded %s %s for %s\n", kind, result, agent)
	fmt.Printf("%s in %s: score %.4f, pass rate %.2f, streak %d\n",
		agent, repo.Slug, trust.Score(m), m.ValidationPassRate, m.ConsecutiveCleanMerges)
	return nil
}

func parsePassFail(s string) (bool, error) {
	switch s {
	case "pass":
		return true, nil
	case "fail":
		return false, nil
	}
	return false, fmt.Errorf("invalid result %q (want pass or fail)", s)
}
