package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ceponatia/warden/internal/autonomy"
	"github.com/ceponatia/warden/internal/formatter"
)

var (
	grantRepo         string
	grantCodes        []string
	grantMaxSeverity  string
	grantMinMerges    int
	grantMinPassRate  float64
	grantMinRuns      int
	grantGlobal       bool
	grantMinAggregate float64
	grantGlobalRepos  []string
)

var grantCmd = &cobra.Command{
	Use:   "grant <agent>",
	Short: "Grant auto-merge autonomy to an agent",
	Long: `Grant an agent an autonomy rule in a repository, or a cross-repository
global policy with --global. A repeated grant for the same agent replaces the
existing rule.

The rule scopes which finding codes the agent may auto-merge and caps the
severity. Omitting --codes grants all codes. Threshold conditions override
the repository defaults (10 clean merges, 0.95 pass rate, 5 runs); leave
them unset to inherit.

Examples:
  warden grant lint-fix-agent --repo repo-a --codes WD-M6-003,WD-M6-004 --max-severity S4
  warden grant lint-fix-agent --repo repo-a --codes WD-M6-003 --min-clean-merges 20
  warden grant trusted-agent --repo repo-a --max-severity S5
  warden grant lint-fix-agent --global --codes WD-M6-003 --min-aggregate 0.8`,
	Args: cobra.ExactArgs(1),
	RunE: runGrant,
}

func init() {
	rootCmd.AddCommand(grantCmd)
	grantCmd.Flags().StringVar(&grantRepo, "repo", "", "Repository slug")
	grantCmd.Flags().StringSliceVar(&grantCodes, "codes", nil, "Finding codes the grant covers (empty means all codes)")
	grantCmd.Flags().StringVar(&grantMaxSeverity, "max-severity", "S3", "Severity cap for auto-merges")
	grantCmd.Flags().IntVar(&grantMinMerges, "min-clean-merges", 0, "Override: required consecutive clean merges")
	grantCmd.Flags().Float64Var(&grantMinPassRate, "min-pass-rate", 0, "Override: required validation pass rate")
	grantCmd.Flags().IntVar(&grantMinRuns, "min-runs", 0, "Override: required total validation runs")
	grantCmd.Flags().BoolVar(&grantGlobal, "global", false, "Create a cross-repository global policy instead")
	grantCmd.Flags().Float64Var(&grantMinAggregate, "min-aggregate", 0.7, "Global policy: required aggregate score")
	grantCmd.Flags().StringSliceVar(&grantGlobalRepos, "applies-to", nil, "Global policy: limit to these repository slugs")
}

func runGrant(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // single write already flushed

	agent := args[0]

	if grantGlobal {
		return runGrantGlobal(a, agent)
	}

	repo, err := a.repoOrDefault(grantRepo)
	if err != nil {
		return err
	}

	if GetDryRun() {
		fmt.Printf("would grant %s autonomy in %s for codes %v (cap %s)\n",
			agent, repo.Slug, grantCodes, grantMaxSeverity)
		return nil
	}

	conditions := autonomy.Conditions{}
	if grantMinMerges > 0 {
		conditions.MinConsecutiveCleanMerges = &grantMinMerges
	}
	if grantMinPassRate > 0 {
		conditions.MinValidationPassRate = &grantMinPassRate
	}
	if grantMinRuns > 0 {
		conditions.MinTotalRuns = &grantMinRuns
	}

	rule, err := a.policies.Grant(repo.Slug, agent, grantCodes, grantMaxSeverity, conditions)
	if err != nil {
		return err
	}

	switch a.cfg.Output {
	case "json":
		return formatter.EncodeJSON(os.Stdout, rule)
	case "yaml":
		return formatter.EncodeYAML(os.Stdout, rule)
	}
	codes := "all"
	if len(rule.AllowedCodes) > 0 {
		codes = strings.Join(rule.AllowedCodes, ",")
	}
	fmt.Printf("granted %s autonomy in %s: codes %s, severity cap %s\n",
		agent, repo.Slug, codes, rule.MaxSeverity)
	return nil
}

func runGrantGlobal(a *app, agent string) error {
	if GetDryRun() {
		fmt.Printf("would create global policy for %s (codes %v, min aggregate %.2f)\n",
			agent, grantCodes, grantMinAggregate)
		return nil
	}

	policy := autonomy.GlobalPolicy{
		AgentName:         agent,
		AllowedCodes:      grantCodes,
		MinAggregateScore: grantMinAggregate,
		AppliesTo:         grantGlobalRepos,
	}
	if err := a.policies.UpsertGlobalPolicy(policy); err != nil {
		return err
	}

	fmt.Printf("global policy for %s: codes %v, min aggregate %.2f\n",
		agent, grantCodes, grantMinAggregate)
	return nil
}
