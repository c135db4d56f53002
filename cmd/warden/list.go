package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ceponatia/warden/internal/formatter"
)

var (
	listRepo   string
	listGlobal bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List autonomy rules for a repository",
	Long: `List a repository's autonomy rules with their scopes, caps, and
revocation state, or the cross-repository global policies with --global.

Examples:
  warden list --repo repo-a
  warden list --global`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&listRepo, "repo", "", "Repository slug")
	listCmd.Flags().BoolVar(&listGlobal, "global", false, "List global policies instead")
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // read path already finished

	if listGlobal {
		return runListGlobal(a)
	}

	repo, err := a.repoOrDefault(listRepo)
	if err != nil {
		return err
	}

	policy, err := a.policies.LoadRepoPolicy(repo.Slug)
	if err != nil {
		return err
	}

	switch a.cfg.Output {
	case "json":
		return formatter.EncodeJSON(os.Stdout, policy)
	case "yaml":
		return formatter.EncodeYAML(os.Stdout, policy)
	}

	table := formatter.NewTable(os.Stdout, "AGENT", "STATE", "CODES", "MAX SEV", "GRANTED", "REVOCATION")
	table.SetMaxWidth(5, 60)
	for _, rule := range policy.Rules {
		reason := ""
		if rule.RevocationReason != "" {
			reason = rule.RevocationReason
		}
		table.AddRow(
			rule.AgentName,
			formatter.ColorEnabled(rule.Enabled),
			strings.Join(rule.AllowedCodes, ","),
			string(rule.MaxSeverity),
			rule.GrantedAt.Format("2006-01-02"),
			reason,
		)
	}
	return table.Render()
}

func runListGlobal(a *app) error {
	cfg, err := a.policies.LoadGlobal()
	if err != nil {
		return err
	}

	switch a.cfg.Output {
	case "json":
		return formatter.EncodeJSON(os.Stdout, cfg)
	case "yaml":
		return formatter.EncodeYAML(os.Stdout, cfg)
	}

	table := formatter.NewTable(os.Stdout, "AGENT", "CODES", "REPOS", "MIN AGGREGATE")
	for _, p := range cfg.Policies {
		repos := "all"
		if len(p.AppliesTo) > 0 {
			repos = strings.Join(p.AppliesTo, ",")
		}
		codes := "all"
		if len(p.AllowedCodes) > 0 {
			codes = strings.Join(p.AllowedCodes, ",")
		}
		table.AddRow(p.AgentName, codes, repos, formatFloat(p.MinAggregateScore))
	}
	return table.Render()
}

// formatFloat renders a threshold without trailing zeros (0.7, not 0.7000).
func formatFloat(f float64) string {
	s := strings.TrimRight(fmt.Sprintf("%.4f", f), "0")
	return strings.TrimRight(s, ".")
}
