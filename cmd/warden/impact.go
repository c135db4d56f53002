package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ceponatia/warden/internal/formatter"
)

var impactRepo string

var impactCmd = &cobra.Command{
	Use:   "impact [merge-id]",
	Short: "Inspect merge impact records",
	Long: `List a repository's merge impact records, or show one record in
detail. Records are opened when a merge lands and re-assessed every cycle
against the current finding stream.

Examples:
  warden impact --repo repo-a
  warden impact --repo repo-a 1757916000-lint-fix-agent-WD-M6-003`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImpact,
}

func init() {
	rootCmd.AddCommand(impactCmd)
	impactCmd.Flags().StringVar(&impactRepo, "repo", "", "Repository slug")
}

func runImpact(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // read path already finished

	repo, err := a.repoOrDefault(impactRepo)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		rec, err := a.assessor.Get(repo.Slug, args[0])
		if err != nil {
			return err
		}
		switch a.cfg.Output {
		case "yaml":
			return formatter.EncodeYAML(os.Stdout, rec)
		default:
			return formatter.EncodeJSON(os.Stdout, rec)
		}
	}

	records, err := a.assessor.List(repo.Slug)
	if err != nil {
		return err
	}

	switch a.cfg.Output {
	case "json":
		return formatter.EncodeJSON(os.Stdout, records)
	case "yaml":
		return formatter.EncodeYAML(os.Stdout, records)
	}

	table := formatter.NewTable(os.Stdout, "MERGE ID", "AGENT", "CODE", "AUTO", "INTRODUCED", "RESOLVED", "REVERT", "CHURN")
	table.SetMaxWidth(0, 48)
	for _, rec := range records {
		auto := ""
		if rec.AutoMerged {
			auto = "yes"
		}
		revert := ""
		if rec.Impact.RevertDetected {
			revert = "yes"
		}
		table.AddRow(
			rec.MergeID,
			rec.AgentName,
			rec.FindingCode,
			auto,
			strings.Join(rec.Impact.NewFindingsIntroduced, " "),
			fmt.Sprint(len(rec.Impact.FindingsResolved)),
			revert,
			strconv.Itoa(rec.Impact.SubsequentChurn),
		)
	}
	return table.Render()
}
