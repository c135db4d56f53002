package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ceponatia/warden/internal/automerge"
	"github.com/ceponatia/warden/internal/config"
	"github.com/ceponatia/warden/internal/formatter"
	"github.com/ceponatia/warden/internal/workdoc"
)

var (
	mergeRepo     string
	mergeBranch   string
	mergeTarget   string
	mergeFiles    []string
	mergeCheck    bool
	mergeSeverity string
)

var mergeCmd = &cobra.Command{
	Use:   "merge <agent> <finding-id>",
	Short: "Auto-merge an agent's fix branch if the agent is eligible",
	Long: `Run the auto-merge eligibility decision for an agent and finding, and
perform the merge when eligible. Ineligible requests never touch git; the
reason is recorded on the Work Document's audit trail.

With --check the decision is printed and nothing is merged.

Examples:
  warden merge lint-fix-agent WD-M6-003-pkg_a_go --repo repo-a --branch fix/WD-M6-003
  warden merge lint-fix-agent WD-M6-003-pkg_a_go --repo repo-a --check`,
	Args: cobra.ExactArgs(2),
	RunE: runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)
	mergeCmd.Flags().StringVar(&mergeRepo, "repo", "", "Repository slug")
	mergeCmd.Flags().StringVar(&mergeBranch, "branch", "", "Agent's fix branch (required unless --check)")
	mergeCmd.Flags().StringVar(&mergeTarget, "target", "", "Target branch (default: repository default branch)")
	mergeCmd.Flags().StringSliceVar(&mergeFiles, "files", nil, "Files the fix touches, for impact tracking")
	mergeCmd.Flags().BoolVar(&mergeCheck, "check", false, "Only print the eligibility decision")
	mergeCmd.Flags().StringVar(&mergeSeverity, "severity", "", "Override severity (default: the Work Document's)")
}

func runMerge(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // outcome already reported

	repo, err := a.repoOrDefault(mergeRepo)
	if err != nil {
		return err
	}
	agent, findingID := args[0], args[1]

	doc, err := a.lifecycle.Get(repo.Slug, findingID)
	if err != nil {
		return fmt.Errorf("load work document: %w", err)
	}

	severity := doc.Severity
	if mergeSeverity != "" {
		severity, err = workdoc.ParseSeverity(mergeSeverity)
		if err != nil {
			return err
		}
	}

	decision, err := a.engine.CheckAutoMergeEligibility(repo.Slug, agent, doc.Code, severity)
	if err != nil {
		return err
	}

	fmt.Printf("%s for %s (%s at %s): %s\n",
		formatter.ColorEligible(decision.Eligible), agent, doc.Code, severity, decision.Reason)

	if mergeCheck || !decision.Eligible {
		if !decision.Eligible && !mergeCheck {
			// Record the refusal on the audit trail.
			_, _ = a.merger.Execute(cmd.Context(), mergeRequest(repo, agent, doc, findingID), decision) //nolint:errcheck // ineligible path cannot fail
		}
		return nil
	}

	if mergeBranch == "" {
		return fmt.Errorf("--branch is required to merge")
	}
	if GetDryRun() {
		fmt.Printf("would merge %s into %s in %s\n", mergeBranch, targetBranch(repo), repo.Path)
		return nil
	}

	rec, err := a.merger.Execute(cmd.Context(), mergeRequest(repo, agent, doc, findingID), decision)
	if err != nil {
		return err
	}
	fmt.Printf("merged %s into %s (impact record %s)\n", mergeBranch, targetBranch(repo), rec.MergeID)
	return nil
}

func mergeRequest(repo config.RepoConfig, agent string, doc *workdoc.Document, findingID string) automerge.Request {
	files := mergeFiles
	if len(files) == 0 && doc.Path != "" {
		files = []string{doc.Path}
	}
	return automerge.Request{
		Repo:         repo.Slug,
		RepoPath:     repo.Path,
		Agent:        agent,
		FindingID:    findingID,
		FindingCode:  doc.Code,
		SourceBranch: mergeBranch,
		TargetBranch: targetBranch(repo),
		Files:        files,
	}
}

func targetBranch(repo config.RepoConfig) string {
	if mergeTarget != "" {
		return mergeTarget
	}
	return repo.Branch()
}
