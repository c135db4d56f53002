package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ceponatia/warden/internal/config"
	"github.com/ceponatia/warden/internal/cycle"
	"github.com/ceponatia/warden/internal/formatter"
)

var runRepo string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one analysis cycle across configured repositories",
	Long: `Run one full analysis cycle: ingest each repository's finding stream,
reconcile Work Documents (create, update, auto-resolve), re-assess the impact
of past auto-merges, and revoke autonomy grants that regressed.

Repositories are processed in parallel. A failure in one repository is
reported but does not stop the others.

Examples:
  warden run                  # All configured repositories
  warden run --repo repo-a    # A single repository`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runRepo, "repo", "", "Run a single repository by slug")
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // read path already finished

	repos := a.cfg.Repositories
	if runRepo != "" {
		r, ok := a.cfg.Repo(runRepo)
		if !ok {
			return fmt.Errorf("repository %q is not configured", runRepo)
		}
		repos = []config.RepoConfig{r}
	}
	if len(repos) == 0 {
		return fmt.Errorf("no repositories configured (add them to .warden/config.yaml)")
	}

	if GetDryRun() {
		for _, r := range repos {
			fmt.Printf("would run cycle for %s (findings: %s)\n", r.Slug, r.FindingsPath())
		}
		return nil
	}

	results := a.cycle.RunAll(cmd.Context(), repos, a.cfg.Cycle.Concurrency)

	switch a.cfg.Output {
	case "json":
		return formatter.EncodeJSON(os.Stdout, results)
	case "yaml":
		return formatter.EncodeYAML(os.Stdout, results)
	}

	table := formatter.NewTable(os.Stdout, "REPO", "FINDINGS", "CREATED", "UPDATED", "RESOLVED", "REVOKED", "STATUS")
	var failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
			table.AddRow(res.Repo, "-", "-", "-", "-", "-", res.Err.Error())
			continue
		}
		table.AddRow(
			res.Repo,
			strconv.Itoa(res.Report.Findings),
			strconv.Itoa(res.Report.Created),
			strconv.Itoa(res.Report.Updated),
			strconv.Itoa(res.Report.Resolved),
			strconv.Itoa(len(res.Report.Revocations)),
			"ok",
		)
	}
	if err := table.Render(); err != nil {
		return err
	}

	printRevocations(results)

	if failed > 0 {
		return fmt.Errorf("%d of %d repositories failed", failed, len(results))
	}
	return nil
}

func printRevocations(results []cycle.RepoResult) {
	for _, res := range results {
		if res.Report == nil {
			continue
		}
		for _, rev := range res.Report.Revocations {
			fmt.Printf("revoked %s in %s: %s\n", rev.AgentName, rev.Repo, rev.Reason)
		}
	}
}
