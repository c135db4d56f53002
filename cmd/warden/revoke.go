package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	revokeRepo   string
	revokeReason string
)

var revokeCmd = &cobra.Command{
	Use:   "revoke <agent>",
	Short: "Revoke an agent's autonomy grant",
	Long: `Disable an agent's autonomy rule in a repository. The rule is kept
with its revocation timestamp and reason; it is never deleted, so the grant
history stays auditable.

Examples:
  warden revoke lint-fix-agent --repo repo-a --reason "manual review found bad merges"`,
	Args: cobra.ExactArgs(1),
	RunE: runRevoke,
}

func init() {
	rootCmd.AddCommand(revokeCmd)
	revokeCmd.Flags().StringVar(&revokeRepo, "repo", "", "Repository slug")
	revokeCmd.Flags().StringVar(&revokeReason, "reason", "", "Why the grant is revoked (required)")

	_ = revokeCmd.MarkFlagRequired("reason") //nolint:errcheck // flag exists
}

func runRevoke(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // single write already flushed

	repo, err := a.repoOrDefault(revokeRepo)
	if err != nil {
		return err
	}
	agent := args[0]

	if GetDryRun() {
		fmt.Printf("would revoke %s in %s: %s\n", agent, repo.Slug, revokeReason)
		return nil
	}

	rule, err := a.policies.Revoke(repo.Slug, agent, revokeReason)
	if err != nil {
		return err
	}

	fmt.Printf("revoked %s in %s at %s: %s\n",
		agent, repo.Slug, rule.RevokedAt.Format("2006-01-02 15:04"), rule.RevocationReason)
	return nil
}
