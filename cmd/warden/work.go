package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ceponatia/warden/internal/formatter"
	"github.com/ceponatia/warden/internal/workdoc"
)

var (
	workRepo   string
	workStatus string
)

var workCmd = &cobra.Command{
	Use:   "work",
	Short: "Inspect Work Documents",
	Long: `Inspect the Work Documents warden tracks for a repository and append
manual notes to their audit trail.

Examples:
  warden work list --repo repo-a
  warden work list --repo repo-a --status resolved
  warden work show --repo repo-a WD-M1-001-pkg_a_go
  warden work note --repo repo-a WD-M1-001-pkg_a_go "triaged, assigning next sprint"`,
}

var workListCmd = &cobra.Command{
	Use:   "list",
	Short: "List Work Documents for a repository",
	RunE:  runWorkList,
}

var workShowCmd = &cobra.Command{
	Use:   "show <finding-id>",
	Short: "Show one Work Document",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkShow,
}

var workNoteCmd = &cobra.Command{
	Use:   "note <finding-id> <text>",
	Short: "Append a manual note to a Work Document",
	Args:  cobra.ExactArgs(2),
	RunE:  runWorkNote,
}

func init() {
	rootCmd.AddCommand(workCmd)
	workCmd.AddCommand(workListCmd)
	workCmd.AddCommand(workShowCmd)
	workCmd.AddCommand(workNoteCmd)

	workCmd.PersistentFlags().StringVar(&workRepo, "repo", "", "Repository slug")
	workListCmd.Flags().StringVar(&workStatus, "status", "", "Filter by status")
}

func runWorkList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // read path already finished

	repo, err := a.repoOrDefault(workRepo)
	if err != nil {
		return err
	}

	docs, err := a.lifecycle.List(repo.Slug)
	if err != nil {
		return err
	}

	if workStatus != "" {
		filtered := docs[:0]
		for _, d := range docs {
			if string(d.Status) == workStatus {
				filtered = append(filtered, d)
			}
		}
		docs = filtered
	}

	switch a.cfg.Output {
	case "json":
		return formatter.EncodeJSON(os.Stdout, docs)
	case "yaml":
		return formatter.EncodeYAML(os.Stdout, docs)
	}

	table := formatter.NewTable(os.Stdout, "FINDING ID", "CODE", "SEV", "STATUS", "TREND", "REPORTS", "LAST SEEN")
	table.SetMaxWidth(0, 48)
	for _, d := range docs {
		table.AddRow(
			d.FindingID,
			d.Code,
			formatter.ColorSeverity(d.Severity),
			formatter.ColorStatus(d.Status),
			string(d.Trend),
			strconv.Itoa(d.ConsecutiveReports),
			d.LastSeen.Format("2006-01-02 15:04"),
		)
	}
	return table.Render()
}

func runWorkShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // read path already finished

	repo, err := a.repoOrDefault(workRepo)
	if err != nil {
		return err
	}

	doc, err := a.lifecycle.Get(repo.Slug, args[0])
	if err != nil {
		return err
	}

	switch a.cfg.Output {
	case "yaml":
		return formatter.EncodeYAML(os.Stdout, doc)
	case "table":
		printWorkDoc(doc)
		return nil
	default:
		return formatter.EncodeJSON(os.Stdout, doc)
	}
}

func printWorkDoc(doc *workdoc.Document) {
	fmt.Printf("%s  %s %s\n", doc.FindingID, formatter.ColorSeverity(doc.Severity), formatter.ColorStatus(doc.Status))
	fmt.Printf("  code:     %s (%s)\n", doc.Code, doc.Metric)
	if doc.Path != "" {
		fmt.Printf("  path:     %s", doc.Path)
		if doc.Symbol != "" {
			fmt.Printf(" (%s)", doc.Symbol)
		}
		fmt.Println()
	}
	fmt.Printf("  trend:    %s after %d consecutive reports\n", doc.Trend, doc.ConsecutiveReports)
	fmt.Printf("  seen:     %s to %s\n", doc.FirstSeen.Format("2006-01-02"), doc.LastSeen.Format("2006-01-02"))
	if doc.AssignedTo != "" {
		fmt.Printf("  assigned: %s\n", doc.AssignedTo)
	}
	if doc.ResolvedAt != nil {
		fmt.Printf("  resolved: %s\n", doc.ResolvedAt.Format("2006-01-02 15:04"))
	}
	for _, n := range doc.Notes {
		fmt.Printf("  [%s] %s: %s\n", n.Timestamp.Format("2006-01-02 15:04"), n.Author, n.Text)
	}
}

func runWorkNote(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // single write already flushed

	repo, err := a.repoOrDefault(workRepo)
	if err != nil {
		return err
	}

	if GetDryRun() {
		fmt.Printf("would append note to %s in %s\n", args[0], repo.Slug)
		return nil
	}

	if err := a.lifecycle.AddNote(repo.Slug, args[0], GetCurrentUser(), args[1]); err != nil {
		return err
	}
	VerbosePrintf("note appended to %s\n", args[0])
	return nil
}
