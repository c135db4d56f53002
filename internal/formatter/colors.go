package formatter

import (
	"github.com/fatih/color"

	"github.com/ceponatia/warden/internal/workdoc"
)

var (
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
)

// ColorSeverity renders a severity with urgency coloring: S0-S2 red,
// S3 yellow, S4-S5 plain.
func ColorSeverity(s workdoc.Severity) string {
	switch s {
	case workdoc.SeverityS0, workdoc.SeverityS1, workdoc.SeverityS2:
		return red(string(s))
	case workdoc.SeverityS3:
		return yellow(string(s))
	default:
		return string(s)
	}
}

// ColorStatus renders a work document status: resolved states green,
// blocked red, in-flight cyan, terminal wont-fix faint.
func ColorStatus(st workdoc.Status) string {
	switch st {
	case workdoc.StatusResolved:
		return green(string(st))
	case workdoc.StatusBlocked:
		return red(string(st))
	case workdoc.StatusAgentInProgress, workdoc.StatusAgentComplete, workdoc.StatusPMReview:
		return cyan(string(st))
	case workdoc.StatusWontFix:
		return faint(string(st))
	default:
		return string(st)
	}
}

// ColorEligible renders an eligibility verdict.
func ColorEligible(ok bool) string {
	if ok {
		return green("eligible")
	}
	return red("not eligible")
}

// ColorEnabled renders a rule's enabled state.
func ColorEnabled(ok bool) string {
	if ok {
		return green("enabled")
	}
	return red("revoked")
}
