// Package gitcmd wraps the git subprocess invocations warden needs: branch
// checkout, no-fast-forward merges, and history queries for impact
// assessment. All invocations run with a bounded timeout so a wedged git
// process cannot stall a repository's cycle forever.
package gitcmd

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Timeout is the maximum duration to wait for a single git command.
const Timeout = 30 * time.Second

// ErrTimeout is returned when a git command exceeds Timeout.
var ErrTimeout = fmt.Errorf("git command timeout after %s", Timeout)

// Runner is the git interface consumed by the merge orchestrator and the
// impact assessor. It exists so tests can substitute a fake.
type Runner interface {
	// Checkout checks out a branch in the repository working tree.
	Checkout(ctx context.Context, repoPath, branch string) error

	// MergeNoFF merges the source branch into the current branch with
	// --no-ff, preserving merge topology for revert detection.
	MergeNoFF(ctx context.Context, repoPath, source, message string) error

	// LogSubjects returns commit subjects since a time, optionally filtered
	// by a grep pattern against the commit message.
	LogSubjects(ctx context.Context, repoPath string, since time.Time, grep string) ([]string, error)

	// CountCommitsTouching returns the number of commits touching a file
	// since a time.
	CountCommitsTouching(ctx context.Context, repoPath, file string, since time.Time) (int, error)
}

// ExecRunner runs real git subprocesses.
type ExecRunner struct{}

// NewExecRunner returns a Runner backed by the git binary.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// run executes one git command and returns its combined stdout.
func (r *ExecRunner) run(ctx context.Context, repoPath string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", repoPath}, args...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// Checkout checks out a branch.
func (r *ExecRunner) Checkout(ctx context.Context, repoPath, branch string) error {
	_, err := r.run(ctx, repoPath, "checkout", branch)
	return err
}

// MergeNoFF merges source into the current branch without fast-forwarding.
func (r *ExecRunner) MergeNoFF(ctx context.Context, repoPath, source, message string) error {
	args := []string{"merge", "--no-ff", source}
	if message != "" {
		args = append(args, "-m", message)
	}
	_, err := r.run(ctx, repoPath, args...)
	return err
}

// LogSubjects lists commit subjects since a time, optionally grep-filtered.
func (r *ExecRunner) LogSubjects(ctx context.Context, repoPath string, since time.Time, grep string) ([]string, error) {
	args := []string{"log", "--format=%s", "--since", since.Format(time.RFC3339)}
	if grep != "" {
		args = append(args, "--grep", grep, "--regexp-ignore-case")
	}

	out, err := r.run(ctx, repoPath, args...)
	if err != nil {
		return nil, err
	}

	var subjects []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			subjects = append(subjects, line)
		}
	}
	return subjects, nil
}

// CountCommitsTouching counts commits touching a file since a time.
func (r *ExecRunner) CountCommitsTouching(ctx context.Context, repoPath, file string, since time.Time) (int, error) {
	out, err := r.run(ctx, repoPath, "log", "--format=%H", "--since", since.Format(time.RFC3339), "--", file)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count, nil
}
