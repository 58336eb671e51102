package prompt

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/prlens/internal/prctx"
	"github.com/dshills/prlens/internal/redact"
)

// Task selects which instruction template a prompt is built for.
type Task string

const (
	TaskDocumentation Task = "documentation"
	TaskCodeReview    Task = "code-review"
)

// Default budget values. All of them are configurable; the source material
// left the exact thresholds unspecified.
const (
	DefaultMaxCommits    = 50
	DefaultFileDiffChars = 4000
	DefaultTotalChars    = 60000
)

const truncationMarker = "…truncated…"

// Budget bounds the size of an assembled prompt.
type Budget struct {
	// MaxCommits caps the commit list at the most recent N commits.
	MaxCommits int
	// FileDiffChars caps each file's diff content.
	FileDiffChars int
	// TotalChars caps the whole prompt.
	TotalChars int
}

// DefaultBudget returns the built-in budget.
func DefaultBudget() Budget {
	return Budget{
		MaxCommits:    DefaultMaxCommits,
		FileDiffChars: DefaultFileDiffChars,
		TotalChars:    DefaultTotalChars,
	}
}

// BudgetError reports that a prompt could not be brought under the total
// ceiling even after per-file truncation and file dropping.
type BudgetError struct {
	Task      Task
	Assembled int
	Ceiling   int
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("prompt for %s is %d chars even with all file diffs dropped, ceiling is %d", e.Task, e.Assembled, e.Ceiling)
}

// IsBudgetError reports whether err is a BudgetError.
func IsBudgetError(err error) bool {
	var be *BudgetError
	return errors.As(err, &be)
}

// Builder renders task prompts from an analysis context. The zero value uses
// the default budget with secret redaction enabled.
type Builder struct {
	Budget Budget
	// NoRedact disables secret scrubbing of diff content.
	NoRedact bool
}

// Build renders the prompt for task from ctx. If override is non-empty it is
// used verbatim as the instruction header instead of the built-in template.
//
// Construction is deterministic: identical inputs yield byte-identical output.
func (b *Builder) Build(actx *prctx.AnalysisContext, task Task, override string) (string, error) {
	budget := b.Budget
	if budget.MaxCommits <= 0 {
		budget.MaxCommits = DefaultMaxCommits
	}
	if budget.FileDiffChars <= 0 {
		budget.FileDiffChars = DefaultFileDiffChars
	}
	if budget.TotalChars <= 0 {
		budget.TotalChars = DefaultTotalChars
	}

	header := override
	if header == "" {
		tmpl, ok := Template(task)
		if !ok {
			return "", fmt.Errorf("unknown prompt task: %q", task)
		}
		header = tmpl
	}

	var fixed strings.Builder
	fixed.WriteString(header)
	fixed.WriteString("\n")
	writeIssue(&fixed, actx.Issue)
	writeCommits(&fixed, actx.Commits, budget.MaxCommits)
	fmt.Fprintf(&fixed, "\n# FILE CHANGES (%d files, repo %s, change %d)\n", len(actx.Files), actx.Repo, actx.ChangeID)

	sections := make([]string, len(actx.Files))
	for i, f := range actx.Files {
		sections[i] = b.fileSection(f, budget.FileDiffChars)
	}

	dropped := fitToBudget(actx.Files, sections, fixed.Len(), budget.TotalChars)
	if dropped == nil {
		return "", &BudgetError{Task: task, Assembled: fixed.Len(), Ceiling: budget.TotalChars}
	}

	var out strings.Builder
	out.WriteString(fixed.String())
	for i, sec := range sections {
		if dropped[i] {
			continue
		}
		out.WriteString(sec)
	}
	writeDropNotice(&out, actx.Files, dropped)

	return out.String(), nil
}

func writeIssue(w *strings.Builder, issue *prctx.IssueRecord) {
	// No placeholder for a missing issue: the section is simply absent.
	if issue == nil {
		return
	}
	fmt.Fprintf(w, "\n# LINKED ISSUE\nKey: %s\nSummary: %s\n", issue.Key, issue.Summary)
	if issue.Description != "" {
		fmt.Fprintf(w, "Description:\n%s\n", issue.Description)
	}
}

func writeCommits(w *strings.Builder, commits []prctx.CommitRecord, maxCommits int) {
	if len(commits) == 0 {
		return
	}
	fmt.Fprintf(w, "\n# COMMITS (%d)\n", len(commits))
	start := 0
	if len(commits) > maxCommits {
		start = len(commits) - maxCommits
		fmt.Fprintf(w, "(+%d more commits omitted)\n", start)
	}
	for _, c := range commits[start:] {
		fmt.Fprintf(w, "- %s %s\n", shortID(c.ID), firstLine(c.Message))
	}
}

func (b *Builder) fileSection(f prctx.FileChange, diffChars int) string {
	diff := f.Diff
	if !b.NoRedact {
		diff = redact.Secrets(diff)
	}
	diff = truncateMiddle(diff, diffChars)

	var w strings.Builder
	fmt.Fprintf(&w, "\n## %s (+%d -%d)\n", f.Path, f.LinesAdded, f.LinesDeleted)
	if diff != "" {
		fmt.Fprintf(&w, "```diff\n%s\n```\n", diff)
	}
	return w.String()
}

// truncateMiddle keeps the first and last halves of the budget around a
// single truncation marker. A truncated diff is strictly better than an
// omitted file: the reviewer must still see that the file changed.
func truncateMiddle(s string, budget int) string {
	if len(s) <= budget {
		return s
	}
	head := budget / 2
	tail := budget - head
	return s[:head] + "\n" + truncationMarker + "\n" + s[len(s)-tail:]
}

// fitToBudget marks file sections to drop, lowest linesAdded first, until the
// assembled prompt fits the ceiling. Returns nil when even dropping every
// file cannot satisfy the budget. Ties break on path so the choice is stable.
func fitToBudget(files []prctx.FileChange, sections []string, fixedLen, ceiling int) []bool {
	total := fixedLen
	for _, sec := range sections {
		total += len(sec)
	}
	dropped := make([]bool, len(sections))
	if total <= ceiling {
		return dropped
	}

	order := make([]int, len(files))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		fa, fb := files[order[a]], files[order[b]]
		if fa.LinesAdded != fb.LinesAdded {
			return fa.LinesAdded < fb.LinesAdded
		}
		return fa.Path < fb.Path
	})

	for _, idx := range order {
		dropped[idx] = true
		total -= len(sections[idx])
		if total+dropNoticeLen(files, dropped) <= ceiling {
			return dropped
		}
	}
	return nil
}

func dropNoticeLen(files []prctx.FileChange, dropped []bool) int {
	var w strings.Builder
	writeDropNotice(&w, files, dropped)
	return w.Len()
}

func writeDropNotice(w *strings.Builder, files []prctx.FileChange, dropped []bool) {
	var paths []string
	for i, d := range dropped {
		if d {
			paths = append(paths, files[i].Path)
		}
	}
	if len(paths) == 0 {
		return
	}
	fmt.Fprintf(w, "\nNOTE: %d file(s) omitted to fit the prompt size limit: %s\n", len(paths), strings.Join(paths, ", "))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimRight(s[:i], "\r")
	}
	return s
}
