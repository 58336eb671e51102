package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/prlens/internal/azdo"
	"github.com/dshills/prlens/internal/jira"
	"github.com/dshills/prlens/internal/output"
	"github.com/dshills/prlens/internal/prctx"
	"github.com/dshills/prlens/internal/prompt"
	"github.com/dshills/prlens/internal/providers"
)

type fakeIssues struct {
	rec prctx.IssueRecord
	err error
}

func (f *fakeIssues) FetchIssue(_ context.Context, _ string) (prctx.IssueRecord, error) {
	return f.rec, f.err
}

type fakeChanges struct {
	cs  azdo.ChangeSet
	err error
}

func (f *fakeChanges) FetchChange(_ context.Context, _ string, _ int) (azdo.ChangeSet, error) {
	return f.cs, f.err
}

// echoGen records every prompt and answers with a canned body.
type echoGen struct {
	calls   atomic.Int32
	lastErr error
}

func (g *echoGen) Generate(_ context.Context, req providers.Request) (providers.Response, error) {
	g.calls.Add(1)
	if g.lastErr != nil {
		return providers.Response{}, g.lastErr
	}
	return providers.Response{Content: "generated from " + shortPrompt(req.Prompt), Provider: "echo"}, nil
}

func shortPrompt(p string) string {
	if len(p) > 40 {
		return p[:40]
	}
	return p
}

func sampleChange() azdo.ChangeSet {
	return azdo.ChangeSet{
		Commits: []prctx.CommitRecord{
			{ID: "abc1234def", Message: "add script", Author: "dev", Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		},
		Files: []prctx.FileChange{
			{Path: "a.py", Diff: "+print('hi')\n", LinesAdded: 1},
		},
	}
}

func baseOptions(t *testing.T, gen TextGenerator) Options {
	t.Helper()
	return Options{
		Repo:           "demo",
		ChangeID:       42,
		GenerateDocs:   true,
		GenerateReview: true,
		Changes:        &fakeChanges{cs: sampleChange()},
		Generator:      gen,
		Writer:         output.NewWriter(t.TempDir()),
		Builder:        &prompt.Builder{},
	}
}

func TestRunWithoutIssue(t *testing.T) {
	gen := &echoGen{}
	opts := baseOptions(t, gen)

	res, err := Run(context.Background(), opts)
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.False(t, res.SkippedIssue)
	assert.Len(t, res.Artifacts, 2)
	assert.Empty(t, res.WriteErrors)
	assert.Equal(t, prctx.KindDocumentation, res.Artifacts[0].Kind)
	assert.Equal(t, prctx.KindCodeReview, res.Artifacts[1].Kind)
	for _, art := range res.Artifacts {
		assert.Equal(t, "echo", art.ProviderUsed)
	}
	assert.EqualValues(t, 2, gen.calls.Load())

	doc, err := os.ReadFile(filepath.Join(opts.Writer.Dir, output.DocumentationFile))
	require.NoError(t, err)
	assert.NotEmpty(t, doc)

	files, err := os.ReadFile(filepath.Join(opts.Writer.Dir, output.FilesFile))
	require.NoError(t, err)
	assert.Contains(t, string(files), "a.py")

	_, err = os.Stat(filepath.Join(opts.Writer.Dir, output.IssueFile))
	assert.True(t, os.IsNotExist(err), "no issue file expected without an issue")
}

func TestRunEmptyChangeAborts(t *testing.T) {
	gen := &echoGen{}
	opts := baseOptions(t, gen)
	opts.Changes = &fakeChanges{cs: azdo.ChangeSet{}}

	_, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, prctx.IsAggregationError(err))
	assert.EqualValues(t, 0, gen.calls.Load(), "no provider call before a valid context exists")
}

func TestRunIssueNotFoundDegrades(t *testing.T) {
	gen := &echoGen{}
	opts := baseOptions(t, gen)
	opts.IssueKey = "PROJ-7"
	opts.Issues = &fakeIssues{err: &jira.NotFoundError{Key: "PROJ-7"}}

	res, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, res.SkippedIssue)
	assert.Nil(t, res.Context.Issue)
}

func TestRunIssueAuthErrorAborts(t *testing.T) {
	gen := &echoGen{}
	opts := baseOptions(t, gen)
	opts.IssueKey = "PROJ-7"
	opts.Issues = &fakeIssues{err: &jira.AuthError{Status: 401}}

	_, err := Run(context.Background(), opts)
	require.Error(t, err)
	var authErr *jira.AuthError
	assert.ErrorAs(t, err, &authErr)
	assert.EqualValues(t, 0, gen.calls.Load())
}

func TestRunIssueAttachedToContext(t *testing.T) {
	gen := &echoGen{}
	opts := baseOptions(t, gen)
	opts.IssueKey = "PROJ-7"
	opts.Issues = &fakeIssues{rec: prctx.IssueRecord{Key: "PROJ-7", Summary: "Fix login", Description: "Users cannot log in."}}

	res, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.NotNil(t, res.Context.Issue)
	assert.Equal(t, "PROJ-7", res.Context.Issue.Key)

	raw, err := os.ReadFile(filepath.Join(opts.Writer.Dir, output.IssueFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Fix login")
}

func TestRunChangeFetchFailureAborts(t *testing.T) {
	gen := &echoGen{}
	opts := baseOptions(t, gen)
	opts.Changes = &fakeChanges{err: &azdo.NotFoundError{Repo: "demo", ChangeID: 42}}

	_, err := Run(context.Background(), opts)
	require.Error(t, err)
	var nf *azdo.NotFoundError
	assert.ErrorAs(t, err, &nf)
	assert.EqualValues(t, 0, gen.calls.Load())
}

func TestRunAllTasksFailedIsFatal(t *testing.T) {
	gen := &echoGen{lastErr: &providers.ExhaustedError{Last: &providers.RateLimitError{Provider: "echo"}}}
	opts := baseOptions(t, gen)

	res, err := Run(context.Background(), opts)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Len(t, res.TaskErrors, 2)
	assert.Empty(t, res.Artifacts)
}

func TestRunDocsOnly(t *testing.T) {
	gen := &echoGen{}
	opts := baseOptions(t, gen)
	opts.GenerateReview = false

	res, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, res.Artifacts, 1)
	assert.Equal(t, prctx.KindDocumentation, res.Artifacts[0].Kind)
	assert.EqualValues(t, 1, gen.calls.Load())

	_, err = os.Stat(filepath.Join(opts.Writer.Dir, output.CodeReviewFile))
	assert.True(t, os.IsNotExist(err))
}

func TestRunValidation(t *testing.T) {
	gen := &echoGen{}

	opts := baseOptions(t, gen)
	opts.Repo = ""
	_, err := Run(context.Background(), opts)
	assert.Error(t, err)

	opts = baseOptions(t, gen)
	opts.GenerateDocs = false
	opts.GenerateReview = false
	_, err = Run(context.Background(), opts)
	assert.Error(t, err)

	opts = baseOptions(t, gen)
	opts.Generator = nil
	_, err = Run(context.Background(), opts)
	assert.True(t, errors.Is(err, providers.ErrNoProvider))

	opts = baseOptions(t, gen)
	opts.IssueKey = "PROJ-1"
	_, err = Run(context.Background(), opts)
	assert.Error(t, err, "issue key without an issue source")
}

func TestRunBudgetErrorIsFatal(t *testing.T) {
	gen := &echoGen{}
	opts := baseOptions(t, gen)
	opts.Builder = &prompt.Builder{Budget: prompt.Budget{TotalChars: 10}}

	_, err := Run(context.Background(), opts)
	require.Error(t, err)
	var be *prompt.BudgetError
	assert.ErrorAs(t, err, &be)
	assert.EqualValues(t, 0, gen.calls.Load())
}
