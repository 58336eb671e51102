package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/prlens/internal/prctx"
)

func testRunContext() *prctx.AnalysisContext {
	return &prctx.AnalysisContext{
		Issue:    &prctx.IssueRecord{Key: "PROJ-1", Summary: "do it"},
		Repo:     "demo",
		ChangeID: 42,
		Commits:  []prctx.CommitRecord{{ID: "c1", Message: "first"}},
		Files:    []prctx.FileChange{{Path: "a.py", Diff: "+x", LinesAdded: 1}},
	}
}

func TestWriteAllDestinations(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	artifacts := []prctx.GeneratedArtifact{
		{Kind: prctx.KindDocumentation, Content: "# Docs\n", ProviderUsed: "ollama"},
		{Kind: prctx.KindCodeReview, Content: "# Review\n", ProviderUsed: "ollama"},
	}

	errs := w.Write("run-1", testRunContext(), artifacts)
	require.Empty(t, errs)

	for _, name := range []string{IssueFile, CommitsFile, FilesFile, DocumentationFile, CodeReviewFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	var commits commitsDocument
	data, err := os.ReadFile(filepath.Join(dir, CommitsFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &commits))
	assert.Equal(t, "run-1", commits.RunID)
	assert.Equal(t, 1, commits.Count)

	doc, err := os.ReadFile(filepath.Join(dir, DocumentationFile))
	require.NoError(t, err)
	assert.Equal(t, "# Docs\n", string(doc))
}

func TestWriteNoIssueSkipsIssueFile(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	actx := testRunContext()
	actx.Issue = nil

	errs := w.Write("run-1", actx, nil)
	require.Empty(t, errs)

	_, err := os.Stat(filepath.Join(dir, IssueFile))
	assert.True(t, os.IsNotExist(err), "issue file must not exist when no issue was fetched")
}

func TestWriteOverwritesPriorRun(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	art := []prctx.GeneratedArtifact{{Kind: prctx.KindDocumentation, Content: "old old old old"}}
	require.Empty(t, w.Write("run-1", testRunContext(), art))

	art[0].Content = "new"
	require.Empty(t, w.Write("run-2", testRunContext(), art))

	data, err := os.ReadFile(filepath.Join(dir, DocumentationFile))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data), "writes are whole-file replacements")
}

func TestWriteIndependentFailures(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	// Make one destination unwritable by shadowing it with a directory.
	require.NoError(t, os.Mkdir(filepath.Join(dir, DocumentationFile), 0o755))

	artifacts := []prctx.GeneratedArtifact{
		{Kind: prctx.KindDocumentation, Content: "docs"},
		{Kind: prctx.KindCodeReview, Content: "review"},
	}
	errs := w.Write("run-1", testRunContext(), artifacts)

	require.Len(t, errs, 1)
	assert.Equal(t, DocumentationFile, errs[0].Dest)

	// The failed destination did not block the rest.
	data, err := os.ReadFile(filepath.Join(dir, CodeReviewFile))
	require.NoError(t, err)
	assert.Equal(t, "review", string(data))
	_, err = os.Stat(filepath.Join(dir, CommitsFile))
	assert.NoError(t, err)
}

func TestWriteUnknownArtifactKind(t *testing.T) {
	w := NewWriter(t.TempDir())

	errs := w.Write("run-1", testRunContext(), []prctx.GeneratedArtifact{{Kind: "haiku"}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "haiku")
}
