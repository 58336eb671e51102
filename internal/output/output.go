package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/prlens/internal/prctx"
)

// Fixed destination names. These match across runs so a new run
// deterministically overwrites the previous one.
const (
	IssueFile         = "issue_data.json"
	CommitsFile       = "pr_commits.json"
	FilesFile         = "pr_files_content.json"
	DocumentationFile = "DOCUMENTATION.md"
	CodeReviewFile    = "CODE_REVIEW.md"
)

// WriteError reports a failure for a single destination. Destinations are
// independent: one failed write never blocks the others.
type WriteError struct {
	Dest string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Dest, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Writer persists the aggregated context and generated artifacts to a fixed
// set of files in one directory. Writes are whole-file replacements.
type Writer struct {
	Dir string
}

// NewWriter creates a writer rooted at dir ("." when empty).
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "."
	}
	return &Writer{Dir: dir}
}

// Write persists the raw aggregated inputs and every generated artifact,
// collecting one error per failed destination instead of aborting.
func (w *Writer) Write(runID string, actx *prctx.AnalysisContext, artifacts []prctx.GeneratedArtifact) []WriteError {
	var errs []WriteError

	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		// Without the directory nothing can be written; report every
		// destination as failed so the caller sees the full picture.
		errs = append(errs, WriteError{Dest: w.Dir, Err: err})
		return errs
	}

	if actx.Issue != nil {
		w.writeJSON(&errs, IssueFile, issueDocument{
			RunID:       runID,
			IssueRecord: *actx.Issue,
		})
	}
	w.writeJSON(&errs, CommitsFile, commitsDocument{
		RunID:    runID,
		Repo:     actx.Repo,
		ChangeID: actx.ChangeID,
		Count:    len(actx.Commits),
		Commits:  actx.Commits,
	})
	w.writeJSON(&errs, FilesFile, filesDocument{
		RunID:    runID,
		Repo:     actx.Repo,
		ChangeID: actx.ChangeID,
		Total:    len(actx.Files),
		Files:    actx.Files,
	})

	for _, art := range artifacts {
		name, ok := artifactFile(art.Kind)
		if !ok {
			errs = append(errs, WriteError{
				Dest: string(art.Kind),
				Err:  fmt.Errorf("no destination for artifact kind %q", art.Kind),
			})
			continue
		}
		w.writeFile(&errs, name, []byte(art.Content))
	}

	return errs
}

func artifactFile(kind prctx.ArtifactKind) (string, bool) {
	switch kind {
	case prctx.KindDocumentation:
		return DocumentationFile, true
	case prctx.KindCodeReview:
		return CodeReviewFile, true
	default:
		return "", false
	}
}

func (w *Writer) writeJSON(errs *[]WriteError, name string, doc any) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		*errs = append(*errs, WriteError{Dest: name, Err: err})
		return
	}
	w.writeFile(errs, name, append(data, '\n'))
}

func (w *Writer) writeFile(errs *[]WriteError, name string, data []byte) {
	path := filepath.Join(w.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		*errs = append(*errs, WriteError{Dest: name, Err: err})
	}
}

type issueDocument struct {
	RunID string `json:"runId"`
	prctx.IssueRecord
}

type commitsDocument struct {
	RunID    string               `json:"runId"`
	Repo     string               `json:"repo"`
	ChangeID int                  `json:"changeId"`
	Count    int                  `json:"count"`
	Commits  []prctx.CommitRecord `json:"commits"`
}

type filesDocument struct {
	RunID    string             `json:"runId"`
	Repo     string             `json:"repo"`
	ChangeID int                `json:"changeId"`
	Total    int                `json:"total"`
	Files    []prctx.FileChange `json:"files"`
}
