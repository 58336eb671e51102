package prctx

import "time"

// IssueRecord holds the tracker issue associated with a change request.
// It is optional: a change request with no linked issue produces a context
// with a nil issue, never a placeholder.
type IssueRecord struct {
	Key         string `json:"key"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
}

// CommitRecord is a single commit in the change request, in the order the
// change source returned it.
type CommitRecord struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
}

// FileChange is one file touched by the change request. Diff may be tens of
// thousands of characters; it is size-bounded by the prompt builder, not here.
type FileChange struct {
	Path         string `json:"path"`
	Diff         string `json:"diff"`
	LinesAdded   int    `json:"linesAdded"`
	LinesDeleted int    `json:"linesDeleted"`
}

// AnalysisContext is the aggregate root consumed read-only by the prompt
// builder. It is built once per pipeline run and never cached across runs.
type AnalysisContext struct {
	Issue    *IssueRecord   `json:"issue,omitempty"`
	Repo     string         `json:"repo"`
	ChangeID int            `json:"changeId"`
	Commits  []CommitRecord `json:"commits"`
	Files    []FileChange   `json:"files"`
}

// ArtifactKind identifies which generation task produced an artifact.
type ArtifactKind string

const (
	KindDocumentation ArtifactKind = "documentation"
	KindCodeReview    ArtifactKind = "code-review"
)

// GeneratedArtifact is one rendered output of a pipeline run. It is created
// once, flushed immediately, and never mutated.
type GeneratedArtifact struct {
	Kind         ArtifactKind `json:"kind"`
	Content      string       `json:"content"`
	ProviderUsed string       `json:"providerUsed"`
}
