package prctx

import (
	"errors"
	"fmt"
)

// Reason classifies why aggregation was rejected.
type Reason string

const (
	ReasonEmptyChange   Reason = "empty-change"
	ReasonMalformedFile Reason = "malformed-file"
	ReasonDuplicatePath Reason = "duplicate-path"
)

// AggregationError reports malformed or empty input to Aggregate. It is
// always fatal; there is no retry for bad data.
type AggregationError struct {
	Reason Reason
	Detail string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation failed (%s): %s", e.Reason, e.Detail)
}

// IsAggregationError reports whether err is an AggregationError.
func IsAggregationError(err error) bool {
	var ae *AggregationError
	return errors.As(err, &ae)
}

// Aggregate assembles issue, commit, and file data into an immutable
// AnalysisContext. It performs no I/O: the sources have already fetched
// everything, and failures here mean the inputs themselves are unusable.
//
// A change request with no files is an aggregation failure, not a valid
// empty context. Every file path must be present and unique.
func Aggregate(issue *IssueRecord, repo string, changeID int, commits []CommitRecord, files []FileChange) (*AnalysisContext, error) {
	if len(files) == 0 {
		return nil, &AggregationError{
			Reason: ReasonEmptyChange,
			Detail: fmt.Sprintf("change %d in %q has no file changes", changeID, repo),
		}
	}

	seen := make(map[string]bool, len(files))
	for i, f := range files {
		if f.Path == "" {
			return nil, &AggregationError{
				Reason: ReasonMalformedFile,
				Detail: fmt.Sprintf("file change %d has no path", i),
			}
		}
		if seen[f.Path] {
			return nil, &AggregationError{
				Reason: ReasonDuplicatePath,
				Detail: fmt.Sprintf("path %q appears more than once", f.Path),
			}
		}
		seen[f.Path] = true
	}

	ctx := &AnalysisContext{
		Repo:     repo,
		ChangeID: changeID,
		Commits:  make([]CommitRecord, len(commits)),
		Files:    make([]FileChange, len(files)),
	}
	// Copy inputs so callers cannot mutate the context after the fact.
	copy(ctx.Commits, commits)
	copy(ctx.Files, files)
	if issue != nil {
		iss := *issue
		ctx.Issue = &iss
	}

	return ctx, nil
}
