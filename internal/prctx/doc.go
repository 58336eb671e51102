// Package prctx defines the analysis context for a single change request
// and the aggregation step that builds it.
//
// [Aggregate] merges the issue tracker record (optional) with the change
// source's commits and file diffs into one read-only [AnalysisContext].
// Aggregation is pure data assembly: no I/O, no retries, and strict
// validation so that downstream stages can trust the context shape.
package prctx
