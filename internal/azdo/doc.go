// Package azdo is the change source: it fetches a pull request's commits and
// file contents from the Azure DevOps Git REST API and computes per-file
// diffs with added/deleted line counts client-side.
package azdo
