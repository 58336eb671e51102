// Package prompt renders task-specific prompts from an analysis context.
//
// A [Builder] applies the truncation policy: the commit list is capped at the
// most recent N commits, each file diff is middle-out truncated to a per-file
// character budget, and a total ceiling is enforced by dropping the files
// with the fewest added lines first, always recording what was cut. Output is
// deterministic, so identical contexts produce byte-identical prompts.
package prompt
