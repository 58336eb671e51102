// Prlens aggregates pull request and issue context and generates
// documentation and code review artifacts with LLM providers.
//
// It fetches a pull request from Azure DevOps and an optional Jira issue,
// assembles a bounded analysis prompt, generates artifacts through a
// configurable provider fallback chain, and writes the context and results
// to deterministic files.
//
// Usage:
//
//	prlens analyze --repo my-repo --pr 42 --issue PROJ-123
//	prlens analyze --repo my-repo --pr 42 --no-docs   # review only
//	prlens providers                                  # show provider readiness
//	prlens config init                                # write default config
//
// See https://github.com/dshills/prlens for full documentation.
package main
