// Package pipeline orchestrates a full analysis run: concurrent source
// fetches, context aggregation, prompt construction, provider generation,
// and artifact persistence. Collaborators are injected so each run is
// self-contained and testable without network access.
package pipeline
