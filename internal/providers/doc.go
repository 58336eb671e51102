// Package providers implements the generation backend abstraction: a single
// Generate capability over a small closed set of variants (Anthropic, OpenAI,
// and a locally hosted Ollama server).
//
// Selection is an ordered readiness scan, not runtime type inspection: a
// [Chain] is built over the providers whose readiness predicate passes
// (credential configured, or local server reachable), in the configured
// priority order. The first eligible provider serves the whole run; auth
// failures bury a provider permanently, transient failures are retried with
// exponential backoff before falling through to the next provider.
package providers
