// Package cli wires together the Cobra command tree for the prlens binary.
//
// It defines the root command and all subcommands (analyze, config,
// providers, version), binds flags, reads configuration, builds the source
// clients and provider chain, runs the analysis pipeline, and returns
// deterministic exit codes for CI gating.
package cli
