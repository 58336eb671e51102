// Package config loads and merges prlens configuration from multiple
// sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (JIRA_*, AZDO_*, ANTHROPIC_API_KEY,
//     OPENAI_API_KEY, OLLAMA_HOST, PRLENS_*)
//  3. Config file ($XDG_CONFIG_HOME/prlens/config.yaml)
//  4. Built-in defaults
//
// Credentials are read from the environment only and are never written to
// the config file.
package config
