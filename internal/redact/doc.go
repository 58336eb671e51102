// Package redact strips credential-shaped strings from diff content before
// it is embedded in a prompt and sent to a generation provider.
package redact
