// Package jira is the issue source: it fetches a single issue's summary and
// description from the Jira REST API, flattening rich-text descriptions to
// plain text for prompt use.
package jira
