package jira

import (
	"encoding/json"
	"strings"
)

// adfNode is the subset of the Atlassian Document Format needed to flatten a
// description into plain text.
type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text"`
	Content []adfNode `json:"content"`
}

// adfText flattens an ADF tree into plain text, inserting line breaks at
// block boundaries so structure survives loosely.
func adfText(raw json.RawMessage) string {
	var root adfNode
	if err := json.Unmarshal(raw, &root); err != nil {
		return ""
	}
	var b strings.Builder
	flattenADF(&b, root)
	return strings.TrimSpace(b.String())
}

func flattenADF(b *strings.Builder, n adfNode) {
	if n.Text != "" {
		b.WriteString(n.Text)
	}
	for _, child := range n.Content {
		flattenADF(b, child)
	}
	switch n.Type {
	case "paragraph", "heading", "listItem", "codeBlock", "blockquote", "rule":
		b.WriteString("\n")
	case "hardBreak":
		b.WriteString("\n")
	}
}
