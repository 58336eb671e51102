package azdo

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// contextLines is how many unchanged lines are kept around each edit when
// rendering a diff; longer equal runs are collapsed.
const contextLines = 3

// renderDiff computes a line-based diff between two file versions, returning
// the rendered +/- text plus added and deleted line counts.
func renderDiff(before, after string) (diff string, added, deleted int) {
	if before == after {
		return "", 0, 0
	}

	dmp := diffmatchpatch.New()
	beforeChars, afterChars, lines := dmp.DiffLinesToChars(before, after)
	edits := dmp.DiffCharsToLines(dmp.DiffMain(beforeChars, afterChars, false), lines)

	var b strings.Builder
	for i, edit := range edits {
		editLines := splitLines(edit.Text)
		switch edit.Type {
		case diffmatchpatch.DiffInsert:
			added += len(editLines)
			writePrefixed(&b, "+", editLines)
		case diffmatchpatch.DiffDelete:
			deleted += len(editLines)
			writePrefixed(&b, "-", editLines)
		case diffmatchpatch.DiffEqual:
			writeContext(&b, editLines, i == 0, i == len(edits)-1)
		}
	}
	return b.String(), added, deleted
}

// writeContext keeps a few unchanged lines around edits and collapses the
// rest, so a small change in a large file stays small in the prompt.
func writeContext(b *strings.Builder, lines []string, first, last bool) {
	keepHead, keepTail := contextLines, contextLines
	if first {
		keepHead = 0
	}
	if last {
		keepTail = 0
	}
	if len(lines) <= keepHead+keepTail {
		writePrefixed(b, " ", lines)
		return
	}
	writePrefixed(b, " ", lines[:keepHead])
	fmt.Fprintf(b, "@@ %d unchanged lines @@\n", len(lines)-keepHead-keepTail)
	writePrefixed(b, " ", lines[len(lines)-keepTail:])
}

func writePrefixed(b *strings.Builder, prefix string, lines []string) {
	for _, line := range lines {
		b.WriteString(prefix)
		b.WriteString(line)
		b.WriteString("\n")
	}
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
