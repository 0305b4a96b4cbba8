package checks

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var trailingBlank = regexp.MustCompile(`(?m)[ \t]+$`)

// normalize folds line endings to "\n" before any other rule so rune offsets stay
// comparable with the editor's. A "crlf" newline rule is applied last.
func normalize(s string, n NormalizeSpec) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if n.TrimTrailingWhitespace {
		s = trailingBlank.ReplaceAllString(s, "")
	}
	if n.TrimFinalNewline {
		s = strings.TrimSuffix(s, "\n")
	}
	if n.Newlines == "crlf" {
		s = strings.ReplaceAll(s, "\n", "\r\n")
	}
	return s
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// mismatchPreview lists the lines where the document departs from the expected text.
// Each hunk header names the 1-based line and the rune offset in the compared document
// of the first differing character, which is where the caret should go.
func mismatchPreview(expected, document string) string {
	want, got := splitLines(expected), splitLines(document)
	var b strings.Builder
	b.WriteString("--- expected\n+++ document\n")
	offset := 0
	for i := 0; i < max(len(want), len(got)); i++ {
		w, hasWant := lineAt(want, i)
		g, hasGot := lineAt(got, i)
		if hasWant == hasGot && w == g {
			offset += utf8.RuneCountInString(g) + 1
			continue
		}
		fmt.Fprintf(&b, "@@ line %d, offset %d @@\n", i+1, offset+sharedPrefix(w, g))
		if hasWant {
			b.WriteString("-" + w + "\n")
		}
		if hasGot {
			b.WriteString("+" + g + "\n")
			offset += utf8.RuneCountInString(g) + 1
		}
	}
	return b.String()
}

func lineAt(lines []string, i int) (string, bool) {
	if i < len(lines) {
		return lines[i], true
	}
	return "", false
}

// sharedPrefix counts the runes a and b have in common from the start.
func sharedPrefix(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	n := 0
	for n < len(ra) && n < len(rb) && ra[n] == rb[n] {
		n++
	}
	return n
}
