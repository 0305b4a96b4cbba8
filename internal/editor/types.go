package editor

import (
	"errors"
	"strings"
)

var ErrClosed = errors.New("document is closed")

type EventKind int

const (
	TextChanged EventKind = iota + 1
	CaretMoved
	SelectionChanged
	Closed
)

func (k EventKind) String() string {
	switch k {
	case TextChanged:
		return "text_changed"
	case CaretMoved:
		return "caret_moved"
	case SelectionChanged:
		return "selection_changed"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind       EventKind
	DocumentID string
	Seq        uint64
}

// Snapshot is an immutable copy of a document's text and caret state.
// Caret and selection offsets count runes, not bytes.
type Snapshot struct {
	Text           string
	Caret          int
	SelectionStart int
	SelectionEnd   int
	Seq            uint64
}

func (s Snapshot) Selection() string {
	if s.SelectionEnd <= s.SelectionStart {
		return ""
	}
	r := []rune(s.Text)
	return string(r[clamp(s.SelectionStart, 0, len(r)):clamp(s.SelectionEnd, 0, len(r))])
}

// CaretLine returns the 1-based line the caret is on.
func (s Snapshot) CaretLine() int {
	r := []rune(s.Text)
	return strings.Count(string(r[:clamp(s.Caret, 0, len(r))]), "\n") + 1
}

// BeforeCaret returns the text between the start of the document and the caret.
func (s Snapshot) BeforeCaret() string {
	r := []rune(s.Text)
	return string(r[:clamp(s.Caret, 0, len(r))])
}

func (s Snapshot) Lines() []string {
	if s.Text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(strings.ReplaceAll(s.Text, "\r\n", "\n"), "\n"), "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
