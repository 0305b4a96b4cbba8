package checks

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	TypeTextContains       = "text_contains"
	TypeTextNotContains    = "text_not_contains"
	TypeTextEquals         = "text_equals"
	TypeTextMatchesRegex   = "text_matches_regex"
	TypeTextEqualsArtifact = "text_equals_artifact"
	TypeLineCount          = "line_count"
	TypeCaretOffset        = "caret_offset"
	TypeCaretOnLine        = "caret_on_line"
	TypeCaretAfterText     = "caret_after_text"
	TypeSelectionEquals    = "selection_equals"
)

var builtinTypes = map[string]bool{
	TypeTextContains:       true,
	TypeTextNotContains:    true,
	TypeTextEquals:         true,
	TypeTextMatchesRegex:   true,
	TypeTextEqualsArtifact: true,
	TypeLineCount:          true,
	TypeCaretOffset:        true,
	TypeCaretOnLine:        true,
	TypeCaretAfterText:     true,
	TypeSelectionEquals:    true,
}

// Spec is the declarative description of a step's completion predicate.
type Spec struct {
	Type       string        `yaml:"type"`
	Text       string        `yaml:"text,omitempty"`
	Pattern    string        `yaml:"pattern,omitempty"`
	Mode       string        `yaml:"mode,omitempty"`
	Equals     *int          `yaml:"equals,omitempty"`
	Min        *int          `yaml:"min,omitempty"`
	Max        *int          `yaml:"max,omitempty"`
	Line       int           `yaml:"line,omitempty"`
	Offset     *int          `yaml:"offset,omitempty"`
	IgnoreCase bool          `yaml:"ignore_case,omitempty"`
	Normalize  NormalizeSpec `yaml:"normalize,omitempty"`
}

type NormalizeSpec struct {
	Newlines               string `yaml:"newlines,omitempty"`
	TrimTrailingWhitespace bool   `yaml:"trim_trailing_whitespace,omitempty"`
	TrimFinalNewline       bool   `yaml:"trim_final_newline,omitempty"`
}

type Evaluation struct {
	Passed  bool
	Summary string
	Message string
	Diff    string
}

func IsBuiltin(typ string) bool {
	return builtinTypes[typ]
}

// NeedsArtifact reports whether the predicate compares against an expected-result file.
func (s Spec) NeedsArtifact() bool {
	return s.Type == TypeTextEqualsArtifact
}

func (s Spec) Validate() error {
	if strings.TrimSpace(s.Type) == "" {
		return fmt.Errorf("predicate type is required")
	}
	if !IsBuiltin(s.Type) {
		return fmt.Errorf("unsupported predicate type %q", s.Type)
	}
	switch s.Newlines() {
	case "any", "lf", "crlf":
	default:
		return fmt.Errorf("%s: normalize.newlines must be any, lf or crlf", s.Type)
	}
	switch s.Type {
	case TypeTextContains, TypeTextNotContains, TypeCaretAfterText:
		if s.Text == "" {
			return fmt.Errorf("%s: text is required", s.Type)
		}
	case TypeTextMatchesRegex:
		if s.Pattern == "" {
			return fmt.Errorf("%s: pattern is required", s.Type)
		}
		if _, err := regexp.Compile(s.Pattern); err != nil {
			return fmt.Errorf("%s: invalid pattern: %w", s.Type, err)
		}
		switch s.regexMode() {
		case "whole_text", "any_line", "all_lines":
		default:
			return fmt.Errorf("%s: mode must be whole_text, any_line or all_lines", s.Type)
		}
	case TypeLineCount:
		if s.Equals == nil && s.Min == nil && s.Max == nil {
			return fmt.Errorf("%s: one of equals, min or max is required", s.Type)
		}
		if s.Equals != nil && *s.Equals < 0 {
			return fmt.Errorf("%s: equals must be >= 0", s.Type)
		}
		if s.Min != nil && s.Max != nil && *s.Min > *s.Max {
			return fmt.Errorf("%s: min %d exceeds max %d", s.Type, *s.Min, *s.Max)
		}
	case TypeCaretOffset:
		if s.Offset == nil || *s.Offset < 0 {
			return fmt.Errorf("%s: offset must be >= 0", s.Type)
		}
	case TypeCaretOnLine:
		if s.Line < 1 {
			return fmt.Errorf("%s: line must be >= 1", s.Type)
		}
	}
	return nil
}

func (s Spec) Newlines() string {
	if s.Normalize.Newlines == "" {
		return "any"
	}
	return s.Normalize.Newlines
}

func (s Spec) regexMode() string {
	if s.Mode == "" {
		return "whole_text"
	}
	return s.Mode
}
