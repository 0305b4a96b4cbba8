package checks

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"codedojo/internal/editor"
)

type evaluatorFunc func(Spec, editor.Snapshot, string) (Evaluation, error)

type Registry struct {
	mu       sync.RWMutex
	registry map[string]evaluatorFunc
	patterns sync.Map
}

func NewRegistry() *Registry {
	r := &Registry{registry: map[string]evaluatorFunc{}}
	r.registry[TypeTextContains] = r.evalTextContains
	r.registry[TypeTextNotContains] = r.evalTextNotContains
	r.registry[TypeTextEquals] = r.evalTextEquals
	r.registry[TypeTextMatchesRegex] = r.evalTextMatchesRegex
	r.registry[TypeTextEqualsArtifact] = r.evalTextEqualsArtifact
	r.registry[TypeLineCount] = r.evalLineCount
	r.registry[TypeCaretOffset] = r.evalCaretOffset
	r.registry[TypeCaretOnLine] = r.evalCaretOnLine
	r.registry[TypeCaretAfterText] = r.evalCaretAfterText
	r.registry[TypeSelectionEquals] = r.evalSelectionEquals
	return r
}

// Register adds or replaces a predicate type.
func (r *Registry) Register(typ string, fn func(Spec, editor.Snapshot, string) (Evaluation, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registry[typ] = fn
}

func (r *Registry) Known(typ string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.registry[typ]
	return ok
}

// Evaluate runs the predicate named by spec.Type. An unknown type is a failed
// evaluation, not an error.
func (r *Registry) Evaluate(spec Spec, snap editor.Snapshot, artifact string) (Evaluation, error) {
	r.mu.RLock()
	fn, ok := r.registry[spec.Type]
	r.mu.RUnlock()
	if !ok {
		return Evaluation{Passed: false, Summary: "unknown predicate", Message: "unknown predicate type: " + spec.Type}, nil
	}
	return fn(spec, snap, artifact)
}

func (r *Registry) evalTextContains(spec Spec, snap editor.Snapshot, _ string) (Evaluation, error) {
	if containsText(snap.Text, spec) {
		return Evaluation{Passed: true, Summary: "text found", Message: "ok"}, nil
	}
	return Evaluation{Passed: false, Summary: "text missing", Message: fmt.Sprintf("expected the document to contain %q", spec.Text)}, nil
}

func (r *Registry) evalTextNotContains(spec Spec, snap editor.Snapshot, _ string) (Evaluation, error) {
	if !containsText(snap.Text, spec) {
		return Evaluation{Passed: true, Summary: "text absent", Message: "ok"}, nil
	}
	return Evaluation{Passed: false, Summary: "text still present", Message: fmt.Sprintf("expected %q to be removed", spec.Text)}, nil
}

func (r *Registry) evalTextEquals(spec Spec, snap editor.Snapshot, _ string) (Evaluation, error) {
	return compareText(spec, spec.Text, snap.Text, "document"), nil
}

func (r *Registry) evalTextEqualsArtifact(spec Spec, snap editor.Snapshot, artifact string) (Evaluation, error) {
	return compareText(spec, artifact, snap.Text, "expected result"), nil
}

func (r *Registry) evalTextMatchesRegex(spec Spec, snap editor.Snapshot, _ string) (Evaluation, error) {
	re, err := r.compile(spec.Pattern, spec.IgnoreCase)
	if err != nil {
		return Evaluation{}, err
	}
	text := normalize(snap.Text, spec.Normalize)
	switch spec.regexMode() {
	case "whole_text":
		if re.MatchString(text) {
			return Evaluation{Passed: true, Summary: "pattern matches", Message: "ok"}, nil
		}
		return Evaluation{Passed: false, Summary: "pattern not found", Message: fmt.Sprintf("no match for %s", spec.Pattern)}, nil
	case "any_line", "all_lines":
		lines := splitLines(text)
		matches := 0
		for _, line := range lines {
			if re.MatchString(line) {
				matches++
			}
		}
		if spec.regexMode() == "any_line" {
			if matches > 0 {
				return Evaluation{Passed: true, Summary: "at least one line matches", Message: "ok"}, nil
			}
			return Evaluation{Passed: false, Summary: "no lines matched pattern", Message: "0 matches"}, nil
		}
		if len(lines) > 0 && matches == len(lines) {
			return Evaluation{Passed: true, Summary: "all lines match pattern", Message: "ok"}, nil
		}
		return Evaluation{Passed: false, Summary: "pattern mismatch", Message: fmt.Sprintf("matched %d of %d", matches, len(lines))}, nil
	default:
		return Evaluation{Passed: false, Summary: "invalid mode", Message: "unsupported regex mode"}, nil
	}
}

func (r *Registry) evalLineCount(spec Spec, snap editor.Snapshot, _ string) (Evaluation, error) {
	count := len(snap.Lines())
	if spec.Equals != nil {
		if count == *spec.Equals {
			return Evaluation{Passed: true, Summary: "line count matches", Message: "ok"}, nil
		}
		return Evaluation{Passed: false, Summary: "line count mismatch", Message: fmt.Sprintf("expected %d lines got %d", *spec.Equals, count)}, nil
	}
	if spec.Min != nil && count < *spec.Min {
		return Evaluation{Passed: false, Summary: "line count below minimum", Message: fmt.Sprintf("min %d got %d", *spec.Min, count)}, nil
	}
	if spec.Max != nil && count > *spec.Max {
		return Evaluation{Passed: false, Summary: "line count above maximum", Message: fmt.Sprintf("max %d got %d", *spec.Max, count)}, nil
	}
	return Evaluation{Passed: true, Summary: "line count within range", Message: "ok"}, nil
}

func (r *Registry) evalCaretOffset(spec Spec, snap editor.Snapshot, _ string) (Evaluation, error) {
	want := 0
	if spec.Offset != nil {
		want = *spec.Offset
	}
	if snap.Caret == want {
		return Evaluation{Passed: true, Summary: "caret in place", Message: "ok"}, nil
	}
	return Evaluation{Passed: false, Summary: "caret elsewhere", Message: fmt.Sprintf("move the caret to offset %d", want)}, nil
}

func (r *Registry) evalCaretOnLine(spec Spec, snap editor.Snapshot, _ string) (Evaluation, error) {
	if line := snap.CaretLine(); line == spec.Line {
		return Evaluation{Passed: true, Summary: "caret on line", Message: "ok"}, nil
	}
	return Evaluation{Passed: false, Summary: "caret on another line", Message: fmt.Sprintf("move the caret to line %d", spec.Line)}, nil
}

func (r *Registry) evalCaretAfterText(spec Spec, snap editor.Snapshot, _ string) (Evaluation, error) {
	before, want := snap.BeforeCaret(), spec.Text
	if spec.IgnoreCase {
		before, want = strings.ToLower(before), strings.ToLower(want)
	}
	if strings.HasSuffix(before, want) {
		return Evaluation{Passed: true, Summary: "caret after text", Message: "ok"}, nil
	}
	return Evaluation{Passed: false, Summary: "caret not after text", Message: fmt.Sprintf("place the caret right after %q", spec.Text)}, nil
}

func (r *Registry) evalSelectionEquals(spec Spec, snap editor.Snapshot, _ string) (Evaluation, error) {
	got, want := snap.Selection(), spec.Text
	if spec.IgnoreCase {
		got, want = strings.ToLower(got), strings.ToLower(want)
	}
	if got == want {
		return Evaluation{Passed: true, Summary: "selection matches", Message: "ok"}, nil
	}
	if got == "" {
		return Evaluation{Passed: false, Summary: "nothing selected", Message: fmt.Sprintf("select %q", spec.Text)}, nil
	}
	return Evaluation{Passed: false, Summary: "selection mismatch", Message: fmt.Sprintf("selected %q, expected %q", snap.Selection(), spec.Text)}, nil
}

func (r *Registry) compile(pattern string, ignoreCase bool) (*regexp.Regexp, error) {
	if ignoreCase {
		pattern = "(?i)" + pattern
	}
	if cached, ok := r.patterns.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern: %w", err)
	}
	r.patterns.Store(pattern, re)
	return re, nil
}

func containsText(text string, spec Spec) bool {
	text = normalize(text, spec.Normalize)
	needle := normalize(spec.Text, spec.Normalize)
	if spec.IgnoreCase {
		return strings.Contains(strings.ToLower(text), strings.ToLower(needle))
	}
	return strings.Contains(text, needle)
}

func compareText(spec Spec, expected, actual, label string) Evaluation {
	expected = normalize(expected, spec.Normalize)
	actual = normalize(actual, spec.Normalize)
	equal := expected == actual
	if spec.IgnoreCase {
		equal = strings.EqualFold(expected, actual)
	}
	if equal {
		return Evaluation{Passed: true, Summary: "content matches", Message: "ok"}
	}
	return Evaluation{
		Passed:  false,
		Summary: "content mismatch",
		Message: "document differs from the " + label,
		Diff:    mismatchPreview(expected, actual),
	}
}
