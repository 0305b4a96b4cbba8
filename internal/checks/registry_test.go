package checks

import (
	"strings"
	"testing"

	"codedojo/internal/editor"
)

func intPtr(v int) *int { return &v }

func TestRegistryEvaluatesBuiltins(t *testing.T) {
	r := NewRegistry()
	snap := editor.Snapshot{
		Text:           "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n",
		Caret:          27,
		SelectionStart: 14,
		SelectionEnd:   18,
	}

	cases := []struct {
		name string
		spec Spec
		want bool
	}{
		{"contains", Spec{Type: TypeTextContains, Text: "func main"}, true},
		{"contains ignore case", Spec{Type: TypeTextContains, Text: "FUNC MAIN", IgnoreCase: true}, true},
		{"not contains", Spec{Type: TypeTextNotContains, Text: "fmt."}, true},
		{"not contains fails", Spec{Type: TypeTextNotContains, Text: "println"}, false},
		{"regex whole", Spec{Type: TypeTextMatchesRegex, Pattern: `println\("\w+"\)`}, true},
		{"regex any line", Spec{Type: TypeTextMatchesRegex, Pattern: `^func`, Mode: "any_line"}, true},
		{"regex all lines", Spec{Type: TypeTextMatchesRegex, Pattern: `^func`, Mode: "all_lines"}, false},
		{"line count equals", Spec{Type: TypeLineCount, Equals: intPtr(5)}, true},
		{"line count max", Spec{Type: TypeLineCount, Max: intPtr(3)}, false},
		{"caret offset", Spec{Type: TypeCaretOffset, Offset: intPtr(27)}, true},
		{"caret on line", Spec{Type: TypeCaretOnLine, Line: 3}, true},
		{"caret after text", Spec{Type: TypeCaretAfterText, Text: "main() {"}, true},
		{"selection", Spec{Type: TypeSelectionEquals, Text: "func"}, true},
		{"selection mismatch", Spec{Type: TypeSelectionEquals, Text: "main"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.spec.Validate(); err != nil {
				t.Fatalf("validate: %v", err)
			}
			eval, err := r.Evaluate(tc.spec, snap, "")
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if eval.Passed != tc.want {
				t.Fatalf("expected passed=%v, got %#v", tc.want, eval)
			}
		})
	}
}

func TestArtifactMismatchProducesDiff(t *testing.T) {
	r := NewRegistry()
	spec := Spec{Type: TypeTextEqualsArtifact, Normalize: NormalizeSpec{TrimTrailingWhitespace: true, TrimFinalNewline: true}}
	eval, err := r.Evaluate(spec, editor.Snapshot{Text: "a \nc\n"}, "a\nb")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if eval.Passed {
		t.Fatalf("expected mismatch")
	}
	if !strings.Contains(eval.Diff, "-b\n+c\n") {
		t.Fatalf("unexpected diff:\n%s", eval.Diff)
	}

	eval, err = r.Evaluate(spec, editor.Snapshot{Text: "a  \nb\n"}, "a\nb")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !eval.Passed {
		t.Fatalf("expected normalized match, got %#v", eval)
	}
}

func TestMismatchPreviewPointsAtFirstDifference(t *testing.T) {
	got := mismatchPreview("package main\nfunc alpha()\n", "package main\nfunc beta()\n// extra\n")
	want := "--- expected\n+++ document\n" +
		"@@ line 2, offset 18 @@\n-func alpha()\n+func beta()\n" +
		"@@ line 3, offset 25 @@\n+// extra\n"
	if got != want {
		t.Fatalf("unexpected preview:\n%s", got)
	}
	if mismatchPreview("same\n", "same") != "--- expected\n+++ document\n" {
		t.Fatalf("expected no hunks for equal text")
	}
}

func TestLineCountEqualsZeroRequiresEmptyDocument(t *testing.T) {
	r := NewRegistry()
	spec := Spec{Type: TypeLineCount, Equals: intPtr(0)}
	if err := spec.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	eval, err := r.Evaluate(spec, editor.Snapshot{Text: ""}, "")
	if err != nil || !eval.Passed {
		t.Fatalf("expected empty document to pass, got %#v %v", eval, err)
	}
	eval, err = r.Evaluate(spec, editor.Snapshot{Text: "package main\n"}, "")
	if err != nil || eval.Passed {
		t.Fatalf("expected non-empty document to fail, got %#v %v", eval, err)
	}
}

func TestUnknownTypeIsFailedEvaluation(t *testing.T) {
	eval, err := NewRegistry().Evaluate(Spec{Type: "nope"}, editor.Snapshot{}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eval.Passed || eval.Summary != "unknown predicate" {
		t.Fatalf("unexpected evaluation %#v", eval)
	}
}

func TestRegisterCustomPredicate(t *testing.T) {
	r := NewRegistry()
	r.Register("always", func(Spec, editor.Snapshot, string) (Evaluation, error) {
		return Evaluation{Passed: true}, nil
	})
	if !r.Known("always") {
		t.Fatalf("expected custom predicate to be known")
	}
	eval, err := r.Evaluate(Spec{Type: "always"}, editor.Snapshot{}, "")
	if err != nil || !eval.Passed {
		t.Fatalf("unexpected result %#v err=%v", eval, err)
	}
}

func TestSpecValidateRejectsBadInput(t *testing.T) {
	bad := []Spec{
		{},
		{Type: "bogus"},
		{Type: TypeTextContains},
		{Type: TypeTextMatchesRegex, Pattern: "("},
		{Type: TypeTextMatchesRegex, Pattern: "a", Mode: "sometimes"},
		{Type: TypeLineCount},
		{Type: TypeLineCount, Min: intPtr(4), Max: intPtr(2)},
		{Type: TypeLineCount, Equals: intPtr(-1)},
		{Type: TypeCaretOffset},
		{Type: TypeCaretOnLine},
		{Type: TypeTextEquals, Normalize: NormalizeSpec{Newlines: "cr"}},
	}
	for i, spec := range bad {
		if err := spec.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error for %#v", i, spec)
		}
	}
	if !(Spec{Type: TypeTextEqualsArtifact}).NeedsArtifact() {
		t.Fatalf("expected artifact predicate to need an artifact")
	}
}
