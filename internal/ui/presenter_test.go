package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"

	"codedojo/internal/checks"
	"codedojo/internal/course"
	"codedojo/internal/lesson"
	"codedojo/internal/workspace"
)

func TestRefreshProgressMarksLessons(t *testing.T) {
	l1 := &course.Lesson{LessonID: "basics-001", Name: "Typing"}
	l2 := &course.Lesson{LessonID: "basics-002", Name: "Navigation"}
	l3 := &course.Lesson{LessonID: "basics-003", Name: "Selection"}
	c := course.NewCourse(&course.Course{CourseID: "editor-basics", Name: "Editor Basics"}, l1, l2, l3)
	l1.SetPassed(true)
	l2.TryOpen()

	var out bytes.Buffer
	NewTextPresenter(&out, Options{Plain: true, ASCIIOnly: true}).RefreshProgress([]*course.Course{c})
	text := ansi.Strip(out.String())

	for _, want := range []string{"Editor Basics  1/3", "[x] basics-001", "[>] basics-002", "[ ] basics-003"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output:\n%s", want, text)
		}
	}
}

func TestShowHintIncludesDiff(t *testing.T) {
	var out bytes.Buffer
	p := NewTextPresenter(&out, Options{Plain: true})
	p.ShowHint("basics-003", "Replace the word.", checks.Evaluation{
		Summary: "content mismatch",
		Message: "document differs from the expected result",
		Diff:    "--- expected\n+++ document\n@@ line 1, offset 0 @@\n-a\n+b\n",
	})
	text := ansi.Strip(out.String())
	for _, want := range []string{"content mismatch", "Replace the word.", "+b"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output:\n%s", want, text)
		}
	}
}

func TestFriendlyErrors(t *testing.T) {
	cases := map[string]error{
		"too old":        &workspace.EnvironmentError{Kind: workspace.OldSdk, Detail: "have 1.20"},
		"already open":   &lesson.AlreadyOpenError{LessonID: "l1"},
		"was cancelled":  errors.Join(errors.New("open lesson"), workspace.ErrAborted),
		"result is miss": &course.MissingArtifactError{LessonID: "l1"},
	}
	for want, err := range cases {
		if got := FriendlyError(err); !strings.Contains(got, want) {
			t.Fatalf("FriendlyError(%v) = %q, want it to mention %q", err, got, want)
		}
	}
}

func TestTrimForWidth(t *testing.T) {
	if got := trimForWidth("abcdefgh", 5, true); got != "ab..." {
		t.Fatalf("unexpected ascii trim %q", got)
	}
	if got := trimForWidth("abcdefgh", 5, false); got != "abcd…" {
		t.Fatalf("unexpected trim %q", got)
	}
	if got := trimForWidth("abc", 5, false); got != "abc" {
		t.Fatalf("unexpected trim %q", got)
	}
}
