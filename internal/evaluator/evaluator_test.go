package evaluator

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"codedojo/internal/checks"
	"codedojo/internal/course"
	"codedojo/internal/editor"
	"codedojo/internal/lesson"
)

type fakePresenter struct {
	messages []string
	hints    []string
}

func (p *fakePresenter) ShowMessage(_ string, markdown string) {
	p.messages = append(p.messages, markdown)
}

func (p *fakePresenter) ShowHint(_ string, markdown string, eval checks.Evaluation) {
	p.hints = append(p.hints, markdown+"|"+eval.Message)
}

type fakeArtifacts struct {
	text  string
	err   error
	loads int
}

func (a *fakeArtifacts) Load(*course.Lesson) (string, error) {
	a.loads++
	return a.text, a.err
}

func threeStepLesson() *course.Lesson {
	l := &course.Lesson{
		LessonID: "lesson-a",
		Steps: []course.Step{
			{StepID: "s1", MessageMD: "type func", HintMD: "need func", Predicate: checks.Spec{Type: checks.TypeTextContains, Text: "func"}},
			{StepID: "s2", MessageMD: "type main", HintMD: "need main", Predicate: checks.Spec{Type: checks.TypeTextContains, Text: "main"}},
			{StepID: "s3", MessageMD: "select main", HintMD: "select it", Predicate: checks.Spec{Type: checks.TypeSelectionEquals, Text: "main"}},
		},
	}
	course.NewCourse(&course.Course{CourseID: "course-a", Name: "A"}, l)
	return l
}

func start(t *testing.T, l *course.Lesson, doc editor.Document, opts Options) (*lesson.Machine, *Evaluator) {
	t.Helper()
	m := lesson.NewMachine(l, nil)
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	ev := New(m, doc, opts)
	if err := ev.Attach(); err != nil {
		t.Fatalf("attach: %v", err)
	}
	return m, ev
}

func TestScenarioTrace(t *testing.T) {
	l := threeStepLesson()
	buf := editor.NewBuffer("scratch", "")
	presenter := &fakePresenter{}
	m, _ := start(t, l, buf, Options{Presenter: presenter})

	type point struct {
		Cursor int
		State  lesson.State
	}
	var trace []point
	record := func() { trace = append(trace, point{m.Cursor(), m.State()}) }

	// E1: satisfies step 1.
	if err := buf.Insert(0, "func "); err != nil {
		t.Fatalf("insert: %v", err)
	}
	record()
	// E2: does not satisfy step 2.
	if err := buf.MoveCaret(0); err != nil {
		t.Fatalf("move caret: %v", err)
	}
	record()
	// E1 again: replaying a stale event must not advance.
	_ = buf.MoveCaret(5)
	record()
	// E3: satisfies step 2.
	if err := buf.Insert(5, "main"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	record()
	// E4: satisfies step 3.
	if err := buf.Select(5, 9); err != nil {
		t.Fatalf("select: %v", err)
	}
	record()

	want := []point{
		{1, lesson.InProgress},
		{1, lesson.InProgress},
		{1, lesson.InProgress},
		{2, lesson.InProgress},
		{3, lesson.Passed},
	}
	if diff := cmp.Diff(want, trace); diff != "" {
		t.Fatalf("trace mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"type func", "type main", "select main"}, presenter.messages); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	if !l.Passed() {
		t.Fatalf("expected lesson to be passed")
	}
}

func TestDuplicateEventsAreIdempotent(t *testing.T) {
	l := threeStepLesson()
	buf := editor.NewBuffer("scratch", "func")
	m, ev := start(t, l, buf, Options{})

	e := editor.Event{Kind: editor.TextChanged, DocumentID: buf.ID(), Seq: 1}
	ev.HandleEvent(e)
	if m.Cursor() != 1 {
		t.Fatalf("expected first delivery to advance to 1, got %d", m.Cursor())
	}
	ev.HandleEvent(e)
	ev.HandleEvent(e)
	if m.Cursor() != 1 {
		t.Fatalf("duplicate deliveries must not advance, got cursor %d", m.Cursor())
	}
}

func TestHintShownOncePerDistinctFailure(t *testing.T) {
	l := threeStepLesson()
	buf := editor.NewBuffer("scratch", "")
	presenter := &fakePresenter{}
	start(t, l, buf, Options{Presenter: presenter})

	_ = buf.Insert(0, "x")
	_ = buf.Insert(0, "y")
	_ = buf.MoveCaret(0)

	if len(presenter.hints) != 1 {
		t.Fatalf("expected one hint for a repeated failure, got %v", presenter.hints)
	}
}

func TestDetachDiscardsLaterEvents(t *testing.T) {
	l := threeStepLesson()
	buf := editor.NewBuffer("scratch", "")
	m, ev := start(t, l, buf, Options{})

	ev.Detach()
	ev.Detach()
	_ = buf.Insert(0, "func")
	if m.Cursor() != 0 {
		t.Fatalf("detached evaluator must not advance, got %d", m.Cursor())
	}
	if _, bound := ev.Cursor(); bound {
		t.Fatalf("expected no bound step after detach")
	}
}

func TestCloseDuringEvaluationDiscardsResult(t *testing.T) {
	l := threeStepLesson()
	buf := editor.NewBuffer("scratch", "")
	var m *lesson.Machine
	registry := checks.NewRegistry()
	registry.Register(checks.TypeTextContains, func(checks.Spec, editor.Snapshot, string) (checks.Evaluation, error) {
		m.Close()
		return checks.Evaluation{Passed: true}, nil
	})
	m, _ = start(t, l, buf, Options{Checks: registry})

	_ = buf.Insert(0, "func")
	if m.State() != lesson.Closed {
		t.Fatalf("expected Closed, got %s", m.State())
	}
	if m.Cursor() != 0 || l.Passed() {
		t.Fatalf("result of an evaluation that outlived its session must be dropped")
	}
}

func TestPredicatePanicIsAFailedEvaluation(t *testing.T) {
	l := threeStepLesson()
	buf := editor.NewBuffer("scratch", "")
	registry := checks.NewRegistry()
	registry.Register(checks.TypeTextContains, func(checks.Spec, editor.Snapshot, string) (checks.Evaluation, error) {
		panic("boom")
	})
	presenter := &fakePresenter{}
	m, _ := start(t, l, buf, Options{Checks: registry, Presenter: presenter})

	_ = buf.Insert(0, "func")
	if m.State() != lesson.InProgress || m.Cursor() != 0 {
		t.Fatalf("panic must leave the machine untouched, got %s/%d", m.State(), m.Cursor())
	}
	if len(presenter.hints) != 1 || presenter.hints[0] != "need func|boom" {
		t.Fatalf("unexpected hints %v", presenter.hints)
	}
}

func TestArtifactLoadedOncePerBind(t *testing.T) {
	l := &course.Lesson{
		LessonID:   "lesson-b",
		TargetPath: "answer.go",
		Steps: []course.Step{
			{Predicate: checks.Spec{Type: checks.TypeTextEqualsArtifact}},
		},
	}
	course.NewCourse(&course.Course{CourseID: "course-b", Name: "B"}, l)
	artifacts := &fakeArtifacts{text: "done"}
	buf := editor.NewBuffer("scratch", "")
	m, _ := start(t, l, buf, Options{Artifacts: artifacts})

	_ = buf.Insert(0, "do")
	_ = buf.Insert(2, "ne")
	if m.State() != lesson.Passed {
		t.Fatalf("expected Passed, got %s", m.State())
	}
	if artifacts.loads != 1 {
		t.Fatalf("expected artifact to load once, got %d", artifacts.loads)
	}
}

func TestMissingArtifactFailsAttach(t *testing.T) {
	l := &course.Lesson{
		LessonID:   "lesson-c",
		TargetPath: "answer.go",
		Steps:      []course.Step{{Predicate: checks.Spec{Type: checks.TypeTextEqualsArtifact}}},
	}
	course.NewCourse(&course.Course{CourseID: "course-c", Name: "C"}, l)
	m := lesson.NewMachine(l, nil)
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	missing := &course.MissingArtifactError{LessonID: "lesson-c", Path: "answer.go", Err: errors.New("gone")}
	err := New(m, editor.NewBuffer("scratch", ""), Options{Artifacts: &fakeArtifacts{err: missing}}).Attach()
	if !IsMissingArtifact(err) {
		t.Fatalf("expected missing artifact error, got %v", err)
	}
}
