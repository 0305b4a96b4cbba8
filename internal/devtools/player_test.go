package devtools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codedojo/internal/course"
	"codedojo/internal/editor"
	"codedojo/internal/session"
	"codedojo/internal/workspace"
)

type bufferDocs struct{}

func (bufferDocs) OpenOrCreateScratch(name string) (editor.Editable, error) {
	return editor.NewBuffer(name, ""), nil
}

func (bufferDocs) OpenOrCreateProjectFile(_ *workspace.Project, name string) (editor.Editable, error) {
	return editor.NewBuffer(name, ""), nil
}

type staticProvisioner struct{ project *workspace.Project }

func (p staticProvisioner) EnsureBackingProject(context.Context, *workspace.Project) (*workspace.Project, error) {
	return p.project, nil
}

type orchestratorTarget struct {
	o        *session.Orchestrator
	courseID string
}

func (t orchestratorTarget) Document() (editor.Editable, bool) { return t.o.Document(t.courseID) }

func (t orchestratorTarget) Current() (string, int, bool) {
	sessions := t.o.Sessions()
	if len(sessions) == 0 {
		return "", 0, false
	}
	return sessions[0].Lesson().LessonID, sessions[0].Cursor(), true
}

func (t orchestratorTarget) Passed(lessonID string) bool {
	l, err := course.FindLesson(t.o.Courses(), lessonID)
	return err == nil && l.Passed()
}

func playBundled(t *testing.T, name string) (Report, error) {
	t.Helper()
	courses, skipped, err := course.NewLoader().LoadCourses(context.Background(), filepath.Join("..", "..", "courses"))
	if err != nil {
		t.Fatalf("load courses: %v", err)
	}
	if len(skipped) != 0 {
		t.Fatalf("unexpected skipped content: %v", skipped[0])
	}
	script, err := LoadScript(filepath.Join("..", "..", "replays", name+".yaml"))
	if err != nil {
		t.Fatalf("load script: %v", err)
	}
	o := session.New(session.Options{
		Courses:     courses,
		Documents:   bufferDocs{},
		Provisioner: staticProvisioner{project: &workspace.Project{Name: "dojo", Root: t.TempDir(), Modules: []string{"main"}, SDK: &workspace.SDK{Type: "go", Version: "1.22.0"}}},
	})
	defer o.CloseAll()

	s, err := o.OpenByName(context.Background(), script.LessonID)
	if err != nil {
		t.Fatalf("open %s: %v", script.LessonID, err)
	}
	return NewPlayer(0, nil).Play(context.Background(), script, orchestratorTarget{o: o, courseID: s.Course().CourseID})
}

func TestBundledEditorBasicsReplayPasses(t *testing.T) {
	report, err := playBundled(t, "editor-basics")
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if len(report.Steps) == 0 {
		t.Fatalf("expected recorded steps")
	}
	if last := report.Steps[len(report.Steps)-1]; last.Live {
		t.Fatalf("expected chain to finish, still at %s", last.LessonID)
	}
}

func TestBundledProjectReplayPasses(t *testing.T) {
	if _, err := playBundled(t, "go-project"); err != nil {
		t.Fatalf("play: %v", err)
	}
}

func TestFailedExpectationIsTyped(t *testing.T) {
	doc := editor.NewBuffer("scratch", "")
	target := fixedTarget{doc: doc, lessonID: "lesson-one"}
	cursor := 2
	script := &Script{Name: "x", Actions: []Action{
		{Op: OpInsert, Text: "hello"},
		{Op: OpExpect, Expect: &Expectation{LessonID: "lesson-one", Cursor: &cursor}},
	}}
	report, err := NewPlayer(0, nil).Play(context.Background(), script, target)
	var expErr *ExpectationError
	if !errors.As(err, &expErr) || expErr.Index != 1 {
		t.Fatalf("expected expectation error at action 1, got %v", err)
	}
	if len(report.Steps) != 1 || doc.Snapshot().Text != "hello" {
		t.Fatalf("expected the insert to be applied before failing")
	}
}

func TestPlayStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	script := &Script{Name: "x", Actions: []Action{{Op: OpInsert, Text: "a", After: 1}}}
	_, err := NewPlayer(1, nil).Play(ctx, script, fixedTarget{doc: editor.NewBuffer("scratch", "")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLoadScriptValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	body := "kind: replay\nschema_version: 1\nlesson_id: l1\nactions:\n  - op: teleport\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := LoadScript(path)
	if err == nil || !strings.Contains(err.Error(), "unknown op") {
		t.Fatalf("expected unknown op error, got %v", err)
	}
}

func TestLoadScriptsSorted(t *testing.T) {
	scripts, err := LoadScripts(filepath.Join("..", "..", "replays"))
	if err != nil {
		t.Fatalf("load scripts: %v", err)
	}
	if len(scripts) != 2 || scripts[0].Name != "editor-basics" || scripts[1].Name != "go-project" {
		t.Fatalf("unexpected scripts %v", scripts)
	}
}

type fixedTarget struct {
	doc      editor.Editable
	lessonID string
}

func (f fixedTarget) Document() (editor.Editable, bool) { return f.doc, true }
func (f fixedTarget) Current() (string, int, bool)      { return f.lessonID, 0, f.lessonID != "" }
func (f fixedTarget) Passed(string) bool                { return false }
