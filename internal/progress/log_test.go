package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"codedojo/internal/course"
)

type memStore struct {
	state    State
	saves    int
	failures int
}

func (m *memStore) Load(context.Context) (State, error) { return m.state, nil }

func (m *memStore) Save(_ context.Context, state State) error {
	m.saves++
	if m.failures > 0 {
		m.failures--
		return errors.New("disk full")
	}
	m.state = state
	return nil
}

func (m *memStore) Close() error { return nil }

func testCourses() []*course.Course {
	a := course.NewCourse(&course.Course{CourseID: "course-a", Name: "A"},
		&course.Lesson{LessonID: "l1"}, &course.Lesson{LessonID: "l2"})
	b := course.NewCourse(&course.Course{CourseID: "course-b", Name: "B"},
		&course.Lesson{LessonID: "l3"})
	return []*course.Course{a, b}
}

func TestLoadReconcilesAgainstCourses(t *testing.T) {
	courses := testCourses()
	store := &memStore{state: State{
		Version:       1,
		WorkspacePath: "/tmp/dojo",
		Courses: []CourseRecord{
			{CourseID: "course-a", Lessons: []LessonRecord{{LessonID: "l1", Passed: true, Passes: 1}, {LessonID: "gone", Passed: true}}},
			{CourseID: "course-old", Lessons: []LessonRecord{{LessonID: "ancient", Passed: true}}},
		},
	}}
	log := NewLog(store, courses, nil)
	if err := log.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	var got []string
	for _, e := range log.Entries() {
		got = append(got, e.CourseID+"/"+e.LessonID+":"+boolString(e.Passed))
	}
	want := []string{"course-a/l1:true", "course-a/l2:false", "course-b/l3:false"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
	if !courses[0].LoadedLessons[0].Passed() || courses[0].LoadedLessons[1].Passed() {
		t.Fatalf("expected lesson flags to follow the stored progress")
	}
	if log.WorkspacePath() != "/tmp/dojo" {
		t.Fatalf("unexpected workspace path %q", log.WorkspacePath())
	}
}

func TestRecordOutcomeLastWriteWins(t *testing.T) {
	courses := testCourses()
	log := NewLog(&memStore{}, courses, nil)
	if err := log.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	ts := time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)

	log.RecordStarted("l2", ts)
	log.RecordOutcome("l2", true, ts)
	log.RecordStarted("l2", ts.Add(time.Minute))
	log.RecordOutcome("l2", false, ts.Add(2*time.Minute))

	e, ok := log.Entry("l2")
	if !ok {
		t.Fatalf("missing entry")
	}
	want := Entry{LessonID: "l2", CourseID: "course-a", Passed: false, Timestamp: ts.Add(2 * time.Minute), Attempts: 2, Passes: 1, LastOutcome: "failed"}
	if diff := cmp.Diff(want, e); diff != "" {
		t.Fatalf("entry mismatch (-want +got):\n%s", diff)
	}
	if courses[0].LoadedLessons[1].Passed() {
		t.Fatalf("expected lesson flag to follow the last outcome")
	}
	s := log.Summary()
	if s.Lessons != 3 || s.Passed != 0 || s.Attempts != 2 || s.Passes != 1 {
		t.Fatalf("unexpected summary %#v", s)
	}
}

func TestRecordStartedClearsPreviousPass(t *testing.T) {
	log := NewLog(&memStore{}, testCourses(), nil)
	if err := log.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	ts := time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)
	log.RecordOutcome("l1", true, ts)
	log.RecordStarted("l1", ts.Add(time.Minute))

	e, _ := log.Entry("l1")
	if e.Passed || e.Passes != 1 || e.LastOutcome != "started" {
		t.Fatalf("expected reopened lesson unpassed with history kept, got %#v", e)
	}
	if log.Summary().Passed != 0 {
		t.Fatalf("expected no passed lessons while l1 is reopened")
	}
}

func TestSaveRetriesOnceThenWarns(t *testing.T) {
	store := &memStore{failures: 1}
	log := NewLog(store, testCourses(), nil)
	log.RecordOutcome("l1", true, time.Now())
	if err := log.Save(context.Background()); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if store.saves != 2 {
		t.Fatalf("expected two save attempts, got %d", store.saves)
	}

	store.failures = 2
	err := log.Save(context.Background())
	var saveErr *SaveError
	if !errors.As(err, &saveErr) {
		t.Fatalf("expected SaveError, got %v", err)
	}
	if e, _ := log.Entry("l1"); !e.Passed {
		t.Fatalf("failed save must not touch in-memory progress")
	}
	if len(store.state.Courses) != 1 || !store.state.Courses[0].Lessons[0].Passed {
		t.Fatalf("failed save must leave the last good snapshot, got %#v", store.state)
	}
}

func TestResetClearsLessonAndFlag(t *testing.T) {
	courses := testCourses()
	log := NewLog(&memStore{}, courses, nil)
	if err := log.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	log.RecordOutcome("l1", true, time.Now())
	log.RecordOutcome("l3", true, time.Now())

	if err := log.Reset("l1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if e, _ := log.Entry("l1"); e.Passed || e.Passes != 0 {
		t.Fatalf("expected l1 cleared, got %#v", e)
	}
	if e, _ := log.Entry("l3"); !e.Passed {
		t.Fatalf("expected l3 untouched")
	}
	if courses[0].LoadedLessons[0].Passed() {
		t.Fatalf("expected l1 lesson flag cleared")
	}
	if err := log.Reset("nope"); err == nil {
		t.Fatalf("expected error for unknown lesson")
	}
	if err := log.Reset(""); err != nil {
		t.Fatalf("reset all: %v", err)
	}
	if log.Summary().Passed != 0 {
		t.Fatalf("expected nothing passed after full reset")
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
