package progress

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func sampleState() State {
	ts := time.Date(2026, time.February, 1, 9, 30, 0, 0, time.UTC)
	return State{
		Version:       StateVersion,
		WorkspacePath: "/home/learner/dojo",
		Courses: []CourseRecord{
			{CourseID: "course-a", Lessons: []LessonRecord{
				{LessonID: "l1", Passed: true, Timestamp: ts, Attempts: 2, Passes: 1, LastOutcome: "passed"},
				{LessonID: "l2"},
			}},
			{CourseID: "course-b", Lessons: []LessonRecord{{LessonID: "l3", Attempts: 1, LastOutcome: "started"}}},
		},
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "progress.yaml"))
	ctx := context.Background()

	empty, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load missing file: %v", err)
	}
	if empty.Version != StateVersion || len(empty.Courses) != 0 {
		t.Fatalf("unexpected empty state %#v", empty)
	}

	if err := store.Save(ctx, sampleState()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(sampleState(), got); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp files to be cleaned up, found %d entries", len(entries))
	}
}

func TestFileStoreRejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.yaml")
	if err := os.WriteFile(path, []byte("version: 99\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFileStore(path).Load(context.Background()); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := NewSQLite(filepath.Join(t.TempDir(), "progress.db"))
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	defer func() { _ = store.Close() }()
	ctx := context.Background()
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	if err := store.Save(ctx, sampleState()); err != nil {
		t.Fatalf("save: %v", err)
	}
	// A second save replaces rather than accumulates.
	if err := store.Save(ctx, sampleState()); err != nil {
		t.Fatalf("save again: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(sampleState(), got); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
}
