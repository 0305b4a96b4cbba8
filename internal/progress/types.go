package progress

import (
	"fmt"
	"time"
)

const StateVersion = 1

type Entry struct {
	LessonID    string
	CourseID    string
	Passed      bool
	Timestamp   time.Time
	Attempts    int
	Passes      int
	LastOutcome string
}

// State is the persisted layout: one record per course plus the backing project path.
type State struct {
	Version       int            `yaml:"version"`
	WorkspacePath string         `yaml:"workspace_path,omitempty"`
	Courses       []CourseRecord `yaml:"courses"`
}

type CourseRecord struct {
	CourseID string         `yaml:"course_id"`
	Lessons  []LessonRecord `yaml:"lessons"`
}

type LessonRecord struct {
	LessonID    string    `yaml:"lesson_id"`
	Passed      bool      `yaml:"passed"`
	Timestamp   time.Time `yaml:"timestamp,omitempty"`
	Attempts    int       `yaml:"attempts,omitempty"`
	Passes      int       `yaml:"passes,omitempty"`
	LastOutcome string    `yaml:"last_outcome,omitempty"`
}

type Summary struct {
	Courses  int
	Lessons  int
	Passed   int
	Attempts int
	Passes   int
}

// SaveError is a non-fatal persistence failure. In-memory progress stays valid.
type SaveError struct {
	Err error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("progress not saved: %v", e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }
