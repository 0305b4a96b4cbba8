package course

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	"codedojo/internal/checks"
)

const (
	CourseKind             = "course"
	LessonKind             = "lesson"
	SupportedSchemaVersion = 1
)

type DocumentKind string

const (
	Scratch DocumentKind = "scratch"
	Project DocumentKind = "project"
)

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{2,63}$`)

type Course struct {
	Kind          string         `yaml:"kind"`
	SchemaVersion int            `yaml:"schema_version"`
	CourseID      string         `yaml:"course_id"`
	Name          string         `yaml:"name"`
	DescriptionMD string         `yaml:"description_md"`
	DocumentKind  DocumentKind   `yaml:"document_kind"`
	Language      string         `yaml:"language"`
	FileName      string         `yaml:"file_name"`
	AnswersPath   string         `yaml:"answers_path"`
	SDK           SDKRequirement `yaml:"sdk"`
	Lessons       []LessonRef    `yaml:"lessons"`

	Path          string    `yaml:"-"`
	LoadedLessons []*Lesson `yaml:"-"`
}

type SDKRequirement struct {
	Type       string `yaml:"type"`
	MinVersion string `yaml:"min_version"`
}

type LessonRef struct {
	LessonID string `yaml:"lesson_id"`
	Path     string `yaml:"path"`
	Enabled  *bool  `yaml:"enabled"`
}

// Lesson is loaded once and shared by pointer. Its runtime flags are atomics so the
// progress log and UI can read them without holding the session lock.
type Lesson struct {
	Kind          string `yaml:"kind"`
	SchemaVersion int    `yaml:"schema_version"`
	LessonID      string `yaml:"lesson_id"`
	Name          string `yaml:"name"`
	SummaryMD     string `yaml:"summary_md"`
	InitialText   string `yaml:"initial_text"`
	TargetPath    string `yaml:"target_path"`
	Steps         []Step `yaml:"steps"`

	Path string `yaml:"-"`

	course     *Course
	passed     atomic.Bool
	open       atomic.Bool
	unopenable atomic.Bool
}

type Step struct {
	StepID    string      `yaml:"step_id"`
	Predicate checks.Spec `yaml:"predicate"`
	HintMD    string      `yaml:"hint_md"`
	MessageMD string      `yaml:"message_md"`
	OnPassMD  string      `yaml:"on_pass_md"`
}

func (c *Course) Validate() error {
	if c.Kind != CourseKind {
		return fmt.Errorf("kind must be %q", CourseKind)
	}
	if c.SchemaVersion == 0 {
		return fmt.Errorf("schema_version is required")
	}
	if c.SchemaVersion > SupportedSchemaVersion {
		return fmt.Errorf("unsupported course schema_version %d (max supported %d)", c.SchemaVersion, SupportedSchemaVersion)
	}
	if !idPattern.MatchString(c.CourseID) {
		return fmt.Errorf("invalid course_id %q", c.CourseID)
	}
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch c.DocumentKind {
	case "", Scratch, Project:
	default:
		return fmt.Errorf("document_kind must be %q or %q", Scratch, Project)
	}
	if strings.ContainsAny(c.FileName, `/\`) {
		return fmt.Errorf("file_name must not contain path separators")
	}
	seen := map[string]struct{}{}
	for _, l := range c.Lessons {
		if l.LessonID == "" {
			return fmt.Errorf("lessons[].lesson_id is required")
		}
		if _, ok := seen[l.LessonID]; ok {
			return fmt.Errorf("duplicate lesson_id %q in course.yaml", l.LessonID)
		}
		seen[l.LessonID] = struct{}{}
	}
	return nil
}

func (l *Lesson) Validate() error {
	if l.Kind != LessonKind {
		return fmt.Errorf("kind must be %q", LessonKind)
	}
	if l.SchemaVersion == 0 {
		return fmt.Errorf("schema_version is required")
	}
	if l.SchemaVersion > SupportedSchemaVersion {
		return fmt.Errorf("unsupported lesson schema_version %d (max supported %d)", l.SchemaVersion, SupportedSchemaVersion)
	}
	if !idPattern.MatchString(l.LessonID) {
		return fmt.Errorf("invalid lesson_id %q", l.LessonID)
	}
	if l.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(l.Steps) == 0 {
		return fmt.Errorf("lesson must have at least one step")
	}
	needsArtifact := false
	seen := map[string]struct{}{}
	for i, s := range l.Steps {
		if s.StepID != "" {
			if _, ok := seen[s.StepID]; ok {
				return fmt.Errorf("duplicate step_id %q", s.StepID)
			}
			seen[s.StepID] = struct{}{}
		}
		if err := s.Predicate.Validate(); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		if s.Predicate.NeedsArtifact() {
			needsArtifact = true
		}
	}
	if needsArtifact && l.TargetPath == "" {
		return fmt.Errorf("target_path is required when a step compares against the expected result")
	}
	return nil
}

func (c *Course) IsProjectBacked() bool { return c.DocumentKind == Project }

func (c *Course) LessonByID(id string) *Lesson {
	for _, l := range c.LoadedLessons {
		if l.LessonID == id {
			return l
		}
	}
	return nil
}

// NextNotPassed returns the first lesson, in course order, that is neither passed,
// open, nor marked unopenable.
func (c *Course) NextNotPassed() *Lesson {
	for _, l := range c.LoadedLessons {
		if l.Passed() || l.IsOpen() || l.Unopenable() {
			continue
		}
		return l
	}
	return nil
}

func (c *Course) HasNotPassed() bool {
	for _, l := range c.LoadedLessons {
		if !l.Passed() {
			return true
		}
	}
	return false
}

func (c *Course) PassedCount() int {
	n := 0
	for _, l := range c.LoadedLessons {
		if l.Passed() {
			n++
		}
	}
	return n
}

func (l *Lesson) Course() *Course { return l.course }

func (l *Lesson) Passed() bool     { return l.passed.Load() }
func (l *Lesson) SetPassed(v bool) { l.passed.Store(v) }
func (l *Lesson) IsOpen() bool     { return l.open.Load() }
func (l *Lesson) Unopenable() bool { return l.unopenable.Load() }
func (l *Lesson) MarkUnopenable()  { l.unopenable.Store(true) }
func (l *Lesson) ClearUnopenable() { l.unopenable.Store(false) }

// TryOpen claims the lesson for one session. It returns false when another session
// already holds it.
func (l *Lesson) TryOpen() bool { return l.open.CompareAndSwap(false, true) }

func (l *Lesson) Release() { l.open.Store(false) }

// NewCourse assembles an in-memory course, wiring each lesson's back reference.
func NewCourse(c *Course, lessons ...*Lesson) *Course {
	applyCourseDefaults(c)
	c.LoadedLessons = lessons
	for _, l := range lessons {
		l.course = c
	}
	return c
}
