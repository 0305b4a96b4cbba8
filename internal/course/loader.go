package course

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var languageExtensions = map[string]string{
	"go":     ".go",
	"java":   ".java",
	"kotlin": ".kt",
	"python": ".py",
}

type FSLoader struct{}

func NewLoader() *FSLoader { return &FSLoader{} }

// LoadCourses reads every <root>/<dir>/course.yaml. Malformed courses and lessons are
// skipped and reported; only an unreadable root fails the whole load.
func (l *FSLoader) LoadCourses(ctx context.Context, root string) ([]*Course, []*StructuralError, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, nil, fmt.Errorf("read courses root: %w", err)
	}

	var (
		courses []*Course
		skipped []*StructuralError
	)
	courseIDs := map[string]struct{}{}
	lessonIDs := map[string]string{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if !entry.IsDir() {
			continue
		}
		coursePath := filepath.Join(root, entry.Name())
		courseYAML := filepath.Join(coursePath, "course.yaml")
		if _, err := os.Stat(courseYAML); err != nil {
			continue
		}
		c, err := readCourse(courseYAML)
		if err != nil {
			skipped = append(skipped, &StructuralError{Path: courseYAML, CourseID: c.CourseID, Err: err})
			continue
		}
		if _, dup := courseIDs[c.CourseID]; dup {
			skipped = append(skipped, &StructuralError{Path: courseYAML, CourseID: c.CourseID, Err: fmt.Errorf("duplicate course_id")})
			continue
		}
		c.Path = coursePath
		applyCourseDefaults(c)

		lessons, lessonErrs := readLessons(c)
		skipped = append(skipped, lessonErrs...)
		for _, lesson := range lessons {
			if owner, dup := lessonIDs[lesson.LessonID]; dup {
				skipped = append(skipped, &StructuralError{
					Path:     lesson.Path,
					CourseID: c.CourseID,
					LessonID: lesson.LessonID,
					Err:      fmt.Errorf("lesson_id already used by course %s", owner),
				})
				continue
			}
			lessonIDs[lesson.LessonID] = c.CourseID
			lesson.course = c
			c.LoadedLessons = append(c.LoadedLessons, lesson)
		}
		if len(c.LoadedLessons) == 0 {
			skipped = append(skipped, &StructuralError{Path: courseYAML, CourseID: c.CourseID, Err: fmt.Errorf("course has no loadable lessons")})
			continue
		}
		courseIDs[c.CourseID] = struct{}{}
		courses = append(courses, c)
	}

	sort.Slice(courses, func(i, j int) bool { return courses[i].CourseID < courses[j].CourseID })
	return courses, skipped, nil
}

func readCourse(path string) (*Course, error) {
	c := &Course{}
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return c, fmt.Errorf("parse: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("validate: %w", err)
	}
	return c, nil
}

func applyCourseDefaults(c *Course) {
	if c.DocumentKind == "" {
		c.DocumentKind = Scratch
	}
	if c.Language == "" {
		c.Language = "go"
	}
	if c.AnswersPath == "" {
		c.AnswersPath = "answers"
	}
	if c.FileName == "" {
		ext, ok := languageExtensions[strings.ToLower(c.Language)]
		if !ok {
			ext = ".txt"
		}
		c.FileName = strings.ReplaceAll(c.Name, " ", "") + ext
	}
	if c.IsProjectBacked() && c.SDK.Type == "" {
		c.SDK.Type = c.Language
	}
}

func readLessons(c *Course) ([]*Lesson, []*StructuralError) {
	if len(c.Lessons) > 0 {
		return readLessonsFromManifest(c)
	}
	return readLessonsFromScan(c)
}

func readLessonsFromManifest(c *Course) ([]*Lesson, []*StructuralError) {
	var (
		lessons []*Lesson
		skipped []*StructuralError
	)
	for _, ref := range c.Lessons {
		if ref.Enabled != nil && !*ref.Enabled {
			continue
		}
		path := ref.Path
		if path == "" {
			path = filepath.Join("lessons", ref.LessonID+".yaml")
		}
		path = filepath.Join(c.Path, path)
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			path = filepath.Join(path, "lesson.yaml")
		}
		lesson, err := loadLessonFile(path)
		if err == nil && lesson.LessonID != ref.LessonID {
			err = fmt.Errorf("lesson id mismatch: manifest=%s file=%s", ref.LessonID, lesson.LessonID)
		}
		if err != nil {
			skipped = append(skipped, &StructuralError{Path: path, CourseID: c.CourseID, LessonID: ref.LessonID, Err: err})
			continue
		}
		lessons = append(lessons, lesson)
	}
	return lessons, skipped
}

func readLessonsFromScan(c *Course) ([]*Lesson, []*StructuralError) {
	lessonRoot := filepath.Join(c.Path, "lessons")
	entries, err := os.ReadDir(lessonRoot)
	if err != nil {
		return nil, []*StructuralError{{Path: lessonRoot, CourseID: c.CourseID, Err: err}}
	}
	var (
		lessons []*Lesson
		skipped []*StructuralError
	)
	for _, e := range entries {
		var path string
		switch {
		case e.IsDir():
			path = filepath.Join(lessonRoot, e.Name(), "lesson.yaml")
			if _, err := os.Stat(path); err != nil {
				continue
			}
		case strings.HasSuffix(e.Name(), ".yaml"):
			path = filepath.Join(lessonRoot, e.Name())
		default:
			continue
		}
		lesson, err := loadLessonFile(path)
		if err != nil {
			skipped = append(skipped, &StructuralError{Path: path, CourseID: c.CourseID, LessonID: lesson.LessonID, Err: err})
			continue
		}
		lessons = append(lessons, lesson)
	}
	return lessons, skipped
}

func loadLessonFile(path string) (*Lesson, error) {
	lesson := &Lesson{Path: path}
	b, err := os.ReadFile(path)
	if err != nil {
		return lesson, err
	}
	if err := yaml.Unmarshal(b, lesson); err != nil {
		return lesson, fmt.Errorf("parse: %w", err)
	}
	if err := lesson.Validate(); err != nil {
		return lesson, fmt.Errorf("validate: %w", err)
	}
	return lesson, nil
}

// FindLesson looks a lesson up by id, ignoring case.
func FindLesson(courses []*Course, lessonID string) (*Lesson, error) {
	for _, c := range courses {
		for _, l := range c.LoadedLessons {
			if strings.EqualFold(l.LessonID, lessonID) {
				return l, nil
			}
		}
	}
	return nil, fmt.Errorf("lesson %s not found", lessonID)
}

// FindLessonByName matches a lesson id or display name, ignoring case.
func FindLessonByName(courses []*Course, name string) (*Lesson, error) {
	if l, err := FindLesson(courses, name); err == nil {
		return l, nil
	}
	for _, c := range courses {
		for _, l := range c.LoadedLessons {
			if strings.EqualFold(l.Name, name) {
				return l, nil
			}
		}
	}
	return nil, fmt.Errorf("lesson %s not found", name)
}

// FindCourse looks a course up by id, ignoring case.
func FindCourse(courses []*Course, courseID string) (*Course, error) {
	for _, c := range courses {
		if strings.EqualFold(c.CourseID, courseID) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("course %s not found", courseID)
}

// FSArtifacts reads expected results from <course>/<answers_path>/<target_path>.
type FSArtifacts struct{}

func (FSArtifacts) Load(l *Lesson) (string, error) {
	if l.TargetPath == "" {
		return "", nil
	}
	c := l.Course()
	root := ""
	if c != nil {
		root = filepath.Join(c.Path, c.AnswersPath)
	}
	path := filepath.Join(root, filepath.FromSlash(l.TargetPath))
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &MissingArtifactError{LessonID: l.LessonID, Path: path, Err: err}
		}
		return "", fmt.Errorf("read expected result: %w", err)
	}
	return string(b), nil
}
