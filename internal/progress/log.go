package progress

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"codedojo/internal/course"
	"codedojo/internal/telemetry"
)

const (
	outcomeStarted = "started"
	outcomePassed  = "passed"
	outcomeFailed  = "failed"
)

type snapshot struct {
	entries       map[string]Entry
	workspacePath string
}

// Log is the process-wide progress record. Reads go through an immutable snapshot;
// writes are serialized and replace the snapshot.
type Log struct {
	store   Store
	logger  *telemetry.Logger
	courses []*course.Course
	lessons map[string]*course.Lesson
	order   map[string]int

	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
}

func NewLog(store Store, courses []*course.Course, logger *telemetry.Logger) *Log {
	l := &Log{
		store:   store,
		logger:  logger,
		courses: courses,
		lessons: map[string]*course.Lesson{},
		order:   map[string]int{},
	}
	i := 0
	for _, c := range courses {
		for _, lesson := range c.LoadedLessons {
			l.lessons[lesson.LessonID] = lesson
			l.order[lesson.LessonID] = i
			i++
		}
	}
	l.snap.Store(&snapshot{entries: map[string]Entry{}})
	return l
}

// Load reads the store and reconciles it against the loaded courses. Entries for
// lessons that no longer exist are dropped; new lessons start as not passed.
func (l *Log) Load(ctx context.Context) error {
	state, err := l.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load progress: %w", err)
	}
	stored := map[string]LessonRecord{}
	for _, c := range state.Courses {
		for _, rec := range c.Lessons {
			stored[rec.LessonID] = rec
		}
	}

	next := &snapshot{entries: map[string]Entry{}, workspacePath: state.WorkspacePath}
	dropped := 0
	for id := range stored {
		if _, ok := l.lessons[id]; !ok {
			dropped++
		}
	}
	for _, c := range l.courses {
		for _, lesson := range c.LoadedLessons {
			rec, ok := stored[lesson.LessonID]
			if !ok {
				rec = LessonRecord{LessonID: lesson.LessonID}
			}
			next.entries[lesson.LessonID] = Entry{
				LessonID:    lesson.LessonID,
				CourseID:    c.CourseID,
				Passed:      rec.Passed,
				Timestamp:   rec.Timestamp,
				Attempts:    rec.Attempts,
				Passes:      rec.Passes,
				LastOutcome: rec.LastOutcome,
			}
			lesson.SetPassed(rec.Passed)
		}
	}

	l.mu.Lock()
	l.snap.Store(next)
	l.mu.Unlock()
	l.logger.Info("progress.loaded", map[string]any{"lessons": len(next.entries), "dropped": dropped})
	return nil
}

func (l *Log) RecordStarted(lessonID string, ts time.Time) {
	l.update(func(s *snapshot) {
		e := l.entryLocked(s, lessonID)
		e.Attempts++
		e.Passed = false
		e.LastOutcome = outcomeStarted
		s.entries[lessonID] = e
	})
}

// RecordOutcome upserts the lesson's pass flag; the last write wins.
func (l *Log) RecordOutcome(lessonID string, passed bool, ts time.Time) {
	l.update(func(s *snapshot) {
		e := l.entryLocked(s, lessonID)
		e.Passed = passed
		e.Timestamp = ts
		if passed {
			e.Passes++
			e.LastOutcome = outcomePassed
		} else {
			e.LastOutcome = outcomeFailed
		}
		s.entries[lessonID] = e
	})
	if lesson, ok := l.lessons[lessonID]; ok {
		lesson.SetPassed(passed)
	}
}

// Reset clears one lesson, or every lesson when lessonID is empty.
func (l *Log) Reset(lessonID string) error {
	if lessonID != "" {
		if _, ok := l.lessons[lessonID]; !ok {
			return fmt.Errorf("lesson %s not found", lessonID)
		}
	}
	l.update(func(s *snapshot) {
		for id, e := range s.entries {
			if lessonID != "" && id != lessonID {
				continue
			}
			s.entries[id] = Entry{LessonID: id, CourseID: e.CourseID}
		}
	})
	for id, lesson := range l.lessons {
		if lessonID == "" || id == lessonID {
			lesson.SetPassed(false)
		}
	}
	return nil
}

func (l *Log) Entry(lessonID string) (Entry, bool) {
	e, ok := l.snap.Load().entries[lessonID]
	return e, ok
}

// Entries lists every entry in course order; entries for unknown lessons sort last.
func (l *Log) Entries() []Entry {
	s := l.snap.Load()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		oi, iok := l.order[out[i].LessonID]
		oj, jok := l.order[out[j].LessonID]
		if iok != jok {
			return iok
		}
		if iok {
			return oi < oj
		}
		return out[i].LessonID < out[j].LessonID
	})
	return out
}

func (l *Log) Summary() Summary {
	out := Summary{Courses: len(l.courses)}
	for _, e := range l.snap.Load().entries {
		out.Lessons++
		if e.Passed {
			out.Passed++
		}
		out.Attempts += e.Attempts
		out.Passes += e.Passes
	}
	return out
}

func (l *Log) WorkspacePath() string {
	return l.snap.Load().workspacePath
}

func (l *Log) SetWorkspacePath(path string) {
	l.update(func(s *snapshot) { s.workspacePath = path })
}

// Save writes the snapshot, retrying once. A second failure comes back as a
// *SaveError; callers treat it as a warning.
func (l *Log) Save(ctx context.Context) error {
	state := l.State()
	err := l.store.Save(ctx, state)
	if err == nil {
		return nil
	}
	l.logger.Warn("progress.save_retry", map[string]any{"error": err.Error()})
	if err = l.store.Save(ctx, state); err == nil {
		return nil
	}
	l.logger.Error("progress.save_failed", map[string]any{"error": err.Error()})
	return &SaveError{Err: err}
}

// State builds the persisted form of the current snapshot.
func (l *Log) State() State {
	entries := l.Entries()
	state := State{Version: StateVersion, WorkspacePath: l.WorkspacePath()}
	index := map[string]int{}
	for _, e := range entries {
		if e.CourseID == "" {
			continue
		}
		i, ok := index[e.CourseID]
		if !ok {
			i = len(state.Courses)
			index[e.CourseID] = i
			state.Courses = append(state.Courses, CourseRecord{CourseID: e.CourseID})
		}
		state.Courses[i].Lessons = append(state.Courses[i].Lessons, LessonRecord{
			LessonID:    e.LessonID,
			Passed:      e.Passed,
			Timestamp:   e.Timestamp,
			Attempts:    e.Attempts,
			Passes:      e.Passes,
			LastOutcome: e.LastOutcome,
		})
	}
	return state
}

func (l *Log) update(fn func(s *snapshot)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur := l.snap.Load()
	next := &snapshot{entries: make(map[string]Entry, len(cur.entries)), workspacePath: cur.workspacePath}
	for k, v := range cur.entries {
		next.entries[k] = v
	}
	fn(next)
	l.snap.Store(next)
}

func (l *Log) entryLocked(s *snapshot, lessonID string) Entry {
	if e, ok := s.entries[lessonID]; ok {
		return e
	}
	e := Entry{LessonID: lessonID}
	if lesson, ok := l.lessons[lessonID]; ok && lesson.Course() != nil {
		e.CourseID = lesson.Course().CourseID
	}
	return e
}
