package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"codedojo/internal/course"
	"codedojo/internal/editor"
	"codedojo/internal/evaluator"
	"codedojo/internal/lesson"
	"codedojo/internal/workspace"
)

// Session is one lesson running in one document.
type Session struct {
	id       string
	owner    *Orchestrator
	course   *course.Course
	lesson   *course.Lesson
	doc      editor.Editable
	project  *workspace.Project
	machine  *lesson.Machine
	eval     *evaluator.Evaluator
	depth    int
	openedAt time.Time

	unsubscribe func()
	closeOnce   sync.Once
}

func (s *Session) ID() string                  { return s.id }
func (s *Session) Course() *course.Course      { return s.course }
func (s *Session) Lesson() *course.Lesson      { return s.lesson }
func (s *Session) Document() editor.Document   { return s.doc }
func (s *Session) Project() *workspace.Project { return s.project }
func (s *Session) State() lesson.State         { return s.machine.State() }
func (s *Session) Cursor() int                 { return s.machine.Cursor() }

// Depth is the number of chained opens that led to this session. A session opened
// directly by the caller has depth 0.
func (s *Session) Depth() int { return s.depth }

// Close ends the session. The document stays open for the next lesson of the course.
func (s *Session) Close() {
	s.owner.closeSession(s, true)
}

func newSession(o *Orchestrator, c *course.Course, l *course.Lesson, doc editor.Editable, project *workspace.Project, depth int) *Session {
	return &Session{
		id:       uuid.NewString(),
		owner:    o,
		course:   c,
		lesson:   l,
		doc:      doc,
		project:  project,
		depth:    depth,
		openedAt: time.Now(),
	}
}

// shutdown detaches everything the session registered. It reports whether this call
// did the work.
func (s *Session) shutdown() bool {
	done := false
	s.closeOnce.Do(func() {
		done = true
		if s.eval != nil {
			s.eval.Detach()
		}
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		s.machine.Close()
	})
	return done
}
