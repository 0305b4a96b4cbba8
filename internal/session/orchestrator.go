package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"codedojo/internal/checks"
	"codedojo/internal/course"
	"codedojo/internal/editor"
	"codedojo/internal/evaluator"
	"codedojo/internal/lesson"
	"codedojo/internal/telemetry"
	"codedojo/internal/workspace"
)

// ErrOpenAborted is returned when the learner declines to set up a backing project.
var ErrOpenAborted = errors.New("lesson open aborted")

const (
	DefaultScratchName   = "Learning"
	DefaultMaxChainDepth = 32
)

type Options struct {
	Courses     []*course.Course
	Documents   DocumentProvider
	Provisioner workspace.Provisioner
	Validator   workspace.Validator
	// Paths remembers the backing project root once it has passed validation.
	Paths workspace.PathStore
	// HostProject describes the environment scratch courses run in. Only its SDK is
	// consulted.
	HostProject *workspace.Project
	Presenter   Presenter
	Recorder    lesson.Recorder
	Checks      checks.Evaluator
	Artifacts   course.Artifacts
	Logger      *telemetry.Logger

	ScratchName   string
	MaxChainDepth int
	// Defer runs fn after the current event has been handled, typically by posting it
	// to the control loop. When nil, chained opens run once the current one unwinds.
	Defer func(fn func())
	// OnIdle is called when the last session ends and no chained open follows.
	OnIdle func()
}

type docEntry struct {
	doc     editor.Editable
	project *workspace.Project
	sub     editor.Subscription
}

// Orchestrator opens lessons into documents, keeps at most one document per course
// and chains into the next unfinished lesson when one completes.
type Orchestrator struct {
	opts Options

	mu       sync.Mutex
	docs     map[string]*docEntry
	sessions []*Session
	project  *workspace.Project
	queue    []func()
	draining bool
}

func New(opts Options) *Orchestrator {
	if opts.Validator == nil {
		opts.Validator = workspace.NewValidator()
	}
	if opts.Checks == nil {
		opts.Checks = checks.NewRegistry()
	}
	if opts.Artifacts == nil {
		opts.Artifacts = course.FSArtifacts{}
	}
	if strings.TrimSpace(opts.ScratchName) == "" {
		opts.ScratchName = DefaultScratchName
	}
	if opts.MaxChainDepth <= 0 {
		opts.MaxChainDepth = DefaultMaxChainDepth
	}
	return &Orchestrator{opts: opts, docs: map[string]*docEntry{}}
}

func (o *Orchestrator) Courses() []*course.Course { return o.opts.Courses }

func (o *Orchestrator) CourseByID(courseID string) (*course.Course, error) {
	return course.FindCourse(o.opts.Courses, courseID)
}

// OpenByName opens a lesson looked up by id or display name, ignoring case.
func (o *Orchestrator) OpenByName(ctx context.Context, name string) (*Session, error) {
	l, err := course.FindLessonByName(o.opts.Courses, name)
	if err != nil {
		o.report(err)
		return nil, err
	}
	return o.Open(ctx, l)
}

// Open resolves the lesson's document, checks the environment and starts the lesson.
// Environment failures leave no document opened and no session behind.
func (o *Orchestrator) Open(ctx context.Context, l *course.Lesson) (*Session, error) {
	s, err := o.open(ctx, l)
	if err != nil {
		o.opts.Logger.Warn("session.open_failed", map[string]any{"lesson": l.LessonID, "error": err.Error()})
		o.report(err)
		return nil, err
	}
	return s, nil
}

func (o *Orchestrator) open(ctx context.Context, l *course.Lesson) (*Session, error) {
	c := l.Course()
	if c == nil {
		return nil, fmt.Errorf("lesson %s has no course", l.LessonID)
	}
	if l.IsOpen() {
		return nil, &lesson.AlreadyOpenError{LessonID: l.LessonID}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	project := o.opts.HostProject
	if c.IsProjectBacked() {
		if o.opts.Provisioner == nil {
			return nil, fmt.Errorf("course %s needs a backing project but no provisioner is configured", c.CourseID)
		}
		o.mu.Lock()
		current := o.project
		o.mu.Unlock()
		p, err := o.opts.Provisioner.EnsureBackingProject(ctx, current)
		if err != nil {
			if errors.Is(err, workspace.ErrAborted) {
				return nil, fmt.Errorf("%w: %w", ErrOpenAborted, err)
			}
			return nil, fmt.Errorf("ensure backing project: %w", err)
		}
		project = p
	}
	if err := o.opts.Validator.CheckEnvironment(project, c); err != nil {
		return nil, err
	}
	if c.IsProjectBacked() {
		o.mu.Lock()
		o.project = project
		o.mu.Unlock()
		if o.opts.Paths != nil && o.opts.Paths.WorkspacePath() != project.Root {
			o.opts.Paths.SetWorkspacePath(project.Root)
		}
	}

	doc, err := o.document(c, project)
	if err != nil {
		return nil, err
	}
	o.closeCourseSessions(c)
	l.ClearUnopenable()
	return o.start(c, l, doc, project, 0)
}

// document returns the course's live document, opening a new one when there is none
// or when the backing project moved.
func (o *Orchestrator) document(c *course.Course, project *workspace.Project) (editor.Editable, error) {
	o.mu.Lock()
	entry := o.docs[c.CourseID]
	o.mu.Unlock()
	if entry != nil && entry.doc.Valid() && sameProject(entry.project, project, c) {
		return entry.doc, nil
	}
	if entry != nil {
		o.dropDocument(c.CourseID, entry)
	}

	var (
		doc editor.Editable
		err error
	)
	if c.IsProjectBacked() {
		doc, err = o.opts.Documents.OpenOrCreateProjectFile(project, c.FileName)
	} else {
		doc, err = o.opts.Documents.OpenOrCreateScratch(o.scratchName(c))
	}
	if err != nil {
		return nil, fmt.Errorf("open document for %s: %w", c.CourseID, err)
	}

	entry = &docEntry{doc: doc, project: project}
	courseID := c.CourseID
	entry.sub = doc.Subscribe(func(ev editor.Event) {
		if ev.Kind == editor.Closed {
			o.documentClosed(courseID, doc)
		}
	})
	o.mu.Lock()
	o.docs[courseID] = entry
	o.mu.Unlock()
	o.opts.Logger.Debug("session.document_opened", map[string]any{"course": courseID, "document": doc.Name()})
	return doc, nil
}

// scratchName keeps scratch documents of different courses in separate files.
func (o *Orchestrator) scratchName(c *course.Course) string {
	return o.opts.ScratchName + "-" + c.CourseID + filepath.Ext(c.FileName)
}

func sameProject(a, b *workspace.Project, c *course.Course) bool {
	if !c.IsProjectBacked() {
		return true
	}
	return a != nil && b != nil && a.Root == b.Root
}

func (o *Orchestrator) start(c *course.Course, l *course.Lesson, doc editor.Editable, project *workspace.Project, depth int) (*Session, error) {
	s := newSession(o, c, l, doc, project, depth)
	s.machine = lesson.NewMachine(l, o.opts.Recorder)
	if err := s.machine.Start(); err != nil {
		return nil, err
	}
	if err := doc.SetText(l.InitialText); err != nil {
		s.machine.Close()
		return nil, fmt.Errorf("seed document: %w", err)
	}
	s.unsubscribe = s.machine.Subscribe(func(n lesson.Notification) {
		if n.Kind == lesson.Completed {
			o.schedule(func() { o.chain(s) })
		}
	})
	if l.SummaryMD != "" && o.opts.Presenter != nil {
		o.opts.Presenter.ShowMessage(l.LessonID, l.SummaryMD)
	}
	s.eval = evaluator.New(s.machine, doc, evaluator.Options{
		Checks:    o.opts.Checks,
		Artifacts: o.opts.Artifacts,
		Presenter: o.opts.Presenter,
		Logger:    o.opts.Logger,
		OnFatal:   func(err error) { o.fatal(s, err) },
	})

	o.mu.Lock()
	o.sessions = append(o.sessions, s)
	o.mu.Unlock()

	if err := s.eval.Attach(); err != nil {
		if evaluator.IsMissingArtifact(err) {
			l.MarkUnopenable()
		}
		o.closeSession(s, false)
		return nil, err
	}
	o.opts.Logger.Info("session.opened", map[string]any{"session": s.id, "course": c.CourseID, "lesson": l.LessonID, "depth": depth})
	o.refresh()
	return s, nil
}

// chain closes a completed session and opens the next unfinished lesson of the same
// course in the same document.
func (o *Orchestrator) chain(done *Session) {
	o.closeSession(done, false)
	o.opts.Logger.Info("session.completed", map[string]any{
		"session":  done.id,
		"lesson":   done.lesson.LessonID,
		"duration": time.Since(done.openedAt).Round(time.Millisecond).String(),
	})
	defer o.checkIdle()

	if done.depth+1 > o.opts.MaxChainDepth {
		o.opts.Logger.Warn("session.chain_depth_reached", map[string]any{"course": done.course.CourseID, "depth": done.depth})
		o.refresh()
		return
	}
	for {
		if !done.doc.Valid() {
			return
		}
		next := done.course.NextNotPassed()
		if next == nil {
			o.opts.Logger.Info("session.chain_finished", map[string]any{"course": done.course.CourseID})
			o.refresh()
			return
		}
		if _, err := o.start(done.course, next, done.doc, done.project, done.depth+1); err != nil {
			o.opts.Logger.Warn("session.chain_failed", map[string]any{"lesson": next.LessonID, "error": err.Error()})
			o.report(err)
			if next.Unopenable() {
				continue
			}
			return
		}
		o.opts.Logger.Info("session.chained", map[string]any{"from": done.lesson.LessonID, "to": next.LessonID})
		return
	}
}

// fatal handles a step that cannot be bound mid-lesson.
func (o *Orchestrator) fatal(s *Session, err error) {
	if evaluator.IsMissingArtifact(err) {
		s.lesson.MarkUnopenable()
	}
	o.report(err)
	o.closeSession(s, true)
}

// schedule runs fn outside the current event dispatch. Without Defer, nested calls are
// queued and drained by the outermost call, so chains run as a loop.
func (o *Orchestrator) schedule(fn func()) {
	if o.opts.Defer != nil {
		o.opts.Defer(fn)
		return
	}
	o.mu.Lock()
	o.queue = append(o.queue, fn)
	if o.draining {
		o.mu.Unlock()
		return
	}
	o.draining = true
	o.mu.Unlock()
	for {
		o.mu.Lock()
		if len(o.queue) == 0 {
			o.draining = false
			o.mu.Unlock()
			return
		}
		next := o.queue[0]
		o.queue = o.queue[1:]
		o.mu.Unlock()
		next()
	}
}

func (o *Orchestrator) closeSession(s *Session, idle bool) {
	if !s.shutdown() {
		return
	}
	o.mu.Lock()
	for i, v := range o.sessions {
		if v == s {
			o.sessions = append(o.sessions[:i], o.sessions[i+1:]...)
			break
		}
	}
	o.mu.Unlock()
	o.opts.Logger.Debug("session.closed", map[string]any{"session": s.id, "lesson": s.lesson.LessonID, "state": s.machine.State().String()})
	if idle {
		o.refresh()
		o.checkIdle()
	}
}

func (o *Orchestrator) closeCourseSessions(c *course.Course) {
	for _, s := range o.Sessions() {
		if s.course == c {
			o.closeSession(s, false)
		}
	}
}

func (o *Orchestrator) documentClosed(courseID string, doc editor.Editable) {
	o.mu.Lock()
	if entry := o.docs[courseID]; entry != nil && entry.doc == doc {
		delete(o.docs, courseID)
	}
	var affected []*Session
	for _, s := range o.sessions {
		if s.doc == doc {
			affected = append(affected, s)
		}
	}
	o.mu.Unlock()
	o.opts.Logger.Info("session.document_closed", map[string]any{"course": courseID, "sessions": len(affected)})
	for _, s := range affected {
		o.closeSession(s, false)
	}
	if len(affected) > 0 {
		o.refresh()
		o.checkIdle()
	}
}

func (o *Orchestrator) dropDocument(courseID string, entry *docEntry) {
	o.mu.Lock()
	if o.docs[courseID] == entry {
		delete(o.docs, courseID)
	}
	o.mu.Unlock()
	entry.sub.Unsubscribe()
	for _, s := range o.Sessions() {
		if s.doc == entry.doc {
			o.closeSession(s, false)
		}
	}
	entry.doc.Close()
}

// Document returns the live document registered for a course.
func (o *Orchestrator) Document(courseID string) (editor.Editable, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	entry, ok := o.docs[courseID]
	if !ok || !entry.doc.Valid() {
		return nil, false
	}
	return entry.doc, true
}

// Sessions lists live sessions in the order they were opened.
func (o *Orchestrator) Sessions() []*Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*Session(nil), o.sessions...)
}

// CloseAll ends every session and closes the documents the orchestrator opened.
func (o *Orchestrator) CloseAll() {
	for _, s := range o.Sessions() {
		o.closeSession(s, false)
	}
	o.mu.Lock()
	entries := make([]*docEntry, 0, len(o.docs))
	for _, e := range o.docs {
		entries = append(entries, e)
	}
	o.docs = map[string]*docEntry{}
	o.mu.Unlock()
	for _, e := range entries {
		e.sub.Unsubscribe()
		e.doc.Close()
	}
}

func (o *Orchestrator) checkIdle() {
	o.mu.Lock()
	idle := len(o.sessions) == 0 && len(o.queue) == 0
	o.mu.Unlock()
	if idle && o.opts.OnIdle != nil {
		o.opts.OnIdle()
	}
}

func (o *Orchestrator) refresh() {
	if o.opts.Presenter != nil {
		o.opts.Presenter.RefreshProgress(o.opts.Courses)
	}
}

func (o *Orchestrator) report(err error) {
	if o.opts.Presenter != nil {
		o.opts.Presenter.ReportError(err)
	}
}
