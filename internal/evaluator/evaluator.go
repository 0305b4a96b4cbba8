package evaluator

import (
	"errors"
	"fmt"
	"sync"

	"codedojo/internal/checks"
	"codedojo/internal/course"
	"codedojo/internal/editor"
	"codedojo/internal/lesson"
	"codedojo/internal/telemetry"
)

type Options struct {
	Checks    checks.Evaluator
	Artifacts course.Artifacts
	Presenter Presenter
	Logger    *telemetry.Logger
	// OnFatal is called when the next step cannot be bound, for example because its
	// expected result went missing. The owner is expected to close the session.
	OnFatal func(error)
}

// Evaluator binds the current step of a lesson machine to a document's event stream.
// Only the current step is ever evaluated, and a result is applied only if the
// machine is still live and still at the cursor the evaluation started from.
type Evaluator struct {
	machine *lesson.Machine
	doc     editor.Document
	opts    Options

	mu          sync.Mutex
	sub         editor.Subscription
	detached    bool
	bound       bool
	cursor      int
	step        course.Step
	artifact    string
	lastFailure string
}

func New(m *lesson.Machine, doc editor.Document, opts Options) *Evaluator {
	if opts.Checks == nil {
		opts.Checks = checks.NewRegistry()
	}
	if opts.Artifacts == nil {
		opts.Artifacts = course.FSArtifacts{}
	}
	return &Evaluator{machine: m, doc: doc, opts: opts}
}

// Attach binds the machine's current step and subscribes to the document. The machine
// must already be InProgress.
func (e *Evaluator) Attach() error {
	e.mu.Lock()
	if e.detached {
		e.mu.Unlock()
		return fmt.Errorf("evaluator already detached")
	}
	if e.sub != nil {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	if err := e.bind(); err != nil {
		return err
	}
	sub := e.doc.Subscribe(e.HandleEvent)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detached {
		sub.Unsubscribe()
		return nil
	}
	e.sub = sub
	return nil
}

// Detach unsubscribes synchronously. An evaluation already running finishes, but its
// result is discarded. Safe to call more than once.
func (e *Evaluator) Detach() {
	e.mu.Lock()
	if e.detached {
		e.mu.Unlock()
		return
	}
	e.detached = true
	e.bound = false
	sub := e.sub
	e.sub = nil
	e.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

// HandleEvent re-checks the current step. Duplicate and stale events are harmless:
// they evaluate whatever step is current, against the latest snapshot.
func (e *Evaluator) HandleEvent(ev editor.Event) {
	if ev.Kind == editor.Closed {
		return
	}
	e.mu.Lock()
	if e.detached || !e.bound {
		e.mu.Unlock()
		return
	}
	cursor, step, artifact := e.cursor, e.step, e.artifact
	e.mu.Unlock()

	if !e.machine.Live() || e.machine.Cursor() != cursor {
		return
	}
	lessonID := e.machine.Lesson().LessonID
	eval := e.evaluate(lessonID, cursor, step, e.doc.Snapshot(), artifact)
	if !eval.Passed {
		e.failed(lessonID, cursor, step, eval)
		return
	}

	e.mu.Lock()
	if e.detached || !e.bound || e.cursor != cursor {
		e.mu.Unlock()
		return
	}
	e.bound = false
	e.mu.Unlock()

	if !e.machine.Live() || e.machine.Cursor() != cursor {
		return
	}
	if step.OnPassMD != "" && e.opts.Presenter != nil {
		e.opts.Presenter.ShowMessage(lessonID, step.OnPassMD)
	}
	if err := e.machine.Advance(); err != nil {
		e.opts.Logger.Warn("evaluator.advance_failed", map[string]any{"lesson": lessonID, "cursor": cursor, "error": err.Error()})
		return
	}
	e.opts.Logger.Info("evaluator.step_passed", map[string]any{"lesson": lessonID, "cursor": cursor})
	if !e.machine.Live() {
		return
	}
	if err := e.bind(); err != nil {
		e.opts.Logger.Error("evaluator.bind_failed", map[string]any{"lesson": lessonID, "error": err.Error()})
		if e.opts.OnFatal != nil {
			e.opts.OnFatal(err)
		}
	}
}

// Cursor returns the cursor of the bound step and whether a step is bound.
func (e *Evaluator) Cursor() (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor, e.bound
}

func (e *Evaluator) bind() error {
	step, cursor, ok := e.machine.CurrentStep()
	if !ok {
		return lesson.ErrNotInProgress
	}
	artifact := ""
	if step.Predicate.NeedsArtifact() {
		text, err := e.opts.Artifacts.Load(e.machine.Lesson())
		if err != nil {
			return err
		}
		artifact = text
	}

	e.mu.Lock()
	if e.detached {
		e.mu.Unlock()
		return nil
	}
	e.bound = true
	e.cursor = cursor
	e.step = step
	e.artifact = artifact
	e.lastFailure = ""
	e.mu.Unlock()

	if step.MessageMD != "" && e.opts.Presenter != nil {
		e.opts.Presenter.ShowMessage(e.machine.Lesson().LessonID, step.MessageMD)
	}
	return nil
}

// evaluate never lets a predicate panic or error escape into the event stream.
func (e *Evaluator) evaluate(lessonID string, cursor int, step course.Step, snap editor.Snapshot, artifact string) (eval checks.Evaluation) {
	defer func() {
		if r := recover(); r != nil {
			e.opts.Logger.Error("evaluator.predicate_panic", map[string]any{"lesson": lessonID, "cursor": cursor, "panic": fmt.Sprint(r)})
			eval = checks.Evaluation{Passed: false, Summary: "predicate failed", Message: fmt.Sprint(r)}
		}
	}()
	eval, err := e.opts.Checks.Evaluate(step.Predicate, snap, artifact)
	if err != nil {
		e.opts.Logger.Error("evaluator.predicate_error", map[string]any{"lesson": lessonID, "cursor": cursor, "error": err.Error()})
		return checks.Evaluation{Passed: false, Summary: "predicate failed", Message: err.Error()}
	}
	return eval
}

// failed shows the hint once per distinct failure message.
func (e *Evaluator) failed(lessonID string, cursor int, step course.Step, eval checks.Evaluation) {
	e.mu.Lock()
	if e.detached || e.cursor != cursor || e.lastFailure == eval.Message {
		e.mu.Unlock()
		return
	}
	e.lastFailure = eval.Message
	e.mu.Unlock()

	e.opts.Logger.Debug("evaluator.step_failed", map[string]any{"lesson": lessonID, "cursor": cursor, "summary": eval.Summary})
	if e.opts.Presenter != nil {
		e.opts.Presenter.ShowHint(lessonID, step.HintMD, eval)
	}
}

// IsMissingArtifact reports whether err came from an absent expected result.
func IsMissingArtifact(err error) bool {
	var missing *course.MissingArtifactError
	return errors.As(err, &missing)
}
