package lesson

import (
	"sync"
	"time"

	"codedojo/internal/course"
)

// Machine drives one lesson through NotStarted, InProgress, then Passed or Closed.
// Every transition emits exactly one notification to the listeners registered at the
// moment the transition happened.
type Machine struct {
	lesson   *course.Lesson
	recorder Recorder
	now      func() time.Time

	mu        sync.Mutex
	state     State
	cursor    int
	nextID    int
	listeners map[int]func(Notification)
	order     []int
}

func NewMachine(l *course.Lesson, recorder Recorder) *Machine {
	return &Machine{
		lesson:    l,
		recorder:  recorder,
		now:       time.Now,
		listeners: map[int]func(Notification){},
	}
}

func (m *Machine) Lesson() *course.Lesson { return m.lesson }

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) Cursor() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor
}

// Live reports whether the machine still accepts Advance calls.
func (m *Machine) Live() bool {
	return m.State() == InProgress
}

// CurrentStep returns the step at the cursor, or false when not in progress.
func (m *Machine) CurrentStep() (course.Step, int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != InProgress {
		return course.Step{}, m.cursor, false
	}
	return m.lesson.Steps[m.cursor], m.cursor, true
}

// Subscribe registers fn and returns a function that removes it.
func (m *Machine) Subscribe(fn func(Notification)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fn == nil || m.state == Closed {
		return func() {}
	}
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.order = append(m.order, id)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.removeLocked(id)
	}
}

// Start claims the lesson and moves to InProgress at cursor 0. A previous pass is
// cleared; the lesson counts as passed again only once it completes.
func (m *Machine) Start() error {
	m.mu.Lock()
	if m.state == Closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.state == InProgress || !m.lesson.TryOpen() {
		m.mu.Unlock()
		return &AlreadyOpenError{LessonID: m.lesson.LessonID}
	}
	m.lesson.SetPassed(false)
	m.state = InProgress
	m.cursor = 0
	n := m.notificationLocked(Started)
	listeners := m.snapshotLocked()
	m.mu.Unlock()

	if m.recorder != nil {
		m.recorder.RecordStarted(m.lesson.LessonID, m.now())
	}
	notify(listeners, n)
	return nil
}

// Advance moves past the current step. Reaching the end passes the lesson, releases
// its open flag and records the outcome before listeners hear Completed.
func (m *Machine) Advance() error {
	m.mu.Lock()
	if m.state != InProgress {
		m.mu.Unlock()
		return ErrNotInProgress
	}
	m.cursor++
	if m.cursor < len(m.lesson.Steps) {
		n := m.notificationLocked(Advanced)
		listeners := m.snapshotLocked()
		m.mu.Unlock()
		notify(listeners, n)
		return nil
	}

	m.state = Passed
	m.lesson.SetPassed(true)
	m.lesson.Release()
	n := m.notificationLocked(Completed)
	listeners := m.snapshotLocked()
	m.mu.Unlock()

	if m.recorder != nil {
		m.recorder.RecordOutcome(m.lesson.LessonID, true, m.now())
	}
	notify(listeners, n)
	return nil
}

// Close is terminal and idempotent. A Closed notification goes out only when the
// machine was not already Passed or Closed. All listeners are dropped afterwards.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.state == Closed {
		m.mu.Unlock()
		return
	}
	wasTerminal := m.state.Terminal()
	wasOpen := m.state == InProgress
	m.state = Closed
	var (
		n         Notification
		listeners []func(Notification)
	)
	if !wasTerminal {
		n = m.notificationLocked(ClosedNotification)
		listeners = m.snapshotLocked()
	}
	m.listeners = map[int]func(Notification){}
	m.order = nil
	m.mu.Unlock()

	if wasOpen {
		m.lesson.Release()
	}
	notify(listeners, n)
}

func (m *Machine) notificationLocked(kind NotificationKind) Notification {
	return Notification{Kind: kind, LessonID: m.lesson.LessonID, Cursor: m.cursor, State: m.state}
}

func (m *Machine) snapshotLocked() []func(Notification) {
	out := make([]func(Notification), 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.listeners[id])
	}
	return out
}

func (m *Machine) removeLocked(id int) {
	if _, ok := m.listeners[id]; !ok {
		return
	}
	delete(m.listeners, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func notify(listeners []func(Notification), n Notification) {
	for _, fn := range listeners {
		fn(n)
	}
}
