package lesson

import (
	"errors"
	"fmt"
)

var (
	ErrNotInProgress = errors.New("lesson is not in progress")
	ErrClosed        = errors.New("lesson session is closed")
)

type State int

const (
	NotStarted State = iota
	InProgress
	Passed
	Closed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Passed:
		return "passed"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

func (s State) Terminal() bool { return s == Passed || s == Closed }

type NotificationKind int

const (
	Started NotificationKind = iota + 1
	Advanced
	Completed
	ClosedNotification
)

func (k NotificationKind) String() string {
	switch k {
	case Started:
		return "started"
	case Advanced:
		return "advanced"
	case Completed:
		return "completed"
	case ClosedNotification:
		return "closed"
	default:
		return "unknown"
	}
}

type Notification struct {
	Kind     NotificationKind
	LessonID string
	Cursor   int
	State    State
}

// AlreadyOpenError is returned when a lesson is already held by another session.
type AlreadyOpenError struct {
	LessonID string
}

func (e *AlreadyOpenError) Error() string {
	return fmt.Sprintf("lesson %s is already open", e.LessonID)
}
