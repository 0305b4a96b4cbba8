package editor

import (
	"context"
	"sync"
)

// Loop serializes work onto one control goroutine. Sessions, machines and evaluators
// are only mutated from tasks run by the loop (or by the goroutine that owns the loop
// before Run is called).
type Loop struct {
	tasks    chan func()
	stopOnce sync.Once
	stopped  chan struct{}
}

func NewLoop(backlog int) *Loop {
	if backlog <= 0 {
		backlog = 64
	}
	return &Loop{
		tasks:   make(chan func(), backlog),
		stopped: make(chan struct{}),
	}
}

// Post queues fn. It returns false once the loop has been stopped.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	select {
	case <-l.stopped:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.stopped:
		return false
	}
}

// Run executes queued tasks until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stopped:
			return nil
		case fn := <-l.tasks:
			fn()
		}
	}
}

func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stopped) })
}

func (l *Loop) Stopped() bool {
	select {
	case <-l.stopped:
		return true
	default:
		return false
	}
}
