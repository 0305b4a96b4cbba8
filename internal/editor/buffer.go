package editor

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Buffer is an in-memory editable document. Listeners run synchronously on the
// goroutine that performed the edit.
type Buffer struct {
	id   string
	name string

	mu       sync.Mutex
	text     []rune
	caret    int
	selStart int
	selEnd   int
	seq      uint64
	closed   bool
	subs     []*subscription
}

func NewBuffer(name, text string) *Buffer {
	r := []rune(text)
	return &Buffer{
		id:    uuid.NewString(),
		name:  name,
		text:  r,
		caret: len(r),
	}
}

func (b *Buffer) ID() string   { return b.id }
func (b *Buffer) Name() string { return b.name }

func (b *Buffer) Valid() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed
}

func (b *Buffer) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		Text:           string(b.text),
		Caret:          b.caret,
		SelectionStart: b.selStart,
		SelectionEnd:   b.selEnd,
		Seq:            b.seq,
	}
}

func (b *Buffer) Subscribe(fn Listener) Subscription {
	s := &subscription{buf: b, fn: fn}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || fn == nil {
		return s
	}
	s.active.Store(true)
	b.subs = append(b.subs, s)
	return s
}

func (b *Buffer) SetText(text string) error {
	return b.edit(TextChanged, func() {
		b.text = []rune(text)
		b.caret = clamp(b.caret, 0, len(b.text))
		b.clearSelection()
	})
}

func (b *Buffer) Insert(at int, text string) error {
	return b.edit(TextChanged, func() {
		at = clamp(at, 0, len(b.text))
		ins := []rune(text)
		out := make([]rune, 0, len(b.text)+len(ins))
		out = append(out, b.text[:at]...)
		out = append(out, ins...)
		out = append(out, b.text[at:]...)
		b.text = out
		b.caret = at + len(ins)
		b.clearSelection()
	})
}

func (b *Buffer) Delete(start, end int) error {
	return b.edit(TextChanged, func() {
		start = clamp(start, 0, len(b.text))
		end = clamp(end, start, len(b.text))
		b.text = append(b.text[:start:start], b.text[end:]...)
		b.caret = start
		b.clearSelection()
	})
}

func (b *Buffer) MoveCaret(offset int) error {
	return b.edit(CaretMoved, func() {
		b.caret = clamp(offset, 0, len(b.text))
		b.clearSelection()
	})
}

func (b *Buffer) Select(start, end int) error {
	return b.edit(SelectionChanged, func() {
		if end < start {
			start, end = end, start
		}
		b.selStart = clamp(start, 0, len(b.text))
		b.selEnd = clamp(end, b.selStart, len(b.text))
		b.caret = b.selEnd
	})
}

// Close emits a Closed event and drops every subscription. Safe to call twice.
func (b *Buffer) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.seq++
	ev := Event{Kind: Closed, DocumentID: b.id, Seq: b.seq}
	subs := append([]*subscription(nil), b.subs...)
	b.mu.Unlock()

	dispatch(subs, ev)

	b.mu.Lock()
	for _, s := range b.subs {
		s.active.Store(false)
	}
	b.subs = nil
	b.mu.Unlock()
}

func (b *Buffer) edit(kind EventKind, apply func()) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	apply()
	b.seq++
	ev := Event{Kind: kind, DocumentID: b.id, Seq: b.seq}
	subs := append([]*subscription(nil), b.subs...)
	b.mu.Unlock()

	dispatch(subs, ev)
	return nil
}

// replaceText swaps the text while keeping the caret where it was, clamped to the
// new length. Used by file-backed documents when the disk copy changes.
func (b *Buffer) replaceText(text string) error {
	return b.edit(TextChanged, func() {
		b.text = []rune(text)
		b.caret = clamp(b.caret, 0, len(b.text))
		b.selStart = clamp(b.selStart, 0, len(b.text))
		b.selEnd = clamp(b.selEnd, b.selStart, len(b.text))
	})
}

func (b *Buffer) clearSelection() {
	b.selStart = b.caret
	b.selEnd = b.caret
}

func (b *Buffer) remove(target *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == target {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// dispatch skips subscriptions cancelled by an earlier listener of the same event.
func dispatch(subs []*subscription, ev Event) {
	for _, s := range subs {
		if !s.active.Load() {
			continue
		}
		s.fn(ev)
	}
}

type subscription struct {
	buf    *Buffer
	fn     Listener
	active atomic.Bool
}

func (s *subscription) Unsubscribe() {
	if s.active.Swap(false) {
		s.buf.remove(s)
	}
}
