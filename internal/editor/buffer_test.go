package editor

import (
	"errors"
	"testing"
)

func TestBufferEditsEmitEventsInOrder(t *testing.T) {
	buf := NewBuffer("scratch", "")
	var kinds []EventKind
	buf.Subscribe(func(ev Event) { kinds = append(kinds, ev.Kind) })

	if err := buf.Insert(0, "hello"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := buf.MoveCaret(2); err != nil {
		t.Fatalf("move caret: %v", err)
	}
	if err := buf.Select(4, 1); err != nil {
		t.Fatalf("select: %v", err)
	}

	want := []EventKind{TextChanged, CaretMoved, SelectionChanged}
	if len(kinds) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("event %d: got %s want %s", i, kinds[i], want[i])
		}
	}

	snap := buf.Snapshot()
	if snap.Selection() != "ell" {
		t.Fatalf("expected selection %q, got %q", "ell", snap.Selection())
	}
	if snap.Caret != 4 {
		t.Fatalf("expected caret at 4, got %d", snap.Caret)
	}
	if snap.Seq != 3 {
		t.Fatalf("expected seq 3, got %d", snap.Seq)
	}
}

func TestBufferOffsetsCountRunes(t *testing.T) {
	buf := NewBuffer("scratch", "héllo\nwörld")
	if err := buf.MoveCaret(7); err != nil {
		t.Fatalf("move caret: %v", err)
	}
	snap := buf.Snapshot()
	if got := snap.BeforeCaret(); got != "héllo\nw" {
		t.Fatalf("unexpected text before caret: %q", got)
	}
	if snap.CaretLine() != 2 {
		t.Fatalf("expected caret on line 2, got %d", snap.CaretLine())
	}
	if err := buf.Delete(1, 2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := buf.Snapshot().Text; got != "hllo\nwörld" {
		t.Fatalf("unexpected text after delete: %q", got)
	}
}

func TestUnsubscribeDuringDispatchSkipsLaterListener(t *testing.T) {
	buf := NewBuffer("scratch", "")
	var second Subscription
	calls := 0
	buf.Subscribe(func(Event) { second.Unsubscribe() })
	second = buf.Subscribe(func(Event) { calls++ })

	if err := buf.Insert(0, "x"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := buf.Insert(0, "y"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected unsubscribed listener to be skipped, got %d calls", calls)
	}
}

func TestCloseEmitsOnceAndRejectsEdits(t *testing.T) {
	buf := NewBuffer("scratch", "abc")
	closed := 0
	buf.Subscribe(func(ev Event) {
		if ev.Kind == Closed {
			closed++
		}
	})

	buf.Close()
	buf.Close()

	if closed != 1 {
		t.Fatalf("expected one closed event, got %d", closed)
	}
	if buf.Valid() {
		t.Fatalf("expected closed buffer to be invalid")
	}
	if err := buf.Insert(0, "x"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	sub := buf.Subscribe(func(Event) { t.Fatalf("listener on closed buffer must not run") })
	sub.Unsubscribe()
}

func TestSnapshotLines(t *testing.T) {
	snap := Snapshot{Text: "a\r\nb\nc\n"}
	lines := snap.Lines()
	if len(lines) != 3 || lines[0] != "a" || lines[2] != "c" {
		t.Fatalf("unexpected lines: %q", lines)
	}
	if (Snapshot{}).Lines() != nil {
		t.Fatalf("expected no lines for empty text")
	}
}
