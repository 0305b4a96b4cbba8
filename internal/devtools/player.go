package devtools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"codedojo/internal/telemetry"
)

type StepResult struct {
	Index    int
	Op       Op
	LessonID string
	Cursor   int
	Live     bool
}

type Report struct {
	Script string
	Steps  []StepResult
}

// ExpectationError reports the first expect action that did not hold.
type ExpectationError struct {
	Index  int
	Reason string
}

func (e *ExpectationError) Error() string {
	return fmt.Sprintf("expectation at action %d failed: %s", e.Index, e.Reason)
}

type Player struct {
	// Speed scales the delays between actions; 0 plays without waiting.
	Speed  float64
	Logger *telemetry.Logger
}

func NewPlayer(speed float64, logger *telemetry.Logger) *Player {
	return &Player{Speed: speed, Logger: logger}
}

// Play applies the script's actions in order. The caller must have opened the script's
// lesson already.
func (p *Player) Play(ctx context.Context, script *Script, target Target) (Report, error) {
	report := Report{Script: script.Name}
	for i, a := range script.Actions {
		if err := p.wait(ctx, a.After); err != nil {
			return report, err
		}
		if err := p.apply(i, a, target); err != nil {
			p.Logger.Warn("replay.failed", map[string]any{"script": script.Name, "action": i, "error": err.Error()})
			return report, err
		}
		id, cursor, live := target.Current()
		report.Steps = append(report.Steps, StepResult{Index: i, Op: a.Op, LessonID: id, Cursor: cursor, Live: live})
	}
	p.Logger.Info("replay.finished", map[string]any{"script": script.Name, "actions": len(script.Actions)})
	return report, nil
}

func (p *Player) apply(i int, a Action, target Target) error {
	if a.Op == OpExpect {
		return check(i, a.Expect, target)
	}
	doc, ok := target.Document()
	if !ok {
		return fmt.Errorf("action %d (%s): no open document", i, a.Op)
	}
	var err error
	switch a.Op {
	case OpSetText:
		err = doc.SetText(a.Text)
	case OpInsert:
		at := len([]rune(doc.Snapshot().Text))
		if a.At != nil {
			at = *a.At
		}
		err = doc.Insert(at, a.Text)
	case OpDelete:
		err = doc.Delete(a.Start, a.End)
	case OpMoveCaret:
		err = doc.MoveCaret(a.Offset)
	case OpSelect:
		err = doc.Select(a.Start, a.End)
	default:
		err = fmt.Errorf("unknown op %q", a.Op)
	}
	if err != nil {
		return fmt.Errorf("action %d (%s): %w", i, a.Op, err)
	}
	return nil
}

func check(i int, want *Expectation, target Target) error {
	id, cursor, live := target.Current()
	if want.Idle {
		if live {
			return &ExpectationError{Index: i, Reason: fmt.Sprintf("expected no live lesson, %s is at step %d", id, cursor)}
		}
	} else if want.LessonID != "" || want.Cursor != nil {
		if !live {
			return &ExpectationError{Index: i, Reason: "expected a live lesson, none is open"}
		}
		if want.LessonID != "" && !strings.EqualFold(want.LessonID, id) {
			return &ExpectationError{Index: i, Reason: fmt.Sprintf("expected lesson %s, got %s", want.LessonID, id)}
		}
		if want.Cursor != nil && *want.Cursor != cursor {
			return &ExpectationError{Index: i, Reason: fmt.Sprintf("expected step %d, got %d", *want.Cursor, cursor)}
		}
	}
	for _, lessonID := range want.Passed {
		if !target.Passed(lessonID) {
			return &ExpectationError{Index: i, Reason: fmt.Sprintf("expected %s to be passed", lessonID)}
		}
	}
	if want.TextContains != "" {
		doc, ok := target.Document()
		if !ok || !strings.Contains(doc.Snapshot().Text, want.TextContains) {
			return &ExpectationError{Index: i, Reason: fmt.Sprintf("expected document to contain %q", want.TextContains)}
		}
	}
	return nil
}

func (p *Player) wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.Speed <= 0 || d <= 0 {
		return nil
	}
	t := time.NewTimer(time.Duration(float64(d) / p.Speed))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
