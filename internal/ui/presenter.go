package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/ansi"

	"codedojo/internal/checks"
	"codedojo/internal/course"
)

type Options struct {
	StyleVariant string
	ASCIIOnly    bool
	// Plain disables colors and markdown styling, for pipes and tests.
	Plain     bool
	WrapWidth int
}

// TextPresenter writes lesson messages, hints, progress and errors to a terminal.
type TextPresenter struct {
	mu       sync.Mutex
	out      io.Writer
	theme    Theme
	markdown *glamour.TermRenderer
	ascii    bool
	width    int
}

func NewTextPresenter(out io.Writer, opts Options) *TextPresenter {
	if opts.WrapWidth <= 0 {
		opts.WrapWidth = 78
	}
	variant := opts.StyleVariant
	style := "dark"
	if opts.Plain {
		variant = "plain"
		style = "notty"
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(opts.WrapWidth),
	)
	if err != nil {
		renderer = nil
	}
	return &TextPresenter{
		out:      out,
		theme:    ThemeForVariant(variant),
		markdown: renderer,
		ascii:    opts.ASCIIOnly,
		width:    opts.WrapWidth,
	}
}

func (p *TextPresenter) ShowMessage(lessonID string, markdown string) {
	p.write(p.theme.Accent.Render(p.mark("arrow")+" "+lessonID) + "\n" + p.render(markdown) + "\n")
}

func (p *TextPresenter) ShowHint(lessonID string, markdown string, eval checks.Evaluation) {
	var b strings.Builder
	b.WriteString(p.theme.Fail.Render(p.mark("hint") + " " + strings.TrimSpace(eval.Summary)))
	if eval.Message != "" && eval.Message != "ok" {
		b.WriteString(p.theme.Muted.Render(": " + eval.Message))
	}
	b.WriteString("\n")
	if strings.TrimSpace(markdown) != "" {
		b.WriteString(p.theme.Hint.Render(p.render(markdown)) + "\n")
	}
	if eval.Diff != "" {
		b.WriteString(p.theme.Muted.Render(strings.TrimRight(eval.Diff, "\n")) + "\n")
	}
	p.write(b.String())
}

// RefreshProgress prints one line per lesson with its pass mark.
func (p *TextPresenter) RefreshProgress(courses []*course.Course) {
	var b strings.Builder
	for _, c := range courses {
		header := fmt.Sprintf("%s  %d/%d", c.Name, c.PassedCount(), len(c.LoadedLessons))
		b.WriteString(p.theme.Header.Render(trimForWidth(header, p.width, p.ascii)) + "\n")
		for _, l := range c.LoadedLessons {
			var mark string
			switch {
			case l.IsOpen():
				mark = p.theme.Pending.Render(p.mark("open"))
			case l.Passed():
				mark = p.theme.Pass.Render(p.mark("pass"))
			case l.Unopenable():
				mark = p.theme.Fail.Render(p.mark("blocked"))
			default:
				mark = p.theme.Muted.Render(p.mark("todo"))
			}
			row := trimForWidth(fmt.Sprintf("%-28s %s", l.LessonID, l.Name), p.width-4, p.ascii)
			b.WriteString("  " + mark + " " + p.theme.Body.Render(row) + "\n")
		}
	}
	p.write(b.String())
}

func (p *TextPresenter) ReportError(err error) {
	if err == nil {
		return
	}
	p.write(p.theme.Fail.Render(p.mark("error")+" "+FriendlyError(err)) + "\n")
}

func (p *TextPresenter) render(markdown string) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" || p.markdown == nil {
		return markdown
	}
	rendered, err := p.markdown.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.Trim(rendered, "\n")
}

func (p *TextPresenter) write(s string) {
	if p.out == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = io.WriteString(p.out, s)
}

func (p *TextPresenter) mark(kind string) string {
	if p.ascii {
		switch kind {
		case "pass":
			return "[x]"
		case "open":
			return "[>]"
		case "blocked":
			return "[!]"
		case "todo":
			return "[ ]"
		case "hint":
			return "?"
		case "error":
			return "!"
		default:
			return ">"
		}
	}
	switch kind {
	case "pass":
		return "✓"
	case "open":
		return "▶"
	case "blocked":
		return "✗"
	case "todo":
		return "·"
	case "hint":
		return "💡"
	case "error":
		return "⚠"
	default:
		return "▸"
	}
}

func trimForWidth(s string, width int, ascii bool) string {
	if width <= 0 {
		return ""
	}
	r := []rune(strings.ReplaceAll(ansi.Strip(s), "\n", " "))
	if len(r) <= width {
		return string(r)
	}
	ellipsis := []rune("…")
	if ascii {
		ellipsis = []rune("...")
	}
	if width <= len(ellipsis) {
		return string(r[:width])
	}
	return string(r[:width-len(ellipsis)]) + string(ellipsis)
}
