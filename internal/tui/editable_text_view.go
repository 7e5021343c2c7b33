package tui

import (
	"strings"
	"unicode"

	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
)

// textBuffer is a line based rune buffer with a cursor
type textBuffer struct {
	lines  [][]rune
	line   int
	column int
}

func newTextBuffer(text string) *textBuffer {
	b := &textBuffer{}
	b.set(text)
	return b
}

func (b *textBuffer) set(text string) {
	parts := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	b.lines = make([][]rune, len(parts))
	for i, p := range parts {
		b.lines[i] = []rune(p)
	}
	b.line, b.column = 0, 0
}

func (b *textBuffer) String() string {
	out := make([]string, len(b.lines))
	for i, l := range b.lines {
		out[i] = string(l)
	}
	return strings.Join(out, "\n")
}

func (b *textBuffer) clampColumn() {
	if n := len(b.lines[b.line]); b.column > n {
		b.column = n
	}
}

func (b *textBuffer) insert(r rune) {
	l := b.lines[b.line]
	next := make([]rune, 0, len(l)+1)
	next = append(next, l[:b.column]...)
	next = append(next, r)
	next = append(next, l[b.column:]...)
	b.lines[b.line] = next
	b.column++
}

func (b *textBuffer) newline() {
	l := b.lines[b.line]
	head := append([]rune(nil), l[:b.column]...)
	tail := append([]rune(nil), l[b.column:]...)

	lines := make([][]rune, 0, len(b.lines)+1)
	lines = append(lines, b.lines[:b.line]...)
	lines = append(lines, head, tail)
	lines = append(lines, b.lines[b.line+1:]...)
	b.lines = lines
	b.line++
	b.column = 0
}

func (b *textBuffer) backspace() {
	switch {
	case b.column > 0:
		l := b.lines[b.line]
		b.lines[b.line] = append(l[:b.column-1:b.column-1], l[b.column:]...)
		b.column--
	case b.line > 0:
		prev := b.lines[b.line-1]
		b.column = len(prev)
		b.lines[b.line-1] = append(prev[:len(prev):len(prev)], b.lines[b.line]...)
		b.lines = append(b.lines[:b.line], b.lines[b.line+1:]...)
		b.line--
	}
}

func (b *textBuffer) delete() {
	l := b.lines[b.line]
	switch {
	case b.column < len(l):
		b.lines[b.line] = append(l[:b.column:b.column], l[b.column+1:]...)
	case b.line < len(b.lines)-1:
		b.lines[b.line] = append(l[:len(l):len(l)], b.lines[b.line+1]...)
		b.lines = append(b.lines[:b.line+1], b.lines[b.line+2:]...)
	}
}

func (b *textBuffer) up() {
	if b.line > 0 {
		b.line--
		b.clampColumn()
	}
}

func (b *textBuffer) down() {
	if b.line < len(b.lines)-1 {
		b.line++
		b.clampColumn()
	}
}

func (b *textBuffer) left() {
	if b.column > 0 {
		b.column--
	} else if b.line > 0 {
		b.line--
		b.column = len(b.lines[b.line])
	}
}

func (b *textBuffer) right() {
	if b.column < len(b.lines[b.line]) {
		b.column++
	} else if b.line < len(b.lines)-1 {
		b.line++
		b.column = 0
	}
}

// render returns the text with a block cursor, escaped for a dynamic-color TextView
func (b *textBuffer) render() string {
	out := make([]string, len(b.lines))
	for i, l := range b.lines {
		if i != b.line {
			out[i] = tview.Escape(string(l))
			continue
		}
		out[i] = tview.Escape(string(l[:b.column])) + "█" + tview.Escape(string(l[min(b.column+1, len(l)):]))
	}
	return strings.Join(out, "\n")
}

// EditableTextView is a multiline editor proxying a TextView. Printable keys,
// Enter and cursor movement are consumed; Escape, Tab and Ctrl keys bubble up
// to the compose form.
type EditableTextView struct {
	textView   *tview.TextView
	buf        *textBuffer
	changeFunc func(string)
}

// NewEditableTextView creates an empty editor
func NewEditableTextView() *EditableTextView {
	e := &EditableTextView{
		textView: tview.NewTextView().
			SetDynamicColors(true).
			SetWrap(true).
			SetScrollable(true),
		buf: newTextBuffer(""),
	}
	e.textView.SetInputCapture(e.handleKey)
	e.redraw()
	return e
}

func (e *EditableTextView) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyEnter:
		e.buf.newline()
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		e.buf.backspace()
	case tcell.KeyDelete:
		e.buf.delete()
	case tcell.KeyUp:
		e.buf.up()
		e.redraw()
		return nil
	case tcell.KeyDown:
		e.buf.down()
		e.redraw()
		return nil
	case tcell.KeyLeft:
		e.buf.left()
		e.redraw()
		return nil
	case tcell.KeyRight:
		e.buf.right()
		e.redraw()
		return nil
	case tcell.KeyHome:
		e.buf.column = 0
		e.redraw()
		return nil
	case tcell.KeyEnd:
		e.buf.column = len(e.buf.lines[e.buf.line])
		e.redraw()
		return nil
	case tcell.KeyRune:
		if !unicode.IsPrint(event.Rune()) {
			return event
		}
		e.buf.insert(event.Rune())
	default:
		return event
	}
	e.changed()
	return nil
}

func (e *EditableTextView) changed() {
	e.redraw()
	if e.changeFunc != nil {
		e.changeFunc(e.buf.String())
	}
}

func (e *EditableTextView) redraw() {
	e.textView.SetText(e.buf.render())
}

// Draw delegates to the TextView
func (e *EditableTextView) Draw(screen tcell.Screen) { e.textView.Draw(screen) }

// GetRect delegates to the TextView
func (e *EditableTextView) GetRect() (int, int, int, int) { return e.textView.GetRect() }

// SetRect delegates to the TextView
func (e *EditableTextView) SetRect(x, y, width, height int) { e.textView.SetRect(x, y, width, height) }

// InputHandler delegates to the TextView, whose input capture does the editing
func (e *EditableTextView) InputHandler() func(event *tcell.EventKey, setFocus func(p tview.Primitive)) {
	return e.textView.InputHandler()
}

// Focus hands focus to the TextView
func (e *EditableTextView) Focus(delegate func(p tview.Primitive)) { delegate(e.textView) }

// HasFocus reports whether the TextView is focused
func (e *EditableTextView) HasFocus() bool { return e.textView.HasFocus() }

// Blur delegates to the TextView
func (e *EditableTextView) Blur() { e.textView.Blur() }

// GetFocusable delegates to the TextView
func (e *EditableTextView) GetFocusable() tview.Focusable { return e.textView.GetFocusable() }

// MouseHandler delegates to the TextView
func (e *EditableTextView) MouseHandler() func(action tview.MouseAction, event *tcell.EventMouse, setFocus func(p tview.Primitive)) (consumed bool, capture tview.Primitive) {
	return e.textView.MouseHandler()
}

// SetText replaces the content and moves the cursor to the start
func (e *EditableTextView) SetText(text string) {
	e.buf.set(text)
	e.redraw()
}

// GetText returns the content
func (e *EditableTextView) GetText() string { return e.buf.String() }

// SetChangedFunc sets the callback run after every edit
func (e *EditableTextView) SetChangedFunc(fn func(string)) { e.changeFunc = fn }

// SetTitle sets the frame title
func (e *EditableTextView) SetTitle(title string) *EditableTextView {
	e.textView.SetTitle(title)
	return e
}

// SetBorder toggles the frame
func (e *EditableTextView) SetBorder(show bool) *EditableTextView {
	e.textView.SetBorder(show)
	return e
}

// SetColors applies foreground, background and border colors
func (e *EditableTextView) SetColors(fg, bg, border tcell.Color) *EditableTextView {
	e.textView.SetTextColor(fg)
	e.textView.SetBackgroundColor(bg)
	e.textView.SetBorderColor(border)
	return e
}
