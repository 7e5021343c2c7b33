package tui

import (
	"testing"

	"github.com/derailed/tcell/v2"
	"github.com/stretchr/testify/assert"
)

func TestTextBuffer_InsertAndNewline(t *testing.T) {
	b := newTextBuffer("")
	for _, r := range "héllo" {
		b.insert(r)
	}
	b.newline()
	b.insert('x')

	assert.Equal(t, "héllo\nx", b.String())
	assert.Equal(t, 1, b.line)
	assert.Equal(t, 1, b.column)
}

func TestTextBuffer_NewlineSplitsLine(t *testing.T) {
	b := newTextBuffer("abcd")
	b.right()
	b.right()
	b.newline()

	assert.Equal(t, "ab\ncd", b.String())
	assert.Equal(t, 1, b.line)
	assert.Equal(t, 0, b.column)
}

func TestTextBuffer_BackspaceJoinsLines(t *testing.T) {
	b := newTextBuffer("ab\ncd")
	b.down()
	b.backspace()

	assert.Equal(t, "abcd", b.String())
	assert.Equal(t, 0, b.line)
	assert.Equal(t, 2, b.column)

	b.backspace()
	assert.Equal(t, "acd", b.String())
}

func TestTextBuffer_DeleteJoinsNextLine(t *testing.T) {
	b := newTextBuffer("ab\ncd")
	b.right()
	b.right()
	b.delete()
	assert.Equal(t, "abcd", b.String())

	b.delete()
	assert.Equal(t, "abd", b.String())
}

func TestTextBuffer_CursorMovement(t *testing.T) {
	b := newTextBuffer("long line\nab")
	for i := 0; i < 8; i++ {
		b.right()
	}
	b.down()
	assert.Equal(t, 2, b.column, "column clamps to the shorter line")

	b.right()
	assert.Equal(t, 1, b.line, "right stops at the end of the buffer")

	b.up()
	b.left()
	b.left()
	b.left()
	assert.Equal(t, 0, b.line)
	assert.Equal(t, 0, b.column)
	b.left()
	assert.Equal(t, 0, b.column)
}

func TestTextBuffer_CRLF(t *testing.T) {
	b := newTextBuffer("a\r\nb")
	assert.Equal(t, "a\nb", b.String())
}

func TestTextBuffer_RenderEscapesAndShowsCursor(t *testing.T) {
	b := newTextBuffer("[red]x")
	rendered := b.render()
	assert.Contains(t, rendered, "█")
	assert.NotContains(t, rendered, "[red]x")
}

func TestEditableTextView_Typing(t *testing.T) {
	e := NewEditableTextView()
	var changed string
	e.SetChangedFunc(func(s string) { changed = s })

	e.handleKey(tcell.NewEventKey(tcell.KeyRune, 'h', tcell.ModNone))
	e.handleKey(tcell.NewEventKey(tcell.KeyRune, 'i', tcell.ModNone))
	e.handleKey(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))
	e.handleKey(tcell.NewEventKey(tcell.KeyRune, '!', tcell.ModNone))

	assert.Equal(t, "hi\n!", e.GetText())
	assert.Equal(t, "hi\n!", changed)

	e.SetText("reset")
	assert.Equal(t, "reset", e.GetText())
}
