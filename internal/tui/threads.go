package tui

import (
	"fmt"
	"strings"

	"github.com/ajramos/mailtui/internal/render"
	"github.com/ajramos/mailtui/internal/services"
	"github.com/ajramos/mailtui/internal/webmail"
	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
)

// openRow opens the conversation behind a list row
func (a *App) openRow(row int) {
	a.mu.RLock()
	if row < 0 || row >= len(a.rows) {
		a.mu.RUnlock()
		return
	}
	m := a.rows[row].primary()
	a.mu.RUnlock()
	a.openConversation(m)
}

// openConversation mounts a fresh thread view for the message's conversation
func (a *App) openConversation(m *webmail.Message) {
	if m == nil || !a.ready() {
		return
	}
	a.closeConversation()

	email := ""
	if acc := a.activeAccount(); acc != nil {
		email = acc.Email
	}
	a.mu.Lock()
	tv := services.NewThreadView(a.viewState.MailboxID(), email, a.mutationService)
	tv.SetLogger(a.logger)
	tv.OnChange = func() { a.QueueUpdateDraw(a.renderConversation) }
	a.threadView = tv
	a.openThreadID = strings.TrimSpace(m.ThreadID)
	a.openMessage = m
	a.threadCursor = 0
	a.mu.Unlock()

	if text, ok := a.views["text"].(*tview.TextView); ok {
		text.SetText("Loading conversation…")
	}
	go a.loadConversation(tv, false)
}

// loadConversation fetches the open thread and feeds it to tv. A message
// without a thread id, or a failed fetch, shows the message on its own.
func (a *App) loadConversation(tv *services.ThreadView, preserve bool) {
	a.mu.RLock()
	threadID := a.openThreadID
	single := a.openMessage
	repo := a.repository
	a.mu.RUnlock()
	if repo == nil || single == nil {
		return
	}

	q := a.viewState.Query()
	msgs := []*webmail.Message{single}
	if threadID != "" {
		conv, err := repo.Conversation(a.ctx, q.MailboxID, threadID)
		switch {
		case err != nil && a.ctx.Err() == nil:
			a.errorHandler.ShowAPIError(a.ctx, "Loading conversation", err)
		case len(conv) > 0:
			msgs = conv
		}
	}
	tv.Load(a.ctx, msgs, preserve)

	if !preserve {
		a.watchView(q.MailboxID, q.Category, threadID)
	}

	a.QueueUpdateDraw(func() {
		a.mu.Lock()
		if a.threadView != tv {
			a.mu.Unlock()
			return
		}
		n := tv.Thread().Len()
		if !preserve {
			a.threadCursor = n - 1
		}
		a.threadCursor = min(max(a.threadCursor, 0), max(n-1, 0))
		a.mu.Unlock()
		a.renderConversation()
	})
}

// reloadConversation refetches the open thread after its query went stale
func (a *App) reloadConversation(preserve bool) {
	a.mu.RLock()
	tv := a.threadView
	a.mu.RUnlock()
	if tv == nil {
		return
	}
	a.loadConversation(tv, preserve)
}

// closeConversation unmounts the open thread; late mark-seen completions are dropped
func (a *App) closeConversation() {
	a.mu.Lock()
	tv := a.threadView
	a.threadView = nil
	a.openThreadID = ""
	a.openMessage = nil
	a.threadCursor = 0
	a.mu.Unlock()
	if tv != nil {
		tv.Close()
	}
	if text, ok := a.views["text"].(*tview.TextView); ok {
		text.SetText("")
	}
	if tc, ok := a.views["textContainer"].(*tview.Flex); ok {
		tc.SetTitle(" 📄 Conversation ")
	}
}

// cursorMessage is the conversation member under the cursor
func (a *App) cursorMessage() *webmail.Message {
	a.mu.RLock()
	tv := a.threadView
	cursor := a.threadCursor
	a.mu.RUnlock()
	if tv == nil {
		return nil
	}
	t := tv.Thread()
	if t == nil || cursor < 0 || cursor >= len(t.Messages) {
		return nil
	}
	return t.Messages[cursor]
}

// moveThreadCursor steps the conversation cursor by delta
func (a *App) moveThreadCursor(delta int) {
	a.mu.Lock()
	tv := a.threadView
	if tv == nil {
		a.mu.Unlock()
		return
	}
	n := tv.Thread().Len()
	a.threadCursor = min(max(a.threadCursor+delta, 0), max(n-1, 0))
	a.mu.Unlock()
	a.renderConversation()
}

// toggleCursorMessage expands or collapses the message under the cursor
func (a *App) toggleCursorMessage() {
	a.mu.RLock()
	tv := a.threadView
	cursor := a.threadCursor
	a.mu.RUnlock()
	if tv == nil {
		return
	}
	tv.ToggleMessage(a.ctx, cursor)
	a.renderConversation()
}

// toggleCursorDetails opens or closes the details dropdown under the cursor
func (a *App) toggleCursorDetails() {
	a.mu.RLock()
	tv := a.threadView
	cursor := a.threadCursor
	a.mu.RUnlock()
	if tv == nil {
		a.errorHandler.ShowInfo(a.ctx, "Open a conversation first")
		return
	}
	tv.ToggleDropdown(cursor)
	a.renderConversation()
}

// renderConversation draws the open thread: one header line per message, the
// details dropdown and body of the ones that are open
func (a *App) renderConversation() {
	text, ok := a.views["text"].(*tview.TextView)
	if !ok {
		return
	}
	a.mu.RLock()
	tv := a.threadView
	cursor := a.threadCursor
	a.mu.RUnlock()
	if tv == nil {
		return
	}
	t := tv.Thread()
	if t == nil || t.Len() == 0 {
		text.SetText("Conversation is empty")
		return
	}

	_, _, width, _ := text.GetInnerRect()
	body, cursorLine := a.conversationText(tv, t, cursor, width)
	text.SetText(body)
	text.ScrollTo(cursorLine, 0)

	if tc, ok := a.views["textContainer"].(*tview.Flex); ok {
		subject := strings.TrimSpace(t.Main().Subject)
		if subject == "" {
			subject = "(no subject)"
		}
		tc.SetTitle(fmt.Sprintf(" 📄 %s (%d) ", tview.Escape(render.FitWidth(subject, 60)), t.Len()))
	}
}

// conversationText renders the thread and returns the line the cursor header is on
func (a *App) conversationText(tv *services.ThreadView, t *services.Thread, cursor, width int) (string, int) {
	colors := a.theme()
	highlight := colors.Frame.Title.HighlightColor.String()
	muted := colors.Email.ReadColor.String()
	wrap := max(width-2, 20)

	var b strings.Builder
	line, cursorLine := 0, 0
	write := func(s string) {
		b.WriteString(s)
		line += strings.Count(s, "\n")
	}

	for i, m := range t.Messages {
		expanded := tv.IsExpanded(i)
		arrow := "▶"
		if expanded {
			arrow = "▼"
		}
		header := fmt.Sprintf("%s %s  %s %s", arrow,
			render.ExtractSenderName(m.From),
			a.emailRenderer.FormatRelativeTime(m.Timestamp()),
			render.FlagIcons(m))
		header = tview.Escape(strings.TrimSpace(header))

		if i == cursor {
			cursorLine = line
			write(fmt.Sprintf("[%s::b]%s[-::-]\n", highlight, header))
		} else if m.Unread() {
			write(fmt.Sprintf("[::b]%s[::-]\n", header))
		} else {
			write(header + "\n")
		}

		if tv.IsDropdownOpen(i) {
			details := a.emailRenderer.FormatHeaderPlain(m, nil)
			write(fmt.Sprintf("[%s]%s[-]\n", muted, tview.Escape(details)))
		}
		if expanded {
			f := render.FormatMessage(m, render.FormatOptions{WrapWidth: wrap})
			write("\n" + tview.Escape(strings.TrimRight(f.String(), "\n")) + "\n")
		}
		if i < len(t.Messages)-1 {
			write(fmt.Sprintf("[%s]%s[-]\n", muted, strings.Repeat("─", min(wrap, 80))))
		}
	}
	return b.String(), cursorLine
}

// conversationInput handles keys while the conversation pane has focus
func (a *App) conversationInput(ev *tcell.EventKey) *tcell.EventKey {
	switch ev.Key() {
	case tcell.KeyUp:
		a.moveThreadCursor(-1)
		return nil
	case tcell.KeyDown:
		a.moveThreadCursor(1)
		return nil
	case tcell.KeyEnter:
		a.toggleCursorMessage()
		return nil
	case tcell.KeyEscape:
		a.setFocus("list")
		return nil
	}
	return ev
}
