package tui

import (
	"time"

	"github.com/ajramos/mailtui/internal/cache"
	"github.com/ajramos/mailtui/internal/services"
	"github.com/ajramos/mailtui/internal/webmail"
	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
)

// reloadDebounce coalesces bursts of invalidations into one refetch
const reloadDebounce = 150 * time.Millisecond

// listRow is one line of the message list: a message, or a conversation when threaded
type listRow struct {
	message *webmail.Message
	thread  *services.Thread
}

// primary is the message the row stands for; the latest one of a conversation
func (r listRow) primary() *webmail.Message {
	if r.thread != nil {
		return r.thread.Latest()
	}
	return r.message
}

// rowsFor flattens a page into list rows
func rowsFor(page *services.MailboxPage) []listRow {
	if page == nil {
		return nil
	}
	rows := make([]listRow, 0, len(page.Messages)+len(page.Threads))
	for _, t := range page.Threads {
		if t.Len() > 0 {
			rows = append(rows, listRow{thread: t})
		}
	}
	for _, m := range page.Messages {
		rows = append(rows, listRow{message: m})
	}
	return rows
}

// viewKeys lists the cached queries a category view is built from
func viewKeys(mailboxID string, c services.Category) []cache.Key {
	if labelID, ok := c.LabelID(); ok {
		return cache.LabelEmailsKeys(labelID)
	}
	if status, ok := c.SendStatus(); ok {
		return []cache.Key{cache.SentKey(mailboxID, status)}
	}
	return []cache.Key{cache.MailboxKey(mailboxID)}
}

// watchView subscribes to the queries behind the current view, replacing older subscriptions
func (a *App) watchView(mailboxID string, c services.Category, threadID string) {
	keys := viewKeys(mailboxID, c)
	keys = append(keys, cache.LabelsKey(mailboxID))
	_, sent := c.SendStatus()
	if _, isLabel := c.LabelID(); sent || isLabel {
		// unread counts in the header come from the received list
		keys = append(keys, cache.MailboxKey(mailboxID))
	}

	labelsKey := cache.LabelsKey(mailboxID)
	subs := make([]func(), 0, len(keys)+1)
	for _, k := range keys {
		if k == labelsKey {
			subs = append(subs, a.queryCache.Subscribe(k, func(cache.Key) { go a.loadLabels() }))
			continue
		}
		subs = append(subs, a.queryCache.Subscribe(k, func(cache.Key) { a.scheduleReload() }))
	}
	if threadID != "" {
		subs = append(subs, a.queryCache.Subscribe(cache.ConversationKey(mailboxID, threadID), func(cache.Key) {
			go a.reloadConversation(true)
		}))
	}

	a.mu.Lock()
	old := a.cacheSubs
	a.cacheSubs = subs
	a.mu.Unlock()
	for _, unsubscribe := range old {
		unsubscribe()
	}
}

// scheduleReload refetches the list shortly, collapsing repeated calls
func (a *App) scheduleReload() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.reloadTmr != nil {
		a.reloadTmr.Stop()
	}
	a.reloadTmr = time.AfterFunc(reloadDebounce, a.reload)
}

// reload fetches the current page and redraws the list. Only the latest
// request may render so a slow response never overwrites a newer view.
func (a *App) reload() {
	a.mu.Lock()
	a.reloadSeq++
	seq := a.reloadSeq
	svc := a.mailboxService
	threadID := a.openThreadID
	a.mu.Unlock()
	if svc == nil {
		return
	}

	q := a.viewState.Query()
	a.watchView(q.MailboxID, q.Category, threadID)

	a.errorHandler.ShowProgress(a.ctx, "Loading "+categoryTitle(q.Category)+"…")
	page, err := svc.LoadView(a.ctx, q)
	var counts map[services.Category]int
	if err == nil {
		counts, _ = svc.UnreadCounts(a.ctx, q.MailboxID)
	}
	a.errorHandler.ClearProgress()

	if err != nil {
		if a.ctx.Err() == nil {
			a.errorHandler.ShowAPIError(a.ctx, "Loading messages", err)
		}
		return
	}

	a.QueueUpdateDraw(func() {
		a.mu.Lock()
		if seq != a.reloadSeq {
			a.mu.Unlock()
			return
		}
		a.page = page
		a.unread = counts
		a.rows = rowsFor(page)
		a.mu.Unlock()

		a.renderList()
		a.refreshHeader()
		a.errorHandler.RefreshBaseline()
	})
}

// renderList draws the rows, keeping the cursor on the same row index
func (a *App) renderList() {
	list, ok := a.views["list"].(*tview.Table)
	if !ok {
		return
	}
	prev, _ := list.GetSelection()
	list.Clear()

	_, _, width, _ := list.GetInnerRect()
	a.mu.RLock()
	rows := a.rows
	a.mu.RUnlock()

	if len(rows) == 0 {
		list.SetCell(0, 0, tview.NewTableCell("No messages").
			SetTextColor(a.theme().Email.ReadColor.Color()).
			SetSelectable(false))
	}
	for i, r := range rows {
		text, color := a.formatRow(r, width-2)
		list.SetCell(i, 0, tview.NewTableCell(tview.Escape(text)).
			SetTextColor(color).
			SetExpansion(1))
	}
	if len(rows) > 0 {
		list.Select(min(max(prev, 0), len(rows)-1), 0)
	}
	list.SetTitle(a.listTitle())
}

// formatRow renders one row with a selection mark
func (a *App) formatRow(r listRow, width int) (string, tcell.Color) {
	mark := "  "
	m := r.primary()
	if m != nil && a.viewState.IsSelected(m.Ref()) {
		mark = "✓ "
	}
	var text string
	var color tcell.Color
	if r.thread != nil {
		text, color = a.emailRenderer.FormatThreadRow(m, r.thread.Len(), r.thread.UnreadCount(), width-2)
	} else {
		text, color = a.emailRenderer.FormatEmailList(m, width-2)
	}
	if mark != "  " {
		color = a.theme().Email.SelectedColor.Color()
	}
	return mark + text, color
}

// currentRow returns the row under the list cursor
func (a *App) currentRow() (listRow, bool) {
	list, ok := a.views["list"].(*tview.Table)
	if !ok {
		return listRow{}, false
	}
	row, _ := list.GetSelection()
	a.mu.RLock()
	defer a.mu.RUnlock()
	if row < 0 || row >= len(a.rows) {
		return listRow{}, false
	}
	return a.rows[row], true
}

// currentMessage is the message an action applies to: the conversation cursor
// when the conversation pane is focused, else the list row
func (a *App) currentMessage() *webmail.Message {
	if a.currentFocus == "text" {
		if m := a.cursorMessage(); m != nil {
			return m
		}
	}
	if r, ok := a.currentRow(); ok {
		return r.primary()
	}
	return nil
}

// changeCategory switches view; page and selection reset
func (a *App) changeCategory(c services.Category) {
	a.viewState.SetCategory(c)
	a.closeConversation()
	a.refreshHeader()
	if list, ok := a.views["list"].(*tview.Table); ok {
		list.Select(0, 0)
	}
	go a.reload()
}

// applySearch filters the current view
func (a *App) applySearch(query string) {
	f := a.viewState.SetSearch(query)
	if f.IsEmpty() {
		a.errorHandler.ShowInfo(a.ctx, "Search cleared")
	} else {
		a.errorHandler.ShowInfo(a.ctx, "Searching: "+f.Raw)
	}
	go a.reload()
}

// turnPage moves one page forward or back
func (a *App) turnPage(forward bool) {
	a.mu.RLock()
	page := a.page
	a.mu.RUnlock()
	if page == nil {
		return
	}
	moved := false
	if forward {
		moved = a.viewState.NextPage(page.PageCount)
	} else {
		moved = a.viewState.PrevPage()
	}
	if !moved {
		a.errorHandler.ShowInfo(a.ctx, "No more pages")
		return
	}
	go a.reload()
}

// refresh marks every query behind the view stale; subscribers refetch
func (a *App) refresh() {
	mailboxID := a.mailboxID()
	for _, k := range viewKeys(mailboxID, a.viewState.Category()) {
		a.queryCache.Invalidate(k)
	}
	a.queryCache.Invalidate(cache.LabelsKey(mailboxID))
	a.mu.RLock()
	threadID := a.openThreadID
	a.mu.RUnlock()
	if threadID != "" {
		a.queryCache.Invalidate(cache.ConversationKey(mailboxID, threadID))
	}
	a.scheduleReload()
}

// toggleSelection flips the bulk mark on the current row
func (a *App) toggleSelection() {
	r, ok := a.currentRow()
	if !ok {
		return
	}
	m := r.primary()
	if m == nil {
		return
	}
	a.viewState.ToggleSelected(m.Ref())
	a.renderList()
	a.errorHandler.RefreshBaseline()

	if list, ok := a.views["list"].(*tview.Table); ok {
		row, _ := list.GetSelection()
		if row+1 < list.GetRowCount() {
			list.Select(row+1, 0)
		}
	}
}

// selectAll marks every row of the page, or clears the marks when none is given
func (a *App) selectAll(on bool) {
	if !on {
		a.viewState.ClearSelection()
	} else {
		a.mu.RLock()
		msgs := make([]*webmail.Message, 0, len(a.rows))
		for _, r := range a.rows {
			if m := r.primary(); m != nil {
				msgs = append(msgs, m)
			}
		}
		a.mu.RUnlock()
		a.viewState.SelectAll(msgs)
	}
	a.renderList()
	a.errorHandler.RefreshBaseline()
}
