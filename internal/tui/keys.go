package tui

import (
	"strings"

	"github.com/ajramos/mailtui/internal/events"
	"github.com/ajramos/mailtui/internal/services"
	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
)

// keyMatches reports whether ev is the configured binding. A binding is a
// single character, "space", "enter", "tab" or "ctrl+<letter>".
func keyMatches(ev *tcell.EventKey, binding string) bool {
	binding = strings.TrimSpace(binding)
	if binding == "" || ev == nil {
		return false
	}
	switch strings.ToLower(binding) {
	case "space":
		return ev.Key() == tcell.KeyRune && ev.Rune() == ' '
	case "enter":
		return ev.Key() == tcell.KeyEnter
	case "tab":
		return ev.Key() == tcell.KeyTab
	}
	if lower := strings.ToLower(binding); strings.HasPrefix(lower, "ctrl+") {
		rest := []rune(strings.TrimPrefix(lower, "ctrl+"))
		if len(rest) != 1 || rest[0] < 'a' || rest[0] > 'z' {
			return false
		}
		return ev.Key() == tcell.KeyCtrlA+tcell.Key(rest[0]-'a')
	}
	r := []rune(binding)
	return len(r) == 1 && ev.Key() == tcell.KeyRune && ev.Rune() == r[0]
}

// keyAction binds one configured key to its handler
type keyAction struct {
	name    string
	binding string
	run     func()
}

// keyActions lists the configurable shortcuts in match order
func (a *App) keyActions() []keyAction {
	k := a.Keys
	toggle := func(action services.Action) func() {
		return func() { a.toggleAction(action) }
	}
	compose := func(mode services.ComposeMode) func() {
		return func() { a.requestCompose(mode) }
	}
	return []keyAction{
		{"quit", k.Quit, a.Stop},
		{"help", k.Help, a.toggleHelp},
		{"compose", k.Compose, compose(services.ComposeNew)},
		{"reply", k.Reply, compose(services.ComposeReply)},
		{"reply_all", k.ReplyAll, compose(services.ComposeReplyAll)},
		{"forward", k.Forward, compose(services.ComposeForward)},
		{"toggle_read", k.ToggleRead, toggle(services.ActionRead)},
		{"star", k.Star, toggle(services.ActionStar)},
		{"archive", k.Archive, toggle(services.ActionArchive)},
		{"spam", k.Spam, toggle(services.ActionSpam)},
		{"trash", k.Trash, toggle(services.ActionTrash)},
		{"restore", k.Restore, func() { a.runAction(services.ActionRestore) }},
		{"mute", k.Mute, toggle(services.ActionMute)},
		{"snooze", k.Snooze, toggle(services.ActionSnooze)},
		{"task", k.Task, toggle(services.ActionTask)},
		{"important", k.Important, toggle(services.ActionImportant)},
		{"block", k.Block, toggle(services.ActionBlock)},
		{"delete", k.Delete, a.confirmPermanentDelete},
		{"refresh", k.Refresh, a.refresh},
		{"search", k.Search, a.openSearch},
		{"saved_searches", k.SavedSearches, a.showSavedQueries},
		{"save_search", k.SaveSearch, a.promptSaveSearch},
		{"manage_labels", k.ManageLabels, a.manageLabels},
		{"categories", k.Categories, a.showCategoryPicker},
		{"accounts", k.Accounts, a.showAccountPicker},
		{"settings", k.Settings, func() { events.Publish(a.bus, events.SettingsRequested{Tab: settingsMailbox}) }},
		{"details", k.Details, a.toggleCursorDetails},
		{"next_page", k.NextPage, func() { a.turnPage(true) }},
		{"prev_page", k.PrevPage, func() { a.turnPage(false) }},
		{"bulk_select", k.BulkSelect, a.toggleSelection},
	}
}

// handleConfigurableKey runs the shortcut bound to ev, if any
func (a *App) handleConfigurableKey(ev *tcell.EventKey) bool {
	for _, ka := range a.keyActions() {
		if keyMatches(ev, ka.binding) {
			if a.logger != nil {
				a.logger.Printf("shortcut: %q -> %s", ka.binding, ka.name)
			}
			ka.run()
			return true
		}
	}
	return false
}

// bindKeys installs the global key router and the per-pane handlers
func (a *App) bindKeys() {
	a.SetInputCapture(a.routeKey)
	if text, ok := a.views["text"].(*tview.TextView); ok {
		text.SetInputCapture(a.conversationInput)
	}
	if l, ok := a.views["labelList"].(*tview.List); ok {
		l.SetInputCapture(a.labelsInput)
	}
	if cmd, ok := a.views["cmd"].(*tview.InputField); ok {
		cmd.SetInputCapture(a.promptInput)
	}
}

// routeKey is the application input capture. Editors, pickers and modals get
// every key; the mailbox panes get the configured shortcuts.
func (a *App) routeKey(ev *tcell.EventKey) *tcell.EventKey {
	if ev.Key() == tcell.KeyCtrlC {
		return ev
	}
	if a.composer != nil && a.composer.IsVisible() {
		return ev
	}
	if a.cmdMode != "" {
		return ev
	}
	if name, _ := a.Pages.GetFrontPage(); name != "main" {
		return ev
	}
	switch a.GetFocus().(type) {
	case *tview.InputField, *tview.Form, *tview.List, *tview.Button, *tview.DropDown, *tview.Checkbox:
		return ev
	}

	switch {
	case ev.Key() == tcell.KeyTab:
		a.toggleFocus()
		return nil
	case ev.Key() == tcell.KeyRune && ev.Rune() == ':':
		a.showPrompt(promptCommand, ": ", "")
		return nil
	case ev.Key() == tcell.KeyEscape && a.viewState.SelectionCount() > 0:
		a.selectAll(false)
		return nil
	}
	if a.handleConfigurableKey(ev) {
		return nil
	}
	return ev
}

// toggleFocus cycles focus between the list, the conversation and, when open, the label panel
func (a *App) toggleFocus() {
	ring := []string{"list", "text"}
	if a.labelsOpen {
		ring = append(ring, "labels")
	}
	next := 0
	for i, name := range ring {
		if name == a.currentFocus {
			next = (i + 1) % len(ring)
			break
		}
	}
	a.setFocus(ring[next])
}

// requestCompose asks the composer to open; replies need a message
func (a *App) requestCompose(mode services.ComposeMode) {
	if !a.ready() {
		return
	}
	var m = a.currentMessage()
	if mode != services.ComposeNew && m == nil {
		a.errorHandler.ShowWarning(a.ctx, "No message selected")
		return
	}
	if mode == services.ComposeNew {
		m = nil
	}
	events.Publish(a.bus, events.ComposeRequested{Mode: mode, Message: m})
}

// openSearch opens the prompt prefilled with the active search
func (a *App) openSearch() {
	search := a.viewState.Search()
	a.showPrompt(promptSearch, "🔍 Search: ", search.Raw)
}
