package tui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ajramos/mailtui/internal/events"
	"github.com/ajramos/mailtui/internal/services"
	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
)

// Prompt modes of the command line
const (
	promptCommand = "command"
	promptSearch  = "search"
	promptLabel   = "label"
	promptSave    = "save"
)

// maxHistory bounds the command history
const maxHistory = 100

// commandNames lists every command; used for completion
var commandNames = []string{
	"account", "accounts", "all", "archive", "block", "category", "clear", "compose",
	"forward", "go", "help", "important", "label", "mklabel", "mute", "next",
	"prev", "quit", "read", "refresh", "reply", "replyall", "restore", "run",
	"save", "search", "searches", "select", "settings", "snooze", "sort", "spam",
	"star", "task", "theme", "threads", "trash", "unread", "unsave",
}

// parseCommand splits a command line into a lowercased name and its arguments
func parseCommand(line string) (string, []string) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return "", nil
	}
	return strings.ToLower(parts[0]), parts[1:]
}

// commandSuggestion completes a command name prefix; "" when nothing matches
func commandSuggestion(prefix string) string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" || strings.Contains(prefix, " ") {
		return ""
	}
	i := sort.SearchStrings(commandNames, prefix)
	if i < len(commandNames) && strings.HasPrefix(commandNames[i], prefix) {
		return commandNames[i]
	}
	return ""
}

// onPromptDone finishes the command line in its current mode
func (a *App) onPromptDone(key tcell.Key) {
	cmd, ok := a.views["cmd"].(*tview.InputField)
	if !ok {
		return
	}
	mode := a.cmdMode
	text := strings.TrimSpace(cmd.GetText())
	a.hidePrompt()
	if key != tcell.KeyEnter {
		return
	}

	switch mode {
	case promptCommand:
		a.executeCommand(text)
	case promptSearch:
		a.applySearch(text)
	case promptLabel:
		a.createLabel(text)
	case promptSave:
		a.saveCurrentSearch(text)
	}
}

// promptInput adds history and completion to the command line
func (a *App) promptInput(ev *tcell.EventKey) *tcell.EventKey {
	cmd, ok := a.views["cmd"].(*tview.InputField)
	if !ok || a.cmdMode != promptCommand {
		return ev
	}
	switch ev.Key() {
	case tcell.KeyTab:
		if s := commandSuggestion(cmd.GetText()); s != "" {
			cmd.SetText(s + " ")
		}
		return nil
	case tcell.KeyUp:
		if a.cmdHistoryIndex > 0 {
			a.cmdHistoryIndex--
			cmd.SetText(a.cmdHistory[a.cmdHistoryIndex])
		}
		return nil
	case tcell.KeyDown:
		if a.cmdHistoryIndex < len(a.cmdHistory)-1 {
			a.cmdHistoryIndex++
			cmd.SetText(a.cmdHistory[a.cmdHistoryIndex])
		} else {
			a.cmdHistoryIndex = len(a.cmdHistory)
			cmd.SetText("")
		}
		return nil
	}
	return ev
}

func (a *App) addToHistory(cmd string) {
	if cmd == "" || (len(a.cmdHistory) > 0 && a.cmdHistory[len(a.cmdHistory)-1] == cmd) {
		a.cmdHistoryIndex = len(a.cmdHistory)
		return
	}
	a.cmdHistory = append(a.cmdHistory, cmd)
	if len(a.cmdHistory) > maxHistory {
		a.cmdHistory = a.cmdHistory[1:]
	}
	a.cmdHistoryIndex = len(a.cmdHistory)
}

// executeCommand runs one command line
func (a *App) executeCommand(line string) {
	a.addToHistory(line)
	command, args := parseCommand(line)
	if command == "" {
		return
	}
	rest := strings.Join(args, " ")

	switch command {
	case "quit", "q":
		a.Stop()
	case "help", "h", "?":
		a.toggleHelp()
	case "refresh":
		a.refresh()
	case "go", "g", "category":
		a.executeGoToCommand(rest)
	case "label":
		a.executeLabelViewCommand(rest)
	case "mklabel":
		a.createLabel(rest)
	case "search", "s":
		a.applySearch(rest)
	case "clear":
		a.applySearch("")
	case "next":
		a.turnPage(true)
	case "prev":
		a.turnPage(false)
	case "threads":
		a.executeThreadsCommand(rest)
	case "sort":
		a.executeSortCommand(rest)
	case "select":
		a.selectAll(rest != "none")
	case "all":
		a.selectAll(true)
	case "compose", "c", "new":
		a.requestCompose(services.ComposeNew)
	case "reply", "r":
		a.requestCompose(services.ComposeReply)
	case "replyall":
		a.requestCompose(services.ComposeReplyAll)
	case "forward":
		a.requestCompose(services.ComposeForward)
	case "account":
		if rest == "" {
			a.showAccountPicker()
			return
		}
		a.switchAccount(rest)
	case "accounts":
		a.showAccountPicker()
	case "theme":
		if rest == "" {
			events.Publish(a.bus, events.SettingsRequested{Tab: settingsTheme})
			return
		}
		a.applyTheme(rest)
	case "settings":
		events.Publish(a.bus, events.SettingsRequested{Tab: rest})
	case "save":
		a.saveCurrentSearch(rest)
	case "searches":
		a.showSavedQueries()
	case "run":
		a.runSavedQuery(rest)
	case "unsave":
		a.deleteSavedQuery(rest)
	default:
		if action, err := services.ParseAction(command); err == nil {
			a.runAction(action)
			return
		}
		if n, err := strconv.Atoi(command); err == nil {
			a.executeGoToRow(n)
			return
		}
		a.errorHandler.ShowError(a.ctx, fmt.Sprintf("Unknown command: %s", command))
	}
}

// executeGoToCommand switches to a category by name, or opens the picker
func (a *App) executeGoToCommand(name string) {
	if name == "" {
		a.showCategoryPicker()
		return
	}
	c, err := services.ParseCategory(name)
	if err != nil {
		a.errorHandler.ShowError(a.ctx, err.Error())
		return
	}
	a.changeCategory(c)
}

// executeLabelViewCommand switches to the messages of a label given by name or id
func (a *App) executeLabelViewCommand(name string) {
	if name == "" {
		a.manageLabels()
		return
	}
	a.mu.RLock()
	labels := a.labels
	a.mu.RUnlock()
	for _, l := range labels {
		if strings.EqualFold(l.Name, name) || l.ID == name {
			a.changeCategory(services.LabelCategory(l.ID))
			return
		}
	}
	a.errorHandler.ShowError(a.ctx, fmt.Sprintf("Unknown label: %s", name))
}

// executeThreadsCommand turns conversation grouping on, off, or flips it
func (a *App) executeThreadsCommand(arg string) {
	on := !a.viewState.Threaded()
	switch strings.ToLower(arg) {
	case "on":
		on = true
	case "off":
		on = false
	}
	a.setThreaded(on)
}

// setThreaded changes conversation grouping and reloads
func (a *App) setThreaded(on bool) {
	a.viewState.SetThreaded(on)
	if on {
		a.errorHandler.ShowInfo(a.ctx, "📧 Threaded view")
	} else {
		a.errorHandler.ShowInfo(a.ctx, "📄 Flat view")
	}
	go a.reload()
}

// executeSortCommand changes the inbox ordering strategy
func (a *App) executeSortCommand(arg string) {
	t := services.InboxType(strings.ToLower(arg))
	switch t {
	case services.InboxDefault, services.InboxUnread, services.InboxStarred, services.InboxImportant, services.InboxPriority:
	default:
		a.errorHandler.ShowError(a.ctx, "Usage: sort <default|unread|starred|important|priority>")
		return
	}
	a.viewState.SetInboxType(t)
	go a.reload()
}

// executeGoToRow moves the list cursor to a 1-based row
func (a *App) executeGoToRow(n int) {
	list, ok := a.views["list"].(*tview.Table)
	if !ok || list.GetRowCount() == 0 {
		return
	}
	list.Select(min(max(n, 1), list.GetRowCount())-1, 0)
	a.setFocus("list")
}
