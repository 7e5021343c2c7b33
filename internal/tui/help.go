package tui

import (
	"fmt"
	"strings"

	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
)

const helpPage = "help"

// helpSections groups the shortcut names of keyActions for the help screen
var helpSections = []struct {
	title string
	names []string
}{
	{"🚀 GETTING STARTED", []string{"help", "quit", "refresh", "search", "categories"}},
	{"📧 MESSAGES", []string{"compose", "reply", "reply_all", "forward", "toggle_read", "star", "important", "archive", "spam", "trash", "restore", "delete", "mute", "snooze", "task", "block", "manage_labels"}},
	{"🧭 NAVIGATION", []string{"next_page", "prev_page", "details", "bulk_select", "saved_searches", "save_search"}},
	{"⚙ SETTINGS", []string{"accounts", "settings"}},
}

// helpDescriptions are the one-line explanations of each shortcut
var helpDescriptions = map[string]string{
	"help":           "Toggle this help screen",
	"quit":           "Quit",
	"refresh":        "Refresh the current view",
	"search":         "Search the current category",
	"categories":     "Go to a category or label",
	"compose":        "Compose a new message",
	"reply":          "Reply",
	"reply_all":      "Reply to all",
	"forward":        "Forward",
	"toggle_read":    "Toggle read/unread",
	"star":           "Toggle star",
	"important":      "Toggle important",
	"archive":        "Archive / unarchive",
	"spam":           "Mark spam / not spam",
	"trash":          "Move to trash / restore",
	"restore":        "Restore to inbox",
	"delete":         "Delete forever (trash only)",
	"mute":           "Mute / unmute",
	"snooze":         "Snooze / unsnooze",
	"task":           "Add to / remove from tasks",
	"block":          "Block / unblock sender",
	"manage_labels":  "Manage labels",
	"next_page":      "Next page",
	"prev_page":      "Previous page",
	"details":        "Show message details",
	"bulk_select":    "Select message for bulk actions",
	"saved_searches": "Saved searches",
	"save_search":    "Save the current search",
	"accounts":       "Switch account",
	"settings":       "Mailbox settings",
}

// generateHelpText renders the bindings in effect and the command list
func (a *App) generateHelpText() string {
	bindings := make(map[string]string)
	for _, ka := range a.keyActions() {
		bindings[ka.name] = ka.binding
	}

	var help strings.Builder
	if acc := a.activeAccount(); acc != nil {
		fmt.Fprintf(&help, "👤 Account: %s\n", tview.Escape(acc.Name))
	}
	if name, err := a.themeService.GetCurrentTheme(a.ctx); err == nil {
		fmt.Fprintf(&help, "🎨 Theme: %s\n", name)
	}
	fmt.Fprintf(&help, "\n💡 Press '%s' or 'Esc' to return\n\n", tview.Escape(bindings["help"]))

	for _, section := range helpSections {
		help.WriteString(section.title + "\n\n")
		for _, name := range section.names {
			key := bindings[name]
			if key == "" {
				continue
			}
			fmt.Fprintf(&help, "    %-8s  %s\n", tview.Escape(key), helpDescriptions[name])
		}
		help.WriteString("\n")
	}

	help.WriteString("⌨ PANES\n\n")
	fmt.Fprintf(&help, "    %-8s  %s\n", "Enter", "Open conversation / expand message")
	fmt.Fprintf(&help, "    %-8s  %s\n", "Tab", "Switch pane")
	fmt.Fprintf(&help, "    %-8s  %s\n\n", "Esc", "Clear selection / back to list")

	help.WriteString("💻 COMMANDS (:)\n\n")
	for i := 0; i < len(commandNames); i += 6 {
		end := min(i+6, len(commandNames))
		help.WriteString("    " + strings.Join(commandNames[i:end], "  ") + "\n")
	}
	return help.String()
}

// toggleHelp opens or closes the help screen
func (a *App) toggleHelp() {
	if name, _ := a.Pages.GetFrontPage(); name == helpPage {
		a.Pages.RemovePage(helpPage)
		a.setFocus("list")
		return
	}

	colors := a.theme()
	text := tview.NewTextView().SetDynamicColors(true).SetScrollable(true).SetWrap(true)
	text.SetText(a.generateHelpText())
	text.SetBorder(true).SetTitle(" ❓ Help ").SetTitleAlign(tview.AlignCenter)
	text.SetBackgroundColor(colors.Body.BgColor.Color())
	text.SetTextColor(colors.Body.FgColor.Color())
	text.SetBorderColor(colors.Frame.Border.FocusColor.Color())
	text.SetTitleColor(colors.Frame.Title.FgColor.Color())
	text.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyEscape || keyMatches(ev, a.Keys.Help) {
			a.toggleHelp()
			return nil
		}
		return ev
	})

	a.Pages.AddPage(helpPage, text, true, true)
	a.SetFocus(text)
}
