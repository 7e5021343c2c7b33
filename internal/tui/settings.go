package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ajramos/mailtui/internal/config"
	"github.com/ajramos/mailtui/internal/services"
	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
)

// Settings tabs accepted by SettingsRequested
const (
	settingsMailbox  = "mailbox"
	settingsTheme    = "theme"
	settingsAccounts = "accounts"
)

const settingsPage = "settings"

// mailboxSettings is the editable part of the mailbox configuration
type mailboxSettings struct {
	InboxType string
	PageSize  string
	Threaded  bool
}

// apply validates s and copies it onto cfg
func (s mailboxSettings) apply(cfg *config.MailboxConfig) error {
	n, err := strconv.Atoi(strings.TrimSpace(s.PageSize))
	if err != nil || n <= 0 {
		return fmt.Errorf("page size must be a positive number, got %q", s.PageSize)
	}
	valid := false
	for _, t := range config.InboxTypes {
		if t == s.InboxType {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unknown inbox type %q", s.InboxType)
	}
	cfg.InboxType = s.InboxType
	cfg.PageSize = n
	cfg.Threaded = s.Threaded
	return nil
}

// showSettings opens a settings tab; an empty tab means mailbox
func (a *App) showSettings(tab string) {
	switch strings.ToLower(strings.TrimSpace(tab)) {
	case "", settingsMailbox:
		a.showMailboxSettings()
	case settingsTheme, "themes":
		a.showThemePicker()
	case settingsAccounts, "account":
		a.showAccountPicker()
	default:
		a.errorHandler.ShowError(a.ctx, fmt.Sprintf("Unknown settings tab: %s (mailbox, theme, accounts)", tab))
	}
}

// showMailboxSettings edits list ordering, page size and conversation grouping
func (a *App) showMailboxSettings() {
	current := a.config.GetConfig().Mailbox
	current.InboxType = string(a.viewState.Query().InboxType)
	current.Threaded = a.viewState.Threaded()
	form := tview.NewForm()

	settings := mailboxSettings{
		InboxType: current.InboxType,
		PageSize:  strconv.Itoa(current.PageSize),
		Threaded:  current.Threaded,
	}
	selected := 0
	for i, t := range config.InboxTypes {
		if t == settings.InboxType {
			selected = i
		}
	}

	closeForm := func() {
		a.Pages.RemovePage(settingsPage)
		a.setFocus("list")
	}
	form.AddDropDown("Inbox order", config.InboxTypes, selected, func(option string, _ int) {
		settings.InboxType = option
	})
	form.AddInputField("Page size", settings.PageSize, 6, tview.InputFieldInteger, func(text string) {
		settings.PageSize = text
	})
	form.AddCheckbox("Group conversations", settings.Threaded, func(_ string, checked bool) {
		settings.Threaded = checked
	})
	form.AddButton("Save", func() {
		next := current
		if err := settings.apply(&next); err != nil {
			a.errorHandler.ShowError(a.ctx, err.Error())
			return
		}
		closeForm()
		a.saveMailboxSettings(next)
	})
	form.AddButton("Cancel", closeForm)
	form.SetCancelFunc(closeForm)

	colors := a.theme()
	form.SetBorder(true).SetTitle(" ⚙ Mailbox settings ").SetTitleAlign(tview.AlignCenter)
	form.SetBackgroundColor(colors.Body.BgColor.Color())
	form.SetBorderColor(colors.Frame.Border.FocusColor.Color())
	form.SetTitleColor(colors.Frame.Title.FgColor.Color())
	form.SetLabelColor(colors.Frame.Title.HighlightColor.Color())
	form.SetFieldBackgroundColor(colors.Table.BgColor.Color())
	form.SetFieldTextColor(colors.Body.FgColor.Color())
	form.SetButtonBackgroundColor(colors.Frame.Title.HighlightColor.Color())
	form.SetButtonTextColor(colors.Body.BgColor.Color())
	form.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyEscape {
			closeForm()
			return nil
		}
		return ev
	})

	a.Pages.AddPage(settingsPage, centered(form, 50, 13), true, true)
	a.SetFocus(form)
}

// saveMailboxSettings applies the settings to the open view, then persists them
func (a *App) saveMailboxSettings(mb config.MailboxConfig) {
	a.viewState.SetInboxType(services.InboxType(mb.InboxType))
	a.viewState.SetPageSize(mb.PageSize)
	a.viewState.SetThreaded(mb.Threaded)
	go a.reload()

	if err := a.persistConfig(func(cfg *config.Config) { cfg.Mailbox = mb }); err != nil {
		a.errorHandler.ShowWarning(a.ctx, fmt.Sprintf("Settings applied but not saved: %v", err))
		return
	}
	a.errorHandler.ShowSuccess(a.ctx, "⚙ Settings saved")
}
