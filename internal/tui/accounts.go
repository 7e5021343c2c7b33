package tui

import (
	"fmt"
	"strings"

	"github.com/ajramos/mailtui/internal/events"
	"github.com/ajramos/mailtui/internal/services"
	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
)

const accountsPage = "accounts"

// accountStatusIcon renders an account's token state
func accountStatusIcon(s services.AccountStatus) string {
	switch s {
	case services.AccountStatusReady:
		return "✓"
	case services.AccountStatusNoToken:
		return "⚠"
	case services.AccountStatusError:
		return "❌"
	}
	return "?"
}

// accountLine is the picker entry of one account
func accountLine(acc *services.Account) (string, string) {
	active := "○ "
	if acc.IsActive {
		active = "● "
	}
	primary := fmt.Sprintf("%s%s %s", active, accountStatusIcon(acc.Status), acc.Name)
	var detail []string
	if acc.Email != "" {
		detail = append(detail, acc.Email)
	}
	detail = append(detail, "mailbox "+acc.MailboxID)
	if acc.Status == services.AccountStatusNoToken {
		detail = append(detail, "no token, run with --login")
	}
	return primary, strings.Join(detail, " • ")
}

// showAccountPicker lists the configured accounts; Enter switches to one
func (a *App) showAccountPicker() {
	accounts, err := a.accountService.ListAccounts(a.ctx)
	if err != nil {
		a.errorHandler.ShowError(a.ctx, fmt.Sprintf("Failed to load accounts: %v", err))
		return
	}
	if len(accounts) == 0 {
		a.errorHandler.ShowWarning(a.ctx, "No accounts configured")
		return
	}

	colors := a.theme()
	list := tview.NewList().ShowSecondaryText(true)
	list.SetBorder(true).SetTitle(" 👤 Accounts ").SetTitleAlign(tview.AlignCenter)
	list.SetBackgroundColor(colors.Body.BgColor.Color())
	list.SetMainTextColor(colors.Body.FgColor.Color())
	list.SetSecondaryTextColor(colors.Email.ReadColor.Color())
	list.SetBorderColor(colors.Frame.Border.FocusColor.Color())
	list.SetSelectedTextColor(colors.Body.BgColor.Color()).
		SetSelectedBackgroundColor(colors.Frame.Title.HighlightColor.Color())

	closePicker := func() {
		a.Pages.RemovePage(accountsPage)
		a.setFocus("list")
	}
	for i, acc := range accounts {
		name := acc.Name
		primary, secondary := accountLine(acc)
		list.AddItem(tview.Escape(primary), tview.Escape(secondary), 0, func() {
			closePicker()
			a.switchAccount(name)
		})
		if acc.IsActive {
			list.SetCurrentItem(i)
		}
	}
	list.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyEscape {
			closePicker()
			return nil
		}
		return ev
	})

	a.Pages.AddPage(accountsPage, centered(list, 64, min(2*len(accounts)+2, 22)), true, true)
	a.SetFocus(list)
}

// switchAccount makes name the active account; the AccountSwitched handler reconnects
func (a *App) switchAccount(name string) {
	name = strings.TrimSpace(name)
	if acc := a.activeAccount(); acc != nil && acc.Name == name {
		a.errorHandler.ShowInfo(a.ctx, fmt.Sprintf("Already on %s", name))
		return
	}
	a.errorHandler.ShowProgress(a.ctx, fmt.Sprintf("Switching to %s…", name))
	go func() {
		_, err := a.accountService.SwitchAccount(a.ctx, name)
		a.errorHandler.ClearProgress()
		if err != nil {
			a.errorHandler.ShowError(a.ctx, err.Error())
		}
	}()
}

// onAccountSwitched rebinds the view to the new mailbox. It runs on the
// publisher's goroutine.
func (a *App) onAccountSwitched(ev events.AccountSwitched) {
	a.QueueUpdateDraw(func() {
		a.closeLabelsPanel()
		a.closeConversation()
		a.mu.Lock()
		a.page = nil
		a.rows = nil
		a.unread = nil
		a.labels = nil
		a.mu.Unlock()
		a.viewState.SetMailbox(ev.MailboxID)
		a.renderList()
		a.refreshHeader()
	})
	go func() {
		if err := a.connect(a.ctx); err != nil {
			a.QueueUpdateDraw(func() { a.showWelcome(err) })
			return
		}
		a.errorHandler.ShowSuccess(a.ctx, fmt.Sprintf("👤 Switched to %s", ev.Name))
		a.errorHandler.RefreshBaseline()
		a.reload()
		a.loadLabels()
	}()
}

// subscribeBus connects the view requests on the bus to their handlers
func (a *App) subscribeBus() {
	subs := []func(){
		events.Subscribe(a.bus, func(ev events.ComposeRequested) {
			a.composer.Show(ev)
		}),
		events.Subscribe(a.bus, func(ev events.SettingsRequested) {
			a.showSettings(ev.Tab)
		}),
		events.Subscribe(a.bus, a.onAccountSwitched),
	}
	a.mu.Lock()
	a.busSubs = append(a.busSubs, subs...)
	a.mu.Unlock()
}
