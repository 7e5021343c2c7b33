package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ajramos/mailtui/internal/config"
	"github.com/ajramos/mailtui/internal/services"
	"github.com/ajramos/mailtui/internal/webmail"
	"github.com/derailed/tview"
)

// showWelcome renders the first-run guide into the conversation pane when no
// account could be connected
func (a *App) showWelcome(err error) {
	if a.logger != nil {
		a.logger.Printf("welcome: %v", err)
	}
	text, ok := a.views["text"].(*tview.TextView)
	if !ok {
		return
	}
	text.SetText(a.buildWelcomeText(err))
	text.ScrollToBeginning()
	a.setFocus("text")
}

// getWelcomeShortcuts renders the shortcut chips with the configured keys
func (a *App) getWelcomeShortcuts(connected bool) string {
	key := func(k, fallback string) string {
		if strings.TrimSpace(k) == "" {
			return fallback
		}
		return k
	}
	help := key(a.Keys.Help, "?")
	if !connected {
		return fmt.Sprintf("[%s Help]  [%s Quit]", help, key(a.Keys.Quit, "q"))
	}
	return fmt.Sprintf("[%s Help]  [%s Search]  [%s Compose]  [: Commands]",
		help, key(a.Keys.Search, "/"), key(a.Keys.Compose, "c"))
}

// buildWelcomeText explains what is missing; a nil err renders the connected variant
func (a *App) buildWelcomeText(err error) string {
	var b strings.Builder
	b.WriteString("[yellow::b]📨 mailtui, your webmail in the terminal[-]\n\n")

	if err == nil {
		if acc := a.activeAccount(); acc != nil && acc.Email != "" {
			fmt.Fprintf(&b, "[green::b]Account:[-] %s\n\n", tview.Escape(acc.Email))
		}
		fmt.Fprintf(&b, "[white::b]Quick actions:[-]  %s\n", tview.Escape(a.getWelcomeShortcuts(true)))
		return b.String()
	}

	path := ""
	if a.config != nil {
		path = a.config.ConfigPath()
	}
	if path == "" {
		path = config.DefaultConfigPath()
	}

	switch {
	case errors.Is(err, services.ErrNoActiveAccount):
		b.WriteString("No account is configured yet.\n\n")
		b.WriteString("Setup steps:\n")
		fmt.Fprintf(&b, "  1. Add an account (name, mailbox_id, email) to `%s`.\n", tview.Escape(path))
		b.WriteString("  2. Store its token with `mailtui --login <account>`.\n")
		b.WriteString("  3. Restart the application.\n\n")
	case errors.Is(err, webmail.ErrEmptyToken):
		b.WriteString("The active account has no stored token.\n\n")
		b.WriteString("Run `mailtui --login <account>` or set MAILTUI_TOKEN, then restart.\n\n")
	default:
		fmt.Fprintf(&b, "[red]Could not connect:[-] %s\n\n", tview.Escape(err.Error()))
	}
	fmt.Fprintf(&b, "%s\n", tview.Escape(a.getWelcomeShortcuts(false)))
	return b.String()
}
