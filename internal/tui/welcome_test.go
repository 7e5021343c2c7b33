package tui

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ajramos/mailtui/internal/config"
	"github.com/ajramos/mailtui/internal/services"
	"github.com/ajramos/mailtui/internal/webmail"
	"github.com/stretchr/testify/assert"
)

func TestGetWelcomeShortcuts_CustomConfig(t *testing.T) {
	app := &App{Keys: config.KeyBindings{Help: "F1", Search: "s", Compose: "n", Quit: "Q"}}

	connected := app.getWelcomeShortcuts(true)
	assert.Contains(t, connected, "[F1 Help]")
	assert.Contains(t, connected, "[s Search]")
	assert.Contains(t, connected, "[n Compose]")
	assert.Contains(t, connected, "[: Commands]")

	missing := app.getWelcomeShortcuts(false)
	assert.Contains(t, missing, "[F1 Help]")
	assert.Contains(t, missing, "[Q Quit]")
	assert.NotContains(t, missing, "Search")
}

func TestGetWelcomeShortcuts_DefaultFallback(t *testing.T) {
	app := &App{}

	assert.Contains(t, app.getWelcomeShortcuts(true), "[? Help]")
	assert.Contains(t, app.getWelcomeShortcuts(true), "[/ Search]")
	assert.Contains(t, app.getWelcomeShortcuts(false), "[q Quit]")
}

func TestBuildWelcomeText(t *testing.T) {
	app := &App{Keys: config.DefaultKeyBindings()}

	testCases := []struct {
		name string
		err  error
		want string
	}{
		{"no account", fmt.Errorf("lookup: %w", services.ErrNoActiveAccount), "No account is configured yet"},
		{"no token", fmt.Errorf("no token for account work: %w", webmail.ErrEmptyToken), "has no stored token"},
		{"other", errors.New("dial tcp: refused"), "Could not connect:[-] dial tcp: refused"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			text := app.buildWelcomeText(tc.err)
			assert.Contains(t, text, tc.want)
			assert.Contains(t, text, "mailtui")
		})
	}
}

func TestBuildWelcomeText_Connected(t *testing.T) {
	app := &App{
		Keys:    config.DefaultKeyBindings(),
		account: &services.Account{Name: "work", Email: "me@example.com"},
	}
	text := app.buildWelcomeText(nil)
	assert.Contains(t, text, "me@example.com")
	assert.Contains(t, text, "Quick actions")
}
