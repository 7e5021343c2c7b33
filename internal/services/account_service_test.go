package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/ajramos/mailtui/internal/config"
	"github.com/ajramos/mailtui/internal/events"
	"github.com/ajramos/mailtui/internal/webmail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokens map[string]string

func (f fakeTokens) Token(account string) (string, error) {
	if account == "broken" {
		return "", errors.New("keyring locked")
	}
	tok, ok := f[account]
	if !ok {
		return "", fmt.Errorf("no token for %q: %w", account, webmail.ErrEmptyToken)
	}
	return tok, nil
}

type countingPurger struct{ n int }

func (c *countingPurger) Purge() { c.n++ }

func newAccountFixture(t *testing.T) (*AccountServiceImpl, *config.Manager) {
	t.Helper()
	m := config.NewManager()
	require.NoError(t, m.UpdateConfig(&config.Config{Accounts: []config.AccountConfig{
		{Name: "work", MailboxID: "1", Email: "me@work.io"},
		{Name: "home", MailboxID: "2"},
		{Name: "broken", MailboxID: "3"},
	}}))
	return NewAccountService(m, fakeTokens{"work": "t1"}), m
}

func TestAccountService_List(t *testing.T) {
	svc, _ := newAccountFixture(t)

	accounts, err := svc.ListAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 3)

	assert.Equal(t, "work", accounts[0].Name)
	assert.True(t, accounts[0].IsActive)
	assert.Equal(t, AccountStatusReady, accounts[0].Status)
	assert.Equal(t, AccountStatusNoToken, accounts[1].Status)
	assert.Equal(t, AccountStatusError, accounts[2].Status)

	active, err := svc.GetActiveAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "me@work.io", active.Email)
}

func TestAccountService_NoAccounts(t *testing.T) {
	svc := NewAccountService(config.NewManager(), nil)
	_, err := svc.GetActiveAccount(context.Background())
	assert.ErrorIs(t, err, ErrNoActiveAccount)

	_, err = svc.Token(context.Background(), "any")
	assert.ErrorIs(t, err, webmail.ErrEmptyToken)
}

func TestAccountService_Switch(t *testing.T) {
	svc, m := newAccountFixture(t)
	bus := events.NewBus()
	purger := &countingPurger{}
	svc.SetBus(bus)
	svc.SetCache(purger)

	var got []events.AccountSwitched
	cancel := events.Subscribe(bus, func(ev events.AccountSwitched) { got = append(got, ev) })
	defer cancel()
	ctx := context.Background()

	acc, err := svc.SwitchAccount(ctx, " home ")
	require.NoError(t, err)
	assert.Equal(t, "2", acc.MailboxID)
	assert.Equal(t, "home", m.GetConfig().ActiveAccount)
	assert.Equal(t, []events.AccountSwitched{{Name: "home", MailboxID: "2"}}, got)
	assert.Equal(t, 1, purger.n)

	// already active
	_, err = svc.SwitchAccount(ctx, "home")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, purger.n)

	_, err = svc.SwitchAccount(ctx, "ghost")
	assert.Error(t, err)
	_, err = svc.SwitchAccount(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Len(t, got, 1)
}

func TestAccountService_SwitchPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := &config.Config{Accounts: []config.AccountConfig{
		{Name: "work", MailboxID: "1"},
		{Name: "home", MailboxID: "2"},
	}}
	require.NoError(t, cfg.SaveConfig(path))

	m := config.NewManager()
	require.NoError(t, m.LoadFromFile(path))
	svc := NewAccountService(m, nil)

	_, err := svc.SwitchAccount(context.Background(), "home")
	require.NoError(t, err)

	reloaded, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "home", reloaded.ActiveAccount)
}
