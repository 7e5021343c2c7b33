package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/ajramos/mailtui/internal/config"
	"github.com/ajramos/mailtui/internal/events"
	"github.com/ajramos/mailtui/internal/webmail"
)

// AccountStatus describes whether an account can reach the backend
type AccountStatus string

const (
	AccountStatusUnknown AccountStatus = "unknown"
	AccountStatusReady   AccountStatus = "ready"
	AccountStatusNoToken AccountStatus = "no_token"
	AccountStatusError   AccountStatus = "error"
)

// Account is one configured mailbox
type Account struct {
	Name      string
	MailboxID string
	Email     string
	IsActive  bool
	Status    AccountStatus
}

// TokenSource returns the bearer token of an account; *credential.Store implements it
type TokenSource interface {
	Token(account string) (string, error)
}

// Purger drops every cached query; *cache.Store implements it
type Purger interface {
	Purge()
}

// AccountServiceImpl implements AccountService on top of the config manager
type AccountServiceImpl struct {
	manager *config.Manager
	tokens  TokenSource
	bus     *events.Bus
	cache   Purger
	logger  *log.Logger
	mu      sync.Mutex
}

// NewAccountService creates a new AccountService instance; tokens may be nil
func NewAccountService(manager *config.Manager, tokens TokenSource) *AccountServiceImpl {
	return &AccountServiceImpl{manager: manager, tokens: tokens}
}

// SetBus sets the bus that receives AccountSwitched
func (s *AccountServiceImpl) SetBus(bus *events.Bus) {
	s.bus = bus
}

// SetCache sets the query cache purged on every switch
func (s *AccountServiceImpl) SetCache(c Purger) {
	s.cache = c
}

// SetLogger sets the logger for debug output
func (s *AccountServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// ListAccounts returns all configured accounts in config order
func (s *AccountServiceImpl) ListAccounts(ctx context.Context) ([]*Account, error) {
	cfg := s.manager.GetConfig()
	active, _ := cfg.GetActiveAccount()

	accounts := make([]*Account, 0, len(cfg.Accounts))
	for _, acc := range cfg.Accounts {
		a := s.toAccount(acc)
		a.IsActive = active != nil && active.Name == acc.Name
		accounts = append(accounts, a)
	}
	return accounts, nil
}

// GetActiveAccount returns the currently active account
func (s *AccountServiceImpl) GetActiveAccount(ctx context.Context) (*Account, error) {
	acc, err := s.manager.GetConfig().GetActiveAccount()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoActiveAccount, err)
	}
	a := s.toAccount(*acc)
	a.IsActive = true
	return a, nil
}

// SwitchAccount makes name the active account. The query cache is purged and
// AccountSwitched is published so views reload against the new mailbox.
// Switching to the already active account is a no-op.
func (s *AccountServiceImpl) SwitchAccount(ctx context.Context, name string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: account name cannot be empty", ErrInvalidInput)
	}

	if current, err := s.manager.GetConfig().GetActiveAccount(); err == nil && current.Name == name {
		a := s.toAccount(*current)
		a.IsActive = true
		return a, nil
	}

	acc, err := s.manager.SetActiveAccount(name)
	if err != nil {
		return nil, fmt.Errorf("failed to switch account: %w", err)
	}

	if path := s.manager.ConfigPath(); path != "" {
		if err := s.manager.SaveToFile(path); err != nil && s.logger != nil {
			s.logger.Printf("AccountService: could not persist active account: %v", err)
		}
	}

	if s.cache != nil {
		s.cache.Purge()
	}

	a := s.toAccount(*acc)
	a.IsActive = true

	if s.logger != nil {
		s.logger.Printf("AccountService: switched to %s (mailbox %s)", a.Name, a.MailboxID)
	}
	if s.bus != nil {
		events.Publish(s.bus, events.AccountSwitched{Name: a.Name, MailboxID: a.MailboxID})
	}
	return a, nil
}

// Token returns the bearer token for an account
func (s *AccountServiceImpl) Token(ctx context.Context, name string) (string, error) {
	if s.tokens == nil {
		return "", webmail.ErrEmptyToken
	}
	return s.tokens.Token(name)
}

func (s *AccountServiceImpl) toAccount(acc config.AccountConfig) *Account {
	a := &Account{
		Name:      acc.Name,
		MailboxID: acc.MailboxID,
		Email:     acc.Email,
		Status:    AccountStatusUnknown,
	}
	if s.tokens == nil {
		return a
	}
	switch _, err := s.tokens.Token(acc.Name); {
	case err == nil:
		a.Status = AccountStatusReady
	case errors.Is(err, webmail.ErrEmptyToken):
		a.Status = AccountStatusNoToken
	default:
		a.Status = AccountStatusError
	}
	return a
}
