package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/99designs/keyring"
	"github.com/ajramos/mailtui/internal/webmail"
)

const serviceName = "mailtui"

// TokenEnv overrides the stored token for whichever account is active
const TokenEnv = "MAILTUI_TOKEN"

// Store keeps one bearer token per account in the OS keyring
type Store struct {
	ring   keyring.Keyring
	getenv func(string) string
}

// Open returns a Store backed by the system keyring
func Open() (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/mailtui/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("mailtui-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return NewStore(ring), nil
}

// NewStore wraps an already opened keyring
func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring, getenv: os.Getenv}
}

func tokenKey(account string) string {
	return "token:" + account
}

// Token returns the bearer token for account. MAILTUI_TOKEN wins when set.
// A missing token is reported as webmail.ErrEmptyToken.
func (s *Store) Token(account string) (string, error) {
	if tok := strings.TrimSpace(s.getenv(TokenEnv)); tok != "" {
		return tok, nil
	}

	item, err := s.ring.Get(tokenKey(account))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("no token stored for account %q: %w", account, webmail.ErrEmptyToken)
	}
	if err != nil {
		return "", fmt.Errorf("getting token for %q: %w", account, err)
	}

	tok := strings.TrimSpace(string(item.Data))
	if tok == "" {
		return "", fmt.Errorf("empty token stored for account %q: %w", account, webmail.ErrEmptyToken)
	}
	return tok, nil
}

// SetToken stores the bearer token for account
func (s *Store) SetToken(account, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return webmail.ErrEmptyToken
	}

	err := s.ring.Set(keyring.Item{
		Key:         tokenKey(account),
		Data:        []byte(token),
		Label:       "mailtui token (" + account + ")",
		Description: "webmail bearer token",
	})
	if err != nil {
		return fmt.Errorf("setting token for %q: %w", account, err)
	}
	return nil
}

// DeleteToken removes the stored token; deleting a missing token is not an error
func (s *Store) DeleteToken(account string) error {
	err := s.ring.Remove(tokenKey(account))
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting token for %q: %w", account, err)
	}
	return nil
}
