package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// APIConfig holds the webmail backend connection settings
type APIConfig struct {
	BaseURL           string  `json:"base_url"`
	Timeout           string  `json:"timeout"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	Burst             int     `json:"burst"`
}

// AccountConfig is one mailbox the user can switch to
type AccountConfig struct {
	Name      string `json:"name"`
	MailboxID string `json:"mailbox_id"`
	// Email is the address mail is received on; used to decide whether an
	// opened message was addressed to the current user
	Email string `json:"email"`
}

// MailboxConfig controls how message lists are built
type MailboxConfig struct {
	InboxType       string `json:"inbox_type"` // default, unread, starred, important, priority
	PageSize        int    `json:"page_size"`
	DefaultCategory string `json:"default_category"`
	// Threaded groups the list by conversation
	Threaded bool `json:"threaded"`
}

// CacheConfig bounds the in-memory query cache
type CacheConfig struct {
	MaxEntries int `json:"max_entries"`
}

// Config holds all configuration for the mail TUI
type Config struct {
	API APIConfig `json:"api"`

	Accounts      []AccountConfig `json:"accounts"`
	ActiveAccount string          `json:"active_account"`

	Mailbox MailboxConfig `json:"mailbox"`
	Cache   CacheConfig   `json:"cache"`

	// Keyboard shortcuts
	Keys KeyBindings `json:"keys"`

	// Theme name (file in ThemeDir without .yaml) and custom theme directory
	Theme    string `json:"theme"`
	ThemeDir string `json:"theme_dir"`

	LogFile      string `json:"log_file"`
	DatabasePath string `json:"database_path"`
}

// KeyBindings defines keyboard shortcuts for the TUI
type KeyBindings struct {
	// Message actions
	Compose    string `json:"compose"`
	Reply      string `json:"reply"`
	ReplyAll   string `json:"reply_all"`
	Forward    string `json:"forward"`
	ToggleRead string `json:"toggle_read"`
	Star       string `json:"star"`
	Archive    string `json:"archive"`
	Spam       string `json:"spam"`
	Trash      string `json:"trash"`
	Restore    string `json:"restore"`
	Mute       string `json:"mute"`
	Snooze     string `json:"snooze"`
	Task       string `json:"task"`
	Important  string `json:"important"`
	Block      string `json:"block"`
	Delete     string `json:"delete"` // Permanent delete, trash only

	// Navigation and views
	Refresh       string `json:"refresh"`
	Search        string `json:"search"`
	SavedSearches string `json:"saved_searches"`
	SaveSearch    string `json:"save_search"`
	ManageLabels  string `json:"manage_labels"`
	Categories    string `json:"categories"`
	Accounts      string `json:"accounts"`
	Settings      string `json:"settings"`
	Details       string `json:"details"`
	NextPage      string `json:"next_page"`
	PrevPage      string `json:"prev_page"`
	BulkSelect    string `json:"bulk_select"`
	Help          string `json:"help"`
	Quit          string `json:"quit"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API:     DefaultAPIConfig(),
		Mailbox: DefaultMailboxConfig(),
		Cache:   CacheConfig{MaxEntries: 256},
		Keys:    DefaultKeyBindings(),
		Theme:   "mail-dark",
		LogFile: "",
	}
}

// DefaultAPIConfig returns default backend settings
func DefaultAPIConfig() APIConfig {
	return APIConfig{
		BaseURL:           "http://localhost:8080/api",
		Timeout:           "30s",
		RequestsPerSecond: 10,
		Burst:             5,
	}
}

// DefaultMailboxConfig returns default list settings
func DefaultMailboxConfig() MailboxConfig {
	return MailboxConfig{
		InboxType:       "default",
		PageSize:        50,
		DefaultCategory: "inbox",
	}
}

// DefaultKeyBindings returns default keyboard shortcuts
func DefaultKeyBindings() KeyBindings {
	return KeyBindings{
		Compose:    "c",
		Reply:      "r",
		ReplyAll:   "E",
		Forward:    "f",
		ToggleRead: "t",
		Star:       "s",
		Archive:    "a",
		Spam:       "!",
		Trash:      "d",
		Restore:    "U",
		Mute:       "m",
		Snooze:     "z",
		Task:       "k",
		Important:  "i",
		Block:      "B",
		Delete:     "D",

		Refresh:       "R",
		Search:        "/",
		SavedSearches: "Q",
		SaveSearch:    "Z",
		ManageLabels:  "l",
		Categories:    "g",
		Accounts:      "A",
		Settings:      ",",
		Details:       "h",
		NextPage:      "n",
		PrevPage:      "p",
		BulkSelect:    "space",
		Help:          "?",
		Quit:          "q",
	}
}

// LoadConfig loads configuration from file; a missing file yields defaults
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	return cfg, nil
}

// DefaultConfigDir returns ~/.config/mailtui
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "mailtui")
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.json")
}

// DefaultLogDir returns the default log directory path
func DefaultLogDir() string {
	return DefaultConfigDir()
}

// DefaultDatabasePath returns the default sqlite path for saved searches
func DefaultDatabasePath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "mailtui.sqlite3")
}

// DefaultThemeDir returns the default themes directory
func DefaultThemeDir() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "themes")
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// GetAPITimeout returns the parsed HTTP timeout
func (c *Config) GetAPITimeout() time.Duration {
	if c.API.Timeout != "" {
		if d, err := time.ParseDuration(c.API.Timeout); err == nil && d > 0 {
			return d
		}
	}
	return 30 * time.Second
}

// FindAccount returns the account with the given name
func (c *Config) FindAccount(name string) (*AccountConfig, bool) {
	name = strings.TrimSpace(name)
	for i := range c.Accounts {
		if c.Accounts[i].Name == name {
			return &c.Accounts[i], true
		}
	}
	return nil, false
}

// GetActiveAccount returns the active account, falling back to the first configured one
func (c *Config) GetActiveAccount() (*AccountConfig, error) {
	if len(c.Accounts) == 0 {
		return nil, fmt.Errorf("no accounts configured")
	}
	if c.ActiveAccount == "" {
		return &c.Accounts[0], nil
	}
	acc, ok := c.FindAccount(c.ActiveAccount)
	if !ok {
		return nil, fmt.Errorf("active account %q not found", c.ActiveAccount)
	}
	return acc, nil
}
