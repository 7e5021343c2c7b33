package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// InboxTypes lists the accepted mailbox.inbox_type values
var InboxTypes = []string{"default", "unread", "starred", "important", "priority"}

// Manager provides centralized configuration management with validation and watching
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	watchers []func(*Config)

	// File watching
	configPath   string
	lastModTime  time.Time
	watchCancel  context.CancelFunc
	watchRunning bool
}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{
		config:   DefaultConfig(),
		watchers: make([]func(*Config), 0),
	}
}

// LoadFromFile loads configuration from a file with validation
func (m *Manager) LoadFromFile(configPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	configPath = expandPath(configPath)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	applyDefaults(cfg)

	m.config = cfg
	m.configPath = configPath

	if stat, err := os.Stat(configPath); err == nil {
		m.lastModTime = stat.ModTime()
	}

	m.notifyWatchers(cfg)

	return nil
}

// LoadFromDefaults loads default configuration
func (m *Manager) LoadFromDefaults() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := DefaultConfig()
	applyDefaults(cfg)

	m.config = cfg
	m.configPath = ""
	m.lastModTime = time.Time{}

	m.notifyWatchers(cfg)
}

// GetConfig returns a copy of the current configuration
func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return copyConfig(m.config)
}

// ConfigPath returns the file the configuration was loaded from, if any
func (m *Manager) ConfigPath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.configPath
}

// UpdateConfig updates the configuration with validation
func (m *Manager) UpdateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cfg = copyConfig(cfg)
	applyDefaults(cfg)
	m.config = cfg

	m.notifyWatchers(cfg)

	return nil
}

// SetActiveAccount switches the active account by name
func (m *Manager) SetActiveAccount(name string) (*AccountConfig, error) {
	cfg := m.GetConfig()
	acc, ok := cfg.FindAccount(name)
	if !ok {
		return nil, fmt.Errorf("account %q not found", name)
	}
	cfg.ActiveAccount = acc.Name
	if err := m.UpdateConfig(cfg); err != nil {
		return nil, err
	}
	out := *acc
	return &out, nil
}

// SaveToFile saves the current configuration to a file
func (m *Manager) SaveToFile(filePath string) error {
	m.mu.RLock()
	cfg := copyConfig(m.config)
	m.mu.RUnlock()

	if err := cfg.SaveConfig(expandPath(filePath)); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// Watch starts watching the configuration file for changes
func (m *Manager) Watch(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.configPath == "" {
		return fmt.Errorf("no config file path set")
	}

	if m.watchRunning {
		return fmt.Errorf("already watching configuration file")
	}

	watchCtx, cancel := context.WithCancel(ctx)
	m.watchCancel = cancel
	m.watchRunning = true

	go m.watchConfigFile(watchCtx)

	return nil
}

// StopWatching stops watching the configuration file
func (m *Manager) StopWatching() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.watchCancel != nil {
		m.watchCancel()
		m.watchCancel = nil
	}
	m.watchRunning = false
}

// AddWatcher adds a configuration change watcher
func (m *Manager) AddWatcher(watcher func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.watchers = append(m.watchers, watcher)
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if cfg.API.BaseURL != "" {
		u, err := url.Parse(cfg.API.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid api base_url %q", cfg.API.BaseURL)
		}
	}

	if cfg.API.Timeout != "" {
		if _, err := time.ParseDuration(cfg.API.Timeout); err != nil {
			return fmt.Errorf("invalid api timeout: %w", err)
		}
	}

	if cfg.API.RequestsPerSecond < 0 || cfg.API.Burst < 0 {
		return fmt.Errorf("rate limits cannot be negative")
	}

	seen := make(map[string]bool, len(cfg.Accounts))
	for _, acc := range cfg.Accounts {
		if strings.TrimSpace(acc.Name) == "" {
			return fmt.Errorf("account name cannot be empty")
		}
		if strings.TrimSpace(acc.MailboxID) == "" {
			return fmt.Errorf("account %q has no mailbox_id", acc.Name)
		}
		if seen[acc.Name] {
			return fmt.Errorf("duplicate account %q", acc.Name)
		}
		seen[acc.Name] = true
	}

	if cfg.ActiveAccount != "" && !seen[cfg.ActiveAccount] {
		return fmt.Errorf("active_account %q is not configured", cfg.ActiveAccount)
	}

	if cfg.Mailbox.PageSize < 0 {
		return fmt.Errorf("page_size cannot be negative")
	}

	if cfg.Mailbox.InboxType != "" {
		valid := false
		for _, t := range InboxTypes {
			if cfg.Mailbox.InboxType == t {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("unknown inbox_type %q", cfg.Mailbox.InboxType)
		}
	}

	return nil
}

// applyDefaults applies default values for missing configuration
func applyDefaults(cfg *Config) {
	def := DefaultConfig()

	if cfg.Keys == (KeyBindings{}) {
		cfg.Keys = def.Keys
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = def.API.BaseURL
	}
	if cfg.API.Timeout == "" {
		cfg.API.Timeout = def.API.Timeout
	}
	if cfg.Mailbox.InboxType == "" {
		cfg.Mailbox.InboxType = def.Mailbox.InboxType
	}
	if cfg.Mailbox.PageSize == 0 {
		cfg.Mailbox.PageSize = def.Mailbox.PageSize
	}
	if cfg.Mailbox.DefaultCategory == "" {
		cfg.Mailbox.DefaultCategory = def.Mailbox.DefaultCategory
	}
	if cfg.Cache.MaxEntries <= 0 {
		cfg.Cache.MaxEntries = def.Cache.MaxEntries
	}
	if cfg.Theme == "" {
		cfg.Theme = def.Theme
	}
	if cfg.ActiveAccount == "" && len(cfg.Accounts) > 0 {
		cfg.ActiveAccount = cfg.Accounts[0].Name
	}
	cfg.LogFile = expandPath(cfg.LogFile)
	cfg.DatabasePath = expandPath(cfg.DatabasePath)
	cfg.ThemeDir = expandPath(cfg.ThemeDir)
}

// copyConfig creates a deep copy of the configuration
func copyConfig(cfg *Config) *Config {
	if cfg == nil {
		return nil
	}

	out := *cfg
	if cfg.Accounts != nil {
		out.Accounts = make([]AccountConfig, len(cfg.Accounts))
		copy(out.Accounts, cfg.Accounts)
	}
	return &out
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}

// notifyWatchers notifies all configuration watchers
func (m *Manager) notifyWatchers(cfg *Config) {
	for _, watcher := range m.watchers {
		go watcher(copyConfig(cfg))
	}
}

// watchConfigFile watches the configuration file for changes
func (m *Manager) watchConfigFile(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkConfigFileChanges()
		}
	}
}

// checkConfigFileChanges checks if the configuration file has changed
func (m *Manager) checkConfigFileChanges() {
	m.mu.RLock()
	configPath := m.configPath
	lastModTime := m.lastModTime
	m.mu.RUnlock()

	if configPath == "" {
		return
	}

	stat, err := os.Stat(configPath)
	if err != nil {
		return
	}

	if stat.ModTime().After(lastModTime) {
		_ = m.LoadFromFile(configPath)
	}
}
