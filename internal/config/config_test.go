package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:8080/api", cfg.API.BaseURL)
	assert.Equal(t, "default", cfg.Mailbox.InboxType)
	assert.Equal(t, 50, cfg.Mailbox.PageSize)
	assert.Equal(t, "inbox", cfg.Mailbox.DefaultCategory)
	assert.Equal(t, 256, cfg.Cache.MaxEntries)
	assert.Equal(t, DefaultThemeName, cfg.Theme)
	assert.NotEmpty(t, cfg.Keys.Compose)
	assert.Empty(t, cfg.Accounts)
}

func TestDefaultKeyBindings(t *testing.T) {
	keys := DefaultKeyBindings()

	assert.Equal(t, "c", keys.Compose)
	assert.Equal(t, "r", keys.Reply)
	assert.Equal(t, "s", keys.Star)
	assert.Equal(t, "a", keys.Archive)
	assert.Equal(t, "d", keys.Trash)
	assert.Equal(t, "/", keys.Search)
	assert.Equal(t, "l", keys.ManageLabels)
	assert.Equal(t, "space", keys.BulkSelect)
	assert.Equal(t, "q", keys.Quit)
}

func TestGetAPITimeout(t *testing.T) {
	tests := []struct {
		name     string
		timeout  string
		expected time.Duration
	}{
		{"valid_seconds", "10s", 10 * time.Second},
		{"valid_minutes", "2m", 2 * time.Minute},
		{"invalid_format", "soon", 30 * time.Second},
		{"negative", "-5s", 30 * time.Second},
		{"empty_string", "", 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{API: APIConfig{Timeout: tt.timeout}}
			assert.Equal(t, tt.expected, cfg.GetAPITimeout())
		})
	}
}

func TestGetActiveAccount(t *testing.T) {
	cfg := &Config{}
	_, err := cfg.GetActiveAccount()
	assert.Error(t, err)

	cfg.Accounts = []AccountConfig{
		{Name: "work", MailboxID: "box-w", Email: "me@work.test"},
		{Name: "home", MailboxID: "box-h", Email: "me@home.test"},
	}
	acc, err := cfg.GetActiveAccount()
	require.NoError(t, err)
	assert.Equal(t, "work", acc.Name)

	cfg.ActiveAccount = "home"
	acc, err = cfg.GetActiveAccount()
	require.NoError(t, err)
	assert.Equal(t, "box-h", acc.MailboxID)

	cfg.ActiveAccount = "gone"
	_, err = cfg.GetActiveAccount()
	assert.Error(t, err)
}

func TestDefaultPaths(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	assert.Equal(t, filepath.Join(home, ".config", "mailtui", "config.json"), DefaultConfigPath())
	assert.Equal(t, filepath.Join(home, ".config", "mailtui"), DefaultLogDir())
	assert.Equal(t, filepath.Join(home, ".config", "mailtui", "mailtui.sqlite3"), DefaultDatabasePath())
	assert.Equal(t, filepath.Join(home, ".config", "mailtui", "themes"), DefaultThemeDir())
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_NonExistentFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"api": {"base_url": "https://mail.example.test/api", "timeout": "5s"},
		"accounts": [{"name": "work", "mailbox_id": "box-1", "email": "me@example.test"}],
		"active_account": "work",
		"mailbox": {"inbox_type": "priority", "page_size": 25}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://mail.example.test/api", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.GetAPITimeout())
	assert.Equal(t, "priority", cfg.Mailbox.InboxType)
	assert.Equal(t, 25, cfg.Mailbox.PageSize)
	// Unset nested fields keep their defaults
	assert.Equal(t, "inbox", cfg.Mailbox.DefaultCategory)
	assert.Len(t, cfg.Accounts, 1)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	cfg, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.Accounts = []AccountConfig{{Name: "work", MailboxID: "box-1"}}

	require.NoError(t, cfg.SaveConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "accounts")
	assert.Contains(t, raw, "mailbox")

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad_url", func(c *Config) { c.API.BaseURL = "not a url" }, "base_url"},
		{"bad_timeout", func(c *Config) { c.API.Timeout = "later" }, "timeout"},
		{"negative_rate", func(c *Config) { c.API.RequestsPerSecond = -1 }, "negative"},
		{"unnamed_account", func(c *Config) { c.Accounts = []AccountConfig{{MailboxID: "b"}} }, "name cannot be empty"},
		{"missing_mailbox", func(c *Config) { c.Accounts = []AccountConfig{{Name: "a"}} }, "mailbox_id"},
		{"duplicate_account", func(c *Config) {
			c.Accounts = []AccountConfig{{Name: "a", MailboxID: "1"}, {Name: "a", MailboxID: "2"}}
		}, "duplicate"},
		{"unknown_active", func(c *Config) { c.ActiveAccount = "ghost" }, "not configured"},
		{"bad_inbox_type", func(c *Config) { c.Mailbox.InboxType = "newest" }, "inbox_type"},
		{"negative_page", func(c *Config) { c.Mailbox.PageSize = -1 }, "page_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestManager_LoadAndWatchers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"accounts":[{"name":"work","mailbox_id":"b1"}],"mailbox":{"page_size":0}}`), 0600))

	m := NewManager()
	changed := make(chan *Config, 1)
	m.AddWatcher(func(c *Config) { changed <- c })

	require.NoError(t, m.LoadFromFile(path))
	assert.Equal(t, path, m.ConfigPath())

	cfg := m.GetConfig()
	assert.Equal(t, "work", cfg.ActiveAccount)
	assert.Equal(t, 50, cfg.Mailbox.PageSize)

	select {
	case got := <-changed:
		assert.Equal(t, "work", got.ActiveAccount)
	case <-time.After(time.Second):
		t.Fatal("watcher not notified")
	}
}

func TestManager_GetConfigIsACopy(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.UpdateConfig(&Config{Accounts: []AccountConfig{{Name: "a", MailboxID: "1"}}}))

	cfg := m.GetConfig()
	cfg.Accounts[0].MailboxID = "changed"
	assert.Equal(t, "1", m.GetConfig().Accounts[0].MailboxID)
}

func TestManager_SetActiveAccount(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.UpdateConfig(&Config{Accounts: []AccountConfig{
		{Name: "work", MailboxID: "1"},
		{Name: "home", MailboxID: "2"},
	}}))

	acc, err := m.SetActiveAccount("home")
	require.NoError(t, err)
	assert.Equal(t, "2", acc.MailboxID)
	assert.Equal(t, "home", m.GetConfig().ActiveAccount)

	_, err = m.SetActiveAccount("ghost")
	assert.Error(t, err)
	assert.Equal(t, "home", m.GetConfig().ActiveAccount)
}

func TestManager_UpdateConfigRejectsInvalid(t *testing.T) {
	m := NewManager()
	assert.Error(t, m.UpdateConfig(nil))
	assert.Error(t, m.UpdateConfig(&Config{Mailbox: MailboxConfig{InboxType: "bogus"}}))
	assert.Equal(t, "default", m.GetConfig().Mailbox.InboxType)
}

func TestManager_WatchRequiresPath(t *testing.T) {
	m := NewManager()
	assert.Error(t, m.Watch(context.Background()))

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0600))
	require.NoError(t, m.LoadFromFile(path))

	require.NoError(t, m.Watch(context.Background()))
	assert.Error(t, m.Watch(context.Background()))
	m.StopWatching()
}

func TestThemeLoader_DefaultThemeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tl := NewThemeLoader(dir)

	require.NoError(t, tl.CreateDefaultTheme())
	names, err := tl.ListAvailableThemes()
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultThemeName}, names)

	theme, err := tl.LoadTheme(DefaultThemeName)
	require.NoError(t, err)
	assert.Equal(t, DefaultColors(), theme)
}

func TestThemeLoader_Errors(t *testing.T) {
	dir := t.TempDir()
	tl := NewThemeLoader(dir)

	_, err := tl.LoadTheme("absent")
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bare.yaml"), []byte("other: {}\n"), 0644))
	_, err = tl.LoadTheme("bare")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing mailTUI section")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "partial.yaml"), []byte("mailTUI:\n  body:\n    fgColor: \"#ffffff\"\n"), 0644))
	_, err = tl.LoadTheme("partial")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "body.bgColor")
}

func TestColor_String(t *testing.T) {
	assert.Equal(t, "#ff5555", NewColor("#ff5555").String())
	assert.Equal(t, "-", DefaultColor.String())
	assert.Equal(t, "-", Color("").String())
	assert.Equal(t, "#ff0000", NewColor("red").String())
}
