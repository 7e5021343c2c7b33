package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultThemeName is written to the themes directory on first run
const DefaultThemeName = "mail-dark"

// themeFile is the on-disk YAML layout
type themeFile struct {
	MailTUI *ColorsConfig `yaml:"mailTUI"`
}

// ThemeLoader handles loading and saving YAML themes
type ThemeLoader struct {
	themesDir string
}

// NewThemeLoader creates a new theme loader
func NewThemeLoader(themesDir string) *ThemeLoader {
	return &ThemeLoader{
		themesDir: themesDir,
	}
}

// LoadTheme loads a theme by name ("mail-dark") or file name ("mail-dark.yaml")
func (tl *ThemeLoader) LoadTheme(name string) (*ColorsConfig, error) {
	if !strings.HasSuffix(name, ".yaml") {
		name += ".yaml"
	}
	return tl.LoadThemeFromFile(name)
}

// LoadThemeFromFile loads a theme from a YAML file
func (tl *ThemeLoader) LoadThemeFromFile(filename string) (*ColorsConfig, error) {
	path := filepath.Join(tl.themesDir, filename)
	if !fileExists(path) {
		path = filename
		if !fileExists(path) {
			return nil, fmt.Errorf("theme file not found: %s", filename)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read theme file: %w", err)
	}

	var theme themeFile
	if err := yaml.Unmarshal(data, &theme); err != nil {
		return nil, fmt.Errorf("failed to parse theme file: %w", err)
	}

	if theme.MailTUI == nil {
		return nil, fmt.Errorf("invalid theme file: missing mailTUI section")
	}

	if err := tl.ValidateTheme(theme.MailTUI); err != nil {
		return nil, err
	}

	return theme.MailTUI, nil
}

// ListAvailableThemes returns theme names without extension
func (tl *ThemeLoader) ListAvailableThemes() ([]string, error) {
	var themes []string

	entries, err := os.ReadDir(tl.themesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read themes directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".yaml" {
			themes = append(themes, strings.TrimSuffix(entry.Name(), ".yaml"))
		}
	}

	return themes, nil
}

// SaveThemeToFile saves a theme configuration to a YAML file
func (tl *ThemeLoader) SaveThemeToFile(theme *ColorsConfig, filename string) error {
	if err := os.MkdirAll(tl.themesDir, 0755); err != nil {
		return fmt.Errorf("failed to create themes directory: %w", err)
	}

	data, err := yaml.Marshal(themeFile{MailTUI: theme})
	if err != nil {
		return fmt.Errorf("failed to marshal theme: %w", err)
	}

	if err := os.WriteFile(filepath.Join(tl.themesDir, filename), data, 0644); err != nil {
		return fmt.Errorf("failed to write theme file: %w", err)
	}

	return nil
}

// ValidateTheme checks the colors every view relies on
func (tl *ThemeLoader) ValidateTheme(theme *ColorsConfig) error {
	if theme == nil {
		return fmt.Errorf("theme is nil")
	}

	required := []struct {
		name  string
		color Color
	}{
		{"body.fgColor", theme.Body.FgColor},
		{"body.bgColor", theme.Body.BgColor},
		{"email.unreadColor", theme.Email.UnreadColor},
		{"email.readColor", theme.Email.ReadColor},
		{"status.error", theme.Status.Error},
	}

	for _, req := range required {
		if req.color == "" {
			return fmt.Errorf("missing required color: %s", req.name)
		}
	}

	return nil
}

// CreateDefaultTheme writes the default theme if none exists
func (tl *ThemeLoader) CreateDefaultTheme() error {
	name := DefaultThemeName + ".yaml"
	if fileExists(filepath.Join(tl.themesDir, name)) {
		return nil
	}
	return tl.SaveThemeToFile(DefaultColors(), name)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
