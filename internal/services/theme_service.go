package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"github.com/ajramos/mailtui/internal/config"
)

// ThemeUpdateCallback represents a function that gets called when theme changes
type ThemeUpdateCallback func(*config.ColorsConfig) error

// ComponentRegistration represents a component that can receive theme updates
type ComponentRegistration struct {
	name     string
	callback ThemeUpdateCallback
}

// ThemeServiceImpl implements ThemeService
type ThemeServiceImpl struct {
	mu           sync.Mutex
	currentTheme string
	themesDir    string
	themeLoader  *config.ThemeLoader

	registeredComponents []ComponentRegistration
	currentThemeConfig   *config.ColorsConfig
}

// NewThemeService creates a new theme service reading YAML themes from themesDir
func NewThemeService(themesDir string) *ThemeServiceImpl {
	return &ThemeServiceImpl{
		currentTheme:       config.DefaultThemeName,
		themesDir:          themesDir,
		themeLoader:        config.NewThemeLoader(themesDir),
		currentThemeConfig: config.DefaultColors(),
	}
}

// ListAvailableThemes returns the built-in theme plus every YAML file in the themes directory
func (s *ThemeServiceImpl) ListAvailableThemes(ctx context.Context) ([]string, error) {
	themes := []string{config.DefaultThemeName}
	if s.themesDir == "" {
		return themes, nil
	}

	onDisk, err := s.themeLoader.ListAvailableThemes()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return themes, err
	}
	sort.Strings(onDisk)
	for _, name := range onDisk {
		if name != config.DefaultThemeName {
			themes = append(themes, name)
		}
	}
	return themes, nil
}

// GetCurrentTheme returns the name of the currently active theme
func (s *ThemeServiceImpl) GetCurrentTheme(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTheme, nil
}

// ApplyTheme loads the named theme and pushes it to every registered component
func (s *ThemeServiceImpl) ApplyTheme(ctx context.Context, name string) error {
	name = strings.TrimSuffix(strings.TrimSpace(name), ".yaml")
	if name == "" {
		return fmt.Errorf("%w: theme name cannot be empty", ErrInvalidInput)
	}

	themeConfig, err := s.loadThemeByName(name)
	if err != nil {
		return fmt.Errorf("failed to load theme '%s': %w", name, err)
	}

	s.mu.Lock()
	s.currentTheme = name
	s.currentThemeConfig = themeConfig
	components := append([]ComponentRegistration(nil), s.registeredComponents...)
	s.mu.Unlock()

	var errs []string
	for _, component := range components {
		if err := component.callback(themeConfig); err != nil {
			errs = append(errs, fmt.Sprintf("component '%s': %v", component.name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("theme update errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// RegisterComponent registers a component to receive theme updates and applies the current theme to it
func (s *ThemeServiceImpl) RegisterComponent(name string, callback ThemeUpdateCallback) error {
	s.mu.Lock()
	s.registeredComponents = append(s.registeredComponents, ComponentRegistration{name: name, callback: callback})
	current := s.currentThemeConfig
	s.mu.Unlock()

	if err := callback(current); err != nil {
		return fmt.Errorf("failed to apply current theme to component '%s': %w", name, err)
	}
	return nil
}

// UnregisterComponent removes a component from theme updates
func (s *ThemeServiceImpl) UnregisterComponent(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, component := range s.registeredComponents {
		if component.name == name {
			s.registeredComponents = append(s.registeredComponents[:i], s.registeredComponents[i+1:]...)
			break
		}
	}
}

// GetCurrentThemeConfig returns the currently loaded theme configuration
func (s *ThemeServiceImpl) GetCurrentThemeConfig() *config.ColorsConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentThemeConfig
}

// loadThemeByName prefers a file in the themes directory and falls back to the built-in default
func (s *ThemeServiceImpl) loadThemeByName(name string) (*config.ColorsConfig, error) {
	if s.themesDir != "" {
		theme, err := s.themeLoader.LoadTheme(name)
		if err == nil {
			return theme, nil
		}
		if name != config.DefaultThemeName {
			return nil, err
		}
	}
	if name == config.DefaultThemeName {
		return config.DefaultColors(), nil
	}
	return nil, fmt.Errorf("theme '%s' not found", name)
}
