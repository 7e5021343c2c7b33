package tui

import (
	"fmt"
	"strings"

	"github.com/ajramos/mailtui/internal/config"
	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
)

const themesPage = "themes"

// initTheme registers the main page with the theme service and loads name.
// An unknown theme leaves the built-in colors in place.
func (a *App) initTheme(name string) {
	err := a.themeService.RegisterComponent("main", func(colors *config.ColorsConfig) error {
		a.setColors(colors)
		return nil
	})
	if err != nil && a.logger != nil {
		a.logger.Printf("theme: register: %v", err)
	}
	if name == "" {
		return
	}
	if err := a.themeService.ApplyTheme(a.ctx, name); err != nil && a.logger != nil {
		a.logger.Printf("theme: %v; using %s", err, config.DefaultThemeName)
	}
}

// setColors swaps the active palette and repaints every widget that caches colors
func (a *App) setColors(colors *config.ColorsConfig) {
	if colors == nil {
		return
	}
	a.mu.Lock()
	a.currentTheme = colors
	a.mu.Unlock()

	a.applyColors(colors)
	if a.composer != nil {
		a.composer.UpdateTheme()
	}
	a.refreshHeader()
	a.renderList()
	if a.errorHandler != nil {
		a.errorHandler.RefreshBaseline()
	}
}

// applyTheme switches to a theme and stores the choice in the config file
func (a *App) applyTheme(name string) {
	name = strings.TrimSpace(name)
	if err := a.themeService.ApplyTheme(a.ctx, name); err != nil {
		a.errorHandler.ShowError(a.ctx, err.Error())
		return
	}
	if err := a.persistConfig(func(cfg *config.Config) { cfg.Theme = name }); err != nil {
		a.errorHandler.ShowWarning(a.ctx, fmt.Sprintf("Theme applied but not saved: %v", err))
		return
	}
	a.errorHandler.ShowSuccess(a.ctx, fmt.Sprintf("🎨 Theme %s", name))
}

// persistConfig edits the live configuration and writes it back when it came from a file
func (a *App) persistConfig(edit func(*config.Config)) error {
	cfg := a.config.GetConfig()
	edit(cfg)
	if err := a.config.UpdateConfig(cfg); err != nil {
		return err
	}
	if path := a.config.ConfigPath(); path != "" {
		return a.config.SaveToFile(path)
	}
	return nil
}

// showThemePicker lists the available themes. Moving the cursor previews a
// theme, Enter keeps it and Esc restores the previous one.
func (a *App) showThemePicker() {
	themes, err := a.themeService.ListAvailableThemes(a.ctx)
	if err != nil {
		// the built-in theme is still listed
		a.errorHandler.ShowWarning(a.ctx, fmt.Sprintf("Failed to read themes: %v", err))
	}
	original, _ := a.themeService.GetCurrentTheme(a.ctx)

	colors := a.theme()
	list := tview.NewList().ShowSecondaryText(false)
	list.SetBorder(true).SetTitle(" 🎨 Themes ").SetTitleAlign(tview.AlignCenter)
	list.SetBackgroundColor(colors.Body.BgColor.Color())
	list.SetMainTextColor(colors.Body.FgColor.Color())
	list.SetSelectedTextColor(colors.Body.BgColor.Color()).
		SetSelectedBackgroundColor(colors.Frame.Title.HighlightColor.Color())

	closePicker := func() {
		a.Pages.RemovePage(themesPage)
		a.setFocus("list")
	}
	for i, name := range themes {
		name := name
		mark := "○ "
		if name == original {
			mark = "✅ "
		}
		list.AddItem(mark+tview.Escape(name), "", 0, func() {
			closePicker()
			a.applyTheme(name)
		})
		if name == original {
			list.SetCurrentItem(i)
		}
	}
	list.SetChangedFunc(func(i int, _, _ string, _ rune) {
		if i >= 0 && i < len(themes) {
			if err := a.themeService.ApplyTheme(a.ctx, themes[i]); err != nil && a.logger != nil {
				a.logger.Printf("theme preview: %v", err)
			}
		}
	})
	list.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyEscape {
			closePicker()
			if err := a.themeService.ApplyTheme(a.ctx, original); err != nil && a.logger != nil {
				a.logger.Printf("theme restore: %v", err)
			}
			return nil
		}
		return ev
	})

	a.Pages.AddPage(themesPage, centered(list, 40, min(len(themes)+2, 20)), true, true)
	a.SetFocus(list)
}
