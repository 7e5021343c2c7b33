package tui

import (
	"fmt"
	"strings"

	"github.com/ajramos/mailtui/internal/services"
	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
)

const savedQueriesPage = "saved_queries"

// filterQueries keeps the queries whose name, text or description contain filter
func filterQueries(queries []*services.SavedQueryInfo, filter string) []*services.SavedQueryInfo {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" {
		return queries
	}
	var out []*services.SavedQueryInfo
	for _, q := range queries {
		text := strings.ToLower(q.Name + " " + q.Query + " " + q.Description)
		if strings.Contains(text, filter) {
			out = append(out, q)
		}
	}
	return out
}

// showSavedQueries opens the saved search picker: type to filter, Enter or
// 1-9 to run, d to delete, Esc to close
func (a *App) showSavedQueries() {
	svc := a.queryService
	go func() {
		queries, err := svc.ListQueries(a.ctx, "")
		if err != nil {
			a.errorHandler.ShowError(a.ctx, fmt.Sprintf("Failed to load saved searches: %v", err))
			return
		}
		if len(queries) == 0 {
			a.errorHandler.ShowInfo(a.ctx, fmt.Sprintf("No saved searches. Save the current search with '%s'", a.Keys.SaveSearch))
			return
		}
		a.QueueUpdateDraw(func() { a.mountSavedQueries(queries) })
	}()
}

func (a *App) mountSavedQueries(all []*services.SavedQueryInfo) {
	colors := a.theme()
	input := tview.NewInputField().SetLabel("🔍 Filter: ")
	input.SetFieldBackgroundColor(colors.Table.BgColor.Color())
	input.SetFieldTextColor(colors.Body.FgColor.Color())
	input.SetLabelColor(colors.Frame.Title.HighlightColor.Color())
	input.SetBackgroundColor(colors.Body.BgColor.Color())

	list := tview.NewList().ShowSecondaryText(true)
	list.SetBackgroundColor(colors.Body.BgColor.Color())
	list.SetMainTextColor(colors.Body.FgColor.Color())
	list.SetSecondaryTextColor(colors.Email.ReadColor.Color())

	var visible []*services.SavedQueryInfo
	reload := func(filter string) {
		list.Clear()
		visible = filterQueries(all, filter)
		for i, q := range visible {
			q := q
			title := fmt.Sprintf("%d. 🔍 %s", i+1, q.Name)
			if q.UseCount > 0 {
				title += fmt.Sprintf(" (used %d times)", q.UseCount)
			}
			detail := q.Query
			if q.Category != "" {
				detail = q.Category + " • " + detail
			}
			list.AddItem(tview.Escape(title), tview.Escape(detail), 0, func() { a.executeSavedQuery(q) })
		}
	}

	input.SetChangedFunc(reload)
	input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEscape:
			a.closeSavedQueries()
		case tcell.KeyEnter:
			if len(visible) > 0 {
				a.executeSavedQuery(visible[0])
			}
		case tcell.KeyDown, tcell.KeyTab:
			a.SetFocus(list)
		}
	})
	list.SetInputCapture(func(e *tcell.EventKey) *tcell.EventKey {
		switch {
		case e.Key() == tcell.KeyEscape:
			a.closeSavedQueries()
			return nil
		case e.Key() == tcell.KeyUp && list.GetCurrentItem() == 0:
			a.SetFocus(input)
			return nil
		case e.Rune() >= '1' && e.Rune() <= '9':
			if n := int(e.Rune() - '0'); n <= len(visible) {
				a.executeSavedQuery(visible[n-1])
			}
			return nil
		case e.Rune() == 'd' || e.Rune() == 'D':
			if i := list.GetCurrentItem(); i >= 0 && i < len(visible) {
				q := visible[i]
				a.deleteSavedQuery(q.Name)
				for j, item := range all {
					if item.ID == q.ID {
						all = append(all[:j], all[j+1:]...)
						break
					}
				}
				reload(input.GetText())
			}
			return nil
		}
		return e
	})

	container := tview.NewFlex().SetDirection(tview.FlexRow)
	container.SetBorder(true).
		SetTitle(" 📚 Saved searches ").
		SetTitleAlign(tview.AlignCenter)
	container.SetBackgroundColor(colors.Body.BgColor.Color())
	container.SetBorderColor(colors.Frame.Border.FocusColor.Color())
	container.SetTitleColor(colors.Frame.Title.FgColor.Color())
	container.AddItem(input, 1, 0, true)
	container.AddItem(list, 0, 1, false)
	footer := tview.NewTextView().SetTextAlign(tview.AlignRight)
	footer.SetText(" Enter/1-9 run | d delete | Esc close ")
	footer.SetTextColor(colors.Email.ReadColor.Color())
	footer.SetBackgroundColor(colors.Body.BgColor.Color())
	container.AddItem(footer, 1, 0, false)

	reload("")
	a.Pages.AddPage(savedQueriesPage, centered(container, 70, 20), true, true)
	a.SetFocus(input)
}

func (a *App) closeSavedQueries() {
	a.Pages.RemovePage(savedQueriesPage)
	a.setFocus("list")
}

// executeSavedQuery switches to the query's category, searches and records the use
func (a *App) executeSavedQuery(q *services.SavedQueryInfo) {
	a.closeSavedQueries()
	svc := a.queryService
	go func() {
		if err := svc.RecordQueryUsage(a.ctx, q.ID); err != nil && a.logger != nil {
			a.logger.Printf("saved search: record usage of %d: %v", q.ID, err)
		}
	}()
	if c, err := services.ParseCategory(q.Category); err == nil && c != a.viewState.Category() {
		a.viewState.SetCategory(c)
		a.closeConversation()
		a.refreshHeader()
	}
	a.applySearch(q.Query)
}

// runSavedQuery runs a saved search by name
func (a *App) runSavedQuery(name string) {
	if strings.TrimSpace(name) == "" {
		a.showSavedQueries()
		return
	}
	svc := a.queryService
	go func() {
		q, err := svc.GetQuery(a.ctx, name)
		if err != nil {
			a.errorHandler.ShowError(a.ctx, fmt.Sprintf("Saved search %q: %v", name, err))
			return
		}
		a.QueueUpdateDraw(func() { a.executeSavedQuery(q) })
	}()
}

// promptSaveSearch asks for a name for the active search
func (a *App) promptSaveSearch() {
	search := a.viewState.Search()
	if search.IsEmpty() {
		a.errorHandler.ShowWarning(a.ctx, "No active search to save")
		return
	}
	a.showPrompt(promptSave, "💾 Save search as: ", a.queryService.GenerateQueryName(search.Raw))
}

// saveCurrentSearch stores the active search under name, or a generated one
func (a *App) saveCurrentSearch(name string) {
	search := a.viewState.Search()
	if search.IsEmpty() {
		a.errorHandler.ShowWarning(a.ctx, "No active search to save")
		return
	}
	svc := a.queryService
	if strings.TrimSpace(name) == "" {
		name = svc.GenerateQueryName(search.Raw)
	}
	category := string(a.viewState.Category())
	go func() {
		if err := svc.ValidateQueryName(a.ctx, name); err != nil {
			a.errorHandler.ShowError(a.ctx, err.Error())
			return
		}
		if _, err := svc.SaveQuery(a.ctx, name, search.Raw, category, ""); err != nil {
			a.errorHandler.ShowError(a.ctx, fmt.Sprintf("Failed to save search: %v", err))
			return
		}
		a.errorHandler.ShowSuccess(a.ctx, fmt.Sprintf("💾 Saved search %q", name))
	}()
}

// deleteSavedQuery removes a saved search by name
func (a *App) deleteSavedQuery(name string) {
	if strings.TrimSpace(name) == "" {
		a.errorHandler.ShowError(a.ctx, "Usage: unsave <name>")
		return
	}
	svc := a.queryService
	go func() {
		if err := svc.DeleteQueryByName(a.ctx, name); err != nil {
			a.errorHandler.ShowError(a.ctx, fmt.Sprintf("Failed to delete saved search: %v", err))
			return
		}
		a.errorHandler.ShowSuccess(a.ctx, fmt.Sprintf("Deleted saved search %q", name))
	}()
}
