package tui

import (
	"fmt"
	"strings"

	"github.com/ajramos/mailtui/internal/services"
	"github.com/derailed/tview"
)

// statusBaseline is the idle status bar text
func (a *App) statusBaseline() string {
	parts := []string{"mailtui"}
	if acc := a.activeAccount(); acc != nil {
		if acc.Email != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", acc.Name, acc.Email))
		} else {
			parts = append(parts, acc.Name)
		}
	}
	if n := a.viewState.SelectionCount(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d selected", n))
	}
	if search := a.viewState.Search(); !search.IsEmpty() {
		parts = append(parts, "search: "+search.Raw)
	}
	help := a.Keys.Help
	if help == "" {
		help = "?"
	}
	parts = append(parts, help+" help", ": commands")
	return strings.Join(parts, " • ")
}

// refreshHeader renders the category bar with the active one highlighted
func (a *App) refreshHeader() {
	header, ok := a.views["header"].(*tview.TextView)
	if !ok {
		return
	}
	header.SetText(a.headerText())
}

func (a *App) headerText() string {
	current := a.viewState.Category()
	highlight := a.theme().Frame.Title.HighlightColor.String()
	a.mu.RLock()
	unread := a.unread
	a.mu.RUnlock()

	var b strings.Builder
	for _, c := range services.Categories {
		name := categoryTitle(c)
		if n := unread[c]; n > 0 {
			name = fmt.Sprintf("%s (%d)", name, n)
		}
		if c == current {
			fmt.Fprintf(&b, " [%s::b]%s[-::-] ", highlight, name)
		} else {
			fmt.Fprintf(&b, " %s ", name)
		}
	}
	if id, ok := current.LabelID(); ok {
		fmt.Fprintf(&b, " [%s::b]🏷 %s[-::-]", highlight, tview.Escape(a.labelName(id)))
	}
	return b.String()
}

// categoryTitle is the display name of a fixed category
func categoryTitle(c services.Category) string {
	switch c {
	case services.CategoryAllMails:
		return "All mail"
	case services.CategoryTasks:
		return "Tasks"
	}
	s := string(c)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// labelName resolves a label id against the loaded label list
func (a *App) labelName(id string) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, l := range a.labels {
		if l.ID == id {
			return l.Name
		}
	}
	return id
}

// listTitle is the list frame title: category, position and page
func (a *App) listTitle() string {
	a.mu.RLock()
	page := a.page
	a.mu.RUnlock()

	name := categoryTitle(a.viewState.Category())
	if id, ok := a.viewState.Category().LabelID(); ok {
		name = a.labelName(id)
	}
	if page == nil {
		return fmt.Sprintf(" 📧 %s ", name)
	}
	return fmt.Sprintf(" 📧 %s (%d) • page %d/%d ", name, page.Total, page.Page, max(page.PageCount, 1))
}
