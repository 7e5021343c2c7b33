package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ajramos/mailtui/internal/services"
	"github.com/ajramos/mailtui/internal/webmail"
	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
)

// loadLabels refreshes the mailbox label list shown in the header and pickers
func (a *App) loadLabels() {
	a.mu.RLock()
	svc := a.labelService
	a.mu.RUnlock()
	if svc == nil {
		return
	}
	labels, err := svc.ListLabels(a.ctx, a.viewState.MailboxID())
	if err != nil {
		if a.ctx.Err() == nil && a.logger != nil {
			a.logger.Printf("labels: %v", err)
		}
		return
	}
	labels = sortLabels(labels)
	a.QueueUpdateDraw(func() {
		a.mu.Lock()
		a.labels = labels
		a.mu.Unlock()
		a.refreshHeader()
		if list, ok := a.views["list"].(*tview.Table); ok {
			list.SetTitle(a.listTitle())
		}
	})
}

// sortLabels orders visible labels by name, case-insensitively
func sortLabels(labels []*webmail.Label) []*webmail.Label {
	out := make([]*webmail.Label, 0, len(labels))
	for _, l := range labels {
		if l != nil && l.ID != "" {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// manageLabels opens the label panel for the current message
func (a *App) manageLabels() {
	if !a.ready() {
		return
	}
	if a.labelsOpen {
		a.closeLabelsPanel()
		return
	}
	m := a.currentMessage()
	if m == nil {
		a.errorHandler.ShowWarning(a.ctx, "No message selected")
		return
	}
	svc := a.labelService
	mailboxID := a.viewState.MailboxID()
	a.errorHandler.ShowProgress(a.ctx, "Loading labels…")
	go func() {
		menu, err := svc.OpenMenu(a.ctx, mailboxID, m)
		a.errorHandler.ClearProgress()
		if err != nil {
			a.errorHandler.ShowAPIError(a.ctx, "Loading labels", err)
			return
		}
		a.QueueUpdateDraw(func() {
			a.mu.Lock()
			a.labelMenu = menu
			a.mu.Unlock()
			a.renderLabelMenu(0)
			a.showLabelsPanel(true)
		})
	}()
}

// closeLabelsPanel hides the panel and forgets the menu
func (a *App) closeLabelsPanel() {
	a.mu.Lock()
	a.labelMenu = nil
	a.mu.Unlock()
	a.showLabelsPanel(false)
}

// renderLabelMenu lists every label with its assignment mark, then a create entry
func (a *App) renderLabelMenu(current int) {
	list, ok := a.views["labelList"].(*tview.List)
	if !ok {
		return
	}
	a.mu.RLock()
	menu := a.labelMenu
	a.mu.RUnlock()
	list.Clear()
	if menu == nil {
		return
	}

	labels := sortLabels(menu.Labels())
	for _, l := range labels {
		mark := "○ "
		if menu.IsAssigned(l.ID) {
			mark = "✓ "
		}
		id := l.ID
		list.AddItem(mark+tview.Escape(l.Name), "", 0, func() {
			a.toggleMenuLabel(id, list.GetCurrentItem())
		})
	}
	list.AddItem("+ New label", "", 0, func() {
		a.showPrompt(promptLabel, "🏷 New label: ", "")
	})
	if current >= 0 && current < list.GetItemCount() {
		list.SetCurrentItem(current)
	}
}

// toggleMenuLabel flips one label on the open menu's message
func (a *App) toggleMenuLabel(labelID string, cursor int) {
	a.mu.RLock()
	menu := a.labelMenu
	a.mu.RUnlock()
	if menu == nil {
		return
	}
	assign, err := menu.Flip(labelID)
	if err != nil {
		a.errorHandler.ShowError(a.ctx, err.Error())
		return
	}
	a.renderLabelMenu(cursor)
	go func() {
		if err := menu.Confirm(a.ctx, labelID, assign); err != nil {
			// restore the server's assignment before redrawing
			_ = menu.Refresh(a.ctx)
		}
		a.QueueUpdateDraw(func() { a.renderLabelMenu(cursor) })
	}()
}

// createLabel adds a label to the mailbox and, with the panel open, assigns it
func (a *App) createLabel(name string) {
	if !a.ready() {
		return
	}
	name = strings.TrimSpace(name)
	svc := a.labelService
	mailboxID := a.viewState.MailboxID()
	a.mu.RLock()
	menu := a.labelMenu
	a.mu.RUnlock()

	go func() {
		label, err := svc.CreateLabel(a.ctx, mailboxID, webmail.NewLabel{
			Name:              name,
			IsVisible:         true,
			ShowInMessageList: true,
		})
		if err != nil {
			if services.IsValidationError(err) {
				a.errorHandler.ShowError(a.ctx, err.Error())
			} else {
				a.errorHandler.HandleError(a.ctx, err, fmt.Sprintf("Failed to create label %q", name))
			}
			return
		}
		a.errorHandler.ShowSuccess(a.ctx, fmt.Sprintf("Label %q created", label.Name))
		if menu == nil {
			return
		}
		menu, err = svc.OpenMenu(a.ctx, mailboxID, a.messageOf(menu.Ref()))
		if err != nil {
			return
		}
		if err := menu.Toggle(a.ctx, label.ID); err != nil {
			_ = menu.Refresh(a.ctx)
		}
		a.QueueUpdateDraw(func() {
			a.mu.Lock()
			a.labelMenu = menu
			a.mu.Unlock()
			a.renderLabelMenu(0)
		})
	}()
}

// messageOf finds a loaded message by ref, in the open conversation or on the page
func (a *App) messageOf(ref webmail.MessageRef) *webmail.Message {
	a.mu.RLock()
	tv := a.threadView
	a.mu.RUnlock()
	if tv != nil {
		for _, m := range tv.Thread().Messages {
			if m.Ref() == ref {
				return m
			}
		}
	}
	for _, m := range a.pageMessages() {
		if m.Ref() == ref {
			return m
		}
	}
	return &webmail.Message{EmailUniqueID: refID(ref, webmail.RefReceived), SendmailID: refID(ref, webmail.RefSent)}
}

func refID(ref webmail.MessageRef, kind webmail.RefKind) string {
	if ref.Kind == kind {
		return ref.ID
	}
	return ""
}

// labelsInput handles keys while the label panel has focus
func (a *App) labelsInput(ev *tcell.EventKey) *tcell.EventKey {
	if ev.Key() == tcell.KeyEscape || (ev.Key() == tcell.KeyRune && keyMatches(ev, a.Keys.ManageLabels)) {
		a.closeLabelsPanel()
		return nil
	}
	return ev
}

// showCategoryPicker lists fixed categories and labels; choosing one switches the view
func (a *App) showCategoryPicker() {
	list := tview.NewList().ShowSecondaryText(false)
	list.SetBorder(true).SetTitle(" 📂 Go to ").SetTitleAlign(tview.AlignCenter)
	colors := a.theme()
	list.SetBackgroundColor(colors.Body.BgColor.Color())
	list.SetMainTextColor(colors.Body.FgColor.Color())
	list.SetSelectedTextColor(colors.Body.BgColor.Color()).
		SetSelectedBackgroundColor(colors.Frame.Title.HighlightColor.Color())

	closePicker := func() {
		a.Pages.RemovePage("categories")
		a.setFocus("list")
	}

	current := a.viewState.Category()
	for i, c := range services.Categories {
		c := c
		list.AddItem(categoryTitle(c), "", 0, func() {
			closePicker()
			a.changeCategory(c)
		})
		if c == current {
			list.SetCurrentItem(i)
		}
	}
	a.mu.RLock()
	labels := a.labels
	a.mu.RUnlock()
	for _, l := range labels {
		c := services.LabelCategory(l.ID)
		list.AddItem("🏷 "+tview.Escape(l.Name), "", 0, func() {
			closePicker()
			a.changeCategory(c)
		})
	}
	list.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyEscape {
			closePicker()
			return nil
		}
		return ev
	})

	a.Pages.AddPage("categories", centered(list, 40, min(list.GetItemCount()+2, 24)), true, true)
	a.SetFocus(list)
}

// centered wraps p in a fixed size box in the middle of the screen
func centered(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 0, true).
			AddItem(nil, 0, 1, false), width, 0, true).
		AddItem(nil, 0, 1, false)
}
