package tui

import (
	"fmt"

	"github.com/ajramos/mailtui/internal/services"
	"github.com/ajramos/mailtui/internal/webmail"
	"github.com/derailed/tview"
)

// flagOf reports whether a message already carries the flag an action sets
var flagOf = map[services.Action]func(*webmail.Message) bool{
	services.ActionStar:      func(m *webmail.Message) bool { return m.IsStarred },
	services.ActionArchive:   func(m *webmail.Message) bool { return m.IsArchived },
	services.ActionSpam:      func(m *webmail.Message) bool { return m.IsSpam },
	services.ActionTrash:     func(m *webmail.Message) bool { return m.IsTrash },
	services.ActionMute:      func(m *webmail.Message) bool { return m.IsMute },
	services.ActionSnooze:    func(m *webmail.Message) bool { return m.IsSnoozed },
	services.ActionTask:      func(m *webmail.Message) bool { return m.IsAddToTask },
	services.ActionImportant: func(m *webmail.Message) bool { return m.IsImportant },
	services.ActionBlock:     func(m *webmail.Message) bool { return m.IsBlocked },
	services.ActionRead:      func(m *webmail.Message) bool { return m.IsRead },
}

// toggledAction picks the direction of a toggle key: the inverse when every
// target already has the flag, the action itself otherwise
func toggledAction(base services.Action, msgs []*webmail.Message) services.Action {
	has, ok := flagOf[base]
	if !ok || len(msgs) == 0 {
		return base
	}
	for _, m := range msgs {
		if m == nil || !has(m) {
			return base
		}
	}
	return base.Inverse()
}

// pageMessages lists the primary message of every row on the page
func (a *App) pageMessages() []*webmail.Message {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*webmail.Message, 0, len(a.rows))
	for _, r := range a.rows {
		if m := r.primary(); m != nil {
			out = append(out, m)
		}
	}
	return out
}

// toggleAction runs a toggle key against the bulk selection, or the current message
func (a *App) toggleAction(base services.Action) {
	if !a.ready() {
		return
	}
	if selected := a.viewState.SelectedMessages(a.pageMessages()); len(selected) > 0 {
		a.bulkAction(toggledAction(base, selected), selected)
		return
	}
	m := a.currentMessage()
	if m == nil {
		a.errorHandler.ShowWarning(a.ctx, "No message selected")
		return
	}
	a.applyAction(toggledAction(base, []*webmail.Message{m}), m)
}

// runAction applies a fixed action, e.g. restore, without toggling
func (a *App) runAction(action services.Action) {
	if !a.ready() {
		return
	}
	if selected := a.viewState.SelectedMessages(a.pageMessages()); len(selected) > 0 {
		a.bulkAction(action, selected)
		return
	}
	m := a.currentMessage()
	if m == nil {
		a.errorHandler.ShowWarning(a.ctx, "No message selected")
		return
	}
	a.applyAction(action, m)
}

// mutationRequest builds the request for one message from the current view.
// From the list a threaded view acts on the whole conversation; from the
// conversation pane only the message under the cursor is touched.
func (a *App) mutationRequest(action services.Action, m *webmail.Message) services.MutationRequest {
	labelID, _ := a.viewState.Category().LabelID()
	req := services.MutationRequest{
		MailboxID:     a.viewState.MailboxID(),
		Action:        action,
		Message:       m,
		ApplyToThread: a.viewState.Threaded() && a.currentFocus != "text",
		LabelID:       labelID,
	}
	a.mu.RLock()
	if a.currentFocus == "text" && a.openThreadID != "" {
		req.ThreadID = a.openThreadID
	}
	a.mu.RUnlock()
	return req
}

// applyAction mutates one message; failures are toasted by the service
func (a *App) applyAction(action services.Action, m *webmail.Message) {
	req := a.mutationRequest(action, m)
	svc := a.mutationService
	go func() {
		var err error
		if action == services.ActionStar || action == services.ActionUnstar {
			_, err = svc.ToggleStar(a.ctx, req)
		} else {
			_, err = svc.Apply(a.ctx, req)
		}
		if err != nil {
			if services.IsValidationError(err) {
				a.errorHandler.ShowError(a.ctx, err.Error())
			}
			return
		}
		a.errorHandler.ShowSuccess(a.ctx, action.Verb())
	}()
}

// bulkAction mutates every selected message and clears the selection on success
func (a *App) bulkAction(action services.Action, msgs []*webmail.Message) {
	labelID, _ := a.viewState.Category().LabelID()
	req := services.BulkRequest{
		MailboxID:     a.viewState.MailboxID(),
		Action:        action,
		Messages:      msgs,
		ApplyToThread: a.viewState.Threaded(),
		LabelID:       labelID,
	}
	svc := a.mutationService
	a.errorHandler.ShowProgress(a.ctx, fmt.Sprintf("%s: %d messages…", action.Verb(), len(msgs)))
	go func() {
		_, err := svc.Bulk(a.ctx, req)
		a.errorHandler.ClearProgress()
		if err != nil {
			return
		}
		a.viewState.ClearSelection()
		a.QueueUpdateDraw(func() {
			a.renderList()
			a.errorHandler.RefreshBaseline()
		})
	}()
}

// confirmPermanentDelete asks before deleting the current message for good; trash only
func (a *App) confirmPermanentDelete() {
	if !a.ready() {
		return
	}
	if a.viewState.Category() != services.CategoryTrash {
		a.errorHandler.ShowWarning(a.ctx, "Permanent delete is only available in Trash")
		return
	}
	m := a.currentMessage()
	if m == nil {
		a.errorHandler.ShowWarning(a.ctx, "No message selected")
		return
	}

	subject := m.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	modal := tview.NewModal().
		SetText(fmt.Sprintf("Delete %q permanently?\nThis cannot be undone.", subject)).
		AddButtons([]string{"Delete", "Cancel"}).
		SetDoneFunc(func(_ int, label string) {
			a.Pages.RemovePage("confirm")
			a.setFocus(a.currentFocus)
			if label != "Delete" {
				return
			}
			mailboxID := a.viewState.MailboxID()
			svc := a.mutationService
			go func() {
				err := svc.PermanentlyDelete(a.ctx, mailboxID, m)
				if err != nil && services.IsValidationError(err) {
					// rejected before any request; the service only toasts backend failures
					a.errorHandler.ShowError(a.ctx, "Cannot delete: "+err.Error())
				}
			}()
		})
	a.Pages.AddPage("confirm", modal, true, true)
	a.SetFocus(modal)
}
