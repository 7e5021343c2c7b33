package tui

import (
	"fmt"
	"strings"

	"github.com/ajramos/mailtui/internal/events"
	"github.com/ajramos/mailtui/internal/services"
	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
)

// composePage is the page name of the composer
const composePage = "compose"

// CompositionPanel is the compose form: recipient and subject fields above a multiline body
type CompositionPanel struct {
	*tview.Flex
	app *App

	headerSection *tview.Form
	bodySection   *EditableTextView
	hintTextView  *tview.TextView

	toField      *tview.InputField
	ccField      *tview.InputField
	subjectField *tview.InputField

	composition       *services.Composition
	isVisible         bool
	sending           bool
	currentFocusIndex int
	focusableItems    []tview.Primitive
}

// NewCompositionPanel creates the composer; it is mounted by Show
func NewCompositionPanel(app *App) *CompositionPanel {
	panel := &CompositionPanel{
		Flex: tview.NewFlex(),
		app:  app,
	}
	panel.createComponents()
	panel.setupLayout()
	panel.setupInputHandling()
	return panel
}

func (c *CompositionPanel) createComponents() {
	c.headerSection = tview.NewForm()
	c.headerSection.SetBorder(false)

	c.toField = tview.NewInputField().SetLabel("To: ")
	c.ccField = tview.NewInputField().SetLabel("Cc: ")
	c.subjectField = tview.NewInputField().SetLabel("Subject: ")
	c.headerSection.AddFormItem(c.toField)
	c.headerSection.AddFormItem(c.ccField)
	c.headerSection.AddFormItem(c.subjectField)

	c.bodySection = NewEditableTextView()
	c.bodySection.SetBorder(true)
	c.bodySection.SetTitle(" Message ")

	c.hintTextView = tview.NewTextView().SetDynamicColors(true).SetTextAlign(tview.AlignCenter)
	c.hintTextView.SetText("Tab next field • Ctrl+J send • Ctrl+S save draft • Esc cancel")

	c.focusableItems = []tview.Primitive{c.toField, c.ccField, c.subjectField, c.bodySection}
	c.UpdateTheme()
}

func (c *CompositionPanel) setupLayout() {
	c.SetDirection(tview.FlexRow)
	c.SetBorder(true).
		SetBorderAttributes(tcell.AttrBold).
		SetTitleAlign(tview.AlignCenter)
	c.AddItem(c.headerSection, 7, 0, false)
	c.AddItem(c.bodySection, 0, 1, false)
	c.AddItem(c.hintTextView, 1, 0, false)
}

func (c *CompositionPanel) setupInputHandling() {
	c.Flex.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEscape:
			c.hide()
			return nil
		case tcell.KeyTab:
			c.focusNext()
			return nil
		case tcell.KeyBacktab:
			c.focusPrevious()
			return nil
		case tcell.KeyCtrlJ:
			c.sendComposition()
			return nil
		case tcell.KeyCtrlS:
			c.saveDraft()
			return nil
		}
		return event
	})
}

// Show opens the composer prefilled for mode from the request's message
func (c *CompositionPanel) Show(req events.ComposeRequested) {
	svc := c.app.compositionService
	if svc == nil {
		c.app.errorHandler.ShowWarning(c.app.ctx, "Not connected; cannot compose")
		return
	}
	c.loadComposition(svc.NewDraft(req.Mode, req.Message))
	c.isVisible = true
	c.sending = false
	c.SetTitle(composeTitle(req.Mode))
	c.UpdateTheme()

	c.app.Pages.AddPage(composePage, c, true, true)
	c.currentFocusIndex = 0
	if req.Mode == services.ComposeReply || req.Mode == services.ComposeReplyAll {
		// recipients and subject are prefilled; start in the body
		c.currentFocusIndex = len(c.focusableItems) - 1
	}
	c.focusCurrent()
}

func composeTitle(mode services.ComposeMode) string {
	switch mode {
	case services.ComposeReply:
		return " ↩ Reply "
	case services.ComposeReplyAll:
		return " ↩ Reply all "
	case services.ComposeForward:
		return " ➡ Forward "
	}
	return " ✉ New message "
}

func (c *CompositionPanel) loadComposition(composition *services.Composition) {
	c.composition = composition
	c.toField.SetText(strings.Join(composition.To, ", "))
	c.ccField.SetText(strings.Join(composition.Cc, ", "))
	c.subjectField.SetText(composition.Subject)
	c.bodySection.SetText(composition.Body)
}

// updateCompositionFromForm copies the field values into the draft
func (c *CompositionPanel) updateCompositionFromForm() {
	if c.composition == nil {
		return
	}
	c.composition.To = services.ParseRecipients(c.toField.GetText())
	c.composition.Cc = services.ParseRecipients(c.ccField.GetText())
	c.composition.Subject = c.subjectField.GetText()
	c.composition.Body = c.bodySection.GetText()
}

func (c *CompositionPanel) sendComposition() {
	if c.composition == nil || c.sending {
		return
	}
	c.updateCompositionFromForm()

	svc := c.app.compositionService
	if errs := svc.Validate(c.composition); len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, e.Error())
		}
		c.app.errorHandler.ShowError(c.app.ctx, strings.Join(msgs, "; "))
		return
	}

	c.sending = true
	composition := c.composition
	mailboxID := c.app.viewState.MailboxID()
	c.app.errorHandler.ShowProgress(c.app.ctx, "Sending email…")
	go func() {
		err := svc.Send(c.app.ctx, mailboxID, composition)
		c.app.errorHandler.ClearProgress()
		if err != nil {
			c.app.QueueUpdateDraw(func() { c.sending = false })
			c.app.errorHandler.ShowError(c.app.ctx, fmt.Sprintf("Failed to send email: %v", err))
			return
		}
		n := len(composition.To) + len(composition.Cc)
		c.app.errorHandler.ShowSuccess(c.app.ctx, fmt.Sprintf("Email sent to %d recipient(s)", n))
		c.app.QueueUpdateDraw(c.hide)
	}()
}

func (c *CompositionPanel) saveDraft() {
	if c.composition == nil || c.sending {
		return
	}
	c.updateCompositionFromForm()

	svc := c.app.compositionService
	composition := c.composition
	mailboxID := c.app.viewState.MailboxID()
	c.app.errorHandler.ShowProgress(c.app.ctx, "Saving draft…")
	go func() {
		err := svc.SaveDraft(c.app.ctx, mailboxID, composition)
		c.app.errorHandler.ClearProgress()
		if err != nil {
			c.app.errorHandler.ShowError(c.app.ctx, fmt.Sprintf("Failed to save draft: %v", err))
			return
		}
		c.app.errorHandler.ShowSuccess(c.app.ctx, "Draft saved")
		c.app.QueueUpdateDraw(c.hide)
	}()
}

// hide unmounts the composer and returns focus to the mailbox
func (c *CompositionPanel) hide() {
	c.isVisible = false
	c.sending = false
	c.composition = nil
	c.currentFocusIndex = 0

	c.toField.SetText("")
	c.ccField.SetText("")
	c.subjectField.SetText("")
	c.bodySection.SetText("")

	c.app.Pages.RemovePage(composePage)
	c.app.Pages.SwitchToPage("main")
	c.app.setFocus("list")
}

// IsVisible reports whether the composer is mounted
func (c *CompositionPanel) IsVisible() bool {
	return c.isVisible
}

func (c *CompositionPanel) focusNext() {
	c.currentFocusIndex = (c.currentFocusIndex + 1) % len(c.focusableItems)
	c.focusCurrent()
}

func (c *CompositionPanel) focusPrevious() {
	c.currentFocusIndex = (c.currentFocusIndex - 1 + len(c.focusableItems)) % len(c.focusableItems)
	c.focusCurrent()
}

func (c *CompositionPanel) focusCurrent() {
	if c.currentFocusIndex >= 0 && c.currentFocusIndex < len(c.focusableItems) {
		c.app.SetFocus(c.focusableItems[c.currentFocusIndex])
	}
}

// UpdateTheme applies the active theme colors
func (c *CompositionPanel) UpdateTheme() {
	colors := c.app.theme()
	bg := colors.Body.BgColor.Color()
	fg := colors.Body.FgColor.Color()
	label := colors.Frame.Title.HighlightColor.Color()

	c.SetBackgroundColor(bg)
	c.SetBorderColor(colors.Frame.Border.FocusColor.Color())
	c.SetTitleColor(colors.Frame.Title.FgColor.Color())

	c.headerSection.SetBackgroundColor(bg)
	for _, f := range []*tview.InputField{c.toField, c.ccField, c.subjectField} {
		f.SetBackgroundColor(bg)
		f.SetFieldBackgroundColor(colors.Table.BgColor.Color())
		f.SetFieldTextColor(fg)
		f.SetLabelColor(label)
	}
	c.bodySection.SetColors(fg, bg, colors.Frame.Border.FgColor.Color())
	c.hintTextView.SetBackgroundColor(bg)
	c.hintTextView.SetTextColor(colors.Email.ReadColor.Color())
}
