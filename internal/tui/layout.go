package tui

import (
	"github.com/ajramos/mailtui/internal/config"
	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
)

// ForceFilledBorderFlex replaces a Flex's Box with a fresh one so its bordered
// background is filled like a Table's instead of hollow.
func ForceFilledBorderFlex(f *tview.Flex) {
	backgroundColor := f.GetBackgroundColor()
	borderColor := f.GetBorderColor()
	borderAttributes := f.GetBorderAttributes()
	title := f.GetTitle()

	f.Box = tview.NewBox()

	f.SetBackgroundColor(backgroundColor)
	f.SetBorder(true)
	f.SetBorderColor(borderColor)
	f.SetBorderAttributes(borderAttributes)
	f.SetTitle(title)
}

// initComponents creates the widgets of the main page
func (a *App) initComponents() {
	colors := a.theme()

	// Category bar
	header := tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	header.SetBorder(false)

	// Message list as a Table to support per-row colors
	list := tview.NewTable().SetSelectable(true, false)
	list.SetBorder(true).
		SetBorderAttributes(tcell.AttrBold).
		SetTitle(" 📧 Messages ").
		SetTitleAlign(tview.AlignCenter)
	list.SetSelectedFunc(func(row, _ int) { a.openRow(row) })

	// Conversation pane
	text := tview.NewTextView().SetDynamicColors(true).SetWrap(true).SetScrollable(true)
	text.SetBorder(false)

	textContainer := tview.NewFlex().SetDirection(tview.FlexRow)
	textContainer.SetBorder(true).
		SetBorderAttributes(tcell.AttrBold).
		SetTitle(" 📄 Conversation ").
		SetTitleAlign(tview.AlignCenter)
	ForceFilledBorderFlex(textContainer)
	textContainer.SetTitleAlign(tview.AlignCenter)
	textContainer.AddItem(text, 0, 1, false)

	// Labels contextual panel (hidden by default)
	labelList := tview.NewList().ShowSecondaryText(false)
	labelList.SetBorder(false)
	labelsFlex := tview.NewFlex().SetDirection(tview.FlexRow)
	labelsFlex.SetBorder(true).
		SetBorderAttributes(tcell.AttrBold).
		SetTitle(" 🏷️ Labels ").
		SetTitleAlign(tview.AlignCenter)
	ForceFilledBorderFlex(labelsFlex)
	labelsFlex.SetTitleAlign(tview.AlignCenter)
	labelsFlex.AddItem(labelList, 0, 1, true)

	// Command / search prompt (hidden by default)
	cmd := tview.NewInputField().SetLabel(": ")
	cmd.SetDoneFunc(a.onPromptDone)

	status := tview.NewTextView().SetDynamicColors(false).SetTextAlign(tview.AlignLeft)

	a.views["header"] = header
	a.views["list"] = list
	a.views["text"] = text
	a.views["textContainer"] = textContainer
	a.views["labels"] = labelsFlex
	a.views["labelList"] = labelList
	a.views["cmd"] = cmd
	a.views["status"] = status

	a.applyColors(colors)
}

// initViews assembles the main page
func (a *App) initViews() {
	content := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(a.views["textContainer"], 0, 1, false).
		AddItem(a.views["labels"], 0, 0, false)

	body := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.views["list"], 0, 2, true).
		AddItem(content, 0, 3, false)

	main := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.views["header"], 1, 0, false).
		AddItem(body, 0, 1, true).
		AddItem(a.views["cmd"], 0, 0, false).
		AddItem(a.views["status"], 1, 0, false)

	a.views["content"] = content
	a.views["main"] = main
	a.Pages.AddPage("main", main, true, true)
	a.composer = NewCompositionPanel(a)
	a.errorHandler.RefreshBaseline()
	a.refreshHeader()
}

// showLabelsPanel opens or closes the label column beside the conversation
func (a *App) showLabelsPanel(show bool) {
	content, ok := a.views["content"].(*tview.Flex)
	if !ok {
		return
	}
	a.labelsOpen = show
	if show {
		content.ResizeItem(a.views["labels"], 32, 0)
		a.setFocus("labels")
		return
	}
	content.ResizeItem(a.views["labels"], 0, 0)
	a.setFocus("list")
}

// showPrompt reveals the command line in the given mode
func (a *App) showPrompt(mode, label, initial string) {
	main, ok := a.views["main"].(*tview.Flex)
	cmd, ok2 := a.views["cmd"].(*tview.InputField)
	if !ok || !ok2 {
		return
	}
	a.cmdMode = mode
	cmd.SetLabel(label)
	cmd.SetText(initial)
	main.ResizeItem(cmd, 1, 0)
	a.SetFocus(cmd)
}

// hidePrompt collapses the command line and restores focus
func (a *App) hidePrompt() {
	main, ok := a.views["main"].(*tview.Flex)
	cmd, ok2 := a.views["cmd"].(*tview.InputField)
	if !ok || !ok2 {
		return
	}
	a.cmdMode = ""
	cmd.SetText("")
	main.ResizeItem(cmd, 0, 0)
	a.setFocus(a.currentFocus)
}

// setFocus moves focus to a named view and updates border highlights
func (a *App) setFocus(name string) {
	target := name
	if name == "labels" {
		target = "labelList"
	}
	p, ok := a.views[target]
	if !ok {
		return
	}
	a.currentFocus = name
	a.SetFocus(p)
	a.updateFocusIndicators(name)
}

// updateFocusIndicators highlights the border of the focused pane
func (a *App) updateFocusIndicators(focused string) {
	colors := a.theme()
	border := colors.Frame.Border.FgColor.Color()
	focus := colors.Frame.Border.FocusColor.Color()

	pick := func(name string) tcell.Color {
		if name == focused {
			return focus
		}
		return border
	}
	if list, ok := a.views["list"].(*tview.Table); ok {
		list.SetBorderColor(pick("list"))
	}
	if tc, ok := a.views["textContainer"].(*tview.Flex); ok {
		tc.SetBorderColor(pick("text"))
	}
	if lf, ok := a.views["labels"].(*tview.Flex); ok {
		lf.SetBorderColor(pick("labels"))
	}
}

// applyColors pushes a theme onto the global styles and every main-page widget
func (a *App) applyColors(colors *config.ColorsConfig) {
	bg := colors.Body.BgColor.Color()
	fg := colors.Body.FgColor.Color()
	title := colors.Frame.Title.FgColor.Color()

	tview.Styles.PrimitiveBackgroundColor = bg
	tview.Styles.PrimaryTextColor = fg
	tview.Styles.BorderColor = colors.Frame.Border.FgColor.Color()
	tview.Styles.FocusColor = colors.Frame.Border.FocusColor.Color()

	a.emailRenderer.UpdateFromConfig(colors)

	if header, ok := a.views["header"].(*tview.TextView); ok {
		header.SetBackgroundColor(bg)
		header.SetTextColor(fg)
	}
	if list, ok := a.views["list"].(*tview.Table); ok {
		list.SetBackgroundColor(colors.Table.BgColor.Color())
		list.SetTitleColor(title)
		list.SetSelectedStyle(tcell.StyleDefault.
			Foreground(colors.Table.BgColor.Color()).
			Background(colors.Email.SelectedColor.Color()))
	}
	if text, ok := a.views["text"].(*tview.TextView); ok {
		text.SetBackgroundColor(bg)
		text.SetTextColor(fg)
	}
	for _, name := range []string{"textContainer", "labels"} {
		if f, ok := a.views[name].(*tview.Flex); ok {
			f.SetBackgroundColor(bg)
			f.SetTitleColor(title)
		}
	}
	if l, ok := a.views["labelList"].(*tview.List); ok {
		l.SetBackgroundColor(bg)
		l.SetMainTextColor(fg)
		l.SetSelectedTextColor(bg).
			SetSelectedBackgroundColor(colors.Frame.Title.HighlightColor.Color())
	}
	if cmd, ok := a.views["cmd"].(*tview.InputField); ok {
		cmd.SetBackgroundColor(bg)
		cmd.SetFieldBackgroundColor(bg)
		cmd.SetFieldTextColor(fg)
		cmd.SetLabelColor(colors.Frame.Title.HighlightColor.Color())
	}
	if status, ok := a.views["status"].(*tview.TextView); ok {
		status.SetBackgroundColor(bg)
		status.SetTextColor(colors.Status.Info.Color())
	}
	a.updateFocusIndicators(a.currentFocus)
}
