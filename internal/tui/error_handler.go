package tui

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/ajramos/mailtui/internal/config"
	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
)

// LogLevel represents the severity of a message
type LogLevel int

const (
	LogLevelInfo LogLevel = iota
	LogLevelWarning
	LogLevelError
	LogLevelSuccess
)

// statusClearDelay is how long a toast stays in the status bar
const statusClearDelay = 5 * time.Second

// ErrorHandler reports outcomes in the status bar. It implements
// services.Notifier so coordinators can toast without knowing about tview.
type ErrorHandler struct {
	mu         sync.RWMutex
	app        *tview.Application
	statusView *tview.TextView
	logger     *log.Logger

	// baseline is shown when no toast or progress message is active
	baseline func() string
	// colors returns the active theme; nil falls back to the defaults
	colors func() *config.ColorsConfig

	currentStatus    string
	persistentStatus string
	statusTimer      *time.Timer
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(app *tview.Application, statusView *tview.TextView, logger *log.Logger) *ErrorHandler {
	return &ErrorHandler{
		app:        app,
		statusView: statusView,
		logger:     logger,
	}
}

// SetBaseline sets the provider of the idle status text
func (eh *ErrorHandler) SetBaseline(fn func() string) {
	eh.mu.Lock()
	eh.baseline = fn
	eh.mu.Unlock()
}

// SetColors sets the provider of theme colors
func (eh *ErrorHandler) SetColors(fn func() *config.ColorsConfig) {
	eh.mu.Lock()
	eh.colors = fn
	eh.mu.Unlock()
}

// HandleError logs err and shows userMsg
func (eh *ErrorHandler) HandleError(ctx context.Context, err error, userMsg string) {
	if err == nil {
		return
	}
	if eh.logger != nil {
		eh.logger.Printf("ERROR: %v", err)
	}
	if userMsg == "" {
		userMsg = "An error occurred"
	}
	eh.ShowMessage(ctx, userMsg, LogLevelError)
}

// ShowMessage displays a message that clears itself after a few seconds
func (eh *ErrorHandler) ShowMessage(ctx context.Context, msg string, level LogLevel) {
	if strings.TrimSpace(msg) == "" {
		return
	}
	if eh.logger != nil {
		eh.logger.Printf("%s: %s", eh.levelToString(level), msg)
	}

	formatted := eh.formatMessage(msg, level)
	eh.queue(func() { eh.updateStatusMessage(formatted, level) })
}

// ShowPersistentMessage shows a message that stays until cleared
func (eh *ErrorHandler) ShowPersistentMessage(ctx context.Context, msg string, level LogLevel) {
	formatted := eh.formatMessage(msg, level)
	eh.queue(func() { eh.updatePersistentStatus(formatted) })
}

// ClearPersistentMessage clears the persistent message
func (eh *ErrorHandler) ClearPersistentMessage() {
	eh.queue(func() { eh.updatePersistentStatus("") })
}

// RefreshBaseline redraws the status bar, picking up a changed baseline
func (eh *ErrorHandler) RefreshBaseline() {
	eh.queue(func() {
		eh.mu.Lock()
		defer eh.mu.Unlock()
		eh.refreshStatusDisplay()
	})
}

// queue runs fn on the UI goroutine, or inline when there is no application (tests)
func (eh *ErrorHandler) queue(fn func()) {
	if eh.app != nil {
		eh.app.QueueUpdateDraw(fn)
		return
	}
	fn()
}

func (eh *ErrorHandler) formatMessage(msg string, level LogLevel) string {
	var icon string
	switch level {
	case LogLevelInfo:
		icon = "ℹ️"
	case LogLevelWarning:
		icon = "⚠️"
	case LogLevelError:
		icon = "❌"
	case LogLevelSuccess:
		icon = "✅"
	default:
		icon = "•"
	}
	return fmt.Sprintf("%s %s", icon, msg)
}

func (eh *ErrorHandler) levelToString(level LogLevel) string {
	switch level {
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarning:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelSuccess:
		return "SUCCESS"
	default:
		return "UNKNOWN"
	}
}

// levelToColor maps a level onto the theme's status colors
func (eh *ErrorHandler) levelToColor(level LogLevel) tcell.Color {
	eh.mu.RLock()
	defer eh.mu.RUnlock()
	return statusColor(eh.themeLocked(), level)
}

func (eh *ErrorHandler) themeLocked() *config.ColorsConfig {
	if eh.colors != nil {
		if c := eh.colors(); c != nil {
			return c
		}
	}
	return config.DefaultColors()
}

func statusColor(colors *config.ColorsConfig, level LogLevel) tcell.Color {
	switch level {
	case LogLevelWarning:
		return colors.Status.Warning.Color()
	case LogLevelError:
		return colors.Status.Error.Color()
	case LogLevelSuccess:
		return colors.Status.Success.Color()
	default:
		return colors.Status.Info.Color()
	}
}

func (eh *ErrorHandler) updateStatusMessage(msg string, level LogLevel) {
	if eh.statusView == nil {
		return
	}
	eh.mu.Lock()
	defer eh.mu.Unlock()

	if eh.statusTimer != nil {
		eh.statusTimer.Stop()
	}
	eh.currentStatus = msg
	eh.statusView.SetTextColor(statusColor(eh.themeLocked(), level))
	eh.refreshStatusDisplay()

	expected := msg
	eh.statusTimer = time.AfterFunc(statusClearDelay, func() {
		eh.clearCurrentStatus(expected)
	})
}

// clearCurrentStatus clears the toast unless a newer one replaced it
func (eh *ErrorHandler) clearCurrentStatus(expected string) {
	eh.queue(func() {
		eh.mu.Lock()
		defer eh.mu.Unlock()
		if eh.currentStatus == expected {
			eh.currentStatus = ""
			eh.refreshStatusDisplay()
		}
	})
}

func (eh *ErrorHandler) updatePersistentStatus(msg string) {
	eh.mu.Lock()
	defer eh.mu.Unlock()
	eh.persistentStatus = msg
	eh.refreshStatusDisplay()
}

// refreshStatusDisplay shows the toast, else the progress message, else the baseline
func (eh *ErrorHandler) refreshStatusDisplay() {
	if eh.statusView == nil {
		return
	}
	switch {
	case eh.currentStatus != "":
		eh.statusView.SetText(eh.currentStatus)
	case eh.persistentStatus != "":
		eh.statusView.SetText(eh.persistentStatus)
	default:
		eh.statusView.SetText(eh.getBaselineStatus())
	}
}

func (eh *ErrorHandler) getBaselineStatus() string {
	if eh.baseline != nil {
		return eh.baseline()
	}
	return "mailtui • ? help • : commands"
}

// ShowInfo shows an info message
func (eh *ErrorHandler) ShowInfo(ctx context.Context, msg string) {
	eh.ShowMessage(ctx, msg, LogLevelInfo)
}

// ShowWarning shows a warning message
func (eh *ErrorHandler) ShowWarning(ctx context.Context, msg string) {
	eh.ShowMessage(ctx, msg, LogLevelWarning)
}

// ShowError shows an error message
func (eh *ErrorHandler) ShowError(ctx context.Context, msg string) {
	eh.ShowMessage(ctx, msg, LogLevelError)
}

// ShowSuccess shows a success message
func (eh *ErrorHandler) ShowSuccess(ctx context.Context, msg string) {
	eh.ShowMessage(ctx, msg, LogLevelSuccess)
}

// ShowAPIError reports a failed backend call
func (eh *ErrorHandler) ShowAPIError(ctx context.Context, operation string, err error) {
	eh.HandleError(ctx, err, fmt.Sprintf("%s failed: %v", operation, err))
}

// ShowProgress shows a progress message
func (eh *ErrorHandler) ShowProgress(ctx context.Context, msg string) {
	eh.ShowPersistentMessage(ctx, msg, LogLevelInfo)
}

// ClearProgress clears any progress message
func (eh *ErrorHandler) ClearProgress() {
	eh.ClearPersistentMessage()
}
