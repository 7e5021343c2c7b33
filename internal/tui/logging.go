package tui

import (
	"log"
	"os"
	"path/filepath"

	"github.com/ajramos/mailtui/internal/config"
)

// initLogger opens the file logger at path, or ~/.config/mailtui/mailtui.log when empty
func (a *App) initLogger(path string) {
	if a.logger != nil && a.logFile != nil {
		return
	}
	if path == "" {
		dir := config.DefaultLogDir()
		if dir == "" {
			return
		}
		path = filepath.Join(dir, "mailtui.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	a.logFile = f
	a.logger = log.New(f, "[mailtui] ", log.LstdFlags|log.Lmicroseconds)
}

// closeLogger closes the log file if opened
func (a *App) closeLogger() {
	if a.logFile != nil {
		_ = a.logFile.Close()
		a.logFile = nil
	}
}
