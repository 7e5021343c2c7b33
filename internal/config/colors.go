package config

import (
	"fmt"

	"github.com/derailed/tcell/v2"
)

// Color represents a color in the application
type Color string

const (
	// DefaultColor represents a default color
	DefaultColor Color = "default"

	// TransparentColor represents the terminal bg color
	TransparentColor Color = "-"
)

// NewColor returns a new color
func NewColor(c string) Color {
	return Color(c)
}

// String returns color as a tview color tag value
func (c Color) String() string {
	if c.isHex() {
		return string(c)
	}
	if c == DefaultColor || c == TransparentColor || c == "" {
		return "-"
	}
	col := c.Color().TrueColor().Hex()
	if col < 0 {
		return "-"
	}
	return fmt.Sprintf("#%06x", col)
}

func (c Color) isHex() bool {
	return len(c) == 7 && c[0] == '#'
}

// Color returns a view color
func (c Color) Color() tcell.Color {
	if c == DefaultColor || c == TransparentColor || c == "" {
		return tcell.ColorDefault
	}
	return tcell.GetColor(string(c)).TrueColor()
}

// EmailColors defines colors for message rows by state
type EmailColors struct {
	UnreadColor    Color `yaml:"unreadColor"`
	ReadColor      Color `yaml:"readColor"`
	StarredColor   Color `yaml:"starredColor"`
	ImportantColor Color `yaml:"importantColor"`
	SentColor      Color `yaml:"sentColor"`
	DraftColor     Color `yaml:"draftColor"`
	SelectedColor  Color `yaml:"selectedColor"`
}

// BorderColors defines frame border colors
type BorderColors struct {
	FgColor    Color `yaml:"fgColor"`
	FocusColor Color `yaml:"focusColor"`
}

// TitleColors defines frame title colors
type TitleColors struct {
	FgColor        Color `yaml:"fgColor"`
	HighlightColor Color `yaml:"highlightColor"`
	CounterColor   Color `yaml:"counterColor"`
}

// FrameColors defines colors for UI frame elements
type FrameColors struct {
	Border BorderColors `yaml:"border"`
	Title  TitleColors  `yaml:"title"`
}

// TableColors defines colors for table elements
type TableColors struct {
	FgColor       Color `yaml:"fgColor"`
	BgColor       Color `yaml:"bgColor"`
	HeaderFgColor Color `yaml:"headerFgColor"`
}

// BodyColors defines colors for body elements
type BodyColors struct {
	FgColor Color `yaml:"fgColor"`
	BgColor Color `yaml:"bgColor"`
}

// StatusColors defines status bar toast colors per severity
type StatusColors struct {
	Info    Color `yaml:"info"`
	Success Color `yaml:"success"`
	Warning Color `yaml:"warning"`
	Error   Color `yaml:"error"`
}

// ColorsConfig defines the complete color configuration
type ColorsConfig struct {
	Body   BodyColors   `yaml:"body"`
	Frame  FrameColors  `yaml:"frame"`
	Table  TableColors  `yaml:"table"`
	Email  EmailColors  `yaml:"email"`
	Status StatusColors `yaml:"status"`
}

// DefaultColors returns the default color configuration
func DefaultColors() *ColorsConfig {
	return &ColorsConfig{
		Body: BodyColors{
			FgColor: NewColor("#f8f8f2"),
			BgColor: NewColor("#282a36"),
		},
		Frame: FrameColors{
			Border: BorderColors{
				FgColor:    NewColor("#44475a"),
				FocusColor: NewColor("#6272a4"),
			},
			Title: TitleColors{
				FgColor:        NewColor("#f8f8f2"),
				HighlightColor: NewColor("#f1fa8c"),
				CounterColor:   NewColor("#50fa7b"),
			},
		},
		Table: TableColors{
			FgColor:       NewColor("#f8f8f2"),
			BgColor:       NewColor("#282a36"),
			HeaderFgColor: NewColor("#50fa7b"),
		},
		Email: EmailColors{
			UnreadColor:    NewColor("#ffb86c"),
			ReadColor:      NewColor("#6272a4"),
			StarredColor:   NewColor("#f1fa8c"),
			ImportantColor: NewColor("#ff5555"),
			SentColor:      NewColor("#50fa7b"),
			DraftColor:     NewColor("#8be9fd"),
			SelectedColor:  NewColor("#bd93f9"),
		},
		Status: StatusColors{
			Info:    NewColor("#8be9fd"),
			Success: NewColor("#50fa7b"),
			Warning: NewColor("#f1fa8c"),
			Error:   NewColor("#ff5555"),
		},
	}
}
