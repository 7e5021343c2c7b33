package render

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/ajramos/mailtui/internal/config"
	"github.com/ajramos/mailtui/internal/webmail"
	"github.com/derailed/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// EmailColorer picks list colors from message state
type EmailColorer struct {
	UnreadColor    tcell.Color
	ReadColor      tcell.Color
	StarredColor   tcell.Color
	ImportantColor tcell.Color
	SentColor      tcell.Color
	DraftColor     tcell.Color
}

// NewEmailColorer creates a new email colorer with default colors
func NewEmailColorer() *EmailColorer {
	return &EmailColorer{
		UnreadColor:    tcell.ColorOrange,
		ReadColor:      tcell.ColorGray,
		StarredColor:   tcell.ColorYellow,
		ImportantColor: tcell.ColorRed,
		SentColor:      tcell.ColorGreen,
		DraftColor:     tcell.ColorYellow,
	}
}

// Color returns the row color of a message
func (ec *EmailColorer) Color(m *webmail.Message) tcell.Color {
	switch {
	case m == nil:
		return ec.ReadColor
	case m.Status == webmail.StatusDraft:
		return ec.DraftColor
	case m.Status == webmail.StatusSent || m.Status == webmail.StatusScheduled:
		return ec.SentColor
	case m.IsImportant && m.Unread():
		return ec.ImportantColor
	case m.Unread():
		return ec.UnreadColor
	case m.IsStarred:
		return ec.StarredColor
	}
	return ec.ReadColor
}

// UpdateFromStyles updates colors from configuration
func (ec *EmailColorer) UpdateFromStyles(colors *config.ColorsConfig) {
	ec.UnreadColor = colors.Email.UnreadColor.Color()
	ec.ReadColor = colors.Email.ReadColor.Color()
	ec.StarredColor = colors.Email.StarredColor.Color()
	ec.ImportantColor = colors.Email.ImportantColor.Color()
	ec.SentColor = colors.Email.SentColor.Color()
	ec.DraftColor = colors.Email.DraftColor.Color()
}

// EmailRenderer formats list rows and headers
type EmailRenderer struct {
	colorer *EmailColorer
	now     func() time.Time
}

// NewEmailRenderer creates a new email renderer
func NewEmailRenderer() *EmailRenderer {
	return &EmailRenderer{
		colorer: NewEmailColorer(),
		now:     time.Now,
	}
}

// Colorer exposes the renderer's colors
func (er *EmailRenderer) Colorer() *EmailColorer { return er.colorer }

// FormatEmailList formats a message as "Sender | Subject flags | Date" fitted to maxWidth
func (er *EmailRenderer) FormatEmailList(message *webmail.Message, maxWidth int) (string, tcell.Color) {
	sender := ExtractSenderName(message.From)
	if message.Status != "" && len(message.To) > 0 {
		sender = "To: " + ExtractSenderName(message.To[0])
	}
	if sender == "" {
		sender = "(No sender)"
	}

	subject := strings.TrimSpace(message.Subject)
	if subject == "" {
		subject = "(No subject)"
	}

	date := er.FormatRelativeTime(message.Timestamp())

	if maxWidth < 40 {
		maxWidth = 40
	}
	senderWidth := 22
	dateWidth := 8
	suffix := FlagIcons(message)
	suffixWidth := runewidth.StringWidth(suffix)
	subjectWidth := maxWidth - senderWidth - dateWidth - 6 - suffixWidth
	if subjectWidth < 10 {
		subjectWidth = 10
	}

	formatted := fmt.Sprintf("%s | %s%s | %s",
		FitWidth(sender, senderWidth),
		FitWidth(subject, subjectWidth),
		suffix,
		FitWidth(date, dateWidth))
	return formatted, er.colorer.Color(message)
}

// FormatThreadRow renders a conversation row with its member count
func (er *EmailRenderer) FormatThreadRow(latest *webmail.Message, count, unread int, maxWidth int) (string, tcell.Color) {
	row, color := er.FormatEmailList(latest, maxWidth-6)
	badge := fmt.Sprintf("(%d)", count)
	if unread > 0 {
		badge = fmt.Sprintf("(%d/%d)", unread, count)
	}
	return FitWidth(badge, 6) + row, color
}

// FlagIcons returns a compact flag suffix such as " ★ !"
func FlagIcons(m *webmail.Message) string {
	var b strings.Builder
	if m.IsStarred {
		b.WriteString(" ★")
	}
	if m.IsImportant {
		b.WriteString(" !")
	}
	if m.IsSnoozed {
		b.WriteString(" z")
	}
	if m.IsAddToTask {
		b.WriteString(" ✓")
	}
	if m.IsMute {
		b.WriteString(" m")
	}
	return b.String()
}

// LabelChips renders up to three label names plus a "+N" overflow chip
func LabelChips(labels []*webmail.Label) string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == nil || !l.ShowInMessageList && !l.IsVisible {
			continue
		}
		names = append(names, toTitleCase(l.Name))
	}
	var b strings.Builder
	for i, n := range names {
		if i == 3 {
			fmt.Fprintf(&b, " [+%d]", len(names)-3)
			break
		}
		b.WriteString(" [" + n + "]")
	}
	return b.String()
}

// toTitleCase converts strings like "AWS", "spam", "aws-partners" to "Aws", "Spam", "Aws Partners"
func toTitleCase(s string) string {
	repl := strings.NewReplacer("_", " ", "-", " ", ".", " ")
	parts := strings.Fields(repl.Replace(s))
	for i, p := range parts {
		r := []rune(strings.ToLower(p))
		r[0] = unicode.ToUpper(r[0])
		parts[i] = string(r)
	}
	return strings.Join(parts, " ")
}

// FormatHeaderStyled returns the message header in tview markup
func (er *EmailRenderer) FormatHeaderStyled(m *webmail.Message, labels []string) string {
	return "[green]" + er.FormatHeaderPlain(m, labels) + "[-]\n\n"
}

// FormatHeaderPlain returns a plain header without markup
func (er *EmailRenderer) FormatHeaderPlain(m *webmail.Message, labels []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n", m.Subject)
	fmt.Fprintf(&b, "From: %s\n", m.From)
	if len(m.To) > 0 {
		fmt.Fprintf(&b, "To: %s\n", m.To)
	}
	if len(m.Cc) > 0 {
		fmt.Fprintf(&b, "Cc: %s\n", m.Cc)
	}
	fmt.Fprintf(&b, "Date: %s", FormatDate(m.Timestamp()))
	if len(labels) > 0 {
		fmt.Fprintf(&b, "\nLabels: %s", strings.Join(labels, ", "))
	}
	return b.String()
}

// ExtractSenderName returns the display name of "Name <addr>", or the address itself
func ExtractSenderName(from string) string {
	from = strings.TrimSpace(from)
	if i := strings.Index(from, "<"); i > 0 && strings.Contains(from[i:], ">") {
		if name := strings.Trim(strings.TrimSpace(from[:i]), `"`); name != "" {
			return name
		}
	}
	return strings.Trim(from, "<>")
}

// FitWidth truncates by display width with an ellipsis and pads to exactly width
func FitWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = runewidth.Truncate(s, width, "...")
	if pad := width - runewidth.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

// RightFit truncates from the left and right-aligns to width
func RightFit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if over := runewidth.StringWidth(s) - width; over > 0 {
		s = runewidth.TruncateLeft(s, over, "")
	}
	if pad := width - runewidth.StringWidth(s); pad > 0 {
		s = strings.Repeat(" ", pad) + s
	}
	return s
}

// FormatRelativeTime renders "now", "5m", "3h", "2d" or "Jan 2"
func (er *EmailRenderer) FormatRelativeTime(date time.Time) string {
	if date.Unix() <= 0 {
		return "-"
	}
	diff := er.now().Sub(date)
	switch {
	case diff < time.Minute:
		return "now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(diff.Hours()/24))
	}
	return date.Format("Jan 2")
}

// FormatDate renders a full timestamp
func FormatDate(date time.Time) string {
	if date.Unix() <= 0 {
		return "unknown"
	}
	return date.Format("Mon, 02 Jan 2006 15:04:05 -0700")
}

// UpdateFromConfig updates the renderer with new configuration
func (er *EmailRenderer) UpdateFromConfig(colors *config.ColorsConfig) {
	er.colorer.UpdateFromStyles(colors)
}
