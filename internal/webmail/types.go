package webmail

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RefKind tells which identifier a message is addressed by
type RefKind int

const (
	// RefInvalid is the zero value; a message with neither id has no usable ref
	RefInvalid RefKind = iota
	// RefReceived addresses a received message by emailUniqueId
	RefReceived
	// RefSent addresses a sent, draft or scheduled message by sendmail_id
	RefSent
)

// MessageRef identifies a message by exactly one of its two id forms.
// It is resolved once from a Message (see RefOf) so callers never pick the id themselves.
type MessageRef struct {
	Kind RefKind
	ID   string
}

// Received builds a ref for a received message
func Received(id string) MessageRef { return MessageRef{Kind: RefReceived, ID: id} }

// Sent builds a ref for a sent message
func Sent(id string) MessageRef { return MessageRef{Kind: RefSent, ID: id} }

// Valid reports whether the ref can address a message
func (r MessageRef) Valid() bool {
	return r.Kind != RefInvalid && strings.TrimSpace(r.ID) != ""
}

// Field returns the JSON field name the backend expects for this ref
func (r MessageRef) Field() string {
	switch r.Kind {
	case RefReceived:
		return "emailUniqueId"
	case RefSent:
		return "sendmail_id"
	}
	return ""
}

// String renders the ref as "received:<id>" or "sent:<id>", used as a cache key part
func (r MessageRef) String() string {
	switch r.Kind {
	case RefReceived:
		return "received:" + r.ID
	case RefSent:
		return "sent:" + r.ID
	}
	return "invalid"
}

// Body returns the request body fragment addressing this ref
func (r MessageRef) Body() map[string]interface{} {
	return map[string]interface{}{r.Field(): r.ID}
}

// Recipients accepts either a JSON array of addresses or a single comma separated string
type Recipients []string

// UnmarshalJSON implements json.Unmarshaler
func (r *Recipients) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = nil
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*r = cleanAddresses(list)
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("recipients must be a string or array: %w", err)
	}
	*r = cleanAddresses(strings.Split(single, ","))
	return nil
}

// Contains reports whether addr is one of the recipients (case-insensitive)
func (r Recipients) Contains(addr string) bool {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if addr == "" {
		return false
	}
	for _, rcpt := range r {
		if strings.ToLower(extractAddress(rcpt)) == addr {
			return true
		}
	}
	return false
}

// String joins the recipients for display
func (r Recipients) String() string {
	return strings.Join(r, ", ")
}

func cleanAddresses(in []string) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// extractAddress returns the bare address from "Name <addr>" forms
func extractAddress(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "<"); i >= 0 {
		if j := strings.Index(s[i:], ">"); j > 0 {
			return strings.TrimSpace(s[i+1 : i+j])
		}
	}
	return s
}

// SendStatus scopes sent-side lists on the server
type SendStatus string

const (
	StatusSent      SendStatus = "sent"
	StatusDraft     SendStatus = "draft"
	StatusScheduled SendStatus = "scheduled"
)

// SendStatuses lists every sent-side status
var SendStatuses = []SendStatus{StatusSent, StatusDraft, StatusScheduled}

// Message is one received or composed email as the backend returns it
type Message struct {
	EmailUniqueID string     `json:"emailUniqueId,omitempty"`
	SendmailID    string     `json:"sendmail_id,omitempty"`
	ThreadID      string     `json:"threadId,omitempty"`
	MailID        string     `json:"mail_id,omitempty"`
	From          string     `json:"from"`
	To            Recipients `json:"to,omitempty"`
	Cc            Recipients `json:"cc,omitempty"`
	Subject       string     `json:"subject"`
	Body          string     `json:"body,omitempty"`
	HTML          string     `json:"html,omitempty"`
	Text          string     `json:"text,omitempty"`
	CreatedAt     string     `json:"createdAt,omitempty"`
	Status        SendStatus `json:"status,omitempty"`

	IsRead      bool `json:"isRead"`
	IsStarred   bool `json:"isStarred"`
	IsImportant bool `json:"isImportant"`
	IsSnoozed   bool `json:"isSnoozed"`
	IsMute      bool `json:"isMute"`
	IsArchived  bool `json:"isArchived"`
	IsSpam      bool `json:"isSpam"`
	IsTrash     bool `json:"isTrash"`
	IsAddToTask bool `json:"isAddToTask"`
	IsBlocked   bool `json:"isBlocked"`
}

// RefOf resolves the message's ref; the received id wins when both are present
func RefOf(m *Message) (MessageRef, bool) {
	if m == nil {
		return MessageRef{}, false
	}
	if id := strings.TrimSpace(m.EmailUniqueID); id != "" {
		return Received(id), true
	}
	if id := strings.TrimSpace(m.SendmailID); id != "" {
		return Sent(id), true
	}
	return MessageRef{}, false
}

// Ref is RefOf without the ok flag; invalid messages return the zero ref
func (m *Message) Ref() MessageRef {
	ref, _ := RefOf(m)
	return ref
}

// Unread reports whether the message has not been seen
func (m *Message) Unread() bool { return !m.IsRead }

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

// Timestamp parses CreatedAt; missing or unparseable values are the Unix epoch
func (m *Message) Timestamp() time.Time {
	raw := strings.TrimSpace(m.CreatedAt)
	if raw == "" {
		return time.Unix(0, 0).UTC()
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Unix(0, 0).UTC()
}

// FlagUpdate carries optional flag changes; nil means unchanged
type FlagUpdate struct {
	IsRead      *bool
	IsStarred   *bool
	IsImportant *bool
	IsSnoozed   *bool
	IsMute      *bool
	IsArchived  *bool
	IsSpam      *bool
	IsTrash     *bool
	IsAddToTask *bool
	IsBlocked   *bool
}

// Bool returns a pointer to b, for building FlagUpdate literals
func Bool(b bool) *bool { return &b }

// Empty reports whether the update changes nothing
func (u FlagUpdate) Empty() bool {
	return len(u.fields()) == 0
}

func (u FlagUpdate) fields() map[string]bool {
	out := make(map[string]bool)
	set := func(name string, v *bool) {
		if v != nil {
			out[name] = *v
		}
	}
	set("isRead", u.IsRead)
	set("isStarred", u.IsStarred)
	set("isImportant", u.IsImportant)
	set("isSnoozed", u.IsSnoozed)
	set("isMute", u.IsMute)
	set("isArchived", u.IsArchived)
	set("isSpam", u.IsSpam)
	set("isTrash", u.IsTrash)
	set("isAddToTask", u.IsAddToTask)
	set("isBlocked", u.IsBlocked)
	return out
}

// ApplyTo copies the set flags onto m
func (u FlagUpdate) ApplyTo(m *Message) {
	apply := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	apply(&m.IsRead, u.IsRead)
	apply(&m.IsStarred, u.IsStarred)
	apply(&m.IsImportant, u.IsImportant)
	apply(&m.IsSnoozed, u.IsSnoozed)
	apply(&m.IsMute, u.IsMute)
	apply(&m.IsArchived, u.IsArchived)
	apply(&m.IsSpam, u.IsSpam)
	apply(&m.IsTrash, u.IsTrash)
	apply(&m.IsAddToTask, u.IsAddToTask)
	apply(&m.IsBlocked, u.IsBlocked)
}

// Label is a user-defined tag
type Label struct {
	ID                string `json:"labelUniqueId"`
	Name              string `json:"name"`
	Color             string `json:"color,omitempty"`
	IsVisible         bool   `json:"isVisible"`
	ShowIfUnread      bool   `json:"showIfUnread"`
	ShowInMessageList bool   `json:"showInMessageList"`
}

// NewLabel is the payload for creating a label
type NewLabel struct {
	Name              string
	Color             string
	IsVisible         bool
	ShowIfUnread      bool
	ShowInMessageList bool
}

// OutgoingMail is the payload for /mails/send-mail
type OutgoingMail struct {
	MailID   string     `json:"mail_id"`
	To       []string   `json:"to"`
	Cc       []string   `json:"cc,omitempty"`
	Subject  string     `json:"subject"`
	Body     string     `json:"body"`
	Status   SendStatus `json:"status"`
	ThreadID string     `json:"threadId,omitempty"`
}
