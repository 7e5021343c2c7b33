package services

import (
	"context"

	"github.com/ajramos/mailtui/internal/cache"
	"github.com/ajramos/mailtui/internal/config"
	"github.com/ajramos/mailtui/internal/webmail"
)

// MailAPI is the backend surface the services depend on; *webmail.Client implements it
type MailAPI interface {
	Conversation(ctx context.Context, mailboxID, threadID string) ([]*webmail.Message, error)
	UpdateEmail(ctx context.Context, ref webmail.MessageRef, update webmail.FlagUpdate) error
	AllMails(ctx context.Context, mailboxID string) ([]*webmail.Message, error)
	SentMails(ctx context.Context, mailboxID string, status webmail.SendStatus) ([]*webmail.Message, error)
	SendMail(ctx context.Context, mail webmail.OutgoingMail) error
	Labels(ctx context.Context, mailboxID string) ([]*webmail.Label, error)
	CreateLabel(ctx context.Context, mailboxID string, label webmail.NewLabel) (*webmail.Label, error)
	EmailLabels(ctx context.Context, ref webmail.MessageRef) ([]*webmail.Label, error)
	AssignLabel(ctx context.Context, ref webmail.MessageRef, labelID string) error
	RemoveLabel(ctx context.Context, ref webmail.MessageRef, labelID string) error
	EmailsByLabel(ctx context.Context, labelID string, forSendMail bool) ([]*webmail.Message, error)
	DeleteEmail(ctx context.Context, ref webmail.MessageRef) error
}

// CacheInvalidator marks cached queries stale so their subscribers refetch; *cache.Store implements it
type CacheInvalidator interface {
	Invalidate(key cache.Key)
}

// Notifier surfaces outcomes to the user (status bar toasts in the TUI)
type Notifier interface {
	ShowError(ctx context.Context, msg string)
	ShowSuccess(ctx context.Context, msg string)
}

// MessageRepository reads mailbox lists through the query cache
type MessageRepository interface {
	Mailbox(ctx context.Context, mailboxID string) ([]*webmail.Message, error)
	Sent(ctx context.Context, mailboxID string, status webmail.SendStatus) ([]*webmail.Message, error)
	LabelMessages(ctx context.Context, labelID string) ([]*webmail.Message, error)
	Conversation(ctx context.Context, mailboxID, threadID string) ([]*webmail.Message, error)
}

// MutationService applies flag changes and keeps dependent queries fresh
type MutationService interface {
	Apply(ctx context.Context, req MutationRequest) (*MutationResult, error)
	Bulk(ctx context.Context, req BulkRequest) (*MutationResult, error)
	ToggleStar(ctx context.Context, req MutationRequest) (*MutationResult, error)
	MarkSeen(ctx context.Context, mailboxID string, msg *webmail.Message) error
	PermanentlyDelete(ctx context.Context, mailboxID string, msg *webmail.Message) error
}

// LabelService handles label listing, creation and per-message assignment
type LabelService interface {
	ListLabels(ctx context.Context, mailboxID string) ([]*webmail.Label, error)
	CreateLabel(ctx context.Context, mailboxID string, label webmail.NewLabel) (*webmail.Label, error)
	OpenMenu(ctx context.Context, mailboxID string, msg *webmail.Message) (*LabelMenu, error)
}

// MailboxService builds the visible page of a mailbox view
type MailboxService interface {
	LoadView(ctx context.Context, q MailboxQuery) (*MailboxPage, error)
}

// CompositionService builds and sends outgoing mail
type CompositionService interface {
	NewDraft(mode ComposeMode, original *webmail.Message) *Composition
	Validate(c *Composition) []ValidationError
	Send(ctx context.Context, mailboxID string, c *Composition) error
}

// QueryService manages saved searches for the active mailbox
type QueryService interface {
	SaveQuery(ctx context.Context, name, query, category, description string) (*SavedQueryInfo, error)
	GetQuery(ctx context.Context, name string) (*SavedQueryInfo, error)
	ListQueries(ctx context.Context, category string) ([]*SavedQueryInfo, error)
	RecordQueryUsage(ctx context.Context, id int64) error
	DeleteQuery(ctx context.Context, id int64) error
}

// AccountService tracks configured accounts and the active one
type AccountService interface {
	ListAccounts(ctx context.Context) ([]*Account, error)
	GetActiveAccount(ctx context.Context) (*Account, error)
	SwitchAccount(ctx context.Context, name string) (*Account, error)
}

// ThemeService lists and applies YAML themes
type ThemeService interface {
	ListAvailableThemes(ctx context.Context) ([]string, error)
	GetCurrentTheme(ctx context.Context) (string, error)
	ApplyTheme(ctx context.Context, name string) error
	GetCurrentThemeConfig() *config.ColorsConfig
}

// SavedQueryInfo represents information about a saved search
type SavedQueryInfo struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Query       string `json:"query"`
	Category    string `json:"category"`
	Description string `json:"description"`
	UseCount    int    `json:"use_count"`
	LastUsed    int64  `json:"last_used"`
	CreatedAt   int64  `json:"created_at"`
}
