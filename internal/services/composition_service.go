package services

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/ajramos/mailtui/internal/cache"
	"github.com/ajramos/mailtui/internal/events"
	"github.com/ajramos/mailtui/internal/render"
	"github.com/ajramos/mailtui/internal/webmail"
	"github.com/google/uuid"
)

// ComposeMode selects how a draft is prefilled from an original message
type ComposeMode = events.ComposeMode

const (
	ComposeNew      = events.ComposeNew
	ComposeReply    = events.ComposeReply
	ComposeReplyAll = events.ComposeReplyAll
	ComposeForward  = events.ComposeForward
)

// Composition is an outgoing message being edited
type Composition struct {
	ID          string
	Mode        ComposeMode
	To          []string
	Cc          []string
	Subject     string
	Body        string
	ThreadID    string
	OriginalRef webmail.MessageRef
	CreatedAt   time.Time
	ModifiedAt  time.Time
}

// ValidationError is one problem with a composition field
type ValidationError struct {
	Field   string
	Message string
}

func (v ValidationError) Error() string {
	return v.Field + ": " + v.Message
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// CompositionServiceImpl implements CompositionService
type CompositionServiceImpl struct {
	api         MailAPI
	invalidator CacheInvalidator
	userEmail   string
	logger      *log.Logger
	now         func() time.Time
}

// NewCompositionService creates a new composition service
func NewCompositionService(api MailAPI, invalidator CacheInvalidator) *CompositionServiceImpl {
	return &CompositionServiceImpl{
		api:         api,
		invalidator: invalidator,
		now:         time.Now,
	}
}

// SetLogger sets the logger for debug output
func (s *CompositionServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// SetUserEmail sets the active account's address, left out of reply-all recipients
func (s *CompositionServiceImpl) SetUserEmail(email string) {
	s.userEmail = strings.TrimSpace(email)
}

// NewDraft creates a composition of the given mode. Reply modes without an
// original message fall back to a new message.
func (s *CompositionServiceImpl) NewDraft(mode ComposeMode, original *webmail.Message) *Composition {
	now := s.now()
	c := &Composition{
		ID:         uuid.New().String(),
		Mode:       mode,
		To:         []string{},
		Cc:         []string{},
		CreatedAt:  now,
		ModifiedAt: now,
	}
	if original == nil || mode == ComposeNew || mode == "" {
		c.Mode = ComposeNew
		return c
	}
	c.OriginalRef = original.Ref()

	switch mode {
	case ComposeReply:
		c.Subject = prefixSubject("Re:", original.Subject)
		c.To = replyTargets(original)
		c.ThreadID = original.ThreadID
		c.Body = quotedBody(original)

	case ComposeReplyAll:
		c.Subject = prefixSubject("Re:", original.Subject)
		seen := map[string]bool{}
		if s.userEmail != "" {
			seen[strings.ToLower(s.userEmail)] = true
		}
		c.To = appendUnique(c.To, seen, replyTargets(original)...)
		c.To = appendUnique(c.To, seen, original.To...)
		c.Cc = appendUnique(c.Cc, seen, original.Cc...)
		c.ThreadID = original.ThreadID
		c.Body = quotedBody(original)

	case ComposeForward:
		c.Subject = prefixSubject("Fwd:", original.Subject)
		c.Body = forwardedBody(original)

	default:
		c.Mode = ComposeNew
		c.OriginalRef = webmail.MessageRef{}
	}

	if s.logger != nil {
		s.logger.Printf("CompositionService: created %s draft %s from %s", c.Mode, c.ID, c.OriginalRef)
	}
	return c
}

// Validate checks a composition before it is sent
func (s *CompositionServiceImpl) Validate(c *Composition) []ValidationError {
	var errs []ValidationError
	if c == nil {
		return []ValidationError{{Field: "composition", Message: "Composition cannot be nil"}}
	}

	if len(c.To) == 0 {
		errs = append(errs, ValidationError{Field: "to", Message: "At least one recipient is required"})
	}
	errs = append(errs, validateAddresses("to", c.To)...)
	errs = append(errs, validateAddresses("cc", c.Cc)...)

	if strings.TrimSpace(c.Subject) == "" {
		errs = append(errs, ValidationError{Field: "subject", Message: "Subject is required"})
	}
	if strings.TrimSpace(c.Body) == "" {
		errs = append(errs, ValidationError{Field: "body", Message: "Message body is required"})
	}
	return errs
}

// Send delivers the composition through /mails/send-mail
func (s *CompositionServiceImpl) Send(ctx context.Context, mailboxID string, c *Composition) error {
	if c != nil && len(cleanRecipients(c.To)) == 0 {
		return ErrNoRecipients
	}
	if errs := s.Validate(c); len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, joinValidation(errs))
	}
	return s.submit(ctx, mailboxID, c, webmail.StatusSent)
}

// SaveDraft stores the composition in the drafts list. Only the addresses
// present are checked; recipients, subject and body may still be empty.
func (s *CompositionServiceImpl) SaveDraft(ctx context.Context, mailboxID string, c *Composition) error {
	if c == nil {
		return fmt.Errorf("%w: composition cannot be nil", ErrInvalidInput)
	}
	errs := append(validateAddresses("to", c.To), validateAddresses("cc", c.Cc)...)
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, joinValidation(errs))
	}
	return s.submit(ctx, mailboxID, c, webmail.StatusDraft)
}

func (s *CompositionServiceImpl) submit(ctx context.Context, mailboxID string, c *Composition, status webmail.SendStatus) error {
	if strings.TrimSpace(mailboxID) == "" {
		return ErrMissingMailbox
	}

	mail := webmail.OutgoingMail{
		MailID:   mailboxID,
		To:       cleanRecipients(c.To),
		Cc:       cleanRecipients(c.Cc),
		Subject:  strings.TrimSpace(c.Subject),
		Body:     c.Body,
		Status:   status,
		ThreadID: c.ThreadID,
	}
	err := s.api.SendMail(ctx, mail)

	// the sent-side lists may have changed even when the request failed midway
	if s.invalidator != nil {
		for _, k := range cache.SentKeys(mailboxID) {
			s.invalidator.Invalidate(k)
		}
		if c.ThreadID != "" {
			s.invalidator.Invalidate(cache.ConversationKey(mailboxID, c.ThreadID))
		}
	}

	if err != nil {
		if s.logger != nil {
			s.logger.Printf("CompositionService: %s %s failed: %v", status, c.ID, err)
		}
		return fmt.Errorf("failed to send message: %w", err)
	}

	c.ModifiedAt = s.now()
	if s.logger != nil {
		s.logger.Printf("CompositionService: %s composition %s (mode: %s)", status, c.ID, c.Mode)
	}
	return nil
}

// ParseRecipients splits a comma or semicolon separated address field
func ParseRecipients(field string) []string {
	parts := strings.FieldsFunc(field, func(r rune) bool { return r == ',' || r == ';' })
	return cleanRecipients(parts)
}

// RecipientAddress returns the bare address of "Name <addr>"
func RecipientAddress(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "<"); i >= 0 {
		if j := strings.Index(s[i:], ">"); j > 0 {
			return strings.TrimSpace(s[i+1 : i+j])
		}
	}
	return s
}

func cleanRecipients(in []string) []string {
	out := make([]string, 0, len(in))
	for _, r := range in {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func validateAddresses(field string, list []string) []ValidationError {
	var errs []ValidationError
	for i, r := range cleanRecipients(list) {
		if !emailRegex.MatchString(RecipientAddress(r)) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: fmt.Sprintf("Invalid email format: %s", r),
			})
		}
	}
	return errs
}

func joinValidation(errs []ValidationError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "; ")
}

// replyTargets is the sender for received mail and the original recipients for sent mail
func replyTargets(m *webmail.Message) []string {
	if m.Status != "" || m.From == "" {
		return cleanRecipients(m.To)
	}
	return []string{strings.TrimSpace(m.From)}
}

func appendUnique(dst []string, seen map[string]bool, addrs ...string) []string {
	for _, a := range cleanRecipients(addrs) {
		key := strings.ToLower(RecipientAddress(a))
		if seen[key] {
			continue
		}
		seen[key] = true
		dst = append(dst, a)
	}
	return dst
}

func prefixSubject(prefix, subject string) string {
	subject = strings.TrimSpace(subject)
	if strings.HasPrefix(strings.ToLower(subject), strings.ToLower(prefix)) {
		return subject
	}
	if subject == "" {
		return prefix
	}
	return prefix + " " + subject
}

func quotedBody(m *webmail.Message) string {
	var body strings.Builder
	body.WriteString("\n\n")
	sender := m.From
	if sender == "" {
		sender = "unknown sender"
	}
	if ts := m.Timestamp(); ts.Unix() > 0 {
		body.WriteString(fmt.Sprintf("On %s, %s wrote:\n", ts.Format("Jan 2, 2006 at 3:04 PM"), sender))
	} else {
		body.WriteString(fmt.Sprintf("%s wrote:\n", sender))
	}
	for _, line := range strings.Split(strings.TrimRight(render.PlainText(m), "\n"), "\n") {
		if line == "" {
			body.WriteString(">\n")
			continue
		}
		body.WriteString("> " + line + "\n")
	}
	return body.String()
}

func forwardedBody(m *webmail.Message) string {
	var body strings.Builder
	body.WriteString("\n\n---------- Forwarded message ---------\n")
	body.WriteString(fmt.Sprintf("From: %s\n", m.From))
	body.WriteString(fmt.Sprintf("Date: %s\n", render.FormatDate(m.Timestamp())))
	body.WriteString(fmt.Sprintf("Subject: %s\n", m.Subject))
	if len(m.To) > 0 {
		body.WriteString(fmt.Sprintf("To: %s\n", m.To))
	}
	body.WriteString("\n")
	body.WriteString(render.PlainText(m))
	return body.String()
}
