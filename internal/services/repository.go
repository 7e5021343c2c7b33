package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ajramos/mailtui/internal/cache"
	"github.com/ajramos/mailtui/internal/webmail"
	"golang.org/x/sync/errgroup"
)

// MessageRepositoryImpl implements MessageRepository on top of the query cache.
// Every list it returns excludes messages that have neither a received nor a sent id.
type MessageRepositoryImpl struct {
	api    MailAPI
	store  *cache.Store
	logger *log.Logger
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(api MailAPI, store *cache.Store) *MessageRepositoryImpl {
	return &MessageRepositoryImpl{
		api:   api,
		store: store,
	}
}

// SetLogger sets the logger for debug output
func (r *MessageRepositoryImpl) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *MessageRepositoryImpl) load(ctx context.Context, key cache.Key, fetch func(context.Context) ([]*webmail.Message, error)) ([]*webmail.Message, error) {
	wrapped := func(ctx context.Context) ([]*webmail.Message, error) {
		msgs, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		valid := validMessages(msgs)
		if dropped := len(msgs) - len(valid); dropped > 0 && r.logger != nil {
			r.logger.Printf("repository: dropped %d messages without id from %s", dropped, key)
		}
		return valid, nil
	}
	if r.store == nil {
		return wrapped(ctx)
	}
	return cache.Get(ctx, r.store, key, wrapped)
}

// Mailbox returns every received message of the mailbox
func (r *MessageRepositoryImpl) Mailbox(ctx context.Context, mailboxID string) ([]*webmail.Message, error) {
	if strings.TrimSpace(mailboxID) == "" {
		return nil, ErrMissingMailbox
	}
	msgs, err := r.load(ctx, cache.MailboxKey(mailboxID), func(ctx context.Context) ([]*webmail.Message, error) {
		return r.api.AllMails(ctx, mailboxID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return msgs, nil
}

// Sent returns the sent, draft or scheduled list
func (r *MessageRepositoryImpl) Sent(ctx context.Context, mailboxID string, status webmail.SendStatus) ([]*webmail.Message, error) {
	if strings.TrimSpace(mailboxID) == "" {
		return nil, ErrMissingMailbox
	}
	msgs, err := r.load(ctx, cache.SentKey(mailboxID, status), func(ctx context.Context) ([]*webmail.Message, error) {
		return r.api.SentMails(ctx, mailboxID, status)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s messages: %w", status, err)
	}
	return msgs, nil
}

// LabelMessages returns received and sent messages carrying labelID, received first
func (r *MessageRepositoryImpl) LabelMessages(ctx context.Context, labelID string) ([]*webmail.Message, error) {
	if strings.TrimSpace(labelID) == "" {
		return nil, ErrInvalidLabelID
	}

	var received, sent []*webmail.Message
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		received, err = r.load(gctx, cache.LabelEmailsKey(labelID, false), func(ctx context.Context) ([]*webmail.Message, error) {
			return r.api.EmailsByLabel(ctx, labelID, false)
		})
		return err
	})
	g.Go(func() error {
		var err error
		sent, err = r.load(gctx, cache.LabelEmailsKey(labelID, true), func(ctx context.Context) ([]*webmail.Message, error) {
			return r.api.EmailsByLabel(ctx, labelID, true)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to get messages for label %s: %w", labelID, err)
	}

	out := make([]*webmail.Message, 0, len(received)+len(sent))
	out = append(out, received...)
	return append(out, sent...), nil
}

// Conversation returns the members of a thread
func (r *MessageRepositoryImpl) Conversation(ctx context.Context, mailboxID, threadID string) ([]*webmail.Message, error) {
	if strings.TrimSpace(mailboxID) == "" {
		return nil, ErrMissingMailbox
	}
	if strings.TrimSpace(threadID) == "" {
		return nil, fmt.Errorf("%w: thread id cannot be empty", ErrInvalidInput)
	}
	msgs, err := r.load(ctx, cache.ConversationKey(mailboxID, threadID), func(ctx context.Context) ([]*webmail.Message, error) {
		return r.api.Conversation(ctx, mailboxID, threadID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation %s: %w", threadID, err)
	}
	return msgs, nil
}
