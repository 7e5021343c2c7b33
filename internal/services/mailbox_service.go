package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ajramos/mailtui/internal/webmail"
)

// MailboxQuery selects one page of a mailbox view
type MailboxQuery struct {
	MailboxID string
	Category  Category
	InboxType InboxType
	Search    SearchFilter
	Page      int
	PageSize  int
	// Threaded groups the list by conversation
	Threaded bool
}

// MailboxPage is the visible slice of a view
type MailboxPage struct {
	Category  Category
	Messages  []*webmail.Message
	Threads   []*Thread
	Page      int
	PageCount int
	Total     int
}

// Empty reports whether the page shows nothing
func (p *MailboxPage) Empty() bool {
	return len(p.Messages) == 0 && len(p.Threads) == 0
}

// MailboxServiceImpl implements MailboxService
type MailboxServiceImpl struct {
	repo   MessageRepository
	logger *log.Logger
}

// NewMailboxService creates a mailbox service reading through repo
func NewMailboxService(repo MessageRepository) *MailboxServiceImpl {
	return &MailboxServiceImpl{repo: repo}
}

// SetLogger sets the logger for debug output
func (s *MailboxServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// source loads the unfiltered list behind a category
func (s *MailboxServiceImpl) source(ctx context.Context, mailboxID string, c Category) ([]*webmail.Message, error) {
	if status, ok := c.SendStatus(); ok {
		return s.repo.Sent(ctx, mailboxID, status)
	}
	if labelID, ok := c.LabelID(); ok {
		return s.repo.LabelMessages(ctx, labelID)
	}
	return s.repo.Mailbox(ctx, mailboxID)
}

// LoadView loads, classifies, searches, sorts and paginates a view
func (s *MailboxServiceImpl) LoadView(ctx context.Context, q MailboxQuery) (*MailboxPage, error) {
	if strings.TrimSpace(q.MailboxID) == "" {
		return nil, ErrMissingMailbox
	}
	if q.Category == "" {
		q.Category = CategoryInbox
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.Page < 1 {
		q.Page = 1
	}

	all, err := s.source(ctx, q.MailboxID, q.Category)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", q.Category, err)
	}

	page := &MailboxPage{Category: q.Category, Page: q.Page}
	if q.Threaded {
		threads := s.threads(all, q)
		page.Total = len(threads)
		page.PageCount = PageCount(len(threads), q.PageSize)
		page.Threads = Paginate(threads, q.Page, q.PageSize)
	} else {
		msgs := Classify(all, q.Category)
		msgs = q.Search.Filter(msgs)
		msgs = SortByInboxType(msgs, q.InboxType)
		page.Total = len(msgs)
		page.PageCount = PageCount(len(msgs), q.PageSize)
		page.Messages = Paginate(msgs, q.Page, q.PageSize)
	}

	if s.logger != nil {
		s.logger.Printf("mailbox: %s page %d/%d (%d total)", q.Category, page.Page, page.PageCount, page.Total)
	}
	return page, nil
}

// threads groups the whole list so membership is decided on complete
// conversations; messages without a thread id stand alone.
func (s *MailboxServiceImpl) threads(all []*webmail.Message, q MailboxQuery) []*Thread {
	threads := BuildThreads(all)
	for _, m := range all {
		if m != nil && strings.TrimSpace(m.ThreadID) == "" {
			threads = append(threads, NewThread(m.Ref().String(), []*webmail.Message{m}))
		}
	}

	out := make([]*Thread, 0, len(threads))
	for _, t := range threads {
		if !ThreadInCategory(t, q.Category) {
			continue
		}
		if !q.Search.IsEmpty() && !t.Any(q.Search.Match) {
			continue
		}
		out = append(out, t)
	}
	return SortThreads(out, q.InboxType)
}

// UnreadCounts returns the unread count of every received-side category
func (s *MailboxServiceImpl) UnreadCounts(ctx context.Context, mailboxID string) (map[Category]int, error) {
	all, err := s.repo.Mailbox(ctx, mailboxID)
	if err != nil {
		return nil, err
	}
	counts := make(map[Category]int)
	for _, c := range Categories {
		if _, sent := c.SendStatus(); sent {
			continue
		}
		n := 0
		for _, m := range Classify(all, c) {
			if m.Unread() {
				n++
			}
		}
		counts[c] = n
	}
	return counts, nil
}
