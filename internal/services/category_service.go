package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ajramos/mailtui/internal/webmail"
)

// Category names a mailbox view
type Category string

const (
	CategoryInbox     Category = "inbox"
	CategoryStarred   Category = "starred"
	CategorySnoozed   Category = "snoozed"
	CategoryImportant Category = "important"
	CategorySpam      Category = "spam"
	CategoryTrash     Category = "trash"
	CategoryArchive   Category = "archive"
	CategoryMuted     Category = "muted"
	CategoryTasks     Category = "tasks"
	CategoryBlocked   Category = "blocked"
	CategoryAllMails  Category = "allmails"
	CategoryDrafts    Category = "drafts"
	CategorySent      Category = "sent"
	CategoryScheduled Category = "scheduled"
)

const labelPrefix = "label:"

// Categories lists the fixed views in menu order
var Categories = []Category{
	CategoryInbox, CategoryStarred, CategorySnoozed, CategoryImportant, CategoryTasks,
	CategorySent, CategoryDrafts, CategoryScheduled, CategoryAllMails, CategoryArchive,
	CategoryMuted, CategorySpam, CategoryTrash, CategoryBlocked,
}

// LabelCategory is the view of messages carrying labelID
func LabelCategory(labelID string) Category {
	return Category(labelPrefix + labelID)
}

// LabelID returns the label of a label:* category
func (c Category) LabelID() (string, bool) {
	if !strings.HasPrefix(string(c), labelPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(string(c), labelPrefix)
	return id, id != ""
}

// SendStatus returns the server-side status of a sent-side category
func (c Category) SendStatus() (webmail.SendStatus, bool) {
	switch c {
	case CategorySent:
		return webmail.StatusSent, true
	case CategoryDrafts:
		return webmail.StatusDraft, true
	case CategoryScheduled:
		return webmail.StatusScheduled, true
	}
	return "", false
}

// ParseCategory validates a category name; empty means inbox
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c == "" {
		return CategoryInbox, nil
	}
	if strings.HasPrefix(string(c), labelPrefix) {
		// label ids are case sensitive
		c = Category(strings.TrimSpace(s))
		if _, ok := c.LabelID(); !ok {
			return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
		}
		return c, nil
	}
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// inInbox: flagged messages surface even when archived, spammed, trashed or
// muted; blocked messages never do.
func inInbox(m *webmail.Message) bool {
	if m.IsBlocked {
		return false
	}
	clear := !(m.IsArchived || m.IsSpam || m.IsTrash || m.IsMute)
	return clear || isFlagged(m)
}

func isFlagged(m *webmail.Message) bool {
	return m.IsAddToTask || m.IsImportant || m.IsSnoozed || m.IsStarred
}

func inAllMails(m *webmail.Message) bool {
	return !(m.IsArchived || m.IsSpam || m.IsTrash || m.IsBlocked)
}

// predicate returns the message filter of a category; nil means no filtering
func predicate(c Category) func(*webmail.Message) bool {
	switch c {
	case CategoryStarred:
		return func(m *webmail.Message) bool { return m.IsStarred }
	case CategorySnoozed:
		return func(m *webmail.Message) bool { return m.IsSnoozed }
	case CategoryImportant:
		return func(m *webmail.Message) bool { return m.IsImportant }
	case CategorySpam:
		return func(m *webmail.Message) bool { return m.IsSpam }
	case CategoryTrash:
		return func(m *webmail.Message) bool { return m.IsTrash }
	case CategoryArchive:
		return func(m *webmail.Message) bool { return m.IsArchived }
	case CategoryMuted:
		return func(m *webmail.Message) bool { return m.IsMute }
	case CategoryTasks:
		return func(m *webmail.Message) bool { return m.IsAddToTask }
	case CategoryBlocked:
		return func(m *webmail.Message) bool { return m.IsBlocked }
	case CategoryAllMails:
		return inAllMails
	case CategoryDrafts, CategorySent, CategoryScheduled:
		return nil
	}
	if _, ok := c.LabelID(); ok {
		return nil
	}
	return inInbox
}

// Classify returns the messages shown in category, in input order.
// Unknown categories behave as inbox. The input is never modified.
func Classify(messages []*webmail.Message, c Category) []*webmail.Message {
	pred := predicate(c)
	out := make([]*webmail.Message, 0, len(messages))
	for _, m := range messages {
		if m == nil {
			continue
		}
		if pred == nil || pred(m) {
			out = append(out, m)
		}
	}
	return out
}

// ThreadInCategory decides thread-level membership: any member carrying the
// category's flag is enough, but inbox requires every member to be clear of
// trash, spam, archive and mute. Flags do not override this at thread level,
// and a blocked member keeps the thread out of inbox.
func ThreadInCategory(t *Thread, c Category) bool {
	if t == nil || len(t.Messages) == 0 {
		return false
	}
	pred := predicate(c)
	if pred == nil {
		return true
	}
	if !predicateIsInbox(c) {
		return t.Any(pred)
	}
	if t.Any(func(m *webmail.Message) bool { return m.IsBlocked }) {
		return false
	}
	return t.All(func(m *webmail.Message) bool {
		return !(m.IsArchived || m.IsSpam || m.IsTrash || m.IsMute)
	})
}

// predicateIsInbox reports whether c falls back to the inbox rule
func predicateIsInbox(c Category) bool {
	switch c {
	case CategoryStarred, CategorySnoozed, CategoryImportant, CategorySpam, CategoryTrash,
		CategoryArchive, CategoryMuted, CategoryTasks, CategoryBlocked, CategoryAllMails,
		CategoryDrafts, CategorySent, CategoryScheduled:
		return false
	}
	_, isLabel := c.LabelID()
	return !isLabel
}

// InboxType is the ordering strategy of the mailbox list
type InboxType string

const (
	InboxDefault   InboxType = "default"
	InboxUnread    InboxType = "unread"
	InboxStarred   InboxType = "starred"
	InboxImportant InboxType = "important"
	InboxPriority  InboxType = "priority"
)

// rank is the primary sort key per strategy; higher sorts first
func rank(m *webmail.Message, strategy InboxType) int {
	b := func(v bool) int {
		if v {
			return 1
		}
		return 0
	}
	switch strategy {
	case InboxUnread:
		return b(m.Unread())
	case InboxStarred:
		return b(m.IsStarred)
	case InboxImportant:
		return b(m.IsImportant)
	case InboxPriority:
		switch {
		case m.IsImportant && m.Unread():
			return 4
		case m.IsImportant:
			return 3
		case m.IsStarred:
			return 2
		case m.Unread():
			return 1
		}
	}
	return 0
}

// SortByInboxType orders a copy of messages by strategy, then newest first.
// Unknown strategies sort by timestamp only. The sort is stable.
func SortByInboxType(messages []*webmail.Message, strategy InboxType) []*webmail.Message {
	out := make([]*webmail.Message, len(messages))
	copy(out, messages)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rank(out[i], strategy), rank(out[j], strategy)
		if ri != rj {
			return ri > rj
		}
		return out[i].Timestamp().After(out[j].Timestamp())
	})
	return out
}

// SortThreads orders threads by their latest message using the same strategy
func SortThreads(threads []*Thread, strategy InboxType) []*Thread {
	out := make([]*Thread, len(threads))
	copy(out, threads)
	sort.SliceStable(out, func(i, j int) bool {
		li, lj := out[i].Latest(), out[j].Latest()
		ri, rj := rank(li, strategy), rank(lj, strategy)
		if ri != rj {
			return ri > rj
		}
		return li.Timestamp().After(lj.Timestamp())
	})
	return out
}

// DefaultPageSize applies when the page size is zero or negative
const DefaultPageSize = 50

// Paginate returns the 1-based page of list. Pages below 1 are page 1;
// pages past the end are empty.
func Paginate[T any](list []T, page, size int) []T {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	start := (page - 1) * size
	if start >= len(list) {
		return []T{}
	}
	end := start + size
	if end > len(list) {
		end = len(list)
	}
	return list[start:end]
}

// PageCount is the number of pages needed for n items
func PageCount(n, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	if n == 0 {
		return 1
	}
	return (n + size - 1) / size
}
