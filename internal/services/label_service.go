package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/ajramos/mailtui/internal/cache"
	"github.com/ajramos/mailtui/internal/webmail"
)

// LabelServiceImpl implements LabelService
type LabelServiceImpl struct {
	api      MailAPI
	store    *cache.Store
	notifier Notifier
	logger   *log.Logger
}

// NewLabelService creates a new label service. store may be nil, in which
// case label lists are fetched on every call and nothing is invalidated.
func NewLabelService(api MailAPI, store *cache.Store) *LabelServiceImpl {
	return &LabelServiceImpl{
		api:   api,
		store: store,
	}
}

// SetNotifier sets where toggle failures are reported
func (s *LabelServiceImpl) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetLogger sets the logger for debug output
func (s *LabelServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

func (s *LabelServiceImpl) invalidate(keys ...cache.Key) {
	if s.store == nil {
		return
	}
	for _, k := range keys {
		s.store.Invalidate(k)
	}
}

// ListLabels returns the mailbox's labels sorted by name
func (s *LabelServiceImpl) ListLabels(ctx context.Context, mailboxID string) ([]*webmail.Label, error) {
	if strings.TrimSpace(mailboxID) == "" {
		return nil, ErrMissingMailbox
	}
	fetch := func(ctx context.Context) ([]*webmail.Label, error) {
		labels, err := s.api.Labels(ctx, mailboxID)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(labels, func(i, j int) bool {
			return strings.ToLower(labels[i].Name) < strings.ToLower(labels[j].Name)
		})
		return labels, nil
	}

	var (
		labels []*webmail.Label
		err    error
	)
	if s.store != nil {
		labels, err = cache.Get(ctx, s.store, cache.LabelsKey(mailboxID), fetch)
	} else {
		labels, err = fetch(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	return labels, nil
}

// CreateLabel creates a label; the trimmed name must not be empty
func (s *LabelServiceImpl) CreateLabel(ctx context.Context, mailboxID string, label webmail.NewLabel) (*webmail.Label, error) {
	if strings.TrimSpace(mailboxID) == "" {
		return nil, ErrMissingMailbox
	}
	label.Name = strings.TrimSpace(label.Name)
	if label.Name == "" {
		return nil, ErrEmptyLabelName
	}

	created, err := s.api.CreateLabel(ctx, mailboxID, label)
	if err != nil {
		return nil, fmt.Errorf("failed to create label: %w", err)
	}
	s.invalidate(cache.LabelsKey(mailboxID))
	if created.ID != "" {
		return created, nil
	}
	return s.resolveCreated(ctx, mailboxID, label.Name)
}

// resolveCreated finds a label the server acknowledged without returning its id
func (s *LabelServiceImpl) resolveCreated(ctx context.Context, mailboxID, name string) (*webmail.Label, error) {
	labels, err := s.ListLabels(ctx, mailboxID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve label %q: %w", name, err)
	}
	for _, l := range labels {
		if l != nil && l.ID != "" && strings.EqualFold(strings.TrimSpace(l.Name), name) {
			return l, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrLabelUnresolved, name)
}

// OpenMenu loads the label list and the message's current assignment
func (s *LabelServiceImpl) OpenMenu(ctx context.Context, mailboxID string, msg *webmail.Message) (*LabelMenu, error) {
	if strings.TrimSpace(mailboxID) == "" {
		return nil, ErrMissingMailbox
	}
	ref, ok := webmail.RefOf(msg)
	if !ok {
		return nil, ErrInvalidRef
	}

	labels, err := s.ListLabels(ctx, mailboxID)
	if err != nil {
		return nil, err
	}
	menu := &LabelMenu{
		svc:       s,
		mailboxID: mailboxID,
		ref:       ref,
		threadID:  msg.ThreadID,
		labels:    labels,
		assigned:  make(map[string]bool),
	}
	if err := menu.Refresh(ctx); err != nil {
		return nil, err
	}
	return menu, nil
}

// LabelMenu is the label picker of one message. Its selection mirrors the
// server's assignment, flipped optimistically while a toggle is in flight.
type LabelMenu struct {
	svc       *LabelServiceImpl
	mailboxID string
	ref       webmail.MessageRef
	threadID  string

	mu       sync.Mutex
	labels   []*webmail.Label
	assigned map[string]bool
}

// Ref returns the message the menu edits
func (m *LabelMenu) Ref() webmail.MessageRef { return m.ref }

// Labels returns every label of the mailbox
func (m *LabelMenu) Labels() []*webmail.Label {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*webmail.Label(nil), m.labels...)
}

// IsAssigned reports the current local selection of labelID
func (m *LabelMenu) IsAssigned(labelID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assigned[labelID]
}

// Assigned returns the selected label ids, sorted
func (m *LabelMenu) Assigned() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.assigned))
	for id := range m.assigned {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Refresh replaces the selection with the server's assignment
func (m *LabelMenu) Refresh(ctx context.Context) error {
	labels, err := m.svc.api.EmailLabels(ctx, m.ref)
	if err != nil {
		return fmt.Errorf("failed to load labels of %s: %w", m.ref, err)
	}
	selected := make(map[string]bool, len(labels))
	for _, l := range labels {
		if l != nil && l.ID != "" {
			selected[l.ID] = true
		}
	}
	m.mu.Lock()
	m.assigned = selected
	m.mu.Unlock()
	return nil
}

// Toggle flips labelID locally, then assigns or removes it on the server.
// Success invalidates every query the label touches; failure only the
// message's label query so the next read restores the server's view.
func (m *LabelMenu) Toggle(ctx context.Context, labelID string) error {
	assign, err := m.Flip(labelID)
	if err != nil {
		return err
	}
	return m.Confirm(ctx, labelID, assign)
}

// Flip changes the local selection of labelID without any request and
// reports whether the label is now assigned. Callers redraw, then Confirm.
func (m *LabelMenu) Flip(labelID string) (bool, error) {
	labelID = strings.TrimSpace(labelID)
	if labelID == "" {
		return false, ErrInvalidLabelID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	assign := !m.assigned[labelID]
	if assign {
		m.assigned[labelID] = true
	} else {
		delete(m.assigned, labelID)
	}
	return assign, nil
}

// Confirm sends the assignment chosen by Flip to the server
func (m *LabelMenu) Confirm(ctx context.Context, labelID string, assign bool) error {
	labelID = strings.TrimSpace(labelID)
	if labelID == "" {
		return ErrInvalidLabelID
	}

	var err error
	if assign {
		err = m.svc.api.AssignLabel(ctx, m.ref, labelID)
	} else {
		err = m.svc.api.RemoveLabel(ctx, m.ref, labelID)
	}

	if err != nil {
		m.svc.invalidate(cache.EmailLabelsKey(m.ref))
		verb := "apply"
		if !assign {
			verb = "remove"
		}
		err = fmt.Errorf("failed to %s label: %w", verb, err)
		if m.svc.logger != nil {
			m.svc.logger.Printf("labels: %s %s on %s: %v", verb, labelID, m.ref, err)
		}
		if m.svc.notifier != nil {
			m.svc.notifier.ShowError(ctx, err.Error())
		}
		return err
	}

	keys := []cache.Key{
		cache.EmailLabelsKey(m.ref),
		cache.MailboxKey(m.mailboxID),
		cache.LabelsKey(m.mailboxID),
	}
	if m.threadID != "" {
		keys = append(keys, cache.ConversationKey(m.mailboxID, m.threadID))
	}
	keys = append(keys, cache.LabelEmailsKeys(labelID)...)
	m.svc.invalidate(keys...)
	return nil
}
