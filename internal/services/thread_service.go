package services

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/ajramos/mailtui/internal/webmail"
)

// Thread is a conversation: messages sharing a thread id, oldest first
type Thread struct {
	ID       string
	Messages []*webmail.Message
}

// NewThread sorts a copy of messages ascending by timestamp (stable)
func NewThread(id string, messages []*webmail.Message) *Thread {
	sorted := make([]*webmail.Message, len(messages))
	copy(sorted, messages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp().Before(sorted[j].Timestamp())
	})
	return &Thread{ID: id, Messages: sorted}
}

// Main is the thread's representative message, the earliest one
func (t *Thread) Main() *webmail.Message {
	if t == nil || len(t.Messages) == 0 {
		return nil
	}
	return t.Messages[0]
}

// Latest is the most recent message
func (t *Thread) Latest() *webmail.Message {
	if t == nil || len(t.Messages) == 0 {
		return nil
	}
	return t.Messages[len(t.Messages)-1]
}

// Len returns the number of messages
func (t *Thread) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Messages)
}

// UnreadCount counts unread members
func (t *Thread) UnreadCount() int {
	n := 0
	for _, m := range t.Messages {
		if m.Unread() {
			n++
		}
	}
	return n
}

// Any reports whether some member satisfies pred
func (t *Thread) Any(pred func(*webmail.Message) bool) bool {
	for _, m := range t.Messages {
		if pred(m) {
			return true
		}
	}
	return false
}

// All reports whether every member satisfies pred
func (t *Thread) All(pred func(*webmail.Message) bool) bool {
	for _, m := range t.Messages {
		if !pred(m) {
			return false
		}
	}
	return true
}

// GroupByThread groups messages by thread id, preserving relative input order.
// Messages without a thread id are left out.
func GroupByThread(messages []*webmail.Message) map[string][]*webmail.Message {
	groups := make(map[string][]*webmail.Message)
	for _, m := range messages {
		if m == nil || strings.TrimSpace(m.ThreadID) == "" {
			continue
		}
		groups[m.ThreadID] = append(groups[m.ThreadID], m)
	}
	return groups
}

// ThreadOrder returns thread ids in order of first appearance
func ThreadOrder(messages []*webmail.Message) []string {
	seen := make(map[string]bool)
	var order []string
	for _, m := range messages {
		if m == nil || strings.TrimSpace(m.ThreadID) == "" || seen[m.ThreadID] {
			continue
		}
		seen[m.ThreadID] = true
		order = append(order, m.ThreadID)
	}
	return order
}

// BuildThreads returns one Thread per thread id in first-appearance order
func BuildThreads(messages []*webmail.Message) []*Thread {
	groups := GroupByThread(messages)
	order := ThreadOrder(messages)
	threads := make([]*Thread, 0, len(order))
	for _, id := range order {
		threads = append(threads, NewThread(id, groups[id]))
	}
	return threads
}

// SeenMarker marks a message read; MutationService implements it
type SeenMarker interface {
	MarkSeen(ctx context.Context, mailboxID string, msg *webmail.Message) error
}

// ThreadView is the state of one mounted conversation: which messages are
// expanded, which detail dropdowns are open, and which messages were already
// marked seen during this mount.
type ThreadView struct {
	mailboxID string
	userEmail string
	marker    SeenMarker
	logger    *log.Logger

	// OnChange runs after an async mark-seen completes on a still mounted view
	OnChange func()

	mu        sync.Mutex
	thread    *Thread
	expanded  map[int]bool
	dropdowns map[int]bool
	seen      map[string]bool
	closed    bool
	wg        sync.WaitGroup
}

// NewThreadView creates a view for mailboxID; userEmail decides which messages are addressed to the user
func NewThreadView(mailboxID, userEmail string, marker SeenMarker) *ThreadView {
	return &ThreadView{
		mailboxID: mailboxID,
		userEmail: strings.TrimSpace(userEmail),
		marker:    marker,
		thread:    &Thread{},
		expanded:  make(map[int]bool),
		dropdowns: make(map[int]bool),
		seen:      make(map[string]bool),
	}
}

// SetLogger sets the logger for the view
func (v *ThreadView) SetLogger(logger *log.Logger) {
	v.logger = logger
}

// Load sets the conversation. Unless preserve is set, only the latest message
// is expanded and every dropdown is closed.
func (v *ThreadView) Load(ctx context.Context, messages []*webmail.Message, preserve bool) {
	threadID := ""
	for _, m := range messages {
		if m != nil && m.ThreadID != "" {
			threadID = m.ThreadID
			break
		}
	}

	v.mu.Lock()
	v.thread = NewThread(threadID, messages)
	n := len(v.thread.Messages)
	if preserve {
		for i := range v.expanded {
			if i >= n {
				delete(v.expanded, i)
			}
		}
		for i := range v.dropdowns {
			if i >= n {
				delete(v.dropdowns, i)
			}
		}
		v.mu.Unlock()
		return
	}

	v.expanded = make(map[int]bool)
	v.dropdowns = make(map[int]bool)
	if n == 0 {
		v.mu.Unlock()
		return
	}
	v.expanded[n-1] = true
	latest := v.thread.Messages[n-1]
	v.mu.Unlock()

	v.maybeMarkSeen(ctx, latest)
}

// Thread returns the loaded conversation
func (v *ThreadView) Thread() *Thread {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.thread
}

// IsExpanded reports whether message i is expanded
func (v *ThreadView) IsExpanded(i int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.expanded[i]
}

// IsDropdownOpen reports whether message i shows its details
func (v *ThreadView) IsDropdownOpen(i int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dropdowns[i]
}

// ToggleMessage flips expansion of message i and reports the new state.
// Expanding an unread message addressed to the user marks it seen, once per mount.
func (v *ThreadView) ToggleMessage(ctx context.Context, i int) bool {
	v.mu.Lock()
	if i < 0 || i >= len(v.thread.Messages) {
		v.mu.Unlock()
		return false
	}
	now := !v.expanded[i]
	if now {
		v.expanded[i] = true
	} else {
		delete(v.expanded, i)
	}
	msg := v.thread.Messages[i]
	v.mu.Unlock()

	if now {
		v.maybeMarkSeen(ctx, msg)
	}
	return now
}

// ToggleDropdown flips the detail dropdown of message i; local only
func (v *ThreadView) ToggleDropdown(i int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if i < 0 || i >= len(v.thread.Messages) {
		return false
	}
	if v.dropdowns[i] {
		delete(v.dropdowns, i)
		return false
	}
	v.dropdowns[i] = true
	return true
}

// Close unmounts the view; completions arriving afterwards are ignored
func (v *ThreadView) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
}

// Wait blocks until in-flight mark-seen calls finish
func (v *ThreadView) Wait() {
	v.wg.Wait()
}

func (v *ThreadView) addressedToUser(m *webmail.Message) bool {
	if v.userEmail == "" {
		return false
	}
	return m.To.Contains(v.userEmail) || m.Cc.Contains(v.userEmail)
}

func (v *ThreadView) maybeMarkSeen(ctx context.Context, msg *webmail.Message) {
	if v.marker == nil || msg == nil || !msg.Unread() || !v.addressedToUser(msg) {
		return
	}
	ref, ok := webmail.RefOf(msg)
	if !ok {
		return
	}

	v.mu.Lock()
	if v.closed || v.seen[ref.String()] {
		v.mu.Unlock()
		return
	}
	v.seen[ref.String()] = true
	v.wg.Add(1)
	v.mu.Unlock()

	// Unmounting does not abort the request
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer v.wg.Done()
		err := v.marker.MarkSeen(ctx, v.mailboxID, msg)

		v.mu.Lock()
		closed := v.closed
		v.mu.Unlock()
		if closed {
			return
		}
		if err != nil {
			if v.logger != nil {
				v.logger.Printf("thread: mark seen %s failed: %v", ref, err)
			}
			return
		}
		if v.OnChange != nil {
			v.OnChange()
		}
	}()
}
