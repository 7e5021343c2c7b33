package services

import (
	"sort"
	"sync"

	"github.com/ajramos/mailtui/internal/webmail"
)

// ViewState is the ephemeral state of one mailbox session: category, ordering,
// search, page and the bulk selection. Switching category or search resets the
// page and clears the selection.
type ViewState struct {
	mu        sync.RWMutex
	mailboxID string
	category  Category
	inboxType InboxType
	search    SearchFilter
	page      int
	pageSize  int
	threaded  bool
	selected  map[webmail.MessageRef]bool
}

// NewViewState starts a session on category with the given ordering and page size
func NewViewState(mailboxID string, category Category, inboxType InboxType, pageSize int) *ViewState {
	if category == "" {
		category = CategoryInbox
	}
	if inboxType == "" {
		inboxType = InboxDefault
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &ViewState{
		mailboxID: mailboxID,
		category:  category,
		inboxType: inboxType,
		page:      1,
		pageSize:  pageSize,
		selected:  make(map[webmail.MessageRef]bool),
	}
}

// Query returns the mailbox query for the current state
func (v *ViewState) Query() MailboxQuery {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return MailboxQuery{
		MailboxID: v.mailboxID,
		Category:  v.category,
		InboxType: v.inboxType,
		Search:    v.search,
		Page:      v.page,
		PageSize:  v.pageSize,
		Threaded:  v.threaded,
	}
}

// MailboxID returns the mailbox the session is bound to
func (v *ViewState) MailboxID() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.mailboxID
}

// Category returns the active category
func (v *ViewState) Category() Category {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.category
}

// Page returns the current 1-based page
func (v *ViewState) Page() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.page
}

// SetMailbox rebinds the session, e.g. after an account switch
func (v *ViewState) SetMailbox(mailboxID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mailboxID = mailboxID
	v.resetLocked()
	v.search = SearchFilter{}
}

// SetCategory switches category
func (v *ViewState) SetCategory(c Category) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if c == "" {
		c = CategoryInbox
	}
	if c == v.category {
		return
	}
	v.category = c
	v.resetLocked()
}

// SetInboxType changes ordering and returns to the first page
func (v *ViewState) SetInboxType(t InboxType) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.inboxType = t
	v.page = 1
}

// SetPageSize changes the page length; non-positive sizes fall back to the default
func (v *ViewState) SetPageSize(n int) {
	if n <= 0 {
		n = DefaultPageSize
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pageSize = n
	v.page = 1
}

// SetSearch applies a search query; an empty query clears it
func (v *ViewState) SetSearch(query string) SearchFilter {
	f := ParseSearch(query)
	v.mu.Lock()
	defer v.mu.Unlock()
	v.search = f
	v.resetLocked()
	return f
}

// Search returns the active search
func (v *ViewState) Search() SearchFilter {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.search
}

// SetThreaded toggles conversation grouping of the list
func (v *ViewState) SetThreaded(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.threaded = on
	v.page = 1
}

// Threaded reports whether the list is grouped by conversation
func (v *ViewState) Threaded() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.threaded
}

// NextPage advances unless already on the last of pageCount pages
func (v *ViewState) NextPage(pageCount int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.page >= pageCount {
		return false
	}
	v.page++
	return true
}

// PrevPage goes back unless on the first page
func (v *ViewState) PrevPage() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.page <= 1 {
		return false
	}
	v.page--
	return true
}

// ToggleSelected flips ref in the bulk selection and reports the new state
func (v *ViewState) ToggleSelected(ref webmail.MessageRef) bool {
	if !ref.Valid() {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.selected[ref] {
		delete(v.selected, ref)
		return false
	}
	v.selected[ref] = true
	return true
}

// IsSelected reports whether ref is in the bulk selection
func (v *ViewState) IsSelected(ref webmail.MessageRef) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.selected[ref]
}

// SelectAll adds every valid message to the selection
func (v *ViewState) SelectAll(messages []*webmail.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, m := range messages {
		if ref, ok := webmail.RefOf(m); ok {
			v.selected[ref] = true
		}
	}
}

// Selected returns the selection in a stable order
func (v *ViewState) Selected() []webmail.MessageRef {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]webmail.MessageRef, 0, len(v.selected))
	for ref := range v.selected {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// SelectedMessages resolves the selection against the given list
func (v *ViewState) SelectedMessages(messages []*webmail.Message) []*webmail.Message {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var out []*webmail.Message
	for _, m := range messages {
		if ref, ok := webmail.RefOf(m); ok && v.selected[ref] {
			out = append(out, m)
		}
	}
	return out
}

// SelectionCount returns how many messages are selected
func (v *ViewState) SelectionCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.selected)
}

// ClearSelection empties the bulk selection
func (v *ViewState) ClearSelection() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.selected = make(map[webmail.MessageRef]bool)
}

func (v *ViewState) resetLocked() {
	v.page = 1
	v.selected = make(map[webmail.MessageRef]bool)
}
