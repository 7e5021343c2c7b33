package services

import (
	"context"
	"errors"
	"sync"

	"github.com/ajramos/mailtui/internal/cache"
	"github.com/ajramos/mailtui/internal/webmail"
	"github.com/stretchr/testify/mock"
)

var errBackend = errors.New("backend unavailable")

// fakeAPI is an in-memory backend honoring flag updates and label assignment
type fakeAPI struct {
	mu          sync.Mutex
	messages    []*webmail.Message
	sent        map[webmail.SendStatus][]*webmail.Message
	labels      []*webmail.Label
	assigned    map[webmail.MessageRef]map[string]bool
	outbox      []webmail.OutgoingMail
	updates     []webmail.MessageRef
	failUpdate  map[webmail.MessageRef]bool
	failConv    bool
	failLabelOp bool
	failSend    bool
	// ackCreate makes CreateLabel answer without the new id; hideCreated
	// also keeps the label out of later listings
	ackCreate   bool
	hideCreated bool
	calls       map[string]int
}

func newFakeAPI(msgs ...*webmail.Message) *fakeAPI {
	return &fakeAPI{
		messages:   msgs,
		sent:       make(map[webmail.SendStatus][]*webmail.Message),
		assigned:   make(map[webmail.MessageRef]map[string]bool),
		failUpdate: make(map[webmail.MessageRef]bool),
		calls:      make(map[string]int),
	}
}

func (f *fakeAPI) count(name string) {
	f.calls[name]++
}

func (f *fakeAPI) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) find(ref webmail.MessageRef) *webmail.Message {
	for _, m := range f.messages {
		if m.Ref() == ref {
			return m
		}
	}
	for _, list := range f.sent {
		for _, m := range list {
			if m.Ref() == ref {
				return m
			}
		}
	}
	return nil
}

func (f *fakeAPI) Conversation(ctx context.Context, mailboxID, threadID string) ([]*webmail.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("conversation")
	if f.failConv {
		return nil, errBackend
	}
	var out []*webmail.Message
	for _, m := range f.messages {
		if m.ThreadID == threadID {
			c := *m
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeAPI) UpdateEmail(ctx context.Context, ref webmail.MessageRef, update webmail.FlagUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("update")
	if f.failUpdate[ref] {
		return errBackend
	}
	m := f.find(ref)
	if m == nil {
		return webmail.ErrNotFound
	}
	update.ApplyTo(m)
	f.updates = append(f.updates, ref)
	return nil
}

func (f *fakeAPI) AllMails(ctx context.Context, mailboxID string) ([]*webmail.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("allmails")
	out := make([]*webmail.Message, 0, len(f.messages))
	for _, m := range f.messages {
		c := *m
		out = append(out, &c)
	}
	return out, nil
}

func (f *fakeAPI) SentMails(ctx context.Context, mailboxID string, status webmail.SendStatus) ([]*webmail.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("sendmail")
	return append([]*webmail.Message(nil), f.sent[status]...), nil
}

func (f *fakeAPI) SendMail(ctx context.Context, mail webmail.OutgoingMail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("send")
	if f.failSend {
		return errBackend
	}
	f.outbox = append(f.outbox, mail)
	return nil
}

func (f *fakeAPI) Labels(ctx context.Context, mailboxID string) ([]*webmail.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("labels")
	return append([]*webmail.Label(nil), f.labels...), nil
}

func (f *fakeAPI) CreateLabel(ctx context.Context, mailboxID string, label webmail.NewLabel) (*webmail.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("createLabel")
	l := &webmail.Label{ID: "lbl-" + label.Name, Name: label.Name, Color: label.Color, IsVisible: label.IsVisible}
	if !f.hideCreated {
		f.labels = append(f.labels, l)
	}
	if f.ackCreate {
		return &webmail.Label{Name: label.Name}, nil
	}
	return l, nil
}

func (f *fakeAPI) EmailLabels(ctx context.Context, ref webmail.MessageRef) ([]*webmail.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("emailLabels")
	var out []*webmail.Label
	for _, l := range f.labels {
		if f.assigned[ref][l.ID] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeAPI) AssignLabel(ctx context.Context, ref webmail.MessageRef, labelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("assign")
	if f.failLabelOp {
		return errBackend
	}
	if f.assigned[ref] == nil {
		f.assigned[ref] = make(map[string]bool)
	}
	f.assigned[ref][labelID] = true
	return nil
}

func (f *fakeAPI) RemoveLabel(ctx context.Context, ref webmail.MessageRef, labelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("remove")
	if f.failLabelOp {
		return errBackend
	}
	delete(f.assigned[ref], labelID)
	return nil
}

func (f *fakeAPI) EmailsByLabel(ctx context.Context, labelID string, forSendMail bool) ([]*webmail.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("byLabel")
	var out []*webmail.Message
	for _, m := range f.messages {
		if (m.Ref().Kind == webmail.RefSent) != forSendMail {
			continue
		}
		if f.assigned[m.Ref()][labelID] {
			c := *m
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeAPI) DeleteEmail(ctx context.Context, ref webmail.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("delete")
	for i, m := range f.messages {
		if m.Ref() == ref {
			f.messages = append(f.messages[:i], f.messages[i+1:]...)
			return nil
		}
	}
	return webmail.ErrNotFound
}

func (f *fakeAPI) starred(threadID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, m := range f.messages {
		if m.ThreadID == threadID && m.IsStarred {
			ids = append(ids, m.EmailUniqueID)
		}
	}
	return ids
}

func (f *fakeAPI) message(id string) webmail.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.find(webmail.Received(id))
}

// recordingInvalidator remembers every invalidated key in order
type recordingInvalidator struct {
	mu   sync.Mutex
	keys []cache.Key
}

func (r *recordingInvalidator) Invalidate(key cache.Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
}

func (r *recordingInvalidator) all() []cache.Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]cache.Key(nil), r.keys...)
}

func (r *recordingInvalidator) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = nil
}

// mockNotifier records toasts through testify/mock
type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) ShowError(ctx context.Context, msg string) {
	m.Called(ctx, msg)
}

func (m *mockNotifier) ShowSuccess(ctx context.Context, msg string) {
	m.Called(ctx, msg)
}

func newMsg(id, thread, createdAt string) *webmail.Message {
	return &webmail.Message{EmailUniqueID: id, ThreadID: thread, CreatedAt: createdAt, MailID: "box1"}
}
