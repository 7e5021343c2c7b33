package events

import (
	"reflect"
	"sync"

	"github.com/ajramos/mailtui/internal/webmail"
	"github.com/google/uuid"
)

// ComposeMode selects how a compose form is prefilled
type ComposeMode string

const (
	ComposeNew      ComposeMode = "new"
	ComposeReply    ComposeMode = "reply"
	ComposeReplyAll ComposeMode = "reply_all"
	ComposeForward  ComposeMode = "forward"
)

// ComposeRequested asks the compose view to open, optionally with a message to reply to
type ComposeRequested struct {
	Mode    ComposeMode
	Message *webmail.Message
}

// SettingsRequested asks the settings view to open on a tab
type SettingsRequested struct {
	Tab string
}

// AccountSwitched announces that the active account changed
type AccountSwitched struct {
	Name      string
	MailboxID string
}

// Bus is a typed publish/subscribe channel between the mailbox controller and
// the compose and settings views. Handlers run synchronously on the publisher's goroutine.
type Bus struct {
	mu   sync.RWMutex
	subs map[reflect.Type]map[string]func(interface{})
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{subs: make(map[reflect.Type]map[string]func(interface{}))}
}

// Subscribe registers fn for events of type T and returns a cancel func
func Subscribe[T any](b *Bus, fn func(T)) (cancel func()) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	id := uuid.NewString()

	b.mu.Lock()
	if b.subs[t] == nil {
		b.subs[t] = make(map[string]func(interface{}))
	}
	b.subs[t][id] = func(ev interface{}) { fn(ev.(T)) }
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[t], id)
	}
}

// Publish delivers ev to every subscriber of its type and returns how many received it
func Publish[T any](b *Bus, ev T) int {
	t := reflect.TypeOf((*T)(nil)).Elem()

	b.mu.RLock()
	handlers := make([]func(interface{}), 0, len(b.subs[t]))
	for _, h := range b.subs[t] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
	return len(handlers)
}
