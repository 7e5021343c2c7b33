package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/ajramos/mailtui/internal/cache"
	"github.com/ajramos/mailtui/internal/webmail"
	"golang.org/x/sync/errgroup"
)

// Action is a user-level flag change
type Action string

const (
	ActionStar        Action = "star"
	ActionUnstar      Action = "unstar"
	ActionArchive     Action = "archive"
	ActionUnarchive   Action = "unarchive"
	ActionSpam        Action = "spam"
	ActionNotSpam     Action = "notspam"
	ActionTrash       Action = "trash"
	ActionRestore     Action = "restore"
	ActionMute        Action = "mute"
	ActionUnmute      Action = "unmute"
	ActionSnooze      Action = "snooze"
	ActionUnsnooze    Action = "unsnooze"
	ActionTask        Action = "task"
	ActionUntask      Action = "untask"
	ActionImportant   Action = "important"
	ActionUnimportant Action = "unimportant"
	ActionRead        Action = "read"
	ActionUnread      Action = "unread"
	ActionBlock       Action = "block"
	ActionUnblock     Action = "unblock"
)

var actionUpdates = map[Action]webmail.FlagUpdate{
	ActionStar:        {IsStarred: webmail.Bool(true)},
	ActionUnstar:      {IsStarred: webmail.Bool(false)},
	ActionArchive:     {IsArchived: webmail.Bool(true)},
	ActionUnarchive:   {IsArchived: webmail.Bool(false)},
	ActionSpam:        {IsSpam: webmail.Bool(true)},
	ActionNotSpam:     {IsSpam: webmail.Bool(false)},
	ActionTrash:       {IsTrash: webmail.Bool(true)},
	ActionRestore:     {IsTrash: webmail.Bool(false)},
	ActionMute:        {IsMute: webmail.Bool(true)},
	ActionUnmute:      {IsMute: webmail.Bool(false)},
	ActionSnooze:      {IsSnoozed: webmail.Bool(true)},
	ActionUnsnooze:    {IsSnoozed: webmail.Bool(false)},
	ActionTask:        {IsAddToTask: webmail.Bool(true)},
	ActionUntask:      {IsAddToTask: webmail.Bool(false)},
	ActionImportant:   {IsImportant: webmail.Bool(true)},
	ActionUnimportant: {IsImportant: webmail.Bool(false)},
	ActionRead:        {IsRead: webmail.Bool(true)},
	ActionUnread:      {IsRead: webmail.Bool(false)},
	ActionBlock:       {IsBlocked: webmail.Bool(true)},
	ActionUnblock:     {IsBlocked: webmail.Bool(false)},
}

// actionVerbs renders toast text
var actionVerbs = map[Action]string{
	ActionStar: "Starred", ActionUnstar: "Unstarred",
	ActionArchive: "Archived", ActionUnarchive: "Moved to inbox",
	ActionSpam: "Marked as spam", ActionNotSpam: "Marked as not spam",
	ActionTrash: "Moved to trash", ActionRestore: "Restored",
	ActionMute: "Muted", ActionUnmute: "Unmuted",
	ActionSnooze: "Snoozed", ActionUnsnooze: "Unsnoozed",
	ActionTask: "Added to tasks", ActionUntask: "Removed from tasks",
	ActionImportant: "Marked important", ActionUnimportant: "Marked not important",
	ActionRead: "Marked as read", ActionUnread: "Marked as unread",
	ActionBlock: "Blocked", ActionUnblock: "Unblocked",
}

// ParseAction validates an action name
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := actionUpdates[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	return a, nil
}

// Verb is the past-tense description shown after the action succeeds
func (a Action) Verb() string {
	if v, ok := actionVerbs[a]; ok {
		return v
	}
	return capitalize(string(a))
}

// Update returns the flag change the action applies
func (a Action) Update() (webmail.FlagUpdate, bool) {
	u, ok := actionUpdates[a]
	return u, ok
}

// Inverse returns the action undoing a
func (a Action) Inverse() Action {
	switch a {
	case ActionNotSpam:
		return ActionSpam
	case ActionRestore:
		return ActionTrash
	case ActionSpam:
		return ActionNotSpam
	case ActionTrash:
		return ActionRestore
	}
	if strings.HasPrefix(string(a), "un") {
		return Action(strings.TrimPrefix(string(a), "un"))
	}
	return Action("un" + string(a))
}

// MutationRequest targets one message, or a whole thread when ApplyToThread is set
type MutationRequest struct {
	MailboxID     string
	Action        Action
	Message       *webmail.Message
	ThreadID      string // defaults to Message.ThreadID
	ApplyToThread bool
	// LabelID names the label view the action was taken from, if any
	LabelID string
	// MainRef overrides which message is the thread's main one for star propagation
	MainRef *webmail.MessageRef
}

func (r MutationRequest) threadID() string {
	if id := strings.TrimSpace(r.ThreadID); id != "" {
		return id
	}
	if r.Message != nil {
		return strings.TrimSpace(r.Message.ThreadID)
	}
	return ""
}

// BulkRequest applies one action to many messages
type BulkRequest struct {
	MailboxID     string
	Action        Action
	Messages      []*webmail.Message
	ApplyToThread bool
	LabelID       string
}

// MutationResult reports what a mutation touched
type MutationResult struct {
	Updated     []webmail.MessageRef
	Failed      []webmail.MessageRef
	Invalidated []cache.Key
}

// target is one message update the coordinator will issue
type target struct {
	ref    webmail.MessageRef
	thread string
}

// DefaultMutationConcurrency bounds in-flight update requests per invocation
const DefaultMutationConcurrency = 4

// MutationServiceImpl is the mutation/invalidation coordinator
type MutationServiceImpl struct {
	api         MailAPI
	invalidator CacheInvalidator
	notifier    Notifier
	logger      *log.Logger
	concurrency int
}

// NewMutationService creates the coordinator
func NewMutationService(api MailAPI, invalidator CacheInvalidator) *MutationServiceImpl {
	return &MutationServiceImpl{
		api:         api,
		invalidator: invalidator,
		concurrency: DefaultMutationConcurrency,
	}
}

// SetNotifier sets where failures and confirmations are reported
func (s *MutationServiceImpl) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetLogger sets the logger for debug output
func (s *MutationServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// SetConcurrency bounds parallel update requests; values below 1 mean 1
func (s *MutationServiceImpl) SetConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	s.concurrency = n
}

func (s *MutationServiceImpl) logf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

// Apply performs the request, then invalidates every dependent query once all
// updates have settled, whether they succeeded or not.
func (s *MutationServiceImpl) Apply(ctx context.Context, req MutationRequest) (*MutationResult, error) {
	if err := validateMutation(req.MailboxID, req.Action); err != nil {
		return nil, err
	}

	res, keys, err := s.apply(ctx, req)
	s.invalidate(res, keys)

	if err != nil {
		s.notifyError(ctx, req.Action, err)
		return res, err
	}
	return res, nil
}

// ToggleStar stars an unstarred message and unstars a starred one
func (s *MutationServiceImpl) ToggleStar(ctx context.Context, req MutationRequest) (*MutationResult, error) {
	if req.Message == nil {
		return nil, ErrNoTarget
	}
	req.Action = ActionStar
	if req.Message.IsStarred {
		req.Action = ActionUnstar
	}
	return s.Apply(ctx, req)
}

// MarkSeen marks one message read
func (s *MutationServiceImpl) MarkSeen(ctx context.Context, mailboxID string, msg *webmail.Message) error {
	_, err := s.Apply(ctx, MutationRequest{MailboxID: mailboxID, Action: ActionRead, Message: msg})
	return err
}

// Bulk runs the single-target logic for every message concurrently and
// invalidates the union of dependent queries once, after all have settled.
func (s *MutationServiceImpl) Bulk(ctx context.Context, req BulkRequest) (*MutationResult, error) {
	if err := validateMutation(req.MailboxID, req.Action); err != nil {
		return nil, err
	}
	if len(req.Messages) == 0 {
		return nil, ErrNoTarget
	}

	var (
		mu   sync.Mutex
		all  = &MutationResult{}
		keys = newKeySet()
		errs []error
	)

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, msg := range req.Messages {
		msg := msg
		g.Go(func() error {
			res, k, err := s.apply(ctx, MutationRequest{
				MailboxID:     req.MailboxID,
				Action:        req.Action,
				Message:       msg,
				ApplyToThread: req.ApplyToThread,
				LabelID:       req.LabelID,
			})
			mu.Lock()
			defer mu.Unlock()
			if res != nil {
				all.Updated = append(all.Updated, res.Updated...)
				all.Failed = append(all.Failed, res.Failed...)
			}
			keys.addAll(k)
			if err != nil {
				errs = append(errs, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	all.Updated = dedupeRefs(all.Updated)
	all.Failed = dedupeRefs(all.Failed)
	s.invalidate(all, keys)

	if len(errs) > 0 {
		err := errors.Join(errs...)
		s.notifyError(ctx, req.Action, err)
		return all, err
	}
	if s.notifier != nil {
		s.notifier.ShowSuccess(ctx, fmt.Sprintf("%s %d messages", actionVerbs[req.Action], len(all.Updated)))
	}
	return all, nil
}

// PermanentlyDelete removes a trashed received message for good
func (s *MutationServiceImpl) PermanentlyDelete(ctx context.Context, mailboxID string, msg *webmail.Message) error {
	if strings.TrimSpace(mailboxID) == "" {
		return ErrMissingMailbox
	}
	ref, ok := webmail.RefOf(msg)
	if !ok || ref.Kind != webmail.RefReceived {
		return ErrInvalidRef
	}
	if !msg.IsTrash {
		return ErrNotInTrash
	}

	err := s.api.DeleteEmail(ctx, ref)

	keys := newKeySet()
	keys.add(cache.MailboxKey(mailboxID))
	if msg.ThreadID != "" {
		keys.add(cache.ConversationKey(mailboxID, msg.ThreadID))
	}
	keys.add(cache.EmailLabelsKey(ref))
	s.invalidate(&MutationResult{}, keys)

	if err != nil {
		err = fmt.Errorf("failed to delete message: %w", err)
		if s.notifier != nil {
			s.notifier.ShowError(ctx, "Delete failed: "+err.Error())
		}
		return err
	}
	if s.notifier != nil {
		s.notifier.ShowSuccess(ctx, "Message deleted permanently")
	}
	return nil
}

func validateMutation(mailboxID string, action Action) error {
	if strings.TrimSpace(mailboxID) == "" {
		return ErrMissingMailbox
	}
	if _, ok := action.Update(); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	return nil
}

// apply plans and issues the updates of one request without invalidating.
// It returns the keys that must be invalidated once the caller is done.
func (s *MutationServiceImpl) apply(ctx context.Context, req MutationRequest) (*MutationResult, *keySet, error) {
	threadID := req.threadID()
	keys := baseKeys(req.MailboxID, req.LabelID)
	if threadID != "" {
		keys.add(cache.ConversationKey(req.MailboxID, threadID))
	}

	targets, planErr := s.plan(ctx, req, threadID)
	if len(targets) == 0 {
		if planErr == nil {
			planErr = ErrNoTarget
		}
		return &MutationResult{}, keys, planErr
	}

	res := s.execute(ctx, req.Action, targets)
	for _, t := range targets {
		if t.thread != "" {
			keys.add(cache.ConversationKey(req.MailboxID, t.thread))
		}
		keys.add(cache.EmailLabelsKey(t.ref))
	}

	var errs []error
	if planErr != nil {
		errs = append(errs, planErr)
	}
	if len(res.Failed) > 0 {
		errs = append(errs, fmt.Errorf("%d of %d updates failed", len(res.Failed), len(targets)))
	}
	return res, keys, errors.Join(errs...)
}

// plan resolves which messages the request updates
func (s *MutationServiceImpl) plan(ctx context.Context, req MutationRequest, threadID string) ([]target, error) {
	var self *target
	if req.Message != nil {
		if ref, ok := webmail.RefOf(req.Message); ok {
			self = &target{ref: ref, thread: threadID}
		}
	}

	needConversation := threadID != "" &&
		(req.ApplyToThread || req.Action == ActionStar || req.Action == ActionUnstar)
	if !needConversation {
		if self == nil {
			if req.Message == nil && !req.ApplyToThread {
				return nil, ErrNoTarget
			}
			return nil, ErrInvalidRef
		}
		return []target{*self}, nil
	}

	conv, err := s.api.Conversation(ctx, req.MailboxID, threadID)
	if err != nil {
		err = fmt.Errorf("failed to load conversation %s: %w", threadID, err)
		s.logf("mutation: %v", err)
		// Without the conversation only the message itself can be updated
		if self == nil {
			return nil, err
		}
		return []target{*self}, err
	}
	thread := NewThread(threadID, validMessages(conv))

	// Star keeps its own asymmetry even on a thread row: self plus main to
	// star, every starred member to unstar.
	starAction := req.Action == ActionStar || req.Action == ActionUnstar
	if req.ApplyToThread && !starAction {
		targets := make([]target, 0, thread.Len())
		for _, m := range thread.Messages {
			targets = append(targets, target{ref: m.Ref(), thread: threadID})
		}
		if len(targets) == 0 && self != nil {
			targets = append(targets, *self)
		}
		return dedupeTargets(targets), nil
	}

	var targets []target
	if self != nil {
		targets = append(targets, *self)
	}

	switch req.Action {
	case ActionStar:
		mainRef, mainStarred := s.mainOf(thread, req.MainRef)
		if mainRef.Valid() && !mainStarred && (self == nil || mainRef != self.ref) {
			targets = append(targets, target{ref: mainRef, thread: threadID})
		}
	case ActionUnstar:
		for _, m := range thread.Messages {
			if m.IsStarred {
				targets = append(targets, target{ref: m.Ref(), thread: threadID})
			}
		}
	}

	if len(targets) == 0 {
		return nil, ErrInvalidRef
	}
	return dedupeTargets(targets), nil
}

// mainOf returns the thread's main message ref and whether it is starred
func (s *MutationServiceImpl) mainOf(thread *Thread, override *webmail.MessageRef) (webmail.MessageRef, bool) {
	if override != nil && override.Valid() {
		for _, m := range thread.Messages {
			if m.Ref() == *override {
				return *override, m.IsStarred
			}
		}
		return *override, false
	}
	main := thread.Main()
	if main == nil {
		return webmail.MessageRef{}, false
	}
	return main.Ref(), main.IsStarred
}

// execute issues one update per target with bounded concurrency and waits for all
func (s *MutationServiceImpl) execute(ctx context.Context, action Action, targets []target) *MutationResult {
	update, _ := action.Update()
	res := &MutationResult{}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, t := range targets {
		t := t
		g.Go(func() error {
			err := s.api.UpdateEmail(ctx, t.ref, update)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logf("mutation: %s %s failed: %v", action, t.ref, err)
				res.Failed = append(res.Failed, t.ref)
				return nil
			}
			res.Updated = append(res.Updated, t.ref)
			return nil
		})
	}
	_ = g.Wait()
	return res
}

func (s *MutationServiceImpl) invalidate(res *MutationResult, keys *keySet) {
	if s.invalidator == nil || keys == nil {
		return
	}
	for _, k := range keys.list() {
		s.invalidator.Invalidate(k)
	}
	if res != nil {
		res.Invalidated = keys.list()
	}
}

func (s *MutationServiceImpl) notifyError(ctx context.Context, action Action, err error) {
	s.logf("mutation: %s failed: %v", action, err)
	if s.notifier != nil {
		s.notifier.ShowError(ctx, fmt.Sprintf("%s failed: %v", capitalize(string(action)), err))
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// baseKeys are invalidated after every flag change: the received list, every
// sent-side list and, when acting from a label view, that label's lists
func baseKeys(mailboxID, labelID string) *keySet {
	keys := newKeySet()
	keys.add(cache.MailboxKey(mailboxID))
	keys.addAll(sliceKeys(cache.SentKeys(mailboxID)))
	if labelID != "" {
		keys.addAll(sliceKeys(cache.LabelEmailsKeys(labelID)))
	}
	return keys
}

// keySet is an insertion-ordered set of cache keys
type keySet struct {
	order []cache.Key
	seen  map[cache.Key]bool
}

func newKeySet() *keySet {
	return &keySet{seen: make(map[cache.Key]bool)}
}

func sliceKeys(keys []cache.Key) *keySet {
	ks := newKeySet()
	for _, k := range keys {
		ks.add(k)
	}
	return ks
}

func (ks *keySet) add(k cache.Key) {
	if ks.seen[k] {
		return
	}
	ks.seen[k] = true
	ks.order = append(ks.order, k)
}

func (ks *keySet) addAll(other *keySet) {
	if other == nil {
		return
	}
	for _, k := range other.order {
		ks.add(k)
	}
}

func (ks *keySet) list() []cache.Key {
	out := make([]cache.Key, len(ks.order))
	copy(out, ks.order)
	return out
}

func dedupeTargets(in []target) []target {
	seen := make(map[webmail.MessageRef]bool, len(in))
	out := in[:0:0]
	for _, t := range in {
		if !t.ref.Valid() || seen[t.ref] {
			continue
		}
		seen[t.ref] = true
		out = append(out, t)
	}
	return out
}

func dedupeRefs(in []webmail.MessageRef) []webmail.MessageRef {
	seen := make(map[webmail.MessageRef]bool, len(in))
	var out []webmail.MessageRef
	for _, r := range in {
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

// validMessages drops nil messages and messages without any id
func validMessages(in []*webmail.Message) []*webmail.Message {
	out := make([]*webmail.Message, 0, len(in))
	for _, m := range in {
		if _, ok := webmail.RefOf(m); ok {
			out = append(out, m)
		}
	}
	return out
}
