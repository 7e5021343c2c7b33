package services

import (
	"context"
	"testing"

	"github.com/ajramos/mailtui/internal/cache"
	"github.com/ajramos/mailtui/internal/webmail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRepositoryImpl_ValidationErrors(t *testing.T) {
	repo := NewMessageRepository(newFakeAPI(), nil)
	ctx := context.Background()

	_, err := repo.Mailbox(ctx, "")
	assert.ErrorIs(t, err, ErrMissingMailbox)

	_, err = repo.Sent(ctx, " ", webmail.StatusSent)
	assert.ErrorIs(t, err, ErrMissingMailbox)

	_, err = repo.LabelMessages(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidLabelID)

	_, err = repo.Conversation(ctx, "box1", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMessageRepositoryImpl_DropsInvalidMessages(t *testing.T) {
	api := newFakeAPI(
		newMsg("m1", "t1", ""),
		&webmail.Message{Subject: "orphan"},
		&webmail.Message{SendmailID: "s1"},
	)
	repo := NewMessageRepository(api, nil)

	msgs, err := repo.Mailbox(context.Background(), "box1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, webmail.Received("m1"), msgs[0].Ref())
	assert.Equal(t, webmail.Sent("s1"), msgs[1].Ref())
}

func TestMessageRepositoryImpl_CachesUntilInvalidated(t *testing.T) {
	api := newFakeAPI(newMsg("m1", "t1", ""))
	store, err := cache.NewStore(8)
	require.NoError(t, err)
	repo := NewMessageRepository(api, store)
	ctx := context.Background()

	_, err = repo.Mailbox(ctx, "box1")
	require.NoError(t, err)
	_, err = repo.Mailbox(ctx, "box1")
	require.NoError(t, err)
	assert.Equal(t, 1, api.callCount("allmails"))

	store.Invalidate(cache.MailboxKey("box1"))
	_, err = repo.Mailbox(ctx, "box1")
	require.NoError(t, err)
	assert.Equal(t, 2, api.callCount("allmails"))
}

func TestMessageRepositoryImpl_LabelMessages(t *testing.T) {
	api := newFakeAPI(newMsg("m1", "t1", ""), newMsg("m2", "t2", ""))
	api.assigned[webmail.Received("m2")] = map[string]bool{"work": true}
	repo := NewMessageRepository(api, nil)

	msgs, err := repo.LabelMessages(context.Background(), "work")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "m2", msgs[0].EmailUniqueID)
	assert.Equal(t, 2, api.callCount("byLabel"), "received and sent lists")
}

func TestMessageRepositoryImpl_Conversation(t *testing.T) {
	api := newFakeAPI(newMsg("m1", "t1", ""), newMsg("m2", "t1", ""), newMsg("m3", "t2", ""))
	repo := NewMessageRepository(api, nil)

	msgs, err := repo.Conversation(context.Background(), "box1", "t1")
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	api.failConv = true
	_, err = repo.Conversation(context.Background(), "box1", "t1")
	assert.ErrorIs(t, err, errBackend)
}
