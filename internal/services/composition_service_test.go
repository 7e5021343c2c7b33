package services

import (
	"context"
	"testing"

	"github.com/ajramos/mailtui/internal/cache"
	"github.com/ajramos/mailtui/internal/webmail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func originalMessage() *webmail.Message {
	m := newMsg("m1", "t1", "2024-02-01T10:30:00Z")
	m.From = "Alice <alice@example.com>"
	m.To = webmail.Recipients{"me@example.com", "bob@example.com"}
	m.Cc = webmail.Recipients{"ALICE@example.com", "carol@example.com"}
	m.Subject = "Budget"
	m.Text = "line one\n\nline two"
	return m
}

func TestCompositionService_NewDraft(t *testing.T) {
	svc := NewCompositionService(newFakeAPI(), nil)
	svc.SetUserEmail("me@example.com")
	orig := originalMessage()

	t.Run("new", func(t *testing.T) {
		c := svc.NewDraft(ComposeNew, orig)
		assert.Equal(t, ComposeNew, c.Mode)
		assert.Empty(t, c.To)
		assert.Empty(t, c.Subject)
		assert.False(t, c.OriginalRef.Valid())
		assert.NotEmpty(t, c.ID)
	})

	t.Run("reply without original is new", func(t *testing.T) {
		c := svc.NewDraft(ComposeReply, nil)
		assert.Equal(t, ComposeNew, c.Mode)
	})

	t.Run("reply", func(t *testing.T) {
		c := svc.NewDraft(ComposeReply, orig)
		assert.Equal(t, []string{"Alice <alice@example.com>"}, c.To)
		assert.Empty(t, c.Cc)
		assert.Equal(t, "Re: Budget", c.Subject)
		assert.Equal(t, "t1", c.ThreadID)
		assert.Equal(t, webmail.Received("m1"), c.OriginalRef)
		assert.Contains(t, c.Body, "alice@example.com> wrote:\n> line one\n>\n> line two\n")
	})

	t.Run("reply all drops self and duplicates", func(t *testing.T) {
		c := svc.NewDraft(ComposeReplyAll, orig)
		assert.Equal(t, []string{"Alice <alice@example.com>", "bob@example.com"}, c.To)
		assert.Equal(t, []string{"carol@example.com"}, c.Cc)
	})

	t.Run("forward", func(t *testing.T) {
		c := svc.NewDraft(ComposeForward, orig)
		assert.Empty(t, c.To)
		assert.Equal(t, "Fwd: Budget", c.Subject)
		assert.Empty(t, c.ThreadID)
		assert.Contains(t, c.Body, "---------- Forwarded message ---------")
		assert.Contains(t, c.Body, "Subject: Budget\n")
		assert.Contains(t, c.Body, "line two")
	})

	t.Run("prefix is not repeated", func(t *testing.T) {
		again := originalMessage()
		again.Subject = "RE: Budget"
		assert.Equal(t, "RE: Budget", svc.NewDraft(ComposeReply, again).Subject)
	})

	t.Run("reply to sent mail targets its recipients", func(t *testing.T) {
		sent := &webmail.Message{SendmailID: "s1", Status: webmail.StatusSent, From: "me@example.com",
			To: webmail.Recipients{"dave@example.com"}, Subject: "Hello"}
		c := svc.NewDraft(ComposeReply, sent)
		assert.Equal(t, []string{"dave@example.com"}, c.To)
		assert.Equal(t, webmail.Sent("s1"), c.OriginalRef)
	})
}

func TestCompositionService_Validate(t *testing.T) {
	svc := NewCompositionService(newFakeAPI(), nil)

	assert.Len(t, svc.Validate(nil), 1)

	errs := svc.Validate(&Composition{To: []string{"not-an-address"}, Cc: []string{"Bob <bob@x.io>"}})
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.Equal(t, []string{"to[0]", "subject", "body"}, fields)

	assert.Empty(t, svc.Validate(&Composition{To: []string{"Ann <ann@x.io>"}, Subject: "s", Body: "b"}))
}

func TestCompositionService_Send(t *testing.T) {
	api := newFakeAPI()
	inv := &recordingInvalidator{}
	svc := NewCompositionService(api, inv)
	ctx := context.Background()

	err := svc.Send(ctx, "box1", &Composition{Subject: "s", Body: "b"})
	assert.ErrorIs(t, err, ErrNoRecipients)

	err = svc.Send(ctx, "box1", &Composition{To: []string{"bad"}, Subject: "s", Body: "b"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, api.callCount("send"), "validation happens before any request")

	c := &Composition{To: []string{" ann@x.io ", ""}, Cc: []string{"bob@x.io"}, Subject: " Hi ", Body: "body", ThreadID: "t9"}
	err = svc.Send(ctx, "", c)
	assert.ErrorIs(t, err, ErrMissingMailbox)

	require.NoError(t, svc.Send(ctx, "box1", c))
	require.Len(t, api.outbox, 1)
	out := api.outbox[0]
	assert.Equal(t, "box1", out.MailID)
	assert.Equal(t, []string{"ann@x.io"}, out.To)
	assert.Equal(t, "Hi", out.Subject)
	assert.Equal(t, webmail.StatusSent, out.Status)
	assert.Equal(t, "t9", out.ThreadID)

	keys := inv.all()
	for _, k := range cache.SentKeys("box1") {
		assert.Contains(t, keys, k)
	}
	assert.Contains(t, keys, cache.ConversationKey("box1", "t9"))
}

func TestCompositionService_SendFailureStillInvalidates(t *testing.T) {
	api := newFakeAPI()
	api.failSend = true
	inv := &recordingInvalidator{}
	svc := NewCompositionService(api, inv)

	err := svc.Send(context.Background(), "box1", &Composition{To: []string{"ann@x.io"}, Subject: "s", Body: "b"})
	assert.ErrorIs(t, err, errBackend)
	assert.Len(t, inv.all(), len(cache.SentKeys("box1")))
}

func TestCompositionService_SaveDraft(t *testing.T) {
	api := newFakeAPI()
	svc := NewCompositionService(api, &recordingInvalidator{})
	ctx := context.Background()

	require.NoError(t, svc.SaveDraft(ctx, "box1", &Composition{Body: "half written"}))
	require.Len(t, api.outbox, 1)
	assert.Equal(t, webmail.StatusDraft, api.outbox[0].Status)

	err := svc.SaveDraft(ctx, "box1", &Composition{To: []string{"nope"}})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, svc.SaveDraft(ctx, "box1", nil), ErrInvalidInput)
}

func TestParseRecipients(t *testing.T) {
	assert.Equal(t, []string{"a@x.io", "Bob <b@x.io>", "c@x.io"}, ParseRecipients(" a@x.io, Bob <b@x.io>;c@x.io,, "))
	assert.Empty(t, ParseRecipients("  "))
	assert.Equal(t, "b@x.io", RecipientAddress(`"Bob, Jr" <b@x.io>`))
	assert.Equal(t, "plain@x.io", RecipientAddress("plain@x.io"))
}
