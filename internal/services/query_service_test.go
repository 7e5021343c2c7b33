package services

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ajramos/mailtui/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueryFixture(t *testing.T) *QueryServiceImpl {
	t.Helper()
	store, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "queries.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	service := NewQueryService(db.NewQueryStore(store))
	service.SetMailboxID("box1")
	return service
}

func TestNewQueryService_NilStore(t *testing.T) {
	service := NewQueryService(nil)
	assert.Empty(t, service.GetMailboxID())

	_, err := service.ListQueries(context.Background(), "")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestQueryServiceImpl_RequiresMailbox(t *testing.T) {
	service := newQueryFixture(t)
	service.SetMailboxID("  ")

	_, err := service.SaveQuery(context.Background(), "n", "q", "", "")
	assert.ErrorIs(t, err, ErrMissingMailbox)
}

func TestQueryServiceImpl_SaveListUse(t *testing.T) {
	service := newQueryFixture(t)
	ctx := context.Background()

	q, err := service.SaveQuery(ctx, " Unread from boss ", "from:boss is:unread", "", "morning triage")
	require.NoError(t, err)
	assert.Equal(t, "Unread from boss", q.Name)
	assert.Equal(t, string(CategoryInbox), q.Category)

	_, err = service.SaveQuery(ctx, "Old receipts", "subject:receipt", "archive", "")
	require.NoError(t, err)

	_, err = service.SaveQuery(ctx, "bad", "x", "outbox", "")
	assert.ErrorIs(t, err, ErrUnknownCategory)

	all, err := service.ListQueries(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	archived, err := service.ListQueries(ctx, "archive")
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "Old receipts", archived[0].Name)

	require.NoError(t, service.RecordQueryUsage(ctx, q.ID))
	require.NoError(t, service.RecordQueryUsage(ctx, q.ID))

	most, err := service.GetMostUsedQueries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, most, 1)
	assert.Equal(t, 2, most[0].UseCount)

	recent, err := service.GetRecentQueries(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	// saving the same name replaces the query
	updated, err := service.SaveQuery(ctx, "Unread from boss", "from:boss", "", "")
	require.NoError(t, err)
	assert.Equal(t, q.ID, updated.ID)
	assert.Equal(t, "from:boss", updated.Query)
}

func TestQueryServiceImpl_MailboxIsolation(t *testing.T) {
	service := newQueryFixture(t)
	ctx := context.Background()

	_, err := service.SaveQuery(ctx, "mine", "is:starred", "", "")
	require.NoError(t, err)

	service.SetMailboxID("box2")
	list, err := service.ListQueries(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = service.GetQuery(ctx, "mine")
	assert.True(t, IsNotFound(err))
}

func TestQueryServiceImpl_Delete(t *testing.T) {
	service := newQueryFixture(t)
	ctx := context.Background()

	q, err := service.SaveQuery(ctx, "tmp", "budget", "", "")
	require.NoError(t, err)

	got, err := service.GetQueryByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "tmp", got.Name)

	require.NoError(t, service.DeleteQueryByName(ctx, "tmp"))
	assert.True(t, IsNotFound(service.DeleteQuery(ctx, q.ID)))
	assert.ErrorIs(t, service.DeleteQuery(ctx, 0), ErrInvalidInput)
}

func TestQueryServiceImpl_ValidateQueryName(t *testing.T) {
	service := NewQueryService(nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "Inbox triage", false},
		{"empty", "", true},
		{"whitespace", "   ", true},
		{"too_long", strings.Repeat("a", 101), true},
		{"newline", "a\nb", true},
		{"tab", "a\tb", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.ValidateQueryName(ctx, tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQueryServiceImpl_GenerateQueryName(t *testing.T) {
	service := NewQueryService(nil)

	assert.Equal(t, "Untitled Search", service.GenerateQueryName("   "))
	assert.Equal(t, "From:boss is:unread", service.GenerateQueryName("from:boss is:unread"))
	assert.Equal(t, "One two three", service.GenerateQueryName("one two three four"))
	assert.Len(t, service.GenerateQueryName(strings.Repeat("x", 80)), 50)
}
