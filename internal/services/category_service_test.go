package services

import (
	"fmt"
	"testing"

	"github.com/ajramos/mailtui/internal/webmail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flagCombos enumerates every combination of the flags inbox membership reads
func flagCombos() []*webmail.Message {
	var out []*webmail.Message
	for bits := 0; bits < 1<<9; bits++ {
		m := &webmail.Message{EmailUniqueID: fmt.Sprintf("m%d", bits)}
		m.IsArchived = bits&1 != 0
		m.IsSpam = bits&2 != 0
		m.IsTrash = bits&4 != 0
		m.IsMute = bits&8 != 0
		m.IsAddToTask = bits&16 != 0
		m.IsImportant = bits&32 != 0
		m.IsSnoozed = bits&64 != 0
		m.IsStarred = bits&128 != 0
		m.IsBlocked = bits&256 != 0
		out = append(out, m)
	}
	return out
}

func TestClassify_InboxNeverShowsUnflaggedTrash(t *testing.T) {
	for _, m := range Classify(flagCombos(), CategoryInbox) {
		flagged := m.IsAddToTask || m.IsImportant || m.IsSnoozed || m.IsStarred
		if m.IsTrash {
			assert.True(t, flagged, "%s in inbox while trashed and unflagged", m.EmailUniqueID)
		}
		assert.False(t, m.IsBlocked, "%s blocked but in inbox", m.EmailUniqueID)
	}
}

func TestClassify_Table(t *testing.T) {
	plain := &webmail.Message{EmailUniqueID: "plain"}
	starred := &webmail.Message{EmailUniqueID: "starred", IsStarred: true}
	trashedStarred := &webmail.Message{EmailUniqueID: "ts", IsTrash: true, IsStarred: true}
	trashed := &webmail.Message{EmailUniqueID: "trash", IsTrash: true}
	archived := &webmail.Message{EmailUniqueID: "arch", IsArchived: true}
	muted := &webmail.Message{EmailUniqueID: "mute", IsMute: true}
	blocked := &webmail.Message{EmailUniqueID: "blocked", IsBlocked: true, IsStarred: true}
	spam := &webmail.Message{EmailUniqueID: "spam", IsSpam: true}
	all := []*webmail.Message{plain, starred, trashedStarred, trashed, archived, muted, blocked, spam, nil}

	ids := func(msgs []*webmail.Message) []string {
		out := make([]string, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, m.EmailUniqueID)
		}
		return out
	}

	tests := []struct {
		category Category
		want     []string
	}{
		{CategoryInbox, []string{"plain", "starred", "ts"}},
		{CategoryStarred, []string{"starred", "ts", "blocked"}},
		{CategoryTrash, []string{"ts", "trash"}},
		{CategoryArchive, []string{"arch"}},
		{CategoryMuted, []string{"mute"}},
		{CategorySpam, []string{"spam"}},
		{CategoryBlocked, []string{"blocked"}},
		{CategoryAllMails, []string{"plain", "starred", "mute"}},
		{CategorySent, []string{"plain", "starred", "ts", "trash", "arch", "mute", "blocked", "spam"}},
		{LabelCategory("x"), []string{"plain", "starred", "ts", "trash", "arch", "mute", "blocked", "spam"}},
		{Category("nonsense"), []string{"plain", "starred", "ts"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Classify(all, tt.category)))
		})
	}
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("")
	require.NoError(t, err)
	assert.Equal(t, CategoryInbox, c)

	c, err = ParseCategory(" Starred ")
	require.NoError(t, err)
	assert.Equal(t, CategoryStarred, c)

	c, err = ParseCategory("label:AbC")
	require.NoError(t, err)
	id, ok := c.LabelID()
	assert.True(t, ok)
	assert.Equal(t, "AbC", id)

	_, err = ParseCategory("label:")
	assert.ErrorIs(t, err, ErrUnknownCategory)
	_, err = ParseCategory("outbox")
	assert.ErrorIs(t, err, ErrUnknownCategory)

	st, ok := CategoryDrafts.SendStatus()
	assert.True(t, ok)
	assert.Equal(t, webmail.StatusDraft, st)
}

func TestSortByInboxType(t *testing.T) {
	a := &webmail.Message{EmailUniqueID: "a", CreatedAt: "2024-01-01T00:00:00Z", IsRead: true}
	b := &webmail.Message{EmailUniqueID: "b", CreatedAt: "2024-01-03T00:00:00Z", IsRead: true, IsStarred: true}
	c := &webmail.Message{EmailUniqueID: "c", CreatedAt: "2024-01-02T00:00:00Z", IsImportant: true}
	d := &webmail.Message{EmailUniqueID: "d", IsImportant: true, IsRead: true}
	e := &webmail.Message{EmailUniqueID: "e", CreatedAt: "2024-01-04T00:00:00Z"}
	input := []*webmail.Message{a, b, c, d, e}

	order := func(msgs []*webmail.Message) string {
		s := ""
		for _, m := range msgs {
			s += m.EmailUniqueID
		}
		return s
	}

	tests := []struct {
		strategy InboxType
		want     string
	}{
		{InboxDefault, "ebcad"},
		{InboxUnread, "ecbad"},
		{InboxStarred, "becad"},
		{InboxImportant, "cdeba"},
		{InboxPriority, "cdbea"},
		{InboxType("bogus"), "ebcad"},
	}
	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			assert.Equal(t, tt.want, order(SortByInboxType(input, tt.strategy)))
		})
	}
	assert.Equal(t, "abcde", order(input), "input untouched")
}

func TestPaginate(t *testing.T) {
	items := make([]int, 25)
	for i := range items {
		items[i] = i
	}

	assert.Equal(t, []int{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}, Paginate(items, 2, 10))
	assert.Equal(t, []int{20, 21, 22, 23, 24}, Paginate(items, 3, 10))
	assert.Empty(t, Paginate(items, 99, 10))
	assert.NotNil(t, Paginate(items, 99, 10))
	assert.Equal(t, Paginate(items, 1, 10), Paginate(items, 0, 10))
	assert.Len(t, Paginate(items, 1, 0), 25)

	assert.Equal(t, 3, PageCount(25, 10))
	assert.Equal(t, 1, PageCount(0, 10))
	assert.Equal(t, 1, PageCount(50, -1))
}

func TestThreadInCategory(t *testing.T) {
	clean := &webmail.Message{EmailUniqueID: "1"}
	trashed := &webmail.Message{EmailUniqueID: "2", IsTrash: true}
	trashedStarred := &webmail.Message{EmailUniqueID: "3", IsTrash: true, IsStarred: true}
	blocked := &webmail.Message{EmailUniqueID: "4", IsBlocked: true}

	tests := []struct {
		name     string
		members  []*webmail.Message
		category Category
		want     bool
	}{
		{"all clear in inbox", []*webmail.Message{clean}, CategoryInbox, true},
		{"one trashed member takes thread out of inbox", []*webmail.Message{clean, trashed}, CategoryInbox, false},
		{"fully trashed thread leaves inbox", []*webmail.Message{trashed}, CategoryInbox, false},
		{"flagged member does not rescue a trashed thread", []*webmail.Message{trashed, trashedStarred}, CategoryInbox, false},
		{"clean starred member with trashed sibling", []*webmail.Message{{EmailUniqueID: "5", IsStarred: true}, trashed}, CategoryInbox, false},
		{"fully flagged trashed thread stays out", []*webmail.Message{trashedStarred}, CategoryInbox, false},
		{"blocked member hides thread", []*webmail.Message{clean, blocked}, CategoryInbox, false},
		{"any trashed member puts thread in trash", []*webmail.Message{clean, trashed}, CategoryTrash, true},
		{"no starred member", []*webmail.Message{clean, trashed}, CategoryStarred, false},
		{"sent unfiltered", []*webmail.Message{trashed}, CategorySent, true},
		{"empty thread", nil, CategorySent, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ThreadInCategory(NewThread("t", tt.members), tt.category))
		})
	}
}
