package services

import (
	"testing"

	"github.com/ajramos/mailtui/internal/webmail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSearch(t *testing.T) {
	f := ParseSearch(`from:Alice to:bob@x.test subject:"Q3 report" is:unread after:2024-01-01 budget "next week" foo:bar`)

	assert.Equal(t, []string{"alice"}, f.From)
	assert.Equal(t, []string{"bob@x.test"}, f.To)
	assert.Equal(t, []string{"q3 report"}, f.SubjectTerms)
	assert.Equal(t, []string{"unread"}, f.Is)
	require.NotNil(t, f.After)
	assert.Equal(t, 2024, f.After.Year())
	assert.Nil(t, f.Before)
	assert.Equal(t, []string{"budget", "next week", "foo:bar"}, f.Terms)
	assert.False(t, f.IsEmpty())
}

func TestParseSearch_Empty(t *testing.T) {
	f := ParseSearch("   ")
	assert.True(t, f.IsEmpty())

	msgs := []*webmail.Message{{EmailUniqueID: "a"}}
	assert.Equal(t, msgs, f.Filter(msgs))
}

func TestSearchFilter_Match(t *testing.T) {
	m := &webmail.Message{
		EmailUniqueID: "m1",
		From:          "Alice Smith <alice@corp.test>",
		To:            webmail.Recipients{"bob@corp.test"},
		Cc:            webmail.Recipients{"carol@corp.test"},
		Subject:       "Quarterly budget",
		Text:          "Numbers for next week",
		CreatedAt:     "2024-02-10T08:00:00Z",
		IsStarred:     true,
	}

	tests := []struct {
		query string
		want  bool
	}{
		{"", true},
		{"from:alice", true},
		{"from:bob", false},
		{"to:carol", true},
		{"subject:budget", true},
		{"subject:invoice", false},
		{"is:starred", true},
		{"is:unread", true},
		{"is:read", false},
		{"is:bogus", false},
		{`"next week"`, true},
		{"numbers quarterly", true},
		{"numbers missing", false},
		{"after:2024-02-01 before:2024-03-01", true},
		{"before:2024-02-01", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSearch(tt.query).Match(m))
		})
	}
	assert.False(t, ParseSearch("x").Match(nil))
}
