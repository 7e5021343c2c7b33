package services

import (
	"context"
	"sync"
	"testing"

	"github.com/ajramos/mailtui/internal/webmail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupByThread_PreservesOrder(t *testing.T) {
	msgs := []*webmail.Message{
		newMsg("a1", "A", ""),
		newMsg("b1", "B", ""),
		{EmailUniqueID: "orphan"},
		newMsg("a2", "A", ""),
		newMsg("c1", "C", ""),
		newMsg("b2", "B", ""),
		nil,
	}

	groups := GroupByThread(msgs)
	require.Len(t, groups, 3)

	total := 0
	for _, g := range groups {
		total += len(g)
	}
	assert.Equal(t, 5, total, "union is every message with a thread id")

	assert.Equal(t, []string{"A", "B", "C"}, ThreadOrder(msgs))
	assert.Equal(t, "a1", groups["A"][0].EmailUniqueID)
	assert.Equal(t, "a2", groups["A"][1].EmailUniqueID)
	assert.Equal(t, "b2", groups["B"][1].EmailUniqueID)
}

func TestBuildThreads_SortsMembersAscending(t *testing.T) {
	msgs := []*webmail.Message{
		newMsg("late", "T", "2024-03-01T00:00:00Z"),
		newMsg("undated", "T", ""),
		newMsg("early", "T", "2024-01-01T00:00:00Z"),
	}
	threads := BuildThreads(msgs)
	require.Len(t, threads, 1)

	th := threads[0]
	assert.Equal(t, "T", th.ID)
	assert.Equal(t, "undated", th.Main().EmailUniqueID)
	assert.Equal(t, "late", th.Latest().EmailUniqueID)
	assert.Equal(t, 3, th.UnreadCount())
	assert.Equal(t, "late", msgs[0].EmailUniqueID, "input untouched")
}

func TestThread_NilSafe(t *testing.T) {
	var th *Thread
	assert.Nil(t, th.Main())
	assert.Nil(t, th.Latest())
	assert.Zero(t, th.Len())
}

// countingMarker records MarkSeen calls
type countingMarker struct {
	mu    sync.Mutex
	calls map[string]int
	gate  chan struct{}
}

func newCountingMarker() *countingMarker {
	return &countingMarker{calls: make(map[string]int)}
}

func (c *countingMarker) MarkSeen(ctx context.Context, mailboxID string, msg *webmail.Message) error {
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[msg.EmailUniqueID]++
	return nil
}

func (c *countingMarker) count(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[id]
}

func conversationFor(user string) []*webmail.Message {
	m1 := newMsg("m1", "t1", "2024-01-01T00:00:00Z")
	m1.To = webmail.Recipients{"Me <" + user + ">"}
	m2 := newMsg("m2", "t1", "2024-01-02T00:00:00Z")
	m2.Cc = webmail.Recipients{user}
	m3 := newMsg("m3", "t1", "2024-01-03T00:00:00Z")
	m3.To = webmail.Recipients{"someone@else.test"}
	return []*webmail.Message{m3, m1, m2}
}

func TestThreadView_LoadExpandsLatestOnly(t *testing.T) {
	view := NewThreadView("box1", "me@mail.test", nil)
	view.Load(context.Background(), conversationFor("me@mail.test"), false)

	assert.False(t, view.IsExpanded(0))
	assert.False(t, view.IsExpanded(1))
	assert.True(t, view.IsExpanded(2))
	assert.Equal(t, "m3", view.Thread().Latest().EmailUniqueID)

	view.ToggleMessage(context.Background(), 0)
	view.ToggleDropdown(1)
	view.Load(context.Background(), conversationFor("me@mail.test"), true)
	assert.True(t, view.IsExpanded(0), "preserve keeps expansion")
	assert.True(t, view.IsDropdownOpen(1), "preserve keeps dropdowns")

	view.Load(context.Background(), conversationFor("me@mail.test"), false)
	assert.False(t, view.IsExpanded(0))
	assert.False(t, view.IsDropdownOpen(1))
}

func TestThreadView_TogglesAreInvolutions(t *testing.T) {
	view := NewThreadView("box1", "", nil)
	view.Load(context.Background(), conversationFor("me@mail.test"), false)

	for i := 0; i < 3; i++ {
		before := view.IsExpanded(i)
		view.ToggleMessage(context.Background(), i)
		view.ToggleMessage(context.Background(), i)
		assert.Equal(t, before, view.IsExpanded(i))

		dBefore := view.IsDropdownOpen(i)
		view.ToggleDropdown(i)
		view.ToggleDropdown(i)
		assert.Equal(t, dBefore, view.IsDropdownOpen(i))
	}

	assert.False(t, view.ToggleMessage(context.Background(), 7))
	assert.False(t, view.ToggleDropdown(-1))
}

func TestThreadView_MarksSeenOncePerMount(t *testing.T) {
	ctx := context.Background()
	marker := newCountingMarker()
	view := NewThreadView("box1", "ME@mail.test", marker)

	changes := 0
	var mu sync.Mutex
	view.OnChange = func() {
		mu.Lock()
		changes++
		mu.Unlock()
	}

	view.Load(ctx, conversationFor("me@mail.test"), false)
	for i := 0; i < 3; i++ {
		for n := 0; n < 4; n++ {
			view.ToggleMessage(ctx, i)
		}
	}
	view.Wait()

	assert.Equal(t, 1, marker.count("m1"), "addressed via To")
	assert.Equal(t, 1, marker.count("m2"), "addressed via Cc")
	assert.Zero(t, marker.count("m3"), "not addressed to the user")
	mu.Lock()
	assert.Equal(t, 2, changes)
	mu.Unlock()

	// a new mount may mark again
	second := NewThreadView("box1", "me@mail.test", marker)
	second.Load(ctx, conversationFor("me@mail.test"), false)
	second.ToggleMessage(ctx, 0)
	second.Wait()
	assert.Equal(t, 2, marker.count("m1"))
}

func TestThreadView_SkipsReadAndUnknownUser(t *testing.T) {
	ctx := context.Background()
	marker := newCountingMarker()

	msgs := conversationFor("me@mail.test")
	for _, m := range msgs {
		m.IsRead = true
	}
	view := NewThreadView("box1", "me@mail.test", marker)
	view.Load(ctx, msgs, false)
	view.ToggleMessage(ctx, 0)
	view.Wait()
	assert.Zero(t, marker.count("m1"))

	anon := NewThreadView("box1", "", marker)
	anon.Load(ctx, conversationFor("me@mail.test"), false)
	anon.ToggleMessage(ctx, 0)
	anon.Wait()
	assert.Zero(t, marker.count("m1"))
}

func TestThreadView_CloseIgnoresLateCompletion(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	marker := newCountingMarker()
	marker.gate = make(chan struct{})

	view := NewThreadView("box1", "me@mail.test", marker)
	fired := false
	view.OnChange = func() { fired = true }

	view.Load(ctx, conversationFor("me@mail.test"), false)
	view.ToggleMessage(ctx, 0)

	cancel()
	view.Close()
	close(marker.gate)
	view.Wait()

	assert.Equal(t, 1, marker.count("m1"), "request still completes after unmount")
	assert.False(t, fired)

	view.ToggleMessage(context.Background(), 1)
	view.Wait()
	assert.Zero(t, marker.count("m2"), "closed views issue nothing")
}
