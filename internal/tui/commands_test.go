package tui

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	testCases := []struct {
		input string
		name  string
		args  []string
	}{
		{"help", "help", []string{}},
		{"GO Starred", "go", []string{"Starred"}},
		{"search from:alice subject:report", "search", []string{"from:alice", "subject:report"}},
		{" trim  spaces ", "trim", []string{"spaces"}},
		{"", "", nil},
		{"   ", "", nil},
	}

	for _, tc := range testCases {
		name, args := parseCommand(tc.input)
		assert.Equal(t, tc.name, name, "command for %q", tc.input)
		if tc.args == nil {
			assert.Nil(t, args)
		} else {
			assert.Equal(t, tc.args, args, "args for %q", tc.input)
		}
	}
}

func TestCommandNames_Sorted(t *testing.T) {
	// completion binary-searches the list
	assert.True(t, sort.StringsAreSorted(commandNames))
}

func TestCommandSuggestion(t *testing.T) {
	testCases := []struct {
		prefix   string
		expected string
	}{
		{"he", "help"},
		{"ARCH", "archive"},
		{"acc", "account"},
		{"unr", "unread"},
		{"uns", "unsave"},
		{"sea", "search"},
		{"zzz", ""},
		{"", ""},
		{"go inbox", ""},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, commandSuggestion(tc.prefix), "suggestion for %q", tc.prefix)
	}
}

func TestAddToHistory(t *testing.T) {
	app := &App{}

	app.addToHistory("go inbox")
	app.addToHistory("go inbox")
	app.addToHistory("search report")
	app.addToHistory("")

	assert.Equal(t, []string{"go inbox", "search report"}, app.cmdHistory)
	assert.Equal(t, 2, app.cmdHistoryIndex)
}

func TestAddToHistory_Bounded(t *testing.T) {
	app := &App{}
	for i := 0; i < maxHistory+10; i++ {
		app.addToHistory(string(rune('a'+i%26)) + string(rune('0'+i%10)) + string(rune(i)))
	}

	assert.Len(t, app.cmdHistory, maxHistory)
	assert.Equal(t, maxHistory, app.cmdHistoryIndex)
}
