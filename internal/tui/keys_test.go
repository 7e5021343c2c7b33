package tui

import (
	"testing"

	"github.com/ajramos/mailtui/internal/config"
	"github.com/ajramos/mailtui/internal/services"
	"github.com/ajramos/mailtui/internal/webmail"
	"github.com/derailed/tcell/v2"
	"github.com/stretchr/testify/assert"
)

func runeKey(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func TestKeyMatches(t *testing.T) {
	testCases := []struct {
		name    string
		ev      *tcell.EventKey
		binding string
		want    bool
	}{
		{"rune", runeKey('s'), "s", true},
		{"rune case sensitive", runeKey('S'), "s", false},
		{"space", runeKey(' '), "space", true},
		{"enter", tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), "enter", true},
		{"tab", tcell.NewEventKey(tcell.KeyTab, 0, tcell.ModNone), "Tab", true},
		{"ctrl", tcell.NewEventKey(tcell.KeyCtrlD, 0, tcell.ModCtrl), "ctrl+d", true},
		{"ctrl other", tcell.NewEventKey(tcell.KeyCtrlE, 0, tcell.ModCtrl), "ctrl+d", false},
		{"ctrl invalid", tcell.NewEventKey(tcell.KeyCtrlD, 0, tcell.ModCtrl), "ctrl+dd", false},
		{"empty binding", runeKey('s'), "", false},
		{"multi rune binding", runeKey('s'), "ss", false},
		{"nil event", nil, "s", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, keyMatches(tc.ev, tc.binding))
		})
	}
}

func TestKeyActions_CoverDefaultBindings(t *testing.T) {
	app := &App{Keys: config.DefaultKeyBindings()}
	seen := make(map[string]string)
	for _, ka := range app.keyActions() {
		assert.NotEmpty(t, ka.binding, "default binding for %s", ka.name)
		assert.NotNil(t, ka.run, ka.name)
		if other, dup := seen[ka.binding]; dup {
			t.Errorf("binding %q used by %s and %s", ka.binding, other, ka.name)
		}
		seen[ka.binding] = ka.name
		assert.Contains(t, helpDescriptions, ka.name, "help text for %s", ka.name)
	}
}

func TestToggledAction(t *testing.T) {
	starred := &webmail.Message{EmailUniqueID: "1", IsStarred: true}
	plain := &webmail.Message{EmailUniqueID: "2"}
	read := &webmail.Message{EmailUniqueID: "3", IsRead: true}

	testCases := []struct {
		name string
		base services.Action
		msgs []*webmail.Message
		want services.Action
	}{
		{"all flagged inverts", services.ActionStar, []*webmail.Message{starred}, services.ActionUnstar},
		{"mixed applies", services.ActionStar, []*webmail.Message{starred, plain}, services.ActionStar},
		{"none flagged applies", services.ActionStar, []*webmail.Message{plain}, services.ActionStar},
		{"read toggles to unread", services.ActionRead, []*webmail.Message{read}, services.ActionUnread},
		{"no messages", services.ActionArchive, nil, services.ActionArchive},
		{"nil message", services.ActionStar, []*webmail.Message{nil}, services.ActionStar},
		{"no flag for action", services.ActionRestore, []*webmail.Message{starred}, services.ActionRestore},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, toggledAction(tc.base, tc.msgs))
		})
	}
}
