package services

import (
	"strings"
	"time"

	"github.com/ajramos/mailtui/internal/webmail"
)

// SearchFilter is a parsed mailbox search. The zero value matches everything.
type SearchFilter struct {
	Raw          string
	Terms        []string
	From         []string
	To           []string
	SubjectTerms []string
	Is           []string
	Before       *time.Time
	After        *time.Time
}

type searchOperator func(f *SearchFilter, value string)

var searchOperators = map[string]searchOperator{
	"from": func(f *SearchFilter, v string) {
		f.From = append(f.From, strings.ToLower(v))
	},
	"to": func(f *SearchFilter, v string) {
		f.To = append(f.To, strings.ToLower(v))
	},
	"subject": func(f *SearchFilter, v string) {
		f.SubjectTerms = append(f.SubjectTerms, strings.ToLower(v))
	},
	"is": func(f *SearchFilter, v string) {
		f.Is = append(f.Is, strings.ToLower(v))
	},
	"before": func(f *SearchFilter, v string) {
		if t, ok := parseSearchDate(v); ok {
			f.Before = &t
		}
	},
	"after": func(f *SearchFilter, v string) {
		if t, ok := parseSearchDate(v); ok {
			f.After = &t
		}
	},
}

// isFlags maps is:<name> to its message predicate
var isFlags = map[string]func(*webmail.Message) bool{
	"unread":    func(m *webmail.Message) bool { return m.Unread() },
	"read":      func(m *webmail.Message) bool { return m.IsRead },
	"starred":   func(m *webmail.Message) bool { return m.IsStarred },
	"important": func(m *webmail.Message) bool { return m.IsImportant },
	"snoozed":   func(m *webmail.Message) bool { return m.IsSnoozed },
	"muted":     func(m *webmail.Message) bool { return m.IsMute },
	"task":      func(m *webmail.Message) bool { return m.IsAddToTask },
}

// ParseSearch parses a query such as `from:alice is:unread "quarterly report"`.
//
// Supported operators:
//   - from:, to: - address substrings
//   - subject: - subject substring
//   - is:unread|read|starred|important|snoozed|muted|task
//   - before:, after: - dates (YYYY-MM-DD)
//   - bare words and "quoted phrases" match subject, sender or body
//
// Unknown operators are treated as plain words.
func ParseSearch(query string) SearchFilter {
	f := SearchFilter{Raw: strings.TrimSpace(query)}
	for _, token := range tokenizeSearch(query) {
		if isQuoted(token) {
			f.Terms = append(f.Terms, strings.ToLower(unquoteSearch(token)))
			continue
		}
		if idx := strings.Index(token, ":"); idx > 0 {
			op := strings.ToLower(token[:idx])
			if handler, ok := searchOperators[op]; ok {
				if value := unquoteSearch(token[idx+1:]); value != "" {
					handler(&f, value)
				}
				continue
			}
		}
		f.Terms = append(f.Terms, strings.ToLower(token))
	}
	return f
}

// IsEmpty reports whether the filter matches everything
func (f SearchFilter) IsEmpty() bool {
	return len(f.Terms) == 0 && len(f.From) == 0 && len(f.To) == 0 &&
		len(f.SubjectTerms) == 0 && len(f.Is) == 0 && f.Before == nil && f.After == nil
}

// Match reports whether m satisfies every criterion
func (f SearchFilter) Match(m *webmail.Message) bool {
	if m == nil {
		return false
	}
	from := strings.ToLower(m.From)
	for _, v := range f.From {
		if !strings.Contains(from, v) {
			return false
		}
	}
	if len(f.To) > 0 {
		to := strings.ToLower(m.To.String() + " " + m.Cc.String())
		for _, v := range f.To {
			if !strings.Contains(to, v) {
				return false
			}
		}
	}
	subject := strings.ToLower(m.Subject)
	for _, v := range f.SubjectTerms {
		if !strings.Contains(subject, v) {
			return false
		}
	}
	for _, flag := range f.Is {
		pred, ok := isFlags[flag]
		if !ok || !pred(m) {
			return false
		}
	}
	if f.Before != nil && !m.Timestamp().Before(*f.Before) {
		return false
	}
	if f.After != nil && m.Timestamp().Before(*f.After) {
		return false
	}
	if len(f.Terms) > 0 {
		hay := strings.ToLower(strings.Join([]string{m.Subject, m.From, m.Text, m.Body}, "\n"))
		for _, term := range f.Terms {
			if !strings.Contains(hay, term) {
				return false
			}
		}
	}
	return true
}

// Filter returns the messages matching f, in input order
func (f SearchFilter) Filter(messages []*webmail.Message) []*webmail.Message {
	if f.IsEmpty() {
		return messages
	}
	out := make([]*webmail.Message, 0, len(messages))
	for _, m := range messages {
		if f.Match(m) {
			out = append(out, m)
		}
	}
	return out
}

func parseSearchDate(v string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", "2006/01/02"} {
		if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func isQuoted(token string) bool {
	return len(token) > 2 && token[0] == '"' && token[len(token)-1] == '"'
}

func unquoteSearch(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// tokenizeSearch splits on spaces, keeping "quoted phrases" and op:"quoted values" whole
func tokenizeSearch(query string) []string {
	var (
		tokens   []string
		current  strings.Builder
		inQuotes bool
	)
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	for _, r := range query {
		switch {
		case r == '"':
			current.WriteRune(r)
			if inQuotes {
				flush()
			}
			inQuotes = !inQuotes
		case (r == ' ' || r == '\t') && !inQuotes:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return tokens
}
