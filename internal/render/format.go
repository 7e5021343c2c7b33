package render

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/ajramos/mailtui/internal/webmail"
	"github.com/mattn/go-runewidth"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// LinkRef is a hyperlink pulled out of a message body and shown as [n]
type LinkRef struct {
	Index int
	URL   string
	Text  string
}

// ImageRef is an inline image referenced from the HTML body
type ImageRef struct {
	Source    string
	ContentID string
}

// FormatOptions controls terminal formatting behavior
type FormatOptions struct {
	WrapWidth int
	// HideLinks drops the [LINKS] section and leaves plain URLs inline
	HideLinks bool
}

// Formatted is a message body prepared for the terminal
type Formatted struct {
	Body   string
	Links  []LinkRef
	Images []ImageRef
}

// policy strips scripts, styles, event handlers and other active content
// before the HTML is walked; it is safe for concurrent use.
var policy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowURLSchemes("mailto", "http", "https", "cid")
	p.AllowAttrs("cid", "data-cid").OnElements("img")
	return p
}()

var (
	urlPattern   = regexp.MustCompile(`(?i)\bhttps?://[\w\-._~:/%?#\[\]@!$&'()*+,;=]+`)
	schemeToken  = regexp.MustCompile(`(?i)^[a-z][a-z0-9+\-.]*://\S+$`)
	blankRunsExp = regexp.MustCompile(`\n{3,}`)

	glyphs = strings.NewReplacer(
		"\u00a0", " ", "\u202f", " ", "\u2007", " ", "\u2009", " ",
		"\u200b", "", "\u200c", "", "\u200d", "", "\ufeff", "", "\u00ad", "", "\u2060", "", "\u034f", "",
		"\u2013", "-", "\u2014", "-",
		"\u2018", "'", "\u2019", "'", "\u201c", `"`, "\u201d", `"`,
		"\u2026", "...",
	)
)

// SanitizeHTML removes active content from an HTML body
func SanitizeHTML(raw string) string {
	return policy.Sanitize(raw)
}

// PlainText returns the best plain-text rendition of a message: its text
// part, else its HTML converted to text, else the raw body.
func PlainText(m *webmail.Message) string {
	if m == nil {
		return ""
	}
	if strings.TrimSpace(m.Text) != "" {
		return normalizeNewlines(m.Text)
	}
	if h := htmlSource(m); h != "" {
		if conv, err := htmlToText(h); err == nil && conv.text() != "" {
			return conv.text()
		}
	}
	return normalizeNewlines(m.Body)
}

// htmlSource picks the HTML part of a message, falling back to a body that
// carries markup without declaring it.
func htmlSource(m *webmail.Message) string {
	if strings.TrimSpace(m.HTML) != "" {
		return m.HTML
	}
	if looksLikeHTML(m.Body) {
		return m.Body
	}
	return ""
}

func looksLikeHTML(s string) bool {
	s = strings.ToLower(s)
	for _, tag := range []string{"<html", "<body", "<div", "<p", "<br", "<table", "<a "} {
		if strings.Contains(s, tag) {
			return true
		}
	}
	return false
}

// FormatMessage prepares a message body for display. HTML is sanitized and
// flattened; quotes, code and PGP blocks survive wrapping untouched.
func FormatMessage(m *webmail.Message, opts FormatOptions) Formatted {
	var f Formatted
	if m == nil {
		return f
	}

	if h := htmlSource(m); h != "" {
		if conv, err := htmlToText(h); err == nil && conv.text() != "" {
			f.Body, f.Links, f.Images = conv.text(), conv.links, conv.images
		}
	}
	if f.Body == "" {
		f.Body = PlainText(m)
	}
	f.Body = cleanGlyphs(normalizeNewlines(f.Body))

	if len(f.Links) == 0 && !opts.HideLinks {
		f.Body, f.Links = extractLinks(f.Body)
	}
	if opts.WrapWidth > 0 {
		f.Body = WrapTextPreserving(f.Body, opts.WrapWidth)
	}
	f.Body = dropRepeatedLines(f.Body)

	if opts.HideLinks {
		f.Links = nil
	}
	sort.Slice(f.Links, func(i, j int) bool { return f.Links[i].Index < f.Links[j].Index })
	return f
}

// String renders the body followed by [IMAGES] and [LINKS] sections
func (f Formatted) String() string {
	var out strings.Builder
	out.WriteString(f.Body)

	if len(f.Images) > 0 {
		out.WriteString("\n\n[IMAGES]")
		for _, im := range f.Images {
			out.WriteString("\n" + im.label())
		}
	}
	if len(f.Links) > 0 {
		out.WriteString("\n\n[LINKS]")
		for _, lr := range f.Links {
			fmt.Fprintf(&out, "\n(%d) %s", lr.Index, lr.URL)
		}
	}
	return strings.TrimRight(out.String(), "\n")
}

func (im ImageRef) label() string {
	switch {
	case im.Source != "":
		return im.Source
	case im.ContentID != "":
		return "cid:" + im.ContentID
	default:
		return "(image)"
	}
}

// extractLinks replaces bare URLs with [n] markers and returns them in order
func extractLinks(body string) (string, []LinkRef) {
	var links []LinkRef
	out := urlPattern.ReplaceAllStringFunc(body, func(u string) string {
		links = append(links, LinkRef{Index: len(links) + 1, URL: u, Text: u})
		return fmt.Sprintf("[%d]", len(links))
	})
	return out, links
}

// cleanGlyphs swaps typographic punctuation and invisible characters for
// plain equivalents and drops control characters other than tab and newline.
func cleanGlyphs(s string) string {
	s = glyphs.Replace(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, s)
}

// dropRepeatedLines removes a non-blank line identical to the one before it;
// HTML newsletters often repeat headers across nested tables.
func dropRepeatedLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	prev := ""
	for _, ln := range lines {
		ln = strings.TrimRight(ln, " ")
		t := strings.TrimSpace(ln)
		if t != "" && t == prev {
			continue
		}
		out = append(out, ln)
		prev = t
	}
	return collapseBlankRuns(strings.Join(out, "\n"))
}

// htmlText walks a parsed document and accumulates terminal text
type htmlText struct {
	buf    strings.Builder
	links  []LinkRef
	images []ImageRef
	quote  int
	pre    bool
}

func htmlToText(src string) (*htmlText, error) {
	doc, err := html.Parse(strings.NewReader(SanitizeHTML(src)))
	if err != nil {
		return nil, fmt.Errorf("parse html body: %w", err)
	}
	h := &htmlText{}
	h.node(doc)
	return h, nil
}

func (h *htmlText) text() string {
	return strings.TrimSpace(normalizeNewlines(h.buf.String()))
}

func (h *htmlText) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		h.node(c)
	}
}

func (h *htmlText) node(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		h.writeText(n.Data)
		return
	case html.ElementNode:
	default:
		h.children(n)
		return
	}

	switch strings.ToLower(n.Data) {
	case "head", "style", "script", "title", "meta", "link":
	case "br":
		h.buf.WriteByte('\n')
	case "hr":
		h.buf.WriteString("\n-----\n")
	case "p":
		h.children(n)
		h.buf.WriteString("\n\n")
	case "div", "section", "article", "header", "footer":
		h.children(n)
		h.buf.WriteByte('\n')
	case "h1", "h2", "h3", "h4", "h5", "h6":
		if t := strings.TrimSpace(innerText(n)); t != "" {
			h.buf.WriteString(t + "\n\n")
		}
	case "ul", "ol":
		h.list(n, strings.ToLower(n.Data) == "ol")
	case "blockquote":
		h.quote++
		h.children(n)
		h.quote--
		h.buf.WriteByte('\n')
	case "pre", "code":
		h.code(n)
	case "a":
		h.anchor(n)
	case "img":
		im := ImageRef{Source: attr(n, "src"), ContentID: strings.Trim(attr(n, "cid", "data-cid"), "<>")}
		h.images = append(h.images, im)
	case "table":
		h.table(n)
	default:
		h.children(n)
	}
}

func (h *htmlText) writeText(s string) {
	if strings.TrimSpace(s) == "" {
		if h.pre {
			h.buf.WriteString(s)
		} else if s != "" && !h.endsInSpace() {
			h.buf.WriteByte(' ')
		}
		return
	}
	if h.quote == 0 || strings.HasPrefix(s, "> ") {
		h.buf.WriteString(s)
		return
	}
	prefix := strings.Repeat("> ", min(h.quote, 3))
	for i, ln := range strings.Split(s, "\n") {
		if i > 0 {
			h.buf.WriteByte('\n')
		}
		h.buf.WriteString(prefix + strings.TrimRightFunc(ln, unicode.IsSpace))
	}
}

func (h *htmlText) endsInSpace() bool {
	out := h.buf.String()
	return out == "" || unicode.IsSpace(rune(out[len(out)-1]))
}

func (h *htmlText) list(n *html.Node, ordered bool) {
	item := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || strings.ToLower(c.Data) != "li" {
			continue
		}
		item++
		if ordered {
			fmt.Fprintf(&h.buf, "%d. ", item)
		} else {
			h.buf.WriteString("- ")
		}
		h.children(c)
		h.buf.WriteByte('\n')
	}
}

// code fences preformatted content; nested pre/code share a single fence
func (h *htmlText) code(n *html.Node) {
	if h.pre {
		h.children(n)
		return
	}
	h.pre = true
	h.buf.WriteString("```\n")
	h.children(n)
	h.buf.WriteString("\n```\n")
	h.pre = false
}

func (h *htmlText) anchor(n *html.Node) {
	href := strings.TrimSpace(attr(n, "href"))
	label := strings.TrimSpace(innerText(n))
	if label == "" {
		label = strings.TrimSpace(attr(n, "aria-label", "title", "alt"))
	}
	if label == "" {
		label = href
	}
	if href == "" {
		h.buf.WriteString(label)
		return
	}
	idx := len(h.links) + 1
	h.links = append(h.links, LinkRef{Index: idx, URL: href, Text: label})
	fmt.Fprintf(&h.buf, "%s [%d]", label, idx)
}

// table renders each row on one line with cells separated by pipes
func (h *htmlText) table(n *html.Node) {
	var rows func(*html.Node)
	rows = func(n *html.Node) {
		if n.Type == html.ElementNode && strings.ToLower(n.Data) == "tr" {
			var cells []string
			for td := n.FirstChild; td != nil; td = td.NextSibling {
				if td.Type != html.ElementNode {
					continue
				}
				if name := strings.ToLower(td.Data); name == "td" || name == "th" {
					if c := strings.TrimSpace(innerText(td)); c != "" {
						cells = append(cells, c)
					}
				}
			}
			if len(cells) > 0 {
				h.buf.WriteString(strings.Join(cells, " | ") + "\n")
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rows(c)
		}
	}
	rows(n)
}

// attr returns the first non-empty value among the named attributes
func attr(n *html.Node, keys ...string) string {
	for _, k := range keys {
		for _, a := range n.Attr {
			if strings.EqualFold(a.Key, k) && a.Val != "" {
				return a.Val
			}
		}
	}
	return ""
}

func innerText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && strings.EqualFold(n.Data, "br"):
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// WrapTextPreserving wraps text to width. Quote prefixes are carried onto
// continuation lines; fenced code, PGP armor and URLs are never split.
func WrapTextPreserving(input string, width int) string {
	if width <= 0 {
		return input
	}
	var out []string
	verbatim := false
	armor := false
	for _, line := range strings.Split(normalizeNewlines(input), "\n") {
		switch {
		case strings.HasPrefix(strings.TrimSpace(line), "```"):
			verbatim = !verbatim
			out = append(out, line)
			continue
		case strings.HasPrefix(line, "-----BEGIN "):
			armor = true
		}
		if verbatim || armor {
			out = append(out, line)
			if strings.HasPrefix(line, "-----END ") {
				armor = false
			}
			continue
		}
		out = append(out, wrapLine(line, width)...)
	}
	return strings.Join(out, "\n")
}

// wrapLine greedily fills lines of at most width cells. Words wider than
// the available space are hard-split unless they are URLs.
func wrapLine(line string, width int) []string {
	rest := line
	prefix := ""
	for strings.HasPrefix(rest, "> ") {
		prefix += "> "
		rest = rest[2:]
	}
	words := strings.Fields(rest)
	if len(words) == 0 {
		return []string{prefix}
	}

	var lines []string
	cur := prefix
	empty := true
	flush := func() {
		lines = append(lines, strings.TrimRight(cur, " "))
		cur, empty = prefix, true
	}
	room := width - displayLen(prefix)
	for _, w := range words {
		wl := displayLen(w)
		if wl > room && !schemeToken.MatchString(w) {
			if !empty {
				flush()
			}
			for _, chunk := range splitWidth(w, max(room, 1)) {
				cur += chunk
				flush()
			}
			continue
		}
		switch {
		case empty:
			cur += w
			empty = false
		case displayLen(cur)+1+wl <= width:
			cur += " " + w
		default:
			flush()
			cur += w
			empty = false
		}
	}
	if !empty {
		flush()
	}
	return lines
}

// splitWidth cuts s into pieces no wider than width display cells
func splitWidth(s string, width int) []string {
	var parts []string
	var b strings.Builder
	w := 0
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if w+rw > width && b.Len() > 0 {
			parts = append(parts, b.String())
			b.Reset()
			w = 0
		}
		b.WriteRune(r)
		w += rw
	}
	if b.Len() > 0 {
		parts = append(parts, b.String())
	}
	return parts
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return collapseBlankRuns(s)
}

func collapseBlankRuns(s string) string {
	return blankRunsExp.ReplaceAllString(s, "\n\n")
}

func displayLen(s string) int { return runewidth.StringWidth(s) }
