package render

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
	"golang.org/x/net/html"
)

// VisibleText parses an HTML fragment and emits its visible text, skipping
// head/style/script subtrees. Block-ish elements become line breaks so the
// result roughly mirrors what a user sees in the rendered row.
func VisibleText(htmlStr string) string {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return ""
	}
	var b strings.Builder

	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text := sanitizeGlyphs(n.Data)
			if strings.TrimSpace(text) != "" {
				b.WriteString(text)
			}
		case html.CommentNode:
			return
		case html.ElementNode:
			tag := strings.ToLower(n.Data)
			switch tag {
			case "head", "style", "script", "title", "meta", "link", "svg":
				// Skip entire subtree
				return
			case "br":
				b.WriteByte('\n')
			case "div", "p", "li", "tr", "section", "header", "footer":
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					visit(c)
				}
				b.WriteByte('\n')
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)

	return strings.TrimSpace(b.String())
}

// FirstLine returns the first non-empty visible text line of an HTML
// fragment, whitespace-normalized. Empty string when the fragment has no
// visible text.
func FirstLine(htmlStr string) string {
	for _, line := range strings.Split(VisibleText(htmlStr), "\n") {
		normalized := strings.Join(strings.Fields(line), " ")
		if normalized != "" {
			return normalized
		}
	}
	return ""
}

// Preview collapses s to a single log-friendly line truncated to the given
// display width. Control characters and zero-width glyphs are scrubbed so
// page content cannot corrupt the log stream.
func Preview(s string, width int) string {
	s = sanitizeGlyphs(s)
	s = strings.Join(strings.Fields(s), " ")
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}

// sanitizeGlyphs replaces rich-text glyphs that commonly render as tofu with
// ASCII-safe equivalents and drops control and zero-width characters.
func sanitizeGlyphs(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case ' ', ' ': // no-break spaces
			b.WriteRune(' ')
		case '\u200b', '\u200c', '\u200d', '\ufeff', '\u2060', '\u00ad':
			// zero-width, word joiner, soft hyphen → drop
		case '–', '—':
			b.WriteRune('-')
		case '‘', '’':
			b.WriteRune('\'')
		case '“', '”':
			b.WriteRune('"')
		case '…':
			b.WriteString("...")
		default:
			if r >= ' ' && r <= ' ' { // typographic spaces
				b.WriteRune(' ')
				continue
			}
			// Skip control chars except newline/tab
			if unicode.IsControl(r) && r != '\n' && r != '\t' {
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
