// Package textnorm converts platform markup into clean single-line ASCII text.
//
// Bodies arrive as Markdown that may embed raw HTML. Normalization renders the
// Markdown, keeps only text nodes (so link anchor text survives and href
// targets do not), removes bare URLs, collapses whitespace and drops non-ASCII
// characters. Markup is parsed exactly once. The characters Markdown or HTML
// could still read as markup are then neutralized, so the result is a fixed
// point: normalizing it again is a no-op.
package textnorm

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
)

var (
	urlPattern = regexp.MustCompile(`https?://\S+`)

	// entityPattern matches text an HTML parser would decode as a character
	// reference.
	entityPattern = regexp.MustCompile(`&([#A-Za-z0-9]+;)`)

	// Block markers only matter at the start of the line.
	leadingMarker = regexp.MustCompile(`^(?:[-+]|[0-9]{1,9}[.)]|#{1,6})(?: |$)`)
	leadingFence  = regexp.MustCompile(`^~{3,} ?`)
	thematicBreak = regexp.MustCompile(`^-(?: ?-){2,}$`)

	// inert rewrites inline markup characters. Brackets become parentheses
	// and backticks apostrophes; the rest become spaces.
	inert = strings.NewReplacer(
		"<", " ",
		">", " ",
		"\\", " ",
		"*", " ",
		"_", " ",
		"`", "'",
		"[", "(",
		"]", ")",
	)

	markdown = goldmark.New(goldmark.WithRendererOptions(gmhtml.WithUnsafe()))

	skippedElements = map[string]bool{
		"script": true,
		"style":  true,
		"head":   true,
	}
)

// Normalize returns the plain-text form of raw. A nil or empty input yields "".
func Normalize(raw *string) string {
	if raw == nil {
		return ""
	}
	return NormalizeString(*raw)
}

// NormalizeString is Normalize for a non-nil string.
func NormalizeString(s string) string {
	if s == "" {
		return ""
	}
	text := stripMarkup(s)
	text = asciiOnly(text)
	text = urlPattern.ReplaceAllString(text, " ")
	text = inert.Replace(text)
	text = entityPattern.ReplaceAllString(text, "& $1")
	text = collapse(text)
	return trimBlockMarkers(text)
}

// trimBlockMarkers removes list, heading and fence markers from the start of
// s. A line that is only a thematic break becomes empty.
func trimBlockMarkers(s string) string {
	for s != "" {
		if thematicBreak.MatchString(s) {
			return ""
		}
		loc := leadingMarker.FindStringIndex(s)
		if loc == nil {
			loc = leadingFence.FindStringIndex(s)
		}
		if loc == nil {
			return s
		}
		s = s[loc[1]:]
	}
	return s
}

// stripMarkup renders Markdown to HTML and returns the document's text nodes
// joined by single spaces.
func stripMarkup(s string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(s), &buf); err != nil {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return s
	}

	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		case html.ElementNode:
			if skippedElements[n.Data] {
				return
			}
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func asciiOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\t' || r == '\n' || r == '\r' || (r >= 0x20 && r < 0x7f) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
