// CLAUDE:SUMMARY Sanitized element excerpts and Markdown digests of a page's annotations.
// Package export turns annotated documents into shareable forms:
// sanitized HTML excerpts for pick records and a Markdown digest of a
// page's annotations.
package export

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/hazyhaar/dommark/dom"
)

// Oversized excerpts degrade to truncated plain text.
const (
	excerptCapBytes  = 2048
	excerptTextRunes = 300
)

// Entry is one annotation row feeding a digest.
type Entry struct {
	ID    string
	Kind  string
	Quote string
	Note  string
	Path  string
}

// Exporter holds the sanitation policy and the Markdown converter; both
// are reusable across calls.
type Exporter struct {
	ugc  *bluemonday.Policy
	conv *converter.Converter
}

// New creates an Exporter.
func New() *Exporter {
	return &Exporter{
		ugc: bluemonday.UGCPolicy(),
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Excerpt renders the element and sanitizes it for storage and display.
// Elements past the size cap degrade to collapsed plain text.
func (e *Exporter) Excerpt(n *html.Node) string {
	if n == nil {
		return ""
	}
	clean := strings.TrimSpace(e.ugc.Sanitize(dom.Render(n)))
	if len(clean) <= excerptCapBytes {
		return clean
	}
	return Truncate(dom.TextContent(n), excerptTextRunes)
}

// Sanitize strips untrusted markup from raw HTML, keeping the
// user-generated-content element set.
func (e *Exporter) Sanitize(raw []byte) []byte {
	return e.ugc.SanitizeBytes(raw)
}

// Digest renders a page's annotations as Markdown: one section per
// annotation with the quote as a blockquote, the note, the surrounding
// fragment converted from HTML, and the structural path. Fragments that
// no longer resolve or fail conversion fall back to plain text.
func (e *Exporter) Digest(doc *html.Node, pageURL string, entries []Entry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Annotations for %s\n\n", pageURL)
	if len(entries) == 0 {
		sb.WriteString("No annotations.\n")
		return sb.String()
	}
	for i, en := range entries {
		fmt.Fprintf(&sb, "## %d. %s %s\n\n", i+1, en.Kind, en.ID)
		for _, line := range strings.Split(strings.TrimSpace(en.Quote), "\n") {
			fmt.Fprintf(&sb, "> %s\n", line)
		}
		sb.WriteString("\n")
		if en.Note != "" {
			fmt.Fprintf(&sb, "Note: %s\n\n", en.Note)
		}
		if frag := e.fragment(doc, en.Path, pageURL); frag != "" {
			sb.WriteString(frag)
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "Path: `%s`\n\n", en.Path)
	}
	return sb.String()
}

// fragment converts the annotated element's surroundings to Markdown.
func (e *Exporter) fragment(doc *html.Node, path, pageURL string) string {
	n, err := dom.ResolvePath(doc, path)
	if err != nil {
		return ""
	}
	clean := e.ugc.Sanitize(dom.Render(n))
	md, err := e.conv.ConvertString(clean, converter.WithDomain(pageURL))
	if err != nil || strings.TrimSpace(md) == "" {
		return Truncate(dom.TextContent(n), excerptTextRunes)
	}
	return strings.TrimSpace(md)
}

// Truncate collapses whitespace runs and cuts s after max runes,
// appending an ellipsis when anything was dropped.
func Truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}
