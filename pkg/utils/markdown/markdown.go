// Package markdown reduces model-authored markdown to plain text.
package markdown

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

var (
	bfRenderer = blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.Smartypants | blackfriday.SmartypantsDashes,
	})
	bfExtensions = blackfriday.NoIntraEmphasis | blackfriday.FencedCode | blackfriday.Strikethrough | blackfriday.SpaceHeadings
	strict       = bluemonday.StrictPolicy()
)

// PlainText renders source as markdown, strips every tag and collapses
// whitespace into single spaces. Headings, list markers and emphasis vanish.
func PlainText(source string) string {
	if strings.TrimSpace(source) == "" {
		return ""
	}
	rendered := blackfriday.Run([]byte(source),
		blackfriday.WithRenderer(bfRenderer),
		blackfriday.WithExtensions(bfExtensions),
	)
	text := html.UnescapeString(string(strict.SanitizeBytes(rendered)))
	return strings.Join(strings.Fields(text), " ")
}

// StripTags removes HTML-ish markup without interpreting markdown.
func StripTags(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(strict.Sanitize(s))), " ")
}
