package exporter

import (
	"regexp"
	"strings"
)

var (
	htmlTagPattern       = regexp.MustCompile(`<[^>]*>`)
	htmlLineBreakPattern = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</div>|</li>`)
)

// &amp; decodes last so escaped entity text stays escaped
var htmlEntityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&amp;", "&",
)

// StripHTML converts rich text to plain text: block-level closers become
// newlines, remaining tags are removed, and common entities are decoded.
// Used by the spreadsheet, flow-document, and PDF renderers, which have no
// markup model of their own.
func StripHTML(input string) string {
	text := htmlLineBreakPattern.ReplaceAllString(input, "\n")
	text = htmlTagPattern.ReplaceAllString(text, "")
	text = htmlEntityReplacer.Replace(text)

	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return strings.Join(cleaned, "\n")
}
