package markdown

import (
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
)

// ToPlainText flattens markdown from the model into plain text, since LINE
// text messages carry no rich formatting.
func ToPlainText(markdown string) string {
	if markdown == "" {
		return ""
	}

	html := string(blackfriday.Run([]byte(markdown), blackfriday.WithExtensions(blackfriday.CommonExtensions)))

	return stripHTML(html)
}

var (
	paragraphRe = regexp.MustCompile(`<p>((?s).*?)</p>`)
	tagRe       = regexp.MustCompile(`</?[a-zA-Z]+(?:\s[^>]*)?/?>`)
	newlinesRe  = regexp.MustCompile(`\n{3,}`)
)

func stripHTML(html string) string {
	html = paragraphRe.ReplaceAllString(html, "$1\n")

	// Keep list items readable before dropping the tags
	html = strings.ReplaceAll(html, "<li>", "• ")
	html = strings.ReplaceAll(html, "</li>", "\n")
	html = strings.ReplaceAll(html, "<br>", "\n")
	html = strings.ReplaceAll(html, "<br/>", "\n")

	html = tagRe.ReplaceAllString(html, "")

	html = strings.ReplaceAll(html, "&amp;", "&")
	html = strings.ReplaceAll(html, "&lt;", "<")
	html = strings.ReplaceAll(html, "&gt;", ">")
	html = strings.ReplaceAll(html, "&quot;", "\"")
	html = strings.ReplaceAll(html, "&#39;", "'")

	html = newlinesRe.ReplaceAllString(html, "\n\n")

	return strings.TrimSpace(html)
}
