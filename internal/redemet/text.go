package redemet

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanText flattens the HTML fragments REDEMET sometimes embeds in message
// text (highlight spans, <br>) and collapses whitespace runs to one space.
func CleanText(s string) string {
	if strings.ContainsAny(s, "<>&") {
		s = strings.NewReplacer("<br>", " ", "<br/>", " ", "<br />", " ").Replace(s)
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}
