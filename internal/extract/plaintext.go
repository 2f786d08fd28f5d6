package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var htmlMarkers = []string{"<!--", "</", "<br", "<img", "<details"}

// PlainText drops HTML markup that PR templates embed in markdown bodies
// (instruction comments, <details> wrappers, inline tags). Plain markdown is
// returned untouched.
func PlainText(body string) string {
	if !containsHTML(body) {
		return body
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return body
	}

	return strings.TrimSpace(doc.Text())
}

func containsHTML(body string) bool {
	for _, marker := range htmlMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}
