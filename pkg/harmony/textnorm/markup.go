package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldAccents removes combining marks ("Évaluation" -> "Evaluation").
func FoldAccents(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		return s
	}
	return folded
}

// StripMarkup returns the visible text of an HTML fragment. Text without a
// tag opener is returned unchanged; data dictionaries often carry
// "<b>Question</b><br/>..." style descriptions.
func StripMarkup(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(parts, " ")
}

// CleanField prepares a raw field value for tokenization or embedding:
// markup removed and whitespace collapsed.
func CleanField(s string) string {
	return strings.Join(strings.Fields(StripMarkup(s)), " ")
}
