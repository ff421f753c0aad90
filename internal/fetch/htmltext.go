package fetch

import (
	"strings"

	"golang.org/x/net/html"
)

// HTMLToText parses HTML and returns its visible text with whitespace
// collapsed. Script, style, noscript, and iframe subtrees are skipped.
// Falls back to a raw whitespace collapse if the markup cannot be parsed.
func HTMLToText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return collapseWhitespace(htmlContent)
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			case "p", "div", "li", "br", "tr", "h1", "h2", "h3", "h4", "h5", "h6":
				buf.WriteByte(' ')
			}
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return collapseWhitespace(buf.String())
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
