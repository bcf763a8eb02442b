package enrichment

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
}

var chrome = map[atom.Atom]bool{
	atom.Nav:    true,
	atom.Footer: true,
	atom.Header: true,
	atom.Aside:  true,
}

var blocks = map[atom.Atom]bool{
	atom.P:  true,
	atom.H1: true,
	atom.H2: true,
	atom.H3: true,
	atom.H4: true,
	atom.Li: true,
}

// PlainText returns every visible text node of the document with runs of
// whitespace collapsed.
func PlainText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipped[n.DataAtom] {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return collapse(b.String()), nil
}

// ArticleText returns the text of paragraph, heading and list blocks outside
// page chrome, keeping only blocks longer than minLen characters.
func ArticleText(r io.Reader, minLen int) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipped[n.DataAtom] || chrome[n.DataAtom] {
				return
			}
			if blocks[n.DataAtom] {
				if text := collapse(textOf(n)); len(text) > minLen {
					parts = append(parts, text)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(parts, "\n\n"), nil
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipped[n.DataAtom] {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// StripTags is PlainText for short fragments such as search snippets.
func StripTags(fragment string) string {
	text, err := PlainText(strings.NewReader(fragment))
	if err != nil {
		return collapse(fragment)
	}
	return text
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
