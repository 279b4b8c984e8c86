// Package extract turns raw HTML into normalized visible text.
package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// skipParents are elements whose direct text children are never content
var skipParents = map[atom.Atom]bool{
	atom.Html:     true,
	atom.Head:     true,
	atom.Meta:     true,
	atom.Noscript: true,
	atom.Header:   true,
	atom.Input:    true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Template: true,
	atom.Title:    true,
}

// Text extracts visible text from raw markup. Text nodes are joined with a
// single space, whitespace control characters become spaces, runs of spaces
// collapse and the result is trimmed. Input that is not HTML at all is
// treated as a text fragment.
func Text(raw []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return Normalize(string(raw))
	}
	return fromNodes(doc.Nodes)
}

// String is Text for string input
func String(raw string) string {
	return Text([]byte(raw))
}

func fromNodes(nodes []*html.Node) string {
	var parts []string
	for _, n := range nodes {
		parts = collect(n, parts)
	}
	return Normalize(strings.Join(parts, " "))
}

func collect(n *html.Node, parts []string) []string {
	if n.Type == html.TextNode && visible(n) {
		parts = append(parts, n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		parts = collect(c, parts)
	}
	return parts
}

func visible(n *html.Node) bool {
	p := n.Parent
	if p == nil || p.Type == html.DocumentNode {
		return false
	}
	return !skipParents[p.DataAtom]
}

// Normalize collapses every run of whitespace, control characters included,
// into one space and trims the ends
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
