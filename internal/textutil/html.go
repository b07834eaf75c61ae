package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var looksLikeHTML = regexp.MustCompile(`(?i)<\s*(html|body|div|table|p|br|span|td|h[1-6])\b`)

var blockAtoms = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Tr: true, atom.Li: true,
	atom.Table: true, atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
	atom.H5: true, atom.H6: true, atom.Section: true, atom.Header: true, atom.Footer: true,
}

// IsHTML reports whether body is an HTML document rather than plain text.
func IsHTML(body string) bool {
	return looksLikeHTML.MatchString(body)
}

// HTMLToText flattens an HTML body to text: block elements end a line,
// table cells are separated by a space. Plain text bodies are returned
// with each line cleaned. Blank lines are dropped.
func HTMLToText(body string) string {
	if !IsHTML(body) {
		return joinLines(strings.Split(body, "\n"))
	}
	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return joinLines(strings.Split(body, "\n"))
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style || n.DataAtom == atom.Head {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch {
			case blockAtoms[n.DataAtom]:
				b.WriteString("\n")
			case n.DataAtom == atom.Td || n.DataAtom == atom.Th:
				b.WriteString(" ")
			}
		}
	}
	walk(root)
	return joinLines(strings.Split(b.String(), "\n"))
}

func joinLines(lines []string) string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if c := Clean(l); c != "" {
			out = append(out, c)
		}
	}
	return strings.Join(out, "\n")
}

// nodeText returns the cleaned text content of n.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return Clean(b.String())
}

func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == a {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func nextElementSibling(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

// directCells returns the td/th children of a table row, skipping cells of
// nested tables.
func directCells(tr *html.Node) []*html.Node {
	var cells []*html.Node
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			cells = append(cells, c)
		}
	}
	return cells
}
