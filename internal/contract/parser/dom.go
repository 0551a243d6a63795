package parser

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

// findAll returns element nodes of type a in document order.
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

func skipped(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Head, atom.Noscript:
		return true
	}
	return false
}

// textOf returns the cleaned text content of n.
func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if skipped(n) {
			return
		}
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
		case html.ElementNode:
			if n.DataAtom == atom.Br {
				sb.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return Clean(sb.String())
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Br, atom.Li, atom.Tr, atom.Table, atom.H1, atom.H2,
		atom.H3, atom.H4, atom.H5, atom.H6, atom.Section, atom.Article, atom.Pre:
		return true
	}
	return false
}

// lines renders the document as text with one line per block element.
func lines(n *html.Node) []string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if skipped(n) {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && (n.DataAtom == atom.Td || n.DataAtom == atom.Th) {
			sb.WriteString(" ")
		}
		block := n.Type == html.ElementNode && isBlock(n.DataAtom)
		if block {
			sb.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			sb.WriteString("\n")
		}
	}
	walk(n)
	return splitLines(sb.String())
}

func splitLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = Clean(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// isBold reports whether all of n's text sits inside b/strong/th elements or
// an inline bold style.
func isBold(n *html.Node) bool {
	var plain, bold int
	var walk func(*html.Node, bool)
	walk = func(n *html.Node, inBold bool) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.B, atom.Strong, atom.Th:
				inBold = true
			}
			style := strings.ToLower(strings.ReplaceAll(attr(n, "style"), " ", ""))
			if strings.Contains(style, "font-weight:bold") || strings.Contains(style, "font-weight:700") {
				inBold = true
			}
		}
		if n.Type == html.TextNode && strings.TrimSpace(n.Data) != "" {
			if inBold {
				bold++
			} else {
				plain++
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inBold)
		}
	}
	walk(n, false)
	return bold > 0 && plain == 0
}
