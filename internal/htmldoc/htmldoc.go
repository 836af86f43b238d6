// Package htmldoc wraps a parsed HTML tree with the traversal primitives the
// advisory parsers need: a document-order iterator, heading helpers, and
// visible-text extraction. Selector queries go through goquery; structural
// walks operate on the underlying x/net/html nodes directly so callers can
// stop, skip, and resume mid-document.
package htmldoc

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a parsed HTML page.
type Document struct {
	Root  *html.Node
	query *goquery.Document
}

// Parse builds a Document from raw HTML bytes.
func Parse(body []byte) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{Root: root, query: goquery.NewDocumentFromNode(root)}, nil
}

// Find runs a CSS selector query against the document.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.query.Find(selector)
}

// NextInDocumentOrder returns the node following n in a pre-order walk of
// the whole document, or nil when n is the last node.
func NextInDocumentOrder(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for ; n != nil; n = n.Parent {
		if n.NextSibling != nil {
			return n.NextSibling
		}
	}
	return nil
}

// HeadingLevel reports the level of a heading element (h1 through h6).
// The second return is false for every other node.
func HeadingLevel(n *html.Node) (int, bool) {
	if n == nil || n.Type != html.ElementNode || len(n.Data) != 2 {
		return 0, false
	}
	if n.Data[0] != 'h' || n.Data[1] < '1' || n.Data[1] > '6' {
		return 0, false
	}
	return int(n.Data[1] - '0'), true
}

// HeadingAncestor returns n itself when n is a heading element, otherwise
// the nearest heading among n's ancestors, or nil when there is none.
// Headings do not nest in valid HTML, so the first hit is the only one.
func HeadingAncestor(n *html.Node) *html.Node {
	for ; n != nil; n = n.Parent {
		if _, ok := HeadingLevel(n); ok {
			return n
		}
	}
	return nil
}

// FirstHeadingDescendant returns the first heading element strictly below n
// in document order, or nil when the subtree contains none.
func FirstHeadingDescendant(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	for c := n.FirstChild; c != nil; c = nextWithin(n, c) {
		if _, ok := HeadingLevel(c); ok {
			return c
		}
	}
	return nil
}

// nextWithin advances in document order without leaving root's subtree.
func nextWithin(root, n *html.Node) *html.Node {
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for ; n != nil && n != root; n = n.Parent {
		if n.NextSibling != nil {
			return n.NextSibling
		}
	}
	return nil
}

// Text returns the visible text beneath n: each text fragment trimmed of
// surrounding whitespace, empty fragments dropped, and the rest joined with
// single spaces. Script, style, and template contents are not visible text.
func Text(n *html.Node) string {
	var parts []string
	collectText(n, &parts)
	return strings.Join(parts, " ")
}

// CompactText is Text with no separator between fragments. It mirrors how
// titles and timestamps are rendered on the page when they hold a single
// text node, which is the case for the markup this package targets.
func CompactText(n *html.Node) string {
	var parts []string
	collectText(n, &parts)
	return strings.Join(parts, "")
}

func collectText(n *html.Node, parts *[]string) {
	if n == nil {
		return
	}
	switch n.Type {
	case html.TextNode:
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "template":
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}
