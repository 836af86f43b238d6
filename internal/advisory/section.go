package advisory

import (
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/karlseb/ttpharvest/internal/htmldoc"
)

// Keyword sets for the two sections every record carries. Matching is a
// case-insensitive substring test against the heading text.
var (
	SummaryKeywords    = []string{"executive summary", "introduction", "summary", "overview"}
	MitigationKeywords = []string{"mitigation"}
)

// ExtractSection collects the prose of the first section whose heading
// mentions one of the keywords. The walk runs in document order from the
// matched heading and ends at the next heading of the same or higher
// level, wherever that heading sits in the tree. Content is taken from
// paragraph-like containers (p, ul, ol, div). A deeper heading contributes
// its own text as a segment marker and the walk continues through its
// content; a container wrapping such a heading is skipped as a whole
// because its pieces are collected individually.
func ExtractSection(doc *htmldoc.Document, keywords []string, logger *zap.Logger) string {
	anchor, level := findAnchor(doc, keywords)
	if anchor == nil {
		logger.Warn("no heading matches section keywords", zap.Strings("keywords", keywords))
		return ""
	}

	var parts []string
walk:
	for n := htmldoc.NextInDocumentOrder(anchor); n != nil; n = htmldoc.NextInDocumentOrder(n) {
		if n.Type != html.ElementNode {
			continue
		}

		if ha := htmldoc.HeadingAncestor(n); ha != nil && ha != anchor {
			haLevel, _ := htmldoc.HeadingLevel(ha)
			if haLevel <= level {
				break walk
			}
			if n == ha {
				if t := htmldoc.Text(ha); t != "" {
					parts = append(parts, t)
				}
			}
			continue
		}

		if !isContainer(n.Data) {
			continue
		}
		if hd := htmldoc.FirstHeadingDescendant(n); hd != nil {
			hdLevel, _ := htmldoc.HeadingLevel(hd)
			if hdLevel <= level {
				break walk
			}
			continue
		}
		if t := htmldoc.Text(n); t != "" {
			parts = append(parts, t)
		}
	}

	if len(parts) == 0 {
		logger.Warn("section heading matched but no content collected",
			zap.Strings("keywords", keywords))
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

func findAnchor(doc *htmldoc.Document, keywords []string) (*html.Node, int) {
	for n := doc.Root; n != nil; n = htmldoc.NextInDocumentOrder(n) {
		level, ok := htmldoc.HeadingLevel(n)
		if !ok {
			continue
		}
		text := strings.ToLower(htmldoc.CompactText(n))
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				return n, level
			}
		}
	}
	return nil, 0
}

func isContainer(tag string) bool {
	switch tag {
	case "p", "ul", "ol", "div":
		return true
	}
	return false
}
