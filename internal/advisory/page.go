package advisory

import (
	"github.com/karlseb/ttpharvest/internal/htmldoc"
)

// NoTitle is the placeholder recorded when a page carries no usable heading.
const NoTitle = "(no title)"

// Page is the parsed header data of one advisory document.
type Page struct {
	URL     string
	Title   string
	RawDate string
	Doc     *htmldoc.Document
}

// ParsePage extracts the title and raw publish date from an advisory
// document. The title is the first h1 with text, falling back to the first
// h2; the raw date is the text of the first time element, parsed later.
func ParsePage(pageURL string, doc *htmldoc.Document) Page {
	title := NoTitle
	for _, sel := range []string{"h1", "h2"} {
		s := doc.Find(sel)
		if s.Length() == 0 {
			continue
		}
		if text := htmldoc.CompactText(s.Get(0)); text != "" {
			title = text
			break
		}
	}

	rawDate := ""
	if s := doc.Find("time"); s.Length() > 0 {
		rawDate = htmldoc.CompactText(s.Get(0))
	}

	return Page{URL: pageURL, Title: title, RawDate: rawDate, Doc: doc}
}
