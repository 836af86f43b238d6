package crawler

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/karlseb/ttpharvest/internal/htmldoc"
)

// itemLinkSelector matches the anchors that carry advisory links on index
// pages: listing-row links plus anchors nested in card headings.
const itemLinkSelector = "h3 a, h2 a, .views-row a, article a"

// indexPageURL builds the URL for one index page by setting the page query
// parameter on the configured index URL.
func indexPageURL(indexURL string, page int) (string, error) {
	u, err := url.Parse(indexURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ExtractItemLinks enumerates candidate advisory links on an index page:
// anchors under the listing selectors with an href and visible text,
// absolutized against the index page URL and deduplicated preserving first
// occurrence. Fragments are dropped so in-page anchors collapse onto their
// target.
func ExtractItemLinks(doc *htmldoc.Document, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	var links []string
	seen := make(map[string]struct{})
	doc.Find(itemLinkSelector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		if strings.TrimSpace(s.Text()) == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		resolved.Fragment = ""
		link := resolved.String()
		if _, ok := seen[link]; ok {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})
	return links
}
