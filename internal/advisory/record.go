// Package advisory parses fetched advisory pages into structured records:
// title and publish date from the page header, section prose under the
// summary and mitigations headings, and the resolved technique references.
package advisory

import (
	"time"

	"github.com/karlseb/ttpharvest/internal/attack"
)

// DateLayout is the ISO-8601 calendar date format used in records and
// dedup keys.
const DateLayout = "2006-01-02"

// Record is one harvested advisory.
type Record struct {
	Title       string                      `json:"title"`
	URL         string                      `json:"url"`
	Date        string                      `json:"date"`
	Summary     string                      `json:"summary"`
	Mitigations string                      `json:"mitigations"`
	Techniques  []attack.TechniqueReference `json:"techniques"`
}

// Key builds the dedup key for a title and publish date. Two index items
// with the same title and date are the same advisory, wherever they are
// linked from.
func Key(title string, published time.Time) string {
	return title + "||" + published.Format(DateLayout)
}

// Assemble builds the final record. Techniques is normalized to a non-nil
// slice so the field marshals as [] rather than null.
func Assemble(title, pageURL string, published time.Time, summary, mitigations string, techniques []attack.TechniqueReference) Record {
	if techniques == nil {
		techniques = []attack.TechniqueReference{}
	}
	return Record{
		Title:       title,
		URL:         pageURL,
		Date:        published.Format(DateLayout),
		Summary:     summary,
		Mitigations: mitigations,
		Techniques:  techniques,
	}
}
