package advisory

import (
	"regexp"
	"strings"
	"time"
)

// datePattern captures dates like "OCT 09, 2025", "Oct 9, 2025" and
// "February 01, 2024" out of surrounding text.
var datePattern = regexp.MustCompile(`([A-Za-z]{3,9})\s+(\d{1,2}),\s+(\d{4})`)

// ParseDate extracts and parses a calendar date from free text. Index pages
// upcase the month abbreviation, so the month token is case-normalized
// before parsing. Returns false when no parsable date is present.
func ParseDate(text string) (time.Time, bool) {
	m := datePattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	candidate := normalizeMonth(m[1]) + " " + m[2] + ", " + m[3]
	for _, layout := range []string{"Jan 2, 2006", "January 2, 2006"} {
		if t, err := time.Parse(layout, candidate); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func normalizeMonth(token string) string {
	lower := strings.ToLower(token)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
