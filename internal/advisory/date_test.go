package advisory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDateFormats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{name: "upcased abbreviation", text: "OCT 09, 2025", want: time.Date(2025, time.October, 9, 0, 0, 0, 0, time.UTC)},
		{name: "abbreviated month", text: "Oct 9, 2025", want: time.Date(2025, time.October, 9, 0, 0, 0, 0, time.UTC)},
		{name: "full month", text: "February 01, 2024", want: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)},
		{name: "embedded in text", text: "Released on March 7, 2019 at noon", want: time.Date(2019, time.March, 7, 0, 0, 0, 0, time.UTC)},
		{name: "surrounding whitespace", text: "  Jul 4, 2022  ", want: time.Date(2022, time.July, 4, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.text)
			require.True(t, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseDateRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "placeholder", text: "(no date)"},
		{name: "iso form", text: "2025-10-09"},
		{name: "four letter abbreviation", text: "Sept 5, 2020"},
		{name: "missing space after comma", text: "Oct 9,2025"},
		{name: "not a month", text: "Updated 12, 2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseDate(tt.text)
			require.False(t, ok)
		})
	}
}
