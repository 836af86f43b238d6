package attack

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractIDsOrderAndDedup(t *testing.T) {
	t.Parallel()

	text := "Actors used T1566.002 for access, then T1059. Later T1566.002 appeared again alongside T1566."
	require.Equal(t, []string{"T1566.002", "T1059", "T1566"}, ExtractIDs(text))
}

func TestExtractIDsBoundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "plain id", text: "see T1110 for details", want: []string{"T1110"}},
		{name: "sub-technique", text: "(T1027.013)", want: []string{"T1027.013"}},
		{name: "five digits never match", text: "T12345", want: nil},
		{name: "three digits never match", text: "T123", want: nil},
		{name: "letter prefix blocks boundary", text: "CAT1566", want: nil},
		{name: "long suffix falls back to parent", text: "T1566.0021", want: []string{"T1566"}},
		{name: "punctuation is a boundary", text: "T1486, T1490.", want: []string{"T1486", "T1490"}},
		{name: "no identifiers", text: "nothing attack-shaped here", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ExtractIDs(tt.text))
		})
	}
}

func TestContainsID(t *testing.T) {
	t.Parallel()

	require.True(t, ContainsID("lateral movement via T1021.001"))
	require.False(t, ContainsID("no techniques mentioned"))
	require.False(t, ContainsID("T99999 is not an identifier"))
}

func TestTechniqueReferenceMarshalsEmptyTactics(t *testing.T) {
	t.Parallel()

	ref := TechniqueReference{ID: "T1566", Name: "Phishing", Tactics: []string{}}
	raw, err := json.Marshal(ref)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"T1566","name":"Phishing","tactics":[]}`, string(raw))
}
