// Package attack extracts ATT&CK technique identifiers from advisory text
// and resolves them to display names and tactic lists.
package attack

import "regexp"

// TechniqueReference is one resolved technique as it appears in output
// records. Tactics is never nil so the field marshals as [] rather than null.
type TechniqueReference struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Tactics []string `json:"tactics"`
}

// idPattern matches technique identifiers such as T1566 or T1566.002.
// Word boundaries keep longer digit runs like T12345 from matching.
var idPattern = regexp.MustCompile(`\bT\d{4}(?:\.\d{1,3})?\b`)

// ContainsID reports whether text mentions at least one technique identifier.
func ContainsID(text string) bool {
	return idPattern.MatchString(text)
}

// ExtractIDs returns every distinct technique identifier in text, ordered by
// first appearance. A sub-technique and its parent are distinct identifiers.
func ExtractIDs(text string) []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, m := range idPattern.FindAllString(text, -1) {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		ids = append(ids, m)
	}
	return ids
}
