// Package taxonomy loads the ATT&CK technique catalog from STIX 2.0 bundles
// and serves technique lookups for the rest of the harvester.
package taxonomy

// Bundle is a STIX 2.0 bundle document. Only the object list matters here.
type Bundle struct {
	Objects []Object `json:"objects"`
}

// Object is the subset of a STIX object this package reads.
type Object struct {
	Type               string              `json:"type"`
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	Revoked            bool                `json:"revoked"`
	Deprecated         bool                `json:"x_mitre_deprecated"`
	KillChainPhases    []KillChainPhase    `json:"kill_chain_phases"`
	ExternalReferences []ExternalReference `json:"external_references"`
}

// KillChainPhase names one tactic the technique belongs to.
type KillChainPhase struct {
	KillChainName string `json:"kill_chain_name"`
	PhaseName     string `json:"phase_name"`
}

// ExternalReference links a STIX object to an external catalog entry.
type ExternalReference struct {
	SourceName string `json:"source_name"`
	ExternalID string `json:"external_id"`
	URL        string `json:"url"`
}

var attackSourceNames = map[string]struct{}{
	"mitre-attack":        {},
	"mitre-mobile-attack": {},
	"mitre-ics-attack":    {},
}

// AttackID returns the technique identifier recorded in the object's
// external references, or "" when none is present.
func (o Object) AttackID() string {
	for _, ref := range o.ExternalReferences {
		if _, ok := attackSourceNames[ref.SourceName]; ok && ref.ExternalID != "" {
			return ref.ExternalID
		}
	}
	return ""
}
