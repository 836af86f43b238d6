package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreLookupReturnsCopies(t *testing.T) {
	t.Parallel()

	store := NewStore(map[string]Entry{
		"T1059": {Name: "Command and Scripting Interpreter", Tactics: []string{"execution"}},
	})

	entry, ok := store.Lookup("T1059")
	require.True(t, ok)
	entry.Tactics[0] = "mutated"

	again, ok := store.Lookup("T1059")
	require.True(t, ok)
	require.Equal(t, []string{"execution"}, again.Tactics)
}

func TestStoreLookupMiss(t *testing.T) {
	t.Parallel()

	store := NewStore(nil)
	_, ok := store.Lookup("T9999")
	require.False(t, ok)
	require.Zero(t, store.Len())
}

func TestAttackIDPrefersAttackSources(t *testing.T) {
	t.Parallel()

	obj := Object{
		ExternalReferences: []ExternalReference{
			{SourceName: "capec", ExternalID: "CAPEC-163"},
			{SourceName: "mitre-ics-attack", ExternalID: "T0817"},
		},
	}
	require.Equal(t, "T0817", obj.AttackID())

	require.Empty(t, Object{}.AttackID())
}
