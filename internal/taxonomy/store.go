package taxonomy

// Entry is the resolved detail for one technique identifier.
type Entry struct {
	Name    string
	Tactics []string
}

// Store is an immutable technique lookup table built once at startup.
// Lookups are safe for concurrent use without locking.
type Store struct {
	entries map[string]Entry
}

// NewStore copies the given entries into a Store.
func NewStore(entries map[string]Entry) *Store {
	cp := make(map[string]Entry, len(entries))
	for id, e := range entries {
		tactics := make([]string, len(e.Tactics))
		copy(tactics, e.Tactics)
		cp[id] = Entry{Name: e.Name, Tactics: tactics}
	}
	return &Store{entries: cp}
}

// Lookup returns the entry for id. The returned tactics slice is a copy the
// caller may keep or modify.
func (s *Store) Lookup(id string) (Entry, bool) {
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, false
	}
	tactics := make([]string, len(e.Tactics))
	copy(tactics, e.Tactics)
	return Entry{Name: e.Name, Tactics: tactics}, true
}

// Len reports how many techniques the store holds.
func (s *Store) Len() int {
	return len(s.entries)
}
