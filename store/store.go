package store

import "iter"

// Store is an ordered collection of settings, grouped by section in
// insertion order: a new setting is appended immediately after the last
// existing setting sharing its section, or at the end of the list if the
// section is new. This mirrors the order in which a real settings UI
// walks the collection section by section.
type Store struct {
	settings []*Setting
}

// NewStore returns an empty Store.
func NewStore() *Store { return new(Store) }

// Add inserts s into the collection, after the last existing setting in
// the same section, or at the end if the section has no settings yet.
func (st *Store) Add(s *Setting) {
	if len(st.settings) == 0 {
		st.settings = append(st.settings, s)
		return
	}

	last := -1
	for i, existing := range st.settings {
		if existing.Section == s.Section {
			last = i
		}
	}
	if last < 0 {
		st.settings = append(st.settings, s)
		return
	}

	st.settings = append(st.settings, nil)
	copy(st.settings[last+2:], st.settings[last+1:])
	st.settings[last+1] = s
}

// Lookup returns the setting registered under (section, name), or nil if
// none exists.
func (st *Store) Lookup(section, name string) *Setting {
	for _, s := range st.settings {
		if s.Section == section && s.Name == name {
			return s
		}
	}
	return nil
}

// Remove deletes the setting registered under (section, name), reporting
// whether one was found.
func (st *Store) Remove(section, name string) bool {
	for i, s := range st.settings {
		if s.Section == section && s.Name == name {
			st.settings = append(st.settings[:i], st.settings[i+1:]...)
			return true
		}
	}
	return false
}

// At returns the setting at the given zero-based position in insertion
// order, or nil if index is out of range.
func (st *Store) At(index int) *Setting {
	if index < 0 || index >= len(st.settings) {
		return nil
	}
	return st.settings[index]
}

// Len returns the number of settings in the collection.
func (st *Store) Len() int { return len(st.settings) }

// All returns an iterator over the settings in collection order.
func (st *Store) All() iter.Seq[*Setting] {
	return func(yield func(*Setting) bool) {
		for _, s := range st.settings {
			if !yield(s) {
				return
			}
		}
	}
}
