// Package strtable implements the monotonic string-interning table used for
// AntEater identifiers and string literals (spec §4.1).
package strtable

import "anteater/internal/diagnostics"

// Table is a bidirectional intern table: text <-> non-negative integer id.
// Ids are assigned in insertion order and are never reused, so an id
// returned by Intern remains valid for the lifetime of the Table.
type Table struct {
	strings []string
	lookup  map[string]int
}

// New returns an empty Table.
func New() *Table {
	return &Table{lookup: make(map[string]int)}
}

// Intern returns the id for text, interning it if this is the first time
// text has been seen. Two calls with byte-equal text always return the
// same id.
func (t *Table) Intern(text string) int {
	if id, ok := t.lookup[text]; ok {
		return id
	}
	id := len(t.strings)
	t.strings = append(t.strings, text)
	t.lookup[text] = id
	return id
}

// Lookup returns the text for id. It panics with a *diagnostics.AntError of
// kind BadStringId if id is out of range.
func (t *Table) Lookup(id int) string {
	if id < 0 || id >= len(t.strings) {
		panic(diagnostics.New(diagnostics.BadStringId, 0, 0, "invalid string id %d", id))
	}
	return t.strings[id]
}

// Size returns the number of interned strings, i.e. one past the highest
// valid id.
func (t *Table) Size() int {
	return len(t.strings)
}
