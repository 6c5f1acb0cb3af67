// Package strtab implements an interned string table with stable integer
// handles, used throughout the assembler to decouple symbol and mnemonic
// lifetime from the source text they were parsed from.
package strtab

// Handle identifies a string stored in a Table. Handles never invalidate
// for the life of the table that issued them.
type Handle int

// Table is an append-only, deduplicating string store.
type Table struct {
	strings []string
	index   map[string]Handle
}

// New returns an empty string table.
func New() *Table {
	return &Table{
		index: make(map[string]Handle, 64),
	}
}

// Put interns s, returning its stable handle. Repeated Puts of the same
// string return the same handle.
func (t *Table) Put(s string) Handle {
	if h, ok := t.index[s]; ok {
		return h
	}
	h := Handle(len(t.strings))
	t.strings = append(t.strings, s)
	t.index[s] = h
	return h
}

// Get returns the string stored at h. It panics if h was never issued by
// this table, since that indicates a programmer error, not recoverable
// input.
func (t *Table) Get(h Handle) string {
	return t.strings[h]
}

// Len returns the number of distinct strings interned so far.
func (t *Table) Len() int {
	return len(t.strings)
}
