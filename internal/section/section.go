// Package section implements the assembler's origin-relative output
// buffer: a growable array of words addressed from a configurable
// origin, with per-word debug provenance and duplicate-write detection.
package section

import (
	"fmt"

	"github.com/andybower/babytools/internal/arch"
)

const growthStride = 0x400

// Data is one stored word plus the record that produced it. Debug is nil
// if the slot was never written or was written with a nil debug.
type Data struct {
	Value arch.Word
	Debug any // *assembler.Record, set by PutWord's caller
}

// Section is a single contiguous output region: capacity grows
// geometrically, by at least growthStride words, as the cursor advances
// past it.
type Section struct {
	Org    arch.Addr
	Cursor arch.Addr
	Length arch.Addr
	Data   []Data
}

// New returns an empty section starting at org.
func New(org arch.Addr) *Section {
	return &Section{Org: org, Cursor: org}
}

// ErrBeforeOrigin is returned when the cursor has been moved before the
// section's origin by an ORG directive.
type ErrBeforeOrigin struct {
	Cursor, Org arch.Addr
}

func (e *ErrBeforeOrigin) Error() string {
	return fmt.Sprintf("section: cursor 0x%x is before origin 0x%x", e.Cursor, e.Org)
}

// ErrDuplicateWrite is returned when PutWord targets an address whose
// slot already carries a non-nil debug link.
type ErrDuplicateWrite struct {
	Addr arch.Addr
}

func (e *ErrDuplicateWrite) Error() string {
	return fmt.Sprintf("section: address 0x%08x already has data", e.Addr)
}

// PutWord writes word at the current cursor, advancing it by one, and
// records debug against that slot. It grows the backing array
// geometrically (doubling, and always by at least growthStride words
// past the cursor), and refuses to write before the section's origin or
// over a slot that already carries a non-nil debug link. A slot written
// with a nil debug (pass 1's placeholder, or a loader) may be written
// again.
func (s *Section) PutWord(word arch.Word, debug any) error {
	if s.Cursor < s.Org {
		return &ErrBeforeOrigin{Cursor: s.Cursor, Org: s.Org}
	}

	offset := s.Cursor - s.Org
	if int(offset) >= len(s.Data) {
		newCap := 2 * len(s.Data)
		if newCap < int(offset)+growthStride {
			newCap = int(offset) + growthStride
		}
		grown := make([]Data, newCap)
		copy(grown, s.Data)
		s.Data = grown
	}

	if s.Data[offset].Debug != nil {
		return &ErrDuplicateWrite{Addr: s.Cursor}
	}

	s.Data[offset] = Data{Value: word, Debug: debug}
	s.Cursor++
	if s.Cursor-s.Org > s.Length {
		s.Length = s.Cursor - s.Org
	}
	return nil
}

// Word returns the stored word at addr, or 0 if addr was never written.
func (s *Section) Word(addr arch.Addr) arch.Word {
	if addr < s.Org {
		return 0
	}
	offset := int(addr - s.Org)
	if offset >= len(s.Data) {
		return 0
	}
	return s.Data[offset].Value
}
