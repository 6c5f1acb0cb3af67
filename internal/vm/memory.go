// Package vm implements the Baby's memory model and cycle-accurate
// simulator: an aliased page of physical memory, a single MappedPage
// exposing it across the full address space, and the five-phase
// instruction cycle.
package vm

import (
	"fmt"

	"github.com/andybower/babytools/internal/arch"
)

// AddrSpaceSize is the size of the Baby's full virtual address space:
// a 13-bit address, 8192 words.
const AddrSpaceSize = 8192

// Page is a block of physical memory: a power-of-two-sized array of
// words. It holds no addressing logic of its own; MappedPage does the
// aliasing arithmetic.
type Page struct {
	Data []arch.Word
	Size uint32
}

// NewPage allocates a physical page of size words. size must be a
// power of two and nonzero; violating that is a programmer error, so
// NewPage panics rather than returning an error.
func NewPage(size uint32) *Page {
	if size == 0 || size&(size-1) != 0 {
		panic(fmt.Sprintf("vm: page size %d is not a nonzero power of two", size))
	}
	return &Page{Data: make([]arch.Word, size), Size: size}
}

// MappedPage aliases a virtual address range of width Size, starting at
// Base, onto a physical Page: every access wraps within Phys by masking,
// so store addresses beyond Phys.Size silently alias back to word 0 and
// up. The Baby's store is a single fully aliased page: there is exactly
// one MappedPage, covering the whole 8192-word address space, over
// however much physical memory the simulator was configured with.
type MappedPage struct {
	Phys *Page
	Base uint32
	Size uint32
}

// NewMappedPage builds a MappedPage aliasing size virtual words starting
// at base onto phys, checking the mapping invariants: size and phys.Size
// nonzero, size a power of two, size a multiple of phys.Size, and base
// aligned to phys.Size. Any violation is a programmer error and panics
// rather than returning an error.
func NewMappedPage(phys *Page, base, size uint32) *MappedPage {
	switch {
	case size == 0:
		panic("vm: mapped page size must be nonzero")
	case phys.Size == 0:
		panic("vm: physical page size must be nonzero")
	case size&(size-1) != 0:
		panic("vm: mapped page size must be a power of two")
	case size%phys.Size != 0:
		panic("vm: mapped page size must be a multiple of the physical page size")
	case base%phys.Size != 0:
		panic("vm: mapped page base must be aligned to the physical page size")
	}
	return &MappedPage{Phys: phys, Base: base, Size: size}
}

// Read returns the word stored at addr, masking addr into the physical
// page.
func (m *MappedPage) Read(addr uint32) arch.Word {
	return m.Phys.Data[addr&(m.Phys.Size-1)]
}

// Write stores word at addr, aliasing the same way Read does.
func (m *MappedPage) Write(addr uint32, word arch.Word) {
	m.Phys.Data[addr&(m.Phys.Size-1)] = word
}

// NextPow2 rounds n up to the nearest power of two, with a floor of 1.
// Used by cmd/sim to implement "-m/--memory WORDS ... rounded up to a
// power of two".
func NextPow2(n int) uint32 {
	if n <= 1 {
		return 1
	}
	p := uint32(1)
	for p < uint32(n) {
		p <<= 1
	}
	return p
}
