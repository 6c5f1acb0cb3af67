package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andybower/babytools/internal/arch"
)

func newMem(t *testing.T, physWords uint32, image []arch.Word) *MappedPage {
	t.Helper()
	phys := NewPage(physWords)
	mem := NewMappedPage(phys, 0, AddrSpaceSize)
	for i, w := range image {
		mem.Write(uint32(i), w)
	}
	return mem
}

func TestPageInvariants(t *testing.T) {
	assert.Panics(t, func() { NewPage(0) })
	assert.Panics(t, func() { NewPage(48) })

	phys := NewPage(32)
	assert.Panics(t, func() { NewMappedPage(phys, 0, 0) })
	assert.Panics(t, func() { NewMappedPage(phys, 0, 48) })
	assert.Panics(t, func() { NewMappedPage(phys, 0, 16) }) // not a multiple of phys
	assert.Panics(t, func() { NewMappedPage(phys, 7, AddrSpaceSize) })
	assert.NotPanics(t, func() { NewMappedPage(phys, 0, AddrSpaceSize) })
}

func TestMemoryAliasing(t *testing.T) {
	mem := newMem(t, 32, nil)

	mem.Write(3, 99)
	assert.Equal(t, arch.Word(99), mem.Read(3))
	assert.Equal(t, arch.Word(99), mem.Read(3+32), "read must alias modulo the physical size")
	assert.Equal(t, arch.Word(99), mem.Read(3+4096))

	mem.Write(5+32, -7)
	assert.Equal(t, arch.Word(-7), mem.Read(5), "write must alias modulo the physical size")
}

// The canonical load-negate, store, halt demonstration program.
func TestRunLoadNegateStoreHalt(t *testing.T) {
	mem := newMem(t, 32, []arch.Word{0x4003, 0x6004, 0xE000, 0x0005, 0x0000})
	m := NewMachine()

	m.Step(mem)
	assert.Equal(t, int32(-5), m.AC, "after LDN 3")

	m.Step(mem)
	assert.Equal(t, arch.Word(-5), mem.Read(4), "after STO 4")

	m.Step(mem)
	require.True(t, m.Stopped, "after HLT")
	assert.Equal(t, uint64(3), m.Cycles)
}

func TestStepSkipsWhenNegative(t *testing.T) {
	// LDN 4; SKN; HLT; HLT; NUM 1. ac = -1 after the load, so SKN
	// skips the first HLT and the second one stops the machine.
	mem := newMem(t, 32, []arch.Word{0x4004, 0xC000, 0xE000, 0xE000, 0x0001})
	m := NewMachine()
	m.Run(mem, nil, nil)

	assert.Equal(t, uint64(3), m.Cycles)
	assert.Equal(t, int32(3), m.CI, "SKN must have skipped address 2")
}

func TestStepSknFallsThroughWhenNonNegative(t *testing.T) {
	// LDN 4 with mem[4] = -1 leaves ac = +1, so SKN does not skip.
	mem := newMem(t, 32, []arch.Word{0x4004, 0xC000, 0xE000, 0xE000, -1})
	m := NewMachine()
	m.Run(mem, nil, nil)

	assert.Equal(t, int32(1), m.AC)
	assert.Equal(t, int32(2), m.CI)
}

func TestStepJumpIndirect(t *testing.T) {
	// JMP 2 jumps to the address *stored at* word 2; with mem[2] = 3
	// the pre-increment fetch model executes word 4 next.
	mem := newMem(t, 32, []arch.Word{0x0002, 0xE000, 0x0003, 0xE000, 0xE000})
	m := NewMachine()

	m.Step(mem)
	assert.Equal(t, int32(3), m.CI)
	assert.False(t, m.Stopped)

	m.Step(mem)
	assert.True(t, m.Stopped)
	assert.Equal(t, int32(4), m.CI, "HLT must have been fetched from word 4")
}

func TestStepJumpRelative(t *testing.T) {
	// JRP 3 adds mem[3] = 2 to ci, leaving ci = 2; the pre-increment
	// fetch then lands on word 3.
	mem := newMem(t, 32, []arch.Word{0x2003, 0xE000, 0x0000, 0x0002, 0xE000})
	m := NewMachine()

	m.Step(mem)
	assert.Equal(t, int32(2), m.CI)

	m.Step(mem)
	assert.Equal(t, arch.Word(0x0002), m.PI, "fetch must land on word 3")
	assert.False(t, m.Stopped)
}

func TestSubAliasDecodesAsSub(t *testing.T) {
	// Opcode 5 (0xA000) subtracts exactly like SUB (0x8000).
	mem := newMem(t, 32, []arch.Word{0xA003, 0xE000, 0x0000, 0x0004})
	m := NewMachine()
	m.Run(mem, nil, nil)

	assert.Equal(t, int32(-4), m.AC)
}

func TestStopTokenEdges(t *testing.T) {
	var tok StopToken

	assert.False(t, tok.CheckDump())
	tok.RequestDump()
	tok.RequestDump()
	assert.True(t, tok.CheckDump(), "coalesced edge must be seen once")
	assert.False(t, tok.CheckDump(), "and only once")

	assert.False(t, tok.CheckHalt())
	tok.RequestHalt()
	assert.True(t, tok.CheckHalt())
	assert.False(t, tok.CheckHalt())
}

func TestRunHonoursHaltRequest(t *testing.T) {
	// An infinite loop: JMP 1 with mem[1] = -1, so ci = -1 and the next
	// fetch re-executes word 0 forever.
	mem := newMem(t, 32, []arch.Word{0x0001, -1})
	m := NewMachine()

	var tok StopToken
	tok.RequestHalt()
	m.Run(mem, &tok, nil)

	assert.False(t, m.Stopped, "halt request is external, not a HLT")
	assert.Equal(t, uint64(0), m.Cycles, "halt must be honoured before the next step")
}

func TestRunDumpCallback(t *testing.T) {
	mem := newMem(t, 32, []arch.Word{0x4003, 0x6004, 0xE000, 0x0005})
	m := NewMachine()

	var tok StopToken
	tok.RequestDump()
	dumps := 0
	m.Run(mem, &tok, func(got *Machine) {
		dumps++
		assert.Same(t, m, got)
	})

	assert.True(t, m.Stopped)
	assert.Equal(t, 1, dumps)
}

func TestNextPow2(t *testing.T) {
	cases := map[int]uint32{
		0:    1,
		1:    1,
		2:    2,
		3:    4,
		32:   32,
		33:   64,
		8191: 8192,
		8192: 8192,
	}
	for n, want := range cases {
		assert.Equal(t, want, NextPow2(n), "NextPow2(%d)", n)
	}
}
