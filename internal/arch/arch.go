// Package arch models the Manchester Baby (SSEM) instruction set: word
// encoding/decoding and the mnemonic/directive catalog, including the
// historical opcode aliases (CMP/SKN, STP/HLT).
package arch

import (
	"strings"

	"github.com/andybower/babytools/internal/strtab"
	"github.com/andybower/babytools/internal/symbols"
)

// Word is a 32-bit machine word. Arithmetic on it wraps per spec; only the
// low 16 bits are ever significant to the instruction encoding.
type Word = int32

// Addr is a store address. Valid store addresses are 0..8191.
type Addr = uint32

// Opcode is one of the eight 3-bit SSEM operations.
type Opcode uint8

// The eight SSEM opcodes, in their natural 3-bit encoding.
const (
	JMP Opcode = iota
	JRP
	LDN
	STO
	SUB
	SubAlias // opcode 5: decodes identically to SUB, has no mnemonic of its own
	SKN
	HLT
)

const (
	opcodeMask  = 0xE000
	operandMask = 0x1FFF
	opdataMask  = 0xFFFF0000
	opcodePos   = 13
	opdataPos   = 16
)

// Decoded is the result of splitting a word into its instruction fields.
type Decoded struct {
	Opcode  Opcode
	Operand uint32
	Data    uint32
}

// Decode splits word into its opcode, operand, and data fields.
func Decode(word Word) Decoded {
	uw := uint32(word)
	return Decoded{
		Opcode:  Opcode((uw & opcodeMask) >> opcodePos),
		Operand: uw & operandMask,
		Data:    (uw & opdataMask) >> opdataPos,
	}
}

// Encode packs opcode and operand into a word, the inverse of Decode's
// opcode/operand fields. operand is ignored (masked to zero) by no-arity
// instructions at the call site; Encode itself just masks both fields.
func Encode(opcode Opcode, operand uint32) Word {
	uw := (uint32(opcode) << opcodePos) & opcodeMask
	uw |= operand & operandMask
	return Word(uw)
}

// Instr describes an instruction opcode and how many operands it takes.
type Instr struct {
	Opcode   Opcode
	Operands int // 0 or 1
}

// Kind distinguishes the three flavours of mnemonic.
type Kind int

const (
	KindInstr Kind = iota
	KindDirective
	KindMacro
)

// Directive identifies one of the two pseudo-instructions.
type Directive int

const (
	DirNum Directive = iota // emits the operand verbatim
	DirEJA                  // emits operand-1
)

// Mnemonic is one named entry in the architecture's mnemonic table: an
// instruction or a directive. KindMacro exists in the taxonomy but arch
// never constructs one: user-defined macros are represented by
// assembler.Macro and installed as mnemonic symbols directly by the
// assembler, keeping macro ASTs out of this package.
type Mnemonic struct {
	Name  string
	Kind  Kind
	Instr Instr     // valid when Kind == KindInstr
	Dir   Directive // valid when Kind == KindDirective
}

// baseMnemonics is the fixed SSEM mnemonic table. Preferred aliases are
// listed first: CMP/STP are recognized as synonyms for SKN/HLT but are
// never returned first by FindOpcode.
var baseMnemonics = []Mnemonic{
	{Name: "JMP", Kind: KindInstr, Instr: Instr{JMP, 1}},
	{Name: "JRP", Kind: KindInstr, Instr: Instr{JRP, 1}},
	{Name: "SUB", Kind: KindInstr, Instr: Instr{SUB, 1}},
	{Name: "LDN", Kind: KindInstr, Instr: Instr{LDN, 1}},
	{Name: "SKN", Kind: KindInstr, Instr: Instr{SKN, 0}},
	{Name: "STO", Kind: KindInstr, Instr: Instr{STO, 1}},
	{Name: "HLT", Kind: KindInstr, Instr: Instr{HLT, 0}},
	{Name: "CMP", Kind: KindInstr, Instr: Instr{SKN, 0}},
	{Name: "STP", Kind: KindInstr, Instr: Instr{HLT, 0}},
	{Name: "NUM", Kind: KindDirective, Dir: DirNum},
	{Name: "EJA", Kind: KindDirective, Dir: DirEJA},
}

// Catalog is the mnemonic table for one architecture instance: a
// case-insensitive name index plus an opcode reverse index ordered with
// the first-declared alias preferred.
type Catalog struct {
	byName   map[string]*Mnemonic
	byOpcode map[Opcode][]*Mnemonic
	all      []*Mnemonic
}

// NewCatalog builds the SSEM mnemonic table: a case-folded name index
// for forward search, and an opcode index in declaration order so
// reverse search yields the preferred alias first.
func NewCatalog() *Catalog {
	c := &Catalog{
		byName:   make(map[string]*Mnemonic, len(baseMnemonics)),
		byOpcode: make(map[Opcode][]*Mnemonic, 8),
	}

	mnemonics := make([]Mnemonic, len(baseMnemonics))
	copy(mnemonics, baseMnemonics)

	for i := range mnemonics {
		m := &mnemonics[i]
		c.all = append(c.all, m)
		c.byName[strings.ToLower(m.Name)] = m
		if m.Kind == KindInstr {
			c.byOpcode[m.Instr.Opcode] = append(c.byOpcode[m.Instr.Opcode], m)
		}
	}

	return c
}

// FindInstr looks up a mnemonic by name, case-insensitively. It returns
// nil if no such mnemonic is declared.
func (c *Catalog) FindInstr(name string) *Mnemonic {
	return c.byName[strings.ToLower(name)]
}

// FindOpcode returns up to max mnemonics sharing opcode, primary
// (first-declared) alias first.
func (c *Catalog) FindOpcode(opcode Opcode, max int) []*Mnemonic {
	all := c.byOpcode[opcode]
	if max <= 0 || max > len(all) {
		max = len(all)
	}
	return all[:max]
}

// Install registers every mnemonic in the catalog into root's mnemonic
// table, so instruction names resolve through the same lookup chain as
// user-defined macros.
func (c *Catalog) Install(root *symbols.Context, strtab *strtab.Table) {
	for _, m := range c.all {
		ref := root.GetRef(strtab, symbols.TypeMnemonic, m.Name)
		root.SetVal(ref, symbols.Value{Subtype: symbols.SubMnem, Internal: m})
	}
}
