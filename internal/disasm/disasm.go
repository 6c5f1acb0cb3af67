// Package disasm renders a loaded memory image back into reassemblable
// source: it classifies words as code or data by following execution
// flow from word 0, assigns auto-generated labels (L-prefixed for code
// targets, D-prefixed for data, _start at word 0), and prints one
// statement per word in the same surface syntax the assembler accepts.
package disasm

import (
	"bufio"
	"fmt"
	"io"

	"github.com/andybower/babytools/internal/arch"
	"github.com/andybower/babytools/internal/section"
)

// image is the flattened, classified view of a section being
// disassembled.
type image struct {
	catalog *arch.Catalog
	words   []arch.Word
	code    []bool // execution reaches this word as an instruction
	labelL  []bool // jumped-to code entry
	labelD  []bool // referenced as an operand slot
}

// Disassemble renders sec as source text on w.
func Disassemble(w io.Writer, sec *section.Section, catalog *arch.Catalog) error {
	img := newImage(sec, catalog)
	img.trace()

	bw := bufio.NewWriter(w)
	for addr := range img.words {
		if _, err := bw.WriteString(img.renderLine(addr)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func newImage(sec *section.Section, catalog *arch.Catalog) *image {
	n := int(sec.Org + sec.Length)
	img := &image{
		catalog: catalog,
		words:   make([]arch.Word, n),
		code:    make([]bool, n),
		labelL:  make([]bool, n),
		labelD:  make([]bool, n),
	}
	for addr := range img.words {
		img.words[addr] = sec.Word(arch.Addr(addr))
	}
	return img
}

// renderable reports whether word would re-encode to itself if printed
// as a mnemonic: its data field must be clear, its opcode must have a
// mnemonic (opcode 5 has none), and a zero-arity mnemonic cannot carry
// operand bits.
func (img *image) renderable(word arch.Word) *arch.Mnemonic {
	d := arch.Decode(word)
	if d.Data != 0 {
		return nil
	}
	ms := img.catalog.FindOpcode(d.Opcode, 1)
	if len(ms) == 0 {
		return nil
	}
	m := ms[0]
	if m.Instr.Operands == 0 && d.Operand != 0 {
		return nil
	}
	return m
}

// trace follows execution flow from word 0, marking code words and the
// label targets their operands imply. Jump targets are resolved through
// the image itself: JMP/JRP read their destination from the operand
// slot, so the slot is data and the word after the stored destination
// (the pre-increment fetch model) is a code entry.
func (img *image) trace() {
	if len(img.words) == 0 {
		return
	}

	var work []int
	enqueue := func(addr int) {
		if addr >= 0 && addr < len(img.words) && !img.code[addr] {
			work = append(work, addr)
		}
	}

	enqueue(0)
	for len(work) > 0 {
		addr := work[len(work)-1]
		work = work[:len(work)-1]
		if img.code[addr] {
			continue
		}

		m := img.renderable(img.words[addr])
		if m == nil {
			continue // falls out of code into data
		}
		img.code[addr] = true
		d := arch.Decode(img.words[addr])

		switch d.Opcode {
		case arch.LDN, arch.SUB, arch.STO:
			img.markData(int(d.Operand))
			enqueue(addr + 1)

		case arch.JMP:
			img.markData(int(d.Operand))
			if target, ok := img.storedTarget(int(d.Operand)); ok {
				img.markCode(target + 1)
				enqueue(target + 1)
			}

		case arch.JRP:
			// The destination depends on the dynamic ci; only the
			// operand slot itself can be classified statically.
			img.markData(int(d.Operand))

		case arch.SKN:
			enqueue(addr + 1)
			img.markCode(addr + 2)
			enqueue(addr + 2)

		case arch.HLT:
			// Flow ends here.
		}
	}
}

// storedTarget reads the jump destination held in the operand slot,
// reporting false when the slot or the destination's successor fall
// outside the image.
func (img *image) storedTarget(slot int) (int, bool) {
	if slot < 0 || slot >= len(img.words) {
		return 0, false
	}
	target := int(img.words[slot])
	if target < -1 || target+1 >= len(img.words) {
		return 0, false
	}
	return target, true
}

func (img *image) markData(addr int) {
	if addr >= 0 && addr < len(img.words) {
		img.labelD[addr] = true
	}
}

func (img *image) markCode(addr int) {
	if addr > 0 && addr < len(img.words) {
		img.labelL[addr] = true
	}
}

// labelFor returns the label defined at addr, or "" if the address is
// never referenced. Word 0 is always _start; a word that is both jumped
// to and loaded gets the code-flavoured name.
func (img *image) labelFor(addr int) string {
	switch {
	case addr == 0:
		return "_start"
	case addr < 0 || addr >= len(img.words):
		return ""
	case img.labelL[addr]:
		return fmt.Sprintf("L%d", addr)
	case img.labelD[addr]:
		return fmt.Sprintf("D%d", addr)
	default:
		return ""
	}
}

func (img *image) renderLine(addr int) string {
	prefix := ""
	if l := img.labelFor(addr); l != "" {
		prefix = l + ":"
	}
	return fmt.Sprintf("%-8s %s\n", prefix, img.renderStmt(addr))
}

func (img *image) renderStmt(addr int) string {
	word := img.words[addr]
	if img.code[addr] {
		m := img.renderable(word)
		d := arch.Decode(word)
		if m.Instr.Operands == 0 {
			return m.Name
		}
		return fmt.Sprintf("%s %s", m.Name, img.renderOperand(int(d.Operand)))
	}
	return fmt.Sprintf("NUM %s", renderValue(word))
}

// renderOperand prefers the label defined at the referenced address so
// the output reads symbolically; an unreferenced or out-of-image
// address stays numeric.
func (img *image) renderOperand(addr int) string {
	if l := img.labelFor(addr); l != "" {
		return l
	}
	return fmt.Sprintf("%d", addr)
}

// renderValue prints a data word so it survives reassembly: small
// non-negative values in decimal, everything else as an unsigned hex
// literal (the expression grammar has no unary minus).
func renderValue(word arch.Word) string {
	if word >= 0 && word < 0x2000 {
		return fmt.Sprintf("%d", word)
	}
	return fmt.Sprintf("0x%08X", uint32(word))
}
