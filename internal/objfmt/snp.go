package objfmt

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/andybower/babytools/internal/section"
)

// blankLineRE and addrLineRE are the two alternatives of the bits.snp
// line grammar, compiled once.
var (
	blankLineRE = regexp.MustCompile(`^\s*(;.*)?$`)
	addrLineRE  = regexp.MustCompile(`^([[:digit:]]+): ([01]{32})\s*(;.*)?$`)
)

// snpFormat is the "bits.snp" format: addressed, commentable bit-dump
// lines, strictly sequential from address 0, LSB-first bit order.
type snpFormat struct {
	lsbFirst bool
}

// SequenceError reports an out-of-order address in a bits.snp file.
type SequenceError struct {
	Want, Got int
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("objfmt: bits.snp address %d out of sequence, want %d", e.Got, e.Want)
}

// MalformedLineError reports a line matching neither bits.snp grammar
// alternative.
type MalformedLineError struct {
	Line string
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("objfmt: malformed bits.snp line %q", e.Line)
}

func (f snpFormat) Stat(r io.Reader) (int, error) {
	n := 0
	err := scanSNP(r, func(addr int, bits string) error {
		n++
		return nil
	})
	return n, err
}

func (f snpFormat) Load(r io.Reader, sec *section.Section) error {
	return scanSNP(r, func(addr int, bits string) error {
		word, err := parseBits(bits, f.lsbFirst)
		if err != nil {
			return err
		}
		return sec.PutWord(word, nil)
	})
}

// scanSNP walks r line by line, skipping blank/comment-only lines and
// invoking emit(addr, bits) for each addressed line in strictly
// sequential order starting at 0.
func scanSNP(r io.Reader, emit func(addr int, bits string) error) error {
	sc := bufio.NewScanner(bufReader(r))
	want := 0
	for sc.Scan() {
		line := sc.Text()
		if blankLineRE.MatchString(line) {
			continue
		}
		m := addrLineRE.FindStringSubmatch(line)
		if m == nil {
			return &MalformedLineError{Line: line}
		}
		addr, err := strconv.Atoi(m[1])
		if err != nil {
			return &MalformedLineError{Line: line}
		}
		if addr != want {
			return &SequenceError{Want: want, Got: addr}
		}
		if err := emit(addr, m[2]); err != nil {
			return err
		}
		want++
	}
	return sc.Err()
}

func (f snpFormat) Write(w io.Writer, sec *section.Section) error {
	bw := bufio.NewWriter(w)
	for addr, word := range wordsFromSection(sec) {
		line := fmt.Sprintf("%d: %s\n", addr, renderBits(word, f.lsbFirst))
		if _, err := bw.WriteString(line); err != nil {
			return err
		}
	}
	return bw.Flush()
}
