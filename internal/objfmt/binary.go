package objfmt

import (
	"encoding/binary"
	"io"

	"github.com/andybower/babytools/internal/arch"
	"github.com/andybower/babytools/internal/section"
)

// binaryFormat is the "binary" format: raw little-endian 32-bit words,
// the native dump convention of the SSEM community's tooling.
type binaryFormat struct{}

func (binaryFormat) Stat(r io.Reader) (int, error) {
	n, err := io.Copy(io.Discard, r)
	if err != nil {
		return 0, err
	}
	return int(n / 4), nil
}

func (binaryFormat) Load(r io.Reader, sec *section.Section) error {
	var buf [4]byte
	for {
		_, err := io.ReadFull(r, buf[:])
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		word := arch.Word(binary.LittleEndian.Uint32(buf[:]))
		if err := sec.PutWord(word, nil); err != nil {
			return err
		}
	}
}

func (binaryFormat) Write(w io.Writer, sec *section.Section) error {
	words := wordsFromSection(sec)
	buf := make([]byte, 4*len(words))
	for i, word := range words {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(word))
	}
	_, err := w.Write(buf)
	return err
}
