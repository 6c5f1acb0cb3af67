package objfmt

import (
	"bufio"
	"fmt"
	"io"

	"github.com/andybower/babytools/internal/section"
)

// logisimHeader is the fixed magic line every Logisim "raw" memory image
// begins with.
const logisimHeader = "v2.0 raw\n"

// logisimFormat is the write-only "logisim" format: Logisim's hex
// memory-image dump, one word per line from address 0 through
// org+length-1.
type logisimFormat struct{}

func (logisimFormat) Write(w io.Writer, sec *section.Section) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(logisimHeader); err != nil {
		return err
	}
	for _, word := range wordsFromSection(sec) {
		if _, err := fmt.Fprintf(bw, "%x\n", uint32(word)); err != nil {
			return err
		}
	}
	return bw.Flush()
}
