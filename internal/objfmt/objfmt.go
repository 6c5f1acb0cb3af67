// Package objfmt implements the pluggable object-file readers and
// writers: binary, bits, bits.ssem, bits.snp, and the write-only
// logisim format. Each format is registered under
// its command-line identifier in Formats.
package objfmt

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/andybower/babytools/internal/arch"
	"github.com/andybower/babytools/internal/section"
)

// Loader reads an object file into sec, starting at sec's current
// cursor. Stat reports the image's word count without loading it; Load
// performs the actual read and does not call Stat itself.
type Loader interface {
	// Stat scans r without mutating sec, returning the number of words
	// the image contains.
	Stat(r io.Reader) (words int, err error)
	// Load reads r and writes its words into sec via sec.PutWord.
	Load(r io.Reader, sec *section.Section) error
}

// Writer serializes sec to w. Per-format behaviour (bit order, headers,
// from-origin zero padding) is carried by the registry entry, not by
// the caller.
type Writer interface {
	Write(w io.Writer, sec *section.Section) error
}

// Format is one named entry in the registry: a loader, a writer, or
// both (logisim is write-only).
type Format struct {
	Name   string
	Loader Loader
	Writer Writer
}

// UnknownFormatError is returned when a format name is not in Formats.
type UnknownFormatError struct {
	Name string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("objfmt: unknown format %q", e.Name)
}

// Formats is the closed registry of object-file formats, keyed by the
// identifier used on command lines.
var Formats = map[string]*Format{
	"binary": {
		Name:   "binary",
		Loader: binaryFormat{},
		Writer: binaryFormat{},
	},
	"bits": {
		Name:   "bits",
		Loader: bitsFormat{lsbFirst: false},
		Writer: bitsFormat{lsbFirst: false},
	},
	"bits.ssem": {
		Name:   "bits.ssem",
		Loader: bitsFormat{lsbFirst: true},
		Writer: bitsFormat{lsbFirst: true},
	},
	"bits.snp": {
		Name:   "bits.snp",
		Loader: snpFormat{lsbFirst: true},
		Writer: snpFormat{lsbFirst: true},
	},
	"logisim": {
		Name:   "logisim",
		Writer: logisimFormat{},
	},
}

// Lookup returns the registered format named name, or an
// *UnknownFormatError if none exists.
func Lookup(name string) (*Format, error) {
	f, ok := Formats[name]
	if !ok {
		return nil, &UnknownFormatError{Name: name}
	}
	return f, nil
}

// Stat returns the word count of the object named path, "-" meaning
// stdin, via the named format's loader.
func Stat(formatName, path string) (int, error) {
	f, err := Lookup(formatName)
	if err != nil {
		return 0, err
	}
	if f.Loader == nil {
		return 0, fmt.Errorf("objfmt: format %q has no loader", formatName)
	}
	r, closeFn, err := openInput(path)
	if err != nil {
		return 0, err
	}
	defer closeFn()
	return f.Loader.Stat(r)
}

// Load reads the object named path into sec using the named format.
func Load(formatName, path string, sec *section.Section) error {
	f, err := Lookup(formatName)
	if err != nil {
		return err
	}
	if f.Loader == nil {
		return fmt.Errorf("objfmt: format %q has no loader", formatName)
	}
	r, closeFn, err := openInput(path)
	if err != nil {
		return err
	}
	defer closeFn()
	return f.Loader.Load(r, sec)
}

// WriteTo serializes sec to path (or stdout, for "-") using the named
// format's writer.
func WriteTo(formatName, path string, sec *section.Section) error {
	f, err := Lookup(formatName)
	if err != nil {
		return err
	}
	if f.Writer == nil {
		return fmt.Errorf("objfmt: format %q has no writer", formatName)
	}
	w, closeFn, err := openOutput(path)
	if err != nil {
		return err
	}
	defer closeFn()
	return f.Writer.Write(w, sec)
}

// openInput opens path for reading, treating "-" as stdin (which is
// never closed by the returned closer).
func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("objfmt: %w", err)
	}
	return fh, func() { fh.Close() }, nil
}

// openOutput opens path for writing, treating "-" as stdout (which is
// never closed by the returned closer).
func openOutput(path string) (io.Writer, func(), error) {
	if path == "-" {
		return os.Stdout, func() {}, nil
	}
	fh, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("objfmt: %w", err)
	}
	return fh, func() { fh.Close() }, nil
}

// wordsFromSection returns sec's words from address 0 through
// sec.Org+sec.Length-1, zero-filling any address before sec.Org, the
// shape every writer below needs.
func wordsFromSection(sec *section.Section) []arch.Word {
	end := sec.Org + sec.Length
	words := make([]arch.Word, end)
	for a := arch.Addr(0); a < end; a++ {
		words[a] = sec.Word(a)
	}
	return words
}

func bufReader(r io.Reader) *bufio.Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return br
	}
	return bufio.NewReader(r)
}
