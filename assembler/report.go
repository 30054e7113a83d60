package assembler

import (
	"fmt"
	"io"
	"strings"

	"github.com/grimdork/climate/str"

	"github.com/Urethramancer/cpcasm/listing"
)

// bytesPerLine is how many bytes a listing line shows before wrapping.
const bytesPerLine = 4

// Line is one statement of the final pass.
type Line struct {
	Location listing.Location
	Address  int
	Bytes    []byte
	Source   string
}

func (l Line) String() string {
	s := str.NewStringer()
	l.write(s)
	return strings.TrimSuffix(s.String(), "\n")
}

func (l Line) write(s *str.Stringer) {
	chunk := l.Bytes
	if len(chunk) > bytesPerLine {
		chunk = chunk[:bytesPerLine]
	}
	s.WriteStrings(fmt.Sprintf("%04X  %-12s %5d  ", l.Address&0xFFFF, hexBytes(chunk), l.Location.Line), l.Source, "\n")
	for i := bytesPerLine; i < len(l.Bytes); i += bytesPerLine {
		end := min(i+bytesPerLine, len(l.Bytes))
		s.WriteStrings(fmt.Sprintf("%04X  %s\n", (l.Address+i)&0xFFFF, hexBytes(l.Bytes[i:end])))
	}
}

func hexBytes(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02X", v)
	}
	return strings.Join(parts, " ")
}

// ListingText renders the listing.
func (r *Result) ListingText() string {
	s := str.NewStringer()
	file := ""
	for _, l := range r.Lines {
		if l.Location.File != file {
			file = l.Location.File
			s.WriteStrings("; ", file, "\n")
		}
		l.write(s)
	}
	return s.String()
}

// WriteListing writes the listing to w.
func (r *Result) WriteListing(w io.Writer) error {
	_, err := io.WriteString(w, r.ListingText())
	return err
}

// WriteSymbols writes the global symbols as EQU lines.
func (r *Result) WriteSymbols(w io.Writer) error {
	if r.table == nil {
		return nil
	}
	_, err := r.table.WriteTo(w)
	return err
}

// Size returns the number of output bytes.
func (r *Result) Size() int {
	n := 0
	for _, s := range r.Segments {
		n += len(s.Data)
	}
	return n
}
