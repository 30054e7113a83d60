package symbols

import (
	"fmt"
	"io"

	"github.com/Urethramancer/cpcasm/expr"
)

// Entry is a resolved symbol in an exported snapshot.
type Entry struct {
	Name  string
	Scope ScopeID
	Kind  Kind
	Value expr.Value
}

// Symbols returns every symbol defined in the current pass with its value,
// sorted by scope then name. Constants that fail to evaluate are skipped.
func (t *Table) Symbols() []Entry {
	var list []Entry
	for _, s := range t.sorted() {
		if s.Pass != t.pass {
			continue
		}
		v := s.Value
		if s.Kind == KindConstant {
			var err error
			v, err = t.Lookup(s.Name, s.Scope)
			if err != nil {
				continue
			}
		}
		list = append(list, Entry{Name: s.Name, Scope: s.Scope, Kind: s.Kind, Value: v})
	}
	return list
}

// WriteTo writes the global symbols as "name equ value" lines.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, e := range t.Symbols() {
		if e.Scope != Global {
			continue
		}
		var line string
		if e.Value.Kind == expr.KindInt {
			line = fmt.Sprintf("%s equ 0x%04X\n", e.Name, uint64(e.Value.Int)&0xFFFFFFFF)
		} else {
			line = fmt.Sprintf("%s equ %s\n", e.Name, e.Value)
		}
		n, err := io.WriteString(w, line)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
