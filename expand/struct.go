package expand

import (
	"fmt"

	"github.com/Urethramancer/cpcasm/expr"
	"github.com/Urethramancer/cpcasm/listing"
	"github.com/Urethramancer/cpcasm/symbols"
)

type structDef struct {
	def  listing.Struct
	size int64
}

// structure records a struct and defines name.field as each field's offset
// and name as the size.
func (x *Expander) structure(out listing.Listing, st listing.Struct, scope symbols.ScopeID) (listing.Listing, error) {
	k := x.key(st.Name)
	if x.declared(k) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateMacro, st.Name)
	}

	var equs listing.Listing
	var offset int64
	for _, f := range st.Fields {
		if f.Name != "" {
			equs = append(equs, listing.Equ{Base: st.Base, Name: st.Name + "." + f.Name, Value: expr.Num(offset)})
		}
		if f.Data == nil {
			continue
		}
		n, err := x.fieldSize(f.Data, scope)
		if err != nil {
			return nil, fmt.Errorf("struct %s: %w", st.Name, err)
		}
		offset += n
	}
	equs = append(equs, listing.Equ{Base: st.Base, Name: st.Name, Value: expr.Num(offset)})
	x.structs[k] = structDef{def: st, size: offset}

	expanded, err := x.expand(equs, scope)
	if err != nil {
		return nil, err
	}
	return append(out, expanded...), nil
}

func (x *Expander) fieldSize(t listing.Token, scope symbols.ScopeID) (int64, error) {
	switch v := t.(type) {
	case listing.Data:
		switch v.Kind {
		case listing.DataSpace:
			return x.integer(v.Count, scope)
		case listing.DataRaw:
			return int64(len(v.Bytes)), nil
		case listing.DataWords:
			return int64(2 * len(v.Values)), nil
		}
		var n int64
		for _, e := range v.Values {
			if s, ok := e.(expr.Str); ok {
				n += int64(len(s.Value))
				continue
			}
			n++
		}
		if v.Kind == listing.DataZero {
			n++
		}
		return n, nil
	case listing.MacroCall:
		if st, ok := x.structs[x.key(v.Name)]; ok {
			return st.size, nil
		}
	}
	return 0, fmt.Errorf("%w: %s is not a data field", ErrStruct, t)
}

// instance emits a struct's data. Arguments replace the field values in
// order; fields without one keep their defaults.
func (x *Expander) instance(out listing.Listing, st listing.Struct, c listing.MacroCall, scope symbols.ScopeID) (listing.Listing, error) {
	var body listing.Listing
	for _, f := range st.Fields {
		if f.Data != nil {
			body = append(body, f.Data)
		}
	}
	if len(c.Args) > len(body) {
		return nil, fmt.Errorf("%w: %s has %d fields, got %d", ErrMacroArgCount, c.Name, len(body), len(c.Args))
	}

	defer func() { x.depth-- }()
	if err := x.enter(); err != nil {
		return nil, err
	}

	for i, t := range body {
		var arg *listing.Operand
		if i < len(c.Args) {
			arg = &c.Args[i]
			if arg.Kind != listing.OperandImmediate {
				return nil, fmt.Errorf("%w: %s field %d: %s", ErrMacroArgument, c.Name, i+1, arg)
			}
		}
		switch v := t.(type) {
		case listing.Data:
			v.Base = c.Base
			switch {
			case arg == nil:
			case v.Kind == listing.DataSpace:
				v.Fill = arg.Expr
			case v.Kind == listing.DataRaw:
				return nil, fmt.Errorf("%w: %s field %d is binary", ErrMacroArgument, c.Name, i+1)
			default:
				v.Values = []expr.Expr{arg.Expr}
			}
			body[i] = v
		case listing.MacroCall:
			if arg != nil {
				return nil, fmt.Errorf("%w: %s field %d is a struct", ErrMacroArgument, c.Name, i+1)
			}
			v.Base = c.Base
			body[i] = v
		}
	}

	expanded, err := x.expand(body, scope)
	if err != nil {
		return nil, err
	}
	return append(out, expanded...), nil
}
