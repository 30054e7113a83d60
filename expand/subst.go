package expand

import (
	"fmt"
	"strings"

	"github.com/Urethramancer/cpcasm/expr"
	"github.com/Urethramancer/cpcasm/listing"
)

// substitution replaces macro parameters by invocation arguments.
type substitution struct {
	args          map[string]listing.Operand
	caseSensitive bool
}

func newSubstitution(params []string, args []listing.Operand, caseSensitive bool) *substitution {
	s := &substitution{args: make(map[string]listing.Operand, len(params)), caseSensitive: caseSensitive}
	for i, p := range params {
		s.args[s.key(p)] = args[i]
	}
	return s
}

func (s *substitution) key(name string) string {
	if s.caseSensitive {
		return name
	}
	return strings.ToLower(name)
}

func (s *substitution) lookup(name string) (listing.Operand, bool) {
	a, ok := s.args[s.key(name)]
	return a, ok
}

// name replaces a symbol name when the argument is a plain symbol.
func (s *substitution) name(n string) string {
	if a, ok := s.lookup(n); ok && a.Kind == listing.OperandImmediate {
		if sym, ok := a.Expr.(expr.Symbol); ok {
			return sym.Name
		}
	}
	return n
}

// expr replaces parameters inside an expression by argument expressions.
func (s *substitution) expr(e expr.Expr) (expr.Expr, error) {
	var bad error
	r := expr.Rewrite(e, func(n expr.Expr) (expr.Expr, bool) {
		sym, ok := n.(expr.Symbol)
		if !ok {
			return nil, false
		}
		a, ok := s.lookup(sym.Name)
		if !ok {
			return nil, false
		}
		if a.Kind != listing.OperandImmediate {
			bad = fmt.Errorf("%w: %s is %s, not a value", ErrMacroArgument, sym.Name, a)
			return n, true
		}
		return a.Expr, true
	})
	return r, bad
}

func (s *substitution) exprs(list []expr.Expr) ([]expr.Expr, error) {
	if list == nil {
		return nil, nil
	}
	out := make([]expr.Expr, len(list))
	for i, e := range list {
		r, err := s.expr(e)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// optional substitutes e when present.
func (s *substitution) optional(e expr.Expr) (expr.Expr, error) {
	if e == nil {
		return nil, nil
	}
	return s.expr(e)
}

// operand substitutes structurally: a bare parameter takes the argument's
// addressing form, so registers and indirections pass through macros.
func (s *substitution) operand(o listing.Operand) (listing.Operand, error) {
	if sym, ok := o.Expr.(expr.Symbol); ok {
		if a, ok := s.lookup(sym.Name); ok {
			switch o.Kind {
			case listing.OperandImmediate:
				return a, nil
			case listing.OperandMemory:
				switch a.Kind {
				case listing.OperandRegister:
					return listing.Ind(a.Reg), nil
				case listing.OperandImmediate:
					return listing.Mem(a.Expr), nil
				}
				return a, nil
			}
		}
	}
	if !o.HasExpr() {
		return o, nil
	}
	e, err := s.expr(o.Expr)
	if err != nil {
		return o, err
	}
	o.Expr = e
	return o, nil
}

func (s *substitution) operands(list []listing.Operand) ([]listing.Operand, error) {
	out := make([]listing.Operand, len(list))
	for i, o := range list {
		r, err := s.operand(o)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// listing returns a substituted copy of a macro body.
func (s *substitution) listing(l listing.Listing) (listing.Listing, error) {
	out := make(listing.Listing, 0, len(l))
	for _, t := range l {
		r, err := s.token(t)
		if err != nil {
			return nil, listing.At(t, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *substitution) token(t listing.Token) (listing.Token, error) {
	var err error
	switch v := t.(type) {
	case listing.Label:
		v.Name = s.name(v.Name)
		return v, nil
	case listing.Instruction:
		v.Operands, err = s.operands(v.Operands)
		return v, err
	case listing.MacroCall:
		v.Args, err = s.operands(v.Args)
		return v, err
	case listing.Equ:
		v.Name = s.name(v.Name)
		v.Value, err = s.expr(v.Value)
		return v, err
	case listing.Assign:
		v.Name = s.name(v.Name)
		v.Value, err = s.expr(v.Value)
		return v, err
	case listing.Repeat:
		if v.Count, err = s.expr(v.Count); err != nil {
			return v, err
		}
		if v.Start, err = s.optional(v.Start); err != nil {
			return v, err
		}
		if v.Step, err = s.optional(v.Step); err != nil {
			return v, err
		}
		v.Counter = s.name(v.Counter)
		v.Body, err = s.listing(v.Body)
		return v, err
	case listing.If:
		branches := make([]listing.Branch, len(v.Branches))
		for i, br := range v.Branches {
			if br.Cond, err = s.optional(br.Cond); err != nil {
				return v, err
			}
			br.Name = s.name(br.Name)
			if br.Body, err = s.listing(br.Body); err != nil {
				return v, err
			}
			branches[i] = br
		}
		v.Branches = branches
		v.Else, err = s.listing(v.Else)
		return v, err
	case listing.While:
		if v.Cond, err = s.expr(v.Cond); err != nil {
			return v, err
		}
		v.Body, err = s.listing(v.Body)
		return v, err
	case listing.Until:
		if v.Cond, err = s.expr(v.Cond); err != nil {
			return v, err
		}
		v.Body, err = s.listing(v.Body)
		return v, err
	case listing.For:
		if v.Start, err = s.expr(v.Start); err != nil {
			return v, err
		}
		if v.Stop, err = s.expr(v.Stop); err != nil {
			return v, err
		}
		if v.Step, err = s.optional(v.Step); err != nil {
			return v, err
		}
		v.Counter = s.name(v.Counter)
		v.Body, err = s.listing(v.Body)
		return v, err
	case listing.Iterate:
		if v.Values, err = s.exprs(v.Values); err != nil {
			return v, err
		}
		v.Counter = s.name(v.Counter)
		v.Body, err = s.listing(v.Body)
		return v, err
	case listing.Switch:
		if v.Value, err = s.expr(v.Value); err != nil {
			return v, err
		}
		cases := make([]listing.Case, len(v.Cases))
		for i, c := range v.Cases {
			if c.Value, err = s.expr(c.Value); err != nil {
				return v, err
			}
			if c.Body, err = s.listing(c.Body); err != nil {
				return v, err
			}
			cases[i] = c
		}
		v.Cases = cases
		v.Default, err = s.listing(v.Default)
		return v, err
	case listing.Struct:
		fields := make([]listing.Field, len(v.Fields))
		for i, f := range v.Fields {
			if f.Data != nil {
				if f.Data, err = s.token(f.Data); err != nil {
					return v, err
				}
			}
			fields[i] = f
		}
		v.Fields = fields
		return v, nil
	case listing.Undef:
		v.Name = s.name(v.Name)
		return v, nil
	case listing.MacroDef:
		return v, nil
	}
	return mapExprsErr(t, s.expr)
}

// mapExprs applies fn to each expression held directly by t. Nested bodies
// are left alone.
func mapExprs(t listing.Token, fn func(expr.Expr) expr.Expr) listing.Token {
	r, _ := mapExprsErr(t, func(e expr.Expr) (expr.Expr, error) { return fn(e), nil })
	return r
}

func mapExprsErr(t listing.Token, fn func(expr.Expr) (expr.Expr, error)) (listing.Token, error) {
	var err error
	one := func(e expr.Expr) expr.Expr {
		if e == nil || err != nil {
			return e
		}
		var r expr.Expr
		r, err = fn(e)
		return r
	}
	many := func(list []expr.Expr) []expr.Expr {
		if list == nil {
			return nil
		}
		out := make([]expr.Expr, len(list))
		for i, e := range list {
			out[i] = one(e)
		}
		return out
	}
	ops := func(list []listing.Operand) []listing.Operand {
		out := make([]listing.Operand, len(list))
		for i, o := range list {
			if o.HasExpr() {
				o.Expr = one(o.Expr)
			}
			out[i] = o
		}
		return out
	}

	switch v := t.(type) {
	case listing.Instruction:
		v.Operands = ops(v.Operands)
		return v, err
	case listing.MacroCall:
		v.Args = ops(v.Args)
		return v, err
	case listing.Data:
		v.Values, v.Count, v.Fill = many(v.Values), one(v.Count), one(v.Fill)
		return v, err
	case listing.Org:
		v.Address, v.Output = one(v.Address), one(v.Output)
		return v, err
	case listing.Align:
		v.Boundary, v.Fill = one(v.Boundary), one(v.Fill)
		return v, err
	case listing.Equ:
		v.Value = one(v.Value)
		return v, err
	case listing.Assign:
		v.Value = one(v.Value)
		return v, err
	case listing.Incbin:
		v.Offset, v.Length = one(v.Offset), one(v.Length)
		return v, err
	case listing.Bank:
		v.Config = one(v.Config)
		return v, err
	case listing.Bankset:
		v.Page = one(v.Page)
		return v, err
	case listing.Assert:
		v.Cond = one(v.Cond)
		return v, err
	case listing.Print:
		v.Values = many(v.Values)
		return v, err
	case listing.Run:
		v.Address = one(v.Address)
		return v, err
	case listing.Repeat:
		v.Count, v.Start, v.Step = one(v.Count), one(v.Start), one(v.Step)
		return v, err
	case listing.If:
		branches := make([]listing.Branch, len(v.Branches))
		for i, br := range v.Branches {
			br.Cond = one(br.Cond)
			branches[i] = br
		}
		v.Branches = branches
		return v, err
	case listing.While:
		v.Cond = one(v.Cond)
		return v, err
	case listing.Until:
		v.Cond = one(v.Cond)
		return v, err
	case listing.For:
		v.Start, v.Stop, v.Step = one(v.Start), one(v.Stop), one(v.Step)
		return v, err
	case listing.Iterate:
		v.Values = many(v.Values)
		return v, err
	case listing.Switch:
		v.Value = one(v.Value)
		cases := make([]listing.Case, len(v.Cases))
		for i, c := range v.Cases {
			c.Value = one(c.Value)
			cases[i] = c
		}
		v.Cases = cases
		return v, err
	case listing.Fail:
		v.Values = many(v.Values)
		return v, err
	case listing.Limit:
		v.Address = one(v.Address)
		return v, err
	case listing.Protect:
		v.Start, v.Stop = one(v.Start), one(v.Stop)
		return v, err
	}
	return t, nil
}
