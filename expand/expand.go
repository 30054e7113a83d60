// Package expand flattens a listing before assembly: it splices includes
// and binaries, unrolls repeats, instantiates macros in fresh symbol scopes
// and resolves the conditionals that constants already decide.
package expand

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Urethramancer/cpcasm/expr"
	"github.com/Urethramancer/cpcasm/listing"
	"github.com/Urethramancer/cpcasm/symbols"
)

// DefaultMaxDepth bounds nested macro invocations and includes.
const DefaultMaxDepth = 64

// maxIterations bounds WHILE, UNTIL and FOR loops.
const maxIterations = 0x10000

// Options configure an Expander.
type Options struct {
	Loader   Loader
	Binaries BinaryLoader
	// MaxDepth defaults to DefaultMaxDepth.
	MaxDepth      int
	CaseSensitive bool
}

// Expander rewrites one assembly unit. It is not safe for concurrent use.
type Expander struct {
	tab       *symbols.Table
	opts      Options
	macros    map[string]listing.MacroDef
	structs   map[string]structDef
	including []string
	depth     int
	// deferred counts enclosing conditionals left for the passes to decide.
	deferred   int
	lastGlobal string
}

// New returns an expander defining scopes and constants in tab.
func New(tab *symbols.Table, opts Options) *Expander {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return &Expander{
		tab:     tab,
		opts:    opts,
		macros:  make(map[string]listing.MacroDef),
		structs: make(map[string]structDef),
	}
}

// Expand returns l with every include, incbin, macro and repeat replaced by
// its content. Conditionals that cannot be decided from constants stay in
// the output with all their branches expanded.
func (x *Expander) Expand(l listing.Listing) (listing.Listing, error) {
	x.tab.StartPass(0)
	return x.expand(l, symbols.Global)
}

func (x *Expander) expand(l listing.Listing, scope symbols.ScopeID) (listing.Listing, error) {
	var out listing.Listing
	for _, t := range l {
		t = x.qualify(listing.WithScope(t, scope))
		var err error
		switch v := t.(type) {
		case listing.Label:
			if v.Global || scope == symbols.Global {
				if !strings.HasPrefix(v.Name, ".") && !strings.Contains(v.Name, ".") {
					x.lastGlobal = v.Name
				}
			}
			out = append(out, v)
		case listing.Equ:
			if x.deferred == 0 && !expr.UsesPC(v.Value) {
				if err := x.tab.DefineConstant(v.Name, scope, v.Value, 0, false); err != nil {
					return nil, listing.At(t, err)
				}
			}
			out = append(out, v)
		case listing.Assign:
			err = x.assign(v, scope)
			out = append(out, v)
		case listing.Undef:
			x.undef(v, scope)
			out = append(out, v)
		case listing.Fail:
			if x.deferred == 0 {
				return nil, listing.At(t, x.fail(v, scope))
			}
			out = append(out, v)
		case listing.Include:
			out, err = x.include(out, v, scope)
		case listing.Incbin:
			out, err = x.incbin(out, v, scope)
		case listing.MacroDef:
			err = x.define(v)
		case listing.MacroCall:
			out, err = x.invoke(out, v, scope)
		case listing.Repeat:
			out, err = x.repeat(out, v, scope)
		case listing.While:
			out, err = x.while(out, v, scope)
		case listing.Until:
			out, err = x.until(out, v, scope)
		case listing.For:
			out, err = x.loop(out, v, scope)
		case listing.Iterate:
			out, err = x.iterate(out, v, scope)
		case listing.If:
			out, err = x.conditional(out, v, scope)
		case listing.Switch:
			out, err = x.conditional(out, switchIf(v), scope)
		case listing.Struct:
			out, err = x.structure(out, v, scope)
		default:
			out = append(out, t)
		}
		if err != nil {
			return nil, listing.At(t, err)
		}
	}
	return out, nil
}

func (x *Expander) key(name string) string {
	if x.opts.CaseSensitive {
		return name
	}
	return strings.ToLower(name)
}

func (x *Expander) define(m listing.MacroDef) error {
	k := x.key(m.Name)
	if x.declared(k) {
		return fmt.Errorf("%w: %s", ErrDuplicateMacro, m.Name)
	}
	x.macros[k] = m
	return nil
}

// declared reports whether a macro or struct already uses the key.
func (x *Expander) declared(k string) bool {
	_, macro := x.macros[k]
	_, st := x.structs[k]
	return macro || st
}

// assign applies a SET known before assembly. Anything else leaves the
// variable unknown until the passes run, so it can't decide repeats or
// conditionals.
func (x *Expander) assign(a listing.Assign, scope symbols.ScopeID) error {
	if x.deferred == 0 {
		v, err := expr.Eval(a.Value, x.tab.Env(scope, 0, false))
		if err == nil {
			return x.tab.Assign(a.Name, scope, v)
		}
	}
	x.tab.Invalidate(a.Name, scope)
	return nil
}

// undef forgets what expansion knows about a name. Names only the passes
// define are removed there.
func (x *Expander) undef(u listing.Undef, scope symbols.ScopeID) {
	if !x.tab.Known(u.Name, scope) {
		return
	}
	if x.deferred > 0 {
		x.tab.Invalidate(u.Name, scope)
		return
	}
	x.tab.Remove(u.Name, scope)
}

func (x *Expander) fail(f listing.Fail, scope symbols.ScopeID) error {
	parts := make([]string, len(f.Values))
	for i, e := range f.Values {
		v, err := x.constant(e, scope)
		switch {
		case err != nil:
			parts[i] = e.String()
		case v.Kind == expr.KindString:
			parts[i] = v.Str
		default:
			parts[i] = v.String()
		}
	}
	return fmt.Errorf("%w: %s", ErrFail, strings.Join(parts, " "))
}

func (x *Expander) enter() error {
	x.depth++
	if x.depth > x.opts.MaxDepth {
		return fmt.Errorf("%w: more than %d levels", ErrMacroExpansionTooDeep, x.opts.MaxDepth)
	}
	return nil
}

func (x *Expander) invoke(out listing.Listing, c listing.MacroCall, scope symbols.ScopeID) (listing.Listing, error) {
	if st, ok := x.structs[x.key(c.Name)]; ok {
		return x.instance(out, st.def, c, scope)
	}
	m, ok := x.macros[x.key(c.Name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUndefinedMacro, c.Name)
	}
	if len(c.Args) != len(m.Params) {
		return nil, fmt.Errorf("%w: %s takes %d, got %d", ErrMacroArgCount, c.Name, len(m.Params), len(c.Args))
	}

	defer func() { x.depth-- }()
	if err := x.enter(); err != nil {
		return nil, err
	}

	body, err := newSubstitution(m.Params, c.Args, x.opts.CaseSensitive).listing(m.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Name, err)
	}

	id := x.tab.EnterMacroScope()
	defer x.tab.ExitMacroScope()
	expanded, err := x.expand(body, id)
	if err != nil {
		return nil, err
	}
	return append(out, expanded...), nil
}

func (x *Expander) repeat(out listing.Listing, r listing.Repeat, scope symbols.ScopeID) (listing.Listing, error) {
	count, err := x.constant(r.Count, scope)
	if err != nil {
		return nil, fmt.Errorf("repeat count: %w", err)
	}
	n, err := count.AsInt()
	if err != nil {
		return nil, err
	}

	counter := expr.IntValue(1)
	step := expr.IntValue(1)
	if r.Start != nil {
		if counter, err = x.constant(r.Start, scope); err != nil {
			return nil, fmt.Errorf("repeat start: %w", err)
		}
	}
	if r.Step != nil {
		if step, err = x.constant(r.Step, scope); err != nil {
			return nil, fmt.Errorf("repeat step: %w", err)
		}
	}

	for range n {
		out, err = x.iteration(out, r.Body, r.Base, scope, r.Counter, literal(counter))
		if err != nil {
			return nil, err
		}
		next, err := expr.Eval(expr.Add(literal(counter), literal(step)), x.tab.Env(scope, 0, false))
		if err != nil {
			return nil, err
		}
		counter = next
	}
	return out, nil
}

// iteration expands one loop pass in a fresh scope, with counter bound to
// value when named.
func (x *Expander) iteration(out, body listing.Listing, base listing.Base, scope symbols.ScopeID, counter string, value expr.Expr) (listing.Listing, error) {
	id := x.tab.EnterMacroScope()
	defer x.tab.ExitMacroScope()

	if counter != "" {
		if !expr.UsesPC(value) {
			if err := x.tab.DefineConstant(counter, id, value, 0, false); err != nil {
				return nil, err
			}
		}
		eq := listing.Equ{Base: base, Name: counter, Value: value}
		body = append(listing.Listing{eq}, body...)
	}
	expanded, err := x.expand(body, id)
	if err != nil {
		return nil, err
	}
	return append(out, expanded...), nil
}

// holds evaluates a loop condition before assembly.
func (x *Expander) holds(cond expr.Expr, scope symbols.ScopeID) (bool, error) {
	v, err := x.constant(cond, scope)
	if err != nil {
		return false, err
	}
	return v.Bool(), nil
}

func (x *Expander) while(out listing.Listing, w listing.While, scope symbols.ScopeID) (listing.Listing, error) {
	for i := 0; ; i++ {
		ok, err := x.holds(w.Cond, scope)
		if err != nil {
			return nil, fmt.Errorf("while: %w", err)
		}
		if !ok {
			return out, nil
		}
		if i == maxIterations {
			return nil, fmt.Errorf("%w: while %s after %d iterations", ErrLoop, w.Cond, i)
		}
		if out, err = x.iteration(out, w.Body, w.Base, scope, "", nil); err != nil {
			return nil, err
		}
	}
}

func (x *Expander) until(out listing.Listing, u listing.Until, scope symbols.ScopeID) (listing.Listing, error) {
	for i := 1; ; i++ {
		var err error
		if out, err = x.iteration(out, u.Body, u.Base, scope, "", nil); err != nil {
			return nil, err
		}
		ok, err := x.holds(u.Cond, scope)
		if err != nil {
			return nil, fmt.Errorf("until: %w", err)
		}
		if ok {
			return out, nil
		}
		if i == maxIterations {
			return nil, fmt.Errorf("%w: until %s after %d iterations", ErrLoop, u.Cond, i)
		}
	}
}

// loop unrolls FOR. A negative step counts down to Stop.
func (x *Expander) loop(out listing.Listing, f listing.For, scope symbols.ScopeID) (listing.Listing, error) {
	start, err := x.integer(f.Start, scope)
	if err != nil {
		return nil, fmt.Errorf("for start: %w", err)
	}
	stop, err := x.integer(f.Stop, scope)
	if err != nil {
		return nil, fmt.Errorf("for stop: %w", err)
	}
	step := int64(1)
	if f.Step != nil {
		if step, err = x.integer(f.Step, scope); err != nil {
			return nil, fmt.Errorf("for step: %w", err)
		}
	}
	if step == 0 {
		return nil, fmt.Errorf("%w: for step is zero", ErrLoop)
	}
	if n := (stop-start)/step + 1; n > maxIterations {
		return nil, fmt.Errorf("%w: for runs %d iterations", ErrLoop, n)
	}

	for v := start; (step > 0 && v <= stop) || (step < 0 && v >= stop); v += step {
		if out, err = x.iteration(out, f.Body, f.Base, scope, f.Counter, expr.Num(v)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// iterate binds the counter to each value expression in turn. Values are
// not evaluated, so they may refer to labels.
func (x *Expander) iterate(out listing.Listing, it listing.Iterate, scope symbols.ScopeID) (listing.Listing, error) {
	for _, v := range it.Values {
		var err error
		if out, err = x.iteration(out, it.Body, it.Base, scope, it.Counter, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// switchIf rewrites a switch as a conditional. A case without break takes
// the bodies that follow it, up to the next break or through the default.
func switchIf(sw listing.Switch) listing.If {
	c := listing.If{Base: sw.Base, Else: sw.Default}
	for i, cs := range sw.Cases {
		var body listing.Listing
		j := i
		for ; j < len(sw.Cases); j++ {
			body = append(body, sw.Cases[j].Body...)
			if sw.Cases[j].Break {
				break
			}
		}
		if j == len(sw.Cases) {
			body = append(body, sw.Default...)
		}
		c.Branches = append(c.Branches, listing.Branch{
			Test: listing.TestTrue,
			Cond: expr.Bin(expr.OpEq, sw.Value, cs.Value),
			Body: body,
		})
	}
	return c
}

// conditional resolves the branches decided by constants. From the first
// undecided branch on, the rest is kept for the passes.
func (x *Expander) conditional(out listing.Listing, c listing.If, scope symbols.ScopeID) (listing.Listing, error) {
	for i, br := range c.Branches {
		taken, decided, err := x.decide(br, scope)
		if err != nil {
			return nil, err
		}
		if !decided {
			kept, err := x.keep(c, c.Branches[i:], scope)
			if err != nil {
				return nil, err
			}
			return append(out, kept), nil
		}
		if taken {
			body, err := x.expand(br.Body, scope)
			if err != nil {
				return nil, err
			}
			return append(out, body...), nil
		}
	}
	body, err := x.expand(c.Else, scope)
	if err != nil {
		return nil, err
	}
	return append(out, body...), nil
}

func (x *Expander) keep(c listing.If, branches []listing.Branch, scope symbols.ScopeID) (listing.If, error) {
	x.deferred++
	defer func() { x.deferred-- }()

	kept := listing.If{Base: c.Base}
	for _, br := range branches {
		body, err := x.expand(br.Body, scope)
		if err != nil {
			return kept, err
		}
		br.Body = body
		kept.Branches = append(kept.Branches, br)
	}
	els, err := x.expand(c.Else, scope)
	if err != nil {
		return kept, err
	}
	kept.Else = els
	return kept, nil
}

func (x *Expander) decide(br listing.Branch, scope symbols.ScopeID) (taken, decided bool, err error) {
	switch br.Test {
	case listing.TestDefined, listing.TestUndefined:
		if x.deferred > 0 || !x.tab.Known(br.Name, scope) {
			return false, false, nil
		}
		return br.Test == listing.TestDefined, true, nil
	}
	if x.deferred > 0 {
		return false, false, nil
	}
	v, err := x.constant(br.Cond, scope)
	if err != nil {
		if isPending(err) {
			return false, false, nil
		}
		return false, false, err
	}
	return v.Bool() == (br.Test == listing.TestTrue), true, nil
}

// constant evaluates e with what is known before the first pass.
func (x *Expander) constant(e expr.Expr, scope symbols.ScopeID) (expr.Value, error) {
	v, err := expr.Eval(e, x.tab.Env(scope, 0, false))
	if err != nil && isPending(err) {
		return v, fmt.Errorf("%w: %s: %v", ErrNotConstant, e, err)
	}
	return v, err
}

// isPending reports whether err only means the value isn't known yet.
func isPending(err error) bool {
	return errors.Is(err, expr.ErrUndefinedSymbol) || errors.Is(err, expr.ErrNoAddress) || errors.Is(err, ErrNotConstant)
}

// qualify prefixes .local names with the last global label.
func (x *Expander) qualify(t listing.Token) listing.Token {
	if x.lastGlobal == "" {
		return t
	}
	local := func(name string) string {
		if strings.HasPrefix(name, ".") {
			return x.lastGlobal + name
		}
		return name
	}
	if l, ok := t.(listing.Label); ok {
		l.Name = local(l.Name)
		return l
	}
	return mapExprs(t, func(e expr.Expr) expr.Expr {
		return expr.Rewrite(e, func(n expr.Expr) (expr.Expr, bool) {
			if s, ok := n.(expr.Symbol); ok && strings.HasPrefix(s.Name, ".") {
				return expr.Sym(local(s.Name)), true
			}
			return nil, false
		})
	})
}

// literal turns a value back into an expression.
func literal(v expr.Value) expr.Expr {
	switch v.Kind {
	case expr.KindFloat:
		return expr.Real(v.Float)
	case expr.KindString:
		return expr.Text(v.Str)
	}
	return expr.Num(v.Int)
}
