// Package assembler turns an expanded listing into Z80 machine code laid out
// in CPC memory. Passes repeat until every label and constant is stable, then
// one final pass emits the definitive bytes.
package assembler

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/Urethramancer/cpcasm/expand"
	"github.com/Urethramancer/cpcasm/expr"
	"github.com/Urethramancer/cpcasm/listing"
	"github.com/Urethramancer/cpcasm/segment"
	"github.com/Urethramancer/cpcasm/symbols"
)

// Warning is a diagnostic that doesn't stop assembly.
type Warning struct {
	Location listing.Location
	Message  string
}

func (w Warning) String() string {
	return w.Location.String() + ": " + w.Message
}

// PassStats describes one pass.
type PassStats struct {
	Pass int
	// Unresolved counts operands that hit an undefined symbol.
	Unresolved int
	// Changed counts labels and constants whose value differs from the previous pass.
	Changed int
}

// Stats lists every pass in order, the final emission pass included.
type Stats []PassStats

// Monotonic reports whether the unresolved count never grew from one pass to the next.
func (s Stats) Monotonic() bool {
	for i := 1; i < len(s); i++ {
		if s[i].Unresolved > s[i-1].Unresolved {
			return false
		}
	}
	return true
}

// Result holds everything the final pass produced.
type Result struct {
	Segments []segment.Segment
	Symbols  []symbols.Entry
	Warnings []Warning
	// Passes counts all passes, the final emission pass included.
	Passes int
	Stats  Stats
	// Entry is the RUN address, when HasEntry is set.
	Entry    uint16
	HasEntry bool
	// Prints holds the output of PRINT directives.
	Prints []string
	// Lines is the listing: one line per statement of the final pass.
	Lines []Line

	table *symbols.Table
}

// Assembler runs the passes for one assembly unit. It is not safe for
// concurrent use; independent units use independent assemblers.
type Assembler struct {
	opts Options
	tab  *symbols.Table
	buf  *segment.Buffer

	origin       uint16
	conditionals bool
	warnings     []Warning
	prints       []string
	lines        []Line
	entry        int64
	hasEntry     bool
}

// New returns an assembler configured by opts.
func New(opts Options) *Assembler {
	return &Assembler{opts: opts.withDefaults()}
}

// Assemble is shorthand for New(opts).Assemble(l, origin).
func Assemble(l listing.Listing, origin uint16, opts Options) (*Result, error) {
	return New(opts).Assemble(l, origin)
}

// Assemble expands l and assembles it starting at origin. On error no
// output is returned.
func (a *Assembler) Assemble(l listing.Listing, origin uint16) (*Result, error) {
	a.reset(origin)

	x := expand.New(a.tab, expand.Options{
		Loader:        a.opts.Loader,
		Binaries:      a.opts.BinaryLoader,
		MaxDepth:      a.opts.MaxDepth,
		CaseSensitive: a.opts.CaseSensitive,
	})
	expanded, err := x.Expand(l)
	if err != nil {
		return nil, err
	}
	a.logf("expanded to %d statements", len(expanded))
	a.conditionals = hasConditional(expanded)

	var stats Stats
	var missing map[missingKey]listing.Location
	var decisions []int
	n := 1
	for {
		if n > a.opts.MaxPasses {
			return nil, fmt.Errorf("%w after %d passes", ErrNotConverged, a.opts.MaxPasses)
		}
		size := a.tab.Len()
		p, err := a.run(expanded, n, false)
		if err != nil {
			return nil, err
		}
		st := PassStats{Pass: n, Unresolved: p.unresolved, Changed: a.tab.EndPass()}
		stats = append(stats, st)
		a.logf("pass %d: %d unresolved, %d changed", n, st.Unresolved, st.Changed)
		if st.Unresolved == 0 && st.Changed == 0 {
			break
		}
		// The next pass repeats this one when every conditional went the
		// same way and no symbol appeared or moved.
		settled := !a.conditionals ||
			(st.Changed == 0 && a.tab.Len() == size && slices.Equal(p.decisions, decisions))
		decisions = p.decisions
		if missing, err = a.undefined(p.missing, missing, settled); err != nil {
			return nil, err
		}
		n++
	}

	n++
	p, err := a.run(expanded, n, true)
	if err != nil {
		return nil, err
	}
	if err := p.stale(); err != nil {
		return nil, err
	}
	if err := a.tab.Finalize(); err != nil {
		return nil, err
	}
	stats = append(stats, PassStats{Pass: n, Changed: a.tab.EndPass()})
	a.logf("final pass %d: %d bytes", n, a.buf.Size())

	res := &Result{
		Segments: a.buf.Segments(),
		Symbols:  a.tab.Symbols(),
		Warnings: a.warnings,
		Passes:   len(stats),
		Stats:    stats,
		Prints:   a.prints,
		Lines:    a.lines,
		table:    a.tab,
	}
	if a.hasEntry {
		res.Entry, res.HasEntry = uint16(a.entry), true
	}
	return res, nil
}

func (a *Assembler) reset(origin uint16) {
	a.tab = symbols.New(symbols.Options{
		CaseSensitive: a.opts.CaseSensitive,
		Duplicates:    a.opts.Duplicates,
	})
	if a.opts.Functions != nil {
		a.tab.SetFunctions(a.opts.Functions)
	}
	a.buf = segment.NewBuffer()
	a.origin = origin
	a.conditionals = false
	a.warnings = nil
	a.prints = nil
	a.lines = nil
	a.entry, a.hasEntry = 0, false
}

// run walks the listing once.
func (a *Assembler) run(l listing.Listing, n int, final bool) (*pass, error) {
	a.tab.StartPass(n)
	a.buf.Reset()
	a.buf.Seek(a.origin)
	a.warnings = a.warnings[:0]
	a.prints = a.prints[:0]
	a.lines = a.lines[:0]
	a.hasEntry = false

	p := &pass{
		a:       a,
		n:       n,
		final:   final,
		pc:      int(a.origin),
		missing: make(map[missingKey]listing.Location),
	}
	if final {
		p.uses = make(map[string]listing.Location)
	}
	return p, p.walk(l)
}

type missingKey struct {
	scope symbols.ScopeID
	name  string
}

// undefined fails when a name missing in two passes in a row has no
// definition anywhere. While conditionals can still change course, settled
// is false and the check waits.
func (a *Assembler) undefined(now, before map[missingKey]listing.Location, settled bool) (map[missingKey]listing.Location, error) {
	still := make(map[missingKey]listing.Location)
	for k, loc := range now {
		if !a.tab.Known(k.name, k.scope) {
			still[k] = loc
		}
	}
	if !settled || len(before) == 0 {
		return still, nil
	}

	keys := make([]missingKey, 0, len(still))
	for k := range still {
		if _, ok := before[k]; ok {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return still, nil
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].name != keys[j].name {
			return keys[i].name < keys[j].name
		}
		return keys[i].scope < keys[j].scope
	})
	k := keys[0]
	return nil, &Error{Location: still[k], Err: &expr.UndefinedError{Name: k.name}}
}

func (a *Assembler) warn(loc listing.Location, format string, args ...any) {
	w := Warning{Location: loc, Message: fmt.Sprintf(format, args...)}
	a.warnings = append(a.warnings, w)
	a.logf("warning: %s", w)
}

func (a *Assembler) logf(format string, args ...any) {
	if a.opts.Trace == nil {
		return
	}
	fmt.Fprintf(a.opts.Trace, format+"\n", args...)
}

func hasConditional(l listing.Listing) bool {
	for _, t := range l {
		if _, ok := t.(listing.If); ok {
			return true
		}
	}
	return false
}

// pass is the state of one walk over the listing.
type pass struct {
	a     *Assembler
	n     int
	final bool
	// pc is the code address; the buffer tracks the output address.
	pc    int
	tok   listing.Token
	scope symbols.ScopeID

	unresolved  int
	provisional bool
	missing     map[missingKey]listing.Location
	// decisions holds the branch each conditional took, in walk order.
	decisions []int
	// uses records where names were first referenced in the final pass.
	uses map[string]listing.Location
	// code collects the bytes of the current statement for the listing.
	code []byte
}

func (p *pass) walk(l listing.Listing) error {
	for _, t := range l {
		p.tok, p.scope = t, t.Scope()
		p.provisional = false
		p.code = p.code[:0]
		start := p.pc
		if err := p.statement(t); err != nil {
			return listing.At(t, err)
		}
		if p.final {
			if _, ok := t.(listing.If); !ok {
				p.a.lines = append(p.a.lines, Line{
					Location: t.Loc(),
					Address:  start,
					Bytes:    append([]byte(nil), p.code...),
					Source:   t.String(),
				})
			}
		}
	}
	return nil
}

func (p *pass) statement(t listing.Token) error {
	switch v := t.(type) {
	case listing.Label:
		return p.label(v)
	case listing.Instruction:
		code, err := assembleInstruction(p, v)
		if err != nil {
			return err
		}
		return p.emit(code...)
	case listing.Data:
		return p.data(v)
	case listing.Org:
		return p.org(v)
	case listing.Align:
		return p.align(v)
	case listing.Equ:
		return p.a.tab.DefineConstant(v.Name, p.scope, v.Value, int64(p.pc), true)
	case listing.Assign:
		return p.assign(v)
	case listing.If:
		return p.conditional(v)
	case listing.Bank:
		return p.bank(v)
	case listing.Bankset:
		return p.bankset(v)
	case listing.Assert:
		return p.assert(v)
	case listing.Print:
		return p.print(v)
	case listing.Run:
		return p.run(v)
	case listing.Undef:
		return p.undef(v)
	case listing.Fail:
		return p.fail(v)
	case listing.Limit:
		return p.limit(v)
	case listing.Protect:
		return p.protect(v)
	case listing.Comment, listing.MacroDef, listing.Struct:
		return nil
	}
	return fmt.Errorf("unexpanded statement %q", t)
}

func (p *pass) label(l listing.Label) error {
	v := expr.IntValue(int64(p.pc))
	if l.Global {
		return p.a.tab.DefineGlobal(l.Name, p.scope, v)
	}
	return p.a.tab.Define(l.Name, p.scope, v)
}

func (p *pass) assign(s listing.Assign) error {
	v, err := p.eval(s.Value)
	if err != nil {
		return err
	}
	return p.a.tab.Assign(s.Name, p.scope, v)
}

func (p *pass) conditional(c listing.If) error {
	for i, br := range c.Branches {
		taken, err := p.test(br)
		if err != nil {
			return err
		}
		if taken {
			p.decisions = append(p.decisions, i)
			return p.walk(br.Body)
		}
	}
	p.decisions = append(p.decisions, len(c.Branches))
	return p.walk(c.Else)
}

func (p *pass) test(br listing.Branch) (bool, error) {
	switch br.Test {
	case listing.TestDefined:
		return p.a.tab.Defined(br.Name, p.scope), nil
	case listing.TestUndefined:
		return !p.a.tab.Defined(br.Name, p.scope), nil
	}
	v, err := p.eval(br.Cond)
	if err != nil {
		return false, err
	}
	return v.Bool() == (br.Test == listing.TestTrue), nil
}

// emit writes bytes at the output address and advances the program counter.
func (p *pass) emit(code ...byte) error {
	if len(code) == 0 {
		return nil
	}
	before := len(p.a.buf.Overlaps())
	err := p.a.buf.Write(code...)
	p.pc += len(code)
	if !p.final {
		return nil
	}
	p.code = append(p.code, code...)
	if err != nil {
		return err
	}
	if over := p.a.buf.Overlaps(); len(over) > before {
		o := over[len(over)-1]
		if p.a.opts.StrictOverlap {
			return fmt.Errorf("%w: %s", ErrSegmentOverlap, o)
		}
		p.a.warn(p.tok.Loc(), "output overlaps earlier bytes at &%04X", o.Logical)
	}
	return nil
}

// stale reports names used in the final pass that only an earlier pass defined.
func (p *pass) stale() error {
	names := p.a.tab.Stale()
	if len(names) == 0 {
		return nil
	}
	err := &expr.UndefinedError{Name: names[0]}
	if loc, ok := p.uses[names[0]]; ok {
		return &Error{Location: loc, Err: err}
	}
	return err
}

// tracker records where the final pass looks names up.
type tracker struct {
	*symbols.Resolver
	p *pass
}

func (t tracker) Symbol(name string) (expr.Value, error) {
	n := t.p.a.tab.Normalize(name)
	if _, ok := t.p.uses[n]; !ok {
		t.p.uses[n] = t.p.tok.Loc()
	}
	return t.Resolver.Symbol(name)
}

func (p *pass) env() expr.Env {
	r := p.a.tab.Env(p.scope, int64(p.pc), true)
	if p.final {
		return tracker{Resolver: r, p: p}
	}
	return r
}

// eval evaluates e at the current address. Before the final pass an
// undefined symbol gives zero and marks the statement provisional.
func (p *pass) eval(e expr.Expr) (expr.Value, error) {
	v, err := expr.Eval(e, p.env())
	if err == nil {
		return v, nil
	}
	if !p.final && errors.Is(err, ErrUndefinedSymbol) {
		p.unresolve(err)
		return expr.IntValue(0), nil
	}
	return v, err
}

func (p *pass) unresolve(err error) {
	p.unresolved++
	p.provisional = true
	name, _ := expr.UndefinedName(err)
	k := missingKey{p.scope, p.a.tab.Normalize(name)}
	if _, ok := p.missing[k]; !ok {
		p.missing[k] = p.tok.Loc()
	}
	p.a.logf("pass %d: %s: %s undefined", p.n, p.tok.Loc(), name)
}
