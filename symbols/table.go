// Package symbols implements the assembler's symbol table: labels, lazily
// evaluated constants and variables, keyed by scope and name.
package symbols

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Urethramancer/cpcasm/expr"
)

// ScopeID identifies a namespace. Every macro or repeat expansion instance
// gets a fresh one.
type ScopeID int

// Global is the scope of top level symbols.
const Global ScopeID = 0

// maxDepth bounds constant evaluation through chains of other constants.
const maxDepth = 512

// Kind tells how a symbol got its value.
type Kind int

const (
	// KindLabel is an address, fixed per pass.
	KindLabel Kind = iota
	// KindConstant is an EQU: an expression evaluated on lookup.
	KindConstant
	// KindVariable is a SET: reassignable, evaluated when assigned.
	KindVariable
)

func (k Kind) String() string {
	switch k {
	case KindLabel:
		return "label"
	case KindConstant:
		return "constant"
	case KindVariable:
		return "variable"
	}
	return "unknown"
}

// Policy decides what happens when two macro expansions define the same
// global name with different values in one pass.
type Policy int

const (
	// PolicyError reports ErrDuplicateDefinition.
	PolicyError Policy = iota
	// PolicyFirstWins keeps the first definition.
	PolicyFirstWins
	// PolicyLastWins keeps the last definition.
	PolicyLastWins
)

// ParsePolicy converts "error", "first" or "last" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "error":
		return PolicyError, nil
	case "first", "first-wins":
		return PolicyFirstWins, nil
	case "last", "last-wins":
		return PolicyLastWins, nil
	}
	return PolicyError, fmt.Errorf("unknown duplicate policy %q", s)
}

// Options configure a Table.
type Options struct {
	CaseSensitive bool
	Duplicates    Policy
}

// Symbol is one table entry.
type Symbol struct {
	Name  string
	Scope ScopeID
	Kind  Kind
	// Value holds labels and variables.
	Value expr.Value
	// Expr, PC and HasPC hold a constant's definition.
	Expr  expr.Expr
	PC    int64
	HasPC bool
	// Pass is the pass of the latest definition.
	Pass int
	// Pending marks a variable whose value isn't known yet.
	Pending bool
}

type key struct {
	scope ScopeID
	name  string
}

// Table maps (scope, name) to symbols. It persists across passes.
type Table struct {
	opts    Options
	entries map[key]*Symbol
	// parents[id] is the enclosing scope of id.
	parents []ScopeID
	stack   []ScopeID
	funcs   expr.Functions

	pass     int
	snapshot map[key]Symbol
	used     map[key]bool
	visiting map[key]bool
	depth    int
}

// New returns an empty table holding only the global scope.
func New(opts Options) *Table {
	return &Table{
		opts:     opts,
		entries:  make(map[key]*Symbol),
		parents:  []ScopeID{Global},
		snapshot: make(map[key]Symbol),
		used:     make(map[key]bool),
		visiting: make(map[key]bool),
	}
}

// SetFunctions provides user functions to constant evaluation.
func (t *Table) SetFunctions(f expr.Functions) {
	t.funcs = f
}

// Normalize returns the stored form of a name.
func (t *Table) Normalize(name string) string {
	if t.opts.CaseSensitive {
		return name
	}
	return strings.ToLower(name)
}

// EnterMacroScope opens a fresh scope nested in the current one and makes
// it current. Callers pair it with a deferred ExitMacroScope.
func (t *Table) EnterMacroScope() ScopeID {
	id := ScopeID(len(t.parents))
	t.parents = append(t.parents, t.Current())
	t.stack = append(t.stack, id)
	return id
}

// ExitMacroScope closes the innermost scope opened by EnterMacroScope.
// Symbols stay attached to the closed scope and never leak into others.
func (t *Table) ExitMacroScope() error {
	if len(t.stack) == 0 {
		return ErrNoScope
	}
	t.stack = t.stack[:len(t.stack)-1]
	return nil
}

// Current returns the innermost open scope.
func (t *Table) Current() ScopeID {
	if len(t.stack) == 0 {
		return Global
	}
	return t.stack[len(t.stack)-1]
}

// Parent returns the scope enclosing s.
func (t *Table) Parent(s ScopeID) ScopeID {
	if int(s) <= 0 || int(s) >= len(t.parents) {
		return Global
	}
	return t.parents[s]
}

// Pass returns the current pass number.
func (t *Table) Pass() int {
	return t.pass
}

// Len returns the number of symbols in every scope.
func (t *Table) Len() int {
	return len(t.entries)
}

// StartPass begins pass n and records the current values, so EndPass can
// count what the pass changed.
func (t *Table) StartPass(n int) {
	t.pass = n
	clear(t.snapshot)
	clear(t.used)
	for k, s := range t.entries {
		s.Pending = false
		if s.Kind != KindVariable {
			t.snapshot[k] = *s
		}
	}
}

// EndPass returns how many labels and constants that existed before the pass
// now hold a different value. Symbols first created during the pass do not count.
func (t *Table) EndPass() int {
	changed := 0
	for k, before := range t.snapshot {
		now, ok := t.entries[k]
		if !ok {
			continue
		}
		switch now.Kind {
		case KindLabel:
			if !now.Value.Equal(before.Value) {
				changed++
			}
		case KindConstant:
			if !sameConstant(&before, now.Expr, now.PC) {
				changed++
			}
		}
	}
	return changed
}

// Define sets a label-like symbol to a resolved value.
func (t *Table) Define(name string, scope ScopeID, v expr.Value) error {
	k := key{scope, t.Normalize(name)}
	s, ok := t.entries[k]
	if !ok {
		t.entries[k] = &Symbol{Name: k.name, Scope: scope, Kind: KindLabel, Value: v, Pass: t.pass}
		return nil
	}
	if s.Kind != KindLabel {
		return fmt.Errorf("%w: %q is a %s", ErrKindMismatch, k.name, s.Kind)
	}
	if s.Pass == t.pass && !s.Value.Equal(v) {
		return &DuplicateError{Name: k.name, Previous: s.Value.String(), Value: v.String()}
	}
	s.Value = v
	s.Pass = t.pass
	s.Pending = false
	return nil
}

// DefineGlobal defines a global label from inside the scope from. Conflicts
// between different expansions follow the table's duplicate policy.
func (t *Table) DefineGlobal(name string, from ScopeID, v expr.Value) error {
	err := t.Define(name, Global, v)
	if err == nil || from == Global {
		return err
	}
	if _, dup := err.(*DuplicateError); !dup {
		return err
	}
	switch t.opts.Duplicates {
	case PolicyFirstWins:
		return nil
	case PolicyLastWins:
		t.entries[key{Global, t.Normalize(name)}].Value = v
		return nil
	}
	return err
}

// DefineConstant records an EQU. The expression is evaluated on lookup with
// $ bound to pc and names resolved from scope.
func (t *Table) DefineConstant(name string, scope ScopeID, e expr.Expr, pc int64, hasPC bool) error {
	k := key{scope, t.Normalize(name)}
	s, ok := t.entries[k]
	if !ok {
		t.entries[k] = &Symbol{Name: k.name, Scope: scope, Kind: KindConstant, Expr: e, PC: pc, HasPC: hasPC, Pass: t.pass}
		return nil
	}
	if s.Kind != KindConstant {
		return fmt.Errorf("%w: %q is a %s", ErrKindMismatch, k.name, s.Kind)
	}
	if s.Pass == t.pass && !sameConstant(s, e, pc) {
		return &DuplicateError{Name: k.name, Previous: s.Expr.String(), Value: e.String()}
	}
	s.Expr, s.PC, s.HasPC, s.Pass = e, pc, hasPC, t.pass
	s.Pending = false
	return nil
}

// Assign sets a variable. The nearest variable of that name along the scope
// chain is updated, so a SET inside a macro or repeat changes the enclosing
// one; only when none exists is it created in scope.
func (t *Table) Assign(name string, scope ScopeID, v expr.Value) error {
	k, s, ok := t.find(name, scope)
	if !ok {
		k = key{scope, t.Normalize(name)}
		t.entries[k] = &Symbol{Name: k.name, Scope: scope, Kind: KindVariable, Value: v, Pass: t.pass}
		return nil
	}
	if s.Kind != KindVariable {
		return fmt.Errorf("%w: %q is a %s", ErrKindMismatch, k.name, s.Kind)
	}
	s.Value = v
	s.Pending = false
	s.Pass = t.pass
	return nil
}

// Invalidate marks name, seen from scope, as holding a value that can't be
// known before assembly. Lookups fail as undefined and Known reports false
// until the next assignment or StartPass. A missing name becomes a pending
// variable in scope.
func (t *Table) Invalidate(name string, scope ScopeID) {
	_, s, ok := t.find(name, scope)
	if !ok {
		n := t.Normalize(name)
		t.entries[key{scope, n}] = &Symbol{Name: n, Scope: scope, Kind: KindVariable, Pending: true, Pass: t.pass}
		return
	}
	s.Pending = true
}

// Remove deletes the nearest symbol called name as seen from scope.
func (t *Table) Remove(name string, scope ScopeID) error {
	k, _, ok := t.find(name, scope)
	if !ok {
		return &expr.UndefinedError{Name: name}
	}
	delete(t.entries, k)
	delete(t.used, k)
	return nil
}

func sameConstant(s *Symbol, e expr.Expr, pc int64) bool {
	if !expr.Equal(s.Expr, e) {
		return false
	}
	return !expr.UsesPC(e) || s.PC == pc
}

// find walks the scope chain from scope out to the global scope.
func (t *Table) find(name string, scope ScopeID) (key, *Symbol, bool) {
	name = t.Normalize(name)
	for s := scope; ; s = t.Parent(s) {
		k := key{s, name}
		if sym, ok := t.entries[k]; ok {
			return k, sym, true
		}
		if s == Global {
			return key{}, nil, false
		}
	}
}

// Lookup resolves name as seen from scope. Unknown names return an error
// wrapping expr.ErrUndefinedSymbol.
func (t *Table) Lookup(name string, scope ScopeID) (expr.Value, error) {
	k, s, ok := t.find(name, scope)
	if !ok {
		return expr.Value{}, &expr.UndefinedError{Name: name}
	}
	if s.Pending {
		return expr.Value{}, &expr.UndefinedError{Name: name}
	}
	t.used[k] = true
	if s.Kind != KindConstant {
		return s.Value, nil
	}

	if t.visiting[k] {
		return expr.Value{}, &expr.CycleError{Name: s.Name}
	}
	if t.depth >= maxDepth {
		return expr.Value{}, &expr.CycleError{Name: s.Name}
	}
	t.visiting[k] = true
	t.depth++
	defer func() {
		delete(t.visiting, k)
		t.depth--
	}()
	return expr.Eval(s.Expr, t.Env(s.Scope, s.PC, s.HasPC))
}

// Defined reports whether name, seen from scope, was defined during the
// current pass.
func (t *Table) Defined(name string, scope ScopeID) bool {
	_, s, ok := t.find(name, scope)
	return ok && s.Pass == t.pass
}

// Known reports whether name has ever been defined and its value isn't pending.
func (t *Table) Known(name string, scope ScopeID) bool {
	_, s, ok := t.find(name, scope)
	return ok && !s.Pending
}

// Stale returns the names looked up during the current pass whose last
// definition belongs to an earlier pass.
func (t *Table) Stale() []string {
	var names []string
	for k := range t.used {
		if s, ok := t.entries[k]; ok && s.Pass != t.pass {
			names = append(names, s.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Finalize evaluates every constant defined in the current pass, reporting
// the first failure in name order.
func (t *Table) Finalize() error {
	for _, s := range t.sorted() {
		if s.Kind != KindConstant || s.Pass != t.pass {
			continue
		}
		if _, err := t.Lookup(s.Name, s.Scope); err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
	}
	return nil
}

func (t *Table) sorted() []*Symbol {
	list := make([]*Symbol, 0, len(t.entries))
	for _, s := range t.entries {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Scope != list[j].Scope {
			return list[i].Scope < list[j].Scope
		}
		return list[i].Name < list[j].Name
	})
	return list
}

// Resolver adapts the table to expr.Env for one statement.
type Resolver struct {
	t     *Table
	scope ScopeID
	pc    int64
	hasPC bool
}

// Env returns an expression environment resolving names from scope, with $ bound to pc.
func (t *Table) Env(scope ScopeID, pc int64, hasPC bool) *Resolver {
	return &Resolver{t: t, scope: scope, pc: pc, hasPC: hasPC}
}

// Symbol implements expr.Env.
func (r *Resolver) Symbol(name string) (expr.Value, error) {
	return r.t.Lookup(name, r.scope)
}

// Address implements expr.Env.
func (r *Resolver) Address() (int64, bool) {
	return r.pc, r.hasPC
}

// Function implements expr.Env.
func (r *Resolver) Function(name string) (expr.Func, bool) {
	if r.t.funcs == nil {
		return nil, false
	}
	return r.t.funcs.Function(name)
}
