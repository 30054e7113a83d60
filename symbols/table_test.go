package symbols

import (
	"errors"
	"strings"
	"testing"

	"github.com/Urethramancer/cpcasm/expr"
)

func TestDefineAndLookup(t *testing.T) {
	tab := New(Options{})
	tab.StartPass(1)
	if err := tab.Define("Start", Global, expr.IntValue(0x8000)); err != nil {
		t.Fatal(err)
	}
	v, err := tab.Lookup("START", Global)
	if err != nil || v.Int != 0x8000 {
		t.Fatalf("got %v %v", v, err)
	}

	// Same value in the same pass is tolerated.
	if err := tab.Define("start", Global, expr.IntValue(0x8000)); err != nil {
		t.Fatal(err)
	}
	err = tab.Define("start", Global, expr.IntValue(0x8001))
	if !errors.Is(err, ErrDuplicateDefinition) {
		t.Fatalf("got %v", err)
	}

	_, err = tab.Lookup("missing", Global)
	if !errors.Is(err, expr.ErrUndefinedSymbol) {
		t.Fatalf("got %v", err)
	}
}

func TestCaseSensitive(t *testing.T) {
	tab := New(Options{CaseSensitive: true})
	tab.Define("Loop", Global, expr.IntValue(1))
	if _, err := tab.Lookup("loop", Global); err == nil {
		t.Fatal("lookup should be case sensitive")
	}
}

func TestPassUpdates(t *testing.T) {
	tab := New(Options{})
	tab.StartPass(1)
	tab.Define("a", Global, expr.IntValue(10))
	tab.Define("b", Global, expr.IntValue(20))
	if n := tab.EndPass(); n != 0 {
		t.Fatalf("new symbols counted as changes: %d", n)
	}

	tab.StartPass(2)
	if err := tab.Define("a", Global, expr.IntValue(11)); err != nil {
		t.Fatalf("redefinition in a later pass must update: %v", err)
	}
	tab.Define("b", Global, expr.IntValue(20))
	if n := tab.EndPass(); n != 1 {
		t.Fatalf("got %d changes, want 1", n)
	}
}

func TestMacroScopes(t *testing.T) {
	tab := New(Options{})
	tab.StartPass(1)
	tab.Define("loop", Global, expr.IntValue(1))

	first := func() ScopeID {
		id := tab.EnterMacroScope()
		defer tab.ExitMacroScope()
		tab.Define("loop", id, expr.IntValue(100))
		return id
	}()
	second := func() ScopeID {
		id := tab.EnterMacroScope()
		defer tab.ExitMacroScope()
		if err := tab.Define("loop", id, expr.IntValue(200)); err != nil {
			t.Fatalf("local labels collided: %v", err)
		}
		return id
	}()

	if tab.Current() != Global {
		t.Fatal("scope not released")
	}
	for _, tt := range []struct {
		scope ScopeID
		want  int64
	}{{first, 100}, {second, 200}, {Global, 1}} {
		v, err := tab.Lookup("loop", tt.scope)
		if err != nil || v.Int != tt.want {
			t.Errorf("scope %d: got %v %v, want %d", tt.scope, v, err, tt.want)
		}
	}

	// Globals are visible from inside a scope.
	tab.Define("outer", Global, expr.IntValue(7))
	if v, _ := tab.Lookup("outer", second); v.Int != 7 {
		t.Errorf("global not visible from local scope")
	}
	if err := tab.ExitMacroScope(); !errors.Is(err, ErrNoScope) {
		t.Errorf("got %v", err)
	}
}

func TestScopeReleasedOnFailure(t *testing.T) {
	tab := New(Options{})
	expand := func() (err error) {
		tab.EnterMacroScope()
		defer tab.ExitMacroScope()
		return errors.New("expansion failed")
	}
	if err := expand(); err == nil {
		t.Fatal("expected error")
	}
	if tab.Current() != Global {
		t.Fatal("scope leaked after failure")
	}
}

func TestConstants(t *testing.T) {
	tab := New(Options{})
	tab.StartPass(1)
	tab.DefineConstant("size", Global, expr.Add(expr.Sym("count"), expr.Num(1)), 0, false)
	if _, err := tab.Lookup("size", Global); !errors.Is(err, expr.ErrUndefinedSymbol) {
		t.Fatalf("forward reference should be undefined, got %v", err)
	}
	tab.DefineConstant("count", Global, expr.Num(9), 0, false)
	v, err := tab.Lookup("size", Global)
	if err != nil || v.Int != 10 {
		t.Fatalf("got %v %v", v, err)
	}

	here := expr.Add(expr.Dollar(), expr.Num(2))
	tab.DefineConstant("here", Global, here, 0x4000, true)
	if v, _ := tab.Lookup("here", Global); v.Int != 0x4002 {
		t.Errorf("got %v", v)
	}
	if err := tab.DefineConstant("here", Global, here, 0x4001, true); !errors.Is(err, ErrDuplicateDefinition) {
		t.Errorf("got %v", err)
	}
}

func TestCyclicConstants(t *testing.T) {
	tab := New(Options{})
	tab.StartPass(1)
	tab.DefineConstant("a", Global, expr.Add(expr.Sym("b"), expr.Num(1)), 0, false)
	tab.DefineConstant("b", Global, expr.Add(expr.Sym("a"), expr.Num(1)), 0, false)
	_, err := tab.Lookup("a", Global)
	if !errors.Is(err, expr.ErrCyclicDependency) {
		t.Fatalf("got %v", err)
	}
	if err := tab.Finalize(); !errors.Is(err, expr.ErrCyclicDependency) {
		t.Fatalf("got %v", err)
	}
}

func TestVariables(t *testing.T) {
	tab := New(Options{})
	tab.StartPass(1)
	tab.Assign("i", Global, expr.IntValue(1))
	if err := tab.Assign("i", Global, expr.IntValue(2)); err != nil {
		t.Fatal(err)
	}
	if v, _ := tab.Lookup("i", Global); v.Int != 2 {
		t.Errorf("got %v", v)
	}
	if err := tab.Define("i", Global, expr.IntValue(3)); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("got %v", err)
	}
}

func TestAssignThroughScopes(t *testing.T) {
	tab := New(Options{})
	tab.StartPass(1)
	tab.Assign("count", Global, expr.IntValue(0))
	inner := tab.EnterMacroScope()
	if err := tab.Assign("count", inner, expr.IntValue(1)); err != nil {
		t.Fatal(err)
	}
	tab.Assign("mine", inner, expr.IntValue(5))
	tab.ExitMacroScope()

	if v, _ := tab.Lookup("count", Global); v.Int != 1 {
		t.Errorf("outer variable not updated: %v", v)
	}
	if tab.Known("mine", Global) {
		t.Error("inner variable leaked")
	}

	tab.Define("lbl", Global, expr.IntValue(2))
	if err := tab.Assign("lbl", inner, expr.IntValue(3)); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("assign to label: %v", err)
	}
}

func TestInvalidateAndRemove(t *testing.T) {
	tab := New(Options{})
	tab.StartPass(0)
	tab.Assign("x", Global, expr.IntValue(1))
	tab.Invalidate("x", Global)
	if tab.Known("x", Global) {
		t.Error("invalidated variable still known")
	}
	if _, err := tab.Lookup("x", Global); !errors.Is(err, expr.ErrUndefinedSymbol) {
		t.Errorf("lookup: %v", err)
	}
	tab.Assign("x", Global, expr.IntValue(2))
	if v, err := tab.Lookup("x", Global); err != nil || v.Int != 2 {
		t.Errorf("after assign: %v %v", v, err)
	}

	tab.Invalidate("y", Global)
	tab.StartPass(1)
	if !tab.Known("x", Global) || !tab.Known("y", Global) {
		t.Error("passes start with every value usable")
	}

	if err := tab.Remove("x", Global); err != nil {
		t.Fatal(err)
	}
	if tab.Known("x", Global) {
		t.Error("removed symbol still known")
	}
	if err := tab.Remove("x", Global); !errors.Is(err, expr.ErrUndefinedSymbol) {
		t.Errorf("second remove: %v", err)
	}
	if n := tab.EndPass(); n != 0 {
		t.Errorf("%d changes", n)
	}
}

func TestDuplicatePolicy(t *testing.T) {
	tests := []struct {
		policy Policy
		want   int64
		fails  bool
	}{
		{PolicyError, 0, true},
		{PolicyFirstWins, 1, false},
		{PolicyLastWins, 2, false},
	}
	for _, tt := range tests {
		tab := New(Options{Duplicates: tt.policy})
		tab.StartPass(1)
		a := tab.EnterMacroScope()
		tab.ExitMacroScope()
		b := tab.EnterMacroScope()
		tab.ExitMacroScope()
		if err := tab.DefineGlobal("entry", a, expr.IntValue(1)); err != nil {
			t.Fatal(err)
		}
		err := tab.DefineGlobal("entry", b, expr.IntValue(2))
		if tt.fails {
			if !errors.Is(err, ErrDuplicateDefinition) {
				t.Errorf("policy %d: got %v", tt.policy, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("policy %d: %v", tt.policy, err)
		}
		if v, _ := tab.Lookup("entry", Global); v.Int != tt.want {
			t.Errorf("policy %d: got %v, want %d", tt.policy, v, tt.want)
		}
	}
}

func TestStaleAndExport(t *testing.T) {
	tab := New(Options{})
	tab.StartPass(1)
	tab.Define("old", Global, expr.IntValue(1))
	tab.Define("kept", Global, expr.IntValue(0x8000))
	tab.StartPass(2)
	tab.Define("kept", Global, expr.IntValue(0x8000))
	tab.Lookup("old", Global)
	tab.Lookup("kept", Global)
	if s := tab.Stale(); len(s) != 1 || s[0] != "old" {
		t.Fatalf("got %v", s)
	}
	var sb strings.Builder
	tab.WriteTo(&sb)
	if sb.String() != "kept equ 0x8000\n" {
		t.Errorf("got %q", sb.String())
	}
	if !tab.Defined("kept", Global) || tab.Defined("old", Global) || !tab.Known("old", Global) {
		t.Error("Defined/Known wrong")
	}
}
