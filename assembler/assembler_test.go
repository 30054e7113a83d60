package assembler_test

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/Urethramancer/cpcasm/assembler"
	"github.com/Urethramancer/cpcasm/cpu"
	"github.com/Urethramancer/cpcasm/expr"
	"github.com/Urethramancer/cpcasm/listing"
	"github.com/Urethramancer/cpcasm/symbols"
)

func sym(name string) listing.Operand { return listing.Imm(expr.Sym(name)) }

func symbol(t *testing.T, res *assembler.Result, name string) int64 {
	t.Helper()
	for _, e := range res.Symbols {
		if e.Name == name && e.Scope == symbols.Global {
			return e.Value.Int
		}
	}
	t.Fatalf("symbol %s not found", name)
	return 0
}

func TestOrgLabelJump(t *testing.T) {
	b := listing.NewBuilder("main.asm")
	b.Org(expr.Num(0x8000))
	b.Label("label").Instr("nop")
	b.Instr("jp", sym("label"))

	res, err := assembler.Assemble(b.Listing(), 0, assembler.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Segments) != 1 {
		t.Fatalf("expected one segment, got %v", res.Segments)
	}
	seg := res.Segments[0]
	if seg.Start != 0x8000 || !bytes.Equal(seg.Data, []byte{0x00, 0xC3, 0x00, 0x80}) {
		t.Errorf("got %s: % X", seg, seg.Data)
	}
	if v := symbol(t, res, "label"); v != 0x8000 {
		t.Errorf("label = %X", v)
	}
}

func TestDataDirectives(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *listing.Builder)
		hex   string
	}{
		{"DZ", func(b *listing.Builder) { b.DZ(expr.Text("AB")) }, "41 42 00"},
		{"DB_mixed", func(b *listing.Builder) { b.DB(expr.Text("Hi"), expr.Num(0), expr.Num(-1)) }, "48 69 00 FF"},
		{"DW", func(b *listing.Builder) { b.DW(expr.Num(0x1234), expr.Num(1)) }, "34 12 01 00"},
		{"DS_fill", func(b *listing.Builder) { b.DS(expr.Num(3), expr.Num(0xE5)) }, "E5 E5 E5"},
		{"DS_zero", func(b *listing.Builder) { b.DS(expr.Num(2), nil) }, "00 00"},
		{"STR", func(b *listing.Builder) { b.Str(expr.Text("AB")) }, "41 C2"},
		{"ALIGN", func(b *listing.Builder) {
			b.DB(expr.Num(1)).Align(expr.Num(4), expr.Num(0xFF)).DB(expr.Num(2))
		}, "01 FF FF FF 02"},
		{"EQU_dollar", func(b *listing.Builder) {
			b.Equ("here", expr.Dollar()).DW(expr.Sym("here"))
		}, "00 10"},
		{"SET", func(b *listing.Builder) {
			b.Set("count", expr.Num(1))
			b.Set("count", expr.Add(expr.Sym("count"), expr.Num(1)))
			b.DB(expr.Sym("count"))
		}, "02"},
		{"REPEAT_counter", func(b *listing.Builder) {
			b.Repeat(expr.Num(3), "i", func(b *listing.Builder) { b.DB(expr.Sym("i")) })
		}, "01 02 03"},
		{"Functions", func(b *listing.Builder) {
			b.DB(expr.Fn("hi", expr.Num(0x1234)), expr.Fn("lo", expr.Num(0x1234)))
		}, "12 34"},
	}
	for _, tc := range tests {
		b := listing.NewBuilder("data.asm")
		tc.build(b)
		assembleAndMatchHex(t, tc.name, b.Listing(), tc.hex)
	}
}

func TestOnePassWithoutForwardReferences(t *testing.T) {
	b := listing.NewBuilder("back.asm")
	b.Label("start").Instr("nop")
	b.Instr("jp", sym("start"))
	res := assembleAndMatchHex(t, "back", b.Listing(), "00 C3 00 10")
	if res.Passes != 2 {
		t.Errorf("expected one pass plus the final pass, got %d: %+v", res.Passes, res.Stats)
	}
}

func TestForwardReference(t *testing.T) {
	fwd := listing.NewBuilder("fwd.asm")
	fwd.Instr("jp", sym("target")).Instr("nop")
	fwd.Label("target").Instr("ret")
	res := assembleAndMatchHex(t, "forward", fwd.Listing(), "C3 04 10 00 C9")
	if res.Passes != 3 {
		t.Errorf("expected 3 passes, got %d: %+v", res.Passes, res.Stats)
	}
	if !res.Stats.Monotonic() {
		t.Errorf("unresolved count grew: %+v", res.Stats)
	}

	back := listing.NewBuilder("back.asm")
	back.Instr("jp", n(0x1004)).Instr("nop")
	back.Label("target").Instr("ret")
	other := assembleAndMatchHex(t, "backward", back.Listing(), "C3 04 10 00 C9")
	if symbol(t, res, "target") != symbol(t, other, "target") {
		t.Error("forward reference resolved differently")
	}
}

func TestIdempotence(t *testing.T) {
	b := listing.NewBuilder("idem.asm")
	b.Instr("call", sym("sub")).Instr("ret")
	b.Label("sub").Instr("ld", r(cpu.RegHL), sym("value")).Instr("ret")
	b.Equ("value", expr.Add(expr.Sym("sub"), expr.Num(1)))
	l := b.Listing()

	a := assembler.New(assembler.Options{})
	first, err := a.Assemble(l, 0x4000)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		again, err := a.Assemble(l, 0x4000)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first.Segments, again.Segments) || !reflect.DeepEqual(first.Symbols, again.Symbols) {
			t.Fatalf("run %d differs", i)
		}
	}
}

func TestCyclicConstants(t *testing.T) {
	b := listing.NewBuilder("cycle.asm")
	b.Equ("a", expr.Add(expr.Sym("b"), expr.Num(1)))
	b.Equ("b", expr.Add(expr.Sym("a"), expr.Num(1)))
	_, err := assembler.Assemble(b.Listing(), 0, assembler.Options{})
	if !errors.Is(err, assembler.ErrCyclicDependency) {
		t.Errorf("unused cycle: got %v", err)
	}

	b.DB(expr.Sym("a"))
	_, err = assembler.Assemble(b.Listing(), 0, assembler.Options{})
	if !errors.Is(err, assembler.ErrCyclicDependency) {
		t.Errorf("used cycle: got %v", err)
	}
}

func TestLayoutDoesNotConverge(t *testing.T) {
	// The label moves by the size of the space before it, which depends
	// on where the label is.
	b := listing.NewBuilder("osc.asm")
	b.Org(expr.Num(0x8000))
	b.DS(expr.Bin(expr.OpEq, expr.Sym("l"), expr.Num(0x8000)), nil)
	b.Label("l").Instr("nop")
	_, err := assembler.Assemble(b.Listing(), 0, assembler.Options{MaxPasses: 6})
	if !errors.Is(err, assembler.ErrNotConverged) {
		t.Errorf("got %v", err)
	}
}

func TestUndefinedSymbol(t *testing.T) {
	b := listing.NewBuilder("undef.asm")
	b.Instr("nop")
	b.Instr("jp", sym("nowhere"))
	_, err := assembler.Assemble(b.Listing(), 0, assembler.Options{})
	if !errors.Is(err, assembler.ErrUndefinedSymbol) {
		t.Fatalf("got %v", err)
	}
	if name, ok := assembler.UndefinedSymbol(err); !ok || name != "nowhere" {
		t.Errorf("name %q", name)
	}
	var located *assembler.Error
	if !errors.As(err, &located) || located.Location.Line != 2 {
		t.Errorf("location missing: %v", err)
	}
	if errors.Is(err, assembler.ErrNotConverged) {
		t.Error("undefined symbol reported as non-convergence")
	}
}

func TestMacroLocalLabels(t *testing.T) {
	b := listing.NewBuilder("macro.asm")
	b.Macro("wait", []string{"count"}, func(b *listing.Builder) {
		b.Instr("ld", r(cpu.RegB), sym("count"))
		b.Label("loop").Instr("djnz", sym("loop"))
	})
	b.Call("wait", n(1))
	b.Call("wait", n(2))
	assembleAndMatchHex(t, "loop", b.Listing(), "06 01 10 FE 06 02 10 FE")
}

func TestDuplicateGlobals(t *testing.T) {
	build := func() listing.Listing {
		b := listing.NewBuilder("dup.asm")
		b.Macro("entry", nil, func(b *listing.Builder) {
			b.GlobalLabel("shared").Instr("nop")
		})
		b.Call("entry").Call("entry")
		b.DW(expr.Sym("shared"))
		return b.Listing()
	}

	_, err := assembler.Assemble(build(), 0x1000, assembler.Options{})
	if !errors.Is(err, assembler.ErrDuplicateDefinition) {
		t.Errorf("default policy: got %v", err)
	}

	tests := []struct {
		policy symbols.Policy
		want   int64
	}{
		{symbols.PolicyFirstWins, 0x1000},
		{symbols.PolicyLastWins, 0x1001},
	}
	for _, tc := range tests {
		res, err := assembler.Assemble(build(), 0x1000, assembler.Options{Duplicates: tc.policy})
		if err != nil {
			t.Fatal(err)
		}
		if got := symbol(t, res, "shared"); got != tc.want {
			t.Errorf("policy %d: shared = %X, want %X", tc.policy, got, tc.want)
		}
	}
}

func TestPassTimeConditional(t *testing.T) {
	b := listing.NewBuilder("cond.asm")
	b.If(expr.Sym("flag"), func(b *listing.Builder) {
		b.Instr("nop")
	}, func(b *listing.Builder) {
		b.Instr("halt")
	})
	b.Instr("ret")
	b.Equ("flag", expr.Num(1))
	assembleAndMatchHex(t, "deferred if", b.Listing(), "00 C9")
}

func TestOverlap(t *testing.T) {
	b := listing.NewBuilder("overlap.asm")
	b.Org(expr.Num(0x4000)).DB(expr.Num(1), expr.Num(2))
	b.Org(expr.Num(0x4001)).DB(expr.Num(3))

	res, err := assembler.Assemble(b.Listing(), 0, assembler.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Location.Line != 4 {
		t.Errorf("warnings: %v", res.Warnings)
	}
	if !bytes.Equal(code(res), []byte{1, 3}) {
		t.Errorf("last write should win: % X", code(res))
	}

	_, err = assembler.Assemble(b.Listing(), 0, assembler.Options{StrictOverlap: true})
	if !errors.Is(err, assembler.ErrSegmentOverlap) {
		t.Errorf("strict: got %v", err)
	}
}

func TestAddressOverflow(t *testing.T) {
	b := listing.NewBuilder("overflow.asm")
	b.Org(expr.Num(0xFFFF)).DB(expr.Num(1), expr.Num(2))
	_, err := assembler.Assemble(b.Listing(), 0, assembler.Options{})
	if !errors.Is(err, assembler.ErrAddressOverflow) {
		t.Errorf("got %v", err)
	}
}

func TestBanks(t *testing.T) {
	b := listing.NewBuilder("bank.asm")
	b.Org(expr.Num(0x4000)).DB(expr.Num(0x11))
	b.Bank(expr.Num(0xC4))
	b.Org(expr.Num(0x4000)).DB(expr.Num(0x22))
	b.Bankset(expr.Num(2))
	b.Org(expr.Num(0x0100)).DB(expr.Num(0x33))

	res, err := assembler.Assemble(b.Listing(), 0, assembler.Options{StrictOverlap: true})
	if err != nil {
		t.Fatal(err)
	}
	want := []struct {
		page     int
		start    uint16
		physical int
		data     byte
	}{
		{0, 0x4000, 0x4000, 0x11},
		{1, 0x4000, 0x10000, 0x22},
		{2, 0x0100, 0x20100, 0x33},
	}
	if len(res.Segments) != len(want) {
		t.Fatalf("segments: %v", res.Segments)
	}
	for i, w := range want {
		s := res.Segments[i]
		if s.Page != w.page || s.Start != w.start || s.Physical != w.physical || s.Data[0] != w.data {
			t.Errorf("segment %d: %s physical %X", i, s, s.Physical)
		}
	}

	bad := listing.NewBuilder("bad.asm").Bank(expr.Num(0x40)).Listing()
	if _, err := assembler.Assemble(bad, 0, assembler.Options{}); err == nil {
		t.Error("bank 0x40 accepted")
	}
}

func TestAssertPrintRun(t *testing.T) {
	b := listing.NewBuilder("final.asm")
	b.Org(expr.Num(0x8000))
	b.Label("main").Instr("ret")
	b.Print(expr.Text("main at"), expr.Sym("main"))
	b.Assert(expr.Bin(expr.OpEq, expr.Sym("main"), expr.Num(0x8000)), "main moved")
	b.Run(expr.Sym("main"))

	res, err := assembler.Assemble(b.Listing(), 0, assembler.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Prints) != 1 || !strings.Contains(res.Prints[0], "32768") {
		t.Errorf("prints: %q", res.Prints)
	}
	if !res.HasEntry || res.Entry != 0x8000 {
		t.Errorf("entry %X", res.Entry)
	}

	b.Assert(expr.Bin(expr.OpGt, expr.Sym("main"), expr.Num(0x9000)), "too low")
	_, err = assembler.Assemble(b.Listing(), 0, assembler.Options{})
	if !errors.Is(err, assembler.ErrAssertion) || !strings.Contains(err.Error(), "too low") {
		t.Errorf("got %v", err)
	}
}

func TestUserFunctions(t *testing.T) {
	funcs := expr.FuncMap{
		"double": func(args []expr.Value) (expr.Value, error) {
			return expr.IntValue(args[0].Int * 2), nil
		},
	}
	l := listing.NewBuilder("fn.asm").DB(expr.Fn("double", expr.Num(4))).Listing()
	res, err := assembler.Assemble(l, 0, assembler.Options{Functions: funcs})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(code(res), []byte{8}) {
		t.Errorf("got % X", code(res))
	}
}

func TestReports(t *testing.T) {
	b := listing.NewBuilder("report.asm")
	b.Org(expr.Num(0x8000))
	b.Label("label").Instr("nop")
	b.Instr("jp", sym("label"))

	var trace bytes.Buffer
	res, err := assembler.Assemble(b.Listing(), 0, assembler.Options{Trace: &trace})
	if err != nil {
		t.Fatal(err)
	}
	text := res.ListingText()
	if !strings.Contains(text, "8001  C3 00 80") || !strings.Contains(text, "jp label") {
		t.Errorf("listing:\n%s", text)
	}
	var syms bytes.Buffer
	if err := res.WriteSymbols(&syms); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(syms.String(), "label equ 0x8000") {
		t.Errorf("symbols:\n%s", syms.String())
	}
	if !strings.Contains(trace.String(), "final pass") {
		t.Errorf("trace:\n%s", trace.String())
	}
}
