package listing

import (
	"testing"

	"github.com/Urethramancer/cpcasm/cpu"
	"github.com/Urethramancer/cpcasm/expr"
)

func TestBuilder(t *testing.T) {
	b := NewBuilder("main.asm")
	b.Org(expr.Num(0x8000)).
		Label("start").
		Instr("ld", Reg(cpu.RegA), Idx(cpu.RegIX, expr.Num(-2))).
		Repeat(expr.Num(2), "i", func(b *Builder) {
			b.Instr("nop")
		}).
		Instr("jp", Cond(cpu.CondNZ), Imm(expr.Sym("start")))
	l := b.Listing()

	if len(l) != 5 {
		t.Fatalf("got %d tokens", len(l))
	}
	want := []string{"org 0x8000", "start:", "ld a, (ix-2)", "repeat 2, i", "jp nz, start"}
	for i, w := range want {
		if got := l[i].String(); got != w {
			t.Errorf("token %d: got %q, want %q", i, got, w)
		}
	}

	rep := l[3].(Repeat)
	if len(rep.Body) != 1 || rep.Body[0].Loc().Line != 5 {
		t.Errorf("nested body location wrong: %v", rep.Body[0].Loc())
	}
	if l[4].Loc().Line != 6 || l[4].Loc().File != "main.asm" {
		t.Errorf("got %v", l[4].Loc())
	}
}

func TestWithScope(t *testing.T) {
	orig := Label{Name: "loop"}
	moved := WithScope(orig, 3)
	if moved.Scope() != 3 || orig.Scope() != 0 {
		t.Fatal("WithScope must copy")
	}
}

func TestOperandCondition(t *testing.T) {
	c, ok := Reg(cpu.RegC).Condition()
	if !ok || c != cpu.CondC {
		t.Fatal("register c should read as condition c")
	}
	if _, ok := Reg(cpu.RegA).Condition(); ok {
		t.Fatal("a is not a condition")
	}
	if Cond(cpu.CondC).Kind != OperandRegister {
		t.Fatal("condition c is stored as register c")
	}
}
