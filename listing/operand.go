package listing

import (
	"github.com/Urethramancer/cpcasm/cpu"
	"github.com/Urethramancer/cpcasm/expr"
)

// OperandKind is the addressing form of an operand.
type OperandKind int

const (
	// OperandRegister is a plain register: a, hl, ix, af'.
	OperandRegister OperandKind = iota
	// OperandCondition is a flag condition: nz, z, nc, po, pe, p, m.
	// The condition c is stored as register c and converted by the encoder.
	OperandCondition
	// OperandImmediate is an expression used as a value.
	OperandImmediate
	// OperandMemory is an expression used as an address: (nn).
	OperandMemory
	// OperandIndirect is a register used as an address: (hl), (bc), (c).
	OperandIndirect
	// OperandIndexed is (ix+d) or (iy+d).
	OperandIndexed
)

// Operand is one instruction operand.
type Operand struct {
	Kind OperandKind
	Reg  cpu.Register
	Cond cpu.Condition
	// Expr is the value, address or displacement.
	Expr expr.Expr
}

// Reg returns a register operand.
func Reg(r cpu.Register) Operand { return Operand{Kind: OperandRegister, Reg: r} }

// Cond returns a condition operand.
func Cond(c cpu.Condition) Operand {
	if c == cpu.CondC {
		return Reg(cpu.RegC)
	}
	return Operand{Kind: OperandCondition, Cond: c}
}

// Imm returns an immediate operand.
func Imm(e expr.Expr) Operand { return Operand{Kind: OperandImmediate, Expr: e} }

// Mem returns an absolute memory operand.
func Mem(e expr.Expr) Operand { return Operand{Kind: OperandMemory, Expr: e} }

// Ind returns a register indirect operand.
func Ind(r cpu.Register) Operand { return Operand{Kind: OperandIndirect, Reg: r} }

// Idx returns an indexed operand. A nil displacement means zero.
func Idx(r cpu.Register, d expr.Expr) Operand {
	if d == nil {
		d = expr.Num(0)
	}
	return Operand{Kind: OperandIndexed, Reg: r, Expr: d}
}

// Condition returns the operand as a condition, accepting register c.
func (o Operand) Condition() (cpu.Condition, bool) {
	switch {
	case o.Kind == OperandCondition:
		return o.Cond, true
	case o.Kind == OperandRegister && o.Reg == cpu.RegC:
		return cpu.CondC, true
	}
	return cpu.CondNone, false
}

// Is reports whether o is the plain register r.
func (o Operand) Is(r cpu.Register) bool {
	return o.Kind == OperandRegister && o.Reg == r
}

// IsIndirect reports whether o is (r).
func (o Operand) IsIndirect(r cpu.Register) bool {
	return o.Kind == OperandIndirect && o.Reg == r
}

// HasExpr reports whether o carries an expression.
func (o Operand) HasExpr() bool {
	return o.Kind == OperandImmediate || o.Kind == OperandMemory || o.Kind == OperandIndexed
}

func (o Operand) String() string {
	switch o.Kind {
	case OperandRegister:
		return o.Reg.String()
	case OperandCondition:
		return o.Cond.String()
	case OperandImmediate:
		return o.Expr.String()
	case OperandMemory:
		return "(" + o.Expr.String() + ")"
	case OperandIndirect:
		return "(" + o.Reg.String() + ")"
	case OperandIndexed:
		if i, ok := o.Expr.(expr.Int); ok && i.Value < 0 {
			return "(" + o.Reg.String() + expr.Num(i.Value).String() + ")"
		}
		return "(" + o.Reg.String() + "+" + o.Expr.String() + ")"
	}
	return "?"
}
