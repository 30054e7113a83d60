// Package expr holds the expression trees used as instruction and directive
// operands, and their evaluation against a symbol environment.
package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is an expression tree node. Nodes are immutable once built.
type Expr interface {
	fmt.Stringer
	node()
}

// Int is an integer literal.
type Int struct {
	Value int64
}

// Float is a floating point literal.
type Float struct {
	Value float64
}

// Str is a string literal.
type Str struct {
	Value string
}

// Symbol is a reference to a named symbol.
type Symbol struct {
	Name string
}

// PC is the current address marker, $.
type PC struct{}

// Unary applies an operator to one operand.
type Unary struct {
	Op Op
	X  Expr
}

// Binary applies an operator to two operands.
type Binary struct {
	Op   Op
	X, Y Expr
}

// Call is a function call, built-in or user supplied.
type Call struct {
	Name string
	Args []Expr
}

func (Int) node()    {}
func (Float) node()  {}
func (Str) node()    {}
func (Symbol) node() {}
func (PC) node()     {}
func (Unary) node()  {}
func (Binary) node() {}
func (Call) node()   {}

// Op is an operator.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpShl
	OpShr
	OpAnd
	OpOr
	OpXor
	OpLogAnd
	OpLogOr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	// Unary only
	OpNeg
	OpPlus
	OpNot    // bitwise ~
	OpLogNot // logical !
)

var opNames = [...]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%",
	OpShl: "<<", OpShr: ">>", OpAnd: "&", OpOr: "|", OpXor: "^",
	OpLogAnd: "&&", OpLogOr: "||",
	OpEq: "==", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpNeg: "-", OpPlus: "+", OpNot: "~", OpLogNot: "!",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "?"
}

// precedence of binary operators, higher binds tighter.
func (o Op) precedence() int {
	switch o {
	case OpLogOr:
		return 1
	case OpLogAnd:
		return 2
	case OpOr:
		return 3
	case OpXor:
		return 4
	case OpAnd:
		return 5
	case OpEq, OpNe:
		return 6
	case OpLt, OpLe, OpGt, OpGe:
		return 7
	case OpShl, OpShr:
		return 8
	case OpAdd, OpSub:
		return 9
	case OpMul, OpDiv, OpMod:
		return 10
	}
	return 11
}

// Num returns an integer literal.
func Num(v int64) Expr { return Int{Value: v} }

// Real returns a float literal.
func Real(v float64) Expr { return Float{Value: v} }

// Text returns a string literal.
func Text(s string) Expr { return Str{Value: s} }

// Sym returns a symbol reference.
func Sym(name string) Expr { return Symbol{Name: name} }

// Dollar returns the current address marker.
func Dollar() Expr { return PC{} }

// Bin combines two expressions.
func Bin(op Op, x, y Expr) Expr { return Binary{Op: op, X: x, Y: y} }

// Un applies a unary operator.
func Un(op Op, x Expr) Expr { return Unary{Op: op, X: x} }

// Add is shorthand for Bin(OpAdd, x, y).
func Add(x, y Expr) Expr { return Bin(OpAdd, x, y) }

// Sub is shorthand for Bin(OpSub, x, y).
func Sub(x, y Expr) Expr { return Bin(OpSub, x, y) }

// Fn calls a function.
func Fn(name string, args ...Expr) Expr { return Call{Name: name, Args: args} }

func (e Int) String() string {
	if e.Value > 9 || e.Value < -9 {
		if e.Value < 0 {
			return "-0x" + strings.ToUpper(strconv.FormatInt(-e.Value, 16))
		}
		return "0x" + strings.ToUpper(strconv.FormatInt(e.Value, 16))
	}
	return strconv.FormatInt(e.Value, 10)
}

func (e Float) String() string { return strconv.FormatFloat(e.Value, 'g', -1, 64) }

func (e Str) String() string { return strconv.Quote(e.Value) }

func (e Symbol) String() string { return e.Name }

func (PC) String() string { return "$" }

func (e Unary) String() string {
	return e.Op.String() + wrap(e.X, 12)
}

func (e Binary) String() string {
	p := e.Op.precedence()
	// Right operands of equal precedence need parentheses to keep left associativity.
	return wrap(e.X, p) + " " + e.Op.String() + " " + wrap(e.Y, p+1)
}

func (e Call) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return e.Name + "(" + strings.Join(args, ", ") + ")"
}

func wrap(e Expr, min int) string {
	if b, ok := e.(Binary); ok && b.Op.precedence() < min {
		return "(" + b.String() + ")"
	}
	return e.String()
}
