package expr

import (
	"fmt"
	"strings"
)

// Func is a function callable from expressions.
type Func func(args []Value) (Value, error)

// Functions provides user defined functions.
type Functions interface {
	Function(name string) (Func, bool)
}

// Env is what an expression is evaluated against.
type Env interface {
	Functions
	// Symbol returns the value of a name. Unknown names return an error
	// wrapping ErrUndefinedSymbol.
	Symbol(name string) (Value, error)
	// Address returns the program counter of the statement being evaluated.
	Address() (int64, bool)
}

// Eval evaluates e against env.
func Eval(e Expr, env Env) (Value, error) {
	switch n := e.(type) {
	case Int:
		return IntValue(n.Value), nil
	case Float:
		return FloatValue(n.Value), nil
	case Str:
		return StringValue(n.Value), nil
	case Symbol:
		return env.Symbol(n.Name)
	case PC:
		pc, ok := env.Address()
		if !ok {
			return Value{}, ErrNoAddress
		}
		return IntValue(pc), nil
	case Unary:
		return evalUnary(n, env)
	case Binary:
		return evalBinary(n, env)
	case Call:
		return evalCall(n, env)
	case nil:
		return Value{}, fmt.Errorf("%w: empty expression", ErrTypeMismatch)
	}
	return Value{}, fmt.Errorf("unknown expression node %T", e)
}

// EvalInt evaluates e and converts the result to an integer.
func EvalInt(e Expr, env Env) (int64, error) {
	v, err := Eval(e, env)
	if err != nil {
		return 0, err
	}
	return v.AsInt()
}

func evalUnary(n Unary, env Env) (Value, error) {
	x, err := Eval(n.X, env)
	if err != nil {
		return Value{}, err
	}
	switch n.Op {
	case OpPlus:
		if !x.IsNumeric() {
			return Value{}, mismatch(n.Op, x)
		}
		return x, nil
	case OpNeg:
		if x.Kind == KindFloat {
			return FloatValue(-x.Float), nil
		}
		i, err := x.AsInt()
		if err != nil {
			return Value{}, mismatch(n.Op, x)
		}
		return IntValue(-i), nil
	case OpNot:
		i, err := x.AsInt()
		if err != nil {
			return Value{}, mismatch(n.Op, x)
		}
		return IntValue(^i), nil
	case OpLogNot:
		return BoolValue(!x.Bool()), nil
	}
	return Value{}, fmt.Errorf("%q is not a unary operator", n.Op)
}

func evalBinary(n Binary, env Env) (Value, error) {
	x, err := Eval(n.X, env)
	if err != nil {
		return Value{}, err
	}

	// Logical operators short-circuit so guarded references stay unevaluated.
	switch n.Op {
	case OpLogAnd:
		if !x.Bool() {
			return BoolValue(false), nil
		}
		y, err := Eval(n.Y, env)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(y.Bool()), nil
	case OpLogOr:
		if x.Bool() {
			return BoolValue(true), nil
		}
		y, err := Eval(n.Y, env)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(y.Bool()), nil
	}

	y, err := Eval(n.Y, env)
	if err != nil {
		return Value{}, err
	}

	if x.Kind == KindString && y.Kind == KindString && (len(x.Str) != 1 || len(y.Str) != 1) {
		switch n.Op {
		case OpAdd:
			return StringValue(x.Str + y.Str), nil
		case OpEq:
			return BoolValue(x.Str == y.Str), nil
		case OpNe:
			return BoolValue(x.Str != y.Str), nil
		case OpLt, OpLe, OpGt, OpGe:
			return BoolValue(compare(n.Op, float64(strings.Compare(x.Str, y.Str)), 0)), nil
		}
		return Value{}, mismatch(n.Op, x, y)
	}
	if !x.IsNumeric() || !y.IsNumeric() {
		return Value{}, mismatch(n.Op, x, y)
	}

	if x.Kind == KindFloat || y.Kind == KindFloat {
		switch n.Op {
		case OpAdd, OpSub, OpMul, OpDiv, OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
			a, _ := x.AsFloat()
			b, _ := y.AsFloat()
			return floatOp(n.Op, a, b)
		}
	}

	a, _ := x.AsInt()
	b, _ := y.AsInt()
	return intOp(n.Op, a, b)
}

func floatOp(op Op, a, b float64) (Value, error) {
	switch op {
	case OpAdd:
		return FloatValue(a + b), nil
	case OpSub:
		return FloatValue(a - b), nil
	case OpMul:
		return FloatValue(a * b), nil
	case OpDiv:
		if b == 0 {
			return Value{}, ErrDivisionByZero
		}
		return FloatValue(a / b), nil
	}
	return BoolValue(compare(op, a, b)), nil
}

func intOp(op Op, a, b int64) (Value, error) {
	switch op {
	case OpAdd:
		return IntValue(a + b), nil
	case OpSub:
		return IntValue(a - b), nil
	case OpMul:
		return IntValue(a * b), nil
	case OpDiv:
		if b == 0 {
			return Value{}, ErrDivisionByZero
		}
		return IntValue(a / b), nil
	case OpMod:
		if b == 0 {
			return Value{}, ErrDivisionByZero
		}
		return IntValue(a % b), nil
	case OpShl:
		if b < 0 || b > 63 {
			return IntValue(0), nil
		}
		return IntValue(a << uint(b)), nil
	case OpShr:
		if b < 0 || b > 63 {
			return IntValue(0), nil
		}
		return IntValue(a >> uint(b)), nil
	case OpAnd:
		return IntValue(a & b), nil
	case OpOr:
		return IntValue(a | b), nil
	case OpXor:
		return IntValue(a ^ b), nil
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return BoolValue(compare(op, float64(a), float64(b))), nil
	}
	return Value{}, fmt.Errorf("%q is not a binary operator", op)
}

func compare(op Op, a, b float64) bool {
	switch op {
	case OpEq:
		return a == b
	case OpNe:
		return a != b
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	case OpGt:
		return a > b
	case OpGe:
		return a >= b
	}
	return false
}

func evalCall(n Call, env Env) (Value, error) {
	args := make([]Value, len(n.Args))
	for i, a := range n.Args {
		v, err := Eval(a, env)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}

	name := strings.ToLower(n.Name)
	if b, ok := builtins[name]; ok {
		if len(args) != b.arity {
			return Value{}, fmt.Errorf("%w: %s takes %d, got %d", ErrArity, name, b.arity, len(args))
		}
		return b.fn(args)
	}
	if f, ok := env.Function(n.Name); ok {
		return f(args)
	}
	return Value{}, fmt.Errorf("%w: %s", ErrUnknownFunction, n.Name)
}

func mismatch(op Op, vals ...Value) error {
	kinds := make([]string, len(vals))
	for i, v := range vals {
		kinds[i] = v.Kind.String()
	}
	return fmt.Errorf("%w: %s on %s", ErrTypeMismatch, op, strings.Join(kinds, ", "))
}
