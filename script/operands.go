package script

import (
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/Urethramancer/cpcasm/cpu"
	"github.com/Urethramancer/cpcasm/expr"
	"github.com/Urethramancer/cpcasm/listing"
)

const (
	exprType    = "expr"
	operandType = "operand"
)

func (s *Script) pushExpr(e expr.Expr) int {
	ud := s.L.NewUserData()
	ud.Value = e
	s.L.SetMetatable(ud, s.L.GetTypeMetatable(exprType))
	s.L.Push(ud)
	return 1
}

func (s *Script) pushOperand(o listing.Operand) int {
	ud := s.L.NewUserData()
	ud.Value = o
	s.L.SetMetatable(ud, s.L.GetTypeMetatable(operandType))
	s.L.Push(ud)
	return 1
}

func number(n lua.LNumber) expr.Expr {
	f := float64(n)
	if f == float64(int64(f)) {
		return expr.Num(int64(f))
	}
	return expr.Real(f)
}

// exprAt converts argument n to an expression. Strings name symbols.
func (s *Script) exprAt(n int) expr.Expr {
	return s.toExpr(n, s.L.Get(n), false)
}

// dataAt converts argument n to an expression. Strings are text.
func (s *Script) dataAt(n int) expr.Expr {
	return s.toExpr(n, s.L.Get(n), true)
}

func (s *Script) optExpr(n int) expr.Expr {
	if s.L.Get(n) == lua.LNil {
		return nil
	}
	return s.exprAt(n)
}

func (s *Script) toExpr(n int, v lua.LValue, text bool) expr.Expr {
	switch x := v.(type) {
	case lua.LNumber:
		return number(x)
	case lua.LString:
		if text {
			return expr.Text(string(x))
		}
		return expr.Sym(string(x))
	case lua.LBool:
		if x {
			return expr.Num(1)
		}
		return expr.Num(0)
	case *lua.LUserData:
		switch u := x.Value.(type) {
		case expr.Expr:
			return u
		case listing.Operand:
			if u.Kind == listing.OperandImmediate {
				return u.Expr
			}
		}
	}
	s.L.ArgError(n, "expression expected, got "+v.Type().String())
	return nil
}

// operandAt converts argument n to an instruction operand. Strings are
// registers, conditions or "(reg)" when they name one, otherwise symbols.
func (s *Script) operandAt(n int) listing.Operand {
	switch x := s.L.Get(n).(type) {
	case lua.LString:
		return parseOperand(string(x))
	case *lua.LUserData:
		if o, ok := x.Value.(listing.Operand); ok {
			return o
		}
	}
	return listing.Imm(s.exprAt(n))
}

func parseOperand(name string) listing.Operand {
	if r, ok := cpu.ParseRegister(name); ok {
		return listing.Reg(r)
	}
	if c, ok := cpu.ParseCondition(name); ok {
		return listing.Cond(c)
	}
	trimmed := strings.TrimSpace(name)
	if strings.HasPrefix(trimmed, "(") && strings.HasSuffix(trimmed, ")") {
		if r, ok := cpu.ParseRegister(trimmed[1 : len(trimmed)-1]); ok {
			return listing.Ind(r)
		}
	}
	return listing.Imm(expr.Sym(name))
}

func (s *Script) operands(from int) []listing.Operand {
	var ops []listing.Operand
	for i := from; i <= s.L.GetTop(); i++ {
		ops = append(ops, s.operandAt(i))
	}
	return ops
}

func (s *Script) exprs(from int, text bool) []expr.Expr {
	var list []expr.Expr
	for i := from; i <= s.L.GetTop(); i++ {
		list = append(list, s.toExpr(i, s.L.Get(i), text))
	}
	return list
}

// registerExpressions installs the expression metatable and the operand
// and expression helpers.
func (s *Script) registerExpressions() {
	binary := func(op expr.Op) lua.LGFunction {
		return func(L *lua.LState) int {
			return s.pushExpr(expr.Bin(op, s.exprAt(1), s.exprAt(2)))
		}
	}
	unary := func(op expr.Op) lua.LGFunction {
		return func(L *lua.LState) int {
			return s.pushExpr(expr.Un(op, s.exprAt(1)))
		}
	}

	mt := s.L.NewTypeMetatable(exprType)
	s.L.SetFuncs(mt, map[string]lua.LGFunction{
		"__add": binary(expr.OpAdd),
		"__sub": binary(expr.OpSub),
		"__mul": binary(expr.OpMul),
		"__div": binary(expr.OpDiv),
		"__mod": binary(expr.OpMod),
		"__unm": unary(expr.OpNeg),
		"__tostring": func(L *lua.LState) int {
			L.Push(lua.LString(s.exprAt(1).String()))
			return 1
		},
	})
	omt := s.L.NewTypeMetatable(operandType)
	s.L.SetField(omt, "__tostring", s.L.NewFunction(func(L *lua.LState) int {
		ud := L.CheckUserData(1)
		if o, ok := ud.Value.(listing.Operand); ok {
			L.Push(lua.LString(o.String()))
			return 1
		}
		L.Push(lua.LString(operandType))
		return 1
	}))

	s.L.SetFuncs(s.L.G.Global, map[string]lua.LGFunction{
		"sym": func(L *lua.LState) int { return s.pushExpr(expr.Sym(L.CheckString(1))) },
		"num": func(L *lua.LState) int { return s.pushExpr(number(L.CheckNumber(1))) },
		"text": func(L *lua.LState) int {
			return s.pushExpr(expr.Text(L.CheckString(1)))
		},
		"pc": func(L *lua.LState) int { return s.pushExpr(expr.Dollar()) },
		"mem": func(L *lua.LState) int {
			if name, ok := L.Get(1).(lua.LString); ok {
				if r, ok := cpu.ParseRegister(string(name)); ok {
					return s.pushOperand(listing.Ind(r))
				}
			}
			return s.pushOperand(listing.Mem(s.exprAt(1)))
		},
		"idx": func(L *lua.LState) int {
			r, ok := cpu.ParseRegister(L.CheckString(1))
			if !ok || !r.IsIndex() {
				L.ArgError(1, "ix or iy expected")
			}
			d := s.optExpr(2)
			if d == nil {
				d = expr.Num(0)
			}
			return s.pushOperand(listing.Idx(r, d))
		},
		"func": func(L *lua.LState) int {
			return s.pushExpr(expr.Fn(L.CheckString(1), s.exprs(2, false)...))
		},

		"eq":   binary(expr.OpEq),
		"ne":   binary(expr.OpNe),
		"lt":   binary(expr.OpLt),
		"le":   binary(expr.OpLe),
		"gt":   binary(expr.OpGt),
		"ge":   binary(expr.OpGe),
		"band": binary(expr.OpAnd),
		"bor":  binary(expr.OpOr),
		"bxor": binary(expr.OpXor),
		"shl":  binary(expr.OpShl),
		"shr":  binary(expr.OpShr),
		"land": binary(expr.OpLogAnd),
		"lor":  binary(expr.OpLogOr),
		"bnot": unary(expr.OpNot),
		"lnot": unary(expr.OpLogNot),
	})
}
