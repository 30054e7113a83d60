package script

import (
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/Urethramancer/cpcasm/expr"
	"github.com/Urethramancer/cpcasm/listing"
)

// mnemonics lists the instruction globals. Lua keywords get a trailing
// underscore.
var mnemonics = []string{
	"ld", "push", "pop", "ex", "exx",
	"add", "adc", "sub", "sbc", "inc", "dec",
	"and", "or", "xor", "cp",
	"rlca", "rla", "rrca", "rra", "rld", "rrd",
	"rlc", "rrc", "rl", "rr", "sla", "sra", "sll", "sl1", "srl",
	"bit", "res",
	"jp", "jr", "djnz", "call", "ret", "reti", "retn", "rst",
	"in", "out",
	"ldi", "ldir", "ldd", "lddr", "cpi", "cpir", "cpd", "cpdr",
	"ini", "inir", "ind", "indr", "outi", "otir", "outd", "otdr",
	"nop", "halt", "di", "ei", "daa", "cpl", "ccf", "scf", "neg", "im",
}

var keywords = map[string]bool{"and": true, "or": true, "in": true}

func (s *Script) register() {
	s.registerExpressions()

	for _, mn := range mnemonics {
		name := mn
		if keywords[mn] {
			name += "_"
		}
		s.L.SetGlobal(name, s.L.NewFunction(s.instruction(mn)))
	}

	s.L.SetFuncs(s.L.G.Global, map[string]lua.LGFunction{
		// set is both the bit instruction and variable assignment.
		"set": func(L *lua.LState) int {
			if _, ok := L.Get(1).(lua.LString); ok {
				s.at().Set(L.CheckString(1), s.exprAt(2))
				return 0
			}
			return s.instruction("set")(L)
		},

		"org": func(L *lua.LState) int {
			if out := s.optExpr(2); out != nil {
				s.at().OrgOutput(s.exprAt(1), out)
			} else {
				s.at().Org(s.exprAt(1))
			}
			return 0
		},
		"label":  func(L *lua.LState) int { s.at().Label(L.CheckString(1)); return 0 },
		"glabel": func(L *lua.LState) int { s.at().GlobalLabel(L.CheckString(1)); return 0 },
		"equ":    func(L *lua.LState) int { s.at().Equ(L.CheckString(1), s.exprAt(2)); return 0 },

		"db":  func(L *lua.LState) int { s.at().DB(s.exprs(1, true)...); return 0 },
		"dw":  func(L *lua.LState) int { s.at().DW(s.exprs(1, false)...); return 0 },
		"str": func(L *lua.LState) int { s.at().Str(s.exprs(1, true)...); return 0 },
		"dz":  func(L *lua.LState) int { s.at().DZ(s.exprs(1, true)...); return 0 },
		"ds": func(L *lua.LState) int {
			s.at().DS(s.exprAt(1), s.optExpr(2))
			return 0
		},
		"align": func(L *lua.LState) int {
			s.at().Align(s.exprAt(1), s.optExpr(2))
			return 0
		},

		"include": func(L *lua.LState) int { s.at().Include(L.CheckString(1)); return 0 },
		"incbin": func(L *lua.LState) int {
			s.at().Incbin(L.CheckString(1), s.optExpr(2), s.optExpr(3))
			return 0
		},

		"macro":  s.macro,
		"invoke": func(L *lua.LState) int { s.at().Call(L.CheckString(1), s.operands(2)...); return 0 },

		"if_":    s.conditional(listing.TestTrue),
		"ifnot":  s.conditional(listing.TestFalse),
		"ifdef":  s.conditional(listing.TestDefined),
		"ifndef": s.conditional(listing.TestUndefined),
		"rept":   s.repeat,
		"while_": func(L *lua.LState) int {
			s.at().While(s.exprAt(1), s.body(L.CheckFunction(2)))
			return 0
		},
		"until_": func(L *lua.LState) int {
			s.at().Until(s.exprAt(1), s.body(L.CheckFunction(2)))
			return 0
		},
		"for_":    s.loop,
		"iterate": s.iterate,
		"switch":  s.switch_,
		"struct": func(L *lua.LState) int {
			s.at().Struct(L.CheckString(1), s.body(L.CheckFunction(2)))
			return 0
		},

		"bank":    func(L *lua.LState) int { s.at().Bank(s.exprAt(1)); return 0 },
		"bankset": func(L *lua.LState) int { s.at().Bankset(s.exprAt(1)); return 0 },
		"assert_": func(L *lua.LState) int {
			s.at().Assert(s.exprAt(1), L.OptString(2, ""))
			return 0
		},
		"print_":  func(L *lua.LState) int { s.at().Print(s.exprs(1, true)...); return 0 },
		"run":     func(L *lua.LState) int { s.at().Run(s.exprAt(1)); return 0 },
		"comment": func(L *lua.LState) int { s.at().Comment(L.OptString(1, "")); return 0 },
		"undef":   func(L *lua.LState) int { s.at().Undef(L.CheckString(1)); return 0 },
		"fail":    func(L *lua.LState) int { s.at().Fail(s.exprs(1, true)...); return 0 },
		"limit":   func(L *lua.LState) int { s.at().Limit(s.exprAt(1)); return 0 },
		"protect": func(L *lua.LState) int {
			s.at().Protect(s.exprAt(1), s.exprAt(2))
			return 0
		},

		"fn": func(L *lua.LState) int {
			name := strings.ToLower(L.CheckString(1))
			if expr.IsBuiltin(name) {
				L.ArgError(1, name+" is a built-in function")
			}
			s.funcs[name] = L.CheckFunction(2)
			return 0
		},
	})
}

func (s *Script) instruction(mn string) lua.LGFunction {
	return func(L *lua.LState) int {
		s.at().Instr(mn, s.operands(1)...)
		return 0
	}
}

// macro(name, {params}, body). The body receives the parameter names.
func (s *Script) macro(L *lua.LState) int {
	name := L.CheckString(1)
	var params []string
	var args []lua.LValue
	if t, ok := L.Get(2).(*lua.LTable); ok {
		t.ForEach(func(_, v lua.LValue) {
			p, ok := v.(lua.LString)
			if !ok {
				L.ArgError(2, "parameter names must be strings")
			}
			params = append(params, string(p))
			args = append(args, p)
		})
	}
	fn := L.CheckFunction(3)
	s.at().Macro(name, params, s.body(fn, args...))
	return 0
}

// conditional returns if_(cond, then [, else]) for a test kind. ifdef and
// ifndef take a name instead of an expression.
func (s *Script) conditional(test listing.TestKind) lua.LGFunction {
	return func(L *lua.LState) int {
		then := L.CheckFunction(2)
		otherwise := L.OptFunction(3, nil)
		b := s.at()
		switch test {
		case listing.TestTrue:
			b.If(s.exprAt(1), s.body(then), s.body(otherwise))
		case listing.TestFalse:
			b.IfNot(s.exprAt(1), s.body(then), s.body(otherwise))
		case listing.TestDefined:
			b.IfDef(L.CheckString(1), s.body(then), s.body(otherwise))
		case listing.TestUndefined:
			b.IfNDef(L.CheckString(1), s.body(then), s.body(otherwise))
		}
		return 0
	}
}

// repeat: rept(count, [counter, [start, [step,]]] body).
func (s *Script) repeat(L *lua.LState) int {
	top := L.GetTop()
	fn := L.CheckFunction(top)
	count := s.exprAt(1)
	var counter string
	var start, step expr.Expr
	if top > 2 {
		counter = L.CheckString(2)
	}
	if top > 3 {
		start = s.exprAt(3)
	}
	if top > 4 {
		step = s.exprAt(4)
	}
	s.at().RepeatFrom(count, counter, start, step, s.body(fn))
	return 0
}

// loop: for_(counter, start, stop, [step,] body).
func (s *Script) loop(L *lua.LState) int {
	top := L.GetTop()
	fn := L.CheckFunction(top)
	var step expr.Expr
	if top > 4 {
		step = s.exprAt(4)
	}
	s.at().For(L.CheckString(1), s.exprAt(2), s.exprAt(3), step, s.body(fn))
	return 0
}

// iterate(counter, {values}, body).
func (s *Script) iterate(L *lua.LState) int {
	t := L.CheckTable(2)
	var values []expr.Expr
	for i := 1; i <= t.Len(); i++ {
		values = append(values, s.toExpr(2, t.RawGetInt(i), false))
	}
	s.at().Iterate(L.CheckString(1), values, s.body(L.CheckFunction(3)))
	return 0
}

// switch_ is switch(value, {{v, body [, brk]}, ...} [, default]). A case
// with brk false falls through into the next one.
func (s *Script) switch_(L *lua.LState) int {
	t := L.CheckTable(2)
	var cases []listing.SwitchCase
	for i := 1; i <= t.Len(); i++ {
		c, ok := t.RawGetInt(i).(*lua.LTable)
		if !ok {
			L.ArgError(2, "cases must be {value, body} tables")
		}
		fn, ok := c.RawGetInt(2).(*lua.LFunction)
		if !ok {
			L.ArgError(2, "case body must be a function")
		}
		cases = append(cases, listing.SwitchCase{
			Value: s.toExpr(2, c.RawGetInt(1), false),
			Break: c.RawGetInt(3) != lua.LFalse,
			Body:  s.body(fn),
		})
	}
	s.at().Switch(s.exprAt(1), cases, s.body(L.OptFunction(3, nil)))
	return 0
}
