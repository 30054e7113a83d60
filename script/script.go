// Package script builds listings from Lua programs. Mnemonics and
// directives are Lua globals that append statements to the listing, so a
// script describes a program structurally rather than as source text.
//
//	org(0x8000)
//	label("start")
//	ld("a", 1)
//	rept(4, "i", function() db(sym("i")) end)
//	jp("start")
package script

import (
	"fmt"
	"os"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/Urethramancer/cpcasm/expr"
	"github.com/Urethramancer/cpcasm/listing"
)

// Script is one Lua state and the listing it builds. Functions registered
// with fn() stay callable after the script has run, so a Script must be
// kept open for as long as an assembly may call them.
type Script struct {
	mu    sync.Mutex
	L     *lua.LState
	name  string
	b     *listing.Builder
	funcs map[string]*lua.LFunction
}

// New creates a script state. name is used as the file in statement locations.
func New(name string) *Script {
	s := &Script{
		L:     lua.NewState(lua.Options{SkipOpenLibs: true}),
		name:  name,
		funcs: make(map[string]*lua.LFunction),
	}
	s.openLibs()
	s.register()
	return s
}

// openLibs loads the side-effect free standard libraries.
func (s *Script) openLibs() {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		s.L.Push(s.L.NewFunction(lib.fn))
		s.L.Push(lua.LString(lib.name))
		s.L.Call(1, 0)
	}
}

// Close releases the Lua state.
func (s *Script) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.L.Close()
}

// Run executes src and returns the listing it built.
func (s *Script) Run(src string) (listing.Listing, error) {
	return s.exec(func() error { return s.L.DoString(src) })
}

// RunFile executes the script at path.
func (s *Script) RunFile(path string) (listing.Listing, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return s.exec(func() error { return s.L.DoFile(path) })
}

func (s *Script) exec(do func() error) (listing.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.b = listing.NewBuilder(s.name)
	defer func() { s.b = nil }()
	if err := do(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrScript, s.name, err)
	}
	return s.b.Listing(), nil
}

// Function implements expr.Functions for the functions the script
// registered. Calls are serialised on the Lua state.
func (s *Script) Function(name string) (expr.Func, bool) {
	name = strings.ToLower(name)
	s.mu.Lock()
	fn, ok := s.funcs[name]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}

	return func(args []expr.Value) (expr.Value, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		lv := make([]lua.LValue, len(args))
		for i, a := range args {
			lv[i] = toLua(a)
		}
		if err := s.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, lv...); err != nil {
			return expr.Value{}, fmt.Errorf("%s: %w", name, err)
		}
		ret := s.L.Get(-1)
		s.L.Pop(1)
		v, err := fromLua(ret)
		if err != nil {
			return expr.Value{}, fmt.Errorf("%s: %w", name, err)
		}
		return v, nil
	}, true
}

func toLua(v expr.Value) lua.LValue {
	switch v.Kind {
	case expr.KindFloat:
		return lua.LNumber(v.Float)
	case expr.KindString:
		return lua.LString(v.Str)
	}
	return lua.LNumber(v.Int)
}

func fromLua(v lua.LValue) (expr.Value, error) {
	switch x := v.(type) {
	case lua.LNumber:
		f := float64(x)
		if f == float64(int64(f)) {
			return expr.IntValue(int64(f)), nil
		}
		return expr.FloatValue(f), nil
	case lua.LString:
		return expr.StringValue(string(x)), nil
	case lua.LBool:
		return expr.BoolValue(bool(x)), nil
	}
	return expr.Value{}, fmt.Errorf("%w: %s", ErrFunctionResult, v.Type())
}

// line returns the source line of the Lua code calling into Go.
func (s *Script) line() int {
	dbg, ok := s.L.GetStack(1)
	if !ok {
		return 0
	}
	if _, err := s.L.GetInfo("l", dbg, lua.LNil); err != nil {
		return 0
	}
	return dbg.CurrentLine
}

// at returns the builder positioned on the calling line.
func (s *Script) at() *listing.Builder {
	if s.b == nil {
		s.L.RaiseError("statements can only be added while the script runs")
	}
	if n := s.line(); n > 0 {
		s.b.At(n)
	}
	return s.b
}

// body turns a Lua function into a nested listing body.
func (s *Script) body(fn *lua.LFunction, args ...lua.LValue) func(*listing.Builder) {
	if fn == nil {
		return nil
	}
	return func(b *listing.Builder) {
		prev := s.b
		s.b = b
		defer func() { s.b = prev }()
		s.L.Push(fn)
		for _, a := range args {
			s.L.Push(a)
		}
		s.L.Call(len(args), 0)
	}
}
