package expr

import (
	"math"
	"strings"
)

type builtin struct {
	arity int
	fn    Func
}

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"hi":    {1, intFn(func(v int64) int64 { return (v >> 8) & 0xFF })},
		"high":  {1, intFn(func(v int64) int64 { return (v >> 8) & 0xFF })},
		"lo":    {1, intFn(func(v int64) int64 { return v & 0xFF })},
		"low":   {1, intFn(func(v int64) int64 { return v & 0xFF })},
		"int":   {1, intFn(func(v int64) int64 { return v })},
		"floor": {1, keepInt(math.Floor)},
		"ceil":  {1, keepInt(math.Ceil)},
		"frac":  {1, fnFrac},
		"abs":   {1, fnAbs},
		"sqrt":  {1, floatFn(math.Sqrt)},
		"sin":   {1, floatFn(func(f float64) float64 { return math.Sin(f * math.Pi / 180) })},
		"cos":   {1, floatFn(func(f float64) float64 { return math.Cos(f * math.Pi / 180) })},
		"asin":  {1, floatFn(func(f float64) float64 { return math.Asin(f) * 180 / math.Pi })},
		"acos":  {1, floatFn(func(f float64) float64 { return math.Acos(f) * 180 / math.Pi })},
		"atan":  {1, floatFn(func(f float64) float64 { return math.Atan(f) * 180 / math.Pi })},
		"ln":    {1, floatFn(math.Log)},
		"log10": {1, floatFn(math.Log10)},
		"exp":   {1, floatFn(math.Exp)},
		"min":   {2, fnMinMax(true)},
		"max":   {2, fnMinMax(false)},
		"pow":   {2, fnPow},
	}
}

// IsBuiltin reports whether name is a built-in function.
func IsBuiltin(name string) bool {
	_, ok := builtins[strings.ToLower(name)]
	return ok
}

func intFn(f func(int64) int64) Func {
	return func(args []Value) (Value, error) {
		v, err := args[0].AsInt()
		if err != nil {
			return Value{}, err
		}
		return IntValue(f(v)), nil
	}
}

func floatFn(f func(float64) float64) Func {
	return func(args []Value) (Value, error) {
		v, err := args[0].AsFloat()
		if err != nil {
			return Value{}, err
		}
		return FloatValue(f(v)), nil
	}
}

// keepInt applies f to floats and leaves integers alone.
func keepInt(f func(float64) float64) Func {
	return func(args []Value) (Value, error) {
		if args[0].Kind == KindFloat {
			return FloatValue(f(args[0].Float)), nil
		}
		v, err := args[0].AsInt()
		if err != nil {
			return Value{}, err
		}
		return IntValue(v), nil
	}
}

func fnFrac(args []Value) (Value, error) {
	if args[0].Kind == KindFloat {
		_, frac := math.Modf(args[0].Float)
		return FloatValue(frac), nil
	}
	if _, err := args[0].AsInt(); err != nil {
		return Value{}, err
	}
	return IntValue(0), nil
}

func fnAbs(args []Value) (Value, error) {
	if args[0].Kind == KindFloat {
		return FloatValue(math.Abs(args[0].Float)), nil
	}
	v, err := args[0].AsInt()
	if err != nil {
		return Value{}, err
	}
	if v < 0 {
		v = -v
	}
	return IntValue(v), nil
}

func fnMinMax(min bool) Func {
	return func(args []Value) (Value, error) {
		a, b := args[0], args[1]
		fa, err := a.AsFloat()
		if err != nil {
			return Value{}, err
		}
		fb, err := b.AsFloat()
		if err != nil {
			return Value{}, err
		}
		if (fa <= fb) == min {
			return a, nil
		}
		return b, nil
	}
}

func fnPow(args []Value) (Value, error) {
	p, err := args[1].AsInt()
	if err != nil {
		return Value{}, err
	}
	if args[0].Kind == KindFloat || p < 0 {
		f, err := args[0].AsFloat()
		if err != nil {
			return Value{}, err
		}
		return FloatValue(math.Pow(f, float64(p))), nil
	}
	base, err := args[0].AsInt()
	if err != nil {
		return Value{}, err
	}
	r := int64(1)
	for range p {
		r *= base
	}
	return IntValue(r), nil
}

// FuncMap is a Functions backed by a map.
type FuncMap map[string]Func

// Function implements Functions.
func (m FuncMap) Function(name string) (Func, bool) {
	f, ok := m[name]
	return f, ok
}

// MapEnv is an Env over a plain map of values. It is handy for constant
// folding and tests.
type MapEnv struct {
	Values map[string]Value
	PC     int64
	HasPC  bool
	Funcs  Functions
}

// Symbol implements Env.
func (m *MapEnv) Symbol(name string) (Value, error) {
	if v, ok := m.Values[name]; ok {
		return v, nil
	}
	return Value{}, &UndefinedError{Name: name}
}

// Address implements Env.
func (m *MapEnv) Address() (int64, bool) { return m.PC, m.HasPC }

// Function implements Env.
func (m *MapEnv) Function(name string) (Func, bool) {
	if m.Funcs == nil {
		return nil, false
	}
	return m.Funcs.Function(name)
}
