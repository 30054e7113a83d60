package script_test

import (
	"bytes"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Urethramancer/cpcasm/assembler"
	"github.com/Urethramancer/cpcasm/expand"
	"github.com/Urethramancer/cpcasm/script"
)

func code(res *assembler.Result) []byte {
	var out []byte
	for _, s := range res.Segments {
		out = append(out, s.Data...)
	}
	return out
}

// runAndMatchHex runs a script, assembles its listing at 0x1000 and
// compares the output.
func runAndMatchHex(t *testing.T, name, src, want string) {
	t.Helper()
	s := script.New(name + ".lua")
	defer s.Close()
	l, err := s.Run(src)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	res, err := assembler.Assemble(l, 0x1000, assembler.Options{Functions: s})
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	expected, err := hex.DecodeString(strings.ReplaceAll(want, " ", ""))
	if err != nil {
		t.Fatalf("%s: bad hex: %v", name, err)
	}
	if got := code(res); !bytes.Equal(got, expected) {
		t.Errorf("%s: got % X, want % X", name, got, expected)
	}
}

func TestScripts(t *testing.T) {
	tests := []struct {
		name string
		src  string
		hex  string
	}{
		{"instructions", `
org(0x8000)
label("start")
ld("a", 1)
ld(mem("hl"), "a")
ld("(hl)", "b")
ld("a", idx("ix", -2))
jp("nz", "start")
and_("a", 0x0F)
in_("a", mem(0xFE))
ret()
`, "3E 01 77 70 DD 7E FE C2 00 80 E6 0F DB FE C9"},
		{"expressions", `
equ("base", 0x4000)
ld("hl", sym("base") + 2)
ld("a", func("hi", "base"))
dw(band(0x1234, 0xFF))
db(shl(1, 3), -num(1), sym("base") / 0x1000)
`, "21 02 40 3E 40 34 00 08 FF 04"},
		{"macros and repeats", `
macro("wait", {"count"}, function(count)
	ld("b", count)
	label("loop")
	djnz("loop")
end)
invoke("wait", 1)
invoke("wait", 2)
rept(3, "i", function() db(sym("i")) end)
rept(2, "j", 10, 5, function() db(sym("j")) end)
`, "06 01 10 FE 06 02 10 FE 01 02 03 0A 0F"},
		{"conditionals", `
equ("debug", 1)
if_("debug", function() nop() end, function() halt() end)
ifnot("debug", function() halt() end)
ifdef("debug", function() ei() end)
ifndef("missing", function() di() end)
if_(eq(pc(), 0x1003), function() scf() end)
`, "00 FB F3 37"},
		{"set", `
set("count", 3)
set(1, "a")
db(sym("count"))
`, "CB CF 03"},
		{"data", `
db("Hi", 0)
str("AB")
dz("C")
ds(2, 0xE5)
align(8)
`, "48 69 00 41 C2 43 00 E5 E5 00 00 00 00 00 00 00"},
		{"user function", `
fn("double", function(x) return x * 2 end)
db(func("double", 21))
`, "2A"},
		{"loops", `
set("i", 0)
while_(lt(sym("i"), 2), function()
	db(sym("i"))
	set("i", sym("i") + 1)
end)
for_("k", 1, 5, 2, function() db(sym("k")) end)
iterate("v", {7, 8}, function() db(sym("v")) end)
until_(eq(sym("i"), 3), function() set("i", sym("i") + 1) end)
`, "00 01 01 03 05 07 08"},
		{"switch and struct", `
switch(2, {
	{1, function() db(0xAA) end},
	{2, function() db(0xBB) end, false},
	{3, function() db(0xCC) end},
}, function() db(0xDD) end)
struct("pair", function()
	label("lo")
	db(0)
	label("hi")
	db(0)
end)
invoke("pair", 1, 2)
db(sym("pair.hi"))
push("af", "bc")
undef("pair.hi")
limit(0x2000)
protect(0x3000, 0x3FFF)
`, "BB CC 01 02 01 F5 C5"},
	}
	for _, tc := range tests {
		runAndMatchHex(t, tc.name, tc.src, tc.hex)
	}
}

func TestLocations(t *testing.T) {
	s := script.New("lines.lua")
	defer s.Close()
	l, err := s.Run("nop()\n\nhalt()\nrept(2, function()\n\tei()\nend)\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(l) != 3 {
		t.Fatalf("got %d statements", len(l))
	}
	for i, want := range []int{1, 3, 4} {
		loc := l[i].Loc()
		if loc.File != "lines.lua" || loc.Line != want {
			t.Errorf("statement %d at %s, want line %d", i, loc, want)
		}
	}
}

func TestScriptErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", "nop("},
		{"bad operand", "ld({}, 1)"},
		{"builtin shadowed", `fn("hi", function(x) return x end)`},
		{"bad index register", `ld("a", idx("hl", 1))`},
		{"lua error", `error("stop")`},
	}
	for _, tc := range tests {
		s := script.New(tc.name)
		_, err := s.Run(tc.src)
		if !errors.Is(err, script.ErrScript) {
			t.Errorf("%s: got %v", tc.name, err)
		}
		s.Close()
	}

	s := script.New("fail.lua")
	defer s.Close()
	l, err := s.Run(`
fn("boom", function() error("bad input") end)
fn("table", function() return {} end)
db(func("boom"))
`)
	if err != nil {
		t.Fatal(err)
	}
	_, err = assembler.Assemble(l, 0, assembler.Options{Functions: s})
	if err == nil || !strings.Contains(err.Error(), "bad input") {
		t.Errorf("function error: %v", err)
	}

	l, err = s.Run(`fail("stop", 1)`)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := assembler.Assemble(l, 0, assembler.Options{}); !errors.Is(err, assembler.ErrFail) {
		t.Errorf("fail: %v", err)
	}

	f, ok := s.Function("table")
	if !ok {
		t.Fatal("table function not registered")
	}
	if _, err := f(nil); !errors.Is(err, script.ErrFunctionResult) {
		t.Errorf("table result: %v", err)
	}
	if _, ok := s.Function("missing"); ok {
		t.Error("unknown function found")
	}
}

func TestLoader(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"main.lua": `
include("lib.lua")
invoke("twice", 5)
`,
		"lib.lua": `
fn("double", function(x) return x * 2 end)
macro("twice", {"v"}, function(v)
	db(func("double", v))
end)
`,
		"plain.asm": "nop",
	}
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	loader := script.NewLoader(dir)
	defer loader.Close()
	scope := loader.Scope(nil)
	l, err := scope.Load("main.lua")
	if err != nil {
		t.Fatal(err)
	}
	res, err := assembler.Assemble(l, 0, assembler.Options{Loader: scope, Functions: scope})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(code(res), []byte{10}) {
		t.Errorf("got % X", code(res))
	}
	if _, ok := loader.Scope(nil).Function("double"); ok {
		t.Error("a fresh scope sees functions it never loaded")
	}

	if _, err := loader.Load("plain.asm"); !errors.Is(err, script.ErrNotScript) {
		t.Errorf("plain.asm: %v", err)
	}
	if _, err := loader.Load("nothing.lua"); !errors.Is(err, expand.ErrNotFound) {
		t.Errorf("nothing.lua: %v", err)
	}
}
