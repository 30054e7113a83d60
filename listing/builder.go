package listing

import "github.com/Urethramancer/cpcasm/expr"

// Builder appends tokens to a listing, numbering statements as it goes.
type Builder struct {
	file   string
	line   int
	tokens Listing
}

// NewBuilder starts a listing for the named file.
func NewBuilder(file string) *Builder {
	return &Builder{file: file}
}

// Listing returns the tokens built so far.
func (b *Builder) Listing() Listing {
	return b.tokens
}

// At sets the line number of the next statement.
func (b *Builder) At(line int) *Builder {
	b.line = line - 1
	return b
}

func (b *Builder) base() Base {
	b.line++
	return Base{Location: Location{File: b.file, Line: b.line}}
}

// Add appends a prebuilt token.
func (b *Builder) Add(t Token) *Builder {
	b.tokens = append(b.tokens, t)
	return b
}

// sub builds a nested body sharing the file and line counter.
func (b *Builder) sub(body func(*Builder)) Listing {
	if body == nil {
		return nil
	}
	s := &Builder{file: b.file, line: b.line}
	body(s)
	b.line = s.line
	return s.tokens
}

// Label defines a label at the current address.
func (b *Builder) Label(name string) *Builder {
	return b.Add(Label{Base: b.base(), Name: name})
}

// GlobalLabel defines a label that escapes macro scopes.
func (b *Builder) GlobalLabel(name string) *Builder {
	return b.Add(Label{Base: b.base(), Name: name, Global: true})
}

// Instr appends an instruction.
func (b *Builder) Instr(mnemonic string, ops ...Operand) *Builder {
	return b.Add(Instruction{Base: b.base(), Mnemonic: mnemonic, Operands: ops})
}

// Org moves the program counter.
func (b *Builder) Org(addr expr.Expr) *Builder {
	return b.Add(Org{Base: b.base(), Address: addr})
}

// OrgOutput assembles for addr while writing at output.
func (b *Builder) OrgOutput(addr, output expr.Expr) *Builder {
	return b.Add(Org{Base: b.base(), Address: addr, Output: output})
}

// DB emits bytes. String values emit their characters.
func (b *Builder) DB(values ...expr.Expr) *Builder {
	return b.Add(Data{Base: b.base(), Kind: DataBytes, Values: values})
}

// DW emits little-endian words.
func (b *Builder) DW(values ...expr.Expr) *Builder {
	return b.Add(Data{Base: b.base(), Kind: DataWords, Values: values})
}

// DS reserves count bytes of fill. A nil fill means zero.
func (b *Builder) DS(count, fill expr.Expr) *Builder {
	return b.Add(Data{Base: b.base(), Kind: DataSpace, Count: count, Fill: fill})
}

// Str emits strings with bit 7 set on the last character.
func (b *Builder) Str(values ...expr.Expr) *Builder {
	return b.Add(Data{Base: b.base(), Kind: DataString, Values: values})
}

// DZ emits values followed by a zero byte.
func (b *Builder) DZ(values ...expr.Expr) *Builder {
	return b.Add(Data{Base: b.base(), Kind: DataZero, Values: values})
}

// Align pads to a boundary.
func (b *Builder) Align(boundary, fill expr.Expr) *Builder {
	return b.Add(Align{Base: b.base(), Boundary: boundary, Fill: fill})
}

// Equ defines a constant.
func (b *Builder) Equ(name string, value expr.Expr) *Builder {
	return b.Add(Equ{Base: b.base(), Name: name, Value: value})
}

// Set assigns a variable.
func (b *Builder) Set(name string, value expr.Expr) *Builder {
	return b.Add(Assign{Base: b.base(), Name: name, Value: value})
}

// Include splices another listing.
func (b *Builder) Include(path string) *Builder {
	return b.Add(Include{Base: b.base(), Path: path})
}

// Incbin splices a binary file. Offset and length may be nil.
func (b *Builder) Incbin(path string, offset, length expr.Expr) *Builder {
	return b.Add(Incbin{Base: b.base(), Path: path, Offset: offset, Length: length})
}

// Macro declares a macro with the given parameters.
func (b *Builder) Macro(name string, params []string, body func(*Builder)) *Builder {
	base := b.base()
	return b.Add(MacroDef{Base: base, Name: name, Params: params, Body: b.sub(body)})
}

// Call invokes a macro.
func (b *Builder) Call(name string, args ...Operand) *Builder {
	return b.Add(MacroCall{Base: b.base(), Name: name, Args: args})
}

// If adds a conditional with one test and an optional else body.
func (b *Builder) If(cond expr.Expr, then, otherwise func(*Builder)) *Builder {
	return b.conditional(Branch{Test: TestTrue, Cond: cond}, then, otherwise)
}

// IfNot adds a conditional taken when cond is false.
func (b *Builder) IfNot(cond expr.Expr, then, otherwise func(*Builder)) *Builder {
	return b.conditional(Branch{Test: TestFalse, Cond: cond}, then, otherwise)
}

// IfDef adds a conditional taken when name is defined.
func (b *Builder) IfDef(name string, then, otherwise func(*Builder)) *Builder {
	return b.conditional(Branch{Test: TestDefined, Name: name}, then, otherwise)
}

// IfNDef adds a conditional taken when name is not defined.
func (b *Builder) IfNDef(name string, then, otherwise func(*Builder)) *Builder {
	return b.conditional(Branch{Test: TestUndefined, Name: name}, then, otherwise)
}

func (b *Builder) conditional(br Branch, then, otherwise func(*Builder)) *Builder {
	base := b.base()
	br.Body = b.sub(then)
	return b.Add(If{Base: base, Branches: []Branch{br}, Else: b.sub(otherwise)})
}

// IfChain adds a conditional with several branches, like IF/ELSEIF/ELSE.
func (b *Builder) IfChain(branches []Branch, otherwise Listing) *Builder {
	return b.Add(If{Base: b.base(), Branches: branches, Else: otherwise})
}

// Repeat unrolls body count times. counter may be empty.
func (b *Builder) Repeat(count expr.Expr, counter string, body func(*Builder)) *Builder {
	return b.RepeatFrom(count, counter, nil, nil, body)
}

// RepeatFrom is Repeat with the counter running from start by step. Nil
// start and step mean 1.
func (b *Builder) RepeatFrom(count expr.Expr, counter string, start, step expr.Expr, body func(*Builder)) *Builder {
	base := b.base()
	return b.Add(Repeat{Base: base, Count: count, Counter: counter, Start: start, Step: step, Body: b.sub(body)})
}

// While unrolls body for as long as cond holds before assembly.
func (b *Builder) While(cond expr.Expr, body func(*Builder)) *Builder {
	base := b.base()
	return b.Add(While{Base: base, Cond: cond, Body: b.sub(body)})
}

// Until unrolls body until cond holds, at least once.
func (b *Builder) Until(cond expr.Expr, body func(*Builder)) *Builder {
	base := b.base()
	return b.Add(Until{Base: base, Cond: cond, Body: b.sub(body)})
}

// For unrolls body with counter running from start to stop. A nil step means 1.
func (b *Builder) For(counter string, start, stop, step expr.Expr, body func(*Builder)) *Builder {
	base := b.base()
	return b.Add(For{Base: base, Counter: counter, Start: start, Stop: stop, Step: step, Body: b.sub(body)})
}

// Iterate unrolls body once per value.
func (b *Builder) Iterate(counter string, values []expr.Expr, body func(*Builder)) *Builder {
	base := b.base()
	return b.Add(Iterate{Base: base, Counter: counter, Values: values, Body: b.sub(body)})
}

// SwitchCase is one arm handed to Switch.
type SwitchCase struct {
	Value expr.Expr
	Break bool
	Body  func(*Builder)
}

// Switch adds a switch over value with an optional default body.
func (b *Builder) Switch(value expr.Expr, cases []SwitchCase, otherwise func(*Builder)) *Builder {
	base := b.base()
	sw := Switch{Base: base, Value: value}
	for _, c := range cases {
		sw.Cases = append(sw.Cases, Case{Value: c.Value, Break: c.Break, Body: b.sub(c.Body)})
	}
	sw.Default = b.sub(otherwise)
	return b.Add(sw)
}

// Struct declares a record. In body a label names the data statement or
// struct instance that follows it.
func (b *Builder) Struct(name string, body func(*Builder)) *Builder {
	base := b.base()
	st := Struct{Base: base, Name: name}
	pending := ""
	for _, t := range b.sub(body) {
		if l, ok := t.(Label); ok {
			pending = l.Name
			continue
		}
		st.Fields = append(st.Fields, Field{Name: pending, Data: t})
		pending = ""
	}
	if pending != "" {
		st.Fields = append(st.Fields, Field{Name: pending})
	}
	return b.Add(st)
}

// Undef removes a symbol.
func (b *Builder) Undef(name string) *Builder {
	return b.Add(Undef{Base: b.base(), Name: name})
}

// Fail stops assembly with the given message values.
func (b *Builder) Fail(values ...expr.Expr) *Builder {
	return b.Add(Fail{Base: b.base(), Values: values})
}

// Limit forbids output above addr.
func (b *Builder) Limit(addr expr.Expr) *Builder {
	return b.Add(Limit{Base: b.base(), Address: addr})
}

// Protect forbids output from start to stop.
func (b *Builder) Protect(start, stop expr.Expr) *Builder {
	return b.Add(Protect{Base: b.base(), Start: start, Stop: stop})
}

// Bank selects a Gate Array memory configuration.
func (b *Builder) Bank(config expr.Expr) *Builder {
	return b.Add(Bank{Base: b.base(), Config: config})
}

// Bankset selects a 64K page.
func (b *Builder) Bankset(page expr.Expr) *Builder {
	return b.Add(Bankset{Base: b.base(), Page: page})
}

// Assert checks cond in the final pass.
func (b *Builder) Assert(cond expr.Expr, message string) *Builder {
	return b.Add(Assert{Base: b.base(), Cond: cond, Message: message})
}

// Print reports values in the final pass.
func (b *Builder) Print(values ...expr.Expr) *Builder {
	return b.Add(Print{Base: b.base(), Values: values})
}

// Run sets the entry point.
func (b *Builder) Run(addr expr.Expr) *Builder {
	return b.Add(Run{Base: b.base(), Address: addr})
}

// Comment adds a no-op.
func (b *Builder) Comment(text string) *Builder {
	return b.Add(Comment{Base: b.base(), Text: text})
}
