// Package listing defines the token model of an assembly unit: an ordered
// sequence of statements produced by a front end and consumed by the
// expander and the assembler.
package listing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Urethramancer/cpcasm/expr"
	"github.com/Urethramancer/cpcasm/symbols"
)

// Location is where a token came from.
type Location struct {
	File string
	Line int
}

func (l Location) String() string {
	if l.File == "" {
		return "line " + strconv.Itoa(l.Line)
	}
	return l.File + ":" + strconv.Itoa(l.Line)
}

// Token is one assembly statement. Tokens are values: the expander copies
// them into new scopes instead of changing them.
type Token interface {
	fmt.Stringer
	Loc() Location
	Scope() symbols.ScopeID
	token()
}

// Listing is an ordered sequence of tokens.
type Listing []Token

// Base carries the fields every token has.
type Base struct {
	Location Location
	ScopeID  symbols.ScopeID
}

// Loc returns the source location.
func (b Base) Loc() Location { return b.Location }

// Scope returns the symbol scope the token is evaluated in.
func (b Base) Scope() symbols.ScopeID { return b.ScopeID }

func (Base) token() {}

// Label defines a symbol at the current address.
type Label struct {
	Base
	Name string
	// Global forces the label into the global scope from inside an expansion.
	Global bool
}

// Instruction is a CPU instruction.
type Instruction struct {
	Base
	Mnemonic string
	Operands []Operand
}

// DataKind selects the data directive.
type DataKind int

const (
	DataBytes  DataKind = iota // DB
	DataWords                  // DW
	DataSpace                  // DS count, fill
	DataString                 // STR: last character has bit 7 set
	DataZero                   // DZ: null terminated
	DataRaw                    // included binary
)

var dataNames = [...]string{"db", "dw", "ds", "str", "dz", "incbin"}

func (k DataKind) String() string {
	if int(k) < len(dataNames) {
		return dataNames[k]
	}
	return "data?"
}

// Data emits bytes.
type Data struct {
	Base
	Kind   DataKind
	Values []expr.Expr
	Count  expr.Expr
	Fill   expr.Expr
	Bytes  []byte
	Source string
}

// Org moves the program counter. Output, when set, is where the bytes go
// while code is assembled for Address.
type Org struct {
	Base
	Address expr.Expr
	Output  expr.Expr
}

// Align pads the program counter to a multiple of Boundary.
type Align struct {
	Base
	Boundary expr.Expr
	Fill     expr.Expr
}

// Equ defines a constant.
type Equ struct {
	Base
	Name  string
	Value expr.Expr
}

// Assign sets a variable.
type Assign struct {
	Base
	Name  string
	Value expr.Expr
}

// Include splices another listing in place.
type Include struct {
	Base
	Path string
}

// Incbin splices a binary file in place.
type Incbin struct {
	Base
	Path   string
	Offset expr.Expr
	Length expr.Expr
}

// MacroDef declares a macro. It emits nothing.
type MacroDef struct {
	Base
	Name   string
	Params []string
	Body   Listing
}

// MacroCall invokes a macro.
type MacroCall struct {
	Base
	Name string
	Args []Operand
}

// TestKind is the test applied by an If branch.
type TestKind int

const (
	TestTrue      TestKind = iota // IF expr
	TestFalse                     // IFNOT expr
	TestDefined                   // IFDEF name
	TestUndefined                 // IFNDEF name
)

// Branch is one conditional arm.
type Branch struct {
	Test TestKind
	Cond expr.Expr
	Name string
	Body Listing
}

// If selects the first branch whose test holds, or Else.
type If struct {
	Base
	Branches []Branch
	Else     Listing
}

// Repeat unrolls Body Count times. Counter, if named, runs from Start by Step.
type Repeat struct {
	Base
	Count   expr.Expr
	Counter string
	Start   expr.Expr
	Step    expr.Expr
	Body    Listing
}

// While unrolls Body for as long as Cond holds.
type While struct {
	Base
	Cond expr.Expr
	Body Listing
}

// Until unrolls Body at least once, then again until Cond holds.
type Until struct {
	Base
	Cond expr.Expr
	Body Listing
}

// For unrolls Body with Counter running from Start to Stop inclusive.
type For struct {
	Base
	Counter string
	Start   expr.Expr
	Stop    expr.Expr
	Step    expr.Expr
	Body    Listing
}

// Iterate unrolls Body once per value, bound to Counter.
type Iterate struct {
	Base
	Counter string
	Values  []expr.Expr
	Body    Listing
}

// Case is one Switch arm. A case without Break falls through into the next.
type Case struct {
	Value expr.Expr
	Body  Listing
	Break bool
}

// Switch selects the first case equal to Value, or Default.
type Switch struct {
	Base
	Value   expr.Expr
	Cases   []Case
	Default Listing
}

// Field is a Struct member: a data statement or an instance of another
// struct. Name is empty for padding.
type Field struct {
	Name string
	Data Token
}

// Struct declares a record layout. Each field name becomes a constant
// holding its offset and the struct name holds the size. Invoking the
// struct like a macro emits its fields.
type Struct struct {
	Base
	Name   string
	Fields []Field
}

// Undef removes a symbol.
type Undef struct {
	Base
	Name string
}

// Fail stops assembly when reached.
type Fail struct {
	Base
	Values []expr.Expr
}

// Limit forbids output above Address.
type Limit struct {
	Base
	Address expr.Expr
}

// Protect forbids output between Start and Stop inclusive.
type Protect struct {
	Base
	Start expr.Expr
	Stop  expr.Expr
}

// Bank sets the Gate Array memory configuration, 0xC0 to 0xFF.
type Bank struct {
	Base
	Config expr.Expr
}

// Bankset selects a 64K page: 0 is base memory.
type Bankset struct {
	Base
	Page expr.Expr
}

// Assert fails the final pass when Cond is false.
type Assert struct {
	Base
	Cond    expr.Expr
	Message string
}

// Print reports values during the final pass.
type Print struct {
	Base
	Values []expr.Expr
}

// Run records the entry point.
type Run struct {
	Base
	Address expr.Expr
}

// Comment is a no-op.
type Comment struct {
	Base
	Text string
}

// WithScope returns a copy of t evaluated in scope s.
func WithScope(t Token, s symbols.ScopeID) Token {
	switch v := t.(type) {
	case Label:
		v.ScopeID = s
		return v
	case Instruction:
		v.ScopeID = s
		return v
	case Data:
		v.ScopeID = s
		return v
	case Org:
		v.ScopeID = s
		return v
	case Align:
		v.ScopeID = s
		return v
	case Equ:
		v.ScopeID = s
		return v
	case Assign:
		v.ScopeID = s
		return v
	case Include:
		v.ScopeID = s
		return v
	case Incbin:
		v.ScopeID = s
		return v
	case MacroDef:
		v.ScopeID = s
		return v
	case MacroCall:
		v.ScopeID = s
		return v
	case If:
		v.ScopeID = s
		return v
	case Repeat:
		v.ScopeID = s
		return v
	case Bank:
		v.ScopeID = s
		return v
	case Bankset:
		v.ScopeID = s
		return v
	case Assert:
		v.ScopeID = s
		return v
	case Print:
		v.ScopeID = s
		return v
	case Run:
		v.ScopeID = s
		return v
	case Comment:
		v.ScopeID = s
		return v
	case While:
		v.ScopeID = s
		return v
	case Until:
		v.ScopeID = s
		return v
	case For:
		v.ScopeID = s
		return v
	case Iterate:
		v.ScopeID = s
		return v
	case Switch:
		v.ScopeID = s
		return v
	case Struct:
		v.ScopeID = s
		return v
	case Undef:
		v.ScopeID = s
		return v
	case Fail:
		v.ScopeID = s
		return v
	case Limit:
		v.ScopeID = s
		return v
	case Protect:
		v.ScopeID = s
		return v
	}
	return t
}

func (t Label) String() string { return t.Name + ":" }

func (t Instruction) String() string {
	if len(t.Operands) == 0 {
		return t.Mnemonic
	}
	ops := make([]string, len(t.Operands))
	for i, o := range t.Operands {
		ops[i] = o.String()
	}
	return t.Mnemonic + " " + strings.Join(ops, ", ")
}

func (t Data) String() string {
	switch t.Kind {
	case DataSpace:
		if t.Fill != nil {
			return "ds " + t.Count.String() + ", " + t.Fill.String()
		}
		return "ds " + t.Count.String()
	case DataRaw:
		return fmt.Sprintf("incbin %q ; %d bytes", t.Source, len(t.Bytes))
	}
	return t.Kind.String() + " " + joinExprs(t.Values)
}

func (t Org) String() string {
	if t.Output != nil {
		return "org " + t.Address.String() + ", " + t.Output.String()
	}
	return "org " + t.Address.String()
}

func (t Align) String() string {
	if t.Fill != nil {
		return "align " + t.Boundary.String() + ", " + t.Fill.String()
	}
	return "align " + t.Boundary.String()
}

func (t Equ) String() string     { return t.Name + " equ " + t.Value.String() }
func (t Assign) String() string  { return t.Name + " set " + t.Value.String() }
func (t Include) String() string { return "include " + strconv.Quote(t.Path) }
func (t Incbin) String() string  { return "incbin " + strconv.Quote(t.Path) }
func (t Bank) String() string    { return "bank " + t.Config.String() }
func (t Bankset) String() string { return "bankset " + t.Page.String() }
func (t Print) String() string   { return "print " + joinExprs(t.Values) }
func (t Run) String() string     { return "run " + t.Address.String() }
func (t Comment) String() string { return "; " + t.Text }
func (t While) String() string   { return "while " + t.Cond.String() }
func (t Until) String() string   { return "until " + t.Cond.String() }
func (t Switch) String() string  { return "switch " + t.Value.String() }
func (t Struct) String() string  { return "struct " + t.Name }
func (t Undef) String() string   { return "undef " + t.Name }
func (t Fail) String() string    { return "fail " + joinExprs(t.Values) }
func (t Limit) String() string   { return "limit " + t.Address.String() }

func (t For) String() string {
	s := "for " + t.Counter + ", " + t.Start.String() + ", " + t.Stop.String()
	if t.Step != nil {
		s += ", " + t.Step.String()
	}
	return s
}

func (t Iterate) String() string {
	return "iterate " + t.Counter + ", " + joinExprs(t.Values)
}

func (t Protect) String() string {
	return "protect " + t.Start.String() + ", " + t.Stop.String()
}

func (t MacroDef) String() string {
	return "macro " + t.Name + " " + strings.Join(t.Params, ", ")
}

func (t MacroCall) String() string {
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = a.String()
	}
	return t.Name + " " + strings.Join(args, ", ")
}

func (t If) String() string {
	if len(t.Branches) == 0 {
		return "if"
	}
	return t.Branches[0].String()
}

func (b Branch) String() string {
	switch b.Test {
	case TestFalse:
		return "ifnot " + b.Cond.String()
	case TestDefined:
		return "ifdef " + b.Name
	case TestUndefined:
		return "ifndef " + b.Name
	}
	return "if " + b.Cond.String()
}

func (t Repeat) String() string {
	if t.Counter != "" {
		return "repeat " + t.Count.String() + ", " + t.Counter
	}
	return "repeat " + t.Count.String()
}

func (t Assert) String() string {
	if t.Message != "" {
		return "assert " + t.Cond.String() + ", " + strconv.Quote(t.Message)
	}
	return "assert " + t.Cond.String()
}

func joinExprs(list []expr.Expr) string {
	parts := make([]string, len(list))
	for i, e := range list {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
