package assembler

import (
	"fmt"
	"strings"

	"github.com/Urethramancer/cpcasm/cpu"
	"github.com/Urethramancer/cpcasm/expr"
	"github.com/Urethramancer/cpcasm/listing"
)

// assembleInstruction dispatches to the encoder of the instruction's family.
func assembleInstruction(p *pass, ins listing.Instruction) ([]byte, error) {
	mn := strings.ToLower(ins.Mnemonic)
	ops := ins.Operands
	switch mn {
	case "ld":
		return assembleLoad(p, ops)
	case "push", "pop":
		return assembleStack(p, mn, ops)
	case "ex", "exx":
		return assembleExchange(mn, ops)
	case "add", "adc", "sub", "sbc", "inc", "dec":
		return assembleMath(p, mn, ops)
	case "and", "or", "xor", "cp":
		return assembleLogical(p, mn, ops)
	case "rlca", "rla", "rrca", "rra", "rld", "rrd",
		"rlc", "rrc", "rl", "rr", "sla", "sra", "sll", "sl1", "srl",
		"bit", "set", "res":
		return assembleBits(p, mn, ops)
	case "jp", "jr", "djnz", "call", "ret", "reti", "retn", "rst":
		return assembleFlow(p, mn, ops)
	case "in", "out":
		return assembleIO(p, mn, ops)
	case "ldi", "ldir", "ldd", "lddr", "cpi", "cpir", "cpd", "cpdr",
		"ini", "inir", "ind", "indr", "outi", "otir", "outd", "otdr":
		return assembleBlock(mn, ops)
	case "nop", "halt", "di", "ei", "daa", "cpl", "ccf", "scf", "neg", "im":
		return assembleMisc(p, mn, ops)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownInstruction, ins.Mnemonic)
}

// invalid reports an operand combination with no encoding.
func invalid(mn string, ops []listing.Operand) error {
	parts := make([]string, len(ops))
	for i, o := range ops {
		parts[i] = o.String()
	}
	return fmt.Errorf("%w: %s %s", ErrInvalidOperand, mn, strings.Join(parts, ", "))
}

func arity(mn string, ops []listing.Operand, n int) error {
	if len(ops) != n {
		return fmt.Errorf("%w: %s takes %d operands, got %d", ErrInvalidOperand, mn, n, len(ops))
	}
	return nil
}

// loc is an 8-bit operand location: a register, (hl), (ix+d) or an index half.
type loc struct {
	code   uint8
	prefix uint8
	// disp is set for (ix+d) and (iy+d).
	disp expr.Expr
}

// memory reports whether the location is (hl) or (ix+d).
func (l loc) memory() bool {
	return l.code == cpu.OPMemHLCode && (l.prefix == 0 || l.disp != nil)
}

// reg8 decodes an 8-bit operand.
func reg8(o listing.Operand) (loc, bool) {
	switch o.Kind {
	case listing.OperandRegister:
		if o.Reg.Is8Bit() || o.Reg.IsIndexHalf() {
			c, _ := o.Reg.Code()
			return loc{code: c, prefix: o.Reg.Prefix()}, true
		}
	case listing.OperandIndirect:
		if o.Reg == cpu.RegHL {
			return loc{code: cpu.OPMemHLCode}, true
		}
		if o.Reg.IsIndex() {
			return loc{code: cpu.OPMemHLCode, prefix: o.Reg.Prefix(), disp: expr.Num(0)}, true
		}
	case listing.OperandIndexed:
		if o.Reg.IsIndex() {
			return loc{code: cpu.OPMemHLCode, prefix: o.Reg.Prefix(), disp: o.Expr}, true
		}
	}
	return loc{}, false
}

// compatible reports whether two locations can share one instruction:
// index halves can't meet h, l, (hl) or another index register.
func compatible(a, b loc) bool {
	half := func(l loc) bool { return l.prefix != 0 && l.disp == nil }
	hl := func(l loc) bool { return l.prefix == 0 && (l.code == 4 || l.code == 5) }
	switch {
	case a.memory() && b.memory():
		return false
	case half(a) && half(b):
		return a.prefix == b.prefix
	case half(a):
		return !hl(b) && !b.memory()
	case half(b):
		return !hl(a) && !a.memory()
	}
	return true
}

// encode lays out [prefix] op [d] rest..., the shape shared by every
// instruction using an 8-bit location.
func (p *pass) encode(l loc, op byte, rest ...byte) ([]byte, error) {
	var out []byte
	if l.prefix != 0 {
		out = append(out, l.prefix)
	}
	out = append(out, op)
	if l.disp != nil {
		d, err := p.disp(l.disp)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return append(out, rest...), nil
}

// pair decodes bc, de, hl, sp, ix or iy as a 2-bit field and prefix.
func pair(o listing.Operand) (code, prefix uint8, ok bool) {
	if o.Kind != listing.OperandRegister {
		return 0, 0, false
	}
	code, ok = o.Reg.PairCode()
	return code, o.Reg.Prefix(), ok
}

// hlLike reports whether o is hl, ix or iy.
func hlLike(o listing.Operand) bool {
	return o.Is(cpu.RegHL) || (o.Kind == listing.OperandRegister && o.Reg.IsIndex())
}

func withPrefix(prefix uint8, op ...byte) []byte {
	if prefix == 0 {
		return op
	}
	return append([]byte{prefix}, op...)
}

func (p *pass) imm16(prefix uint8, op byte, e expr.Expr) ([]byte, error) {
	w, err := p.word(e)
	if err != nil {
		return nil, err
	}
	return withPrefix(prefix, op, cpu.Lo(w), cpu.Hi(w)), nil
}
