package assembler

import (
	"github.com/Urethramancer/cpcasm/cpu"
	"github.com/Urethramancer/cpcasm/listing"
)

// assembleStack handles PUSH and POP. Several registers give one
// instruction each, in operand order.
func assembleStack(p *pass, mn string, ops []listing.Operand) ([]byte, error) {
	if len(ops) == 0 {
		return nil, arity(mn, ops, 1)
	}
	op := byte(cpu.OPPUSH)
	if mn == "pop" {
		op = cpu.OPPOP
	}
	var out []byte
	for _, r := range ops {
		if r.Kind != listing.OperandRegister {
			return nil, invalid(mn, ops)
		}
		code, ok := r.Reg.StackCode()
		if !ok {
			return nil, invalid(mn, ops)
		}
		out = append(out, withPrefix(r.Reg.Prefix(), op|code<<4)...)
	}
	return out, nil
}

// assembleExchange handles EX and EXX.
func assembleExchange(mn string, ops []listing.Operand) ([]byte, error) {
	if mn == "exx" {
		if err := arity(mn, ops, 0); err != nil {
			return nil, err
		}
		return []byte{cpu.OPEXX}, nil
	}
	if err := arity(mn, ops, 2); err != nil {
		return nil, err
	}
	a, b := ops[0], ops[1]
	switch {
	case a.Is(cpu.RegDE) && b.Is(cpu.RegHL), a.Is(cpu.RegHL) && b.Is(cpu.RegDE):
		return []byte{cpu.OPEXDEHL}, nil
	case a.Is(cpu.RegAF) && (b.Is(cpu.RegAFX) || b.Is(cpu.RegAF)):
		return []byte{cpu.OPEXAF}, nil
	case a.IsIndirect(cpu.RegSP) && hlLike(b):
		return withPrefix(b.Reg.Prefix(), cpu.OPEXSPHL), nil
	case hlLike(a) && b.IsIndirect(cpu.RegSP):
		return withPrefix(a.Reg.Prefix(), cpu.OPEXSPHL), nil
	}
	return nil, invalid(mn, ops)
}
