package assembler

import (
	"github.com/Urethramancer/cpcasm/cpu"
	"github.com/Urethramancer/cpcasm/listing"
)

// assembleIO handles IN and OUT, including the undocumented "in (c)",
// "in f,(c)" and "out (c),0".
func assembleIO(p *pass, mn string, ops []listing.Operand) ([]byte, error) {
	if mn == "in" {
		switch {
		case len(ops) == 1 && ops[0].IsIndirect(cpu.RegC):
			return []byte{cpu.PrefixED, cpu.EDINF}, nil
		case len(ops) != 2:
			return nil, invalid(mn, ops)
		}
		dst, port := ops[0], ops[1]
		switch {
		case dst.Is(cpu.RegA) && port.Kind == listing.OperandMemory:
			n, err := p.byte(port.Expr)
			if err != nil {
				return nil, err
			}
			return []byte{cpu.OPINAn, n}, nil
		case port.IsIndirect(cpu.RegC) && dst.Is(cpu.RegF):
			return []byte{cpu.PrefixED, cpu.EDINF}, nil
		case port.IsIndirect(cpu.RegC) && dst.Kind == listing.OperandRegister && dst.Reg.Is8Bit():
			c, _ := dst.Reg.Code()
			return []byte{cpu.PrefixED, cpu.EDINrC | c<<3}, nil
		}
		return nil, invalid(mn, ops)
	}

	if err := arity(mn, ops, 2); err != nil {
		return nil, err
	}
	port, src := ops[0], ops[1]
	switch {
	case port.Kind == listing.OperandMemory && src.Is(cpu.RegA):
		n, err := p.byte(port.Expr)
		if err != nil {
			return nil, err
		}
		return []byte{cpu.OPOUTnA, n}, nil
	case port.IsIndirect(cpu.RegC) && src.Kind == listing.OperandRegister && src.Reg.Is8Bit():
		c, _ := src.Reg.Code()
		return []byte{cpu.PrefixED, cpu.EDOUTCr | c<<3}, nil
	case port.IsIndirect(cpu.RegC) && src.Kind == listing.OperandImmediate:
		v, err := p.number(src.Expr)
		if err != nil {
			return nil, err
		}
		if v != 0 && p.final {
			return nil, invalid(mn, ops)
		}
		return []byte{cpu.PrefixED, cpu.EDOUTC0}, nil
	}
	return nil, invalid(mn, ops)
}
