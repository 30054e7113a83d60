package assembler

import (
	"github.com/Urethramancer/cpcasm/cpu"
	"github.com/Urethramancer/cpcasm/listing"
)

// assembleLoad handles every form of LD.
func assembleLoad(p *pass, ops []listing.Operand) ([]byte, error) {
	if err := arity("ld", ops, 2); err != nil {
		return nil, err
	}
	dst, src := ops[0], ops[1]

	// 8-bit register and memory moves
	if d, ok := reg8(dst); ok {
		if s, ok := reg8(src); ok {
			if !compatible(d, s) {
				return nil, invalid("ld", ops)
			}
			l := d
			if s.prefix != 0 {
				l = s
			}
			return p.encode(l, cpu.OPLDrr|d.code<<3|s.code)
		}
		if src.Kind == listing.OperandImmediate {
			n, err := p.byte(src.Expr)
			if err != nil {
				return nil, err
			}
			return p.encode(d, cpu.OPLDrn|d.code<<3, n)
		}
	}

	switch {
	case dst.Is(cpu.RegA):
		switch {
		case src.IsIndirect(cpu.RegBC):
			return []byte{cpu.OPLDABC}, nil
		case src.IsIndirect(cpu.RegDE):
			return []byte{cpu.OPLDADE}, nil
		case src.Kind == listing.OperandMemory:
			return p.imm16(0, cpu.OPLDAmem, src.Expr)
		case src.Is(cpu.RegI):
			return []byte{cpu.PrefixED, cpu.EDLDAI}, nil
		case src.Is(cpu.RegR):
			return []byte{cpu.PrefixED, cpu.EDLDAR}, nil
		}

	case src.Is(cpu.RegA):
		switch {
		case dst.IsIndirect(cpu.RegBC):
			return []byte{cpu.OPLDBCA}, nil
		case dst.IsIndirect(cpu.RegDE):
			return []byte{cpu.OPLDDEA}, nil
		case dst.Kind == listing.OperandMemory:
			return p.imm16(0, cpu.OPLDmemA, dst.Expr)
		case dst.Is(cpu.RegI):
			return []byte{cpu.PrefixED, cpu.EDLDIA}, nil
		case dst.Is(cpu.RegR):
			return []byte{cpu.PrefixED, cpu.EDLDRA}, nil
		}

	case dst.Is(cpu.RegSP) && hlLike(src):
		return withPrefix(src.Reg.Prefix(), cpu.OPLDSPHL), nil
	}

	// 16-bit loads
	if code, prefix, ok := pair(dst); ok {
		switch src.Kind {
		case listing.OperandImmediate:
			return p.imm16(prefix, cpu.OPLDddnn|code<<4, src.Expr)
		case listing.OperandMemory:
			if hlLike(dst) {
				return p.imm16(prefix, cpu.OPLDHLmem, src.Expr)
			}
			return p.imm16(cpu.PrefixED, cpu.EDLDddmem|code<<4, src.Expr)
		}
	}
	if dst.Kind == listing.OperandMemory {
		if code, prefix, ok := pair(src); ok {
			if hlLike(src) {
				return p.imm16(prefix, cpu.OPLDmemHL, dst.Expr)
			}
			return p.imm16(cpu.PrefixED, cpu.EDLDmemdd|code<<4, dst.Expr)
		}
	}

	return nil, invalid("ld", ops)
}
