package assembler

import (
	"github.com/Urethramancer/cpcasm/cpu"
	"github.com/Urethramancer/cpcasm/listing"
)

func assembleMisc(p *pass, mn string, ops []listing.Operand) ([]byte, error) {
	switch mn {
	case "nop":
		return noOperands(mn, ops, cpu.OPNOP)
	case "halt":
		return noOperands(mn, ops, cpu.OPHALT)
	case "di":
		return noOperands(mn, ops, cpu.OPDI)
	case "ei":
		return noOperands(mn, ops, cpu.OPEI)
	case "daa":
		return noOperands(mn, ops, cpu.OPDAA)
	case "cpl":
		// "cpl a" is accepted too
		if len(ops) == 1 && ops[0].Is(cpu.RegA) {
			ops = nil
		}
		return noOperands(mn, ops, cpu.OPCPL)
	case "ccf":
		return noOperands(mn, ops, cpu.OPCCF)
	case "scf":
		return noOperands(mn, ops, cpu.OPSCF)
	case "neg":
		if len(ops) == 1 && ops[0].Is(cpu.RegA) {
			ops = nil
		}
		return noOperands(mn, ops, cpu.PrefixED, cpu.EDNEG)
	case "im":
		return assembleIm(p, ops)
	}
	return nil, invalid(mn, ops)
}

// --- IM ---
func assembleIm(p *pass, ops []listing.Operand) ([]byte, error) {
	if err := arity("im", ops, 1); err != nil {
		return nil, err
	}
	if ops[0].Kind != listing.OperandImmediate {
		return nil, invalid("im", ops)
	}
	mode, err := p.small(ops[0].Expr, 2, "interrupt mode")
	if err != nil {
		return nil, err
	}
	switch mode {
	case 1:
		return []byte{cpu.PrefixED, cpu.EDIM1}, nil
	case 2:
		return []byte{cpu.PrefixED, cpu.EDIM2}, nil
	}
	return []byte{cpu.PrefixED, cpu.EDIM0}, nil
}
