package assembler

import (
	"github.com/Urethramancer/cpcasm/cpu"
	"github.com/Urethramancer/cpcasm/listing"
)

var aluOps = map[string]uint8{
	"add": cpu.ALUAdd, "adc": cpu.ALUAdc, "sub": cpu.ALUSub, "sbc": cpu.ALUSbc,
	"and": cpu.ALUAnd, "xor": cpu.ALUXor, "or": cpu.ALUOr, "cp": cpu.ALUCp,
}

// assembleMath handles the arithmetic group: 8-bit ALU forms, 16-bit
// add/adc/sbc and increments.
func assembleMath(p *pass, mn string, ops []listing.Operand) ([]byte, error) {
	switch mn {
	case "inc", "dec":
		return assembleIncDec(p, mn, ops)
	}

	if len(ops) == 2 && hlLike(ops[0]) {
		return assembleMath16(mn, ops)
	}
	return assembleALU(p, mn, ops)
}

// assembleALU encodes "op a,x" or the short "op x" for the eight ALU operations.
func assembleALU(p *pass, mn string, ops []listing.Operand) ([]byte, error) {
	op := aluOps[mn]
	src := ops
	switch len(ops) {
	case 2:
		if !ops[0].Is(cpu.RegA) {
			return nil, invalid(mn, ops)
		}
		src = ops[1:]
	case 1:
	default:
		return nil, invalid(mn, ops)
	}

	if l, ok := reg8(src[0]); ok {
		return p.encode(l, cpu.OPALUr|op<<3|l.code)
	}
	if src[0].Kind == listing.OperandImmediate {
		n, err := p.byte(src[0].Expr)
		if err != nil {
			return nil, err
		}
		return []byte{cpu.OPALUn | op<<3, n}, nil
	}
	return nil, invalid(mn, ops)
}

// assembleMath16 encodes add hl/ix/iy,ss and adc/sbc hl,ss.
func assembleMath16(mn string, ops []listing.Operand) ([]byte, error) {
	dst, src := ops[0], ops[1]
	code, prefix, ok := pair(src)
	if !ok {
		return nil, invalid(mn, ops)
	}
	// ix and iy only pair with themselves, never with hl or each other.
	if hlLike(src) && src.Reg != dst.Reg {
		return nil, invalid(mn, ops)
	}

	switch mn {
	case "add":
		return withPrefix(dst.Reg.Prefix(), cpu.OPADDHLss|code<<4), nil
	case "adc", "sbc":
		if !dst.Is(cpu.RegHL) || prefix != 0 {
			return nil, invalid(mn, ops)
		}
		op := byte(cpu.EDADCHLss)
		if mn == "sbc" {
			op = cpu.EDSBCHLss
		}
		return []byte{cpu.PrefixED, op | code<<4}, nil
	}
	return nil, invalid(mn, ops)
}

func assembleIncDec(p *pass, mn string, ops []listing.Operand) ([]byte, error) {
	if err := arity(mn, ops, 1); err != nil {
		return nil, err
	}
	if l, ok := reg8(ops[0]); ok {
		op := byte(cpu.OPINCr)
		if mn == "dec" {
			op = cpu.OPDECr
		}
		return p.encode(l, op|l.code<<3)
	}
	if code, prefix, ok := pair(ops[0]); ok {
		op := byte(cpu.OPINCss)
		if mn == "dec" {
			op = cpu.OPDECss
		}
		return withPrefix(prefix, op|code<<4), nil
	}
	return nil, invalid(mn, ops)
}
