package assembler

import (
	"github.com/Urethramancer/cpcasm/cpu"
	"github.com/Urethramancer/cpcasm/listing"
)

var accumulatorRotates = map[string]byte{
	"rlca": cpu.OPRLCA, "rla": cpu.OPRLA, "rrca": cpu.OPRRCA, "rra": cpu.OPRRA,
	"rld": cpu.EDRLD, "rrd": cpu.EDRRD,
}

var shifts = map[string]uint8{
	"rlc": cpu.CBRlc, "rrc": cpu.CBRrc, "rl": cpu.CBRl, "rr": cpu.CBRr,
	"sla": cpu.CBSla, "sra": cpu.CBSra, "sll": cpu.CBSll, "sl1": cpu.CBSll, "srl": cpu.CBSrl,
}

// assembleBits handles rotates, shifts and the BIT/SET/RES group.
func assembleBits(p *pass, mn string, ops []listing.Operand) ([]byte, error) {
	if op, ok := accumulatorRotates[mn]; ok {
		if err := arity(mn, ops, 0); err != nil {
			return nil, err
		}
		if mn == "rld" || mn == "rrd" {
			return []byte{cpu.PrefixED, op}, nil
		}
		return []byte{op}, nil
	}

	if op, ok := shifts[mn]; ok {
		if len(ops) < 1 || len(ops) > 2 {
			return nil, invalid(mn, ops)
		}
		return p.cb(mn, ops, op<<3, ops[0], ops[1:])
	}

	// bit, set, res
	if len(ops) < 2 || len(ops) > 3 {
		return nil, invalid(mn, ops)
	}
	if ops[0].Kind != listing.OperandImmediate {
		return nil, invalid(mn, ops)
	}
	n, err := p.small(ops[0].Expr, 7, "bit number")
	if err != nil {
		return nil, err
	}
	base := byte(cpu.CBBit)
	switch mn {
	case "set":
		base = cpu.CBSet
	case "res":
		base = cpu.CBRes
	}
	if mn == "bit" && len(ops) == 3 {
		return nil, invalid(mn, ops)
	}
	return p.cb(mn, ops, base|byte(n&7)<<3, ops[1], ops[2:])
}

// cb encodes a CB page instruction on target. With an index register the
// layout is prefix CB d op; the undocumented form copies the result to a
// register named by extra.
func (p *pass) cb(mn string, ops []listing.Operand, op byte, target listing.Operand, extra []listing.Operand) ([]byte, error) {
	l, ok := reg8(target)
	if !ok || (l.prefix != 0 && l.disp == nil) {
		return nil, invalid(mn, ops)
	}
	code := l.code
	if len(extra) == 1 {
		r, ok := reg8(extra[0])
		if !ok || l.disp == nil || r.prefix != 0 || r.memory() {
			return nil, invalid(mn, ops)
		}
		code = r.code
	}
	if l.disp == nil {
		return []byte{cpu.PrefixCB, op | code}, nil
	}
	d, err := p.disp(l.disp)
	if err != nil {
		return nil, err
	}
	return []byte{l.prefix, cpu.PrefixCB, d, op | code}, nil
}
