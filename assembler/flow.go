package assembler

import (
	"fmt"

	"github.com/Urethramancer/cpcasm/cpu"
	"github.com/Urethramancer/cpcasm/listing"
)

// assembleFlow dispatches to the correct flow-control encoder.
func assembleFlow(p *pass, mn string, ops []listing.Operand) ([]byte, error) {
	switch mn {
	case "jp":
		return assembleJp(p, ops)
	case "jr", "djnz":
		return assembleRelative(p, mn, ops)
	case "call":
		return assembleCall(p, ops)
	case "ret":
		return assembleRet(ops)
	case "reti":
		return noOperands(mn, ops, cpu.PrefixED, cpu.EDRETI)
	case "retn":
		return noOperands(mn, ops, cpu.PrefixED, cpu.EDRETN)
	case "rst":
		return assembleRst(p, ops)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownInstruction, mn)
}

// JP

func assembleJp(p *pass, ops []listing.Operand) ([]byte, error) {
	switch len(ops) {
	case 1:
		t := ops[0]
		switch {
		case t.IsIndirect(cpu.RegHL), t.Is(cpu.RegHL):
			return []byte{cpu.OPJPHL}, nil
		case (t.Kind == listing.OperandIndirect || t.Kind == listing.OperandRegister) && t.Reg.IsIndex():
			return []byte{t.Reg.Prefix(), cpu.OPJPHL}, nil
		case t.Kind == listing.OperandImmediate:
			return p.imm16(0, cpu.OPJP, t.Expr)
		}
	case 2:
		cc, ok := ops[0].Condition()
		if ok && ops[1].Kind == listing.OperandImmediate {
			return p.imm16(0, cpu.OPJPcc|cc.Code()<<3, ops[1].Expr)
		}
	}
	return nil, invalid("jp", ops)
}

// JR / DJNZ

func assembleRelative(p *pass, mn string, ops []listing.Operand) ([]byte, error) {
	var op byte
	var target listing.Operand
	switch {
	case mn == "djnz" && len(ops) == 1:
		op, target = cpu.OPDJNZ, ops[0]
	case mn == "jr" && len(ops) == 1:
		op, target = cpu.OPJR, ops[0]
	case mn == "jr" && len(ops) == 2:
		cc, ok := ops[0].Condition()
		if !ok || !cc.Relative() {
			return nil, invalid(mn, ops)
		}
		op, target = cpu.OPJRcc|cc.Code()<<3, ops[1]
	default:
		return nil, invalid(mn, ops)
	}
	if target.Kind != listing.OperandImmediate {
		return nil, invalid(mn, ops)
	}
	e, err := p.relative(target.Expr)
	if err != nil {
		return nil, err
	}
	return []byte{op, e}, nil
}

// CALL

func assembleCall(p *pass, ops []listing.Operand) ([]byte, error) {
	switch len(ops) {
	case 1:
		if ops[0].Kind == listing.OperandImmediate {
			return p.imm16(0, cpu.OPCALL, ops[0].Expr)
		}
	case 2:
		cc, ok := ops[0].Condition()
		if ok && ops[1].Kind == listing.OperandImmediate {
			return p.imm16(0, cpu.OPCALLcc|cc.Code()<<3, ops[1].Expr)
		}
	}
	return nil, invalid("call", ops)
}

// Returns

func assembleRet(ops []listing.Operand) ([]byte, error) {
	switch len(ops) {
	case 0:
		return []byte{cpu.OPRET}, nil
	case 1:
		if cc, ok := ops[0].Condition(); ok {
			return []byte{cpu.OPRETcc | cc.Code()<<3}, nil
		}
	}
	return nil, invalid("ret", ops)
}

// RST accepts the restart address: 0, 8, 0x10 ... 0x38.
func assembleRst(p *pass, ops []listing.Operand) ([]byte, error) {
	if err := arity("rst", ops, 1); err != nil {
		return nil, err
	}
	if ops[0].Kind != listing.OperandImmediate {
		return nil, invalid("rst", ops)
	}
	v, err := p.small(ops[0].Expr, 0x38, "restart address")
	if err != nil {
		return nil, err
	}
	if p.final && v&7 != 0 {
		return nil, fmt.Errorf("%w: restart address 0x%X", ErrValueOutOfRange, v)
	}
	return []byte{cpu.OPRST | byte(v&0x38)}, nil
}

func noOperands(mn string, ops []listing.Operand, code ...byte) ([]byte, error) {
	if err := arity(mn, ops, 0); err != nil {
		return nil, err
	}
	return code, nil
}
