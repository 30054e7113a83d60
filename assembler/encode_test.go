package assembler_test

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/Urethramancer/cpcasm/assembler"
	"github.com/Urethramancer/cpcasm/cpu"
	"github.com/Urethramancer/cpcasm/expr"
	"github.com/Urethramancer/cpcasm/listing"
)

// Operand shorthands.
var (
	r   = listing.Reg
	cc  = listing.Cond
	ind = listing.Ind
)

func n(v int64) listing.Operand                   { return listing.Imm(expr.Num(v)) }
func mem(v int64) listing.Operand                 { return listing.Mem(expr.Num(v)) }
func idx(x cpu.Register, d int64) listing.Operand { return listing.Idx(x, expr.Num(d)) }
func dollar(off int64) listing.Operand {
	return listing.Imm(expr.Add(expr.Dollar(), expr.Num(off)))
}

func ins(mn string, ops ...listing.Operand) listing.Listing {
	return listing.NewBuilder("test.asm").Instr(mn, ops...).Listing()
}

func code(res *assembler.Result) []byte {
	var out []byte
	for _, s := range res.Segments {
		out = append(out, s.Data...)
	}
	return out
}

// Assembles a listing at 0x1000 and checks against an expected byte sequence (in hex).
func assembleAndMatchHex(t *testing.T, name string, l listing.Listing, expectedHex string) *assembler.Result {
	t.Helper()

	expectedHex = strings.ToLower(strings.Join(strings.Fields(expectedHex), ""))
	expected, err := hex.DecodeString(expectedHex)
	if err != nil {
		t.Fatalf("[%s] invalid expected hex string: %v", name, err)
	}

	res, err := assembler.Assemble(l, 0x1000, assembler.Options{})
	if err != nil {
		t.Fatalf("[%s] failed to assemble:\n%v\nerror: %v", name, l, err)
	}
	got := code(res)
	if len(got) != len(expected) {
		t.Fatalf("[%s] expected %d bytes, got %d\nexpected: % X\ngot:      % X",
			name, len(expected), len(got), expected, got)
	}
	for i := range got {
		if got[i] != expected[i] {
			t.Errorf("[%s] mismatch at byte %d\nexpected: % X\ngot:      % X", name, i, expected, got)
			break
		}
	}
	return res
}

func TestLoadEncodings(t *testing.T) {
	tests := []struct {
		name string
		l    listing.Listing
		hex  string
	}{
		{"LD_A_B", ins("ld", r(cpu.RegA), r(cpu.RegB)), "78"},
		{"LD_B_HLind", ins("ld", r(cpu.RegB), ind(cpu.RegHL)), "46"},
		{"LD_HLind_A", ins("ld", ind(cpu.RegHL), r(cpu.RegA)), "77"},
		{"LD_A_IXd", ins("ld", r(cpu.RegA), idx(cpu.RegIX, 5)), "DD 7E 05"},
		{"LD_IYd_C", ins("ld", idx(cpu.RegIY, -2), r(cpu.RegC)), "FD 71 FE"},
		{"LD_IXd_n", ins("ld", idx(cpu.RegIX, 1), n(0x12)), "DD 36 01 12"},
		{"LD_IX_noDisp", ins("ld", ind(cpu.RegIX), r(cpu.RegH)), "DD 74 00"},
		{"LD_IXH_A", ins("ld", r(cpu.RegIXH), r(cpu.RegA)), "DD 67"},
		{"LD_IYL_n", ins("ld", r(cpu.RegIYL), n(3)), "FD 2E 03"},
		{"LD_A_n", ins("ld", r(cpu.RegA), n(0x42)), "3E 42"},
		{"LD_A_negative", ins("ld", r(cpu.RegA), n(-1)), "3E FF"},
		{"LD_HLind_n", ins("ld", ind(cpu.RegHL), n(0x99)), "36 99"},
		{"LD_HL_nn", ins("ld", r(cpu.RegHL), n(0x1234)), "21 34 12"},
		{"LD_IX_nn", ins("ld", r(cpu.RegIX), n(0x1234)), "DD 21 34 12"},
		{"LD_SP_nn", ins("ld", r(cpu.RegSP), n(0xBFFF)), "31 FF BF"},
		{"LD_HL_mem", ins("ld", r(cpu.RegHL), mem(0x4000)), "2A 00 40"},
		{"LD_IY_mem", ins("ld", r(cpu.RegIY), mem(0x4000)), "FD 2A 00 40"},
		{"LD_SP_mem", ins("ld", r(cpu.RegSP), mem(0x4000)), "ED 7B 00 40"},
		{"LD_mem_HL", ins("ld", mem(0x4000), r(cpu.RegHL)), "22 00 40"},
		{"LD_mem_DE", ins("ld", mem(0x4000), r(cpu.RegDE)), "ED 53 00 40"},
		{"LD_A_mem", ins("ld", r(cpu.RegA), mem(0xC000)), "3A 00 C0"},
		{"LD_mem_A", ins("ld", mem(0xC000), r(cpu.RegA)), "32 00 C0"},
		{"LD_BCind_A", ins("ld", ind(cpu.RegBC), r(cpu.RegA)), "02"},
		{"LD_A_DEind", ins("ld", r(cpu.RegA), ind(cpu.RegDE)), "1A"},
		{"LD_A_I", ins("ld", r(cpu.RegA), r(cpu.RegI)), "ED 57"},
		{"LD_R_A", ins("ld", r(cpu.RegR), r(cpu.RegA)), "ED 4F"},
		{"LD_SP_HL", ins("ld", r(cpu.RegSP), r(cpu.RegHL)), "F9"},
		{"LD_SP_IY", ins("ld", r(cpu.RegSP), r(cpu.RegIY)), "FD F9"},
	}
	for _, tc := range tests {
		assembleAndMatchHex(t, tc.name, tc.l, tc.hex)
	}
}

func TestStackEncodings(t *testing.T) {
	tests := []struct {
		name string
		l    listing.Listing
		hex  string
	}{
		{"PUSH_AF", ins("push", r(cpu.RegAF)), "F5"},
		{"PUSH_BC", ins("push", r(cpu.RegBC)), "C5"},
		{"POP_IX", ins("pop", r(cpu.RegIX)), "DD E1"},
		{"POP_HL", ins("pop", r(cpu.RegHL)), "E1"},
		{"PUSH_AF_BC_IY", ins("push", r(cpu.RegAF), r(cpu.RegBC), r(cpu.RegIY)), "F5 C5 FD E5"},
		{"POP_IY_BC_AF", ins("pop", r(cpu.RegIY), r(cpu.RegBC), r(cpu.RegAF)), "FD E1 C1 F1"},
		{"EX_AF", ins("ex", r(cpu.RegAF), r(cpu.RegAFX)), "08"},
		{"EX_DE_HL", ins("ex", r(cpu.RegDE), r(cpu.RegHL)), "EB"},
		{"EX_SP_HL", ins("ex", ind(cpu.RegSP), r(cpu.RegHL)), "E3"},
		{"EX_SP_IX", ins("ex", ind(cpu.RegSP), r(cpu.RegIX)), "DD E3"},
		{"EXX", ins("exx"), "D9"},
	}
	for _, tc := range tests {
		assembleAndMatchHex(t, tc.name, tc.l, tc.hex)
	}
}

func TestArithmeticEncodings(t *testing.T) {
	tests := []struct {
		name string
		l    listing.Listing
		hex  string
	}{
		{"ADD_A_C", ins("add", r(cpu.RegA), r(cpu.RegC)), "81"},
		{"ADD_n", ins("add", n(0x10)), "C6 10"},
		{"ADC_A_HLind", ins("adc", r(cpu.RegA), ind(cpu.RegHL)), "8E"},
		{"SUB_B", ins("sub", r(cpu.RegB)), "90"},
		{"SBC_A_n", ins("sbc", r(cpu.RegA), n(0xFF)), "DE FF"},
		{"AND_n", ins("and", n(0x0F)), "E6 0F"},
		{"XOR_A", ins("xor", r(cpu.RegA)), "AF"},
		{"OR_IXd", ins("or", idx(cpu.RegIX, 3)), "DD B6 03"},
		{"CP_IYL", ins("cp", r(cpu.RegIYL)), "FD BD"},
		{"CP_A_n", ins("cp", r(cpu.RegA), n(' ')), "FE 20"},
		{"ADD_HL_DE", ins("add", r(cpu.RegHL), r(cpu.RegDE)), "19"},
		{"ADD_IX_SP", ins("add", r(cpu.RegIX), r(cpu.RegSP)), "DD 39"},
		{"ADD_IY_IY", ins("add", r(cpu.RegIY), r(cpu.RegIY)), "FD 29"},
		{"ADC_HL_BC", ins("adc", r(cpu.RegHL), r(cpu.RegBC)), "ED 4A"},
		{"SBC_HL_HL", ins("sbc", r(cpu.RegHL), r(cpu.RegHL)), "ED 62"},
		{"INC_A", ins("inc", r(cpu.RegA)), "3C"},
		{"DEC_HLind", ins("dec", ind(cpu.RegHL)), "35"},
		{"INC_IYd", ins("inc", idx(cpu.RegIY, 0)), "FD 34 00"},
		{"INC_BC", ins("inc", r(cpu.RegBC)), "03"},
		{"DEC_IX", ins("dec", r(cpu.RegIX)), "DD 2B"},
		{"DEC_IXH", ins("dec", r(cpu.RegIXH)), "DD 25"},
	}
	for _, tc := range tests {
		assembleAndMatchHex(t, tc.name, tc.l, tc.hex)
	}
}

func TestBitEncodings(t *testing.T) {
	tests := []struct {
		name string
		l    listing.Listing
		hex  string
	}{
		{"RLCA", ins("rlca"), "07"},
		{"RRA", ins("rra"), "1F"},
		{"RLD", ins("rld"), "ED 6F"},
		{"RLC_B", ins("rlc", r(cpu.RegB)), "CB 00"},
		{"SRL_A", ins("srl", r(cpu.RegA)), "CB 3F"},
		{"SLL_C", ins("sll", r(cpu.RegC)), "CB 31"},
		{"RR_IXd", ins("rr", idx(cpu.RegIX, 2)), "DD CB 02 1E"},
		{"RLC_IXd_B", ins("rlc", idx(cpu.RegIX, 1), r(cpu.RegB)), "DD CB 01 00"},
		{"BIT_7_H", ins("bit", n(7), r(cpu.RegH)), "CB 7C"},
		{"SET_0_HLind", ins("set", n(0), ind(cpu.RegHL)), "CB C6"},
		{"RES_3_IYd", ins("res", n(3), idx(cpu.RegIY, -1)), "FD CB FF 9E"},
		{"BIT_3_IXd", ins("bit", n(3), idx(cpu.RegIX, 2)), "DD CB 02 5E"},
	}
	for _, tc := range tests {
		assembleAndMatchHex(t, tc.name, tc.l, tc.hex)
	}
}

func TestFlowControl_Encodings(t *testing.T) {
	tests := []struct {
		name string
		l    listing.Listing
		hex  string
	}{
		{"JP_nn", ins("jp", n(0x1234)), "C3 34 12"},
		{"JP_NZ", ins("jp", cc(cpu.CondNZ), n(0x8000)), "C2 00 80"},
		{"JP_C", ins("jp", cc(cpu.CondC), n(0x8000)), "DA 00 80"},
		{"JP_M", ins("jp", cc(cpu.CondM), n(0x8000)), "FA 00 80"},
		{"JP_HL", ins("jp", ind(cpu.RegHL)), "E9"},
		{"JP_IX", ins("jp", ind(cpu.RegIX)), "DD E9"},
		{"CALL", ins("call", n(0xBB5A)), "CD 5A BB"},
		{"CALL_Z", ins("call", cc(cpu.CondZ), n(0x100)), "CC 00 01"},
		{"RET", ins("ret"), "C9"},
		{"RET_NC", ins("ret", cc(cpu.CondNC)), "D0"},
		{"RET_PE", ins("ret", cc(cpu.CondPE)), "E8"},
		{"RETI", ins("reti"), "ED 4D"},
		{"RETN", ins("retn"), "ED 45"},
		{"RST_38", ins("rst", n(0x38)), "FF"},
		{"RST_8", ins("rst", n(8)), "CF"},
		{"JR_self", ins("jr", dollar(0)), "18 FE"},
		{"JR_NZ_next", ins("jr", cc(cpu.CondNZ), dollar(2)), "20 00"},
		{"JR_C_back", ins("jr", cc(cpu.CondC), dollar(-126)), "38 80"},
		{"DJNZ_self", ins("djnz", dollar(0)), "10 FE"},
	}
	for _, tc := range tests {
		assembleAndMatchHex(t, tc.name, tc.l, tc.hex)
	}
}

func TestIOAndMiscEncodings(t *testing.T) {
	tests := []struct {
		name string
		l    listing.Listing
		hex  string
	}{
		{"IN_A_n", ins("in", r(cpu.RegA), mem(0xFE)), "DB FE"},
		{"IN_B_C", ins("in", r(cpu.RegB), ind(cpu.RegC)), "ED 40"},
		{"IN_C", ins("in", ind(cpu.RegC)), "ED 70"},
		{"IN_F_C", ins("in", r(cpu.RegF), ind(cpu.RegC)), "ED 70"},
		{"OUT_C_A", ins("out", ind(cpu.RegC), r(cpu.RegA)), "ED 79"},
		{"OUT_n_A", ins("out", mem(0x7F), r(cpu.RegA)), "D3 7F"},
		{"OUT_C_0", ins("out", ind(cpu.RegC), n(0)), "ED 71"},
		{"LDIR", ins("ldir"), "ED B0"},
		{"OTIR", ins("otir"), "ED B3"},
		{"CPDR", ins("cpdr"), "ED B9"},
		{"OUTI", ins("outi"), "ED A3"},
		{"NOP", ins("nop"), "00"},
		{"HALT", ins("halt"), "76"},
		{"DI", ins("di"), "F3"},
		{"EI", ins("ei"), "FB"},
		{"IM1", ins("im", n(1)), "ED 56"},
		{"IM2", ins("im", n(2)), "ED 5E"},
		{"NEG", ins("neg"), "ED 44"},
		{"CPL", ins("cpl"), "2F"},
		{"SCF", ins("scf"), "37"},
		{"CCF", ins("ccf"), "3F"},
		{"DAA", ins("daa"), "27"},
	}
	for _, tc := range tests {
		assembleAndMatchHex(t, tc.name, tc.l, tc.hex)
	}
}

func TestInvalidOperands(t *testing.T) {
	tests := []struct {
		name string
		l    listing.Listing
	}{
		{"LD_HLind_HLind", ins("ld", ind(cpu.RegHL), ind(cpu.RegHL))},
		{"LD_IXH_IXd", ins("ld", r(cpu.RegIXH), idx(cpu.RegIX, 1))},
		{"LD_IXH_IYL", ins("ld", r(cpu.RegIXH), r(cpu.RegIYL))},
		{"LD_H_IXL", ins("ld", r(cpu.RegH), r(cpu.RegIXL))},
		{"LD_BCind_B", ins("ld", ind(cpu.RegBC), r(cpu.RegB))},
		{"LD_one_operand", ins("ld", r(cpu.RegA))},
		{"ADD_IX_HL", ins("add", r(cpu.RegIX), r(cpu.RegHL))},
		{"ADC_IX_BC", ins("adc", r(cpu.RegIX), r(cpu.RegBC))},
		{"JR_PE", ins("jr", cc(cpu.CondPE), dollar(0))},
		{"PUSH_SP", ins("push", r(cpu.RegSP))},
		{"PUSH_none", ins("push")},
		{"POP_HL_SP", ins("pop", r(cpu.RegHL), r(cpu.RegSP))},
		{"EX_BC_DE", ins("ex", r(cpu.RegBC), r(cpu.RegDE))},
		{"BIT_IXH", ins("bit", n(1), r(cpu.RegIXH))},
		{"NOP_operand", ins("nop", r(cpu.RegA))},
	}
	for _, tc := range tests {
		_, err := assembler.Assemble(tc.l, 0x1000, assembler.Options{})
		if !errors.Is(err, assembler.ErrInvalidOperand) {
			t.Errorf("[%s] expected ErrInvalidOperand, got %v", tc.name, err)
		}
	}

	_, err := assembler.Assemble(ins("mov", r(cpu.RegA), r(cpu.RegB)), 0, assembler.Options{})
	if !errors.Is(err, assembler.ErrUnknownInstruction) {
		t.Errorf("expected ErrUnknownInstruction, got %v", err)
	}
}

func TestValueRanges(t *testing.T) {
	tests := []struct {
		name string
		l    listing.Listing
	}{
		{"LD_A_256", ins("ld", r(cpu.RegA), n(256))},
		{"LD_HL_big", ins("ld", r(cpu.RegHL), n(0x10000))},
		{"IX_displacement", ins("ld", r(cpu.RegA), idx(cpu.RegIX, 128))},
		{"JR_far", ins("jr", dollar(200))},
		{"BIT_8", ins("bit", n(8), r(cpu.RegA))},
		{"IM_3", ins("im", n(3))},
		{"RST_3", ins("rst", n(3))},
	}
	for _, tc := range tests {
		_, err := assembler.Assemble(tc.l, 0x1000, assembler.Options{})
		if !errors.Is(err, assembler.ErrValueOutOfRange) {
			t.Errorf("[%s] expected ErrValueOutOfRange, got %v", tc.name, err)
		}
	}
}
