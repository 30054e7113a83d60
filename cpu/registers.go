package cpu

import "strings"

// Register identifies a Z80 register or register pair.
type Register int

const (
	// RegNone is the zero value.
	RegNone Register = iota

	// 8-bit registers
	RegA
	RegB
	RegC
	RegD
	RegE
	RegH
	RegL
	RegI
	RegR
	RegF // only valid in "in f,(c)"

	// Undocumented index halves
	RegIXH
	RegIXL
	RegIYH
	RegIYL

	// 16-bit registers
	RegAF
	RegAFX // AF'
	RegBC
	RegDE
	RegHL
	RegSP
	RegIX
	RegIY
)

var registerNames = map[string]Register{
	"a": RegA, "b": RegB, "c": RegC, "d": RegD, "e": RegE, "h": RegH, "l": RegL,
	"i": RegI, "r": RegR, "f": RegF,
	"ixh": RegIXH, "ixl": RegIXL, "iyh": RegIYH, "iyl": RegIYL,
	"hx": RegIXH, "lx": RegIXL, "hy": RegIYH, "ly": RegIYL,
	"xh": RegIXH, "xl": RegIXL, "yh": RegIYH, "yl": RegIYL,
	"af": RegAF, "af'": RegAFX, "bc": RegBC, "de": RegDE, "hl": RegHL,
	"sp": RegSP, "ix": RegIX, "iy": RegIY,
}

// ParseRegister returns the register with the given name.
func ParseRegister(name string) (Register, bool) {
	r, ok := registerNames[strings.ToLower(strings.TrimSpace(name))]
	return r, ok
}

// String returns the lower-case assembler name of the register.
func (r Register) String() string {
	switch r {
	case RegA:
		return "a"
	case RegB:
		return "b"
	case RegC:
		return "c"
	case RegD:
		return "d"
	case RegE:
		return "e"
	case RegH:
		return "h"
	case RegL:
		return "l"
	case RegI:
		return "i"
	case RegR:
		return "r"
	case RegF:
		return "f"
	case RegIXH:
		return "ixh"
	case RegIXL:
		return "ixl"
	case RegIYH:
		return "iyh"
	case RegIYL:
		return "iyl"
	case RegAF:
		return "af"
	case RegAFX:
		return "af'"
	case RegBC:
		return "bc"
	case RegDE:
		return "de"
	case RegHL:
		return "hl"
	case RegSP:
		return "sp"
	case RegIX:
		return "ix"
	case RegIY:
		return "iy"
	}
	return "?"
}

// Is8Bit reports whether r is one of the main 8-bit registers (b,c,d,e,h,l,a).
func (r Register) Is8Bit() bool {
	switch r {
	case RegA, RegB, RegC, RegD, RegE, RegH, RegL:
		return true
	}
	return false
}

// IsIndexHalf reports whether r is one of ixh, ixl, iyh or iyl.
func (r Register) IsIndexHalf() bool {
	return r >= RegIXH && r <= RegIYL
}

// IsIndex reports whether r is ix or iy.
func (r Register) IsIndex() bool {
	return r == RegIX || r == RegIY
}

// Is16Bit reports whether r is a register pair.
func (r Register) Is16Bit() bool {
	return r >= RegAF && r <= RegIY
}

// Code returns the 3-bit r field for an 8-bit register.
// Index halves share the codes of h and l and require a prefix.
func (r Register) Code() (uint8, bool) {
	switch r {
	case RegB:
		return 0, true
	case RegC:
		return 1, true
	case RegD:
		return 2, true
	case RegE:
		return 3, true
	case RegH, RegIXH, RegIYH:
		return 4, true
	case RegL, RegIXL, RegIYL:
		return 5, true
	case RegA:
		return 7, true
	}
	return 0, false
}

// PairCode returns the 2-bit ss field (bc=0, de=1, hl=2, sp=3).
// ix and iy share the hl code and require a prefix.
func (r Register) PairCode() (uint8, bool) {
	switch r {
	case RegBC:
		return 0, true
	case RegDE:
		return 1, true
	case RegHL, RegIX, RegIY:
		return 2, true
	case RegSP:
		return 3, true
	}
	return 0, false
}

// StackCode returns the 2-bit qq field used by push and pop (af=3).
func (r Register) StackCode() (uint8, bool) {
	if r == RegAF {
		return 3, true
	}
	if r == RegSP {
		return 0, false
	}
	return r.PairCode()
}

// Prefix returns the index prefix byte implied by the register, or 0.
func (r Register) Prefix() uint8 {
	switch r {
	case RegIX, RegIXH, RegIXL:
		return PrefixIX
	case RegIY, RegIYH, RegIYL:
		return PrefixIY
	}
	return 0
}

// Condition is a Z80 flag condition.
type Condition int

const (
	// CondNone is the zero value.
	CondNone Condition = iota
	CondNZ
	CondZ
	CondNC
	CondC
	CondPO
	CondPE
	CondP
	CondM
)

var conditionNames = map[string]Condition{
	"nz": CondNZ, "z": CondZ, "nc": CondNC, "c": CondC,
	"po": CondPO, "pe": CondPE, "p": CondP, "m": CondM,
}

// ParseCondition returns the condition with the given name.
func ParseCondition(name string) (Condition, bool) {
	c, ok := conditionNames[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// Code returns the 3-bit cc field.
func (c Condition) Code() uint8 {
	return uint8(c - CondNZ)
}

// Relative reports whether jr accepts the condition.
func (c Condition) Relative() bool {
	return c >= CondNZ && c <= CondC
}

func (c Condition) String() string {
	for k, v := range conditionNames {
		if v == c {
			return k
		}
	}
	return "?"
}
