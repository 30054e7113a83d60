package assembler

import (
	"fmt"

	"github.com/Urethramancer/cpcasm/expr"
)

// number evaluates e to an integer.
func (p *pass) number(e expr.Expr) (int64, error) {
	v, err := p.eval(e)
	if err != nil {
		return 0, err
	}
	return v.AsInt()
}

// known evaluates a layout value. ok is false while the value depends on
// undefined symbols; the caller then leaves the layout unchanged.
func (p *pass) known(e expr.Expr) (v int64, ok bool, err error) {
	p.provisional = false
	v, err = p.number(e)
	if err != nil || p.provisional {
		return 0, false, err
	}
	return v, true, nil
}

// check enforces a range in the final pass. Earlier passes may see
// provisional values, so they never fail here.
func (p *pass) check(v, lo, hi int64, what string) error {
	if p.final && (v < lo || v > hi) {
		return fmt.Errorf("%w: %s %d (0x%X) not in %d..%d", ErrValueOutOfRange, what, v, v, lo, hi)
	}
	return nil
}

// byte evaluates an 8-bit immediate. Signed and unsigned values are both accepted.
func (p *pass) byte(e expr.Expr) (byte, error) {
	v, err := p.number(e)
	if err != nil {
		return 0, err
	}
	if err := p.check(v, -128, 255, "byte"); err != nil {
		return 0, err
	}
	return byte(v), nil
}

// word evaluates a 16-bit immediate or address.
func (p *pass) word(e expr.Expr) (uint16, error) {
	v, err := p.number(e)
	if err != nil {
		return 0, err
	}
	if err := p.check(v, -32768, 65535, "word"); err != nil {
		return 0, err
	}
	return uint16(v), nil
}

// disp evaluates an index displacement.
func (p *pass) disp(e expr.Expr) (byte, error) {
	v, err := p.number(e)
	if err != nil {
		return 0, err
	}
	if err := p.check(v, -128, 127, "displacement"); err != nil {
		return 0, err
	}
	return byte(v), nil
}

// relative evaluates a jump target as an offset from the end of a two byte
// instruction.
func (p *pass) relative(e expr.Expr) (byte, error) {
	target, err := p.number(e)
	if err != nil {
		return 0, err
	}
	off := target - int64(p.pc+2)
	if err := p.check(off, -128, 127, "relative jump"); err != nil {
		return 0, err
	}
	return byte(off), nil
}

// small evaluates a field such as a bit number or interrupt mode.
func (p *pass) small(e expr.Expr, max int64, what string) (int64, error) {
	v, err := p.number(e)
	if err != nil {
		return 0, err
	}
	return v, p.check(v, 0, max, what)
}
