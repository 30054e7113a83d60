package assembler

import (
	"fmt"
	"strings"

	"github.com/Urethramancer/cpcasm/cpu"
	"github.com/Urethramancer/cpcasm/expr"
	"github.com/Urethramancer/cpcasm/listing"
	"github.com/Urethramancer/cpcasm/segment"
)

// data emits DB, DW, DS, STR, DZ and included binaries.
func (p *pass) data(d listing.Data) error {
	switch d.Kind {
	case listing.DataRaw:
		return p.emit(d.Bytes...)

	case listing.DataSpace:
		count, ok, err := p.known(d.Count)
		if err != nil || !ok {
			return err
		}
		if count < 0 {
			if p.final {
				return fmt.Errorf("%w: ds count %d", ErrValueOutOfRange, count)
			}
			count = 0
		}
		fill, err := p.fill(d.Fill)
		if err != nil {
			return err
		}
		if count > 0x10000 {
			if p.final {
				return fmt.Errorf("%w: ds count %d", ErrAddressOverflow, count)
			}
			count = 0x10000
		}
		buf := make([]byte, count)
		for i := range buf {
			buf[i] = fill
		}
		return p.emit(buf...)

	case listing.DataWords:
		words := make([]uint16, len(d.Values))
		for i, e := range d.Values {
			w, err := p.word(e)
			if err != nil {
				return err
			}
			words[i] = w
		}
		return p.emit(cpu.WordsToBytes(words)...)
	}

	var out []byte
	for _, e := range d.Values {
		b, err := p.bytes(e)
		if err != nil {
			return err
		}
		out = append(out, b...)
	}
	switch d.Kind {
	case listing.DataString:
		if len(out) == 0 {
			return fmt.Errorf("%w: str needs at least one character", ErrInvalidOperand)
		}
		out[len(out)-1] |= 0x80
	case listing.DataZero:
		out = append(out, 0)
	}
	return p.emit(out...)
}

// bytes evaluates a DB-style value: strings give their characters.
func (p *pass) bytes(e expr.Expr) ([]byte, error) {
	v, err := p.eval(e)
	if err != nil {
		return nil, err
	}
	if v.Kind == expr.KindString {
		return []byte(v.Str), nil
	}
	n, err := v.AsInt()
	if err != nil {
		return nil, err
	}
	if err := p.check(n, -128, 255, "byte"); err != nil {
		return nil, err
	}
	return []byte{byte(n)}, nil
}

func (p *pass) fill(e expr.Expr) (byte, error) {
	if e == nil {
		return 0, nil
	}
	return p.byte(e)
}

// org moves the code address and, with a second operand, the output address.
// An address that isn't known yet leaves both unchanged.
func (p *pass) org(o listing.Org) error {
	addr, ok, err := p.address(o.Address)
	if err != nil || !ok {
		return err
	}
	out := addr
	if o.Output != nil {
		if out, ok, err = p.address(o.Output); err != nil || !ok {
			return err
		}
	}
	p.pc = int(addr)
	p.a.buf.Seek(out)
	return nil
}

func (p *pass) address(e expr.Expr) (uint16, bool, error) {
	v, ok, err := p.known(e)
	if err != nil || !ok {
		return 0, ok, err
	}
	if err := p.check(v, 0, 0xFFFF, "address"); err != nil {
		return 0, false, err
	}
	return uint16(v), true, nil
}

// align pads with fill bytes up to a multiple of the boundary.
func (p *pass) align(a listing.Align) error {
	boundary, ok, err := p.known(a.Boundary)
	if err != nil || !ok {
		return err
	}
	if boundary <= 0 || boundary > 0x10000 {
		if p.final {
			return fmt.Errorf("%w: align %d", ErrValueOutOfRange, boundary)
		}
		return nil
	}
	if p.final && boundary&(boundary-1) != 0 {
		p.a.warn(p.tok.Loc(), "align boundary %d is not a power of two", boundary)
	}
	fill, err := p.fill(a.Fill)
	if err != nil {
		return err
	}
	pad := (boundary - int64(p.pc)%boundary) % boundary
	buf := make([]byte, pad)
	for i := range buf {
		buf[i] = fill
	}
	return p.emit(buf...)
}

func (p *pass) bank(b listing.Bank) error {
	v, ok, err := p.known(b.Config)
	if err != nil || !ok {
		return err
	}
	cfg, err := segment.CheckConfig(v)
	if err != nil {
		if p.final {
			return err
		}
		return nil
	}
	return p.a.buf.SetConfig(cfg)
}

func (p *pass) bankset(b listing.Bankset) error {
	v, ok, err := p.known(b.Page)
	if err != nil || !ok {
		return err
	}
	cfg, err := segment.BanksetConfig(int(v))
	if err != nil {
		if p.final {
			return err
		}
		return nil
	}
	return p.a.buf.SetConfig(cfg)
}

func (p *pass) assert(a listing.Assert) error {
	if !p.final {
		return nil
	}
	v, err := p.eval(a.Cond)
	if err != nil {
		return err
	}
	if v.Bool() {
		return nil
	}
	if a.Message != "" {
		return fmt.Errorf("%w: %s", ErrAssertion, a.Message)
	}
	return fmt.Errorf("%w: %s", ErrAssertion, a.Cond)
}

func (p *pass) print(pr listing.Print) error {
	if !p.final {
		return nil
	}
	parts := make([]string, len(pr.Values))
	for i, e := range pr.Values {
		v, err := p.eval(e)
		if err != nil {
			return err
		}
		if v.Kind == expr.KindInt {
			parts[i] = fmt.Sprintf("%d (&%X)", v.Int, v.Int)
		} else {
			parts[i] = v.String()
		}
	}
	msg := strings.Join(parts, " ")
	p.a.prints = append(p.a.prints, msg)
	p.a.logf("%s: print %s", p.tok.Loc(), msg)
	return nil
}

func (p *pass) run(r listing.Run) error {
	v, ok, err := p.address(r.Address)
	if err != nil || !ok {
		return err
	}
	p.a.entry, p.a.hasEntry = int64(v), true
	return nil
}

// undef removes a symbol for the rest of the pass. A name that was never
// defined is only an error once the passes are done.
func (p *pass) undef(u listing.Undef) error {
	err := p.a.tab.Remove(u.Name, p.scope)
	if err != nil && !p.final {
		return nil
	}
	return err
}

func (p *pass) fail(f listing.Fail) error {
	if !p.final {
		return nil
	}
	parts := make([]string, len(f.Values))
	for i, e := range f.Values {
		v, err := p.eval(e)
		if err != nil {
			return err
		}
		parts[i] = v.String()
		if v.Kind == expr.KindString {
			parts[i] = v.Str
		}
	}
	return fmt.Errorf("%w: %s", ErrFail, strings.Join(parts, " "))
}

func (p *pass) limit(l listing.Limit) error {
	v, ok, err := p.known(l.Address)
	if err != nil || !ok {
		return err
	}
	if v < 1 || v > 0xFFFF {
		if p.final {
			return fmt.Errorf("%w: limit %d", ErrValueOutOfRange, v)
		}
		return nil
	}
	if err := p.a.buf.SetLimit(uint16(v)); err != nil && p.final {
		return err
	}
	return nil
}

func (p *pass) protect(pr listing.Protect) error {
	start, ok, err := p.address(pr.Start)
	if err != nil || !ok {
		return err
	}
	stop, ok, err := p.address(pr.Stop)
	if err != nil || !ok {
		return err
	}
	if start > stop {
		if p.final {
			return fmt.Errorf("%w: protect &%04X-&%04X", ErrValueOutOfRange, start, stop)
		}
		return nil
	}
	p.a.buf.Protect(start, stop)
	return nil
}
