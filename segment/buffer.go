package segment

import (
	"fmt"
	"sort"
)

// Segment is a contiguous run of output bytes.
type Segment struct {
	// Page is the 64K page holding the bytes: 0 is base memory.
	Page int
	// Start is the logical address of the first byte.
	Start uint16
	// Physical is the address of the first byte in the physical image.
	Physical int
	// Config is the memory configuration active when the run began.
	Config uint8
	Data   []byte
}

// End returns the logical address after the last byte.
func (s Segment) End() int {
	return int(s.Start) + len(s.Data)
}

func (s Segment) String() string {
	return fmt.Sprintf("page %d &%04X-&%04X (%d bytes)", s.Page, s.Start, s.End()-1, len(s.Data))
}

// Overlap reports physical bytes written more than once in a pass.
type Overlap struct {
	Physical int
	Logical  uint16
	Count    int
}

func (o Overlap) String() string {
	return fmt.Sprintf("%d bytes at &%04X (physical &%05X) written twice", o.Count, o.Logical, o.Physical)
}

type run struct {
	cfg      uint8
	logical  int
	physical int
	n        int
}

// Buffer receives output for one pass. The physical image is authoritative:
// when two writes hit the same byte the last one wins.
type Buffer struct {
	pages    [MaxPages][]byte
	written  [MaxPages][]bool
	runs     []run
	overlaps []Overlap
	cfg      uint8
	addr     int
	// limit is the highest address writes may reach; top the highest written.
	limit     int
	top       int
	protected []span
}

type span struct{ start, stop int }

// NewBuffer returns an empty buffer in the default configuration.
func NewBuffer() *Buffer {
	b := &Buffer{}
	b.Reset()
	return b
}

// Reset discards everything written.
func (b *Buffer) Reset() {
	for i := range b.pages {
		b.pages[i] = nil
		b.written[i] = nil
	}
	b.runs = b.runs[:0]
	b.overlaps = b.overlaps[:0]
	b.cfg = DefaultConfig
	b.addr = 0
	b.limit = 0xFFFF
	b.top = -1
	b.protected = b.protected[:0]
}

// SetLimit stops writes above addr. It fails when earlier output already
// went past it.
func (b *Buffer) SetLimit(addr uint16) error {
	if b.top > int(addr) {
		return fmt.Errorf("%w: &%04X already written, limit &%04X", ErrLimitExceeded, b.top, addr)
	}
	b.limit = int(addr)
	return nil
}

// Protect forbids writes to start through stop from now on.
func (b *Buffer) Protect(start, stop uint16) {
	b.protected = append(b.protected, span{int(start), int(stop)})
}

// check fails when writing n bytes at the output address would cross the
// limit or touch a protected range.
func (b *Buffer) check(n int) error {
	first, last := b.addr, b.addr+n-1
	if last > b.limit && last <= 0xFFFF {
		return fmt.Errorf("%w: &%04X above &%04X", ErrLimitExceeded, last, b.limit)
	}
	for _, p := range b.protected {
		if first <= p.stop && last >= p.start {
			return fmt.Errorf("%w: &%04X-&%04X", ErrProtected, p.start, p.stop)
		}
	}
	return nil
}

// SetConfig switches the memory configuration.
func (b *Buffer) SetConfig(cfg uint8) error {
	if cfg < 0xC0 {
		return fmt.Errorf("%w: 0x%02X", ErrBadConfig, cfg)
	}
	b.cfg = cfg
	return nil
}

// Config returns the active memory configuration.
func (b *Buffer) Config() uint8 {
	return b.cfg
}

// Seek sets the logical output address.
func (b *Buffer) Seek(addr uint16) {
	b.addr = int(addr)
}

// Address returns the logical output address. It exceeds 0xFFFF after a
// write that reached the top of memory.
func (b *Buffer) Address() int {
	return b.addr
}

// Skip advances the output address without writing.
func (b *Buffer) Skip(n int) {
	b.addr += n
}

// Write stores bytes at the output address and advances it. Bytes that
// would break a limit or protection are not written, but the address still
// advances past them.
func (b *Buffer) Write(data ...byte) error {
	if err := b.check(len(data)); err != nil {
		b.Skip(len(data))
		return err
	}
	for _, v := range data {
		if b.addr > 0xFFFF {
			return ErrAddressOverflow
		}
		phys := Map(b.cfg, uint16(b.addr))
		page, off := phys/PageSize, phys%PageSize
		if b.pages[page] == nil {
			b.pages[page] = make([]byte, PageSize)
			b.written[page] = make([]bool, PageSize)
		}
		if b.written[page][off] {
			b.overlap(phys)
		}
		b.pages[page][off] = v
		b.written[page][off] = true
		b.top = max(b.top, b.addr)

		if n := len(b.runs); n > 0 {
			r := &b.runs[n-1]
			if r.logical+r.n == b.addr && r.physical+r.n == phys {
				r.n++
				b.addr++
				continue
			}
		}
		b.runs = append(b.runs, run{cfg: b.cfg, logical: b.addr, physical: phys, n: 1})
		b.addr++
	}
	return nil
}

func (b *Buffer) overlap(phys int) {
	if n := len(b.overlaps); n > 0 {
		o := &b.overlaps[n-1]
		if o.Physical+o.Count == phys {
			o.Count++
			return
		}
	}
	b.overlaps = append(b.overlaps, Overlap{Physical: phys, Logical: uint16(b.addr), Count: 1})
}

// Overlaps returns the regions written more than once.
func (b *Buffer) Overlaps() []Overlap {
	return b.overlaps
}

// Size returns the number of distinct bytes written.
func (b *Buffer) Size() int {
	n := 0
	for _, w := range b.written {
		for _, set := range w {
			if set {
				n++
			}
		}
	}
	return n
}

// PageBytes returns a copy of a 64K page, or nil if nothing was written to it.
func (b *Buffer) PageBytes(page int) []byte {
	if page < 0 || page >= MaxPages || b.pages[page] == nil {
		return nil
	}
	return append([]byte(nil), b.pages[page]...)
}

// Segments returns the written regions ordered by page and start address.
// Runs that touch or overlap in both logical and physical space are merged.
func (b *Buffer) Segments() []Segment {
	runs := append([]run(nil), b.runs...)
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].physical < runs[j].physical
	})

	var merged []run
	for _, r := range runs {
		if n := len(merged); n > 0 {
			m := &merged[n-1]
			if m.physical-m.logical == r.physical-r.logical && r.physical <= m.physical+m.n {
				if end := r.physical + r.n; end > m.physical+m.n {
					m.n = end - m.physical
				}
				continue
			}
		}
		merged = append(merged, r)
	}

	segs := make([]Segment, 0, len(merged))
	for _, r := range merged {
		page, off := r.physical/PageSize, r.physical%PageSize
		segs = append(segs, Segment{
			Page:     page,
			Start:    uint16(r.logical),
			Physical: r.physical,
			Config:   r.cfg,
			Data:     append([]byte(nil), b.pages[page][off:off+r.n]...),
		})
	}
	return segs
}
