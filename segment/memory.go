// Package segment holds assembled bytes in a model of the Amstrad CPC's
// physical memory and cuts them into address-tagged segments.
package segment

import (
	"errors"
	"fmt"
)

const (
	// BlockSize is the size of one 16K bank block.
	BlockSize = 0x4000
	// PageSize is the size of one 64K page.
	PageSize = 0x10000
	// MaxPages is base memory plus eight 64K extension pages.
	MaxPages = 9
	// DefaultConfig is the Gate Array memory configuration at reset.
	DefaultConfig = 0xC0
)

var (
	// ErrBadConfig is returned for values outside 0xC0-0xFF.
	ErrBadConfig = errors.New("invalid memory configuration")
	// ErrAddressOverflow is returned when output runs past 0xFFFF.
	ErrAddressOverflow = errors.New("address overflow past 0xFFFF")
	// ErrLimitExceeded is returned for output above the LIMIT address.
	ErrLimitExceeded = errors.New("output exceeds limit")
	// ErrProtected is returned for output inside a PROTECT range.
	ErrProtected = errors.New("write to protected memory")
)

// Page returns the extension page selected by a configuration, 1 to 8.
func Page(cfg uint8) int {
	return int((cfg>>3)&7) + 1
}

// Map converts a logical address to a physical address under cfg. Page 0 is
// base memory and page n starts at n*PageSize.
func Map(cfg uint8, addr uint16) int {
	block := int(addr >> 14)
	offset := int(addr & (BlockSize - 1))
	page, pblock := 0, block
	p := Page(cfg)

	switch cfg & 7 {
	case 1:
		if block == 3 {
			page, pblock = p, 3
		}
	case 2:
		page = p
	case 3:
		switch block {
		case 1:
			pblock = 3
		case 3:
			page, pblock = p, 3
		}
	case 4, 5, 6, 7:
		if block == 1 {
			page, pblock = p, int(cfg&3)
		}
	}
	return page*PageSize + pblock*BlockSize + offset
}

// BanksetConfig returns the configuration that maps the whole 64K page n:
// 0 is base memory.
func BanksetConfig(n int) (uint8, error) {
	if n < 0 || n >= MaxPages {
		return 0, fmt.Errorf("%w: bankset %d", ErrBadConfig, n)
	}
	if n == 0 {
		return DefaultConfig, nil
	}
	return uint8(0xC2 + ((n - 1) << 3)), nil
}

// CheckConfig validates a Gate Array memory configuration value.
func CheckConfig(v int64) (uint8, error) {
	if v < 0xC0 || v > 0xFF {
		return 0, fmt.Errorf("%w: 0x%X", ErrBadConfig, v)
	}
	return uint8(v), nil
}
