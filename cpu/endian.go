package cpu

import (
	"encoding/binary"
)

// WordsToBytes converts a slice of 16-bit words to a little-endian byte slice,
// the Z80 memory order.
func WordsToBytes(words []uint16) []byte {
	out := make([]byte, len(words)*2)
	for i, w := range words {
		binary.LittleEndian.PutUint16(out[i*2:], w)
	}
	return out
}

// Lo returns the low byte of a 16-bit value.
func Lo(v uint16) byte { return byte(v) }

// Hi returns the high byte of a 16-bit value.
func Hi(v uint16) byte { return byte(v >> 8) }
