package assembler

import (
	"github.com/Urethramancer/cpcasm/cpu"
	"github.com/Urethramancer/cpcasm/listing"
)

var blockOps = map[string]byte{
	"ldi": cpu.EDLDI, "ldir": cpu.EDLDIR, "ldd": cpu.EDLDD, "lddr": cpu.EDLDDR,
	"cpi": cpu.EDCPI, "cpir": cpu.EDCPIR, "cpd": cpu.EDCPD, "cpdr": cpu.EDCPDR,
	"ini": cpu.EDINI, "inir": cpu.EDINIR, "ind": cpu.EDIND, "indr": cpu.EDINDR,
	"outi": cpu.EDOUTI, "otir": cpu.EDOTIR, "outd": cpu.EDOUTD, "otdr": cpu.EDOTDR,
}

// assembleBlock handles the ED page block transfer, search and I/O instructions.
func assembleBlock(mn string, ops []listing.Operand) ([]byte, error) {
	return noOperands(mn, ops, cpu.PrefixED, blockOps[mn])
}
