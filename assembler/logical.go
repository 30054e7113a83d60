package assembler

import "github.com/Urethramancer/cpcasm/listing"

// assembleLogical handles AND, OR, XOR and CP. Each takes "x" or "a,x".
func assembleLogical(p *pass, mn string, ops []listing.Operand) ([]byte, error) {
	if len(ops) == 0 {
		return nil, invalid(mn, ops)
	}
	return assembleALU(p, mn, ops)
}
