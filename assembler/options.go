package assembler

import (
	"io"

	"github.com/Urethramancer/cpcasm/expand"
	"github.com/Urethramancer/cpcasm/expr"
	"github.com/Urethramancer/cpcasm/symbols"
)

// DefaultMaxPasses is the pass ceiling when Options.MaxPasses is zero.
const DefaultMaxPasses = 10

// Options configure an Assembler.
type Options struct {
	// MaxPasses bounds the convergence passes. The final emission pass is extra.
	MaxPasses int
	// StrictOverlap turns overlapping output into an error.
	StrictOverlap bool
	CaseSensitive bool
	// Duplicates decides conflicting global definitions from macro expansions.
	Duplicates symbols.Policy
	// MaxDepth bounds macro and include nesting.
	MaxDepth int

	Loader       expand.Loader
	BinaryLoader expand.BinaryLoader
	// Functions are user functions callable from expressions.
	Functions expr.Functions

	// Trace receives a verbose log of the passes.
	Trace io.Writer
}

func (o Options) withDefaults() Options {
	if o.MaxPasses <= 0 {
		o.MaxPasses = DefaultMaxPasses
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = expand.DefaultMaxDepth
	}
	return o
}
