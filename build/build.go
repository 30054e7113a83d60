// Package build assembles independent units in parallel. Units share only
// the include cache; each gets its own symbol table, expansion and output.
package build

import (
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Urethramancer/cpcasm/assembler"
	"github.com/Urethramancer/cpcasm/expand"
	"github.com/Urethramancer/cpcasm/expr"
	"github.com/Urethramancer/cpcasm/listing"
)

// Unit is one assembly. When Listing is nil, Path is loaded through the
// unit's Loader, or the options' one when that is nil. Functions likewise
// replaces the options' functions for this unit only.
type Unit struct {
	Name      string
	Path      string
	Listing   listing.Listing
	Origin    uint16
	Loader    expand.Loader
	Functions expr.Functions
}

// Outcome is the result of one unit. Exactly one of Result and Err is set.
type Outcome struct {
	Name   string
	Result *assembler.Result
	Err    error
}

// Build assembles units with at most limit running at once; limit < 1
// means no limit. Outcomes are in unit order. A failing unit does not stop
// the others. Cancelling ctx only keeps units that have not started from
// running.
func Build(ctx context.Context, units []Unit, opts assembler.Options, limit int) []Outcome {
	if opts.Loader != nil {
		if _, ok := opts.Loader.(*expand.CachedLoader); !ok {
			opts.Loader = expand.NewCachedLoader(opts.Loader)
		}
	}
	if opts.Trace != nil {
		opts.Trace = &lockedWriter{w: opts.Trace}
	}

	out := make([]Outcome, len(units))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, u := range units {
		out[i].Name = u.Name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i].Err = err
				return nil
			}
			out[i].Result, out[i].Err = assemble(u, opts)
			return nil
		})
	}
	// Every Go func returns nil; unit errors live in their Outcome.
	_ = g.Wait()
	return out
}

func assemble(u Unit, opts assembler.Options) (*assembler.Result, error) {
	if u.Loader != nil {
		opts.Loader = u.Loader
	}
	if u.Functions != nil {
		opts.Functions = u.Functions
	}
	l := u.Listing
	if l == nil {
		if opts.Loader == nil {
			return nil, fmt.Errorf("%w: %s", expand.ErrNoLoader, u.Path)
		}
		var err error
		if l, err = opts.Loader.Load(u.Path); err != nil {
			return nil, err
		}
	}
	return assembler.New(opts).Assemble(l, u.Origin)
}

// Failed returns the outcomes that hold an error.
func Failed(outcomes []Outcome) []Outcome {
	var list []Outcome
	for _, o := range outcomes {
		if o.Err != nil {
			list = append(list, o)
		}
	}
	return list
}

// lockedWriter serialises trace output from concurrent units.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
