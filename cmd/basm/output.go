package main

import (
	"fmt"
	"io"
	"os"

	"github.com/grimdork/climate/cfmt"
	"github.com/grimdork/climate/human"

	"github.com/Urethramancer/cpcasm/assembler"
)

type output struct {
	base    string
	listing string
	symbols string
}

// write stores the segments and optional listing and symbol files, then
// reports warnings, prints and the size.
func (o output) write(color bool, name string, res *assembler.Result) error {
	for _, w := range res.Warnings {
		diagnostic(color, cfmt.Yellow, "warning", w.String())
	}
	for _, p := range res.Prints {
		fmt.Println(p)
	}

	for _, s := range res.Segments {
		path := o.base + ".bin"
		if len(res.Segments) > 1 {
			path = fmt.Sprintf("%s_p%d_%04X.bin", o.base, s.Page, s.Start)
		}
		if err := os.WriteFile(path, s.Data, 0o644); err != nil {
			return err
		}
	}

	if o.listing != "" {
		if err := writeFile(o.listing, res.WriteListing); err != nil {
			return err
		}
	}
	if o.symbols != "" {
		if err := writeFile(o.symbols, res.WriteSymbols); err != nil {
			return err
		}
	}

	size := human.UInt(uint64(res.Size()), false)
	msg := fmt.Sprintf("%s: %s in %d segment(s), %d passes", name, size, len(res.Segments), res.Passes)
	if res.HasEntry {
		msg += fmt.Sprintf(", run &%04X", res.Entry)
	}
	if color {
		cfmt.Printf("%green%s%reset", msg)
	} else {
		fmt.Println(msg)
	}
	return nil
}

func writeFile(path string, fn func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func report(color bool, name string, err error) {
	diagnostic(color, cfmt.Red, "error", fmt.Sprintf("%s: %s", name, err))
}

func diagnostic(color bool, code, kind, msg string) {
	if color {
		fmt.Fprintf(os.Stderr, "%s%s:%s %s\n", code, kind, cfmt.Reset, msg)
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %s\n", kind, msg)
}

func fail(color bool, err error) {
	diagnostic(color, cfmt.Red, "error", err.Error())
	os.Exit(2)
}
