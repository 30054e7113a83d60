package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grimdork/climate/arg"
	"github.com/grimdork/climate/env"
	"github.com/k0kubun/pp/v3"
	"golang.org/x/term"

	"github.com/Urethramancer/cpcasm/assembler"
	"github.com/Urethramancer/cpcasm/build"
	"github.com/Urethramancer/cpcasm/expand"
	"github.com/Urethramancer/cpcasm/script"
	"github.com/Urethramancer/cpcasm/symbols"
)

func main() {
	opt := arg.New("basm")
	opt.SetDefaultHelp(true)
	opt.SetOption(arg.GroupDefault, "o", "output", "Output base name. Defaults to the input name.", "", false, arg.VarString, nil)
	opt.SetOption(arg.GroupDefault, "O", "origin", "Address assembly starts at.", "0", false, arg.VarString, nil)
	opt.SetOption(arg.GroupDefault, "", "max-passes", "Passes allowed before giving up.", assembler.DefaultMaxPasses, false, arg.VarInt, nil)
	opt.SetOption(arg.GroupDefault, "", "duplicates", "Duplicate global labels from macros.", "error", false, arg.VarString,
		[]any{"error", "first", "last"})
	opt.SetFlag(arg.GroupDefault, "", "strict", "Overlapping output is an error.")
	opt.SetFlag(arg.GroupDefault, "", "case-sensitive", "Symbol names are case sensitive.")
	opt.SetOption(arg.GroupDefault, "l", "listing", "Write a listing file.", "", false, arg.VarString, nil)
	opt.SetOption(arg.GroupDefault, "s", "symbols", "Write a symbol file.", "", false, arg.VarString, nil)
	opt.SetOption(arg.GroupDefault, "I", "include", "Include search paths.", nil, false, arg.VarStringSlice, nil)
	opt.SetOption(arg.GroupDefault, "j", "jobs", "Files assembled at once. 0 means all.", 0, false, arg.VarInt, nil)
	opt.SetFlag(arg.GroupDefault, "", "dump", "Pretty-print the results.")
	opt.SetFlag(arg.GroupDefault, "v", "verbose", "Trace the passes.")
	opt.SetFlag(arg.GroupDefault, "", "no-color", "Plain diagnostics.")
	opt.SetPositional("FILES", "Lua listing scripts to assemble.", nil, true, arg.VarStringSlice)

	err := opt.ParseEnvironment("BASM", ",")
	if err != nil {
		fail(false, err)
	}
	opt.HelpOrFail()

	color := !opt.GetBool("no-color") && term.IsTerminal(int(os.Stderr.Fd()))
	files := opt.GetPosStringSlice("FILES")
	if len(files) == 0 {
		fail(color, fmt.Errorf("no input files"))
	}
	if len(files) > 1 && opt.GetString("output") != "" {
		fail(color, fmt.Errorf("--output needs a single input file"))
	}

	origin, err := strconv.ParseUint(opt.GetString("origin"), 0, 16)
	if err != nil {
		fail(color, fmt.Errorf("origin: %w", err))
	}
	policy, err := symbols.ParsePolicy(opt.GetString("duplicates"))
	if err != nil {
		fail(color, err)
	}

	loader := script.NewLoader(searchPaths(opt.GetStringSlice("include"), files)...)
	defer loader.Close()
	cache := expand.NewCachedLoader(loader)
	opts := assembler.Options{
		MaxPasses:     opt.GetInt("max-passes"),
		StrictOverlap: opt.GetBool("strict"),
		CaseSensitive: opt.GetBool("case-sensitive"),
		Duplicates:    policy,
		Loader:        cache,
		BinaryLoader:  expand.FileBinaryLoader{Paths: loader.Paths},
	}
	if opt.GetBool("verbose") {
		opts.Trace = os.Stderr
	}

	units := make([]build.Unit, len(files))
	for i, f := range files {
		scope := loader.Scope(cache)
		units[i] = build.Unit{Name: f, Path: f, Origin: uint16(origin), Loader: scope, Functions: scope}
	}
	outcomes := build.Build(context.Background(), units, opts, opt.GetInt("jobs"))

	var printer *pp.PrettyPrinter
	if opt.GetBool("dump") {
		printer = pp.New()
		printer.SetColoringEnabled(color)
		printer.SetOutput(os.Stdout)
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			report(color, o.Name, o.Err)
			failed++
			continue
		}
		out := output{
			base:    baseName(opt.GetString("output"), o.Name),
			listing: unitPath(opt.GetString("listing"), o.Name, len(files) > 1),
			symbols: unitPath(opt.GetString("symbols"), o.Name, len(files) > 1),
		}
		if err := out.write(color, o.Name, o.Result); err != nil {
			report(color, o.Name, err)
			failed++
			continue
		}
		if printer != nil {
			printer.Println(o.Result)
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// searchPaths combines -I, BASM_INCLUDE and the directories of the inputs.
func searchPaths(include, files []string) []string {
	var list []string
	seen := make(map[string]bool)
	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		list = append(list, p)
	}
	for _, p := range include {
		add(p)
	}
	for _, p := range filepath.SplitList(env.Get("BASM_INCLUDE", "")) {
		add(p)
	}
	for _, f := range files {
		add(filepath.Dir(f))
	}
	return list
}

func baseName(output, file string) string {
	if output != "" {
		return output
	}
	return strings.TrimSuffix(file, filepath.Ext(file))
}

// unitPath returns path, or with several inputs path with the input's name
// added before the extension.
func unitPath(path, file string, multi bool) string {
	if path == "" || !multi {
		return path
	}
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + name + ext
}
