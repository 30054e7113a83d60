package script

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/Urethramancer/cpcasm/expand"
	"github.com/Urethramancer/cpcasm/expr"
	"github.com/Urethramancer/cpcasm/listing"
)

// Loader loads .lua listing scripts from disk, searching Paths for relative
// names. It keeps every script it ran open so their fn() functions stay
// available to the units that loaded them; see Scope.
type Loader struct {
	Paths []string

	mu      sync.Mutex
	scripts []*Script
	byName  map[string]*Script
}

// NewLoader returns a loader searching paths in order.
func NewLoader(paths ...string) *Loader {
	return &Loader{Paths: paths, byName: make(map[string]*Script)}
}

// Load implements expand.Loader.
func (l *Loader) Load(name string) (listing.Listing, error) {
	if !strings.EqualFold(filepath.Ext(name), ".lua") {
		return nil, fmt.Errorf("%w: %s", ErrNotScript, name)
	}
	path, err := expand.Resolve(l.Paths, name)
	if err != nil {
		return nil, err
	}

	s := New(name)
	list, err := s.RunFile(path)
	if err != nil {
		s.Close()
		return nil, err
	}
	l.mu.Lock()
	l.scripts = append(l.scripts, s)
	l.byName[name] = s
	l.mu.Unlock()
	return list, nil
}

func (l *Loader) script(name string) *Script {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.byName[name]
}

// Scope returns one assembly unit's view of the loader. Listings come from
// next, usually a cache shared by all units, or from the loader itself when
// next is nil.
func (l *Loader) Scope(next expand.Loader) *Scope {
	if next == nil {
		next = l
	}
	return &Scope{loader: l, next: next}
}

// Close closes every script the loader ran.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.scripts {
		s.Close()
	}
	l.scripts = nil
	clear(l.byName)
}

// Scope remembers the scripts one unit loaded. Its functions are the fn()
// definitions of those scripts only, so units never see each other's.
type Scope struct {
	loader *Loader
	next   expand.Loader

	mu    sync.Mutex
	names []string
}

// Load implements expand.Loader.
func (s *Scope) Load(name string) (listing.Listing, error) {
	l, err := s.next.Load(name)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if !slices.Contains(s.names, name) {
		s.names = append(s.names, name)
	}
	s.mu.Unlock()
	return l, nil
}

// Function implements expr.Functions. The first script loaded that defines
// name wins.
func (s *Scope) Function(name string) (expr.Func, bool) {
	s.mu.Lock()
	names := slices.Clone(s.names)
	s.mu.Unlock()
	for _, n := range names {
		sc := s.loader.script(n)
		if sc == nil {
			continue
		}
		if f, ok := sc.Function(name); ok {
			return f, true
		}
	}
	return nil, false
}
