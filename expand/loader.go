package expand

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/grimdork/climate/paths"
	"golang.org/x/sync/singleflight"

	"github.com/Urethramancer/cpcasm/expr"
	"github.com/Urethramancer/cpcasm/listing"
	"github.com/Urethramancer/cpcasm/symbols"
)

// Loader supplies the listing of an included file.
type Loader interface {
	Load(path string) (listing.Listing, error)
}

// BinaryLoader supplies the bytes of an included binary file.
type BinaryLoader interface {
	LoadBinary(path string) ([]byte, error)
}

// MapLoader serves listings from memory.
type MapLoader map[string]listing.Listing

// Load implements Loader.
func (m MapLoader) Load(path string) (listing.Listing, error) {
	l, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return l, nil
}

// MapBinaries serves binary files from memory.
type MapBinaries map[string][]byte

// LoadBinary implements BinaryLoader.
func (m MapBinaries) LoadBinary(path string) ([]byte, error) {
	b, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return b, nil
}

// CachedLoader memoizes another Loader. It is safe for concurrent use by
// independent assembly units; cached listings are never modified. Each path
// is loaded once even when units ask for it at the same time, and loads of
// different paths run in parallel.
type CachedLoader struct {
	next  Loader
	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]listing.Listing
}

// NewCachedLoader wraps next.
func NewCachedLoader(next Loader) *CachedLoader {
	return &CachedLoader{next: next, cache: make(map[string]listing.Listing)}
}

// Load implements Loader.
func (c *CachedLoader) Load(path string) (listing.Listing, error) {
	c.mu.RLock()
	l, ok := c.cache[path]
	c.mu.RUnlock()
	if ok {
		return l, nil
	}

	v, err, _ := c.group.Do(path, func() (any, error) {
		c.mu.RLock()
		l, ok := c.cache[path]
		c.mu.RUnlock()
		if ok {
			return l, nil
		}
		l, err := c.next.Load(path)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cache[path] = l
		c.mu.Unlock()
		return l, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(listing.Listing), nil
}

// Len returns the number of cached listings.
func (c *CachedLoader) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Resolve finds name as given, then in each search path in order.
func Resolve(searchPaths []string, name string) (string, error) {
	if paths.FileExists(name) {
		return name, nil
	}
	if !filepath.IsAbs(name) {
		for _, dir := range searchPaths {
			p := filepath.Join(dir, name)
			if paths.FileExists(p) {
				return p, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// FileBinaryLoader reads binaries from disk.
type FileBinaryLoader struct {
	Paths []string
}

// LoadBinary implements BinaryLoader.
func (f FileBinaryLoader) LoadBinary(name string) ([]byte, error) {
	p, err := Resolve(f.Paths, name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

func (x *Expander) include(out listing.Listing, inc listing.Include, scope symbols.ScopeID) (listing.Listing, error) {
	if x.opts.Loader == nil {
		return nil, fmt.Errorf("%w: include %q", ErrNoLoader, inc.Path)
	}
	if slices.Contains(x.including, inc.Path) {
		return nil, fmt.Errorf("%w: %s", ErrIncludeCycle, inc.Path)
	}

	defer func() { x.depth-- }()
	if err := x.enter(); err != nil {
		return nil, err
	}

	l, err := x.opts.Loader.Load(inc.Path)
	if err != nil {
		return nil, err
	}

	x.including = append(x.including, inc.Path)
	defer func() { x.including = x.including[:len(x.including)-1] }()
	expanded, err := x.expand(l, scope)
	if err != nil {
		return nil, err
	}
	return append(out, expanded...), nil
}

func (x *Expander) incbin(out listing.Listing, inc listing.Incbin, scope symbols.ScopeID) (listing.Listing, error) {
	if x.opts.Binaries == nil {
		return nil, fmt.Errorf("%w: incbin %q", ErrNoLoader, inc.Path)
	}
	data, err := x.opts.Binaries.LoadBinary(inc.Path)
	if err != nil {
		return nil, err
	}

	var offset, length int64 = 0, -1
	if inc.Offset != nil {
		if offset, err = x.integer(inc.Offset, scope); err != nil {
			return nil, err
		}
	}
	if inc.Length != nil {
		if length, err = x.integer(inc.Length, scope); err != nil {
			return nil, err
		}
	}
	if offset < 0 || offset > int64(len(data)) {
		return nil, fmt.Errorf("incbin %s: offset %d outside %d bytes", inc.Path, offset, len(data))
	}
	data = data[offset:]
	if length >= 0 {
		if length > int64(len(data)) {
			return nil, fmt.Errorf("incbin %s: %d bytes requested, %d available", inc.Path, length, len(data))
		}
		data = data[:length]
	}

	return append(out, listing.Data{
		Base:   inc.Base,
		Kind:   listing.DataRaw,
		Bytes:  data,
		Source: inc.Path,
	}), nil
}

func (x *Expander) integer(e expr.Expr, scope symbols.ScopeID) (int64, error) {
	v, err := x.constant(e, scope)
	if err != nil {
		return 0, err
	}
	return v.AsInt()
}
