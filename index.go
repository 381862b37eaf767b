package fabls

import (
	"context"
	"fmt"

	"github.com/tliron/kutil/logging"

	"github.com/jward/fabls/internal/depgraph"
	"github.com/jward/fabls/internal/extract"
	"github.com/jward/fabls/internal/fabparse"
	"github.com/jward/fabls/internal/syncstore"
	"github.com/jward/fabls/internal/syntax"
)

var log = logging.GetLogger("fabls")

// Index is the live project symbol index. It owns four keyed stores (source
// text, syntax tree, symbol table, dependency set) plus the workspace-root
// set, and is safe for uncoordinated concurrent use: every write replaces a
// whole value under one key, and queries read whatever snapshot is current.
// Entries persist for the process lifetime; nothing is evicted.
type Index struct {
	parsers syntax.Factory
	builder depgraph.Builder

	sources *syncstore.Map[string, []byte]
	trees   *syncstore.Map[string, syntax.Tree]
	symbols *syncstore.Map[string, *extract.SymbolTable]
	deps    *syncstore.Map[string, depgraph.PathSet]
	roots   *syncstore.Set[string]
}

// Option configures an Index.
type Option func(*Index)

// WithFallbackDir sets the base directory used to resolve config input
// references that don't exist relative to their config file (typically the
// NesFab installation directory).
func WithFallbackDir(dir string) Option {
	return func(ix *Index) {
		ix.builder.FallbackDir = dir
	}
}

// WithParserFactory overrides the parsing collaborator. The default parses
// NesFab with the built-in fabparse parser.
func WithParserFactory(f syntax.Factory) Option {
	return func(ix *Index) {
		ix.parsers = f
	}
}

// New creates an empty Index.
func New(opts ...Option) *Index {
	ix := &Index{
		parsers: fabparse.Factory,
		sources: syncstore.New[string, []byte](),
		trees:   syncstore.New[string, syntax.Tree](),
		symbols: syncstore.New[string, *extract.SymbolTable](),
		deps:    syncstore.New[string, depgraph.PathSet](),
		roots:   syncstore.NewSet[string](),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// UpdateFile replaces the cached text for path and reparses and re-extracts
// the whole file. The tree and symbol table are replaced only when both parse
// and extraction succeed; on failure the previous tree and table stay in
// place and the error describes what went wrong with the new text.
func (ix *Index) UpdateFile(path string, text []byte) error {
	path = canonicalOrSame(path)
	ix.sources.Set(path, text)

	tree, err := ix.parsers().Parse(text)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	table, err := extract.FromTree(text, tree)
	if err != nil {
		return fmt.Errorf("extract %s: %w", path, err)
	}

	ix.trees.Set(path, tree)
	ix.symbols.Set(path, table)
	return nil
}

// RefreshWorkspace reacts to workspace roots being added and removed. The
// dependency store is rebuilt and swapped wholesale: entries for config
// directories under a removed root are evicted, entries for surviving
// directories are kept as cached (not rescanned), and added roots are
// scanned for new config files. Afterwards every newly referenced file
// without a cached symbol table is indexed from disk in parallel; files
// already cached are untouched.
func (ix *Index) RefreshWorkspace(ctx context.Context, added, removed []string) error {
	removedDirs := make([]string, 0, len(removed))
	for _, dir := range removed {
		dir = canonicalOrSame(dir)
		removedDirs = append(removedDirs, dir)
		ix.roots.Remove(dir)
	}

	next := make(map[string]depgraph.PathSet)
	ix.deps.Range(func(dir string, set depgraph.PathSet) bool {
		if !underAny(dir, removedDirs) {
			next[dir] = set
		}
		return true
	})

	var scan []string
	for _, dir := range added {
		dir = canonicalOrSame(dir)
		ix.roots.Add(dir)
		// Membership is checked against the surviving entries, so a root
		// that was removed and re-added in one call gets rescanned.
		if _, tracked := next[dir]; !tracked {
			scan = append(scan, dir)
		}
	}

	graph, err := ix.builder.Build(ctx, scan)
	if err != nil {
		return fmt.Errorf("rebuild dependency graph: %w", err)
	}
	for dir, set := range graph {
		next[dir] = set
	}
	ix.deps.Replace(next)
	log.Infof("dependency graph rebuilt: %d config directories", len(next))

	return ix.bulkIndex(ctx, next)
}

// Text returns the current cached text for path.
func (ix *Index) Text(path string) (string, bool) {
	src, ok := ix.sources.Get(canonicalOrSame(path))
	return string(src), ok
}

// Tables returns a snapshot of every cached symbol table keyed by
// canonical path.
func (ix *Index) Tables() map[string]*extract.SymbolTable {
	out := make(map[string]*extract.SymbolTable, ix.symbols.Len())
	ix.symbols.Range(func(path string, table *extract.SymbolTable) bool {
		out[path] = table
		return true
	})
	return out
}

// IsIndexed reports whether path has a cached symbol table.
func (ix *Index) IsIndexed(path string) bool {
	return ix.symbols.Contains(canonicalOrSame(path))
}

// Roots returns the registered workspace roots in unspecified order.
func (ix *Index) Roots() []string {
	return ix.roots.Values()
}

// canonicalOrSame canonicalizes a path when it exists on disk, so paths from
// different producers (editor URIs, config scans) key the same store entry.
func canonicalOrSame(path string) string {
	if resolved, ok := depgraph.Canonical(path); ok {
		return resolved
	}
	return path
}
