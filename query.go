package fabls

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/jward/fabls/internal/depgraph"
	"github.com/jward/fabls/internal/extract"
	"github.com/jward/fabls/internal/syntax"
)

// Hover is the answer to a hover query: the symbol's rendered description
// and the defining file's path, shortened relative to the nearest containing
// workspace root.
type Hover struct {
	Description string
	Path        string
}

// Definition is the answer to a go-to-definition query.
type Definition struct {
	Path  string
	Range syntax.Range
}

// CompletionItem is one completion candidate.
type CompletionItem struct {
	Name          string
	Kind          extract.SymbolKind
	Documentation string
}

// Dependencies returns every file that shares a config with path: the union
// of all dependency sets containing it. The result includes path itself when
// any config lists it, and is sorted for determinism.
func (ix *Index) Dependencies(path string) []string {
	path = canonicalOrSame(path)

	union := make(map[string]struct{})
	ix.deps.Range(func(_ string, set depgraph.PathSet) bool {
		if set.Contains(path) {
			for p := range set {
				union[p] = struct{}{}
			}
		}
		return true
	})

	files := make([]string, 0, len(union))
	for p := range union {
		files = append(files, p)
	}
	sort.Strings(files)
	return files
}

// FindSymbol resolves the identifier at pos in path's current text to its
// defining symbol. ok is false when the file isn't indexed, the position is
// not over an identifier, or no definition is known; none of which is an
// error.
//
// The reference's syntactic context narrows the search: a call site and a
// name inside a function or asm-function header resolve against function
// tables only; anything else tries functions first, then global variables.
// The file's own table is consulted first, then files sharing a config with
// it, then the remaining cached files in sorted path order.
func (ix *Index) FindSymbol(path string, pos syntax.Point) (defPath string, sym *extract.Symbol, ok bool) {
	path = canonicalOrSame(path)

	src, ok := ix.sources.Get(path)
	if !ok {
		return "", nil, false
	}
	tree, ok := ix.trees.Get(path)
	if !ok {
		return "", nil, false
	}

	node := tree.NamedDescendantForPoint(pos)
	if node == nil || node.Kind() != "identifier" {
		return "", nil, false
	}
	name := syntax.Content(node, src)
	functionsOnly := classifyReference(node)

	if table, cached := ix.symbols.Get(path); cached {
		if sym := lookup(table, name, functionsOnly); sym != nil {
			return path, sym, true
		}
	}
	for _, other := range ix.lookupOrder(path) {
		table, cached := ix.symbols.Get(other)
		if !cached {
			continue
		}
		if sym := lookup(table, name, functionsOnly); sym != nil {
			return other, sym, true
		}
	}
	return "", nil, false
}

// HoverAt answers a hover query at pos.
func (ix *Index) HoverAt(path string, pos syntax.Point) (*Hover, bool) {
	defPath, sym, ok := ix.FindSymbol(path, pos)
	if !ok {
		return nil, false
	}
	return &Hover{
		Description: sym.Description,
		Path:        ix.DisplayPath(defPath),
	}, true
}

// DefinitionAt answers a go-to-definition query at pos.
func (ix *Index) DefinitionAt(path string, pos syntax.Point) (*Definition, bool) {
	defPath, sym, ok := ix.FindSymbol(path, pos)
	if !ok {
		return nil, false
	}
	return &Definition{Path: defPath, Range: sym.Range}, true
}

// Completion returns one candidate per function and global variable across
// the symbol tables of every file sharing a config with path, sorted by name.
func (ix *Index) Completion(path string) []CompletionItem {
	var items []CompletionItem
	for _, dep := range ix.Dependencies(path) {
		table, cached := ix.symbols.Get(dep)
		if !cached {
			continue
		}
		for _, sym := range table.Functions {
			items = append(items, completionItem(sym))
		}
		for _, sym := range table.Variables {
			items = append(items, completionItem(sym))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].Kind < items[j].Kind
	})
	return items
}

// DisplayPath shortens path relative to the nearest (longest) containing
// workspace root, or returns it unchanged when no root contains it.
func (ix *Index) DisplayPath(path string) string {
	best := ""
	for _, root := range ix.roots.Values() {
		if under(path, root) && len(root) > len(best) {
			best = root
		}
	}
	if best == "" {
		return path
	}
	rel, err := filepath.Rel(best, path)
	if err != nil {
		return path
	}
	return rel
}

// lookupOrder returns the cross-file search order for path: files sharing a
// config first, then every other cached file, both sorted, path excluded.
// Sorting makes same-name collisions resolve deterministically, with the
// dependency-graph neighbor winning over an unrelated file.
func (ix *Index) lookupOrder(path string) []string {
	neighbors := make(map[string]bool)
	for _, dep := range ix.Dependencies(path) {
		neighbors[dep] = true
	}

	var near, far []string
	for _, cached := range ix.symbols.Keys() {
		switch {
		case cached == path:
		case neighbors[cached]:
			near = append(near, cached)
		default:
			far = append(far, cached)
		}
	}
	sort.Strings(near)
	sort.Strings(far)
	return append(near, far...)
}

// classifyReference reports whether the identifier may only refer to a
// function: it is the callee of a call, or sits inside a function or
// asm-function header (its parent is the signature wrapper).
func classifyReference(node syntax.Node) bool {
	parent := node.Parent()
	if parent == nil {
		return false
	}
	switch parent.Kind() {
	case "call":
		return true
	case "signature":
		if gp := parent.Parent(); gp != nil {
			kind := gp.Kind()
			return kind == "function_definition" || kind == "asm_function_definition"
		}
	}
	return false
}

func lookup(table *extract.SymbolTable, name string, functionsOnly bool) *extract.Symbol {
	if sym, ok := table.Functions[name]; ok {
		return sym
	}
	if functionsOnly {
		return nil
	}
	if sym, ok := table.Variables[name]; ok {
		return sym
	}
	return nil
}

func completionItem(sym *extract.Symbol) CompletionItem {
	return CompletionItem{
		Name:          sym.Name,
		Kind:          sym.Kind,
		Documentation: sym.Description,
	}
}

// under reports whether path is dir or inside dir.
func under(path, dir string) bool {
	if path == dir {
		return true
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}

// underAny reports whether path is inside any of the given directories.
func underAny(path string, dirs []string) bool {
	for _, dir := range dirs {
		if under(path, dir) {
			return true
		}
	}
	return false
}
