package fabls

import (
	"github.com/jward/fabls/internal/depgraph"
	"github.com/jward/fabls/internal/extract"
	"github.com/jward/fabls/internal/syntax"
)

// Public type aliases for internal types used in the Index API. These are Go
// type aliases (=), identical to the internal types at compile time, so
// external consumers never import internal packages.

type Symbol = extract.Symbol
type SymbolTable = extract.SymbolTable
type SymbolKind = extract.SymbolKind
type Point = syntax.Point
type Range = syntax.Range
type Graph = depgraph.Graph
type PathSet = depgraph.PathSet

const (
	KindFunction = extract.KindFunction
	KindVariable = extract.KindVariable
)
