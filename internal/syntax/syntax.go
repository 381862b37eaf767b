// Package syntax defines the concrete-syntax-tree surface the index and
// extractor operate on. The parsing collaborator supplies trees behind these
// interfaces, so extraction and resolution never depend on a particular
// parser implementation.
package syntax

// Point is a zero-based line/column position in a source file.
type Point struct {
	Row    uint32
	Column uint32
}

// Before reports whether p comes before q in document order.
func (p Point) Before(q Point) bool {
	if p.Row != q.Row {
		return p.Row < q.Row
	}
	return p.Column < q.Column
}

// Range is a half-open span between two points.
type Range struct {
	Start Point
	End   Point
}

// Contains reports whether p falls inside the range.
func (r Range) Contains(p Point) bool {
	return !p.Before(r.Start) && p.Before(r.End)
}

// Node is a single node in a parsed tree. Implementations return nil (not a
// typed nil wrapped in the interface) when a relative does not exist.
type Node interface {
	// Kind is the grammar-level node type, e.g. "function_definition",
	// "identifier", "comment".
	Kind() string

	// IsNamed reports whether the node is a named grammar node rather than
	// an anonymous token such as punctuation.
	IsNamed() bool

	Parent() Node
	PrevSibling() Node

	NamedChildCount() int
	NamedChild(i int) Node

	// ChildByFieldName returns the child bound to a grammar field, or nil.
	ChildByFieldName(name string) Node

	StartPoint() Point
	EndPoint() Point
	StartByte() uint32
	EndByte() uint32
}

// Tree is a parsed file.
type Tree interface {
	RootNode() Node

	// NamedDescendantForPoint returns the smallest named node covering the
	// point, or nil when the point is outside every node.
	NamedDescendantForPoint(p Point) Node
}

// Parser turns source text into a Tree. A Parser is safe for concurrent use
// only if its implementation says so; callers that parse in parallel obtain
// one Parser per goroutine via a Factory.
type Parser interface {
	Parse(src []byte) (Tree, error)
}

// Factory produces parsers. Bulk indexing creates one parser per worker.
type Factory func() Parser

// Content returns the source text covered by a node.
func Content(n Node, src []byte) string {
	start, end := n.StartByte(), n.EndByte()
	if int(start) > len(src) || int(end) > len(src) || start > end {
		return ""
	}
	return string(src[start:end])
}

// NodeRange returns the node's span as a Range.
func NodeRange(n Node) Range {
	return Range{Start: n.StartPoint(), End: n.EndPoint()}
}
