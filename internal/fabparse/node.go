package fabparse

import (
	"github.com/jward/fabls/internal/syntax"
)

// node is the concrete syntax.Node produced by this parser. Nodes form a
// parent/child tree with field bindings, mirroring the shape extraction and
// resolution expect: definitions carry a "signature" field whose "name" field
// is an identifier.
type node struct {
	kind     string
	named    bool
	parent   *node
	children []*node
	fields   map[string]*node
	index    int // position within parent.children

	startByte uint32
	endByte   uint32
	start     syntax.Point
	end       syntax.Point
}

func (n *node) Kind() string  { return n.kind }
func (n *node) IsNamed() bool { return n.named }

func (n *node) Parent() syntax.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *node) PrevSibling() syntax.Node {
	if n.parent == nil || n.index == 0 {
		return nil
	}
	return n.parent.children[n.index-1]
}

func (n *node) NamedChildCount() int {
	count := 0
	for _, c := range n.children {
		if c.named {
			count++
		}
	}
	return count
}

func (n *node) NamedChild(i int) syntax.Node {
	for _, c := range n.children {
		if !c.named {
			continue
		}
		if i == 0 {
			return c
		}
		i--
	}
	return nil
}

func (n *node) ChildByFieldName(name string) syntax.Node {
	c, ok := n.fields[name]
	if !ok {
		return nil
	}
	return c
}

func (n *node) StartPoint() syntax.Point { return n.start }
func (n *node) EndPoint() syntax.Point   { return n.end }
func (n *node) StartByte() uint32        { return n.startByte }
func (n *node) EndByte() uint32          { return n.endByte }

// addChild appends c to n and keeps sibling bookkeeping consistent.
func (n *node) addChild(c *node) {
	c.parent = n
	c.index = len(n.children)
	n.children = append(n.children, c)
}

// bindField attaches c as both a child and a named field of n.
func (n *node) bindField(name string, c *node) {
	n.addChild(c)
	if n.fields == nil {
		n.fields = make(map[string]*node, 2)
	}
	n.fields[name] = c
}

// covers reports whether p falls inside the node's span. The end boundary is
// exclusive, matching how editors address the character under the cursor.
func (n *node) covers(p syntax.Point) bool {
	return !p.Before(n.start) && p.Before(n.end)
}

// extend grows the node's span to include the given end position.
func (n *node) extend(endByte uint32, end syntax.Point) {
	if n.endByte < endByte {
		n.endByte = endByte
	}
	if n.end.Before(end) {
		n.end = end
	}
}

// tree is the concrete syntax.Tree.
type tree struct {
	root *node
}

func (t *tree) RootNode() syntax.Node { return t.root }

func (t *tree) NamedDescendantForPoint(p syntax.Point) syntax.Node {
	if t.root == nil || !t.root.covers(p) {
		return nil
	}
	best := t.root
	cur := t.root
	for {
		descended := false
		for _, c := range cur.children {
			if c.covers(p) {
				cur = c
				if c.named {
					best = c
				}
				descended = true
				break
			}
		}
		if !descended {
			return best
		}
	}
}
