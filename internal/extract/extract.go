// Package extract builds per-file symbol tables from parsed syntax trees.
// Extraction is a pure function of (source text, tree): it holds no state
// and touches no I/O, which is what makes bulk indexing trivially parallel.
package extract

import (
	"fmt"
	"strings"

	"github.com/jward/fabls/internal/syntax"
)

// FromTree walks the tree in document order and collects every function and
// module-scope variable definition.
//
// Extraction is fail-fast and non-partial: if any function definition is
// missing its signature or name sub-node the whole file's extraction aborts
// with an error, and the caller keeps whatever table it had before.
func FromTree(src []byte, tree syntax.Tree) (*SymbolTable, error) {
	table := NewSymbolTable()
	if err := walk(tree.RootNode(), src, table); err != nil {
		return nil, err
	}
	return table, nil
}

// walk visits n, then its named children in source order.
func walk(n syntax.Node, src []byte, table *SymbolTable) error {
	switch n.Kind() {
	case "function_definition", "asm_function_definition":
		sym, err := functionSymbol(src, n)
		if err != nil {
			return err
		}
		table.Functions[sym.Name] = sym
	case "variable_definition":
		if p := n.Parent(); p != nil && (p.Kind() == "source_file" || p.Kind() == "vars") {
			if sym := variableSymbol(src, n); sym != nil {
				table.Variables[sym.Name] = sym
			}
		}
	}

	for i := 0; i < n.NamedChildCount(); i++ {
		if err := walk(n.NamedChild(i), src, table); err != nil {
			return err
		}
	}
	return nil
}

func functionSymbol(src []byte, n syntax.Node) (*Symbol, error) {
	sig := n.ChildByFieldName("signature")
	if sig == nil {
		return nil, fmt.Errorf("function definition at line %d: missing signature", n.StartPoint().Row+1)
	}
	name := sig.ChildByFieldName("name")
	if name == nil {
		return nil, fmt.Errorf("function definition at line %d: missing name", n.StartPoint().Row+1)
	}

	sigText := syntax.Content(sig, src)
	return &Symbol{
		Name:        syntax.Content(name, src),
		Kind:        KindFunction,
		Range:       syntax.NodeRange(n),
		Signature:   sigText,
		Description: leadingComments(src, n) + sigText,
	}, nil
}

// variableSymbol builds a symbol for a module-scope variable declaration.
// Declarations without a recognizable name are skipped, not fatal; the
// fail-fast policy applies to function definitions only.
func variableSymbol(src []byte, n syntax.Node) *Symbol {
	name := n.ChildByFieldName("name")
	if name == nil {
		return nil
	}

	declText := syntax.Content(n, src)
	return &Symbol{
		Name:        syntax.Content(name, src),
		Kind:        KindVariable,
		Range:       syntax.NodeRange(n),
		Signature:   declText,
		Description: leadingComments(src, n) + declText,
	}
}

// leadingComments collects the contiguous comment block directly above a
// definition: preceding siblings are taken while each is a comment and at
// most one line separates it from the definition or comment below it. The
// result keeps the original top-to-bottom order, one comment per line.
func leadingComments(src []byte, n syntax.Node) string {
	pivotRow := int64(n.StartPoint().Row)
	var comments []syntax.Node
	for sib := n.PrevSibling(); sib != nil; sib = sib.PrevSibling() {
		if sib.Kind() != "comment" || pivotRow-int64(sib.EndPoint().Row) > 1 {
			break
		}
		comments = append(comments, sib)
		pivotRow = int64(sib.StartPoint().Row)
	}

	var sb strings.Builder
	for i := len(comments) - 1; i >= 0; i-- {
		sb.WriteString(syntax.Content(comments[i], src))
		sb.WriteByte('\n')
	}
	return sb.String()
}
