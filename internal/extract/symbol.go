package extract

import (
	"github.com/jward/fabls/internal/syntax"
)

// SymbolKind distinguishes the two definition kinds the index tracks.
type SymbolKind uint8

const (
	KindFunction SymbolKind = iota
	KindVariable
)

func (k SymbolKind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindVariable:
		return "variable"
	default:
		return "unknown"
	}
}

// Symbol is one named definition. Kind selects the variant; Range and
// Description are shared by both kinds, so resolution can return either
// without dynamic dispatch.
type Symbol struct {
	Name string
	Kind SymbolKind

	// Range spans the whole definition, body included for functions.
	Range syntax.Range

	// Signature is the one-line header (functions) or declaration text
	// (variables).
	Signature string

	// Description is the leading contiguous comment block, when present,
	// followed by the signature.
	Description string
}

// SymbolTable holds every module-scope definition of one file. Names are
// unique per map; a later definition silently overwrites an earlier one.
type SymbolTable struct {
	Functions map[string]*Symbol
	Variables map[string]*Symbol
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		Functions: make(map[string]*Symbol),
		Variables: make(map[string]*Symbol),
	}
}

// Len returns the total number of symbols in the table.
func (t *SymbolTable) Len() int {
	return len(t.Functions) + len(t.Variables)
}
