// Package fabparse parses NesFab source text into the concrete syntax trees
// consumed by the symbol extractor. The grammar cover is deliberately shallow:
// it recognizes definitions, vars blocks, comments, calls, and identifier
// references with exact source ranges, which is everything symbol indexing
// needs. Parsing is always full-text; there is no incremental reparse.
package fabparse

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jward/fabls/internal/syntax"
)

// Parser parses NesFab source. A Parser is stateless and may be reused, but
// not shared between goroutines mid-parse; bulk indexing should create one
// per worker via Factory.
type Parser struct{}

// New returns a ready Parser.
func New() *Parser { return &Parser{} }

// Factory is a syntax.Factory producing this package's parsers.
func Factory() syntax.Parser { return New() }

// Parse builds a syntax tree for src. The returned error indicates malformed
// text (invalid encoding or an unbalanced definition header); callers must
// not use the tree when an error is returned.
func (p *Parser) Parse(src []byte) (syntax.Tree, error) {
	if !utf8.Valid(src) {
		return nil, fmt.Errorf("source is not valid UTF-8")
	}

	b := &builder{
		src: src,
		root: &node{
			kind:  "source_file",
			named: true,
		},
	}

	text := string(src)
	offset := 0
	row := uint32(0)
	for offset <= len(text) {
		end := strings.IndexByte(text[offset:], '\n')
		var line string
		if end < 0 {
			line = text[offset:]
			end = len(text)
		} else {
			end += offset
			line = text[offset:end]
		}
		if err := b.line(line, uint32(offset), row); err != nil {
			return nil, err
		}
		offset = end + 1
		row++
	}

	b.root.startByte = 0
	b.root.endByte = uint32(len(src))
	b.root.start = syntax.Point{}
	b.root.end = endPointOf(text)
	return &tree{root: b.root}, nil
}

// endPointOf computes the line/column position just past the final byte.
func endPointOf(text string) syntax.Point {
	row := uint32(strings.Count(text, "\n"))
	last := text
	if i := strings.LastIndexByte(text, '\n'); i >= 0 {
		last = text[i+1:]
	}
	return syntax.Point{Row: row, Column: uint32(len(last))}
}

// builder accumulates the tree line by line. open is the definition or block
// construct indented lines currently attach to; block is the lazily created
// body of an open function definition.
type builder struct {
	src   []byte
	root  *node
	open  *node
	block *node
}

func (b *builder) line(line string, lineStart, row uint32) error {
	line = strings.TrimRight(line, "\r")
	toks := scanLine(line, lineStart)
	if len(toks) == 0 {
		return nil // blank lines close nothing
	}

	indent := indentOf(line)

	// Full-line comment.
	if toks[0].kind == tokComment {
		if indent == 0 {
			b.close()
			b.attach(b.root, commentNode(toks[0], row))
		} else {
			b.attach(b.container(), commentNode(toks[0], row))
		}
		return nil
	}

	if indent > 0 {
		return b.body(toks, row)
	}

	// Unindented ":" modifier lines (e.g. ": nmi game_nmi") continue the
	// open definition's header rather than starting a new construct.
	if toks[0].kind == tokPunct && toks[0].text == ":" && b.open != nil &&
		(b.open.kind == "function_definition" || b.open.kind == "asm_function_definition") {
		return b.body(toks, row)
	}

	b.close()
	return b.topLevel(toks, row)
}

// close ends the currently open construct.
func (b *builder) close() {
	b.open = nil
	b.block = nil
}

// container returns the node indented lines currently belong to.
func (b *builder) container() *node {
	if b.open == nil {
		return b.root
	}
	switch b.open.kind {
	case "function_definition", "asm_function_definition":
		if b.block == nil {
			b.block = &node{
				kind:      "block",
				named:     true,
				startByte: b.open.endByte,
				endByte:   b.open.endByte,
				start:     b.open.end,
				end:       b.open.end,
			}
			b.open.addChild(b.block)
		}
		return b.block
	default:
		return b.open
	}
}

// attach adds a line-level node to parent and widens every ancestor to cover it.
func (b *builder) attach(parent *node, n *node) {
	parent.addChild(n)
	for p := parent; p != nil; p = p.parent {
		p.extend(n.endByte, n.end)
	}
}

// topLevel handles an unindented code line: a definition, a vars block, a
// module-scope variable, or an opaque data section.
func (b *builder) topLevel(toks []token, row uint32) error {
	first := toks[0]
	if first.kind == tokWord {
		switch {
		case first.text == "vars" && len(codeTokens(toks)) == 1:
			vars := spanNode("vars", true, codeTokens(toks), row)
			vars.addChild(anonToken(first, row))
			b.attach(b.root, vars)
			b.open = vars
			return nil
		case first.text == "fn" || first.text == "mode" || first.text == "nmi":
			return b.beginFunction("function_definition", 1, toks, row)
		case first.text == "asm" && len(toks) > 1 && toks[1].text == "fn":
			return b.beginFunction("asm_function_definition", 2, toks, row)
		case first.text == "ct" && len(toks) > 1 && toks[1].text == "fn":
			return b.beginFunction("function_definition", 2, toks, row)
		}
	}

	if hasAssignment(toks) {
		b.attach(b.root, b.variableDefinition(toks, row))
		return nil
	}

	// Anything else (chrrom, data, charmap, ...) is an opaque section whose
	// indented contents are plain statements.
	section := spanNode("section", true, toks, row)
	for _, n := range b.parseTokens(codeTokens(toks), row) {
		section.addChild(n)
	}
	b.appendTrailingComment(section, toks, row)
	b.attach(b.root, section)
	b.open = section
	return nil
}

// body handles an indented code line inside the open construct.
func (b *builder) body(toks []token, row uint32) error {
	parent := b.container()
	if parent.kind == "vars" {
		b.attach(parent, b.variableDefinition(toks, row))
		return nil
	}

	code := codeTokens(toks)
	if len(code) > 0 {
		stmt := spanNode("expression_statement", true, code, row)
		for _, n := range b.parseTokens(code, row) {
			stmt.addChild(n)
		}
		b.attach(parent, stmt)
	}
	b.appendTrailingComment(parent, toks, row)
	return nil
}

// beginFunction builds a function or asm-function definition from its header
// line. The signature node spans the whole header and binds the "name" field;
// kwCount leading keyword tokens are kept as anonymous children.
func (b *builder) beginFunction(kind string, kwCount int, toks []token, row uint32) error {
	code := codeTokens(toks)
	if !parensBalanced(code) {
		return fmt.Errorf("line %d: unbalanced parentheses in signature", row+1)
	}

	def := spanNode(kind, true, code, row)
	sig := spanNode("signature", true, code, row)

	i := 0
	for ; i < kwCount && i < len(code); i++ {
		sig.addChild(anonToken(code[i], row))
	}
	if i < len(code) && code[i].kind == tokWord && !keywords[code[i].text] {
		sig.bindField("name", identNode(code[i], row))
		i++
	}
	for ; i < len(code); i++ {
		sig.addChild(b.tokenNode(code[i], row))
	}

	def.bindField("signature", sig)
	b.attach(b.root, def)
	b.open = def
	return nil
}

// variableDefinition builds a variable-definition node from one declaration
// line such as "SS px = 128". The name is the identifier directly before the
// "=", or the last identifier when there is no initializer.
func (b *builder) variableDefinition(toks []token, row uint32) *node {
	code := codeTokens(toks)
	decl := spanNode("variable_definition", true, code, row)

	nameIdx := -1
	for i, t := range code {
		if t.kind == tokPunct && t.text == "=" {
			break
		}
		if t.kind == tokWord && !keywords[t.text] {
			nameIdx = i
		}
	}

	for i, t := range code {
		if i == nameIdx {
			decl.bindField("name", identNode(t, row))
			continue
		}
		decl.addChild(b.tokenNode(t, row))
	}

	b.appendTrailingComment(decl, toks, row)
	return decl
}

// parseTokens turns a token run into expression nodes, grouping an identifier
// directly followed by "(" into a call with a nested arguments node.
func (b *builder) parseTokens(toks []token, row uint32) []*node {
	var out []*node
	i := 0
	for i < len(toks) {
		t := toks[i]
		if t.kind == tokWord && !keywords[t.text] &&
			i+1 < len(toks) && toks[i+1].kind == tokPunct && toks[i+1].text == "(" {
			call, next := b.parseCall(toks, i, row)
			out = append(out, call)
			i = next
			continue
		}
		out = append(out, b.tokenNode(t, row))
		i++
	}
	return out
}

// parseCall builds a call node starting at toks[i] (the callee identifier).
// Returns the node and the index of the first token after the call.
func (b *builder) parseCall(toks []token, i int, row uint32) (*node, int) {
	depth := 0
	closing := len(toks) - 1
	for j := i + 1; j < len(toks); j++ {
		if toks[j].kind != tokPunct {
			continue
		}
		switch toks[j].text {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				closing = j
				j = len(toks)
			}
		}
	}

	call := spanNode("call", true, toks[i:closing+1], row)
	call.addChild(identNode(toks[i], row))
	call.addChild(anonToken(toks[i+1], row))
	if closing > i+2 {
		args := spanNode("arguments", true, toks[i+2:closing], row)
		for _, n := range b.parseTokens(toks[i+2:closing], row) {
			args.addChild(n)
		}
		call.addChild(args)
	}
	if toks[closing].kind == tokPunct && toks[closing].text == ")" {
		call.addChild(anonToken(toks[closing], row))
	}
	return call, closing + 1
}

// tokenNode maps a single token to a leaf node.
func (b *builder) tokenNode(t token, row uint32) *node {
	switch {
	case t.kind == tokWord && !keywords[t.text]:
		return identNode(t, row)
	case t.kind == tokNumber:
		return leafNode("number", true, t, row)
	default:
		return anonToken(t, row)
	}
}

// appendTrailingComment attaches a same-line trailing comment, if any, as a
// sibling-ordered child of parent.
func (b *builder) appendTrailingComment(parent *node, toks []token, row uint32) {
	last := toks[len(toks)-1]
	if last.kind == tokComment && len(toks) > 1 {
		b.attach(parent, commentNode(last, row))
	}
}

// codeTokens drops a trailing comment token from a line's token run.
func codeTokens(toks []token) []token {
	if n := len(toks); n > 0 && toks[n-1].kind == tokComment {
		return toks[:n-1]
	}
	return toks
}

func hasAssignment(toks []token) bool {
	for _, t := range toks {
		if t.kind == tokPunct && t.text == "=" {
			return true
		}
	}
	return false
}

func parensBalanced(toks []token) bool {
	depth := 0
	for _, t := range toks {
		if t.kind != tokPunct {
			continue
		}
		switch t.text {
		case "(":
			depth++
		case ")":
			depth--
		}
	}
	return depth == 0
}

func identNode(t token, row uint32) *node {
	return leafNode("identifier", true, t, row)
}

func commentNode(t token, row uint32) *node {
	return leafNode("comment", true, t, row)
}

func anonToken(t token, row uint32) *node {
	return leafNode(t.text, false, t, row)
}

func leafNode(kind string, named bool, t token, row uint32) *node {
	return &node{
		kind:      kind,
		named:     named,
		startByte: t.startByte,
		endByte:   t.endByte,
		start:     syntax.Point{Row: row, Column: t.col},
		end:       syntax.Point{Row: row, Column: t.col + uint32(t.endByte-t.startByte)},
	}
}

// spanNode creates a named or anonymous node covering a token run on one line.
func spanNode(kind string, named bool, toks []token, row uint32) *node {
	first, last := toks[0], toks[len(toks)-1]
	return &node{
		kind:      kind,
		named:     named,
		startByte: first.startByte,
		endByte:   last.endByte,
		start:     syntax.Point{Row: row, Column: first.col},
		end:       syntax.Point{Row: row, Column: last.col + uint32(last.endByte-last.startByte)},
	}
}
