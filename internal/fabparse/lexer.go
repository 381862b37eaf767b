package fabparse

type tokenKind int

const (
	tokWord tokenKind = iota
	tokNumber
	tokPunct
	tokComment
)

// token is a single lexeme on one line. Columns and byte offsets are both
// tracked so nodes can report line/column spans and slice source text.
type token struct {
	kind      tokenKind
	text      string
	col       uint32 // start column within the line
	startByte uint32
	endByte   uint32
}

// keywords are lexemes that never become identifier nodes. Everything here is
// either a definition introducer or statement-level syntax.
var keywords = map[string]bool{
	"fn": true, "mode": true, "nmi": true, "asm": true, "vars": true,
	"ct": true, "if": true, "else": true, "while": true, "for": true,
	"do": true, "return": true, "break": true, "continue": true,
	"goto": true, "true": true, "false": true, "not": true, "and": true,
	"or": true, "default": true, "switch": true, "case": true,
}

func isWordStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isWordByte(b byte) bool {
	return isWordStart(b) || (b >= '0' && b <= '9')
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

// scanLine tokenizes one line of source. lineStart is the byte offset of the
// line within the file. A "//" comment swallows the rest of the line.
func scanLine(line string, lineStart uint32) []token {
	var tokens []token
	i := 0
	for i < len(line) {
		b := line[i]
		switch {
		case b == ' ' || b == '\t' || b == '\r':
			i++
		case b == '/' && i+1 < len(line) && line[i+1] == '/':
			tokens = append(tokens, token{
				kind:      tokComment,
				text:      line[i:],
				col:       uint32(i),
				startByte: lineStart + uint32(i),
				endByte:   lineStart + uint32(len(line)),
			})
			return tokens
		case isWordStart(b):
			start := i
			for i < len(line) && isWordByte(line[i]) {
				i++
			}
			tokens = append(tokens, token{
				kind:      tokWord,
				text:      line[start:i],
				col:       uint32(start),
				startByte: lineStart + uint32(start),
				endByte:   lineStart + uint32(i),
			})
		case isDigit(b), b == '$' && i+1 < len(line) && isHexDigit(line[i+1]):
			start := i
			if b == '$' {
				i++
				for i < len(line) && isHexDigit(line[i]) {
					i++
				}
			} else {
				for i < len(line) && (isDigit(line[i]) || line[i] == '.') {
					i++
				}
			}
			tokens = append(tokens, token{
				kind:      tokNumber,
				text:      line[start:i],
				col:       uint32(start),
				startByte: lineStart + uint32(start),
				endByte:   lineStart + uint32(i),
			})
		case b == '"':
			// String literal: skip to the closing quote, emitted as one token.
			start := i
			i++
			for i < len(line) && line[i] != '"' {
				if line[i] == '\\' && i+1 < len(line) {
					i++
				}
				i++
			}
			if i < len(line) {
				i++
			}
			tokens = append(tokens, token{
				kind:      tokPunct,
				text:      line[start:i],
				col:       uint32(start),
				startByte: lineStart + uint32(start),
				endByte:   lineStart + uint32(i),
			})
		default:
			tokens = append(tokens, token{
				kind:      tokPunct,
				text:      line[i : i+1],
				col:       uint32(i),
				startByte: lineStart + uint32(i),
				endByte:   lineStart + uint32(i+1),
			})
			i++
		}
	}
	return tokens
}

// indentOf returns the byte width of a line's leading whitespace.
func indentOf(line string) int {
	i := 0
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	return i
}
