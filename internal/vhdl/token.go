package vhdl

import (
	"fmt"

	"github.com/orbit-hdl/orbit/internal/ip"
)

// Kind classifies a lexed token.
type Kind int

const (
	KindComment Kind = iota
	KindKeyword
	KindIdentifier
	KindAbstractLiteral
	KindCharLiteral
	KindStringLiteral
	KindBitStringLiteral
	KindDelimiter
	KindError
	KindEOF
)

func (k Kind) String() string {
	switch k {
	case KindComment:
		return "comment"
	case KindKeyword:
		return "keyword"
	case KindIdentifier:
		return "identifier"
	case KindAbstractLiteral:
		return "abstract literal"
	case KindCharLiteral:
		return "character literal"
	case KindStringLiteral:
		return "string literal"
	case KindBitStringLiteral:
		return "bit string literal"
	case KindDelimiter:
		return "delimiter"
	case KindError:
		return "error"
	case KindEOF:
		return "eof"
	}
	return "unknown"
}

// Position is a 1-based (line, column) source location.
type Position struct {
	Line int
	Col  int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Token is one lexical element with its exact source text and location.
//
// Text always holds the bytes as they appear in the source, so joining the
// token texts of a file (with original separators) reproduces it. Offset is
// the byte index of the first character; the DST rewriter splices
// replacement text over [Offset, Offset+len(Text)).
type Token struct {
	Kind   Kind
	Text   string
	Norm   string   // lowercased keyword/delimiter spelling
	Ident  ip.Ident // set for KindIdentifier
	Pos    Position
	Offset int
	Err    string // set for KindError
}

// IsKeyword reports whether the token is the given reserved word.
func (t Token) IsKeyword(word string) bool {
	return t.Kind == KindKeyword && t.Norm == word
}

// IsDelimiter reports whether the token is the given delimiter spelling.
func (t Token) IsDelimiter(d string) bool {
	return t.Kind == KindDelimiter && t.Norm == d
}

// keywords is the closed set of VHDL-2008 reserved words, matched
// case-insensitively.
var keywords = map[string]bool{
	"abs": true, "access": true, "after": true, "alias": true, "all": true,
	"and": true, "architecture": true, "array": true, "assert": true,
	"attribute": true, "begin": true, "block": true, "body": true,
	"buffer": true, "bus": true, "case": true, "component": true,
	"configuration": true, "constant": true, "context": true, "cover": true,
	"default": true, "disconnect": true, "downto": true, "else": true,
	"elsif": true, "end": true, "entity": true, "exit": true, "fairness": true,
	"file": true, "for": true, "force": true, "function": true,
	"generate": true, "generic": true, "group": true, "guarded": true,
	"if": true, "impure": true, "in": true, "inertial": true, "inout": true,
	"is": true, "label": true, "library": true, "linkage": true,
	"literal": true, "loop": true, "map": true, "mod": true, "nand": true,
	"new": true, "next": true, "nor": true, "not": true, "null": true,
	"of": true, "on": true, "open": true, "or": true, "others": true,
	"out": true, "package": true, "parameter": true, "port": true,
	"postponed": true, "procedure": true, "process": true, "property": true,
	"protected": true, "pure": true, "range": true, "record": true,
	"register": true, "reject": true, "release": true, "rem": true,
	"report": true, "restrict": true, "return": true, "rol": true,
	"ror": true, "select": true, "sequence": true, "severity": true,
	"shared": true, "signal": true, "sla": true, "sll": true, "sra": true,
	"srl": true, "strong": true, "subtype": true, "then": true, "to": true,
	"transport": true, "type": true, "unaffected": true, "units": true,
	"until": true, "use": true, "variable": true, "vmode": true,
	"vprop": true, "vunit": true, "wait": true, "when": true, "while": true,
	"with": true, "xnor": true, "xor": true,
}

// Delimiters by length, keyed by exact spelling. Greedy longest match on
// the extendable prefixes {?, <, >, /, =, *, :}.
var (
	delims3 = map[string]bool{"?/=": true, "?<=": true, "?>=": true}
	delims2 = map[string]bool{
		"=>": true, "**": true, ":=": true, "/=": true, ">=": true,
		"<=": true, "<>": true, "??": true, "?=": true, "?<": true,
		"?>": true, "<<": true, ">>": true,
	}
	delims1 = map[string]bool{
		"&": true, "'": true, "(": true, ")": true, "*": true, "+": true,
		",": true, "-": true, ".": true, "/": true, ":": true, ";": true,
		"<": true, "=": true, ">": true, "|": true, "[": true, "]": true,
		"?": true, "@": true, "`": true,
	}
)

// bitStringSpecifiers are the base specifiers that may precede a quoted
// bit string, matched case-insensitively.
var bitStringSpecifiers = map[string]bool{
	"b": true, "o": true, "x": true, "d": true,
	"ub": true, "uo": true, "ux": true,
	"sb": true, "so": true, "sx": true,
}
