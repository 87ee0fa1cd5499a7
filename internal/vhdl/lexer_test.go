package vhdl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// kindsOf strips the trailing EOF and returns the token kinds.
func kindsOf(tokens []Token) []Kind {
	kinds := make([]Kind, 0, len(tokens))
	for _, t := range tokens {
		if t.Kind == KindEOF {
			break
		}
		kinds = append(kinds, t.Kind)
	}
	return kinds
}

func TestLex_EntityDeclaration(t *testing.T) {
	tokens := Lex("entity nor_gate is end;")
	kinds := kindsOf(tokens)
	assert.Equal(t, []Kind{KindKeyword, KindIdentifier, KindKeyword, KindKeyword, KindDelimiter}, kinds)
	assert.Equal(t, "entity", tokens[0].Norm)
	assert.Equal(t, "nor_gate", tokens[1].Ident.String())
}

func TestLex_KeywordsAreCaseInsensitive(t *testing.T) {
	tokens := Lex("ENTITY Nor_Gate IS End;")
	assert.Equal(t, "entity", tokens[0].Norm)
	assert.Equal(t, "is", tokens[2].Norm)
	assert.Equal(t, "end", tokens[3].Norm)
	// identifier casing is preserved in the token text
	assert.Equal(t, "Nor_Gate", tokens[1].Text)
}

func TestLex_CharLiteralVsAttributeTick(t *testing.T) {
	// after an identifier the tick is the attribute delimiter
	tokens := Lex("clk'event")
	kinds := kindsOf(tokens)
	assert.Equal(t, []Kind{KindIdentifier, KindDelimiter, KindIdentifier}, kinds)

	// after a delimiter it opens a character literal
	tokens = Lex("x <= '1';")
	kinds = kindsOf(tokens)
	assert.Equal(t, []Kind{KindIdentifier, KindDelimiter, KindCharLiteral, KindDelimiter}, kinds)
	assert.Equal(t, "'1'", tokens[2].Text)
}

func TestLex_StringLiterals(t *testing.T) {
	tokens := Lex(`constant s : string := "he said ""hi""";`)
	var lit *Token
	for i := range tokens {
		if tokens[i].Kind == KindStringLiteral {
			lit = &tokens[i]
		}
	}
	require.NotNil(t, lit)
	assert.Equal(t, `"he said ""hi"""`, lit.Text)
}

func TestLex_BitStringLiterals(t *testing.T) {
	for _, src := range []string{`b"1010"`, `x"ff_ff"`, `o"777"`, `sx"F"`, `8x"0f"`} {
		tokens := Lex(src)
		require.Len(t, tokens, 2, src)
		assert.Equal(t, KindBitStringLiteral, tokens[0].Kind, src)
		assert.Equal(t, src, tokens[0].Text, src)
	}
}

func TestLex_AbstractLiterals(t *testing.T) {
	for _, src := range []string{"42", "3.14", "1e6", "2.5E-3", "16#FF#", "2#1010#", "1_000"} {
		tokens := Lex(src)
		require.Len(t, tokens, 2, src)
		assert.Equal(t, KindAbstractLiteral, tokens[0].Kind, src)
		assert.Equal(t, src, tokens[0].Text, src)
	}
}

func TestLex_Comments(t *testing.T) {
	tokens := Lex("-- line comment\nentity e is end; /* block\ncomment */")
	var comments []string
	for _, tok := range tokens {
		if tok.Kind == KindComment {
			comments = append(comments, tok.Text)
		}
	}
	require.Len(t, comments, 2)
	assert.Equal(t, "-- line comment", comments[0])
	assert.True(t, strings.HasPrefix(comments[1], "/*"))
}

func TestLex_CompoundDelimiters(t *testing.T) {
	tokens := Lex("a <= b; c := d; e => f; g /= h;")
	var delims []string
	for _, tok := range tokens {
		if tok.Kind == KindDelimiter {
			delims = append(delims, tok.Text)
		}
	}
	assert.Equal(t, []string{"<=", ";", ":=", ";", "=>", ";", "/=", ";"}, delims)
}

func TestLex_ExtendedIdentifier(t *testing.T) {
	tokens := Lex(`\my entity!\`)
	require.GreaterOrEqual(t, len(tokens), 1)
	assert.Equal(t, KindIdentifier, tokens[0].Kind)
	assert.True(t, tokens[0].Ident.IsExtended())
	assert.Equal(t, "my entity!", tokens[0].Ident.Raw())
}

func TestLex_Positions(t *testing.T) {
	tokens := Lex("entity e\nis end;")
	assert.Equal(t, Position{Line: 1, Col: 1}, tokens[0].Pos)
	assert.Equal(t, Position{Line: 1, Col: 8}, tokens[1].Pos)
	assert.Equal(t, Position{Line: 2, Col: 1}, tokens[2].Pos)
}

func TestLex_Offsets(t *testing.T) {
	src := "entity e is end;"
	for _, tok := range Lex(src) {
		if tok.Kind == KindEOF {
			assert.Equal(t, len(src), tok.Offset)
			continue
		}
		assert.Equal(t, tok.Text, src[tok.Offset:tok.Offset+len(tok.Text)], tok.Text)
	}
}

func TestLex_ErrorRecovery(t *testing.T) {
	// unterminated string on one line; lexing continues after it
	tokens := Lex("signal s : bit := \"oops\nentity e is end;")
	hasError := false
	hasEntity := false
	for _, tok := range tokens {
		if tok.Kind == KindError {
			hasError = true
		}
		if tok.IsKeyword("entity") {
			hasEntity = true
		}
	}
	assert.True(t, hasError)
	assert.True(t, hasEntity)
}

// Tokens carry their exact source text, so the stream re-tokenizes to
// itself once whitespace is reinserted.
func TestLex_RenderRoundTrip(t *testing.T) {
	src := `
library ieee;
use ieee.std_logic_1164.all;

entity add is
  port (a, b : in std_logic; q : out std_logic);
end entity;
`
	first := Lex(src)
	var rendered strings.Builder
	for _, tok := range first {
		if tok.Kind == KindEOF {
			break
		}
		rendered.WriteString(tok.Text)
		rendered.WriteByte(' ')
	}
	second := Lex(rendered.String())

	firstKinds := kindsOf(first)
	secondKinds := kindsOf(second)
	require.Equal(t, firstKinds, secondKinds)
	for i := range firstKinds {
		assert.Equal(t, first[i].Text, second[i].Text)
	}
}
