package vhdl

import "strings"

// Rewrite splices renamed identifiers into src and returns the transformed
// text. lut maps an identifier comparison key to the suffix appended to
// occurrences of that identifier. Every byte outside a renamed identifier
// is preserved exactly: comments, whitespace, casing, and line endings pass
// through untouched, so a rewrite over an empty lut returns src verbatim.
func Rewrite(src string, lut map[string]string) string {
	if len(lut) == 0 {
		return src
	}
	tokens := Lex(src)
	var b strings.Builder
	b.Grow(len(src) + len(src)/8)
	cursor := 0
	for _, tok := range tokens {
		if tok.Kind != KindIdentifier {
			continue
		}
		suffix, ok := lut[tok.Ident.Key()]
		if !ok {
			continue
		}
		b.WriteString(src[cursor:tok.Offset])
		b.WriteString(tok.Ident.WithSuffix(suffix).String())
		cursor = tok.Offset + len(tok.Text)
	}
	b.WriteString(src[cursor:])
	return b.String()
}

// BuildLut folds a set of identifier comparison keys into a lookup table
// that renames each of them with the same suffix.
func BuildLut(keys []string, suffix string) map[string]string {
	lut := make(map[string]string, len(keys))
	for _, k := range keys {
		lut[k] = suffix
	}
	return lut
}
