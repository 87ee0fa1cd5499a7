package ip

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Ident is an identifier used both as package identity and as a VHDL
// design-unit name.
//
// Basic identifiers compare case-insensitively with '-' and '_' treated as
// equal. This trades some ambiguity for user ergonomics: "My-Filter" and
// "my_filter" name the same IP. Extended identifiers (VHDL `\...\` form)
// retain exact case and all characters; they are compared after NFC
// normalization so visually identical names hash identically.
type Ident struct {
	raw      string // without enclosing backslashes for extended
	extended bool
}

// NewBasic wraps a raw basic identifier without validation.
// Use ParseIdent for user input.
func NewBasic(s string) Ident {
	return Ident{raw: s}
}

// NewExtended wraps the inner text of an extended identifier (no
// enclosing backslashes, escapes already resolved).
func NewExtended(s string) Ident {
	return Ident{raw: s, extended: true}
}

// ParseIdent validates and constructs an identifier.
//
// Basic form: a letter followed by letters, digits, '_' or '-'; no trailing
// separator and no two adjacent separators. Extended form: `\ ... \` with
// `\\` as the escape for a literal backslash.
func ParseIdent(s string) (Ident, error) {
	if s == "" {
		return Ident{}, fmt.Errorf("identifier cannot be empty")
	}
	if strings.HasPrefix(s, `\`) {
		inner, err := unescapeExtended(s)
		if err != nil {
			return Ident{}, err
		}
		return NewExtended(inner), nil
	}
	runes := []rune(s)
	if !unicode.IsLetter(runes[0]) {
		return Ident{}, fmt.Errorf("identifier %q must begin with a letter", s)
	}
	prevSep := false
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			prevSep = false
		case r == '_' || r == '-':
			if prevSep {
				return Ident{}, fmt.Errorf("identifier %q has adjacent separators", s)
			}
			if i == len(runes)-1 {
				return Ident{}, fmt.Errorf("identifier %q cannot end with %q", s, r)
			}
			prevSep = true
		default:
			return Ident{}, fmt.Errorf("identifier %q contains invalid character %q", s, r)
		}
	}
	return NewBasic(s), nil
}

func unescapeExtended(s string) (string, error) {
	if len(s) < 3 || !strings.HasSuffix(s, `\`) {
		return "", fmt.Errorf("extended identifier %q is not terminated", s)
	}
	body := s[1 : len(s)-1]
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' {
			if i+1 >= len(body) || body[i+1] != '\\' {
				return "", fmt.Errorf("extended identifier %q has a stray backslash", s)
			}
			i++
		}
		b.WriteByte(body[i])
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("extended identifier cannot be empty")
	}
	return b.String(), nil
}

// IsExtended reports whether the identifier uses the extended form.
func (id Ident) IsExtended() bool { return id.extended }

// Raw returns the identifier text without rendering (no backslashes for
// extended identifiers).
func (id Ident) Raw() string { return id.raw }

// IsZero reports whether the identifier is the zero value.
func (id Ident) IsZero() bool { return id.raw == "" }

// Key returns the normalized comparison key. Two identifiers are equal iff
// their keys are equal, so Key is safe to use as a map key wherever
// identifier identity matters.
func (id Ident) Key() string {
	if id.extended {
		return `\` + norm.NFC.String(id.raw)
	}
	folded := make([]rune, 0, len(id.raw))
	for _, r := range id.raw {
		if r == '-' {
			r = '_'
		}
		folded = append(folded, unicode.ToLower(r))
	}
	return string(folded)
}

// Equals reports identifier equality under the comparison rules.
func (id Ident) Equals(other Ident) bool {
	return id.extended == other.extended && id.Key() == other.Key()
}

// String renders the identifier as it appears in source: extended
// identifiers are bracketed with backslashes and inner backslashes doubled.
func (id Ident) String() string {
	if !id.extended {
		return id.raw
	}
	return `\` + strings.ReplaceAll(id.raw, `\`, `\\`) + `\`
}

// WithSuffix returns a new identifier with text appended to the name.
// For extended identifiers the suffix lands inside the backslashes.
func (id Ident) WithSuffix(suffix string) Ident {
	return Ident{raw: id.raw + suffix, extended: id.extended}
}

// VhdlLibrary renders a basic identifier as a legal VHDL library name by
// replacing '-' with '_'. Extended identifiers render unchanged.
func (id Ident) VhdlLibrary() string {
	if id.extended {
		return id.String()
	}
	return strings.ReplaceAll(id.raw, "-", "_")
}
