package vhdl

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/orbit-hdl/orbit/internal/ip"
)

// Lex converts source text into a token stream ending in an EOF token.
//
// The lexer is recoverable: unrecognized or unterminated forms become
// positioned error tokens and scanning resumes after the offending
// character. Comments are emitted as tokens; consumers that don't want
// them strip KindComment.
func Lex(src string) []Token {
	s := &scanner{src: src, line: 1, col: 0}
	var tokens []Token
	for {
		r, ok := s.peek()
		if !ok {
			break
		}
		if isSeparator(r) {
			s.next()
			continue
		}
		start := s.mark()
		var tok Token
		switch {
		case isLetter(r):
			tok = s.scanWord(start)
		case r == '\\':
			tok = s.scanExtendedIdentifier(start)
		case r == '"':
			tok = s.scanStringLiteral(start)
		case r == '\'' && lastIsDelimiter(tokens):
			tok = s.scanCharLiteral(start)
		case unicode.IsDigit(r):
			tok = s.scanNumeric(start)
		case r == '-' && s.peekAt(1) == '-':
			tok = s.scanLineComment(start)
		case r == '/' && s.peekAt(1) == '*':
			tok = s.scanBlockComment(start)
		default:
			tok = s.scanDelimiter(start)
		}
		tokens = append(tokens, tok)
	}
	tokens = append(tokens, Token{
		Kind:   KindEOF,
		Pos:    Position{Line: s.line, Col: s.col + 1},
		Offset: len(src),
	})
	return tokens
}

// StripComments returns the tokens without KindComment entries.
func StripComments(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	for _, t := range tokens {
		if t.Kind != KindComment {
			out = append(out, t)
		}
	}
	return out
}

func lastIsDelimiter(tokens []Token) bool {
	if len(tokens) == 0 {
		return false
	}
	return tokens[len(tokens)-1].Kind == KindDelimiter
}

// isSeparator covers VHDL's format-effector set: space, NBSP, HT, VT, CR,
// LF.
func isSeparator(r rune) bool {
	switch r {
	case ' ', ' ', '\t', '\v', '\r', '\n':
		return true
	}
	return false
}

func isLetter(r rune) bool {
	return unicode.IsLetter(r)
}

func isWordChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func isGraphic(r rune) bool {
	return r == ' ' || r == ' ' || unicode.IsGraphic(r)
}

type scanner struct {
	src  string
	off  int
	line int
	col  int
}

type markpoint struct {
	off  int
	line int
	col  int
}

func (s *scanner) mark() markpoint {
	return markpoint{off: s.off, line: s.line, col: s.col}
}

func (s *scanner) peek() (rune, bool) {
	if s.off >= len(s.src) {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(s.src[s.off:])
	return r, true
}

// peekAt returns the rune n runes ahead, or 0 at EOF.
func (s *scanner) peekAt(n int) rune {
	off := s.off
	for i := 0; i <= n; i++ {
		if off >= len(s.src) {
			return 0
		}
		r, w := utf8.DecodeRuneInString(s.src[off:])
		if i == n {
			return r
		}
		off += w
	}
	return 0
}

func (s *scanner) next() (rune, bool) {
	if s.off >= len(s.src) {
		return 0, false
	}
	r, w := utf8.DecodeRuneInString(s.src[s.off:])
	s.off += w
	if r == '\n' {
		s.line++
		s.col = 0
	} else {
		s.col++
	}
	return r, true
}

func (s *scanner) text(m markpoint) string {
	return s.src[m.off:s.off]
}

func (s *scanner) token(m markpoint, kind Kind) Token {
	return Token{
		Kind:   kind,
		Text:   s.text(m),
		Pos:    Position{Line: m.line, Col: m.col + 1},
		Offset: m.off,
	}
}

func (s *scanner) errorToken(m markpoint, format string, args ...any) Token {
	tok := s.token(m, KindError)
	tok.Err = fmt.Sprintf(format, args...)
	return tok
}

// scanWord consumes a basic identifier, keyword, or bit string literal
// whose base specifier begins with a letter (b"1010", sx"f_f").
func (s *scanner) scanWord(m markpoint) Token {
	for {
		r, ok := s.peek()
		if !ok || !isWordChar(r) {
			break
		}
		s.next()
	}
	word := s.text(m)
	if r, ok := s.peek(); ok && r == '"' && bitStringSpecifiers[strings.ToLower(word)] {
		return s.scanBitStringBody(m)
	}
	lower := strings.ToLower(word)
	if keywords[lower] {
		tok := s.token(m, KindKeyword)
		tok.Norm = lower
		return tok
	}
	if strings.HasSuffix(word, "_") {
		return s.errorToken(m, "identifier %q cannot end with an underscore", word)
	}
	if strings.Contains(word, "__") {
		return s.errorToken(m, "identifier %q has adjacent underscores", word)
	}
	tok := s.token(m, KindIdentifier)
	tok.Ident = ip.NewBasic(word)
	return tok
}

func (s *scanner) scanExtendedIdentifier(m markpoint) Token {
	s.next() // opening backslash
	var raw strings.Builder
	for {
		r, ok := s.peek()
		if !ok || r == '\n' {
			return s.errorToken(m, "unterminated extended identifier")
		}
		s.next()
		if r == '\\' {
			if nxt, ok := s.peek(); ok && nxt == '\\' {
				s.next()
				raw.WriteByte('\\')
				continue
			}
			if raw.Len() == 0 {
				return s.errorToken(m, "extended identifier cannot be empty")
			}
			tok := s.token(m, KindIdentifier)
			tok.Ident = ip.NewExtended(raw.String())
			return tok
		}
		if !isGraphic(r) {
			return s.errorToken(m, "invalid character %q in extended identifier", r)
		}
		raw.WriteRune(r)
	}
}

func (s *scanner) scanStringLiteral(m markpoint) Token {
	s.next() // opening quote
	for {
		r, ok := s.peek()
		if !ok || r == '\n' {
			return s.errorToken(m, "unterminated string literal")
		}
		s.next()
		if r == '"' {
			if nxt, ok := s.peek(); ok && nxt == '"' {
				s.next() // doubled quote stays inside the literal
				continue
			}
			return s.token(m, KindStringLiteral)
		}
	}
}

func (s *scanner) scanCharLiteral(m markpoint) Token {
	s.next() // opening quote
	r, ok := s.peek()
	if !ok || !isGraphic(r) {
		return s.errorToken(m, "invalid character literal")
	}
	s.next()
	if close, ok := s.peek(); !ok || close != '\'' {
		return s.errorToken(m, "unterminated character literal")
	}
	s.next()
	return s.token(m, KindCharLiteral)
}

func (s *scanner) scanLineComment(m markpoint) Token {
	for {
		r, ok := s.peek()
		if !ok || r == '\n' {
			break
		}
		s.next()
	}
	return s.token(m, KindComment)
}

func (s *scanner) scanBlockComment(m markpoint) Token {
	s.next() // '/'
	s.next() // '*'
	for {
		r, ok := s.next()
		if !ok {
			return s.errorToken(m, "unterminated block comment")
		}
		if r == '*' {
			if nxt, ok := s.peek(); ok && nxt == '/' {
				s.next()
				return s.token(m, KindComment)
			}
		}
	}
}

// scanNumeric consumes a decimal literal, based literal, or a bit string
// literal with a size prefix (8b"11").
func (s *scanner) scanNumeric(m markpoint) Token {
	if !s.scanInteger() {
		return s.errorToken(m, "malformed integer literal")
	}
	r, ok := s.peek()
	if !ok {
		return s.token(m, KindAbstractLiteral)
	}
	switch {
	case r == '#':
		return s.scanBasedTail(m, '#')
	case r == ':' && s.colonBasedAhead():
		return s.scanBasedTail(m, ':')
	case r == '.':
		if !unicode.IsDigit(s.peekAt(1)) {
			return s.token(m, KindAbstractLiteral)
		}
		s.next()
		if !s.scanInteger() {
			return s.errorToken(m, "malformed real literal")
		}
		return s.scanExponentTail(m)
	case r == 'e' || r == 'E':
		return s.scanExponentTail(m)
	case isLetter(r):
		return s.scanBitStringTail(m)
	}
	return s.token(m, KindAbstractLiteral)
}

// scanInteger consumes digit { [_] digit }. Returns false on a dangling
// underscore.
func (s *scanner) scanInteger() bool {
	seen := false
	for {
		r, ok := s.peek()
		if !ok {
			return seen
		}
		if unicode.IsDigit(r) {
			seen = true
			s.next()
			continue
		}
		if r == '_' && seen && unicode.IsDigit(s.peekAt(1)) {
			s.next()
			continue
		}
		if r == '_' {
			return false
		}
		return seen
	}
}

// colonBasedAhead looks past a ':' for based-literal digits and a closing
// ':' so "2:0101:" lexes as a based literal while "x:integer" keeps the
// colon as a delimiter.
func (s *scanner) colonBasedAhead() bool {
	rest := s.src[s.off:]
	if !strings.HasPrefix(rest, ":") {
		return false
	}
	rest = rest[1:]
	i := 0
	for i < len(rest) {
		c := rest[i]
		if isBasedDigitByte(c) || c == '_' || c == '.' {
			i++
			continue
		}
		break
	}
	return i > 0 && i < len(rest) && rest[i] == ':'
}

func isBasedDigitByte(c byte) bool {
	switch {
	case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		return true
	}
	return false
}

// scanBasedTail consumes base DELIM digits [. digits] DELIM [exponent],
// where DELIM is '#' or (symmetrically) ':'.
func (s *scanner) scanBasedTail(m markpoint, delim rune) Token {
	base, err := parseBase(s.text(m))
	if err != nil {
		// keep consuming the form so recovery lands after it
		s.consumeBasedBody(delim)
		return s.errorToken(m, "%s", err)
	}
	s.next() // delimiter
	if !s.scanBasedDigits(base) {
		s.consumeBasedBody(delim)
		return s.errorToken(m, "based literal digits exceed base %d", base)
	}
	if r, ok := s.peek(); ok && r == '.' {
		s.next()
		if !s.scanBasedDigits(base) {
			s.consumeBasedBody(delim)
			return s.errorToken(m, "based literal digits exceed base %d", base)
		}
	}
	if r, ok := s.peek(); !ok || r != delim {
		return s.errorToken(m, "unterminated based literal")
	}
	s.next() // closing delimiter
	if r, ok := s.peek(); ok && (r == 'e' || r == 'E') {
		return s.scanExponentTail(m)
	}
	return s.token(m, KindAbstractLiteral)
}

func parseBase(text string) (int, error) {
	digits := strings.ReplaceAll(text, "_", "")
	base := 0
	for _, r := range digits {
		base = base*10 + int(r-'0')
		if base > 16 {
			break
		}
	}
	if base < 2 || base > 16 {
		return 0, fmt.Errorf("base %s must be within 2 and 16", digits)
	}
	return base, nil
}

func (s *scanner) scanBasedDigits(base int) bool {
	seen := false
	for {
		r, ok := s.peek()
		if !ok {
			return seen
		}
		if r == '_' {
			s.next()
			continue
		}
		v := digitValue(r)
		if v < 0 {
			return seen
		}
		if v >= base {
			return false
		}
		seen = true
		s.next()
	}
}

func digitValue(r rune) int {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0')
	case r >= 'a' && r <= 'f':
		return int(r-'a') + 10
	case r >= 'A' && r <= 'F':
		return int(r-'A') + 10
	}
	return -1
}

// consumeBasedBody advances past a malformed based literal up to its
// closing delimiter or the end of line.
func (s *scanner) consumeBasedBody(delim rune) {
	for {
		r, ok := s.peek()
		if !ok || r == '\n' {
			return
		}
		s.next()
		if r == delim {
			return
		}
	}
}

func (s *scanner) scanExponentTail(m markpoint) Token {
	s.next() // 'e' or 'E'
	if r, ok := s.peek(); ok && (r == '+' || r == '-') {
		s.next()
	}
	if !s.scanInteger() {
		return s.errorToken(m, "malformed exponent")
	}
	return s.token(m, KindAbstractLiteral)
}

// scanBitStringTail consumes base-specifier letters then the quoted value.
// The integer size prefix, if any, was already consumed.
func (s *scanner) scanBitStringTail(m markpoint) Token {
	spec := strings.Builder{}
	for {
		r, ok := s.peek()
		if !ok || !isLetter(r) {
			break
		}
		spec.WriteRune(unicode.ToLower(r))
		s.next()
	}
	if !bitStringSpecifiers[spec.String()] {
		return s.errorToken(m, "invalid bit string specifier %q", spec.String())
	}
	return s.scanBitStringBody(m)
}

// scanBitStringBody consumes the quoted value of a bit string literal. The
// size prefix and base specifier were already consumed.
func (s *scanner) scanBitStringBody(m markpoint) Token {
	r, ok := s.peek()
	if !ok || r != '"' {
		return s.errorToken(m, "bit string literal requires a quoted value")
	}
	s.next()
	for {
		r, ok := s.peek()
		if !ok || r == '\n' {
			return s.errorToken(m, "unterminated bit string literal")
		}
		s.next()
		if r == '"' {
			return s.token(m, KindBitStringLiteral)
		}
	}
}

func (s *scanner) scanDelimiter(m markpoint) Token {
	r, _ := s.next()
	if r == '!' {
		// '!' is an alias for '|'
		tok := s.token(m, KindDelimiter)
		tok.Norm = "|"
		return tok
	}
	one := string(r)
	if extendable(r) {
		two := one + string(s.peekAt(0))
		three := two + string(s.peekAt(1))
		if delims3[three] {
			s.next()
			s.next()
			tok := s.token(m, KindDelimiter)
			tok.Norm = three
			return tok
		}
		if delims2[two] {
			s.next()
			tok := s.token(m, KindDelimiter)
			tok.Norm = two
			return tok
		}
	}
	if delims1[one] {
		tok := s.token(m, KindDelimiter)
		tok.Norm = one
		return tok
	}
	return s.errorToken(m, "invalid character %q", r)
}

// extendable marks the delimiter prefixes that may begin a multi-character
// delimiter.
func extendable(r rune) bool {
	switch r {
	case '?', '<', '>', '/', '=', '*', ':':
		return true
	}
	return false
}
