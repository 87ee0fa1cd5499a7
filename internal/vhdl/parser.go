package vhdl

import (
	"fmt"

	"github.com/orbit-hdl/orbit/internal/ip"
)

// UnitKind classifies a parsed design unit.
type UnitKind int

const (
	UnitEntity UnitKind = iota
	UnitArchitecture
	UnitPackage
	UnitPackageBody
	UnitContext
	UnitConfiguration
)

func (k UnitKind) String() string {
	switch k {
	case UnitEntity:
		return "entity"
	case UnitArchitecture:
		return "architecture"
	case UnitPackage:
		return "package"
	case UnitPackageBody:
		return "package body"
	case UnitContext:
		return "context"
	case UnitConfiguration:
		return "configuration"
	}
	return "unknown"
}

// IsPrimary reports whether the kind can be referenced from other units.
// Architectures and package bodies are secondary units owned by a primary.
func (k UnitKind) IsPrimary() bool {
	switch k {
	case UnitEntity, UnitPackage, UnitContext, UnitConfiguration:
		return true
	}
	return false
}

// Ref is a resource reference: a lib.unit pair, or a bare unit name from an
// unqualified instantiation. References are dependency hints, not resolved
// bindings.
type Ref struct {
	Prefix ip.Ident // zero when unqualified
	Suffix ip.Ident
}

func (r Ref) String() string {
	if r.Prefix.IsZero() {
		return r.Suffix.String()
	}
	return r.Prefix.String() + "." + r.Suffix.String()
}

func (r Ref) key() string {
	return r.Prefix.Key() + "." + r.Suffix.Key()
}

// Symbol is one parsed design unit with the references found inside it.
type Symbol struct {
	Kind UnitKind
	Name ip.Ident
	// Owner is the entity an architecture or configuration targets, or
	// the package a package body belongs to.
	Owner ip.Ident
	Refs  []Ref
	Pos   Position
}

// Diagnostic is a recoverable parse problem with its source location.
type Diagnostic struct {
	Pos Position
	Msg string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Pos, d.Msg)
}

// ParseSymbols walks a token stream and extracts design units. The parser
// is statement-oriented: it descends into bodies only far enough to keep
// the depth balanced and to collect references and instantiations. On bad
// input it emits a diagnostic and resumes at the next unit keyword.
func ParseSymbols(tokens []Token) ([]Symbol, []Diagnostic) {
	p := &parser{toks: StripComments(tokens)}
	p.run()
	return p.symbols, p.diags
}

// ParseSource lexes then parses source text.
func ParseSource(src string) ([]Symbol, []Diagnostic) {
	return ParseSymbols(Lex(src))
}

type parser struct {
	toks    []Token
	i       int
	symbols []Symbol
	diags   []Diagnostic
	// pending accumulates refs from the context clause (library, use,
	// context references) preceding the next design unit.
	pending []Ref
}

func (p *parser) peek() Token {
	if p.i >= len(p.toks) {
		return Token{Kind: KindEOF}
	}
	return p.toks[p.i]
}

func (p *parser) peekAt(n int) Token {
	if p.i+n >= len(p.toks) {
		return Token{Kind: KindEOF}
	}
	return p.toks[p.i+n]
}

func (p *parser) next() Token {
	t := p.peek()
	if p.i < len(p.toks) {
		p.i++
	}
	return t
}

func (p *parser) atEOF() bool {
	return p.peek().Kind == KindEOF
}

func (p *parser) diag(pos Position, format string, args ...any) {
	p.diags = append(p.diags, Diagnostic{Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

func (p *parser) run() {
	for !p.atEOF() {
		t := p.peek()
		switch {
		case t.IsKeyword("entity"):
			p.parseUnit(UnitEntity)
		case t.IsKeyword("architecture"):
			p.parseUnit(UnitArchitecture)
		case t.IsKeyword("package") && p.peekAt(1).IsKeyword("body"):
			p.parseUnit(UnitPackageBody)
		case t.IsKeyword("package"):
			p.parseUnit(UnitPackage)
		case t.IsKeyword("configuration"):
			p.parseUnit(UnitConfiguration)
		case t.IsKeyword("context") && p.peekAt(2).IsKeyword("is"):
			p.parseUnit(UnitContext)
		case t.IsKeyword("context"), t.IsKeyword("use"):
			p.next()
			p.pending = appendRefs(p.pending, p.collectClauseRefs())
		case t.IsKeyword("library"):
			p.skipStatement()
		case t.Kind == KindError:
			p.diag(t.Pos, "%s", t.Err)
			p.next()
		default:
			p.diag(t.Pos, "expected a design unit, found %s %q", t.Kind, t.Text)
			p.recover()
		}
	}
}

// recover advances to the next token that can begin a design unit.
func (p *parser) recover() {
	for !p.atEOF() {
		t := p.peek()
		if t.IsKeyword("entity") || t.IsKeyword("architecture") ||
			t.IsKeyword("package") || t.IsKeyword("configuration") ||
			t.IsKeyword("context") {
			return
		}
		p.next()
	}
}

// skipStatement consumes tokens through the terminating semicolon.
func (p *parser) skipStatement() {
	for !p.atEOF() {
		if p.next().IsDelimiter(";") {
			return
		}
	}
}

// collectClauseRefs reads a context or use clause up to its semicolon and
// records the lib.unit pairs in it.
func (p *parser) collectClauseRefs() []Ref {
	var refs []Ref
	for !p.atEOF() {
		t := p.peek()
		if t.IsDelimiter(";") {
			p.next()
			return refs
		}
		if t.Kind == KindIdentifier {
			refs = appendRefs(refs, p.collectSelectedName())
			continue
		}
		p.next()
	}
	return refs
}

// collectSelectedName consumes ident{.ident} and returns the adjacent
// identifier pairs. A trailing keyword suffix (.all) ends the chain
// without contributing a pair.
func (p *parser) collectSelectedName() []Ref {
	var refs []Ref
	prev := p.next() // first identifier
	for p.peek().IsDelimiter(".") {
		suffix := p.peekAt(1)
		if suffix.Kind == KindIdentifier {
			p.next() // dot
			p.next() // suffix
			refs = append(refs, Ref{Prefix: prev.Ident, Suffix: suffix.Ident})
			prev = suffix
			continue
		}
		if suffix.IsKeyword("all") {
			p.next()
			p.next()
		}
		break
	}
	return refs
}

// parseUnit parses one design unit from its introducing keyword through
// its terminating end statement.
func (p *parser) parseUnit(kind UnitKind) {
	start := p.next() // entity | architecture | package | configuration | context
	if kind == UnitPackageBody {
		p.next() // body
	}
	name := p.peek()
	if name.Kind != KindIdentifier {
		p.diag(start.Pos, "%s requires an identifier, found %q", kind, name.Text)
		p.recover()
		return
	}
	p.next()

	sym := Symbol{Kind: kind, Name: name.Ident, Pos: name.Pos}

	switch kind {
	case UnitArchitecture, UnitConfiguration:
		if !p.peek().IsKeyword("of") {
			p.diag(p.peek().Pos, "%s %s requires an 'of' clause", kind, name.Text)
		} else {
			p.next()
			owner := p.peek()
			if owner.Kind == KindIdentifier {
				p.next()
				sym.Owner = owner.Ident
				if kind == UnitConfiguration {
					// the target entity is a reference for the graph
					sym.Refs = appendRefs(sym.Refs, []Ref{{Suffix: owner.Ident}})
				}
			}
		}
	case UnitPackageBody:
		sym.Owner = name.Ident
	}

	if p.peek().IsKeyword("is") {
		p.next()
	} else {
		p.diag(p.peek().Pos, "%s %s requires 'is', found %q", kind, name.Text, p.peek().Text)
	}

	sym.Refs = appendRefs(sym.Refs, p.pending)
	p.pending = nil

	body := p.scanBody(kind, sym.Name)
	sym.Refs = appendRefs(sym.Refs, body)
	p.symbols = append(p.symbols, sym)
}

// scanBody walks a unit's interior keeping the end-balance, and collects
// references and instantiation targets until the unit's own end statement.
func (p *parser) scanBody(kind UnitKind, name ip.Ident) []Ref {
	var refs []Ref
	depth := 1
	parens := 0
	inBody := false
	var prev Token

	for {
		t := p.peek()
		if t.Kind == KindEOF {
			p.diag(t.Pos, "premature end of file inside %s %s", kind, name)
			return refs
		}
		if t.Kind == KindError {
			p.diag(t.Pos, "%s", t.Err)
			p.next()
			continue
		}

		switch {
		case t.IsDelimiter("("):
			parens++
		case t.IsDelimiter(")"):
			parens--
		case t.Kind == KindIdentifier:
			if chain := p.peekAt(1); chain.IsDelimiter(".") {
				refs = appendRefs(refs, p.collectSelectedName())
				prev = t
				continue
			}
			if inBody && parens == 0 && atStatementStart(prev) && p.peekAt(1).IsDelimiter(":") {
				if r, ok := p.collectInstantiation(); ok {
					refs = appendRefs(refs, r)
					prev = t
					continue
				}
			}
		case t.Kind == KindKeyword:
			switch t.Norm {
			case "begin":
				inBody = true
			case "end":
				depth--
				done := depth == 0
				p.consumeEnd(kind, name, done)
				if done {
					return refs
				}
				prev = Token{Kind: KindDelimiter, Norm: ";"}
				continue
			case "process", "block", "record", "units", "protected", "loop", "generate":
				depth++
			case "component":
				if !prev.IsDelimiter(":") {
					depth++
				}
			case "if":
				if p.aheadOpens("then", "generate") {
					depth++
				}
			case "case":
				if p.aheadOpens("is", "generate") {
					depth++
				}
			case "function", "procedure":
				if p.aheadOpensBody() {
					depth++
				}
			case "package":
				// a nested package declaration opens a region; a
				// package instantiation (`package p is new q`) does not
				if p.peekAt(1).Kind == KindIdentifier && p.peekAt(2).IsKeyword("is") &&
					!p.peekAt(3).IsKeyword("new") {
					depth++
				}
			case "for":
				if kind == UnitConfiguration {
					depth++
				}
			}
		}
		prev = t
		p.next()
	}
}

// aheadOpens reports whether `opener` appears before `blocker` or a
// semicolon in the upcoming tokens. Used to tell statement forms that
// require a matching end from ones terminated by the semicolon.
func (p *parser) aheadOpens(opener, blocker string) bool {
	for n := 1; ; n++ {
		t := p.peekAt(n)
		switch {
		case t.Kind == KindEOF, t.IsDelimiter(";"):
			return false
		case t.IsKeyword(blocker):
			return false
		case t.IsKeyword(opener):
			return true
		}
	}
}

// aheadOpensBody reports whether a subprogram header is followed by a body
// (`is` not introducing an instantiation) before its terminating semicolon.
func (p *parser) aheadOpensBody() bool {
	for n := 1; ; n++ {
		t := p.peekAt(n)
		switch {
		case t.Kind == KindEOF, t.IsDelimiter(";"):
			return false
		case t.IsKeyword("is"):
			return !p.peekAt(n + 1).IsKeyword("new")
		}
	}
}

// consumeEnd eats an end statement through its semicolon. When the end
// closes the unit itself, the optional kind keyword and repeated name are
// checked against the unit header.
func (p *parser) consumeEnd(kind UnitKind, name ip.Ident, closesUnit bool) {
	endTok := p.next() // end
	checkedKind := false
	for !p.atEOF() {
		t := p.peek()
		if t.IsDelimiter(";") {
			p.next()
			return
		}
		if closesUnit {
			if t.Kind == KindKeyword && !checkedKind {
				checkedKind = true
				if !matchesEndKeyword(kind, t.Norm) {
					p.diag(t.Pos, "mismatched end: %s %s closed by 'end %s'", kind, name, t.Norm)
				}
			} else if t.Kind == KindIdentifier && !t.Ident.Equals(name) && !t.Ident.IsZero() {
				p.diag(t.Pos, "mismatched end: %s %s closed by name %q", kind, name, t.Ident)
			}
		}
		p.next()
	}
	p.diag(endTok.Pos, "premature end of file inside end statement of %s %s", kind, name)
}

func matchesEndKeyword(kind UnitKind, word string) bool {
	switch kind {
	case UnitEntity:
		return word == "entity"
	case UnitArchitecture:
		return word == "architecture"
	case UnitPackage, UnitPackageBody:
		return word == "package" || word == "body"
	case UnitContext:
		return word == "context"
	case UnitConfiguration:
		return word == "configuration"
	}
	return false
}

// atStatementStart reports whether prev terminates the previous concurrent
// statement, so the cursor can begin a labeled instantiation.
func atStatementStart(prev Token) bool {
	return prev.IsDelimiter(";") || prev.IsKeyword("begin") ||
		prev.IsKeyword("generate") || prev.IsKeyword("else")
}

// collectInstantiation reads `label : [component|entity|configuration]
// name ...` and returns a reference to the instantiated unit. Qualified
// names contribute their pairs; unqualified ones a bare suffix. Returns
// false when the pattern is not an instantiation (e.g. a block label).
func (p *parser) collectInstantiation() ([]Ref, bool) {
	// cursor: label ':' X ...
	x := p.peekAt(2)
	switch {
	case x.IsKeyword("component"), x.IsKeyword("configuration"), x.IsKeyword("entity"):
		p.next() // label
		p.next() // ':'
		p.next() // keyword
		return p.collectInstanceName()
	case x.Kind == KindIdentifier:
		// bare `label : name` instantiation; block/process labels reach
		// the keyword case instead
		p.next() // label
		p.next() // ':'
		return p.collectInstanceName()
	}
	return nil, false
}

func (p *parser) collectInstanceName() ([]Ref, bool) {
	t := p.peek()
	if t.Kind != KindIdentifier {
		return nil, false
	}
	if p.peekAt(1).IsDelimiter(".") {
		return p.collectSelectedName(), true
	}
	p.next()
	return []Ref{{Suffix: t.Ident}}, true
}

// appendRefs merges reference lists, dropping duplicates while preserving
// first-seen order.
func appendRefs(dst []Ref, src []Ref) []Ref {
	seen := make(map[string]bool, len(dst))
	for _, r := range dst {
		seen[r.key()] = true
	}
	for _, r := range src {
		if !seen[r.key()] {
			seen[r.key()] = true
			dst = append(dst, r)
		}
	}
	return dst
}
