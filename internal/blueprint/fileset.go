// Package blueprint turns a resolved, transformed dependency graph into
// the ordered file list a target tool consumes.
package blueprint

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Scheme selects which filesets the emitter includes.
type Scheme int

const (
	// SchemeSynthesis excludes testbench files.
	SchemeSynthesis Scheme = iota

	// SchemeSimulation includes everything.
	SchemeSimulation
)

func (s Scheme) String() string {
	switch s {
	case SchemeSynthesis:
		return "synthesis"
	case SchemeSimulation:
		return "simulation"
	}
	return "unknown"
}

// ParseScheme parses a scheme name.
func ParseScheme(s string) (Scheme, bool) {
	switch strings.ToLower(s) {
	case "synthesis", "syn":
		return SchemeSynthesis, true
	case "simulation", "sim":
		return SchemeSimulation, true
	}
	return SchemeSynthesis, false
}

// Fileset tags a group of files matched by glob patterns against
// IP-relative paths.
type Fileset struct {
	// Tag is the label emitted in the blueprint line.
	Tag string

	// Patterns are doublestar globs over forward-slash relative paths.
	Patterns []string

	// Testbench filesets are dropped under the synthesis scheme.
	Testbench bool
}

// Matches reports whether a relative path belongs to the fileset.
func (f *Fileset) Matches(rel string) bool {
	for _, p := range f.Patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
		// bare-extension patterns match at any depth
		if !strings.Contains(p, "/") {
			if ok, err := doublestar.Match(p, path.Base(rel)); err == nil && ok {
				return true
			}
		}
	}
	return false
}

// DefaultFilesets is the built-in set used when no target overrides it:
// VHDL sources, with testbenches split out by conventional naming.
func DefaultFilesets() []Fileset {
	return []Fileset{
		{
			Tag:       "VHDL-RTL",
			Patterns:  []string{"*.vhd", "*.vhdl"},
			Testbench: false,
		},
		{
			Tag:       "VHDL-SIM",
			Patterns:  []string{"*_tb.vhd", "*_tb.vhdl", "tb_*.vhd", "tb_*.vhdl"},
			Testbench: true,
		},
	}
}

// Classify resolves the fileset for one relative path. Later filesets win
// over earlier ones so the more specific testbench set overrides the
// general source set. Returns false when no fileset matches or the
// matched set is excluded by the scheme.
func Classify(filesets []Fileset, scheme Scheme, rel string) (string, bool) {
	tag := ""
	testbench := false
	for i := range filesets {
		if filesets[i].Matches(rel) {
			tag = filesets[i].Tag
			testbench = filesets[i].Testbench
		}
	}
	if tag == "" {
		return "", false
	}
	if testbench && scheme == SchemeSynthesis {
		return "", false
	}
	return tag, true
}
