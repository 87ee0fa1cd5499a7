package vhdl

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/orbit-hdl/orbit/internal/ip"
)

// PrimaryUnit is a referenceable top-level design unit discovered in one
// IP, with the references collected from it and its secondary units.
type PrimaryUnit struct {
	Kind UnitKind
	Name ip.Ident
	File string // path relative to the IP root, forward slashes
	Pos  Position
	Refs []Ref
}

// DuplicateUnitError reports two primary units with the same identifier
// inside one IP. Duplicates across distinct IPs are allowed (they are what
// DST resolves); within one IP they are fatal.
type DuplicateUnitError struct {
	Name       ip.Ident
	FirstFile  string
	FirstPos   Position
	SecondFile string
	SecondPos  Position
}

func (e *DuplicateUnitError) Error() string {
	return fmt.Sprintf("duplicate design unit %q declared at %s:%s and %s:%s",
		e.Name, e.FirstFile, e.FirstPos, e.SecondFile, e.SecondPos)
}

// IsVhdlFile reports whether a path names a VHDL source file.
func IsVhdlFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vhd", ".vhdl":
		return true
	}
	return false
}

// CollectUnits indexes the primary design units of the IP rooted at root.
// The map is keyed by the identifier's comparison key. Architectures,
// package bodies, and configurations fold their references into the
// primary unit they belong to when it exists in the same IP.
func CollectUnits(root string) (map[string]*PrimaryUnit, error) {
	files, err := ip.GatherFiles(root)
	if err != nil {
		return nil, err
	}
	units := make(map[string]*PrimaryUnit)
	var secondaries []Symbol

	for _, rel := range files {
		if !IsVhdlFile(rel) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return nil, err
		}
		symbols, _ := ParseSource(string(data))
		for _, sym := range symbols {
			if !sym.Kind.IsPrimary() {
				secondaries = append(secondaries, sym)
				continue
			}
			key := sym.Name.Key()
			if existing, ok := units[key]; ok {
				return nil, &DuplicateUnitError{
					Name:       sym.Name,
					FirstFile:  existing.File,
					FirstPos:   existing.Pos,
					SecondFile: rel,
					SecondPos:  sym.Pos,
				}
			}
			units[key] = &PrimaryUnit{
				Kind: sym.Kind,
				Name: sym.Name,
				File: rel,
				Pos:  sym.Pos,
				Refs: sym.Refs,
			}
		}
	}

	// fold secondary unit references into their primaries; a secondary
	// whose primary lives in a different IP contributes nothing here,
	// the cross-IP dependency is already visible as a reference
	for _, sym := range secondaries {
		if owner, ok := units[sym.Owner.Key()]; ok {
			owner.Refs = appendRefs(owner.Refs, sym.Refs)
		}
	}
	return units, nil
}

// UnitNames returns the unit identifiers in deterministic key order.
func UnitNames(units map[string]*PrimaryUnit) []ip.Ident {
	keys := make([]string, 0, len(units))
	for k := range units {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	names := make([]ip.Ident, 0, len(keys))
	for _, k := range keys {
		names = append(names, units[k].Name)
	}
	return names
}

// AllRefs flattens every reference of an IP's unit index in deterministic
// order.
func AllRefs(units map[string]*PrimaryUnit) []Ref {
	keys := make([]string, 0, len(units))
	for k := range units {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var refs []Ref
	for _, k := range keys {
		refs = appendRefs(refs, units[k].Refs)
	}
	return refs
}
