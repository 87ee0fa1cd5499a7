// Package ip models identifiers, versions, manifests, and lockfiles for
// versioned IP packages.
package ip

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/pelletier/go-toml/v2"

	"github.com/orbit-hdl/orbit/internal/orbit"
)

//go:embed schema.cue
var manifestSchema string

// Dependency is one declared direct dependency: a name and the
// partial-version requirement it must satisfy.
type Dependency struct {
	Name    Ident
	Version PartialVersion
}

// Manifest is the typed view of an Orbit.toml file.
//
// (Name, Version) uniquely identifies an IP release. Library is a namespace
// hint for HDL compilation, not part of identity.
type Manifest struct {
	Name            Ident
	Version         Version
	Library         Ident // zero when unset
	Description     string
	Source          *Source // nil means no automatic fetch
	Dependencies    []Dependency
	DevDependencies []Dependency
}

// ParseManifest decodes and validates manifest text.
//
// The raw TOML is first validated against the embedded CUE schema so shape
// errors carry field paths, then lifted into the typed Manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed manifest: %w", err)
	}
	if err := validateManifest(raw); err != nil {
		return nil, err
	}
	return liftManifest(raw)
}

// ParseManifestFile reads and parses the manifest at path.
func ParseManifestFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	man, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return man, nil
}

func validateManifest(raw map[string]any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(manifestSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("internal manifest schema error: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Manifest"))
	unified := def.Unify(ctx.Encode(raw))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("malformed manifest: %s", cueerrors.Details(err, nil))
	}
	return nil
}

func liftManifest(raw map[string]any) (*Manifest, error) {
	ipTable, _ := raw["ip"].(map[string]any)
	man := &Manifest{}

	name, err := ParseIdent(stringAt(ipTable, "name"))
	if err != nil {
		return nil, err
	}
	man.Name = name

	man.Version, err = ParseVersion(stringAt(ipTable, "version"))
	if err != nil {
		return nil, err
	}

	if lib := stringAt(ipTable, "library"); lib != "" {
		man.Library, err = ParseIdent(lib)
		if err != nil {
			return nil, err
		}
	}
	man.Description = stringAt(ipTable, "description")

	if src, ok := ipTable["source"]; ok {
		man.Source, err = liftSource(src)
		if err != nil {
			return nil, err
		}
	}

	man.Dependencies, err = liftDependencies(raw["dependencies"])
	if err != nil {
		return nil, err
	}
	man.DevDependencies, err = liftDependencies(raw["dev-dependencies"])
	if err != nil {
		return nil, err
	}
	return man, nil
}

func liftSource(v any) (*Source, error) {
	switch src := v.(type) {
	case string:
		return ParseSource(src)
	case map[string]any:
		s := &Source{
			URL:      stringAt(src, "url"),
			Protocol: stringAt(src, "protocol"),
			Tag:      stringAt(src, "tag"),
		}
		if s.URL == "" {
			return nil, fmt.Errorf("source table requires a url")
		}
		return s, nil
	default:
		return nil, fmt.Errorf("source must be a string or a table")
	}
}

func liftDependencies(v any) ([]Dependency, error) {
	table, ok := v.(map[string]any)
	if !ok {
		return nil, nil
	}
	deps := make([]Dependency, 0, len(table))
	for name, req := range table {
		id, err := ParseIdent(name)
		if err != nil {
			return nil, fmt.Errorf("dependency %q: %w", name, err)
		}
		reqStr, ok := req.(string)
		if !ok {
			return nil, fmt.Errorf("dependency %q: version must be a string", name)
		}
		pv, err := ParsePartialVersion(reqStr)
		if err != nil {
			return nil, fmt.Errorf("dependency %q: %w", name, err)
		}
		deps = append(deps, Dependency{Name: id, Version: pv})
	}
	SortDependencies(deps)
	return deps, nil
}

func stringAt(table map[string]any, key string) string {
	s, _ := table[key].(string)
	return s
}

// SortDependencies orders dependencies by name key, then requirement text.
func SortDependencies(deps []Dependency) {
	sort.Slice(deps, func(i, j int) bool {
		if k1, k2 := deps[i].Name.Key(), deps[j].Name.Key(); k1 != k2 {
			return k1 < k2
		}
		return deps[i].Version.String() < deps[j].Version.String()
	})
}

// DepsList returns the declared dependencies, including dev-dependencies
// when withDev is set. The result is freshly allocated and sorted.
func (m *Manifest) DepsList(withDev bool) []Dependency {
	deps := make([]Dependency, 0, len(m.Dependencies)+len(m.DevDependencies))
	deps = append(deps, m.Dependencies...)
	if withDev {
		deps = append(deps, m.DevDependencies...)
	}
	SortDependencies(deps)
	return deps
}

// Pin returns the manifest's identity as a (name, version) pair.
func (m *Manifest) Pin() Pin {
	return Pin{Name: m.Name, Version: m.Version}
}

// HdlLibrary returns the logical library name for the IP's design units:
// the declared library if present, else the IP name folded to a legal VHDL
// identifier.
func (m *Manifest) HdlLibrary() string {
	if !m.Library.IsZero() {
		return m.Library.VhdlLibrary()
	}
	return m.Name.VhdlLibrary()
}

// TemplateManifest composes the starter manifest text written by the `new`
// and `init` commands.
func TemplateManifest(name Ident) string {
	return fmt.Sprintf(`[ip]
name = %q
version = "0.1.0"

# To learn more about writing an Orbit.toml file, see the manifest reference.

[dependencies]
`, name.String())
}

// TemplateManifestWithLibrary is TemplateManifest with an explicit library.
func TemplateManifestWithLibrary(name, library Ident) string {
	return fmt.Sprintf(`[ip]
name = %q
version = "0.1.0"
library = %q

# To learn more about writing an Orbit.toml file, see the manifest reference.

[dependencies]
`, name.String(), library.String())
}

// Ip is an IP rooted at a directory with its parsed manifest.
type Ip struct {
	Root string
	Man  *Manifest
	// Sum is the recorded checksum for installed copies; nil for a
	// working (mutable) IP.
	Sum *Sum
	// Dynamic marks a DST copy; never a fresh install candidate.
	Dynamic bool
}

// LoadIp parses the manifest under root and, when present, the recorded
// checksum and dynamic metadata of an installed copy.
func LoadIp(root string) (*Ip, error) {
	man, err := ParseManifestFile(filepath.Join(root, orbit.ManifestFile))
	if err != nil {
		return nil, err
	}
	entry := &Ip{Root: root, Man: man}
	if sum, err := ReadSumFile(filepath.Join(root, orbit.SumFile)); err == nil {
		entry.Sum = &sum
	}
	meta, err := ReadMetadataFile(filepath.Join(root, orbit.MetadataFile))
	if err == nil && meta != nil {
		entry.Dynamic = meta.Dynamic
	}
	return entry, nil
}

// FindWorkingIp ascends from start to the first directory containing a
// manifest file and loads it. Returns os.ErrNotExist when no manifest is
// found on the path to the filesystem root.
func FindWorkingIp(start string) (*Ip, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return nil, err
	}
	for {
		candidate := filepath.Join(dir, orbit.ManifestFile)
		if _, err := os.Stat(candidate); err == nil {
			return LoadIp(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, fmt.Errorf("no %s found from %s upward: %w", orbit.ManifestFile, start, os.ErrNotExist)
		}
		dir = parent
	}
}
