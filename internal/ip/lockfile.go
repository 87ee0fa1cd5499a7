package ip

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"

	"github.com/orbit-hdl/orbit/internal/orbit"
)

// LockEntry pins one IP of a resolved dependency set.
//
// The root entry (the working IP) omits its Sum: the working copy is
// mutable, so a captured digest would go stale immediately.
type LockEntry struct {
	Name    Ident
	Version Version
	Sum     *Sum
	Source  *Source
	// Dependencies lists the exact (name, version) pairs this entry
	// resolved against, sorted by name then version.
	Dependencies []Pin
}

// Pin returns the entry's identity.
func (e *LockEntry) Pin() Pin {
	return Pin{Name: e.Name, Version: e.Version}
}

// SlotName derives the entry's cache slot directory name. Requires a
// recorded checksum.
func (e *LockEntry) SlotName() (string, bool) {
	if e.Sum == nil {
		return "", false
	}
	return fmt.Sprintf("%s-%s-%s", e.Name, e.Version, e.Sum.Prefix()), true
}

// LockFile is a resolved dependency set: the root entry first, the rest
// sorted by (name, version).
type LockFile struct {
	entries []LockEntry
}

// NewLockFile orders entries into lockfile form. The entry matching root
// is placed first; all others are sorted by (name, version).
func NewLockFile(root Pin, entries []LockEntry) *LockFile {
	var first *LockEntry
	rest := make([]LockEntry, 0, len(entries))
	for i := range entries {
		if entries[i].Pin().Key() == root.Key() {
			e := entries[i]
			first = &e
			continue
		}
		rest = append(rest, entries[i])
	}
	sort.Slice(rest, func(i, j int) bool {
		return rest[i].Pin().Less(rest[j].Pin())
	})
	lf := &LockFile{}
	if first != nil {
		first.Sum = nil // never record a digest for the mutable root
		lf.entries = append(lf.entries, *first)
	}
	lf.entries = append(lf.entries, rest...)
	return lf
}

// Entries returns the ordered entry list.
func (lf *LockFile) Entries() []LockEntry {
	return lf.entries
}

// Root returns the first entry, which must be the working IP.
func (lf *LockFile) Root() (*LockEntry, bool) {
	if len(lf.entries) == 0 {
		return nil, false
	}
	return &lf.entries[0], true
}

// Get returns the exact (name, version) entry.
func (lf *LockFile) Get(name Ident, version Version) (*LockEntry, bool) {
	for i := range lf.entries {
		if lf.entries[i].Name.Equals(name) && lf.entries[i].Version == version {
			return &lf.entries[i], true
		}
	}
	return nil, false
}

// GetHighest returns the entry with the highest version for name that
// satisfies the requirement.
func (lf *LockFile) GetHighest(name Ident, req AnyVersion) (*LockEntry, bool) {
	var versions []Version
	for i := range lf.entries {
		if lf.entries[i].Name.Equals(name) {
			versions = append(versions, lf.entries[i].Version)
		}
	}
	best, ok := HighestCompatible(versions, req)
	if !ok {
		return nil, false
	}
	return lf.Get(name, best)
}

// IsUsable reports whether the lockfile still describes the manifest:
// the root entry matches, every declared dependency has a satisfying
// entry, and every recorded dependency pin resolves inside the file.
// Changing only descriptive manifest fields does not invalidate a lock.
func (lf *LockFile) IsUsable(man *Manifest, withDev bool) bool {
	root, ok := lf.Root()
	if !ok {
		return false
	}
	if !root.Name.Equals(man.Name) || root.Version != man.Version {
		return false
	}
	for _, dep := range man.DepsList(withDev) {
		if _, ok := lf.GetHighest(dep.Name, AnySpecific(dep.Version)); !ok {
			return false
		}
	}
	for i := range lf.entries {
		for _, pin := range lf.entries[i].Dependencies {
			if _, ok := lf.Get(pin.Name, pin.Version); !ok {
				return false
			}
		}
	}
	return true
}

// serialization shapes for go-toml

type lockDoc struct {
	Ip []lockEntryDoc `toml:"ip"`
}

type lockEntryDoc struct {
	Name         string       `toml:"name"`
	Version      string       `toml:"version"`
	Sum          string       `toml:"sum,omitempty"`
	Source       string       `toml:"source,omitempty"`
	Dependencies []lockDepDoc `toml:"dependencies,omitempty"`
}

type lockDepDoc struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Marshal renders the lockfile as deterministic TOML bytes.
func (lf *LockFile) Marshal() ([]byte, error) {
	doc := lockDoc{Ip: make([]lockEntryDoc, 0, len(lf.entries))}
	for i := range lf.entries {
		e := &lf.entries[i]
		entry := lockEntryDoc{
			Name:    e.Name.String(),
			Version: e.Version.String(),
		}
		if e.Sum != nil {
			entry.Sum = e.Sum.String()
		}
		if e.Source != nil {
			entry.Source = e.Source.String()
		}
		for _, pin := range e.Dependencies {
			entry.Dependencies = append(entry.Dependencies, lockDepDoc{
				Name:    pin.Name.String(),
				Version: pin.Version.String(),
			})
		}
		doc.Ip = append(doc.Ip, entry)
	}
	return toml.Marshal(doc)
}

// ParseLockFile decodes lockfile bytes. Entry order is preserved as read.
func ParseLockFile(data []byte) (*LockFile, error) {
	var doc lockDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed lockfile: %w", err)
	}
	lf := &LockFile{}
	for _, raw := range doc.Ip {
		name, err := ParseIdent(raw.Name)
		if err != nil {
			return nil, fmt.Errorf("lockfile entry: %w", err)
		}
		version, err := ParseVersion(raw.Version)
		if err != nil {
			return nil, fmt.Errorf("lockfile entry %s: %w", raw.Name, err)
		}
		entry := LockEntry{Name: name, Version: version}
		if raw.Sum != "" {
			sum, err := ParseSum(raw.Sum)
			if err != nil {
				return nil, fmt.Errorf("lockfile entry %s: %w", raw.Name, err)
			}
			entry.Sum = &sum
		}
		if raw.Source != "" {
			entry.Source, err = ParseSource(raw.Source)
			if err != nil {
				return nil, fmt.Errorf("lockfile entry %s: %w", raw.Name, err)
			}
		}
		for _, dep := range raw.Dependencies {
			depName, err := ParseIdent(dep.Name)
			if err != nil {
				return nil, fmt.Errorf("lockfile entry %s: %w", raw.Name, err)
			}
			depVersion, err := ParseVersion(dep.Version)
			if err != nil {
				return nil, fmt.Errorf("lockfile entry %s: %w", raw.Name, err)
			}
			entry.Dependencies = append(entry.Dependencies, Pin{Name: depName, Version: depVersion})
		}
		lf.entries = append(lf.entries, entry)
	}
	return lf, nil
}

// LoadLockFile reads Orbit.lock under root. A missing file yields an empty
// lockfile.
func LoadLockFile(root string) (*LockFile, error) {
	data, err := os.ReadFile(filepath.Join(root, orbit.LockFile))
	if os.IsNotExist(err) {
		return &LockFile{}, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseLockFile(data)
}

// Save writes the lockfile under root atomically: the bytes land in a
// uniquely named temporary file that is then renamed over Orbit.lock, so a
// crash leaves either the old lock or the new one.
func (lf *LockFile) Save(root string) error {
	data, err := lf.Marshal()
	if err != nil {
		return err
	}
	tmp := filepath.Join(root, ".orbit-lock-"+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, filepath.Join(root, orbit.LockFile)); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// IsEmpty reports whether the lockfile holds no entries.
func (lf *LockFile) IsEmpty() bool {
	return len(lf.entries) == 0
}
