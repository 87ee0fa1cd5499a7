package ip

import (
	"fmt"
	"strings"
)

// Spec is a user-facing IP request: a name plus a version requirement.
// Rendered as "name" or "name:version".
type Spec struct {
	Name    Ident
	Version AnyVersion
}

// ParseSpec parses "name" or "name:version" where version is "latest" or a
// partial version.
func ParseSpec(s string) (Spec, error) {
	name, ver, hasVer := strings.Cut(s, ":")
	id, err := ParseIdent(name)
	if err != nil {
		return Spec{}, fmt.Errorf("ip spec %q: %w", s, err)
	}
	av := AnyLatest()
	if hasVer {
		av, err = ParseAnyVersion(ver)
		if err != nil {
			return Spec{}, fmt.Errorf("ip spec %q: %w", s, err)
		}
	}
	return Spec{Name: id, Version: av}, nil
}

func (s Spec) String() string {
	if s.Version.IsLatest() {
		return s.Name.String()
	}
	return fmt.Sprintf("%s:%s", s.Name, s.Version)
}

// Pin is a fully resolved (name, exact version) pair. It is the node key of
// the dependency graph and the dependency element of a lock entry.
type Pin struct {
	Name    Ident
	Version Version
}

func (p Pin) String() string {
	return fmt.Sprintf("%s:%s", p.Name, p.Version)
}

// Key returns a deterministic map key for the pin.
func (p Pin) Key() string {
	return p.Name.Key() + ":" + p.Version.String()
}

// Less orders pins by name key, then version.
func (p Pin) Less(other Pin) bool {
	if k1, k2 := p.Name.Key(), other.Name.Key(); k1 != k2 {
		return k1 < k2
	}
	return p.Version.Cmp(other.Version) < 0
}
