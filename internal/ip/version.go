package ip

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Version is a fully specified major.minor.patch release number.
// The zero value is 0.0.0.
type Version struct {
	Major uint64
	Minor uint64
	Patch uint64
}

// ParseVersion parses a fully specified "X.Y.Z" string.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("version %q must have exactly three levels", s)
	}
	nums := make([]uint64, 3)
	for i, p := range parts {
		n, err := parseVersionLevel(p)
		if err != nil {
			return Version{}, fmt.Errorf("version %q: %w", s, err)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

func parseVersionLevel(p string) (uint64, error) {
	if p == "" {
		return 0, fmt.Errorf("empty version level")
	}
	n, err := strconv.ParseUint(p, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version level %q", p)
	}
	return n, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Cmp returns -1, 0, or 1 comparing by (major, minor, patch).
func (v Version) Cmp(other Version) int {
	pairs := [3][2]uint64{
		{v.Major, other.Major},
		{v.Minor, other.Minor},
		{v.Patch, other.Patch},
	}
	for _, p := range pairs {
		if p[0] < p[1] {
			return -1
		}
		if p[0] > p[1] {
			return 1
		}
	}
	return 0
}

// IsZero reports whether the version is 0.0.0.
func (v Version) IsZero() bool {
	return v == Version{}
}

// PartialVersion is a version requirement with optional lower levels.
// "1" matches every 1.y.z, "1.2" matches every 1.2.z, "1.2.3" matches only
// itself.
type PartialVersion struct {
	Major uint64
	Minor *uint64
	Patch *uint64
}

// ParsePartialVersion parses "X", "X.Y", or "X.Y.Z".
func ParsePartialVersion(s string) (PartialVersion, error) {
	parts := strings.Split(s, ".")
	if len(parts) == 0 || len(parts) > 3 {
		return PartialVersion{}, fmt.Errorf("version %q must have one to three levels", s)
	}
	var pv PartialVersion
	for i, p := range parts {
		n, err := parseVersionLevel(p)
		if err != nil {
			return PartialVersion{}, fmt.Errorf("version %q: %w", s, err)
		}
		switch i {
		case 0:
			pv.Major = n
		case 1:
			m := n
			pv.Minor = &m
		case 2:
			m := n
			pv.Patch = &m
		}
	}
	return pv, nil
}

// PartialFrom pins a partial version to an exact version.
func PartialFrom(v Version) PartialVersion {
	minor, patch := v.Minor, v.Patch
	return PartialVersion{Major: v.Major, Minor: &minor, Patch: &patch}
}

func (pv PartialVersion) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", pv.Major)
	if pv.Minor != nil {
		fmt.Fprintf(&b, ".%d", *pv.Minor)
		if pv.Patch != nil {
			fmt.Fprintf(&b, ".%d", *pv.Patch)
		}
	}
	return b.String()
}

// IsCompatible reports whether the version matches every level the
// requirement specifies. Unspecified levels match anything.
func (pv PartialVersion) IsCompatible(v Version) bool {
	if pv.Major != v.Major {
		return false
	}
	if pv.Minor == nil {
		return true
	}
	if *pv.Minor != v.Minor {
		return false
	}
	if pv.Patch == nil {
		return true
	}
	return *pv.Patch == v.Patch
}

// IsFullyQualified reports whether all three levels are specified.
func (pv PartialVersion) IsFullyQualified() bool {
	return pv.Minor != nil && pv.Patch != nil
}

// AnyVersion is a user-facing version request: either "latest" or a
// partial-version prefix.
type AnyVersion struct {
	spec *PartialVersion
}

// AnyLatest requests the numerically highest known version.
func AnyLatest() AnyVersion { return AnyVersion{} }

// AnySpecific requests versions matching a partial-version prefix.
func AnySpecific(pv PartialVersion) AnyVersion { return AnyVersion{spec: &pv} }

// AnyFrom pins a request to an exact version.
func AnyFrom(v Version) AnyVersion { return AnySpecific(PartialFrom(v)) }

// ParseAnyVersion parses "latest" or a partial version string.
func ParseAnyVersion(s string) (AnyVersion, error) {
	if s == "" || s == "latest" {
		return AnyLatest(), nil
	}
	pv, err := ParsePartialVersion(s)
	if err != nil {
		return AnyVersion{}, err
	}
	return AnySpecific(pv), nil
}

// IsLatest reports whether the request is for the latest version.
func (av AnyVersion) IsLatest() bool { return av.spec == nil }

// AsSpecific returns the partial-version requirement, if any.
func (av AnyVersion) AsSpecific() (PartialVersion, bool) {
	if av.spec == nil {
		return PartialVersion{}, false
	}
	return *av.spec, true
}

// Matches reports whether a concrete version satisfies the request.
// Latest matches every version; selection among matches is the caller's
// job (see HighestCompatible).
func (av AnyVersion) Matches(v Version) bool {
	if av.spec == nil {
		return true
	}
	return av.spec.IsCompatible(v)
}

func (av AnyVersion) String() string {
	if av.spec == nil {
		return "latest"
	}
	return av.spec.String()
}

// HighestCompatible selects the maximum version satisfying the request,
// comparing by (major, minor, patch). Returns false when no candidate
// matches.
func HighestCompatible(versions []Version, req AnyVersion) (Version, bool) {
	var best Version
	found := false
	for _, v := range versions {
		if !req.Matches(v) {
			continue
		}
		if !found || v.Cmp(best) > 0 {
			best = v
			found = true
		}
	}
	return best, found
}

// SortVersions orders versions ascending by (major, minor, patch).
func SortVersions(versions []Version) {
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Cmp(versions[j]) < 0
	})
}
