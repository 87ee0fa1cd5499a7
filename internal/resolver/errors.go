// Package resolver builds the dependency graph of a working IP against the
// catalog, installs what the graph needs, writes the lockfile, and runs
// the dynamic symbol transformation when the graph carries duplicate
// identifiers.
package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/orbit-hdl/orbit/internal/ip"
)

// ResolveError represents a failure to assemble the dependency graph.
//
// Resolution errors include:
//   - Unresolved dependency: no catalog candidate satisfies a requirement
//   - Cyclic dependency: the graph is not a DAG
type ResolveError struct {
	// Code identifies the error category.
	Code ResolveErrorCode

	// Name identifies the dependency that failed to resolve.
	Name ip.Ident

	// Req is the version requirement that had no candidate.
	Req string

	// Path is the cycle, first node repeated at the end.
	Path []ip.Pin
}

// ResolveErrorCode categorizes resolution errors.
type ResolveErrorCode string

const (
	// ErrCodeUnresolved indicates no candidate satisfies a requirement.
	ErrCodeUnresolved ResolveErrorCode = "UNRESOLVED_DEPENDENCY"

	// ErrCodeCyclic indicates the dependency graph contains a cycle.
	ErrCodeCyclic ResolveErrorCode = "CYCLIC_DEPENDENCY"
)

// Error implements the error interface.
func (e *ResolveError) Error() string {
	switch e.Code {
	case ErrCodeUnresolved:
		return fmt.Sprintf("%s: no version of %s satisfies %s", e.Code, e.Name, e.Req)
	case ErrCodeCyclic:
		steps := make([]string, len(e.Path))
		for i, p := range e.Path {
			steps[i] = p.String()
		}
		return fmt.Sprintf("%s: %s", e.Code, strings.Join(steps, " -> "))
	}
	return string(e.Code)
}

// IsUnresolved reports whether err is an unresolved-dependency failure.
// Uses errors.As to handle wrapped errors.
func IsUnresolved(err error) bool {
	var re *ResolveError
	return errors.As(err, &re) && re.Code == ErrCodeUnresolved
}

// IsCyclic reports whether err is a cyclic-dependency failure.
func IsCyclic(err error) bool {
	var re *ResolveError
	return errors.As(err, &re) && re.Code == ErrCodeCyclic
}
