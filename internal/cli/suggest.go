package cli

import (
	"github.com/agnivade/levenshtein"

	"github.com/orbit-hdl/orbit/internal/catalog"
	"github.com/orbit-hdl/orbit/internal/ip"
)

// maxSuggestDistance bounds how far a hint may be from the input.
const maxSuggestDistance = 4

// suggestName returns the catalog name closest to the requested one, when
// close enough to plausibly be a typo.
func suggestName(cat *catalog.Catalog, name ip.Ident) (string, bool) {
	want := name.Key()
	best := ""
	bestDist := maxSuggestDistance + 1
	for _, candidate := range cat.Names() {
		d := levenshtein.ComputeDistance(want, candidate.Key())
		if d < bestDist {
			bestDist = d
			best = candidate.String()
		}
	}
	return best, best != "" && bestDist <= maxSuggestDistance
}
