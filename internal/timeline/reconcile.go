package timeline

import (
	"slices"

	"github.com/mojotech/prist/internal/models"
)

// Reconcile merges hash references into a CommitSet. Empty strings are
// dropped and any two hashes where one is a prefix of the other collapse into
// the longer one.
//
// Only neighbours in sorted order are compared. An abbreviation that prefixes
// two different full hashes collapses into the first of them and the second
// is kept separately.
func Reconcile(hashes []models.Hash) models.CommitSet {
	sorted := make([]models.Hash, 0, len(hashes))
	for _, h := range hashes {
		if h != "" {
			sorted = append(sorted, h)
		}
	}
	slices.Sort(sorted)

	out := make([]models.Hash, 0, len(sorted))
	for _, h := range sorted {
		if n := len(out); n > 0 && out[n-1].Same(h) {
			if len(h) > len(out[n-1]) {
				out[n-1] = h
			}
			continue
		}
		out = append(out, h)
	}
	return models.NewCommitSet(out)
}
