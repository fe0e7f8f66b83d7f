package models

import (
	"sort"
	"strings"
)

// Hash identifies a commit. It is either a full SHA or an abbreviation of one.
type Hash string

// Same reports whether h and other denote the same commit: both are non-empty
// and one is a prefix of the other.
func (h Hash) Same(other Hash) bool {
	if h == "" || other == "" {
		return false
	}
	if len(h) <= len(other) {
		return strings.HasPrefix(string(other), string(h))
	}
	return strings.HasPrefix(string(h), string(other))
}

// Short returns the seven character display form.
func (h Hash) Short() string {
	if len(h) <= 7 {
		return string(h)
	}
	return string(h[:7])
}

func (h Hash) String() string {
	return string(h)
}

// CommitRecord is one node of the remote commit graph.
type CommitRecord struct {
	Hash    Hash
	Parents []Hash
}

// FirstParent returns the first recorded parent, if any.
func (c CommitRecord) FirstParent() (Hash, bool) {
	if len(c.Parents) == 0 {
		return "", false
	}
	return c.Parents[0], true
}

// CommitSet is a deduplicated, lexicographically ordered set of hashes.
type CommitSet struct {
	hashes []Hash
}

// NewCommitSet wraps hashes that are already sorted and free of prefix duplicates.
func NewCommitSet(sorted []Hash) CommitSet {
	hashes := make([]Hash, len(sorted))
	copy(hashes, sorted)
	return CommitSet{hashes: hashes}
}

// Values returns a copy of the members in set order.
func (s CommitSet) Values() []Hash {
	out := make([]Hash, len(s.hashes))
	copy(out, s.hashes)
	return out
}

func (s CommitSet) Len() int {
	return len(s.hashes)
}

// Contains reports whether a member denotes the same commit as h.
func (s CommitSet) Contains(h Hash) bool {
	if h == "" {
		return false
	}
	i := sort.Search(len(s.hashes), func(i int) bool { return s.hashes[i] >= h })
	for _, j := range []int{i - 1, i} {
		if j >= 0 && j < len(s.hashes) && s.hashes[j].Same(h) {
			return true
		}
	}
	return false
}
