package regex

import "regexp"

var (
	// Remote URL patterns
	ScpLikeRemote = regexp.MustCompile(`^(?:[^@/]+@)?([^:/]+):(.+)$`)
)
