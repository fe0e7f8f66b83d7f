package models

import "time"

// EntryKind is the type column of a rendered timeline.
type EntryKind string

const (
	EntryComment  EntryKind = "Comment"
	EntryApproval EntryKind = "Approval"
	EntryUpdate   EntryKind = "Update"
)

// TimelineEntry is one row of the aggregated review timeline.
type TimelineEntry struct {
	Kind      EntryKind       `json:"kind" yaml:"kind"`
	Actor     string          `json:"actor" yaml:"actor"`
	Timestamp time.Time       `json:"timestamp" yaml:"timestamp"`
	Text      string          `json:"text" yaml:"text"`
	Commit    *Hash           `json:"commit,omitempty" yaml:"commit,omitempty"`
	Inline    *InlineLocation `json:"inline,omitempty" yaml:"inline,omitempty"`
}

// Timeline is everything rendered for one pull request.
type Timeline struct {
	PullRequest PullRequest     `json:"pull_request" yaml:"pull_request"`
	Commits     []Hash          `json:"commits" yaml:"commits"`
	Walked      int             `json:"walked_commits" yaml:"walked_commits"`
	Entries     []TimelineEntry `json:"entries" yaml:"entries"`
}
