package models

import "time"

// PullRequest is a snapshot of one pull request.
type PullRequest struct {
	ID           int       `json:"id" yaml:"id"`
	Title        string    `json:"title" yaml:"title"`
	Author       string    `json:"author" yaml:"author"`
	State        string    `json:"state" yaml:"state"`
	CommentCount int       `json:"comment_count" yaml:"comment_count"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}

type (
	// InlineLocation places a comment on a file and line range.
	InlineLocation struct {
		Path string `json:"path,omitempty" yaml:"path,omitempty"`
		From *int   `json:"from,omitempty" yaml:"from,omitempty"`
		To   *int   `json:"to,omitempty" yaml:"to,omitempty"`
	}

	// Comment is a PR-level or commit-level comment.
	Comment struct {
		User      string
		CreatedAt time.Time
		Body      string
		Inline    *InlineLocation
	}

	// Approval records a reviewer approving the PR.
	Approval struct {
		User string
		Date time.Time
	}

	// Update records the PR branch tip moving, e.g. after a rebase or force-push.
	Update struct {
		Author      string
		Date        time.Time
		Source      Hash
		Destination Hash
	}
)

// ActivityKind discriminates ActivityEntry.
type ActivityKind string

const (
	ActivityComment  ActivityKind = "comment"
	ActivityApproval ActivityKind = "approval"
	ActivityUpdate   ActivityKind = "update"
)

// ActivityEntry is one item of a PR activity feed. Exactly the field matching
// Kind is set.
type ActivityEntry struct {
	Kind     ActivityKind
	Comment  *Comment
	Approval *Approval
	Update   *Update
}

func NewCommentActivity(c Comment) ActivityEntry {
	return ActivityEntry{Kind: ActivityComment, Comment: &c}
}

func NewApprovalActivity(a Approval) ActivityEntry {
	return ActivityEntry{Kind: ActivityApproval, Approval: &a}
}

func NewUpdateActivity(u Update) ActivityEntry {
	return ActivityEntry{Kind: ActivityUpdate, Update: &u}
}
