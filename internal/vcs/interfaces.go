package vcs

import (
	"context"

	"github.com/mojotech/prist/internal/models"
)

// Page is one page of a paginated listing. An empty Next marks the last page.
type Page[T any] struct {
	Values []T
	Next   string
}

// Gateway is the REST surface of a hosting provider, scoped to one repository.
// Listing methods take an opaque cursor; the empty cursor requests the first page.
type Gateway interface {
	// PullRequestsPage lists open pull requests.
	PullRequestsPage(ctx context.Context, cursor string) (Page[models.PullRequest], error)
	// PullRequest gets a single pull request.
	PullRequest(ctx context.Context, id int) (models.PullRequest, error)
	// CommitsPage lists the current commits of a pull request.
	CommitsPage(ctx context.Context, prID int, cursor string) (Page[models.Hash], error)
	// ActivityPage lists the activity feed of a pull request.
	ActivityPage(ctx context.Context, prID int, pageSize int, cursor string) (Page[models.ActivityEntry], error)
	// Commit gets one commit with its parent hashes.
	Commit(ctx context.Context, hash models.Hash) (models.CommitRecord, error)
	// MergeBase resolves the merge base of two commits.
	MergeBase(ctx context.Context, a, b models.Hash) (models.CommitRecord, error)
	// CommitCommentsPage lists the comments made on a commit.
	CommitCommentsPage(ctx context.Context, hash models.Hash, cursor string) (Page[models.Comment], error)
}
