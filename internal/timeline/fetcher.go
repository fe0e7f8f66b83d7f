package timeline

import (
	"context"

	"github.com/mojotech/prist/internal/logger"
	"github.com/mojotech/prist/internal/models"
	"github.com/mojotech/prist/internal/vcs"
)

// Fetcher retrieves a pull request's commits and activity, draining pagination.
type Fetcher struct {
	gateway vcs.Gateway
}

func NewFetcher(gateway vcs.Gateway) *Fetcher {
	return &Fetcher{gateway: gateway}
}

func (f *Fetcher) ListPullRequests(ctx context.Context) ([]models.PullRequest, error) {
	return vcs.Drain(ctx, f.gateway.PullRequestsPage)
}

func (f *Fetcher) PullRequest(ctx context.Context, id int) (models.PullRequest, error) {
	return f.gateway.PullRequest(ctx, id)
}

// ListCommits returns the current commits of the PR in server order.
func (f *Fetcher) ListCommits(ctx context.Context, prID int) ([]models.Hash, error) {
	hashes, err := vcs.Drain(ctx, func(ctx context.Context, cursor string) (vcs.Page[models.Hash], error) {
		return f.gateway.CommitsPage(ctx, prID, cursor)
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Debug("pull request commits fetched", "pr_id", prID, "count", len(hashes))
	return hashes, nil
}

// ListActivity returns the whole activity feed. A non-positive pageSize uses
// DefaultPageSize.
func (f *Fetcher) ListActivity(ctx context.Context, prID int, pageSize int) ([]models.ActivityEntry, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	entries, err := vcs.Drain(ctx, func(ctx context.Context, cursor string) (vcs.Page[models.ActivityEntry], error) {
		return f.gateway.ActivityPage(ctx, prID, pageSize, cursor)
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Debug("pull request activity fetched", "pr_id", prID, "entries", len(entries))
	return entries, nil
}
