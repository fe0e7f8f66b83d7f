package timeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/mojotech/prist/internal/logger"
	"github.com/mojotech/prist/internal/models"
	"github.com/mojotech/prist/internal/vcs"
)

// Aggregator attaches commit comments to the final commit set and merges them
// with the PR-level activity.
type Aggregator struct {
	gateway     vcs.Gateway
	concurrency int
}

func NewAggregator(gateway vcs.Gateway, concurrency int) *Aggregator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Aggregator{gateway: gateway, concurrency: concurrency}
}

// Aggregate returns the comments of every commit in set order followed by
// the activity entries in feed order.
func (a *Aggregator) Aggregate(ctx context.Context, set models.CommitSet, activity []models.ActivityEntry) ([]models.TimelineEntry, error) {
	hashes := set.Values()
	perCommit := make([][]models.TimelineEntry, len(hashes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, hash := range hashes {
		g.Go(func() error {
			comments, err := vcs.Drain(gctx, func(ctx context.Context, cursor string) (vcs.Page[models.Comment], error) {
				return a.gateway.CommitCommentsPage(ctx, hash, cursor)
			})
			if err != nil {
				return err
			}

			entries := make([]models.TimelineEntry, 0, len(comments))
			for _, c := range comments {
				entries = append(entries, commitComment(hash, c))
			}
			perCommit[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []models.TimelineEntry
	for _, entries := range perCommit {
		out = append(out, entries...)
	}
	commitEntries := len(out)
	for _, entry := range activity {
		if e, ok := Project(entry); ok {
			out = append(out, e)
		}
	}

	logger.FromContext(ctx).Debug("timeline aggregated",
		"commits", len(hashes),
		"count", commitEntries,
		"entries", len(out))
	return out, nil
}

func commitComment(hash models.Hash, c models.Comment) models.TimelineEntry {
	h := hash
	return models.TimelineEntry{
		Kind:      models.EntryComment,
		Actor:     c.User,
		Timestamp: c.CreatedAt,
		Text:      c.Body,
		Commit:    &h,
		Inline:    c.Inline,
	}
}

// Project turns one activity entry into its timeline row. Updates read
// "destination..source".
func Project(entry models.ActivityEntry) (models.TimelineEntry, bool) {
	switch entry.Kind {
	case models.ActivityComment:
		if entry.Comment == nil {
			return models.TimelineEntry{}, false
		}
		return models.TimelineEntry{
			Kind:      models.EntryComment,
			Actor:     entry.Comment.User,
			Timestamp: entry.Comment.CreatedAt,
			Text:      entry.Comment.Body,
			Inline:    entry.Comment.Inline,
		}, true

	case models.ActivityApproval:
		if entry.Approval == nil {
			return models.TimelineEntry{}, false
		}
		return models.TimelineEntry{
			Kind:      models.EntryApproval,
			Actor:     entry.Approval.User,
			Timestamp: entry.Approval.Date,
		}, true

	case models.ActivityUpdate:
		if entry.Update == nil {
			return models.TimelineEntry{}, false
		}
		return models.TimelineEntry{
			Kind:      models.EntryUpdate,
			Actor:     entry.Update.Author,
			Timestamp: entry.Update.Date,
			Text:      entry.Update.Destination.String() + ".." + entry.Update.Source.String(),
		}, true
	}
	return models.TimelineEntry{}, false
}
