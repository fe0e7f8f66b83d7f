package timeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mojotech/prist/internal/logger"
	"github.com/mojotech/prist/internal/models"
	"github.com/mojotech/prist/internal/vcs"
)

// Service builds the review timeline of one pull request.
type Service struct {
	fetcher    *Fetcher
	walker     *Walker
	aggregator *Aggregator
	opts       Options
}

func NewService(gateway vcs.Gateway, opts Options) *Service {
	opts = opts.withDefaults()
	return &Service{
		fetcher:    NewFetcher(gateway),
		walker:     NewWalker(gateway, opts.MaxWalkSteps, opts.Strict),
		aggregator: NewAggregator(gateway, opts.Concurrency),
		opts:       opts,
	}
}

func (s *Service) Fetcher() *Fetcher {
	return s.fetcher
}

// Build fetches the PR header, commits and activity, walks every update back
// to its merge base, reconciles all hashes and aggregates the comments.
func (s *Service) Build(ctx context.Context, prID int) (models.Timeline, error) {
	start := time.Now()
	ctx = logger.With(ctx, "pr_id", prID)

	pr, err := s.fetcher.PullRequest(ctx, prID)
	if err != nil {
		return models.Timeline{}, err
	}
	current, err := s.fetcher.ListCommits(ctx, prID)
	if err != nil {
		return models.Timeline{}, err
	}
	activity, err := s.fetcher.ListActivity(ctx, prID, s.opts.PageSize)
	if err != nil {
		return models.Timeline{}, err
	}

	walked, err := s.walkUpdates(ctx, activity)
	if err != nil {
		return models.Timeline{}, err
	}

	currentSet := Reconcile(current)
	rewritten := 0
	for _, record := range walked {
		if !currentSet.Contains(record.Hash) {
			rewritten++
		}
	}
	logger.Debug(ctx, "commit walks finished", "walked", len(walked), "rewritten", rewritten)

	all := make([]models.Hash, 0, len(current)+len(walked))
	all = append(all, current...)
	for _, record := range walked {
		all = append(all, record.Hash)
	}
	set := Reconcile(all)

	entries, err := s.aggregator.Aggregate(ctx, set, activity)
	if err != nil {
		return models.Timeline{}, err
	}

	logger.Info(ctx, "timeline built",
		"commits", set.Len(),
		"steps", len(walked),
		"entries", len(entries),
		"duration_ms", time.Since(start).Milliseconds())

	return models.Timeline{
		PullRequest: pr,
		Commits:     set.Values(),
		Walked:      len(walked),
		Entries:     entries,
	}, nil
}

// walkUpdates walks every Update entry, keeping feed order in the result.
func (s *Service) walkUpdates(ctx context.Context, activity []models.ActivityEntry) ([]models.CommitRecord, error) {
	var updates []models.Update
	for _, entry := range activity {
		if entry.Kind == models.ActivityUpdate && entry.Update != nil {
			updates = append(updates, *entry.Update)
		}
	}

	chains := make([][]models.CommitRecord, len(updates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, u := range updates {
		g.Go(func() error {
			chain, err := s.walker.Walk(gctx, u.Source, u.Destination)
			if err != nil {
				return err
			}
			chains[i] = chain
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []models.CommitRecord
	for _, chain := range chains {
		out = append(out, chain...)
	}
	return out, nil
}
