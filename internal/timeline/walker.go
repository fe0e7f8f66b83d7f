package timeline

import (
	"context"

	domainErrors "github.com/mojotech/prist/internal/errors"
	"github.com/mojotech/prist/internal/logger"
	"github.com/mojotech/prist/internal/models"
	"github.com/mojotech/prist/internal/vcs"
)

// Walker follows the first-parent chain of a branch back to its merge base.
type Walker struct {
	gateway  vcs.Gateway
	maxSteps int
	strict   bool
}

func NewWalker(gateway vcs.Gateway, maxSteps int, strict bool) *Walker {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxWalkSteps
	}
	return &Walker{gateway: gateway, maxSteps: maxSteps, strict: strict}
}

// Walk returns the commits reachable from source by first parents, child to
// ancestor, stopping before the merge base of source and destination. A chain
// of k commits costs one merge base lookup plus k commit fetches.
func (w *Walker) Walk(ctx context.Context, source, destination models.Hash) ([]models.CommitRecord, error) {
	log := logger.FromContext(ctx)

	base, err := w.gateway.MergeBase(ctx, source, destination)
	if err != nil {
		return nil, err
	}
	if base.Hash == "" {
		return nil, domainErrors.ErrMergeBaseUnresolved.
			WithContext("source", source.String()).
			WithContext("destination", destination.String())
	}

	var (
		chain  []models.CommitRecord
		cursor = source
	)
	for !cursor.Same(base.Hash) {
		if len(chain) >= w.maxSteps {
			return nil, domainErrors.ErrWalkLimit.
				WithContext("source", source.String()).
				WithContext("merge_base", base.Hash.String()).
				WithContext("steps", w.maxSteps)
		}

		record, err := w.gateway.Commit(ctx, cursor)
		if err != nil {
			return nil, err
		}
		if record.Hash.Same(base.Hash) {
			break
		}
		chain = append(chain, record)

		parent, ok := record.FirstParent()
		if !ok {
			if w.strict {
				return nil, domainErrors.ErrRootBeforeMergeBase.
					WithContext("source", source.String()).
					WithContext("root", record.Hash.String()).
					WithContext("merge_base", base.Hash.String())
			}
			logger.Warn(ctx, "commit chain ended before merge base",
				"source", source.String(),
				"hash", record.Hash.String(),
				"merge_base", base.Hash.String())
			break
		}
		cursor = parent
	}

	log.Debug("commit chain walked",
		"source", source.String(),
		"merge_base", base.Hash.String(),
		"steps", len(chain))
	return chain, nil
}
