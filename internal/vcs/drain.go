package vcs

import (
	"context"

	domainErrors "github.com/mojotech/prist/internal/errors"
	"github.com/mojotech/prist/internal/logger"
)

// PageFunc fetches the page addressed by cursor.
type PageFunc[T any] func(ctx context.Context, cursor string) (Page[T], error)

// Drain fetches pages until the last one and returns all values in order.
// It stops at the first error and rejects a cursor seen twice.
func Drain[T any](ctx context.Context, fetch PageFunc[T]) ([]T, error) {
	log := logger.FromContext(ctx)

	var (
		all    []T
		cursor string
		pages  int
		seen   = map[string]struct{}{}
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, domainErrors.ErrRequestFailed.WithError(err)
		}

		page, err := fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		pages++
		all = append(all, page.Values...)

		if page.Next == "" {
			break
		}
		if _, ok := seen[page.Next]; ok {
			return nil, domainErrors.ErrPaginationLoop.
				WithContext("cursor", page.Next).
				WithContext("pages", pages)
		}
		seen[page.Next] = struct{}{}
		cursor = page.Next
	}

	log.Debug("pagination drained", "pages", pages, "count", len(all))
	return all, nil
}
