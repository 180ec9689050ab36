package pipeline

import (
	"context"
	"errors"

	"github.com/dvloznov/tenbis-barcodes/internal/domain"
	"golang.org/x/sync/errgroup"
)

// taskResult is the value-or-error slot owned by one task.
type taskResult[R any] struct {
	value R
	err   error
}

// credentialRejected is the fatal predicate shared by the stages: once the
// remote rejects the session, no further request can succeed.
func credentialRejected(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized)
}

// fanOut runs fn for every item on at most workers goroutines. Each task
// writes only its own slot, so results line up with items. An error for
// which fatal returns true cancels the remaining tasks and is returned.
func fanOut[T, R any](
	ctx context.Context,
	workers int,
	items []T,
	fn func(ctx context.Context, item T) (R, error),
	fatal func(error) bool,
) ([]taskResult[R], error) {
	results := make([]taskResult[R], len(items))

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].err = err
				return nil
			}

			v, err := fn(gctx, item)
			results[i] = taskResult[R]{value: v, err: err}
			if err != nil && fatal != nil && fatal(err) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	// A cancelled parent is reported even when every task swallowed it.
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}
