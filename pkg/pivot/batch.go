package pivot

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eunmann/pivotab/internal/logctx"
	"github.com/eunmann/pivotab/pkg/humanfmt"
	"github.com/eunmann/pivotab/pkg/logging"
	"github.com/eunmann/pivotab/pkg/table"
)

// AggregateAll runs every request against the same table concurrently, with
// at most limit requests in flight (limit <= 0 means no limit). Results are
// returned in request order. The first failure cancels requests that have not
// started yet and is returned; no partial results are returned.
//
// agg is shared by all requests and must be safe for concurrent use.
func AggregateAll[T any](ctx context.Context, t *table.Table, reqs []Request, agg Aggregator[T], limit int) ([]*Result[T], error) {
	log := logctx.FromContext(ctx).With().Str("phase", "aggregate").Logger()
	progress := logging.NewProgressTracker("aggregate", int64(len(reqs)), log)

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	results := make([]*Result[T], len(reqs))
	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			res, err := Aggregate(t, req, agg)
			if err != nil {
				progress.RecordFailure()
				return fmt.Errorf("request %d: %w", i, err)
			}
			results[i] = res
			log.Debug().
				Int("request", i).
				Int("row_groups", len(res.Rows)).
				Int("col_groups", len(res.Cols)).
				Int("cells", len(res.Cells)).
				Str("elapsed", humanfmt.Duration(time.Since(start))).
				Msg("request aggregated")
			progress.RecordCompletion(time.Since(start))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	progress.Done("batch aggregated")
	return results, nil
}
