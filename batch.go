package guide

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// BatchFillNextTokenBitmask fills row `indices[i]` of `b` with the
// mask of `matchers[i]`, running up to `batch.max_workers` matchers
// at a time.  A nil `indices` fills rows 0 to len(matchers)-1.  The
// first error cancels the rows not yet started and is returned.
func BatchFillNextTokenBitmask(ctx context.Context, matchers []*GrammarMatcher, b *TokenBitmask, indices []int, cfg *Config) error {
	if indices == nil {
		indices = make([]int, len(matchers))
		for i := range indices {
			indices[i] = i
		}
	}
	if len(indices) != len(matchers) {
		return &BitmaskError{
			Message: fmt.Sprintf("%d matchers but %d row indices", len(matchers), len(indices)),
		}
	}
	seen := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if seen[idx] {
			return &BitmaskError{Message: fmt.Sprintf("row %d is filled more than once", idx)}
		}
		seen[idx] = true
	}
	if cfg == nil {
		cfg = NewConfig()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, cfg.GetInt("batch.max_workers")))
	for i, m := range matchers {
		idx := indices[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if m == nil {
				return &ConfigError{Key: "matchers", Message: fmt.Sprintf("nil matcher for row %d", idx)}
			}
			if err := m.FillNextTokenBitmask(b, idx); err != nil {
				return fmt.Errorf("fill row %d: %w", idx, err)
			}
			return nil
		})
	}
	return g.Wait()
}
