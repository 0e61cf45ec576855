package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Builder constructs an independent engine for one ensemble member.
type Builder func(seed uint64) (*Engine, error)

// Ensemble runs several independently seeded engines concurrently, for
// statistics over stochastic heating.
type Ensemble struct {
	build     Builder
	numRuns   int
	seedStart uint64
}

func NewEnsemble(build Builder, numRuns int, seedStart uint64) *Ensemble {
	return &Ensemble{build: build, numRuns: numRuns, seedStart: seedStart}
}

// Run returns one result per member in seed order. Results of members
// that failed are nil and their errors are joined.
func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			seed := e.seedStart + uint64(idx)
			eng, err := e.build(seed)
			if err != nil {
				errs[idx] = fmt.Errorf("member %d (seed %d): %w", idx, seed, err)
				return
			}

			res, err := eng.Run(ctx)
			if err != nil {
				errs[idx] = fmt.Errorf("member %d (seed %d): %w", idx, seed, err)
				return
			}
			results[idx] = res
		}(i)
	}

	wg.Wait()
	return results, errors.Join(errs...)
}
