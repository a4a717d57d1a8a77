package searchlight

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"mrisearchlight/pkg/crossval"
	"mrisearchlight/pkg/estimator"
	"mrisearchlight/pkg/metrics"
)

// FoldScores maps a metric name to the score of every cross-validation fold
// of one neighbourhood, in split order.
type FoldScores map[string][]float64

// GroupScorer runs cross-validated estimation inside each neighbourhood.
type GroupScorer struct {
	// Estimator is cloned for every fold and never fitted itself
	Estimator estimator.Estimator

	// CV produces the train/test splits of every neighbourhood
	CV crossval.Splitter

	// Scorers are evaluated on the test rows of every fold
	Scorers []metrics.Scorer

	// NumJobs is the number of workers; values below 2 run sequentially
	NumJobs int

	// Progress, if set, is called after every neighbourhood
	Progress ProgressCallback
}

// chunk is a half-open range of ball indices handled by one worker.
type chunk struct {
	start, end int
}

// partition splits n items into at most workers contiguous chunks of
// near-equal size.
func partition(n, workers int) []chunk {
	if workers > n {
		workers = n
	}
	if workers < 1 {
		return nil
	}
	size := (n + workers - 1) / workers
	chunks := make([]chunk, 0, workers)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		chunks = append(chunks, chunk{start, end})
	}
	return chunks
}

// Score returns the fold scores of every ball, in ball order. X is shared
// read-only by all workers. The first failure aborts the call: workers stop
// at their next ball and no partial result is returned.
func (g *GroupScorer) Score(ctx context.Context, X *mat.Dense, y []float64, groups []int, balls [][]int) ([]FoldScores, error) {
	if g.Estimator == nil || g.CV == nil || len(g.Scorers) == 0 {
		return nil, errors.New("searchlight: group scorer needs an estimator, a splitter and at least one scorer")
	}
	out := make([]FoldScores, len(balls))
	var done atomic.Int64

	run := func(ctx context.Context, c chunk) error {
		for i := c.start; i < c.end; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			scores, err := g.scoreBall(X, y, groups, balls[i])
			if err != nil {
				return fmt.Errorf("failed to score ball %d: %w", i, err)
			}
			out[i] = scores
			if g.Progress != nil {
				g.Progress(int(done.Add(1)), len(balls), "")
			}
		}
		return nil
	}

	if g.NumJobs < 2 || len(balls) < 2 {
		if err := run(ctx, chunk{0, len(balls)}); err != nil {
			return nil, err
		}
		return out, nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, c := range partition(len(balls), g.NumJobs) {
		c := c
		eg.Go(func() error {
			return run(egCtx, c)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// scoreBall cross-validates a fresh clone of the estimator per fold on the
// ball's columns.
func (g *GroupScorer) scoreBall(X *mat.Dense, y []float64, groups []int, ball []int) (FoldScores, error) {
	if len(ball) == 0 {
		return nil, configError("score", estimator.ErrNoFeatures)
	}
	sub := selectColumns(X, ball)

	splits, err := g.CV.Split(sub, y, groups)
	if err != nil {
		return nil, configError("cross-validation", err)
	}

	scores := make(FoldScores, len(g.Scorers))
	for _, s := range g.Scorers {
		scores[s.Name()] = make([]float64, 0, len(splits))
	}
	for f, split := range splits {
		if err := checkSplit(f, split, y); err != nil {
			return nil, configError("cross-validation", err)
		}
		est := g.Estimator.Clone()
		if err := est.Fit(selectRows(sub, split.Train), pick(y, split.Train)); err != nil {
			return nil, fmt.Errorf("failed to fit fold %d: %w", f, err)
		}
		xTest := selectRows(sub, split.Test)
		yTest := pick(y, split.Test)
		for _, s := range g.Scorers {
			v, err := s.Score(est, xTest, yTest)
			if err != nil {
				return nil, fmt.Errorf("failed to compute %s on fold %d: %w", s.Name(), f, err)
			}
			scores[s.Name()] = append(scores[s.Name()], v)
		}
	}
	return scores, nil
}

// checkSplit rejects a fold with an empty side or a single training class.
func checkSplit(f int, split crossval.Split, y []float64) error {
	if len(split.Train) == 0 || len(split.Test) == 0 {
		return fmt.Errorf("%w: fold %d has an empty train or test set", crossval.ErrInfeasible, f)
	}
	first := y[split.Train[0]]
	for _, i := range split.Train[1:] {
		if y[i] != first {
			return nil
		}
	}
	return fmt.Errorf("%w: fold %d trains on a single class (%g)", crossval.ErrInfeasible, f, first)
}
