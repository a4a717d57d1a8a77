// Package searchlight implements searchlight decoding: a sphere of fixed
// radius is moved across every voxel of a process mask, an estimator is
// cross-validated on the voxels inside the sphere, and the fold scores are
// collected into a map aligned with the mask.
package searchlight

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/c2h5oh/datasize"

	"mrisearchlight/pkg/crossval"
	"mrisearchlight/pkg/estimator"
	"mrisearchlight/pkg/metrics"
	"mrisearchlight/pkg/volume"
)

const (
	// DefaultRadius is the sphere radius used when Params.Radius is zero, in
	// the physical units of the mask affine
	DefaultRadius = 2.0

	// DefaultFolds is the number of folds of the default KFold splitter
	DefaultFolds = 8
)

// Params holds the searchlight configuration.
type Params struct {
	// Mask is the data mask. Every selected voxel becomes one feature
	// column of the sample matrix. Required.
	Mask *volume.Mask

	// ProcessMask selects the sphere centres. Defaults to Mask. It must share
	// shape and affine with Mask; centres outside Mask are allowed as long as
	// their sphere reaches some voxel of Mask.
	ProcessMask *volume.Mask

	// Radius of the sphere in the units of the affine (usually mm).
	// Zero means DefaultRadius.
	Radius float64

	// Estimator is cloned for every fold. Defaults to NearestCentroid.
	Estimator estimator.Estimator

	// NumJobs is the number of parallel workers. 0 means 1, negative
	// values mean one worker per CPU.
	NumJobs int

	// Scoring lists the metric names to compute. Empty means the
	// estimator's own Score method, or accuracy when it has none.
	Scoring []string

	// CV is the cross-validation splitter. Defaults to unshuffled KFold
	// with DefaultFolds folds.
	CV crossval.Splitter

	// Verbose controls logging: 0 silent, 1 pipeline steps, 2 steps and
	// scoring progress.
	Verbose int

	// Logger receives the verbose output. Defaults to stderr.
	Logger *log.Logger

	// Progress, if set, receives scoring progress regardless of Verbose.
	Progress ProgressCallback

	// MaxSampleMatrix caps the size of the masked sample matrix. Zero means
	// no limit.
	MaxSampleMatrix datasize.ByteSize
}

// SearchLight fits searchlight score maps. A SearchLight is not safe for
// concurrent calls to Fit.
type SearchLight struct {
	params  Params
	scorers []metrics.Scorer

	scoreMaps     map[string]*ScoreMap
	neighborhoods *Neighborhoods
	elapsed       time.Duration
}

// New creates a searchlight with the given parameters, filling in defaults
// for unset fields.
func New(params Params) *SearchLight {
	if params.Radius == 0 {
		params.Radius = DefaultRadius
	}
	if params.Estimator == nil {
		params.Estimator = estimator.NewNearestCentroid()
	}
	if params.CV == nil {
		params.CV = crossval.NewKFold(DefaultFolds)
	}
	switch {
	case params.NumJobs == 0:
		params.NumJobs = 1
	case params.NumJobs < 0:
		params.NumJobs = runtime.NumCPU()
	}
	if params.Logger == nil {
		out := io.Writer(os.Stderr)
		if params.Verbose <= 0 {
			out = io.Discard
		}
		params.Logger = log.New(out, "searchlight: ", log.LstdFlags)
	}
	return &SearchLight{params: params}
}

// Params returns the effective parameters, defaults included.
func (s *SearchLight) Params() Params { return s.params }

func (s *SearchLight) logf(level int, format string, args ...interface{}) {
	if s.params.Verbose >= level {
		s.params.Logger.Printf(format, args...)
	}
}

// Fit computes the score maps for imgs, either one 4D image or a list of 3D
// images of equal shape and affine (one sample each). labels holds one class
// label per sample; groups is optional and, when given, must also hold one
// entry per sample. Splitters that do not use groups ignore them.
//
// Any failure aborts the fit and leaves the previous results untouched.
func (s *SearchLight) Fit(imgs []*volume.Image, labels []float64, groups []int) error {
	start := time.Now()
	p := s.params

	// Step 1: Validate inputs
	s.logf(1, "Step 1: Validating inputs...")
	if p.Mask == nil {
		return configError("mask", ErrNoMask)
	}
	processMask := p.ProcessMask
	if processMask == nil {
		processMask = p.Mask
	}
	img, err := volume.Concat(imgs)
	if err != nil {
		return configError("images", err)
	}
	if err := p.Mask.Compatible(img.Shape, img.Affine); err != nil {
		return configError("mask", err)
	}
	if len(labels) != img.Samples {
		return configError("labels", fmt.Errorf("%w: %d labels for %d samples", ErrLabelLength, len(labels), img.Samples))
	}
	if groups != nil && len(groups) != img.Samples {
		return configError("groups", fmt.Errorf("%w: %d groups for %d samples", ErrGroupLength, len(groups), img.Samples))
	}
	if groups != nil && !crossval.UsesGroups(p.CV) {
		s.logf(1, "Groups given but %T does not use them; ignoring", p.CV)
	}
	scorers, err := metrics.Resolve(p.Scoring, p.Estimator)
	if err != nil {
		return configError("scoring", err)
	}

	// Step 2: Extract the sample matrix
	s.logf(1, "Step 2: Masking %d samples of shape %v...", img.Samples, img.Shape)
	size := datasize.ByteSize(uint64(img.Samples) * uint64(p.Mask.Count()) * 8)
	if p.MaxSampleMatrix > 0 && size > p.MaxSampleMatrix {
		return configError("mask", fmt.Errorf("%w: %s > %s", ErrMemoryBudget, size.HumanReadable(), p.MaxSampleMatrix.HumanReadable()))
	}
	X, err := volume.ApplyMask(img, p.Mask)
	if err != nil {
		return configError("mask", err)
	}
	s.logf(1, "Sample matrix: %d x %d (%s)", img.Samples, p.Mask.Count(), size.HumanReadable())

	// Step 3: Build neighbourhoods
	s.logf(1, "Step 3: Building neighbourhoods with radius %g...", p.Radius)
	hoods, err := BuildNeighborhoods(p.Mask, processMask, p.Radius)
	if err != nil {
		return err
	}
	s.logf(1, "%d neighbourhoods, %s", len(hoods.Balls), describeSizes(hoods.Sizes()))
	if !processMask.SubsetOf(p.Mask) {
		s.logf(1, "Process mask reaches outside the data mask; those centres only see in-mask neighbours")
	}

	// Splits depend only on labels and groups.
	splits, err := p.CV.Split(X, labels, groups)
	if err != nil {
		return configError("cross-validation", err)
	}
	for f, split := range splits {
		if err := checkSplit(f, split, labels); err != nil {
			return configError("cross-validation", err)
		}
	}

	// Step 4: Score neighbourhoods
	s.logf(1, "Step 4: Scoring %d neighbourhoods with %d worker(s)...", len(hoods.Balls), p.NumJobs)
	progress := p.Progress
	if progress == nil && p.Verbose >= 2 {
		progress = NewTextProgress(p.Logger, 10)
	}
	scorer := &GroupScorer{
		Estimator: p.Estimator,
		CV:        p.CV,
		Scorers:   scorers,
		NumJobs:   p.NumJobs,
		Progress:  progress,
	}
	folds, err := scorer.Score(context.Background(), X, labels, groups, hoods.Balls)
	if err != nil {
		return err
	}

	// Step 5: Reshape into score maps
	s.logf(1, "Step 5: Assembling score maps...")
	maps := make(map[string]*ScoreMap, len(scorers))
	for _, sc := range scorers {
		m := newScoreMap(processMask.Shape, processMask.Affine)
		for b, c := range hoods.Centers {
			m.Folds[m.index(c[0], c[1], c[2])] = folds[b][sc.Name()]
		}
		maps[metrics.TestPrefix+sc.Name()] = m
	}

	s.scorers = scorers
	s.scoreMaps = maps
	s.neighborhoods = hoods
	s.elapsed = time.Since(start)
	s.logf(1, "Searchlight complete! Time taken: %.2f seconds", s.elapsed.Seconds())
	return nil
}

// Scores returns the score map of a single-metric fit. It returns nil
// before the first fit and after a multi-metric fit; use ScoreMaps then.
func (s *SearchLight) Scores() *ScoreMap {
	if len(s.scorers) != 1 {
		return nil
	}
	return s.scoreMaps[metrics.TestPrefix+s.scorers[0].Name()]
}

// ScoreMaps returns the score maps of the last fit keyed by "test_<metric>".
func (s *SearchLight) ScoreMaps() map[string]*ScoreMap {
	return s.scoreMaps
}

// Neighborhoods returns the spatial index of the last fit.
func (s *SearchLight) Neighborhoods() *Neighborhoods {
	return s.neighborhoods
}

// Elapsed returns the wall time of the last successful fit.
func (s *SearchLight) Elapsed() time.Duration {
	return s.elapsed
}

func describeSizes(sizes []int) string {
	if len(sizes) == 0 {
		return "none"
	}
	lo, hi, sum := sizes[0], sizes[0], 0
	for _, n := range sizes {
		if n < lo {
			lo = n
		}
		if n > hi {
			hi = n
		}
		sum += n
	}
	return fmt.Sprintf("%d-%d voxels each (mean %.1f)", lo, hi, float64(sum)/float64(len(sizes)))
}
