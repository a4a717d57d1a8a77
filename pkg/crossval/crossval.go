// Package crossval provides cross-validation splitters producing train/test
// index pairs from a sample matrix, its labels and optional sample groups.
//
// Splitters are deterministic and safe for concurrent use: shuffling
// splitters build a fresh seeded generator on every Split call.
package crossval

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// ErrInfeasible is returned when the labels or groups cannot be split as
// requested, e.g. more folds than samples or a class too small to appear in
// every test fold.
var ErrInfeasible = errors.New("crossval: infeasible split")

// Split is one train/test partition. Both index lists are ascending.
type Split struct {
	Train []int
	Test  []int
}

// Splitter produces train/test partitions.
type Splitter interface {
	Split(X mat.Matrix, y []float64, groups []int) ([]Split, error)
}

// GroupAware is implemented by splitters that report whether they use the
// groups argument. Splitters that do not implement it are treated as
// ignoring groups.
type GroupAware interface {
	UsesGroups() bool
}

// UsesGroups reports whether s makes use of sample groups.
func UsesGroups(s Splitter) bool {
	g, ok := s.(GroupAware)
	return ok && g.UsesGroups()
}

// fromTestFolds turns a per-sample fold assignment into splits.
func fromTestFolds(fold []int, nFolds int) []Split {
	splits := make([]Split, nFolds)
	for i, f := range fold {
		for s := range splits {
			if s == f {
				splits[s].Test = append(splits[s].Test, i)
			} else {
				splits[s].Train = append(splits[s].Train, i)
			}
		}
	}
	return splits
}

func numSamples(X mat.Matrix, y []float64) (int, error) {
	n, _ := X.Dims()
	if len(y) != n {
		return 0, fmt.Errorf("%w: %d samples, %d labels", ErrInfeasible, n, len(y))
	}
	return n, nil
}

// KFold splits samples into NSplits consecutive folds; the first n%NSplits
// folds get one extra sample. With Shuffle the samples are permuted first
// using Seed.
type KFold struct {
	NSplits int
	Shuffle bool
	Seed    int64
}

// NewKFold returns an unshuffled k-fold splitter.
func NewKFold(nSplits int) *KFold {
	return &KFold{NSplits: nSplits}
}

// UsesGroups implements GroupAware; groups are ignored.
func (k *KFold) UsesGroups() bool { return false }

// Split implements Splitter.
func (k *KFold) Split(X mat.Matrix, y []float64, _ []int) ([]Split, error) {
	n, err := numSamples(X, y)
	if err != nil {
		return nil, err
	}
	if k.NSplits < 2 {
		return nil, fmt.Errorf("%w: k-fold needs at least 2 splits, got %d", ErrInfeasible, k.NSplits)
	}
	if k.NSplits > n {
		return nil, fmt.Errorf("%w: %d splits for %d samples", ErrInfeasible, k.NSplits, n)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if k.Shuffle {
		rng := rand.New(rand.NewSource(k.Seed))
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	fold := make([]int, n)
	start := 0
	for f := 0; f < k.NSplits; f++ {
		size := n / k.NSplits
		if f < n%k.NSplits {
			size++
		}
		for _, i := range order[start : start+size] {
			fold[i] = f
		}
		start += size
	}
	return fromTestFolds(fold, k.NSplits), nil
}

// StratifiedKFold splits samples into NSplits folds preserving the class
// proportions of y in every fold. Class members are dealt to folds in
// sample order (or a seeded shuffle of it); fold sizes per class follow the
// round-robin allocation of the sorted labels.
type StratifiedKFold struct {
	NSplits int
	Shuffle bool
	Seed    int64
}

// NewStratifiedKFold returns an unshuffled stratified k-fold splitter.
func NewStratifiedKFold(nSplits int) *StratifiedKFold {
	return &StratifiedKFold{NSplits: nSplits}
}

// UsesGroups implements GroupAware; groups are ignored.
func (k *StratifiedKFold) UsesGroups() bool { return false }

// Split implements Splitter. It fails when a class has fewer members than
// NSplits, since that class would be missing from some test fold.
func (k *StratifiedKFold) Split(X mat.Matrix, y []float64, _ []int) ([]Split, error) {
	n, err := numSamples(X, y)
	if err != nil {
		return nil, err
	}
	if k.NSplits < 2 {
		return nil, fmt.Errorf("%w: stratified k-fold needs at least 2 splits, got %d", ErrInfeasible, k.NSplits)
	}

	classes := uniqueSorted(y)
	code := make(map[float64]int, len(classes))
	for c, v := range classes {
		code[v] = c
	}
	counts := make([]int, len(classes))
	for _, v := range y {
		counts[code[v]]++
	}
	for c, cnt := range counts {
		if cnt < k.NSplits {
			return nil, fmt.Errorf("%w: class %v has %d members, fewer than %d splits", ErrInfeasible, classes[c], cnt, k.NSplits)
		}
	}

	// allocation[f][c]: members of class c in test fold f
	sorted := make([]int, 0, n)
	for c, cnt := range counts {
		for i := 0; i < cnt; i++ {
			sorted = append(sorted, c)
		}
	}
	allocation := make([][]int, k.NSplits)
	for f := range allocation {
		allocation[f] = make([]int, len(classes))
		for i := f; i < n; i += k.NSplits {
			allocation[f][sorted[i]]++
		}
	}

	var rng *rand.Rand
	if k.Shuffle {
		rng = rand.New(rand.NewSource(k.Seed))
	}
	fold := make([]int, n)
	for c := range classes {
		assign := make([]int, 0, counts[c])
		for f := range allocation {
			for i := 0; i < allocation[f][c]; i++ {
				assign = append(assign, f)
			}
		}
		if rng != nil {
			rng.Shuffle(len(assign), func(i, j int) { assign[i], assign[j] = assign[j], assign[i] })
		}
		next := 0
		for i, v := range y {
			if code[v] == c {
				fold[i] = assign[next]
				next++
			}
		}
	}
	return fromTestFolds(fold, k.NSplits), nil
}

// LeaveOneGroupOut holds out one group per split, in ascending group order.
type LeaveOneGroupOut struct{}

// NewLeaveOneGroupOut returns a leave-one-group-out splitter.
func NewLeaveOneGroupOut() *LeaveOneGroupOut {
	return &LeaveOneGroupOut{}
}

// UsesGroups implements GroupAware.
func (*LeaveOneGroupOut) UsesGroups() bool { return true }

// Split implements Splitter. Groups are required and must hold at least two
// distinct values.
func (*LeaveOneGroupOut) Split(X mat.Matrix, y []float64, groups []int) ([]Split, error) {
	n, err := numSamples(X, y)
	if err != nil {
		return nil, err
	}
	ids, err := groupIDs(groups, n)
	if err != nil {
		return nil, err
	}
	if len(ids) < 2 {
		return nil, fmt.Errorf("%w: leave-one-group-out needs at least 2 groups, got %d", ErrInfeasible, len(ids))
	}
	pos := make(map[int]int, len(ids))
	for f, g := range ids {
		pos[g] = f
	}
	fold := make([]int, n)
	for i, g := range groups {
		fold[i] = pos[g]
	}
	return fromTestFolds(fold, len(ids)), nil
}

// GroupKFold assigns whole groups to NSplits folds, largest groups first,
// each to the currently smallest fold, so no group spans train and test.
type GroupKFold struct {
	NSplits int
}

// NewGroupKFold returns a group k-fold splitter.
func NewGroupKFold(nSplits int) *GroupKFold {
	return &GroupKFold{NSplits: nSplits}
}

// UsesGroups implements GroupAware.
func (*GroupKFold) UsesGroups() bool { return true }

// Split implements Splitter.
func (k *GroupKFold) Split(X mat.Matrix, y []float64, groups []int) ([]Split, error) {
	n, err := numSamples(X, y)
	if err != nil {
		return nil, err
	}
	if k.NSplits < 2 {
		return nil, fmt.Errorf("%w: group k-fold needs at least 2 splits, got %d", ErrInfeasible, k.NSplits)
	}
	ids, err := groupIDs(groups, n)
	if err != nil {
		return nil, err
	}
	if len(ids) < k.NSplits {
		return nil, fmt.Errorf("%w: %d groups for %d splits", ErrInfeasible, len(ids), k.NSplits)
	}

	size := make(map[int]int, len(ids))
	for _, g := range groups {
		size[g]++
	}
	sort.SliceStable(ids, func(a, b int) bool { return size[ids[a]] > size[ids[b]] })

	load := make([]int, k.NSplits)
	groupFold := make(map[int]int, len(ids))
	for _, g := range ids {
		f := 0
		for j := 1; j < len(load); j++ {
			if load[j] < load[f] {
				f = j
			}
		}
		load[f] += size[g]
		groupFold[g] = f
	}

	fold := make([]int, n)
	for i, g := range groups {
		fold[i] = groupFold[g]
	}
	return fromTestFolds(fold, k.NSplits), nil
}

// groupIDs validates groups and returns its distinct values in ascending order.
func groupIDs(groups []int, n int) ([]int, error) {
	if groups == nil {
		return nil, fmt.Errorf("%w: groups are required", ErrInfeasible)
	}
	if len(groups) != n {
		return nil, fmt.Errorf("%w: %d groups for %d samples", ErrInfeasible, len(groups), n)
	}
	seen := map[int]bool{}
	var ids []int
	for _, g := range groups {
		if !seen[g] {
			seen[g] = true
			ids = append(ids, g)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func uniqueSorted(y []float64) []float64 {
	seen := map[float64]bool{}
	var out []float64
	for _, v := range y {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}
