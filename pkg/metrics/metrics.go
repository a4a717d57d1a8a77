// Package metrics provides the scoring functions evaluated on each
// cross-validation test split: plain label metrics and the Scorer adapters
// that obtain predictions, decision values or probabilities from a fitted
// estimator.
package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

var (
	// ErrUnknownMetric is returned by Lookup for unregistered names.
	ErrUnknownMetric = errors.New("metrics: unknown metric")

	// ErrUndefined is returned when a metric is undefined for the given
	// labels, e.g. ROC AUC with a single class in y_true.
	ErrUndefined = errors.New("metrics: undefined for these labels")

	// ErrUnsupported is returned when the estimator lacks the capability a
	// metric needs (decision function or probabilities).
	ErrUnsupported = errors.New("metrics: estimator does not support metric")

	// ErrLength is returned when label and prediction slices differ in length.
	ErrLength = errors.New("metrics: length mismatch")
)

// Accuracy is the fraction of exact matches.
func Accuracy(yTrue, yPred []float64) (float64, error) {
	if err := checkLengths(yTrue, yPred); err != nil {
		return 0, err
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}

// BalancedAccuracy is the mean per-class recall over the classes in yTrue.
func BalancedAccuracy(yTrue, yPred []float64) (float64, error) {
	if err := checkLengths(yTrue, yPred); err != nil {
		return 0, err
	}
	total := map[float64]int{}
	hit := map[float64]int{}
	for i, v := range yTrue {
		total[v]++
		if yPred[i] == v {
			hit[v]++
		}
	}
	recalls := make([]float64, 0, len(total))
	for _, c := range sortedKeys(total) {
		recalls = append(recalls, float64(hit[c])/float64(total[c]))
	}
	return stat.Mean(recalls, nil), nil
}

// PrecisionRecallF1 computes binary precision, recall and F1 for the
// positive label. Zero denominators yield zero, as in the usual convention.
func PrecisionRecallF1(yTrue, yPred []float64, positive float64) (prec, rec, f1 float64, err error) {
	if err = checkLengths(yTrue, yPred); err != nil {
		return
	}
	tp, fp, fn := 0, 0, 0
	for i := range yTrue {
		switch {
		case yPred[i] == positive && yTrue[i] == positive:
			tp++
		case yPred[i] == positive:
			fp++
		case yTrue[i] == positive:
			fn++
		}
	}
	if tp+fp > 0 {
		prec = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		rec = float64(tp) / float64(tp+fn)
	}
	if prec+rec > 0 {
		f1 = 2 * prec * rec / (prec + rec)
	}
	return
}

// ROCAUC returns the area under the ROC curve of scores for the binary labels
// in yTrue, the larger label being positive. It is computed from rank counts
// (Mann-Whitney U), with tied scores counting one half.
func ROCAUC(yTrue, scores []float64) (float64, error) {
	if err := checkLengths(yTrue, scores); err != nil {
		return 0, err
	}
	classes := uniqueSorted(yTrue)
	if len(classes) != 2 {
		return 0, fmt.Errorf("%w: ROC AUC needs exactly 2 classes in y_true, got %d", ErrUndefined, len(classes))
	}

	x := append([]float64(nil), scores...)
	pos := make([]bool, len(yTrue))
	for i, v := range yTrue {
		pos[i] = v == classes[1]
	}
	stat.SortWeightedLabeled(x, pos, nil)

	var u, negBelow, nPos, nNeg float64
	for i := 0; i < len(x); {
		j := i
		var p, n float64
		for ; j < len(x) && x[j] == x[i]; j++ {
			if pos[j] {
				p++
			} else {
				n++
			}
		}
		u += p*negBelow + 0.5*p*n
		negBelow += n
		nPos += p
		nNeg += n
		i = j
	}
	return u / (nPos * nNeg), nil
}

// LogLoss is the mean negative log-likelihood of yTrue given proba, the
// probability of the positive label. Probabilities are clipped to [eps, 1-eps].
func LogLoss(yTrue, proba []float64, positive float64) (float64, error) {
	if err := checkLengths(yTrue, proba); err != nil {
		return 0, err
	}
	const eps = 1e-15
	var loss float64
	for i, v := range yTrue {
		p := math.Min(math.Max(proba[i], eps), 1-eps)
		if v == positive {
			loss -= math.Log(p)
		} else {
			loss -= math.Log(1 - p)
		}
	}
	return loss / float64(len(yTrue)), nil
}

func checkLengths(a, b []float64) error {
	if len(a) != len(b) {
		return fmt.Errorf("%w: %d vs %d", ErrLength, len(a), len(b))
	}
	if len(a) == 0 {
		return fmt.Errorf("%w: empty input", ErrUndefined)
	}
	return nil
}

func uniqueSorted(y []float64) []float64 {
	seen := map[float64]int{}
	for _, v := range y {
		seen[v]++
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[float64]int) []float64 {
	out := make([]float64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Float64s(out)
	return out
}
