// Package estimator defines the capability interfaces the searchlight uses to
// train and evaluate a model inside each neighbourhood, plus two reference
// linear classifiers.
package estimator

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNoFeatures is returned when fitting on a matrix with zero columns.
	ErrNoFeatures = errors.New("estimator: no features")

	// ErrNoSamples is returned when fitting on a matrix with zero rows.
	ErrNoSamples = errors.New("estimator: no samples")

	// ErrSingleClass is returned when the training labels hold fewer than two classes.
	ErrSingleClass = errors.New("estimator: need at least two classes")

	// ErrNotBinary is returned by binary-only operations on multi-class models.
	ErrNotBinary = errors.New("estimator: operation requires exactly two classes")

	// ErrNotFitted is returned when predicting before Fit.
	ErrNotFitted = errors.New("estimator: not fitted")

	// ErrDimension is returned when sample or feature counts disagree.
	ErrDimension = errors.New("estimator: dimension mismatch")
)

// Estimator is a supervised model that can be trained and queried.
// Clone returns a fresh, unfitted estimator with the same hyperparameters;
// the searchlight clones once per cross-validation fold.
type Estimator interface {
	Fit(X mat.Matrix, y []float64) error
	Predict(X mat.Matrix) ([]float64, error)
	Clone() Estimator
}

// DecisionFunctioner is implemented by binary classifiers exposing a signed
// confidence score, positive for the larger class label.
type DecisionFunctioner interface {
	DecisionFunction(X mat.Matrix) ([]float64, error)
}

// ProbabilityPredictor is implemented by binary classifiers exposing the
// probability of the larger class label.
type ProbabilityPredictor interface {
	PredictProba(X mat.Matrix) ([]float64, error)
}

// SelfScorer is implemented by estimators with a native score.
type SelfScorer interface {
	Score(X mat.Matrix, y []float64) (float64, error)
}

// Classifier is implemented by estimators that expose the labels seen in Fit.
type Classifier interface {
	Estimator
	Classes() []float64
}

// uniqueSorted returns the distinct values of y in ascending order.
func uniqueSorted(y []float64) []float64 {
	seen := make(map[float64]struct{}, 2)
	out := make([]float64, 0, 2)
	for _, v := range y {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

// checkTraining validates X and y for Fit and returns the sorted classes.
func checkTraining(X mat.Matrix, y []float64) ([]float64, error) {
	r, c := X.Dims()
	if r == 0 {
		return nil, ErrNoSamples
	}
	if c == 0 {
		return nil, ErrNoFeatures
	}
	if r != len(y) {
		return nil, fmt.Errorf("%w: %d samples, %d labels", ErrDimension, r, len(y))
	}
	classes := uniqueSorted(y)
	if len(classes) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrSingleClass, len(classes))
	}
	return classes, nil
}

// accuracy is the fraction of predictions equal to y.
func accuracy(pred, y []float64) (float64, error) {
	if len(pred) != len(y) {
		return 0, fmt.Errorf("%w: %d predictions, %d labels", ErrDimension, len(pred), len(y))
	}
	if len(y) == 0 {
		return 0, ErrNoSamples
	}
	correct := 0
	for i := range y {
		if pred[i] == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(y)), nil
}
