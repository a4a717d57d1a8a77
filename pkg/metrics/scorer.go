package metrics

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"mrisearchlight/pkg/estimator"
)

// TestPrefix is prepended to metric names in multi-metric results.
const TestPrefix = "test_"

// Scorer evaluates a fitted estimator on held-out data.
type Scorer interface {
	Name() string
	Score(est estimator.Estimator, X mat.Matrix, y []float64) (float64, error)
}

// predictScorer scores hard predictions.
type predictScorer struct {
	name string
	fn   func(est estimator.Estimator, yTrue, yPred []float64) (float64, error)
}

func (s predictScorer) Name() string { return s.name }

func (s predictScorer) Score(est estimator.Estimator, X mat.Matrix, y []float64) (float64, error) {
	pred, err := est.Predict(X)
	if err != nil {
		return 0, err
	}
	return s.fn(est, y, pred)
}

// thresholdScorer scores continuous outputs: the decision function when
// available, else the positive-class probability.
type thresholdScorer struct {
	name string
	fn   func(yTrue, scores []float64) (float64, error)
}

func (s thresholdScorer) Name() string { return s.name }

func (s thresholdScorer) Score(est estimator.Estimator, X mat.Matrix, y []float64) (float64, error) {
	var (
		scores []float64
		err    error
	)
	switch e := est.(type) {
	case estimator.DecisionFunctioner:
		scores, err = e.DecisionFunction(X)
	case estimator.ProbabilityPredictor:
		scores, err = e.PredictProba(X)
	default:
		return 0, fmt.Errorf("%w: %s needs a decision function or probabilities", ErrUnsupported, s.name)
	}
	if err != nil {
		return 0, err
	}
	return s.fn(y, scores)
}

// probaScorer scores positive-class probabilities.
type probaScorer struct {
	name string
	fn   func(yTrue, proba []float64, positive float64) (float64, error)
}

func (s probaScorer) Name() string { return s.name }

func (s probaScorer) Score(est estimator.Estimator, X mat.Matrix, y []float64) (float64, error) {
	p, ok := est.(estimator.ProbabilityPredictor)
	if !ok {
		return 0, fmt.Errorf("%w: %s needs probabilities", ErrUnsupported, s.name)
	}
	proba, err := p.PredictProba(X)
	if err != nil {
		return 0, err
	}
	return s.fn(y, proba, positiveLabel(est, y))
}

// positiveLabel is the larger fitted class, or the larger label in y for
// estimators that do not report their classes.
func positiveLabel(est estimator.Estimator, y []float64) float64 {
	if c, ok := est.(estimator.Classifier); ok {
		if classes := c.Classes(); len(classes) > 0 {
			return classes[len(classes)-1]
		}
	}
	classes := uniqueSorted(y)
	return classes[len(classes)-1]
}

// nativeScorer defers to the estimator's own Score method.
type nativeScorer struct{}

func (nativeScorer) Name() string { return "score" }

func (nativeScorer) Score(est estimator.Estimator, X mat.Matrix, y []float64) (float64, error) {
	s, ok := est.(estimator.SelfScorer)
	if !ok {
		return 0, fmt.Errorf("%w: estimator has no Score method", ErrUnsupported)
	}
	return s.Score(X, y)
}

// EstimatorScore returns a Scorer named "score" that calls the estimator's
// own Score method.
func EstimatorScore() Scorer { return nativeScorer{} }

var registry = map[string]Scorer{
	"accuracy": predictScorer{"accuracy", func(_ estimator.Estimator, t, p []float64) (float64, error) {
		return Accuracy(t, p)
	}},
	"balanced_accuracy": predictScorer{"balanced_accuracy", func(_ estimator.Estimator, t, p []float64) (float64, error) {
		return BalancedAccuracy(t, p)
	}},
	"precision": predictScorer{"precision", func(e estimator.Estimator, t, p []float64) (float64, error) {
		prec, _, _, err := PrecisionRecallF1(t, p, positiveLabel(e, t))
		return prec, err
	}},
	"recall": predictScorer{"recall", func(e estimator.Estimator, t, p []float64) (float64, error) {
		_, rec, _, err := PrecisionRecallF1(t, p, positiveLabel(e, t))
		return rec, err
	}},
	"f1": predictScorer{"f1", func(e estimator.Estimator, t, p []float64) (float64, error) {
		_, _, f1, err := PrecisionRecallF1(t, p, positiveLabel(e, t))
		return f1, err
	}},
	"roc_auc": thresholdScorer{"roc_auc", ROCAUC},
	"neg_log_loss": probaScorer{"neg_log_loss", func(t, p []float64, positive float64) (float64, error) {
		l, err := LogLoss(t, p, positive)
		return -l, err
	}},
	"score": nativeScorer{},
}

// Lookup returns the named scorer.
func Lookup(name string) (Scorer, error) {
	s, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
	return s, nil
}

// Names lists the registered metric names in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Resolve maps metric names to scorers. With no names it falls back to the
// estimator's own Score method, or to accuracy when it has none. Duplicate
// names are rejected since results are keyed by name.
func Resolve(names []string, est estimator.Estimator) ([]Scorer, error) {
	if len(names) == 0 {
		if _, ok := est.(estimator.SelfScorer); ok {
			return []Scorer{nativeScorer{}}, nil
		}
		return []Scorer{registry["accuracy"]}, nil
	}
	seen := make(map[string]bool, len(names))
	out := make([]Scorer, 0, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("metrics: duplicate metric %q", name)
		}
		seen[name] = true
		s, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
