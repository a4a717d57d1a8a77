package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"mrisearchlight/pkg/estimator"
)

func TestAccuracy(t *testing.T) {
	acc, err := Accuracy([]float64{0, 1, 1, 0}, []float64{0, 1, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.75, acc)

	_, err = Accuracy([]float64{0}, []float64{0, 1})
	require.ErrorIs(t, err, ErrLength)
	_, err = Accuracy(nil, nil)
	require.ErrorIs(t, err, ErrUndefined)
}

func TestBalancedAccuracy(t *testing.T) {
	// class 0 recall 1/1, class 1 recall 1/3
	ba, err := BalancedAccuracy([]float64{0, 1, 1, 1}, []float64{0, 1, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, (1.0+1.0/3)/2, ba, 1e-12)
}

func TestPrecisionRecallF1(t *testing.T) {
	prec, rec, f1, err := PrecisionRecallF1(
		[]float64{1, 1, 0, 0, 1},
		[]float64{1, 0, 1, 0, 1}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3, prec, 1e-12)
	assert.InDelta(t, 2.0/3, rec, 1e-12)
	assert.InDelta(t, 2.0/3, f1, 1e-12)

	prec, rec, f1, err = PrecisionRecallF1([]float64{0, 0}, []float64{0, 0}, 1)
	require.NoError(t, err)
	assert.Zero(t, prec)
	assert.Zero(t, rec)
	assert.Zero(t, f1)
}

func TestROCAUC(t *testing.T) {
	tests := []struct {
		name   string
		y      []float64
		scores []float64
		want   float64
	}{
		{"perfect", []float64{0, 0, 1, 1}, []float64{-2, -1, 1, 2}, 1},
		{"inverted", []float64{0, 0, 1, 1}, []float64{2, 1, -1, -2}, 0},
		{"all tied", []float64{0, 1, 0, 1}, []float64{3, 3, 3, 3}, 0.5},
		// pairs (pos, neg): (0.8>0.1),(0.8>0.4),(0.35>0.1),(0.35<0.4) -> 3/4
		{"textbook", []float64{0, 0, 1, 1}, []float64{0.1, 0.4, 0.35, 0.8}, 0.75},
		{"labels not 0/1", []float64{-1, 5, 5, -1}, []float64{0, 1, 2, -3}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ROCAUC(tt.y, tt.scores)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ROCAUC([]float64{1, 1}, []float64{0.2, 0.3})
	require.ErrorIs(t, err, ErrUndefined)
}

func TestROCAUCDoesNotReorderInput(t *testing.T) {
	scores := []float64{0.9, 0.1, 0.5}
	_, err := ROCAUC([]float64{1, 0, 1}, scores)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.9, 0.1, 0.5}, scores)
}

func TestLogLoss(t *testing.T) {
	l, err := LogLoss([]float64{1, 0}, []float64{1, 0}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0, l, 1e-12)

	l, err = LogLoss([]float64{1, 0}, []float64{0.5, 0.5}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.6931471805599453, l, 1e-12)
}

func TestLookupAndResolve(t *testing.T) {
	for _, name := range Names() {
		s, err := Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())
	}

	_, err := Lookup("r2")
	require.ErrorIs(t, err, ErrUnknownMetric)

	scorers, err := Resolve(nil, estimator.NewNearestCentroid())
	require.NoError(t, err)
	require.Len(t, scorers, 1)
	assert.Equal(t, "score", scorers[0].Name())

	scorers, err = Resolve([]string{"accuracy", "roc_auc"}, estimator.NewNearestCentroid())
	require.NoError(t, err)
	assert.Equal(t, "accuracy", scorers[0].Name())
	assert.Equal(t, "roc_auc", scorers[1].Name())

	_, err = Resolve([]string{"accuracy", "accuracy"}, estimator.NewNearestCentroid())
	require.Error(t, err)
}

// predictOnly is an estimator without decision function, probabilities or Score.
type predictOnly struct{}

func (predictOnly) Fit(mat.Matrix, []float64) error { return nil }
func (predictOnly) Clone() estimator.Estimator      { return predictOnly{} }
func (predictOnly) Predict(X mat.Matrix) ([]float64, error) {
	r, _ := X.Dims()
	return make([]float64, r), nil
}

func TestScorersOnFittedEstimator(t *testing.T) {
	x := mat.NewDense(4, 1, []float64{-2, -1, 1, 2})
	y := []float64{0, 0, 1, 1}

	lr := estimator.NewLogisticRegression(1, 100)
	require.NoError(t, lr.Fit(x, y))

	for _, name := range []string{"accuracy", "balanced_accuracy", "precision", "recall", "f1", "roc_auc", "score"} {
		s, err := Lookup(name)
		require.NoError(t, err)
		v, err := s.Score(lr, x, y)
		require.NoError(t, err, name)
		assert.Equal(t, 1.0, v, name)
	}

	nll, err := registry["neg_log_loss"].Score(lr, x, y)
	require.NoError(t, err)
	assert.Less(t, nll, 0.0)

	// default scoring for an estimator without Score is accuracy
	scorers, err := Resolve(nil, predictOnly{})
	require.NoError(t, err)
	assert.Equal(t, "accuracy", scorers[0].Name())

	_, err = registry["roc_auc"].Score(predictOnly{}, x, y)
	require.ErrorIs(t, err, ErrUnsupported)
	_, err = registry["neg_log_loss"].Score(estimator.NewNearestCentroid(), x, y)
	require.ErrorIs(t, err, ErrUnsupported)
	_, err = EstimatorScore().Score(predictOnly{}, x, y)
	require.ErrorIs(t, err, ErrUnsupported)
}
