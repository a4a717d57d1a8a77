package estimator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func separable() (*mat.Dense, []float64) {
	x := mat.NewDense(6, 2, []float64{
		-2, 0.1,
		-1.5, -0.2,
		-1, 0.3,
		1, 0.2,
		1.5, -0.1,
		2, 0,
	})
	return x, []float64{0, 0, 0, 1, 1, 1}
}

func TestNearestCentroid(t *testing.T) {
	x, y := separable()
	m := NewNearestCentroid()
	require.NoError(t, m.Fit(x, y))
	assert.Equal(t, []float64{0, 1}, m.Classes())

	pred, err := m.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, y, pred)

	score, err := m.Score(x, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)

	// centroids are (-1.5, 0.0667) and (1.5, 0.0333)
	d, err := m.DecisionFunction(mat.NewDense(2, 2, []float64{-3, 0, 3, 0}))
	require.NoError(t, err)
	assert.Less(t, d[0], 0.0)
	assert.Greater(t, d[1], 0.0)
}

func TestNearestCentroidMulticlass(t *testing.T) {
	x := mat.NewDense(6, 1, []float64{0, 0.2, 5, 5.2, 10, 10.2})
	y := []float64{3, 3, 1, 1, 2, 2}
	m := NewNearestCentroid()
	require.NoError(t, m.Fit(x, y))
	assert.Equal(t, []float64{1, 2, 3}, m.Classes())

	pred, err := m.Predict(mat.NewDense(3, 1, []float64{-1, 4.9, 11}))
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1, 2}, pred)

	_, err = m.DecisionFunction(x)
	require.ErrorIs(t, err, ErrNotBinary)
}

func TestNearestCentroidTieGoesToSmallerLabel(t *testing.T) {
	x := mat.NewDense(4, 1, []float64{1, 1, 1, 1})
	m := NewNearestCentroid()
	require.NoError(t, m.Fit(x, []float64{0, 1, 0, 1}))
	pred, err := m.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, pred)
}

func TestFitErrors(t *testing.T) {
	tests := []struct {
		name string
		x    mat.Matrix
		y    []float64
		want error
	}{
		{"empty", &mat.Dense{}, []float64{}, ErrNoSamples},
		{"no features", mat.NewDense(2, 1, nil).Slice(0, 2, 0, 0), []float64{0, 1}, ErrNoFeatures},
		{"single class", mat.NewDense(2, 1, []float64{1, 2}), []float64{1, 1}, ErrSingleClass},
		{"label count", mat.NewDense(2, 1, []float64{1, 2}), []float64{0, 1, 0}, ErrDimension},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, est := range []Estimator{NewNearestCentroid(), NewLogisticRegression(1, 50)} {
				require.ErrorIs(t, est.Fit(tt.x, tt.y), tt.want)
			}
		})
	}

	_, err := NewNearestCentroid().Predict(mat.NewDense(1, 1, nil))
	require.ErrorIs(t, err, ErrNotFitted)
	_, err = NewLogisticRegression(1, 10).Predict(mat.NewDense(1, 1, nil))
	require.ErrorIs(t, err, ErrNotFitted)

	m := NewNearestCentroid()
	x, y := separable()
	require.NoError(t, m.Fit(x, y))
	_, err = m.Predict(mat.NewDense(1, 3, nil))
	require.ErrorIs(t, err, ErrDimension)
}

func TestLogisticRegression(t *testing.T) {
	x, y := separable()
	m := NewLogisticRegression(1, 200)
	require.NoError(t, m.Fit(x, y))

	pred, err := m.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, y, pred)

	w, _ := m.Coef()
	assert.Greater(t, w[0], 0.0)

	proba, err := m.PredictProba(mat.NewDense(3, 2, []float64{-5, 0, 0, 0, 5, 0}))
	require.NoError(t, err)
	assert.Less(t, proba[0], 0.5)
	assert.Greater(t, proba[2], 0.5)
	assert.Less(t, proba[0], proba[1])
	assert.Less(t, proba[1], proba[2])

	score, err := m.Score(x, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)

	require.ErrorIs(t, NewLogisticRegression(1, 10).Fit(mat.NewDense(3, 1, []float64{0, 1, 2}), []float64{0, 1, 2}), ErrNotBinary)
}

func TestClone(t *testing.T) {
	x, y := separable()
	m := NewLogisticRegression(0.5, 30)
	require.NoError(t, m.Fit(x, y))

	c, ok := m.Clone().(*LogisticRegression)
	require.True(t, ok)
	assert.Equal(t, 0.5, c.C)
	assert.Equal(t, 30, c.MaxIterations)
	assert.Nil(t, c.Classes())

	nc := NewNearestCentroid()
	require.NoError(t, nc.Fit(x, y))
	assert.Nil(t, nc.Clone().(*NearestCentroid).Classes())
}

func TestSoftplusSigmoid(t *testing.T) {
	assert.InDelta(t, 0.6931471805599453, softplus(0), 1e-15)
	assert.InDelta(t, 1000.0, softplus(1000), 1e-9)
	assert.InDelta(t, 0.0, softplus(-1000), 1e-300)
	assert.Equal(t, 0.5, sigmoid(0))
	assert.InDelta(t, 1.0, sigmoid(800), 1e-15)
	assert.InDelta(t, 0.0, sigmoid(-800), 1e-15)
}
