package estimator

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// NearestCentroid assigns each sample to the class whose training mean is
// closest in Euclidean distance. For two classes this is a linear rule:
// the decision function ||x-m0||^2 - ||x-m1||^2 is affine in x.
type NearestCentroid struct {
	classes   []float64
	centroids *mat.Dense
}

// NewNearestCentroid returns an unfitted nearest-centroid classifier.
func NewNearestCentroid() *NearestCentroid {
	return &NearestCentroid{}
}

// Clone implements Estimator.
func (m *NearestCentroid) Clone() Estimator {
	return NewNearestCentroid()
}

// Classes returns the sorted labels seen in Fit.
func (m *NearestCentroid) Classes() []float64 {
	return m.classes
}

// Fit computes one centroid per class.
func (m *NearestCentroid) Fit(X mat.Matrix, y []float64) error {
	classes, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	r, c := X.Dims()

	pos := make(map[float64]int, len(classes))
	for i, cl := range classes {
		pos[cl] = i
	}

	sums := mat.NewDense(len(classes), c, nil)
	counts := make([]float64, len(classes))
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		k := pos[y[i]]
		floats.Add(sums.RawRowView(k), row)
		counts[k]++
	}
	for k := range classes {
		centroid := sums.RawRowView(k)
		for j := range centroid {
			centroid[j] /= counts[k]
		}
	}

	m.classes = classes
	m.centroids = sums
	return nil
}

// distances returns the squared distance from every row of X to every centroid.
func (m *NearestCentroid) distances(X mat.Matrix) (*mat.Dense, error) {
	if m.centroids == nil {
		return nil, ErrNotFitted
	}
	r, c := X.Dims()
	_, want := m.centroids.Dims()
	if c != want {
		return nil, fmt.Errorf("%w: fitted on %d features, got %d", ErrDimension, want, c)
	}

	d := mat.NewDense(r, len(m.classes), nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		for k := range m.classes {
			d.Set(i, k, sqDist(row, m.centroids.RawRowView(k)))
		}
	}
	return d, nil
}

// Predict returns the label of the nearest centroid; ties go to the smaller label.
func (m *NearestCentroid) Predict(X mat.Matrix) ([]float64, error) {
	d, err := m.distances(X)
	if err != nil {
		return nil, err
	}
	r, _ := d.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = m.classes[floats.MinIdx(d.RawRowView(i))]
	}
	return out, nil
}

// DecisionFunction returns ||x-m0||^2 - ||x-m1||^2 for a binary model, so
// positive values favour the larger label.
func (m *NearestCentroid) DecisionFunction(X mat.Matrix) ([]float64, error) {
	if m.centroids != nil && len(m.classes) != 2 {
		return nil, ErrNotBinary
	}
	d, err := m.distances(X)
	if err != nil {
		return nil, err
	}
	r, _ := d.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = d.At(i, 0) - d.At(i, 1)
	}
	return out, nil
}

// Score returns the mean accuracy on X, y.
func (m *NearestCentroid) Score(X mat.Matrix, y []float64) (float64, error) {
	pred, err := m.Predict(X)
	if err != nil {
		return 0, err
	}
	return accuracy(pred, y)
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i, v := range a {
		d := v - b[i]
		s += d * d
	}
	return s
}
