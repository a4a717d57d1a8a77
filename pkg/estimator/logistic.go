package estimator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// LogisticRegression is a binary L2-regularised logistic regression fitted
// with L-BFGS. The intercept is not penalised.
type LogisticRegression struct {
	// C is the inverse regularisation strength; smaller values regularise more
	C float64

	// MaxIterations bounds the number of L-BFGS major iterations
	MaxIterations int

	classes   []float64
	coef      []float64
	intercept float64
}

// NewLogisticRegression returns an unfitted model. Non-positive arguments
// select the defaults C=1 and 100 iterations.
func NewLogisticRegression(c float64, maxIterations int) *LogisticRegression {
	if c <= 0 {
		c = 1
	}
	if maxIterations <= 0 {
		maxIterations = 100
	}
	return &LogisticRegression{C: c, MaxIterations: maxIterations}
}

// Clone implements Estimator.
func (m *LogisticRegression) Clone() Estimator {
	return NewLogisticRegression(m.C, m.MaxIterations)
}

// Classes returns the sorted labels seen in Fit.
func (m *LogisticRegression) Classes() []float64 {
	return m.classes
}

// Coef returns the fitted weights and intercept.
func (m *LogisticRegression) Coef() ([]float64, float64) {
	return m.coef, m.intercept
}

// Fit minimises sum_i log(1+exp(-s_i z_i)) + ||w||^2/(2C), with
// z_i = w.x_i + b and s_i = +1 for the larger label, -1 otherwise.
func (m *LogisticRegression) Fit(X mat.Matrix, y []float64) error {
	classes, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	if len(classes) != 2 {
		return fmt.Errorf("%w: got %d classes", ErrNotBinary, len(classes))
	}
	r, c := X.Dims()
	x := mat.DenseCopyOf(X)

	sign := make([]float64, r)
	for i, v := range y {
		sign[i] = -1
		if v == classes[1] {
			sign[i] = 1
		}
	}

	// params = [w_0 .. w_{c-1}, b]
	margins := func(params []float64, z []float64) {
		w := params[:c]
		b := params[c]
		for i := 0; i < r; i++ {
			z[i] = sign[i] * (floats.Dot(x.RawRowView(i), w) + b)
		}
	}
	z := make([]float64, r)
	problem := optimize.Problem{
		Func: func(params []float64) float64 {
			margins(params, z)
			var loss float64
			for _, zi := range z {
				loss += softplus(-zi)
			}
			w := params[:c]
			return loss + floats.Dot(w, w)/(2*m.C)
		},
		Grad: func(grad, params []float64) {
			margins(params, z)
			for j := range grad {
				grad[j] = 0
			}
			for i, zi := range z {
				// d/dz softplus(-z) = -sigmoid(-z)
				g := -sign[i] * sigmoid(-zi)
				floats.AddScaled(grad[:c], g, x.RawRowView(i))
				grad[c] += g
			}
			floats.AddScaled(grad[:c], 1/m.C, params[:c])
		},
	}

	settings := &optimize.Settings{
		MajorIterations:   m.MaxIterations,
		GradientThreshold: 1e-6,
	}
	res, err := optimize.Minimize(problem, make([]float64, c+1), settings, &optimize.LBFGS{})
	if res == nil {
		return fmt.Errorf("logistic regression optimisation failed: %w", err)
	}
	// Line-search failures near the optimum still leave the best location
	// found in res; it is used like an iteration-limited result.
	for _, v := range res.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("logistic regression diverged: %v", err)
		}
	}

	m.classes = classes
	m.coef = append([]float64(nil), res.X[:c]...)
	m.intercept = res.X[c]
	return nil
}

// DecisionFunction returns w.x + b per row.
func (m *LogisticRegression) DecisionFunction(X mat.Matrix) ([]float64, error) {
	if m.coef == nil {
		return nil, ErrNotFitted
	}
	r, c := X.Dims()
	if c != len(m.coef) {
		return nil, fmt.Errorf("%w: fitted on %d features, got %d", ErrDimension, len(m.coef), c)
	}
	out := make([]float64, r)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		out[i] = floats.Dot(row, m.coef) + m.intercept
	}
	return out, nil
}

// PredictProba returns P(y = larger label | x) per row.
func (m *LogisticRegression) PredictProba(X mat.Matrix) ([]float64, error) {
	z, err := m.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	for i, v := range z {
		z[i] = sigmoid(v)
	}
	return z, nil
}

// Predict thresholds the decision function at zero.
func (m *LogisticRegression) Predict(X mat.Matrix) ([]float64, error) {
	z, err := m.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	for i, v := range z {
		if v > 0 {
			z[i] = m.classes[1]
		} else {
			z[i] = m.classes[0]
		}
	}
	return z, nil
}

// Score returns the mean accuracy on X, y.
func (m *LogisticRegression) Score(X mat.Matrix, y []float64) (float64, error) {
	pred, err := m.Predict(X)
	if err != nil {
		return 0, err
	}
	return accuracy(pred, y)
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus computes log(1+exp(z)) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}
