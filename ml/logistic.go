package ml

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// LogisticRegression is an L2-regularized binary classifier fit by L-BFGS.
// The intercept is not penalized.
type LogisticRegression struct {
	C       float64 `json:"c"`
	MaxIter int     `json:"max_iter"`
	Tol     float64 `json:"tol"`

	Coef       []float64 `json:"coef"`
	Intercept  float64   `json:"intercept"`
	Iterations int       `json:"n_iter"`
	Converged  bool      `json:"converged"`
	Status     string    `json:"status"`
}

func NewLogisticRegression(c float64, maxIter int, tol float64) *LogisticRegression {
	if c <= 0 {
		c = 1.0
	}
	if maxIter <= 0 {
		maxIter = 100
	}
	if tol <= 0 {
		tol = 1e-4
	}
	return &LogisticRegression{C: c, MaxIter: maxIter, Tol: tol}
}

// Train fits the coefficients. Labels must be 0 or 1 with both classes
// present, and every feature must be finite. Reaching MaxIter is not an
// error: the current coefficients are kept and Converged is false.
func (m *LogisticRegression) Train(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return ErrEmptyDataset
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	width := len(features[0])
	y := make([]float64, len(labels))
	positives := 0
	for i, label := range labels {
		if label != 0 && label != 1 {
			return fmt.Errorf("label %d at row %d is not binary", label, i)
		}
		if len(features[i]) != width {
			return fmt.Errorf("row %d: %w", i, ErrFeatureMismatch)
		}
		for j, v := range features[i] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("row %d feature %d is %v: %w", i, j, v, ErrNonFinite)
			}
		}
		positives += label
		y[i] = float64(label)
	}
	if positives == 0 || positives == len(labels) {
		return fmt.Errorf("%d of %d labels positive: %w", positives, len(labels), ErrSingleClass)
	}

	settings := &optimize.Settings{
		MajorIterations:   m.MaxIter,
		GradientThreshold: m.Tol,
	}
	result, err := optimize.Minimize(m.problem(features, y), make([]float64, width+1), settings, &optimize.LBFGS{})
	if err := checkResult(result, err); err != nil {
		return err
	}

	m.Coef = append([]float64(nil), result.X[:width]...)
	m.Intercept = result.X[width]
	m.Iterations = result.Stats.MajorIterations
	m.Status = result.Status.String()
	m.Converged = err == nil &&
		(result.Status == optimize.GradientThreshold || result.Status == optimize.FunctionConvergence)
	return nil
}

// checkResult accepts an optimizer error only when at least one major
// iteration produced an iterate worth keeping.
func checkResult(result *optimize.Result, err error) error {
	if result == nil {
		return fmt.Errorf("optimize: %w", err)
	}
	if err != nil && result.Stats.MajorIterations == 0 {
		return fmt.Errorf("optimize: no iteration completed (status %s): %w", result.Status, err)
	}
	return nil
}

// problem builds the mean log-loss plus the ridge penalty 1/(2*C*n)*||w||².
func (m *LogisticRegression) problem(x [][]float64, y []float64) optimize.Problem {
	n := float64(len(x))
	width := len(x[0])
	alpha := 1 / (m.C * n)

	return optimize.Problem{
		Func: func(params []float64) float64 {
			w, b := params[:width], params[width]
			loss := 0.0
			for i, row := range x {
				loss += logLoss(floats.Dot(w, row)+b, y[i])
			}
			return loss/n + 0.5*alpha*floats.Dot(w, w)
		},
		Grad: func(grad, params []float64) {
			w, b := params[:width], params[width]
			for i := range grad {
				grad[i] = 0
			}
			gw := grad[:width]
			for i, row := range x {
				residual := (sigmoid(floats.Dot(w, row)+b) - y[i]) / n
				floats.AddScaled(gw, residual, row)
				grad[width] += residual
			}
			floats.AddScaled(gw, alpha, w)
		},
	}
}

func (m *LogisticRegression) PredictProba(features []float64) (float64, error) {
	if len(m.Coef) == 0 {
		return 0, ErrNotFitted
	}
	if len(features) != len(m.Coef) {
		return 0, fmt.Errorf("got %d features, want %d: %w", len(features), len(m.Coef), ErrFeatureMismatch)
	}
	return sigmoid(floats.Dot(m.Coef, features) + m.Intercept), nil
}

func (m *LogisticRegression) Predict(features []float64) (int, float64, error) {
	proba, err := m.PredictProba(features)
	if err != nil {
		return 0, 0, err
	}
	if proba >= 0.5 {
		return 1, proba, nil
	}
	return 0, proba, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// logLoss is log(1+e^z) - y*z, evaluated without overflow.
func logLoss(z, y float64) float64 {
	var softplus float64
	if z > 0 {
		softplus = z + math.Log1p(math.Exp(-z))
	} else {
		softplus = math.Log1p(math.Exp(z))
	}
	return softplus - y*z
}
