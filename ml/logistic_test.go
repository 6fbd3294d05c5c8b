package ml

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/optimize"
)

func TestLogisticRegressionTrainPredict(t *testing.T) {
	features := [][]float64{
		{0.1, 0.2},
		{0.2, 0.1},
		{0.3, 0.3},
		{0.9, 0.8},
		{0.8, 0.9},
		{0.7, 0.7},
	}
	labels := []int{0, 0, 0, 1, 1, 1}

	model := NewLogisticRegression(1.0, 1000, 1e-6)
	if err := model.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(model.Coef) != 2 {
		t.Fatalf("expected 2 coefficients, got %d", len(model.Coef))
	}
	if model.Coef[0] <= 0 || model.Coef[1] <= 0 {
		t.Fatalf("expected positive coefficients, got %v", model.Coef)
	}

	label, proba, err := model.Predict([]float64{0.95, 0.95})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != 1 || proba <= 0.5 {
		t.Fatalf("expected positive prediction, got %d (%f)", label, proba)
	}
	label, _, err = model.Predict([]float64{0.05, 0.05})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != 0 {
		t.Fatalf("expected negative prediction, got %d", label)
	}
}

func TestLogisticRegressionRegularizationShrinks(t *testing.T) {
	features := [][]float64{{-1}, {-0.5}, {0.5}, {1}}
	labels := []int{0, 0, 1, 1}

	weak := NewLogisticRegression(100, 1000, 1e-8)
	strong := NewLogisticRegression(0.01, 1000, 1e-8)
	if err := weak.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := strong.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(strong.Coef[0]) >= math.Abs(weak.Coef[0]) {
		t.Fatalf("expected stronger penalty to shrink weights: %f vs %f", strong.Coef[0], weak.Coef[0])
	}
}

func TestLogisticRegressionErrors(t *testing.T) {
	model := NewLogisticRegression(1, 10, 1e-4)
	if _, err := model.PredictProba([]float64{1}); !errors.Is(err, ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}
	if err := model.Train(nil, nil); !errors.Is(err, ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
	if err := model.Train([][]float64{{1}, {2}}, []int{0, 2}); err == nil {
		t.Fatal("expected error for non-binary label")
	}
	if err := model.Train([][]float64{{1}, {2, 3}}, []int{0, 1}); !errors.Is(err, ErrFeatureMismatch) {
		t.Fatalf("expected ErrFeatureMismatch, got %v", err)
	}
}

func TestLogisticRegressionRejectsNonFinite(t *testing.T) {
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		model := NewLogisticRegression(1, 100, 1e-4)
		features := [][]float64{{1, 2}, {bad, 1}, {3, 0}, {0, 4}}
		if err := model.Train(features, []int{0, 1, 0, 1}); !errors.Is(err, ErrNonFinite) {
			t.Fatalf("%v: expected ErrNonFinite, got %v", bad, err)
		}
		if len(model.Coef) != 0 {
			t.Fatalf("%v: expected no coefficients, got %v", bad, model.Coef)
		}
	}
}

func TestLogisticRegressionRejectsSingleClass(t *testing.T) {
	features := [][]float64{{1}, {2}, {3}}
	for _, labels := range [][]int{{0, 0, 0}, {1, 1, 1}} {
		model := NewLogisticRegression(1, 100, 1e-4)
		if err := model.Train(features, labels); !errors.Is(err, ErrSingleClass) {
			t.Fatalf("%v: expected ErrSingleClass, got %v", labels, err)
		}
	}
}

func TestCheckResult(t *testing.T) {
	failed := errors.New("linesearch failed")
	if err := checkResult(nil, failed); !errors.Is(err, failed) {
		t.Fatalf("expected wrapped optimizer error, got %v", err)
	}
	stalled := &optimize.Result{Status: optimize.Failure}
	if err := checkResult(stalled, failed); !errors.Is(err, failed) {
		t.Fatalf("expected error when no iteration completed, got %v", err)
	}
	partial := &optimize.Result{Stats: optimize.Stats{MajorIterations: 12}, Status: optimize.Failure}
	if err := checkResult(partial, failed); err != nil {
		t.Fatalf("expected partial iterate to be kept, got %v", err)
	}
	if err := checkResult(&optimize.Result{Status: optimize.GradientThreshold}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLogLossStable(t *testing.T) {
	if v := logLoss(1000, 1); math.IsInf(v, 0) || math.IsNaN(v) || v > 1e-6 {
		t.Fatalf("unexpected loss for confident positive: %f", v)
	}
	if v := logLoss(-1000, 1); math.Abs(v-1000) > 1e-6 {
		t.Fatalf("expected loss 1000, got %f", v)
	}
	if s := sigmoid(-1000); s < 0 || s > 1e-300 {
		t.Fatalf("unexpected sigmoid %g", s)
	}
}
