package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fairprep/dataset"
	"fairprep/db"
	"fairprep/ml"
)

var testColumns = []string{"age", "workclass", "sex", "race", "hours-per-week", "income"}

// writeSyntheticData writes an adult-like file where income depends on age
// and hours, with every seventh row carrying a missing marker.
func writeSyntheticData(t *testing.T, dir string, rows int) string {
	t.Helper()
	workclasses := []string{"Private", "State-gov", "Self-emp"}
	sexes := []string{"Male", "Female"}
	races := []string{"White", "Black", "Asian-Pac-Islander"}

	var b strings.Builder
	for i := 0; i < rows; i++ {
		age := 20 + (i*7)%50
		hours := 20 + (i*11)%40
		income := "<=50K"
		if age+hours > 85 {
			income = ">50K"
		}
		workclass := workclasses[i%len(workclasses)]
		if i%7 == 3 {
			workclass = "?"
		}
		fmt.Fprintf(&b, "%d, %s, %s, %s, %d, %s\n", age, workclass, sexes[i%2], races[i%3], hours, income)
	}
	path := filepath.Join(dir, "adult.data")
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return path
}

func testConfig(t *testing.T) PrepareConfig {
	t.Helper()
	dir := t.TempDir()
	return PrepareConfig{
		Loader: dataset.LoaderConfig{
			Source:        writeSyntheticData(t, dir, 350),
			Columns:       testColumns,
			MissingValues: []string{"?"},
		},
		LabelColumn:      "income",
		PositiveLabel:    ">50K",
		SensitiveColumns: []string{"sex", "race"},
		TestSize:         0.2,
		Seed:             42,
		C:                1.0,
		MaxIter:          1000,
		Tol:              1e-4,
		ModelPath:        filepath.Join(dir, "out", "model.pkl"),
		TestDataPath:     filepath.Join(dir, "out", "test_data.csv"),
	}
}

func TestPreparerRun(t *testing.T) {
	config := testConfig(t)
	report, err := NewPreparer(config, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.RawRows != 350 || report.DroppedRows != 50 || report.Rows != 300 {
		t.Fatalf("unexpected row counts: %+v", report)
	}
	if report.TrainRows+report.TestRows != report.Rows || report.TestRows != 60 {
		t.Fatalf("unexpected split sizes: train=%d test=%d", report.TrainRows, report.TestRows)
	}
	if len(report.Groups["sex"]) != 2 || len(report.Groups["race"]) != 3 {
		t.Fatalf("unexpected groups: %+v", report.Groups)
	}
	if len(report.Stages) != 5 {
		t.Fatalf("expected 5 stages, got %d", len(report.Stages))
	}

	file, err := os.Open(config.TestDataPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != report.TestRows+1 {
		t.Fatalf("expected %d lines, got %d", report.TestRows+1, len(records))
	}
	if len(records[0]) != len(testColumns) || records[0][len(testColumns)-1] != "income" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	for i, record := range records[1:] {
		label := record[len(record)-1]
		if label != "0" && label != "1" {
			t.Fatalf("row %d: unexpected label %q", i, label)
		}
	}

	metrics, err := EvaluateArtifacts(config.ModelPath, config.TestDataPath, "income", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if metrics.Samples != report.TestRows || metrics.Accuracy != report.Holdout.Accuracy {
		t.Fatalf("reloaded metrics differ: %+v vs %+v", metrics, report.Holdout)
	}
}

func TestPreparerDeterministic(t *testing.T) {
	config := testConfig(t)
	first, err := NewPreparer(config, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	firstData, err := os.ReadFile(config.TestDataPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := NewPreparer(config, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	secondData, err := os.ReadFile(config.TestDataPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.TrainRows != second.TrainRows || first.TestPositive != second.TestPositive {
		t.Fatalf("runs differ: %+v vs %+v", first, second)
	}
	if string(firstData) != string(secondData) {
		t.Fatal("test data differs between runs with the same seed")
	}
}

func TestEvaluateArtifactsWithUnseenCategory(t *testing.T) {
	config := testConfig(t)
	if _, err := NewPreparer(config, nil).Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, err := os.ReadFile(config.TestDataPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	lines = append(lines, "44,Never-worked,Female,Other,40,1")
	if err := os.WriteFile(config.TestDataPath, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	metrics, err := EvaluateArtifacts(config.ModelPath, config.TestDataPath, "income", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if metrics.Samples != len(lines)-1 {
		t.Fatalf("expected %d samples, got %d", len(lines)-1, metrics.Samples)
	}
}

func TestPreparerRecordsRun(t *testing.T) {
	config := testConfig(t)
	config.RecordRun = true
	if err := db.InitDB(filepath.Join(t.TempDir(), "runs.db")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer db.Close()

	report, err := NewPreparer(config, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logs, err := db.LoadTrainingLog(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logs) != 1 || logs[0].TestRows != report.TestRows || logs[0].Seed != 42 {
		t.Fatalf("unexpected run log: %+v", logs)
	}
}

func TestPreparerMissingSensitiveColumn(t *testing.T) {
	config := testConfig(t)
	config.SensitiveColumns = []string{"religion"}
	if _, err := NewPreparer(config, nil).Run(context.Background()); err == nil {
		t.Fatal("expected error for unknown sensitive column")
	}
	if _, err := os.Stat(config.ModelPath); !os.IsNotExist(err) {
		t.Fatalf("model must not be written when a check fails, stat err=%v", err)
	}
}

func TestPreparerLoadFailure(t *testing.T) {
	config := testConfig(t)
	config.Loader.Source = filepath.Join(t.TempDir(), "missing.data")
	if _, err := NewPreparer(config, nil).Run(context.Background()); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestLoadedModelMatchesReport(t *testing.T) {
	config := testConfig(t)
	report, err := NewPreparer(config, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	model, err := ml.LoadPipeline(config.ModelPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.TrainedRows != report.TrainRows || len(model.FeatureNames) != report.Features {
		t.Fatalf("artifact metadata mismatch: %d/%d rows, %d/%d features",
			model.TrainedRows, report.TrainRows, len(model.FeatureNames), report.Features)
	}
}

func TestPreparerDropsNASpellings(t *testing.T) {
	config := testConfig(t)
	file, err := os.OpenFile(config.Loader.Source, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = file.WriteString("NaN, Private, Male, White, 40, >50K\n45, Private, NA, White, 40, <=50K\n")
	file.Close()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report, err := NewPreparer(config, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.RawRows != 352 || report.DroppedRows != 52 || report.Rows != 300 {
		t.Fatalf("unexpected row counts: %+v", report)
	}
	if !report.Converged || report.Holdout.Accuracy < 0.9 {
		t.Fatalf("expected a trained model, got converged=%t accuracy=%f", report.Converged, report.Holdout.Accuracy)
	}
}

func TestPreparerRejectsNonFiniteFeature(t *testing.T) {
	config := testConfig(t)
	file, err := os.OpenFile(config.Loader.Source, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = file.WriteString("Inf, Private, Male, White, 40, >50K\n")
	file.Close()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = NewPreparer(config, nil).Run(context.Background())
	if !errors.Is(err, ml.ErrNonFinite) {
		t.Fatalf("expected ErrNonFinite, got %v", err)
	}
	if _, err := os.Stat(config.ModelPath); !os.IsNotExist(err) {
		t.Fatalf("model must not be written, stat err=%v", err)
	}
}

func TestPreparerRejectsSingleClassLabels(t *testing.T) {
	config := testConfig(t)
	config.PositiveLabel = ">50K."
	_, err := NewPreparer(config, nil).Run(context.Background())
	if !errors.Is(err, ml.ErrSingleClass) {
		t.Fatalf("expected ErrSingleClass, got %v", err)
	}
	if _, err := os.Stat(config.ModelPath); !os.IsNotExist(err) {
		t.Fatalf("model must not be written, stat err=%v", err)
	}
}
