package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fairprep/dataset"
)

const pipelineFormatVersion = 1

// Pipeline bundles the fitted feature encoder and classifier so that raw
// feature frames can be scored with the exact transform used in training.
type Pipeline struct {
	Version      int                 `json:"version"`
	Encoder      *FeatureEncoder     `json:"encoder"`
	Classifier   *LogisticRegression `json:"classifier"`
	FeatureNames []string            `json:"feature_names"`
	Classes      []int               `json:"classes"`
	TrainedRows  int                 `json:"trained_rows"`
	CreatedAt    time.Time           `json:"created_at"`
}

func NewPipeline(encoder *FeatureEncoder, classifier *LogisticRegression) *Pipeline {
	return &Pipeline{
		Version:    pipelineFormatVersion,
		Encoder:    encoder,
		Classifier: classifier,
	}
}

// Fit fits the encoder on features and then the classifier on the encoded rows.
func (p *Pipeline) Fit(features *dataset.Frame, labels []int) error {
	if p.Encoder == nil || p.Classifier == nil {
		return errors.New("pipeline needs an encoder and a classifier")
	}
	if features.Len() != len(labels) {
		return fmt.Errorf("got %d labels for %d rows", len(labels), features.Len())
	}
	if err := p.Encoder.Fit(features); err != nil {
		return fmt.Errorf("fit encoder: %w", err)
	}
	encoded, err := p.Encoder.Transform(features)
	if err != nil {
		return fmt.Errorf("encode training rows: %w", err)
	}
	if err := p.Classifier.Train(encoded, labels); err != nil {
		return fmt.Errorf("train classifier: %w", err)
	}

	p.FeatureNames = p.Encoder.FeatureNames()
	p.Classes = []int{0, 1}
	p.TrainedRows = features.Len()
	p.CreatedAt = time.Now().UTC()
	return nil
}

// PredictProba returns the positive-class probability for every row.
func (p *Pipeline) PredictProba(features *dataset.Frame) ([]float64, error) {
	if p.Encoder == nil || p.Classifier == nil {
		return nil, ErrNotFitted
	}
	encoded, err := p.Encoder.Transform(features)
	if err != nil {
		return nil, err
	}
	probs := make([]float64, len(encoded))
	for i, row := range encoded {
		probs[i], err = p.Classifier.PredictProba(row)
		if err != nil {
			return nil, err
		}
	}
	return probs, nil
}

func (p *Pipeline) Predict(features *dataset.Frame) ([]int, error) {
	probs, err := p.PredictProba(features)
	if err != nil {
		return nil, err
	}
	labels := make([]int, len(probs))
	for i, prob := range probs {
		if prob >= 0.5 {
			labels[i] = 1
		}
	}
	return labels, nil
}

// Save writes the pipeline to path, replacing any existing file.
func (p *Pipeline) Save(path string) error {
	if p.Encoder == nil || !p.Encoder.Fitted() || p.Classifier == nil || len(p.Classifier.Coef) == 0 {
		return ErrNotFitted
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}
