package ml

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadPipeline reads a pipeline written by Pipeline.Save.
func LoadPipeline(path string) (*Pipeline, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Pipeline
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode pipeline: %w", err)
	}
	switch p.Version {
	case pipelineFormatVersion:
	default:
		return nil, fmt.Errorf("unsupported pipeline format version %d", p.Version)
	}
	if p.Encoder == nil || !p.Encoder.Fitted() || p.Classifier == nil || len(p.Classifier.Coef) == 0 {
		return nil, ErrNotFitted
	}
	if p.Encoder.Width() != len(p.Classifier.Coef) {
		return nil, fmt.Errorf("encoder width %d, classifier expects %d: %w", p.Encoder.Width(), len(p.Classifier.Coef), ErrFeatureMismatch)
	}
	return &p, nil
}
