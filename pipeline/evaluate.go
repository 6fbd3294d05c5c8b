package pipeline

import (
	"fmt"

	"fairprep/dataset"
	"fairprep/ml"

	"go.uber.org/zap"
)

// EvaluateArtifacts 重新加载模型与评估文件，用同一编码器打分并计算指标
func EvaluateArtifacts(modelPath, testDataPath, labelColumn string, logger *zap.Logger) (ml.Metrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	model, err := ml.LoadPipeline(modelPath)
	if err != nil {
		return ml.Metrics{}, fmt.Errorf("load model: %w", err)
	}
	frame, err := dataset.ReadCSV(testDataPath)
	if err != nil {
		return ml.Metrics{}, fmt.Errorf("load test data: %w", err)
	}
	features, labels, err := dataset.ParseBinaryLabels(frame, labelColumn)
	if err != nil {
		return ml.Metrics{}, fmt.Errorf("load test data: %w", err)
	}

	probs, err := model.PredictProba(features)
	if err != nil {
		return ml.Metrics{}, fmt.Errorf("score test data: %w", err)
	}
	metrics, err := ml.Evaluate(labels, probs)
	if err != nil {
		return ml.Metrics{}, err
	}

	logger.Info("artifacts evaluated",
		zap.String("model", modelPath),
		zap.String("test_data", testDataPath),
		zap.Int("rows", metrics.Samples),
		zap.Float64("accuracy", metrics.Accuracy),
		zap.Float64("f1", metrics.F1),
	)
	return metrics, nil
}
