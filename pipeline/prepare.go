package pipeline

import (
	"context"
	"fmt"
	"time"

	"fairprep/dataset"
	"fairprep/db"
	"fairprep/ml"
	"fairprep/monitoring"

	"go.uber.org/zap"
)

// PrepareConfig 演示产物准备配置
type PrepareConfig struct {
	Loader           dataset.LoaderConfig
	LabelColumn      string
	PositiveLabel    string
	SensitiveColumns []string

	TestSize float64
	Seed     int64

	C       float64
	MaxIter int
	Tol     float64

	ModelPath    string
	TestDataPath string
	// RecordRun 为真时写入运行日志（需先 db.InitDB）
	RecordRun bool
}

// Report 一次准备运行的结果
type Report struct {
	Source        string                     `json:"source"`
	RawRows       int                        `json:"raw_rows"`
	DroppedRows   int                        `json:"dropped_rows"`
	Rows          int                        `json:"rows"`
	TrainRows     int                        `json:"train_rows"`
	TestRows      int                        `json:"test_rows"`
	TrainPositive float64                    `json:"train_positive_rate"`
	TestPositive  float64                    `json:"test_positive_rate"`
	Features      int                        `json:"features"`
	Converged     bool                       `json:"converged"`
	Iterations    int                        `json:"iterations"`
	Holdout       ml.Metrics                 `json:"holdout"`
	Groups        map[string][]ml.GroupStats `json:"groups"`
	ModelPath     string                     `json:"model_path"`
	TestDataPath  string                     `json:"test_data_path"`
	StartedAt     time.Time                  `json:"started_at"`
	FinishedAt    time.Time                  `json:"finished_at"`
	Stages        []monitoring.StageMetric   `json:"stages"`
}

// Preparer 按 加载 → 划分 → 拟合 → 保存 顺序生成产物
type Preparer struct {
	config  PrepareConfig
	loader  *dataset.Loader
	logger  *zap.Logger
	metrics *monitoring.MetricsCollector
}

// NewPreparer 创建准备器
func NewPreparer(config PrepareConfig, logger *zap.Logger) *Preparer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Preparer{
		config:  config,
		loader:  dataset.NewLoader(config.Loader, logger.Named("loader")),
		logger:  logger,
		metrics: monitoring.NewMetricsCollector(),
	}
}

// Run 执行完整流程；任一阶段失败即返回，不清理已写出的文件
func (p *Preparer) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		Source:       p.config.Loader.Source,
		ModelPath:    p.config.ModelPath,
		TestDataPath: p.config.TestDataPath,
		StartedAt:    time.Now().UTC(),
		Groups:       make(map[string][]ml.GroupStats),
	}

	// 1. 加载
	var frame *dataset.Frame
	err := p.metrics.Track("load", func() error {
		var stats dataset.CleaningStats
		var err error
		frame, stats, err = p.loader.Load(ctx)
		if err != nil {
			return err
		}
		report.RawRows = int(stats.TotalProcessed)
		report.DroppedRows = int(stats.Rejected)
		report.Rows = frame.Len()
		p.metrics.Add("rows_dropped", float64(stats.Rejected))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	features, labels, err := dataset.SplitLabel(frame, p.config.LabelColumn, p.config.PositiveLabel)
	if err != nil {
		return nil, fmt.Errorf("split label: %w", err)
	}

	// 2. 分层划分
	var trainX, testX *dataset.Frame
	var trainY, testY []int
	err = p.metrics.Track("split", func() error {
		trainIdx, testIdx, err := ml.StratifiedSplit(labels, p.config.TestSize, p.config.Seed)
		if err != nil {
			return err
		}
		trainX, trainY = features.Take(trainIdx), pick(labels, trainIdx)
		testX, testY = features.Take(testIdx), pick(labels, testIdx)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("split dataset: %w", err)
	}
	report.TrainRows, report.TestRows = trainX.Len(), testX.Len()
	report.TrainPositive, report.TestPositive = dataset.PositiveRate(trainY), dataset.PositiveRate(testY)
	p.metrics.Set("train_rows", float64(report.TrainRows))
	p.metrics.Set("test_rows", float64(report.TestRows))
	p.logger.Info("dataset split",
		zap.Int("train_rows", report.TrainRows),
		zap.Int("test_rows", report.TestRows),
		zap.Float64("train_positive_rate", report.TrainPositive),
		zap.Float64("test_positive_rate", report.TestPositive),
		zap.Int64("seed", p.config.Seed),
	)

	// 3. 编码 + 训练（编码器只在训练集上拟合）
	model := ml.NewPipeline(ml.NewFeatureEncoder(), ml.NewLogisticRegression(p.config.C, p.config.MaxIter, p.config.Tol))
	err = p.metrics.Track("fit", func() error {
		return model.Fit(trainX, trainY)
	})
	if err != nil {
		return nil, fmt.Errorf("fit pipeline: %w", err)
	}
	report.Features = len(model.FeatureNames)
	report.Converged = model.Classifier.Converged
	report.Iterations = model.Classifier.Iterations
	if !report.Converged {
		p.logger.Warn("classifier did not converge, keeping current coefficients",
			zap.Int("iterations", report.Iterations),
			zap.Int("max_iter", model.Classifier.MaxIter),
			zap.String("status", model.Classifier.Status),
		)
	}
	p.logger.Info("model trained",
		zap.Int("features", report.Features),
		zap.Int("iterations", report.Iterations),
		zap.Bool("converged", report.Converged),
	)

	// 留出集评估
	err = p.metrics.Track("evaluate", func() error {
		probs, err := model.PredictProba(testX)
		if err != nil {
			return err
		}
		report.Holdout, err = ml.Evaluate(testY, probs)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate holdout: %w", err)
	}
	p.logger.Info("holdout metrics",
		zap.Float64("accuracy", report.Holdout.Accuracy),
		zap.Float64("precision", report.Holdout.Precision),
		zap.Float64("recall", report.Holdout.Recall),
		zap.Float64("f1", report.Holdout.F1),
		zap.Float64("log_loss", report.Holdout.LogLoss),
	)

	if err := p.describeGroups(testX, testY, report); err != nil {
		return nil, err
	}

	// 4. 保存产物
	err = p.metrics.Track("save", func() error {
		if err := model.Save(p.config.ModelPath); err != nil {
			return fmt.Errorf("save model: %w", err)
		}
		p.logger.Info("model saved", zap.String("path", p.config.ModelPath))
		if err := dataset.WriteLabeledCSV(p.config.TestDataPath, testX, testY, p.config.LabelColumn); err != nil {
			return fmt.Errorf("write test data: %w", err)
		}
		p.logger.Info("test data saved", zap.String("path", p.config.TestDataPath), zap.Int("rows", testX.Len()))
		return nil
	})
	if err != nil {
		return nil, err
	}

	report.FinishedAt = time.Now().UTC()
	report.Stages = p.metrics.Stages()

	if p.config.RecordRun {
		id, err := db.SaveTrainingLog(trainingLog(report, p.config.Seed))
		if err != nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
		p.logger.Debug("run recorded", zap.Int64("id", id))
	}

	p.logger.Info("run summary", p.metrics.Fields()...)
	return report, nil
}

// describeGroups 校验敏感属性列存在并记录各组的正例比例
func (p *Preparer) describeGroups(testX *dataset.Frame, testY []int, report *Report) error {
	for _, column := range p.config.SensitiveColumns {
		values, err := testX.Values(column)
		if err != nil {
			return fmt.Errorf("sensitive column: %w", err)
		}
		groups, err := ml.GroupRates(values, testY)
		if err != nil {
			return err
		}
		report.Groups[column] = groups
		for _, group := range groups {
			p.logger.Info("sensitive group",
				zap.String("column", column),
				zap.String("group", group.Group),
				zap.Int("rows", group.Rows),
				zap.Float64("positive_rate", group.PositiveRate),
			)
		}
	}
	return nil
}

func pick(values []int, indices []int) []int {
	out := make([]int, len(indices))
	for i, idx := range indices {
		out[i] = values[idx]
	}
	return out
}

func trainingLog(report *Report, seed int64) db.TrainingLog {
	return db.TrainingLog{
		ModelName:    "logistic_regression",
		Source:       report.Source,
		RawRows:      report.RawRows,
		DroppedRows:  report.DroppedRows,
		TrainRows:    report.TrainRows,
		TestRows:     report.TestRows,
		Seed:         seed,
		Accuracy:     report.Holdout.Accuracy,
		Precision:    report.Holdout.Precision,
		Recall:       report.Holdout.Recall,
		F1:           report.Holdout.F1,
		LogLoss:      report.Holdout.LogLoss,
		Converged:    report.Converged,
		Iterations:   report.Iterations,
		ModelPath:    report.ModelPath,
		TestDataPath: report.TestDataPath,
		StartedAt:    report.StartedAt,
		TrainedAt:    report.FinishedAt,
	}
}
