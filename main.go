package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"fairprep/db"
	"fairprep/logging"
	"fairprep/pipeline"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "fairprep",
		Short:        "Prepare a trained classifier and a labeled holdout set for fairness evaluation",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPrepare(cmd, configPath)
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML config file")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "prepare",
			Short: "Load, split, train and write model.pkl and test_data.csv",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runPrepare(cmd, configPath)
			},
		},
		newEvaluateCmd(&configPath),
		newHistoryCmd(&configPath),
	)
	return cmd
}

// setup loads config and builds the logger. Callers must run cleanup.
func setup(cmd *cobra.Command, configPath string) (*Config, *zap.Logger, func(), error) {
	config, err := loadConfig(configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, cleanup, err := logging.New(config.loggingConfig())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return config, logger, cleanup, nil
}

func runPrepare(cmd *cobra.Command, configPath string) error {
	config, logger, cleanup, err := setup(cmd, configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	if config.Database.Path != "" {
		if err := db.InitDB(config.Database.Path); err != nil {
			logger.Error("failed to initialize database", zap.String("path", config.Database.Path), zap.Error(err))
			return err
		}
		defer db.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("preparing demo files", zap.String("source", config.Dataset.URL))
	report, err := pipeline.NewPreparer(config.prepareConfig(), logger).Run(ctx)
	if err != nil {
		logger.Error("prepare failed", zap.Error(err))
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Model saved as %q\n", report.ModelPath)
	fmt.Fprintf(out, "Test data for evaluation saved as %q\n", report.TestDataPath)
	if len(config.Dataset.SensitiveColumns) > 0 {
		fmt.Fprintf(out, "Sensitive attribute candidates: %v\n", config.Dataset.SensitiveColumns)
	}
	return nil
}

func newEvaluateCmd(configPath *string) *cobra.Command {
	var modelPath, testDataPath string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score test_data.csv with model.pkl and print holdout metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, logger, cleanup, err := setup(cmd, *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if modelPath == "" {
				modelPath = config.Output.ModelPath
			}
			if testDataPath == "" {
				testDataPath = config.Output.TestDataPath
			}
			metrics, err := pipeline.EvaluateArtifacts(modelPath, testDataPath, config.Dataset.LabelColumn, logger)
			if err != nil {
				logger.Error("evaluate failed", zap.Error(err))
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "samples\t%d\n", metrics.Samples)
			fmt.Fprintf(w, "accuracy\t%.4f\n", metrics.Accuracy)
			fmt.Fprintf(w, "precision\t%.4f\n", metrics.Precision)
			fmt.Fprintf(w, "recall\t%.4f\n", metrics.Recall)
			fmt.Fprintf(w, "f1\t%.4f\n", metrics.F1)
			fmt.Fprintf(w, "log_loss\t%.4f\n", metrics.LogLoss)
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", "", "model file (defaults to output.model_path)")
	cmd.Flags().StringVar(&testDataPath, "data", "", "evaluation file (defaults to output.test_data_path)")
	return cmd
}

func newHistoryCmd(configPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded preparation runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, logger, cleanup, err := setup(cmd, *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if config.Database.Path == "" {
				return fmt.Errorf("database.path is not configured")
			}
			if err := db.InitDB(config.Database.Path); err != nil {
				logger.Error("failed to initialize database", zap.Error(err))
				return err
			}
			defer db.Close()

			logs, err := db.LoadTrainingLog(limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTRAINED AT\tTRAIN\tTEST\tACCURACY\tF1\tCONVERGED\tMODEL")
			for _, run := range logs {
				fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%.4f\t%.4f\t%t\t%s\n",
					run.ID, run.TrainedAt.Format("2006-01-02 15:04:05"), run.TrainRows, run.TestRows,
					run.Accuracy, run.F1, run.Converged, run.ModelPath)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show (0 for all)")
	return cmd
}
