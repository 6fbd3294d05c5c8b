package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"fairprep/dataset"
	"fairprep/logging"
	"fairprep/pipeline"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Dataset struct {
		URL              string        `yaml:"url"`
		Columns          []string      `yaml:"columns"`
		LabelColumn      string        `yaml:"label_column"`
		PositiveLabel    string        `yaml:"positive_label"`
		MissingValues    []string      `yaml:"missing_values"`
		SensitiveColumns []string      `yaml:"sensitive_columns"`
		Encoding         string        `yaml:"encoding"`
		Timeout          time.Duration `yaml:"timeout"`
	} `yaml:"dataset"`
	Split struct {
		TestSize float64 `yaml:"test_size"`
		Seed     int64   `yaml:"seed"`
	} `yaml:"split"`
	Model struct {
		C       float64 `yaml:"c"`
		MaxIter int     `yaml:"max_iter"`
		Tol     float64 `yaml:"tol"`
	} `yaml:"model"`
	Output struct {
		ModelPath    string `yaml:"model_path"`
		TestDataPath string `yaml:"test_data_path"`
	} `yaml:"output"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"log"`
}

var adultColumns = []string{
	"age", "workclass", "fnlwgt", "education", "education-num", "marital-status",
	"occupation", "relationship", "race", "sex", "capital-gain", "capital-loss",
	"hours-per-week", "native-country", "income",
}

func defaultConfig() *Config {
	var c Config
	c.Dataset.URL = "https://archive.ics.uci.edu/ml/machine-learning-databases/adult/adult.data"
	c.Dataset.Columns = append([]string(nil), adultColumns...)
	c.Dataset.LabelColumn = "income"
	c.Dataset.PositiveLabel = ">50K"
	c.Dataset.MissingValues = []string{"?"}
	c.Dataset.SensitiveColumns = []string{"sex", "race"}
	c.Dataset.Encoding = "utf-8"
	c.Dataset.Timeout = 60 * time.Second
	c.Split.TestSize = 0.2
	c.Split.Seed = 42
	c.Model.C = 1.0
	c.Model.MaxIter = 1000
	c.Model.Tol = 1e-4
	c.Output.ModelPath = "model.pkl"
	c.Output.TestDataPath = "test_data.csv"
	c.Log.Level = "info"
	c.Log.MaxSizeMB = 10
	c.Log.MaxBackups = 3
	c.Log.MaxAgeDays = 28
	return &c
}

// loadConfig overlays the YAML file at path on the defaults. A missing file
// yields the defaults unless required is set.
func loadConfig(path string, required bool) (*Config, error) {
	config := defaultConfig()

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return config, config.validate()
		}
		return nil, err
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return config, config.validate()
}

func (c *Config) validate() error {
	if c.Dataset.URL == "" {
		return errors.New("dataset.url is required")
	}
	if len(c.Dataset.Columns) < 2 {
		return errors.New("dataset.columns needs at least one feature and the label")
	}
	found := false
	for _, column := range c.Dataset.Columns {
		if column == c.Dataset.LabelColumn {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("dataset.label_column %q is not in dataset.columns", c.Dataset.LabelColumn)
	}
	for _, sensitive := range c.Dataset.SensitiveColumns {
		if sensitive == c.Dataset.LabelColumn {
			return fmt.Errorf("dataset.sensitive_columns must not include the label %q", sensitive)
		}
	}
	if c.Split.TestSize <= 0 || c.Split.TestSize >= 1 {
		return fmt.Errorf("split.test_size %v must be between 0 and 1", c.Split.TestSize)
	}
	if c.Model.C <= 0 {
		return fmt.Errorf("model.c %v must be positive", c.Model.C)
	}
	if c.Model.MaxIter <= 0 {
		return fmt.Errorf("model.max_iter %d must be positive", c.Model.MaxIter)
	}
	if c.Output.ModelPath == "" || c.Output.TestDataPath == "" {
		return errors.New("output.model_path and output.test_data_path are required")
	}
	return nil
}

func (c *Config) prepareConfig() pipeline.PrepareConfig {
	return pipeline.PrepareConfig{
		Loader: dataset.LoaderConfig{
			Source:        c.Dataset.URL,
			Columns:       c.Dataset.Columns,
			MissingValues: c.Dataset.MissingValues,
			Encoding:      c.Dataset.Encoding,
			Timeout:       c.Dataset.Timeout,
		},
		LabelColumn:      c.Dataset.LabelColumn,
		PositiveLabel:    c.Dataset.PositiveLabel,
		SensitiveColumns: c.Dataset.SensitiveColumns,
		TestSize:         c.Split.TestSize,
		Seed:             c.Split.Seed,
		C:                c.Model.C,
		MaxIter:          c.Model.MaxIter,
		Tol:              c.Model.Tol,
		ModelPath:        c.Output.ModelPath,
		TestDataPath:     c.Output.TestDataPath,
		RecordRun:        c.Database.Path != "",
	}
}

func (c *Config) loggingConfig() logging.Config {
	return logging.Config{
		Level:      c.Log.Level,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
	}
}
