package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var database *sql.DB

// InitDB opens the SQLite run log at path and creates its tables.
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_name VARCHAR(50) NOT NULL,
        source TEXT NOT NULL,
        raw_rows INTEGER DEFAULT 0,
        dropped_rows INTEGER DEFAULT 0,
        train_rows INTEGER DEFAULT 0,
        test_rows INTEGER DEFAULT 0,
        seed INTEGER DEFAULT 0,
        accuracy REAL,
        precision REAL,
        recall REAL,
        f1 REAL,
        log_loss REAL,
        converged INTEGER DEFAULT 0,
        iterations INTEGER DEFAULT 0,
        model_path TEXT,
        test_data_path TEXT,
        started_at DATETIME NOT NULL,
        trained_at DATETIME NOT NULL
    );
    `

	_, err = database.Exec(query)
	return err
}

// Close releases the database handle.
func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

// TrainingLog is one recorded preparation run.
type TrainingLog struct {
	ID           int64     `json:"id"`
	ModelName    string    `json:"model_name"`
	Source       string    `json:"source"`
	RawRows      int       `json:"raw_rows"`
	DroppedRows  int       `json:"dropped_rows"`
	TrainRows    int       `json:"train_rows"`
	TestRows     int       `json:"test_rows"`
	Seed         int64     `json:"seed"`
	Accuracy     float64   `json:"accuracy"`
	Precision    float64   `json:"precision"`
	Recall       float64   `json:"recall"`
	F1           float64   `json:"f1"`
	LogLoss      float64   `json:"log_loss"`
	Converged    bool      `json:"converged"`
	Iterations   int       `json:"iterations"`
	ModelPath    string    `json:"model_path"`
	TestDataPath string    `json:"test_data_path"`
	StartedAt    time.Time `json:"started_at"`
	TrainedAt    time.Time `json:"trained_at"`
}

// SaveTrainingLog inserts a run and returns its id.
func SaveTrainingLog(entry TrainingLog) (int64, error) {
	if database == nil {
		return 0, errors.New("database not initialized")
	}
	res, err := database.Exec(`
        INSERT INTO training_log (
            model_name, source, raw_rows, dropped_rows, train_rows, test_rows, seed,
            accuracy, precision, recall, f1, log_loss, converged, iterations,
            model_path, test_data_path, started_at, trained_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		entry.ModelName,
		entry.Source,
		entry.RawRows,
		entry.DroppedRows,
		entry.TrainRows,
		entry.TestRows,
		entry.Seed,
		entry.Accuracy,
		entry.Precision,
		entry.Recall,
		entry.F1,
		entry.LogLoss,
		entry.Converged,
		entry.Iterations,
		entry.ModelPath,
		entry.TestDataPath,
		entry.StartedAt.UTC(),
		entry.TrainedAt.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LoadTrainingLog returns the most recent runs first. limit <= 0 returns all.
func LoadTrainingLog(limit int) ([]TrainingLog, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := database.Query(`
        SELECT id, model_name, source, raw_rows, dropped_rows, train_rows, test_rows, seed,
               accuracy, precision, recall, f1, log_loss, converged, iterations,
               model_path, test_data_path, started_at, trained_at
        FROM training_log
        ORDER BY trained_at DESC, id DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		if err := rows.Scan(
			&log.ID, &log.ModelName, &log.Source, &log.RawRows, &log.DroppedRows,
			&log.TrainRows, &log.TestRows, &log.Seed,
			&log.Accuracy, &log.Precision, &log.Recall, &log.F1, &log.LogLoss,
			&log.Converged, &log.Iterations,
			&log.ModelPath, &log.TestDataPath, &log.StartedAt, &log.TrainedAt,
		); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
