package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// WriteLabeledCSV writes the frame with a header row and the labels appended
// as the last column. An existing file at path is replaced.
func WriteLabeledCSV(path string, f *Frame, labels []int, labelColumn string) error {
	if len(labels) != f.Len() {
		return fmt.Errorf("got %d labels for %d rows", len(labels), f.Len())
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(file)
	header := append(f.ColumnNames(), labelColumn)
	if err := w.Write(header); err != nil {
		file.Close()
		return err
	}
	record := make([]string, len(header))
	for i, row := range f.Rows {
		copy(record, row)
		record[len(record)-1] = strconv.Itoa(labels[i])
		if err := w.Write(record); err != nil {
			file.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// ReadCSV reads a comma-separated file whose first row is the header.
func ReadCSV(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read %s: missing header", path)
	}
	return NewFrame(records[0], records[1:])
}
