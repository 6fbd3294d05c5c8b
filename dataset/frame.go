// Package dataset loads, cleans and writes the tabular records used to train
// and evaluate the demo classifier.
package dataset

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrSchemaMismatch is returned when a record does not match the declared columns.
var ErrSchemaMismatch = errors.New("schema mismatch")

// ColumnKind is the storage type inferred for a column.
type ColumnKind int

const (
	KindCategorical ColumnKind = iota
	KindNumeric
)

func (k ColumnKind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	default:
		return fmt.Sprintf("ColumnKind(%d)", int(k))
	}
}

// Column describes one named column of a Frame.
type Column struct {
	Name string
	Kind ColumnKind
}

// Frame is an in-memory table of string cells. Rows are treated as immutable
// once the frame is built, so subsets share row storage with their parent.
type Frame struct {
	Columns []Column
	Rows    [][]string
}

// NewFrame builds a frame and infers each column's kind from its values.
func NewFrame(names []string, rows [][]string) (*Frame, error) {
	columns := make([]Column, len(names))
	for i, name := range names {
		columns[i] = Column{Name: name}
	}
	for i, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("row %d has %d fields, want %d: %w", i, len(row), len(names), ErrSchemaMismatch)
		}
	}
	f := &Frame{Columns: columns, Rows: rows}
	f.inferKinds()
	return f, nil
}

// inferKinds marks a column numeric when it has at least one row and every
// value parses as a float.
func (f *Frame) inferKinds() {
	for j := range f.Columns {
		kind := KindCategorical
		if len(f.Rows) > 0 {
			kind = KindNumeric
			for _, row := range f.Rows {
				if _, err := strconv.ParseFloat(row[j], 64); err != nil {
					kind = KindCategorical
					break
				}
			}
		}
		f.Columns[j].Kind = kind
	}
}

func (f *Frame) Len() int {
	return len(f.Rows)
}

func (f *Frame) ColumnNames() []string {
	names := make([]string, len(f.Columns))
	for i, column := range f.Columns {
		names[i] = column.Name
	}
	return names
}

// ColumnIndex returns the position of the named column, or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i, column := range f.Columns {
		if column.Name == name {
			return i
		}
	}
	return -1
}

// Values returns a copy of the named column's cells.
func (f *Frame) Values(name string) ([]string, error) {
	idx := f.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found", name)
	}
	values := make([]string, len(f.Rows))
	for i, row := range f.Rows {
		values[i] = row[idx]
	}
	return values, nil
}

// Drop returns a new frame without the named column. Column kinds are kept.
func (f *Frame) Drop(name string) (*Frame, error) {
	idx := f.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found", name)
	}
	columns := make([]Column, 0, len(f.Columns)-1)
	columns = append(columns, f.Columns[:idx]...)
	columns = append(columns, f.Columns[idx+1:]...)

	rows := make([][]string, len(f.Rows))
	for i, row := range f.Rows {
		out := make([]string, 0, len(row)-1)
		out = append(out, row[:idx]...)
		out = append(out, row[idx+1:]...)
		rows[i] = out
	}
	return &Frame{Columns: columns, Rows: rows}, nil
}

// Take returns the rows at the given positions, in that order.
func (f *Frame) Take(indices []int) *Frame {
	columns := append([]Column(nil), f.Columns...)
	rows := make([][]string, len(indices))
	for i, idx := range indices {
		rows[i] = f.Rows[idx]
	}
	return &Frame{Columns: columns, Rows: rows}
}
