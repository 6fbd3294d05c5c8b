package ml

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"fairprep/dataset"
)

// CategoricalColumn holds the sorted categories seen for one column at fit time.
type CategoricalColumn struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`

	index map[string]int
}

func (c *CategoricalColumn) lookup(value string) (int, bool) {
	if c.index == nil {
		c.index = make(map[string]int, len(c.Categories))
		for i, category := range c.Categories {
			c.index[category] = i
		}
	}
	pos, ok := c.index[value]
	return pos, ok
}

// FeatureEncoder passes numeric columns through and one-hot encodes
// categorical ones. Values not seen during Fit encode as all zeros.
type FeatureEncoder struct {
	Numeric     []string            `json:"numeric"`
	Categorical []CategoricalColumn `json:"categorical"`
}

func NewFeatureEncoder() *FeatureEncoder {
	return &FeatureEncoder{}
}

func (e *FeatureEncoder) Fitted() bool {
	return len(e.Numeric)+len(e.Categorical) > 0
}

// Fit learns the column layout from f using the frame's inferred kinds.
func (e *FeatureEncoder) Fit(f *dataset.Frame) error {
	if f.Len() == 0 {
		return ErrEmptyDataset
	}
	e.Numeric = nil
	e.Categorical = nil

	for j, column := range f.Columns {
		if column.Kind == dataset.KindNumeric {
			e.Numeric = append(e.Numeric, column.Name)
			continue
		}
		seen := make(map[string]struct{})
		for _, row := range f.Rows {
			seen[row[j]] = struct{}{}
		}
		categories := make([]string, 0, len(seen))
		for category := range seen {
			categories = append(categories, category)
		}
		sort.Strings(categories)
		e.Categorical = append(e.Categorical, CategoricalColumn{Name: column.Name, Categories: categories})
	}
	return nil
}

// Width is the number of encoded features per row.
func (e *FeatureEncoder) Width() int {
	width := len(e.Numeric)
	for _, column := range e.Categorical {
		width += len(column.Categories)
	}
	return width
}

func (e *FeatureEncoder) FeatureNames() []string {
	names := make([]string, 0, e.Width())
	for _, name := range e.Numeric {
		names = append(names, "num__"+name)
	}
	for _, column := range e.Categorical {
		for _, category := range column.Categories {
			names = append(names, "cat__"+column.Name+"_"+category)
		}
	}
	return names
}

// Transform encodes every row of f. Columns are matched by name, so f may
// hold extra columns or a different column order than the fitted frame.
func (e *FeatureEncoder) Transform(f *dataset.Frame) ([][]float64, error) {
	if !e.Fitted() {
		return nil, ErrNotFitted
	}

	numericIdx := make([]int, len(e.Numeric))
	for i, name := range e.Numeric {
		numericIdx[i] = f.ColumnIndex(name)
		if numericIdx[i] < 0 {
			return nil, fmt.Errorf("column %q: %w", name, ErrFeatureMismatch)
		}
	}
	categoricalIdx := make([]int, len(e.Categorical))
	for i, column := range e.Categorical {
		categoricalIdx[i] = f.ColumnIndex(column.Name)
		if categoricalIdx[i] < 0 {
			return nil, fmt.Errorf("column %q: %w", column.Name, ErrFeatureMismatch)
		}
	}

	width := e.Width()
	out := make([][]float64, f.Len())
	for r, row := range f.Rows {
		vector := make([]float64, width)
		for i, idx := range numericIdx {
			value, err := strconv.ParseFloat(row[idx], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", r, e.Numeric[i], err)
			}
			if math.IsNaN(value) || math.IsInf(value, 0) {
				return nil, fmt.Errorf("row %d column %q: %w", r, e.Numeric[i], ErrNonFinite)
			}
			vector[i] = value
		}
		offset := len(numericIdx)
		for i, idx := range categoricalIdx {
			column := &e.Categorical[i]
			if pos, ok := column.lookup(row[idx]); ok {
				vector[offset+pos] = 1
			}
			offset += len(column.Categories)
		}
		out[r] = vector
	}
	return out, nil
}
