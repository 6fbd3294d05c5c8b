package dataset

import (
	"fmt"
	"strconv"
)

// SplitLabel separates the label column from the features and maps it to
// {0,1}: a value equal to positive becomes 1, anything else 0.
func SplitLabel(f *Frame, labelColumn, positive string) (*Frame, []int, error) {
	values, err := f.Values(labelColumn)
	if err != nil {
		return nil, nil, err
	}
	features, err := f.Drop(labelColumn)
	if err != nil {
		return nil, nil, err
	}
	labels := make([]int, len(values))
	for i, value := range values {
		if value == positive {
			labels[i] = 1
		}
	}
	return features, labels, nil
}

// ParseBinaryLabels separates an already binarized label column from the
// features. Every value must be 0 or 1.
func ParseBinaryLabels(f *Frame, labelColumn string) (*Frame, []int, error) {
	values, err := f.Values(labelColumn)
	if err != nil {
		return nil, nil, err
	}
	labels := make([]int, len(values))
	for i, value := range values {
		label, err := strconv.Atoi(value)
		if err != nil || (label != 0 && label != 1) {
			return nil, nil, fmt.Errorf("row %d: label %q is not 0 or 1", i, value)
		}
		labels[i] = label
	}
	features, err := f.Drop(labelColumn)
	if err != nil {
		return nil, nil, err
	}
	return features, labels, nil
}

// PositiveRate is the share of labels equal to 1.
func PositiveRate(labels []int) float64 {
	if len(labels) == 0 {
		return 0
	}
	positives := 0
	for _, label := range labels {
		if label == 1 {
			positives++
		}
	}
	return float64(positives) / float64(len(labels))
}
