package ml

import "errors"

var (
	ErrEmptyDataset    = errors.New("dataset is empty")
	ErrNotFitted       = errors.New("model not fitted")
	ErrFeatureMismatch = errors.New("feature count mismatch")
	ErrSingleClass     = errors.New("labels contain a single class")
	ErrNonFinite       = errors.New("feature value is not finite")
)
