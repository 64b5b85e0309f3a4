package voxport

import "errors"

var (
	// ErrInvalidTempoData is returned when a tempo list contains non-positive
	// BPMs, negative positions or is empty. Whoever gets it should continue
	// with the default 120 BPM map that is returned alongside.
	ErrInvalidTempoData = errors.New("invalid tempo data")

	// ErrInvalidCurveData is returned when a curve contains non-finite
	// samples. The curve is skipped, the rest of the import continues.
	ErrInvalidCurveData = errors.New("invalid curve data")

	// ErrMissingExpression is returned when a curve abbreviation is not
	// registered in the project.
	ErrMissingExpression = errors.New("missing expression")
)
