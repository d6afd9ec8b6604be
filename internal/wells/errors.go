package wells

import "errors"

var (
	ErrNotFound     = errors.New("well not found")
	ErrNoCurves     = errors.New("well has no curves")
	ErrInvalidInput = errors.New("invalid input")
)
