package sktree

import "github.com/pkg/errors"

var (
	// ErrInvalidConfig reports a hyperparameter outside its valid range.
	ErrInvalidConfig = errors.New("sktree: invalid configuration")

	// ErrInvalidInput reports malformed data: empty, ragged, non-finite, or a
	// feature count that does not match the fitted tree.
	ErrInvalidInput = errors.New("sktree: invalid input")

	// ErrNotFitted is returned by Predict, Transform and Apply before Fit.
	ErrNotFitted = errors.New("sktree: estimator is not fitted")

	// ErrNumerical reports a NaN or infinite impurity during a build. The
	// partially built tree is discarded.
	ErrNumerical = errors.New("sktree: numerical fault")
)
