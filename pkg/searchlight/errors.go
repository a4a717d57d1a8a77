package searchlight

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMask is returned when Fit is called without a data mask.
	ErrNoMask = errors.New("searchlight: no data mask")

	// ErrInvalidRadius is returned for radii that are not positive and finite.
	ErrInvalidRadius = errors.New("searchlight: radius must be positive and finite")

	// ErrLabelLength is returned when the label count differs from the sample count.
	ErrLabelLength = errors.New("searchlight: label count does not match sample count")

	// ErrGroupLength is returned when the group count differs from the sample count.
	ErrGroupLength = errors.New("searchlight: group count does not match sample count")

	// ErrEmptyBall is returned when a centre has no data-mask voxel within the radius.
	ErrEmptyBall = errors.New("searchlight: empty neighbourhood")

	// ErrMemoryBudget is returned when the sample matrix would exceed MaxSampleMatrix.
	ErrMemoryBudget = errors.New("searchlight: sample matrix exceeds memory budget")
)

// ConfigurationError reports caller misuse detected before or during a fit:
// misaligned masks, wrong label or group counts, empty neighbourhoods or an
// infeasible cross-validation split. The underlying cause is available
// through errors.Is and errors.As.
type ConfigurationError struct {
	// Op names the stage that rejected the input
	Op  string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("searchlight: invalid configuration (%s): %v", e.Op, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func configError(op string, err error) error {
	return &ConfigurationError{Op: op, Err: err}
}
