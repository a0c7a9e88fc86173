package recurrence

import "errors"

var (
	// ErrInvalidPattern is returned for a pattern other than daily, weekly,
	// monthly or yearly.
	ErrInvalidPattern = errors.New("invalid recurrence pattern")

	// ErrInvalidInterval is returned for an interval below 1.
	ErrInvalidInterval = errors.New("invalid recurrence interval")
)
