package persistent

import "errors"

var (
	// ErrNotFound reports an operation on a key that is not present.
	// Returned (wrapped) by RankOf; Get, Delete and Find report absence
	// through their ok result instead.
	ErrNotFound = errors.New("key not found")

	// ErrOutOfRange reports a rank outside [0, Size()).
	ErrOutOfRange = errors.New("rank out of range")
)
