package pool

import "errors"

var (
	// ErrPoolClosed is returned once Close has been called.
	ErrPoolClosed = errors.New("pool is closed")

	// ErrValueNotFound is returned when the requested value is not held.
	ErrValueNotFound = errors.New("value not in pool")

	// ErrInvalidSemanticType is returned for an empty semantic type.
	ErrInvalidSemanticType = errors.New("semantic type is empty")
)
