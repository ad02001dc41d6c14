package sessionstate

import "errors"

// Common errors for session state operations.
var (
	// ErrInvalidConfig indicates missing or blank store configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidStoreType indicates an unknown driver type.
	ErrInvalidStoreType = errors.New("invalid store type")

	// ErrDecode indicates a stored session payload cannot be reconstructed.
	ErrDecode = errors.New("session payload decode failed")

	// ErrTransient indicates a recoverable store failure (e.g. a write
	// concern that cannot currently be satisfied during a primary
	// transition). Drivers wrap such failures with this sentinel so the
	// retry policy can absorb them.
	ErrTransient = errors.New("transient store failure")

	// ErrWriteExhausted indicates the retry budget for a conditional
	// write ran out before the store recovered.
	ErrWriteExhausted = errors.New("write retry budget exhausted")
)
