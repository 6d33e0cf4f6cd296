package instrument

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidIdentity   = "INSTRUMENT_INVALID_IDENTITY"
	TextCodeDuplicateIdentity = "INSTRUMENT_DUPLICATE_IDENTITY"
	TextCodeNilOperation      = "INSTRUMENT_NIL_OPERATION"
	TextCodeCorruptCounter    = "INSTRUMENT_CORRUPT_COUNTER"
)

var (
	// ErrInvalidIdentity is returned when an operation has an empty identity.
	ErrInvalidIdentity = goerrors.New("operation identity must not be empty", goerrors.CategoryBadInput).
				WithTextCode(TextCodeInvalidIdentity)

	// ErrDuplicateIdentity is returned by Instrument when the identity is already
	// registered on the Instrumenter. Two operations sharing an identity would
	// write into each other's counter and logs.
	ErrDuplicateIdentity = goerrors.New("operation identity already registered", goerrors.CategoryConflict).
				WithTextCode(TextCodeDuplicateIdentity)

	// ErrNilOperation is returned when calling an Operation without a function.
	ErrNilOperation = goerrors.New("operation has no function", goerrors.CategoryInternal).
			WithTextCode(TextCodeNilOperation)
)

// Stage names the instrumentation step that touched the store.
type Stage string

const (
	StageCount  Stage = "count"
	StageInput  Stage = "input"
	StageOutput Stage = "output"
)

// FailureError reports a store failure during instrumentation. It is only
// returned to callers when the Instrumenter runs with PolicyFail.
type FailureError struct {
	Identity string
	Stage    Stage
	Err      error
}

// Error implements the error interface.
func (e *FailureError) Error() string {
	return "instrumentation " + string(e.Stage) + " failed for " + e.Identity + ": " + e.Err.Error()
}

func (e *FailureError) Unwrap() error {
	return e.Err
}

// IsFailure reports whether err came from the instrumentation layer rather
// than from the wrapped operation.
func IsFailure(err error) bool {
	var fe *FailureError
	return goerrors.As(err, &fe)
}
