package risk

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a validation failure.
type ErrorKind string

const (
	KindMissingIdentity          ErrorKind = "MissingIdentity"
	KindNonPositiveNAV           ErrorKind = "NonPositiveNAV"
	KindUnknownAssetClass        ErrorKind = "UnknownAssetClass"
	KindDuplicateAssetClass      ErrorKind = "DuplicateAssetClass"
	KindInvalidWeight            ErrorKind = "InvalidWeight"
	KindInvalidSensitivity       ErrorKind = "InvalidSensitivity"
	KindEmptyAllocation          ErrorKind = "EmptyAllocation"
	KindAllocationOverflow       ErrorKind = "AllocationOverflow"
	KindMissingVolatility        ErrorKind = "MissingVolatility"
	KindInvalidCorrelationMatrix ErrorKind = "InvalidCorrelationMatrix"
	KindInvalidHorizon           ErrorKind = "InvalidHorizon"
	KindUnknownConfidence        ErrorKind = "UnknownConfidence"
	KindInvalidScenario          ErrorKind = "InvalidScenario"
)

// ValidationError reports an input that the engine refuses to compute on.
// Field points at the offending input, e.g. "positions[2].weight_pct".
type ValidationError struct {
	Kind    ErrorKind `json:"kind"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
}

// Is matches any ValidationError of the same kind, so errors.Is(err, ErrEmptyAllocation)
// works regardless of field and message.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrMissingIdentity          = &ValidationError{Kind: KindMissingIdentity, Message: "fund identity is required"}
	ErrNonPositiveNAV           = &ValidationError{Kind: KindNonPositiveNAV, Message: "net asset value must be positive"}
	ErrUnknownAssetClass        = &ValidationError{Kind: KindUnknownAssetClass, Message: "unknown asset class"}
	ErrDuplicateAssetClass      = &ValidationError{Kind: KindDuplicateAssetClass, Message: "asset class listed twice"}
	ErrInvalidWeight            = &ValidationError{Kind: KindInvalidWeight, Message: "weight must be a non-negative number"}
	ErrInvalidSensitivity       = &ValidationError{Kind: KindInvalidSensitivity, Message: "sensitivity must be finite"}
	ErrEmptyAllocation          = &ValidationError{Kind: KindEmptyAllocation, Message: "no position has a positive weight"}
	ErrAllocationOverflow       = &ValidationError{Kind: KindAllocationOverflow, Message: "weights add up to more than 100%"}
	ErrMissingVolatility        = &ValidationError{Kind: KindMissingVolatility, Message: "annual volatility must be positive"}
	ErrInvalidCorrelationMatrix = &ValidationError{Kind: KindInvalidCorrelationMatrix, Message: "invalid correlation matrix"}
	ErrInvalidHorizon           = &ValidationError{Kind: KindInvalidHorizon, Message: "horizon must be a positive number of days"}
	ErrUnknownConfidence        = &ValidationError{Kind: KindUnknownConfidence, Message: "unsupported confidence level"}
	ErrInvalidScenario          = &ValidationError{Kind: KindInvalidScenario, Message: "invalid stress scenario"}
)

func newValidationError(kind ErrorKind, field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Kind:    kind,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// AsValidationError extracts the ValidationError from err, if any.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
