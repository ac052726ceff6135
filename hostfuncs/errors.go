package hostfuncs

import (
	"context"
	"encoding/json"
	stdErrors "errors"

	"github.com/reglet-dev/artefact-host/domain/errors"
)

// Error codes carried in ErrorResponse.Code.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeProtocol         = "PROTOCOL_ERROR"
	CodeCapabilityDenied = "CAPABILITY_DENIED"
	CodeNotFound         = "NOT_FOUND"
	CodeInternal         = "INTERNAL_ERROR"
	CodeBatchAborted     = "BATCH_ABORTED"
)

// ErrorResponse is the envelope returned to guests instead of trapping. Its
// "error" field lines up with the error field of every capability result, so
// a guest can test one key.
type ErrorResponse struct {
	// Error is a human-readable error description.
	Error string `json:"error"`

	// Code is a machine-readable error type identifier.
	Code string `json:"code"`
}

// ToJSON serializes the ErrorResponse to JSON bytes.
// Returns nil if serialization fails (which should never happen for this simple type).
func (e ErrorResponse) ToJSON() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return data
}

// NewValidationError creates an error response for bad input (e.g., malformed JSON).
func NewValidationError(message string) ErrorResponse {
	return ErrorResponse{Error: message, Code: CodeValidation}
}

// NewProtocolError creates an error response for bridge misuse.
func NewProtocolError(message string) ErrorResponse {
	return ErrorResponse{Error: message, Code: CodeProtocol}
}

// NewCapabilityDeniedError creates an error response for an ungranted function.
func NewCapabilityDeniedError(message string) ErrorResponse {
	return ErrorResponse{Error: message, Code: CodeCapabilityDenied}
}

// NewNotFoundError creates an error response for unknown handler names.
func NewNotFoundError(name string) ErrorResponse {
	return ErrorResponse{Error: "unknown host function: " + name, Code: CodeNotFound}
}

// NewInternalError creates an error response for unexpected failures.
func NewInternalError(message string) ErrorResponse {
	return ErrorResponse{Error: message, Code: CodeInternal}
}

// NewPanicError creates an error response for recovered panics.
func NewPanicError(panicValue any) ErrorResponse {
	var msg string
	if err, ok := panicValue.(error); ok {
		msg = err.Error()
	} else if s, ok := panicValue.(string); ok {
		msg = s
	} else {
		msg = "panic recovered"
	}
	return ErrorResponse{Error: "panic: " + msg, Code: CodeInternal}
}

// ErrorResponseFrom classifies a handler error.
func ErrorResponseFrom(err error) ErrorResponse {
	var batch *errors.BatchError
	var capErr *errors.CapabilityError
	switch {
	case stdErrors.As(err, &batch):
		return ErrorResponse{Error: err.Error(), Code: CodeBatchAborted}
	case errors.IsProtocolViolation(err):
		return NewProtocolError(err.Error())
	case stdErrors.As(err, &capErr):
		return NewCapabilityDeniedError(err.Error())
	case stdErrors.Is(err, context.Canceled), stdErrors.Is(err, context.DeadlineExceeded):
		return NewInternalError(err.Error())
	default:
		if d := errors.ToErrorDetail(err); d != nil && d.Type == errors.TypeValidation {
			return NewValidationError(err.Error())
		}
		return NewInternalError(err.Error())
	}
}
