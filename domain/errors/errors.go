// Package errors provides the typed errors raised by the host components.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/reglet-dev/artefact-host/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// Error type categories carried in ErrorDetail.Type.
const (
	TypeStore      = "store"
	TypeInference  = "inference"
	TypeProtocol   = "protocol"
	TypeCapability = "capability"
	TypeValidation = "validation"
	TypeConfig     = "config"
	TypeInternal   = "internal"
)

// DetailedError is an interface for custom error types that can convert themselves
// to a structured ErrorDetail. New error types only need to implement this
// interface without modifying ToErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to our structured ErrorDetail.
// This function recognizes custom error types and categorizes them appropriately.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    TypeInternal,
	}
}

// IsProtocolViolation reports whether err is a misuse of the bridge by the
// guest, as opposed to a failure of the work it asked for.
func IsProtocolViolation(err error) bool {
	var um *UnsupportedMethodError
	var pe *ProtocolError
	var ge *GuestMemoryError
	return stdErrors.As(err, &um) || stdErrors.As(err, &pe) || stdErrors.As(err, &ge)
}

// StoreError is a failure of the relational store itself (open, begin, commit).
type StoreError struct {
	Err error
	Op  string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *StoreError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: TypeStore, Code: e.Op}
}

// BusyTimeoutError is returned when the store stayed locked longer than the busy timeout.
type BusyTimeoutError struct {
	Err  error
	Wait time.Duration
}

func (e *BusyTimeoutError) Error() string {
	return fmt.Sprintf("store busy after %v: %v", e.Wait, e.Err)
}

func (e *BusyTimeoutError) Unwrap() error {
	return e.Err
}

func (e *BusyTimeoutError) Timeout() bool {
	return true
}

// ToErrorDetail implements DetailedError.
func (e *BusyTimeoutError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: TypeStore, Code: "busy", IsTimeout: true}
}

// UnsupportedMethodError is raised for a query method outside run/all/get/values.
type UnsupportedMethodError struct {
	Method string
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("unsupported method: %s", e.Method)
}

// ToErrorDetail implements DetailedError.
func (e *UnsupportedMethodError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: TypeProtocol, Code: "unsupported_method"}
}

// BatchError reports the statement that aborted a batch. The whole batch was rolled back.
type BatchError struct {
	Err   error
	Index int
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch aborted at statement %d: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *BatchError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{
		Message: e.Error(),
		Type:    TypeStore,
		Code:    "batch_aborted",
		Details: map[string]any{"index": e.Index},
		Wrapped: ToErrorDetail(e.Err),
	}
}

// ConversionError is raised when a column value cannot be represented as a Value.
type ConversionError struct {
	Column string
	Reason string
}

func (e *ConversionError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("cannot convert column %q: %s", e.Column, e.Reason)
	}
	return fmt.Sprintf("cannot convert value: %s", e.Reason)
}

// ToErrorDetail implements DetailedError.
func (e *ConversionError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: TypeStore, Code: "conversion"}
}

// InvalidModelPathError is raised for an absolute model path or one containing "..".
type InvalidModelPathError struct {
	Path string
}

func (e *InvalidModelPathError) Error() string {
	return fmt.Sprintf("invalid model path: %s", e.Path)
}

// ToErrorDetail implements DetailedError.
func (e *InvalidModelPathError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: TypeValidation, Code: "model_path"}
}

// ModelNotFoundError is raised when a confined model path does not exist.
type ModelNotFoundError struct {
	Path string
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model not found: %s", e.Path)
}

// ToErrorDetail implements DetailedError.
func (e *ModelNotFoundError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: TypeInference, Code: "model_not_found", IsNotFound: true}
}

// ModelLoadError wraps a backend failure to load an existing model file.
type ModelLoadError struct {
	Err  error
	Path string
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load model %s: %v", e.Path, e.Err)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ModelLoadError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: TypeInference, Code: "model_load"}
}

// ShapeError is raised for a tensor whose data does not fill its shape.
type ShapeError struct {
	Err   error
	Input string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("input %q: %v", e.Input, e.Err)
}

func (e *ShapeError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ShapeError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: TypeValidation, Code: "shape"}
}

// NoSessionError is raised when no model of a family could be loaded.
type NoSessionError struct {
	Family string
}

func (e *NoSessionError) Error() string {
	return fmt.Sprintf("no %s model is available", e.Family)
}

// ToErrorDetail implements DetailedError.
func (e *NoSessionError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: TypeInference, Code: "no_session", IsNotFound: true}
}

// ProtocolError is a misuse of a bridge channel, such as calling twice
// without copying the staged result.
type ProtocolError struct {
	Channel string
	Reason  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol violation on %s: %s", e.Channel, e.Reason)
}

// ToErrorDetail implements DetailedError.
func (e *ProtocolError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: TypeProtocol, Code: e.Channel}
}

// GuestMemoryError is raised when a guest pointer range is outside its linear memory.
type GuestMemoryError struct {
	Op     string
	Offset uint32
	Length uint32
}

func (e *GuestMemoryError) Error() string {
	return fmt.Sprintf("guest memory %s out of range: offset %d length %d", e.Op, e.Offset, e.Length)
}

// ToErrorDetail implements DetailedError.
func (e *GuestMemoryError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: TypeProtocol, Code: "guest_memory"}
}

// CapabilityError represents a capability check failure.
type CapabilityError struct {
	Required string
	Function string
}

func (e *CapabilityError) Error() string {
	if e.Function != "" {
		return fmt.Sprintf("missing capability: %s (function: %s)", e.Required, e.Function)
	}
	return fmt.Sprintf("missing capability: %s", e.Required)
}

// ToErrorDetail implements DetailedError.
func (e *CapabilityError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: TypeCapability, Code: e.Required}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: TypeConfig, Code: e.Field}
}

// SchemaError represents a schema generation error.
type SchemaError struct {
	Err  error
	Type string
}

func (e *SchemaError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("schema error for type %s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("schema error: %v", e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *SchemaError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: TypeValidation, Code: "schema"}
}
