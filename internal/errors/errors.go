package errors

import (
	"errors"
	"fmt"
)

// Code represents an error code for categorizing errors
type Code string

const (
	// CodeUnknown indicates an unknown error
	CodeUnknown Code = "unknown"

	// CodeInvalidArgument indicates the caller supplied an invalid argument
	CodeInvalidArgument Code = "invalid_argument"

	// CodeNotFound indicates a requested resource was not found
	CodeNotFound Code = "not_found"

	// CodeAlreadyExists indicates an attempt to create a resource that already exists
	CodeAlreadyExists Code = "already_exists"

	// CodePermissionDenied indicates the caller does not have permission
	CodePermissionDenied Code = "permission_denied"

	// CodeConflict indicates the operation raced with another state change
	CodeConflict Code = "conflict"

	// CodeFailedPrecondition indicates the system is not in a state that allows the operation
	CodeFailedPrecondition Code = "failed_precondition"

	// CodeOutOfRange indicates a value outside configured bounds
	CodeOutOfRange Code = "out_of_range"

	// CodeUnavailable indicates a collaborator is currently unavailable
	CodeUnavailable Code = "unavailable"
)

// metaMessageKey is the meta key holding the catalog key shown to players
const metaMessageKey = "message_key"

// Error represents an application error with code and metadata
type Error struct {
	// Code is the error code
	Code Code

	// Message is the error message
	Message string

	// Cause is the wrapped error
	Cause error

	// Meta contains additional context
	Meta map[string]any
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithMeta adds metadata to the error (builder pattern)
func (e *Error) WithMeta(key string, value any) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]any)
	}
	e.Meta[key] = value
	return e
}

// WithMessage attaches the message catalog key reported to the player
func (e *Error) WithMessage(key string) *Error {
	return e.WithMeta(metaMessageKey, key)
}

// New creates a new error with the given code and message
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new error with formatted message
func Newf(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}

	// Keep the code of an already classified error
	var duelErr *Error
	if errors.As(err, &duelErr) {
		return &Error{
			Code:    duelErr.Code,
			Message: message,
			Cause:   err,
			Meta:    copyMeta(duelErr.Meta),
		}
	}

	return &Error{
		Code:    CodeUnknown,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// NotFound creates a not found error
func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

// NotFoundf creates a formatted not found error
func NotFoundf(format string, args ...any) *Error {
	return Newf(CodeNotFound, format, args...)
}

// InvalidArgument creates an invalid argument error
func InvalidArgument(message string) *Error {
	return New(CodeInvalidArgument, message)
}

// InvalidArgumentf creates a formatted invalid argument error
func InvalidArgumentf(format string, args ...any) *Error {
	return Newf(CodeInvalidArgument, format, args...)
}

// AlreadyExistsf creates a formatted already exists error
func AlreadyExistsf(format string, args ...any) *Error {
	return Newf(CodeAlreadyExists, format, args...)
}

// PermissionDenied creates a permission denied error
func PermissionDenied(message string) *Error {
	return New(CodePermissionDenied, message)
}

// Conflictf creates a formatted conflict error
func Conflictf(format string, args ...any) *Error {
	return Newf(CodeConflict, format, args...)
}

// FailedPrecondition creates a failed precondition error
func FailedPrecondition(message string) *Error {
	return New(CodeFailedPrecondition, message)
}

// FailedPreconditionf creates a formatted failed precondition error
func FailedPreconditionf(format string, args ...any) *Error {
	return Newf(CodeFailedPrecondition, format, args...)
}

// OutOfRangef creates a formatted out of range error
func OutOfRangef(format string, args ...any) *Error {
	return Newf(CodeOutOfRange, format, args...)
}

// Is checks if the error is of a specific code
func Is(err error, code Code) bool {
	var duelErr *Error
	if errors.As(err, &duelErr) {
		return duelErr.Code == code
	}
	return false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return Is(err, CodeNotFound)
}

// IsInvalidArgument checks if the error is an invalid argument error
func IsInvalidArgument(err error) bool {
	return Is(err, CodeInvalidArgument)
}

// IsAlreadyExists checks if the error is an already exists error
func IsAlreadyExists(err error) bool {
	return Is(err, CodeAlreadyExists)
}

// IsConflict checks if the error is a conflict error
func IsConflict(err error) bool {
	return Is(err, CodeConflict)
}

// IsFailedPrecondition checks if the error is a failed precondition error
func IsFailedPrecondition(err error) bool {
	return Is(err, CodeFailedPrecondition)
}

// GetCode returns the error code
func GetCode(err error) Code {
	var duelErr *Error
	if errors.As(err, &duelErr) {
		return duelErr.Code
	}
	return CodeUnknown
}

// GetMeta returns the error metadata
func GetMeta(err error) map[string]any {
	var duelErr *Error
	if errors.As(err, &duelErr) {
		return duelErr.Meta
	}
	return nil
}

// MessageKey returns the catalog key attached with WithMessage, or "" if none
func MessageKey(err error) string {
	key, _ := GetMeta(err)[metaMessageKey].(string)
	return key
}

// MessageArgs returns the metadata meant for the player message, rendered as
// strings. The message key itself is left out.
func MessageArgs(err error) map[string]string {
	meta := GetMeta(err)
	args := make(map[string]string, len(meta))
	for k, v := range meta {
		if k == metaMessageKey {
			continue
		}
		if s, ok := v.(string); ok {
			args[k] = s
			continue
		}
		args[k] = fmt.Sprint(v)
	}
	return args
}

func copyMeta(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}

	copied := make(map[string]any, len(meta))
	for k, v := range meta {
		copied[k] = v
	}
	return copied
}
