package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType int

const (
	ErrorTypeConfig ErrorType = iota
	ErrorTypeFileSystem
	ErrorTypeUnsupported
	ErrorTypeUnreachable
	ErrorTypeTransport
	ErrorTypePlatform
	ErrorTypeUI
)

// Sentinels matched by errors.Is against any *AppError of the same type.
var (
	ErrUnsupported = errors.New("operation not supported by this provider")
	ErrUnreachable = errors.New("resource is no longer reachable")
	ErrTransport   = errors.New("provider transport unavailable")
)

// String returns a string representation of the error type
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeConfig:
		return "config"
	case ErrorTypeFileSystem:
		return "filesystem"
	case ErrorTypeUnsupported:
		return "unsupported"
	case ErrorTypeUnreachable:
		return "unreachable"
	case ErrorTypeTransport:
		return "transport"
	case ErrorTypePlatform:
		return "platform"
	case ErrorTypeUI:
		return "ui"
	default:
		return "unknown"
	}
}

// AppError represents a structured application error
type AppError struct {
	Type      ErrorType
	Operation string
	Path      string
	Message   string
	Code      int // OS or portal status code, platform errors only
	Err       error
}

func (e *AppError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s error in %s [%s]: %s", e.Type, e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("%s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is lets callers classify with the package sentinels.
func (e *AppError) Is(target error) bool {
	switch target {
	case ErrUnsupported:
		return e.Type == ErrorTypeUnsupported
	case ErrUnreachable:
		return e.Type == ErrorTypeUnreachable
	case ErrTransport:
		return e.Type == ErrorTypeTransport
	}
	return false
}

// NewConfigError creates a new configuration error
func NewConfigError(operation, message string, err error) *AppError {
	return &AppError{
		Type:      ErrorTypeConfig,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// NewFileSystemError creates a new filesystem error
func NewFileSystemError(operation, path, message string, err error) *AppError {
	return &AppError{
		Type:      ErrorTypeFileSystem,
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// NewUnsupportedError reports a call to an operation whose capability flag is false.
func NewUnsupportedError(operation, message string) *AppError {
	return &AppError{
		Type:      ErrorTypeUnsupported,
		Operation: operation,
		Message:   message,
	}
}

// NewUnreachableError reports a bookmark target that vanished, changed kind or lost permission.
func NewUnreachableError(operation, path, message string, err error) *AppError {
	return &AppError{
		Type:      ErrorTypeUnreachable,
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// NewTransportError creates a new transport error
func NewTransportError(operation, message string, err error) *AppError {
	return &AppError{
		Type:      ErrorTypeTransport,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// NewPlatformError wraps an error reported by the OS or a remote service.
func NewPlatformError(operation, path string, code int, message string, err error) *AppError {
	return &AppError{
		Type:      ErrorTypePlatform,
		Operation: operation,
		Path:      path,
		Message:   message,
		Code:      code,
		Err:       err,
	}
}

// NewUIError creates a new UI error
func NewUIError(operation, message string, err error) *AppError {
	return &AppError{
		Type:      ErrorTypeUI,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// IsUnsupported reports whether err is a capability-unavailable failure.
func IsUnsupported(err error) bool { return errors.Is(err, ErrUnsupported) }

// IsUnreachable reports whether err means the resource is gone or access was revoked.
func IsUnreachable(err error) bool { return errors.Is(err, ErrUnreachable) }

// IsTransport reports whether err means a mechanism could not be reached.
func IsTransport(err error) bool { return errors.Is(err, ErrTransport) }
