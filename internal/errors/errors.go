// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies a gateway failure
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation_error"
	ErrorTypeConfiguration ErrorType = "configuration_error"
	ErrorTypeUpstream      ErrorType = "upstream_error"
	ErrorTypeParse         ErrorType = "parse_error"
)

// AppError is the error shape shared by the gateway layers.
// Message is user facing and is what the HTTP envelope carries.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string
	Status  int // upstream HTTP status, 0 when not applicable
}

// Error returns the human-readable message only; the cause is reachable through Unwrap.
func (e *AppError) Error() string {
	return e.Message
}

// Unwrap 实现错误链接
func (e *AppError) Unwrap() error {
	return e.Err
}

// Detail renders message and cause for logs.
func (e *AppError) Detail() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// NewAppError 创建新的 AppError
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

// NewValidationError reports a bad client request (HTTP 400).
func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

// NewConfigurationError reports a missing endpoint, model or key.
func NewConfigurationError(message string) *AppError {
	return NewAppError(ErrorTypeConfiguration, message, nil)
}

// NewUpstreamError reports a non-success answer from a dependent service.
func NewUpstreamError(message string, status int, originalError error) *AppError {
	err := NewAppError(ErrorTypeUpstream, message, originalError)
	err.Status = status
	return err
}

// NewParseError reports an unparseable or incomplete upstream payload.
func NewParseError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeParse, message, originalError)
}

func isType(err error, errType ErrorType) bool {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type == errType
	}
	return false
}

// IsValidationError 检查是否为验证错误
func IsValidationError(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsConfigurationError reports whether err is a configuration error.
func IsConfigurationError(err error) bool {
	return isType(err, ErrorTypeConfiguration)
}

// IsUpstreamError reports whether err is an upstream error.
func IsUpstreamError(err error) bool {
	return isType(err, ErrorTypeUpstream)
}

// IsParseError reports whether err is a parse error.
func IsParseError(err error) bool {
	return isType(err, ErrorTypeParse)
}

// TypeOf returns the ErrorType of err, or "internal_error" for foreign errors.
func TypeOf(err error) ErrorType {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type
	}
	return "internal_error"
}

// generateErrorCode 根据错误类型生成错误代码
func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeConfiguration:
		return "CONFIGURATION_ERROR"
	case ErrorTypeUpstream:
		return "UPSTREAM_ERROR"
	case ErrorTypeParse:
		return "PARSE_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

// WrapError 包装现有错误
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		// keep the original type and status, prefix the message
		return &AppError{
			Type:    appError.Type,
			Message: fmt.Sprintf("%s: %s", message, appError.Message),
			Err:     appError,
			Code:    appError.Code,
			Status:  appError.Status,
		}
	}

	return NewAppError(errType, message, err)
}
