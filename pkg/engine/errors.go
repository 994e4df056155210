package engine

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of an error for reporting.
type ErrorClass string

const (
	// ErrorClassTransient indicates a temporary failure that may succeed on a later invocation.
	// Examples: network timeouts, temporary service unavailability.
	ErrorClassTransient ErrorClass = "transient"

	// ErrorClassThrottled indicates rate limiting or quota exhaustion on the provider side.
	ErrorClassThrottled ErrorClass = "throttled"

	// ErrorClassPermanent indicates a non-recoverable error.
	// Examples: unknown service, missing command, access denied.
	ErrorClassPermanent ErrorClass = "permanent"
)

// EngineError represents a classified error with context.
// nolint:revive // EngineError is intentionally named to distinguish from standard errors
type EngineError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message reported to the orchestrator.
	Message string `json:"message"`

	// Code is the error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Package is the client package involved, if applicable.
	Package string `json:"package,omitempty"`

	// Operation is the command being performed when the error occurred.
	Operation string `json:"operation,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`

	// Details contains additional context-specific information.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface. Only the message is returned so that
// the acknowledgment reason stays verbatim; context lives in the fields.
func (e *EngineError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Class) + " error"
}

// Unwrap returns the underlying error for error chain inspection.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// Describe renders the error with all of its context, for logs.
func (e *EngineError) Describe() string {
	switch {
	case e.Package != "" && e.Operation != "":
		return fmt.Sprintf("[%s/%s] %s (package=%s, operation=%s)", e.Class, e.Code, e.Error(), e.Package, e.Operation)
	case e.Package != "":
		return fmt.Sprintf("[%s/%s] %s (package=%s)", e.Class, e.Code, e.Error(), e.Package)
	default:
		return fmt.Sprintf("[%s/%s] %s", e.Class, e.Code, e.Error())
	}
}

// NewTransientError creates a new transient error.
func NewTransientError(message string, err error) *EngineError {
	return &EngineError{
		Class:   ErrorClassTransient,
		Message: message,
		Err:     err,
	}
}

// NewPermanentError creates a new permanent error.
func NewPermanentError(message string, err error) *EngineError {
	return &EngineError{
		Class:   ErrorClassPermanent,
		Message: message,
		Err:     err,
	}
}

// WithPackage adds client package context to an error.
func (e *EngineError) WithPackage(packageName string) *EngineError {
	e.Package = packageName
	return e
}

// WithOperation adds operation context to an error.
func (e *EngineError) WithOperation(operation string) *EngineError {
	e.Operation = operation
	return e
}

// WithCode adds an error code to an error.
func (e *EngineError) WithCode(code string) *EngineError {
	e.Code = code
	return e
}

// WithDetail adds a detail field to the error context.
func (e *EngineError) WithDetail(key string, value interface{}) *EngineError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Error codes.
const (
	ErrCodeDecode                 = "DECODE_ERROR"
	ErrCodeUnknownService         = "UNKNOWN_SERVICE"
	ErrCodePackageNotFound        = "PACKAGE_NOT_FOUND"
	ErrCodeInstallFailed          = "INSTALL_FAILED"
	ErrCodeClientNotFound         = "CLIENT_NOT_FOUND"
	ErrCodeCommandNotFound        = "COMMAND_NOT_FOUND"
	ErrCodeAPICall                = "API_CALL_ERROR"
	ErrCodeRegionResolution       = "REGION_RESOLUTION_ERROR"
	ErrCodePolicyDenied           = "POLICY_DENIED"
	ErrCodeUnsupportedRequestType = "UNSUPPORTED_REQUEST_TYPE"
	ErrCodeInvalidInput           = "INVALID_INPUT"
)

// Sentinel errors for errors.Is checks against a class and code.
var (
	ErrPackageNotFound        = &EngineError{Class: ErrorClassPermanent, Code: ErrCodePackageNotFound}
	ErrUnknownService         = &EngineError{Class: ErrorClassPermanent, Code: ErrCodeUnknownService}
	ErrClientNotFound         = &EngineError{Class: ErrorClassPermanent, Code: ErrCodeClientNotFound}
	ErrCommandNotFound        = &EngineError{Class: ErrorClassPermanent, Code: ErrCodeCommandNotFound}
	ErrPolicyDenied           = &EngineError{Class: ErrorClassPermanent, Code: ErrCodePolicyDenied}
	ErrUnsupportedRequestType = &EngineError{Class: ErrorClassPermanent, Code: ErrCodeUnsupportedRequestType}
)

// NewPackageNotFoundError reports a client package that no resolution strategy could load.
func NewPackageNotFoundError(packageName string, err error) *EngineError {
	return NewPermanentError(fmt.Sprintf("Package %s does not exist.", packageName), err).
		WithCode(ErrCodePackageNotFound).
		WithPackage(packageName)
}

// NewClientNotFoundError reports a module without a client export.
func NewClientNotFoundError(packageName string) *EngineError {
	return NewPermanentError(fmt.Sprintf("Package %s does not export a client", packageName), nil).
		WithCode(ErrCodeClientNotFound).
		WithPackage(packageName)
}

// NewCommandNotFoundError reports an action with no matching command export.
func NewCommandNotFoundError(packageName, command string) *EngineError {
	return NewPermanentError(fmt.Sprintf("Unable to find command named: %s for package %s", command, packageName), nil).
		WithCode(ErrCodeCommandNotFound).
		WithPackage(packageName).
		WithOperation(command)
}

// NewRegionResolutionError reports a client whose region could not be
// resolved for the response diagnostics.
func NewRegionResolutionError(err error) *EngineError {
	return NewTransientError("Failed to resolve client region", err).
		WithCode(ErrCodeRegionResolution)
}

// NewAPICallError wraps an error returned by a dispatched command. The
// message is the provider's own message, unchanged.
func NewAPICallError(packageName, command string, err error) *EngineError {
	class := ErrorClassPermanent
	code := ErrorCode(err)
	if isThrottlingCode(code) {
		class = ErrorClassThrottled
	}
	e := &EngineError{
		Class:     class,
		Message:   ErrorMessage(err),
		Code:      ErrCodeAPICall,
		Package:   packageName,
		Operation: command,
		Err:       err,
	}
	if code != "" {
		e.WithDetail("api_error_code", code)
	}
	return e
}

func isThrottlingCode(code string) bool {
	switch code {
	case "Throttling", "ThrottlingException", "ThrottledException", "RequestLimitExceeded",
		"TooManyRequestsException", "ProvisionedThroughputExceededException", "SlowDown":
		return true
	}
	return false
}

// coder is implemented by provider API errors (smithy.APIError among them).
type coder interface {
	ErrorCode() string
}

// ErrorCode extracts the provider error code from an error chain, or "" if
// no error in the chain carries one.
func ErrorCode(err error) string {
	var c coder
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return ""
}

// messager is implemented by provider API errors that carry a bare message.
type messager interface {
	ErrorMessage() string
}

// ErrorMessage returns the provider's own message from an error chain,
// falling back to err.Error().
func ErrorMessage(err error) string {
	var m messager
	if errors.As(err, &m) && m.ErrorMessage() != "" {
		return m.ErrorMessage()
	}
	return err.Error()
}

// CodeOf returns the EngineError code in the chain, or "" if there is none.
func CodeOf(err error) string {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// ClassOf returns the EngineError class in the chain, defaulting to permanent.
func ClassOf(err error) ErrorClass {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class
	}
	return ErrorClassPermanent
}

// IsThrottled returns true if the error is classified as throttled.
func IsThrottled(err error) bool {
	return ClassOf(err) == ErrorClassThrottled
}
