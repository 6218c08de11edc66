package puter

// Error codes used across the adapter and controller.
const (
	// ErrCodeAdapterUnavailable means the browser SDK bridge is not connected.
	ErrCodeAdapterUnavailable = "adapter_unavailable"
	// ErrCodeAuth covers sign-in and sign-out failures reported by the SDK.
	ErrCodeAuth = "auth_error"
	// ErrCodeValidation covers rejected custom model input.
	ErrCodeValidation = "validation_error"
	// ErrCodeStream covers mid-stream failures delivered by the provider.
	ErrCodeStream = "stream_error"
)

// Error describes a provider integration failure in a transport agnostic format.
type Error struct {
	// Code is a short machine readable identifier.
	Code string `json:"code,omitempty"`
	// Message is a human readable description of the failure.
	Message string `json:"message"`
	// Retryable indicates whether a retry might fix the issue automatically.
	Retryable bool `json:"retryable"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// ErrAdapterUnavailable is returned when an SDK call is attempted while no
// browser page is connected.
var ErrAdapterUnavailable = &Error{Code: ErrCodeAdapterUnavailable, Message: "puter SDK is not available", Retryable: true}

// NewAuthError wraps a sign-in or sign-out failure.
func NewAuthError(message string) *Error {
	return &Error{Code: ErrCodeAuth, Message: message}
}

// NewValidationError wraps rejected custom model input. The offending value is
// kept in the message so the settings panel can surface it for correction.
func NewValidationError(message string) *Error {
	return &Error{Code: ErrCodeValidation, Message: message}
}

// NewStreamError wraps a mid-stream provider failure.
func NewStreamError(message string) *Error {
	return &Error{Code: ErrCodeStream, Message: message, Retryable: true}
}

// IsValidationError reports whether err carries the validation error code.
func IsValidationError(err error) bool {
	typed, ok := err.(*Error)
	return ok && typed != nil && typed.Code == ErrCodeValidation
}
