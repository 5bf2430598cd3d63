package dto

import "fmt"

// APIError represents a structured error response.
// All error responses from the API use this format for consistency.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	// Set for missing-column errors only
	MissingColumns []string `json:"missing_columns,omitempty"`
	FoundColumns   []string `json:"found_columns,omitempty"`
}

// Common error codes
const (
	ErrCodeNotFound        = "not_found"
	ErrCodeBadRequest      = "bad_request"
	ErrCodeInternalError   = "internal_error"
	ErrCodeValidation      = "validation_error"
	ErrCodePayloadTooLarge = "payload_too_large"
)

// NewAPIError creates a new APIError with the given code and message.
func NewAPIError(code, message string) APIError {
	return APIError{
		Code:    code,
		Message: message,
	}
}

// NotFoundError creates a not found error response.
func NotFoundError(resource string) APIError {
	return NewAPIError(ErrCodeNotFound, resource+" not found")
}

// BadRequestError creates a bad request error response.
func BadRequestError(message string) APIError {
	return NewAPIError(ErrCodeBadRequest, message)
}

// InternalError creates an internal server error response.
// Details stay in the server log.
func InternalError() APIError {
	return NewAPIError(ErrCodeInternalError,
		"an unexpected error occurred while processing the file, check the server logs for details")
}

// ValidationError creates a validation error response.
func ValidationError(message string) APIError {
	return NewAPIError(ErrCodeValidation, message)
}

// MissingColumnsError reports the columns an upload lacks next to the ones it has.
func MissingColumnsError(missing, found []string) APIError {
	err := ValidationError(fmt.Sprintf("invalid file format, missing required columns %v", missing))
	err.MissingColumns = missing
	err.FoundColumns = found
	if err.FoundColumns == nil {
		err.FoundColumns = []string{}
	}
	return err
}

// PayloadTooLargeError creates an upload size error response.
func PayloadTooLargeError(limit string) APIError {
	return NewAPIError(ErrCodePayloadTooLarge, "the uploaded file exceeds the "+limit+" limit")
}
