package errors

import "net/http"

// APIError is the error shape every handler writes. Details carries extra
// context, such as the cycle state a rejected command saw.
type APIError struct {
	Status  int         `json:"-"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// WithDetails attaches details and returns e for chaining.
func (e *APIError) WithDetails(details interface{}) *APIError {
	e.Details = details
	return e
}

// Body is the JSON envelope written to clients.
func (e *APIError) Body() map[string]interface{} {
	if e == nil {
		return Internal("").Body()
	}
	body := map[string]interface{}{
		"code":    e.Code,
		"message": e.Message,
	}
	if e.Details != nil {
		body["details"] = e.Details
	}
	return map[string]interface{}{"error": body}
}

// StatusCode falls back to 500 for a nil error.
func (e *APIError) StatusCode() int {
	if e == nil {
		return http.StatusInternalServerError
	}
	return e.Status
}

func New(status int, code, message string) *APIError {
	return &APIError{Status: status, Code: code, Message: message}
}

func Internal(message string) *APIError {
	return New(http.StatusInternalServerError, "internal_error", orDefault(message, "internal server error"))
}

func BadRequest(code, message string) *APIError {
	return New(http.StatusBadRequest, code, message)
}

func InvalidJSON() *APIError {
	return BadRequest("invalid_json", "invalid request body")
}

func Unauthorized(message string) *APIError {
	return New(http.StatusUnauthorized, "unauthorized", orDefault(message, "unauthorized"))
}

func NotFound(code, message string) *APIError {
	return New(http.StatusNotFound, code, message)
}

func Conflict(code, message string) *APIError {
	return New(http.StatusConflict, code, message)
}

func Unprocessable(code, message string) *APIError {
	return New(http.StatusUnprocessableEntity, code, message)
}

func Unavailable(message string) *APIError {
	return New(http.StatusServiceUnavailable, "unavailable", orDefault(message, "service unavailable"))
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}
