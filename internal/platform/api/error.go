package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type ErrorResponse struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Status    int            `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %s (status %d): %s", e.Code, e.Status, e.Message)
}

// DecodeError turns a non-2xx response body into an APIError, falling back to
// the status text when the body is not the standard envelope.
func DecodeError(status int, body []byte) *APIError {
	var env ErrorResponse
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Code != "" {
		e := env.Error
		e.Status = status
		return &e
	}
	return &APIError{Code: "HTTP_ERROR", Message: http.StatusText(status), Status: status}
}

func WriteError(w http.ResponseWriter, status int, code, message, requestID string, details map[string]any) {
	WriteJSON(w, status, ErrorResponse{Error: APIError{Code: code, Message: message, Details: details, RequestID: requestID}})
}

// Convenience helpers
func BadRequest(w http.ResponseWriter, code, message, requestID string, details map[string]any) {
	WriteError(w, http.StatusBadRequest, code, message, requestID, details)
}

func Unauthorized(w http.ResponseWriter, code, message, requestID string) {
	WriteError(w, http.StatusUnauthorized, code, message, requestID, nil)
}

func Forbidden(w http.ResponseWriter, code, message, requestID string) {
	WriteError(w, http.StatusForbidden, code, message, requestID, nil)
}

func NotFound(w http.ResponseWriter, code, message, requestID string) {
	WriteError(w, http.StatusNotFound, code, message, requestID, nil)
}

func Internal(w http.ResponseWriter, requestID string) {
	WriteError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error", requestID, nil)
}
