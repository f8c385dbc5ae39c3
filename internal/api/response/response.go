// Package response writes JSON bodies for the HTTP API.
package response

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the envelope for rejected calls.
type ErrorBody struct {
	Status    string `json:"status"`
	ErrorType string `json:"error_type,omitempty"`
	Message   string `json:"message,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Error writes an error envelope.
func Error(w http.ResponseWriter, status int, errorType, message string) {
	JSON(w, status, ErrorBody{
		Status:    "error",
		ErrorType: errorType,
		Message:   message,
	})
}
