// Package httputil provides the uniform response envelope and JSON
// request parsing shared by every handler.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/modboard/modboard/pkg/errs"
)

// Envelope is the shape of every response body.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// WriteSuccess writes a 200 success envelope.
func WriteSuccess(w http.ResponseWriter, data interface{}) {
	writeEnvelope(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// WriteErrorMessage writes a failure envelope with the given status.
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, status, Envelope{Success: false, Error: message})
}

// WriteError maps a service error to its status and caller-safe message.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorMessage(w, errs.HTTPStatus(err), errs.PublicMessage(err))
}

// WriteValidationError writes a 400 failure envelope.
func WriteValidationError(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteUnauthorized writes a 401 failure envelope.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusUnauthorized, message)
}

// WriteForbidden writes a 403 failure envelope.
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusForbidden, message)
}

// WriteNotFound writes a 404 failure envelope.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusNotFound, message)
}

// WriteInternalError writes a generic 500 failure envelope. Details stay
// in the logs, never in the response.
func WriteInternalError(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(env)
}
