// Package response builds the JSON envelope returned by every endpoint.
package response

import (
	"encoding/json"
	"net/http"
	"reflect"

	"github.com/sirupsen/logrus"
)

// APIResponse is the uniform envelope for all endpoints.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`

	// Set only by multi-step workflows that stopped part way.
	Step           string `json:"step,omitempty"`
	CompletedSteps any    `json:"completedSteps,omitempty"`
}

// New builds an envelope. Data is only kept on success; error and details
// only on failure, and only when non-empty.
func New(success bool, data any, errMsg, details string) APIResponse {
	resp := APIResponse{Success: success}
	if success {
		if !isZero(data) {
			resp.Data = data
		}
		return resp
	}
	resp.Error = errMsg
	resp.Details = details
	return resp
}

// OK is shorthand for a successful envelope.
func OK(data any) APIResponse {
	return New(true, data, "", "")
}

// Fail is shorthand for a failure envelope without details.
func Fail(msg string) APIResponse {
	return New(false, nil, msg, "")
}

// HandleError logs err against the operation label and returns the
// generic failure envelope carrying the raw error text as details.
func HandleError(log logrus.FieldLogger, err error, operation string) APIResponse {
	if operation == "" {
		operation = "operation"
	}
	if log != nil {
		log.WithFields(logrus.Fields{
			"operation": operation,
			"error":     err,
		}).Error("request failed")
	}
	var details string
	if err != nil {
		details = err.Error()
	}
	return New(false, nil, "Failed to "+operation, details)
}

// WriteJSON writes payload with the given status code.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// BadRequest writes a 400 failure envelope.
func BadRequest(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusBadRequest, Fail(msg))
}

func isZero(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	case reflect.String:
		return rv.Len() == 0
	case reflect.Bool:
		return !rv.Bool()
	}
	return false
}
