package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeVideoNotFound       = "VIDEO_NOT_FOUND"
	CodeBadCursor           = "BAD_CURSOR"
	CodeValidation          = "VALIDATION_FAILED"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeRateLimited         = "RATE_LIMITED"
	CodeOpenListUnavailable = "OPENLIST_UNAVAILABLE"
	CodeOpenListLink        = "OPENLIST_LINK_ERROR"
	CodeInternal            = "INTERNAL"
	CodeRouteNotFound       = "NOT_FOUND"
)

type Body struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable *bool  `json:"retryable,omitempty"`
}

type Response struct {
	Error Body `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func Write(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, Response{Error: Body{Code: code, Message: message}})
}

// WriteRetryable marks the failure as transient so clients may try again.
func WriteRetryable(w http.ResponseWriter, status int, code, message string) {
	retry := true
	WriteJSON(w, status, Response{Error: Body{Code: code, Message: message, Retryable: &retry}})
}

type ValidationError struct {
	reason error
}

func NewValidationError(format string, args ...interface{}) error {
	return ValidationError{reason: fmt.Errorf(format, args...)}
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
