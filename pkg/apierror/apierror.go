package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind groups error codes into the categories the workspace stores react to.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNetwork      Kind = "network"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// FallbackMessage is shown when a failure carries no server message.
const FallbackMessage = "network request failed"

type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`

	cause error
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Kind classifies the error by code first and HTTP status second.
func (e *APIError) Kind() Kind {
	if e == nil {
		return ""
	}

	switch strings.ToUpper(e.Code) {
	case "BAD_REQUEST", "VALIDATION_ERROR", "INVALID_FILENAME", "INVALID_PATH", "PAYLOAD_TOO_LARGE", "UNSUPPORTED_TYPE":
		return KindValidation
	case "NOT_FOUND", "GONE":
		return KindNotFound
	case "UNAUTHORIZED", "FORBIDDEN":
		return KindUnauthorized
	case "CONFLICT", "ALREADY_EXISTS", "INSUFFICIENT_TOKENS", "QUOTA_EXCEEDED":
		return KindConflict
	case "NETWORK_ERROR", "REQUEST_TIMEOUT", "RATE_LIMITED":
		return KindNetwork
	}

	switch {
	case e.HTTPStatus == http.StatusNotFound || e.HTTPStatus == http.StatusGone:
		return KindNotFound
	case e.HTTPStatus == http.StatusUnauthorized || e.HTTPStatus == http.StatusForbidden:
		return KindUnauthorized
	case e.HTTPStatus == http.StatusConflict:
		return KindConflict
	case e.HTTPStatus >= 400 && e.HTTPStatus < 500:
		return KindValidation
	case e.HTTPStatus >= 500:
		return KindNetwork
	}

	return KindInternal
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

func Validation(message string, details string) *APIError {
	return New("VALIDATION_ERROR", message, details, http.StatusBadRequest)
}

func NotFound(message string, details string) *APIError {
	return New("NOT_FOUND", message, details, http.StatusNotFound)
}

// Network wraps a transport failure. The message stays generic so nothing
// from the dial or TLS layer reaches the user.
func Network(cause error) *APIError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &APIError{
		Code:       "NETWORK_ERROR",
		Message:    FallbackMessage,
		Details:    details,
		HTTPStatus: http.StatusServiceUnavailable,
		cause:      cause,
	}
}

// KindOf classifies any error. Context cancellation and unknown errors count
// as network failures since they surface from the transport.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind()
	}

	return KindNetwork
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// DisplayMessage returns the string stores expose through their Error field.
func DisplayMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}

	return FallbackMessage
}
