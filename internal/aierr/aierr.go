// Package aierr classifies failures of calls to the AI service into a small
// closed set of kinds that the client can act on.
package aierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind is a classified failure.
type Kind string

const (
	KindNetwork          Kind = "network_error"
	KindRateLimited      Kind = "rate_limited"
	KindAIDisabled       Kind = "ai_disabled"
	KindAIUnavailable    Kind = "ai_unavailable"
	KindContentTooShort  Kind = "content_too_short"
	KindContentTooLong   Kind = "content_too_long"
	KindValidation       Kind = "validation_error"
	KindUnauthorized     Kind = "unauthorized"
	KindNotFound         Kind = "not_found"
	KindGenerationFailed Kind = "generation_failed"
	KindUnknown          Kind = "unknown"
)

var defaultMessages = map[Kind]string{
	KindNetwork:          "Unable to reach the AI service. Check your connection and try again.",
	KindRateLimited:      "Too many requests. Please wait a moment and try again.",
	KindAIDisabled:       "AI features are disabled for your account.",
	KindAIUnavailable:    "The AI service is temporarily unavailable. Please try again shortly.",
	KindContentTooShort:  "The content is too short to process.",
	KindContentTooLong:   "The content is too long to process.",
	KindValidation:       "The request was invalid.",
	KindUnauthorized:     "Please sign in again to continue.",
	KindNotFound:         "The requested content was not found.",
	KindGenerationFailed: "Generation failed. Please try again.",
	KindUnknown:          "Something went wrong. Please try again.",
}

// Retryable reports whether the UI should offer a manual retry for kind.
func (k Kind) Retryable() bool {
	switch k {
	case KindNetwork, KindRateLimited, KindAIUnavailable, KindGenerationFailed, KindUnknown:
		return true
	default:
		return false
	}
}

// HTTPStatus is the status this service answers with for kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNetwork, KindGenerationFailed:
		return http.StatusBadGateway
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindAIDisabled:
		return http.StatusForbidden
	case KindAIUnavailable:
		return http.StatusServiceUnavailable
	case KindContentTooShort, KindContentTooLong, KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified AI service failure.
type Error struct {
	Kind      Kind   `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	// Status is the upstream HTTP status, zero for transport failures.
	Status int `json:"-"`
	// UpstreamCode is the code reported in the upstream error body, if any.
	UpstreamCode string `json:"-"`
	cause        error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Messages overrides the user-facing text per kind for one feature.
type Messages map[Kind]string

// New builds an Error of kind with the default or overridden message.
func New(kind Kind, msgs Messages) *Error {
	return &Error{Kind: kind, Message: messageFor(kind, msgs), Retryable: kind.Retryable()}
}

// Newf builds an Error of kind with a specific message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Retryable: kind.Retryable()}
}

// Network wraps a transport failure.
func Network(cause error) *Error {
	e := New(KindNetwork, nil)
	e.cause = cause
	return e
}

// As extracts an *Error from err, classifying unknown errors as KindUnknown.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	u := New(KindUnknown, nil)
	u.cause = err
	return u
}

// Localize returns a copy of e with the feature's message for its kind.
func Localize(e *Error, msgs Messages) *Error {
	if e == nil {
		return nil
	}
	c := *e
	if m, ok := msgs[e.Kind]; ok {
		c.Message = m
	}
	return &c
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Classify maps an upstream status and error body to an Error. The body may
// be empty or not JSON.
func Classify(status int, body []byte, msgs Messages) *Error {
	code, upstreamMsg := parseBody(body)

	kind := kindFromCode(code)
	if kind == "" {
		kind = kindFromStatus(status)
	}

	e := New(kind, msgs)
	e.Status = status
	e.UpstreamCode = code
	if _, overridden := msgs[kind]; !overridden && kind == KindValidation && upstreamMsg != "" {
		e.Message = upstreamMsg
	}
	return e
}

func parseBody(body []byte) (code, message string) {
	if len(body) == 0 {
		return "", ""
	}
	var b errorBody
	if err := json.Unmarshal(body, &b); err != nil {
		return "", ""
	}
	if b.Error != nil {
		return strings.ToUpper(b.Error.Code), b.Error.Message
	}
	return strings.ToUpper(b.Code), b.Message
}

func kindFromCode(code string) Kind {
	switch code {
	case "AI_DISABLED":
		return KindAIDisabled
	case "CONTENT_TOO_SHORT", "TEXT_TOO_SHORT":
		return KindContentTooShort
	case "CONTENT_TOO_LONG", "TEXT_TOO_LONG":
		return KindContentTooLong
	case "RATE_LIMITED", "RATE_LIMIT_EXCEEDED":
		return KindRateLimited
	case "AI_UNAVAILABLE", "SERVICE_UNAVAILABLE":
		return KindAIUnavailable
	default:
		return ""
	}
}

func kindFromStatus(status int) Kind {
	switch {
	case status == http.StatusBadRequest:
		return KindValidation
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindAIDisabled
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusServiceUnavailable:
		return KindAIUnavailable
	case status >= 500:
		return KindGenerationFailed
	default:
		return KindUnknown
	}
}

func messageFor(kind Kind, msgs Messages) string {
	if m, ok := msgs[kind]; ok {
		return m
	}
	return defaultMessages[kind]
}
