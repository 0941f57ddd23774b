package aliexpress

import (
	"errors"
	"fmt"
)

var (
	// ErrEndpointUnavailable covers connection failures, 5xx answers and open breakers.
	ErrEndpointUnavailable = errors.New("aliexpress endpoint unavailable")
	// ErrTimeout is returned when an attempt or the limiter wait exceeded its deadline.
	ErrTimeout = errors.New("aliexpress request timed out")
)

// APIError is a well-formed rejection from the gateway: either an error_response
// envelope or a resp_result whose resp_code is not the success code.
type APIError struct {
	Method    string
	Code      string
	SubCode   string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	code := e.Code
	if e.SubCode != "" {
		code += "/" + e.SubCode
	}
	if e.Message == "" {
		return fmt.Sprintf("aliexpress %s: code %s", e.Method, code)
	}
	return fmt.Sprintf("aliexpress %s: code %s: %s", e.Method, code, e.Message)
}

// MalformedResponseError is an answer that does not fit the expected envelope.
type MalformedResponseError struct {
	Method string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("aliexpress %s: malformed response: %s", e.Method, e.Reason)
}

// IsRetryable reports whether err is connection-class, i.e. worth trying on
// another endpoint. Validation-class failures never are.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrEndpointUnavailable) || errors.Is(err, ErrTimeout)
}
