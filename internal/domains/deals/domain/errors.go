package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotResolvable means no product identifier could be derived from the reference.
	ErrNotResolvable = errors.New("product reference is not resolvable")
	// ErrUpstreamTimeout covers any remote call that exceeded its time or hop bound.
	ErrUpstreamTimeout = errors.New("upstream timeout")
	// ErrUpstream is matched by both UpstreamError and MalformedResponseError.
	ErrUpstream = errors.New("upstream error")
	// ErrIncompleteDetails is returned by the formatter when title or sale price is missing.
	ErrIncompleteDetails = errors.New("product details are incomplete")
	// ErrNoCommerceLink means the inbound text did not contain a supported product link.
	ErrNoCommerceLink = errors.New("no commerce link in message")
)

// UpstreamError is a non-success code reported by the commerce API.
type UpstreamError struct {
	Code    string
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream error %s", e.Code)
	}
	return fmt.Sprintf("upstream error %s: %s", e.Code, e.Message)
}

// Is lets errors.Is(err, ErrUpstream) match.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// MalformedResponseError is a response whose envelope did not match the expected schema.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return "malformed upstream response: " + e.Reason
}

// Is lets errors.Is(err, ErrUpstream) match.
func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrUpstream
}

// ErrorClass names the taxonomy bucket of err, used for logs and metrics.
func ErrorClass(err error) string {
	var malformed *MalformedResponseError
	var upstream *UpstreamError
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrNotResolvable):
		return "not_resolvable"
	case errors.Is(err, ErrUpstreamTimeout):
		return "upstream_timeout"
	case errors.As(err, &malformed):
		return "malformed_response"
	case errors.As(err, &upstream):
		return "upstream_error"
	case errors.Is(err, ErrIncompleteDetails):
		return "incomplete_details"
	case errors.Is(err, ErrNoCommerceLink):
		return "no_link"
	default:
		return "internal"
	}
}
