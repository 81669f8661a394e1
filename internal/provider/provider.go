// Package provider talks to external AI completion services.
//
// A Provider performs exactly one completion request. The Gateway wraps a
// Provider with an overall timeout, an optional client-side rate limit and a
// bounded retry loop, and turns the reply into a content.Value payload.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable is returned by the Gateway once every attempt failed
	// with a transient error. Callers may retry later.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrBadRequest marks a request the provider rejected as malformed.
	// Such errors are never retried.
	ErrBadRequest = errors.New("provider rejected request")
)

// Request is one completion request.
type Request struct {
	Prompt string
	// SchemaName and Schema describe the expected JSON object; providers with
	// a structured-output mode pass them along, others ignore them.
	SchemaName string
	Schema     map[string]any
}

// Usage reports token accounting for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the raw reply of a single provider call.
type Completion struct {
	Content string
	Model   string
	Usage   Usage
}

// Provider performs a single completion call with no retries of its own.
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, req Request) (Completion, error)
}

// StatusError is an HTTP-level failure reported by a provider.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Code, e.Body)
}

// Unwrap maps non-retryable client errors to ErrBadRequest.
func (e *StatusError) Unwrap() error {
	if !retryableStatus(e.Code) && e.Code >= 400 && e.Code < 500 {
		return ErrBadRequest
	}
	return nil
}

func retryableStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}

// Retryable reports whether err is transient: timeouts, throttling, 5xx
// responses and transport failures. Rejected requests and caller
// cancellation are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return retryableStatus(se.Code)
	}
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
