package llm

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status classifies a provider failure for retry decisions.
type Status string

const (
	// StatusRateLimited covers 429-style throttling; retryable, optionally
	// with a retry-after hint.
	StatusRateLimited Status = "rate_limited"
	// StatusServer covers 5xx and network-level failures; retryable.
	StatusServer Status = "server_error"
	// StatusClient covers configuration and request faults (bad key, bad
	// model id); never retried.
	StatusClient Status = "client_error"
)

// Error is a typed provider failure.
type Error struct {
	Status     Status
	Provider   string
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("llm %s: %s: %s", e.Provider, e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is worth another attempt.
func (e *Error) Retryable() bool {
	return e.Status == StatusRateLimited || e.Status == StatusServer
}

// ClassifyError wraps a raw provider error into an *Error by pattern-matching
// status codes and well-known failure phrases in the message. Unrecognized
// errors classify as server errors so transient network faults stay
// retryable.
func ClassifyError(provider string, err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case containsAny(lower, "429", "rate limit", "too many requests", "quota exceeded"):
		return &Error{Status: StatusRateLimited, Provider: provider, Message: msg, Err: err}
	case containsAny(lower, "401", "403", "unauthorized", "forbidden", "invalid api key",
		"api key not", "invalid_request", "model not found", "404"):
		return &Error{Status: StatusClient, Provider: provider, Message: msg, Err: err}
	case containsAny(lower, "500", "502", "503", "504", "overloaded", "internal server",
		"connection refused", "connection reset", "timeout", "deadline exceeded", "eof"):
		return &Error{Status: StatusServer, Provider: provider, Message: msg, Err: err}
	default:
		return &Error{Status: StatusServer, Provider: provider, Message: msg, Err: err}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
