// Package resilience classifies pipeline errors into the categories the
// operator-facing layers care about: precondition failures rejected before
// any network call, transport failures (unreachable service, timeout), and
// server-rejected requests carrying a detail message.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// PreconditionError reports missing selections detected before any network
// call. Missing enumerates what the operator still has to provide.
type PreconditionError struct {
	Missing []string
}

func (e *PreconditionError) Error() string {
	return "missing selection: " + strings.Join(e.Missing, ", ")
}

// NewPrecondition creates a PreconditionError for the given missing items.
func NewPrecondition(missing ...string) *PreconditionError {
	return &PreconditionError{Missing: missing}
}

// ServerError is a 4xx/5xx response from a remote service. Detail holds the
// server-supplied message when one was present.
type ServerError struct {
	StatusCode int
	Detail     string
}

func (e *ServerError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server rejected request (%d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("server rejected request (%d)", e.StatusCode)
}

// NewServerError creates a ServerError from a status code and optional detail.
func NewServerError(statusCode int, detail string) *ServerError {
	return &ServerError{StatusCode: statusCode, Detail: detail}
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "i/o timeout")
}

// IsTransport reports whether err is a transport-level failure: the request
// never produced an HTTP response (timeout, refused connection, DNS failure).
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	var se *ServerError
	if errors.As(err, &se) {
		return false
	}
	var pe *PreconditionError
	if errors.As(err, &pe) {
		return false
	}
	if IsTimeout(err) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"connection refused",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"server closed idle connection",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// UserMessage renders err as the single human-readable string the pipeline
// stores for the operator. Server detail is preferred; transport errors map
// to fixed wordings.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var pe *PreconditionError
	if errors.As(err, &pe) {
		return pe.Error()
	}
	var se *ServerError
	if errors.As(err, &se) {
		if se.Detail != "" {
			return se.Detail
		}
		return se.Error()
	}
	if IsTimeout(err) {
		return "request timed out"
	}
	if IsTransport(err) {
		return "service unreachable"
	}
	return err.Error()
}
