package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// NetworkError is returned when the request never produced a response.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// FetchError is a non-2xx response. Body holds the parsed JSON error
// document when the upstream sent one, otherwise the raw text.
type FetchError struct {
	URL    string
	Status int
	Body   any
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: HTTP %d %s", e.URL, e.Status, http.StatusText(e.Status))
}

// ParseError is a malformed response or stored value.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// parseErrorBody decodes an error body as JSON, falling back to text.
func parseErrorBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err == nil {
		return v
	}
	return string(body)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Status
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the upstream. A missing
// community is terminal: it is never retried.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// Retryable reports whether a failed request may be attempted again.
// Cancellation and 404 are final; everything else is transient.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return !IsNotFound(err)
}
