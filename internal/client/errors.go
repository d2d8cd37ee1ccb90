package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrTransport marks failures reaching the backend or reading its reply:
// dial errors, timeouts, broken connections, undecodable bodies.
var ErrTransport = errors.New("backend transport failure")

// StatusError is a response the backend delivered with a non-2xx status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: backend returned %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: backend returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsRejected reports whether err is a non-success backend response.
func IsRejected(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// StatusCode returns the backend status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
