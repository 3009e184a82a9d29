package http

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMethod is returned by Builder.Request for a verb outside
	// GET, POST, PUT, PATCH and DELETE.
	ErrInvalidMethod = errors.New("the specified method must be either GET, POST, PUT, PATCH or DELETE")

	// ErrBodyMismatch is recorded when AddBody mixes a fields body with a raw
	// body. The stored body is left untouched and the next dispatch fails.
	ErrBodyMismatch = errors.New("body shape mismatch")
)

// StatusError is returned alongside the response when the http_errors
// parameter is enabled and the server answers with a 4xx or 5xx status.
type StatusError struct {
	Response *Response
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Response.Method, e.Response.URL, e.Response.StatusCode, e.Response.Status)
}
