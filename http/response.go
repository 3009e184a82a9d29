package http

import (
	"net/http"
	"time"
)

// TimingInfo stores detailed timing information for an HTTP request.
// All durations represent the time spent in each phase of the request.
type TimingInfo struct {
	// StartTime is when the request started
	StartTime time.Time

	// DNSLookupTime is the time spent looking up the DNS address
	DNSLookupTime time.Duration

	// TCPConnectTime is the time spent establishing a TCP connection
	TCPConnectTime time.Duration

	// TLSHandshakeTime is the time spent performing the TLS handshake (for HTTPS)
	TLSHandshakeTime time.Duration

	// TimeToFirstByte (TTFB) is the time from connection established to receiving the first byte
	TimeToFirstByte time.Duration

	// ContentTransferTime is the time spent reading the response body
	ContentTransferTime time.Duration

	// TotalTime is the time until response headers arrived
	TotalTime time.Duration
}

// Response is a fully read HTTP response. The body is exposed raw.
type Response struct {
	// Method and URL describe the request that produced this response
	Method string
	URL    string

	StatusCode int

	// Status is the reason phrase without the code, e.g. "Not Found"
	Status  string
	Proto   string
	Headers http.Header

	// ResponseTime includes reading the body
	ResponseTime time.Duration
	Timing       TimingInfo

	body []byte
}

// NewResponse builds a Response around an already read body. It is meant
// for Transport implementations other than Client.
func NewResponse(statusCode int, headers http.Header, body []byte) *Response {
	if headers == nil {
		headers = make(http.Header)
	}
	return &Response{
		StatusCode: statusCode,
		Status:     http.StatusText(statusCode),
		Headers:    headers,
		body:       body,
	}
}

// GetBody returns the raw response body.
func (r *Response) GetBody() []byte {
	return r.body
}

// GetBodyAsString returns the response body as a string.
func (r *Response) GetBodyAsString() string {
	return string(r.body)
}

// Size is the body length in bytes.
func (r *Response) Size() int {
	return len(r.body)
}

// GetHeader returns the value of the specified header.
// Returns an empty string if the header is not present.
func (r *Response) GetHeader(key string) string {
	return r.Headers.Get(key)
}

// IsSuccess returns true if the response status code is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsRedirect returns true if the response status code is in the 3xx range.
func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

// IsClientError returns true if the response status code is in the 4xx range.
func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

// IsServerError returns true if the response status code is in the 5xx range.
func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode < 600
}

// IsError returns true if the response status code indicates an error (4xx or 5xx).
func (r *Response) IsError() bool {
	return r.IsClientError() || r.IsServerError()
}
