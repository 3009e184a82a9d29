package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Client is the default Transport, backed by net/http.
// Client is safe for concurrent use by multiple goroutines.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	baseErr    error
	headers    map[string]string
	debugOut   io.Writer
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// NewClient creates a new HTTP client with the given options.
//
// Example:
//
//	client := http.NewClient(
//	    http.WithBaseURL("https://api.example.com"),
//	    http.WithTimeout(30*time.Second),
//	)
func NewClient(options ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		headers:  make(map[string]string),
		debugOut: os.Stderr,
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// WithBaseURL roots relative request URIs at baseURL. A malformed base URL
// is reported by the first request.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL, c.baseErr = url.Parse(baseURL)
	}
}

// WithTimeout sets the timeout for all requests made by this client.
// The default timeout is 30 seconds.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHeader adds a default header to all requests made by this client.
// Headers passed with a request override these defaults.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithHTTPClient sets a custom *http.Client for this client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
// WARNING: This should only be used for testing purposes.
func WithInsecureSkipVerify() ClientOption {
	return func(c *Client) {
		c.httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
}

// WithDebugOutput sets where the wire trace goes when the debug parameter
// is true. The default is os.Stderr.
func WithDebugOutput(w io.Writer) ClientOption {
	return func(c *Client) {
		c.debugOut = w
	}
}

// BaseURL returns the base URL, or "" for an unbound client.
func (c *Client) BaseURL() string {
	if c.baseURL == nil {
		return ""
	}
	return c.baseURL.String()
}

// Request sends method to uri, resolved against the base URL, using the
// recognised keys of params. Network failures are returned as produced by
// net/http.
func (c *Client) Request(ctx context.Context, method, uri string, params Parameters) (*Response, error) {
	reqURL, err := c.resolve(uri, params[ParamQuery])
	if err != nil {
		return nil, err
	}

	body, err := encodeBody(params)
	if err != nil {
		return nil, err
	}

	sink, err := debugSink(params[ParamDebug], c.debugOut)
	if err != nil {
		return nil, err
	}

	if timeout, ok, err := durationParam(params[ParamTimeout]); err != nil {
		return nil, err
	} else if ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body.reader)
	if err != nil {
		return nil, err
	}
	if body.reader != nil && body.length >= 0 {
		httpReq.ContentLength = body.length
	}

	for key, value := range c.headers {
		httpReq.Header.Set(key, value)
	}
	if err := applyHeaders(httpReq.Header, params[ParamHeaders]); err != nil {
		return nil, err
	}
	if body.contentType != "" && !hasHeader(httpReq.Header, "Content-Type") {
		httpReq.Header.Set("Content-Type", body.contentType)
	}

	if auth, ok := params[ParamAuth]; ok {
		creds, ok := auth.([]string)
		if !ok || len(creds) != 2 {
			return nil, errors.Errorf("auth must be a []string{user, password}, got %T", auth)
		}
		httpReq.SetBasicAuth(creds[0], creds[1])
	}

	httpClient := c.httpClient
	if follow, ok := params[ParamAllowRedirects].(bool); ok && !follow {
		noRedirect := *c.httpClient
		noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
		httpClient = &noRedirect
	}

	var trace *wireTrace
	if sink != nil {
		trace = &wireTrace{w: sink}
	}

	resp, err := c.do(httpClient, httpReq, trace)
	if err != nil {
		return nil, err
	}

	if raise, _ := params[ParamHTTPErrors].(bool); raise && resp.IsError() {
		return resp, &StatusError{Response: resp}
	}
	return resp, nil
}

// resolve applies uri to the base URL by RFC 3986 reference resolution and
// merges an optional query parameter. Without a query parameter the query
// string in uri is kept byte for byte.
func (c *Client) resolve(uri string, query any) (*url.URL, error) {
	if c.baseErr != nil {
		return nil, c.baseErr
	}
	ref, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}
	resolved := ref
	if c.baseURL != nil {
		resolved = c.baseURL.ResolveReference(ref)
	}
	if query == nil {
		return resolved, nil
	}

	values := resolved.Query()
	switch q := query.(type) {
	case map[string]string:
		for key, value := range q {
			values.Set(key, value)
		}
	case map[string]any:
		extra, err := url.ParseQuery(FormEncode(q))
		if err != nil {
			return nil, errors.Wrap(err, "encoding query parameter")
		}
		for key, vv := range extra {
			values[key] = vv
		}
	case url.Values:
		for key, vv := range q {
			values[key] = vv
		}
	case string:
		resolved.RawQuery = q
		return resolved, nil
	default:
		return nil, errors.Errorf("unsupported query value of type %T", query)
	}
	resolved.RawQuery = values.Encode()
	return resolved, nil
}

func durationParam(v any) (time.Duration, bool, error) {
	switch d := v.(type) {
	case nil:
		return 0, false, nil
	case time.Duration:
		return d, d > 0, nil
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0, false, errors.Wrapf(err, "parsing timeout %q", d)
		}
		return parsed, parsed > 0, nil
	case int:
		return time.Duration(d) * time.Second, d > 0, nil
	case float64:
		return time.Duration(d * float64(time.Second)), d > 0, nil
	default:
		return 0, false, errors.Errorf("unsupported timeout value of type %T", v)
	}
}

// do executes httpReq and collects per-phase timing, feeding connection
// events to trace when it is non-nil.
func (c *Client) do(httpClient *http.Client, httpReq *http.Request, trace *wireTrace) (*Response, error) {
	timing := TimingInfo{
		StartTime: time.Now(),
	}

	var dnsStart, connectStart, tlsHandshakeStart time.Time
	var connectDone bool
	lastPhaseEnd := timing.StartTime

	clientTrace := &httptrace.ClientTrace{
		DNSStart: func(info httptrace.DNSStartInfo) {
			dnsStart = time.Now()
			trace.info("Resolving %s", info.Host)
		},
		DNSDone: func(info httptrace.DNSDoneInfo) {
			dnsEnd := time.Now()
			timing.DNSLookupTime = dnsEnd.Sub(dnsStart)
			lastPhaseEnd = dnsEnd
		},
		ConnectStart: func(network, addr string) {
			connectStart = time.Now()
			trace.info("Trying %s...", addr)
		},
		ConnectDone: func(network, addr string, err error) {
			if err != nil {
				trace.info("Connection to %s failed: %v", addr, err)
				return
			}
			connectEnd := time.Now()
			timing.TCPConnectTime = connectEnd.Sub(connectStart)
			connectDone = true
			lastPhaseEnd = connectEnd
			trace.info("Connected to %s", addr)
		},
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Reused {
				trace.info("Re-using existing connection to %s", info.Conn.RemoteAddr())
			}
		},
		TLSHandshakeStart: func() {
			if connectDone {
				tlsHandshakeStart = time.Now()
			}
		},
		TLSHandshakeDone: func(state tls.ConnectionState, err error) {
			if err != nil {
				trace.info("TLS handshake failed: %v", err)
				return
			}
			tlsHandshakeEnd := time.Now()
			timing.TLSHandshakeTime = tlsHandshakeEnd.Sub(tlsHandshakeStart)
			lastPhaseEnd = tlsHandshakeEnd
			trace.info("TLS connection using %s", tls.CipherSuiteName(state.CipherSuite))
		},
		GotFirstResponseByte: func() {
			timing.TimeToFirstByte = time.Since(lastPhaseEnd)
		},
	}

	// Dump before attaching the client trace; DumpRequestOut runs its own
	// round trip and would fire the hooks.
	trace.request(httpReq)
	httpReq = httpReq.WithContext(httptrace.WithClientTrace(httpReq.Context(), clientTrace))

	httpResp, err := httpClient.Do(httpReq)
	if err != nil {
		trace.info("Request failed: %v", err)
		return nil, err
	}
	defer httpResp.Body.Close()

	timing.TotalTime = time.Since(timing.StartTime)

	contentTransferStart := time.Now()
	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	timing.ContentTransferTime = time.Since(contentTransferStart)

	httpResp.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	trace.response(httpResp)

	return &Response{
		Method:       httpReq.Method,
		URL:          httpReq.URL.String(),
		StatusCode:   httpResp.StatusCode,
		Status:       reasonPhrase(httpResp),
		Proto:        httpResp.Proto,
		Headers:      httpResp.Header,
		ResponseTime: time.Since(timing.StartTime),
		Timing:       timing,
		body:         bodyBytes,
	}, nil
}

// reasonPhrase strips the status code from resp.Status.
func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))
	if reason = strings.TrimSpace(reason); reason == "" {
		return http.StatusText(resp.StatusCode)
	}
	return reason
}
