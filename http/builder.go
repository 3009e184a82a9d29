package http

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
)

// Transport performs the network exchange for a Builder.
type Transport interface {
	Request(ctx context.Context, method, uri string, params Parameters) (*Response, error)
}

// TransportFactory creates the Transport a Builder dispatches through.
// baseURI is empty for an unbound transport.
type TransportFactory func(baseURI string) Transport

// DefaultTransportFactory returns a Client bound to baseURI.
func DefaultTransportFactory(baseURI string) Transport {
	if baseURI == "" {
		return NewClient()
	}
	return NewClient(WithBaseURL(baseURI))
}

var allowedMethods = []string{"get", "post", "put", "patch", "delete"}

// Builder configures one logical request through chained calls and
// dispatches it through its Transport.
//
// A Builder is owned by a single goroutine. Everything except the debug
// sink survives a dispatch, so the same Builder can be fired repeatedly.
//
// Example:
//
//	resp, err := http.New().
//	    Make("https://api.example.com").
//	    To("users?active=1").
//	    WithBody(http.Fields(map[string]any{"name": "ada"})).
//	    AsJSON().
//	    Post(ctx)
type Builder struct {
	transport    Transport
	newTransport TransportFactory
	logger       logrus.FieldLogger

	uri     string
	body    Body
	headers map[string]string
	options map[string]any
	format  Format
	debug   any
	err     error
}

// BuilderOption configures a Builder at construction.
type BuilderOption func(*Builder)

// WithTransportFactory replaces the factory used by New and Make.
func WithTransportFactory(factory TransportFactory) BuilderOption {
	return func(b *Builder) {
		b.newTransport = factory
	}
}

// WithLogger sets the logger dispatches are reported to at debug level.
func WithLogger(logger logrus.FieldLogger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// New creates a Builder with an unbound transport and the raw body format.
func New(options ...BuilderOption) *Builder {
	b := &Builder{
		newTransport: DefaultTransportFactory,
		logger:       logrus.StandardLogger(),
		headers:      make(map[string]string),
		options:      make(map[string]any),
		format:       FormatBody,
		debug:        false,
	}
	for _, option := range options {
		option(b)
	}
	b.transport = b.newTransport("")
	return b
}

// Make replaces the transport with one rooted at baseURI. Any state held
// by the previous transport is discarded.
func (b *Builder) Make(baseURI string) *Builder {
	b.transport = b.newTransport(baseURI)
	return b
}

// Transport returns the current transport.
func (b *Builder) Transport() Transport {
	return b.transport
}

// To sets the URI for the next dispatch. It is passed through unchanged,
// query string included.
func (b *Builder) To(uri string) *Builder {
	b.uri = uri
	return b
}

// URI returns the URI set by To.
func (b *Builder) URI() string {
	return b.uri
}

// With replaces the body, headers and options in one call.
func (b *Builder) With(body Body, headers map[string]string, options map[string]any) *Builder {
	return b.WithBody(body).WithHeaders(headers).WithOptions(options)
}

// WithBody replaces the body and clears a pending body mismatch.
func (b *Builder) WithBody(body Body) *Builder {
	b.body = body
	b.err = nil
	return b
}

// AddBody merges body into the current one. Fields merge shallowly with new
// keys winning, raw strings concatenate. Mixing shapes leaves the body
// unchanged and makes the next dispatch fail with ErrBodyMismatch.
func (b *Builder) AddBody(body Body) *Builder {
	merged, err := b.body.merge(body)
	if err != nil {
		b.err = err
		return b
	}
	b.body = merged
	return b
}

// Body returns the current body.
func (b *Builder) Body() Body {
	return b.body
}

// WithHeaders replaces the headers.
func (b *Builder) WithHeaders(headers map[string]string) *Builder {
	b.headers = make(map[string]string, len(headers))
	maps.Copy(b.headers, headers)
	return b
}

// AddHeaders merges headers into the current set; new keys win.
func (b *Builder) AddHeaders(headers map[string]string) *Builder {
	maps.Copy(b.headers, headers)
	return b
}

// Headers returns a copy of the current headers.
func (b *Builder) Headers() map[string]string {
	return maps.Clone(b.headers)
}

// WithOptions replaces the transport options.
func (b *Builder) WithOptions(options map[string]any) *Builder {
	b.options = make(map[string]any, len(options))
	maps.Copy(b.options, options)
	return b
}

// AddOptions merges options into the current set; new keys win.
func (b *Builder) AddOptions(options map[string]any) *Builder {
	maps.Copy(b.options, options)
	return b
}

// Options returns a copy of the current options.
func (b *Builder) Options() map[string]any {
	return maps.Clone(b.options)
}

// AsFormParams sends the body URL-form-encoded.
func (b *Builder) AsFormParams() *Builder {
	b.format = FormatFormParams
	return b
}

// AsJSON sends the body JSON-encoded.
func (b *Builder) AsJSON() *Builder {
	b.format = FormatJSON
	return b
}

// AsString sends the body verbatim.
func (b *Builder) AsString() *Builder {
	b.format = FormatBody
	return b
}

// Format returns the current body format.
func (b *Builder) Format() Format {
	return b.format
}

// Debug arms (or disarms) the transport's wire trace for the next dispatch
// only. When armed the trace goes to the transport's default target.
func (b *Builder) Debug(on bool) *Builder {
	b.debug = on
	return b
}

// DebugTo arms the wire trace for the next dispatch only and sends it to w.
// The caller owns w and must close it, if needed, after the dispatch.
func (b *Builder) DebugTo(w io.Writer) *Builder {
	b.debug = w
	return b
}

// Err returns the pending body mismatch, if any.
func (b *Builder) Err() error {
	return b.err
}

// Get sends a GET request.
func (b *Builder) Get(ctx context.Context) (*Response, error) {
	return b.send(ctx, "GET")
}

// Post sends a POST request.
func (b *Builder) Post(ctx context.Context) (*Response, error) {
	return b.send(ctx, "POST")
}

// Put sends a PUT request.
func (b *Builder) Put(ctx context.Context) (*Response, error) {
	return b.send(ctx, "PUT")
}

// Patch sends a PATCH request.
func (b *Builder) Patch(ctx context.Context) (*Response, error) {
	return b.send(ctx, "PATCH")
}

// Delete sends a DELETE request.
func (b *Builder) Delete(ctx context.Context) (*Response, error) {
	return b.send(ctx, "DELETE")
}

// Request sends a request with the given verb, matched case-insensitively.
// Verbs other than GET, POST, PUT, PATCH and DELETE fail with
// ErrInvalidMethod before anything is sent.
func (b *Builder) Request(ctx context.Context, method string) (*Response, error) {
	verb := strings.ToLower(method)
	if !slices.Contains(allowedMethods, verb) {
		return nil, fmt.Errorf("%w (got %q)", ErrInvalidMethod, method)
	}
	return b.send(ctx, strings.ToUpper(verb))
}

// Parameters returns the parameter set the next dispatch would hand to the
// transport: the body keyed by format, headers and debug, with options
// merged on top.
func (b *Builder) Parameters() Parameters {
	params := Parameters{
		string(b.format): b.body.Value(),
		ParamHeaders:     maps.Clone(b.headers),
		ParamDebug:       b.debug,
	}
	return params.Merge(b.options)
}

func (b *Builder) send(ctx context.Context, method string) (*Response, error) {
	defer func() { b.debug = false }()

	if b.err != nil {
		return nil, b.err
	}

	log := b.logger.WithFields(logrus.Fields{
		"method": method,
		"uri":    b.uri,
		"format": string(b.format),
	})
	log.Debug("dispatching request")

	resp, err := b.transport.Request(ctx, method, b.uri, b.Parameters())
	if err != nil {
		log.WithError(err).Debug("request failed")
		return resp, err
	}

	if resp != nil {
		log.WithField("status", resp.StatusCode).Debug("request completed")
	}
	return resp, nil
}
