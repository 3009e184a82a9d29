// Package runner executes the requests and suites of a collection through
// the request builder.
package runner

import (
	"context"
	"fmt"
	"io"
	"maps"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wesleyorama2/volley/http"
	"github.com/wesleyorama2/volley/internal/check"
	"github.com/wesleyorama2/volley/internal/config"
	"github.com/wesleyorama2/volley/internal/output"
	"github.com/wesleyorama2/volley/internal/stats"
)

// Runner executes collection entries against one environment. Variables
// extracted from responses carry over to later requests.
type Runner struct {
	cfg       *config.Config
	env       config.Environment
	vars      map[string]string
	factory   http.TransportFactory
	logger    logrus.FieldLogger
	out       io.Writer
	formatter output.FormatProvider
	debugOut  io.Writer
	recorder  *stats.Recorder
}

// Option configures a Runner.
type Option func(*Runner)

// WithTransportFactory sets the transport used by every request.
func WithTransportFactory(factory http.TransportFactory) Option {
	return func(r *Runner) {
		r.factory = factory
	}
}

// WithLogger sets the logger passed to each builder.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithOutput prints every request and response to w using formatter.
func WithOutput(w io.Writer, formatter output.FormatProvider) Option {
	return func(r *Runner) {
		r.out = w
		r.formatter = formatter
	}
}

// WithDebugOutput sends the wire trace of requests marked debug to w.
func WithDebugOutput(w io.Writer) Option {
	return func(r *Runner) {
		r.debugOut = w
	}
}

// WithRecorder records the latency of every request in rec.
func WithRecorder(rec *stats.Recorder) Option {
	return func(r *Runner) {
		r.recorder = rec
	}
}

// Result is the outcome of one request.
type Result struct {
	Name      string
	Response  *http.Response
	Duration  time.Duration
	Extracted map[string]string
	Failures  []string
}

// Passed reports whether every expectation held.
func (r Result) Passed() bool {
	return len(r.Failures) == 0
}

// New creates a Runner for the named environment of cfg.
func New(cfg *config.Config, envName string, options ...Option) (*Runner, error) {
	if err := config.ValidateEnvironment(cfg, envName); err != nil {
		return nil, err
	}
	env := cfg.Environments[envName]

	r := &Runner{
		cfg:     cfg,
		env:     env,
		vars:    maps.Clone(env.Vars),
		factory: http.DefaultTransportFactory,
		logger:  logrus.StandardLogger(),
	}
	if r.vars == nil {
		r.vars = make(map[string]string)
	}
	for _, option := range options {
		option(r)
	}
	return r, nil
}

// Vars returns the current variables, including extracted ones.
func (r *Runner) Vars() map[string]string {
	return maps.Clone(r.vars)
}

// RunRequest executes the named request. A transport failure is returned
// as an error; unmet expectations are reported in the Result.
func (r *Runner) RunRequest(ctx context.Context, name string) (*Result, error) {
	if err := config.ValidateRequest(r.cfg, name); err != nil {
		return nil, err
	}
	req := r.cfg.Requests[name].Resolve(r.vars)

	b, err := r.builder(req)
	if err != nil {
		return nil, errors.Wrapf(err, "request %s", name)
	}

	log := r.logger.WithField("request", name)
	if r.formatter != nil {
		fmt.Fprint(r.out, r.formatter.FormatRequest(req.Method, b))
	}

	start := time.Now()
	resp, err := b.Request(ctx, req.Method)
	elapsed := time.Since(start)
	if err != nil {
		var statusErr *http.StatusError
		if !errors.As(err, &statusErr) {
			log.WithError(err).Warn("request failed")
			if r.recorder != nil {
				r.recorder.Record(name, elapsed, false, 0)
			}
			return nil, errors.Wrapf(err, "request %s", name)
		}
	}

	if r.formatter != nil {
		fmt.Fprint(r.out, r.formatter.FormatResponse(resp))
	}

	result := &Result{
		Name:     name,
		Response: resp,
		Duration: elapsed,
	}
	result.Failures = r.verify(req, resp)

	if len(req.Extract) > 0 {
		extracted, err := check.ExtractAll(resp.GetBodyAsString(), req.Extract)
		if err != nil {
			result.Failures = append(result.Failures, err.Error())
		}
		result.Extracted = extracted
		maps.Copy(r.vars, extracted)
	}

	if r.recorder != nil {
		r.recorder.Record(name, elapsed, result.Passed(), int64(resp.Size()))
	}
	log.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": elapsed,
		"passed":   result.Passed(),
	}).Info("request completed")

	return result, nil
}

// RunSuite executes the requests of the named suite in order. Suite
// variables override environment variables. The suite stops at the first
// transport failure.
func (r *Runner) RunSuite(ctx context.Context, name string) ([]Result, error) {
	if err := config.ValidateSuite(r.cfg, name); err != nil {
		return nil, err
	}
	suite := r.cfg.Suites[name]
	maps.Copy(r.vars, suite.Vars)

	results := make([]Result, 0, len(suite.Requests))
	for _, reqName := range suite.Requests {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := r.RunRequest(ctx, reqName)
		if err != nil {
			return results, errors.Wrapf(err, "suite %s", name)
		}
		results = append(results, *result)
	}
	return results, nil
}

func (r *Runner) builder(req config.Request) (*http.Builder, error) {
	b := http.New(http.WithTransportFactory(r.factory), http.WithLogger(r.logger)).
		Make(r.env.BaseURI).
		To(req.URI)

	headers := config.MergeEnvironments(r.env.Headers, req.Headers)
	b.WithHeaders(headers)

	switch req.Format {
	case string(http.FormatJSON):
		b.AsJSON()
	case string(http.FormatFormParams):
		b.AsFormParams()
	case string(http.FormatBody):
		b.AsString()
	case "":
		// A mapping cannot go out verbatim, so it defaults to JSON.
		if _, ok := req.Body.(map[string]any); ok {
			b.AsJSON()
		}
	}

	switch body := req.Body.(type) {
	case nil:
	case string:
		b.WithBody(http.Raw(body))
	case map[string]any:
		b.WithBody(http.Fields(body))
	default:
		return nil, errors.Errorf("unsupported body of type %T", req.Body)
	}

	options, err := normalizeOptions(req.Options)
	if err != nil {
		return nil, err
	}
	b.WithOptions(options)

	if req.Debug {
		if r.debugOut != nil {
			b.DebugTo(r.debugOut)
		} else {
			b.Debug(true)
		}
	}
	return b, nil
}

// normalizeOptions converts decoded YAML values into the shapes the
// transport accepts.
func normalizeOptions(options map[string]any) (map[string]any, error) {
	out := maps.Clone(options)
	if auth, ok := out[http.ParamAuth]; ok {
		list, ok := auth.([]any)
		if !ok || len(list) != 2 {
			return nil, errors.Errorf("auth option must be a [user, password] list")
		}
		out[http.ParamAuth] = []string{fmt.Sprint(list[0]), fmt.Sprint(list[1])}
	}
	return out, nil
}

func (r *Runner) verify(req config.Request, resp *http.Response) []string {
	var failures []string

	if want := req.Expect.Status; want != 0 && resp.StatusCode != want {
		failures = append(failures, fmt.Sprintf("expected status %d, got %d", want, resp.StatusCode))
	}

	if want := req.Expect.Contains; want != "" && !strings.Contains(resp.GetBodyAsString(), want) {
		failures = append(failures, fmt.Sprintf("expected body to contain %q", want))
	}

	if name := req.Expect.Schema; name != "" {
		if err := check.ValidateSchema(resp.GetBodyAsString(), r.cfg.Schemas[name]); err != nil {
			failures = append(failures, fmt.Sprintf("schema %s: %v", name, err))
		}
	}

	return failures
}
