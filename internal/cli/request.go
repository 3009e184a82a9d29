package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/volley/http"
	"github.com/wesleyorama2/volley/internal/check"
	"github.com/wesleyorama2/volley/internal/output"
)

// requestFlags holds the flags shared by the verb commands and request.
type requestFlags struct {
	headers   []string
	data      string
	jsonData  string
	form      []string
	options   []string
	debug     bool
	debugFile string
	timeout   time.Duration
	insecure  bool
	verbose   bool
	noColor   bool
	format    string
	query     string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringArrayVarP(&f.headers, "header", "H", nil, "HTTP header as 'Name: value' (repeatable)")
	flags.StringVarP(&f.data, "data", "d", "", "Raw request body, sent verbatim")
	flags.StringVarP(&f.jsonData, "json", "j", "", "JSON object sent as a JSON body")
	flags.StringArrayVarP(&f.form, "form", "f", nil, "Form field as key=value (repeatable)")
	flags.StringArrayVarP(&f.options, "option", "o", nil, "Transport option as key=value, e.g. timeout=5s (repeatable)")
	flags.BoolVar(&f.debug, "debug", false, "Print a wire trace of the request to stderr")
	flags.StringVar(&f.debugFile, "debug-file", "", "Append the wire trace to this file instead of stderr")
	flags.DurationVarP(&f.timeout, "timeout", "t", 30*time.Second, "Request timeout")
	flags.BoolVarP(&f.insecure, "insecure", "k", false, "Skip TLS certificate verification")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "Enable verbose output")
	flags.BoolVar(&f.noColor, "no-color", false, "Disable colored output")
	flags.StringVar(&f.format, "output", "text", "Output format (text, json, yaml)")
	flags.StringVarP(&f.query, "query", "q", "", "Print only the value at this JSON path of the response")
	cmd.MarkFlagsMutuallyExclusive("data", "json", "form")
}

func newVerbCmd(a *app, verb string) *cobra.Command {
	f := &requestFlags{}
	cmd := &cobra.Command{
		Use:   verb + " URL",
		Short: fmt.Sprintf("Make a %s request to the specified URL", strings.ToUpper(verb)),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.send(cmd, f, verb, args[0])
		},
	}
	f.register(cmd)
	return cmd
}

func newRequestCmd(a *app) *cobra.Command {
	f := &requestFlags{}
	cmd := &cobra.Command{
		Use:   "request METHOD URL",
		Short: "Make a request with the given method",
		Long: `Make a request with the given method. The method is matched without
regard to case and must be one of GET, POST, PUT, PATCH or DELETE.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.send(cmd, f, args[0], args[1])
		},
	}
	f.register(cmd)
	return cmd
}

// send builds the request described by f and dispatches it with method.
func (a *app) send(cmd *cobra.Command, f *requestFlags, method, rawURL string) error {
	stdout := cmd.OutOrStdout()

	format, err := output.ParseFormat(f.format)
	if err != nil {
		return err
	}

	baseURL, path := parseURL(rawURL)
	b := http.New(
		http.WithTransportFactory(f.transportFactory(cmd)),
		http.WithLogger(a.logger),
	).Make(baseURL).To(path)

	if err := f.apply(b); err != nil {
		return err
	}

	if f.debugFile != "" {
		file, err := os.OpenFile(f.debugFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return errors.Wrap(err, "opening debug file")
		}
		defer file.Close()
		b.DebugTo(file)
	} else if f.debug {
		b.Debug(true)
	}

	noColor := f.noColor || !output.ColorEnabled(stdout)
	formatter := output.GetFormatter(format, f.verbose, noColor)
	if f.query == "" {
		fmt.Fprint(stdout, formatter.FormatRequest(method, b))
	}

	// A *http.StatusError still carries the response, which is printed
	// before the error is returned.
	resp, sendErr := b.Request(cmd.Context(), method)
	var statusErr *http.StatusError
	if sendErr != nil && !errors.As(sendErr, &statusErr) {
		return sendErr
	}

	if f.query != "" {
		value, err := check.Extract(resp.GetBodyAsString(), f.query)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, value)
	} else {
		fmt.Fprint(stdout, formatter.FormatResponse(resp))
	}
	return sendErr
}

// transportFactory builds net/http clients configured from the flags.
func (f *requestFlags) transportFactory(cmd *cobra.Command) http.TransportFactory {
	return func(baseURI string) http.Transport {
		options := []http.ClientOption{
			http.WithTimeout(f.timeout),
			http.WithDebugOutput(cmd.ErrOrStderr()),
		}
		if baseURI != "" {
			options = append(options, http.WithBaseURL(baseURI))
		}
		if f.insecure {
			options = append(options, http.WithInsecureSkipVerify())
		}
		return http.NewClient(options...)
	}
}

// apply copies headers, body and options from the flags onto b.
func (f *requestFlags) apply(b *http.Builder) error {
	headers, err := parseHeaders(f.headers)
	if err != nil {
		return err
	}
	b.WithHeaders(headers)

	switch {
	case f.jsonData != "":
		var fields map[string]any
		if err := json.Unmarshal([]byte(f.jsonData), &fields); err != nil {
			return errors.Wrap(err, "parsing --json")
		}
		b.AsJSON().WithBody(http.Fields(fields))
	case len(f.form) > 0:
		fields, err := parseKeyValues(f.form)
		if err != nil {
			return errors.Wrap(err, "parsing --form")
		}
		b.AsFormParams().WithBody(http.Fields(fields))
	case f.data != "":
		b.AsString().WithBody(http.Raw(f.data))
	}

	options, err := parseKeyValues(f.options)
	if err != nil {
		return errors.Wrap(err, "parsing --option")
	}
	if auth, ok := options[http.ParamAuth].(string); ok {
		user, pass, _ := strings.Cut(auth, ":")
		options[http.ParamAuth] = []string{user, pass}
	}
	b.WithOptions(options)
	return nil
}

// parseHeaders turns 'Name: value' strings into a header map.
func parseHeaders(raw []string) (map[string]string, error) {
	headers := make(map[string]string, len(raw))
	for _, header := range raw {
		name, value, ok := strings.Cut(header, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, errors.Errorf("invalid header %q, want 'Name: value'", header)
		}
		headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return headers, nil
}

// parseKeyValues turns key=value strings into a map. Values are read as
// YAML scalars so that true, 3 and 1.5 keep their types; anything else
// stays a string.
func parseKeyValues(raw []string) (map[string]any, error) {
	values := make(map[string]any, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, errors.Errorf("invalid pair %q, want key=value", kv)
		}
		values[key] = scalar(value)
	}
	return values, nil
}

func scalar(s string) any {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	switch v.(type) {
	case bool, int, float64:
		return v
	default:
		return s
	}
}

// parseURL splits a URL into base URL and path
func parseURL(fullURL string) (string, string) {
	if !strings.HasPrefix(fullURL, "http://") && !strings.HasPrefix(fullURL, "https://") {
		fullURL = "http://" + fullURL
	}

	parsedURL, err := url.Parse(fullURL)
	if err != nil {
		return fullURL, ""
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	if parsedURL.User != nil {
		baseURL = fmt.Sprintf("%s://%s@%s", parsedURL.Scheme, parsedURL.User.String(), parsedURL.Host)
	}

	path := parsedURL.EscapedPath()
	if path == "" {
		path = "/"
	}
	if parsedURL.RawQuery != "" {
		path += "?" + parsedURL.RawQuery
	}
	if parsedURL.Fragment != "" {
		path += "#" + parsedURL.EscapedFragment()
	}

	return baseURL, path
}
