package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/volley/http"
)

// OutputFormat represents the available output formats
type OutputFormat string

const (
	// FormatText is the default human-readable text format
	FormatText OutputFormat = "text"
	// FormatJSON outputs in JSON format
	FormatJSON OutputFormat = "json"
	// FormatYAML outputs in YAML format
	FormatYAML OutputFormat = "yaml"
)

// ParseFormat maps a flag value onto an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// FormatProvider is an interface for different output formatters
type FormatProvider interface {
	FormatRequest(method string, b *http.Builder) string
	FormatResponse(resp *http.Response) string
}

// RequestData represents the structured data of an HTTP request
type RequestData struct {
	Method  string            `json:"method" yaml:"method"`
	URL     string            `json:"url" yaml:"url"`
	Format  string            `json:"format" yaml:"format"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body    any               `json:"body,omitempty" yaml:"body,omitempty"`
	Options map[string]any    `json:"options,omitempty" yaml:"options,omitempty"`
}

// TimingData represents detailed timing information for an HTTP request
type TimingData struct {
	DNSLookup       int64 `json:"dnsLookupMs,omitempty" yaml:"dnsLookupMs,omitempty"`
	TCPConnection   int64 `json:"tcpConnectionMs,omitempty" yaml:"tcpConnectionMs,omitempty"`
	TLSHandshake    int64 `json:"tlsHandshakeMs,omitempty" yaml:"tlsHandshakeMs,omitempty"`
	TimeToFirstByte int64 `json:"timeToFirstByteMs,omitempty" yaml:"timeToFirstByteMs,omitempty"`
	ContentTransfer int64 `json:"contentTransferMs,omitempty" yaml:"contentTransferMs,omitempty"`
	Total           int64 `json:"totalMs" yaml:"totalMs"`
}

// ResponseData represents the structured data of an HTTP response
type ResponseData struct {
	StatusCode   int               `json:"statusCode" yaml:"statusCode"`
	Status       string            `json:"status" yaml:"status"`
	Headers      map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body         any               `json:"body,omitempty" yaml:"body,omitempty"`
	Size         int               `json:"size" yaml:"size"`
	ResponseTime int64             `json:"responseTimeMs" yaml:"responseTimeMs"`
	Timing       *TimingData       `json:"timing,omitempty" yaml:"timing,omitempty"`
	Timestamp    string            `json:"timestamp" yaml:"timestamp"`
}

// NewRequestData captures what b will send with method.
func NewRequestData(method string, b *http.Builder, verbose bool) RequestData {
	data := RequestData{
		Method:  strings.ToUpper(method),
		URL:     targetURL(b),
		Format:  string(b.Format()),
		Headers: b.Headers(),
	}
	if body := b.Body(); body.Len() > 0 {
		data.Body = body.Value()
	}
	if verbose {
		data.Options = b.Options()
	}
	return data
}

// NewResponseData captures resp. JSON bodies are decoded so they nest in
// the structured output; anything else is kept as a string.
func NewResponseData(resp *http.Response, verbose bool) ResponseData {
	headers := make(map[string]string, len(resp.Headers))
	for key, values := range resp.Headers {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	var body any
	if raw := resp.GetBody(); len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			body = string(raw)
		}
	}

	data := ResponseData{
		StatusCode:   resp.StatusCode,
		Status:       resp.Status,
		Headers:      headers,
		Body:         body,
		Size:         resp.Size(),
		ResponseTime: resp.ResponseTime.Milliseconds(),
		Timestamp:    time.Now().Format(time.RFC3339),
	}
	if verbose {
		t := resp.Timing
		data.Timing = &TimingData{
			DNSLookup:       t.DNSLookupTime.Milliseconds(),
			TCPConnection:   t.TCPConnectTime.Milliseconds(),
			TLSHandshake:    t.TLSHandshakeTime.Milliseconds(),
			TimeToFirstByte: t.TimeToFirstByte.Milliseconds(),
			ContentTransfer: t.ContentTransferTime.Milliseconds(),
			Total:           t.TotalTime.Milliseconds(),
		}
	}
	return data
}

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	Verbose bool
	Pretty  bool
}

// FormatRequest formats a request as JSON
func (f *JSONFormatter) FormatRequest(method string, b *http.Builder) string {
	return f.marshal(NewRequestData(method, b, f.Verbose))
}

// FormatResponse formats a response as JSON
func (f *JSONFormatter) FormatResponse(resp *http.Response) string {
	return f.marshal(NewResponseData(resp, f.Verbose))
}

func (f *JSONFormatter) marshal(v any) string {
	var output []byte
	var err error
	if f.Pretty {
		output, err = json.MarshalIndent(v, "", "  ")
	} else {
		output, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(output) + "\n"
}

// YAMLFormatter formats output as YAML
type YAMLFormatter struct {
	Verbose bool
}

// FormatRequest formats a request as a YAML document
func (f *YAMLFormatter) FormatRequest(method string, b *http.Builder) string {
	return f.marshal(map[string]any{"request": NewRequestData(method, b, f.Verbose)})
}

// FormatResponse formats a response as a YAML document
func (f *YAMLFormatter) FormatResponse(resp *http.Response) string {
	return f.marshal(map[string]any{"response": NewResponseData(resp, f.Verbose)})
}

func (f *YAMLFormatter) marshal(v any) string {
	output, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprintf("error: %q\n", err.Error())
	}
	return "---\n" + string(output)
}

// GetFormatter returns the appropriate formatter for the given format
func GetFormatter(format OutputFormat, verbose bool, noColor bool) FormatProvider {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Verbose: verbose, Pretty: true}
	case FormatYAML:
		return &YAMLFormatter{Verbose: verbose}
	default:
		return NewTextFormatter(verbose, noColor)
	}
}
