package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"code.cloudfoundry.org/bytefmt"

	"github.com/wesleyorama2/volley/http"
)

// TextFormatter renders requests and responses for a terminal.
type TextFormatter struct {
	Verbose bool
	Colors  *ColorScheme
}

// NewTextFormatter creates a text formatter.
func NewTextFormatter(verbose, noColor bool) *TextFormatter {
	return &TextFormatter{
		Verbose: verbose,
		Colors:  NewColorScheme(noColor),
	}
}

// FormatRequest describes the request b is about to send with method.
func (f *TextFormatter) FormatRequest(method string, b *http.Builder) string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "▶ %s %s\n",
		f.Colors.Method.Sprint(strings.ToUpper(method)),
		f.Colors.URL.Sprint(targetURL(b)))

	headers := b.Headers()
	if f.Verbose || len(headers) > 0 {
		buf.WriteString("  Headers:\n")
		for _, key := range sortedKeys(headers) {
			fmt.Fprintf(&buf, "    %s: %s\n", f.Colors.HeaderKey.Sprint(key), headers[key])
		}
	}

	if body := b.Body(); body.Len() > 0 {
		fmt.Fprintf(&buf, "  Body (%s):\n", b.Format())
		buf.WriteString(indent(describeBody(body)))
		buf.WriteString("\n")
	}

	if f.Verbose && len(b.Options()) > 0 {
		buf.WriteString("  Options:\n")
		options := b.Options()
		keys := make([]string, 0, len(options))
		for key := range options {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(&buf, "    %s: %v\n", key, options[key])
		}
	}

	return buf.String()
}

// FormatResponse renders the status line, optional timing and headers, and
// the body, pretty-printed when it is JSON.
func (f *TextFormatter) FormatResponse(resp *http.Response) string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "◀ %s %s\n",
		f.Colors.Status(resp.StatusCode).Sprintf("%d %s", resp.StatusCode, resp.Status),
		f.Colors.Muted.Sprintf("(%s, %s)", formatMillis(resp.ResponseTime.Milliseconds()), bytefmt.ByteSize(uint64(resp.Size()))))

	if f.Verbose {
		t := resp.Timing
		buf.WriteString("  Timing:\n")
		fmt.Fprintf(&buf, "    DNS Lookup:         %s\n", formatMillis(t.DNSLookupTime.Milliseconds()))
		fmt.Fprintf(&buf, "    TCP Connection:     %s\n", formatMillis(t.TCPConnectTime.Milliseconds()))
		fmt.Fprintf(&buf, "    TLS Handshake:      %s\n", formatMillis(t.TLSHandshakeTime.Milliseconds()))
		fmt.Fprintf(&buf, "    Time to First Byte: %s\n", formatMillis(t.TimeToFirstByte.Milliseconds()))
		fmt.Fprintf(&buf, "    Content Transfer:   %s\n", formatMillis(t.ContentTransferTime.Milliseconds()))

		buf.WriteString("  Headers:\n")
		keys := make([]string, 0, len(resp.Headers))
		for key := range resp.Headers {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			for _, value := range resp.Headers[key] {
				fmt.Fprintf(&buf, "    %s: %s\n", f.Colors.HeaderKey.Sprint(key), value)
			}
		}
	}

	if body := resp.GetBodyAsString(); body != "" {
		buf.WriteString(prettyJSON(body))
		buf.WriteString("\n")
	}

	return buf.String()
}

// targetURL joins the transport's base URL, when it has one, with the URI.
func targetURL(b *http.Builder) string {
	base := ""
	if t, ok := b.Transport().(interface{ BaseURL() string }); ok {
		base = t.BaseURL()
	}
	uri := b.URI()
	switch {
	case base == "" || strings.Contains(uri, "://"):
		return uri
	case uri == "":
		return base
	case strings.HasSuffix(base, "/") || strings.HasPrefix(uri, "/"):
		return base + uri
	default:
		return base + "/" + uri
	}
}

func describeBody(body http.Body) string {
	if body.IsRaw() {
		return prettyJSON(body.Raw())
	}
	encoded, err := json.MarshalIndent(body.Fields(), "", "  ")
	if err != nil {
		return body.String()
	}
	return string(encoded)
}

// prettyJSON indents s when it is valid JSON and returns it unchanged
// otherwise.
func prettyJSON(s string) string {
	var out bytes.Buffer
	if err := json.Indent(&out, []byte(s), "", "  "); err != nil {
		return s
	}
	return out.String()
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "    " + line
	}
	return strings.Join(lines, "\n")
}

func formatMillis(ms int64) string {
	return fmt.Sprintf("%dms", ms)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
